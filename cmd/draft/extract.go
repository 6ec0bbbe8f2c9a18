package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/draftvcs/draft/cmd"
)

func extractMain(_ *cobra.Command, arguments []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	versionID, relativePath, destPath := arguments[0], arguments[1], arguments[2]
	if err := e.ExtractFile(versionID, relativePath, destPath); err != nil {
		return err
	}

	fmt.Println("Extracted", relativePath, "from version", versionID, "to", destPath)
	return nil
}

var extractCommand = &cobra.Command{
	Use:   "extract <version> <path> <destination>",
	Short: "Write a single file's content from a version directly to a destination path",
	Args:  cobra.ExactArgs(3),
	Run:   cmd.Mainify(extractMain),
}
