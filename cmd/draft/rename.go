package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/draftvcs/draft/cmd"
)

func renameMain(_ *cobra.Command, arguments []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.RenameVersion(arguments[0], arguments[1]); err != nil {
		return err
	}

	fmt.Println("Renamed version", arguments[0], "to", arguments[1])
	return nil
}

var renameCommand = &cobra.Command{
	Use:   "rename <version> <new-label>",
	Short: "Change a version's label",
	Args:  cobra.ExactArgs(2),
	Run:   cmd.Mainify(renameMain),
}
