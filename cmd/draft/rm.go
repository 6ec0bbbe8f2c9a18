package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/draftvcs/draft/cmd"
)

func rmMain(_ *cobra.Command, arguments []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.DeleteVersion(arguments[0]); err != nil {
		return err
	}

	fmt.Println("Deleted version", arguments[0])
	return nil
}

var rmCommand = &cobra.Command{
	Use:   "rm <version>",
	Short: "Delete a version and release any blobs it alone referenced",
	Args:  cobra.ExactArgs(1),
	Run:   cmd.Mainify(rmMain),
}
