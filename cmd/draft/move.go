package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/draftvcs/draft/cmd"
)

func moveMain(_ *cobra.Command, arguments []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.MoveMetadata(arguments[0], arguments[1]); err != nil {
		return err
	}

	fmt.Println("Moved metadata from", arguments[0], "to", arguments[1])
	return nil
}

var moveCommand = &cobra.Command{
	Use:   "mv <old-path> <new-path>",
	Short: "Record that a path was renamed, forwarding its metadata and history",
	Args:  cobra.ExactArgs(2),
	Run:   cmd.Mainify(moveMain),
}
