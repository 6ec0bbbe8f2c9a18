package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/draftvcs/draft/cmd"
	"github.com/draftvcs/draft/pkg/pathcodec"
)

var snapshotConfiguration struct {
	label string
}

func snapshotMain(_ *cobra.Command, arguments []string) error {
	folder := pathcodec.RootScope
	if len(arguments) > 0 {
		folder = arguments[0]
	}

	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	statusLinePrinter := &cmd.StatusLinePrinter{}
	e.SetCommitProgress(func(path string) {
		statusLinePrinter.Print(fmt.Sprintf("Snapshotting %s", path))
	})

	var id string
	if err := runInterruptible(statusLinePrinter, func() error {
		var snapshotErr error
		id, snapshotErr = e.CreateSnapshot(folder, snapshotConfiguration.label)
		return snapshotErr
	}); err != nil {
		return err
	}

	fmt.Println("Created version", id)
	return nil
}

var snapshotCommand = &cobra.Command{
	Use:   "snapshot [folder]",
	Short: "Snapshot a folder subtree (or the entire project) as a new version",
	Args:  cobra.MaximumNArgs(1),
	Run:   cmd.Mainify(snapshotMain),
}

func init() {
	flags := snapshotCommand.Flags()
	flags.StringVarP(&snapshotConfiguration.label, "label", "m", "", "a short description of this version")
}
