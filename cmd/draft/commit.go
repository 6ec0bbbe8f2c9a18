package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/draftvcs/draft/cmd"
)

var commitConfiguration struct {
	label string
}

func commitMain(_ *cobra.Command, arguments []string) error {
	if len(arguments) == 0 {
		return fmt.Errorf("no files specified")
	}

	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	statusLinePrinter := &cmd.StatusLinePrinter{}
	e.SetCommitProgress(func(path string) {
		statusLinePrinter.Print(fmt.Sprintf("Committing %s", path))
	})

	var id string
	if err := runInterruptible(statusLinePrinter, func() error {
		var commitErr error
		id, commitErr = e.Commit(commitConfiguration.label, arguments)
		return commitErr
	}); err != nil {
		return err
	}

	fmt.Println("Committed version", id)
	return nil
}

var commitCommand = &cobra.Command{
	Use:   "commit <file>...",
	Short: "Commit an explicit set of files as a new version",
	Run:   cmd.Mainify(commitMain),
}

func init() {
	flags := commitCommand.Flags()
	flags.StringVarP(&commitConfiguration.label, "label", "m", "", "a short description of this version")
}
