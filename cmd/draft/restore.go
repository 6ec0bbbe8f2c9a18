package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/draftvcs/draft/cmd"
	"github.com/draftvcs/draft/pkg/restore"
)

var restoreConfiguration struct {
	recreateScope bool
}

func restoreMain(_ *cobra.Command, arguments []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	statusLinePrinter := &cmd.StatusLinePrinter{}
	e.SetRestoreProgress(func(path string) {
		statusLinePrinter.Print(fmt.Sprintf("Restoring %s", path))
	})

	if err := runInterruptible(statusLinePrinter, func() error {
		return e.Restore(arguments[0], restore.Options{
			RecreateScope: restoreConfiguration.recreateScope,
		})
	}); err != nil {
		return err
	}

	fmt.Println("Restored version", arguments[0])
	return nil
}

var restoreCommand = &cobra.Command{
	Use:   "restore <version>",
	Short: "Materialize a version onto the working tree",
	Args:  cobra.ExactArgs(1),
	Run:   cmd.Mainify(restoreMain),
}

func init() {
	flags := restoreCommand.Flags()
	flags.BoolVar(&restoreConfiguration.recreateScope, "recreate-scope", false, "recreate a folder snapshot's scope directory if it no longer exists")
}
