package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/draftvcs/draft/cmd"
	"github.com/draftvcs/draft/pkg/engine"
)

func initMain(_ *cobra.Command, _ []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	e, err := engine.Init(cwd, resolveDraftRoot(cwd))
	if err != nil {
		return err
	}
	defer e.Close()

	fmt.Println("Initialized an empty draft repository in", cwd)
	return nil
}

var initCommand = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new repository in the current directory",
	Args:  cmd.DisallowArguments,
	Run:   cmd.Mainify(initMain),
}
