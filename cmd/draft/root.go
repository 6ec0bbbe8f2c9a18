package main

import (
	"github.com/spf13/cobra"

	"github.com/draftvcs/draft/pkg/version"
)

var rootCommand = &cobra.Command{
	Use:           "draft",
	Short:         "draft is a local-first snapshot engine for creative and binary-heavy projects",
	SilenceUsage:  true,
	SilenceErrors: true,
	Version:       version.Semantic,
}

var rootConfiguration struct {
	// draftRoot overrides the repository location; if empty, the
	// repository lives inside the project root.
	draftRoot string
	// global, when set, stores the repository under the user's home
	// directory instead of inside (or alongside) the project, keyed by the
	// project root's path. If draftRoot is also set, draftRoot takes
	// precedence.
	global bool
}

func init() {
	flags := rootCommand.PersistentFlags()
	flags.StringVar(&rootConfiguration.draftRoot, "draft-root", "", "store the repository at this location instead of inside the project")
	flags.BoolVar(&rootConfiguration.global, "global", false, "store the repository under the user's home directory instead of the project")

	rootCommand.AddCommand(
		initCommand,
		commitCommand,
		snapshotCommand,
		restoreCommand,
		historyCommand,
		rmCommand,
		renameCommand,
		extractCommand,
		metadataCommand,
		attachCommand,
		moveCommand,
		verifyCommand,
		storageCommand,
	)
}
