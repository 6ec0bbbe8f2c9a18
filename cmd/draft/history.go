package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/draftvcs/draft/cmd"
)

func historyMain(_ *cobra.Command, arguments []string) error {
	filterPath := ""
	if len(arguments) > 0 {
		filterPath = arguments[0]
	}

	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	entries, err := e.History(filterPath)
	if err != nil {
		return err
	}

	head, err := e.GetCurrentHead()
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No versions found")
		return nil
	}

	for _, entry := range entries {
		marker := "  "
		if entry.Manifest.ID == head {
			marker = color.GreenString("* ")
		}
		label := entry.Manifest.Label
		if label == "" {
			label = "(no label)"
		}
		fmt.Printf(
			"%s%-8s %s  %s  %s\n",
			marker,
			entry.Manifest.VersionNumber,
			time.Unix(0, entry.Manifest.Timestamp).Format(time.RFC3339),
			humanize.Bytes(uint64(entry.TotalSize)),
			label,
		)
	}

	return nil
}

var historyCommand = &cobra.Command{
	Use:   "history [path]",
	Short: "List versions, newest first, optionally filtered to those touching path",
	Args:  cobra.MaximumNArgs(1),
	Run:   cmd.Mainify(historyMain),
}
