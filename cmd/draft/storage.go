package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/draftvcs/draft/cmd"
)

func storageMain(_ *cobra.Command, _ []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	report, err := e.GetStorageReport()
	if err != nil {
		return err
	}

	fmt.Printf(
		"Total: %s original, %s stored (%.1f%% of original)\n",
		humanize.Bytes(uint64(report.TotalSize)),
		humanize.Bytes(uint64(report.TotalCompressedSize)),
		report.CompressionRatio*100,
	)
	fmt.Println()
	fmt.Println("By snapshot:")
	for _, snapshot := range report.Snapshots {
		label := snapshot.Label
		if label == "" {
			label = "(no label)"
		}
		fmt.Printf(
			"  %-8s %s  %s\n",
			snapshot.VersionNumber,
			humanize.Bytes(uint64(snapshot.TotalSize)),
			label,
		)
	}

	return nil
}

var storageCommand = &cobra.Command{
	Use:   "storage",
	Short: "Show a breakdown of repository disk usage",
	Args:  cmd.DisallowArguments,
	Run:   cmd.Mainify(storageMain),
}
