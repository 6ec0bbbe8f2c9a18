package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/draftvcs/draft/cmd"
	"github.com/draftvcs/draft/pkg/engine"
)

func attachMain(_ *cobra.Command, arguments []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	localFile, targetPath := arguments[0], arguments[1]

	relative, err := e.SaveAttachment(localFile)
	if err != nil {
		return err
	}

	existing, err := e.GetMetadata(targetPath)
	if err != nil {
		return err
	}

	fields := engine.MetadataFields{Attachments: []string{relative}}
	if existing != nil {
		fields.Tags = existing.Tags
		fields.Tasks = existing.Tasks
		fields.Attachments = append(append([]string{}, existing.Attachments...), relative)
	}

	if err := e.SaveMetadata(targetPath, fields); err != nil {
		return err
	}

	fmt.Println("Attached", localFile, "to", targetPath, "as", relative)
	return nil
}

var attachCommand = &cobra.Command{
	Use:   "attach <local-file> <path>",
	Short: "Attach a local file to a path's metadata",
	Args:  cobra.ExactArgs(2),
	Run:   cmd.Mainify(attachMain),
}
