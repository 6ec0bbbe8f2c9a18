package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/draftvcs/draft/cmd"
	"github.com/draftvcs/draft/pkg/engine"
)

var metadataConfiguration struct {
	tags string
}

func metadataGetMain(_ *cobra.Command, arguments []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	record, err := e.GetMetadata(arguments[0])
	if err != nil {
		return err
	}
	if record == nil {
		fmt.Println("No metadata recorded for", arguments[0])
		return nil
	}

	fmt.Println("FID:", record.ID)
	fmt.Println("Tags:", strings.Join(record.Tags, ", "))
	for _, task := range record.Tasks {
		status := " "
		if task.Done {
			status = "x"
		}
		fmt.Printf("  [%s] %s\n", status, task.Text)
	}
	for _, attachment := range record.Attachments {
		fmt.Println("Attachment:", attachment)
	}
	return nil
}

func metadataSetMain(_ *cobra.Command, arguments []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	var tags []string
	if metadataConfiguration.tags != "" {
		tags = strings.Split(metadataConfiguration.tags, ",")
	}

	existing, err := e.GetMetadata(arguments[0])
	if err != nil {
		return err
	}

	fields := engine.MetadataFields{Tags: tags}
	if existing != nil {
		if tags == nil {
			fields.Tags = existing.Tags
		}
		fields.Tasks = existing.Tasks
		fields.Attachments = existing.Attachments
	}

	if err := e.SaveMetadata(arguments[0], fields); err != nil {
		return err
	}

	fmt.Println("Updated metadata for", arguments[0])
	return nil
}

var metadataCommand = &cobra.Command{
	Use:   "metadata",
	Short: "Inspect or update the metadata recorded for a path",
}

var metadataGetCommand = &cobra.Command{
	Use:   "get <path>",
	Short: "Print the metadata recorded for a path",
	Args:  cobra.ExactArgs(1),
	Run:   cmd.Mainify(metadataGetMain),
}

var metadataSetCommand = &cobra.Command{
	Use:   "set <path>",
	Short: "Update the tags recorded for a path",
	Args:  cobra.ExactArgs(1),
	Run:   cmd.Mainify(metadataSetMain),
}

func init() {
	flags := metadataSetCommand.Flags()
	flags.StringVar(&metadataConfiguration.tags, "tags", "", "a comma-separated list of tags to set")
	metadataCommand.AddCommand(metadataGetCommand, metadataSetCommand)
}
