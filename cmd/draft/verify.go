package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/draftvcs/draft/cmd"
)

func verifyMain(_ *cobra.Command, _ []string) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	defer e.Close()

	report, err := e.ValidateIntegrity()
	if err != nil {
		return err
	}

	if report.OK {
		fmt.Println(color.GreenString("Repository is consistent"))
		return nil
	}

	fmt.Println(color.RedString("Repository has %d integrity problem(s):", len(report.Errors)))
	for _, problem := range report.Errors {
		fmt.Println(" -", problem)
	}
	return fmt.Errorf("integrity check failed")
}

var verifyCommand = &cobra.Command{
	Use:   "verify",
	Short: "Check that every indexed blob exists and every manifest reference resolves",
	Args:  cmd.DisallowArguments,
	Run:   cmd.Mainify(verifyMain),
}
