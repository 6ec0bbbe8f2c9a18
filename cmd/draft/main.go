package main

import (
	"github.com/draftvcs/draft/cmd"
)

func main() {
	cmd.HandleTerminalCompatibility()

	if err := rootCommand.Execute(); err != nil {
		cmd.Fatal(err)
	}
}
