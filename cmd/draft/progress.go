package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/draftvcs/draft/cmd"
)

// runInterruptible runs operation in the background, printing its progress
// through statusLinePrinter, and returns whichever comes first: the
// operation's own result, or termination via an interrupt signal. It mirrors
// the signal/result select used by the daemon's own run loop, adapted to a
// single foreground operation rather than a long-lived server.
func runInterruptible(statusLinePrinter *cmd.StatusLinePrinter, operation func() error) error {
	signalTermination := make(chan os.Signal, 1)
	signal.Notify(signalTermination, cmd.TerminationSignals...)
	defer signal.Stop(signalTermination)

	result := make(chan error, 1)
	go func() {
		result <- operation()
	}()

	select {
	case sig := <-signalTermination:
		statusLinePrinter.BreakIfNonEmpty()
		return fmt.Errorf("terminated by signal: %s", sig)
	case err := <-result:
		statusLinePrinter.Clear()
		return err
	}
}
