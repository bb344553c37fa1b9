package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "forkexec",
	Short: "forkexec -- spawn a child process with redirected streams",
	Long: "forkexec starts one program with fork and exec, wires its standard\n" +
		"streams through pipes and reports how it ended. Helper commands expose\n" +
		"the surrounding process APIs (limits, priority, affinity, signals).",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var logLevel string
var logFormat string

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "auto", "log format (json, text, auto)")
}

// exitError carries the exit status the process should end with.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func main() {
	if err := rootCmd.Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			if ee.err != nil {
				fmt.Fprintln(os.Stderr, ee.err)
			}
			os.Exit(ee.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
