package main

import (
	"fmt"

	"github.com/kahiteam/forkexec/internal/process"
	"github.com/spf13/cobra"
)

var cwdSize int

var cwdCmd = &cobra.Command{
	Use:   "cwd",
	Short: "Print the working directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		size := cwdSize
		if size <= 0 {
			size = int(process.MaxPath())
		}
		dir, err := process.Getcwd(make([]byte, size), size)
		if err != nil {
			return fmt.Errorf("getcwd: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), dir)
		return err
	},
}

func init() {
	cwdCmd.Flags().IntVar(&cwdSize, "size", 0, "buffer size in bytes (default PATH_MAX)")
	rootCmd.AddCommand(cwdCmd)
}
