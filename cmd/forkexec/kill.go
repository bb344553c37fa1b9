package main

import (
	"fmt"
	"strconv"

	"github.com/kahiteam/forkexec/internal/process"
	"github.com/spf13/cobra"
)

var killCmd = &cobra.Command{
	Use:   "kill PID [SIGNAL]",
	Short: "Send SIGNAL (default TERM) to PID",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid pid %q", args[0])
		}
		sig := process.SigTerm
		if len(args) == 2 {
			if sig, err = process.ParseSignal(args[1]); err != nil {
				return err
			}
		}
		if err := process.Kill(pid, sig); err != nil {
			return fmt.Errorf("kill %d %s: %w", pid, sig, err)
		}
		return nil
	},
}

var sidCmd = &cobra.Command{
	Use:   "sid [PID]",
	Short: "Print the session id of PID (default: forkexec itself)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := optionalPid(args)
		if err != nil {
			return err
		}
		sid, err := process.Getsid(pid)
		if err != nil {
			return fmt.Errorf("getsid: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), sid)
		return err
	},
}

// optionalPid returns the pid in args[0], or 0 for the caller.
func optionalPid(args []string) (int, error) {
	if len(args) == 0 {
		return 0, nil
	}
	pid, err := strconv.Atoi(args[0])
	if err != nil || pid < 0 {
		return 0, fmt.Errorf("invalid pid %q", args[0])
	}
	return pid, nil
}

func init() {
	rootCmd.AddCommand(killCmd, sidCmd)
}
