package main

import (
	"fmt"
	"strconv"

	"github.com/kahiteam/forkexec/internal/process"
	"github.com/spf13/cobra"
)

var priorityWhich string

var priorityCmd = &cobra.Command{
	Use:   "priority",
	Short: "Show or change scheduling priority (nice value)",
}

var priorityGetCmd = &cobra.Command{
	Use:   "get [WHO]",
	Short: "Print the nice value of WHO (default: forkexec itself)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		which, who, err := priorityTarget(args)
		if err != nil {
			return err
		}
		nice, err := process.GetPriority(which, who)
		if err != nil {
			return fmt.Errorf("getpriority: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), nice)
		return err
	},
}

var prioritySetCmd = &cobra.Command{
	Use:   "set NICE [WHO]",
	Short: "Set the nice value of WHO",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		nice, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid nice value %q", args[0])
		}
		which, who, err := priorityTarget(args[1:])
		if err != nil {
			return err
		}
		if err := process.SetPriority(which, who, nice); err != nil {
			return fmt.Errorf("setpriority: %w", err)
		}
		return nil
	},
}

// priorityTarget reads --which and the optional WHO argument. WHO 0 means
// the caller's own process, group or user.
func priorityTarget(args []string) (process.PriorityWhich, int, error) {
	var which process.PriorityWhich
	switch priorityWhich {
	case "process":
		which = process.PrioProcess
	case "group":
		which = process.PrioGroup
	case "user":
		which = process.PrioUser
	default:
		return 0, 0, fmt.Errorf("invalid --which %q (want process, group or user)", priorityWhich)
	}
	who := 0
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return 0, 0, fmt.Errorf("invalid id %q", args[0])
		}
		who = n
	}
	return which, who, nil
}

func init() {
	priorityCmd.PersistentFlags().StringVar(&priorityWhich, "which", "process", "what WHO names: process, group or user")
	priorityCmd.AddCommand(priorityGetCmd, prioritySetCmd)
	rootCmd.AddCommand(priorityCmd)
}
