package main

import (
	"fmt"
	"strconv"

	"github.com/kahiteam/forkexec/internal/process"
	"github.com/spf13/cobra"
)

var affinityCmd = &cobra.Command{
	Use:   "affinity",
	Short: "Show or change CPU affinity",
}

var affinityGetCmd = &cobra.Command{
	Use:   "get [PID]",
	Short: "Print the CPUs PID may run on",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := optionalPid(args)
		if err != nil {
			return err
		}
		m, err := process.GetAffinity(pid)
		if err != nil {
			return fmt.Errorf("sched_getaffinity: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), m.String())
		return err
	},
}

var affinitySetCmd = &cobra.Command{
	Use:   "set PID CPULIST",
	Short: "Restrict PID to the CPUs in CPULIST (e.g. 0-3,6)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid, err := strconv.Atoi(args[0])
		if err != nil || pid < 0 {
			return fmt.Errorf("invalid pid %q", args[0])
		}
		cpus, err := process.ParseCPUList(args[1])
		if err != nil {
			return err
		}
		m, err := process.NewCPUMask(cpus...)
		if err != nil {
			return err
		}
		if err := process.SetAffinity(pid, m); err != nil {
			return fmt.Errorf("sched_setaffinity: %w", err)
		}
		return nil
	},
}

func init() {
	affinityCmd.AddCommand(affinityGetCmd, affinitySetCmd)
	rootCmd.AddCommand(affinityCmd)
}
