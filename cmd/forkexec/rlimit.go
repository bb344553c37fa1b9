package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/kahiteam/forkexec/internal/process"
	"github.com/spf13/cobra"
)

var rlimitPid int

var rlimitCmd = &cobra.Command{
	Use:   "rlimit",
	Short: "Show or change resource limits",
}

var rlimitGetCmd = &cobra.Command{
	Use:   "get [NAME...]",
	Short: "Print resource limits (all when no NAME is given)",
	RunE: func(cmd *cobra.Command, args []string) error {
		resources := process.Resources()
		if len(args) > 0 {
			resources = nil
			for _, a := range args {
				r, err := process.ParseResource(a)
				if err != nil {
					return err
				}
				resources = append(resources, r)
			}
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "RESOURCE\tSOFT\tHARD")
		for _, r := range resources {
			l, err := process.GetProcessRLimit(rlimitPid, r)
			if err != nil {
				return fmt.Errorf("getrlimit %s: %w", r, err)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", r, process.FormatLimitValue(l.Cur), process.FormatLimitValue(l.Max))
		}
		return w.Flush()
	},
}

var rlimitSetCmd = &cobra.Command{
	Use:   "set NAME SOFT[:HARD]",
	Short: "Change a resource limit of --pid",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		r, err := process.ParseResource(args[0])
		if err != nil {
			return err
		}
		l, err := process.ParseRLimit(args[1])
		if err != nil {
			return err
		}
		if err := process.SetProcessRLimit(rlimitPid, r, l); err != nil {
			return fmt.Errorf("setrlimit %s: %w", r, err)
		}
		return nil
	},
}

func init() {
	rlimitCmd.PersistentFlags().IntVar(&rlimitPid, "pid", 0, "target process (0 for forkexec itself)")
	rlimitCmd.AddCommand(rlimitGetCmd, rlimitSetCmd)
	rootCmd.AddCommand(rlimitCmd)
}
