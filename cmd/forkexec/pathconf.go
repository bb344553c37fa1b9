package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/kahiteam/forkexec/internal/process"
	"github.com/spf13/cobra"
)

var pathconfCmd = &cobra.Command{
	Use:   "pathconf PATH [NAME...]",
	Short: "Print pathconf(3) variables for PATH (all when no NAME is given)",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		names := process.PathConfNames()
		if len(args) > 1 {
			names = nil
			for _, a := range args[1:] {
				n, err := process.ParsePathConfName(a)
				if err != nil {
					return err
				}
				names = append(names, n)
			}
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, n := range names {
			v, err := process.PathConf(args[0], n)
			if err != nil {
				return fmt.Errorf("pathconf %s %s: %w", args[0], n, err)
			}
			value := fmt.Sprint(v)
			if v < 0 {
				value = "undefined"
			}
			fmt.Fprintf(w, "%s\t%s\n", n, value)
		}
		return w.Flush()
	},
}

var maxpathCmd = &cobra.Command{
	Use:   "maxpath",
	Short: "Print the longest path the root file system accepts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), process.MaxPath())
		return err
	},
}

func init() {
	rootCmd.AddCommand(pathconfCmd, maxpathCmd)
}
