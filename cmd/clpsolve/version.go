package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitrdm/gokanclp/pkg/clp"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the clpsolve version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			info := clp.GetVersionInfo()
			info.GitCommit, info.BuildDate = Commit, BuildDate
			fmt.Fprintf(cmd.OutOrStdout(), "clpsolve %s (%s)", info.Version, info.GoVersion)
			if info.GitCommit != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " commit %s", info.GitCommit)
			}
			if info.BuildDate != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " built %s", info.BuildDate)
			}
			fmt.Fprintln(cmd.OutOrStdout())
		},
	}
}
