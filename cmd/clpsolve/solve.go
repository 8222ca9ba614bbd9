package main

import (
	"github.com/spf13/cobra"

	"github.com/gitrdm/gokanclp/internal/problem"
)

func newSolveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "solve FILE",
		Short: "Solve one problem file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := problem.Load(args[0])
			if err != nil {
				return err
			}
			ctx, cancel := a.context(cmd)
			defer cancel()

			res, err := problem.Run(ctx, p, a.options())
			if err != nil {
				return err
			}
			return writeResults(cmd.OutOrStdout(), a.cfg.Format, []*problem.Result{res})
		},
	}
}
