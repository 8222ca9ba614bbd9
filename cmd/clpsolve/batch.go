package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gitrdm/gokanclp/internal/parallel"
	"github.com/gitrdm/gokanclp/internal/problem"
)

type batchItem struct {
	path string
	res  *problem.Result
	err  error
}

func newBatchCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch FILE...",
		Short: "Solve several problem files concurrently",
		Long: `batch solves every file on its own engine instance, running up to
--workers of them at once. Results are printed in argument order. A file that
fails to load or solve is reported and the rest still run.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.context(cmd)
			defer cancel()

			pool := parallel.NewWorkerPool(a.cfg.Workers)
			defer pool.Shutdown()
			a.log.Debug().Int("workers", pool.Workers()).Int("files", len(args)).Msg("batch started")

			items, err := parallel.Map(ctx, pool, args, func(ctx context.Context, path string) batchItem {
				p, err := problem.Load(path)
				if err != nil {
					return batchItem{path: path, err: err}
				}
				res, err := problem.Run(ctx, p, a.options())
				return batchItem{path: path, res: res, err: err}
			})
			if err != nil {
				return fmt.Errorf("batch: %w", err)
			}

			var results []*problem.Result
			failed := 0
			for _, it := range items {
				if it.err != nil {
					failed++
					a.log.Error().Err(it.err).Str("file", it.path).Msg("problem failed")
					continue
				}
				results = append(results, it.res)
			}
			if err := writeResults(cmd.OutOrStdout(), a.cfg.Format, results); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d problems failed", failed, len(items))
			}
			return nil
		},
	}
	cmd.Flags().Int("workers", 0, "problems solved at once (0 = number of CPUs)")
	return cmd
}
