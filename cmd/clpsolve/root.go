package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/gitrdm/gokanclp/internal/problem"
	"github.com/gitrdm/gokanclp/pkg/clp"
)

// app holds state shared by the subcommands of one invocation.
type app struct {
	configFile string
	cfg        settings
	log        zerolog.Logger
	monitor    *clp.Monitor
}

func newRootCmd() *cobra.Command {
	a := &app{log: zerolog.Nop()}

	root := &cobra.Command{
		Use:   "clpsolve",
		Short: "Solve constraint problems described in YAML",
		Long: `clpsolve loads precedence networks, n-queens instances and capacity
profiles from YAML files and solves them with the clp engine.

Settings come from flags, CLPSOLVE_* environment variables and an optional
clpsolve.yaml in the working directory, in that order of precedence.`,
		Version:            clp.Version,
		SilenceUsage:       true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.finish,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "config file (default: ./clpsolve.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error, disabled")
	pf.Int("max-solutions", 0, "stop after this many solutions (0 = all)")
	pf.Duration("timeout", 0, "give up enumerating after this long (0 = no limit)")
	pf.String("backing", clp.BackingArray.String(), "domain backing when a problem names none: array, counted, span")
	pf.String("metrics-file", "", "write Prometheus metrics to this file when done")
	pf.StringP("format", "o", "text", "output format: text, yaml, json")
	pf.Int("max-steps", 0, "propagation step limit per fixpoint (0 = none)")

	root.AddCommand(newSolveCmd(a), newBatchCmd(a), newVersionCmd())
	return root
}

// setup resolves configuration, logging and metrics before a subcommand runs.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "version" {
		return nil
	}
	v, err := loadConfig(cmd, a.configFile)
	if err != nil {
		return err
	}
	if a.cfg, err = resolveSettings(v); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if a.log, err = setupLogging(a.cfg.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if a.monitor, err = clp.NewMonitor("clpsolve"); err != nil {
		return fmt.Errorf("create monitor: %w", err)
	}
	a.log.Debug().Str("backing", a.cfg.Backing.String()).Int("max_solutions", a.cfg.MaxSolutions).
		Dur("timeout", a.cfg.Timeout).Msg("configuration loaded")
	return nil
}

// finish writes the metrics file if one is configured.
func (a *app) finish(cmd *cobra.Command, _ []string) error {
	if a.monitor == nil || a.cfg.MetricsFile == "" {
		return nil
	}
	if err := a.monitor.WriteToTextfile(a.cfg.MetricsFile); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	a.log.Debug().Str("path", a.cfg.MetricsFile).Msg("metrics written")
	return nil
}

func (a *app) options() problem.Options {
	return problem.Options{
		Logger:              a.log,
		Monitor:             a.monitor,
		MaxSolutions:        a.cfg.MaxSolutions,
		Backing:             a.cfg.Backing,
		MaxPropagationSteps: a.cfg.MaxSteps,
	}
}

// context applies the configured timeout to the command's context.
func (a *app) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	if a.cfg.Timeout > 0 {
		return context.WithTimeout(cmd.Context(), a.cfg.Timeout)
	}
	return context.WithCancel(cmd.Context())
}
