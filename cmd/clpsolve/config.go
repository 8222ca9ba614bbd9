package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gitrdm/gokanclp/pkg/clp"
)

const (
	configFileName = "clpsolve"
	configFileType = "yaml"
	envPrefix      = "CLPSOLVE"

	cfgKeyLogLevel     = "log_level"
	cfgKeyMaxSolutions = "max_solutions"
	cfgKeyTimeout      = "timeout"
	cfgKeyBacking      = "backing"
	cfgKeyWorkers      = "workers"
	cfgKeyMetricsFile  = "metrics_file"
	cfgKeyFormat       = "format"
	cfgKeyMaxSteps     = "max_propagation_steps"
)

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"log-level":     cfgKeyLogLevel,
	"max-solutions": cfgKeyMaxSolutions,
	"timeout":       cfgKeyTimeout,
	"backing":       cfgKeyBacking,
	"workers":       cfgKeyWorkers,
	"metrics-file":  cfgKeyMetricsFile,
	"format":        cfgKeyFormat,
	"max-steps":     cfgKeyMaxSteps,
}

// settings is the resolved configuration: flag > env > config file > default.
type settings struct {
	LogLevel     string
	MaxSolutions int
	Timeout      time.Duration
	Backing      clp.Backing
	Workers      int
	MetricsFile  string
	Format       string
	MaxSteps     int
}

// loadConfig reads clpsolve.yaml (or the file named by --config) and binds
// the CLPSOLVE_* environment and the command's flags on top. A missing
// default config file is not an error; a missing explicit one is.
func loadConfig(cmd *cobra.Command, configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyLogLevel, "info")
	v.SetDefault(cfgKeyMaxSolutions, 0)
	v.SetDefault(cfgKeyTimeout, time.Duration(0))
	v.SetDefault(cfgKeyBacking, clp.BackingArray.String())
	v.SetDefault(cfgKeyWorkers, 0)
	v.SetDefault(cfgKeyFormat, "text")
	v.SetDefault(cfgKeyMaxSteps, 0)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(configFileName)
		v.SetConfigType(configFileType)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	for name, key := range flagKeys {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}
	return v, nil
}

func resolveSettings(v *viper.Viper) (settings, error) {
	s := settings{
		LogLevel:     v.GetString(cfgKeyLogLevel),
		MaxSolutions: v.GetInt(cfgKeyMaxSolutions),
		Timeout:      v.GetDuration(cfgKeyTimeout),
		Workers:      v.GetInt(cfgKeyWorkers),
		MetricsFile:  v.GetString(cfgKeyMetricsFile),
		Format:       v.GetString(cfgKeyFormat),
		MaxSteps:     v.GetInt(cfgKeyMaxSteps),
	}
	b, err := clp.ParseBacking(v.GetString(cfgKeyBacking))
	if err != nil {
		return s, err
	}
	s.Backing = b
	if s.MaxSolutions < 0 {
		return s, fmt.Errorf("%s must not be negative", cfgKeyMaxSolutions)
	}
	if s.Timeout < 0 {
		return s, fmt.Errorf("%s must not be negative", cfgKeyTimeout)
	}
	switch s.Format {
	case "text", "yaml", "json":
	default:
		return s, fmt.Errorf("unknown output format %q", s.Format)
	}
	return s, nil
}
