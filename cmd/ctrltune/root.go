package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"ctrltune/internal/api"
	"ctrltune/internal/buildinfo"
	"ctrltune/internal/cache"
	"ctrltune/internal/config"
	"ctrltune/internal/opt"
)

var (
	// CLI flags shared by every subcommand
	configPath string // YAML config file; falls back to CTRLTUNE_CONFIG
	logLevel   string // Log verbosity level
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:           "ctrltune",
	Short:         "Tune series/sep-ex motor controller functions for low-speed EVs",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// versionCmd prints build metadata
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Println(buildinfo.String())
	},
}

// loadConfig resolves the config file and configures the process logger.
func loadConfig() (config.Config, *logrus.Logger, error) {
	path := configPath
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, err
	}
	if logLevel != "" {
		if _, err := logrus.ParseLevel(logLevel); err != nil {
			return config.Config{}, nil, fmt.Errorf("invalid log level: %s", logLevel)
		}
		cfg.Log.Level = logLevel
	}
	return cfg, cfg.Logger(), nil
}

// newCache builds a scenario cache from the config's cache section.
func newCache(cfg config.Config, log logrus.FieldLogger) *cache.Cache {
	return cache.New(opt.New().WithLogger(log), api.CacheOptions(cfg.Cache, log)...)
}

// Execute runs the CLI root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		printError(err)
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "warn", "Log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(optimizeCmd, lookupCmd, scenariosCmd, presetsCmd, versionCmd)
}
