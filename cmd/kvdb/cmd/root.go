/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ssargent/kvdb/pkg/config"
	"github.com/ssargent/kvdb/pkg/di"
	"github.com/ssargent/kvdb/pkg/log"
	"github.com/ssargent/kvdb/pkg/store"
)

var (
	container *di.Container

	// settings is the configuration resolved for the running command
	settings = config.DefaultConfig()

	// logOutput receives log lines; nil means stderr
	logOutput io.Writer
)

// SetContainer injects the dependency container used by commands
func SetContainer(c *di.Container) {
	container = c
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kvdb",
	Short: "KVDB - durable single-file key-value store",
	Long: `KVDB keeps a key-value map in one append-only log file. Every write is
synced before it is acknowledged, and a torn or damaged tail is cut away
the next time the store is opened.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		settings = cfg
		return initLogging(cfg)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("db", "", "Path to the log file (default from config, ./data/kvdb.log)")
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default: OS-specific location)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: trace, debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: console or json")
}

// loadSettings reads the config file, if there is one, and applies flag
// overrides on top of it
func loadSettings(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg := config.DefaultConfig()
	switch {
	case configPath != "":
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	case config.ConfigExists(config.GetDefaultConfigPath()):
		loaded, err := config.LoadConfig(config.GetDefaultConfigPath())
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("db") {
		cfg.Path, _ = cmd.Flags().GetString("db")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level, _ = cmd.Flags().GetString("log-level")
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Logging.Format, _ = cmd.Flags().GetString("log-format")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func initLogging(cfg *config.Config) error {
	level, err := log.ParseLogLevel(cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	typ, err := log.ParseLoggerType(cfg.Logging.Format)
	if err != nil {
		return err
	}

	log.Init(log.Options{LogLevel: level, Type: typ, Output: logOutput})
	return nil
}

// openStore opens the configured store and logs any recovery.
// Callers must Close the store.
func openStore() (*store.KVStore, *store.RecoveryResult, error) {
	kv, err := store.NewKVStore(store.KVStoreConfig{Path: settings.Path})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create store: %w", err)
	}

	result, err := kv.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open store: %w", err)
	}

	if result.Recovered() {
		log.CLI.Warn().
			AnErr("corruption", result.Corruption).
			Int64("truncated_bytes", result.TruncatedBytes).
			Str("discarded", result.DiscardedPath).
			Msg("recovered from corruption")
	}

	return kv, result, nil
}
