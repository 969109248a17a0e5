/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ssargent/kvdb/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with a generated API key",
	Long: `Create a KVDB configuration file with defaults and a freshly generated
API key for the REST server.

Examples:
  kvdb init
  kvdb init --config ./kvdb.yaml --db ./data/app.log
  kvdb init --force --print-key`,
	Args: cobra.NoArgs,
	// The config file does not exist yet, so only logging is set up
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging(config.DefaultConfig())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dbPath, _ := cmd.Flags().GetString("db")
		force, _ := cmd.Flags().GetBool("force")
		printKey, _ := cmd.Flags().GetBool("print-key")

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		if config.ConfigExists(configPath) && !force {
			return fmt.Errorf("config already exists at %s, use --force to overwrite", configPath)
		}

		cfg, err := config.BootstrapConfig(configPath, dbPath)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration created at %s\n", configPath)
		fmt.Fprintf(out, "Log file: %s\n", cfg.Path)
		if printKey {
			fmt.Fprintf(out, "API key: %s\n", cfg.Server.APIKey)
		} else {
			fmt.Fprintf(out, "API key saved in %s\n", configPath)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	initCmd.Flags().Bool("print-key", false, "Print the generated API key")
}
