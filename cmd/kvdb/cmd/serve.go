/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ssargent/kvdb/pkg/api"
	"github.com/ssargent/kvdb/pkg/log"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the KVDB REST API server. Requests are authenticated with the
X-API-Key header when an API key is configured. The server stops gracefully
on SIGINT or SIGTERM.

Examples:
  kvdb serve
  kvdb serve --api-key=mysecretkey --port=9000
  kvdb serve --config ./kvdb.yaml --bind 0.0.0.0`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		serverConfig := serverConfigFromFlags(cmd)

		if container == nil {
			return errors.New("dependency container not initialized")
		}

		kv, _, err := openStore()
		if err != nil {
			return err
		}
		defer kv.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.CLI.Info().
			Str("bind", serverConfig.Bind).
			Int("port", serverConfig.Port).
			Str("path", kv.Path()).
			Msg("starting KVDB server")

		serverStarter := container.GetServerFactory().CreateServerStarter()
		if err := serverStarter.StartServer(ctx, kv, serverConfig); err != nil {
			return fmt.Errorf("error starting server: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	serveCmd.Flags().String("bind", "127.0.0.1", "Address to bind server to")
	serveCmd.Flags().String("api-key", "", "API key for client authentication")
}

// serverConfigFromFlags takes the server settings from config and lets
// explicitly set flags override them
func serverConfigFromFlags(cmd *cobra.Command) api.ServerConfig {
	cfg := api.ServerConfig{
		Bind:   settings.Server.Bind,
		Port:   settings.Server.Port,
		APIKey: settings.Server.APIKey,
	}
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("bind") {
		cfg.Bind, _ = cmd.Flags().GetString("bind")
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey, _ = cmd.Flags().GetString("api-key")
	}
	return cfg
}
