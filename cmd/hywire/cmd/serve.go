/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ndegiovanni/hywire/pkg/api"
	"github.com/ndegiovanni/hywire/pkg/capture"
	"github.com/ndegiovanni/hywire/pkg/config"
	"github.com/ndegiovanni/hywire/pkg/protocol"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the inspection API server",
	Long: `Start the hywire inspection API server.

The server validates and decodes protocol messages submitted over HTTP and
exposes the schema registry and Prometheus metrics.

Examples:
  hywire serve --api-key=mysecretkey --port=9310
  hywire serve --config=./hywire.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.DefaultConfig()
		if path, _ := cmd.Flags().GetString("config"); path != "" {
			loaded, err := config.LoadConfig(path)
			if err != nil {
				cmd.Printf("Error loading config: %v\n", err)
				return
			}
			cfg = loaded
		}
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			cfg.Port = port
		}
		if key, _ := cmd.Flags().GetString("api-key"); key != "" {
			cfg.APIKey = key
		}
		if cfg.APIKey == "" || cfg.APIKey == "auto" {
			key, err := config.GenerateAPIKey(32)
			if err != nil {
				cmd.Printf("Error generating API key: %v\n", err)
				return
			}
			cfg.APIKey = key
			fmt.Printf("Generated API key: %s\n", key)
		}

		store, err := captureStoreFromConfig(cfg)
		if err != nil {
			cmd.Printf("Error opening capture store: %v\n", err)
			return
		}
		if store != nil {
			defer store.Close()
			fmt.Printf("Capturing decoded messages to %s\n", cfg.Capture.Path)
		}

		serverConfig := api.ServerConfig{
			Port:   cfg.Port,
			Bind:   cfg.Bind,
			APIKey: cfg.APIKey,
		}
		if err := api.StartServer(protocol.NewRegistry(), serverConfig, store); err != nil {
			cmd.Printf("Error starting server: %v\n", err)
		}
	},
}

// captureStoreFromConfig opens the configured capture store, or returns nil
// when capture is disabled.
func captureStoreFromConfig(cfg *config.Config) (*capture.Store, error) {
	if !cfg.Capture.Enabled {
		return nil, nil
	}
	return capture.Open(cfg.Capture.Path)
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides config)")
	serveCmd.Flags().String("api-key", "", "API key for protected routes (overrides config)")
}
