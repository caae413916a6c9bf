package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/njordb/njord/pkg/api"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long: `Start the njord REST API server over the configured store.

The API key comes from the config file (written by 'njord init') unless
overridden with --api-key.

Examples:
  njord serve
  njord serve --api-key=mysecretkey --port=9311`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, ok := storeFromContext(cmd)
		if !ok {
			return fmt.Errorf("store not found in context")
		}
		cfg, ok := configFromContext(cmd)
		if !ok {
			return fmt.Errorf("config not found in context")
		}

		serverConfig := api.ServerConfig{
			Bind:   cfg.API.Bind,
			Port:   cfg.API.Port,
			APIKey: cfg.API.APIKey,
		}
		if port, _ := cmd.Flags().GetInt("port"); port != 0 {
			serverConfig.Port = port
		}
		if apiKey, _ := cmd.Flags().GetString("api-key"); apiKey != "" {
			serverConfig.APIKey = apiKey
		}

		if serverConfig.APIKey == "" {
			return fmt.Errorf("an API key is required; run 'njord init' or pass --api-key")
		}

		return api.StartServer(store, serverConfig)
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "Port for the API server (default from config)")
	serveCmd.Flags().String("api-key", "", "API key for authentication (default from config)")
	rootCmd.AddCommand(serveCmd)
}
