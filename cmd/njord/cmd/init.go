package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/njordb/njord/pkg/config"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration file",
	Long: `Write a configuration file with defaults and a freshly generated
API key.

Examples:
  njord init
  njord init --config ./njord.yaml --data-dir ./data`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		dataDir, _ := cmd.Flags().GetString("data-dir")
		force, _ := cmd.Flags().GetBool("force")

		if configPath == "" {
			configPath = config.GetDefaultConfigPath()
		}

		if config.ConfigExists(configPath) && !force {
			return fmt.Errorf("config already exists at %s; use --force to overwrite", configPath)
		}

		cfg, err := config.BootstrapConfig(configPath, dataDir)
		if err != nil {
			return err
		}

		cmd.Printf("Wrote config to %s\n", configPath)
		cmd.Printf("Data directory: %s\n", cfg.DataDir)
		cmd.Printf("Engine: %s\n", cfg.Engine)
		cmd.Printf("API key: %s\n", cfg.API.APIKey)
		return nil
	},
}

func init() {
	initCmd.Flags().Bool("force", false, "Overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
