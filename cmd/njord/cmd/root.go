package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/njordb/njord/pkg/config"
	"github.com/njordb/njord/pkg/kv"
)

// ctxKey keys values stashed in the command context.
type ctxKey string

const storeKey ctxKey = "store"
const configKey ctxKey = "config"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "njord",
	Short: "njord - typed buckets over embedded KV engines",
	Long: `njord gives typed, named-bucket access to an embedded ordered
key-value engine (pebble, badger or bolt).`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init only writes the config file; it must not open the store.
		if cmd.Name() == "init" {
			return nil
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		setupLogging(cfg.Logging.Level)

		store, err := kv.Open(cfg)
		if err != nil {
			return fmt.Errorf("failed to open store: %w", err)
		}

		ctx := context.WithValue(cmd.Context(), storeKey, store)
		ctx = context.WithValue(ctx, configKey, cfg)
		cmd.SetContext(ctx)
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		store, ok := cmd.Context().Value(storeKey).(*kv.Store)
		if !ok {
			return nil
		}
		return store.Close()
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
	rootCmd.PersistentFlags().StringP("config", "c", "", "Config file (default: "+config.GetDefaultConfigPath()+")")
	rootCmd.PersistentFlags().StringP("data-dir", "d", "", "Data directory for the store")
	rootCmd.PersistentFlags().StringP("engine", "e", "", "Storage engine: pebble, badger or bolt")
}

// loadConfig resolves the effective configuration: the config file when one
// exists, defaults otherwise, with flags overriding either.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath == "" {
		configPath = config.GetDefaultConfigPath()
	}

	cfg := config.DefaultConfig()
	if config.ConfigExists(configPath) {
		loaded, err := config.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if dataDir, _ := cmd.Flags().GetString("data-dir"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if engine, _ := cmd.Flags().GetString("engine"); engine != "" {
		cfg.Engine = engine
	}
	return cfg, nil
}

// storeFromContext fetches the store opened by the root command.
func storeFromContext(cmd *cobra.Command) (*kv.Store, bool) {
	store, ok := cmd.Context().Value(storeKey).(*kv.Store)
	return store, ok
}

func configFromContext(cmd *cobra.Command) (*config.Config, bool) {
	cfg, ok := cmd.Context().Value(configKey).(*config.Config)
	return cfg, ok
}

func setupLogging(level string) {
	var l slog.Level
	switch strings.ToLower(level) {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: l})))
}
