package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"bluetrace-hq/gateway/pkg/cli"
	"bluetrace-hq/gateway/pkg/config"
	"bluetrace-hq/gateway/pkg/database"
	"bluetrace-hq/gateway/pkg/keystore"
	"bluetrace-hq/gateway/pkg/telemetry/logging"
)

const defaultConfigFile = "config.yaml"

var (
	// Global flags
	cfgFile string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "bluetrace",
	Short: "BlueTrace - metered API gateway for marine datasets",
	Long: `BlueTrace serves ocean observation datasets behind API keys.

It provides:
  - API key issuance, hashing and revocation
  - Per-plan sliding-window rate limits backed by Redis
  - Usage metering and retention
  - Plan reconciliation from billing webhooks
  - Tides, SST, currents, turbidity and bathymetry endpoints`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
// Every command runs under a context cancelled on SIGINT or SIGTERM.
func Execute() {
	ctx, stop := cli.SetupSignalHandler(context.Background())
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigFile, "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// configPath returns the file to load. A missing default config file
// falls back to defaults plus BLUETRACE_* environment overrides.
func configPath() string {
	if cfgFile != defaultConfigFile {
		return cfgFile
	}
	if _, err := os.Stat(cfgFile); errors.Is(err, fs.ErrNotExist) {
		return ""
	}
	return cfgFile
}

// loadConfig loads the env file and configuration, publishes the snapshot
// and installs the process logger.
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, cli.NewConfigError("env-file", err)
	}
	if err := config.Initialize(configPath()); err != nil {
		return nil, cli.NewConfigError("", err)
	}
	cfg := config.MustGetConfig()

	logCfg := logging.ConfigFrom(cfg.Telemetry.Logging)
	if verbose {
		logCfg.Level = "debug"
	}
	logCfg.Writer = os.Stderr
	if _, err := logging.Setup(logCfg); err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err)
	}
	return cfg, nil
}

// openDatabase connects to the durable store and migrates it when
// auto_migrate is enabled.
func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Database.IsAutoMigrate() {
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}
	return db, nil
}

// openKeyStore opens the database and a key store on it. Closing the
// returned database releases both.
func openKeyStore(ctx context.Context, cfg *config.Config) (*database.DB, *keystore.SQLStore, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	keys, err := keystore.NewSQLStore(ctx, db, cfg.Database.QueryTimeout)
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	slog.Debug("key store opened", "driver", cfg.Database.Driver)
	return db, keys, nil
}
