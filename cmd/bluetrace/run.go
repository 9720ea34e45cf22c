package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"bluetrace-hq/gateway/pkg/cli"
	"bluetrace-hq/gateway/pkg/config"
	"bluetrace-hq/gateway/pkg/datasets"
	"bluetrace-hq/gateway/pkg/ingest"
	"bluetrace-hq/gateway/pkg/keystore"
	"bluetrace-hq/gateway/pkg/limits"
	"bluetrace-hq/gateway/pkg/limits/ratelimit"
	"bluetrace-hq/gateway/pkg/limits/storage"
	"bluetrace-hq/gateway/pkg/server"
	"bluetrace-hq/gateway/pkg/telemetry/health"
	"bluetrace-hq/gateway/pkg/telemetry/metrics"
	"bluetrace-hq/gateway/pkg/usage"
)

var runFlags struct {
	listenAddress string
	noWatch       bool
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the BlueTrace API server",
	Long: `Start the BlueTrace API server with the specified configuration.

The config file is watched while the server runs; plan limits, the admin
email, billing settings and the rate limit failure policy follow edits
without a restart.

Examples:
  # Start with default config
  bluetrace run

  # Start with custom config
  bluetrace run --config /etc/bluetrace/config.yaml

  # Override listen address
  bluetrace run --listen 0.0.0.0:8080

  # Validate config and connectivity without serving
  bluetrace run --dry-run`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().BoolVar(&runFlags.noWatch, "no-watch", false, "do not reload the config file on change")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "open every store and exit without serving")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// The published snapshot is shared; overrides go on a copy used only
	// for startup settings.
	startup := *cfg
	if runFlags.listenAddress != "" {
		startup.Server.ListenAddress = runFlags.listenAddress
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "BlueTrace v%s\n", Version)

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer db.Close()
	fmt.Fprintf(out, "✓ Database connected (%s)\n", db.Dialect())

	keys, err := keystore.NewSQLStore(ctx, db, cfg.Database.QueryTimeout)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
	limitMetrics := limits.NewMetrics(collector.Registry())
	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck(health.CheckDatabase, db.Ping)

	backend, err := newBackend(cfg)
	if err != nil {
		return cli.NewConfigError("redis.url", err)
	}
	limiter := ratelimit.NewSlidingWindowLimiter(backend, ratelimit.Config{
		StoreTimeout: cfg.RateLimits.StoreTimeout,
		KeyPrefix:    cfg.RateLimits.KeyPrefix,
		FailOpen:     cfg.RateLimits.FailOpen(),
	}, limitMetrics)
	defer limiter.Shutdown(context.Background())

	if err := limiter.Init(ctx); err != nil {
		if !cfg.RateLimits.FailOpen() {
			return cli.NewCommandError("run", fmt.Errorf("rate limit store unavailable: %w", err))
		}
		slog.Warn("rate limit store unavailable, admitting requests until it recovers",
			"backend", cfg.RateLimits.Backend,
			"error", err,
		)
	} else {
		fmt.Fprintf(out, "✓ Rate limit store ready (%s)\n", cfg.RateLimits.Backend)
	}
	checker.RegisterCheck(health.CheckRedis, backend.Ping)
	config.OnReload(func(c *config.Config) {
		limiter.SetFailOpen(c.RateLimits.FailOpen())
	})

	if runFlags.dryRun {
		fmt.Fprintln(out, "✓ Configuration valid")
		return nil
	}

	usageStore := usage.NewSQLStore(db, cfg.Database.QueryTimeout)
	recorder := usage.NewRecorder(usageStore, usage.RecorderConfigFrom(cfg.Usage), collector)
	defer recorder.Close()

	scheduler := usage.NewScheduler(usage.NewPruner(usageStore, cfg.Usage.RetentionDays, collector), cfg.Usage.PruneSchedule)
	if err := scheduler.Start(ctx); err != nil {
		return cli.NewConfigError("usage.prune_schedule", err)
	}
	defer scheduler.Stop()
	if next := scheduler.NextRun(); next != nil {
		slog.Info("usage pruning scheduled", "next_run", next.Format(time.RFC3339))
	}

	repo := datasets.NewRepository(db, cfg.Database.QueryTimeout)
	ingestScheduler := ingest.NewScheduler(newRegistry(cfg, repo), cfg.Ingest.Schedule)
	if err := ingestScheduler.Start(ctx); err != nil {
		return cli.NewConfigError("ingest.schedule", err)
	}
	defer ingestScheduler.Stop()

	srv, err := server.New(&startup, server.Dependencies{
		Keys:         keys,
		Datasets:     repo,
		Limiter:      limiter,
		Recorder:     recorder,
		Collector:    collector,
		LimitMetrics: limitMetrics,
		Health:       checker,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})

	if path := configPath(); path != "" && !runFlags.noWatch {
		watcher, err := config.NewWatcher(path, 0)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		g.Go(func() error {
			return watcher.Watch(gctx)
		})
	}

	fmt.Fprintf(out, "✓ Server listening on %s\n", startup.Server.ListenAddress)
	fmt.Fprintf(out, "✓ Health endpoint: http://%s/v1/health\n", startup.Server.ListenAddress)
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	if err := g.Wait(); err != nil {
		return cli.NewCommandError("run", err)
	}
	fmt.Fprintln(out, "✓ Server stopped")
	return nil
}

// newBackend builds the bucket store selected by rate_limits.backend.
func newBackend(cfg *config.Config) (storage.Backend, error) {
	if cfg.RateLimits.Backend == "memory" {
		slog.Warn("using in-memory rate limit buckets; limits are not shared between instances")
		return storage.NewMemoryBackend(), nil
	}
	client, err := storage.NewRedisClient(cfg.Redis)
	if err != nil {
		return nil, err
	}
	return storage.NewRedisBackend(client), nil
}
