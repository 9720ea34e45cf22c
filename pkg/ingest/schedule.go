package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler runs every job of a Registry on a cron schedule. A run that
// is still going when the next tick fires is skipped.
type Scheduler struct {
	registry *Registry
	schedule string
	cron     *cron.Cron
	mu       sync.Mutex
	running  bool
	logger   *slog.Logger
}

// NewScheduler creates a scheduler for registry on schedule, a standard
// five-field cron expression.
func NewScheduler(registry *Registry, schedule string) *Scheduler {
	logger := slog.Default().With("component", "ingest.scheduler")
	return &Scheduler{
		registry: registry,
		schedule: schedule,
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))),
		)),
		logger: logger,
	}
}

// Start schedules runs until ctx is cancelled or Stop is called. An empty
// schedule makes Start a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("ingest schedule not configured, skipping scheduler")
		return nil
	}
	if _, err := s.cron.AddFunc(s.schedule, func() { s.run(ctx) }); err != nil {
		return fmt.Errorf("invalid ingest schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info("ingest scheduler started", "schedule", s.schedule, "jobs", s.registry.Names())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

func (s *Scheduler) run(ctx context.Context) {
	results, err := s.registry.Run(ctx)
	if err != nil {
		s.logger.Error("scheduled ingestion failed", "error", err)
	}
	var inserted int64
	for _, r := range results {
		inserted += r.Inserted
	}
	s.logger.Info("scheduled ingestion finished", "jobs", len(results), "inserted", inserted)
}

// Stop stops the scheduler and waits for a running ingestion to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		<-s.cron.Stop().Done()
		s.running = false
		s.logger.Info("ingest scheduler stopped")
	}
}

// IsRunning reports whether the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
