package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"
)

// Run drives ing through fetch, transform and upsert.
func Run[R, T any](ctx context.Context, ing Ingester[R, T]) (Result, error) {
	logger := slog.Default().With("component", "ingest", "ingester", ing.Name())
	start := time.Now()
	res := Result{Name: ing.Name()}

	logger.InfoContext(ctx, "ingestion started")

	raw, err := ing.Fetch(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "ingestion failed", "stage", "fetch", "error", err)
		return res, fmt.Errorf("%s: fetch failed: %w", ing.Name(), err)
	}

	records, err := ing.Transform(raw)
	if err != nil {
		logger.ErrorContext(ctx, "ingestion failed", "stage", "transform", "error", err)
		return res, fmt.Errorf("%s: transform failed: %w", ing.Name(), err)
	}
	res.Transformed = len(records)
	logger.DebugContext(ctx, "records transformed", "count", len(records))

	inserted, err := ing.Upsert(ctx, records)
	if err != nil {
		logger.ErrorContext(ctx, "ingestion failed", "stage", "upsert", "error", err)
		return res, fmt.Errorf("%s: upsert failed: %w", ing.Name(), err)
	}
	res.Inserted = inserted
	res.Duration = time.Since(start)

	logger.InfoContext(ctx, "ingestion completed",
		"transformed", res.Transformed,
		"inserted", res.Inserted,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

type job[R, T any] struct {
	ing Ingester[R, T]
}

// AsJob wraps ing so it can be registered.
func AsJob[R, T any](ing Ingester[R, T]) Job {
	return job[R, T]{ing: ing}
}

func (j job[R, T]) Name() string { return j.ing.Name() }

func (j job[R, T]) Run(ctx context.Context) (Result, error) { return Run(ctx, j.ing) }

// Registry holds jobs by name.
type Registry struct {
	jobs map[string]Job
}

// NewRegistry creates a registry holding jobs.
func NewRegistry(jobs ...Job) *Registry {
	r := &Registry{jobs: make(map[string]Job, len(jobs))}
	for _, j := range jobs {
		r.jobs[j.Name()] = j
	}
	return r
}

// Names returns the registered job names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for name := range r.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run runs the named jobs in order, or every job when names is empty.
// Unknown names fail before anything runs. A failing job does not stop
// the ones after it; the first error is returned.
func (r *Registry) Run(ctx context.Context, names ...string) ([]Result, error) {
	if len(names) == 0 {
		names = r.Names()
	}
	for _, name := range names {
		if _, ok := r.jobs[name]; !ok {
			return nil, fmt.Errorf("unknown ingester %q (available: %v)", name, r.Names())
		}
	}

	var (
		results  []Result
		firstErr error
	)
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := r.jobs[name].Run(ctx)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		results = append(results, res)
	}
	return results, firstErr
}
