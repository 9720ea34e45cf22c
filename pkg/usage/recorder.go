package usage

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"bluetrace-hq/gateway/pkg/config"
)

// ErrDropped is returned when an event could not be enqueued.
var ErrDropped = errors.New("usage event dropped")

// maxBatch bounds how many queued events one transaction writes.
const maxBatch = 100

// RecorderConfig contains configuration for the usage recorder.
type RecorderConfig struct {
	// Enabled enables usage recording.
	Enabled bool

	// AsyncBuffer is the size of the async write channel buffer.
	// Default: 1000
	AsyncBuffer int

	// WriteTimeout is how long Record waits on a full buffer before
	// dropping the event.
	// Default: 100ms
	WriteTimeout time.Duration
}

// RecorderConfigFrom builds a RecorderConfig from the usage config section.
func RecorderConfigFrom(cfg config.UsageConfig) RecorderConfig {
	return RecorderConfig{
		Enabled:      cfg.IsEnabled(),
		AsyncBuffer:  cfg.AsyncBuffer,
		WriteTimeout: cfg.WriteTimeout,
	}
}

// Recorder writes usage events asynchronously so metering never blocks a
// request on the database.
type Recorder struct {
	store    Store
	config   RecorderConfig
	events   chan Event
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
	observer Observer
	logger   *slog.Logger
}

// NewRecorder creates a recorder and starts its background writer.
func NewRecorder(store Store, cfg RecorderConfig, observer Observer) *Recorder {
	if cfg.AsyncBuffer <= 0 {
		cfg.AsyncBuffer = config.DefaultUsageAsyncBuffer
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = config.DefaultUsageWriteTimeout
	}

	r := &Recorder{
		store:    store,
		config:   cfg,
		events:   make(chan Event, cfg.AsyncBuffer),
		done:     make(chan struct{}),
		observer: observer,
		logger:   slog.Default().With("component", "usage.recorder"),
	}

	r.wg.Add(1)
	go r.worker()

	r.logger.Info("usage recorder initialized",
		"enabled", cfg.Enabled,
		"async_buffer", cfg.AsyncBuffer,
		"write_timeout", cfg.WriteTimeout,
	)
	return r
}

// Record enqueues ev for writing. It returns immediately unless the buffer
// is full, in which case it waits up to WriteTimeout and then drops ev.
func (r *Recorder) Record(ctx context.Context, ev Event) error {
	if !r.config.Enabled {
		return nil
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}

	select {
	case <-r.done:
		return r.drop(ctx, ev, "recorder closed")
	default:
	}

	timer := time.NewTimer(r.config.WriteTimeout)
	defer timer.Stop()

	select {
	case r.events <- ev:
		r.reportDepth()
		return nil
	case <-timer.C:
		return r.drop(ctx, ev, "usage buffer full")
	case <-r.done:
		return r.drop(ctx, ev, "recorder closed")
	}
}

// Close stops accepting events, drains the buffer and waits for the
// writer to finish.
func (r *Recorder) Close() error {
	r.once.Do(func() {
		r.logger.Info("shutting down usage recorder")
		close(r.done)
		r.wg.Wait()
		r.logger.Info("usage recorder shut down complete")
	})
	return nil
}

func (r *Recorder) worker() {
	defer r.wg.Done()

	for {
		select {
		case ev := <-r.events:
			r.write(r.batch(ev))
		case <-r.done:
			// Drain remaining events before exit.
			for {
				select {
				case ev := <-r.events:
					r.write(r.batch(ev))
				default:
					return
				}
			}
		}
	}
}

// batch collects first plus whatever else is already queued.
func (r *Recorder) batch(first Event) []Event {
	batch := []Event{first}
	for len(batch) < maxBatch {
		select {
		case ev := <-r.events:
			batch = append(batch, ev)
		default:
			return batch
		}
	}
	return batch
}

func (r *Recorder) write(batch []Event) {
	defer r.reportDepth()

	if err := r.store.Insert(context.Background(), batch); err != nil {
		r.logger.Error("failed to write usage events",
			"error", err,
			"count", len(batch),
		)
		for range batch {
			r.observe(ResultFailed)
		}
		return
	}
	for range batch {
		r.observe(ResultWritten)
	}
}

func (r *Recorder) drop(ctx context.Context, ev Event, reason string) error {
	r.logger.WarnContext(ctx, "dropping usage event",
		"reason", reason,
		"api_key_id", ev.APIKeyID,
		"route", ev.Route,
		"channel_capacity", r.config.AsyncBuffer,
	)
	r.observe(ResultDropped)
	return ErrDropped
}

func (r *Recorder) observe(result string) {
	if r.observer != nil {
		r.observer.RecordUsageEvent(result)
	}
}

func (r *Recorder) reportDepth() {
	if r.observer != nil {
		r.observer.UpdateUsageQueueDepth(len(r.events))
	}
}
