package usage

import (
	"context"
	"time"
)

// Event is one metered request made with an API key.
type Event struct {
	APIKeyID      int64
	Route         string
	Method        string
	BytesSent     int64
	BytesReceived int64
	StatusCode    int
	DurationMS    int64
	CreatedAt     time.Time
}

// Summary aggregates a key's events over a period.
type Summary struct {
	Requests      int64
	BytesSent     int64
	BytesReceived int64
}

// Store persists usage events.
type Store interface {
	// Insert writes events in a single transaction.
	Insert(ctx context.Context, events []Event) error

	// DeleteBefore removes events created before cutoff and returns how
	// many were removed.
	DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Summarize aggregates the key's events created at or after since.
	Summarize(ctx context.Context, apiKeyID int64, since time.Time) (Summary, error)
}

// Observer receives recorder and pruner measurements.
type Observer interface {
	RecordUsageEvent(result string)
	UpdateUsageQueueDepth(depth int)
	RecordUsagePruned(n int64)
}

// Event results reported to the Observer.
const (
	ResultWritten = "written"
	ResultDropped = "dropped"
	ResultFailed  = "failed"
)
