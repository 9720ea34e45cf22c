package usage

import (
	"context"
	"fmt"
	"time"

	"bluetrace-hq/gateway/pkg/database"
)

// SQLStore implements Store on the durable database.
type SQLStore struct {
	db      *database.DB
	timeout time.Duration

	insertQuery    string
	deleteQuery    string
	summarizeQuery string
}

// NewSQLStore creates a usage store on db. The schema must already exist.
func NewSQLStore(db *database.DB, timeout time.Duration) *SQLStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &SQLStore{
		db:      db,
		timeout: timeout,
		insertQuery: db.Rebind(`INSERT INTO usage_events
			(api_key_id, route, method, bytes_sent, bytes_received, status_code, duration_ms, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		deleteQuery: db.Rebind(`DELETE FROM usage_events WHERE created_at < ?`),
		summarizeQuery: db.Rebind(`SELECT COUNT(*), COALESCE(SUM(bytes_sent), 0), COALESCE(SUM(bytes_received), 0)
			FROM usage_events WHERE api_key_id = ? AND created_at >= ?`),
	}
}

// Insert writes events in one transaction.
func (s *SQLStore) Insert(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin usage transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, s.insertQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare usage insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.ExecContext(ctx,
			e.APIKeyID, e.Route, e.Method, e.BytesSent, e.BytesReceived,
			e.StatusCode, e.DurationMS, e.CreatedAt.UTC(),
		); err != nil {
			return fmt.Errorf("failed to insert usage event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit usage events: %w", err)
	}
	return nil
}

// DeleteBefore removes events older than cutoff.
func (s *SQLStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, s.deleteQuery, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete usage events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted usage events: %w", err)
	}
	return n, nil
}

// Summarize aggregates the key's events since the given time.
func (s *SQLStore) Summarize(ctx context.Context, apiKeyID int64, since time.Time) (Summary, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var sum Summary
	err := s.db.QueryRowContext(ctx, s.summarizeQuery, apiKeyID, since.UTC()).
		Scan(&sum.Requests, &sum.BytesSent, &sum.BytesReceived)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to summarize usage: %w", err)
	}
	return sum, nil
}
