package usage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"bluetrace-hq/gateway/pkg/config"
	"bluetrace-hq/gateway/pkg/database"
)

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "usage.db"),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	// usage_events references api_keys.
	_, err = db.ExecContext(ctx, `INSERT INTO api_keys (id, name, key_hash, prefix, owner_email, plan, created_at)
		VALUES (1, 'k', 'h1', 'bt_sk_aaaaaaaa', 'a@b.io', 'free', ?)`, time.Now().UTC())
	if err != nil {
		t.Fatalf("failed to insert key: %v", err)
	}

	return NewSQLStore(db, time.Second)
}

// stores runs fn against every Store implementation.
func stores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("sql", func(t *testing.T) { fn(t, newTestSQLStore(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
}

func TestStore_InsertAndSummarize(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		now := time.Now().UTC()

		events := []Event{
			{APIKeyID: 1, Route: "/v1/tides", Method: "GET", BytesSent: 100, StatusCode: 200, CreatedAt: now.Add(-2 * time.Hour)},
			{APIKeyID: 1, Route: "/v1/sst", Method: "GET", BytesSent: 50, BytesReceived: 5, StatusCode: 200, CreatedAt: now.Add(-time.Minute)},
			{APIKeyID: 1, Route: "/v1/sst", Method: "GET", BytesSent: 25, StatusCode: 429, CreatedAt: now},
		}
		if err := s.Insert(ctx, events); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		sum, err := s.Summarize(ctx, 1, now.Add(-time.Hour))
		if err != nil {
			t.Fatalf("Summarize failed: %v", err)
		}
		if sum.Requests != 2 {
			t.Errorf("expected 2 requests, got %d", sum.Requests)
		}
		if sum.BytesSent != 75 {
			t.Errorf("expected 75 bytes sent, got %d", sum.BytesSent)
		}
		if sum.BytesReceived != 5 {
			t.Errorf("expected 5 bytes received, got %d", sum.BytesReceived)
		}

		empty, err := s.Summarize(ctx, 99, now.Add(-time.Hour))
		if err != nil {
			t.Fatalf("Summarize failed: %v", err)
		}
		if empty.Requests != 0 {
			t.Errorf("expected 0 requests for unknown key, got %d", empty.Requests)
		}
	})
}

func TestPruner_Prune(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		events := []Event{
			{APIKeyID: 1, Route: "/a", Method: "GET", StatusCode: 200, CreatedAt: now.AddDate(0, 0, -100)},
			{APIKeyID: 1, Route: "/b", Method: "GET", StatusCode: 200, CreatedAt: now.AddDate(0, 0, -91)},
			{APIKeyID: 1, Route: "/c", Method: "GET", StatusCode: 200, CreatedAt: now.AddDate(0, 0, -89)},
			{APIKeyID: 1, Route: "/d", Method: "GET", StatusCode: 200, CreatedAt: now.Add(-time.Hour)},
		}
		if err := s.Insert(ctx, events); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}

		obs := &observerCounter{}
		p := NewPruner(s, 90, obs)
		p.clock = func() time.Time { return now }

		deleted, err := p.Prune(ctx)
		if err != nil {
			t.Fatalf("Prune failed: %v", err)
		}
		if deleted != 2 {
			t.Errorf("expected 2 deleted, got %d", deleted)
		}
		if obs.pruned != 2 {
			t.Errorf("expected observer to see 2 pruned, got %d", obs.pruned)
		}

		sum, err := s.Summarize(ctx, 1, time.Time{})
		if err != nil {
			t.Fatalf("Summarize failed: %v", err)
		}
		if sum.Requests != 2 {
			t.Errorf("expected 2 remaining, got %d", sum.Requests)
		}
	})
}

func TestPruner_KeepForever(t *testing.T) {
	s := NewMemoryStore()
	s.Insert(context.Background(), []Event{{APIKeyID: 1, CreatedAt: time.Unix(0, 0)}})

	deleted, err := NewPruner(s, 0, nil).Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected nothing deleted, got %d", deleted)
	}
}

func TestScheduler(t *testing.T) {
	tests := []struct {
		name          string
		schedule      string
		retentionDays int
		expectErr     bool
		expectRunning bool
	}{
		{"valid schedule", "0 3 * * *", 90, false, true},
		{"invalid schedule", "not a cron", 90, true, false},
		{"empty schedule", "", 90, false, false},
		{"retention disabled", "0 3 * * *", 0, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			s := NewScheduler(NewPruner(NewMemoryStore(), tt.retentionDays, nil), tt.schedule)
			err := s.Start(ctx)
			if (err != nil) != tt.expectErr {
				t.Fatalf("expected error=%v, got %v", tt.expectErr, err)
			}
			if s.IsRunning() != tt.expectRunning {
				t.Errorf("expected running=%v, got %v", tt.expectRunning, s.IsRunning())
			}
			if tt.expectRunning {
				if next := s.NextRun(); next == nil || next.Hour() != 3 {
					t.Errorf("expected next run at 03:00, got %v", next)
				}
			}

			s.Stop()
			if s.IsRunning() {
				t.Error("expected scheduler to be stopped")
			}
		})
	}
}
