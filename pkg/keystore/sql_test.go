package keystore

import (
	"context"
	"errors"
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
		DSN:    filepath.Join(t.TempDir(), "keys.db"),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	store, err := NewSQLStore(ctx, db, time.Second)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// stores runs fn against every Store implementation.
func stores(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("sql", func(t *testing.T) { fn(t, newTestSQLStore(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
}

func mustCreate(t *testing.T, s Store, key *APIKey) *APIKey {
	t.Helper()
	if err := s.Create(context.Background(), key); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return key
}

func TestStore_CreateAndFind(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		key := mustCreate(t, s, &APIKey{
			Name:       "ingest bot",
			KeyHash:    "hash-1",
			Prefix:     "bt_sk_abcdefgh",
			OwnerEmail: "ops@example.com",
		})

		if key.ID == 0 {
			t.Fatal("expected ID to be assigned")
		}
		if key.Plan != PlanFree {
			t.Errorf("expected default plan free, got %s", key.Plan)
		}
		if key.CreatedAt.IsZero() {
			t.Error("expected CreatedAt to be set")
		}

		found, err := s.FindActiveByHash(ctx, "hash-1")
		if err != nil {
			t.Fatalf("FindActiveByHash failed: %v", err)
		}
		if found.ID != key.ID {
			t.Errorf("expected id %d, got %d", key.ID, found.ID)
		}
		if found.OwnerEmail != "ops@example.com" {
			t.Errorf("expected owner ops@example.com, got %s", found.OwnerEmail)
		}
		if found.StripeCustomerID != "" {
			t.Errorf("expected empty customer id, got %q", found.StripeCustomerID)
		}

		byPrefix, err := s.GetByPrefix(ctx, "bt_sk_abcdefgh")
		if err != nil {
			t.Fatalf("GetByPrefix failed: %v", err)
		}
		if byPrefix.ID != key.ID {
			t.Errorf("expected id %d, got %d", key.ID, byPrefix.ID)
		}

		if _, err := s.FindActiveByHash(ctx, "unknown"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := s.GetByID(ctx, 9999); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestStore_DuplicateHash(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		mustCreate(t, s, &APIKey{Name: "a", KeyHash: "dup", Prefix: "bt_sk_aaaaaaaa", OwnerEmail: "a@example.com"})

		err := s.Create(context.Background(), &APIKey{Name: "b", KeyHash: "dup", Prefix: "bt_sk_bbbbbbbb", OwnerEmail: "b@example.com"})
		if !errors.Is(err, ErrDuplicateHash) {
			t.Errorf("expected ErrDuplicateHash, got %v", err)
		}
	})
}

func TestStore_Revoke(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		key := mustCreate(t, s, &APIKey{Name: "a", KeyHash: "h", Prefix: "bt_sk_aaaaaaaa", OwnerEmail: "a@example.com"})

		if err := s.Revoke(ctx, key.ID); err != nil {
			t.Fatalf("Revoke failed: %v", err)
		}
		if _, err := s.FindActiveByHash(ctx, "h"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected revoked key to be inactive, got %v", err)
		}

		revoked, err := s.FindByHash(ctx, "h")
		if err != nil {
			t.Fatalf("FindByHash failed: %v", err)
		}
		if revoked.Active() {
			t.Error("expected key to report revoked")
		}

		if err := s.Revoke(ctx, key.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected second revoke to return ErrNotFound, got %v", err)
		}
	})
}

func TestStore_PlanLifecycle(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		a := mustCreate(t, s, &APIKey{Name: "a", KeyHash: "ha", Prefix: "bt_sk_aaaaaaaa", OwnerEmail: "a@example.com"})
		b := mustCreate(t, s, &APIKey{Name: "b", KeyHash: "hb", Prefix: "bt_sk_bbbbbbbb", OwnerEmail: "a@example.com"})
		mustCreate(t, s, &APIKey{Name: "c", KeyHash: "hc", Prefix: "bt_sk_cccccccc", OwnerEmail: "c@example.com"})

		for _, id := range []int64{a.ID, b.ID} {
			if err := s.SetCustomerID(ctx, id, "cus_123"); err != nil {
				t.Fatalf("SetCustomerID failed: %v", err)
			}
		}

		n, err := s.UpdatePlanByCustomerID(ctx, "cus_123", PlanPro, "sub_1")
		if err != nil {
			t.Fatalf("UpdatePlanByCustomerID failed: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 keys updated, got %d", n)
		}

		got, _ := s.GetByID(ctx, a.ID)
		if got.Plan != PlanPro || got.StripeSubscriptionID != "sub_1" {
			t.Errorf("expected pro/sub_1, got %s/%s", got.Plan, got.StripeSubscriptionID)
		}

		n, err = s.UpdatePlanBySubscriptionID(ctx, "sub_1", PlanEnterprise)
		if err != nil {
			t.Fatalf("UpdatePlanBySubscriptionID failed: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 keys updated, got %d", n)
		}

		n, err = s.ClearSubscription(ctx, "sub_1")
		if err != nil {
			t.Fatalf("ClearSubscription failed: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 keys cleared, got %d", n)
		}

		got, _ = s.GetByID(ctx, b.ID)
		if got.Plan != PlanFree || got.StripeSubscriptionID != "" {
			t.Errorf("expected free with no subscription, got %s/%q", got.Plan, got.StripeSubscriptionID)
		}
		if got.StripeCustomerID != "cus_123" {
			t.Errorf("expected customer link to survive, got %q", got.StripeCustomerID)
		}

		// Replayed deletion is a no-op.
		n, err = s.ClearSubscription(ctx, "sub_1")
		if err != nil {
			t.Fatalf("ClearSubscription replay failed: %v", err)
		}
		if n != 0 {
			t.Errorf("expected replay to update 0 keys, got %d", n)
		}

		n, _ = s.UpdatePlanByCustomerID(ctx, "cus_unknown", PlanPro, "sub_x")
		if n != 0 {
			t.Errorf("expected unknown customer to update 0 keys, got %d", n)
		}
	})
}

func TestStore_List(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		for i, h := range []string{"h1", "h2", "h3"} {
			mustCreate(t, s, &APIKey{
				Name:       h,
				KeyHash:    h,
				Prefix:     "bt_sk_0000000" + string(rune('1'+i)),
				OwnerEmail: "a@example.com",
			})
		}

		keys, err := s.List(context.Background())
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(keys) != 3 {
			t.Fatalf("expected 3 keys, got %d", len(keys))
		}
		for i := 1; i < len(keys); i++ {
			if keys[i-1].ID >= keys[i].ID {
				t.Errorf("expected ascending ids, got %d before %d", keys[i-1].ID, keys[i].ID)
			}
		}
	})
}

func TestStore_SetCustomerIDUnknown(t *testing.T) {
	stores(t, func(t *testing.T, s Store) {
		if err := s.SetCustomerID(context.Background(), 42, "cus_1"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestParsePlan(t *testing.T) {
	tests := []struct {
		in      string
		want    Plan
		wantErr bool
	}{
		{"free", PlanFree, false},
		{"pro", PlanPro, false},
		{"enterprise", PlanEnterprise, false},
		{"platinum", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePlan(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
			if got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}
