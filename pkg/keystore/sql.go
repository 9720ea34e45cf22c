package keystore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"bluetrace-hq/gateway/pkg/database"
)

const keyColumns = `id, name, key_hash, prefix, owner_email, plan,
	stripe_customer_id, stripe_subscription_id, revoked_at, created_at`

// SQLStore implements Store on the relational database.
// Statements are prepared once and every call runs under a short timeout
// so a degraded database cannot stall authentication indefinitely.
type SQLStore struct {
	db           *database.DB
	queryTimeout time.Duration
	closeOnce    sync.Once

	insertStmt         *sql.Stmt
	getByIDStmt        *sql.Stmt
	getByPrefixStmt    *sql.Stmt
	findByHashStmt     *sql.Stmt
	findActiveStmt     *sql.Stmt
	listStmt           *sql.Stmt
	revokeStmt         *sql.Stmt
	setCustomerStmt    *sql.Stmt
	planByCustomer     *sql.Stmt
	planBySubscription *sql.Stmt
	clearSubscription  *sql.Stmt
}

// NewSQLStore prepares the key store statements on db.
// The schema must already exist (see database.DB.Migrate).
func NewSQLStore(ctx context.Context, db *database.DB, queryTimeout time.Duration) (*SQLStore, error) {
	if queryTimeout <= 0 {
		queryTimeout = 3 * time.Second
	}
	s := &SQLStore{db: db, queryTimeout: queryTimeout}

	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.insertStmt, `INSERT INTO api_keys (name, key_hash, prefix, owner_email, plan,
			stripe_customer_id, stripe_subscription_id, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`},
		{&s.getByIDStmt, `SELECT ` + keyColumns + ` FROM api_keys WHERE id = ?`},
		{&s.getByPrefixStmt, `SELECT ` + keyColumns + ` FROM api_keys WHERE prefix = ?`},
		{&s.findByHashStmt, `SELECT ` + keyColumns + ` FROM api_keys WHERE key_hash = ?`},
		{&s.findActiveStmt, `SELECT ` + keyColumns + ` FROM api_keys WHERE key_hash = ? AND revoked_at IS NULL`},
		{&s.listStmt, `SELECT ` + keyColumns + ` FROM api_keys ORDER BY id`},
		{&s.revokeStmt, `UPDATE api_keys SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL`},
		{&s.setCustomerStmt, `UPDATE api_keys SET stripe_customer_id = ? WHERE id = ?`},
		{&s.planByCustomer, `UPDATE api_keys SET plan = ?, stripe_subscription_id = ? WHERE stripe_customer_id = ?`},
		{&s.planBySubscription, `UPDATE api_keys SET plan = ? WHERE stripe_subscription_id = ?`},
		{&s.clearSubscription, `UPDATE api_keys SET plan = ?, stripe_subscription_id = NULL WHERE stripe_subscription_id = ?`},
	}

	for _, st := range stmts {
		prepared, err := db.PrepareContext(ctx, db.Rebind(st.query))
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to prepare key store statement: %w", err)
		}
		*st.dst = prepared
	}

	return s, nil
}

// readCtx bounds a lookup. Lookups follow caller cancellation.
func (s *SQLStore) readCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.queryTimeout)
}

// writeCtx bounds a mutation. Mutations are detached from caller
// cancellation so a disconnecting client cannot abort them halfway.
func (s *SQLStore) writeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), s.queryTimeout)
}

// Create inserts key and fills in its ID and CreatedAt.
func (s *SQLStore) Create(ctx context.Context, key *APIKey) error {
	ctx, cancel := s.writeCtx(ctx)
	defer cancel()

	if key.Plan == "" {
		key.Plan = PlanFree
	}
	createdAt := time.Now().UTC()

	var id int64
	err := s.insertStmt.QueryRowContext(ctx,
		key.Name, key.KeyHash, key.Prefix, key.OwnerEmail, string(key.Plan),
		nullString(key.StripeCustomerID), nullString(key.StripeSubscriptionID), createdAt,
	).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateHash
		}
		return fmt.Errorf("failed to insert api key: %w", err)
	}

	key.ID = id
	key.CreatedAt = createdAt
	return nil
}

// GetByID returns the key with the given id.
func (s *SQLStore) GetByID(ctx context.Context, id int64) (*APIKey, error) {
	ctx, cancel := s.readCtx(ctx)
	defer cancel()
	return scanKey(s.getByIDStmt.QueryRowContext(ctx, id))
}

// GetByPrefix returns the key with the given prefix.
func (s *SQLStore) GetByPrefix(ctx context.Context, prefix string) (*APIKey, error) {
	ctx, cancel := s.readCtx(ctx)
	defer cancel()
	return scanKey(s.getByPrefixStmt.QueryRowContext(ctx, prefix))
}

// FindByHash returns the key with the given digest, revoked or not.
func (s *SQLStore) FindByHash(ctx context.Context, hash string) (*APIKey, error) {
	ctx, cancel := s.readCtx(ctx)
	defer cancel()
	return scanKey(s.findByHashStmt.QueryRowContext(ctx, hash))
}

// FindActiveByHash returns the active key with the given digest.
func (s *SQLStore) FindActiveByHash(ctx context.Context, hash string) (*APIKey, error) {
	ctx, cancel := s.readCtx(ctx)
	defer cancel()
	return scanKey(s.findActiveStmt.QueryRowContext(ctx, hash))
}

// List returns every key ordered by id.
func (s *SQLStore) List(ctx context.Context) ([]*APIKey, error) {
	ctx, cancel := s.readCtx(ctx)
	defer cancel()

	rows, err := s.listStmt.QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	var keys []*APIKey
	for rows.Next() {
		key, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate api keys: %w", err)
	}
	return keys, nil
}

// Revoke soft-revokes an active key. Revoking an unknown or already
// revoked key returns ErrNotFound.
func (s *SQLStore) Revoke(ctx context.Context, id int64) error {
	ctx, cancel := s.writeCtx(ctx)
	defer cancel()

	res, err := s.revokeStmt.ExecContext(ctx, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to revoke api key %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCustomerID links the key to a billing customer.
func (s *SQLStore) SetCustomerID(ctx context.Context, id int64, customerID string) error {
	ctx, cancel := s.writeCtx(ctx)
	defer cancel()

	res, err := s.setCustomerStmt.ExecContext(ctx, nullString(customerID), id)
	if err != nil {
		return fmt.Errorf("failed to set customer on api key %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePlanByCustomerID sets plan and subscription on every key of the customer.
func (s *SQLStore) UpdatePlanByCustomerID(ctx context.Context, customerID string, plan Plan, subscriptionID string) (int64, error) {
	ctx, cancel := s.writeCtx(ctx)
	defer cancel()
	return affected(s.planByCustomer.ExecContext(ctx, string(plan), nullString(subscriptionID), customerID))
}

// UpdatePlanBySubscriptionID sets plan on every key carrying the subscription.
func (s *SQLStore) UpdatePlanBySubscriptionID(ctx context.Context, subscriptionID string, plan Plan) (int64, error) {
	ctx, cancel := s.writeCtx(ctx)
	defer cancel()
	return affected(s.planBySubscription.ExecContext(ctx, string(plan), subscriptionID))
}

// ClearSubscription downgrades keys of the subscription to free and unlinks it.
func (s *SQLStore) ClearSubscription(ctx context.Context, subscriptionID string) (int64, error) {
	ctx, cancel := s.writeCtx(ctx)
	defer cancel()
	return affected(s.clearSubscription.ExecContext(ctx, string(PlanFree), subscriptionID))
}

// Close closes the prepared statements. The database handle is owned by
// the caller.
func (s *SQLStore) Close() error {
	s.closeOnce.Do(func() {
		for _, stmt := range []*sql.Stmt{
			s.insertStmt, s.getByIDStmt, s.getByPrefixStmt, s.findByHashStmt,
			s.findActiveStmt, s.listStmt, s.revokeStmt, s.setCustomerStmt,
			s.planByCustomer, s.planBySubscription, s.clearSubscription,
		} {
			if stmt != nil {
				stmt.Close()
			}
		}
	})
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKey(row rowScanner) (*APIKey, error) {
	var (
		key          APIKey
		plan         string
		customerID   sql.NullString
		subscription sql.NullString
		revokedAt    sql.NullTime
	)
	err := row.Scan(&key.ID, &key.Name, &key.KeyHash, &key.Prefix, &key.OwnerEmail, &plan,
		&customerID, &subscription, &revokedAt, &key.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to scan api key: %w", err)
	}

	key.Plan = Plan(plan)
	key.StripeCustomerID = customerID.String
	key.StripeSubscriptionID = subscription.String
	if revokedAt.Valid {
		t := revokedAt.Time
		key.RevokedAt = &t
	}
	return &key, nil
}

func affected(res sql.Result, err error) (int64, error) {
	if err != nil {
		return 0, fmt.Errorf("failed to update api keys: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
