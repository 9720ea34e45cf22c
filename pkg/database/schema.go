package database

import (
	"context"
	"fmt"
	"strings"
)

// schemaSQLite and schemaPostgres are applied statement by statement.
// Every statement is idempotent.
var schemaSQLite = []string{
	`CREATE TABLE IF NOT EXISTS api_keys (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		key_hash TEXT NOT NULL UNIQUE,
		prefix TEXT NOT NULL,
		owner_email TEXT NOT NULL,
		plan TEXT NOT NULL DEFAULT 'free',
		stripe_customer_id TEXT,
		stripe_subscription_id TEXT,
		revoked_at DATETIME,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_prefix ON api_keys(prefix)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_customer ON api_keys(stripe_customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_subscription ON api_keys(stripe_subscription_id)`,

	`CREATE TABLE IF NOT EXISTS usage_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		api_key_id INTEGER NOT NULL REFERENCES api_keys(id),
		route TEXT NOT NULL,
		method TEXT NOT NULL,
		bytes_sent INTEGER NOT NULL DEFAULT 0,
		bytes_received INTEGER NOT NULL DEFAULT 0,
		status_code INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_usage_key_time ON usage_events(api_key_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_usage_time ON usage_events(created_at)`,

	`CREATE TABLE IF NOT EXISTS datasets_tides (
		station_id TEXT NOT NULL,
		time DATETIME NOT NULL,
		water_level_m REAL NOT NULL,
		PRIMARY KEY (station_id, time)
	)`,
	`CREATE TABLE IF NOT EXISTS datasets_sst (
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		time DATETIME NOT NULL,
		sst_c REAL NOT NULL,
		PRIMARY KEY (lat, lon, time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sst_time ON datasets_sst(time)`,
	`CREATE TABLE IF NOT EXISTS datasets_currents (
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		time DATETIME NOT NULL,
		u REAL NOT NULL,
		v REAL NOT NULL,
		PRIMARY KEY (lat, lon, time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_currents_time ON datasets_currents(time)`,
	`CREATE TABLE IF NOT EXISTS datasets_turbidity (
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		time DATETIME NOT NULL,
		ntu REAL NOT NULL,
		PRIMARY KEY (lat, lon, time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_turbidity_time ON datasets_turbidity(time)`,
	`CREATE TABLE IF NOT EXISTS datasets_bathy_tiles (
		tile_z INTEGER NOT NULL,
		tile_x INTEGER NOT NULL,
		tile_y INTEGER NOT NULL,
		blob BLOB NOT NULL,
		PRIMARY KEY (tile_z, tile_x, tile_y)
	)`,
}

var schemaPostgres = []string{
	`CREATE TABLE IF NOT EXISTS api_keys (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		key_hash VARCHAR(64) NOT NULL UNIQUE,
		prefix VARCHAR(32) NOT NULL,
		owner_email VARCHAR(255) NOT NULL,
		plan VARCHAR(32) NOT NULL DEFAULT 'free',
		stripe_customer_id VARCHAR(255),
		stripe_subscription_id VARCHAR(255),
		revoked_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_prefix ON api_keys(prefix)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_customer ON api_keys(stripe_customer_id)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_subscription ON api_keys(stripe_subscription_id)`,

	`CREATE TABLE IF NOT EXISTS usage_events (
		id BIGSERIAL PRIMARY KEY,
		api_key_id BIGINT NOT NULL REFERENCES api_keys(id),
		route VARCHAR(255) NOT NULL,
		method VARCHAR(16) NOT NULL,
		bytes_sent BIGINT NOT NULL DEFAULT 0,
		bytes_received BIGINT NOT NULL DEFAULT 0,
		status_code INTEGER NOT NULL,
		duration_ms BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_usage_key_time ON usage_events(api_key_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_usage_time ON usage_events(created_at)`,

	`CREATE TABLE IF NOT EXISTS datasets_tides (
		station_id VARCHAR(32) NOT NULL,
		time TIMESTAMPTZ NOT NULL,
		water_level_m DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (station_id, time)
	)`,
	`CREATE TABLE IF NOT EXISTS datasets_sst (
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		time TIMESTAMPTZ NOT NULL,
		sst_c DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (lat, lon, time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sst_time ON datasets_sst(time)`,
	`CREATE TABLE IF NOT EXISTS datasets_currents (
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		time TIMESTAMPTZ NOT NULL,
		u DOUBLE PRECISION NOT NULL,
		v DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (lat, lon, time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_currents_time ON datasets_currents(time)`,
	`CREATE TABLE IF NOT EXISTS datasets_turbidity (
		lat DOUBLE PRECISION NOT NULL,
		lon DOUBLE PRECISION NOT NULL,
		time TIMESTAMPTZ NOT NULL,
		ntu DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (lat, lon, time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_turbidity_time ON datasets_turbidity(time)`,
	`CREATE TABLE IF NOT EXISTS datasets_bathy_tiles (
		tile_z INTEGER NOT NULL,
		tile_x INTEGER NOT NULL,
		tile_y INTEGER NOT NULL,
		blob BYTEA NOT NULL,
		PRIMARY KEY (tile_z, tile_x, tile_y)
	)`,
}

// Migrate creates every table and index that does not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	stmts := schemaSQLite
	if db.dialect == DialectPostgres {
		stmts = schemaPostgres
	}

	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration failed at %q: %w", firstLine(stmt), err)
		}
	}

	db.logger.Info("schema migrated", "statements", len(stmts))
	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
