package datasets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"bluetrace-hq/gateway/pkg/database"
)

// Repository reads and writes the dataset tables.
type Repository struct {
	db      *database.DB
	timeout time.Duration
}

// NewRepository creates a repository on db. Every statement is bounded by
// timeout in addition to the caller's context.
func NewRepository(db *database.DB, timeout time.Duration) *Repository {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Repository{db: db, timeout: timeout}
}

// Tides returns a station's observations ordered by time.
func (r *Repository) Tides(ctx context.Context, q TidesQuery) ([]TideRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`SELECT station_id, time, water_level_m
		FROM datasets_tides
		WHERE station_id = ? AND time >= ? AND time <= ?
		ORDER BY time LIMIT ?`),
		q.StationID, q.Start.UTC(), q.End.UTC(), q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tides: %w", err)
	}
	defer rows.Close()

	out := []TideRecord{}
	for rows.Next() {
		var rec TideRecord
		if err := rows.Scan(&rec.StationID, &rec.Time, &rec.WaterLevelM); err != nil {
			return nil, fmt.Errorf("failed to scan tide: %w", err)
		}
		rec.Time = rec.Time.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// SST returns observations near a point ordered by time.
func (r *Repository) SST(ctx context.Context, q SSTQuery) ([]SSTRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`SELECT lat, lon, time, sst_c
		FROM datasets_sst
		WHERE lat >= ? AND lat <= ? AND lon >= ? AND lon <= ? AND time >= ? AND time <= ?
		ORDER BY time LIMIT ?`),
		q.Lat-q.Radius, q.Lat+q.Radius, q.Lon-q.Radius, q.Lon+q.Radius,
		q.Start.UTC(), q.End.UTC(), q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sst: %w", err)
	}
	defer rows.Close()

	out := []SSTRecord{}
	for rows.Next() {
		var rec SSTRecord
		if err := rows.Scan(&rec.Lat, &rec.Lon, &rec.Time, &rec.SSTC); err != nil {
			return nil, fmt.Errorf("failed to scan sst: %w", err)
		}
		rec.Time = rec.Time.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Currents returns vectors inside the box at exactly the requested time.
func (r *Repository) Currents(ctx context.Context, q CurrentsQuery) ([]CurrentRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`SELECT lat, lon, time, u, v
		FROM datasets_currents
		WHERE lon >= ? AND lon <= ? AND lat >= ? AND lat <= ? AND time = ?
		ORDER BY lat, lon LIMIT ?`),
		q.BBox.MinLon, q.BBox.MaxLon, q.BBox.MinLat, q.BBox.MaxLat, q.Time.UTC(), q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query currents: %w", err)
	}
	defer rows.Close()

	out := []CurrentRecord{}
	for rows.Next() {
		var rec CurrentRecord
		if err := rows.Scan(&rec.Lat, &rec.Lon, &rec.Time, &rec.U, &rec.V); err != nil {
			return nil, fmt.Errorf("failed to scan current: %w", err)
		}
		rec.Time = rec.Time.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Turbidity returns observations inside the box ordered by time.
func (r *Repository) Turbidity(ctx context.Context, q TurbidityQuery) ([]TurbidityRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, r.db.Rebind(`SELECT lat, lon, time, ntu
		FROM datasets_turbidity
		WHERE lon >= ? AND lon <= ? AND lat >= ? AND lat <= ? AND time >= ? AND time <= ?
		ORDER BY time LIMIT ?`),
		q.BBox.MinLon, q.BBox.MaxLon, q.BBox.MinLat, q.BBox.MaxLat, q.Start.UTC(), q.End.UTC(), q.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turbidity: %w", err)
	}
	defer rows.Close()

	out := []TurbidityRecord{}
	for rows.Next() {
		var rec TurbidityRecord
		if err := rows.Scan(&rec.Lat, &rec.Lon, &rec.Time, &rec.NTU); err != nil {
			return nil, fmt.Errorf("failed to scan turbidity: %w", err)
		}
		rec.Time = rec.Time.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Tile returns the PNG bytes of a bathymetry tile.
func (r *Repository) Tile(ctx context.Context, z, x, y int) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var blob []byte
	err := r.db.QueryRowContext(ctx, r.db.Rebind(`SELECT blob FROM datasets_bathy_tiles
		WHERE tile_z = ? AND tile_x = ? AND tile_y = ?`), z, x, y).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query tile: %w", err)
	}
	return blob, nil
}

// InsertTides stores observations, skipping ones already present, and
// returns how many were new.
func (r *Repository) InsertTides(ctx context.Context, records []TideRecord) (int64, error) {
	return r.insert(ctx, `INSERT INTO datasets_tides (station_id, time, water_level_m)
		VALUES (?, ?, ?) ON CONFLICT DO NOTHING`, len(records), func(i int) []any {
		rec := records[i]
		return []any{rec.StationID, rec.Time.UTC(), rec.WaterLevelM}
	})
}

// InsertSST stores observations, skipping ones already present.
func (r *Repository) InsertSST(ctx context.Context, records []SSTRecord) (int64, error) {
	return r.insert(ctx, `INSERT INTO datasets_sst (lat, lon, time, sst_c)
		VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`, len(records), func(i int) []any {
		rec := records[i]
		return []any{rec.Lat, rec.Lon, rec.Time.UTC(), rec.SSTC}
	})
}

// InsertCurrents stores vectors, skipping ones already present.
func (r *Repository) InsertCurrents(ctx context.Context, records []CurrentRecord) (int64, error) {
	return r.insert(ctx, `INSERT INTO datasets_currents (lat, lon, time, u, v)
		VALUES (?, ?, ?, ?, ?) ON CONFLICT DO NOTHING`, len(records), func(i int) []any {
		rec := records[i]
		return []any{rec.Lat, rec.Lon, rec.Time.UTC(), rec.U, rec.V}
	})
}

// InsertTurbidity stores observations, skipping ones already present.
func (r *Repository) InsertTurbidity(ctx context.Context, records []TurbidityRecord) (int64, error) {
	return r.insert(ctx, `INSERT INTO datasets_turbidity (lat, lon, time, ntu)
		VALUES (?, ?, ?, ?) ON CONFLICT DO NOTHING`, len(records), func(i int) []any {
		rec := records[i]
		return []any{rec.Lat, rec.Lon, rec.Time.UTC(), rec.NTU}
	})
}

// PutTile stores or replaces a bathymetry tile.
func (r *Repository) PutTile(ctx context.Context, z, x, y int, png []byte) error {
	_, err := r.insert(ctx, `INSERT INTO datasets_bathy_tiles (tile_z, tile_x, tile_y, blob)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (tile_z, tile_x, tile_y) DO UPDATE SET blob = excluded.blob`, 1, func(int) []any {
		return []any{z, x, y, png}
	})
	return err
}

// insert runs query once per row in a single transaction.
func (r *Repository) insert(ctx context.Context, query string, n int, args func(i int) []any) (int64, error) {
	if n == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, r.db.Rebind(query))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for i := 0; i < n; i++ {
		res, err := stmt.ExecContext(ctx, args(i)...)
		if err != nil {
			return 0, fmt.Errorf("failed to insert row %d: %w", i, err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to count inserted rows: %w", err)
		}
		inserted += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return inserted, nil
}
