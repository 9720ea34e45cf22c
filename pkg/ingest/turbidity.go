package ingest

import (
	"context"
	"math/rand/v2"
	"time"

	"bluetrace-hq/gateway/pkg/datasets"
)

// turbiditySeed keeps the demo grid identical across runs.
const turbiditySeed = 42

// TurbidityWriter stores turbidity observations.
type TurbidityWriter interface {
	InsertTurbidity(ctx context.Context, records []datasets.TurbidityRecord) (int64, error)
}

// TurbidityDemo generates a synthetic Chesapeake Bay turbidity grid: one
// reading per day at noon for a week over lat 36..39 and lon -77..-75.
type TurbidityDemo struct {
	store TurbidityWriter
	start time.Time
}

// NewTurbidityDemo creates the demo ingester.
func NewTurbidityDemo(store TurbidityWriter) *TurbidityDemo {
	return &TurbidityDemo{
		store: store,
		start: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

// Name implements Ingester.
func (d *TurbidityDemo) Name() string { return "turbidity_demo" }

// Fetch has nothing to fetch.
func (d *TurbidityDemo) Fetch(ctx context.Context) (struct{}, error) {
	return struct{}{}, ctx.Err()
}

// Transform generates the grid.
func (d *TurbidityDemo) Transform(struct{}) ([]datasets.TurbidityRecord, error) {
	rng := rand.New(rand.NewPCG(turbiditySeed, turbiditySeed))
	uniform := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }

	var records []datasets.TurbidityRecord
	for day := 0; day < 7; day++ {
		at := d.start.AddDate(0, 0, day)
		for lat := 36; lat <= 39; lat++ {
			for lon := -77; lon <= -75; lon++ {
				ntu := max(0.1, 5.0+uniform(-2, 3))
				records = append(records, datasets.TurbidityRecord{
					Lat:  float64(lat) + uniform(0, 0.9),
					Lon:  float64(lon) + uniform(0, 0.9),
					Time: at,
					NTU:  ntu,
				})
			}
		}
	}
	return records, nil
}

// Upsert implements Ingester.
func (d *TurbidityDemo) Upsert(ctx context.Context, records []datasets.TurbidityRecord) (int64, error) {
	return d.store.InsertTurbidity(ctx, records)
}
