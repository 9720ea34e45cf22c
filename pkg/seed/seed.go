// Package seed prepares a fresh deployment: an admin key for the
// configured admin email and a small demo dataset.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"bluetrace-hq/gateway/pkg/datasets"
	"bluetrace-hq/gateway/pkg/ingest"
	"bluetrace-hq/gateway/pkg/keystore"
	"bluetrace-hq/gateway/pkg/security/auth"
)

const (
	adminKeyName = "Admin Key"
	demoSeed     = 42
)

// DemoStations are the synthetic tide stations written by Demo.
var DemoStations = []string{"DEMO001", "DEMO002", "DEMO003"}

// Result reports what a seeding run wrote.
type Result struct {
	// AdminKey is the plaintext admin credential. It is empty when an
	// admin key already existed.
	AdminKey    string
	AdminPrefix string

	Tides     int64
	SST       int64
	Currents  int64
	Turbidity int64
}

// Seeder writes the admin key and demo rows.
type Seeder struct {
	keys       keystore.Store
	repo       *datasets.Repository
	salt       string
	adminEmail string
	now        func() time.Time
	logger     *slog.Logger
}

// New creates a seeder.
func New(keys keystore.Store, repo *datasets.Repository, salt, adminEmail string) *Seeder {
	return &Seeder{
		keys:       keys,
		repo:       repo,
		salt:       salt,
		adminEmail: adminEmail,
		now:        time.Now,
		logger:     slog.Default().With("component", "seed"),
	}
}

// Run seeds the admin key and then the demo data.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	res := &Result{}

	plaintext, key, err := s.AdminKey(ctx)
	if err != nil {
		return nil, err
	}
	res.AdminKey = plaintext
	res.AdminPrefix = key.Prefix

	if err := s.Demo(ctx, res); err != nil {
		return res, err
	}
	return res, nil
}

// AdminKey creates an enterprise key owned by the admin email unless an
// active one exists. The plaintext is returned only on creation.
func (s *Seeder) AdminKey(ctx context.Context) (string, *keystore.APIKey, error) {
	keys, err := s.keys.List(ctx)
	if err != nil {
		return "", nil, fmt.Errorf("failed to list keys: %w", err)
	}
	for _, k := range keys {
		if k.Active() && auth.IsAdmin(k, s.adminEmail) {
			s.logger.InfoContext(ctx, "admin key already exists, skipping", "prefix", k.Prefix)
			return "", k, nil
		}
	}

	gen, err := auth.GenerateKey(s.salt)
	if err != nil {
		return "", nil, err
	}
	key := &keystore.APIKey{
		Name:       adminKeyName,
		KeyHash:    gen.Hash,
		Prefix:     gen.Prefix,
		OwnerEmail: s.adminEmail,
		Plan:       keystore.PlanEnterprise,
	}
	if err := s.keys.Create(ctx, key); err != nil {
		return "", nil, fmt.Errorf("failed to create admin key: %w", err)
	}

	s.logger.InfoContext(ctx, "admin key created", "prefix", key.Prefix, "owner_email", key.OwnerEmail)
	return gen.Plaintext, key, nil
}

// Demo writes synthetic tides, sst, currents and turbidity rows into res.
// Rows already present are skipped.
func (s *Seeder) Demo(ctx context.Context, res *Result) error {
	rng := rand.New(rand.NewPCG(demoSeed, demoSeed))
	uniform := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }
	now := s.now().UTC().Truncate(time.Hour)
	base := now.AddDate(0, 0, -3)

	var tides []datasets.TideRecord
	for _, station := range DemoStations {
		for hour := 0; hour < 72; hour++ {
			tides = append(tides, datasets.TideRecord{
				StationID:   station,
				Time:        base.Add(time.Duration(hour) * time.Hour),
				WaterLevelM: 1.5 + 0.8*math.Sin(float64(hour)*0.5),
			})
		}
	}
	n, err := s.repo.InsertTides(ctx, tides)
	if err != nil {
		return fmt.Errorf("failed to seed tides: %w", err)
	}
	res.Tides = n

	var sst []datasets.SSTRecord
	for day := 0; day < 3; day++ {
		at := base.Add(time.Duration(day)*24*time.Hour + 12*time.Hour)
		for lat := 35; lat < 42; lat++ {
			for lon := -76; lon < -70; lon++ {
				sst = append(sst, datasets.SSTRecord{
					Lat:  float64(lat) + uniform(0, 0.5),
					Lon:  float64(lon) + uniform(0, 0.5),
					Time: at,
					SSTC: 18.0 + uniform(-2, 2),
				})
			}
		}
	}
	if res.SST, err = s.repo.InsertSST(ctx, sst); err != nil {
		return fmt.Errorf("failed to seed sst: %w", err)
	}

	var currents []datasets.CurrentRecord
	at := now.Add(-time.Hour)
	for lat := 36; lat < 40; lat++ {
		for lon := -76; lon < -73; lon++ {
			currents = append(currents, datasets.CurrentRecord{
				Lat:  float64(lat) + uniform(0, 0.5),
				Lon:  float64(lon) + uniform(0, 0.5),
				Time: at,
				U:    uniform(-0.5, 0.5),
				V:    uniform(-0.3, 0.3),
			})
		}
	}
	if res.Currents, err = s.repo.InsertCurrents(ctx, currents); err != nil {
		return fmt.Errorf("failed to seed currents: %w", err)
	}

	turbidity, err := ingest.Run(ctx, ingest.NewTurbidityDemo(s.repo))
	if err != nil {
		return fmt.Errorf("failed to seed turbidity: %w", err)
	}
	res.Turbidity = turbidity.Inserted

	s.logger.InfoContext(ctx, "demo data seeded",
		"tides", res.Tides,
		"sst", res.SST,
		"currents", res.Currents,
		"turbidity", res.Turbidity,
	)
	return nil
}
