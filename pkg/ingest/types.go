package ingest

import (
	"context"
	"time"
)

// Ingester is a dataset source. R is the raw fetch result and T the row type
// written to the store.
type Ingester[R, T any] interface {
	// Name identifies the ingester on the command line and in logs.
	Name() string

	// Fetch pulls raw data from the source.
	Fetch(ctx context.Context) (R, error)

	// Transform converts raw data into rows. Invalid entries are skipped.
	Transform(raw R) ([]T, error)

	// Upsert writes rows, skipping ones already stored, and returns how
	// many were new.
	Upsert(ctx context.Context, records []T) (int64, error)
}

// Job is an Ingester with its type parameters erased so ingesters of
// different row types can share a registry.
type Job interface {
	Name() string
	Run(ctx context.Context) (Result, error)
}

// Result summarizes one ingestion run.
type Result struct {
	Name        string        `json:"name"`
	Transformed int           `json:"transformed"`
	Inserted    int64         `json:"inserted"`
	Duration    time.Duration `json:"duration"`
}
