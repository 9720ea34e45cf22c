// Package ingest loads external and synthetic datasets into the dataset
// tables.
//
// Each source implements Ingester: Fetch pulls raw data, Transform turns it
// into rows and Upsert writes them idempotently. Run drives one ingester
// through the three steps; a Registry runs ingesters by name for the
// "bluetrace ingest" command.
//
// Outbound fetches go through Client, which retries transient failures
// with exponential backoff and jitter up to a fixed number of attempts.
package ingest
