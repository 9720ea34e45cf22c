// BlueTrace is a metered API gateway for marine datasets.
//
// It authenticates requests with hashed API keys, enforces per-plan
// sliding-window rate limits, records usage, reconciles plans from billing
// webhooks and serves tide, sea surface temperature, current, turbidity
// and bathymetry data.
//
// Usage:
//
//	# Start the server
//	bluetrace run --config config.yaml
//
//	# Create the schema
//	bluetrace migrate
//
//	# Create the admin key and demo data
//	bluetrace seed
//
//	# Run ingestion jobs
//	bluetrace ingest tides_noaa
//
//	# Manage API keys
//	bluetrace keys create --name "Research" --email ops@example.com --plan pro
package main

func main() {
	Execute()
}
