// Package datasets serves the marine datasets: tide gauges, sea surface
// temperature, surface currents, turbidity and bathymetry tiles.
//
// Repository is the only code that touches the dataset tables; ingestion
// and seeding write through its Insert methods, which skip rows already
// present. Handler validates query parameters and renders the common
// {"data": [...], "meta": {...}} envelope.
package datasets
