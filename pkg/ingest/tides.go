package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bluetrace-hq/gateway/pkg/config"
	"bluetrace-hq/gateway/pkg/datasets"
)

// NOAA CO-OPS request constants.
const (
	noaaDateLayout   = "20060102"
	noaaRecordLayout = "2006-01-02 15:04"
	noaaApplication  = "bluetrace"
)

// TideWriter stores tide observations.
type TideWriter interface {
	InsertTides(ctx context.Context, records []datasets.TideRecord) (int64, error)
}

// NOAAResponse is the water_level document returned by the data getter.
type NOAAResponse struct {
	Data  []NOAAObservation `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NOAAObservation is one six-minute water level reading. Values arrive as
// strings and are empty when the gauge reported nothing.
type NOAAObservation struct {
	T string `json:"t"`
	V string `json:"v"`
}

// StationData pairs a station with its fetched document.
type StationData struct {
	StationID string
	Response  NOAAResponse
}

// TidesNOAA ingests recent water levels from NOAA CO-OPS.
type TidesNOAA struct {
	client   *Client
	store    TideWriter
	baseURL  string
	stations []string
	lookback int
	now      func() time.Time
	logger   *slog.Logger
}

// NewTidesNOAA creates the tides ingester from the ingest config.
func NewTidesNOAA(client *Client, store TideWriter, cfg config.IngestConfig) *TidesNOAA {
	stations := cfg.Stations
	if len(stations) == 0 {
		stations = config.DefaultStations
	}
	lookback := cfg.LookbackDays
	if lookback <= 0 {
		lookback = config.DefaultIngestLookbackDays
	}
	baseURL := cfg.NOAABaseURL
	if baseURL == "" {
		baseURL = config.DefaultNOAABaseURL
	}
	return &TidesNOAA{
		client:   client,
		store:    store,
		baseURL:  baseURL,
		stations: stations,
		lookback: lookback,
		now:      time.Now,
		logger:   slog.Default().With("component", "ingest", "ingester", "tides_noaa"),
	}
}

// Name implements Ingester.
func (t *TidesNOAA) Name() string { return "tides_noaa" }

// Fetch requests every station. A station that fails after retries is
// logged and skipped; Fetch fails only when no station succeeded.
func (t *TidesNOAA) Fetch(ctx context.Context) ([]StationData, error) {
	end := t.now().UTC()
	begin := end.AddDate(0, 0, -t.lookback)

	var (
		out  []StationData
		errs []error
	)
	for _, station := range t.stations {
		params := url.Values{
			"station":     {station},
			"begin_date":  {begin.Format(noaaDateLayout)},
			"end_date":    {end.Format(noaaDateLayout)},
			"product":     {"water_level"},
			"datum":       {"MLLW"},
			"units":       {"metric"},
			"time_zone":   {"gmt"},
			"format":      {"json"},
			"application": {noaaApplication},
		}

		var resp NOAAResponse
		if err := t.client.GetJSON(ctx, t.baseURL, params, &resp); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			t.logger.WarnContext(ctx, "station fetch failed, skipping", "station", station, "error", err)
			errs = append(errs, fmt.Errorf("station %s: %w", station, err))
			continue
		}
		if resp.Error != nil {
			t.logger.WarnContext(ctx, "station returned an error, skipping", "station", station, "message", resp.Error.Message)
			continue
		}
		out = append(out, StationData{StationID: station, Response: resp})
	}

	if len(out) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

// Transform flattens station documents into tide rows, skipping readings
// with a malformed time or value.
func (t *TidesNOAA) Transform(raw []StationData) ([]datasets.TideRecord, error) {
	var records []datasets.TideRecord
	for _, sd := range raw {
		for _, obs := range sd.Response.Data {
			ts, err := time.ParseInLocation(noaaRecordLayout, obs.T, time.UTC)
			if err != nil {
				t.logger.Warn("skipping invalid record", "station", sd.StationID, "time", obs.T)
				continue
			}
			level, err := strconv.ParseFloat(strings.TrimSpace(obs.V), 64)
			if err != nil {
				t.logger.Warn("skipping invalid record", "station", sd.StationID, "value", obs.V)
				continue
			}
			records = append(records, datasets.TideRecord{StationID: sd.StationID, Time: ts, WaterLevelM: level})
		}
	}
	return records, nil
}

// Upsert implements Ingester.
func (t *TidesNOAA) Upsert(ctx context.Context, records []datasets.TideRecord) (int64, error) {
	return t.store.InsertTides(ctx, records)
}
