package datasets

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bluetrace-hq/gateway/pkg/api/types"
)

// Query limits shared by every dataset endpoint.
const (
	DefaultLimit = 1000
	MaxLimit     = 10000

	DefaultRadius = 0.5
	MinRadius     = 0.1
	MaxRadius     = 5.0

	MaxZoom = 10
)

const (
	datetimeHint = "Use ISO 8601 format (e.g., 2024-01-01T00:00:00Z)"
	bboxHint     = "Use format: minLon,minLat,maxLon,maxLat (e.g., -75,38,-74,39)"
)

// timeLayouts are the accepted ISO 8601 forms. Layouts without an offset
// are read as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTime parses an ISO 8601 timestamp.
func ParseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime %q", s)
}

// ParseBBox parses "minLon,minLat,maxLon,maxLat".
func ParseBBox(s string) (BBox, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("expected 4 coordinates, got %d", len(parts))
	}
	var coords [4]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return BBox{}, fmt.Errorf("invalid coordinate %q", p)
		}
		coords[i] = v
	}
	return BBox{MinLon: coords[0], MinLat: coords[1], MaxLon: coords[2], MaxLat: coords[3]}, nil
}

// params reads and validates query parameters, keeping the first error.
type params struct {
	values url.Values
	err    *types.APIError
}

func newParams(values url.Values) *params {
	return &params{values: values}
}

func (p *params) fail(message, hint string) {
	if p.err == nil {
		p.err = types.NewValidationError(message, hint)
	}
}

func (p *params) required(name string) string {
	v := p.values.Get(name)
	if v == "" {
		p.fail("Missing required parameter: "+name, "")
	}
	return v
}

func (p *params) timestamp(name string) time.Time {
	s := p.required(name)
	if s == "" {
		return time.Time{}
	}
	t, err := ParseTime(s)
	if err != nil {
		p.fail("Invalid datetime format", datetimeHint)
	}
	return t
}

// timeRange reads start and end and requires end > start.
func (p *params) timeRange() (time.Time, time.Time) {
	start := p.timestamp("start")
	end := p.timestamp("end")
	if p.err == nil && !end.After(start) {
		p.fail("End time must be after start time", "")
	}
	return start, end
}

// float reads a float in [min, max]. A nil def makes the parameter
// required.
func (p *params) float(name string, min, max float64, def *float64) float64 {
	s := p.values.Get(name)
	if s == "" {
		if def != nil {
			return *def
		}
		p.fail("Missing required parameter: "+name, "")
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		p.fail(fmt.Sprintf("Invalid %s: must be a number", name), "")
		return 0
	}
	if v < min || v > max {
		p.fail(fmt.Sprintf("Invalid %s: must be between %g and %g", name, min, max), "")
	}
	return v
}

func (p *params) limit() int {
	s := p.values.Get("limit")
	if s == "" {
		return DefaultLimit
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > MaxLimit {
		p.fail(fmt.Sprintf("Invalid limit: must be between 1 and %d", MaxLimit), "")
		return DefaultLimit
	}
	return n
}

func (p *params) bbox() BBox {
	s := p.required("bbox")
	if s == "" {
		return BBox{}
	}
	b, err := ParseBBox(s)
	if err != nil {
		p.fail("Invalid bounding box format", bboxHint)
	}
	return b
}
