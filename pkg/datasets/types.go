package datasets

import (
	"errors"
	"time"
)

// ErrTileNotFound is returned when no bathymetry tile exists at z/x/y.
var ErrTileNotFound = errors.New("tile not found")

// TideRecord is one water level observation.
type TideRecord struct {
	StationID   string    `json:"station_id"`
	Time        time.Time `json:"time"`
	WaterLevelM float64   `json:"water_level_m"`
}

// SSTRecord is one sea surface temperature observation.
type SSTRecord struct {
	Lat  float64   `json:"lat"`
	Lon  float64   `json:"lon"`
	Time time.Time `json:"time"`
	SSTC float64   `json:"sst_c"`
}

// CurrentRecord is one surface current vector. U is eastward and V
// northward velocity in m/s.
type CurrentRecord struct {
	Lat  float64   `json:"lat"`
	Lon  float64   `json:"lon"`
	Time time.Time `json:"time"`
	U    float64   `json:"u"`
	V    float64   `json:"v"`
}

// TurbidityRecord is one turbidity observation in nephelometric turbidity
// units.
type TurbidityRecord struct {
	Lat  float64   `json:"lat"`
	Lon  float64   `json:"lon"`
	Time time.Time `json:"time"`
	NTU  float64   `json:"ntu"`
}

// BBox is a lon/lat bounding box, inclusive on every edge.
type BBox struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// TidesQuery selects one station's observations in [Start, End].
type TidesQuery struct {
	StationID  string
	Start, End time.Time
	Limit      int
}

// SSTQuery selects observations within Radius degrees (a box, not a
// circle) of Lat/Lon in [Start, End].
type SSTQuery struct {
	Lat, Lon   float64
	Radius     float64
	Start, End time.Time
	Limit      int
}

// CurrentsQuery selects vectors inside BBox at exactly Time.
type CurrentsQuery struct {
	BBox  BBox
	Time  time.Time
	Limit int
}

// TurbidityQuery selects observations inside BBox in [Start, End].
type TurbidityQuery struct {
	BBox       BBox
	Start, End time.Time
	Limit      int
}
