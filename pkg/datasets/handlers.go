package datasets

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"bluetrace-hq/gateway/pkg/api"
	"bluetrace-hq/gateway/pkg/api/types"
)

// Attribution for each dataset.
const (
	sourceNOAACOOPS  = "NOAA CO-OPS"
	creditsNOAACOOPS = "Data provided by NOAA Center for Operational Oceanographic Products and Services"

	sourceERDDAP  = "NOAA ERDDAP"
	creditsERDDAP = "Data provided by NOAA Environmental Research Division Data Access Program"

	sourceDemo  = "Demo Dataset"
	creditsDemo = "Demonstration data for BlueTrace MVP"
)

// Handler serves the dataset endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a dataset handler on repo.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// Routes returns the handlers keyed by mux pattern.
func (h *Handler) Routes() map[string]http.Handler {
	return map[string]http.Handler{
		"GET /v1/tides":                      api.Wrap(h.Tides),
		"GET /v1/sst":                        api.Wrap(h.SST),
		"GET /v1/currents":                   api.Wrap(h.Currents),
		"GET /v1/turbidity":                  api.Wrap(h.Turbidity),
		"GET /v1/bathy/tiles/{z}/{x}/{tile}": api.Wrap(h.BathyTile),
	}
}

// Tides handles GET /v1/tides.
func (h *Handler) Tides(w http.ResponseWriter, r *http.Request) error {
	p := newParams(r.URL.Query())
	q := TidesQuery{StationID: p.required("station_id")}
	q.Start, q.End = p.timeRange()
	q.Limit = p.limit()
	if p.err != nil {
		return p.err
	}

	data, err := h.repo.Tides(r.Context(), q)
	if err != nil {
		return err
	}
	writeDataset(w, data, len(data), map[string]any{
		"station_id": q.StationID,
		"start":      r.URL.Query().Get("start"),
		"end":        r.URL.Query().Get("end"),
		"limit":      q.Limit,
	}, sourceNOAACOOPS, creditsNOAACOOPS)
	return nil
}

// SST handles GET /v1/sst.
func (h *Handler) SST(w http.ResponseWriter, r *http.Request) error {
	p := newParams(r.URL.Query())
	defRadius := DefaultRadius
	q := SSTQuery{
		Lat: p.float("lat", -90, 90, nil),
		Lon: p.float("lon", -180, 180, nil),
	}
	q.Start, q.End = p.timeRange()
	q.Radius = p.float("radius", MinRadius, MaxRadius, &defRadius)
	q.Limit = p.limit()
	if p.err != nil {
		return p.err
	}

	data, err := h.repo.SST(r.Context(), q)
	if err != nil {
		return err
	}
	writeDataset(w, data, len(data), map[string]any{
		"lat":    q.Lat,
		"lon":    q.Lon,
		"start":  r.URL.Query().Get("start"),
		"end":    r.URL.Query().Get("end"),
		"radius": q.Radius,
		"limit":  q.Limit,
	}, sourceERDDAP, creditsERDDAP)
	return nil
}

// Currents handles GET /v1/currents.
func (h *Handler) Currents(w http.ResponseWriter, r *http.Request) error {
	p := newParams(r.URL.Query())
	q := CurrentsQuery{BBox: p.bbox(), Time: p.timestamp("time"), Limit: p.limit()}
	if p.err != nil {
		return p.err
	}

	data, err := h.repo.Currents(r.Context(), q)
	if err != nil {
		return err
	}
	writeDataset(w, data, len(data), map[string]any{
		"bbox":  r.URL.Query().Get("bbox"),
		"time":  r.URL.Query().Get("time"),
		"limit": q.Limit,
	}, sourceDemo, creditsDemo)
	return nil
}

// Turbidity handles GET /v1/turbidity.
func (h *Handler) Turbidity(w http.ResponseWriter, r *http.Request) error {
	p := newParams(r.URL.Query())
	q := TurbidityQuery{BBox: p.bbox()}
	q.Start, q.End = p.timeRange()
	q.Limit = p.limit()
	if p.err != nil {
		return p.err
	}

	data, err := h.repo.Turbidity(r.Context(), q)
	if err != nil {
		return err
	}
	writeDataset(w, data, len(data), map[string]any{
		"bbox":  r.URL.Query().Get("bbox"),
		"start": r.URL.Query().Get("start"),
		"end":   r.URL.Query().Get("end"),
		"limit": q.Limit,
	}, sourceDemo, creditsDemo)
	return nil
}

// BathyTile handles GET /v1/bathy/tiles/{z}/{x}/{y}.png. The mux cannot
// match a wildcard with a suffix, so the last segment is "{y}.png".
func (h *Handler) BathyTile(w http.ResponseWriter, r *http.Request) error {
	yStr, ok := strings.CutSuffix(r.PathValue("tile"), ".png")
	if !ok {
		return types.NewNotFoundError("Tile not found", "Tiles are served as {z}/{x}/{y}.png")
	}

	z, errZ := strconv.Atoi(r.PathValue("z"))
	x, errX := strconv.Atoi(r.PathValue("x"))
	y, errY := strconv.Atoi(yStr)
	if errZ != nil || errX != nil || errY != nil {
		return types.NewValidationError("Invalid tile coordinates", "z, x and y must be integers")
	}
	if z < 0 || z > MaxZoom {
		return types.NewValidationError(fmt.Sprintf("Invalid zoom level: must be between 0 and %d", MaxZoom), "")
	}
	if x < 0 || y < 0 {
		return types.NewValidationError("Invalid tile coordinates: x and y must be non-negative", "")
	}

	tile, err := h.repo.Tile(r.Context(), z, x, y)
	if errors.Is(err, ErrTileNotFound) {
		return types.NewNotFoundError(fmt.Sprintf("Tile not found: %d/%d/%d", z, x, y),
			"Check tile coordinates or request tile generation")
	}
	if err != nil {
		return err
	}

	hdr := w.Header()
	hdr.Set("Content-Type", "image/png")
	hdr.Set("Cache-Control", "public, max-age=86400")
	hdr.Set("X-Tile-Z", strconv.Itoa(z))
	hdr.Set("X-Tile-X", strconv.Itoa(x))
	hdr.Set("X-Tile-Y", strconv.Itoa(y))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(tile)
	return err
}

func writeDataset(w http.ResponseWriter, data any, count int, query map[string]any, source, credits string) {
	types.WriteJSON(w, http.StatusOK, types.DatasetResponse{
		Data: data,
		Meta: types.DatasetMeta{
			Query:   query,
			Count:   count,
			Source:  source,
			Credits: credits,
		},
	})
}
