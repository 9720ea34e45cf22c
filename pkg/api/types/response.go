package types

// DatasetResponse is the envelope of every dataset query. Data is always a
// slice; callers pass an empty slice rather than nil so it encodes as [].
type DatasetResponse struct {
	Data any         `json:"data"`
	Meta DatasetMeta `json:"meta"`
}

// DatasetMeta describes the query that produced a DatasetResponse and the
// provenance of its rows.
type DatasetMeta struct {
	Query   map[string]any `json:"query"`
	Count   int            `json:"count"`
	Source  string         `json:"source"`
	Credits string         `json:"credits"`

	// Next is reserved for pagination and is always null.
	Next *string `json:"next"`
}

// StatusResponse is the body of simple acknowledgements such as webhooks.
type StatusResponse struct {
	Status string `json:"status"`
}
