package usage

import (
	"io"
	"net/http"
	"time"

	"bluetrace-hq/gateway/pkg/security/auth"
)

// Middleware records one usage event per authenticated request. It must run
// after auth.Middleware.Handle; unauthenticated requests pass through
// unrecorded.
func Middleware(recorder *Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if recorder == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok := auth.GetAPIKey(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			body := &countingReader{ReadCloser: r.Body}
			if r.Body != nil {
				r.Body = body
			}
			mw := &meteredWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(mw, r)

			// Drops are logged and counted by the recorder.
			_ = recorder.Record(r.Context(), Event{
				APIKeyID:      key.ID,
				Route:         r.URL.Path,
				Method:        r.Method,
				BytesSent:     mw.bytes,
				BytesReceived: body.n,
				StatusCode:    mw.status,
				DurationMS:    time.Since(start).Milliseconds(),
				CreatedAt:     start.UTC(),
			})
		})
	}
}

type meteredWriter struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func (m *meteredWriter) WriteHeader(code int) {
	if !m.wroteHeader {
		m.status = code
		m.wroteHeader = true
	}
	m.ResponseWriter.WriteHeader(code)
}

func (m *meteredWriter) Write(b []byte) (int, error) {
	m.wroteHeader = true
	n, err := m.ResponseWriter.Write(b)
	m.bytes += int64(n)
	return n, err
}

func (m *meteredWriter) Unwrap() http.ResponseWriter {
	return m.ResponseWriter
}

type countingReader struct {
	io.ReadCloser
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.ReadCloser.Read(p)
	c.n += int64(n)
	return n, err
}
