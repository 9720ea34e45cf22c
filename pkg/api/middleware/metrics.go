package middleware

import (
	"net/http"
	"time"

	"bluetrace-hq/gateway/pkg/telemetry/metrics"
)

// Metrics records request count, latency and response size on collector.
// A nil collector disables recording.
func Metrics(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if collector == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			done := collector.RequestStarted()
			defer done()

			r, info := withRequestInfo(r)
			rw := newResponseWriter(w)

			next.ServeHTTP(rw, r)

			collector.RecordRequest(info.Route, r.Method, rw.statusCode, time.Since(start), rw.bytes)
		})
	}
}
