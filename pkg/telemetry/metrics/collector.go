package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"bluetrace-hq/gateway/pkg/config"
)

// Namespace prefixes every gateway metric.
const Namespace = "bluetrace"

// otherRoute replaces route labels once the cardinality limit is reached.
const otherRoute = "other"

// Collector owns the gateway's Prometheus registry and records metrics for
// the HTTP surface, authentication, billing webhooks and usage metering.
//
// Other packages register their own metrics on Registry(), so a single
// /metrics endpoint exposes everything.
type Collector struct {
	enabled  bool
	registry *prometheus.Registry

	requestMetrics *RequestMetrics
	authMetrics    *AuthMetrics
	webhookMetrics *WebhookMetrics
	usageMetrics   *UsageMetrics

	cardinalityLimiter *CardinalityLimiter
}

// NewCollector creates a collector. If registry is nil a fresh registry is
// created. Go runtime and process collectors are registered alongside the
// gateway metrics.
//
// Example:
//
//	collector := metrics.NewCollector(cfg.Telemetry.Metrics, nil)
//	mux.Handle("GET /metrics", collector.Handler())
func NewCollector(cfg config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &Collector{
		enabled:            cfg.IsEnabled(),
		registry:           registry,
		requestMetrics:     NewRequestMetrics(registry),
		authMetrics:        NewAuthMetrics(registry),
		webhookMetrics:     NewWebhookMetrics(registry),
		usageMetrics:       NewUsageMetrics(registry),
		cardinalityLimiter: NewCardinalityLimiter(500),
	}
}

// RecordRequest records a completed HTTP request.
//
// Parameters:
//   - route: the matched route pattern (e.g. "GET /v1/tides"), or "" when
//     no route matched
//   - method: HTTP method
//   - status: response status code
//   - duration: time spent serving the request
//   - bytes: response body size
func (c *Collector) RecordRequest(route, method string, status int, duration time.Duration, bytes int64) {
	if c == nil || !c.enabled {
		return
	}

	if route == "" || !c.cardinalityLimiter.Allow(route) {
		route = otherRoute
	}

	c.requestMetrics.RecordRequest(route, method, strconv.Itoa(status), duration, bytes)
}

// RequestStarted increments the in-flight gauge. The returned func
// decrements it.
func (c *Collector) RequestStarted() func() {
	if c == nil || !c.enabled {
		return func() {}
	}
	c.requestMetrics.inFlight.Inc()
	return c.requestMetrics.inFlight.Dec
}

// RecordAuthFailure records a rejected credential. It satisfies
// auth.FailureRecorder.
func (c *Collector) RecordAuthFailure(reason string) {
	if c == nil || !c.enabled {
		return
	}
	c.authMetrics.RecordFailure(reason)
}

// RecordWebhookEvent records a processed billing webhook.
//
// Parameters:
//   - kind: event kind ("subscription_created", "unknown", ...)
//   - outcome: "applied", "ignored", "rejected" or "error"
func (c *Collector) RecordWebhookEvent(kind, outcome string) {
	if c == nil || !c.enabled {
		return
	}
	c.webhookMetrics.RecordEvent(kind, outcome)
}

// RecordUsageEvent records the fate of one usage event: "recorded",
// "dropped" or "failed".
func (c *Collector) RecordUsageEvent(result string) {
	if c == nil || !c.enabled {
		return
	}
	c.usageMetrics.RecordEvent(result)
}

// UpdateUsageQueueDepth sets the number of usage events waiting to be
// written.
func (c *Collector) UpdateUsageQueueDepth(depth int) {
	if c == nil || !c.enabled {
		return
	}
	c.usageMetrics.UpdateQueueDepth(depth)
}

// RecordUsagePruned records rows removed by a retention run.
func (c *Collector) RecordUsagePruned(rows int64) {
	if c == nil || !c.enabled {
		return
	}
	c.usageMetrics.RecordPruned(rows)
}

// Registry returns the Prometheus registry used by this collector.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// CardinalityLimiter prevents metric cardinality explosion by limiting
// the number of unique label values.
type CardinalityLimiter struct {
	maxCardinality int
	current        map[string]struct{}
	mu             sync.RWMutex
}

// NewCardinalityLimiter creates a new cardinality limiter with the specified
// maximum cardinality.
func NewCardinalityLimiter(maxCardinality int) *CardinalityLimiter {
	return &CardinalityLimiter{
		maxCardinality: maxCardinality,
		current:        make(map[string]struct{}),
	}
}

// Allow reports whether a label value may be used. Known values are always
// allowed; new values are allowed until the limit is reached.
func (cl *CardinalityLimiter) Allow(labelSet string) bool {
	cl.mu.RLock()
	if _, exists := cl.current[labelSet]; exists {
		cl.mu.RUnlock()
		return true
	}
	cl.mu.RUnlock()

	cl.mu.Lock()
	defer cl.mu.Unlock()

	if _, exists := cl.current[labelSet]; exists {
		return true
	}

	if len(cl.current) >= cl.maxCardinality {
		return false
	}

	cl.current[labelSet] = struct{}{}
	return true
}

// Count returns the current cardinality.
func (cl *CardinalityLimiter) Count() int {
	cl.mu.RLock()
	defer cl.mu.RUnlock()
	return len(cl.current)
}
