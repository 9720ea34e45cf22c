package limits

import (
	"testing"
	"time"

	"bluetrace-hq/gateway/pkg/config"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	return cfg
}

func TestPlanResolver_Resolve(t *testing.T) {
	cfg := testConfig()
	r := NewPlanResolver(func() *config.Config { return cfg })

	tests := []struct {
		plan     string
		requests int
		window   time.Duration
	}{
		{"free", 30, time.Minute},
		{"pro", 300, time.Minute},
		{"enterprise", 10000, time.Minute},
		{"platinum", 30, time.Minute},
		{"", 30, time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.plan, func(t *testing.T) {
			got := r.Resolve(tt.plan)
			if got.Requests != tt.requests {
				t.Errorf("expected %d requests, got %d", tt.requests, got.Requests)
			}
			if got.Window != tt.window {
				t.Errorf("expected window %v, got %v", tt.window, got.Window)
			}
		})
	}
}

func TestPlanResolver_ReadsCurrentSnapshot(t *testing.T) {
	cfg := testConfig()
	current := cfg
	r := NewPlanResolver(func() *config.Config { return current })

	if got := r.Resolve("pro").Requests; got != 300 {
		t.Fatalf("expected 300, got %d", got)
	}

	reloaded := testConfig()
	reloaded.RateLimits.Plans["pro"] = config.PlanLimitConfig{Requests: 500, Window: 30}
	current = reloaded

	got := r.Resolve("pro")
	if got.Requests != 500 || got.Window != 30*time.Second {
		t.Errorf("expected reloaded limit 500/30s, got %d/%v", got.Requests, got.Window)
	}
	if got.WindowSeconds() != 30 {
		t.Errorf("expected 30 window seconds, got %d", got.WindowSeconds())
	}
}

func TestPlanResolver_MissingConfig(t *testing.T) {
	r := NewPlanResolver(func() *config.Config { return nil })

	if got := r.Resolve("enterprise").Requests; got != 10000 {
		t.Errorf("expected built-in enterprise limit, got %d", got)
	}
	if got := r.Resolve("unknown").Requests; got != 30 {
		t.Errorf("expected built-in free limit, got %d", got)
	}
}
