package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{
			name:    "valid JSON config",
			config:  Config{Level: "info", Format: "json", RedactKeys: true},
			wantErr: false,
		},
		{
			name:    "valid text config",
			config:  Config{Level: "debug", Format: "text"},
			wantErr: false,
		},
		{
			name:    "defaults",
			config:  Config{},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			config:  Config{Level: "loud", Format: "json"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			config:  Config{Level: "info", Format: "xml"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.config.Writer = &buf

			logger, err := New(tt.config)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("expected logger, got nil")
			}
		})
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("expected info record to be filtered, got %s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Errorf("expected warn record, got %s", out)
	}
}

func TestLogger_ContextFields(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithKeyPrefix(ctx, "bt_sk_ab12cd34")
	ctx = WithPlan(ctx, "pro")
	logger.InfoContext(ctx, "request completed", "status", 200)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}

	for key, want := range map[string]string{
		"request_id": "req-123",
		"key_prefix": "bt_sk_ab12cd34",
		"plan":       "pro",
	} {
		if got := record[key]; got != want {
			t.Errorf("expected %s %q, got %v", key, want, got)
		}
	}
}

func TestLogger_Redaction(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", RedactKeys: true, Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("key issued",
		"detail", "created bt_sk_ab12cd34.c2VjcmV0LXNlY3JldC1zZWNyZXQ for ops",
		"webhook_secret", "whsec_abc123",
		"key_prefix", "bt_sk_ab12cd34",
	)

	out := buf.String()
	if strings.Contains(out, "c2VjcmV0") {
		t.Errorf("expected secret material to be redacted, got %s", out)
	}
	if strings.Contains(out, "whsec_abc123") {
		t.Errorf("expected webhook secret to be redacted, got %s", out)
	}
	if !strings.Contains(out, "bt_sk_ab12cd34.***") {
		t.Errorf("expected key prefix to survive redaction, got %s", out)
	}
	if !strings.Contains(out, `"key_prefix":"bt_sk_ab12cd34"`) {
		t.Errorf("expected key_prefix attribute unchanged, got %s", out)
	}
}

func TestLogger_NoRedactionWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	logger.Info("raw", "detail", "whsec_abc123")
	if !strings.Contains(buf.String(), "whsec_abc123") {
		t.Errorf("expected raw value when redaction is off, got %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		wantErr bool
	}{
		{"debug", false},
		{"INFO", false},
		{"warning", false},
		{"error", false},
		{"", false},
		{"trace", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
		})
	}
}
