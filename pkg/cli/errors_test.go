package cli

import (
	"errors"
	"fmt"
	"testing"
)

func TestConfigError(t *testing.T) {
	tests := []struct {
		name     string
		err      *ConfigError
		expected string
	}{
		{
			name:     "with field",
			err:      &ConfigError{Field: "server.listen_address", Message: "missing required field"},
			expected: "config error in server.listen_address: missing required field",
		},
		{
			name:     "without field",
			err:      &ConfigError{Message: "file not found"},
			expected: "config error: file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestNewConfigError(t *testing.T) {
	cause := errors.New("security.api_key_salt is required")
	err := NewConfigError("", cause)

	if err.Message != cause.Error() {
		t.Errorf("Message = %q, want %q", err.Message, cause.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is() should reach the wrapped cause")
	}
}

func TestCommandError(t *testing.T) {
	underlyingErr := errors.New("underlying error")
	err := NewCommandError("migrate", underlyingErr)

	expected := "command migrate failed: underlying error"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, underlyingErr) {
		t.Error("errors.Is() should work with CommandError.Unwrap()")
	}
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil", nil, ExitOK},
		{"plain error", errors.New("boom"), ExitFailure},
		{"command error", NewCommandError("run", errors.New("boom")), ExitFailure},
		{"config error", NewConfigError("", errors.New("bad")), ExitConfig},
		{"wrapped config error", fmt.Errorf("startup: %w", NewConfigError("", errors.New("bad"))), ExitConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExitCode(tt.err); got != tt.expected {
				t.Errorf("ExitCode() = %d, want %d", got, tt.expected)
			}
		})
	}
}
