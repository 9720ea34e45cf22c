package config

import (
	"fmt"
	"net"
	"net/mail"
	"net/url"
	"slices"
	"strings"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "server.listen_address").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
type ValidationError struct {
	// Errors contains all validation errors found in the configuration.
	Errors []FieldError
}

// Error returns a formatted string containing all validation errors.
func (e ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "configuration validation failed"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("configuration validation failed: %s", e.Errors[0].Error())
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("configuration validation failed with %d errors:\n", len(e.Errors)))
	for _, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("  - %s\n", err.Error()))
	}
	return sb.String()
}

// Validate validates the entire configuration and returns a ValidationError
// if any validation rules fail. All validation errors are collected and
// returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validateServer(&cfg.Server)...)
	errs = append(errs, validateDatabase(&cfg.Database)...)
	errs = append(errs, validateRedis(&cfg.Redis, &cfg.RateLimits)...)
	errs = append(errs, validateRateLimits(&cfg.RateLimits)...)
	errs = append(errs, validateSecurity(&cfg.Security)...)
	errs = append(errs, validateAdmin(&cfg.Admin)...)
	errs = append(errs, validateBilling(&cfg.Billing)...)
	errs = append(errs, validateUsage(&cfg.Usage)...)
	errs = append(errs, validateIngest(&cfg.Ingest)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}
	return nil
}

func validateServer(cfg *ServerConfig) []FieldError {
	var errs []FieldError

	if cfg.ListenAddress == "" {
		errs = append(errs, FieldError{Field: "server.listen_address", Message: "listen address is required"})
	} else if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		errs = append(errs, FieldError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("invalid listen address %q: %v", cfg.ListenAddress, err),
		})
	}
	if cfg.ReadTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.read_timeout", Message: "must not be negative"})
	}
	if cfg.WriteTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.write_timeout", Message: "must not be negative"})
	}
	if cfg.RequestTimeout < 0 {
		errs = append(errs, FieldError{Field: "server.request_timeout", Message: "must not be negative"})
	}
	if cfg.MaxBodyBytes < 0 {
		errs = append(errs, FieldError{Field: "server.max_body_bytes", Message: "must not be negative"})
	}

	return errs
}

func validateDatabase(cfg *DatabaseConfig) []FieldError {
	var errs []FieldError

	validDrivers := []string{"sqlite", "sqlite3", "postgres"}
	if !slices.Contains(validDrivers, cfg.Driver) {
		errs = append(errs, FieldError{
			Field:   "database.driver",
			Message: fmt.Sprintf("invalid driver %q: must be one of %s", cfg.Driver, strings.Join(validDrivers, ", ")),
		})
	}
	if cfg.DSN == "" {
		errs = append(errs, FieldError{Field: "database.dsn", Message: "dsn is required"})
	}
	if cfg.MaxOpenConns < 0 {
		errs = append(errs, FieldError{Field: "database.max_open_conns", Message: "must not be negative"})
	}
	if cfg.QueryTimeout <= 0 {
		errs = append(errs, FieldError{Field: "database.query_timeout", Message: "must be positive"})
	}

	return errs
}

func validateRedis(cfg *RedisConfig, limits *RateLimitsConfig) []FieldError {
	var errs []FieldError

	if limits.Backend != "redis" {
		return errs
	}
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
		errs = append(errs, FieldError{
			Field:   "redis.url",
			Message: fmt.Sprintf("invalid redis url %q: scheme must be redis or rediss", cfg.URL),
		})
	}

	return errs
}

func validateRateLimits(cfg *RateLimitsConfig) []FieldError {
	var errs []FieldError

	if cfg.Backend != "redis" && cfg.Backend != "memory" {
		errs = append(errs, FieldError{
			Field:   "rate_limits.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'redis' or 'memory'", cfg.Backend),
		})
	}
	if cfg.FailurePolicy != FailurePolicyOpen && cfg.FailurePolicy != FailurePolicyClosed {
		errs = append(errs, FieldError{
			Field:   "rate_limits.failure_policy",
			Message: fmt.Sprintf("invalid failure policy %q: must be 'open' or 'closed'", cfg.FailurePolicy),
		})
	}
	if cfg.StoreTimeout <= 0 {
		errs = append(errs, FieldError{Field: "rate_limits.store_timeout", Message: "must be positive"})
	}

	for _, tier := range PlanTiers {
		if _, ok := cfg.Plans[tier]; !ok {
			errs = append(errs, FieldError{
				Field:   "rate_limits.plans." + tier,
				Message: "every plan tier must have a limit",
			})
		}
	}
	for plan, limit := range cfg.Plans {
		prefix := "rate_limits.plans." + plan
		if !slices.Contains(PlanTiers, plan) {
			errs = append(errs, FieldError{
				Field:   prefix,
				Message: fmt.Sprintf("unknown plan tier %q", plan),
			})
		}
		if limit.Requests <= 0 {
			errs = append(errs, FieldError{Field: prefix + ".requests", Message: "must be positive"})
		}
		if limit.Window <= 0 {
			errs = append(errs, FieldError{Field: prefix + ".window", Message: "must be positive"})
		}
	}

	return errs
}

func validateSecurity(cfg *SecurityConfig) []FieldError {
	var errs []FieldError

	if cfg.APIKeySalt == "" {
		errs = append(errs, FieldError{Field: "security.api_key_salt", Message: "api key salt is required"})
	}
	if cfg.APIKeyHeader == "" {
		errs = append(errs, FieldError{Field: "security.api_key_header", Message: "header name is required"})
	}

	return errs
}

func validateAdmin(cfg *AdminConfig) []FieldError {
	var errs []FieldError

	if _, err := mail.ParseAddress(cfg.Email); err != nil {
		errs = append(errs, FieldError{
			Field:   "admin.email",
			Message: fmt.Sprintf("invalid email %q", cfg.Email),
		})
	}

	return errs
}

func validateBilling(cfg *BillingConfig) []FieldError {
	var errs []FieldError

	for product, plan := range cfg.Products {
		if !slices.Contains(PlanTiers, plan) {
			errs = append(errs, FieldError{
				Field:   "billing.products." + product,
				Message: fmt.Sprintf("product maps to unknown plan tier %q", plan),
			})
		}
	}
	if cfg.MaxPayloadBytes <= 0 {
		errs = append(errs, FieldError{Field: "billing.max_payload_bytes", Message: "must be positive"})
	}

	return errs
}

func validateUsage(cfg *UsageConfig) []FieldError {
	var errs []FieldError

	if cfg.AsyncBuffer < 0 {
		errs = append(errs, FieldError{Field: "usage.async_buffer", Message: "must not be negative"})
	}
	if cfg.RetentionDays < 0 {
		errs = append(errs, FieldError{Field: "usage.retention_days", Message: "must not be negative"})
	}
	if _, err := cron.ParseStandard(cfg.PruneSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "usage.prune_schedule",
			Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.PruneSchedule, err),
		})
	}

	return errs
}

func validateIngest(cfg *IngestConfig) []FieldError {
	var errs []FieldError

	if cfg.MaxAttempts < 1 {
		errs = append(errs, FieldError{Field: "ingest.max_attempts", Message: "must be at least 1"})
	}
	if cfg.MaxInterval < cfg.InitialInterval {
		errs = append(errs, FieldError{Field: "ingest.max_interval", Message: "must not be less than initial_interval"})
	}
	if _, err := url.ParseRequestURI(cfg.NOAABaseURL); err != nil {
		errs = append(errs, FieldError{
			Field:   "ingest.noaa_base_url",
			Message: fmt.Sprintf("invalid url %q", cfg.NOAABaseURL),
		})
	}
	if cfg.Schedule != "" {
		if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
			errs = append(errs, FieldError{
				Field:   "ingest.schedule",
				Message: fmt.Sprintf("invalid cron expression %q: %v", cfg.Schedule, err),
			})
		}
	}

	return errs
}

func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLevels, strings.ToLower(cfg.Logging.Level)) {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid log level %q: must be one of %s", cfg.Logging.Level, strings.Join(validLevels, ", ")),
		})
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "text" {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid log format %q: must be 'json' or 'text'", cfg.Logging.Format),
		})
	}
	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{Field: "telemetry.metrics.path", Message: "path must start with '/'"})
	}

	return errs
}
