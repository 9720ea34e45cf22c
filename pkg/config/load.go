package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "BLUETRACE_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	cfg, err := parseFile(path)
	if err != nil {
		return nil, err
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention BLUETRACE_SECTION_FIELD (e.g., BLUETRACE_REDIS_URL).
// Environment variables always take precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file (skipped when path is empty)
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = NewDefault()
	} else {
		parsed, err := parseFile(path)
		if err != nil {
			return nil, err
		}
		cfg = parsed
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// LoadDotEnv loads KEY=VALUE pairs from a .env file into the process
// environment without overriding variables that are already set.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load env file %q: %w", path, err)
	}
	return nil
}

func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Malformed numeric, boolean and duration values are ignored.
func applyEnvOverrides(cfg *Config) {
	// Server overrides
	setString(&cfg.Server.ListenAddress, "SERVER_LISTEN_ADDRESS")
	setDuration(&cfg.Server.ReadTimeout, "SERVER_READ_TIMEOUT")
	setDuration(&cfg.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT")
	setDuration(&cfg.Server.ShutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT")

	// Database overrides
	setString(&cfg.Database.Driver, "DATABASE_DRIVER")
	setString(&cfg.Database.DSN, "DATABASE_DSN")
	setInt(&cfg.Database.MaxOpenConns, "DATABASE_MAX_OPEN_CONNS")

	// Redis overrides
	setString(&cfg.Redis.URL, "REDIS_URL")

	// Rate limit overrides
	setString(&cfg.RateLimits.Backend, "RATE_LIMITS_BACKEND")
	setString(&cfg.RateLimits.FailurePolicy, "RATE_LIMITS_FAILURE_POLICY")
	setDuration(&cfg.RateLimits.StoreTimeout, "RATE_LIMITS_STORE_TIMEOUT")

	// Security and admin overrides
	setString(&cfg.Security.APIKeySalt, "SECURITY_API_KEY_SALT")
	setString(&cfg.Admin.Email, "ADMIN_EMAIL")

	// Billing overrides
	setString(&cfg.Billing.WebhookSecret, "BILLING_WEBHOOK_SECRET")
	for _, tier := range PlanTiers {
		if product := os.Getenv(EnvPrefix + "BILLING_PRODUCT_" + strings.ToUpper(tier)); product != "" {
			if cfg.Billing.Products == nil {
				cfg.Billing.Products = make(map[string]string)
			}
			cfg.Billing.Products[product] = tier
		}
	}

	// Usage overrides
	if val := os.Getenv(EnvPrefix + "USAGE_ENABLED"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Usage.Enabled = &b
		}
	}
	setInt(&cfg.Usage.RetentionDays, "USAGE_RETENTION_DAYS")

	// Ingest overrides
	setString(&cfg.Ingest.NOAABaseURL, "INGEST_NOAA_BASE_URL")
	setString(&cfg.Ingest.Schedule, "INGEST_SCHEDULE")

	// Telemetry overrides
	setString(&cfg.Telemetry.Logging.Level, "TELEMETRY_LOGGING_LEVEL")
	setString(&cfg.Telemetry.Logging.Format, "TELEMETRY_LOGGING_FORMAT")
	setString(&cfg.Telemetry.ServiceName, "TELEMETRY_SERVICE_NAME")
}

func setString(dst *string, name string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func setInt(dst *int, name string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func setDuration(dst *time.Duration, name string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
