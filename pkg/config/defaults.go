package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 30 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultRequestTimeout  = 30 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB
	DefaultMaxBodyBytes    = int64(1048576)

	// CORS defaults
	DefaultCORSEnabled = true
	DefaultCORSMaxAge  = 3600

	// Database defaults
	DefaultDatabaseDriver  = "sqlite"
	DefaultDatabaseDSN     = "data/bluetrace.db"
	DefaultMaxOpenConns    = 10
	DefaultMaxIdleConns    = 5
	DefaultConnMaxLifetime = 30 * time.Minute
	DefaultBusyTimeout     = 5 * time.Second
	DefaultQueryTimeout    = 3 * time.Second
	DefaultAutoMigrate     = true

	// Redis defaults
	DefaultRedisURL         = "redis://localhost:6379/0"
	DefaultRedisDialTimeout = 2 * time.Second

	// Rate limit defaults
	DefaultRateLimitBackend = "redis"
	FailurePolicyOpen       = "open"
	FailurePolicyClosed     = "closed"
	DefaultFailurePolicy    = FailurePolicyOpen
	DefaultStoreTimeout     = 2 * time.Second
	DefaultBucketKeyPrefix  = "rate_limit:"

	// Security defaults
	DefaultAPIKeyHeader = "X-Api-Key"

	// Admin defaults
	DefaultAdminEmail = "admin@bluetrace.dev"

	// Billing defaults
	DefaultWebhookMaxPayload = int64(65536)

	// Usage defaults
	DefaultUsageEnabled       = true
	DefaultUsageAsyncBuffer   = 1000
	DefaultUsageWriteTimeout  = 100 * time.Millisecond
	DefaultUsageRetentionDays = 90
	DefaultUsagePruneSchedule = "0 3 * * *"

	// Ingest defaults
	DefaultIngestHTTPTimeout     = 30 * time.Second
	DefaultIngestMaxAttempts     = 3
	DefaultIngestInitialInterval = 2 * time.Second
	DefaultIngestMaxInterval     = 10 * time.Second
	DefaultNOAABaseURL           = "https://api.tidesandcurrents.noaa.gov/api/prod/datagetter"
	DefaultIngestLookbackDays    = 7

	// Telemetry defaults
	DefaultServiceName        = "bluetrace-api"
	DefaultLoggingLevel       = "info"
	DefaultLoggingFormat      = "json"
	DefaultRedactKeys         = true
	DefaultMetricsEnabled     = true
	DefaultMetricsPath        = "/metrics"
	DefaultHealthCheckTimeout = 2 * time.Second
)

// Plan tiers every limit table must cover.
const (
	PlanFree       = "free"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// PlanTiers lists the tiers in ascending order of allowance.
var PlanTiers = []string{PlanFree, PlanPro, PlanEnterprise}

// DefaultPlanLimits returns the built-in limit table.
func DefaultPlanLimits() map[string]PlanLimitConfig {
	return map[string]PlanLimitConfig{
		PlanFree:       {Requests: 30, Window: 60},
		PlanPro:        {Requests: 300, Window: 60},
		PlanEnterprise: {Requests: 10000, Window: 60},
	}
}

// DefaultStations are the NOAA stations ingested when none are configured
// (Providence, New York, Wilmington).
var DefaultStations = []string{"8454000", "8518750", "8574680"}

// ApplyDefaults fills zero-valued fields with their defaults.
// Plan entries missing from the limit table are filled from the built-in
// table so partial overrides stay valid.
func ApplyDefaults(cfg *Config) {
	// Server defaults
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.RequestTimeout == 0 {
		cfg.Server.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = DefaultMaxBodyBytes
	}

	// CORS defaults
	if len(cfg.Server.CORS.AllowedOrigins) == 0 {
		cfg.Server.CORS.AllowedOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	}
	if len(cfg.Server.CORS.AllowedMethods) == 0 {
		cfg.Server.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.Server.CORS.AllowedHeaders) == 0 {
		cfg.Server.CORS.AllowedHeaders = []string{"Content-Type", "X-Api-Key", "X-Request-ID"}
	}
	if len(cfg.Server.CORS.ExposedHeaders) == 0 {
		cfg.Server.CORS.ExposedHeaders = []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"}
	}
	if cfg.Server.CORS.MaxAge == 0 {
		cfg.Server.CORS.MaxAge = DefaultCORSMaxAge
	}

	// Database defaults
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DefaultDatabaseDriver
	}
	if cfg.Database.DSN == "" {
		cfg.Database.DSN = DefaultDatabaseDSN
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = DefaultMaxOpenConns
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = DefaultMaxIdleConns
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = DefaultConnMaxLifetime
	}
	if cfg.Database.BusyTimeout == 0 {
		cfg.Database.BusyTimeout = DefaultBusyTimeout
	}
	if cfg.Database.QueryTimeout == 0 {
		cfg.Database.QueryTimeout = DefaultQueryTimeout
	}

	// Redis defaults
	if cfg.Redis.URL == "" {
		cfg.Redis.URL = DefaultRedisURL
	}
	if cfg.Redis.DialTimeout == 0 {
		cfg.Redis.DialTimeout = DefaultRedisDialTimeout
	}

	// Rate limit defaults
	if cfg.RateLimits.Backend == "" {
		cfg.RateLimits.Backend = DefaultRateLimitBackend
	}
	if cfg.RateLimits.FailurePolicy == "" {
		cfg.RateLimits.FailurePolicy = DefaultFailurePolicy
	}
	if cfg.RateLimits.StoreTimeout == 0 {
		cfg.RateLimits.StoreTimeout = DefaultStoreTimeout
	}
	if cfg.RateLimits.KeyPrefix == "" {
		cfg.RateLimits.KeyPrefix = DefaultBucketKeyPrefix
	}
	if cfg.RateLimits.Plans == nil {
		cfg.RateLimits.Plans = make(map[string]PlanLimitConfig)
	}
	for plan, limit := range DefaultPlanLimits() {
		if _, ok := cfg.RateLimits.Plans[plan]; !ok {
			cfg.RateLimits.Plans[plan] = limit
		}
	}

	// Security defaults
	if cfg.Security.APIKeyHeader == "" {
		cfg.Security.APIKeyHeader = DefaultAPIKeyHeader
	}

	// Admin defaults
	if cfg.Admin.Email == "" {
		cfg.Admin.Email = DefaultAdminEmail
	}

	// Billing defaults
	if cfg.Billing.MaxPayloadBytes == 0 {
		cfg.Billing.MaxPayloadBytes = DefaultWebhookMaxPayload
	}

	// Usage defaults
	if cfg.Usage.AsyncBuffer == 0 {
		cfg.Usage.AsyncBuffer = DefaultUsageAsyncBuffer
	}
	if cfg.Usage.WriteTimeout == 0 {
		cfg.Usage.WriteTimeout = DefaultUsageWriteTimeout
	}
	if cfg.Usage.RetentionDays == 0 {
		cfg.Usage.RetentionDays = DefaultUsageRetentionDays
	}
	if cfg.Usage.PruneSchedule == "" {
		cfg.Usage.PruneSchedule = DefaultUsagePruneSchedule
	}

	// Ingest defaults
	if cfg.Ingest.HTTPTimeout == 0 {
		cfg.Ingest.HTTPTimeout = DefaultIngestHTTPTimeout
	}
	if cfg.Ingest.MaxAttempts == 0 {
		cfg.Ingest.MaxAttempts = DefaultIngestMaxAttempts
	}
	if cfg.Ingest.InitialInterval == 0 {
		cfg.Ingest.InitialInterval = DefaultIngestInitialInterval
	}
	if cfg.Ingest.MaxInterval == 0 {
		cfg.Ingest.MaxInterval = DefaultIngestMaxInterval
	}
	if cfg.Ingest.NOAABaseURL == "" {
		cfg.Ingest.NOAABaseURL = DefaultNOAABaseURL
	}
	if len(cfg.Ingest.Stations) == 0 {
		cfg.Ingest.Stations = append([]string(nil), DefaultStations...)
	}
	if cfg.Ingest.LookbackDays == 0 {
		cfg.Ingest.LookbackDays = DefaultIngestLookbackDays
	}

	// Telemetry defaults
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = DefaultServiceName
	}
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Health.CheckTimeout == 0 {
		cfg.Telemetry.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}

// NewDefault returns a configuration with every default applied.
// The API key salt is left empty and must be supplied before validation.
func NewDefault() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
