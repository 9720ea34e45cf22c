// Package config provides configuration management for the BlueTrace gateway.
//
// Configuration is read from a YAML file, completed with defaults,
// overridden from the environment and validated once. Invalid configuration
// fails fast at startup.
//
// # Configuration Loading
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// An empty path skips the file and starts from defaults. A .env file can be
// loaded into the environment first with LoadDotEnv.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention BLUETRACE_SECTION_FIELD:
//
//   - BLUETRACE_DATABASE_DSN overrides database.dsn
//   - BLUETRACE_REDIS_URL overrides redis.url
//   - BLUETRACE_SECURITY_API_KEY_SALT overrides security.api_key_salt
//   - BLUETRACE_BILLING_PRODUCT_PRO maps a billing product id to the pro tier
//
// # Plan Limits and Hot Reload
//
// The rate_limits.plans table maps each plan tier to a request count and a
// window in seconds. Every tier must be present. Readers take a fresh
// snapshot with GetConfig on each request, so a Watcher calling
// ReloadConfig makes new limits effective without a restart:
//
//	rate_limits:
//	  plans:
//	    free:       {requests: 30, window: 60}
//	    pro:        {requests: 300, window: 60}
//	    enterprise: {requests: 10000, window: 60}
//
// A reload that fails validation is rejected and the previous snapshot
// stays active.
package config
