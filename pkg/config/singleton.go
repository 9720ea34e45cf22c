package config

import (
	"fmt"
	"slices"
	"sync"
)

var (
	// globalConfig holds the process-wide configuration snapshot.
	globalConfig *Config

	// configMutex protects globalConfig and reloadHooks.
	configMutex sync.RWMutex

	// reloadHooks run after every successful ReloadConfig.
	reloadHooks []func(*Config)
)

// Initialize loads configuration from the specified path with environment
// variable overrides and stores it as the process-wide snapshot.
// An empty path loads defaults plus environment overrides.
func Initialize(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return err
	}
	SetConfig(cfg)
	return nil
}

// GetConfig returns the current configuration snapshot, or nil if none has
// been loaded. Snapshots are immutable once published; callers that need a
// consistent view across several fields should call GetConfig once and keep
// the pointer for the duration of the operation.
func GetConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return globalConfig
}

// SetConfig publishes cfg as the current snapshot.
func SetConfig(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	globalConfig = cfg
}

// OnReload registers fn to run with the new snapshot after each successful
// reload. Hooks run synchronously in registration order.
func OnReload(fn func(*Config)) {
	configMutex.Lock()
	defer configMutex.Unlock()
	reloadHooks = append(reloadHooks, fn)
}

// ReloadConfig reloads the configuration from the specified path.
// The new configuration replaces the current snapshot only if loading and
// validation succeed; otherwise the existing snapshot remains in place.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	configMutex.Lock()
	globalConfig = cfg
	hooks := slices.Clone(reloadHooks)
	configMutex.Unlock()

	for _, hook := range hooks {
		hook(cfg)
	}
	return nil
}

// MustGetConfig returns the current snapshot and panics if none is loaded.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
