package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// current holds the process-wide configuration.
	current atomic.Pointer[Config]

	// sourcePath is the file Initialize loaded; empty means defaults.
	sourcePath atomic.Pointer[string]

	initOnce sync.Once
	initErr  error
)

// Initialize loads the configuration at path (defaults when path is empty)
// with environment overrides and installs it process-wide. Only the first
// call loads; later calls return the first call's error.
func Initialize(path string) error {
	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		sourcePath.Store(&path)
		current.Store(cfg)
	})
	return initErr
}

// GetConfig returns the installed configuration, or nil before a
// successful Initialize. Commands build their components from one snapshot
// and do not observe later reloads.
func GetConfig() *Config {
	return current.Load()
}

// SetConfig installs cfg. Intended for tests.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}

// ReloadConfig loads path again and installs the result if it is valid.
// An empty path reloads the file given to Initialize. On error the
// installed configuration is kept.
func ReloadConfig(path string) error {
	if path == "" {
		if p := sourcePath.Load(); p != nil {
			path = *p
		}
	}

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	current.Store(cfg)
	return nil
}

// MustGetConfig is GetConfig for code that runs after startup. It panics
// when no configuration is installed.
func MustGetConfig() *Config {
	cfg := current.Load()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
