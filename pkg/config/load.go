package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "ARBITER_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of DefaultConfig and fills remaining zero
// values. Unknown fields are rejected. It does not validate.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	ApplyDefaults(cfg)
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention ARBITER_SECTION_FIELD (e.g., ARBITER_AUDIT_BACKEND).
// Environment variables always take precedence over file-based configuration.
//
// An empty path starts from DefaultConfig.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = DefaultConfig()
	} else {
		var err error
		if cfg, err = LoadConfig(path); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	// Pipeline overrides
	envInt("PIPELINE_WORKERS", &cfg.Pipeline.Workers)
	envDuration("PIPELINE_STAGE_TIMEOUT", &cfg.Pipeline.StageTimeout)
	envBool("PIPELINE_CHECKPOINTS", &cfg.Pipeline.Checkpoints)

	// Review overrides
	envString("REVIEW_BACKEND", &cfg.Review.Backend)
	envString("REVIEW_SQLITE_PATH", &cfg.Review.SQLite.Path)
	envString("REVIEW_REDIS_ADDR", &cfg.Review.Redis.Addr)
	envString("REVIEW_REDIS_PASSWORD", &cfg.Review.Redis.Password)
	envInt("REVIEW_REDIS_DB", &cfg.Review.Redis.DB)
	envDuration("REVIEW_STALE_AFTER", &cfg.Review.StaleAfter)
	envString("REVIEW_MONITOR_SCHEDULE", &cfg.Review.MonitorSchedule)

	// Audit overrides
	envString("AUDIT_BACKEND", &cfg.Audit.Backend)
	envString("AUDIT_SQLITE_PATH", &cfg.Audit.SQLite.Path)
	envString("AUDIT_POSTGRES_HOST", &cfg.Audit.Postgres.Host)
	envInt("AUDIT_POSTGRES_PORT", &cfg.Audit.Postgres.Port)
	envString("AUDIT_POSTGRES_DATABASE", &cfg.Audit.Postgres.Database)
	envString("AUDIT_POSTGRES_USER", &cfg.Audit.Postgres.User)
	envString("AUDIT_POSTGRES_PASSWORD", &cfg.Audit.Postgres.Password)
	envString("AUDIT_POSTGRES_SSL_MODE", &cfg.Audit.Postgres.SSLMode)

	// Artifact overrides
	envString("ARTIFACTS_BACKEND", &cfg.Artifacts.Backend)
	envString("ARTIFACTS_ROOT", &cfg.Artifacts.Root)
	envString("ARTIFACTS_S3_BUCKET", &cfg.Artifacts.S3.Bucket)
	envString("ARTIFACTS_S3_REGION", &cfg.Artifacts.S3.Region)
	envString("ARTIFACTS_S3_PREFIX", &cfg.Artifacts.S3.Prefix)
	envString("ARTIFACTS_S3_ENDPOINT", &cfg.Artifacts.S3.Endpoint)

	// Reasoning overrides
	envString("REASONING_MODE", &cfg.Reasoning.Mode)
	envString("REASONING_STATIC_TEXT", &cfg.Reasoning.StaticText)
	applyEndpointEnvOverrides("REASONING_PRIMARY_", &cfg.Reasoning.Primary)
	applyEndpointEnvOverrides("REASONING_FALLBACK_", &cfg.Reasoning.Fallback)

	// Telemetry overrides
	envString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	envString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	envBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	envString("TELEMETRY_METRICS_PATH", &cfg.Telemetry.Metrics.Path)
	envBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	envString("TELEMETRY_TRACING_ENDPOINT", &cfg.Telemetry.Tracing.Endpoint)
	envFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
	envString("TELEMETRY_HEALTH_LISTEN_ADDRESS", &cfg.Telemetry.Health.ListenAddress)
}

// applyEndpointEnvOverrides applies overrides for one reasoning endpoint.
// Variables follow the format ARBITER_REASONING_<PRIMARY|FALLBACK>_<FIELD>.
func applyEndpointEnvOverrides(prefix string, ep *EndpointConfig) {
	envString(prefix+"BASE_URL", &ep.BaseURL)
	envString(prefix+"API_KEY", &ep.APIKey)
	envString(prefix+"MODEL", &ep.Model)
	envDuration(prefix+"TIMEOUT", &ep.Timeout)
	envInt(prefix+"MAX_RETRIES", &ep.MaxRetries)
	envFloat(prefix+"REQUESTS_PER_SECOND", &ep.RequestsPerSecond)
}

// Malformed values are ignored and the file value is kept.

func envString(name string, dst *string) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		*dst = val
	}
}

func envInt(name string, dst *int) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

func envFloat(name string, dst *float64) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func envBool(name string, dst *bool) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			*dst = b
		}
	}
}

func envDuration(name string, dst *time.Duration) {
	if val := os.Getenv(EnvPrefix + name); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			*dst = d
		}
	}
}
