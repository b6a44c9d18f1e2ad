package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// FieldError represents a validation error for a specific configuration field.
type FieldError struct {
	// Field is the dotted path to the configuration field (e.g., "audit.backend").
	Field string

	// Message is a human-readable error message.
	Message string
}

// Error returns the error message for this field error.
func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError represents one or more validation errors in a configuration.
// It implements the error interface and provides access to all field errors.
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
// if any validation rules fail. It returns nil if the configuration is valid.
// All validation errors are collected and returned together.
func Validate(cfg *Config) error {
	var errs []FieldError

	errs = append(errs, validatePipeline(&cfg.Pipeline)...)
	errs = append(errs, validateGovernance(&cfg.Governance)...)
	errs = append(errs, validateReview(&cfg.Review)...)
	errs = append(errs, validateAudit(&cfg.Audit)...)
	errs = append(errs, validateArtifacts(&cfg.Artifacts)...)
	errs = append(errs, validateReasoning(&cfg.Reasoning)...)
	errs = append(errs, validateTelemetry(&cfg.Telemetry)...)

	if len(errs) > 0 {
		return ValidationError{Errors: errs}
	}

	return nil
}

func validatePipeline(cfg *PipelineConfig) []FieldError {
	var errs []FieldError
	if cfg.Workers < 1 || cfg.Workers > 256 {
		errs = append(errs, FieldError{
			Field:   "pipeline.workers",
			Message: "workers must be between 1 and 256",
		})
	}
	if cfg.StageTimeout < 0 {
		errs = append(errs, FieldError{
			Field:   "pipeline.stage_timeout",
			Message: "stage timeout must be non-negative",
		})
	}
	return errs
}

// validateGovernance rejects confidence values that differ from the ones
// the governance gate reports.
func validateGovernance(cfg *GovernanceConfig) []FieldError {
	var errs []FieldError
	if cfg.DeterministicConfidence != DefaultDeterministicConfidence {
		errs = append(errs, FieldError{
			Field:   "governance.deterministic_confidence",
			Message: fmt.Sprintf("must be %.2f", DefaultDeterministicConfidence),
		})
	}
	if cfg.ReviewedConfidence != DefaultReviewedConfidence {
		errs = append(errs, FieldError{
			Field:   "governance.reviewed_confidence",
			Message: fmt.Sprintf("must be %.2f", DefaultReviewedConfidence),
		})
	}
	return errs
}

func validateReview(cfg *ReviewConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "review.sqlite.path",
				Message: "SQLite path is required when backend is 'sqlite'",
			})
		}
	case "redis":
		if cfg.Redis.Addr == "" {
			errs = append(errs, FieldError{
				Field:   "review.redis.addr",
				Message: "Redis address is required when backend is 'redis'",
			})
		}
		if cfg.Redis.DB < 0 {
			errs = append(errs, FieldError{
				Field:   "review.redis.db",
				Message: "Redis database must be non-negative",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "review.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory', 'sqlite', or 'redis'", cfg.Backend),
		})
	}

	if cfg.StaleAfter <= 0 {
		errs = append(errs, FieldError{
			Field:   "review.stale_after",
			Message: "stale threshold must be positive",
		})
	}
	if _, err := cron.ParseStandard(cfg.MonitorSchedule); err != nil {
		errs = append(errs, FieldError{
			Field:   "review.monitor_schedule",
			Message: fmt.Sprintf("invalid cron expression: %v", err),
		})
	}
	return errs
}

func validateAudit(cfg *AuditConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "sqlite":
		if cfg.SQLite.Path == "" {
			errs = append(errs, FieldError{
				Field:   "audit.sqlite.path",
				Message: "SQLite path is required when backend is 'sqlite'",
			})
		}
		if cfg.SQLite.MaxIdleConns > cfg.SQLite.MaxOpenConns {
			errs = append(errs, FieldError{
				Field:   "audit.sqlite.max_idle_conns",
				Message: "max idle connections cannot exceed max open connections",
			})
		}
	case "postgres":
		if cfg.Postgres.Host == "" {
			errs = append(errs, FieldError{
				Field:   "audit.postgres.host",
				Message: "PostgreSQL host is required when backend is 'postgres'",
			})
		}
		if cfg.Postgres.Port < 1 || cfg.Postgres.Port > 65535 {
			errs = append(errs, FieldError{
				Field:   "audit.postgres.port",
				Message: "PostgreSQL port must be between 1 and 65535",
			})
		}
		if cfg.Postgres.Database == "" {
			errs = append(errs, FieldError{
				Field:   "audit.postgres.database",
				Message: "PostgreSQL database is required when backend is 'postgres'",
			})
		}
		if cfg.Postgres.User == "" {
			errs = append(errs, FieldError{
				Field:   "audit.postgres.user",
				Message: "PostgreSQL user is required when backend is 'postgres'",
			})
		}
		validSSLModes := map[string]bool{"disable": true, "require": true, "verify-ca": true, "verify-full": true}
		if !validSSLModes[cfg.Postgres.SSLMode] {
			errs = append(errs, FieldError{
				Field:   "audit.postgres.ssl_mode",
				Message: fmt.Sprintf("invalid SSL mode %q: must be 'disable', 'require', 'verify-ca', or 'verify-full'", cfg.Postgres.SSLMode),
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "audit.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory', 'sqlite', or 'postgres'", cfg.Backend),
		})
	}
	return errs
}

func validateArtifacts(cfg *ArtifactsConfig) []FieldError {
	var errs []FieldError

	switch cfg.Backend {
	case "memory":
	case "filesystem":
		if cfg.Root == "" {
			errs = append(errs, FieldError{
				Field:   "artifacts.root",
				Message: "root directory is required when backend is 'filesystem'",
			})
		}
	case "s3":
		if cfg.S3.Bucket == "" {
			errs = append(errs, FieldError{
				Field:   "artifacts.s3.bucket",
				Message: "S3 bucket is required when backend is 's3'",
			})
		}
		if cfg.S3.Region == "" {
			errs = append(errs, FieldError{
				Field:   "artifacts.s3.region",
				Message: "S3 region is required when backend is 's3'",
			})
		}
		if cfg.S3.Endpoint != "" {
			if _, err := url.ParseRequestURI(cfg.S3.Endpoint); err != nil {
				errs = append(errs, FieldError{
					Field:   "artifacts.s3.endpoint",
					Message: fmt.Sprintf("invalid endpoint URL: %v", err),
				})
			}
		}
	default:
		errs = append(errs, FieldError{
			Field:   "artifacts.backend",
			Message: fmt.Sprintf("invalid backend %q: must be 'memory', 'filesystem', or 's3'", cfg.Backend),
		})
	}
	return errs
}

// validateReasoning checks the shape of the endpoint settings. Missing
// endpoint URLs or models are reported when the provider is built, so
// commands that never reason run without them.
func validateReasoning(cfg *ReasoningConfig) []FieldError {
	var errs []FieldError

	switch cfg.Mode {
	case "http":
	case "static":
		if cfg.StaticText == "" {
			errs = append(errs, FieldError{
				Field:   "reasoning.static_text",
				Message: "static text is required when mode is 'static'",
			})
		}
	default:
		errs = append(errs, FieldError{
			Field:   "reasoning.mode",
			Message: fmt.Sprintf("invalid mode %q: must be 'http' or 'static'", cfg.Mode),
		})
	}

	errs = append(errs, validateEndpoint("reasoning.primary", &cfg.Primary)...)
	errs = append(errs, validateEndpoint("reasoning.fallback", &cfg.Fallback)...)
	return errs
}

func validateEndpoint(prefix string, ep *EndpointConfig) []FieldError {
	var errs []FieldError
	if ep.BaseURL != "" {
		u, err := url.Parse(ep.BaseURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, FieldError{
				Field:   prefix + ".base_url",
				Message: fmt.Sprintf("invalid base URL %q", ep.BaseURL),
			})
		}
	}
	if ep.Temperature < 0 || ep.Temperature > 2 {
		errs = append(errs, FieldError{
			Field:   prefix + ".temperature",
			Message: "temperature must be between 0 and 2",
		})
	}
	if ep.MaxTokens < 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".max_tokens",
			Message: "max tokens must be non-negative",
		})
	}
	if ep.Timeout < 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".timeout",
			Message: "timeout must be non-negative",
		})
	}
	if ep.MaxRetries < 0 || ep.MaxRetries > 10 {
		errs = append(errs, FieldError{
			Field:   prefix + ".max_retries",
			Message: "max retries must be between 0 and 10",
		})
	}
	if ep.RequestsPerSecond < 0 {
		errs = append(errs, FieldError{
			Field:   prefix + ".requests_per_second",
			Message: "requests per second must be non-negative",
		})
	}
	return errs
}

// validateTelemetry validates telemetry configuration.
func validateTelemetry(cfg *TelemetryConfig) []FieldError {
	var errs []FieldError

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("invalid logging level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.Logging.Level),
		})
	}

	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[cfg.Logging.Format] {
		errs = append(errs, FieldError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("invalid logging format %q: must be 'json', 'text', or 'console'", cfg.Logging.Format),
		})
	}

	for i, p := range cfg.Logging.RedactPatterns {
		if _, err := regexp.Compile(p.Pattern); err != nil {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("telemetry.logging.redact_patterns[%d].pattern", i),
				Message: fmt.Sprintf("invalid regular expression: %v", err),
			})
		}
	}

	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.metrics.path",
			Message: "metrics path must start with /",
		})
	}

	if cfg.Tracing.Enabled && cfg.Tracing.Endpoint == "" {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.endpoint",
			Message: "tracing endpoint is required when tracing is enabled",
		})
	}
	validSamplers := map[string]bool{"always": true, "never": true, "ratio": true}
	if !validSamplers[cfg.Tracing.Sampler] {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sampler",
			Message: fmt.Sprintf("invalid sampler %q: must be 'always', 'never', or 'ratio'", cfg.Tracing.Sampler),
		})
	}
	if cfg.Tracing.SampleRatio < 0 || cfg.Tracing.SampleRatio > 1.0 {
		errs = append(errs, FieldError{
			Field:   "telemetry.tracing.sample_ratio",
			Message: "sample ratio must be between 0.0 and 1.0",
		})
	}

	if !strings.HasPrefix(cfg.Health.LivenessPath, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.liveness_path",
			Message: "liveness path must start with /",
		})
	}
	if !strings.HasPrefix(cfg.Health.ReadinessPath, "/") {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.readiness_path",
			Message: "readiness path must start with /",
		})
	}
	if cfg.Health.CheckTimeout < 0 || cfg.Health.CheckTimeout > 60*time.Second {
		errs = append(errs, FieldError{
			Field:   "telemetry.health.check_timeout",
			Message: "check timeout must be between 0 and 60s",
		})
	}

	return errs
}
