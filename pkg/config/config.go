package config

import (
	"fmt"
	"net/url"
	"time"
)

// Config is the root configuration structure for Arbiter.
type Config struct {
	// Pipeline controls stage execution and batch concurrency.
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Governance exposes the fixed confidence values of decided states.
	Governance GovernanceConfig `yaml:"governance"`

	// Review selects the human review queue backend and the stale-review
	// monitor settings.
	Review ReviewConfig `yaml:"review"`

	// Audit selects the audit trail backend.
	Audit AuditConfig `yaml:"audit"`

	// Artifacts selects where per-case run outputs and stage checkpoints
	// are written.
	Artifacts ArtifactsConfig `yaml:"artifacts"`

	// Reasoning configures the reasoning providers.
	Reasoning ReasoningConfig `yaml:"reasoning"`

	// Classifier overrides the legacy phrase lists used to read appeal
	// reasoning.
	Classifier ClassifierConfig `yaml:"classifier"`

	// Telemetry contains logging, metrics, tracing and health settings.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// PipelineConfig contains stage runner settings.
type PipelineConfig struct {
	// Workers is the number of cases evaluated concurrently by batch runs.
	// Default: 4
	Workers int `yaml:"workers"`

	// StageTimeout bounds a single stage. Zero disables the bound.
	// Default: 2m
	StageTimeout time.Duration `yaml:"stage_timeout"`

	// Checkpoints enables stage checkpoints in the artifact store so an
	// interrupted run resumes without repeating completed stages.
	// Default: true
	Checkpoints bool `yaml:"checkpoints"`
}

// GovernanceConfig mirrors the confidence values the governance gate
// reports. They are validated against the built-in values and exist so
// operators can see them in one place.
type GovernanceConfig struct {
	// DeterministicConfidence is reported for APPROVE and DENY outcomes.
	// Default: 0.85
	DeterministicConfidence float64 `yaml:"deterministic_confidence"`

	// ReviewedConfidence is reported after a human review.
	// Default: 0.95
	ReviewedConfidence float64 `yaml:"reviewed_confidence"`
}

// ReviewConfig contains review queue configuration.
type ReviewConfig struct {
	// Backend is the queue store: "memory", "sqlite" or "redis".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite configures the SQLite review store.
	SQLite ReviewSQLiteConfig `yaml:"sqlite"`

	// Redis configures the Redis review store.
	Redis RedisConfig `yaml:"redis"`

	// StaleAfter is the age at which a pending review is reported stale.
	// Default: 72h
	StaleAfter time.Duration `yaml:"stale_after"`

	// MonitorSchedule is the cron expression of the stale-review sweep.
	// Default: "*/15 * * * *"
	MonitorSchedule string `yaml:"monitor_schedule"`
}

// ReviewSQLiteConfig contains SQLite review store settings.
type ReviewSQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/review.db"
	Path string `yaml:"path"`

	// BusyTimeout is how long to wait for a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// RedisConfig contains Redis connection settings.
type RedisConfig struct {
	// Addr is the host:port of the Redis server.
	// Default: "localhost:6379"
	Addr string `yaml:"addr"`

	// Password is the optional AUTH password.
	Password string `yaml:"password"`

	// DB is the logical database number.
	DB int `yaml:"db"`

	// Prefix namespaces every key.
	// Default: "arbiter:review"
	Prefix string `yaml:"prefix"`
}

// AuditConfig contains audit trail configuration.
type AuditConfig struct {
	// Backend is the audit store: "memory", "sqlite" or "postgres".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite configures the SQLite audit store.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Postgres configures the PostgreSQL audit store.
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig contains SQLite audit store settings.
type SQLiteConfig struct {
	// Path is the database file path.
	// Default: "data/audit.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables write-ahead logging.
	// Default: true
	WALMode bool `yaml:"wal_mode"`

	// BusyTimeout is how long to wait for a locked database.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`

	// SSLMode is passed to the driver as sslmode.
	// Default: "require"
	SSLMode string `yaml:"ssl_mode"`
}

// DSN returns the connection URL for lib/pq.
func (p PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     "/" + p.Database,
		RawQuery: url.Values{"sslmode": []string{p.SSLMode}}.Encode(),
	}
	if p.User != "" {
		if p.Password != "" {
			u.User = url.UserPassword(p.User, p.Password)
		} else {
			u.User = url.User(p.User)
		}
	}
	return u.String()
}

// ArtifactsConfig contains artifact store configuration.
type ArtifactsConfig struct {
	// Backend is the artifact store: "memory", "filesystem" or "s3".
	// Default: "filesystem"
	Backend string `yaml:"backend"`

	// Root is the filesystem store directory.
	// Default: "data/artifacts"
	Root string `yaml:"root"`

	// S3 configures the S3 store.
	S3 S3Config `yaml:"s3"`
}

// S3Config contains S3 artifact store settings.
type S3Config struct {
	Bucket string `yaml:"bucket"`
	Region string `yaml:"region"`

	// Prefix is prepended to every object key.
	Prefix string `yaml:"prefix"`

	// Endpoint overrides the S3 endpoint (MinIO, LocalStack).
	Endpoint string `yaml:"endpoint"`
}

// ReasoningConfig contains reasoning provider configuration.
type ReasoningConfig struct {
	// Mode selects the provider: "http" calls a chat-completions endpoint,
	// "static" returns StaticText for every prompt (offline runs).
	// Default: "http"
	Mode string `yaml:"mode"`

	// Primary is the first provider tried.
	Primary EndpointConfig `yaml:"primary"`

	// Fallback is tried when the primary is unavailable. Disabled when
	// Model is empty.
	Fallback EndpointConfig `yaml:"fallback"`

	// StaticText is the reasoning returned in static mode.
	StaticText string `yaml:"static_text"`
}

// EndpointConfig describes one chat-completions endpoint.
type EndpointConfig struct {
	// BaseURL is the API base, e.g. "https://api.openai.com/v1".
	BaseURL string `yaml:"base_url"`

	// APIKey is sent as a bearer token.
	APIKey string `yaml:"api_key"`

	// Model is the model name.
	Model string `yaml:"model"`

	// Temperature is the sampling temperature.
	// Default: 0.2
	Temperature float64 `yaml:"temperature"`

	// MaxTokens caps the completion length.
	// Default: 800
	MaxTokens int `yaml:"max_tokens"`

	// Timeout bounds a single HTTP request.
	// Default: 60s
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the number of retries on network errors and 5xx.
	// Default: 2
	MaxRetries int `yaml:"max_retries"`

	// RequestsPerSecond limits the request rate. Zero disables limiting.
	// Default: 2
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// Burst is the rate limiter burst size.
	// Default: 1
	Burst int `yaml:"burst"`
}

// ClassifierConfig overrides the phrase lists of the legacy classifier.
// Empty lists keep the built-in phrases.
type ClassifierConfig struct {
	MismatchPhrases []string `yaml:"mismatch_phrases"`
	DenyPhrases     []string `yaml:"deny_phrases"`
	ApprovePhrases  []string `yaml:"approve_phrases"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains distributed tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`

	// Health contains health check configuration.
	Health HealthConfig `yaml:"health"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text", "console"
	// Default: "json"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`

	// RedactPII enables automatic PII redaction in logs.
	// Default: true
	RedactPII bool `yaml:"redact_pii"`

	// RedactPatterns contains custom PII redaction patterns.
	RedactPatterns []RedactPattern `yaml:"redact_patterns"`
}

// RedactPattern defines a custom PII redaction pattern.
type RedactPattern struct {
	// Name is a descriptive name for the pattern.
	Name string `yaml:"name"`

	// Pattern is the regular expression to match.
	Pattern string `yaml:"pattern"`

	// Replacement is the string to replace matches with.
	Replacement string `yaml:"replacement"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "arbiter"
	Namespace string `yaml:"namespace"`

	// StageDurationBuckets defines histogram buckets for stage duration
	// (seconds).
	// Default: [0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60]
	StageDurationBuckets []float64 `yaml:"stage_duration_buckets"`
}

// TracingConfig contains distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether distributed tracing is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Sampler determines the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "ratio"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces to sample (0.0 to 1.0).
	// Default: 0.1
	SampleRatio float64 `yaml:"sample_ratio"`

	// Endpoint is the OTLP gRPC collector endpoint.
	// Example: "localhost:4317"
	Endpoint string `yaml:"endpoint"`

	// ServiceName is the service name in traces.
	// Default: "arbiter"
	ServiceName string `yaml:"service_name"`

	// Insecure disables TLS for the collector connection.
	// Default: true
	Insecure bool `yaml:"insecure"`

	// Timeout bounds span export calls.
	// Default: 10s
	Timeout time.Duration `yaml:"timeout"`
}

// HealthConfig contains health check configuration.
type HealthConfig struct {
	// ListenAddress is where `arbiter watch` serves metrics and health
	// endpoints.
	// Default: "127.0.0.1:9090"
	ListenAddress string `yaml:"listen_address"`

	// LivenessPath is the HTTP path for the liveness probe.
	// Default: "/health/live"
	LivenessPath string `yaml:"liveness_path"`

	// ReadinessPath is the HTTP path for the readiness probe.
	// Default: "/health/ready"
	ReadinessPath string `yaml:"readiness_path"`

	// CheckTimeout bounds each readiness check.
	// Default: 2s
	CheckTimeout time.Duration `yaml:"check_timeout"`
}
