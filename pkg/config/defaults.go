package config

import "time"

// Default values for configuration fields.
const (
	// Pipeline defaults
	DefaultPipelineWorkers      = 4
	DefaultPipelineStageTimeout = 2 * time.Minute
	DefaultPipelineCheckpoints  = true

	// Governance defaults
	DefaultDeterministicConfidence = 0.85
	DefaultReviewedConfidence      = 0.95

	// Review defaults
	DefaultReviewBackend           = "sqlite"
	DefaultReviewSQLitePath        = "data/review.db"
	DefaultReviewSQLiteBusyTimeout = 5 * time.Second
	DefaultRedisAddr               = "localhost:6379"
	DefaultRedisPrefix             = "arbiter:review"
	DefaultReviewStaleAfter        = 72 * time.Hour
	DefaultReviewMonitorSchedule   = "*/15 * * * *"

	// Audit defaults
	DefaultAuditBackend            = "sqlite"
	DefaultAuditSQLitePath         = "data/audit.db"
	DefaultAuditSQLiteMaxOpenConns = 10
	DefaultAuditSQLiteMaxIdleConns = 5
	DefaultAuditSQLiteWALMode      = true
	DefaultAuditSQLiteBusyTimeout  = 5 * time.Second
	DefaultPostgresPort            = 5432
	DefaultPostgresSSLMode         = "require"

	// Artifact defaults
	DefaultArtifactsBackend = "filesystem"
	DefaultArtifactsRoot    = "data/artifacts"

	// Reasoning defaults
	DefaultReasoningMode       = "http"
	DefaultReasoningTemp       = 0.2
	DefaultReasoningMaxTokens  = 800
	DefaultReasoningTimeout    = 60 * time.Second
	DefaultReasoningMaxRetries = 2
	DefaultReasoningRPS        = 2.0
	DefaultReasoningBurst      = 1

	// Telemetry defaults
	DefaultLoggingLevel        = "info"
	DefaultLoggingFormat       = "json"
	DefaultLoggingRedactPII    = true
	DefaultMetricsEnabled      = true
	DefaultPrometheusPath      = "/metrics"
	DefaultMetricsNamespace    = "arbiter"
	DefaultTracingEnabled      = false
	DefaultTracingSampler      = "ratio"
	DefaultTracingSamplingRate = 0.1
	DefaultTracingServiceName  = "arbiter"
	DefaultTracingInsecure     = true
	DefaultTracingTimeout      = 10 * time.Second
	DefaultHealthListenAddress = "127.0.0.1:9090"
	DefaultLivenessPath        = "/health/live"
	DefaultReadinessPath       = "/health/ready"
	DefaultHealthCheckTimeout  = 2 * time.Second
)

// DefaultStageDurationBuckets are the histogram buckets of stage durations.
var DefaultStageDurationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60}

// DefaultConfig returns a configuration with every default applied,
// including the boolean defaults that ApplyDefaults cannot distinguish from
// an explicit false. LoadConfig decodes YAML on top of it.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Pipeline.Checkpoints = DefaultPipelineCheckpoints
	cfg.Audit.SQLite.WALMode = DefaultAuditSQLiteWALMode
	cfg.Telemetry.Logging.RedactPII = DefaultLoggingRedactPII
	cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
	cfg.Telemetry.Tracing.Enabled = DefaultTracingEnabled
	cfg.Telemetry.Tracing.Insecure = DefaultTracingInsecure
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Pipeline defaults
	if cfg.Pipeline.Workers == 0 {
		cfg.Pipeline.Workers = DefaultPipelineWorkers
	}
	if cfg.Pipeline.StageTimeout == 0 {
		cfg.Pipeline.StageTimeout = DefaultPipelineStageTimeout
	}

	// Governance defaults
	if cfg.Governance.DeterministicConfidence == 0 {
		cfg.Governance.DeterministicConfidence = DefaultDeterministicConfidence
	}
	if cfg.Governance.ReviewedConfidence == 0 {
		cfg.Governance.ReviewedConfidence = DefaultReviewedConfidence
	}

	applyReviewDefaults(&cfg.Review)
	applyAuditDefaults(&cfg.Audit)

	// Artifact defaults
	if cfg.Artifacts.Backend == "" {
		cfg.Artifacts.Backend = DefaultArtifactsBackend
	}
	if cfg.Artifacts.Root == "" {
		cfg.Artifacts.Root = DefaultArtifactsRoot
	}

	// Reasoning defaults
	if cfg.Reasoning.Mode == "" {
		cfg.Reasoning.Mode = DefaultReasoningMode
	}
	applyEndpointDefaults(&cfg.Reasoning.Primary)
	applyEndpointDefaults(&cfg.Reasoning.Fallback)

	applyTelemetryDefaults(&cfg.Telemetry)
}

func applyReviewDefaults(cfg *ReviewConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultReviewBackend
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = DefaultReviewSQLitePath
	}
	if cfg.SQLite.BusyTimeout == 0 {
		cfg.SQLite.BusyTimeout = DefaultReviewSQLiteBusyTimeout
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.Prefix == "" {
		cfg.Redis.Prefix = DefaultRedisPrefix
	}
	if cfg.StaleAfter == 0 {
		cfg.StaleAfter = DefaultReviewStaleAfter
	}
	if cfg.MonitorSchedule == "" {
		cfg.MonitorSchedule = DefaultReviewMonitorSchedule
	}
}

func applyAuditDefaults(cfg *AuditConfig) {
	if cfg.Backend == "" {
		cfg.Backend = DefaultAuditBackend
	}
	if cfg.SQLite.Path == "" {
		cfg.SQLite.Path = DefaultAuditSQLitePath
	}
	if cfg.SQLite.MaxOpenConns == 0 {
		cfg.SQLite.MaxOpenConns = DefaultAuditSQLiteMaxOpenConns
	}
	if cfg.SQLite.MaxIdleConns == 0 {
		cfg.SQLite.MaxIdleConns = DefaultAuditSQLiteMaxIdleConns
	}
	if cfg.SQLite.BusyTimeout == 0 {
		cfg.SQLite.BusyTimeout = DefaultAuditSQLiteBusyTimeout
	}
	if cfg.Postgres.Port == 0 {
		cfg.Postgres.Port = DefaultPostgresPort
	}
	if cfg.Postgres.SSLMode == "" {
		cfg.Postgres.SSLMode = DefaultPostgresSSLMode
	}
}

func applyEndpointDefaults(cfg *EndpointConfig) {
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultReasoningTemp
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultReasoningMaxTokens
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultReasoningTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultReasoningMaxRetries
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = DefaultReasoningRPS
	}
	if cfg.Burst == 0 {
		cfg.Burst = DefaultReasoningBurst
	}
}

func applyTelemetryDefaults(cfg *TelemetryConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = DefaultLoggingFormat
	}

	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultPrometheusPath
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if len(cfg.Metrics.StageDurationBuckets) == 0 {
		cfg.Metrics.StageDurationBuckets = append([]float64(nil), DefaultStageDurationBuckets...)
	}

	if cfg.Tracing.Sampler == "" {
		cfg.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Tracing.SampleRatio == 0 {
		cfg.Tracing.SampleRatio = DefaultTracingSamplingRate
	}
	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Tracing.Timeout == 0 {
		cfg.Tracing.Timeout = DefaultTracingTimeout
	}

	if cfg.Health.ListenAddress == "" {
		cfg.Health.ListenAddress = DefaultHealthListenAddress
	}
	if cfg.Health.LivenessPath == "" {
		cfg.Health.LivenessPath = DefaultLivenessPath
	}
	if cfg.Health.ReadinessPath == "" {
		cfg.Health.ReadinessPath = DefaultReadinessPath
	}
	if cfg.Health.CheckTimeout == 0 {
		cfg.Health.CheckTimeout = DefaultHealthCheckTimeout
	}
}
