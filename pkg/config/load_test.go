package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "arbiter.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// TestLoadConfig_ValidFile tests loading a complete file.
func TestLoadConfig_ValidFile(t *testing.T) {
	path := writeConfig(t, `
pipeline:
  workers: 8
  stage_timeout: "30s"
  checkpoints: false

review:
  backend: "redis"
  redis:
    addr: "redis:6379"
    db: 2
  stale_after: "24h"

audit:
  backend: "postgres"
  postgres:
    host: "db.internal"
    database: "arbiter"
    user: "arbiter"
    ssl_mode: "disable"

artifacts:
  backend: "s3"
  s3:
    bucket: "case-artifacts"
    region: "us-east-1"

reasoning:
  primary:
    base_url: "https://api.groq.com/openai/v1"
    model: "llama-3.3-70b-versatile"

classifier:
  mismatch_phrases: ["identity conflict"]

telemetry:
  logging:
    level: "debug"
    format: "text"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}

	if cfg.Pipeline.Workers != 8 {
		t.Errorf("Workers = %d, want 8", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.StageTimeout != 30*time.Second {
		t.Errorf("StageTimeout = %v, want 30s", cfg.Pipeline.StageTimeout)
	}
	if cfg.Pipeline.Checkpoints {
		t.Error("Checkpoints = true, want explicit false kept")
	}
	if cfg.Review.Redis.DB != 2 || cfg.Review.Redis.Prefix != DefaultRedisPrefix {
		t.Errorf("Redis = %+v", cfg.Review.Redis)
	}
	if cfg.Audit.Postgres.Port != DefaultPostgresPort {
		t.Errorf("Postgres.Port = %d, want default", cfg.Audit.Postgres.Port)
	}
	if cfg.Reasoning.Primary.MaxTokens != DefaultReasoningMaxTokens {
		t.Errorf("Primary.MaxTokens = %d, want default", cfg.Reasoning.Primary.MaxTokens)
	}
	if len(cfg.Classifier.MismatchPhrases) != 1 {
		t.Errorf("MismatchPhrases = %v", cfg.Classifier.MismatchPhrases)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Telemetry.Logging.Level)
	}
}

// TestLoadConfig_Errors tests missing, malformed and invalid files.
func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			content: "pipeline: [",
			wantErr: "failed to parse",
		},
		{
			name:    "unknown field",
			content: "proxy:\n  listen_address: x\n",
			wantErr: "failed to parse",
		},
		{
			name:    "invalid backend",
			content: "audit:\n  backend: mongo\n",
			wantErr: "audit.backend",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("LoadConfig() succeeded, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}

	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("LoadConfig() on missing file succeeded, want error")
	}
}

// TestParse_Empty tests that an empty document yields the defaults.
func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}
	if cfg.Audit.Backend != DefaultAuditBackend || !cfg.Pipeline.Checkpoints {
		t.Errorf("Parse(nil) = %+v, want defaults", cfg)
	}
}

// TestLoadConfigWithEnvOverrides tests that environment variables take
// precedence over the file.
func TestLoadConfigWithEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
audit:
  backend: "sqlite"
reasoning:
  primary:
    model: "file-model"
`)

	t.Setenv("ARBITER_AUDIT_BACKEND", "memory")
	t.Setenv("ARBITER_PIPELINE_WORKERS", "16")
	t.Setenv("ARBITER_PIPELINE_CHECKPOINTS", "false")
	t.Setenv("ARBITER_REASONING_PRIMARY_MODEL", "env-model")
	t.Setenv("ARBITER_REASONING_PRIMARY_TIMEOUT", "5s")
	t.Setenv("ARBITER_REVIEW_REDIS_DB", "not-a-number")

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() failed: %v", err)
	}

	if cfg.Audit.Backend != "memory" {
		t.Errorf("Audit.Backend = %q, want memory", cfg.Audit.Backend)
	}
	if cfg.Pipeline.Workers != 16 {
		t.Errorf("Workers = %d, want 16", cfg.Pipeline.Workers)
	}
	if cfg.Pipeline.Checkpoints {
		t.Error("Checkpoints = true, want false")
	}
	if cfg.Reasoning.Primary.Model != "env-model" {
		t.Errorf("Primary.Model = %q, want env-model", cfg.Reasoning.Primary.Model)
	}
	if cfg.Reasoning.Primary.Timeout != 5*time.Second {
		t.Errorf("Primary.Timeout = %v, want 5s", cfg.Reasoning.Primary.Timeout)
	}
	if cfg.Review.Redis.DB != 0 {
		t.Errorf("Redis.DB = %d, want malformed override ignored", cfg.Review.Redis.DB)
	}
}

// TestLoadConfigWithEnvOverrides_NoFile tests loading defaults plus
// environment without a file.
func TestLoadConfigWithEnvOverrides_NoFile(t *testing.T) {
	t.Setenv("ARBITER_REASONING_MODE", "static")
	t.Setenv("ARBITER_REASONING_STATIC_TEXT", "The treatment is medically necessary.")

	cfg, err := LoadConfigWithEnvOverrides("")
	if err != nil {
		t.Fatalf("LoadConfigWithEnvOverrides() failed: %v", err)
	}
	if cfg.Reasoning.Mode != "static" {
		t.Errorf("Reasoning.Mode = %q, want static", cfg.Reasoning.Mode)
	}

	t.Setenv("ARBITER_TELEMETRY_LOGGING_LEVEL", "verbose")
	if _, err := LoadConfigWithEnvOverrides(""); err == nil {
		t.Error("invalid override accepted, want validation error")
	}
}
