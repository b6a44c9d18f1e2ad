// Package logging provides structured logging with PII redaction.
//
// # Overview
//
// The logging package builds a log/slog logger that adds:
//   - JSON, text, and console output formats
//   - Automatic PII redaction (API keys, bearer tokens, emails, SSN)
//   - Case fields taken from the context (case_id, run_id, stage, reviewer)
//   - Trace and span IDs of the active OpenTelemetry span
//
// # Usage
//
//	logger, err := logging.Setup(logging.Config{
//	    Level:     "info",
//	    Format:    "json",
//	    RedactPII: true,
//	})
//
// Setup installs the logger as slog's default, so component loggers created
// with slog.Default().With("component", ...) inherit redaction.
//
//	ctx = logging.WithCaseID(ctx, "APL-1001")
//	slog.InfoContext(ctx, "reasoning completed") // includes case_id
//
// # PII Redaction
//
// PII is redacted from attribute values when RedactPII is enabled:
//
//   - API keys: sk-abc123xyz → sk-***
//   - Bearer tokens: Bearer eyJ... → Bearer ***
//   - Emails: user@example.com → ***@***
//   - SSN: 123-45-6789 → ***-**-****
//
// Attributes whose key names a secret ("api_key", "password", "token") are
// masked entirely, keeping a four character hint.
package logging
