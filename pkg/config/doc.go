// Package config provides configuration management for Arbiter.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides. It provides a type-safe
// configuration system with validation and defaults for every store,
// provider and telemetry setting the pipelines use.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("arbiter.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("arbiter.yaml")
//
// YAML is decoded on top of DefaultConfig, so boolean defaults such as
// pipeline.checkpoints stay true unless the file sets them to false.
// Unknown keys are rejected.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention ARBITER_SECTION_FIELD.
// For example:
//
//   - ARBITER_AUDIT_BACKEND overrides audit.backend
//   - ARBITER_REASONING_PRIMARY_API_KEY overrides reasoning.primary.api_key
//   - ARBITER_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// Environment variables always take precedence over file-based configuration.
//
// # Singleton Pattern
//
// The CLI initializes the configuration once per process:
//
//	if err := config.Initialize(path); err != nil {
//	    return err
//	}
//	cfg := config.GetConfig()
//
// For testing, prefer dependency injection with explicit Config instances
// rather than the global singleton.
//
// # Example Configuration
//
//	pipeline:
//	  workers: 4
//
//	review:
//	  backend: "sqlite"
//	  stale_after: "72h"
//
//	audit:
//	  backend: "postgres"
//	  postgres:
//	    host: "db.internal"
//	    database: "arbiter"
//	    user: "arbiter"
//
//	reasoning:
//	  primary:
//	    base_url: "https://api.groq.com/openai/v1"
//	    model: "llama-3.3-70b-versatile"
//
//	telemetry:
//	  logging:
//	    level: "info"
//	    format: "json"
package config
