package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mercator-hq/arbiter/pkg/appeals"
	"mercator-hq/arbiter/pkg/artifacts"
	"mercator-hq/arbiter/pkg/audit"
	auditstorage "mercator-hq/arbiter/pkg/audit/storage"
	"mercator-hq/arbiter/pkg/caserecord"
	"mercator-hq/arbiter/pkg/cli"
	"mercator-hq/arbiter/pkg/config"
	"mercator-hq/arbiter/pkg/fincrime"
	"mercator-hq/arbiter/pkg/governance"
	"mercator-hq/arbiter/pkg/pipeline"
	"mercator-hq/arbiter/pkg/policy"
	"mercator-hq/arbiter/pkg/reasoning"
	"mercator-hq/arbiter/pkg/review"
	reviewstorage "mercator-hq/arbiter/pkg/review/storage"
	"mercator-hq/arbiter/pkg/telemetry/health"
	"mercator-hq/arbiter/pkg/telemetry/metrics"
	"mercator-hq/arbiter/pkg/telemetry/tracing"
)

// app holds the stores and services shared by the commands.
type app struct {
	cfg       *config.Config
	collector *metrics.Collector
	tracer    *tracing.Tracer
	audit     audit.Store
	writer    *audit.Writer
	reviews   review.Store
	queue     *review.Queue
	artifacts artifacts.Store
	logger    *slog.Logger
}

// newApp opens the configured backends. The caller must Close the app.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:       cfg,
		collector: metrics.NewCollector(&cfg.Telemetry.Metrics, nil),
		logger:    slog.Default().With("component", "cmd.app"),
	}
	if err := a.open(ctx); err != nil {
		a.Close()
		return nil, err
	}

	a.writer = audit.NewWriter(a.audit, audit.WithObserver(a.collector))
	a.queue = review.NewQueue(a.reviews,
		review.WithAuditWriter(a.writer),
		review.WithObserver(a.collector),
		review.WithTracer(a.tracer.Tracer("review")),
	)

	a.logger.Debug("backends opened",
		"audit", cfg.Audit.Backend,
		"review", cfg.Review.Backend,
		"artifacts", cfg.Artifacts.Backend,
	)
	return a, nil
}

func (a *app) open(ctx context.Context) error {
	var err error
	if a.tracer, err = tracing.New(&a.cfg.Telemetry.Tracing, Version); err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	if a.audit, err = openAuditStore(ctx, &a.cfg.Audit); err != nil {
		return fmt.Errorf("failed to open audit store: %w", err)
	}
	if a.reviews, err = openReviewStore(&a.cfg.Review); err != nil {
		return fmt.Errorf("failed to open review store: %w", err)
	}
	if a.artifacts, err = openArtifactStore(ctx, &a.cfg.Artifacts); err != nil {
		return fmt.Errorf("failed to open artifact store: %w", err)
	}
	return nil
}

// Close releases the stores and flushes traces.
func (a *app) Close() error {
	var errs []error
	if a.reviews != nil {
		errs = append(errs, a.reviews.Close())
	}
	if a.audit != nil {
		errs = append(errs, a.audit.Close())
	}
	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Telemetry.Tracing.Timeout)
		defer cancel()
		errs = append(errs, a.tracer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// buildPipeline builds the per-variant runners and the governance gate.
func (a *app) buildPipeline() (*pipeline.Pipeline, error) {
	provider, err := newReasoningProvider(&a.cfg.Reasoning)
	if err != nil {
		return nil, cli.NewConfigError("reasoning", err.Error())
	}

	gate, err := governance.NewGate(a.queue,
		governance.WithAuditWriter(a.writer),
		governance.WithArtifacts(a.artifacts),
		governance.WithObserver(a.collector),
		governance.WithTracer(a.tracer.Tracer("governance")),
	)
	if err != nil {
		return nil, err
	}

	appealStages, err := appeals.Stages(appeals.Config{
		Provider:   provider,
		Classifier: newClassifier(&a.cfg.Classifier),
		Artifacts:  a.artifacts,
	})
	if err != nil {
		return nil, err
	}
	fincrimeStages, err := fincrime.Stages(fincrime.Config{
		Provider:  provider,
		Artifacts: a.artifacts,
	})
	if err != nil {
		return nil, err
	}

	opts := []pipeline.RunnerOption{
		pipeline.WithAuditWriter(a.writer),
		pipeline.WithObserver(a.collector),
		pipeline.WithTracer(a.tracer.Tracer("pipeline")),
		pipeline.WithStageTimeout(a.cfg.Pipeline.StageTimeout),
	}
	if a.cfg.Pipeline.Checkpoints {
		opts = append(opts, pipeline.WithCheckpoints(a.artifacts))
	}

	runners := make(map[caserecord.Variant]*pipeline.Runner, 2)
	for variant, stages := range map[caserecord.Variant][]pipeline.Stage{
		caserecord.VariantAppeals:        appealStages,
		caserecord.VariantFinancialCrime: fincrimeStages,
	} {
		runner, err := pipeline.NewRunner(stages, opts...)
		if err != nil {
			return nil, fmt.Errorf("%s runner: %w", variant, err)
		}
		runners[variant] = runner
	}

	return pipeline.New(gate, runners), nil
}

// healthChecker pings every backend on readiness.
func (a *app) healthChecker() *health.Checker {
	checker := health.New(a.cfg.Telemetry.Health.CheckTimeout)
	checker.RegisterCheck("audit_store", health.PingCheck(a.audit))
	checker.RegisterCheck("review_store", health.PingCheck(a.reviews))
	checker.RegisterCheck("artifact_store", health.PingCheck(a.artifacts))
	return checker
}

func openAuditStore(ctx context.Context, cfg *config.AuditConfig) (audit.Store, error) {
	switch cfg.Backend {
	case "memory":
		return auditstorage.NewMemoryStore(), nil
	case "sqlite":
		store, err := auditstorage.NewSQLiteStore(&auditstorage.SQLiteConfig{
			Path:         cfg.SQLite.Path,
			MaxOpenConns: cfg.SQLite.MaxOpenConns,
			MaxIdleConns: cfg.SQLite.MaxIdleConns,
			WALMode:      cfg.SQLite.WALMode,
			BusyTimeout:  cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "postgres":
		store, err := auditstorage.OpenPostgresStore(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported audit backend: %s", cfg.Backend)
	}
}

func openReviewStore(cfg *config.ReviewConfig) (review.Store, error) {
	switch cfg.Backend {
	case "memory":
		return reviewstorage.NewMemoryStore(), nil
	case "sqlite":
		store, err := reviewstorage.NewSQLiteStore(reviewstorage.SQLiteConfig{
			Path:        cfg.SQLite.Path,
			BusyTimeout: cfg.SQLite.BusyTimeout,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		return reviewstorage.NewRedisStore(reviewstorage.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		}), nil
	default:
		return nil, fmt.Errorf("unsupported review backend: %s", cfg.Backend)
	}
}

func openArtifactStore(ctx context.Context, cfg *config.ArtifactsConfig) (artifacts.Store, error) {
	switch cfg.Backend {
	case "memory":
		return artifacts.NewMemoryStore(), nil
	case "filesystem":
		store, err := artifacts.NewFileStore(cfg.Root)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "s3":
		store, err := artifacts.NewS3Store(ctx, artifacts.S3Config{
			Bucket:   cfg.S3.Bucket,
			Region:   cfg.S3.Region,
			Endpoint: cfg.S3.Endpoint,
			Prefix:   cfg.S3.Prefix,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported artifacts backend: %s", cfg.Backend)
	}
}

// newReasoningProvider builds the primary provider, wrapped in a Fallback
// when a fallback model is configured.
func newReasoningProvider(cfg *config.ReasoningConfig) (reasoning.Provider, error) {
	if cfg.Mode == "static" {
		return &reasoning.Static{Text: cfg.StaticText, Model: "static"}, nil
	}

	if cfg.Primary.BaseURL == "" || cfg.Primary.Model == "" {
		return nil, errors.New("reasoning.primary needs base_url and model in http mode")
	}
	primary := reasoning.NewHTTPProvider(httpConfig(&cfg.Primary))
	if cfg.Fallback.Model == "" {
		return primary, nil
	}

	fallback := cfg.Fallback
	if fallback.BaseURL == "" {
		fallback.BaseURL = cfg.Primary.BaseURL
	}
	if fallback.APIKey == "" {
		fallback.APIKey = cfg.Primary.APIKey
	}
	return reasoning.NewFallback(primary, reasoning.NewHTTPProvider(httpConfig(&fallback))), nil
}

func httpConfig(ep *config.EndpointConfig) reasoning.HTTPConfig {
	return reasoning.HTTPConfig{
		BaseURL:           ep.BaseURL,
		APIKey:            ep.APIKey,
		Model:             ep.Model,
		Temperature:       ep.Temperature,
		MaxTokens:         ep.MaxTokens,
		Timeout:           ep.Timeout,
		MaxRetries:        ep.MaxRetries,
		RequestsPerSecond: ep.RequestsPerSecond,
		Burst:             ep.Burst,
	}
}

// newClassifier applies configured phrase overrides to the default lists.
func newClassifier(cfg *config.ClassifierConfig) *policy.PhraseClassifier {
	c := policy.NewPhraseClassifier()
	if len(cfg.MismatchPhrases) > 0 {
		c.MismatchPhrases = cfg.MismatchPhrases
	}
	if len(cfg.DenyPhrases) > 0 {
		c.DenyPhrases = cfg.DenyPhrases
	}
	if len(cfg.ApprovePhrases) > 0 {
		c.ApprovePhrases = cfg.ApprovePhrases
	}
	return c
}
