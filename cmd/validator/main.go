// Package main is the entrypoint for the truth validator run.
//
// The validator compares the stored surf conditions in the database against
// live calls to every configured third-party source and reports, per location
// and globally, whether the stored values still agree with upstream truth.
//
// This file handles dependency wiring only; all validation logic lives in
// internal/reconcile. A run never terminates early on data or connectivity
// problems -- those surface inside the report -- so a non-zero exit means the
// process could not start, not that drift was found.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/jackc/pgx/v5/pgxpool"

	"lamptruth/internal/config"
	"lamptruth/internal/db"
	"lamptruth/internal/external"
	"lamptruth/internal/reconcile"
	"lamptruth/internal/report"
	"lamptruth/internal/types"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("truth validator starting", "environment", cfg.Environment)

	ctx := context.Background()

	table, err := config.LoadLocationTable(cfg.Validator.SourcesFile)
	if err != nil {
		logger.Error("failed to load location source table", "error", err, "path", cfg.Validator.SourcesFile)
		os.Exit(1)
	}
	logger.Info("location source table loaded", "locations", len(table))

	pool, err := newPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Storage boundary: one read of the current conditions per run.
	repo := db.NewConditionsRepository(pool)
	records, err := repo.ListCurrentConditions(ctx)
	if err != nil {
		logger.Error("failed to read current conditions", "error", err)
		os.Exit(1)
	}
	if len(records) == 0 {
		logger.Error("no current conditions found in database; nothing to validate")
		os.Exit(1)
	}
	refsByLocation := db.GroupByLocation(records)
	logger.Info("current conditions loaded",
		"records", len(records),
		"locations", len(refsByLocation),
	)

	policy := external.DefaultFetchPolicy()
	policy.Timeout = cfg.Validator.FetchTimeout
	fetcher := external.NewSourceFetcher(
		&http.Client{},
		policy,
		logger,
		external.WithUserAgent(cfg.Validator.UserAgent),
	)

	standardizer := reconcile.NewStandardizer(table, logger)
	validator := reconcile.NewLocationValidator(table, fetcher, standardizer, logger)
	engine := reconcile.NewEngine(validator, logger,
		reconcile.WithConcurrency(cfg.Validator.Concurrency),
	)

	summary := engine.Run(ctx, refsByLocation)

	sink := report.NewFileSink(cfg.Report.OutputDir, logger,
		report.WithCompression(cfg.Report.Compress),
	)
	if path, err := sink.Write(summary); err != nil {
		logger.Error("failed to save detailed results", "error", err)
	} else {
		logger.Info("run complete", "verdict", summary.Verdict, "results", path)
	}

	if cfg.Report.MetricsEnabled {
		emitMetrics(ctx, cfg, logger, summary)
	}
}

// newPool builds the pgx connection pool from the database configuration.
func newPool(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL.Unmask())
	if err != nil {
		return nil, err
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)
	poolCfg.MinConns = int32(cfg.MinConns)
	poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	poolCfg.ConnConfig.ConnectTimeout = cfg.AcquireTimeout

	return pgxpool.NewWithConfig(ctx, poolCfg)
}

// emitMetrics publishes the run counters to CloudWatch; best effort.
func emitMetrics(ctx context.Context, cfg *config.Config, logger *slog.Logger, summary types.ReconciliationSummary) {
	awsOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWS.Region),
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		logger.Error("failed to load AWS configuration; skipping metrics", "error", err)
		return
	}

	client := cloudwatch.NewFromConfig(awsCfg, func(o *cloudwatch.Options) {
		if cfg.AWS.EndpointURL != "" {
			o.BaseEndpoint = &cfg.AWS.EndpointURL
		}
	})

	emitter := report.NewCloudWatchRunMetrics(client, cfg.Report.MetricNamespace, logger)
	emitter.EmitRunSummary(ctx, summary)
}

// logLevel maps the configured level string onto slog levels.
func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
