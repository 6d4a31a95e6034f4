package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"lamptruth/internal/types"
)

// LocationRunner is the per-location contract consumed by the Engine.
// Satisfied by *LocationValidator.
type LocationRunner interface {
	ValidateLocation(ctx context.Context, location string, refs []types.ReferenceRecord) types.LocationReport
}

// Engine drives the full reconciliation run: every location present in the
// reference dataset is validated and the per-location reports are folded
// into a global summary.
type Engine struct {
	runner      LocationRunner
	logger      *slog.Logger
	concurrency int
	now         func() time.Time
	newRunID    func() string
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithConcurrency bounds how many locations are validated in parallel.
// Location results carry no cross-location shared state, so parallel runs are
// safe; reporting order stays deterministic regardless. Values below 1 mean
// sequential.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		e.concurrency = n
	}
}

// WithEngineClock overrides the run clock. Intended for tests.
func WithEngineClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithRunIDFunc overrides run ID generation. Intended for tests.
func WithRunIDFunc(fn func() string) EngineOption {
	return func(e *Engine) {
		e.newRunID = fn
	}
}

// NewEngine creates an Engine over the given per-location runner.
func NewEngine(runner LocationRunner, logger *slog.Logger, opts ...EngineOption) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		runner:      runner,
		logger:      logger,
		concurrency: 1,
		now:         time.Now,
		newRunID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run validates every location present in the reference dataset and returns
// the global summary. Locations that are configured but have no current
// reference data are skipped, not reported as failures.
//
// A single location blowing up unexpectedly must not abort the run: the
// failure is captured as that location's error entry and the remaining
// locations still execute. Given identical reference data and deterministic
// source responses, two runs produce identical summaries apart from run
// metadata (ID and wall-clock timestamps).
func (e *Engine) Run(ctx context.Context, refsByLocation map[string][]types.ReferenceRecord) types.ReconciliationSummary {
	summary := types.ReconciliationSummary{
		RunID:     e.newRunID(),
		StartedAt: e.now().UTC(),
	}

	// Deterministic iteration order regardless of map ordering.
	locations := make([]string, 0, len(refsByLocation))
	for loc := range refsByLocation {
		locations = append(locations, loc)
	}
	sort.Strings(locations)

	e.logger.Info("reconciliation run starting",
		"run_id", summary.RunID,
		"locations", len(locations),
		"concurrency", e.concurrency,
	)

	reports := make([]types.LocationReport, len(locations))

	g, gctx := errgroup.WithContext(ctx)
	limit := e.concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, loc := range locations {
		g.Go(func() error {
			reports[i] = e.runLocation(gctx, loc, refsByLocation[loc])
			return nil
		})
	}
	// Workers never return errors; failures land in the reports themselves.
	_ = g.Wait()

	for _, report := range reports {
		summary.Totals.TotalLocations++
		if report.Error != nil {
			e.logger.Warn("location validation errored",
				"location", report.Location,
				"code", report.Error.Code,
				"error", report.Error.Message,
			)
			summary.Locations = append(summary.Locations, report)
			continue
		}

		summary.Totals.SuccessfulLocations++
		summary.Totals.TotalAPICalls += report.Summary.TotalAPIs
		summary.Totals.SuccessfulAPICalls += report.Summary.SuccessfulAPIs
		summary.Totals.TotalMatches += report.Summary.DataMatches
		summary.Totals.TotalMismatches += report.Summary.DataMismatches

		e.logger.Info("location validated",
			"location", report.Location,
			"apis_working", fmt.Sprintf("%d/%d", report.Summary.SuccessfulAPIs, report.Summary.TotalAPIs),
			"matches", report.Summary.DataMatches,
			"mismatches", report.Summary.DataMismatches,
		)

		summary.Locations = append(summary.Locations, report)
	}

	summary.Verdict = classify(summary.Totals)
	summary.FinishedAt = e.now().UTC()

	e.logger.Info("reconciliation run finished",
		"run_id", summary.RunID,
		"verdict", summary.Verdict,
		"locations_validated", fmt.Sprintf("%d/%d", summary.Totals.SuccessfulLocations, summary.Totals.TotalLocations),
		"api_calls_successful", fmt.Sprintf("%d/%d", summary.Totals.SuccessfulAPICalls, summary.Totals.TotalAPICalls),
		"matches", summary.Totals.TotalMatches,
		"mismatches", summary.Totals.TotalMismatches,
	)

	return summary
}

// runLocation invokes the per-location runner with panic isolation. Anything
// unexpected becomes an internal_unexpected_error entry for that location.
func (e *Engine) runLocation(ctx context.Context, location string, refs []types.ReferenceRecord) (report types.LocationReport) {
	defer func() {
		if r := recover(); r != nil {
			report = types.LocationReport{
				Location: location,
				Error: types.NewAppError(
					types.ErrCodeInternalUnexpected,
					fmt.Sprintf("validation panicked: %v", r),
					nil,
				),
			}
		}
	}()

	return e.runner.ValidateLocation(ctx, location, refs)
}

// classify derives the run verdict from the folded totals.
func classify(totals types.RunTotals) types.Verdict {
	switch {
	case totals.TotalMismatches > 0:
		return types.VerdictDataDrift
	case totals.SuccessfulAPICalls > 0:
		return types.VerdictPerfectAccuracy
	default:
		return types.VerdictValidationFailed
	}
}
