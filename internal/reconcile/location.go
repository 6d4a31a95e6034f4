package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"lamptruth/internal/types"
)

// Fetcher is the transport boundary consumed by the validator. It must not
// return a Go error: network failures, bad statuses, and malformed payloads
// all map onto the FetchError taxonomy inside the response.
type Fetcher interface {
	Fetch(ctx context.Context, url string) types.RawSourceResponse
}

// LocationValidator runs every configured source for one location and
// accumulates the per-location accuracy report.
type LocationValidator struct {
	table        types.LocationTable
	fetcher      Fetcher
	standardizer *Standardizer
	logger       *slog.Logger
}

// NewLocationValidator creates a LocationValidator over the given source
// table and transport.
func NewLocationValidator(table types.LocationTable, fetcher Fetcher, standardizer *Standardizer, logger *slog.Logger) *LocationValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocationValidator{
		table:        table,
		fetcher:      fetcher,
		standardizer: standardizer,
		logger:       logger,
	}
}

// ValidateLocation validates the stored records for one location against
// every configured source, in ascending priority order.
//
// An unconfigured location returns an error report immediately with zero
// source calls; that outcome must stay distinguishable from "ran and found
// zero mismatches". Source failures are independent: a fetch or
// standardization failure degrades that one SourceCallResult and the
// remaining sources are still attempted.
func (v *LocationValidator) ValidateLocation(ctx context.Context, location string, refs []types.ReferenceRecord) types.LocationReport {
	report := types.LocationReport{
		Location:      location,
		DatabaseLamps: len(refs),
	}

	for i := range refs {
		if report.LatestUpdate == nil || refs[i].LastUpdated.After(*report.LatestUpdate) {
			ts := refs[i].LastUpdated
			report.LatestUpdate = &ts
		}
	}

	cfg, ok := v.table[location]
	if !ok {
		report.Error = types.NewAppError(
			types.ErrCodeNoAPIConfiguration,
			fmt.Sprintf("no API configuration found for %s", location),
			nil,
		)
		v.logger.Warn("location has no API configuration", "location", location)
		return report
	}

	if len(refs) == 0 {
		report.Error = types.NewAppError(
			types.ErrCodeInternalUnexpected,
			fmt.Sprintf("no reference records supplied for %s", location),
			nil,
		)
		return report
	}

	// All lamps at one location report the same ambient measurement, so the
	// first record stands in for the set.
	baseline := refs[0]

	v.logger.Info("validating location",
		"location", location,
		"lamps", len(refs),
		"latest_update", report.LatestUpdate,
		"sources", len(cfg.Sources),
	)

	for _, src := range sortedByPriority(cfg.Sources) {
		result := v.validateSource(ctx, src, baseline)
		report.Summary.TotalAPIs++

		switch result.Status {
		case types.CallFailed:
			report.Summary.FailedAPIs++
		case types.CallStandardizationFailed:
			report.Summary.SuccessfulAPIs++
		case types.CallSuccess:
			report.Summary.SuccessfulAPIs++
			if result.OverallMatch {
				report.Summary.DataMatches++
			} else {
				report.Summary.DataMismatches++
			}
		}

		report.APICalls = append(report.APICalls, result)
	}

	return report
}

// validateSource performs one fetch-standardize-compare cycle.
func (v *LocationValidator) validateSource(ctx context.Context, src types.SourceConfig, baseline types.ReferenceRecord) types.SourceCallResult {
	result := types.SourceCallResult{
		URL:      src.URL,
		Priority: src.Priority,
	}

	v.logger.Info("testing source", "url", src.URL, "priority", src.Priority)

	resp := v.fetcher.Fetch(ctx, src.URL)
	if resp.Err != nil {
		v.logger.Warn("source call failed",
			"url", src.URL,
			"code", resp.Err.Code,
			"error", resp.Err.Message,
		)
		result.Status = types.CallFailed
		result.Error = resp.Err
		return result
	}

	standardized, appErr := v.standardizer.Standardize(resp, src.URL)
	if appErr != nil {
		v.logger.Warn("standardization failed",
			"url", src.URL,
			"code", appErr.Code,
			"error", appErr.Message,
		)
		result.Status = types.CallStandardizationFailed
		result.Error = appErr
		return result
	}

	result.Status = types.CallSuccess
	result.RawResponse = resp.Payload
	result.Standardized = standardized
	result.FieldComparisons = make(map[string]types.FieldComparison, len(types.ComparisonFields))
	result.OverallMatch = true

	for _, field := range types.ComparisonFields {
		candidate := standardized.Field(field)
		if candidate == nil {
			// A source advertised for this location but missing an expected
			// field is a data-quality signal, not a crash.
			result.FieldComparisons[field] = types.FieldComparison{
				Match:  false,
				Reason: types.ReasonFieldNotInAPI,
			}
			result.OverallMatch = false
			v.logger.Warn("field not available in source response", "url", src.URL, "field", field)
			continue
		}

		cmp := Compare(baseline.Field(field), candidate, field)
		result.FieldComparisons[field] = cmp
		if !cmp.Match {
			result.OverallMatch = false
			v.logger.Info("field mismatch",
				"url", src.URL,
				"field", field,
				"reason", cmp.Reason,
				"db", baseline.Field(field),
				"api", candidate,
			)
		}
	}

	return result
}

// sortedByPriority returns the sources ordered by ascending priority rank.
// The sort is stable so equal-priority sources keep their configured order.
func sortedByPriority(sources []types.SourceConfig) []types.SourceConfig {
	out := make([]types.SourceConfig, len(sources))
	copy(out, sources)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority < out[j].Priority
	})
	return out
}
