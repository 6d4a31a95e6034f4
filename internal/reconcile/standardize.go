package reconcile

import (
	"fmt"
	"log/slog"
	"time"

	"lamptruth/internal/types"
)

// Standardizer transforms raw source responses into canonical measurement
// records using the field mappings from the location source table.
// The table is read-only; a Standardizer is safe for concurrent use.
type Standardizer struct {
	table  types.LocationTable
	now    func() time.Time
	logger *slog.Logger
}

// StandardizerOption configures a Standardizer.
type StandardizerOption func(*Standardizer)

// WithClock overrides the capture-timestamp clock. Intended for tests.
func WithClock(now func() time.Time) StandardizerOption {
	return func(s *Standardizer) {
		s.now = now
	}
}

// NewStandardizer creates a Standardizer over the given location source table.
func NewStandardizer(table types.LocationTable, logger *slog.Logger, opts ...StandardizerOption) *Standardizer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Standardizer{
		table:  table,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Standardize converts one raw source response into a StandardizedRecord
// keyed by the canonical field names.
//
// A fetch error on the response is returned unchanged: standardization never
// interprets an error payload as data. A URL with no SourceConfig anywhere in
// the table yields standardize_no_config; that is a configuration/URL
// mismatch and must surface rather than be silently skipped.
//
// Mapped fields that are absent from the payload, null, or non-numeric are
// omitted from the record, never set to a placeholder.
func (s *Standardizer) Standardize(resp types.RawSourceResponse, sourceURL string) (rec *types.StandardizedRecord, appErr *types.AppError) {
	if resp.Err != nil {
		return nil, resp.Err
	}

	cfg, ok := s.table.SourceByURL(sourceURL)
	if !ok {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeStandardizeNoConfig,
			fmt.Sprintf("no configuration found for %s", sourceURL),
			nil,
			map[string]any{"url": sourceURL},
		)
	}

	// Mapping tables come from operator-edited files; a malformed payload
	// combination must degrade to a standardize_failed result, not take the
	// run down.
	defer func() {
		if r := recover(); r != nil {
			rec = nil
			appErr = types.NewAppError(
				types.ErrCodeStandardizeFailed,
				fmt.Sprintf("standardization panicked for %s: %v", sourceURL, r),
				nil,
			)
		}
	}()

	fields := make(map[string]float64, len(cfg.FieldMappings))
	for target, path := range cfg.FieldMappings {
		value, ok := Extract(resp.Payload, path)
		if !ok || value == nil {
			continue
		}
		f, ok := AsFloat(value)
		if !ok {
			s.logger.Warn("mapped value is not numeric, omitting field",
				"url", sourceURL,
				"field", target,
				"path", path.String(),
			)
			continue
		}
		fields[target] = f
	}

	return &types.StandardizedRecord{
		Fields:    fields,
		Timestamp: s.now().Unix(),
		SourceURL: sourceURL,
	}, nil
}
