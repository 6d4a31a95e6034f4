// Package report implements the report-sink side of the validator: the core
// hands over a fully serializable ReconciliationSummary and this package
// decides what to do with it. Two sinks exist: a timestamped results file
// (optionally zstd-compressed) and a CloudWatch metrics emitter.
package report

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"lamptruth/internal/types"
)

// resultsTimeFormat names result files the way operators already grep for
// them: api_validation_results_20260314_090000.json
const resultsTimeFormat = "20060102_150405"

// FileSink writes run summaries to timestamped JSON files in a directory.
type FileSink struct {
	dir      string
	compress bool
	now      func() time.Time
	logger   *slog.Logger
}

// FileSinkOption configures a FileSink.
type FileSinkOption func(*FileSink)

// WithCompression enables zstd compression of written results.
func WithCompression(enabled bool) FileSinkOption {
	return func(s *FileSink) {
		s.compress = enabled
	}
}

// WithSinkClock overrides the filename timestamp clock. Intended for tests.
func WithSinkClock(now func() time.Time) FileSinkOption {
	return func(s *FileSink) {
		s.now = now
	}
}

// NewFileSink creates a FileSink writing into dir.
func NewFileSink(dir string, logger *slog.Logger, opts ...FileSinkOption) *FileSink {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FileSink{
		dir:    dir,
		now:    time.Now,
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Write persists the summary and returns the path it was written to.
func (s *FileSink) Write(summary types.ReconciliationSummary) (string, error) {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding summary: %w", err)
	}

	name := fmt.Sprintf("api_validation_results_%s.json", s.now().Format(resultsTimeFormat))
	if s.compress {
		name += ".zst"
		data, err = compressZstd(data)
		if err != nil {
			return "", fmt.Errorf("compressing summary: %w", err)
		}
	}

	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}

	s.logger.Info("detailed results saved",
		"path", path,
		"bytes", len(data),
		"compressed", s.compress,
	)
	return path, nil
}

// compressZstd compresses the encoded summary with default zstd settings.
func compressZstd(data []byte) ([]byte, error) {
	w, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer w.Close()
	return w.EncodeAll(data, nil), nil
}
