package report

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lamptruth/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sinkClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	}
}

func sampleSummary() types.ReconciliationSummary {
	return types.ReconciliationSummary{
		RunID:   "run-test",
		Verdict: types.VerdictPerfectAccuracy,
		Totals: types.RunTotals{
			TotalLocations:      1,
			SuccessfulLocations: 1,
			TotalAPICalls:       2,
			SuccessfulAPICalls:  2,
			TotalMatches:        2,
		},
		Locations: []types.LocationReport{{Location: "Hadera", DatabaseLamps: 3}},
	}
}

func TestFileSinkWritesTimestampedJSON(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir, testLogger(), WithSinkClock(sinkClock()))

	path, err := sink.Write(sampleSummary())
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "api_validation_results_20260314_090000.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var back types.ReconciliationSummary
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "run-test", back.RunID)
	assert.Equal(t, types.VerdictPerfectAccuracy, back.Verdict)
	require.Len(t, back.Locations, 1)
	assert.Equal(t, "Hadera", back.Locations[0].Location)
}

func TestFileSinkCompressed(t *testing.T) {
	dir := t.TempDir()
	sink := NewFileSink(dir, testLogger(), WithSinkClock(sinkClock()), WithCompression(true))

	path, err := sink.Write(sampleSummary())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "api_validation_results_20260314_090000.json.zst"), path)

	compressed, err := os.ReadFile(path)
	require.NoError(t, err)

	r, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer r.Close()

	raw, err := r.DecodeAll(compressed, nil)
	require.NoError(t, err)

	var back types.ReconciliationSummary
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, "run-test", back.RunID)
}

func TestFileSinkUnwritableDir(t *testing.T) {
	sink := NewFileSink(filepath.Join(t.TempDir(), "missing", "nested"), testLogger(), WithSinkClock(sinkClock()))

	_, err := sink.Write(sampleSummary())
	assert.Error(t, err)
}
