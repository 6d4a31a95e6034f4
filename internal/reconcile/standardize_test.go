package reconcile

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lamptruth/internal/types"
)

const (
	marineURL = "https://marine.example.com/v1/point?loc=hadera"
	windURL   = "https://wind.example.com/v1/obs?loc=hadera"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testTable() types.LocationTable {
	return types.LocationTable{
		"Hadera": {Sources: []types.SourceConfig{
			{
				URL:      marineURL,
				Priority: 1,
				Kind:     types.SourceKindWave,
				FieldMappings: map[string]types.FieldPath{
					types.FieldWaveHeight: types.ParseFieldPath("parameters.0.values.0.value"),
					types.FieldWavePeriod: types.ParseFieldPath("parameters.1.values.0.value"),
				},
			},
			{
				URL:      windURL,
				Priority: 2,
				Kind:     types.SourceKindWind,
				FieldMappings: map[string]types.FieldPath{
					types.FieldWindSpeed:     types.ParseFieldPath("wind.speed"),
					types.FieldWindDirection: types.ParseFieldPath("wind.direction"),
				},
			},
		}},
	}
}

func fixedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	}
}

func TestStandardizeMapsFields(t *testing.T) {
	std := NewStandardizer(testTable(), testLogger(), WithClock(fixedClock()))

	payload := decode(t, `{
		"parameters": [
			{"name": "hmax", "values": [{"value": 0.85}]},
			{"name": "tz", "values": [{"value": 8.4}]}
		]
	}`)

	rec, appErr := std.Standardize(types.RawSourceResponse{Payload: payload}, marineURL)
	require.Nil(t, appErr)
	require.NotNil(t, rec)

	assert.Equal(t, map[string]float64{
		types.FieldWaveHeight: 0.85,
		types.FieldWavePeriod: 8.4,
	}, rec.Fields)
	assert.Equal(t, fixedClock()().Unix(), rec.Timestamp)
	assert.Equal(t, marineURL, rec.SourceURL)
}

func TestStandardizeOmitsAbsentFields(t *testing.T) {
	std := NewStandardizer(testTable(), testLogger(), WithClock(fixedClock()))

	// The wind source answered but dropped the direction branch entirely.
	payload := decode(t, `{"wind": {"speed": 4.2}}`)

	rec, appErr := std.Standardize(types.RawSourceResponse{Payload: payload}, windURL)
	require.Nil(t, appErr)

	assert.Equal(t, map[string]float64{types.FieldWindSpeed: 4.2}, rec.Fields)
	_, present := rec.Fields[types.FieldWindDirection]
	assert.False(t, present, "absent fields are omitted, never placeholdered")
}

func TestStandardizeSkipsNullAndNonNumericValues(t *testing.T) {
	std := NewStandardizer(testTable(), testLogger(), WithClock(fixedClock()))

	payload := decode(t, `{"wind": {"speed": null, "direction": "variable"}}`)

	rec, appErr := std.Standardize(types.RawSourceResponse{Payload: payload}, windURL)
	require.Nil(t, appErr)
	assert.Empty(t, rec.Fields)
}

func TestStandardizePassesFetchErrorThrough(t *testing.T) {
	std := NewStandardizer(testTable(), testLogger())

	fetchErr := types.NewAppError(types.ErrCodeFetchTimeout, "API call timed out after 15s", nil)
	rec, appErr := std.Standardize(types.RawSourceResponse{Err: fetchErr}, marineURL)

	assert.Nil(t, rec)
	// Propagated unchanged: standardization never reinterprets an error payload.
	assert.Same(t, fetchErr, appErr)
}

func TestStandardizeNoConfigForURL(t *testing.T) {
	std := NewStandardizer(testTable(), testLogger())

	rec, appErr := std.Standardize(
		types.RawSourceResponse{Payload: map[string]any{}},
		"https://marine.example.com/v1/point?loc=elsewhere",
	)

	assert.Nil(t, rec)
	require.NotNil(t, appErr)
	assert.Equal(t, types.ErrCodeStandardizeNoConfig, appErr.Code)
}
