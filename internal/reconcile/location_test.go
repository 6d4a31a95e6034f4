package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lamptruth/internal/types"
)

// stubFetcher serves canned responses keyed by URL and records call order.
type stubFetcher struct {
	responses map[string]types.RawSourceResponse
	calls     []string
}

func (f *stubFetcher) Fetch(_ context.Context, url string) types.RawSourceResponse {
	f.calls = append(f.calls, url)
	if resp, ok := f.responses[url]; ok {
		return resp
	}
	return types.RawSourceResponse{
		Err: types.NewAppError(types.ErrCodeFetchRequestFailed, "no canned response", nil),
	}
}

func haderaRefs() []types.ReferenceRecord {
	updated := time.Date(2026, 3, 14, 8, 45, 0, 0, time.UTC)
	older := updated.Add(-30 * time.Minute)
	return []types.ReferenceRecord{
		{LampID: 101, WaveHeightM: fv(0.82), WavePeriodS: fv(8.5), WindSpeedMps: fv(4.2), WindDirection: fv(270), LastUpdated: updated, Location: "Hadera", Username: "gal"},
		{LampID: 102, WaveHeightM: fv(0.82), WavePeriodS: fv(8.5), WindSpeedMps: fv(4.2), WindDirection: fv(270), LastUpdated: older, Location: "Hadera", Username: "noa"},
	}
}

// fullTable configures a single source carrying all four canonical fields,
// which keeps per-scenario payloads simple.
func fullTable(urls ...string) types.LocationTable {
	sources := make([]types.SourceConfig, len(urls))
	for i, u := range urls {
		sources[i] = types.SourceConfig{
			URL:      u,
			Priority: i + 1,
			FieldMappings: map[string]types.FieldPath{
				types.FieldWaveHeight:    types.ParseFieldPath("wave.height"),
				types.FieldWavePeriod:    types.ParseFieldPath("wave.period"),
				types.FieldWindSpeed:     types.ParseFieldPath("wind.speed"),
				types.FieldWindDirection: types.ParseFieldPath("wind.direction"),
			},
		}
	}
	return types.LocationTable{"Hadera": {Sources: sources}}
}

func newValidator(table types.LocationTable, fetcher Fetcher) *LocationValidator {
	std := NewStandardizer(table, testLogger(), WithClock(fixedClock()))
	return NewLocationValidator(table, fetcher, std, testLogger())
}

func matchingPayload(t *testing.T) any {
	return decode(t, `{
		"wave": {"height": 0.85, "period": 8.5},
		"wind": {"speed": 4.2, "direction": 268}
	}`)
}

func TestValidateLocationUnconfigured(t *testing.T) {
	fetcher := &stubFetcher{}
	v := newValidator(fullTable("https://a.example.com"), fetcher)

	report := v.ValidateLocation(context.Background(), "Atlantis", haderaRefs())

	require.NotNil(t, report.Error)
	assert.Equal(t, types.ErrCodeNoAPIConfiguration, report.Error.Code)
	assert.Empty(t, report.APICalls, "an unconfigured location attempts zero source calls")
	assert.Empty(t, fetcher.calls)
}

func TestValidateLocationOneTimeoutOneSuccess(t *testing.T) {
	timeoutURL := "https://slow.example.com/hadera"
	okURL := "https://marine.example.com/hadera"

	fetcher := &stubFetcher{responses: map[string]types.RawSourceResponse{
		timeoutURL: {Err: types.NewAppError(types.ErrCodeFetchTimeout, "API call timed out after 15s", nil)},
		okURL:      {Payload: matchingPayload(t)},
	}}
	v := newValidator(fullTable(timeoutURL, okURL), fetcher)

	report := v.ValidateLocation(context.Background(), "Hadera", haderaRefs())

	require.Nil(t, report.Error)
	assert.Equal(t, types.ValidationSummary{
		TotalAPIs:      2,
		SuccessfulAPIs: 1,
		FailedAPIs:     1,
		DataMatches:    1,
		DataMismatches: 0,
	}, report.Summary)

	require.Len(t, report.APICalls, 2)
	assert.Equal(t, types.CallFailed, report.APICalls[0].Status)
	assert.Equal(t, types.ErrCodeFetchTimeout, report.APICalls[0].Error.Code)
	assert.Equal(t, types.CallSuccess, report.APICalls[1].Status)
	assert.True(t, report.APICalls[1].OverallMatch)
}

func TestValidateLocationMissingFieldForcesMismatch(t *testing.T) {
	url := "https://marine.example.com/hadera"
	// Three of four fields present and matching; direction missing.
	fetcher := &stubFetcher{responses: map[string]types.RawSourceResponse{
		url: {Payload: decode(t, `{
			"wave": {"height": 0.82, "period": 8.5},
			"wind": {"speed": 4.2}
		}`)},
	}}
	v := newValidator(fullTable(url), fetcher)

	report := v.ValidateLocation(context.Background(), "Hadera", haderaRefs())

	require.Len(t, report.APICalls, 1)
	call := report.APICalls[0]
	require.Equal(t, types.CallSuccess, call.Status)
	assert.False(t, call.OverallMatch)

	cmp := call.FieldComparisons[types.FieldWindDirection]
	assert.False(t, cmp.Match)
	assert.Equal(t, types.ReasonFieldNotInAPI, cmp.Reason)

	for _, f := range []string{types.FieldWaveHeight, types.FieldWavePeriod, types.FieldWindSpeed} {
		assert.True(t, call.FieldComparisons[f].Match, f)
	}

	assert.Equal(t, 1, report.Summary.DataMismatches)
	assert.Zero(t, report.Summary.DataMatches)
}

func TestValidateLocationSourcesRunInPriorityOrder(t *testing.T) {
	first := "https://primary.example.com"
	second := "https://secondary.example.com"
	third := "https://tertiary.example.com"

	// Configure out of order; priority must decide iteration.
	table := types.LocationTable{"Hadera": {Sources: []types.SourceConfig{
		{URL: third, Priority: 3, FieldMappings: map[string]types.FieldPath{types.FieldWaveHeight: types.ParseFieldPath("wave.height")}},
		{URL: first, Priority: 1, FieldMappings: map[string]types.FieldPath{types.FieldWaveHeight: types.ParseFieldPath("wave.height")}},
		{URL: second, Priority: 2, FieldMappings: map[string]types.FieldPath{types.FieldWaveHeight: types.ParseFieldPath("wave.height")}},
	}}}

	fetcher := &stubFetcher{responses: map[string]types.RawSourceResponse{}}
	v := newValidator(table, fetcher)

	report := v.ValidateLocation(context.Background(), "Hadera", haderaRefs())

	assert.Equal(t, []string{first, second, third}, fetcher.calls)
	// All sources are always attempted; priority never short-circuits.
	assert.Equal(t, 3, report.Summary.TotalAPIs)
	assert.Equal(t, 3, report.Summary.FailedAPIs)
}

func TestValidateLocationStandardizationFailureContinues(t *testing.T) {
	okURL := "https://marine.example.com/hadera"
	strayURL := "https://stray.example.com/hadera"

	table := fullTable(strayURL, okURL)
	// Remove the stray URL's config from the table the standardizer sees, so
	// its fetch succeeds but standardization returns no_config.
	std := NewStandardizer(fullTable(okURL), testLogger(), WithClock(fixedClock()))
	fetcher := &stubFetcher{responses: map[string]types.RawSourceResponse{
		strayURL: {Payload: decode(t, `{}`)},
		okURL:    {Payload: matchingPayload(t)},
	}}
	v := NewLocationValidator(table, fetcher, std, testLogger())

	report := v.ValidateLocation(context.Background(), "Hadera", haderaRefs())

	require.Len(t, report.APICalls, 2)
	assert.Equal(t, types.CallStandardizationFailed, report.APICalls[0].Status)
	assert.Equal(t, types.ErrCodeStandardizeNoConfig, report.APICalls[0].Error.Code)
	assert.Equal(t, types.CallSuccess, report.APICalls[1].Status)

	// A standardization failure still counts the API as reachable.
	assert.Equal(t, 2, report.Summary.SuccessfulAPIs)
	assert.Zero(t, report.Summary.FailedAPIs)
	assert.Equal(t, 1, report.Summary.DataMatches)
}

func TestValidateLocationReportMetadata(t *testing.T) {
	url := "https://marine.example.com/hadera"
	fetcher := &stubFetcher{responses: map[string]types.RawSourceResponse{
		url: {Payload: matchingPayload(t)},
	}}
	v := newValidator(fullTable(url), fetcher)

	refs := haderaRefs()
	report := v.ValidateLocation(context.Background(), "Hadera", refs)

	assert.Equal(t, "Hadera", report.Location)
	assert.Equal(t, 2, report.DatabaseLamps)
	require.NotNil(t, report.LatestUpdate)
	assert.Equal(t, refs[0].LastUpdated, *report.LatestUpdate)
}
