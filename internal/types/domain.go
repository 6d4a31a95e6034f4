package types

import (
	"encoding/json"
	"strings"
	"time"
)

// Canonical measurement field names. Every source, regardless of its own
// response shape, is standardized into a subset of these four fields.
const (
	FieldWaveHeight    = "wave_height_m"
	FieldWavePeriod    = "wave_period_s"
	FieldWindSpeed     = "wind_speed_mps"
	FieldWindDirection = "wind_direction_deg"
)

// ComparisonFields lists the canonical fields in their fixed comparison and
// reporting order.
var ComparisonFields = []string{
	FieldWaveHeight,
	FieldWavePeriod,
	FieldWindSpeed,
	FieldWindDirection,
}

// FieldMetadata defines the canonical rules for one measurement field.
type FieldMetadata struct {
	ID          string  `json:"id"`
	Unit        string  `json:"unit"`
	Tolerance   float64 `json:"tolerance"`
	Circular    bool    `json:"circular"`
	Description string  `json:"description"`
}

// StandardFields defines the authoritative comparison policy for the engine.
// The two tolerance constants (0.1 absolute, 10 degrees circular) are the
// load-bearing numeric policy of the whole system; wind bearing is a cyclic
// quantity and gets the circular rule, the rest are linear.
var StandardFields = map[string]FieldMetadata{
	FieldWaveHeight:    {ID: FieldWaveHeight, Unit: "m", Tolerance: 0.1, Description: "Significant wave height"},
	FieldWavePeriod:    {ID: FieldWavePeriod, Unit: "s", Tolerance: 0.1, Description: "Dominant wave period"},
	FieldWindSpeed:     {ID: FieldWindSpeed, Unit: "mps", Tolerance: 0.1, Description: "Wind speed at 10m above sea level"},
	FieldWindDirection: {ID: FieldWindDirection, Unit: "deg", Tolerance: 10, Circular: true, Description: "Wind bearing, degrees clockwise from north"},
}

// ReferenceRecord is one stored measurement snapshot for a physical lamp at a
// location. It is read-only to the engine: records are fetched once per run
// by the storage collaborator and never written back.
type ReferenceRecord struct {
	LampID        int64     `json:"lamp_id" db:"lamp_id"`
	WaveHeightM   *float64  `json:"wave_height_m" db:"wave_height_m"`
	WavePeriodS   *float64  `json:"wave_period_s" db:"wave_period_s"`
	WindSpeedMps  *float64  `json:"wind_speed_mps" db:"wind_speed_mps"`
	WindDirection *float64  `json:"wind_direction_deg" db:"wind_direction_deg"`
	LastUpdated   time.Time `json:"last_updated" db:"last_updated"`
	Location      string    `json:"location" db:"location"`
	Username      string    `json:"username" db:"username"`
}

// Field returns the named canonical field value, or nil when the column is
// null or the name is not a canonical field.
func (r *ReferenceRecord) Field(name string) *float64 {
	switch name {
	case FieldWaveHeight:
		return r.WaveHeightM
	case FieldWavePeriod:
		return r.WavePeriodS
	case FieldWindSpeed:
		return r.WindSpeedMps
	case FieldWindDirection:
		return r.WindDirection
	}
	return nil
}

// SourceConfig describes one third-party source for a location: where to
// fetch, how to rank it in reports, and how to map its response shape onto
// the canonical fields.
type SourceConfig struct {
	URL string `json:"url" validate:"required,url"`
	// Priority ranks sources for reporting and iteration order only
	// (lower = preferred). Every configured source is always attempted.
	Priority      int                  `json:"priority" validate:"gte=0"`
	Kind          SourceKind           `json:"kind" validate:"omitempty,oneof=wave wind"`
	FieldMappings map[string]FieldPath `json:"field_mappings" validate:"required,min=1"`
}

// LocationConfig is the ordered source list for one location.
type LocationConfig struct {
	Sources []SourceConfig `json:"sources" validate:"required,min=1,dive"`
}

// UnmarshalJSON accepts the three historical file shapes for a location's
// sources: a bare array, an object keyed "sources", or the legacy object
// keyed "APIs". All of them land in the one Sources list so nothing else in
// the engine has to know the file's vintage.
func (c *LocationConfig) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(data, &c.Sources)
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	for _, key := range []string{"sources", "APIs", "apis"} {
		if raw, ok := obj[key]; ok {
			return json.Unmarshal(raw, &c.Sources)
		}
	}
	c.Sources = nil
	return nil
}

// LocationTable maps location name to its source configuration. Loaded once
// at process start; read-only thereafter.
type LocationTable map[string]LocationConfig

// SourceByURL finds the SourceConfig for a URL anywhere in the table.
// Returns false when no location configures that URL.
func (t LocationTable) SourceByURL(url string) (SourceConfig, bool) {
	for _, loc := range t {
		for _, src := range loc.Sources {
			if src.URL == url {
				return src, true
			}
		}
	}
	return SourceConfig{}, false
}

// RawSourceResponse is what the transport boundary hands back for one fetch:
// either a decoded payload in whatever nested shape the source uses, or a
// fetch error, never both and never a partially valid mix.
type RawSourceResponse struct {
	Payload any
	Err     *AppError
}

// StandardizedRecord is the canonical shape produced from one raw source
// response: the mapped subset of canonical fields, a capture timestamp, and
// the originating source URL. Fields the source does not carry are omitted,
// never set to a placeholder.
type StandardizedRecord struct {
	Fields    map[string]float64 `json:"fields"`
	Timestamp int64              `json:"timestamp"`
	SourceURL string             `json:"source_endpoint"`
}

// Field returns the named field value, or nil when the source omitted it.
func (r *StandardizedRecord) Field(name string) *float64 {
	if r == nil || r.Fields == nil {
		return nil
	}
	if v, ok := r.Fields[name]; ok {
		return &v
	}
	return nil
}

// FieldComparison is the result of comparing one field between the stored
// record and a standardized source record. Created fresh per field per source
// call and never mutated.
type FieldComparison struct {
	Match      bool        `json:"match"`
	Reason     MatchReason `json:"reason"`
	Difference *float64    `json:"difference,omitempty"`
	Reference  *float64    `json:"db,omitempty"`
	Candidate  *float64    `json:"api,omitempty"`
}

// SourceCallResult wraps one source attempt within a location run.
// On success the raw response, standardized record, and per-field comparisons
// are populated; on failure only Error is.
type SourceCallResult struct {
	URL              string                     `json:"url"`
	Priority         int                        `json:"priority"`
	Status           CallStatus                 `json:"status"`
	Error            *AppError                  `json:"error,omitempty"`
	RawResponse      any                        `json:"raw_data,omitempty"`
	Standardized     *StandardizedRecord        `json:"standardized_data,omitempty"`
	FieldComparisons map[string]FieldComparison `json:"field_comparisons,omitempty"`
	// OverallMatch is the logical AND across all compared fields; a field
	// absent from the source counts as a non-match.
	OverallMatch bool `json:"overall_match"`
}

// ValidationSummary tallies the source attempts within one location run.
type ValidationSummary struct {
	TotalAPIs      int `json:"total_apis"`
	SuccessfulAPIs int `json:"successful_apis"`
	FailedAPIs     int `json:"failed_apis"`
	DataMatches    int `json:"data_matches"`
	DataMismatches int `json:"data_mismatches"`
}

// LocationReport is one location's full validation run. A location missing
// from the configuration table produces a report with Error set and zero
// source calls, which is distinguishable from "ran and found no mismatches".
type LocationReport struct {
	Location      string             `json:"location"`
	DatabaseLamps int                `json:"database_lamps"`
	LatestUpdate  *time.Time         `json:"latest_update,omitempty"`
	APICalls      []SourceCallResult `json:"api_calls"`
	Summary       ValidationSummary  `json:"validation_summary"`
	Error         *AppError          `json:"error,omitempty"`
}

// RunTotals holds the global counters folded from every LocationReport.
type RunTotals struct {
	TotalLocations      int `json:"total_locations"`
	SuccessfulLocations int `json:"successful_validations"`
	TotalAPICalls       int `json:"total_api_calls"`
	SuccessfulAPICalls  int `json:"successful_api_calls"`
	TotalMatches        int `json:"total_matches"`
	TotalMismatches     int `json:"total_mismatches"`
}

// ReconciliationSummary is the global result of one validation run. It is a
// plain serializable value: no cyclic references, leaves are numbers, strings,
// timestamps, and nested records. Persistence is the caller's concern.
type ReconciliationSummary struct {
	RunID      string           `json:"run_id"`
	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Verdict    Verdict          `json:"verdict"`
	Totals     RunTotals        `json:"summary"`
	Locations  []LocationReport `json:"detailed_results"`
}
