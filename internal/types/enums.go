package types

// CallStatus represents the outcome of a single source attempt.
type CallStatus string

const (
	CallFailed                CallStatus = "failed"
	CallStandardizationFailed CallStatus = "standardization_failed"
	CallSuccess               CallStatus = "success"
)

// MatchReason explains the outcome of one field comparison.
type MatchReason string

const (
	ReasonBothNull         MatchReason = "both_null"
	ReasonOneNull          MatchReason = "one_null"
	ReasonWithinTolerance  MatchReason = "within_tolerance"
	ReasonExceedsTolerance MatchReason = "exceeds_tolerance"
	ReasonExactMatch       MatchReason = "exact_match"
	ReasonNoMatch          MatchReason = "no_match"
	ReasonFieldNotInAPI    MatchReason = "field_not_in_api"
)

// SourceKind tags what a source reports. Used only for reporting; comparison
// semantics are keyed by field name, not source kind.
type SourceKind string

const (
	SourceKindWave SourceKind = "wave"
	SourceKindWind SourceKind = "wind"
)

// Verdict classifies a completed reconciliation run.
type Verdict string

const (
	// VerdictPerfectAccuracy: zero mismatches and at least one successful source call.
	VerdictPerfectAccuracy Verdict = "perfect_accuracy"
	// VerdictDataDrift: one or more stored values disagree with a live source.
	VerdictDataDrift Verdict = "data_drift"
	// VerdictValidationFailed: no source call succeeded anywhere in the run.
	VerdictValidationFailed Verdict = "validation_failed"
)
