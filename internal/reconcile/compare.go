package reconcile

import (
	"math"
	"strconv"

	"lamptruth/internal/types"
)

// DefaultTolerance is the absolute tolerance applied to the linear numeric
// fields (wave height, wave period, wind speed), in each field's own unit.
const DefaultTolerance = 0.1

// WindDirectionTolerance is the circular tolerance for wind bearing, degrees.
const WindDirectionTolerance = 10.0

// Compare evaluates one field's agreement between the stored reference value
// and the standardized source value using the default tolerance.
func Compare(reference, candidate *float64, field string) types.FieldComparison {
	return CompareWithTolerance(reference, candidate, field, DefaultTolerance)
}

// CompareWithTolerance evaluates one field's agreement under an explicit
// linear tolerance. Rules apply in this order:
//
//  1. Both values null: match, both_null.
//  2. Exactly one null: no match, one_null.
//  3. Linear fields (wave_height_m, wave_period_s, wind_speed_mps):
//     match iff |ref - candidate| <= tolerance.
//  4. wind_direction_deg: circular difference (d = |a-b|; if d > 180 then
//     360 - d), match iff d <= 10. Bearings wrap: 359 and 1 are 2 apart.
//  5. Any other field: exact equality, no tolerance.
//
// The tolerance argument only affects rule 3; wind direction always uses the
// fixed circular tolerance.
func CompareWithTolerance(reference, candidate *float64, field string, tolerance float64) types.FieldComparison {
	if reference == nil && candidate == nil {
		return types.FieldComparison{Match: true, Reason: types.ReasonBothNull}
	}
	if reference == nil || candidate == nil {
		return types.FieldComparison{
			Match:     false,
			Reason:    types.ReasonOneNull,
			Reference: reference,
			Candidate: candidate,
		}
	}

	meta, known := types.StandardFields[field]
	switch {
	case known && !meta.Circular:
		diff := math.Abs(*reference - *candidate)
		if diff <= tolerance {
			return types.FieldComparison{
				Match:      true,
				Reason:     types.ReasonWithinTolerance,
				Difference: &diff,
			}
		}
		return types.FieldComparison{
			Match:      false,
			Reason:     types.ReasonExceedsTolerance,
			Difference: &diff,
			Reference:  reference,
			Candidate:  candidate,
		}

	case known && meta.Circular:
		diff := math.Abs(*reference - *candidate)
		if diff > 180 {
			diff = 360 - diff
		}
		if diff <= meta.Tolerance {
			return types.FieldComparison{
				Match:      true,
				Reason:     types.ReasonWithinTolerance,
				Difference: &diff,
			}
		}
		return types.FieldComparison{
			Match:      false,
			Reason:     types.ReasonExceedsTolerance,
			Difference: &diff,
			Reference:  reference,
			Candidate:  candidate,
		}
	}

	// Unknown field: exact match only.
	if formatValue(*reference) == formatValue(*candidate) {
		return types.FieldComparison{Match: true, Reason: types.ReasonExactMatch}
	}
	return types.FieldComparison{
		Match:     false,
		Reason:    types.ReasonNoMatch,
		Reference: reference,
		Candidate: candidate,
	}
}

// formatValue renders a value for the exact-equality rule the same way it
// would appear in a report, so -0 and 0 compare equal.
func formatValue(v float64) string {
	if v == 0 {
		v = 0 // normalize negative zero
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
