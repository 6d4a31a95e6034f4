package types

import (
	"encoding/json"
	"strconv"
	"strings"
)

// StepKind discriminates the two traversal step variants.
type StepKind string

const (
	// StepKey looks a name up in an object.
	StepKey StepKind = "key"
	// StepIndex indexes into a sequence.
	StepIndex StepKind = "index"
)

// PathStep is one traversal step of a FieldPath: either a key lookup or a
// numeric index. The closed two-variant shape replaces the untyped dotted
// strings the sources are configured with, so a malformed mapping fails at
// load time instead of silently extracting nothing at lookup time.
type PathStep struct {
	Kind  StepKind `json:"kind"`
	Key   string   `json:"key,omitempty"`
	Index int      `json:"index,omitempty"`
}

// KeyStep returns a key-lookup step.
func KeyStep(key string) PathStep {
	return PathStep{Kind: StepKey, Key: key}
}

// IndexStep returns a sequence-index step.
func IndexStep(i int) PathStep {
	return PathStep{Kind: StepIndex, Index: i}
}

// FieldPath is the parsed form of a source path expression such as
// "parameters.0.values.0". It is an ordered sequence of typed steps.
type FieldPath []PathStep

// ParseFieldPath converts a dotted source path expression into typed steps.
// Segments consisting solely of decimal digits become index steps; everything
// else becomes a key step. An empty expression yields a nil path.
func ParseFieldPath(expr string) FieldPath {
	if expr == "" {
		return nil
	}
	segments := strings.Split(expr, ".")
	path := make(FieldPath, 0, len(segments))
	for _, seg := range segments {
		if idx, err := strconv.Atoi(seg); err == nil && idx >= 0 {
			path = append(path, IndexStep(idx))
			continue
		}
		path = append(path, KeyStep(seg))
	}
	return path
}

// String renders the path back to its dotted configuration form.
func (p FieldPath) String() string {
	var b strings.Builder
	for i, step := range p {
		if i > 0 {
			b.WriteByte('.')
		}
		if step.Kind == StepIndex {
			b.WriteString(strconv.Itoa(step.Index))
		} else {
			b.WriteString(step.Key)
		}
	}
	return b.String()
}

// UnmarshalJSON accepts either the dotted string form used in source
// configuration files, e.g. "hourly.wave_height.0", or an explicit array of
// step objects. The array form exists for sources whose key names contain a
// literal dot ("wind.speed"), which the dotted syntax cannot express.
func (p *FieldPath) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var steps []PathStep
		if err := json.Unmarshal(data, &steps); err != nil {
			return err
		}
		*p = steps
		return nil
	}
	var expr string
	if err := json.Unmarshal(data, &expr); err != nil {
		return err
	}
	*p = ParseFieldPath(expr)
	return nil
}

// MarshalJSON renders the dotted string form, falling back to the step-array
// form when a key contains a literal dot and would not round-trip.
func (p FieldPath) MarshalJSON() ([]byte, error) {
	for _, step := range p {
		if step.Kind == StepKey && strings.Contains(step.Key, ".") {
			return json.Marshal([]PathStep(p))
		}
	}
	return json.Marshal(p.String())
}
