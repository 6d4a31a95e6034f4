package reconcile

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lamptruth/internal/types"
)

// decode unmarshals a JSON document the way the transport boundary does.
func decode(t *testing.T, doc string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(doc), &v))
	return v
}

func TestExtract(t *testing.T) {
	payload := decode(t, `{
		"parameters": [
			{"name": "hmax", "values": [{"value": 0.85}, {"value": 0.91}]}
		],
		"wind": {"speed": 4.2, "direction": 270},
		"series": {"0": {"height": 1.2}}
	}`)

	tests := []struct {
		name   string
		path   string
		want   any
		absent bool
	}{
		{name: "nested list and object", path: "parameters.0.values.0.value", want: 0.85},
		{name: "plain nested keys", path: "wind.speed", want: 4.2},
		{name: "second list element", path: "parameters.0.values.1.value", want: 0.91},
		{name: "index step against numeric-keyed object", path: "series.0.height", want: 1.2},
		{name: "missing key", path: "wind.gust", absent: true},
		{name: "index out of range", path: "parameters.5.values.0.value", absent: true},
		{name: "stepping into a scalar", path: "wind.speed.0", absent: true},
		{name: "key step against a list", path: "parameters.name", absent: true},
		{name: "empty path", path: "", absent: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Extract(payload, types.ParseFieldPath(tt.path))
			if tt.absent {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Extraction must be total: malformed paths against arbitrary structures
// return absent, never panic.
func TestExtractIsTotal(t *testing.T) {
	inputs := []any{
		nil,
		42.0,
		"scalar",
		[]any{},
		[]any{nil, []any{map[string]any{"k": nil}}},
		map[string]any{"a": map[string]any{"b": nil}},
	}
	paths := []string{
		"a.b.c.d.e",
		"0.0.0.0",
		"k",
		"a.0.b.1.c.2",
		"....",
	}

	for _, in := range inputs {
		for _, p := range paths {
			assert.NotPanics(t, func() {
				Extract(in, types.ParseFieldPath(p))
			})
		}
	}
}

func TestExtractNullLeaf(t *testing.T) {
	payload := decode(t, `{"wave": {"height": null}}`)

	got, ok := Extract(payload, types.ParseFieldPath("wave.height"))
	require.True(t, ok)
	assert.Nil(t, got)
}

func TestAsFloat(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want float64
		ok   bool
	}{
		{name: "float64", in: 0.85, want: 0.85, ok: true},
		{name: "int", in: 270, want: 270, ok: true},
		{name: "quoted numeric", in: "4.25", want: 4.25, ok: true},
		{name: "non-numeric string", in: "calm", ok: false},
		{name: "bool", in: true, ok: false},
		{name: "nil", in: nil, ok: false},
		{name: "object", in: map[string]any{}, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := AsFloat(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
