package types

import "log/slog"

// redacted is the placeholder emitted anywhere a secret would otherwise leak.
const redacted = "***REDACTED***"

// SecretString holds a sensitive value (the database URL) and redacts itself
// in every incidental output path: fmt verbs, JSON encoding, and slog fields.
// Call Unmask at the single point where the raw value is genuinely needed.
type SecretString string

// String implements fmt.Stringer with the redacted placeholder.
func (s SecretString) String() string {
	return redacted
}

// MarshalJSON encodes the redacted placeholder, never the raw value.
func (s SecretString) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// LogValue implements slog.LogValuer so structured log fields are redacted.
func (s SecretString) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

// Unmask returns the raw plaintext value. Limit callers to the spots that
// actually hand the secret to a driver or client.
func (s SecretString) Unmask() string {
	return string(s)
}
