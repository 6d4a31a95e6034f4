package types

import "fmt"

// ErrorCode is a typed string for categorizing validation engine errors.
type ErrorCode string

// Complete error code constants.
// All components MUST use these constants instead of hardcoded strings.
const (
	// Transport boundary (per-source, recoverable)
	ErrCodeFetchTimeout         ErrorCode = "fetch_timeout"
	ErrCodeFetchRequestFailed   ErrorCode = "fetch_request_failed"
	ErrCodeFetchInvalidResponse ErrorCode = "fetch_invalid_response"

	// Standardization (per-source, recoverable)
	ErrCodeStandardizeNoConfig ErrorCode = "standardize_no_config"
	ErrCodeStandardizeFailed   ErrorCode = "standardize_failed"

	// Configuration (per-location, recoverable)
	ErrCodeNoAPIConfiguration ErrorCode = "config_no_api_configuration"
	ErrCodeConfigInvalid      ErrorCode = "config_invalid"

	// Storage
	ErrCodeStorageQuery ErrorCode = "storage_query_failed"

	// Anything not anticipated above (per-location, recovered by the aggregator)
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// IsFetchError reports whether the code belongs to the transport boundary
// taxonomy. Standardization passes these through untouched rather than
// interpreting the error payload as data.
func (c ErrorCode) IsFetchError() bool {
	switch c {
	case ErrCodeFetchTimeout, ErrCodeFetchRequestFailed, ErrCodeFetchInvalidResponse:
		return true
	}
	return false
}

// AppError is the standard application error type used throughout the engine.
// Every failure mode in the validator degrades to a report entry rather than
// a process termination, so AppError carries enough structure (code, message,
// details) to be embedded in a SourceCallResult or LocationReport as data.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError creates a new AppError with the given code, message, and
// optional underlying error. This is the standard constructor for domain errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError carrying structured details
// alongside the code and message.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}
