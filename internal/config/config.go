// Package config defines the configuration for the truth validator.
// Configuration is loaded once at process start and immutable thereafter,
// strictly separating code from configuration: there are no embedded
// connection strings, credentials, or fallback sample data anywhere in the
// engine. Any missing required value or invalid format fails the process
// immediately on startup.
package config

import (
	"time"

	"lamptruth/internal/types"
)

// SecretString is an alias for types.SecretString, used for values that must
// never appear in logs or serialized output.
type SecretString = types.SecretString

// Config is the top-level configuration for a validation run. Sub-components
// receive only the subsets they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Database  DatabaseConfig
	Validator ValidatorConfig
	Report    ReportConfig
	AWS       AWSConfig
}

// DatabaseConfig holds database connection and pool tuning parameters.
type DatabaseConfig struct {
	URL SecretString `envconfig:"DATABASE_URL" validate:"required"`

	MaxConns        int           `envconfig:"DB_MAX_CONNS" default:"4"`
	MinConns        int           `envconfig:"DB_MIN_CONNS" default:"1"`
	MaxConnLifetime time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	AcquireTimeout  time.Duration `envconfig:"DB_ACQUIRE_TIMEOUT" default:"2s"`
}

// ValidatorConfig holds the knobs of the validation run itself.
type ValidatorConfig struct {
	// SourcesFile is the path of the location source table (JSON).
	SourcesFile string `envconfig:"SOURCES_FILE" validate:"required"`
	// FetchTimeout bounds each individual source call.
	FetchTimeout time.Duration `envconfig:"FETCH_TIMEOUT" default:"15s"`
	UserAgent    string        `envconfig:"VALIDATOR_USER_AGENT" default:"SurfLamp-Truth-Validator/1.0"`
	// Concurrency bounds how many locations are validated in parallel.
	Concurrency int `envconfig:"VALIDATOR_CONCURRENCY" default:"1" validate:"gte=1"`
}

// ReportConfig controls where and how the run summary is persisted.
type ReportConfig struct {
	OutputDir string `envconfig:"RESULTS_DIR" default:"."`
	// Compress writes results as zstd-compressed .json.zst archives.
	Compress bool `envconfig:"RESULTS_COMPRESS" default:"false"`

	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"SurfLampValidator"`
}

// AWSConfig holds regional configuration for the CloudWatch metrics emitter.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`
	// EndpointURL supports LocalStack in local dev; empty in prod.
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrParsing indicates a failure turning environment values into their
	// target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrSourceTable indicates the location source table could not be loaded.
	ErrSourceTable ConfigErrorType = "SOURCE_TABLE_INVALID"
)
