package report

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"lamptruth/internal/types"
)

// CloudWatchClient abstracts the PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Metric and dimension names emitted per run.
const (
	MetricDataMatches        = "DataMatches"
	MetricDataMismatches     = "DataMismatches"
	MetricSuccessfulAPICalls = "SuccessfulAPICalls"
	MetricFailedAPICalls     = "FailedAPICalls"
	MetricRunOutcome         = "RunOutcome"

	DimVerdict = "Verdict"
)

// CloudWatchRunMetrics publishes per-run accuracy counters to CloudWatch so
// data drift can be alarmed on without parsing result files. Emission is
// best-effort: a metrics failure is logged and never fails the run.
type CloudWatchRunMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchRunMetrics creates an emitter publishing to the given
// CloudWatch namespace.
func NewCloudWatchRunMetrics(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchRunMetrics {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchRunMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// EmitRunSummary publishes the run's folded totals plus a verdict-dimensioned
// outcome count.
func (m *CloudWatchRunMetrics) EmitRunSummary(ctx context.Context, summary types.ReconciliationSummary) {
	totals := summary.Totals
	input := &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			counter(MetricDataMatches, totals.TotalMatches),
			counter(MetricDataMismatches, totals.TotalMismatches),
			counter(MetricSuccessfulAPICalls, totals.SuccessfulAPICalls),
			counter(MetricFailedAPICalls, totals.TotalAPICalls-totals.SuccessfulAPICalls),
			{
				MetricName: aws.String(MetricRunOutcome),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{
					{
						Name:  aws.String(DimVerdict),
						Value: aws.String(string(summary.Verdict)),
					},
				},
			},
		},
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to publish run metrics",
			"error", err.Error(),
			"run_id", summary.RunID,
			"namespace", m.namespace,
		)
	}
}

// counter builds a dimensionless count datum.
func counter(name string, value int) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(float64(value)),
		Unit:       cwtypes.StandardUnitCount,
	}
}
