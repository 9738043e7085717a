package fallback

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/saferoute/saferoute/internal/fallback"

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

// Metrics holds the tier outcome instruments. A nil *Metrics records nothing.
type Metrics struct {
	outcomes metric.Int64Counter
	latency  metric.Float64Histogram
}

// NewMetrics creates the tier instruments on the global meter provider.
func NewMetrics() (*Metrics, error) {
	return NewMetricsWithMeter(otel.Meter(meterName))
}

// NewMetricsWithMeter creates the tier instruments on the given meter.
func NewMetricsWithMeter(meter metric.Meter) (*Metrics, error) {
	outcomes, err := meter.Int64Counter(
		"estimation.tier.outcome",
		metric.WithDescription("Estimation tier attempts by pipeline, tier and result"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, err
	}

	latency, err := meter.Float64Histogram(
		"estimation.tier.duration",
		metric.WithDescription("Duration of estimation tier attempts in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{outcomes: outcomes, latency: latency}, nil
}

func (m *Metrics) record(ctx context.Context, pipeline string, tier Provenance, result string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("pipeline", pipeline),
		attribute.String("tier", string(tier)),
		attribute.String("result", result),
	)
	m.outcomes.Add(ctx, 1, attrs)
	m.latency.Record(ctx, elapsed.Seconds(), attrs)
}
