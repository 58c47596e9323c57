package usecase

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const instrumentationName = "github.com/obkaraca/sportsmaker-backend-sub001/services/payment-service"

var tracer = otel.Tracer(instrumentationName)

// Metrics records reconciliation counters through OpenTelemetry.
type Metrics struct {
	outcomes        metric.Int64Counter
	raceLost        metric.Int64Counter
	effectsFailures metric.Int64Counter
	gatewayLatency  metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	outcomes, err := meter.Int64Counter("payment_reconciliation_outcomes_total",
		metric.WithDescription("Canonical outcomes produced by reconciliation, by channel."))
	if err != nil {
		return nil, err
	}
	raceLost, err := meter.Int64Counter("payment_reconciliation_race_lost_total",
		metric.WithDescription("Terminal writes that found the transaction already terminal."))
	if err != nil {
		return nil, err
	}
	effectsFailures, err := meter.Int64Counter("payment_side_effect_failures_total",
		metric.WithDescription("Side-effect or notification runs that did not finish."))
	if err != nil {
		return nil, err
	}
	gatewayLatency, err := meter.Float64Histogram("payment_gateway_call_duration_seconds",
		metric.WithDescription("Latency of payment gateway calls."),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}
	return &Metrics{
		outcomes:        outcomes,
		raceLost:        raceLost,
		effectsFailures: effectsFailures,
		gatewayLatency:  gatewayLatency,
	}, nil
}

// NoopMetrics discards everything.
func NoopMetrics() *Metrics {
	m, _ := NewMetrics(noop.NewMeterProvider().Meter(instrumentationName))
	return m
}

func (m *Metrics) outcome(ctx context.Context, outcome, source string) {
	m.outcomes.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("source", source)))
}

func (m *Metrics) lostRace(ctx context.Context, source string) {
	m.raceLost.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

func (m *Metrics) effectsFailed(ctx context.Context, permanent bool) {
	m.effectsFailures.Add(ctx, 1, metric.WithAttributes(attribute.Bool("permanent", permanent)))
}

func (m *Metrics) gatewayCall(ctx context.Context, op string, started time.Time, err error) {
	m.gatewayLatency.Record(ctx, time.Since(started).Seconds(), metric.WithAttributes(
		attribute.String("op", op),
		attribute.Bool("error", err != nil)))
}
