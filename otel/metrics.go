// Package otel provides OpenTelemetry integration for the bot: metric
// instruments for the poll loop and tracing setup for the run command.
package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/kaustavray/mathbot/bot"
)

// Metrics implements bot.Observer on OpenTelemetry instruments. It records
// a counter per inbound update, counters for evaluations and failures, and
// a histogram of evaluation durations.
type Metrics struct {
	updates     metric.Int64Counter
	evaluations metric.Int64Counter
	failures    metric.Int64Counter
	duration    metric.Float64Histogram
}

// NewMetrics creates the bot's instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	updates, err := meter.Int64Counter("mathbot.updates",
		metric.WithDescription("Number of inbound message updates"),
	)
	if err != nil {
		return nil, err
	}

	evaluations, err := meter.Int64Counter("mathbot.evaluations",
		metric.WithDescription("Number of expression evaluations"),
	)
	if err != nil {
		return nil, err
	}

	failures, err := meter.Int64Counter("mathbot.evaluation.failures",
		metric.WithDescription("Number of rejected expressions"),
	)
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("mathbot.evaluation.duration",
		metric.WithDescription("Duration of expression evaluation in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		updates:     updates,
		evaluations: evaluations,
		failures:    failures,
		duration:    duration,
	}, nil
}

// UpdateReceived counts one inbound update.
func (m *Metrics) UpdateReceived(ctx context.Context, chatID int64) {
	m.updates.Add(ctx, 1, metric.WithAttributes(
		attribute.Int64("chat_id", chatID),
	))
}

// EvaluationDone counts one evaluation and records its duration.
func (m *Metrics) EvaluationDone(ctx context.Context, ok bool, elapsed time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("ok", ok))
	m.evaluations.Add(ctx, 1, attrs)
	if !ok {
		m.failures.Add(ctx, 1)
	}
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

// Compile-time interface check.
var _ bot.Observer = (*Metrics)(nil)
