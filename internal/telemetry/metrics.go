package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics are the chat counters exported through the meter
type Metrics struct {
	submissions    metric.Int64Counter
	completed      metric.Int64Counter
	resets         metric.Int64Counter
	renderDuration metric.Float64Histogram
}

// NewMetrics registers the instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	submissions, err := meter.Int64Counter(
		"thinkchat.submissions",
		metric.WithDescription("Question submissions by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create submissions counter: %w", err)
	}

	completed, err := meter.Int64Counter(
		"thinkchat.sessions.completed",
		metric.WithDescription("Sessions that reached the end notice"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create completed counter: %w", err)
	}

	resets, err := meter.Int64Counter(
		"thinkchat.sessions.reset",
		metric.WithDescription("Operator resets"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create reset counter: %w", err)
	}

	renderDuration, err := meter.Float64Histogram(
		"thinkchat.render.duration",
		metric.WithDescription("Answer render duration in milliseconds"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create render histogram: %w", err)
	}

	return &Metrics{
		submissions:    submissions,
		completed:      completed,
		resets:         resets,
		renderDuration: renderDuration,
	}, nil
}

func (m *Metrics) Submission(ctx context.Context, outcome string) {
	m.submissions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) Completed(ctx context.Context) {
	m.completed.Add(ctx, 1)
}

func (m *Metrics) Reset(ctx context.Context) {
	m.resets.Add(ctx, 1)
}

func (m *Metrics) Rendered(ctx context.Context, d time.Duration, mode string) {
	m.renderDuration.Record(ctx, float64(d.Milliseconds()), metric.WithAttributes(attribute.String("mode", mode)))
}
