package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/aqstream/aqstream/internal/sensor"
)

const meterName = "github.com/aqstream/aqstream/internal/pipeline"

// Metrics holds the OpenTelemetry instruments for the pipeline.
type Metrics struct {
	samplesIngested metric.Int64Counter
	samplesDropped  metric.Int64Counter
	windowsEmitted  metric.Int64Counter
	aqiOutOfRange   metric.Int64Counter
}

// NewMetrics creates a Metrics instance with initialized instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	samplesIngested, err := meter.Int64Counter(
		"pipeline.samples.ingested",
		metric.WithDescription("Raw concentration samples accepted into a window"),
		metric.WithUnit("{sample}"),
	)
	if err != nil {
		return nil, err
	}

	samplesDropped, err := meter.Int64Counter(
		"pipeline.samples.dropped",
		metric.WithDescription("Samples rejected before smoothing (non-finite value or full queue)"),
		metric.WithUnit("{sample}"),
	)
	if err != nil {
		return nil, err
	}

	windowsEmitted, err := meter.Int64Counter(
		"pipeline.windows.emitted",
		metric.WithDescription("Smoothing windows closed and published"),
		metric.WithUnit("{window}"),
	)
	if err != nil {
		return nil, err
	}

	aqiOutOfRange, err := meter.Int64Counter(
		"pipeline.aqi.out_of_range",
		metric.WithDescription("AQI computations where the mean fell outside the breakpoint table"),
		metric.WithUnit("{computation}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		samplesIngested: samplesIngested,
		samplesDropped:  samplesDropped,
		windowsEmitted:  windowsEmitted,
		aqiOutOfRange:   aqiOutOfRange,
	}, nil
}

func (m *Metrics) recordIngested(ctx context.Context, ch sensor.Channel) {
	if m == nil {
		return
	}
	m.samplesIngested.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", string(ch))))
}

func (m *Metrics) recordDropped(ctx context.Context, ch sensor.Channel, reason string) {
	if m == nil {
		return
	}
	m.samplesDropped.Add(ctx, 1, metric.WithAttributes(
		attribute.String("channel", string(ch)),
		attribute.String("reason", reason),
	))
}

func (m *Metrics) recordEmitted(ctx context.Context, ch sensor.Channel) {
	if m == nil {
		return
	}
	m.windowsEmitted.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", string(ch))))
}

func (m *Metrics) recordOutOfRange(ctx context.Context, ch sensor.Channel) {
	if m == nil {
		return
	}
	m.aqiOutOfRange.Add(ctx, 1, metric.WithAttributes(attribute.String("channel", string(ch))))
}
