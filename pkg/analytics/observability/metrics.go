package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MeterName is the instrumentation scope used for client metrics.
const MeterName = "rudderanalytics"

// MetricsRecorder records client metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordSend records one send attempt with its outcome.
	// statusCode is 0 when no response was received.
	RecordSend(ctx context.Context, messageType string, statusCode int, duration time.Duration, err error)

	// RecordRejected records a message rejected by validation.
	RecordRejected(ctx context.Context, messageType string)

	// RecordPayloadSize records the size of a formatted envelope.
	RecordPayloadSize(ctx context.Context, messageType string, sizeBytes int64)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	sends       metric.Int64Counter
	sendLatency metric.Float64Histogram
	sendErrors  metric.Int64Counter
	rejected    metric.Int64Counter
	payloadSize metric.Int64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter(MeterName)

	sends, err := meter.Int64Counter("rudder.send.requests",
		metric.WithDescription("Number of messages posted to the data plane"),
	)
	if err != nil {
		return nil, err
	}

	sendLatency, err := meter.Float64Histogram("rudder.send.latency_ms",
		metric.WithDescription("Send latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	sendErrors, err := meter.Int64Counter("rudder.send.errors",
		metric.WithDescription("Number of failed sends"),
	)
	if err != nil {
		return nil, err
	}

	rejected, err := meter.Int64Counter("rudder.validation.rejected",
		metric.WithDescription("Number of messages rejected before sending"),
	)
	if err != nil {
		return nil, err
	}

	payloadSize, err := meter.Int64Histogram("rudder.send.payload_bytes",
		metric.WithDescription("Formatted envelope size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		sends:       sends,
		sendLatency: sendLatency,
		sendErrors:  sendErrors,
		rejected:    rejected,
		payloadSize: payloadSize,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordSend records a send attempt.
func (m *otelMetrics) RecordSend(ctx context.Context, messageType string, statusCode int, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("message_type", messageType),
		attribute.Int("status_code", statusCode),
	}

	m.sends.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.sendLatency.Record(ctx, Millis(duration), metric.WithAttributes(attrs...))

	if err != nil {
		m.sendErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordRejected records a validation rejection.
func (m *otelMetrics) RecordRejected(ctx context.Context, messageType string) {
	m.rejected.Add(ctx, 1, metric.WithAttributes(
		attribute.String("message_type", messageType),
	))
}

// RecordPayloadSize records an envelope size.
func (m *otelMetrics) RecordPayloadSize(ctx context.Context, messageType string, sizeBytes int64) {
	m.payloadSize.Record(ctx, sizeBytes, metric.WithAttributes(
		attribute.String("message_type", messageType),
	))
}
