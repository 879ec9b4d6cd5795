// Package observability provides the opt-in observability hooks used by the
// analytics client: structured logging, metrics, and distributed tracing.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds message context to a logger.
// Returns a new logger with message_type and path fields.
//
// Example:
//
//	enriched := EnrichLogger(logger, "track", "/v1/track")
//	enriched.Info("sending") // includes message_type, path
func EnrichLogger(logger *slog.Logger, messageType, path string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("message_type", messageType),
		slog.String("path", path),
	)
}

// LogSendStart logs the start of a send.
func LogSendStart(logger *slog.Logger, url string) {
	if logger == nil {
		return
	}
	logger.Debug("send starting",
		slog.String("url", url),
	)
}

// LogPayload logs the formatted envelope at debug level.
func LogPayload(logger *slog.Logger, payload []byte) {
	if logger == nil {
		return
	}
	logger.Debug("formatted envelope",
		slog.Int("size_bytes", len(payload)),
		slog.String("payload", string(payload)),
	)
}

// LogSendComplete logs a send accepted by the data plane.
func LogSendComplete(logger *slog.Logger, statusCode int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("send completed",
		slog.Int("status_code", statusCode),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogSendError logs a failed send. Failures are returned to the caller as
// well; the log entry is informational only.
func LogSendError(logger *slog.Logger, err error, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Warn("send failed",
		slog.String("error", err.Error()),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogValidationError logs a message rejected before any network call.
func LogValidationError(logger *slog.Logger, messageType string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("message rejected",
		slog.String("message_type", messageType),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// Millis converts a duration to fractional milliseconds for log fields.
func Millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
