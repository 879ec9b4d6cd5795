package analytics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/randalmurphal/rudderanalytics/pkg/analytics/observability"
)

// DefaultTimeout bounds a blocking Send from connect to the end of the
// response.
const DefaultTimeout = 10 * time.Second

// clientConfig holds settings shared by Client and AsyncClient.
type clientConfig struct {
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	metrics    observability.MetricsRecorder
	spans      observability.SpanManager
	now        func() time.Time
}

// defaultClientConfig returns the configuration used before options apply.
func defaultClientConfig(timeout time.Duration) clientConfig {
	return clientConfig{
		timeout: timeout,
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
		now:     time.Now,
	}
}

// Option configures a Client or AsyncClient.
type Option func(*clientConfig)

// WithTimeout sets the per-request timeout.
// Default: 10s for Client, none for AsyncClient.
//
// A zero or negative value disables the timeout; the request is then
// bounded only by the context passed to Send.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) {
		if d < 0 {
			d = 0
		}
		c.timeout = d
	}
}

// WithHTTPClient sets the HTTP client used for requests. The client is
// copied; if its Timeout is zero the configured timeout is applied to the
// copy.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *clientConfig) {
		c.httpClient = hc
	}
}

// WithLogger enables structured logging of sends.
// Default: no logging.
//
// Logs include message_type, path, status_code, and duration_ms. The
// formatted envelope is logged at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithMetrics enables OpenTelemetry metrics using the global meter provider.
// Default: disabled.
func WithMetrics(enabled bool) Option {
	return func(c *clientConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing enables an OpenTelemetry client span per Send using the
// global tracer provider.
// Default: disabled.
func WithTracing(enabled bool) Option {
	return func(c *clientConfig) {
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithClock overrides the time source for originalTimestamp and sentAt.
func WithClock(now func() time.Time) Option {
	return func(c *clientConfig) {
		if now != nil {
			c.now = now
		}
	}
}

// buildHTTPClient returns the client a dispatcher sends with.
func (c clientConfig) buildHTTPClient() *http.Client {
	if c.httpClient == nil {
		return &http.Client{Timeout: c.timeout}
	}
	hc := *c.httpClient
	if hc.Timeout == 0 {
		hc.Timeout = c.timeout
	}
	return &hc
}
