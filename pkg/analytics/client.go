package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/rudderanalytics/pkg/analytics/observability"
)

const userAgent = LibraryName + "/" + Version

// dispatcher is the send pipeline shared by Client and AsyncClient.
// All fields are read-only after construction.
type dispatcher struct {
	writeKey     string
	dataPlaneURL string
	http         *http.Client
	format       formatter
	cfg          clientConfig
}

func newDispatcher(writeKey, dataPlaneURL string, cfg clientConfig) *dispatcher {
	return &dispatcher{
		writeKey:     writeKey,
		dataPlaneURL: dataPlaneURL,
		http:         cfg.buildHTTPClient(),
		format:       formatter{now: cfg.now},
		cfg:          cfg,
	}
}

// send validates, formats and posts msg. It makes exactly one attempt.
func (d *dispatcher) send(ctx context.Context, msg Message) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	path, verr := Validate(msg)
	if verr != nil {
		typ := ""
		if m := normalize(msg); m != nil {
			typ = string(m.Type())
		}
		observability.LogValidationError(d.cfg.logger, typ, verr)
		d.cfg.metrics.RecordRejected(ctx, typ)
		return &InvalidRequestError{Message: verr.Error(), Err: verr}
	}

	typ := string(normalize(msg).Type())
	logger := observability.EnrichLogger(d.cfg.logger, typ, path)

	body, err := json.Marshal(d.format.format(msg))
	if err != nil {
		return &InvalidRequestError{Message: fmt.Sprintf("encode message: %v", err), Err: err}
	}
	observability.LogPayload(logger, body)
	d.cfg.metrics.RecordPayloadSize(ctx, typ, int64(len(body)))

	ctx, span := d.cfg.spans.StartSendSpan(ctx, typ, path)
	defer func() {
		d.cfg.spans.EndSpanWithError(span, err)
	}()

	url := d.dataPlaneURL + path
	observability.LogSendStart(logger, url)
	elapsed := observability.TimedOperation()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &RequestError{URL: url, Err: err}
	}
	req.SetBasicAuth(d.writeKey, "")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.http.Do(req)
	if err != nil {
		rerr := &RequestError{URL: url, Err: err}
		duration := elapsed()
		d.cfg.metrics.RecordSend(ctx, typ, 0, duration, rerr)
		observability.LogSendError(logger, rerr, observability.Millis(duration))
		return rerr
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused; the body is not inspected.
	_, _ = io.Copy(io.Discard, resp.Body)

	duration := elapsed()
	d.cfg.spans.AddSpanEvent(ctx, "response", attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		serr := newStatusError(resp.StatusCode)
		d.cfg.metrics.RecordSend(ctx, typ, resp.StatusCode, duration, serr)
		observability.LogSendError(logger, serr, observability.Millis(duration))
		return serr
	}

	d.cfg.metrics.RecordSend(ctx, typ, resp.StatusCode, duration, nil)
	observability.LogSendComplete(logger, resp.StatusCode, observability.Millis(duration))
	return nil
}

// Client sends messages and blocks until the data plane answers or the
// timeout elapses. It is safe for concurrent use.
type Client struct {
	d *dispatcher
}

// Load creates a blocking client for the data plane at dataPlaneURL,
// authenticating with writeKey. Paths such as "/v1/track" are appended to
// dataPlaneURL as-is, so it should not end with a slash.
//
// Requests time out after DefaultTimeout unless WithTimeout says otherwise.
func Load(writeKey, dataPlaneURL string, opts ...Option) *Client {
	cfg := defaultClientConfig(DefaultTimeout)
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Client{d: newDispatcher(writeKey, dataPlaneURL, cfg)}
}

// WriteKey returns the write key the client authenticates with.
func (c *Client) WriteKey() string { return c.d.writeKey }

// DataPlaneURL returns the base URL messages are posted to.
func (c *Client) DataPlaneURL() string { return c.d.dataPlaneURL }

// Send validates msg, formats it and posts it to the data plane.
//
// It returns nil only for an HTTP 200 response. A message failing
// validation is never sent and yields an *InvalidRequestError wrapping a
// *ValidationError; a non-200 status yields an *InvalidRequestError with
// StatusCode set; a transport failure yields a *RequestError. Send never
// retries.
func (c *Client) Send(ctx context.Context, msg Message) error {
	return c.d.send(ctx, msg)
}
