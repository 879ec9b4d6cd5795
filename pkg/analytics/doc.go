/*
Package analytics is a client for sending analytics events to a
RudderStack-compatible data plane.

# Overview

Seven message types are supported: Identify, Track, Page, Screen, Group,
Alias and Batch. Each is validated, converted to the data plane's JSON
envelope and POSTed to its own path under the data plane URL, one request
per message.

# Basic Usage

	client := analytics.Load("WRITE_KEY", "https://hosted.rudderlabs.com")

	err := client.Send(ctx, analytics.Track{
	    UserID: "u1",
	    Event:  "Purchased",
	    Properties: analytics.Properties{
	        "revenue": 42.5,
	    },
	})
	if err != nil {
	    log.Printf("send: %v", err)
	}

Both value and pointer messages are accepted.

# Validation

Identify, Track, Page, Screen and Group need a UserID or an AnonymousID.
Alias and Batch do not. No message may set the reserved context keys
"library" or "os"; the client fills those in itself.

	path, err := analytics.Validate(analytics.Identify{UserID: "u1"})
	// path == "/v1/identify"

Validation failures never reach the network.

# Non-blocking Sends

AsyncClient returns a Pending immediately:

	client := analytics.LoadAsync("WRITE_KEY", dataPlaneURL)
	p := client.Send(ctx, analytics.Page{AnonymousID: "a1", Name: "Home"})

	// later
	if err := p.Wait(ctx); err != nil {
	    log.Printf("send: %v", err)
	}

Cancelling the context given to Send abandons the request.

# Error Handling

	err := client.Send(ctx, msg)

	var invalid *analytics.InvalidRequestError
	if errors.As(err, &invalid) {
	    // rejected by validation (StatusCode == 0) or by the server
	}

	var reqErr *analytics.RequestError
	if errors.As(err, &reqErr) {
	    // network, TLS or timeout failure
	}

	if errors.Is(err, analytics.ErrMissingIdentity) {
	    // message had neither user ID nor anonymous ID
	}

The client never retries. See package retry for a caller-side helper.

# Observability

Logging, metrics and tracing are opt-in:

	client := analytics.Load(key, url,
	    analytics.WithLogger(slog.Default()),
	    analytics.WithMetrics(true),
	    analytics.WithTracing(true))

Metrics: rudder.send.requests, rudder.send.latency_ms, rudder.send.errors,
rudder.validation.rejected, rudder.send.payload_bytes.
Tracing: one rudder.send client span per Send.

# Thread Safety

Client and AsyncClient are immutable after construction and safe for
concurrent use. Messages are never modified by the client.

# Subpackages

  - config: settings loading from YAML/JSON files and the environment
  - observability: logging, metrics, and tracing helpers
  - retry: error categorisation and caller-side retry
*/
package analytics
