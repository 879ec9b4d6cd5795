package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newCaptureLogger returns a debug-level JSON logger writing into buf.
func newCaptureLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// decodeLines decodes every JSON log line in buf.
func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestEnrichLogger(t *testing.T) {
	t.Run("adds message fields", func(t *testing.T) {
		var buf bytes.Buffer
		logger := EnrichLogger(newCaptureLogger(&buf), "track", "/v1/track")
		require.NotNil(t, logger)

		logger.Info("hello")

		lines := decodeLines(t, &buf)
		require.Len(t, lines, 1)
		assert.Equal(t, "track", lines[0]["message_type"])
		assert.Equal(t, "/v1/track", lines[0]["path"])
	})

	t.Run("nil logger stays nil", func(t *testing.T) {
		assert.Nil(t, EnrichLogger(nil, "a", "b"))
	})
}

func TestLogHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := newCaptureLogger(&buf)

	LogSendStart(logger, "http://localhost/v1/track")
	LogPayload(logger, []byte(`{"type":"track"}`))
	LogSendComplete(logger, 200, 12.5)
	LogSendError(logger, errors.New("boom"), 3)
	LogValidationError(logger, "identify", errors.New("missing id"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 5)

	assert.Equal(t, "send starting", lines[0]["msg"])
	assert.Equal(t, "http://localhost/v1/track", lines[0]["url"])

	assert.Equal(t, "formatted envelope", lines[1]["msg"])
	assert.Equal(t, float64(16), lines[1]["size_bytes"])

	assert.Equal(t, "send completed", lines[2]["msg"])
	assert.Equal(t, float64(200), lines[2]["status_code"])

	assert.Equal(t, "send failed", lines[3]["msg"])
	assert.Equal(t, "WARN", lines[3]["level"])
	assert.Equal(t, "boom", lines[3]["error"])

	assert.Equal(t, "message rejected", lines[4]["msg"])
	assert.Equal(t, "identify", lines[4]["message_type"])
}

func TestLogHelpers_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		LogSendStart(nil, "u")
		LogPayload(nil, nil)
		LogSendComplete(nil, 200, 0)
		LogSendError(nil, errors.New("x"), 0)
		LogValidationError(nil, "track", errors.New("x"))
	})
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(5 * time.Millisecond)
	elapsed := done()
	assert.GreaterOrEqual(t, elapsed, 5*time.Millisecond)
}

func TestMillis(t *testing.T) {
	assert.InDelta(t, 1.5, Millis(1500*time.Microsecond), 1e-9)
	assert.Equal(t, float64(0), Millis(0))
}
