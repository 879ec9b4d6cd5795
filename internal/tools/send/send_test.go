package send

import (
	"bytes"
	"context"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/rudderanalytics/internal/dataplane"
	"github.com/randalmurphal/rudderanalytics/pkg/analytics"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("rudder-send", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	require.NoError(t, err)

	assert.Equal(t, "-", cfg.File)
	assert.Equal(t, -1, cfg.Retries)
	assert.Empty(t, cfg.Type)
	assert.Empty(t, cfg.ConfigPath)
}

func TestParseConfigOverride(t *testing.T) {
	fs := flag.NewFlagSet("rudder-send", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{"-config", "r.yaml", "-type", "page", "-file", "m.json", "-retries", "2"})
	require.NoError(t, err)

	assert.Equal(t, Config{ConfigPath: "r.yaml", Type: "page", File: "m.json", Retries: 2}, cfg)
}

func TestParseConfigBadFlag(t *testing.T) {
	fs := flag.NewFlagSet("rudder-send", flag.ContinueOnError)
	fs.SetOutput(&bytes.Buffer{})
	_, err := ParseConfig(fs, []string{"-retries", "many"})
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name string
		typ  string
		doc  string
		want analytics.Message
	}{
		{"identify", "", `{"type":"identify","userId":"u1","traits":{"email":"a@b.c"}}`,
			analytics.Identify{UserID: "u1", Traits: analytics.Properties{"email": "a@b.c"}}},
		{"track", "", `{"type":"track","anonymousId":"a1","event":"e","properties":{"n":1}}`,
			analytics.Track{AnonymousID: "a1", Event: "e", Properties: analytics.Properties{"n": float64(1)}}},
		{"page", "", `{"type":"page","userId":"u1","name":"Home"}`,
			analytics.Page{UserID: "u1", Name: "Home"}},
		{"screen", "", `{"type":"screen","userId":"u1","name":"Main"}`,
			analytics.Screen{UserID: "u1", Name: "Main"}},
		{"group", "", `{"type":"group","userId":"u1","groupId":"g1"}`,
			analytics.Group{UserID: "u1", GroupID: "g1"}},
		{"alias", "", `{"type":"alias","userId":"u2","previousId":"u1"}`,
			analytics.Alias{UserID: "u2", PreviousID: "u1"}},
		{"flag overrides document", "track", `{"type":"page","userId":"u1","event":"e"}`,
			analytics.Track{UserID: "u1", Event: "e"}},
		{"flag supplies type", "alias", `{"previousId":"u1"}`,
			analytics.Alias{PreviousID: "u1"}},
		{"context and integrations", "", `{"type":"track","userId":"u1","context":{"ip":"1.2.3.4"},"integrations":{"All":false}}`,
			analytics.Track{UserID: "u1", Context: analytics.Properties{"ip": "1.2.3.4"}, Integrations: analytics.Properties{"All": false}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.typ, []byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecode_Batch(t *testing.T) {
	got, err := Decode("", []byte(`{
		"type": "batch",
		"context": {"app": "cli"},
		"batch": [
			{"type": "track", "userId": "u1", "event": "a"},
			{"type": "page", "anonymousId": "a1", "name": "Home"}
		]
	}`))
	require.NoError(t, err)

	batch, ok := got.(analytics.Batch)
	require.True(t, ok)
	assert.Equal(t, analytics.Properties{"app": "cli"}, batch.Context)
	require.Len(t, batch.Messages, 2)
	assert.Equal(t, analytics.Track{UserID: "u1", Event: "a"}, batch.Messages[0])
	assert.Equal(t, analytics.Page{AnonymousID: "a1", Name: "Home"}, batch.Messages[1])
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		typ  string
		doc  string
		want string
	}{
		{"bad json", "", `{`, "decode message"},
		{"no type", "", `{"userId":"u1"}`, "type is required"},
		{"unknown type", "", `{"type":"purchase"}`, `unknown message type "purchase"`},
		{"nested batch", "", `{"type":"batch","batch":[{"type":"batch"}]}`, "batch[0]: batch cannot be nested"},
		{"bad member", "batch", `{"batch":[{"type":"track"},{"type":"x"}]}`, "batch[1]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.typ, []byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

// setEnv points the command at url with no file settings.
func setEnv(t *testing.T, url string) {
	t.Helper()
	for _, key := range []string{"RUDDER_TIMEOUT", "RUDDER_LOG_LEVEL", "RUDDER_OTEL_ENDPOINT", "RUDDER_SERVICE_NAME", "RUDDER_RETRIES"} {
		t.Setenv(key, "")
	}
	t.Setenv("RUDDER_WRITE_KEY", "wk")
	t.Setenv("RUDDER_DATA_PLANE_URL", url)
}

func TestRun_SendsFromStdin(t *testing.T) {
	store := dataplane.NewMemoryStore()
	defer store.Close()
	srv := httptest.NewServer(dataplane.NewServer(store, dataplane.WithWriteKey("wk")).Handler())
	defer srv.Close()
	setEnv(t, srv.URL)

	var out, errOut bytes.Buffer
	in := strings.NewReader(`{"type":"track","userId":"u1","event":"Signed Up"}`)

	err := Run(context.Background(), Config{File: "-", Retries: -1}, in, &out, &errOut)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "sent track to "+srv.URL+"/v1/track")
	assert.Contains(t, errOut.String(), "send completed")

	records, err := store.List("track")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRun_SendsFromFileWithConfig(t *testing.T) {
	store := dataplane.NewMemoryStore()
	defer store.Close()
	srv := httptest.NewServer(dataplane.NewServer(store).Handler())
	defer srv.Close()

	for _, key := range []string{"RUDDER_WRITE_KEY", "RUDDER_DATA_PLANE_URL", "RUDDER_TIMEOUT", "RUDDER_LOG_LEVEL", "RUDDER_OTEL_ENDPOINT", "RUDDER_SERVICE_NAME", "RUDDER_RETRIES"} {
		t.Setenv(key, "")
	}

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "rudder.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("write_key: file-key\ndata_plane_url: "+srv.URL+"\nlog_level: error\n"), 0o600))
	msgPath := filepath.Join(dir, "msg.json")
	require.NoError(t, os.WriteFile(msgPath, []byte(`{"groupId":"g1","userId":"u1"}`), 0o600))

	var out, errOut bytes.Buffer
	err := Run(context.Background(), Config{ConfigPath: cfgPath, Type: "group", File: msgPath, Retries: 0}, nil, &out, &errOut)
	require.NoError(t, err)
	assert.Empty(t, errOut.String(), "info logs suppressed at error level")

	records, err := store.List("group")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "file-key", records[0].WriteKey)
}

func TestRun_RetriesTransientFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()
	setEnv(t, srv.URL)

	var out, errOut bytes.Buffer
	in := strings.NewReader(`{"type":"page","userId":"u1","name":"Home"}`)
	err := Run(context.Background(), Config{File: "-", Retries: 2}, in, &out, &errOut)
	require.NoError(t, err)

	assert.Equal(t, int32(2), hits.Load())
	assert.Contains(t, out.String(), "attempts: 2")
	assert.Contains(t, errOut.String(), "retrying send")
}

func TestRun_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	t.Run("server rejects", func(t *testing.T) {
		setEnv(t, srv.URL)
		in := strings.NewReader(`{"type":"track","userId":"u1"}`)
		err := Run(context.Background(), Config{File: "-", Retries: 3}, in, &bytes.Buffer{}, &bytes.Buffer{})
		require.Error(t, err)
		assert.ErrorIs(t, err, analytics.ErrInvalidRequest)
		assert.Contains(t, err.Error(), "400")
	})

	t.Run("validation", func(t *testing.T) {
		setEnv(t, srv.URL)
		in := strings.NewReader(`{"type":"identify"}`)
		err := Run(context.Background(), Config{File: "-", Retries: -1}, in, &bytes.Buffer{}, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "user_id or anonymous_id")
	})

	t.Run("missing settings", func(t *testing.T) {
		setEnv(t, srv.URL)
		t.Setenv("RUDDER_WRITE_KEY", "")
		err := Run(context.Background(), Config{File: "-", Retries: -1}, strings.NewReader(`{}`), &bytes.Buffer{}, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "load settings")
	})

	t.Run("missing file", func(t *testing.T) {
		setEnv(t, srv.URL)
		err := Run(context.Background(), Config{File: filepath.Join(t.TempDir(), "nope.json"), Retries: -1}, nil, &bytes.Buffer{}, &bytes.Buffer{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read message file")
	})

	t.Run("no stdin", func(t *testing.T) {
		setEnv(t, srv.URL)
		err := Run(context.Background(), Config{File: "-", Retries: -1}, nil, &bytes.Buffer{}, &bytes.Buffer{})
		require.Error(t, err)
	})

	t.Run("nil output", func(t *testing.T) {
		err := Run(context.Background(), Config{}, nil, nil, nil)
		assert.Error(t, err)
	})
}
