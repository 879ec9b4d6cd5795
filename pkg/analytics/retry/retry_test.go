package retry_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/rudderanalytics/pkg/analytics"
	"github.com/randalmurphal/rudderanalytics/pkg/analytics/retry"
)

// fastRetry retries quickly so tests don't sleep.
var fastRetry = retry.Config{
	MaxAttempts:    3,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     5 * time.Millisecond,
	BackoffFactor:  2.0,
}

func statusErr(code int) error {
	return &analytics.InvalidRequestError{StatusCode: code, Message: fmt.Sprintf("status code: %d", code)}
}

func TestCategoryString(t *testing.T) {
	assert.Equal(t, "transient", retry.CategoryTransient.String())
	assert.Equal(t, "permanent", retry.CategoryPermanent.String())
	assert.Equal(t, "unknown", retry.Category(99).String())
}

func TestCategorize(t *testing.T) {
	validation := &analytics.InvalidRequestError{
		Message: "track: either of user_id or anonymous_id is required",
		Err:     &analytics.ValidationError{Type: analytics.TypeTrack, Err: analytics.ErrMissingIdentity},
	}

	tests := []struct {
		name     string
		err      error
		expected retry.Category
	}{
		{"nil error", nil, retry.CategoryPermanent},
		{"validation", validation, retry.CategoryPermanent},
		{"bare validation", &analytics.ValidationError{Err: analytics.ErrNilMessage}, retry.CategoryPermanent},
		{"HTTP 400", statusErr(400), retry.CategoryPermanent},
		{"HTTP 401", statusErr(401), retry.CategoryPermanent},
		{"HTTP 404", statusErr(404), retry.CategoryPermanent},
		{"HTTP 408", statusErr(408), retry.CategoryTransient},
		{"HTTP 429", statusErr(429), retry.CategoryTransient},
		{"HTTP 500", statusErr(500), retry.CategoryTransient},
		{"HTTP 503", statusErr(503), retry.CategoryTransient},
		{"HTTP 201", statusErr(201), retry.CategoryPermanent},
		{"transport", &analytics.RequestError{URL: "http://x", Err: errors.New("connection refused")}, retry.CategoryTransient},
		{"timeout", &analytics.RequestError{URL: "http://x", Err: context.DeadlineExceeded}, retry.CategoryTransient},
		{"cancelled", &analytics.RequestError{URL: "http://x", Err: context.Canceled}, retry.CategoryPermanent},
		{"wrapped", fmt.Errorf("send: %w", statusErr(502)), retry.CategoryTransient},
		{"categorized", retry.Transient(errors.New("x"), "op"), retry.CategoryTransient},
		{"unknown", errors.New("unknown"), retry.CategoryPermanent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, retry.Categorize(tt.err))
			assert.Equal(t, tt.expected == retry.CategoryTransient, retry.IsRetryable(tt.err))
		})
	}
}

func TestCategorizedError(t *testing.T) {
	base := errors.New("boom")

	err := retry.Permanent(base, "send track")
	assert.Equal(t, "send track: boom (category: permanent, attempts: 0)", err.Error())
	assert.ErrorIs(t, err, base)

	bare := &retry.CategorizedError{Err: base, Category: retry.CategoryTransient, Attempts: 2}
	assert.Equal(t, "boom (category: transient, attempts: 2)", bare.Error())
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	calls := 0
	result := retry.Do(context.Background(), fastRetry, func(context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, result.Err)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, calls)
}

func TestDo_RetriesTransient(t *testing.T) {
	calls := 0
	result := retry.Do(context.Background(), fastRetry, func(context.Context) error {
		calls++
		if calls < 3 {
			return statusErr(503)
		}
		return nil
	})

	require.NoError(t, result.Err)
	assert.Equal(t, 3, result.Attempts)
}

func TestDo_StopsOnPermanent(t *testing.T) {
	calls := 0
	result := retry.Do(context.Background(), fastRetry, func(context.Context) error {
		calls++
		return statusErr(400)
	})

	require.Error(t, result.Err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, result.Attempts)
	assert.ErrorIs(t, result.Err, analytics.ErrInvalidRequest)

	var catErr *retry.CategorizedError
	require.ErrorAs(t, result.Err, &catErr)
	assert.Equal(t, retry.CategoryPermanent, catErr.Category)
}

func TestDo_Exhausted(t *testing.T) {
	var retries []int
	cfg := fastRetry
	cfg.OnRetry = func(attempt int, err error, _ time.Duration) {
		retries = append(retries, attempt)
		assert.Error(t, err)
	}

	result := retry.Do(context.Background(), cfg, func(context.Context) error {
		return statusErr(500)
	})

	require.Error(t, result.Err)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, []int{1, 2}, retries)
	assert.Contains(t, result.Err.Error(), "max retries exceeded")
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	calls := 0
	result := retry.Do(context.Background(), retry.Config{}, func(context.Context) error {
		calls++
		return statusErr(503)
	})

	require.Error(t, result.Err)
	assert.Equal(t, 1, calls)
}

func TestDo_NoRetry(t *testing.T) {
	calls := 0
	result := retry.Do(context.Background(), retry.NoRetry, func(context.Context) error {
		calls++
		return statusErr(503)
	})

	require.Error(t, result.Err)
	assert.Equal(t, 1, calls)
}

func TestDo_CustomRetryable(t *testing.T) {
	cfg := fastRetry
	cfg.RetryableFunc = func(error) bool { return true }

	calls := 0
	result := retry.Do(context.Background(), cfg, func(context.Context) error {
		calls++
		return statusErr(400)
	})

	require.Error(t, result.Err)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	result := retry.Do(ctx, fastRetry, func(context.Context) error {
		calls++
		return nil
	})

	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, context.Canceled)
	assert.Zero(t, calls)
	assert.Zero(t, result.Attempts)
}

func TestDo_ContextCancelledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := retry.Config{MaxAttempts: 5, InitialBackoff: time.Hour, BackoffFactor: 1}
	cfg.OnRetry = func(int, error, time.Duration) { cancel() }

	result := retry.Do(ctx, cfg, func(context.Context) error {
		return statusErr(503)
	})

	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, context.Canceled)
	assert.Equal(t, 1, result.Attempts)
	assert.Contains(t, result.Err.Error(), "during backoff")
}

func TestNewConfig(t *testing.T) {
	var called bool
	cfg := retry.NewConfig(
		retry.WithMaxAttempts(5),
		retry.WithInitialBackoff(time.Second),
		retry.WithMaxBackoff(time.Minute),
		retry.WithJitter(0.5),
		retry.WithOnRetry(func(int, error, time.Duration) { called = true }),
	)

	assert.Equal(t, 5, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.InitialBackoff)
	assert.Equal(t, time.Minute, cfg.MaxBackoff)
	assert.Equal(t, 0.5, cfg.Jitter)
	assert.Equal(t, retry.DefaultRetry.BackoffFactor, cfg.BackoffFactor)
	require.NotNil(t, cfg.OnRetry)
	cfg.OnRetry(1, nil, 0)
	assert.True(t, called)
}

func TestSend_RetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := analytics.Load("wk", srv.URL)
	result := retry.Send(context.Background(), fastRetry, client,
		analytics.Track{UserID: "u1", Event: "Signed Up"})

	require.NoError(t, result.Err)
	assert.Equal(t, 3, result.Attempts)
	assert.Equal(t, int32(3), hits.Load())
}

func TestSend_DoesNotRetryValidation(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	client := analytics.Load("wk", srv.URL)
	result := retry.Send(context.Background(), fastRetry, client, analytics.Identify{})

	require.Error(t, result.Err)
	assert.ErrorIs(t, result.Err, analytics.ErrMissingIdentity)
	assert.Equal(t, 1, result.Attempts)
	assert.Zero(t, hits.Load())
}
