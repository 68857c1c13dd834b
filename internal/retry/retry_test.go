package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sleepRecorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delays = append(r.delays, d)
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestValueRetriesRateLimitWithHint(t *testing.T) {
	t.Parallel()

	rec := &sleepRecorder{}
	p := Policy{TransportDelay: 30 * time.Second, Sleep: rec.sleep, Logger: quietLogger()}

	calls := 0
	got, err := Value(context.Background(), p, "https://example.test", func(context.Context) (string, error) {
		calls++
		if calls < 3 {
			return "", &RateLimitError{URL: "https://example.test", RetryAfter: 7 * time.Second, HasHint: true}
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{7 * time.Second, 7 * time.Second}, rec.delays)
}

func TestValueUsesFixedDelayForServerAndNetworkErrors(t *testing.T) {
	t.Parallel()

	rec := &sleepRecorder{}
	var kinds []Kind
	p := Policy{
		TransportDelay: 30 * time.Second,
		Sleep:          rec.sleep,
		Logger:         quietLogger(),
		OnRetry:        func(k Kind) { kinds = append(kinds, k) },
	}

	failures := []error{
		&ServerError{URL: "u", StatusCode: 502},
		&NetworkError{URL: "u", Err: errors.New("connection reset by peer")},
		&RateLimitError{URL: "u"},
	}
	calls := 0
	err := p.Do(context.Background(), "u", func(context.Context) error {
		if calls < len(failures) {
			err := failures[calls]
			calls++
			return err
		}
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []time.Duration{30 * time.Second, 30 * time.Second, 30 * time.Second}, rec.delays)
	assert.Equal(t, []Kind{KindServer, KindNetwork, KindRateLimit}, kinds)
}

func TestValueDoesNotRetryOtherErrors(t *testing.T) {
	t.Parallel()

	rec := &sleepRecorder{}
	p := Policy{Sleep: rec.sleep, Logger: quietLogger()}
	wantErr := &StatusError{URL: "u", StatusCode: http.StatusNotFound}

	calls := 0
	err := p.Do(context.Background(), "u", func(context.Context) error {
		calls++
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, 1, calls)
	assert.Empty(t, rec.delays)
}

func TestValueHonoursMaxAttempts(t *testing.T) {
	t.Parallel()

	rec := &sleepRecorder{}
	p := Policy{MaxAttempts: 3, Sleep: rec.sleep, Logger: quietLogger()}

	calls := 0
	err := p.Do(context.Background(), "u", func(context.Context) error {
		calls++
		return &ServerError{URL: "u", StatusCode: 503}
	})

	var serverErr *ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, 3, calls)
	assert.Len(t, rec.delays, 2)
}

func TestValueStopsWhenContextEnds(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := Policy{TransportDelay: time.Hour, Logger: quietLogger()}

	calls := 0
	err := p.Do(ctx, "u", func(context.Context) error {
		calls++
		cancel()
		return &ServerError{URL: "u", StatusCode: 500}
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestFromStatus(t *testing.T) {
	t.Parallel()

	header := http.Header{}
	header.Set("Retry-After", "12")

	var rateErr *RateLimitError
	require.ErrorAs(t, FromStatus("u", http.StatusTooManyRequests, header), &rateErr)
	assert.True(t, rateErr.HasHint)
	assert.Equal(t, 12, rateErr.RetryAfterSeconds())

	var serverErr *ServerError
	require.ErrorAs(t, FromStatus("u", http.StatusBadGateway, nil), &serverErr)

	var statusErr *StatusError
	require.ErrorAs(t, FromStatus("u", http.StatusForbidden, nil), &statusErr)

	assert.NoError(t, FromStatus("u", http.StatusOK, nil))
}

func TestParseRetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		value string
		want  time.Duration
		ok    bool
	}{
		{name: "seconds", value: "3", want: 3 * time.Second, ok: true},
		{name: "http date", value: "Fri, 01 Mar 2024 12:00:10 GMT", want: 10 * time.Second, ok: true},
		{name: "past date", value: "Fri, 01 Mar 2024 11:00:00 GMT", want: 0, ok: true},
		{name: "empty", value: "", ok: false},
		{name: "garbage", value: "soon", ok: false},
		{name: "negative", value: "-4", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRetryAfter(tt.value, now)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
