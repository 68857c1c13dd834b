// Package retry implements the "wait out the rate limiter" policy shared by
// every outbound call: throttles and transient failures are retried after a
// sleep, without exponential growth and, by default, without a retry cap.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTransportDelay is the fixed pause after a 5xx or a transport failure.
const DefaultTransportDelay = 30 * time.Second

// Kind classifies a retryable failure.
type Kind string

const (
	KindNetwork   Kind = "network"
	KindServer    Kind = "server"
	KindRateLimit Kind = "rate_limit"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the production Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Policy decides how long to wait before retrying a failed call.
type Policy struct {
	// TransportDelay applies to network and server errors, and to 429s that
	// carry no Retry-After hint.
	TransportDelay time.Duration
	// MaxAttempts caps the number of calls; zero keeps retrying.
	MaxAttempts int
	Sleep       Sleeper
	Logger      *slog.Logger
	// OnRetry observes every retry decision, e.g. for metrics.
	OnRetry func(kind Kind)
}

// Classify reports whether err is retryable and the delay it asks for.
func (p Policy) Classify(err error) (Kind, time.Duration, bool) {
	var (
		rateErr    *RateLimitError
		serverErr  *ServerError
		networkErr *NetworkError
	)
	switch {
	case errors.As(err, &rateErr):
		if rateErr.HasHint {
			return KindRateLimit, rateErr.RetryAfter, true
		}
		return KindRateLimit, p.transportDelay(), true
	case errors.As(err, &serverErr):
		return KindServer, p.transportDelay(), true
	case errors.As(err, &networkErr):
		return KindNetwork, p.transportDelay(), true
	default:
		return "", 0, false
	}
}

// Do runs fn until it succeeds, fails with a non-retryable error, ctx ends,
// or MaxAttempts is reached.
func (p Policy) Do(ctx context.Context, target string, fn func(context.Context) error) error {
	_, err := Value(ctx, p, target, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

// Value is Do for calls that produce a result.
func Value[T any](ctx context.Context, p Policy, target string, fn func(context.Context) (T, error)) (T, error) {
	for attempt := 1; ; attempt++ {
		v, err := fn(ctx)
		if err == nil {
			return v, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return v, ctxErr
		}

		kind, delay, retryable := p.Classify(err)
		if !retryable {
			return v, err
		}
		if p.MaxAttempts > 0 && attempt >= p.MaxAttempts {
			return v, fmt.Errorf("giving up on %s after %d attempts: %w", target, attempt, err)
		}

		p.logger().Warn("request throttled or failed, waiting",
			"url", target,
			"kind", string(kind),
			"attempt", attempt,
			"delay", delay,
			"error", err,
		)
		if p.OnRetry != nil {
			p.OnRetry(kind)
		}

		if err := p.sleeper()(ctx, delay); err != nil {
			return v, err
		}
	}
}

func (p Policy) transportDelay() time.Duration {
	if p.TransportDelay <= 0 {
		return DefaultTransportDelay
	}
	return p.TransportDelay
}

func (p Policy) sleeper() Sleeper {
	if p.Sleep == nil {
		return Sleep
	}
	return p.Sleep
}

func (p Policy) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}
