package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/leofalp/polychat/core/client"
	"github.com/leofalp/polychat/providers/ai"
	"github.com/leofalp/polychat/providers/observability"
)

// RetryConfig holds the tuning parameters for the retry middleware. Zero values
// are replaced with the defaults documented below.
type RetryConfig struct {
	// MaxRetries is the maximum number of retry attempts after the first
	// failure. Default: 3.
	MaxRetries int

	// InitialBackoff is the wait before the first retry. Default: 1s.
	InitialBackoff time.Duration

	// MaxBackoff caps the computed backoff. Default: 30s.
	MaxBackoff time.Duration

	// BackoffFactor is the exponential growth multiplier. Default: 2.0.
	BackoffFactor float64

	// JitterFraction adds random noise in [0, JitterFraction * backoff].
	// Default: 0.1.
	JitterFraction float64

	// RetryableFunc returns true when an error should trigger a retry. The
	// default retries *ai.Error values whose Retryable method is true.
	RetryableFunc func(error) bool
}

func defaultRetryableFunc(err error) bool {
	var typed *ai.Error
	if !errors.As(err, &typed) {
		return false
	}
	return typed.Retryable()
}

func applyRetryDefaults(config *RetryConfig) {
	if config.MaxRetries == 0 {
		config.MaxRetries = 3
	}
	if config.InitialBackoff == 0 {
		config.InitialBackoff = time.Second
	}
	if config.MaxBackoff == 0 {
		config.MaxBackoff = 30 * time.Second
	}
	if config.BackoffFactor == 0 {
		config.BackoffFactor = 2.0
	}
	if config.JitterFraction == 0 {
		config.JitterFraction = 0.1
	}
	if config.RetryableFunc == nil {
		config.RetryableFunc = defaultRetryableFunc
	}
}

// computeBackoff returns the backoff for the given attempt (0-indexed):
// min(InitialBackoff * BackoffFactor^attempt, MaxBackoff) + jitter.
func computeBackoff(config RetryConfig, attempt int) time.Duration {
	base := float64(config.InitialBackoff) * math.Pow(config.BackoffFactor, float64(attempt))
	if base > float64(config.MaxBackoff) {
		base = float64(config.MaxBackoff)
	}

	jitter := base * config.JitterFraction * rand.Float64() //nolint:gosec // non-cryptographic jitter
	return time.Duration(base + jitter)
}

// NewRetryMiddleware constructs a MiddlewareConfig that retries failed send
// calls. Streaming calls bypass it: once events have been delivered a call
// cannot be replayed transparently.
//
// On exhaustion the returned error wraps both [ErrRetryExhausted] and the last
// service error.
func NewRetryMiddleware(config RetryConfig) client.MiddlewareConfig {
	applyRetryDefaults(&config)

	sendMiddleware := client.Middleware(func(next client.SendFunc) client.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.Reply, error) {
			var lastErr error

			for attempt := 0; attempt <= config.MaxRetries; attempt++ {
				if attempt > 0 {
					backoff := computeBackoff(config, attempt-1)
					slog.DebugContext(ctx, "retrying chat request",
						"attempt", attempt,
						"backoff", backoff,
						"request_id", client.RequestIDFromContext(ctx),
						"error", lastErr.Error(),
					)
					if span := observability.SpanFromContext(ctx); span != nil {
						span.AddEvent(observability.EventRetry,
							observability.Int(observability.AttrAttempt, attempt),
							observability.Duration(observability.AttrDuration, backoff),
						)
					}
					select {
					case <-ctx.Done():
						return nil, ctx.Err()
					case <-time.After(backoff):
					}
				}

				reply, err := next(ctx, request)
				if err == nil {
					return reply, nil
				}

				lastErr = err
				if !config.RetryableFunc(err) {
					return nil, err
				}
			}

			return nil, fmt.Errorf("%w after %d retries: %w", ErrRetryExhausted, config.MaxRetries, lastErr)
		}
	})

	return client.MiddlewareConfig{Send: sendMiddleware}
}
