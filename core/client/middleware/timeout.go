package middleware

import (
	"context"
	"time"

	"github.com/leofalp/polychat/core/client"
	"github.com/leofalp/polychat/providers/ai"
)

// NewTimeoutMiddleware creates a MiddlewareConfig that enforces a per-call
// deadline on both send and streaming calls.
//
// For streams the deadline governs the complete lifetime of the stream, not
// just the time to the first byte: the context is released once the stream's
// producer has finished. A shorter caller deadline still wins.
func NewTimeoutMiddleware(timeout time.Duration) client.MiddlewareConfig {
	return client.MiddlewareConfig{
		Send:   buildSendTimeout(timeout),
		Stream: buildStreamTimeout(timeout),
	}
}

func buildSendTimeout(timeout time.Duration) client.Middleware {
	return func(next client.SendFunc) client.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.Reply, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			return next(ctx, request)
		}
	}
}

func buildStreamTimeout(timeout time.Duration) client.StreamMiddleware {
	return func(next client.StreamFunc) client.StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
			ctx, cancel := context.WithTimeout(ctx, timeout)

			stream, err := next(ctx, request)
			if err != nil {
				cancel()
				return nil, err
			}

			go func() {
				<-stream.Done()
				cancel()
			}()
			return stream, nil
		}
	}
}
