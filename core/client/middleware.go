package client

import (
	"context"

	"github.com/leofalp/polychat/providers/ai"
)

// SendFunc sends a chat request and returns the completed reply. It is the
// base unit threaded through the send middleware chain.
type SendFunc func(ctx context.Context, request ai.ChatRequest) (*ai.Reply, error)

// StreamFunc starts a streaming call. It is the base unit threaded through
// the stream middleware chain.
type StreamFunc func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error)

// Middleware intercepts and optionally transforms send calls. Middlewares are
// applied outermost-first: the first middleware in the slice is the outermost
// wrapper.
type Middleware func(next SendFunc) SendFunc

// StreamMiddleware is the streaming counterpart of Middleware. It may wrap
// the returned ChatStream (typically with [ai.ChatStream.Observe]) to watch
// the event sequence.
type StreamMiddleware func(next StreamFunc) StreamFunc

// MiddlewareConfig pairs a send middleware with its optional streaming
// counterpart. Send is required; a nil Stream means streaming calls bypass
// this entry.
type MiddlewareConfig struct {
	Send   Middleware
	Stream StreamMiddleware
}

// buildSendChain wraps service.SendMessage so that middlewares[0] runs first.
func buildSendChain(service ai.Service, middlewares []MiddlewareConfig) SendFunc {
	var chain SendFunc = func(ctx context.Context, request ai.ChatRequest) (*ai.Reply, error) {
		return service.SendMessage(ctx, request)
	}

	for i := len(middlewares) - 1; i >= 0; i-- {
		chain = middlewares[i].Send(chain)
	}

	return chain
}

// buildStreamChain wraps service.SendMessageStream, skipping entries without
// a Stream middleware.
func buildStreamChain(service ai.Service, middlewares []MiddlewareConfig) StreamFunc {
	var chain StreamFunc = func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
		return service.SendMessageStream(ctx, request)
	}

	for i := len(middlewares) - 1; i >= 0; i-- {
		if middlewares[i].Stream != nil {
			chain = middlewares[i].Stream(chain)
		}
	}

	return chain
}
