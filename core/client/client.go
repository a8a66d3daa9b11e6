package client

import (
	"context"
	"errors"
	"fmt"

	"github.com/leofalp/polychat/providers/ai"
	"github.com/leofalp/polychat/providers/observability"
)

// Client sends chat requests to one ai.Service through a middleware chain.
// A Client is immutable after New and safe for concurrent use.
type Client struct {
	service      ai.Service
	systemPrompt string
	defaultModel string

	send   SendFunc
	stream StreamFunc
}

// ClientOptions collects the settings applied by [Option] values.
type ClientOptions struct {
	Observer     observability.Provider
	Middlewares  []MiddlewareConfig
	SystemPrompt string
	// DefaultModel labels spans and logs when a request leaves Model empty.
	DefaultModel string
}

// Option configures a Client.
type Option func(*ClientOptions)

// WithObserver enables tracing, metrics and log events. The observability
// middleware is always the outermost wrapper.
func WithObserver(observer observability.Provider) Option {
	return func(o *ClientOptions) { o.Observer = observer }
}

// WithMiddleware appends middlewares to the chain, outermost first.
func WithMiddleware(middlewares ...MiddlewareConfig) Option {
	return func(o *ClientOptions) { o.Middlewares = append(o.Middlewares, middlewares...) }
}

// WithSystemPrompt prepends a system turn to requests that carry none.
func WithSystemPrompt(prompt string) Option {
	return func(o *ClientOptions) { o.SystemPrompt = prompt }
}

// WithDefaultModel sets the model name used for labels.
func WithDefaultModel(model string) Option {
	return func(o *ClientOptions) { o.DefaultModel = model }
}

// New builds a Client over service.
func New(service ai.Service, opts ...Option) (*Client, error) {
	if service == nil {
		return nil, errors.New("client: service must not be nil")
	}

	options := &ClientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	middlewares := options.Middlewares
	for i, middleware := range middlewares {
		if middleware.Send == nil {
			return nil, fmt.Errorf("client: middleware at index %d has a nil Send function", i)
		}
	}
	if options.Observer != nil {
		middlewares = append([]MiddlewareConfig{NewObservabilityMiddleware(options.Observer, options.DefaultModel)}, middlewares...)
	}

	return &Client{
		service:      service,
		systemPrompt: options.SystemPrompt,
		defaultModel: options.DefaultModel,
		send:         buildSendChain(service, middlewares),
		stream:       buildStreamChain(service, middlewares),
	}, nil
}

// Service returns the wrapped service.
func (c *Client) Service() ai.Service { return c.service }

// SendMessage performs a non-streaming call.
func (c *Client) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.Reply, error) {
	return c.send(ensureRequestID(ctx), c.prepare(request))
}

// StreamMessage starts a streaming call.
func (c *Client) StreamMessage(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	return c.stream(ensureRequestID(ctx), c.prepare(request))
}

// Ask sends a single user prompt and returns the reply text.
func (c *Client) Ask(ctx context.Context, prompt string) (string, error) {
	reply, err := c.SendMessage(ctx, ai.ChatRequest{
		Messages: []ai.Message{{Role: ai.RoleUser, Content: prompt}},
	})
	if err != nil {
		return "", err
	}
	return reply.Text, nil
}

// FetchModels lists the service catalog.
func (c *Client) FetchModels(ctx context.Context) ([]ai.ModelID, error) {
	return c.service.FetchModels(ctx)
}

func (c *Client) prepare(request ai.ChatRequest) ai.ChatRequest {
	if c.systemPrompt == "" {
		return request
	}
	for _, msg := range request.Messages {
		if msg.Role == ai.RoleSystem {
			return request
		}
	}
	messages := make([]ai.Message, 0, len(request.Messages)+1)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: c.systemPrompt})
	request.Messages = append(messages, request.Messages...)
	return request
}
