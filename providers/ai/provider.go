package ai

import "context"

// Service is the operation surface the rest of an application depends on.
// Every vendor family implements it, through [Adapter] for HTTP vendors or
// directly for on-device runners.
//
// Errors returned by a Service, and errors carried by stream events, are
// always *Error values.
type Service interface {
	// FetchModels lists the vendor catalog. Local services return an empty list.
	FetchModels(ctx context.Context) ([]ModelID, error)

	// SendMessage performs a single non-streaming round-trip.
	SendMessage(ctx context.Context, request ChatRequest) (*Reply, error)

	// SendMessageStream starts a streaming call. Request preparation errors
	// are returned directly; failures after that arrive as the stream's
	// terminal error event.
	SendMessageStream(ctx context.Context, request ChatRequest) (*ChatStream, error)
}
