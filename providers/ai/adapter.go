package ai

import (
	"context"
	"errors"
	"net/http"

	"github.com/leofalp/polychat/internal/utils"
	"github.com/leofalp/polychat/providers/observability"
)

// Adapter implements Service for HTTP vendors by pairing a Codec with the
// shared transport: request execution, error classification and stream
// framing. It holds no per-call state and is safe for concurrent use.
type Adapter struct {
	codec      Codec
	httpClient *http.Client
}

var _ Service = (*Adapter)(nil)

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithHTTPClient replaces the default client (10 minute timeout).
func WithHTTPClient(client *http.Client) AdapterOption {
	return func(a *Adapter) {
		if client != nil {
			a.httpClient = client
		}
	}
}

// NewAdapter wraps codec into a Service.
func NewAdapter(codec Codec, opts ...AdapterOption) *Adapter {
	adapter := &Adapter{
		codec:      codec,
		httpClient: utils.NewHTTPClient(),
	}
	for _, opt := range opts {
		opt(adapter)
	}
	return adapter
}

// Name returns the codec name.
func (a *Adapter) Name() string { return a.codec.Name() }

// PrepareRequest builds the vendor request without sending it.
func (a *Adapter) PrepareRequest(ctx context.Context, request ChatRequest) (*PreparedRequest, error) {
	prepared, err := a.codec.PrepareRequest(ctx, request)
	if err != nil {
		return nil, asPrepareError(err)
	}
	return prepared, nil
}

// ParseJSONResponse delegates to the codec.
func (a *Adapter) ParseJSONResponse(data []byte) (*Reply, bool) {
	return a.codec.ParseJSONResponse(data)
}

// ParseDeltaJSONResponse parses a single frame with a fresh parser. Streams
// use one parser for all their frames; this entry point is for one-off frames.
func (a *Adapter) ParseDeltaJSONResponse(data []byte) []StreamEvent {
	return a.codec.NewDeltaParser().ParseDeltaJSONResponse(data)
}

// FetchModels requests and parses the vendor catalog.
func (a *Adapter) FetchModels(ctx context.Context) ([]ModelID, error) {
	req, err := a.codec.PrepareModelsRequest(ctx)
	if err != nil {
		return nil, asPrepareError(err)
	}

	response, body, err := utils.Do(a.httpClient, req)
	if err != nil {
		return nil, Classify(err)
	}
	if classified := ClassifyHTTP(response, body); classified != nil {
		return nil, classified
	}

	models, err := a.codec.ParseModels(body)
	if err != nil {
		return nil, &Error{Kind: KindDecodingFailed, Message: "error parsing model list", Err: err}
	}
	return models, nil
}

// SendMessage performs a non-streaming call.
func (a *Adapter) SendMessage(ctx context.Context, request ChatRequest) (*Reply, error) {
	request.Stream = false
	prepared, err := a.PrepareRequest(ctx, request)
	if err != nil {
		return nil, err
	}

	a.logRequest(ctx, prepared, request)

	response, body, err := utils.Do(a.httpClient, prepared.HTTP)
	if err != nil {
		return nil, Classify(err)
	}
	if classified := ClassifyHTTP(response, body); classified != nil {
		return nil, classified
	}

	reply, ok := a.codec.ParseJSONResponse(body)
	if !ok || reply == nil {
		if payloadErr, isError := PayloadError(body); isError {
			return nil, payloadErr
		}
		return nil, NewError(KindDecodingFailed, "unrecognized %s response: %s", a.codec.Name(), utils.TruncateString(string(body), 200))
	}
	return reply, nil
}

// SendMessageStream prepares the request synchronously and starts a producer
// that opens the body and feeds it through the codec's delta parser.
func (a *Adapter) SendMessageStream(ctx context.Context, request ChatRequest) (*ChatStream, error) {
	request.Stream = true
	prepared, err := a.PrepareRequest(ctx, request)
	if err != nil {
		return nil, err
	}

	a.logRequest(ctx, prepared, request)

	parser := a.codec.NewDeltaParser()
	return NewChatStream(ctx, func(ctx context.Context, emit Emit) {
		if !prepared.Streaming {
			a.replayJSON(ctx, prepared, emit)
			return
		}
		a.pump(ctx, prepared, parser, emit)
	}), nil
}

func (a *Adapter) pump(ctx context.Context, prepared *PreparedRequest, parser DeltaParser, emit Emit) {
	response, err := utils.Open(a.httpClient, prepared.HTTP.WithContext(ctx))
	if err != nil {
		emit(ErrorEvent(err))
		return
	}
	defer utils.CloseWithLog(response.Body)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		body, _ := utils.ReadLimited(response.Body)
		emit(ErrorEvent(ClassifyHTTP(response, body)))
		return
	}

	terminated := false
	deliver := func(events []StreamEvent) bool {
		for _, event := range events {
			if event.IsTerminal() {
				terminated = true
			}
			if !emit(event) {
				return false
			}
		}
		return true
	}

	err = utils.PumpFrames(ctx, response.Body, prepared.Framing, func(frame utils.Frame) bool {
		if frame.Done {
			return false
		}
		return deliver(parser.ParseDeltaJSONResponse(frame.Data))
	})
	if terminated || ctx.Err() != nil {
		return
	}
	if err != nil {
		if errors.Is(err, utils.ErrFrameTooLarge) {
			emit(ErrorEvent(NewError(KindRequestFailed, "%s", err.Error())))
			return
		}
		emit(ErrorEvent(err))
		return
	}

	if finisher, ok := parser.(StreamFinisher); ok {
		deliver(finisher.Finish())
	}
	// The stream synthesizes the terminal event when none was produced.
}

func (a *Adapter) replayJSON(ctx context.Context, prepared *PreparedRequest, emit Emit) {
	response, body, err := utils.Do(a.httpClient, prepared.HTTP.WithContext(ctx))
	if err != nil {
		emit(ErrorEvent(err))
		return
	}
	if classified := ClassifyHTTP(response, body); classified != nil {
		emit(ErrorEvent(classified))
		return
	}

	reply, ok := a.codec.ParseJSONResponse(body)
	if !ok || reply == nil {
		emit(DecodingFailedEvent("unrecognized %s response", a.codec.Name()))
		return
	}
	if reply.Text != "" && !emit(TextEvent(reply.Text)) {
		return
	}
	emit(FinishedEvent("stop", reply.ToolCalls...))
}

func (a *Adapter) logRequest(ctx context.Context, prepared *PreparedRequest, request ChatRequest) {
	observer := observability.ObserverFromContext(ctx)
	if observer == nil {
		return
	}
	observer.Debug(ctx, "sending chat request",
		observability.String(observability.AttrLLMProvider, a.codec.Name()),
		observability.String(observability.AttrLLMModel, prepared.Model),
		observability.String(observability.AttrLLMEndpoint, utils.RedactURL(prepared.HTTP.URL.String())),
		observability.Bool(observability.AttrLLMStreaming, request.Stream),
		observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
		observability.Int(observability.AttrRequestToolsCount, len(request.Tools)),
	)
}

// asPrepareError keeps taxonomy errors and files everything else under
// requestFailed: the request could not be built.
func asPrepareError(err error) error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return &Error{Kind: KindRequestFailed, Message: err.Error(), Err: err}
}
