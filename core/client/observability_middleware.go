package client

import (
	"context"
	"time"

	"github.com/leofalp/polychat/internal/utils"
	"github.com/leofalp/polychat/providers/ai"
	"github.com/leofalp/polychat/providers/observability"
)

// NewObservabilityMiddleware creates a MiddlewareConfig that provides tracing
// spans, metrics and log events for every call.
//
// The send middleware records a span from the moment the request enters the
// chain to when the reply (or error) is returned. The stream middleware keeps
// the span open until the stream delivers its terminal event, or is closed
// before one arrives.
//
// Both the span and the observer are injected into the context before calling
// next, so adapters can retrieve them via [observability.SpanFromContext].
func NewObservabilityMiddleware(observer observability.Provider, defaultModel string) MiddlewareConfig {
	return MiddlewareConfig{
		Send:   buildObsSend(observer, defaultModel),
		Stream: buildObsStream(observer, defaultModel),
	}
}

func buildObsSend(observer observability.Provider, defaultModel string) Middleware {
	return func(next SendFunc) SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.Reply, error) {
			model := effectiveModel(request.Model, defaultModel)

			ctx, span := startObsSpan(ctx, observer, observability.SpanClientSendMessage, model, request)

			start := time.Now()
			reply, err := next(ctx, request)
			elapsed := time.Since(start)

			if err != nil {
				recordObsError(ctx, span, observer, err, elapsed, model, "llm send failed")
				return nil, err
			}

			recordObsSuccess(ctx, span, observer, elapsed, model, "llm send completed",
				observability.Int(observability.AttrResponseLength, len(reply.Text)),
				observability.Int(observability.AttrResponseToolCalls, len(reply.ToolCalls)),
				observability.String("response", utils.TruncateString(reply.Text, 100)),
			)
			return reply, nil
		}
	}
}

func buildObsStream(observer observability.Provider, defaultModel string) StreamMiddleware {
	return func(next StreamFunc) StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
			model := effectiveModel(request.Model, defaultModel)

			ctx, span := startObsSpan(ctx, observer, observability.SpanClientStreamMessage, model, request)

			start := time.Now()
			stream, err := next(ctx, request)
			if err != nil {
				recordObsError(ctx, span, observer, err, time.Since(start), model, "llm stream failed")
				return nil, err
			}

			return wrapStreamWithObservability(ctx, stream, span, observer, start, model), nil
		}
	}
}

// wrapStreamWithObservability records the outcome when the terminal event
// passes through. Events are observed before the consumer receives them, so
// metrics are in place by the time the caller sees the terminal event.
func wrapStreamWithObservability(
	ctx context.Context,
	stream *ai.ChatStream,
	span observability.Span,
	observer observability.Provider,
	start time.Time,
	model string,
) *ai.ChatStream {
	events := 0
	terminated := false

	wrapped := stream.Observe(func(event ai.StreamEvent) {
		events++
		if !event.IsTerminal() {
			return
		}
		terminated = true
		elapsed := time.Since(start)
		span.AddEvent(observability.EventStreamTerminal,
			observability.String(observability.AttrLLMFinishReason, event.FinishReason),
		)
		if event.Err != nil {
			recordObsError(ctx, span, observer, event.Err, elapsed, model, "llm stream failed")
			return
		}
		recordObsSuccess(ctx, span, observer, elapsed, model, "llm stream completed",
			observability.String(observability.AttrLLMFinishReason, event.FinishReason),
			observability.Int(observability.AttrStreamEvents, events),
		)
	})

	go func() {
		<-wrapped.Done()
		if terminated {
			return
		}
		span.SetStatus(observability.StatusOK, "llm stream abandoned")
		span.End()
		observer.Info(ctx, "llm stream abandoned",
			observability.String(observability.AttrLLMModel, model),
			observability.Int(observability.AttrStreamEvents, events),
			observability.Duration(observability.AttrDuration, time.Since(start)),
		)
	}()

	return wrapped
}

func startObsSpan(ctx context.Context, observer observability.Provider, name, model string, request ai.ChatRequest) (context.Context, observability.Span) {
	attrs := []observability.Attribute{
		observability.String(observability.AttrLLMModel, model),
		observability.Int(observability.AttrRequestMessagesCount, len(request.Messages)),
		observability.Int(observability.AttrRequestToolsCount, len(request.Tools)),
		observability.Float64(observability.AttrLLMTemperature, request.Temperature),
	}
	if id := RequestIDFromContext(ctx); id != "" {
		attrs = append(attrs, observability.String(observability.AttrRequestID, id))
	}

	ctx, span := observer.StartSpan(ctx, name, attrs...)
	ctx = observability.ContextWithSpan(ctx, span)
	ctx = observability.ContextWithObserver(ctx, observer)

	observer.Debug(ctx, "llm request", attrs...)
	return ctx, span
}

func recordObsError(
	ctx context.Context,
	span observability.Span,
	observer observability.Provider,
	err error,
	elapsed time.Duration,
	model string,
	message string,
) {
	kind := string(ai.KindOf(err))

	span.RecordError(err)
	span.SetAttributes(observability.String(observability.AttrErrorKind, kind))
	span.SetStatus(observability.StatusError, message)
	span.End()

	observer.Error(ctx, message,
		observability.Error(err),
		observability.String(observability.AttrErrorKind, kind),
		observability.Duration(observability.AttrDuration, elapsed),
		observability.String(observability.AttrLLMModel, model),
	)

	observer.Counter(observability.MetricClientRequestCount).Add(ctx, 1,
		observability.String(observability.AttrLLMModel, model),
		observability.String("status", "error"),
	)
	observer.Counter(observability.MetricClientErrorCount).Add(ctx, 1,
		observability.String(observability.AttrLLMModel, model),
		observability.String(observability.AttrErrorKind, kind),
	)
}

func recordObsSuccess(
	ctx context.Context,
	span observability.Span,
	observer observability.Provider,
	elapsed time.Duration,
	model string,
	message string,
	attrs ...observability.Attribute,
) {
	observer.Histogram(observability.MetricClientRequestDuration).Record(ctx, float64(elapsed.Milliseconds()),
		observability.String(observability.AttrLLMModel, model),
	)
	observer.Counter(observability.MetricClientRequestCount).Add(ctx, 1,
		observability.String(observability.AttrLLMModel, model),
		observability.String("status", "success"),
	)

	logAttrs := append([]observability.Attribute{
		observability.String(observability.AttrLLMModel, model),
		observability.Duration(observability.AttrDuration, elapsed),
	}, attrs...)
	observer.Info(ctx, message, logAttrs...)

	span.SetAttributes(attrs...)
	span.SetStatus(observability.StatusOK, "success")
	span.End()
}

// effectiveModel returns the request-level model when set, falling back to
// the client's configured default. Both being empty is valid.
func effectiveModel(requestModel, defaultModel string) string {
	if requestModel != "" {
		return requestModel
	}
	return defaultModel
}
