package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/leofalp/polychat/core/client"
	"github.com/leofalp/polychat/internal/utils"
	"github.com/leofalp/polychat/providers/ai"
)

// LogLevel controls how much detail the logging middleware emits per call.
type LogLevel int

const (
	// LogLevelMinimal logs the model, request id and duration.
	LogLevelMinimal LogLevel = iota

	// LogLevelStandard adds message counts, finish reasons and error kinds.
	LogLevelStandard

	// LogLevelVerbose adds the first message and the reply text, each
	// truncated to 500 characters.
	//
	// WARNING: DO NOT use LogLevelVerbose in production. It logs raw prompt
	// and reply text, which may contain sensitive user data.
	LogLevelVerbose
)

const truncateLen = 500

// NewLoggingMiddleware creates a MiddlewareConfig that emits structured slog
// entries before and after every call. For streams the completion entry is
// written when the terminal event passes through.
//
// logger must not be nil; use slog.Default() when no custom logger exists.
func NewLoggingMiddleware(logger *slog.Logger, level LogLevel) client.MiddlewareConfig {
	return client.MiddlewareConfig{
		Send:   buildSendLogging(logger, level),
		Stream: buildStreamLogging(logger, level),
	}
}

func buildSendLogging(logger *slog.Logger, level LogLevel) client.Middleware {
	return func(next client.SendFunc) client.SendFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.Reply, error) {
			logger.InfoContext(ctx, "llm send", buildRequestAttrs(ctx, request, level)...)

			start := time.Now()
			reply, err := next(ctx, request)
			elapsed := time.Since(start)

			if err != nil {
				logger.ErrorContext(ctx, "llm send failed", buildErrorAttrs(ctx, request.Model, elapsed, err, level)...)
				return nil, err
			}

			attrs := []any{
				slog.String("model", request.Model),
				slog.String("request_id", client.RequestIDFromContext(ctx)),
				slog.Duration("duration", elapsed),
			}
			if level >= LogLevelStandard {
				attrs = append(attrs, slog.Int("tool_calls", len(reply.ToolCalls)))
			}
			if level >= LogLevelVerbose && reply.Text != "" {
				attrs = append(attrs, slog.String("response_content", utils.TruncateString(reply.Text, truncateLen)))
			}
			logger.InfoContext(ctx, "llm send completed", attrs...)

			return reply, nil
		}
	}
}

func buildStreamLogging(logger *slog.Logger, level LogLevel) client.StreamMiddleware {
	return func(next client.StreamFunc) client.StreamFunc {
		return func(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
			logger.InfoContext(ctx, "llm stream", buildRequestAttrs(ctx, request, level)...)

			start := time.Now()
			stream, err := next(ctx, request)
			if err != nil {
				logger.ErrorContext(ctx, "llm stream failed", buildErrorAttrs(ctx, request.Model, time.Since(start), err, level)...)
				return nil, err
			}

			return wrapStreamWithLogging(ctx, stream, logger, request.Model, level, start), nil
		}
	}
}

// wrapStreamWithLogging logs the terminal event, or an abandoned entry when
// the stream is closed before one arrives.
func wrapStreamWithLogging(
	ctx context.Context,
	stream *ai.ChatStream,
	logger *slog.Logger,
	model string,
	level LogLevel,
	start time.Time,
) *ai.ChatStream {
	var content []byte
	terminated := false

	wrapped := stream.Observe(func(event ai.StreamEvent) {
		if level >= LogLevelVerbose && event.Role != ai.StreamRoleReasoning && len(content) < truncateLen {
			content = append(content, event.TextDelta...)
		}
		if !event.IsTerminal() {
			return
		}
		terminated = true
		elapsed := time.Since(start)

		if event.Err != nil {
			logger.ErrorContext(ctx, "llm stream failed", buildErrorAttrs(ctx, model, elapsed, event.Err, level)...)
			return
		}

		attrs := []any{
			slog.String("model", model),
			slog.String("request_id", client.RequestIDFromContext(ctx)),
			slog.Duration("duration", elapsed),
		}
		if level >= LogLevelStandard && event.FinishReason != "" {
			attrs = append(attrs, slog.String("finish_reason", event.FinishReason))
		}
		if level >= LogLevelVerbose && len(content) > 0 {
			attrs = append(attrs, slog.String("response_content", utils.TruncateString(string(content), truncateLen)))
		}
		logger.InfoContext(ctx, "llm stream completed", attrs...)
	})

	go func() {
		<-wrapped.Done()
		if terminated {
			return
		}
		logger.InfoContext(ctx, "llm stream abandoned",
			slog.String("model", model),
			slog.String("request_id", client.RequestIDFromContext(ctx)),
			slog.Duration("duration", time.Since(start)),
		)
	}()

	return wrapped
}

func buildRequestAttrs(ctx context.Context, request ai.ChatRequest, level LogLevel) []any {
	attrs := []any{
		slog.String("model", request.Model),
		slog.String("request_id", client.RequestIDFromContext(ctx)),
	}

	if level >= LogLevelStandard {
		attrs = append(attrs, slog.Int("message_count", len(request.Messages)))
	}

	if level >= LogLevelVerbose && len(request.Messages) > 0 {
		first := request.Messages[0]
		attrs = append(attrs,
			slog.String("first_message_role", string(first.Role)),
			slog.String("first_message_content", utils.TruncateString(first.Content, truncateLen)),
		)
	}

	return attrs
}

func buildErrorAttrs(ctx context.Context, model string, elapsed time.Duration, err error, level LogLevel) []any {
	attrs := []any{
		slog.String("model", model),
		slog.String("request_id", client.RequestIDFromContext(ctx)),
		slog.Duration("duration", elapsed),
		slog.String("error", err.Error()),
	}
	if level >= LogLevelStandard {
		attrs = append(attrs, slog.String("error_kind", string(ai.KindOf(err))))
	}
	return attrs
}
