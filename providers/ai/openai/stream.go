package openai

import (
	"encoding/json"
	"log/slog"

	"github.com/leofalp/polychat/internal/utils"
	"github.com/leofalp/polychat/providers/ai"
)

// terminalFinishReasons end the stream when seen in a choice.
var terminalFinishReasons = map[string]bool{
	"stop":           true,
	"tool_calls":     true,
	"function_call":  true,
	"length":         true,
	"content_filter": true,
}

// deltaParser holds the tool-call fragments of one stream.
type deltaParser struct {
	toolCalls ai.ToolCallAccumulator
}

var _ ai.StreamFinisher = (*deltaParser)(nil)

// ParseDeltaJSONResponse converts one SSE payload.
func (p *deltaParser) ParseDeltaJSONResponse(data []byte) []ai.StreamEvent {
	if data == nil {
		return []ai.StreamEvent{ai.NoDataEvent()}
	}
	if payloadErr, ok := ai.PayloadError(data); ok {
		return []ai.StreamEvent{ai.ErrorEvent(payloadErr)}
	}

	var chunk streamChunk
	if err := json.Unmarshal(data, &chunk); err != nil {
		slog.Warn("skipping unparseable stream chunk", "error", err.Error(), "data", utils.TruncateString(string(data), 200))
		return nil
	}
	if chunk.Choices == nil {
		return []ai.StreamEvent{ai.DecodingFailedEvent("stream chunk has no choices")}
	}

	var events []ai.StreamEvent
	for _, choice := range chunk.Choices {
		delta := choice.Delta

		if reasoning := firstNonEmpty(delta.ReasoningContent, delta.Reasoning); reasoning != "" {
			events = append(events, ai.ReasoningEvent(reasoning))
		}
		if text, ok := ai.ExtractTextContent(delta.Content); ok && text != "" {
			events = append(events, ai.TextEvent(text))
		}
		for _, part := range delta.ToolCalls {
			p.toolCalls.Start(part.Index, part.ID, part.Function.Name)
			p.toolCalls.AppendArguments(part.Index, part.Function.Arguments)
		}

		if choice.FinishReason != nil && terminalFinishReasons[*choice.FinishReason] {
			events = append(events, ai.FinishedEvent(*choice.FinishReason, p.toolCalls.Drain()...))
			break
		}
	}
	return events
}

// Finish delivers tool calls left pending when the body ends at [DONE]
// without a finish_reason.
func (p *deltaParser) Finish() []ai.StreamEvent {
	if p.toolCalls.Len() == 0 {
		return nil
	}
	return []ai.StreamEvent{ai.FinishedEvent("tool_calls", p.toolCalls.Drain()...)}
}

func firstNonEmpty(values ...*string) string {
	for _, value := range values {
		if value != nil && *value != "" {
			return *value
		}
	}
	return ""
}
