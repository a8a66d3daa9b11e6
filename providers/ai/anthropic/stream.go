package anthropic

import (
	"encoding/json"
	"log/slog"

	"github.com/leofalp/polychat/internal/utils"
	"github.com/leofalp/polychat/providers/ai"
)

// terminalStopReasons end the stream when carried by message_delta.
var terminalStopReasons = map[string]bool{
	"end_turn":      true,
	"stop_sequence": true,
	"max_tokens":    true,
	"tool_use":      true,
}

// deltaParser tracks the tool_use blocks of one stream. Blocks are keyed by
// their content block index.
type deltaParser struct {
	toolCalls ai.ToolCallAccumulator
	finished  bool
}

var _ ai.StreamFinisher = (*deltaParser)(nil)

// ParseDeltaJSONResponse converts one typed SSE payload.
func (p *deltaParser) ParseDeltaJSONResponse(data []byte) []ai.StreamEvent {
	if data == nil {
		return []ai.StreamEvent{ai.NoDataEvent()}
	}
	if p.finished {
		return nil
	}
	if payloadErr, ok := ai.PayloadError(data); ok {
		p.finished = true
		return []ai.StreamEvent{ai.ErrorEvent(payloadErr)}
	}

	var event streamEvent
	if err := json.Unmarshal(data, &event); err != nil {
		slog.Warn("skipping unparseable anthropic event", "error", err.Error(), "data", utils.TruncateString(string(data), 200))
		return nil
	}

	switch event.Type {
	case "":
		p.finished = true
		return []ai.StreamEvent{ai.DecodingFailedEvent("anthropic stream event has no type")}

	case "content_block_start":
		block := event.ContentBlock
		if block == nil {
			return nil
		}
		switch block.Type {
		case "text":
			if block.Text != "" {
				return []ai.StreamEvent{ai.TextEvent(block.Text)}
			}
		case "thinking":
			if block.Thinking != "" {
				return []ai.StreamEvent{ai.ReasoningEvent(block.Thinking)}
			}
		case "tool_use":
			// Input is always {} here; the arguments follow as input_json_delta.
			p.toolCalls.Start(event.Index, block.ID, block.Name)
		}

	case "content_block_delta":
		delta := event.Delta
		if delta == nil {
			return nil
		}
		switch delta.Type {
		case "text_delta":
			if delta.Text != "" {
				return []ai.StreamEvent{ai.TextEvent(delta.Text)}
			}
		case "thinking_delta":
			if delta.Thinking != "" {
				return []ai.StreamEvent{ai.ReasoningEvent(delta.Thinking)}
			}
		case "input_json_delta":
			p.toolCalls.AppendArguments(event.Index, delta.PartialJSON)
		}

	case "message_delta":
		if event.Delta != nil && terminalStopReasons[event.Delta.StopReason] {
			return p.finish(mapStopReason(event.Delta.StopReason))
		}

	case "message_stop":
		return p.finish("stop")

	case "ping", "message_start", "content_block_stop":
	}
	return nil
}

// Finish delivers pending tool calls when the body ends without
// message_delta or message_stop.
func (p *deltaParser) Finish() []ai.StreamEvent {
	if p.finished || p.toolCalls.Len() == 0 {
		return nil
	}
	return p.finish("tool_calls")
}

func (p *deltaParser) finish(reason string) []ai.StreamEvent {
	p.finished = true
	return []ai.StreamEvent{ai.FinishedEvent(reason, p.toolCalls.Drain()...)}
}
