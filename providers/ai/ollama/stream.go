package ollama

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/leofalp/polychat/internal/utils"
	"github.com/leofalp/polychat/providers/ai"
)

// deltaParser holds the image payload and tool calls of one stream.
type deltaParser struct {
	image     strings.Builder
	toolCalls []ai.ToolCall
	finished  bool
}

var _ ai.StreamFinisher = (*deltaParser)(nil)

// ParseDeltaJSONResponse converts one NDJSON line.
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

	var line response
	if err := json.Unmarshal(data, &line); err != nil {
		slog.Warn("skipping unparseable ollama line", "error", err.Error(), "data", utils.TruncateString(string(data), 200))
		return nil
	}

	var events []ai.StreamEvent
	text, thinking := textOf(line)
	if thinking != "" {
		events = append(events, ai.ReasoningEvent(thinking))
	}
	if image, ok := strings.CutPrefix(text, imageBase64Prefix); ok {
		p.image.WriteString(strings.TrimSpace(image))
	} else if text != "" {
		events = append(events, ai.TextEvent(text))
	}
	if line.Message != nil && len(line.Message.ToolCalls) > 0 {
		p.toolCalls = append(p.toolCalls, toolCallsFromChat(line.Message.ToolCalls, len(p.toolCalls))...)
	}

	if line.Done {
		events = append(events, p.finish(line.DoneReason))
	}
	return events
}

// Finish delivers a collected image or tool calls when the body ends
// without a done line.
func (p *deltaParser) Finish() []ai.StreamEvent {
	if p.finished || (p.image.Len() == 0 && len(p.toolCalls) == 0) {
		return nil
	}
	return []ai.StreamEvent{p.finish("")}
}

// finish builds the terminal event. A collected image travels on it as the
// final text delta.
func (p *deltaParser) finish(reason string) ai.StreamEvent {
	p.finished = true
	if reason == "" {
		reason = "stop"
	}
	if len(p.toolCalls) > 0 && reason == "stop" {
		reason = "tool_calls"
	}

	event := ai.FinishedEvent(reason, p.toolCalls...)
	if p.image.Len() > 0 {
		event.TextDelta = ai.WrapImageURL(p.image.String())
	}
	p.toolCalls = nil
	p.image.Reset()
	return event
}
