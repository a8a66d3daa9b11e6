package gemini

import (
	"encoding/json"
	"log/slog"

	"github.com/leofalp/polychat/internal/utils"
	"github.com/leofalp/polychat/providers/ai"
)

// deltaParser converts the chunks of one stream. Gemini sends function
// calls whole, so they are only collected until the terminal chunk.
type deltaParser struct {
	toolCalls []ai.ToolCall
	issued    int
	finished  bool
}

var _ ai.StreamFinisher = (*deltaParser)(nil)

// ParseDeltaJSONResponse converts one array element. Each element is an
// incremental generateContentResponse.
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

	var chunk generateContentResponse
	if err := json.Unmarshal(data, &chunk); err != nil {
		slog.Warn("skipping unparseable gemini chunk", "error", err.Error(), "data", utils.TruncateString(string(data), 200))
		return nil
	}

	if len(chunk.Candidates) == 0 {
		switch {
		case chunk.PromptFeedback != nil && chunk.PromptFeedback.BlockReason != "":
			return p.finish("content_filter")
		case chunk.Done:
			return p.finish("stop")
		}
		return nil
	}

	var events []ai.StreamEvent
	candidate := chunk.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			switch {
			case part.Text != "" && part.Thought:
				events = append(events, ai.ReasoningEvent(part.Text))
			case part.Text != "":
				events = append(events, ai.TextEvent(part.Text))
			case part.InlineData != nil:
				events = append(events, ai.TextEvent(inlineImage(part.InlineData)))
			}

			if part.FunctionCall != nil {
				p.toolCalls = append(p.toolCalls, ai.ToolCall{
					ID:   toolCallID(p.issued),
					Type: "function",
					Function: ai.FunctionCall{
						Name:      part.FunctionCall.Name,
						Arguments: ai.EncodeArguments(part.FunctionCall.Args),
					},
				})
				p.issued++
			}
		}
	}

	if candidate.FinishReason != "" || chunk.Done {
		events = append(events, p.finish(mapFinishReason(candidate.FinishReason))...)
	}
	return events
}

// Finish delivers function calls when the array ends without a finishReason.
func (p *deltaParser) Finish() []ai.StreamEvent {
	if p.finished || len(p.toolCalls) == 0 {
		return nil
	}
	return p.finish("stop")
}

func (p *deltaParser) finish(reason string) []ai.StreamEvent {
	p.finished = true
	toolCalls := p.toolCalls
	p.toolCalls = nil
	if len(toolCalls) > 0 && reason == "stop" {
		reason = "tool_calls"
	}
	return []ai.StreamEvent{ai.FinishedEvent(reason, toolCalls...)}
}
