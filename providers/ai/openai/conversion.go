package openai

import (
	"github.com/leofalp/polychat/providers/ai"
	"github.com/leofalp/polychat/providers/attachment"
)

// messagesToChat converts the history, resolving attachment markers. User
// turns with images become typed-parts arrays; everything else stays a plain
// string.
func messagesToChat(messages []ai.Message, resolver attachment.Resolver) []chatMessage {
	converted := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		content := attachment.Resolve(msg.Content, resolver)

		chatMsg := chatMessage{
			Role:       string(msg.Role),
			Name:       msg.Name,
			ToolCallID: msg.ToolCallID,
		}

		switch {
		case msg.Role == ai.RoleUser && content.HasImages():
			parts := make([]contentPart, 0, len(content.Images)+1)
			parts = append(parts, contentPart{Type: "text", Text: content.Text})
			for _, image := range content.Images {
				parts = append(parts, contentPart{
					Type:     "image_url",
					ImageURL: &contentPartImage{URL: image.DataURL()},
				})
			}
			chatMsg.Content = parts
		case content.Text == "" && len(msg.ToolCalls) > 0:
			// Assistant tool-call turns carry no content.
		default:
			chatMsg.Content = content.Text
		}

		for _, call := range msg.ToolCalls {
			toolCall := chatToolCall{ID: call.ID, Type: "function"}
			toolCall.Function.Name = call.Function.Name
			toolCall.Function.Arguments = call.Function.Arguments
			chatMsg.ToolCalls = append(chatMsg.ToolCalls, toolCall)
		}

		converted = append(converted, chatMsg)
	}
	return converted
}

func toolsToChat(tools []ai.ToolDescription) []chatTool {
	if len(tools) == 0 {
		return nil
	}
	converted := make([]chatTool, 0, len(tools))
	for _, tool := range tools {
		converted = append(converted, chatTool{
			Type: "function",
			Function: chatFunction{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  tool.Parameters,
			},
		})
	}
	return converted
}

func toolCallsFromChat(calls []chatToolCall) []ai.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	converted := make([]ai.ToolCall, 0, len(calls))
	for _, call := range calls {
		converted = append(converted, ai.ToolCall{
			ID:   call.ID,
			Type: "function",
			Function: ai.FunctionCall{
				Name:      call.Function.Name,
				Arguments: ai.NormalizeArguments(call.Function.Arguments),
			},
		})
	}
	return converted
}

// lastUserText returns the text of the most recent user turn with markers
// stripped. It is the prompt for image generation.
func lastUserText(messages []ai.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == ai.RoleUser {
			text, _ := attachment.ParseMarkers(messages[i].Content)
			return text
		}
	}
	return ""
}
