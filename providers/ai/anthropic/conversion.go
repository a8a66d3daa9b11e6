package anthropic

import (
	"encoding/json"
	"strings"

	"github.com/leofalp/polychat/providers/ai"
	"github.com/leofalp/polychat/providers/attachment"
)

// emptyInputSchema is sent for tools without parameters; input_schema is
// mandatory.
var emptyInputSchema = json.RawMessage(`{"type":"object","properties":{}}`)

// splitSystem lifts the leading system turns out of the history. They are
// joined with a blank line; the remaining turns are returned untouched.
func splitSystem(messages []ai.Message) (string, []ai.Message) {
	var system []string
	i := 0
	for ; i < len(messages) && messages[i].Role == ai.RoleSystem; i++ {
		if text, _ := attachment.ParseMarkers(messages[i].Content); text != "" {
			system = append(system, text)
		}
	}
	return strings.Join(system, "\n\n"), messages[i:]
}

// buildMessages converts the non-system history into Claude turns.
//
// Claude requires alternating user/assistant turns, so consecutive tool
// results are merged into a single user message of tool_result blocks.
func buildMessages(messages []ai.Message, resolver attachment.Resolver) []message {
	var result []message

	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleUser, ai.RoleSystem:
			// A system turn after the first user turn has nowhere else to go.
			content := attachment.Resolve(msg.Content, resolver)
			userMsg := message{Role: "user"}
			for _, image := range content.Images {
				userMsg.Content = append(userMsg.Content, contentBlock{
					Type:   "image",
					Source: &imageSource{Type: "base64", MediaType: image.MIME, Data: image.Base64()},
				})
			}
			if content.Text != "" || len(userMsg.Content) == 0 {
				userMsg.Content = append(userMsg.Content, contentBlock{Type: "text", Text: content.Text})
			}
			result = append(result, userMsg)

		case ai.RoleAssistant:
			assistantMsg := message{Role: "assistant"}
			if text, _ := attachment.ParseMarkers(msg.Content); text != "" {
				assistantMsg.Content = append(assistantMsg.Content, contentBlock{Type: "text", Text: text})
			}
			for _, call := range msg.ToolCalls {
				assistantMsg.Content = append(assistantMsg.Content, contentBlock{
					Type:  "tool_use",
					ID:    call.ID,
					Name:  call.Function.Name,
					Input: json.RawMessage(ai.NormalizeArguments(call.Function.Arguments)),
				})
			}
			if len(assistantMsg.Content) > 0 {
				result = append(result, assistantMsg)
			}

		case ai.RoleTool:
			text, _ := attachment.ParseMarkers(msg.Content)
			block := contentBlock{Type: "tool_result", ToolUseID: msg.ToolCallID, Content: text}
			if len(result) > 0 && isAllToolResults(result[len(result)-1]) {
				result[len(result)-1].Content = append(result[len(result)-1].Content, block)
			} else {
				result = append(result, message{Role: "user", Content: []contentBlock{block}})
			}
		}
	}

	return result
}

// isAllToolResults reports whether msg is a user turn made only of
// tool_result blocks.
func isAllToolResults(msg message) bool {
	if msg.Role != "user" || len(msg.Content) == 0 {
		return false
	}
	for _, block := range msg.Content {
		if block.Type != "tool_result" {
			return false
		}
	}
	return true
}

func buildTools(tools []ai.ToolDescription) []tool {
	if len(tools) == 0 {
		return nil
	}
	result := make([]tool, 0, len(tools))
	for _, description := range tools {
		schema := description.Parameters
		if len(schema) == 0 {
			schema = emptyInputSchema
		}
		result = append(result, tool{Name: description.Name, Description: description.Description, InputSchema: schema})
	}
	return result
}

// responseToReply converts a complete Messages API response. Text blocks and
// thinking blocks are each concatenated; unknown block types are skipped.
func responseToReply(response messagesResponse) *ai.Reply {
	var text, reasoning strings.Builder
	reply := &ai.Reply{Role: ai.RoleAssistant}

	for _, block := range response.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "thinking":
			reasoning.WriteString(block.Thinking)
		case "tool_use":
			reply.ToolCalls = append(reply.ToolCalls, ai.ToolCall{
				ID:   block.ID,
				Type: "function",
				Function: ai.FunctionCall{
					Name:      block.Name,
					Arguments: ai.EncodeArguments(block.Input),
				},
			})
		}
	}

	reply.Text, _ = ai.ComposeResponse(reasoning.String(), text.String())
	return reply
}

// mapStopReason converts a stop_reason to the finish reason reported on
// terminal events.
func mapStopReason(stopReason string) string {
	switch stopReason {
	case "tool_use":
		return "tool_calls"
	case "max_tokens":
		return "length"
	default:
		return "stop"
	}
}
