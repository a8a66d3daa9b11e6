package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leofalp/polychat/providers/ai"
	"github.com/leofalp/polychat/providers/attachment"
)

// buildContents converts the history.
// Role mapping: user -> user, assistant -> model, tool -> user with
// functionResponse. System text is prepended to the next user turn, or sent
// as its own user turn when no user turn follows.
func buildContents(messages []ai.Message, resolver attachment.Resolver) []content {
	var contents []content
	var pendingSystem []string

	for _, msg := range messages {
		switch msg.Role {
		case ai.RoleSystem:
			if text, _ := attachment.ParseMarkers(msg.Content); text != "" {
				pendingSystem = append(pendingSystem, text)
			}

		case ai.RoleUser:
			resolved := attachment.Resolve(msg.Content, resolver)
			text := resolved.Text
			if len(pendingSystem) > 0 {
				text = joinNonEmpty(append(pendingSystem, text))
				pendingSystem = nil
			}

			userContent := content{Role: "user"}
			for _, image := range resolved.Images {
				userContent.Parts = append(userContent.Parts, part{
					InlineData: &inlineData{MimeType: image.MIME, Data: image.Base64()},
				})
			}
			if text != "" || len(userContent.Parts) == 0 {
				userContent.Parts = append(userContent.Parts, part{Text: text})
			}
			contents = append(contents, userContent)

		case ai.RoleAssistant:
			modelContent := content{Role: "model"}
			if text, _ := attachment.ParseMarkers(msg.Content); text != "" {
				modelContent.Parts = append(modelContent.Parts, part{Text: text})
			}
			for _, call := range msg.ToolCalls {
				modelContent.Parts = append(modelContent.Parts, part{
					FunctionCall: &functionCall{
						Name: call.Function.Name,
						Args: json.RawMessage(ai.NormalizeArguments(call.Function.Arguments)),
					},
				})
			}
			if len(modelContent.Parts) > 0 {
				contents = append(contents, modelContent)
			}

		case ai.RoleTool:
			text, _ := attachment.ParseMarkers(msg.Content)
			contents = append(contents, content{
				Role: "user",
				Parts: []part{{
					FunctionResponse: &functionResponse{Name: msg.Name, Response: toolResponse(text)},
				}},
			})
		}
	}

	if len(pendingSystem) > 0 {
		contents = append(contents, content{Role: "user", Parts: []part{{Text: joinNonEmpty(pendingSystem)}}})
	}
	return contents
}

// toolResponse returns text when it is a JSON object, otherwise wraps it as
// {"content": text}. functionResponse.response must be an object.
func toolResponse(text string) json.RawMessage {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "{") && json.Valid([]byte(trimmed)) {
		return json.RawMessage(trimmed)
	}
	wrapped, _ := json.Marshal(map[string]string{"content": text})
	return wrapped
}

func joinNonEmpty(values []string) string {
	kept := values[:0:0]
	for _, value := range values {
		if value != "" {
			kept = append(kept, value)
		}
	}
	return strings.Join(kept, "\n\n")
}

func buildTools(tools []ai.ToolDescription) []tool {
	if len(tools) == 0 {
		return nil
	}
	declarations := make([]functionDeclaration, 0, len(tools))
	for _, description := range tools {
		declarations = append(declarations, functionDeclaration{
			Name:        description.Name,
			Description: description.Description,
			Parameters:  description.Parameters,
		})
	}
	return []tool{{FunctionDeclarations: declarations}}
}

// inlineImage renders an output image part as an image-url marker.
func inlineImage(data *inlineData) string {
	mime := data.MimeType
	if mime == "" {
		mime = "image/png"
	}
	return ai.WrapImageURL("data:" + mime + ";base64," + data.Data)
}

// toolCallID numbers Gemini function calls, which carry no id of their own.
func toolCallID(index int) string {
	return fmt.Sprintf("call_%d", index)
}

// responseToReply converts a complete generateContent response. Text parts
// are joined with newlines; thought parts become reasoning.
func responseToReply(response generateContentResponse) (*ai.Reply, bool) {
	if len(response.Candidates) == 0 {
		if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
			return &ai.Reply{Role: ai.RoleAssistant}, true
		}
		return nil, false
	}

	reply := &ai.Reply{Role: ai.RoleAssistant}
	candidate := response.Candidates[0]
	if candidate.Content == nil {
		return reply, true
	}

	var textParts, reasoningParts []string
	for _, p := range candidate.Content.Parts {
		switch {
		case p.Text != "" && p.Thought:
			reasoningParts = append(reasoningParts, p.Text)
		case p.Text != "":
			textParts = append(textParts, p.Text)
		case p.InlineData != nil:
			textParts = append(textParts, inlineImage(p.InlineData))
		}

		if p.FunctionCall != nil {
			reply.ToolCalls = append(reply.ToolCalls, ai.ToolCall{
				ID:   toolCallID(len(reply.ToolCalls)),
				Type: "function",
				Function: ai.FunctionCall{
					Name:      p.FunctionCall.Name,
					Arguments: ai.EncodeArguments(p.FunctionCall.Args),
				},
			})
		}
	}

	reply.Text, _ = ai.ComposeResponse(strings.Join(reasoningParts, "\n"), strings.Join(textParts, "\n"))
	return reply, true
}

// mapFinishReason converts a Gemini finish reason to the terminal event reason.
func mapFinishReason(geminiReason string) string {
	switch geminiReason {
	case "MAX_TOKENS":
		return "length"
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII":
		return "content_filter"
	default:
		return "stop"
	}
}
