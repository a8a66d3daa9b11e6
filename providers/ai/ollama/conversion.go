package ollama

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/leofalp/polychat/providers/ai"
	"github.com/leofalp/polychat/providers/attachment"
)

// imageModelKeywords mark model names served through /generate.
var imageModelKeywords = []string{"stable-diffusion", "sdxl", "flux", "dall-e", "image"}

// imageBase64Prefix starts every image chunk of an image generator.
const imageBase64Prefix = "IMAGE_BASE64:"

// dataURLPattern matches inline base64 image data URLs in message text.
var dataURLPattern = regexp.MustCompile(`data:image/[A-Za-z0-9.+-]+;base64,([A-Za-z0-9+/=]+)`)

// useGenerate reports whether the request is sent to /generate: any message
// carries an inline data URL or an attachment marker, or the model name
// contains an image keyword.
func useGenerate(model string, messages []ai.Message) bool {
	for _, msg := range messages {
		if strings.Contains(msg.Content, "data:image/") || attachment.HasMarkers(msg.Content) {
			return true
		}
	}
	lower := strings.ToLower(model)
	for _, keyword := range imageModelKeywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}

// extractDataURLs removes inline image data URLs from text and returns their
// base64 payloads.
func extractDataURLs(text string) (string, []string) {
	var images []string
	for _, match := range dataURLPattern.FindAllStringSubmatch(text, -1) {
		images = append(images, match[1])
	}
	if len(images) == 0 {
		return text, nil
	}
	return strings.TrimSpace(dataURLPattern.ReplaceAllString(text, "")), images
}

// resolveContent resolves markers and inline data URLs of one message.
func resolveContent(text string, resolver attachment.Resolver) (string, []string) {
	content := attachment.Resolve(text, resolver)
	stripped, images := extractDataURLs(content.Text)
	for _, image := range content.Images {
		images = append(images, image.Base64())
	}
	return stripped, images
}

func buildChatMessages(messages []ai.Message, resolver attachment.Resolver) []chatMessage {
	converted := make([]chatMessage, 0, len(messages))
	for _, msg := range messages {
		text, images := resolveContent(msg.Content, resolver)
		chatMsg := chatMessage{Role: string(msg.Role), Content: text, Images: images}

		if msg.Role == ai.RoleTool {
			chatMsg.ToolName = msg.Name
		}
		for _, call := range msg.ToolCalls {
			var toolCall chatToolCall
			toolCall.Function.Name = call.Function.Name
			toolCall.Function.Arguments = json.RawMessage(ai.NormalizeArguments(call.Function.Arguments))
			chatMsg.ToolCalls = append(chatMsg.ToolCalls, toolCall)
		}
		converted = append(converted, chatMsg)
	}
	return converted
}

// buildGenerate flattens the history for /generate: system turns become the
// system field, the last user turn is the prompt and carries the images.
func buildGenerate(messages []ai.Message, resolver attachment.Resolver) (system, prompt string, images []string) {
	var systemParts []string
	for _, msg := range messages {
		if msg.Role == ai.RoleSystem {
			if text, _ := attachment.ParseMarkers(msg.Content); text != "" {
				systemParts = append(systemParts, text)
			}
		}
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == ai.RoleUser {
			prompt, images = resolveContent(messages[i].Content, resolver)
			break
		}
	}
	return strings.Join(systemParts, "\n\n"), prompt, images
}

func buildTools(tools []ai.ToolDescription) []chatTool {
	if len(tools) == 0 {
		return nil
	}
	converted := make([]chatTool, 0, len(tools))
	for _, tool := range tools {
		converted = append(converted, chatTool{
			Type:     "function",
			Function: chatFunction{Name: tool.Name, Description: tool.Description, Parameters: tool.Parameters},
		})
	}
	return converted
}

func toolCallsFromChat(calls []chatToolCall, offset int) []ai.ToolCall {
	converted := make([]ai.ToolCall, 0, len(calls))
	for i, call := range calls {
		converted = append(converted, ai.ToolCall{
			ID:   fmt.Sprintf("call_%d", offset+i),
			Type: "function",
			Function: ai.FunctionCall{
				Name:      call.Function.Name,
				Arguments: ai.EncodeArguments(call.Function.Arguments),
			},
		})
	}
	return converted
}

// textOf returns the assistant text of a line and its reasoning.
func textOf(line response) (text, thinking string) {
	if line.Message != nil {
		return line.Message.Content, line.Message.Thinking
	}
	return line.Response, line.Thinking
}
