package anthropic

import "encoding/json"

/*
	ANTHROPIC MESSAGES API - REQUEST TYPES
*/

// messagesRequest is the request body of POST /messages.
type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	System      string    `json:"system,omitempty"` // Lifted from leading system turns
	MaxTokens   int       `json:"max_tokens"`       // Required on every request
	Temperature *float64  `json:"temperature,omitempty"`
	Tools       []tool    `json:"tools,omitempty"`
	Stream      bool      `json:"stream,omitempty"`
}

// message is one user or assistant turn.
type message struct {
	Role    string         `json:"role"` // "user" or "assistant"
	Content []contentBlock `json:"content"`
}

// contentBlock is a discriminated union via Type:
//   - "text": Text
//   - "image": Source
//   - "tool_use": ID, Name, Input
//   - "tool_result": ToolUseID, Content
type contentBlock struct {
	Type      string          `json:"type"`
	Text      string          `json:"text,omitempty"`
	Source    *imageSource    `json:"source,omitempty"`
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name,omitempty"`
	Input     json.RawMessage `json:"input,omitempty"`
	ToolUseID string          `json:"tool_use_id,omitempty"`
	Content   string          `json:"content,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"` // "base64"
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

/*
	ANTHROPIC MESSAGES API - RESPONSE TYPES
*/

type messagesResponse struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"` // "message"
	Role       string          `json:"role"`
	Content    []responseBlock `json:"content"`
	Model      string          `json:"model"`
	StopReason string          `json:"stop_reason"`
}

// responseBlock is a content block of a response. Unknown types are ignored.
type responseBlock struct {
	Type     string          `json:"type"` // "text", "thinking", "tool_use"
	Text     string          `json:"text,omitempty"`
	Thinking string          `json:"thinking,omitempty"`
	ID       string          `json:"id,omitempty"`
	Name     string          `json:"name,omitempty"`
	Input    json.RawMessage `json:"input,omitempty"`
}
