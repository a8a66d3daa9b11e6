package ai

import "encoding/json"

/*
	##### PROVIDER INPUT #####
*/

// MessageRole is the author of a message in the conversation history.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Message is one turn of the history supplied by the caller. Content may embed
// <image-uuid>ID</image-uuid> and <file-uuid>ID</file-uuid> attachment markers;
// codecs resolve or strip them before anything reaches the vendor.
type Message struct {
	Role    MessageRole `json:"role"`
	Content string      `json:"content,omitempty"`

	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // For role=assistant requesting tools
	ToolCallID string     `json:"tool_call_id,omitempty"` // For role=tool, links to the tool call being answered
	Name       string     `json:"name,omitempty"`         // For role=tool, name of the tool that produced the content
}

// ToolDescription advertises a callable function to the model. Parameters is
// a JSON Schema document passed through untouched.
type ToolDescription struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

// ChatRequest is the vendor-neutral input of a chat call.
type ChatRequest struct {
	Messages    []Message         `json:"messages"`
	Tools       []ToolDescription `json:"tools,omitempty"`
	Temperature float64           `json:"temperature"`
	Model       string            `json:"model,omitempty"` // Empty means the configured model
	Stream      bool              `json:"stream,omitempty"`
}

// ProviderConfig is the per-call connection description. It is never mutated
// by the layer.
type ProviderConfig struct {
	Name   string `json:"name" mapstructure:"name"`
	APIURL string `json:"api_url" mapstructure:"api_url"`
	APIKey string `json:"api_key" mapstructure:"api_key"`
	Model  string `json:"model" mapstructure:"model"`
}

// ResolveModel returns the request model, falling back to the configured one.
func (c ProviderConfig) ResolveModel(request ChatRequest) string {
	if request.Model != "" {
		return request.Model
	}
	return c.Model
}

/*
	##### PROVIDER OUTPUT #####
*/

// ModelID identifies a model in a vendor catalog.
type ModelID string

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type"` // Always "function"
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the function name and its arguments as a raw JSON string.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Reply is the result of a non-streaming call.
type Reply struct {
	Text      string      `json:"text"`
	Role      MessageRole `json:"role"`
	ToolCalls []ToolCall  `json:"tool_calls,omitempty"`
}
