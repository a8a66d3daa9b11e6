package openai

import (
	"encoding/json"

	"github.com/leofalp/polychat/internal/jsonvalue"
)

/*
	CHAT COMPLETIONS API - INPUT
*/

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
	Tools       []chatTool    `json:"tools,omitempty"`
}

type chatMessage struct {
	Role       string         `json:"role"`              // system, user, assistant, tool
	Content    any            `json:"content,omitempty"` // string or []contentPart for vision
	Name       string         `json:"name,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []chatToolCall `json:"tool_calls,omitempty"`
}

type contentPart struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	ImageURL *contentPartImage `json:"image_url,omitempty"`
}

type contentPartImage struct {
	URL string `json:"url"`
}

type chatTool struct {
	Type     string       `json:"type"` // "function"
	Function chatFunction `json:"function"`
}

type chatFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type chatToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

/*
	CHAT COMPLETIONS API - OUTPUT
*/

type chatCompletionResponse struct {
	ID      string       `json:"id"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Index        int                 `json:"index"`
	Message      chatResponseMessage `json:"message"`
	FinishReason string              `json:"finish_reason"`
}

type chatResponseMessage struct {
	Role             string          `json:"role"`
	Content          jsonvalue.Value `json:"content"` // string, null or typed parts depending on host
	ReasoningContent string          `json:"reasoning_content,omitempty"`
	Reasoning        string          `json:"reasoning,omitempty"`
	ToolCalls        []chatToolCall  `json:"tool_calls,omitempty"`
}

/*
	CHAT COMPLETIONS STREAMING API
*/

type streamChunk struct {
	ID      string         `json:"id"`
	Choices []streamChoice `json:"choices"`
}

type streamChoice struct {
	Index        int         `json:"index"`
	Delta        streamDelta `json:"delta"`
	FinishReason *string     `json:"finish_reason"` // nil until the final chunk
}

type streamDelta struct {
	Role             string               `json:"role,omitempty"`
	Content          jsonvalue.Value      `json:"content"`
	ReasoningContent *string              `json:"reasoning_content,omitempty"`
	Reasoning        *string              `json:"reasoning,omitempty"`
	ToolCalls        []streamToolCallPart `json:"tool_calls,omitempty"`
}

// streamToolCallPart is one fragment of a tool call. The first fragment for
// an index carries ID and name; later ones carry argument pieces.
type streamToolCallPart struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

/*
	IMAGES API
*/

type imageGenerationRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type imageGenerationResponse struct {
	Data []struct {
		B64JSON string `json:"b64_json"`
		URL     string `json:"url"`
	} `json:"data"`
}
