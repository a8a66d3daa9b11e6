package local

import "context"

// PromptMessage is one turn handed to a model, with markers already
// resolved.
type PromptMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Prompt is the engine-neutral input of one generation.
type Prompt struct {
	Kind        ModelKind       `json:"-"`
	Messages    []PromptMessage `json:"messages"`
	Images      [][]byte        `json:"images,omitempty"` // vision models only
	Temperature float64         `json:"temperature"`
}

// Model is a loaded model. Generate calls onChunk for each piece of output
// in order and stops early when onChunk returns false. Models that cannot
// stream deliver their whole output as one chunk.
type Model interface {
	Generate(ctx context.Context, prompt Prompt, onChunk func(string) bool) error
}

// Engine loads model folders.
type Engine interface {
	Load(ctx context.Context, path string, kind ModelKind) (Model, error)
}
