package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/leofalp/polychat/internal/utils"
	"github.com/leofalp/polychat/providers/ai"
	"github.com/leofalp/polychat/providers/attachment"
)

// DefaultBaseURL is the API root of a local Ollama server.
const DefaultBaseURL = "http://localhost:11434/api"

// Codec builds and parses native Ollama traffic. Ollama needs no
// credentials.
type Codec struct {
	config   ai.ProviderConfig
	resolver attachment.Resolver
}

var _ ai.Codec = (*Codec)(nil)

// Option configures a Codec.
type Option func(*Codec)

// WithResolver sets the attachment resolver used for image and file markers.
func WithResolver(resolver attachment.Resolver) Option {
	return func(c *Codec) { c.resolver = resolver }
}

// New returns an Ollama codec. An empty config.APIURL selects [DefaultBaseURL].
func New(config ai.ProviderConfig, opts ...Option) *Codec {
	codec := &Codec{config: config}
	for _, opt := range opts {
		opt(codec)
	}
	return codec
}

// NewService returns an HTTP adapter around a new codec.
func NewService(config ai.ProviderConfig, resolver attachment.Resolver, opts ...ai.AdapterOption) *ai.Adapter {
	return ai.NewAdapter(New(config, WithResolver(resolver)), opts...)
}

// Name returns "ollama".
func (c *Codec) Name() string { return "ollama" }

func (c *Codec) baseURL() string {
	if c.config.APIURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(c.config.APIURL, "/")
}

// PrepareRequest builds POST {base}/chat, or POST {base}/generate for image
// prompts and image models.
func (c *Codec) PrepareRequest(ctx context.Context, request ai.ChatRequest) (*ai.PreparedRequest, error) {
	model := c.config.ResolveModel(request)
	opts := &options{Temperature: utils.Ptr(request.Temperature)}

	var path string
	var body any
	if useGenerate(model, request.Messages) {
		system, prompt, images := buildGenerate(request.Messages, c.resolver)
		path = "/generate"
		body = generateRequest{Model: model, Prompt: prompt, System: system, Images: images, Stream: request.Stream, Options: opts}
	} else {
		path = "/chat"
		body = chatRequest{
			Model:    model,
			Messages: buildChatMessages(request.Messages, c.resolver),
			Stream:   request.Stream,
			Options:  opts,
			Tools:    buildTools(request.Tools),
		}
	}

	req, err := utils.NewJSONRequest(ctx, http.MethodPost, c.baseURL()+path, body)
	if err != nil {
		return nil, err
	}
	return &ai.PreparedRequest{HTTP: req, Framing: utils.FormatNDJSON, Streaming: request.Stream, Model: model}, nil
}

// ParseJSONResponse parses a complete /chat or /generate response.
func (c *Codec) ParseJSONResponse(data []byte) (*ai.Reply, bool) {
	if !gjson.GetBytes(data, "message").Exists() && !gjson.GetBytes(data, "response").Exists() {
		return nil, false
	}
	var line response
	if err := json.Unmarshal(data, &line); err != nil {
		return nil, false
	}

	text, thinking := textOf(line)
	reply := &ai.Reply{Role: ai.RoleAssistant}
	if image, ok := strings.CutPrefix(text, imageBase64Prefix); ok {
		reply.Text = ai.WrapImageURL(strings.TrimSpace(image))
		return reply, true
	}
	if thinking == "" {
		thinking, text = ai.SplitThinkTags(text)
	}
	reply.Text, _ = ai.ComposeResponse(thinking, text)
	if line.Message != nil && len(line.Message.ToolCalls) > 0 {
		reply.ToolCalls = toolCallsFromChat(line.Message.ToolCalls, 0)
	}
	return reply, true
}

// NewDeltaParser returns a parser with empty image and tool-call state.
func (c *Codec) NewDeltaParser() ai.DeltaParser {
	return &deltaParser{}
}

// PrepareModelsRequest builds GET {base}/tags.
func (c *Codec) PrepareModelsRequest(ctx context.Context) (*http.Request, error) {
	return utils.NewJSONRequest(ctx, http.MethodGet, c.baseURL()+"/tags", nil)
}

// ParseModels reads models[].name.
func (c *Codec) ParseModels(data []byte) ([]ai.ModelID, error) {
	list := gjson.GetBytes(data, "models")
	if !gjson.ValidBytes(data) || !list.IsArray() {
		return nil, fmt.Errorf("unexpected ollama model list")
	}

	var models []ai.ModelID
	for _, entry := range list.Array() {
		if name := entry.Get("name").String(); name != "" {
			models = append(models, ai.ModelID(name))
		}
	}
	return models, nil
}
