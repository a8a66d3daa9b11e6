package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/leofalp/polychat/internal/utils"
	"github.com/leofalp/polychat/providers/ai"
	"github.com/leofalp/polychat/providers/attachment"
)

// Codec builds and parses OpenAI-compatible chat completion traffic for one
// vendor Policy. It is immutable and safe for concurrent use.
type Codec struct {
	config   ai.ProviderConfig
	policy   Policy
	resolver attachment.Resolver
}

var _ ai.Codec = (*Codec)(nil)

// Option configures a Codec.
type Option func(*Codec)

// WithResolver sets the attachment resolver used for image and file markers.
func WithResolver(resolver attachment.Resolver) Option {
	return func(c *Codec) { c.resolver = resolver }
}

// New returns a codec for config under policy. An empty config.APIURL
// selects the policy's default base URL; an empty config.APIKey falls back
// to the policy's environment variable.
func New(config ai.ProviderConfig, policy Policy, opts ...Option) *Codec {
	if config.APIKey == "" && policy.APIKeyEnv != "" {
		config.APIKey = os.Getenv(policy.APIKeyEnv)
	}
	codec := &Codec{config: config, policy: policy}
	for _, opt := range opts {
		opt(codec)
	}
	return codec
}

// NewService returns an HTTP adapter around a new codec.
func NewService(config ai.ProviderConfig, policy Policy, resolver attachment.Resolver, opts ...ai.AdapterOption) *ai.Adapter {
	return ai.NewAdapter(New(config, policy, WithResolver(resolver)), opts...)
}

// Name returns the policy name.
func (c *Codec) Name() string { return c.policy.Name }

// Policy returns the vendor policy in use.
func (c *Codec) Policy() Policy { return c.policy }

func (c *Codec) baseURL() string {
	base := c.config.APIURL
	if base == "" {
		base = c.policy.DefaultBaseURL
	}
	return strings.TrimRight(base, "/")
}

func (c *Codec) headers(streaming bool) []utils.HeaderOption {
	headers := make([]utils.HeaderOption, 0, len(c.policy.Headers)+2)
	if c.config.APIKey != "" {
		headers = append(headers, utils.HeaderOption{Key: "Authorization", Value: "Bearer " + c.config.APIKey})
	}
	if streaming {
		headers = append(headers, utils.HeaderOption{Key: "Accept", Value: "text/event-stream"})
	}
	for key, value := range c.policy.Headers {
		headers = append(headers, utils.HeaderOption{Key: key, Value: value})
	}
	return headers
}

func (c *Codec) checkAPIKey() error {
	if c.policy.RequiresAPIKey && c.config.APIKey == "" {
		return ai.NewError(ai.KindUnauthorized, "%s API key is not set", c.policy.Name)
	}
	return nil
}

// PrepareRequest builds the chat completions request, or the image
// generation request for image models.
func (c *Codec) PrepareRequest(ctx context.Context, request ai.ChatRequest) (*ai.PreparedRequest, error) {
	if err := c.checkAPIKey(); err != nil {
		return nil, err
	}

	model := c.config.ResolveModel(request)
	if c.policy.ImageMode != nil && c.policy.ImagesPath != "" && c.policy.ImageMode(model) {
		return c.prepareImageRequest(ctx, model, request)
	}

	temperature := request.Temperature
	if c.policy.ForceTemperature != nil {
		if forced, ok := c.policy.ForceTemperature(model); ok {
			temperature = forced
		}
	}

	body := chatCompletionRequest{
		Model:       model,
		Messages:    messagesToChat(request.Messages, c.resolver),
		Temperature: utils.Ptr(temperature),
		Stream:      request.Stream,
		Tools:       toolsToChat(request.Tools),
	}

	req, err := utils.NewJSONRequest(ctx, http.MethodPost, c.baseURL()+c.policy.ChatPath, body, c.headers(request.Stream)...)
	if err != nil {
		return nil, err
	}
	return &ai.PreparedRequest{HTTP: req, Framing: utils.FormatSSE, Streaming: request.Stream, Model: model}, nil
}

func (c *Codec) prepareImageRequest(ctx context.Context, model string, request ai.ChatRequest) (*ai.PreparedRequest, error) {
	prompt := lastUserText(request.Messages)
	if prompt == "" {
		return nil, ai.NewError(ai.KindRequestFailed, "image generation needs a user prompt")
	}

	body := imageGenerationRequest{Model: model, Prompt: prompt, N: 1, Size: "1024x1024"}
	req, err := utils.NewJSONRequest(ctx, http.MethodPost, c.baseURL()+c.policy.ImagesPath, body, c.headers(false)...)
	if err != nil {
		return nil, err
	}
	return &ai.PreparedRequest{HTTP: req, Framing: utils.FormatSSE, Streaming: false, Model: model}, nil
}

// ParseJSONResponse parses a chat completion or image generation body.
func (c *Codec) ParseJSONResponse(data []byte) (*ai.Reply, bool) {
	if gjson.GetBytes(data, "data").IsArray() {
		return parseImageResponse(data)
	}

	var response chatCompletionResponse
	if err := json.Unmarshal(data, &response); err != nil || len(response.Choices) == 0 {
		return nil, false
	}

	message := response.Choices[0].Message
	content, _ := ai.ExtractTextContent(message.Content)

	reasoning := message.ReasoningContent
	if reasoning == "" {
		reasoning = message.Reasoning
	}
	if reasoning == "" {
		reasoning, content = ai.SplitThinkTags(content)
	}
	text, _ := ai.ComposeResponse(reasoning, content)

	role := ai.MessageRole(message.Role)
	if role == "" {
		role = ai.RoleAssistant
	}
	return &ai.Reply{Text: text, Role: role, ToolCalls: toolCallsFromChat(message.ToolCalls)}, true
}

func parseImageResponse(data []byte) (*ai.Reply, bool) {
	var response imageGenerationResponse
	if err := json.Unmarshal(data, &response); err != nil || len(response.Data) == 0 {
		return nil, false
	}

	first := response.Data[0]
	switch {
	case first.B64JSON != "":
		return &ai.Reply{Text: ai.WrapImageURL("data:image/png;base64," + first.B64JSON), Role: ai.RoleAssistant}, true
	case first.URL != "":
		return &ai.Reply{Text: ai.WrapImageURL(first.URL), Role: ai.RoleAssistant}, true
	default:
		return nil, false
	}
}

// NewDeltaParser returns a parser with fresh tool-call state.
func (c *Codec) NewDeltaParser() ai.DeltaParser {
	return &deltaParser{}
}

// PrepareModelsRequest builds GET {base}/models.
func (c *Codec) PrepareModelsRequest(ctx context.Context) (*http.Request, error) {
	if err := c.checkAPIKey(); err != nil {
		return nil, err
	}
	return utils.NewJSONRequest(ctx, http.MethodGet, c.baseURL()+c.policy.ModelsPath, nil, c.headers(false)...)
}

// ParseModels reads data[].id.
func (c *Codec) ParseModels(data []byte) ([]ai.ModelID, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("invalid JSON in %s model list", c.policy.Name)
	}
	list := gjson.GetBytes(data, "data")
	if !list.IsArray() {
		return nil, fmt.Errorf("missing data array in %s model list", c.policy.Name)
	}

	var models []ai.ModelID
	list.ForEach(func(_, entry gjson.Result) bool {
		if id := entry.Get("id").String(); id != "" {
			models = append(models, ai.ModelID(id))
		}
		return true
	})
	return models, nil
}
