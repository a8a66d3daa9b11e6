package anthropic

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

const (
	// DefaultBaseURL is the canonical base URL of the Messages API.
	DefaultBaseURL = "https://api.anthropic.com/v1"

	// APIKeyEnv is consulted when no key is configured.
	APIKeyEnv = "ANTHROPIC_API_KEY"

	messagesEndpoint = "/messages"
	modelsEndpoint   = "/models"

	// anthropicVersion pins the response format independently of the URL.
	anthropicVersion = "2023-06-01"

	defaultMaxTokens = 4096
)

// Codec builds and parses Claude Messages API traffic.
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

// New returns a Claude codec. An empty config.APIKey falls back to
// ANTHROPIC_API_KEY and an empty config.APIURL to [DefaultBaseURL].
func New(config ai.ProviderConfig, opts ...Option) *Codec {
	if config.APIKey == "" {
		config.APIKey = os.Getenv(APIKeyEnv)
	}
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

// Name returns "anthropic".
func (c *Codec) Name() string { return "anthropic" }

func (c *Codec) baseURL() string {
	if c.config.APIURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(c.config.APIURL, "/")
}

// buildHeaders returns the headers of every request. Claude does not use
// Bearer tokens.
func (c *Codec) buildHeaders(streaming bool) []utils.HeaderOption {
	headers := []utils.HeaderOption{
		{Key: "X-API-Key", Value: c.config.APIKey},
		{Key: "Anthropic-Version", Value: anthropicVersion},
	}
	if streaming {
		headers = append(headers, utils.HeaderOption{Key: "Accept", Value: "text/event-stream"})
	}
	return headers
}

func (c *Codec) checkAPIKey() error {
	if c.config.APIKey == "" {
		return ai.NewError(ai.KindUnauthorized, "%s is not set", APIKeyEnv)
	}
	return nil
}

// PrepareRequest builds POST {base}/messages.
func (c *Codec) PrepareRequest(ctx context.Context, request ai.ChatRequest) (*ai.PreparedRequest, error) {
	if err := c.checkAPIKey(); err != nil {
		return nil, err
	}

	model := c.config.ResolveModel(request)
	system, turns := splitSystem(request.Messages)

	body := messagesRequest{
		Model:       model,
		Messages:    buildMessages(turns, c.resolver),
		System:      system,
		MaxTokens:   defaultMaxTokens,
		Temperature: utils.Ptr(request.Temperature),
		Tools:       buildTools(request.Tools),
		Stream:      request.Stream,
	}

	req, err := utils.NewJSONRequest(ctx, http.MethodPost, c.baseURL()+messagesEndpoint, body, c.buildHeaders(request.Stream)...)
	if err != nil {
		return nil, err
	}
	return &ai.PreparedRequest{HTTP: req, Framing: utils.FormatSSE, Streaming: request.Stream, Model: model}, nil
}

// ParseJSONResponse parses a complete Messages API response.
func (c *Codec) ParseJSONResponse(data []byte) (*ai.Reply, bool) {
	var response messagesResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, false
	}
	if response.Type != "message" && response.Content == nil {
		return nil, false
	}
	return responseToReply(response), true
}

// NewDeltaParser returns a parser with fresh block state.
func (c *Codec) NewDeltaParser() ai.DeltaParser {
	return &deltaParser{}
}

// PrepareModelsRequest builds GET {base}/models.
func (c *Codec) PrepareModelsRequest(ctx context.Context) (*http.Request, error) {
	if err := c.checkAPIKey(); err != nil {
		return nil, err
	}
	return utils.NewJSONRequest(ctx, http.MethodGet, c.baseURL()+modelsEndpoint, nil, c.buildHeaders(false)...)
}

// ParseModels reads data[].id.
func (c *Codec) ParseModels(data []byte) ([]ai.ModelID, error) {
	list := gjson.GetBytes(data, "data")
	if !gjson.ValidBytes(data) || !list.IsArray() {
		return nil, fmt.Errorf("unexpected anthropic model list")
	}

	var models []ai.ModelID
	for _, entry := range list.Array() {
		if id := entry.Get("id").String(); id != "" {
			models = append(models, ai.ModelID(id))
		}
	}
	return models, nil
}
