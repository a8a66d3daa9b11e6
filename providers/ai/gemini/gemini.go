package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/leofalp/polychat/internal/utils"
	"github.com/leofalp/polychat/providers/ai"
	"github.com/leofalp/polychat/providers/attachment"
)

const (
	// DefaultBaseURL is the public Generative Language API.
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	// APIKeyEnv is consulted when no key is configured.
	APIKeyEnv = "GEMINI_API_KEY"
)

// Codec builds and parses Gemini generateContent traffic.
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

// New returns a Gemini codec. An empty config.APIKey falls back to
// GEMINI_API_KEY and an empty config.APIURL to [DefaultBaseURL].
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

// Name returns "gemini".
func (c *Codec) Name() string { return "gemini" }

func (c *Codec) baseURL() string {
	if c.config.APIURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(c.config.APIURL, "/")
}

// endpoint returns {base}/{path}?key=KEY.
func (c *Codec) endpoint(path string) string {
	query := url.Values{}
	query.Set("key", c.config.APIKey)
	return c.baseURL() + path + "?" + query.Encode()
}

func (c *Codec) checkAPIKey() error {
	if c.config.APIKey == "" {
		return ai.NewError(ai.KindUnauthorized, "%s is not set", APIKeyEnv)
	}
	return nil
}

// PrepareRequest builds POST {base}/models/{model}:generateContent, or
// :streamGenerateContent for stream calls.
func (c *Codec) PrepareRequest(ctx context.Context, request ai.ChatRequest) (*ai.PreparedRequest, error) {
	if err := c.checkAPIKey(); err != nil {
		return nil, err
	}

	model := strings.TrimPrefix(c.config.ResolveModel(request), "models/")
	if model == "" {
		return nil, ai.NewError(ai.KindRequestFailed, "gemini model is not set")
	}

	method := ":generateContent"
	if request.Stream {
		method = ":streamGenerateContent"
	}

	body := generateContentRequest{
		Contents:         buildContents(request.Messages, c.resolver),
		GenerationConfig: &generationConfig{Temperature: utils.Ptr(request.Temperature)},
		Tools:            buildTools(request.Tools),
	}

	req, err := utils.NewJSONRequest(ctx, http.MethodPost, c.endpoint("/models/"+url.PathEscape(model)+method), body)
	if err != nil {
		return nil, err
	}
	return &ai.PreparedRequest{HTTP: req, Framing: utils.FormatJSONArray, Streaming: request.Stream, Model: model}, nil
}

// ParseJSONResponse parses a complete generateContent response.
func (c *Codec) ParseJSONResponse(data []byte) (*ai.Reply, bool) {
	var response generateContentResponse
	if err := json.Unmarshal(data, &response); err != nil {
		return nil, false
	}
	return responseToReply(response)
}

// NewDeltaParser returns a parser with fresh tool-call numbering.
func (c *Codec) NewDeltaParser() ai.DeltaParser {
	return &deltaParser{}
}

// PrepareModelsRequest builds GET {base}/models?key=KEY.
func (c *Codec) PrepareModelsRequest(ctx context.Context) (*http.Request, error) {
	if err := c.checkAPIKey(); err != nil {
		return nil, err
	}
	return utils.NewJSONRequest(ctx, http.MethodGet, c.endpoint("/models"), nil)
}

// ParseModels reads models[].name without the "models/" prefix, skipping
// models that advertise methods but not generateContent (embeddings).
func (c *Codec) ParseModels(data []byte) ([]ai.ModelID, error) {
	list := gjson.GetBytes(data, "models")
	if !gjson.ValidBytes(data) || !list.IsArray() {
		return nil, fmt.Errorf("unexpected gemini model list")
	}

	var models []ai.ModelID
	for _, entry := range list.Array() {
		methods := entry.Get("supportedGenerationMethods")
		if methods.IsArray() && !supportsGenerate(methods) {
			continue
		}
		if name := strings.TrimPrefix(entry.Get("name").String(), "models/"); name != "" {
			models = append(models, ai.ModelID(name))
		}
	}
	return models, nil
}

func supportsGenerate(methods gjson.Result) bool {
	for _, method := range methods.Array() {
		if method.String() == "generateContent" {
			return true
		}
	}
	return false
}
