package local

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leofalp/polychat/providers/ai"
	"github.com/leofalp/polychat/providers/attachment"
)

// Service implements ai.Service for on-device models.
//
// config.Model is the model folder, absolute or relative to config.APIURL,
// which is read as the models root folder.
type Service struct {
	config   ai.ProviderConfig
	engine   Engine
	cache    *Cache
	resolver attachment.Resolver
}

var _ ai.Service = (*Service)(nil)

// Option configures a Service.
type Option func(*Service)

// WithCache replaces the process-wide cache.
func WithCache(cache *Cache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithResolver sets the attachment resolver used for image and file markers.
func WithResolver(resolver attachment.Resolver) Option {
	return func(s *Service) { s.resolver = resolver }
}

// New returns a service that loads models through engine.
func New(config ai.ProviderConfig, engine Engine, opts ...Option) *Service {
	service := &Service{config: config, engine: engine, cache: SharedCache()}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Name returns "local".
func (s *Service) Name() string { return "local" }

// FetchModels returns an empty list; local models have no catalog.
func (s *Service) FetchModels(context.Context) ([]ai.ModelID, error) {
	return []ai.ModelID{}, nil
}

// PrepareRequest always fails: local models are not reached over HTTP.
func (s *Service) PrepareRequest(context.Context, ai.ChatRequest) (*ai.PreparedRequest, error) {
	return nil, ai.NewError(ai.KindNoAPIService, "local models have no API request")
}

// SendMessage runs a generation to completion.
func (s *Service) SendMessage(ctx context.Context, request ai.ChatRequest) (*ai.Reply, error) {
	stream, err := s.SendMessageStream(ctx, request)
	if err != nil {
		return nil, err
	}
	reply, err := stream.Collect()
	if err != nil {
		return nil, err
	}
	return reply, nil
}

// SendMessageStream resolves and classifies the model folder and builds the
// prompt before returning. Loading and generation run in the stream.
func (s *Service) SendMessageStream(ctx context.Context, request ai.ChatRequest) (*ai.ChatStream, error) {
	if s.engine == nil {
		return nil, ai.NewError(ai.KindNoAPIService, "no local engine configured")
	}

	path, err := ResolveModelPath(s.config.APIURL, s.config.ResolveModel(request))
	if err != nil {
		return nil, &ai.Error{Kind: ai.KindRequestFailed, Message: "cannot locate local model", Err: err}
	}
	kind, err := ClassifyModel(path)
	if err != nil {
		return nil, &ai.Error{Kind: ai.KindRequestFailed, Message: "unsupported local model", Err: err}
	}
	prompt := buildPrompt(kind, request, s.resolver)

	slog.Debug("starting local generation", "path", path, "kind", kind.String(), "messages", len(prompt.Messages))

	return ai.NewChatStream(ctx, func(ctx context.Context, emit ai.Emit) {
		model, err := s.cache.Get(ctx, path, func(loadCtx context.Context) (Model, error) {
			return s.engine.Load(loadCtx, path, kind)
		})
		if err != nil {
			emit(ai.ErrorEvent(fmt.Errorf("load local model: %w", err)))
			return
		}

		err = model.Generate(ctx, prompt, func(chunk string) bool {
			return emit(ai.TextEvent(chunk))
		})
		if err != nil {
			emit(ai.ErrorEvent(err))
			return
		}
		emit(ai.FinishedEvent("stop"))
	}), nil
}

// Reload evicts the configured model from the cache.
func (s *Service) Reload() error {
	path, err := ResolveModelPath(s.config.APIURL, s.config.Model)
	if err != nil {
		return &ai.Error{Kind: ai.KindRequestFailed, Message: "cannot locate local model", Err: err}
	}
	s.cache.Reload(path)
	return nil
}

// buildPrompt resolves markers. Vision models receive image bytes; image
// generators only see the last user turn.
func buildPrompt(kind ModelKind, request ai.ChatRequest, resolver attachment.Resolver) Prompt {
	prompt := Prompt{Kind: kind, Temperature: request.Temperature}

	if kind == KindImageGeneration {
		for i := len(request.Messages) - 1; i >= 0; i-- {
			if request.Messages[i].Role == ai.RoleUser {
				text, _ := attachment.ParseMarkers(request.Messages[i].Content)
				prompt.Messages = []PromptMessage{{Role: string(ai.RoleUser), Content: text}}
				break
			}
		}
		return prompt
	}

	for _, msg := range request.Messages {
		content := attachment.Resolve(msg.Content, resolver)
		if kind == KindVision {
			for _, image := range content.Images {
				prompt.Images = append(prompt.Images, image.Data)
			}
		}
		prompt.Messages = append(prompt.Messages, PromptMessage{Role: string(msg.Role), Content: content.Text})
	}
	return prompt
}
