package cli

import (
	"strings"

	"github.com/leofalp/polychat/core/client"
	"github.com/leofalp/polychat/core/client/middleware"
	"github.com/leofalp/polychat/internal/config"
	"github.com/leofalp/polychat/internal/logging"
	"github.com/leofalp/polychat/providers/ai"
	"github.com/leofalp/polychat/providers/ai/local"
	"github.com/leofalp/polychat/providers/attachment"
	"github.com/leofalp/polychat/providers/observability/slogobs"
	"github.com/leofalp/polychat/providers/registry"
)

var serviceFactory = registry.New

// session is a resolved profile and the client serving it.
type session struct {
	name    string
	profile config.ProfileConfig
	client  *client.Client
}

func (a *app) newSession() (*session, error) {
	name := a.profile
	if name == "" {
		name = a.cfg.DefaultProfile
	}
	profile, err := a.cfg.Profile(name)
	if err != nil {
		return nil, err
	}
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	providerConfig := profile.ProviderConfig(name)
	options := registry.Options{
		Resolver: attachment.DirResolver{Root: a.cfg.AttachmentsDir()},
	}
	if registry.Kind(strings.ToLower(strings.TrimSpace(profile.Provider))) == registry.KindLocal {
		if providerConfig.APIURL == "" {
			providerConfig.APIURL = a.cfg.ModelsDir()
		}
		if a.cfg.Local.Runner != "" {
			options.Engine = local.ExecEngine{Binary: a.cfg.Local.Runner, Args: a.cfg.Local.Args}
		}
	}

	service, err := serviceFactory(profile.Provider, providerConfig, options)
	if err != nil {
		return nil, err
	}

	c, err := client.New(service, a.clientOptions(profile)...)
	if err != nil {
		return nil, err
	}
	return &session{name: name, profile: profile, client: c}, nil
}

// clientOptions builds the middleware chain: logging, then retry, then a
// per-attempt timeout.
func (a *app) clientOptions(profile config.ProfileConfig) []client.Option {
	logger := logging.Logger()

	middlewares := []client.MiddlewareConfig{
		middleware.NewLoggingMiddleware(logger, requestLogLevel(a.cfg.Client.LogLevel)),
	}
	if a.cfg.Client.MaxRetries > 0 {
		middlewares = append(middlewares, middleware.NewRetryMiddleware(middleware.RetryConfig{
			MaxRetries: a.cfg.Client.MaxRetries,
		}))
	}
	if a.cfg.Client.Timeout > 0 {
		middlewares = append(middlewares, middleware.NewTimeoutMiddleware(a.cfg.Client.Timeout))
	}

	opts := []client.Option{
		client.WithMiddleware(middlewares...),
		client.WithSystemPrompt(profile.SystemPrompt),
		client.WithDefaultModel(profile.Model),
	}
	if a.verbose {
		opts = append(opts, client.WithObserver(slogobs.New(logger)))
	}
	return opts
}

func requestLogLevel(name string) middleware.LogLevel {
	switch name {
	case "minimal":
		return middleware.LogLevelMinimal
	case "verbose":
		return middleware.LogLevelVerbose
	default:
		return middleware.LogLevelStandard
	}
}

// request builds a chat request for messages, applying command overrides on
// top of the profile.
func (s *session) request(messages []ai.Message, model string, temperature *float64) ai.ChatRequest {
	request := ai.ChatRequest{
		Messages:    messages,
		Model:       model,
		Temperature: s.profile.Temperature,
	}
	if temperature != nil {
		request.Temperature = *temperature
	}
	return request
}
