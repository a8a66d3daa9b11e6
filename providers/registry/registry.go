// Package registry builds an ai.Service from a provider kind and its
// connection config.
package registry

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/leofalp/polychat/providers/ai"
	"github.com/leofalp/polychat/providers/ai/anthropic"
	"github.com/leofalp/polychat/providers/ai/gemini"
	"github.com/leofalp/polychat/providers/ai/local"
	"github.com/leofalp/polychat/providers/ai/ollama"
	"github.com/leofalp/polychat/providers/ai/openai"
	"github.com/leofalp/polychat/providers/attachment"
)

// Kind is the canonical identifier of a vendor family. OpenAI-compatible
// vendors are addressed by their policy name.
type Kind string

const (
	KindAnthropic Kind = "anthropic"
	KindGemini    Kind = "gemini"
	KindOllama    Kind = "ollama"
	KindLocal     Kind = "local"
	// KindOpenAICompatible targets any OpenAI-compatible host; the policy is
	// detected from the base URL.
	KindOpenAICompatible Kind = "openai-compatible"
)

// Options carries the collaborators shared by every service.
type Options struct {
	Resolver   attachment.Resolver
	HTTPClient *http.Client
	// Engine runs on-device models. Without one the local kind reports
	// noApiService.
	Engine local.Engine
	Cache  *local.Cache
}

// Kinds lists every accepted kind, sorted.
func Kinds() []string {
	kinds := []string{string(KindAnthropic), string(KindGemini), string(KindOllama), string(KindLocal), string(KindOpenAICompatible)}
	kinds = append(kinds, openai.Names()...)
	sort.Strings(kinds)
	return kinds
}

// New returns the service for kind. Kind matching ignores case and
// surrounding spaces.
func New(kind string, config ai.ProviderConfig, options Options) (ai.Service, error) {
	normalized := Kind(strings.ToLower(strings.TrimSpace(kind)))

	var adapterOpts []ai.AdapterOption
	if options.HTTPClient != nil {
		adapterOpts = append(adapterOpts, ai.WithHTTPClient(options.HTTPClient))
	}

	switch normalized {
	case KindAnthropic:
		return anthropic.NewService(config, options.Resolver, adapterOpts...), nil
	case KindGemini:
		return gemini.NewService(config, options.Resolver, adapterOpts...), nil
	case KindOllama:
		return ollama.NewService(config, options.Resolver, adapterOpts...), nil
	case KindLocal:
		localOpts := []local.Option{local.WithResolver(options.Resolver)}
		if options.Cache != nil {
			localOpts = append(localOpts, local.WithCache(options.Cache))
		}
		return local.New(config, options.Engine, localOpts...), nil
	case KindOpenAICompatible:
		return openai.NewService(config, openai.DetectPolicy(config.APIURL), options.Resolver, adapterOpts...), nil
	}

	if policy, ok := openai.PolicyByName(string(normalized)); ok {
		return openai.NewService(config, policy, options.Resolver, adapterOpts...), nil
	}
	return nil, fmt.Errorf("unknown provider kind %q (expected one of %s)", kind, strings.Join(Kinds(), ", "))
}
