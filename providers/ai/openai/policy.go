package openai

import "strings"

// Policy captures everything that differs between OpenAI-compatible vendors.
type Policy struct {
	Name           string
	DefaultBaseURL string
	ChatPath       string
	ModelsPath     string
	ImagesPath     string
	// APIKeyEnv names the environment variable consulted when no key is configured.
	APIKeyEnv      string
	RequiresAPIKey bool

	// ForceTemperature overrides the caller's temperature for some models.
	ForceTemperature func(model string) (float64, bool)
	// ImageMode reports whether model is an image generator served by ImagesPath.
	ImageMode func(model string) bool

	// Headers are sent with every request.
	Headers map[string]string
}

const (
	defaultChatPath   = "/chat/completions"
	defaultModelsPath = "/models"
	defaultImagesPath = "/images/generations"
)

// reasoningModelPrefixes identifies OpenAI models that only accept temperature 1.
var reasoningModelPrefixes = []string{"o1", "o3", "o4", "gpt-5"}

// imageModelPrefixes identifies OpenAI image generation models.
var imageModelPrefixes = []string{"dall-e", "gpt-image"}

func hasAnyPrefix(model string, prefixes []string) bool {
	model = strings.ToLower(model)
	for _, prefix := range prefixes {
		if strings.HasPrefix(model, prefix) {
			return true
		}
	}
	return false
}

func forceReasoningTemperature(model string) (float64, bool) {
	if hasAnyPrefix(model, reasoningModelPrefixes) {
		return 1.0, true
	}
	return 0, false
}

func isImageModel(model string) bool {
	return hasAnyPrefix(model, imageModelPrefixes)
}

// Vendor presets.
var (
	ChatGPT = Policy{
		Name:             "chatgpt",
		DefaultBaseURL:   "https://api.openai.com/v1",
		ChatPath:         defaultChatPath,
		ModelsPath:       defaultModelsPath,
		ImagesPath:       defaultImagesPath,
		APIKeyEnv:        "OPENAI_API_KEY",
		RequiresAPIKey:   true,
		ForceTemperature: forceReasoningTemperature,
		ImageMode:        isImageModel,
	}

	LMStudio = Policy{
		Name:           "lmstudio",
		DefaultBaseURL: "http://localhost:1234/v1",
		ChatPath:       defaultChatPath,
		ModelsPath:     defaultModelsPath,
	}

	Groq = Policy{
		Name:           "groq",
		DefaultBaseURL: "https://api.groq.com/openai/v1",
		ChatPath:       defaultChatPath,
		ModelsPath:     defaultModelsPath,
		APIKeyEnv:      "GROQ_API_KEY",
		RequiresAPIKey: true,
	}

	XAI = Policy{
		Name:           "xai",
		DefaultBaseURL: "https://api.x.ai/v1",
		ChatPath:       defaultChatPath,
		ModelsPath:     defaultModelsPath,
		APIKeyEnv:      "XAI_API_KEY",
		RequiresAPIKey: true,
	}

	Mistral = Policy{
		Name:           "mistral",
		DefaultBaseURL: "https://api.mistral.ai/v1",
		ChatPath:       defaultChatPath,
		ModelsPath:     defaultModelsPath,
		APIKeyEnv:      "MISTRAL_API_KEY",
		RequiresAPIKey: true,
	}

	OpenRouter = Policy{
		Name:           "openrouter",
		DefaultBaseURL: "https://openrouter.ai/api/v1",
		ChatPath:       defaultChatPath,
		ModelsPath:     defaultModelsPath,
		APIKeyEnv:      "OPENROUTER_API_KEY",
		RequiresAPIKey: true,
		Headers:        map[string]string{"X-Title": "polychat"},
	}

	DeepSeek = Policy{
		Name:           "deepseek",
		DefaultBaseURL: "https://api.deepseek.com/v1",
		ChatPath:       defaultChatPath,
		ModelsPath:     defaultModelsPath,
		APIKeyEnv:      "DEEPSEEK_API_KEY",
		RequiresAPIKey: true,
	}
)

var presets = []Policy{ChatGPT, LMStudio, Groq, XAI, Mistral, OpenRouter, DeepSeek}

// PolicyByName returns the preset with the given name.
func PolicyByName(name string) (Policy, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, policy := range presets {
		if policy.Name == name {
			return policy, true
		}
	}
	return Policy{}, false
}

// Names lists the preset names.
func Names() []string {
	names := make([]string, 0, len(presets))
	for _, policy := range presets {
		names = append(names, policy.Name)
	}
	return names
}

// DetectPolicy picks a preset from a base URL host, falling back to a
// generic keyless policy for unknown hosts (self-hosted gateways).
func DetectPolicy(baseURL string) Policy {
	lower := strings.ToLower(baseURL)
	switch {
	case strings.Contains(lower, "api.openai.com"):
		return ChatGPT
	case strings.Contains(lower, "api.groq.com"):
		return Groq
	case strings.Contains(lower, "api.x.ai"):
		return XAI
	case strings.Contains(lower, "api.mistral.ai"):
		return Mistral
	case strings.Contains(lower, "openrouter.ai"):
		return OpenRouter
	case strings.Contains(lower, "api.deepseek.com"):
		return DeepSeek
	case strings.Contains(lower, "localhost:1234"), strings.Contains(lower, "127.0.0.1:1234"):
		return LMStudio
	}
	return Policy{
		Name:           "openai-compatible",
		DefaultBaseURL: baseURL,
		ChatPath:       defaultChatPath,
		ModelsPath:     defaultModelsPath,
	}
}
