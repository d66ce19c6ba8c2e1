package providers

import (
	"fmt"

	"github.com/haasonsaas/nexus/internal/agent"
	"github.com/haasonsaas/nexus/internal/providers/venice"
)

// ProviderSpec names a provider and carries the credentials/overrides a swarm
// configuration supplies for it. Only the fields relevant to Kind are read;
// the rest are ignored.
type ProviderSpec struct {
	Kind         string
	APIKey       string
	BaseURL      string
	Endpoint     string
	APIVersion   string
	Region       string
	DefaultModel string
}

// New constructs the LLMProvider named by spec.Kind, applying whatever
// credentials/overrides were supplied. It is the single place that knows
// about every concrete provider adapter; a swarm definition only ever names
// a Kind string (see the external provider contract), never a constructor.
func New(spec ProviderSpec) (agent.LLMProvider, error) {
	switch spec.Kind {
	case "anthropic", "":
		return NewAnthropicProvider(AnthropicConfig{
			APIKey:       spec.APIKey,
			BaseURL:      spec.BaseURL,
			DefaultModel: spec.DefaultModel,
		})
	case "openai":
		return NewOpenAIProvider(spec.APIKey), nil
	case "azure":
		return NewAzureOpenAIProvider(AzureOpenAIConfig{
			Endpoint:     spec.Endpoint,
			APIKey:       spec.APIKey,
			APIVersion:   spec.APIVersion,
			DefaultModel: spec.DefaultModel,
		})
	case "bedrock":
		return NewBedrockProvider(BedrockConfig{
			Region:       spec.Region,
			DefaultModel: spec.DefaultModel,
		})
	case "google", "gemini":
		return NewGoogleProvider(GoogleConfig{
			APIKey:       spec.APIKey,
			DefaultModel: spec.DefaultModel,
		})
	case "ollama":
		return NewOllamaProvider(OllamaConfig{
			BaseURL:      spec.BaseURL,
			DefaultModel: spec.DefaultModel,
		}), nil
	case "openrouter":
		return NewOpenRouterProvider(OpenRouterConfig{
			APIKey:       spec.APIKey,
			DefaultModel: spec.DefaultModel,
		})
	case "copilot-proxy":
		return NewCopilotProxyProvider(CopilotProxyConfig{
			BaseURL: spec.BaseURL,
		})
	case "venice":
		return venice.NewVeniceProvider(venice.VeniceConfig{
			APIKey:       spec.APIKey,
			BaseURL:      spec.BaseURL,
			DefaultModel: spec.DefaultModel,
		})
	default:
		return nil, fmt.Errorf("providers: unknown provider kind %q", spec.Kind)
	}
}

// Kinds lists every provider kind New can construct.
func Kinds() []string {
	return []string{
		"anthropic", "openai", "azure", "bedrock", "google",
		"ollama", "openrouter", "copilot-proxy", "venice",
	}
}
