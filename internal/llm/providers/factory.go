package providers

import (
	"fmt"

	"github.com/chungjung-d/k2c-hackathon/internal/llm"
	"github.com/chungjung-d/k2c-hackathon/internal/types"
)

// Config describes how to construct a provider.
type Config struct {
	// Type selects the provider implementation ("openai", "mock").
	Type string

	// Model is the default model for completion requests.
	Model string

	// APIKey authenticates against the provider; empty falls back to the
	// provider's conventional environment variable.
	APIKey string

	// BaseURL overrides the provider endpoint (proxies, local gateways).
	BaseURL string
}

// NewProvider creates a provider from the configuration.
func NewProvider(cfg Config) (llm.Provider, error) {
	switch cfg.Type {
	case "openai":
		return NewOpenAIProvider(cfg)

	case "mock":
		return NewMockProvider([]string{"{}"}), nil

	default:
		return nil, types.NewError(types.LLM_INVOKE_FAILED,
			fmt.Sprintf("unknown provider type: %s", cfg.Type))
	}
}
