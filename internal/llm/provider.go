package llm

import "context"

// Provider is the reasoning capability every negotiation component builds
// on. It is deliberately narrow so the negotiation and planning
// algorithms can be tested against deterministic stub providers.
type Provider interface {
	// Name returns the provider name (e.g. "openai", "mock")
	Name() string

	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// CompleteWithTools sends a completion request with tool definitions.
	// The proposer may choose to call one or more tools in its response.
	CompleteWithTools(ctx context.Context, req CompletionRequest, tools []ToolDef) (*CompletionResponse, error)
}
