package providers

import (
	"context"
	"os"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/chungjung-d/k2c-hackathon/internal/llm"
	"github.com/chungjung-d/k2c-hackathon/internal/types"
)

// OpenAIProvider implements llm.Provider backed by the OpenAI API.
type OpenAIProvider struct {
	client *openai.LLM
	model  string
}

// NewOpenAIProvider creates a new OpenAI provider. The API key comes
// from cfg or the OPENAI_API_KEY environment variable.
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}

	if apiKey == "" {
		return nil, types.NewError(types.LLM_INVOKE_FAILED, "openai API key is not configured")
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
	}
	if cfg.Model != "" {
		opts = append(opts, openai.WithModel(cfg.Model))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}

	client, err := openai.New(opts...)
	if err != nil {
		return nil, types.WrapError(types.LLM_INVOKE_FAILED, "failed to create openai client", err)
	}

	return &OpenAIProvider{client: client, model: cfg.Model}, nil
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Complete sends a completion request.
func (p *OpenAIProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	messages := toLangchainMessages(req.Messages)
	callOpts := buildCallOptions(req)

	resp, err := p.client.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return nil, types.WrapError(types.LLM_INVOKE_FAILED, "openai completion failed", err)
	}

	return fromLangchainResponse(resp, p.modelFor(req)), nil
}

// CompleteWithTools sends a completion request with tool definitions.
func (p *OpenAIProvider) CompleteWithTools(ctx context.Context, req llm.CompletionRequest, tools []llm.ToolDef) (*llm.CompletionResponse, error) {
	messages := toLangchainMessages(req.Messages)
	callOpts := buildCallOptionsWithTools(req, tools)

	resp, err := p.client.GenerateContent(ctx, messages, callOpts...)
	if err != nil {
		return nil, types.WrapError(types.LLM_INVOKE_FAILED, "openai completion failed", err)
	}

	return fromLangchainResponse(resp, p.modelFor(req)), nil
}

func (p *OpenAIProvider) modelFor(req llm.CompletionRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return p.model
}
