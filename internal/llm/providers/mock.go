package providers

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/chungjung-d/k2c-hackathon/internal/llm"
)

// MockProvider is a deterministic llm.Provider for tests. It either
// replays a scripted list of response contents or delegates to
// CompleteFunc when set.
type MockProvider struct {
	mu        sync.Mutex
	responses []string
	calls     int

	// CompleteFunc, when non-nil, handles every request. The tools slice
	// is nil for plain Complete calls.
	CompleteFunc func(ctx context.Context, req llm.CompletionRequest, tools []llm.ToolDef) (*llm.CompletionResponse, error)

	// Requests records every request received, in order.
	Requests []llm.CompletionRequest

	// Err, when set, fails every call.
	Err error
}

// NewMockProvider creates a mock provider replaying the given responses.
// When the script runs out, the last response repeats.
func NewMockProvider(responses []string) *MockProvider {
	return &MockProvider{responses: responses}
}

// Name returns the provider name.
func (p *MockProvider) Name() string {
	return "mock"
}

// Complete replays the next scripted response.
func (p *MockProvider) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return p.respond(ctx, req, nil)
}

// CompleteWithTools replays the next scripted response; scripted
// responses never carry tool calls unless CompleteFunc is set.
func (p *MockProvider) CompleteWithTools(ctx context.Context, req llm.CompletionRequest, tools []llm.ToolDef) (*llm.CompletionResponse, error) {
	return p.respond(ctx, req, tools)
}

// CallCount returns the number of requests handled so far.
func (p *MockProvider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

func (p *MockProvider) respond(ctx context.Context, req llm.CompletionRequest, tools []llm.ToolDef) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	p.Requests = append(p.Requests, req)
	idx := p.calls
	p.calls++
	fn := p.CompleteFunc
	err := p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req, tools)
	}
	if err != nil {
		return nil, err
	}

	content := ""
	if len(p.responses) > 0 {
		if idx >= len(p.responses) {
			idx = len(p.responses) - 1
		}
		content = p.responses[idx]
	}

	return &llm.CompletionResponse{
		ID:           uuid.New().String(),
		Model:        "mock",
		FinishReason: llm.FinishReasonStop,
		Message: llm.Message{
			Role:    llm.RoleAssistant,
			Content: content,
		},
	}, nil
}
