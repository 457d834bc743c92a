package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/chungjung-d/k2c-hackathon/internal/types"
)

// maxToolRounds bounds the tool loop inside one structured invocation so
// a proposer cannot spin on tool calls forever.
const maxToolRounds = 4

// ToolFunc executes one tool call. It receives the JSON-encoded
// arguments and returns the JSON-encoded result.
type ToolFunc func(ctx context.Context, arguments string) (string, error)

// Caller invokes a provider with instructions, a required output shape,
// and an optional set of tools, and decodes the structured result. It is
// the invoke(prompt, expected_shape, tools) capability the negotiation
// components consume; every failure is returned as an error so callers
// can degrade to their deterministic fallbacks.
type Caller struct {
	provider Provider
	model    string
	logger   *slog.Logger

	toolDefs  []ToolDef
	toolFuncs map[string]ToolFunc
}

// NewCaller creates a Caller for the given provider and model.
func NewCaller(provider Provider, model string, logger *slog.Logger) *Caller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Caller{
		provider:  provider,
		model:     model,
		logger:    logger,
		toolFuncs: make(map[string]ToolFunc),
	}
}

// RegisterTool makes a tool available to every subsequent Invoke call.
func (c *Caller) RegisterTool(def ToolDef, fn ToolFunc) error {
	if err := def.Validate(); err != nil {
		return err
	}
	if fn == nil {
		return fmt.Errorf("tool function is required")
	}
	c.toolDefs = append(c.toolDefs, def)
	c.toolFuncs[def.Name] = fn
	return nil
}

// Invoke sends the instructions and prompt to the provider, resolves any
// tool calls, and unmarshals the final JSON response into out. The
// instructions must name the required output shape.
func (c *Caller) Invoke(ctx context.Context, instructions, prompt string, out any) error {
	messages := []Message{
		NewSystemMessage(instructions),
		NewUserMessage(prompt),
	}

	for round := 0; round <= maxToolRounds; round++ {
		resp, err := c.complete(ctx, messages)
		if err != nil {
			return types.WrapError(types.LLM_INVOKE_FAILED, "completion failed", err)
		}

		if len(resp.Message.ToolCalls) == 0 {
			return c.decode(resp.Message.Content, out)
		}

		messages = append(messages, resp.Message)
		messages = append(messages, c.runToolCalls(ctx, resp.Message.ToolCalls)...)
	}

	return types.NewError(types.LLM_BAD_OUTPUT,
		fmt.Sprintf("no structured answer after %d tool rounds", maxToolRounds))
}

func (c *Caller) complete(ctx context.Context, messages []Message) (*CompletionResponse, error) {
	req := CompletionRequest{
		Model:    c.model,
		Messages: messages,
	}

	if len(c.toolDefs) > 0 {
		return c.provider.CompleteWithTools(ctx, req, c.toolDefs)
	}
	return c.provider.Complete(ctx, req)
}

// runToolCalls executes each tool call and returns the tool result
// messages. A failing tool is reported back to the proposer as an error
// payload rather than aborting the invocation.
func (c *Caller) runToolCalls(ctx context.Context, calls []ToolCall) []Message {
	results := make([]Message, 0, len(calls))

	for _, call := range calls {
		fn, ok := c.toolFuncs[call.Name]
		if !ok {
			c.logger.Warn("proposer requested unknown tool", "tool", call.Name)
			results = append(results, NewToolResultMessage(call.ID,
				fmt.Sprintf(`{"error": "unknown tool %s"}`, call.Name)))
			continue
		}

		result, err := fn(ctx, call.Arguments)
		if err != nil {
			c.logger.Warn("tool call failed", "tool", call.Name, "error", err)
			results = append(results, NewToolResultMessage(call.ID,
				fmt.Sprintf(`{"error": %q}`, err.Error())))
			continue
		}

		results = append(results, NewToolResultMessage(call.ID, result))
	}

	return results
}

func (c *Caller) decode(content string, out any) error {
	jsonStr, err := ExtractJSON(content)
	if err != nil {
		return types.WrapError(types.LLM_BAD_OUTPUT, "response carried no JSON", err)
	}

	if err := json.Unmarshal([]byte(jsonStr), out); err != nil {
		return types.WrapError(types.LLM_BAD_OUTPUT, "response did not match expected shape", err)
	}

	return nil
}
