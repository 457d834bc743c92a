package goals

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/chungjung-d/k2c-hackathon/internal/llm"
)

const proposalShapeHint = `Respond with a JSON object: ` +
	`{"goal": "<your proposed goal>", "rationale": "<why>", ` +
	`"focus_areas": ["..."], "questions": ["..."], ` +
	`"needs_more_discussion": <true if the goals still need reconciling>}.`

var roleInstructions = map[Role]string{
	RolePreprocess: "You are the preprocessing counterpart in a goal negotiation. " +
		"Given the lead goal, your current goal, your counterpart's latest goal, " +
		"and the recent negotiation history, propose the goal you will pursue " +
		"when turning captured screen events into compact structured features. " +
		"Align with the lead goal while keeping extraction practical. " +
		proposalShapeHint,
	RoleEvaluation: "You are the evaluation counterpart in a goal negotiation. " +
		"Given the lead goal, your current goal, your counterpart's latest goal, " +
		"and the recent negotiation history, propose the goal you will pursue " +
		"when assessing captured screen events and the resulting knowledge graph. " +
		"Align with the lead goal while keeping assessment measurable. " +
		proposalShapeHint,
}

// LLMProposer answers goal proposals through a reasoning backend.
type LLMProposer struct {
	caller *llm.Caller
}

func NewLLMProposer(provider llm.Provider, model string, logger *slog.Logger) *LLMProposer {
	return &LLMProposer{caller: llm.NewCaller(provider, model, logger)}
}

// Propose serializes the request as the user prompt so the backend sees
// the counterpart's goal and the trailing rounds alongside its own state.
func (p *LLMProposer) Propose(ctx context.Context, req ProposalRequest) (*GoalProposal, error) {
	prompt, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	var proposal GoalProposal
	if err := p.caller.Invoke(ctx, roleInstructions[req.Role], string(prompt), &proposal); err != nil {
		return nil, err
	}
	return &proposal, nil
}
