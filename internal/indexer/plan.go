package indexer

import (
	"github.com/chungjung-d/k2c-hackathon/internal/types"
)

// GraphPlan is one graph mutation plan: a single write statement with
// parameters, plus optional read-only verification statements. A plan is
// never applied before its parameters pass sanitization.
type GraphPlan struct {
	Cypher              string         `json:"cypher"`
	Params              map[string]any `json:"params"`
	VerificationQueries []string       `json:"verification_queries,omitempty"`
	Notes               string         `json:"notes,omitempty"`
}

// Validate checks that the plan carries a write statement.
func (p *GraphPlan) Validate() error {
	if p == nil || p.Cypher == "" {
		return types.NewError(types.LLM_BAD_OUTPUT, "plan is missing a cypher statement")
	}
	return nil
}

// PeerProposal is one peer's contribution to a negotiation round. It
// lives only inside a single negotiation run.
type PeerProposal struct {
	Message            string `json:"message"`
	ContinueDiscussion bool   `json:"continue_discussion"`
}

// TranscriptEntry is one recorded peer message in a group discussion.
type TranscriptEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
