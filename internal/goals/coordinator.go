package goals

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/chungjung-d/k2c-hackathon/internal/database"
	"github.com/chungjung-d/k2c-hackathon/internal/types"
)

// Role defaults used to seed negotiation and to backstop failed or
// empty proposals.
const (
	DefaultPreprocessGoal = "Extract compact, structured features from screenshots for downstream use."
	DefaultEvaluationGoal = "General screenshot quality and user activity overview."
)

const (
	defaultRounds = 3
	maxRounds     = 10

	// historyWindow is how many trailing rounds a counterpart sees on
	// its turn.
	historyWindow = 2

	fallbackRationale = "fallback"
)

// Persisted configuration keys. The per-role keys hold small
// {"goal": ...} documents; the negotiation key holds the full bundle.
const (
	KeyLeadGoal       = "lead_goal"
	KeyPreprocessGoal = "preprocess_goal"
	KeyEvaluationGoal = "evaluation_goal"
	KeyNegotiation    = "goal_negotiation"
)

// Role identifies a counterpart in goal negotiation.
type Role string

const (
	RolePreprocess Role = "preprocess"
	RoleEvaluation Role = "evaluation"
)

func (r Role) defaultGoal() string {
	if r == RoleEvaluation {
		return DefaultEvaluationGoal
	}
	return DefaultPreprocessGoal
}

// GoalProposal is one side's full answer in a negotiation round.
type GoalProposal struct {
	Goal                string   `json:"goal"`
	Rationale           string   `json:"rationale,omitempty"`
	FocusAreas          []string `json:"focus_areas,omitempty"`
	Questions           []string `json:"questions,omitempty"`
	NeedsMoreDiscussion bool     `json:"needs_more_discussion"`
}

// fallbackProposal is substituted when a counterpart cannot answer.
func fallbackProposal(role Role) GoalProposal {
	return GoalProposal{Goal: role.defaultGoal(), Rationale: fallbackRationale}
}

// ProposalRequest carries everything a counterpart sees on its turn:
// the lead goal, its own current goal, the other side's latest goal,
// and the trailing rounds of history.
type ProposalRequest struct {
	Role            Role          `json:"role"`
	Round           int           `json:"round"`
	LeadGoal        string        `json:"lead_goal"`
	CurrentGoal     string        `json:"current_goal"`
	CounterpartGoal string        `json:"counterpart_goal"`
	History         []RoundRecord `json:"history,omitempty"`
}

// Proposer produces one counter-proposal for a role. Implementations
// may consult a reasoning backend or answer deterministically.
type Proposer interface {
	Propose(ctx context.Context, req ProposalRequest) (*GoalProposal, error)
}

// RoundRecord captures both sides' full proposals from one round.
type RoundRecord struct {
	Round      int          `json:"round"`
	Preprocess GoalProposal `json:"preprocess"`
	Evaluation GoalProposal `json:"evaluation"`
}

// GoalBundle is the outcome of a negotiation: the lead goal and the
// settled per-role goals, plus the round history.
type GoalBundle struct {
	LeadGoal       string        `json:"lead_goal"`
	PreprocessGoal string        `json:"preprocess_goal"`
	EvaluationGoal string        `json:"evaluation_goal"`
	Rounds         int           `json:"rounds"`
	History        []RoundRecord `json:"history,omitempty"`
}

// Coordinator negotiates goals between the lead and its counterpart
// roles and persists the result. A nil proposer disables negotiation:
// the bundle is then assembled deterministically.
type Coordinator struct {
	proposer Proposer
	config   database.ConfigDAO
	logger   *slog.Logger
}

func NewCoordinator(proposer Proposer, config database.ConfigDAO, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{proposer: proposer, config: config, logger: logger}
}

// Negotiate runs up to rounds rounds of bilateral negotiation. An empty
// lead goal is rejected before any proposer is consulted. Each round the
// preprocess side proposes first and the evaluation side answers with
// that fresh proposal in hand. Negotiation stops early only when both
// goals repeat their previous round and neither side asks for more
// discussion. Without a proposer the bundle carries the fixed preprocess
// default, the lead goal verbatim for evaluation, and zero rounds.
func (c *Coordinator) Negotiate(ctx context.Context, leadGoal string, rounds int) (*GoalBundle, error) {
	lead := strings.TrimSpace(leadGoal)
	if lead == "" {
		return nil, types.NewError(types.GOAL_EMPTY, "lead goal must not be empty")
	}

	if rounds <= 0 {
		rounds = defaultRounds
	}
	if rounds > maxRounds {
		rounds = maxRounds
	}

	if c.proposer == nil {
		return &GoalBundle{
			LeadGoal:       lead,
			PreprocessGoal: DefaultPreprocessGoal,
			EvaluationGoal: lead,
		}, nil
	}

	bundle := &GoalBundle{LeadGoal: lead}
	pre := GoalProposal{Goal: DefaultPreprocessGoal}
	eval := GoalProposal{Goal: DefaultEvaluationGoal}

	for round := 1; round <= rounds; round++ {
		newPre := c.propose(ctx, ProposalRequest{
			Role:            RolePreprocess,
			Round:           round,
			LeadGoal:        lead,
			CurrentGoal:     pre.Goal,
			CounterpartGoal: eval.Goal,
			History:         lastRounds(bundle.History, historyWindow),
		})
		newEval := c.propose(ctx, ProposalRequest{
			Role:            RoleEvaluation,
			Round:           round,
			LeadGoal:        lead,
			CurrentGoal:     eval.Goal,
			CounterpartGoal: newPre.Goal,
			History:         lastRounds(bundle.History, historyWindow),
		})

		bundle.History = append(bundle.History, RoundRecord{
			Round:      round,
			Preprocess: newPre,
			Evaluation: newEval,
		})
		bundle.Rounds = round

		stable := newPre.Goal == pre.Goal && newEval.Goal == eval.Goal
		wantsMore := newPre.NeedsMoreDiscussion || newEval.NeedsMoreDiscussion
		pre, eval = newPre, newEval
		if stable && !wantsMore {
			c.logger.Info("goal negotiation stabilized", "round", round)
			break
		}
	}

	bundle.PreprocessGoal = pre.Goal
	bundle.EvaluationGoal = eval.Goal
	return bundle, nil
}

// propose asks one role for its next proposal. A failed counterpart is
// replaced by the role's fallback proposal; a blank goal falls back to
// the role default while keeping the rest of the answer.
func (c *Coordinator) propose(ctx context.Context, req ProposalRequest) GoalProposal {
	proposal, err := c.proposer.Propose(ctx, req)
	if err != nil {
		c.logger.Warn("goal proposal failed", "role", req.Role, "round", req.Round, "error", err)
		return fallbackProposal(req.Role)
	}
	if proposal == nil {
		return fallbackProposal(req.Role)
	}

	out := *proposal
	out.Goal = strings.TrimSpace(out.Goal)
	if out.Goal == "" {
		out.Goal = req.Role.defaultGoal()
	}
	return out
}

// lastRounds returns at most n trailing records.
func lastRounds(history []RoundRecord, n int) []RoundRecord {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}

type goalDoc struct {
	Goal string `json:"goal"`
}

// Persist stores the bundle atomically: all four keys land in one
// transaction or none do.
func (c *Coordinator) Persist(ctx context.Context, bundle *GoalBundle) error {
	values := make(map[string]json.RawMessage, 4)
	for key, goal := range map[string]string{
		KeyLeadGoal:       bundle.LeadGoal,
		KeyPreprocessGoal: bundle.PreprocessGoal,
		KeyEvaluationGoal: bundle.EvaluationGoal,
	} {
		doc, err := json.Marshal(goalDoc{Goal: goal})
		if err != nil {
			return types.WrapError(types.GOAL_STORE_FAILED, "failed to encode goal", err)
		}
		values[key] = doc
	}

	record, err := json.Marshal(bundle)
	if err != nil {
		return types.WrapError(types.GOAL_STORE_FAILED, "failed to encode negotiation record", err)
	}
	values[KeyNegotiation] = record

	if err := c.config.UpsertMany(ctx, values); err != nil {
		return types.WrapError(types.GOAL_STORE_FAILED, "failed to store goals", err)
	}
	return nil
}

// Run negotiates and persists in one step, returning the settled bundle.
func (c *Coordinator) Run(ctx context.Context, leadGoal string, rounds int) (*GoalBundle, error) {
	bundle, err := c.Negotiate(ctx, leadGoal, rounds)
	if err != nil {
		return nil, err
	}
	if err := c.Persist(ctx, bundle); err != nil {
		return nil, err
	}
	return bundle, nil
}
