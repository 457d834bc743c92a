package goals

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chungjung-d/k2c-hackathon/internal/database"
	"github.com/chungjung-d/k2c-hackathon/internal/types"
)

// fakeConfigDAO is an in-memory database.ConfigDAO.
type fakeConfigDAO struct {
	entries map[string]json.RawMessage
}

func newFakeConfigDAO() *fakeConfigDAO {
	return &fakeConfigDAO{entries: make(map[string]json.RawMessage)}
}

func (f *fakeConfigDAO) Get(_ context.Context, key string) (*database.ConfigEntry, error) {
	value, ok := f.entries[key]
	if !ok {
		return nil, types.NewError(types.CONFIG_KEY_NOT_FOUND, "missing key: "+key)
	}
	return &database.ConfigEntry{Key: key, Value: value, UpdatedAt: time.Now()}, nil
}

func (f *fakeConfigDAO) Upsert(_ context.Context, key string, value json.RawMessage) error {
	f.entries[key] = value
	return nil
}

func (f *fakeConfigDAO) UpsertMany(_ context.Context, values map[string]json.RawMessage) error {
	for key, value := range values {
		f.entries[key] = value
	}
	return nil
}

// fakeProposer answers from a per-role script and records every request
// it receives. failAfter > 0 makes call failAfter+1 onward return err.
type fakeProposer struct {
	answers   map[Role][]GoalProposal
	requests  []ProposalRequest
	err       error
	failAfter int
}

func (p *fakeProposer) Propose(_ context.Context, req ProposalRequest) (*GoalProposal, error) {
	p.requests = append(p.requests, req)
	if p.err != nil && (p.failAfter == 0 || len(p.requests) > p.failAfter) {
		return nil, p.err
	}
	script := p.answers[req.Role]
	if len(script) == 0 {
		return &GoalProposal{Goal: req.CurrentGoal}, nil
	}
	if req.Round > len(script) {
		answer := script[len(script)-1]
		return &answer, nil
	}
	answer := script[req.Round-1]
	return &answer, nil
}

func (p *fakeProposer) calls() int { return len(p.requests) }

func goalsOnly(proposals ...string) []GoalProposal {
	out := make([]GoalProposal, 0, len(proposals))
	for _, goal := range proposals {
		out = append(out, GoalProposal{Goal: goal})
	}
	return out
}

func TestNegotiateEmptyLeadGoal(t *testing.T) {
	proposer := &fakeProposer{}
	c := NewCoordinator(proposer, newFakeConfigDAO(), nil)

	_, err := c.Negotiate(context.Background(), "   ", 3)
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.GOAL_EMPTY))

	// Rejection happens before any counterpart is consulted.
	assert.Zero(t, proposer.calls())
}

func TestNegotiateWithoutProposer(t *testing.T) {
	c := NewCoordinator(nil, newFakeConfigDAO(), nil)

	bundle, err := c.Negotiate(context.Background(), "Reduce noise", 3)
	require.NoError(t, err)

	assert.Equal(t, "Reduce noise", bundle.LeadGoal)
	assert.Equal(t, DefaultPreprocessGoal, bundle.PreprocessGoal)
	assert.Equal(t, "Reduce noise", bundle.EvaluationGoal)
	assert.Zero(t, bundle.Rounds)
	assert.Empty(t, bundle.History)
}

func TestNegotiateSingleRound(t *testing.T) {
	proposer := &fakeProposer{answers: map[Role][]GoalProposal{
		RolePreprocess: goalsOnly("p1"),
		RoleEvaluation: goalsOnly("e1"),
	}}
	c := NewCoordinator(proposer, newFakeConfigDAO(), nil)

	bundle, err := c.Negotiate(context.Background(), "lead", 1)
	require.NoError(t, err)

	assert.Equal(t, 1, bundle.Rounds)
	assert.Equal(t, "p1", bundle.PreprocessGoal)
	assert.Equal(t, "e1", bundle.EvaluationGoal)
	assert.Equal(t, 2, proposer.calls())
}

func TestNegotiateRequestsCarryCounterpartState(t *testing.T) {
	proposer := &fakeProposer{answers: map[Role][]GoalProposal{
		RolePreprocess: goalsOnly("p1", "p2", "p3"),
		RoleEvaluation: goalsOnly("e1", "e2", "e3"),
	}}
	c := NewCoordinator(proposer, newFakeConfigDAO(), nil)

	_, err := c.Negotiate(context.Background(), "lead", 3)
	require.NoError(t, err)
	require.Len(t, proposer.requests, 6)

	// Round 1: preprocess opens against the evaluation seed, evaluation
	// answers the fresh preprocess proposal.
	assert.Equal(t, DefaultEvaluationGoal, proposer.requests[0].CounterpartGoal)
	assert.Equal(t, "p1", proposer.requests[1].CounterpartGoal)
	assert.Empty(t, proposer.requests[0].History)

	// Round 2 sees the single prior round.
	require.Len(t, proposer.requests[2].History, 1)
	assert.Equal(t, "p1", proposer.requests[2].History[0].Preprocess.Goal)
	assert.Equal(t, "e1", proposer.requests[2].History[0].Evaluation.Goal)
	assert.Equal(t, "e1", proposer.requests[2].CounterpartGoal)
	assert.Equal(t, "p2", proposer.requests[3].CounterpartGoal)

	// Round 3 sees a two-round window.
	require.Len(t, proposer.requests[4].History, 2)
	assert.Equal(t, 1, proposer.requests[4].History[0].Round)
	assert.Equal(t, 2, proposer.requests[4].History[1].Round)
	assert.Equal(t, "p2", proposer.requests[4].CurrentGoal)
}

func TestNegotiateHistoryKeepsFullProposals(t *testing.T) {
	proposer := &fakeProposer{answers: map[Role][]GoalProposal{
		RolePreprocess: {{
			Goal:       "p1",
			Rationale:  "narrow the capture",
			FocusAreas: []string{"window titles", "visible text"},
			Questions:  []string{"which apps matter most?"},
		}},
		RoleEvaluation: {{
			Goal:      "e1",
			Rationale: "score coverage",
		}},
	}}
	c := NewCoordinator(proposer, newFakeConfigDAO(), nil)

	bundle, err := c.Negotiate(context.Background(), "lead", 1)
	require.NoError(t, err)
	require.Len(t, bundle.History, 1)

	record := bundle.History[0]
	assert.Equal(t, "narrow the capture", record.Preprocess.Rationale)
	assert.Equal(t, []string{"window titles", "visible text"}, record.Preprocess.FocusAreas)
	assert.Equal(t, []string{"which apps matter most?"}, record.Preprocess.Questions)
	assert.Equal(t, "score coverage", record.Evaluation.Rationale)
}

func TestNegotiateStabilizes(t *testing.T) {
	// Both roles repeat from round 2 on; round 3 must never run.
	proposer := &fakeProposer{answers: map[Role][]GoalProposal{
		RolePreprocess: goalsOnly("p1", "p1"),
		RoleEvaluation: goalsOnly("e1", "e1"),
	}}
	c := NewCoordinator(proposer, newFakeConfigDAO(), nil)

	bundle, err := c.Negotiate(context.Background(), "lead", 5)
	require.NoError(t, err)

	assert.Equal(t, 2, bundle.Rounds)
	assert.Equal(t, "p1", bundle.PreprocessGoal)
	assert.Equal(t, "e1", bundle.EvaluationGoal)
	assert.Len(t, bundle.History, 2)
	assert.Equal(t, 4, proposer.calls())
}

func TestNegotiateContinuesWhileDiscussionRequested(t *testing.T) {
	// Goals repeat immediately, but one side keeps asking for more
	// discussion; stable goals alone must not end negotiation.
	proposer := &fakeProposer{answers: map[Role][]GoalProposal{
		RolePreprocess: {
			{Goal: "p1", NeedsMoreDiscussion: true},
			{Goal: "p1", NeedsMoreDiscussion: true},
			{Goal: "p1", NeedsMoreDiscussion: true},
			{Goal: "p1", NeedsMoreDiscussion: true},
			{Goal: "p1"},
		},
		RoleEvaluation: goalsOnly("e1", "e1", "e1", "e1", "e1"),
	}}
	c := NewCoordinator(proposer, newFakeConfigDAO(), nil)

	bundle, err := c.Negotiate(context.Background(), "lead", 5)
	require.NoError(t, err)

	assert.Equal(t, 5, bundle.Rounds)
	assert.Equal(t, 10, proposer.calls())
	assert.Equal(t, "p1", bundle.PreprocessGoal)
}

func TestNegotiateRoundClamping(t *testing.T) {
	// Never-stabilizing proposals exercise the bounds.
	script := goalsOnly("a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l")
	proposer := &fakeProposer{answers: map[Role][]GoalProposal{
		RolePreprocess: script,
		RoleEvaluation: script,
	}}
	c := NewCoordinator(proposer, newFakeConfigDAO(), nil)

	bundle, err := c.Negotiate(context.Background(), "lead", 0)
	require.NoError(t, err)
	assert.Equal(t, 3, bundle.Rounds)

	proposer.requests = nil
	bundle, err = c.Negotiate(context.Background(), "lead", 99)
	require.NoError(t, err)
	assert.Equal(t, 10, bundle.Rounds)
}

func TestNegotiateBlankProposalFallsBack(t *testing.T) {
	proposer := &fakeProposer{answers: map[Role][]GoalProposal{
		RolePreprocess: goalsOnly("  "),
		RoleEvaluation: goalsOnly(""),
	}}
	c := NewCoordinator(proposer, newFakeConfigDAO(), nil)

	bundle, err := c.Negotiate(context.Background(), "lead", 1)
	require.NoError(t, err)
	assert.Equal(t, DefaultPreprocessGoal, bundle.PreprocessGoal)
	assert.Equal(t, DefaultEvaluationGoal, bundle.EvaluationGoal)
}

func TestNegotiateProposerFailureUsesRoleDefault(t *testing.T) {
	proposer := &fakeProposer{err: errors.New("unavailable")}
	c := NewCoordinator(proposer, newFakeConfigDAO(), nil)

	bundle, err := c.Negotiate(context.Background(), "lead", 2)
	require.NoError(t, err)

	assert.Equal(t, DefaultPreprocessGoal, bundle.PreprocessGoal)
	assert.Equal(t, DefaultEvaluationGoal, bundle.EvaluationGoal)
	require.NotEmpty(t, bundle.History)
	assert.Equal(t, "fallback", bundle.History[0].Preprocess.Rationale)
	assert.Equal(t, "fallback", bundle.History[0].Evaluation.Rationale)
}

func TestNegotiateMidRoundFailureDropsCustomGoal(t *testing.T) {
	// A custom goal agreed in round 1 must not survive a round 2 failure;
	// the failed side answers with its role default instead.
	proposer := &fakeProposer{
		answers: map[Role][]GoalProposal{
			RolePreprocess: {{Goal: "custom-preprocess", NeedsMoreDiscussion: true}},
			RoleEvaluation: {{Goal: "custom-evaluation", NeedsMoreDiscussion: true}},
		},
		err:       errors.New("unavailable"),
		failAfter: 2,
	}
	c := NewCoordinator(proposer, newFakeConfigDAO(), nil)

	bundle, err := c.Negotiate(context.Background(), "lead", 2)
	require.NoError(t, err)

	assert.Equal(t, DefaultPreprocessGoal, bundle.PreprocessGoal)
	assert.Equal(t, DefaultEvaluationGoal, bundle.EvaluationGoal)
	require.Len(t, bundle.History, 2)
	assert.Equal(t, "custom-preprocess", bundle.History[0].Preprocess.Goal)
	assert.Equal(t, "fallback", bundle.History[1].Preprocess.Rationale)
}

func TestPersist(t *testing.T) {
	store := newFakeConfigDAO()
	c := NewCoordinator(nil, store, nil)
	ctx := context.Background()

	bundle, err := c.Run(ctx, "Reduce noise", 0)
	require.NoError(t, err)
	assert.Zero(t, bundle.Rounds)

	var doc goalDoc
	require.NoError(t, json.Unmarshal(store.entries[KeyLeadGoal], &doc))
	assert.Equal(t, "Reduce noise", doc.Goal)

	require.NoError(t, json.Unmarshal(store.entries[KeyPreprocessGoal], &doc))
	assert.Equal(t, DefaultPreprocessGoal, doc.Goal)

	require.NoError(t, json.Unmarshal(store.entries[KeyEvaluationGoal], &doc))
	assert.Equal(t, "Reduce noise", doc.Goal)

	var record GoalBundle
	require.NoError(t, json.Unmarshal(store.entries[KeyNegotiation], &record))
	assert.Equal(t, *bundle, record)
}
