package goals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chungjung-d/k2c-hackathon/internal/llm/providers"
)

func newPassthroughGate(store SessionStore) *Gate {
	coordinator := NewCoordinator(nil, newFakeConfigDAO(), nil)
	return NewGate(nil, "m", coordinator, store, nil)
}

func TestGateBlankMessage(t *testing.T) {
	store := NewMemoryStore()
	gate := newPassthroughGate(store)

	reply, err := gate.Message(context.Background(), "", "   ")
	require.NoError(t, err)
	assert.Equal(t, clarificationReply, reply.Response)
	assert.False(t, reply.Updated)

	// Nothing was persisted for the non-message.
	assert.Empty(t, store.sessions)
}

func TestGatePassthroughWithoutProvider(t *testing.T) {
	store := NewMemoryStore()
	gate := newPassthroughGate(store)
	ctx := context.Background()

	reply, err := gate.Message(ctx, "", "Track coding sessions")
	require.NoError(t, err)

	assert.NotEmpty(t, reply.SessionID)
	assert.True(t, reply.Updated)
	require.NotNil(t, reply.Bundle)
	assert.Equal(t, "Track coding sessions", reply.Bundle.LeadGoal)

	history, err := store.History(ctx, reply.SessionID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "Track coding sessions", history[0].Content)
	assert.Equal(t, "assistant", history[1].Role)
}

func TestGateClarifiesBeforeUpdating(t *testing.T) {
	provider := providers.NewMockProvider([]string{
		`{"response":"What should the pipeline focus on?","update":false}`,
		`{"response":"Got it, focusing on meetings.","update":true,"goal":"Track meetings","max_rounds":2}`,
	})
	store := NewMemoryStore()
	coordinator := NewCoordinator(nil, newFakeConfigDAO(), nil)
	gate := NewGate(provider, "m", coordinator, store, nil)
	ctx := context.Background()

	first, err := gate.Message(ctx, "", "help")
	require.NoError(t, err)
	assert.False(t, first.Updated)
	assert.Nil(t, first.Bundle)
	assert.Equal(t, "What should the pipeline focus on?", first.Response)

	second, err := gate.Message(ctx, first.SessionID, "track my meetings")
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.True(t, second.Updated)
	require.NotNil(t, second.Bundle)
	assert.Equal(t, "Track meetings", second.Bundle.LeadGoal)

	history, err := store.History(ctx, first.SessionID)
	require.NoError(t, err)
	assert.Len(t, history, 4)
}

func TestGateBlankGoalFallsBackToMessage(t *testing.T) {
	// An update decision without a goal still updates, using the user's
	// message verbatim as the lead goal.
	provider := providers.NewMockProvider([]string{
		`{"response":"ok","update":true,"goal":"  "}`,
	})
	coordinator := NewCoordinator(nil, newFakeConfigDAO(), nil)
	gate := NewGate(provider, "m", coordinator, NewMemoryStore(), nil)

	reply, err := gate.Message(context.Background(), "", "track my focus time")
	require.NoError(t, err)
	assert.True(t, reply.Updated)
	require.NotNil(t, reply.Bundle)
	assert.Equal(t, "track my focus time", reply.Bundle.LeadGoal)
}

func TestGateDecisionFailureAsksForClarification(t *testing.T) {
	// A failed backend turn degrades to the fixed clarification prompt;
	// the turn still lands in the session history.
	provider := providers.NewMockProvider(nil)
	provider.Err = errors.New("rate limited")
	store := NewMemoryStore()
	coordinator := NewCoordinator(nil, newFakeConfigDAO(), nil)
	gate := NewGate(provider, "m", coordinator, store, nil)
	ctx := context.Background()

	reply, err := gate.Message(ctx, "", "track my meetings")
	require.NoError(t, err)
	assert.Equal(t, clarificationReply, reply.Response)
	assert.False(t, reply.Updated)
	assert.Nil(t, reply.Bundle)

	history, err := store.History(ctx, reply.SessionID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, clarificationReply, history[1].Content)
}

func TestGateTrimsHistory(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var seeded []Turn
	for i := 0; i < maxSessionTurns; i++ {
		seeded = append(seeded, Turn{Role: "user", Content: fmt.Sprintf("m%d", i)})
	}
	require.NoError(t, store.Save(ctx, "s1", seeded))

	gate := newPassthroughGate(store)
	_, err := gate.Message(ctx, "s1", "latest")
	require.NoError(t, err)

	history, err := store.History(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, history, maxSessionTurns)

	// The oldest turns fell off; the newest exchange is at the tail.
	assert.Equal(t, "m2", history[0].Content)
	assert.Equal(t, "latest", history[maxSessionTurns-2].Content)
	assert.Equal(t, "assistant", history[maxSessionTurns-1].Role)
}

func TestDurableStoreRoundTrip(t *testing.T) {
	raw := &fakeRawSessions{docs: make(map[string]string)}
	store := NewDurableStore(raw)
	ctx := context.Background()

	turns, err := store.History(ctx, "absent")
	require.NoError(t, err)
	assert.Empty(t, turns)

	in := []Turn{{Role: "user", Content: "hi"}, {Role: "assistant", Content: "hello"}}
	require.NoError(t, store.Save(ctx, "s1", in))

	out, err := store.History(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

type fakeRawSessions struct {
	docs map[string]string
}

func (f *fakeRawSessions) Get(_ context.Context, id string) (json.RawMessage, error) {
	doc, ok := f.docs[id]
	if !ok {
		return json.RawMessage("[]"), nil
	}
	return json.RawMessage(doc), nil
}

func (f *fakeRawSessions) Put(_ context.Context, id string, turns json.RawMessage) error {
	f.docs[id] = string(turns)
	return nil
}
