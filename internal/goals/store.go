package goals

import (
	"context"
	"encoding/json"
	"sync"
)

// Turn is one exchange in a clarification conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionStore persists conversation history keyed by session id. A
// missing session yields an empty history, never an error.
type SessionStore interface {
	History(ctx context.Context, sessionID string) ([]Turn, error)
	Save(ctx context.Context, sessionID string, turns []Turn) error
}

// MemoryStore is an in-process SessionStore, used by tests and
// single-shot invocations that do not need durable history.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string][]Turn
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string][]Turn)}
}

func (s *MemoryStore) History(_ context.Context, sessionID string) ([]Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	turns := s.sessions[sessionID]
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out, nil
}

func (s *MemoryStore) Save(_ context.Context, sessionID string, turns []Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := make([]Turn, len(turns))
	copy(saved, turns)
	s.sessions[sessionID] = saved
	return nil
}

// rawSessionStore matches the database session DAO without importing it.
type rawSessionStore interface {
	Get(ctx context.Context, id string) (json.RawMessage, error)
	Put(ctx context.Context, id string, turns json.RawMessage) error
}

// DurableStore adapts the raw session DAO to typed turns.
type DurableStore struct {
	raw rawSessionStore
}

func NewDurableStore(raw rawSessionStore) *DurableStore {
	return &DurableStore{raw: raw}
}

func (s *DurableStore) History(ctx context.Context, sessionID string) ([]Turn, error) {
	doc, err := s.raw.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var turns []Turn
	if err := json.Unmarshal(doc, &turns); err != nil {
		return nil, err
	}
	return turns, nil
}

func (s *DurableStore) Save(ctx context.Context, sessionID string, turns []Turn) error {
	doc, err := json.Marshal(turns)
	if err != nil {
		return err
	}
	return s.raw.Put(ctx, sessionID, doc)
}
