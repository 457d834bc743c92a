package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/chungjung-d/k2c-hackathon/internal/types"
)

// SessionDAO persists conversation histories for the goal gate, keyed by
// an opaque session id. Turn structure is owned by the caller; the DAO
// stores the serialized form.
type SessionDAO interface {
	// Get returns the stored turns for a session, or an empty JSON array
	// when the session does not exist.
	Get(ctx context.Context, id string) (json.RawMessage, error)

	// Put creates or overwrites the stored turns for a session.
	Put(ctx context.Context, id string, turns json.RawMessage) error
}

// sessionDAO implements SessionDAO.
type sessionDAO struct {
	db *DB
}

// NewSessionDAO creates a new session DAO.
func NewSessionDAO(db *DB) SessionDAO {
	return &sessionDAO{db: db}
}

// Get returns the stored turns for a session.
func (d *sessionDAO) Get(ctx context.Context, id string) (json.RawMessage, error) {
	var turns string
	err := d.db.conn.QueryRowContext(ctx, `
		SELECT turns FROM conversation_sessions WHERE id = ?
	`, id).Scan(&turns)

	if err == sql.ErrNoRows {
		return json.RawMessage("[]"), nil
	}
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to get session", err)
	}

	return json.RawMessage(turns), nil
}

// Put creates or overwrites the stored turns for a session.
func (d *sessionDAO) Put(ctx context.Context, id string, turns json.RawMessage) error {
	_, err := d.db.conn.ExecContext(ctx, `
		INSERT INTO conversation_sessions (id, turns, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (id)
		DO UPDATE SET turns = excluded.turns, updated_at = excluded.updated_at
	`, id, string(turns), time.Now().UTC())
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to put session", err)
	}
	return nil
}
