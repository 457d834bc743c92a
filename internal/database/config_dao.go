package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chungjung-d/k2c-hackathon/internal/types"
)

// ConfigEntry is a key/value pair with an opaque JSON value.
type ConfigEntry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ConfigDAO provides upsert-semantics access to the config store. Goal
// bundles and generic settings are persisted through it.
type ConfigDAO interface {
	// Get retrieves a config entry by key. A missing key is a
	// CONFIG_KEY_NOT_FOUND error.
	Get(ctx context.Context, key string) (*ConfigEntry, error)

	// Upsert creates or overwrites the entry for key.
	Upsert(ctx context.Context, key string, value json.RawMessage) error

	// UpsertMany creates or overwrites several entries in one
	// transaction, making a multi-key bundle write atomic.
	UpsertMany(ctx context.Context, values map[string]json.RawMessage) error
}

// configDAO implements ConfigDAO.
type configDAO struct {
	db *DB
}

// NewConfigDAO creates a new config DAO.
func NewConfigDAO(db *DB) ConfigDAO {
	return &configDAO{db: db}
}

const upsertConfigQuery = `
	INSERT INTO config_store (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT (key)
	DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
`

// Get retrieves a config entry by key.
func (d *configDAO) Get(ctx context.Context, key string) (*ConfigEntry, error) {
	var entry ConfigEntry
	var value string

	err := d.db.conn.QueryRowContext(ctx, `
		SELECT key, value, updated_at FROM config_store WHERE key = ?
	`, key).Scan(&entry.Key, &value, &entry.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, types.NewError(types.CONFIG_KEY_NOT_FOUND,
			fmt.Sprintf("config key not found: %s", key))
	}
	if err != nil {
		return nil, types.WrapError(types.DB_QUERY_FAILED, "failed to get config entry", err)
	}

	entry.Value = json.RawMessage(value)
	return &entry, nil
}

// Upsert creates or overwrites the entry for key.
func (d *configDAO) Upsert(ctx context.Context, key string, value json.RawMessage) error {
	_, err := d.db.conn.ExecContext(ctx, upsertConfigQuery, key, string(value), time.Now().UTC())
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to upsert config entry", err)
	}
	return nil
}

// UpsertMany creates or overwrites several entries in one transaction.
func (d *configDAO) UpsertMany(ctx context.Context, values map[string]json.RawMessage) error {
	if len(values) == 0 {
		return nil
	}

	now := time.Now().UTC()
	err := d.db.WithTx(ctx, func(tx *sql.Tx) error {
		for key, value := range values {
			if _, err := tx.ExecContext(ctx, upsertConfigQuery, key, string(value), now); err != nil {
				return fmt.Errorf("upsert %q: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return types.WrapError(types.DB_QUERY_FAILED, "failed to upsert config entries", err)
	}
	return nil
}
