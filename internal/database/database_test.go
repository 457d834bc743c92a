package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chungjung-d/k2c-hackathon/internal/types"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.InitSchema())
	return db
}

func TestOpenEnablesWAL(t *testing.T) {
	db := newTestDB(t)

	var mode string
	err := db.conn.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	require.Equal(t, "wal", mode)
}

func TestHealth(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Health(context.Background()))

	require.NoError(t, db.Close())
	require.Error(t, db.Health(context.Background()))
}

func TestInitSchemaIdempotent(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.InitSchema())
	require.NoError(t, db.InitSchema())
}

func TestOpenMissingDirectory(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent", "test.db"))
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.DB_OPEN_FAILED))
}

func TestInitSchemaClosedConnection(t *testing.T) {
	db := newTestDB(t)
	require.NoError(t, db.Close())

	err := db.InitSchema()
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.DB_MIGRATION_FAILED))
}
