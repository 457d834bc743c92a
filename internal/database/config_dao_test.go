package database

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chungjung-d/k2c-hackathon/internal/types"
)

func TestConfigGetMissing(t *testing.T) {
	db := newTestDB(t)
	dao := NewConfigDAO(db)

	_, err := dao.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.True(t, types.HasCode(err, types.CONFIG_KEY_NOT_FOUND))
}

func TestConfigUpsert(t *testing.T) {
	db := newTestDB(t)
	dao := NewConfigDAO(db)
	ctx := context.Background()

	require.NoError(t, dao.Upsert(ctx, "lead_goal", json.RawMessage(`{"goal":"v1"}`)))

	entry, err := dao.Get(ctx, "lead_goal")
	require.NoError(t, err)
	assert.JSONEq(t, `{"goal":"v1"}`, string(entry.Value))

	// Upsert on the same key replaces the value.
	require.NoError(t, dao.Upsert(ctx, "lead_goal", json.RawMessage(`{"goal":"v2"}`)))

	entry, err = dao.Get(ctx, "lead_goal")
	require.NoError(t, err)
	assert.JSONEq(t, `{"goal":"v2"}`, string(entry.Value))
}

func TestConfigUpsertMany(t *testing.T) {
	db := newTestDB(t)
	dao := NewConfigDAO(db)
	ctx := context.Background()

	err := dao.UpsertMany(ctx, map[string]json.RawMessage{
		"lead_goal":       json.RawMessage(`{"goal":"a"}`),
		"preprocess_goal": json.RawMessage(`{"goal":"b"}`),
		"evaluation_goal": json.RawMessage(`{"goal":"c"}`),
	})
	require.NoError(t, err)

	for key, want := range map[string]string{
		"lead_goal":       `{"goal":"a"}`,
		"preprocess_goal": `{"goal":"b"}`,
		"evaluation_goal": `{"goal":"c"}`,
	} {
		entry, err := dao.Get(ctx, key)
		require.NoError(t, err)
		assert.JSONEq(t, want, string(entry.Value))
	}
}

func TestConfigUpsertManyEmpty(t *testing.T) {
	db := newTestDB(t)
	dao := NewConfigDAO(db)

	require.NoError(t, dao.UpsertMany(context.Background(), nil))
}
