package database

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionGetAbsent(t *testing.T) {
	db := newTestDB(t)
	dao := NewSessionDAO(db)

	turns, err := dao.Get(context.Background(), "missing")
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(turns))
}

func TestSessionPutGet(t *testing.T) {
	db := newTestDB(t)
	dao := NewSessionDAO(db)
	ctx := context.Background()

	doc := json.RawMessage(`[{"role":"user","content":"hi"}]`)
	require.NoError(t, dao.Put(ctx, "s1", doc))

	got, err := dao.Get(ctx, "s1")
	require.NoError(t, err)
	assert.JSONEq(t, string(doc), string(got))

	// Replacing rewrites the whole history.
	updated := json.RawMessage(`[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]`)
	require.NoError(t, dao.Put(ctx, "s1", updated))

	got, err = dao.Get(ctx, "s1")
	require.NoError(t, err)
	assert.JSONEq(t, string(updated), string(got))
}
