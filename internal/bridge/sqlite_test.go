package bridge

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "bridge.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	id, err := store.Create(ctx, testOptions())
	require.NoError(t, err)

	ref, err := store.Lookup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, ref.BridgedID)
	assert.Equal(t, "forecast", ref.SkillID)
	assert.Equal(t, "skill-app", ref.SkillAppID)
	assert.Equal(t, "conv-1", ref.Conversation.Conversation.ID)
	assert.False(t, ref.CreatedAt.IsZero())

	require.NoError(t, store.Delete(ctx, id))

	_, err = store.Lookup(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteStore_CreateIdempotentPerHandoff(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	first, err := store.Create(ctx, testOptions())
	require.NoError(t, err)
	second, err := store.Create(ctx, testOptions())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.NoError(t, store.Delete(ctx, first))
	third, err := store.Create(ctx, testOptions())
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestSQLiteStore_Engagement(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	engaged, err := store.Engaged(ctx, "conv-1")
	require.NoError(t, err)
	assert.False(t, engaged)

	require.NoError(t, store.SetEngaged(ctx, "conv-1"))
	// Setting twice upserts rather than failing.
	require.NoError(t, store.SetEngaged(ctx, "conv-1"))

	engaged, err = store.Engaged(ctx, "conv-1")
	require.NoError(t, err)
	assert.True(t, engaged)

	engaged, err = store.Engaged(ctx, "conv-2")
	require.NoError(t, err)
	assert.False(t, engaged)

	require.NoError(t, store.ClearEngaged(ctx, "conv-1"))

	engaged, err = store.Engaged(ctx, "conv-1")
	require.NoError(t, err)
	assert.False(t, engaged)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "bridge.db")

	store, err := OpenSQLite(path)
	require.NoError(t, err)

	id, err := store.Create(ctx, testOptions())
	require.NoError(t, err)
	require.NoError(t, store.SetEngaged(ctx, "conv-1"))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	defer reopened.Close()

	ref, err := reopened.Lookup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, ref.BridgedID)

	engaged, err := reopened.Engaged(ctx, "conv-1")
	require.NoError(t, err)
	assert.True(t, engaged)
}
