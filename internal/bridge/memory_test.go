package bridge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rootrelay/internal/activity"
	"rootrelay/internal/config"
)

func testOptions() Options {
	return Options{
		OAuthScope: "api://root",
		FromAppID:  "root-app",
		Activity: &activity.Activity{
			Type:         activity.TypeMessage,
			ID:           "act-1",
			ChannelID:    "test",
			ServiceURL:   "http://channel.local",
			Conversation: activity.Conversation{ID: "conv-1"},
			From:         activity.Account{ID: "user-1"},
			Recipient:    activity.Account{ID: "bot-1"},
			Text:         "agent please",
		},
		Skill: config.SkillDescriptor{ID: "forecast", AppID: "skill-app"},
	}
}

func TestMemoryStore_CreateLookup(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Create(ctx, testOptions())
	require.NoError(t, err)
	require.NotEmpty(t, id)

	ref, err := store.Lookup(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, ref.BridgedID)
	assert.Equal(t, "api://root", ref.OAuthScope)
	assert.Equal(t, "root-app", ref.FromAppID)
	assert.Equal(t, "forecast", ref.SkillID)
	assert.Equal(t, "skill-app", ref.SkillAppID)
	assert.Equal(t, "conv-1", ref.Conversation.Conversation.ID)
	assert.Equal(t, "user-1", ref.Conversation.User.ID)
	assert.Equal(t, "bot-1", ref.Conversation.Bot.ID)
	assert.Equal(t, "act-1", ref.Conversation.ActivityID)
}

func TestMemoryStore_CreateIdempotentPerHandoff(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// While a handoff is live, Create returns its bridged id instead of
	// minting another.
	first, err := store.Create(ctx, testOptions())
	require.NoError(t, err)
	second, err := store.Create(ctx, testOptions())
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// A different conversation or skill is a different handoff.
	otherConv := testOptions()
	otherConv.Activity = otherConv.Activity.Clone()
	otherConv.Activity.Conversation.ID = "conv-2"
	otherID, err := store.Create(ctx, otherConv)
	require.NoError(t, err)
	assert.NotEqual(t, first, otherID)

	otherSkill := testOptions()
	otherSkill.Skill = config.SkillDescriptor{ID: "triage", AppID: "triage-app"}
	triageID, err := store.Create(ctx, otherSkill)
	require.NoError(t, err)
	assert.NotEqual(t, first, triageID)

	// Deleting the reference ends the handoff; the next Create mints fresh.
	require.NoError(t, store.Delete(ctx, first))
	third, err := store.Create(ctx, testOptions())
	require.NoError(t, err)
	assert.NotEqual(t, first, third)
}

func TestMemoryStore_CreateRequiresActivity(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Create(context.Background(), Options{})
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestMemoryStore_DeleteThenLookupNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	id, err := store.Create(ctx, testOptions())
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, id))

	_, err = store.Lookup(ctx, id)
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting again is not an error.
	assert.NoError(t, store.Delete(ctx, id))
}

func TestMemoryStore_LookupUnknown(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Lookup(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_EngagementPerConversation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	engaged, err := store.Engaged(ctx, "conv-1")
	require.NoError(t, err)
	assert.False(t, engaged)

	require.NoError(t, store.SetEngaged(ctx, "conv-1"))

	engaged, err = store.Engaged(ctx, "conv-1")
	require.NoError(t, err)
	assert.True(t, engaged)

	// Engagement must not leak to other conversations.
	engaged, err = store.Engaged(ctx, "conv-2")
	require.NoError(t, err)
	assert.False(t, engaged)

	require.NoError(t, store.ClearEngaged(ctx, "conv-1"))

	engaged, err = store.Engaged(ctx, "conv-1")
	require.NoError(t, err)
	assert.False(t, engaged)
}
