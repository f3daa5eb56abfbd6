package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stagechat/internal/app/identity"
	"stagechat/internal/app/push"
	"stagechat/internal/app/room"
	"stagechat/internal/app/store/memory"
)

/*
TestIdentityStore covers nickname uniqueness and the not-found sentinel.
*/
func TestIdentityStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewIdentityStore()

	_, err := store.GetByNickname(ctx, "alice")
	assert.ErrorIs(t, err, identity.ErrNotFound)

	require.NoError(t, store.Create(ctx, identity.Identity{Nickname: "alice", Credential: "pw"}))

	id, err := store.GetByNickname(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "pw", id.Credential)

	err = store.Create(ctx, identity.Identity{Nickname: "alice", Credential: "other"})
	assert.ErrorIs(t, err, identity.ErrNicknameTaken)

	// The original credential survives the rejected create.
	id, err = store.GetByNickname(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "pw", id.Credential)
}

/*
TestChatStore covers room listing order, the room existence check on
append, history ordering, and removal semantics.
*/
func TestChatStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewChatStore()

	t.Run("append_to_unknown_room_fails", func(t *testing.T) {
		_, err := store.Append(ctx, 404, "alice", "hi")
		assert.ErrorIs(t, err, room.ErrNotFound)
	})

	first, err := store.Create(ctx, "first")
	require.NoError(t, err)
	second, err := store.Create(ctx, "second")
	require.NoError(t, err)

	t.Run("list_in_creation_order", func(t *testing.T) {
		rooms, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, rooms, 2)
		assert.Equal(t, "first", rooms[0].Title)
		assert.Equal(t, "second", rooms[1].Title)
	})

	t.Run("history_oldest_first_with_monotonic_ids", func(t *testing.T) {
		m1, err := store.Append(ctx, first.ID, "alice", "one")
		require.NoError(t, err)
		m2, err := store.Append(ctx, first.ID, "bob", "two")
		require.NoError(t, err)
		assert.Greater(t, m2.ID, m1.ID)

		history, err := store.History(ctx, first.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "one", history[0].Content)
		assert.Equal(t, "two", history[1].Content)

		// The other room's log is untouched.
		history, err = store.History(ctx, second.ID)
		require.NoError(t, err)
		assert.Empty(t, history)
	})

	t.Run("remove_returns_the_message", func(t *testing.T) {
		msg, err := store.Append(ctx, second.ID, "alice", "bye")
		require.NoError(t, err)

		removed, err := store.Remove(ctx, msg.ID)
		require.NoError(t, err)
		assert.Equal(t, second.ID, removed.RoomID)
		assert.Equal(t, "bye", removed.Content)

		_, err = store.Remove(ctx, msg.ID)
		assert.ErrorIs(t, err, room.ErrMessageNotFound)

		history, err := store.History(ctx, second.ID)
		require.NoError(t, err)
		assert.Empty(t, history)
	})
}

/*
TestProfileRegistry covers single and bulk avatar writes.
*/
func TestProfileRegistry(t *testing.T) {
	ctx := context.Background()
	registry := memory.NewProfileRegistry()

	avatar, err := registry.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, avatar)

	require.NoError(t, registry.Set(ctx, "alice", "https://cdn/a.png"))
	require.NoError(t, registry.SetAll(ctx, map[string]string{
		"alice": "https://cdn/a2.png",
		"bob":   "https://cdn/b.png",
	}))

	avatar, err = registry.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/a2.png", avatar)

	avatar, err = registry.Get(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn/b.png", avatar)
}

/*
TestSubscriptionStore covers last-write-wins updates and removal.
*/
func TestSubscriptionStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSubscriptionStore()

	require.NoError(t, store.Set(ctx, "alice", push.Subscription{Endpoint: "https://push/1"}))
	require.NoError(t, store.Set(ctx, "alice", push.Subscription{Endpoint: "https://push/2"}))

	subs, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "https://push/2", subs["alice"].Endpoint)

	require.NoError(t, store.Remove(ctx, "alice"))
	require.NoError(t, store.Remove(ctx, "alice"))

	subs, err = store.All(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)
}
