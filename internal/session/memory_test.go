package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetSet(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	_, err := store.Get(ctx, "sid-1", "oauth_state")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	require.NoError(t, store.Set(ctx, "sid-1", "oauth_state", "abc"))

	value, err := store.Get(ctx, "sid-1", "oauth_state")
	require.NoError(t, err)
	assert.Equal(t, "abc", value)

	// Missing key in an existing session
	_, err = store.Get(ctx, "sid-1", "missing")
	assert.ErrorIs(t, err, ErrKeyNotFound)
}

func TestMemoryStoreSessionIsolation(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sid-a", "oauth_state", "state-a"))
	require.NoError(t, store.Set(ctx, "sid-b", "oauth_state", "state-b"))

	a, err := store.Get(ctx, "sid-a", "oauth_state")
	require.NoError(t, err)
	b, err := store.Get(ctx, "sid-b", "oauth_state")
	require.NoError(t, err)

	assert.Equal(t, "state-a", a)
	assert.Equal(t, "state-b", b)
}

func TestMemoryStoreDeleteKey(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sid-1", "oauth_state", "abc"))
	require.NoError(t, store.Set(ctx, "sid-1", "user", "{}"))
	require.NoError(t, store.DeleteKey(ctx, "sid-1", "oauth_state"))

	_, err := store.Get(ctx, "sid-1", "oauth_state")
	assert.ErrorIs(t, err, ErrKeyNotFound)

	// Other keys survive
	value, err := store.Get(ctx, "sid-1", "user")
	require.NoError(t, err)
	assert.Equal(t, "{}", value)

	// Deleting from an absent session is not an error
	assert.NoError(t, store.DeleteKey(ctx, "no-such-session", "key"))
}

func TestMemoryStoreCleanupExpired(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	current := time.Now()
	store.now = func() time.Time { return current }

	require.NoError(t, store.Set(ctx, "stale", "k", "v"))

	current = current.Add(30 * time.Minute)
	require.NoError(t, store.Set(ctx, "fresh", "k", "v"))

	current = current.Add(45 * time.Minute)
	count, err := store.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = store.Get(ctx, "stale", "k")
	assert.ErrorIs(t, err, ErrKeyNotFound)
	_, err = store.Get(ctx, "fresh", "k")
	assert.NoError(t, err)
}

func TestSessionViewScopesStore(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	sess := New("sid-view", store)
	require.NoError(t, sess.Set(ctx, "k", "v"))

	value, err := store.Get(ctx, "sid-view", "k")
	require.NoError(t, err)
	assert.Equal(t, "v", value)
	assert.Equal(t, "sid-view", sess.ID())
}
