package idempotency

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMemoryStorePutGetRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	found, err := store.Get(ctx, "missing", &struct{}{})
	require.NoError(t, err)
	require.False(t, found)

	type payload struct{ Value string }
	require.NoError(t, store.Put(ctx, "key-1", payload{Value: "hello"}))

	var out payload
	found, err = store.Get(ctx, "key-1", &out)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "hello", out.Value)
}

func TestMemoryStoreLockExcludesSecondHolder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	ok, release, err := store.Lock(ctx, "plan-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok2, _, err := store.Lock(ctx, "plan-1")
	require.NoError(t, err)
	require.False(t, ok2, "a second lock on the same key must be refused while the first is held")

	release()

	ok3, release3, err := store.Lock(ctx, "plan-1")
	require.NoError(t, err)
	require.True(t, ok3, "the lock must be acquirable again once released")
	release3()
}
