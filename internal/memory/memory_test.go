package memory

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "memory.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_AppendAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, RoleUser, "first"))
	require.NoError(t, store.Append(ctx, RoleAssistant, "second"))
	require.NoError(t, store.Append(ctx, RoleUser, "third"))

	turns, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, turns, 3)

	// Chronological order, oldest first.
	assert.Equal(t, "first", turns[0].Content)
	assert.Equal(t, "second", turns[1].Content)
	assert.Equal(t, "third", turns[2].Content)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, RoleAssistant, turns[1].Role)
}

func TestStore_RecentReturnsNewestWindow(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, store.Append(ctx, RoleUser, fmt.Sprintf("msg-%d", i)))
	}

	turns, err := store.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, turns, 3)

	// The newest three, still oldest-to-newest.
	assert.Equal(t, "msg-7", turns[0].Content)
	assert.Equal(t, "msg-8", turns[1].Content)
	assert.Equal(t, "msg-9", turns[2].Content)
}

func TestStore_AppendEmptyContentIsNoOp(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, RoleAssistant, ""))

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestStore_RecentZeroLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, RoleUser, "hello"))

	turns, err := store.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestStore_ConcurrentAppends(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			assert.NoError(t, store.Append(ctx, RoleUser, fmt.Sprintf("concurrent-%d", n)))
		}(i)
	}
	wg.Wait()

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, writers, n)

	// Every turn has a distinct, monotonically increasing id.
	turns, err := store.Recent(ctx, writers)
	require.NoError(t, err)
	for i := 1; i < len(turns); i++ {
		assert.Greater(t, turns[i].ID, turns[i-1].ID)
	}
}

func TestStore_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "memory.db")
	ctx := context.Background()

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, RoleUser, "persisted"))
	require.NoError(t, store.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	turns, err := reopened.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "persisted", turns[0].Content)
}
