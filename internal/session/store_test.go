package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/todostack/internal/clock"
)

// TestStoreConcurrentAccess tests concurrent access to the store with race detection
func TestStoreConcurrentAccess(t *testing.T) {
	store := NewStore(16, time.Hour, time.Minute, nil)
	ctx := context.Background()

	numGoroutines := 50
	numOperations := 100
	var wg sync.WaitGroup

	wg.Add(numGoroutines * 3)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				sess := &Session{ID: fmt.Sprintf("s-%d-%d", id, j), CSRFToken: "t"}
				assert.NoError(t, store.Save(ctx, sess))
			}
		}(i)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				_, _ = store.Get(ctx, fmt.Sprintf("s-%d-%d", id, j))
			}
		}(i)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < numOperations; j++ {
				_ = store.Delete(ctx, fmt.Sprintf("s-%d-%d", id, j))
			}
		}(i)
	}
	wg.Wait()

	_, err := store.CleanExpired(ctx)
	assert.NoError(t, err)
}

func TestStoreReturnsCopies(t *testing.T) {
	store := NewStore(4, time.Hour, time.Minute, nil)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "a", UserID: "u1"}))

	got, ok := store.Get(ctx, "a")
	require.True(t, ok)
	got.UserID = "changed"

	again, ok := store.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, "u1", again.UserID, "mutating a returned session must not leak into the store")
}

func TestStoreExpiry(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store := NewStore(4, time.Hour, time.Minute, clk)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "old"}))
	clk.Advance(30 * time.Minute)
	require.NoError(t, store.Save(ctx, &Session{ID: "fresh"}))

	clk.Advance(31 * time.Minute)
	_, ok := store.Get(ctx, "old")
	assert.False(t, ok, "expired session is invisible")
	_, ok = store.Get(ctx, "fresh")
	assert.True(t, ok)

	removed, err := store.CleanExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())
}

func TestStoreCleanupWorker(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	store := NewStore(4, time.Minute, 10*time.Millisecond, clk)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &Session{ID: "a"}))
	clk.Advance(2 * time.Minute)

	store.StartCleanupWorker()
	store.StartCleanupWorker()
	defer store.StopCleanupWorker()

	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, 10*time.Millisecond)

	store.StopCleanupWorker()
	store.StopCleanupWorker()
}

func TestStoreUpdateOnlyExistingSessions(t *testing.T) {
	clk := clock.NewManual(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	store := NewStore(4, time.Hour, time.Minute, clk)
	ctx := context.Background()

	ok, err := store.Update(ctx, &Session{ID: "unknown"})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, store.Len())

	sess := &Session{ID: "s1", CSRFToken: "t"}
	require.NoError(t, store.Save(ctx, sess))

	clk.Advance(10 * time.Minute)
	sess.UserID = "u1"
	ok, err = store.Update(ctx, sess)
	require.NoError(t, err)
	assert.True(t, ok)
	got, found := store.Get(ctx, "s1")
	require.True(t, found)
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, clk.Now(), got.LastSeen)

	require.NoError(t, store.Delete(ctx, "s1"))
	ok, err = store.Update(ctx, sess)
	require.NoError(t, err)
	assert.False(t, ok)
	_, found = store.Get(ctx, "s1")
	assert.False(t, found)

	require.NoError(t, store.Save(ctx, &Session{ID: "s2"}))
	clk.Advance(time.Hour + time.Second)
	ok, err = store.Update(ctx, &Session{ID: "s2"})
	require.NoError(t, err)
	assert.False(t, ok, "expired sessions are not revived")
}
