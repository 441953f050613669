package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryStoreAllow(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	store := NewInMemoryStore(WithClock(func() time.Time { return now }))

	t.Run("allows up to the limit inside one window", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			res, err := store.Allow(ctx, "subj-1", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, res.Allowed)
			assert.Equal(t, 2-i, res.Remaining)
		}

		res, err := store.Allow(ctx, "subj-1", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, res.Allowed)
		assert.Equal(t, now.Add(time.Minute), res.ResetAt)
	})

	t.Run("keys are independent", func(t *testing.T) {
		res, err := store.Allow(ctx, "subj-2", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})

	t.Run("window slides instead of resetting at a boundary", func(t *testing.T) {
		base := now
		now = base.Add(59 * time.Second)
		res, err := store.Allow(ctx, "subj-1", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, res.Allowed, "attempts from 59s ago still count")

		now = base.Add(61 * time.Second)
		res, err = store.Allow(ctx, "subj-1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed, "attempts older than the window expire")
	})

	t.Run("reset clears a key", func(t *testing.T) {
		require.NoError(t, store.Reset(ctx, "subj-1"))
		res, err := store.Allow(ctx, "subj-1", 1, time.Minute)
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	})
}
