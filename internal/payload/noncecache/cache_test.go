package noncecache

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingAdmit(t *testing.T) {
	ctx := context.Background()

	t.Run("first admit wins, second is a replay", func(t *testing.T) {
		ring := NewRing(8)

		ok, err := ring.Admit(ctx, "n1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = ring.Admit(ctx, "n1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("evicts oldest first when full", func(t *testing.T) {
		ring := NewRing(3)
		for i := 0; i < 3; i++ {
			_, err := ring.Admit(ctx, fmt.Sprintf("n%d", i))
			require.NoError(t, err)
		}

		// Admitting a fourth nonce evicts n0.
		ok, err := ring.Admit(ctx, "n3")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, 3, ring.Len())

		ok, err = ring.Admit(ctx, "n0")
		require.NoError(t, err)
		assert.True(t, ok, "evicted nonce is forgotten and admits again")

		ok, err = ring.Admit(ctx, "n2")
		require.NoError(t, err)
		assert.False(t, ok, "recent nonce is still tracked")
	})

	t.Run("concurrent admits of one nonce let exactly one through", func(t *testing.T) {
		ring := NewRing(64)
		const racers = 32

		var wg sync.WaitGroup
		admitted := make(chan bool, racers)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := ring.Admit(ctx, "contested")
				require.NoError(t, err)
				admitted <- ok
			}()
		}
		wg.Wait()
		close(admitted)

		wins := 0
		for ok := range admitted {
			if ok {
				wins++
			}
		}
		assert.Equal(t, 1, wins)
	})
}
