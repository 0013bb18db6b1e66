package sqsdispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoalescingCache(t *testing.T) {
	ctx := context.Background()

	t.Run("memoizes by key", func(t *testing.T) {
		c := newCoalescingCache[string]()
		var calls atomic.Int32
		fetch := func(context.Context) (string, error) {
			calls.Add(1)
			return "v", nil
		}

		for range 3 {
			v, err := c.Get(ctx, "k", fetch)
			require.NoError(t, err)
			assert.Equal(t, "v", v)
		}
		_, err := c.Get(ctx, "other", fetch)
		require.NoError(t, err)

		assert.Equal(t, int32(2), calls.Load())
		assert.Equal(t, 2, c.Len())
	})

	t.Run("concurrent misses share one fetch", func(t *testing.T) {
		c := newCoalescingCache[int]()
		var calls atomic.Int32
		release := make(chan struct{})
		fetch := func(context.Context) (int, error) {
			calls.Add(1)
			<-release
			return 7, nil
		}

		const callers = 20
		var wg sync.WaitGroup
		results := make([]int, callers)
		for i := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := c.Get(ctx, "k", fetch)
				assert.NoError(t, err)
				results[i] = v
			}()
		}
		close(release)
		wg.Wait()

		assert.Equal(t, int32(1), calls.Load())
		for _, v := range results {
			assert.Equal(t, 7, v)
		}
	})

	t.Run("errors are not cached", func(t *testing.T) {
		c := newCoalescingCache[string]()
		boom := errors.New("boom")
		var calls atomic.Int32
		fetch := func(context.Context) (string, error) {
			if calls.Add(1) == 1 {
				return "", boom
			}
			return "v", nil
		}

		_, err := c.Get(ctx, "k", fetch)
		assert.ErrorIs(t, err, boom)

		v, err := c.Get(ctx, "k", fetch)
		require.NoError(t, err)
		assert.Equal(t, "v", v)
		assert.Equal(t, int32(2), calls.Load())
	})

	t.Run("clear forces a new fetch", func(t *testing.T) {
		c := newCoalescingCache[string]()
		var calls atomic.Int32
		fetch := func(context.Context) (string, error) {
			calls.Add(1)
			return "v", nil
		}

		_, _ = c.Get(ctx, "k", fetch)
		c.Clear()
		assert.Equal(t, 0, c.Len())
		_, _ = c.Get(ctx, "k", fetch)

		assert.Equal(t, int32(2), calls.Load())
	})
}
