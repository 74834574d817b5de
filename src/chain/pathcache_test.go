package chain

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathCacheGetOrBuildSingleFlight(t *testing.T) {
	c := NewPathCache()
	id := uuid.New()

	var builds atomic.Int32
	var wg sync.WaitGroup

	const n = 20
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			_, err := c.GetOrBuild(id, func() (PricePath, error) {
				builds.Add(1)
				return PricePath{1, 2, 3}, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), builds.Load())
}

func TestPathCacheInvalidate(t *testing.T) {
	c := NewPathCache()
	id := uuid.New()

	path, err := c.GetOrBuild(id, func() (PricePath, error) { return PricePath{1}, nil })
	require.NoError(t, err)
	assert.Equal(t, PricePath{1}, path)

	c.Invalidate(id)

	var rebuilt bool
	_, err = c.GetOrBuild(id, func() (PricePath, error) {
		rebuilt = true
		return PricePath{2}, nil
	})
	require.NoError(t, err)
	assert.True(t, rebuilt)
}

func TestPathCacheReap(t *testing.T) {
	c := NewPathCache()
	keep := uuid.New()
	drop := uuid.New()

	_, _ = c.GetOrBuild(keep, func() (PricePath, error) { return PricePath{1}, nil })
	_, _ = c.GetOrBuild(drop, func() (PricePath, error) { return PricePath{2}, nil })

	c.Reap(map[uuid.UUID]struct{}{keep: {}})

	var rebuiltDrop bool
	_, _ = c.GetOrBuild(drop, func() (PricePath, error) {
		rebuiltDrop = true
		return PricePath{3}, nil
	})
	assert.True(t, rebuiltDrop)

	var rebuiltKeep bool
	_, _ = c.GetOrBuild(keep, func() (PricePath, error) {
		rebuiltKeep = true
		return PricePath{4}, nil
	})
	assert.False(t, rebuiltKeep)
}

func TestPathCaseBuildErrorNotCached(t *testing.T) {
	c := NewPathCache()
	id := uuid.New()

	_, err := c.GetOrBuild(id, func() (PricePath, error) {
		return nil, NewError(KindNumericUnderflow, "boom")
	})
	require.Error(t, err)

	var called bool
	_, err = c.GetOrBuild(id, func() (PricePath, error) {
		called = true
		return PricePath{1}, nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}
