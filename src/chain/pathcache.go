package chain

import (
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// PricePath is a finite, ordered, indexable sequence of strictly
// positive prices; index 0 is the initial spot. Length is always
// total_steps+1 once built.
type PricePath []float64

// PathCache maps a session id to its deterministic price path. It owns
// each path exclusively; Session never holds a reference to one
// (DESIGN NOTES: "avoid cyclic ownership between Session and
// PathCache"). Builds are single-flighted per id via
// golang.org/x/sync/singleflight — promoted here from the teacher's
// indirect dependency graph to do properly what
// backtester-api/models/request_cache.go hand-rolls with a per-entry
// *sync.Mutex: at most one builder runs per key, concurrent readers of
// an already-built path never block.
type PathCache struct {
	mu     sync.RWMutex
	paths  map[uuid.UUID]PricePath
	flight singleflight.Group
}

func NewPathCache() *PathCache {
	return &PathCache{
		paths: make(map[uuid.UUID]PricePath),
	}
}

// GetOrBuild returns the cached path for id, building it via build if
// absent. Concurrent callers for the same id share one build.
func (c *PathCache) GetOrBuild(id uuid.UUID, build func() (PricePath, error)) (PricePath, error) {
	c.mu.RLock()
	if p, ok := c.paths[id]; ok {
		c.mu.RUnlock()
		return p, nil
	}
	c.mu.RUnlock()

	v, err, _ := c.flight.Do(id.String(), func() (interface{}, error) {
		// Re-check: another goroutine may have populated the cache
		// between the RUnlock above and singleflight granting us the
		// leader slot.
		c.mu.RLock()
		if p, ok := c.paths[id]; ok {
			c.mu.RUnlock()
			return p, nil
		}
		c.mu.RUnlock()

		path, err := build()
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.paths[id] = path
		c.mu.Unlock()

		return path, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(PricePath), nil
}

// Invalidate drops the cached path for id. Called on session deletion,
// on a PATCH that changes a path-relevant parameter, and always on
// PUT. Forget makes later GetOrBuild calls for id start a fresh build
// instead of joining one already in flight; it does not discard the
// result of a build already in flight, which still stores its path when
// it finishes. SessionManager never runs Invalidate and a build for the
// same id at once, since both happen under that id's keyMutex lock.
func (c *PathCache) Invalidate(id uuid.UUID) {
	c.mu.Lock()
	delete(c.paths, id)
	c.mu.Unlock()

	c.flight.Forget(id.String())
}

// Reap drops every cached entry whose id is not in active.
func (c *PathCache) Reap(active map[uuid.UUID]struct{}) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id := range c.paths {
		if _, ok := active[id]; !ok {
			delete(c.paths, id)
		}
	}
}
