package local

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache holds loaded models keyed by absolute folder path. Concurrent
// requests for the same path share one load; failed loads are not stored.
type Cache struct {
	group  singleflight.Group
	mu     sync.Mutex
	models map[string]Model

	// generations counts Reload calls per path. A load only stores its
	// result if no Reload happened since it started.
	generations map[string]uint64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{models: map[string]Model{}, generations: map[string]uint64{}}
}

var sharedCache = NewCache()

// SharedCache returns the process-wide cache used by services that were not
// given their own.
func SharedCache() *Cache { return sharedCache }

// LoadFunc loads the model at a path.
type LoadFunc func(ctx context.Context) (Model, error)

// Get returns the cached model for path, calling load at most once across
// concurrent callers. The load runs detached from ctx so that one caller
// giving up does not fail the others; Get itself returns when ctx is done.
func (c *Cache) Get(ctx context.Context, path string, load LoadFunc) (Model, error) {
	if model, ok := c.lookup(path); ok {
		return model, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	result := c.group.DoChan(path, func() (any, error) {
		if model, ok := c.lookup(path); ok {
			return model, nil
		}
		c.mu.Lock()
		generation := c.generations[path]
		c.mu.Unlock()

		slog.Debug("loading local model", "path", path)
		model, err := load(loadCtx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.generations[path] != generation {
			// Evicted mid-load: the waiters still get the model, the cache does not.
			slog.Debug("discarding stale local model", "path", path)
			return model, nil
		}
		c.models[path] = model
		return model, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-result:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(Model), nil
	}
}

// Reload evicts path so the next Get loads it again. A load already in
// flight is not stored when it completes. An evicted model that implements
// io.Closer is closed.
func (c *Cache) Reload(path string) {
	c.mu.Lock()
	model, ok := c.models[path]
	delete(c.models, path)
	c.generations[path]++
	c.mu.Unlock()
	c.group.Forget(path)

	if closer, isCloser := model.(io.Closer); ok && isCloser {
		if err := closer.Close(); err != nil {
			slog.Warn("failed to close local model", "path", path, "error", err.Error())
		}
	}
}

// Len returns the number of loaded models.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.models)
}

func (c *Cache) lookup(path string) (Model, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	model, ok := c.models[path]
	return model, ok
}
