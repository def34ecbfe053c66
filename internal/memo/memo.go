// Package memo provides a per-key memoizing cache that runs each key's
// computation at most once at a time and keeps successful results for the
// life of the process.
package memo

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"sematube/internal/services"
)

// Cache memoizes values by key. The zero value is not usable; call New.
type Cache[K comparable, V any] struct {
	mu     sync.RWMutex
	values map[K]V
	group  singleflight.Group
}

// New returns an empty cache.
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{values: make(map[K]V)}
}

// Do returns the cached value for key or computes it with fn. Concurrent
// callers for the same key join the in-flight computation instead of running
// fn again. The boolean reports whether this caller was served without
// running fn itself.
//
// Errors are shared with joined callers and nothing is stored. When the
// running computation failed only because its caller's context ended, joined
// callers whose own context is still live start a fresh computation.
func (c *Cache[K, V]) Do(ctx context.Context, key K, fn func(context.Context) (V, error)) (V, bool, error) {
	var zero V
	flightKey := fmt.Sprintf("%#v", key)
	for {
		if v, ok := c.Get(key); ok {
			return v, true, nil
		}
		if err := ctx.Err(); err != nil {
			return zero, false, err
		}

		ran := false
		ch := c.group.DoChan(flightKey, func() (any, error) {
			if v, ok := c.Get(key); ok {
				return v, nil
			}
			ran = true
			v, err := fn(ctx)
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
					err = fmt.Errorf("%w: %w", ctxErr, err)
				}
				return nil, err
			}
			c.mu.Lock()
			c.values[key] = v
			c.mu.Unlock()
			return v, nil
		})

		select {
		case <-ctx.Done():
			return zero, false, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				if !ran && services.IsCanceled(res.Err) && ctx.Err() == nil {
					continue
				}
				return zero, false, res.Err
			}
			return res.Val.(V), !ran, nil
		}
	}
}

// Get returns the stored value for key without computing it.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.values[key]
	return v, ok
}

// Len reports the number of stored values.
func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

// Forget drops the stored value for key. An in-flight computation is not
// interrupted and will store its result when it finishes.
func (c *Cache[K, V]) Forget(key K) {
	c.mu.Lock()
	delete(c.values, key)
	c.mu.Unlock()
	c.group.Forget(fmt.Sprintf("%#v", key))
}
