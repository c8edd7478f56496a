package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Remember returns the cached value for key, or computes it with fn and
// stores it. The value is stored only when fn succeeds. Concurrent callers
// with the same key wait for the first computation instead of repeating it.
// The boolean reports whether the value came from the cache.
func Remember[T any](ctx context.Context, c *Cache, key any, ttl time.Duration, fn func(context.Context) (T, error)) (T, bool, error) {
	if c == nil {
		v, err := fn(ctx)
		return v, false, err
	}

	hash, canonical, err := HashKey(key)
	if err != nil {
		c.logger.Warn("key not cacheable", "error", err)
		v, err := fn(ctx)
		return v, false, err
	}

	unlock := c.locks.lock(hash)
	defer unlock()

	if e, ok := c.lookup(hash); ok {
		var v T
		if err := json.Unmarshal(e.Value, &v); err == nil {
			return v, true, nil
		}
		c.logger.Warn("discarding undecodable cache entry", "hash", hash)
		c.remove(hash)
	}

	v, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	if ctx.Err() != nil {
		return v, false, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("value not cacheable", "error", err)
		return v, false, nil
	}
	c.store3(c.put(hash, canonical, raw, ttl))
	return v, false, nil
}
