// Package cache memoizes expensive results across a hot LRU tier, a
// secondary expiring tier and a persisted tier.
package cache

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"codefacts/internal/config"
	"codefacts/internal/errors"
	"codefacts/internal/slogutil"
)

// Options configures a Cache. Zero sizes and TTLs take the defaults.
type Options struct {
	HotSize       int
	HotTTL        time.Duration
	SecondarySize int
	SecondaryTTL  time.Duration
	// Persistent is the third tier; nil disables it
	Persistent    Store
	PersistentTTL time.Duration
	// Now is the clock used for expiry checks
	Now    func() time.Time
	Logger *slog.Logger
}

// Stats counts lookups per tier
type Stats struct {
	HotHits        int64 `json:"hotHits"`
	SecondaryHits  int64 `json:"secondaryHits"`
	PersistentHits int64 `json:"persistentHits"`
	Misses         int64 `json:"misses"`
	Sets           int64 `json:"sets"`
	HotSize        int   `json:"hotSize"`
	SecondarySize  int   `json:"secondarySize"`
	PersistentSize int   `json:"persistentSize"`
}

// Cache is safe for concurrent use. A nil *Cache is a valid, always-missing cache.
type Cache struct {
	hot       *lru.Cache[string, *Entry]
	secondary *expirable.LRU[string, *Entry]
	store     Store

	hotTTL        time.Duration
	secondaryTTL  time.Duration
	persistentTTL time.Duration

	now     func() time.Time
	logger  *slog.Logger
	locks   *keyLocks
	pending pendingWrites

	hotHits, secondaryHits, persistentHits, misses, sets atomic.Int64
}

// New creates a cache
func New(opts Options) (*Cache, error) {
	if opts.HotSize <= 0 {
		opts.HotSize = 100
	}
	if opts.HotTTL <= 0 {
		opts.HotTTL = 30 * time.Minute
	}
	if opts.SecondarySize <= 0 {
		opts.SecondarySize = 500
	}
	if opts.SecondaryTTL <= 0 {
		opts.SecondaryTTL = time.Hour
	}
	if opts.PersistentTTL <= 0 {
		opts.PersistentTTL = 24 * time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	hot, err := lru.New[string, *Entry](opts.HotSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create hot tier: %w", err)
	}

	return &Cache{
		hot:           hot,
		secondary:     expirable.NewLRU[string, *Entry](opts.SecondarySize, nil, opts.SecondaryTTL),
		store:         opts.Persistent,
		hotTTL:        opts.HotTTL,
		secondaryTTL:  opts.SecondaryTTL,
		persistentTTL: opts.PersistentTTL,
		now:           opts.Now,
		logger:        slogutil.OrDiscard(opts.Logger),
		locks:         newKeyLocks(),
	}, nil
}

// NewFromConfig builds the cache described by cfg. Relative persistent
// directories are taken against baseDir. It returns nil when caching is disabled.
func NewFromConfig(cfg *config.Config, baseDir string, logger *slog.Logger) (*Cache, error) {
	cc := cfg.Cache
	if !cc.Enabled {
		return nil, nil
	}

	opts := Options{
		HotSize:       cc.Hot.MaxEntries,
		HotTTL:        cc.Hot.TTL(),
		SecondarySize: cc.Secondary.MaxEntries,
		SecondaryTTL:  cc.Secondary.TTL(),
		PersistentTTL: cc.Persistent.TTL(),
		Logger:        logger,
	}

	if cc.Persistent.Enabled {
		dir := cc.Persistent.Dir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(baseDir, dir)
		}
		var err error
		switch cc.Persistent.Backend {
		case "sqlite":
			opts.Persistent, err = OpenSQLiteStore(filepath.Join(dir, "cache.db"), cc.Persistent.MaxEntries)
		default:
			opts.Persistent, err = NewFileStore(dir, cc.Persistent.MaxEntries)
		}
		if err != nil {
			return nil, errors.New(errors.CacheWriteFailed, "failed to open persistent cache", err).WithPath(dir)
		}
	}
	return New(opts)
}

// Get unmarshals the cached value for key into dst and reports whether it was found
func (c *Cache) Get(key any, dst any) bool {
	if c == nil {
		return false
	}
	hash, _, err := HashKey(key)
	if err != nil {
		return false
	}
	unlock := c.locks.lock(hash)
	defer unlock()

	e, ok := c.lookup(hash)
	if !ok {
		return false
	}
	if err := json.Unmarshal(e.Value, dst); err != nil {
		c.logger.Warn("discarding undecodable cache entry", "hash", hash, "error", err)
		c.remove(hash)
		return false
	}
	return true
}

// GetRaw returns the serialized value for key
func (c *Cache) GetRaw(key any) (json.RawMessage, bool) {
	if c == nil {
		return nil, false
	}
	hash, _, err := HashKey(key)
	if err != nil {
		return nil, false
	}
	unlock := c.locks.lock(hash)
	defer unlock()

	e, ok := c.lookup(hash)
	if !ok {
		return nil, false
	}
	return e.Value, true
}

// Set stores value under key. A zero ttl uses each tier's own TTL.
// Tier 3 is written in the background; see Flush.
func (c *Cache) Set(key any, value any, ttl time.Duration) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn("value not cacheable", "error", err)
		return
	}
	hash, canonical, err := HashKey(key)
	if err != nil {
		c.logger.Warn("key not cacheable", "error", err)
		return
	}

	unlock := c.locks.lock(hash)
	defer unlock()
	c.store3(c.put(hash, canonical, raw, ttl))
}

// Has reports whether a live entry exists for key, without promoting it
func (c *Cache) Has(key any) bool {
	if c == nil {
		return false
	}
	hash, _, err := HashKey(key)
	if err != nil {
		return false
	}
	unlock := c.locks.lock(hash)
	defer unlock()

	now := c.now()
	if e, ok := c.hot.Peek(hash); ok && !e.Expired(now) {
		return true
	}
	if e, ok := c.secondary.Peek(hash); ok && !e.Expired(now) {
		return true
	}
	if c.store != nil {
		c.pending.wait()
		if e, ok, err := c.store.Get(hash); err == nil && ok && !e.Expired(now) {
			return true
		}
	}
	return false
}

// Delete removes key from every tier
func (c *Cache) Delete(key any) {
	if c == nil {
		return
	}
	hash, _, err := HashKey(key)
	if err != nil {
		return
	}
	unlock := c.locks.lock(hash)
	defer unlock()
	c.remove(hash)
}

// Invalidate removes every entry whose hash or logical key matches pattern
// and returns the number of distinct entries removed
func (c *Cache) Invalidate(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, errors.New(errors.InvalidPattern, "invalid invalidation pattern", err).With("pattern", pattern)
	}
	if c == nil {
		return 0, nil
	}
	c.Flush()

	matched := make(map[string]bool)
	match := func(e *Entry) {
		if re.MatchString(e.Hash) || re.MatchString(e.Key) {
			matched[e.Hash] = true
		}
	}
	for _, h := range c.hot.Keys() {
		if e, ok := c.hot.Peek(h); ok {
			match(e)
		}
	}
	for _, h := range c.secondary.Keys() {
		if e, ok := c.secondary.Peek(h); ok {
			match(e)
		}
	}
	if c.store != nil {
		keys, err := c.store.Keys()
		if err != nil {
			c.logger.Warn("persistent tier unreadable during invalidate",
				"error", errors.New(errors.CacheReadFailed, "list keys", err))
		}
		for _, k := range keys {
			if re.MatchString(k.Hash) || re.MatchString(k.Key) {
				matched[k.Hash] = true
			}
		}
	}

	for hash := range matched {
		unlock := c.locks.lock(hash)
		c.remove(hash)
		unlock()
	}
	return len(matched), nil
}

// Clear drops every entry from every tier
func (c *Cache) Clear() {
	if c == nil {
		return
	}
	c.Flush()
	c.hot.Purge()
	c.secondary.Purge()
	if c.store != nil {
		if err := c.store.Clear(); err != nil {
			c.logger.Warn("failed to clear persistent tier", "error", errors.New(errors.CacheWriteFailed, "clear", err))
		}
	}
}

// Size returns the largest entry count across tiers
func (c *Cache) Size() int {
	if c == nil {
		return 0
	}
	n := c.hot.Len()
	if m := c.secondary.Len(); m > n {
		n = m
	}
	if c.store != nil {
		c.Flush()
		if m, err := c.store.Len(); err == nil && m > n {
			n = m
		}
	}
	return n
}

// Stats returns hit and miss counters with current tier sizes
func (c *Cache) Stats() Stats {
	if c == nil {
		return Stats{}
	}
	s := Stats{
		HotHits:        c.hotHits.Load(),
		SecondaryHits:  c.secondaryHits.Load(),
		PersistentHits: c.persistentHits.Load(),
		Misses:         c.misses.Load(),
		Sets:           c.sets.Load(),
		HotSize:        c.hot.Len(),
		SecondarySize:  c.secondary.Len(),
	}
	if c.store != nil {
		c.Flush()
		s.PersistentSize, _ = c.store.Len()
	}
	return s
}

// Flush blocks until pending tier-3 writes finish
func (c *Cache) Flush() {
	if c == nil {
		return
	}
	c.pending.wait()
}

// Close flushes and releases the persisted tier
func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	c.Flush()
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

// lookup walks the tiers in order, promoting hits. Caller holds the key lock.
func (c *Cache) lookup(hash string) (*Entry, bool) {
	now := c.now()

	if e, ok := c.hot.Get(hash); ok {
		if !e.Expired(now) {
			e.AccessCount++
			c.hotHits.Add(1)
			return e, true
		}
		c.hot.Remove(hash)
	}

	if e, ok := c.secondary.Get(hash); ok {
		if !e.Expired(now) {
			e.AccessCount++
			c.secondaryHits.Add(1)
			c.hot.Add(hash, c.promoted(e, c.hotTTL, now))
			return e, true
		}
		c.secondary.Remove(hash)
	}

	if c.store != nil {
		e, ok, err := c.store.Get(hash)
		switch {
		case err != nil:
			c.logger.Warn("persistent tier read failed",
				"hash", hash,
				"error", errors.New(errors.CacheReadFailed, "read entry", err))
		case ok && e.Expired(now):
			if err := c.store.Delete(hash); err != nil {
				c.logger.Debug("failed to delete expired entry", "hash", hash, "error", err)
			}
		case ok:
			e.AccessCount++
			c.persistentHits.Add(1)
			c.secondary.Add(hash, c.promoted(e, c.secondaryTTL, now))
			c.hot.Add(hash, c.promoted(e, c.hotTTL, now))
			return e, true
		}
	}

	c.misses.Add(1)
	return nil, false
}

// promoted copies e into a faster tier. The copy keeps the original creation
// time but never outlives the source entry.
func (c *Cache) promoted(e *Entry, tierTTL time.Duration, now time.Time) *Entry {
	remaining := e.CreatedAt.Add(e.TTL).Sub(now)
	cp := e.withTTL(tierTTL)
	cp.CreatedAt = now
	if remaining < tierTTL {
		cp.TTL = remaining
	}
	return cp
}

// put writes tiers 1 and 2 and returns the entry destined for tier 3
func (c *Cache) put(hash, canonical string, raw []byte, ttl time.Duration) *Entry {
	now := c.now()
	base := &Entry{
		Hash:      hash,
		Key:       canonical,
		Value:     raw,
		CreatedAt: now,
		Size:      len(raw),
	}

	hotTTL, secondaryTTL, persistentTTL := c.hotTTL, c.secondaryTTL, c.persistentTTL
	if ttl > 0 {
		hotTTL, secondaryTTL, persistentTTL = ttl, ttl, ttl
	}
	c.hot.Add(hash, base.withTTL(hotTTL))
	c.secondary.Add(hash, base.withTTL(secondaryTTL))
	c.sets.Add(1)
	return base.withTTL(persistentTTL)
}

func (c *Cache) store3(e *Entry) {
	if c.store == nil {
		return
	}
	c.pending.add()
	go func() {
		defer c.pending.done()
		if err := c.store.Put(e); err != nil {
			c.logger.Warn("persistent tier write failed",
				"hash", e.Hash,
				"error", errors.New(errors.CacheWriteFailed, "write entry", err))
		}
	}()
}

// pendingWrites counts in-flight tier-3 writes. Unlike sync.WaitGroup, add may
// run while another goroutine is blocked in wait.
type pendingWrites struct {
	mu   sync.Mutex
	cond *sync.Cond
	n    int
}

func (p *pendingWrites) add() {
	p.mu.Lock()
	p.n++
	p.mu.Unlock()
}

func (p *pendingWrites) done() {
	p.mu.Lock()
	p.n--
	if p.n == 0 && p.cond != nil {
		p.cond.Broadcast()
	}
	p.mu.Unlock()
}

func (p *pendingWrites) wait() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cond == nil {
		p.cond = sync.NewCond(&p.mu)
	}
	for p.n > 0 {
		p.cond.Wait()
	}
}

func (p *pendingWrites) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.n
}

func (c *Cache) remove(hash string) {
	c.hot.Remove(hash)
	c.secondary.Remove(hash)
	if c.store != nil {
		c.pending.wait()
		if err := c.store.Delete(hash); err != nil {
			c.logger.Debug("failed to delete entry", "hash", hash, "error", err)
		}
	}
}
