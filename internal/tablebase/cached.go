package tablebase

import (
	"context"
	"sync"

	"github.com/hailam/guppy/internal/board"
	"github.com/rs/zerolog"
)

// DefaultCacheSize is the number of positions the cache holds in memory.
const DefaultCacheSize = 100000

// Store persists probe results. *storage.Store satisfies it.
type Store interface {
	PutProbe(fen string, v any) error
	Probe(fen string, v any) (bool, error)
}

// Cached wraps another prober with an in-memory cache and, optionally, a
// persistent store. Failed probes are not cached.
type Cached struct {
	inner   Prober
	store   Store
	log     zerolog.Logger
	mu      sync.RWMutex
	cache   map[string]Result
	maxSize int
	hits    uint64
	misses  uint64
}

// NewCached creates a cached prober wrapping inner. store may be nil.
func NewCached(inner Prober, store Store, cacheSize int, log zerolog.Logger) *Cached {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Cached{
		inner:   inner,
		store:   store,
		log:     log,
		cache:   make(map[string]Result),
		maxSize: cacheSize,
	}
}

// Probe answers from the cache, then the store, then the inner prober.
func (c *Cached) Probe(ctx context.Context, b *board.Board) (Result, error) {
	fen := b.FEN()

	c.mu.RLock()
	r, ok := c.cache[fen]
	c.mu.RUnlock()
	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		return r, nil
	}

	if c.store != nil {
		found, err := c.store.Probe(fen, &r)
		if err != nil {
			c.log.Warn().Err(err).Str("fen", fen).Msg("stored probe unreadable")
		}
		if found && err == nil {
			c.remember(fen, r, true)
			return r, nil
		}
	}

	r, err := c.inner.Probe(ctx, b)
	if err != nil {
		return Result{}, err
	}
	c.remember(fen, r, false)
	if c.store != nil {
		if err := c.store.PutProbe(fen, r); err != nil {
			c.log.Warn().Err(err).Str("fen", fen).Msg("cannot store probe")
		}
	}
	return r, nil
}

func (c *Cached) remember(fen string, r Result, hit bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if hit {
		c.hits++
	} else {
		c.misses++
	}
	if len(c.cache) >= c.maxSize {
		// Simple eviction: clear half the cache
		i := 0
		for k := range c.cache {
			if i >= c.maxSize/2 {
				break
			}
			delete(c.cache, k)
			i++
		}
	}
	c.cache[fen] = r
}

// MaxPieces returns the maximum number of pieces supported.
func (c *Cached) MaxPieces() int {
	return c.inner.MaxPieces()
}

// HitRate returns the cache hit rate as a percentage.
func (c *Cached) HitRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := c.hits + c.misses
	if total == 0 {
		return 0
	}
	return float64(c.hits) / float64(total) * 100
}

// CacheSize returns the current number of cached entries.
func (c *Cached) CacheSize() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}

// Clear clears the in-memory cache.
func (c *Cached) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]Result)
	c.hits = 0
	c.misses = 0
}
