package visibility

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/patrolgraph/pkg/bitmap"
	"github.com/matzehuels/patrolgraph/pkg/cache"
	perrors "github.com/matzehuels/patrolgraph/pkg/errors"
	"github.com/matzehuels/patrolgraph/pkg/observability"
)

const keyType = "visibility"

var (
	// ErrCacheCorruption is returned when a key recorded by this Cache no
	// longer has a readable entry in the backend.
	ErrCacheCorruption = perrors.New(perrors.ErrCodeCacheCorruption, "visibility cache entry missing or unreadable")

	// ErrCacheClosed is returned by Get after Close.
	ErrCacheClosed = perrors.New(perrors.ErrCodeCacheUnavailable, "visibility cache is closed")
)

// CacheOptions configures a Cache.
type CacheOptions struct {
	// Keyer derives backend keys. Defaults to cache.NewDefaultKeyer().
	Keyer cache.Keyer
	// Logger receives debug output. Defaults to a discarding logger.
	Logger *log.Logger
	// ReuseExisting looks up entries written by earlier processes instead
	// of invalidating them on the first miss.
	ReuseExisting bool
	// TTL is passed to the backend on writes. Defaults to cache.TTLVisibility.
	TTL time.Duration
}

// CacheStats counts lookups served by a Cache.
type CacheStats struct {
	Hits   int64
	Misses int64
}

// Cache memoizes Compute results in a cache.Cache backend.
//
// The first miss of a Cache invalidates the backend entries its keyer can
// produce (see cache.Invalidate) unless ReuseExisting is set. Entries of
// other namespaces survive on backends with prefix support. Every key
// computed afterwards
// is recorded in an in-memory index; if a recorded entry later vanishes
// from the backend, Get fails with ErrCacheCorruption.
//
// A Cache is safe for concurrent use.
type Cache struct {
	backend cache.Cache
	keyer   cache.Keyer
	logger  *log.Logger
	reuse   bool
	ttl     time.Duration

	mu      sync.Mutex
	index   map[string]string // key -> backend location
	cleared bool
	closed  bool

	group  singleflight.Group
	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache wraps backend. The Cache takes ownership of backend and closes
// it in Close.
func NewCache(backend cache.Cache, opts CacheOptions) *Cache {
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.TTL == 0 {
		opts.TTL = cache.TTLVisibility
	}
	return &Cache{
		backend: backend,
		keyer:   opts.Keyer,
		logger:  opts.Logger,
		reuse:   opts.ReuseExisting,
		ttl:     opts.TTL,
		index:   make(map[string]string),
	}
}

type lookup struct {
	m   *Map
	hit bool
}

// Get returns the visibility map of walls for opts, computing and storing it
// on a miss. The boolean reports whether the result came from the backend.
func (c *Cache) Get(ctx context.Context, walls *bitmap.Bitmap, opts Options) (*Map, bool, error) {
	if err := opts.Validate(); err != nil {
		return nil, false, err
	}
	opts = opts.withDefaults()
	key := c.keyer.VisibilityKey(walls.Hash(), cache.VisibilityKeyOpts{
		MaxDistance: opts.MaxDistance,
		Algorithm:   string(opts.Algorithm),
	})

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, false, ErrCacheClosed
	}
	loc, ok := c.index[key]
	c.mu.Unlock()
	if ok {
		m, err := c.load(ctx, key, loc)
		if err != nil {
			return nil, false, err
		}
		return m, true, nil
	}

	v, err, shared := c.group.Do(key, func() (any, error) {
		return c.miss(ctx, key, walls, opts)
	})
	if err != nil {
		return nil, false, err
	}
	if shared {
		c.logger.Debug("visibility computation shared", "key", key)
	}
	res := v.(lookup)
	return res.m, res.hit, nil
}

// load reads a recorded entry. Missing or undecodable data is corruption.
func (c *Cache) load(ctx context.Context, key, loc string) (*Map, error) {
	data, hit, err := c.backend.Get(ctx, loc)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeCacheUnavailable, err, "read visibility entry")
	}
	if !hit {
		c.logger.Error("recorded visibility entry missing", "key", key, "location", loc)
		return nil, fmt.Errorf("key %s: %w", key, ErrCacheCorruption)
	}
	m, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("key %s: %w (%v)", key, ErrCacheCorruption, err)
	}
	c.hits.Add(1)
	observability.Cache().OnCacheHit(ctx, keyType)
	return m, nil
}

func (c *Cache) miss(ctx context.Context, key string, walls *bitmap.Bitmap, opts Options) (lookup, error) {
	// Another flight may have finished between the index check and now.
	c.mu.Lock()
	loc, ok := c.index[key]
	c.mu.Unlock()
	if ok {
		m, err := c.load(ctx, key, loc)
		return lookup{m, true}, err
	}

	if c.reuse {
		if data, hit, err := c.backend.Get(ctx, key); err == nil && hit {
			if m, err := Decode(data); err == nil {
				c.record(key)
				c.hits.Add(1)
				observability.Cache().OnCacheHit(ctx, keyType)
				c.logger.Debug("visibility entry reused", "key", key)
				return lookup{m, true}, nil
			}
			c.logger.Warn("discarding undecodable visibility entry", "key", key)
		}
	} else if err := c.clearOnce(ctx); err != nil {
		return lookup{}, err
	}

	c.misses.Add(1)
	observability.Cache().OnCacheMiss(ctx, keyType)

	start := time.Now()
	m, err := Compute(ctx, walls, opts)
	if err != nil {
		return lookup{}, err
	}
	data, err := Encode(m)
	if err != nil {
		return lookup{}, err
	}
	if err := c.backend.Set(ctx, key, data, c.ttl); err != nil {
		return lookup{}, perrors.Wrap(perrors.ErrCodeCacheUnavailable, err, "store visibility entry")
	}
	observability.Cache().OnCacheSet(ctx, keyType, len(data))
	c.record(key)
	c.logger.Debug("visibility computed",
		"tiles", m.Len(), "bytes", len(data), "duration", time.Since(start))
	return lookup{m, false}, nil
}

func (c *Cache) record(key string) {
	c.mu.Lock()
	c.index[key] = key
	c.mu.Unlock()
}

// Invalidate drops the entries written by earlier processes under this
// Cache's keyer, including graph entries, unless ReuseExisting is set. Only
// the first call (or first miss) has an effect. Callers storing their own
// results in the backend invalidate before their first lookup.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c.reuse {
		return nil
	}
	return c.clearOnce(ctx)
}

// clearOnce drops stale backend entries before the first write of this
// process. The lock is held while clearing so no entry can be recorded
// before the clear completes.
func (c *Cache) clearOnce(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cleared {
		return nil
	}
	if c.closed {
		return ErrCacheClosed
	}
	if err := cache.Invalidate(ctx, c.backend, c.keyer); err != nil {
		return perrors.Wrap(perrors.ErrCodeCacheUnavailable, err, "clear stale cache entries")
	}
	c.logger.Debug("cleared stale cache entries", "prefixes", c.keyer.Prefixes())
	c.cleared = true
	return nil
}

// Stats returns hit and miss counts since construction.
func (c *Cache) Stats() CacheStats {
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Close closes the backend. Further calls to Get fail with ErrCacheClosed.
func (c *Cache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.backend.Close()
}
