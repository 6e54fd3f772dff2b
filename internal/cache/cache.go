// Package cache memoizes extraction results keyed by request text and
// platform.
package cache

import (
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	// DefaultTTL is how long an entry stays valid.
	DefaultTTL = time.Hour
	// DefaultMaxEntries bounds the number of live entries.
	DefaultMaxEntries = 256
)

// Key identifies a cached value.
type Key struct {
	Request  string
	Platform string
}

func (k Key) String() string {
	return k.Platform + "\x00" + k.Request
}

// Entry is a stored value with its insertion time.
type Entry[V any] struct {
	Key        Key
	Value      V
	InsertedAt time.Time
	TTL        time.Duration
}

// Valid reports whether the entry is still fresh at now.
func (e Entry[V]) Valid(now time.Time) bool {
	return now.Sub(e.InsertedAt) < e.TTL
}

// Options configures a Cache.
type Options struct {
	TTL        time.Duration `mapstructure:"ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// Stats is a point-in-time view of the cache counters.
type Stats struct {
	Size      int     `json:"size"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	HitRate   float64 `json:"hit_rate"`
	Evictions uint64  `json:"evictions"`
}

// Cache is a bounded TTL cache. Reads run concurrently; inserts and
// evictions are serialized.
type Cache[V any] struct {
	items *gocache.Cache
	opts  Options
	now   func() time.Time

	writeMu   sync.Mutex
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// New creates a cache. Zero options take the defaults.
func New[V any](opts Options) *Cache[V] {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	c := &Cache[V]{
		items: gocache.New(opts.TTL, opts.TTL/2),
		opts:  opts,
		now:   time.Now,
	}
	c.items.OnEvicted(func(string, interface{}) {
		c.evictions.Add(1)
	})
	return c
}

// Get returns the value for key if a valid entry exists.
func (c *Cache[V]) Get(key Key) (V, bool) {
	var zero V
	obj, found := c.items.Get(key.String())
	if !found {
		c.misses.Add(1)
		return zero, false
	}
	entry := obj.(Entry[V])
	if !entry.Valid(c.now()) {
		c.misses.Add(1)
		return zero, false
	}
	c.hits.Add(1)
	return entry.Value, true
}

// Put stores value under key, evicting the oldest entries when the cache is
// full.
func (c *Cache[V]) Put(key Key, value V) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	k := key.String()
	if _, exists := c.items.Get(k); !exists {
		c.items.DeleteExpired()
		for c.items.ItemCount() >= c.opts.MaxEntries {
			if !c.evictOldest() {
				break
			}
		}
	}
	c.items.Set(k, Entry[V]{Key: key, Value: value, InsertedAt: c.now(), TTL: c.opts.TTL}, c.opts.TTL)
}

func (c *Cache[V]) evictOldest() bool {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for k, item := range c.items.Items() {
		entry := item.Object.(Entry[V])
		if !found || entry.InsertedAt.Before(oldestAt) {
			oldestKey, oldestAt, found = k, entry.InsertedAt, true
		}
	}
	if found {
		c.items.Delete(oldestKey)
	}
	return found
}

// Entries returns the live entries.
func (c *Cache[V]) Entries() []Entry[V] {
	now := c.now()
	var out []Entry[V]
	for _, item := range c.items.Items() {
		if entry := item.Object.(Entry[V]); entry.Valid(now) {
			out = append(out, entry)
		}
	}
	return out
}

// Clear drops every entry. Counters are kept.
func (c *Cache[V]) Clear() {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.items.Flush()
}

// Stats returns the current counters.
func (c *Cache[V]) Stats() Stats {
	s := Stats{
		Size:      c.items.ItemCount(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
	if total := s.Hits + s.Misses; total > 0 {
		s.HitRate = float64(s.Hits) / float64(total)
	}
	return s
}
