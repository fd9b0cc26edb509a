package atlas

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"

	"github.com/gogpu/ggui/internal/cache"
)

// Key identifies atlas content, such as a sprite name or a glyph.
type Key string

// cacheEntry holds one cached placement. place is the padded outer slot
// owned by the packer; the content rect is place.Rect inset by the padding.
type cacheEntry struct {
	place    Placement
	w, h     int
	seq      uint64
	lastUsed uint64
	node     *cache.Node[Key]
}

// CacheStats holds atlas cache statistics.
type CacheStats struct {
	Entries       int
	Layers        int
	Hits          uint64
	Misses        uint64
	Evictions     uint64
	Repacks       uint64
	Utilization   float64
	Fragmentation float64
}

// Cache maps content keys to atlas placements.
//
// A known key always returns its existing placement without consulting the
// packer. Misses go to the packer; when it reports full, the configured
// Policy decides between evicting, growing and failing.
//
// Cache is not safe for concurrent use. The counters may be read from any
// goroutine through Stats.
type Cache struct {
	cfg     Config
	packer  *Packer
	entries map[Key]*cacheEntry
	lru     *cache.List[Key]
	evicted []Key

	seq        uint64
	stamp      uint64
	frame      uint64
	generation uint64

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
	repacks   atomic.Uint64
}

// NewCache creates an atlas cache.
func NewCache(cfg Config) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Cache{
		cfg:     cfg,
		packer:  NewPacker(cfg.LayerWidth, cfg.LayerHeight, cfg.MaxLayers),
		entries: make(map[Key]*cacheEntry),
		lru:     cache.NewList[Key](),
	}, nil
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.cfg
}

// Packer exposes the underlying packer for inspection.
func (c *Cache) Packer() *Packer {
	return c.packer
}

// BeginFrame starts a new frame. Entries used after this call are not
// evicted by PolicyEvictLRU until the next BeginFrame.
func (c *Cache) BeginFrame() {
	c.frame++
}

// Generation counts full repacks.
func (c *Cache) Generation() uint64 {
	return c.generation
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Contains reports whether key has a placement.
func (c *Cache) Contains(key Key) bool {
	_, ok := c.entries[key]
	return ok
}

// Lookup returns the placement of key without marking it used.
func (c *Cache) Lookup(key Key) (Placement, bool) {
	e, ok := c.entries[key]
	if !ok {
		return Placement{}, false
	}
	return c.content(e), true
}

// GetOrInsert returns the placement of key, inserting a width x height
// entry on a miss. inserted reports that the caller must upload content
// into the returned rect.
func (c *Cache) GetOrInsert(key Key, width, height int) (pl Placement, inserted bool, err error) {
	if e, ok := c.entries[key]; ok {
		c.hits.Add(1)
		e.lastUsed = c.frame
		c.lru.Touch(e.node)
		return c.content(e), false, nil
	}
	c.misses.Add(1)
	if width <= 0 || height <= 0 {
		return Placement{}, false, fmt.Errorf("%w: %dx%d for key %q", ErrInvalidSize, width, height, key)
	}

	outer, err := c.insert(width+2*c.cfg.Padding, height+2*c.cfg.Padding)
	if err != nil {
		return Placement{}, false, err
	}

	c.seq++
	c.stamp++
	outer.Generation = c.stamp
	e := &cacheEntry{
		place:    outer,
		w:        width,
		h:        height,
		seq:      c.seq,
		lastUsed: c.frame,
		node:     c.lru.PushFront(key),
	}
	c.entries[key] = e
	return c.content(e), true, nil
}

// Evict removes key and frees its space. It reports whether key was cached.
func (c *Cache) Evict(key Key) bool {
	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.drop(key, e)
	return true
}

// TakeEvicted returns the keys evicted by the policy since the last call.
func (c *Cache) TakeEvicted() []Key {
	out := c.evicted
	c.evicted = nil
	return out
}

// Keys returns the cached keys in insertion order.
func (c *Cache) Keys() []Key {
	keys := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b Key) int {
		return cmp.Compare(c.entries[a].seq, c.entries[b].seq)
	})
	return keys
}

// Repack clears every layer and re-inserts all live entries, tallest first,
// then by larger area, with insertion order breaking ties. Every surviving entry gets a new
// placement; entries that no longer fit are evicted and returned.
func (c *Cache) Repack() []Key {
	type live struct {
		key Key
		e   *cacheEntry
	}
	all := make([]live, 0, len(c.entries))
	for k, e := range c.entries {
		all = append(all, live{k, e})
	}
	slices.SortFunc(all, func(a, b live) int {
		ah, bh := a.e.place.Rect.Height, b.e.place.Rect.Height
		if ah != bh {
			return cmp.Compare(bh, ah)
		}
		if aa, ba := a.e.place.Rect.Area(), b.e.place.Rect.Area(); aa != ba {
			return cmp.Compare(ba, aa)
		}
		return cmp.Compare(a.e.seq, b.e.seq)
	})

	c.packer.Reset()
	c.generation++
	c.repacks.Add(1)

	var dropped []Key
	for _, it := range all {
		pl, err := c.packer.Insert(it.e.place.Rect.Width, it.e.place.Rect.Height)
		if err != nil {
			c.lru.Remove(it.e.node)
			delete(c.entries, it.key)
			c.evictions.Add(1)
			dropped = append(dropped, it.key)
			continue
		}
		c.stamp++
		pl.Generation = c.stamp
		it.e.place = pl
	}
	return dropped
}

// Reset drops every entry and clears all layers. The generation advances,
// so placements handed out before the reset are stale.
func (c *Cache) Reset() {
	c.packer.Reset()
	clear(c.entries)
	c.lru.Clear()
	c.evicted = nil
	c.generation++
}

// Stats returns a snapshot of the cache statistics.
func (c *Cache) Stats() CacheStats {
	return CacheStats{
		Entries:       len(c.entries),
		Layers:        c.packer.LayerCount(),
		Hits:          c.hits.Load(),
		Misses:        c.misses.Load(),
		Evictions:     c.evictions.Load(),
		Repacks:       c.repacks.Load(),
		Utilization:   c.packer.Utilization(),
		Fragmentation: c.packer.Fragmentation(),
	}
}

func (c *Cache) insert(w, h int) (Placement, error) {
	for {
		pl, err := c.packer.Insert(w, h)
		if err == nil || !errors.Is(err, ErrAtlasFull) {
			return pl, err
		}
		switch c.cfg.Policy {
		case PolicyEvictLRU:
			if !c.evictFitting(w, h) {
				return pl, err
			}
		case PolicyGrowLayer:
			if c.packer.MaxLayers() >= c.cfg.hardMax() {
				return pl, err
			}
			c.packer.SetMaxLayers(c.packer.MaxLayers() + 1)
		default:
			return pl, err
		}
	}
}

// evictFitting evicts the least recently used entry not used this frame
// whose slot can hold w x h. Freed leaves never merge, so evicting a
// smaller entry could not help.
func (c *Cache) evictFitting(w, h int) bool {
	var victim Key
	found := false
	c.lru.WalkBack(func(k Key) bool {
		e := c.entries[k]
		if e.lastUsed == c.frame {
			return true
		}
		if e.place.Rect.Width >= w && e.place.Rect.Height >= h {
			victim, found = k, true
			return false
		}
		return true
	})
	if !found {
		return false
	}
	c.drop(victim, c.entries[victim])
	c.evicted = append(c.evicted, victim)
	return true
}

func (c *Cache) drop(key Key, e *cacheEntry) {
	c.packer.Release(e.place.Node)
	c.lru.Remove(e.node)
	delete(c.entries, key)
	c.evictions.Add(1)
}

func (c *Cache) content(e *cacheEntry) Placement {
	pl := e.place
	pl.Rect = pl.Rect.Inset(c.cfg.Padding)
	return pl
}
