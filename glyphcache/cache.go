// Package glyphcache memoizes glyph bitmaps under a byte budget.
//
// A Cache rasterizes each key at most once at a time: concurrent misses on
// one key wait for the first caller. Entries are handed out as Handles that
// pin them against eviction until released. Bitmaps reachable from a Handle
// are shared and must not be modified.
package glyphcache

import (
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gogpu/rendertext/fontsrc"
	"github.com/gogpu/rendertext/internal/logging"
	"github.com/gogpu/rendertext/raster"
)

// DefaultBudget is the byte budget of caches created without WithBudget.
const DefaultBudget = 32 << 20

// entryOverhead approximates the bookkeeping cost of an entry.
const entryOverhead = 96

var (
	// ErrCorruptEntry marks an entry that failed verification. It is
	// logged and the entry recreated, never returned to callers.
	ErrCorruptEntry = errors.New("glyphcache: corrupt entry")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("glyphcache: closed")
)

// CreateFunc produces the bitmap for a missing key.
type CreateFunc func() (*raster.Bitmap, error)

type entry struct {
	key  Key
	bm   *raster.Bitmap
	sum  uint32
	size int64
	pins int
	// dead entries are no longer in the map; they live until unpinned.
	dead bool

	prev, next *entry
}

type call struct {
	done chan struct{}
	e    *entry
	err  error
}

// Stats is a snapshot of cache activity.
type Stats struct {
	Hits        uint64
	Misses      uint64
	Creations   uint64
	Evictions   uint64
	Corruptions uint64
	Entries     int
	Bytes       int64
	Budget      int64
}

// HitRate returns hits over lookups, 0 when there were none.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Cache is a bounded glyph bitmap cache. It is safe for concurrent use.
type Cache struct {
	mu        sync.Mutex
	entries   map[Key]*entry
	inflight  map[Key]*call
	lru       lruList
	budget    int64
	bytes     int64
	gen       uint64
	closed    bool
	checksums bool

	hits        atomic.Uint64
	misses      atomic.Uint64
	creations   atomic.Uint64
	evictions   atomic.Uint64
	corruptions atomic.Uint64
}

func (c *Cache) logger() *slog.Logger { return logging.Component("glyphcache") }

// Option configures a Cache.
type Option func(*Cache)

// WithBudget sets the byte budget. Non-positive values keep the default.
func WithBudget(bytes int64) Option {
	return func(c *Cache) {
		if bytes > 0 {
			c.budget = bytes
		}
	}
}

// WithChecksums stores a CRC-32 of every bitmap and verifies it on each hit.
func WithChecksums() Option {
	return func(c *Cache) { c.checksums = true }
}

// New returns an empty cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		entries:  make(map[Key]*entry),
		inflight: make(map[Key]*call),
		budget:   DefaultBudget,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrCreate returns a pinned handle for key, calling create on a miss.
// Concurrent callers missing the same key share one create call and its
// error. Errors are not cached.
func (c *Cache) GetOrCreate(key Key, create CreateFunc) (*Handle, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}

	if e, ok := c.entries[key]; ok {
		if err := c.verify(e); err != nil {
			c.corruptions.Add(1)
			c.logger().Error("discarding cache entry", "key", key.String(), "err", err)
			c.remove(e)
		} else {
			e.pins++
			c.lru.moveToFront(e)
			c.mu.Unlock()
			c.hits.Add(1)
			return c.handle(e), nil
		}
	}

	if cl, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		<-cl.done
		if cl.err != nil {
			return nil, cl.err
		}
		c.mu.Lock()
		cl.e.pins++
		if !cl.e.dead {
			c.lru.moveToFront(cl.e)
		}
		c.mu.Unlock()
		c.hits.Add(1)
		return c.handle(cl.e), nil
	}

	cl := &call{done: make(chan struct{})}
	c.inflight[key] = cl
	gen := c.gen
	c.mu.Unlock()
	c.misses.Add(1)

	bm, err := run(create)
	if err == nil {
		err = bm.Validate()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, key)
	if err != nil {
		cl.err = err
		close(cl.done)
		return nil, err
	}

	e := &entry{key: key, bm: bm, size: int64(bm.Bytes()) + entryOverhead, pins: 1}
	if c.checksums {
		e.sum = crc32.ChecksumIEEE(bm.Pix)
	}
	c.creations.Add(1)
	if gen == c.gen && !c.closed {
		c.insert(e)
	} else {
		e.dead = true
	}
	cl.e = e
	close(cl.done)
	return c.handle(e), nil
}

// run calls create, turning a panic into an error so waiters are released.
func run(create CreateFunc) (bm *raster.Bitmap, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("glyphcache: create panicked: %v", r)
		}
	}()
	bm, err = create()
	if err == nil && bm == nil {
		err = errors.New("glyphcache: create returned no bitmap")
	}
	return bm, err
}

func (c *Cache) verify(e *entry) error {
	if err := e.bm.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrCorruptEntry, err)
	}
	if c.checksums {
		if sum := crc32.ChecksumIEEE(e.bm.Pix); sum != e.sum {
			return fmt.Errorf("%w: checksum %08x, stored %08x", ErrCorruptEntry, sum, e.sum)
		}
	}
	return nil
}

func (c *Cache) insert(e *entry) {
	c.entries[e.key] = e
	c.lru.pushFront(e)
	c.bytes += e.size
	c.evict()
}

func (c *Cache) remove(e *entry) {
	if e.dead {
		return
	}
	delete(c.entries, e.key)
	c.lru.remove(e)
	c.bytes -= e.size
	e.dead = true
}

// evict drops unpinned entries from the cold end until the cache fits its
// budget. Pinned entries may keep it over budget until they are released.
func (c *Cache) evict() {
	for e := c.lru.tail; e != nil && c.bytes > c.budget; {
		prev := e.prev
		if e.pins == 0 {
			c.remove(e)
			c.evictions.Add(1)
			c.logger().Debug("evicted glyph", "key", e.key.String(), "bytes", e.size)
		}
		e = prev
	}
}

func (c *Cache) release(e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e.pins--
	if e.pins == 0 && !e.dead && c.bytes > c.budget {
		c.evict()
	}
}

// Reset drops every entry. Live handles stay valid. Rasterizations in
// flight complete for their callers but are not cached.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked(func(Key) bool { return true })
}

// EvictFont drops every entry of font, as after the font was reloaded or
// unloaded.
func (c *Cache) EvictFont(font fontsrc.FontID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.dropLocked(func(k Key) bool { return k.Font == font })
	if n > 0 {
		c.logger().Debug("evicted font", "font", font, "entries", n)
	}
}

func (c *Cache) dropLocked(match func(Key) bool) int {
	var n int
	for _, e := range c.entries {
		if match(e.key) {
			c.remove(e)
			n++
		}
	}
	if len(c.entries) == 0 {
		c.lru.clear()
		c.bytes = 0
	}
	c.gen++
	return n
}

// SetBudget changes the byte budget, evicting as needed. Non-positive
// values are ignored.
func (c *Cache) SetBudget(bytes int64) {
	if bytes <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.budget = bytes
	c.evict()
}

// Budget returns the byte budget.
func (c *Cache) Budget() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.budget
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close drops all entries and rejects further lookups. Live handles stay
// valid. Calling Close twice is safe.
func (c *Cache) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dropLocked(func(Key) bool { return true })
	c.closed = true
}

// Stats returns a snapshot of the counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	entries, bytes, budget := len(c.entries), c.bytes, c.budget
	c.mu.Unlock()
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Creations:   c.creations.Load(),
		Evictions:   c.evictions.Load(),
		Corruptions: c.corruptions.Load(),
		Entries:     entries,
		Bytes:       bytes,
		Budget:      budget,
	}
}

// Handle pins a cache entry. Release it when the bitmap is no longer read.
type Handle struct {
	c    *Cache
	e    *entry
	once sync.Once
}

func (c *Cache) handle(e *entry) *Handle {
	return &Handle{c: c, e: e}
}

// Key returns the entry's key.
func (h *Handle) Key() Key { return h.e.key }

// Bitmap returns the shared bitmap. Callers must not modify it.
func (h *Handle) Bitmap() *raster.Bitmap { return h.e.bm }

// Release unpins the entry. Further calls are no-ops.
func (h *Handle) Release() {
	h.once.Do(func() { h.c.release(h.e) })
}
