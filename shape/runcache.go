package shape

import (
	"container/list"
	"hash/fnv"
	"math"
	"sync"
	"sync/atomic"

	"github.com/go-text/typesetting/language"

	"github.com/gogpu/rendertext/fontsrc"
	"github.com/gogpu/rendertext/segment"
)

const (
	// runShards must be a power of two.
	runShards = 16

	// DefaultRunCapacity is the per-shard entry limit used when none is given.
	DefaultRunCapacity = 256
)

// ContextRunes is how far outside [Start, End) an engine may look. It is
// the context HarfBuzz installs on either side of a run; the run cache keys
// on that many neighbouring runes.
const ContextRunes = 5

// runKey identifies one engine call. The provider itself is part of the key,
// so a reloaded font never hits entries shaped with its old data.
type runKey struct {
	font      fontsrc.Provider
	text      string
	before    string
	after     string
	size      uint64
	direction segment.Direction
	script    language.Script
	lang      language.Language
	hinting   bool
}

type runEntry struct {
	key    runKey
	glyphs []Glyph
}

type runShard struct {
	mu      sync.Mutex
	entries map[runKey]*list.Element
	lru     *list.List
}

// RunCache memoizes engine output for repeated text. It is sharded to keep
// concurrent renders from contending on one lock. Glyph clusters are stored
// relative to the start of the shaped range.
type RunCache struct {
	shards   [runShards]*runShard
	capacity int

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// RunCacheStats is a snapshot of RunCache counters.
type RunCacheStats struct {
	Len       int
	Hits      uint64
	Misses    uint64
	Evictions uint64
}

// NewRunCache returns a cache holding up to capacity entries per shard.
// A capacity <= 0 selects DefaultRunCapacity.
func NewRunCache(capacity int) *RunCache {
	if capacity <= 0 {
		capacity = DefaultRunCapacity
	}
	c := &RunCache{capacity: capacity}
	for i := range c.shards {
		c.shards[i] = &runShard{entries: make(map[runKey]*list.Element), lru: list.New()}
	}
	return c
}

func keyOf(req Request, font fontsrc.Provider) runKey {
	return runKey{
		font:      font,
		text:      string(req.Text[req.Start:req.End]),
		before:    string(req.Text[max(0, req.Start-ContextRunes):req.Start]),
		after:     string(req.Text[req.End:min(len(req.Text), req.End+ContextRunes)]),
		size:      math.Float64bits(req.Size),
		direction: req.Direction,
		script:    req.Script,
		lang:      req.Language,
		hinting:   req.Hinting,
	}
}

func (c *RunCache) shard(k runKey) *runShard {
	h := fnv.New64a()
	_, _ = h.Write([]byte(k.text))
	sum := h.Sum64() ^ uint64(k.font.ID())*0x9E3779B97F4A7C15 ^ k.size
	return c.shards[sum&(runShards-1)]
}

// get returns a copy of the cached glyphs with clusters rebased onto
// req.Start.
func (c *RunCache) get(req Request, font fontsrc.Provider) ([]Glyph, bool) {
	k := keyOf(req, font)
	s := c.shard(k)
	s.mu.Lock()
	el, ok := s.entries[k]
	if !ok {
		s.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	s.lru.MoveToFront(el)
	cached := el.Value.(*runEntry).glyphs
	s.mu.Unlock()

	c.hits.Add(1)
	out := make([]Glyph, len(cached))
	for i, g := range cached {
		g.Cluster += req.Start
		out[i] = g
	}
	return out, true
}

func (c *RunCache) put(req Request, font fontsrc.Provider, glyphs []Glyph) {
	k := keyOf(req, font)
	stored := make([]Glyph, len(glyphs))
	for i, g := range glyphs {
		g.Cluster -= req.Start
		stored[i] = g
	}

	s := c.shard(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.entries[k]; ok {
		el.Value.(*runEntry).glyphs = stored
		s.lru.MoveToFront(el)
		return
	}
	for s.lru.Len() >= c.capacity {
		oldest := s.lru.Back()
		s.lru.Remove(oldest)
		delete(s.entries, oldest.Value.(*runEntry).key)
		c.evictions.Add(1)
	}
	s.entries[k] = s.lru.PushFront(&runEntry{key: k, glyphs: stored})
}

// Clear drops every entry.
func (c *RunCache) Clear() {
	for _, s := range c.shards {
		s.mu.Lock()
		clear(s.entries)
		s.lru.Init()
		s.mu.Unlock()
	}
}

// Len returns the number of entries across all shards.
func (c *RunCache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Stats returns the current counters.
func (c *RunCache) Stats() RunCacheStats {
	return RunCacheStats{
		Len:       c.Len(),
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
