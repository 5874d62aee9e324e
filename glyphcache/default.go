package glyphcache

import (
	"sync"

	"github.com/gogpu/rendertext/fontsrc"
)

var (
	defaultMu    sync.Mutex
	defaultCache *Cache
)

// Default returns the process-wide cache, creating it on first use and
// again after Shutdown.
func Default() *Cache {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultCache == nil {
		defaultCache = New()
	}
	return defaultCache
}

// SetDefault replaces the process-wide cache and returns the previous one,
// which may be nil. The previous cache is not closed.
func SetDefault(c *Cache) *Cache {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultCache
	defaultCache = c
	return prev
}

// Reset empties the process-wide cache if it exists.
func Reset() {
	defaultMu.Lock()
	c := defaultCache
	defaultMu.Unlock()
	if c != nil {
		c.Reset()
	}
}

// EvictFont drops a font's entries from the process-wide cache.
func EvictFont(id fontsrc.FontID) {
	defaultMu.Lock()
	c := defaultCache
	defaultMu.Unlock()
	if c != nil {
		c.EvictFont(id)
	}
}

// Shutdown closes the process-wide cache. A later Default call starts a
// fresh one.
func Shutdown() {
	defaultMu.Lock()
	c := defaultCache
	defaultCache = nil
	defaultMu.Unlock()
	if c != nil {
		c.Close()
	}
}
