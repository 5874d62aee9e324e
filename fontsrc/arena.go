package fontsrc

import (
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/rendertext/internal/logging"
)

type arenaEntry struct {
	p    Provider
	path string
	refs int
}

// Arena owns loaded fonts and hands out stable FontIDs for them.
//
// Renders hold a read Lease for their whole duration. Reload and the final
// Release of a font take the write lock, so a font never changes or
// disappears under a render in progress. Evict hooks run while the write
// lock is held, which lets caches drop a font's entries before any render
// can observe the new font data.
type Arena struct {
	mu    sync.RWMutex
	fonts map[FontID]*arenaEntry
	paths map[string]FontID
	hooks []*evictHook
}

type evictHook struct{ fn func(FontID) }

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{
		fonts: make(map[FontID]*arenaEntry),
		paths: make(map[string]FontID),
	}
}

var defaultArena = NewArena()

// DefaultArena returns the process-wide arena.
func DefaultArena() *Arena { return defaultArena }

// Open loads the font at path, or a font name resolved by Locate, and
// returns its ID with one reference held. Opening a path that is already
// loaded adds a reference to the existing font.
func (a *Arena) Open(path string) (FontID, error) {
	resolved, err := Locate(path)
	if err != nil {
		return 0, &LoadError{Path: path, Err: err}
	}

	a.mu.Lock()
	if id, ok := a.paths[resolved]; ok {
		a.fonts[id].refs++
		a.mu.Unlock()
		return id, nil
	}
	a.mu.Unlock()

	// Parse outside the lock; renders keep running meanwhile.
	r, err := Load(resolved)
	if err != nil {
		logging.Component("fontsrc").Warn("font load failed", "path", path, "err", err)
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if id, ok := a.paths[resolved]; ok {
		a.fonts[id].refs++
		return id, nil
	}
	a.fonts[r.ID()] = &arenaEntry{p: r, path: resolved, refs: 1}
	a.paths[resolved] = r.ID()
	return r.ID(), nil
}

// OpenData parses in-memory font data and registers it with one reference.
func (a *Arena) OpenData(name string, data []byte) (FontID, error) {
	r, err := Parse(name, data)
	if err != nil {
		return 0, &LoadError{Path: name, Err: err}
	}
	return a.Add(r), nil
}

// Add registers an already constructed provider with one reference.
// Adding a provider whose ID is registered adds a reference instead.
func (a *Arena) Add(p Provider) FontID {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.fonts[p.ID()]; ok {
		e.refs++
		return p.ID()
	}
	a.fonts[p.ID()] = &arenaEntry{p: p, refs: 1}
	return p.ID()
}

// Retain adds a reference to a loaded font.
func (a *Arena) Retain(id FontID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.fonts[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownFont, id)
	}
	e.refs++
	return nil
}

// Release drops a reference. The font is unloaded when the last reference
// goes away. Releasing an unknown ID is a no-op.
func (a *Arena) Release(id FontID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.fonts[id]
	if !ok {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	delete(a.fonts, id)
	if e.path != "" {
		delete(a.paths, e.path)
	}
	a.evictLocked(id)
}

// Reload re-reads a file-backed font in place. The ID stays the same and
// evict hooks run so cached glyphs of the old data are dropped. On failure
// the old font stays loaded.
func (a *Arena) Reload(id FontID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.fonts[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownFont, id)
	}
	if e.path == "" {
		return fmt.Errorf("%w: %s", ErrNotReloadable, e.p.Name())
	}
	r, err := load(id, e.path)
	if err != nil {
		return err
	}
	e.p = r
	a.evictLocked(id)
	logging.Component("fontsrc").Debug("font reloaded", "id", id, "path", e.path)
	return nil
}

// OnEvict registers fn to run whenever a font is reloaded or unloaded and
// returns a function that unregisters it. Unregistering twice is harmless.
// Hooks run under the arena's write lock and must not call back into it.
func (a *Arena) OnEvict(fn func(FontID)) (unregister func()) {
	h := &evictHook{fn: fn}
	a.mu.Lock()
	a.hooks = append(a.hooks, h)
	a.mu.Unlock()
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.hooks = slices.DeleteFunc(a.hooks, func(x *evictHook) bool { return x == h })
	}
}

func (a *Arena) evictLocked(id FontID) {
	for _, h := range a.hooks {
		h.fn(id)
	}
}

// Provider looks up a font outside of a lease.
func (a *Arena) Provider(id FontID) (Provider, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.fonts[id]
	if !ok {
		return nil, false
	}
	return e.p, true
}

// Refs returns the reference count of a font, 0 if it is not loaded.
func (a *Arena) Refs(id FontID) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if e, ok := a.fonts[id]; ok {
		return e.refs
	}
	return 0
}

// Len returns the number of loaded fonts.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.fonts)
}

// Acquire takes a read lease. The caller must not call other Arena methods
// from the same goroutine until the lease is released.
func (a *Arena) Acquire() *Lease {
	a.mu.RLock()
	return &Lease{a: a}
}

// Lease is a read hold on an Arena for the duration of one render.
type Lease struct {
	a        *Arena
	released bool
}

// Provider returns a loaded font.
func (l *Lease) Provider(id FontID) (Provider, bool) {
	e, ok := l.a.fonts[id]
	if !ok {
		return nil, false
	}
	return e.p, true
}

// Release ends the lease. Calling it twice is safe.
func (l *Lease) Release() {
	if l.released {
		return
	}
	l.released = true
	l.a.mu.RUnlock()
}
