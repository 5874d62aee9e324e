// Package fallback picks, for each cluster a font cannot render, the first
// font in a chain that can.
package fallback

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/rendertext/fontsrc"
	"github.com/gogpu/rendertext/internal/logging"
)

// ErrUnrenderable is returned when no font in the chain covers a cluster.
var ErrUnrenderable = errors.New("fallback: no font renders cluster")

// Source looks fonts up by ID. *fontsrc.Arena and *fontsrc.Lease satisfy it.
type Source interface {
	Provider(id fontsrc.FontID) (fontsrc.Provider, bool)
}

// refCounter is implemented by *fontsrc.Arena.
type refCounter interface {
	Retain(id fontsrc.FontID) error
	Release(id fontsrc.FontID)
}

// Resolution is the font chosen for one cluster.
type Resolution struct {
	Font fontsrc.Provider
	// Runes to shape. They equal the cluster unless Form is set.
	Runes []rune
	// Form is the normalization form that made the cluster renderable, or
	// empty when the cluster was covered as given.
	Form string
}

// Normalized reports whether Runes differ from the input cluster.
func (r Resolution) Normalized() bool { return r.Form != "" }

// Resolver walks a font chain. It is safe for concurrent use.
type Resolver struct {
	chain []fontsrc.Provider
	color []fontsrc.Provider
	ids   []fontsrc.FontID
	refs  refCounter
	once  sync.Once
}

// New builds a resolver over the fonts ids names in src, in order. When src
// is an Arena the resolver holds a reference on every font until Close.
// Providers are captured at construction; build a new resolver after an
// Arena reload.
func New(src Source, ids ...fontsrc.FontID) (*Resolver, error) {
	providers := make([]fontsrc.Provider, 0, len(ids))
	for _, id := range ids {
		p, ok := src.Provider(id)
		if !ok {
			return nil, fmt.Errorf("%w: %d", fontsrc.ErrUnknownFont, id)
		}
		providers = append(providers, p)
	}
	r := FromProviders(providers...)
	if rc, ok := src.(refCounter); ok {
		for i, id := range ids {
			if err := rc.Retain(id); err != nil {
				for _, held := range ids[:i] {
					rc.Release(held)
				}
				return nil, err
			}
		}
		r.ids = slices.Clone(ids)
		r.refs = rc
	}
	return r, nil
}

// FromProviders builds a resolver over providers without reference counting.
func FromProviders(providers ...fontsrc.Provider) *Resolver {
	r := &Resolver{chain: slices.Clone(providers)}
	for _, p := range providers {
		if p.HasColor() {
			r.color = append(r.color, p)
		}
	}
	return r
}

// Chain returns the fonts in chain order.
func (r *Resolver) Chain() []fontsrc.Provider { return slices.Clone(r.chain) }

// Len returns the chain length.
func (r *Resolver) Len() int { return len(r.chain) }

// Primary returns the font a run starts with: the first colour font for
// emoji runs when there is one, otherwise the head of the chain.
func (r *Resolver) Primary(emoji bool) (fontsrc.Provider, bool) {
	if emoji && len(r.color) > 0 {
		return r.color[0], true
	}
	if len(r.chain) == 0 {
		return nil, false
	}
	return r.chain[0], true
}

// Resolve returns the first font covering cluster. Emoji clusters try
// colour fonts before the rest of the chain. If no font covers the cluster
// as given, its NFC and NFD forms are tried.
func (r *Resolver) Resolve(cluster []rune, emoji bool) (Resolution, error) {
	order := r.order(emoji)
	if p := first(order, cluster); p != nil {
		return Resolution{Font: p, Runes: cluster}, nil
	}

	s := string(cluster)
	for _, form := range []struct {
		name string
		f    norm.Form
	}{{"NFC", norm.NFC}, {"NFD", norm.NFD}} {
		alt := form.f.String(s)
		if alt == s {
			continue
		}
		runes := []rune(alt)
		if p := first(order, runes); p != nil {
			logging.Component("fallback").Debug("cluster renderable after normalization",
				"form", form.name, "font", p.Name())
			return Resolution{Font: p, Runes: runes, Form: form.name}, nil
		}
	}
	return Resolution{}, fmt.Errorf("%w: %+q", ErrUnrenderable, s)
}

// Close releases the font references taken by New. It is idempotent.
func (r *Resolver) Close() {
	r.once.Do(func() {
		if r.refs == nil {
			return
		}
		for _, id := range r.ids {
			r.refs.Release(id)
		}
	})
}

func (r *Resolver) order(emoji bool) []fontsrc.Provider {
	if !emoji || len(r.color) == 0 {
		return r.chain
	}
	out := make([]fontsrc.Provider, 0, len(r.chain))
	out = append(out, r.color...)
	for _, p := range r.chain {
		if !p.HasColor() {
			out = append(out, p)
		}
	}
	return out
}

func first(order []fontsrc.Provider, cluster []rune) fontsrc.Provider {
	for _, p := range order {
		if fontsrc.Covers(p, cluster) {
			return p
		}
	}
	return nil
}
