// Package fontsrc loads fonts and exposes the per-font queries the rendering
// pipeline needs: coverage, metrics, advances, outlines and colour data.
//
// Fonts are identified by a process-unique FontID. An Arena owns loaded
// fonts, counts references to them and serialises reloads against renders.
package fontsrc

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unicode"

	"github.com/gogpu/rendertext/emoji"
)

// Sentinel errors.
var (
	ErrEmptyFontData = errors.New("fontsrc: empty font data")
	ErrUnknownFont   = errors.New("fontsrc: unknown font id")
	ErrNoOutline     = errors.New("fontsrc: glyph has no outline")
	ErrNotReloadable = errors.New("fontsrc: font has no backing file")
	ErrFontNotFound  = errors.New("fontsrc: font not found")
)

// LoadError records a font that could not be loaded. Renderers skip the
// font and keep going with the rest of the chain.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("fontsrc: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// FontID identifies a loaded font for the lifetime of the process.
type FontID uint32

// GlyphID is a glyph index within one font.
type GlyphID uint16

// NotDef is the glyph every font uses for missing characters.
const NotDef GlyphID = 0

var lastID atomic.Uint32

// NewID returns a FontID never handed out before.
func NewID() FontID {
	return FontID(lastID.Add(1))
}

// GlyphKind tells the rasterizer which representation to use for a glyph.
type GlyphKind int

const (
	KindOutline GlyphKind = iota
	KindLayered           // COLR layers
	KindBitmap            // CBDT image
)

func (k GlyphKind) String() string {
	switch k {
	case KindOutline:
		return "outline"
	case KindLayered:
		return "layered"
	case KindBitmap:
		return "bitmap"
	}
	return "unknown"
}

// Metrics are vertical font metrics in pixels at a given size. Descent is
// positive below the baseline.
type Metrics struct {
	Ascent  float64
	Descent float64
	LineGap float64
}

// Provider is the font capability the pipeline works against.
// Implementations must be safe for concurrent use.
type Provider interface {
	ID() FontID
	Name() string

	// GlyphIndex maps a codepoint through the cmap.
	GlyphIndex(r rune) (GlyphID, bool)

	Metrics(size float64) Metrics

	// Advance is the horizontal advance in pixels. With hinting the advance
	// is rounded to whole pixels.
	Advance(g GlyphID, size float64, hinting bool) float64

	// Kern is the pair adjustment in pixels, or 0.
	Kern(left, right GlyphID, size float64) float64

	// Outline returns the glyph contours in pixels, y pointing down, origin
	// on the baseline at the pen position.
	Outline(g GlyphID, size float64) (Outline, error)

	Kind(g GlyphID) GlyphKind

	// ColorLayers returns COLR layers with resolved palette colours.
	ColorLayers(g GlyphID) ([]emoji.Layer, bool)

	// Bitmap returns the embedded image from the strike best fitting ppem.
	Bitmap(g GlyphID, ppem uint16) (*emoji.BitmapGlyph, error)

	// HasColor reports whether the font carries colour glyph tables.
	HasColor() bool
}

// LigatureProvider is implemented by fonts that can map a codepoint
// sequence to a single glyph without a shaping engine. The returned count
// is how many leading runes of seq the ligature consumes.
type LigatureProvider interface {
	Ligature(seq []rune) (g GlyphID, n int, ok bool)
}

// Ignorable reports whether r is default-ignorable: it never needs a glyph
// of its own, so its absence from a cmap does not make text unrenderable.
func Ignorable(r rune) bool {
	switch {
	case r == '\u00AD', r == '\u034F', r == '\u061C':
		return true
	case r >= '\u200B' && r <= '\u200F':
		return true
	case r >= '\u202A' && r <= '\u202E', r >= '\u2060' && r <= '\u206F':
		return true
	case r >= '\uFE00' && r <= '\uFE0F', r == '\uFEFF':
		return true
	case r >= 0xE0000 && r <= 0xE0FFF: // tags and variation selectors supplement
		return true
	}
	return false
}

// IsMark reports whether r is a non-spacing or enclosing combining mark.
func IsMark(r rune) bool {
	return unicode.In(r, unicode.Mn, unicode.Me)
}

// Covers reports whether p has a glyph for every non-ignorable codepoint of
// cluster. An empty or all-ignorable cluster is covered.
func Covers(p Provider, cluster []rune) bool {
	if lp, ok := p.(LigatureProvider); ok {
		if _, n, ok := lp.Ligature(cluster); ok && n == len(cluster) {
			return true
		}
	}
	for _, r := range cluster {
		if Ignorable(r) {
			continue
		}
		if _, ok := p.GlyphIndex(r); !ok {
			return false
		}
	}
	return true
}
