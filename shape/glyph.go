// Package shape turns runs of clusters into positioned glyphs.
//
// A Shaper checks per-cluster coverage first, shapes only what the font can
// render with an Engine, and reports the remaining clusters as missing so
// the caller can try another font. Output is always in visual order.
package shape

import (
	"github.com/gogpu/rendertext/fontsrc"
	"github.com/gogpu/rendertext/segment"
)

// Flags describe how a glyph was produced.
type Flags uint8

const (
	// FlagMark is set for combining marks positioned on a base glyph.
	FlagMark Flags = 1 << iota
	// FlagLigature is set for a glyph that stands for several clusters.
	FlagLigature
	// FlagPlaceholder is set for substitute glyphs drawn for unrenderable
	// clusters.
	FlagPlaceholder
)

// Glyph is a positioned glyph. Advances and offsets are in pixels; offsets
// follow OpenType convention with y pointing up.
type Glyph struct {
	ID       fontsrc.GlyphID
	Cluster  int
	XAdvance float64
	YAdvance float64
	XOffset  float64
	YOffset  float64
	Font     fontsrc.FontID
	Flags    Flags
}

// Output is the result of shaping one run with one font.
type Output struct {
	// Glyphs in visual left-to-right order.
	Glyphs []Glyph
	// Missing lists, ascending, the indices of clusters the font could not
	// render. They have no glyphs in Glyphs.
	Missing []int
	// Direction is the direction the run was shaped in.
	Direction segment.Direction
}

// Advance returns the summed horizontal advance.
func (o Output) Advance() float64 {
	var w float64
	for _, g := range o.Glyphs {
		w += g.XAdvance
	}
	return w
}

// Complete reports whether every cluster was shaped.
func (o Output) Complete() bool {
	return len(o.Missing) == 0
}

// Reverse reverses glyphs in place.
func Reverse(glyphs []Glyph) {
	for i, j := 0, len(glyphs)-1; i < j; i, j = i+1, j-1 {
		glyphs[i], glyphs[j] = glyphs[j], glyphs[i]
	}
}
