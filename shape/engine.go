package shape

import (
	"errors"

	"github.com/go-text/typesetting/language"

	"github.com/gogpu/rendertext/fontsrc"
	"github.com/gogpu/rendertext/segment"
)

// ErrUnsupportedFont is returned by an Engine that cannot drive the given
// provider. The Shaper then falls back to the builtin engine.
var ErrUnsupportedFont = errors.New("shape: engine does not support font")

// Request is one contiguous range of text to shape with one font.
type Request struct {
	// Text is the whole paragraph. Engines may read up to ContextRunes
	// runes on either side of [Start, End) for context and must not depend
	// on anything further away.
	Text       []rune
	Start, End int
	Direction  segment.Direction
	Script     language.Script
	Language   language.Language
	Size       float64
	Hinting    bool
}

// Engine performs the actual glyph selection and positioning.
//
// Implementations return glyphs in logical order with Cluster set to the
// rune offset (into Request.Text) of the first rune the glyph represents.
// Missing characters come back as fontsrc.NotDef. Engines must be safe for
// concurrent use and deterministic.
type Engine interface {
	Name() string
	Shape(req Request, font fontsrc.Provider) ([]Glyph, error)
}
