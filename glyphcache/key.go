package glyphcache

import (
	"fmt"
	"math"

	"golang.org/x/image/math/fixed"

	"github.com/gogpu/rendertext/fontsrc"
	"github.com/gogpu/rendertext/raster"
)

// Key identifies one rasterization. Fonts are referenced by arena ID, so a
// key never keeps a font alive.
type Key struct {
	Font  fontsrc.FontID
	Glyph fontsrc.GlyphID
	// Size in 26.6 fixed point pixels per em.
	Size    fixed.Int26_6
	Phase   raster.Phase
	Color   bool
	Hinting bool
}

// MakeKey builds a key for a fractional pixel size.
func MakeKey(font fontsrc.FontID, glyph fontsrc.GlyphID, size float64, phase raster.Phase, color, hinting bool) Key {
	return Key{
		Font:    font,
		Glyph:   glyph,
		Size:    fixed.Int26_6(math.Round(size * 64)),
		Phase:   phase,
		Color:   color,
		Hinting: hinting,
	}
}

// SizePx returns the size in pixels.
func (k Key) SizePx() float64 { return float64(k.Size) / 64 }

func (k Key) String() string {
	return fmt.Sprintf("font=%d glyph=%d size=%v phase=%d color=%t hinting=%t",
		k.Font, k.Glyph, k.Size, k.Phase, k.Color, k.Hinting)
}
