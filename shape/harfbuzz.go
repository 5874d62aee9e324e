package shape

import (
	"math"
	"sync"

	"github.com/go-text/typesetting/di"
	gtfont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/rendertext/fontsrc"
	"github.com/gogpu/rendertext/segment"
)

// typesettingFont is implemented by providers backed by a parsed go-text
// font, such as *fontsrc.Resource.
type typesettingFont interface {
	TypesettingFont() *gtfont.Font
}

// HarfBuzz shapes with the go-text port of HarfBuzz. It handles kerning,
// ligatures, mark positioning and complex scripts.
//
// gtfont.Font is safe for concurrent use but gtfont.Face and
// shaping.HarfbuzzShaper are not, so a Face is built per call and shapers
// are pooled.
type HarfBuzz struct {
	pool sync.Pool
}

// NewHarfBuzz returns a ready HarfBuzz engine.
func NewHarfBuzz() *HarfBuzz {
	return &HarfBuzz{
		pool: sync.Pool{
			New: func() any {
				return &shaping.HarfbuzzShaper{}
			},
		},
	}
}

// Name implements Engine.
func (h *HarfBuzz) Name() string { return "harfbuzz" }

// Shape implements Engine. It returns ErrUnsupportedFont for providers that
// carry no go-text font.
func (h *HarfBuzz) Shape(req Request, p fontsrc.Provider) ([]Glyph, error) {
	tf, ok := p.(typesettingFont)
	if !ok || tf.TypesettingFont() == nil {
		return nil, ErrUnsupportedFont
	}
	if req.Start >= req.End {
		return nil, nil
	}

	dir := di.DirectionLTR
	if req.Direction == segment.DirectionRTL {
		dir = di.DirectionRTL
	}
	input := shaping.Input{
		Text:      req.Text,
		RunStart:  req.Start,
		RunEnd:    req.End,
		Direction: dir,
		Face:      gtfont.NewFace(tf.TypesettingFont()),
		Size:      fixed.Int26_6(math.Round(req.Size * 64)),
		Script:    req.Script,
		Language:  req.Language,
	}

	hb := h.pool.Get().(*shaping.HarfbuzzShaper)
	out := hb.Shape(input)
	h.pool.Put(hb)

	glyphs := make([]Glyph, 0, len(out.Glyphs))
	for _, g := range out.Glyphs {
		adv := fromFixed(g.Advance)
		if req.Hinting {
			adv = math.Round(adv)
		}
		var flags Flags
		if g.RuneCount > 1 && g.GlyphCount == 1 {
			flags |= FlagLigature
		}
		if g.Advance == 0 && g.TextIndex() > req.Start && fontsrc.IsMark(req.Text[g.TextIndex()]) {
			flags |= FlagMark
		}
		glyphs = append(glyphs, Glyph{
			ID:       fontsrc.GlyphID(g.GlyphID), //nolint:gosec // OpenType glyph ids fit in 16 bits
			Cluster:  g.TextIndex(),
			XAdvance: adv,
			XOffset:  fromFixed(g.XOffset),
			YOffset:  fromFixed(g.YOffset),
			Font:     p.ID(),
			Flags:    flags,
		})
	}

	// HarfBuzz emits right-to-left runs in visual order.
	if n := len(glyphs); n > 1 && glyphs[0].Cluster > glyphs[n-1].Cluster {
		Reverse(glyphs)
	}
	return glyphs, nil
}

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
