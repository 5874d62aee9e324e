package shape

import (
	"math"

	"github.com/gogpu/rendertext/fontsrc"
	"github.com/gogpu/rendertext/segment"
)

// Builtin shapes with the font's cmap, pair kerning and, when the provider
// implements fontsrc.LigatureProvider, simple ligatures. Combining marks get
// a zero advance and sit over their base. It drives any Provider.
type Builtin struct{}

// Name implements Engine.
func (Builtin) Name() string { return "builtin" }

// Shape implements Engine.
func (Builtin) Shape(req Request, p fontsrc.Provider) ([]Glyph, error) {
	if req.Start >= req.End {
		return nil, nil
	}
	rtl := req.Direction == segment.DirectionRTL
	lig, _ := p.(fontsrc.LigatureProvider)

	glyphs := make([]Glyph, 0, req.End-req.Start)
	base := -1
	for i := req.Start; i < req.End; {
		r := req.Text[i]
		if fontsrc.Ignorable(r) {
			i++
			continue
		}

		if lig != nil && !fontsrc.IsMark(r) {
			if gid, n, ok := lig.Ligature(req.Text[i:req.End]); ok && n > 1 {
				glyphs = append(glyphs, Glyph{
					ID:       gid,
					Cluster:  i,
					XAdvance: advance(p, gid, req),
					Font:     p.ID(),
					Flags:    FlagLigature,
				})
				base = len(glyphs) - 1
				i += n
				continue
			}
		}

		gid, _ := p.GlyphIndex(r)
		g := Glyph{ID: gid, Cluster: i, Font: p.ID()}
		adv := advance(p, gid, req)
		if fontsrc.IsMark(r) && base >= 0 && gid != fontsrc.NotDef {
			g.Flags |= FlagMark
			g.XOffset = markOffset(glyphs[base].XAdvance, adv, rtl)
		} else {
			g.XAdvance = adv
			if base >= 0 {
				prev := &glyphs[base]
				if rtl {
					g.XAdvance += p.Kern(gid, prev.ID, req.Size)
				} else {
					prev.XAdvance += p.Kern(prev.ID, gid, req.Size)
				}
			}
			base = len(glyphs)
		}
		glyphs = append(glyphs, g)
		i++
	}
	return glyphs, nil
}

func advance(p fontsrc.Provider, g fontsrc.GlyphID, req Request) float64 {
	adv := p.Advance(g, req.Size, req.Hinting)
	if req.Hinting {
		adv = math.Round(adv)
	}
	return adv
}

// markOffset centres a mark of width markAdv over a base of width baseAdv.
// Marks designed with a zero advance already reach back over the preceding
// glyph in left-to-right order. In right-to-left visual order the mark is
// drawn before its base, at the base's left edge.
func markOffset(baseAdv, markAdv float64, rtl bool) float64 {
	switch {
	case markAdv == 0 && rtl:
		return baseAdv
	case markAdv == 0:
		return 0
	case rtl:
		return (baseAdv - markAdv) / 2
	default:
		return -(baseAdv + markAdv) / 2
	}
}
