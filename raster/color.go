package raster

import (
	"errors"
	"fmt"
	"image"
	"math"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/rendertext/emoji"
	"github.com/gogpu/rendertext/fontsrc"
	"github.com/gogpu/rendertext/internal/blend"
)

var errNoLayers = errors.New("colour glyph has no layers")

// layered composites the COLR layers of g bottom to top. Layers that take
// the text colour are painted opaque black.
func (r *Rasterizer) layered(font fontsrc.Provider, g fontsrc.GlyphID, size float64, phase Phase) (*Bitmap, error) {
	layers, ok := font.ColorLayers(g)
	if !ok || len(layers) == 0 {
		return nil, errNoLayers
	}

	outlines := make([]fontsrc.Outline, len(layers))
	var union image.Rectangle
	for i, l := range layers {
		o, err := font.Outline(fontsrc.GlyphID(l.Glyph), size)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		outlines[i] = o
		if o.Empty() {
			continue
		}
		box, err := r.frame(o, phase)
		if err != nil {
			return nil, err
		}
		union = union.Union(box)
	}
	if union.Empty() {
		return &Bitmap{Format: FormatRGBAPremul}, nil
	}
	if union.Dx() > r.maxDim || union.Dy() > r.maxDim {
		return nil, fmt.Errorf("%w: %dx%d", ErrGlyphTooLarge, union.Dx(), union.Dy())
	}

	w, h := union.Dx(), union.Dy()
	pix := make([]uint8, w*h*4)
	for i, l := range layers {
		if outlines[i].Empty() {
			continue
		}
		c := l.Color
		if l.Foreground() {
			c = emoji.Color{A: 255}
		}
		pr, pg, pb, pa := blend.Premultiply(c.R, c.G, c.B, c.A)
		mask := r.fill(outlines[i], union, phase)
		for j, cov := range mask.Pix {
			if cov == 0 {
				continue
			}
			sr, sg, sb, sa := blend.Coverage(pr, pg, pb, pa, cov)
			p := pix[j*4 : j*4+4 : j*4+4]
			p[0], p[1], p[2], p[3] = blend.SourceOver(sr, sg, sb, sa, p[0], p[1], p[2], p[3])
		}
	}
	return &Bitmap{
		Width:    w,
		Height:   h,
		Stride:   w * 4,
		Format:   FormatRGBAPremul,
		Pix:      pix,
		BearingX: union.Min.X,
		BearingY: union.Min.Y,
	}, nil
}

// embedded scales the best CBDT strike for size to size pixels per em.
func (r *Rasterizer) embedded(font fontsrc.Provider, g fontsrc.GlyphID, size float64) (*Bitmap, error) {
	ppem := uint16(max(1, min(math.Round(size), math.MaxUint16)))
	bg, err := font.Bitmap(g, ppem)
	if err != nil {
		return nil, err
	}
	src, err := bg.Decode()
	if err != nil {
		return nil, err
	}
	sb := src.Bounds()
	if sb.Empty() {
		return &Bitmap{Format: FormatRGBAPremul}, nil
	}

	scale := 1.0
	if bg.PPEM > 0 {
		scale = size / float64(bg.PPEM)
	}
	w := max(1, int(math.Round(float64(sb.Dx())*scale)))
	h := max(1, int(math.Round(float64(sb.Dy())*scale)))
	if w > r.maxDim || h > r.maxDim {
		return nil, fmt.Errorf("%w: %dx%d", ErrGlyphTooLarge, w, h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), src, sb, xdraw.Src, nil)
	return &Bitmap{
		Width:    w,
		Height:   h,
		Stride:   dst.Stride,
		Format:   FormatRGBAPremul,
		Pix:      dst.Pix,
		BearingX: int(math.Round(float64(bg.BearingX) * scale)),
		BearingY: -int(math.Round(float64(bg.BearingY) * scale)),
	}, nil
}
