package raster

import (
	"fmt"
	"image"
	"image/draw"
	"math"
	"sync"

	"golang.org/x/image/vector"

	"github.com/gogpu/rendertext/fontsrc"
)

// Rasterizer produces glyph bitmaps. It is safe for concurrent use.
type Rasterizer struct {
	maxDim int
	pool   sync.Pool
}

// Option configures a Rasterizer.
type Option func(*Rasterizer)

// WithMaxDimension lowers the largest bitmap side accepted. Values outside
// (0, MaxGlyphDimension] are ignored.
func WithMaxDimension(n int) Option {
	return func(r *Rasterizer) {
		if n > 0 && n <= MaxGlyphDimension {
			r.maxDim = n
		}
	}
}

// New returns a Rasterizer.
func New(opts ...Option) *Rasterizer {
	r := &Rasterizer{maxDim: MaxGlyphDimension}
	for _, opt := range opts {
		opt(r)
	}
	r.pool.New = func() any { return vector.NewRasterizer(0, 0) }
	return r
}

// Rasterize renders glyph g of font at size pixels per em, shifted right by
// the subpixel phase. Hinting forces phase 0. Outline glyphs produce
// coverage bitmaps; COLR and embedded bitmap glyphs produce premultiplied
// colour bitmaps. Failures are *RasterError.
func (r *Rasterizer) Rasterize(font fontsrc.Provider, g fontsrc.GlyphID, size float64, phase Phase, hinting bool) (*Bitmap, error) {
	return r.rasterize(font, g, size, phase, hinting, true)
}

// RasterizeOutline is Rasterize without colour: colour glyphs are drawn
// from their base outline as plain coverage.
func (r *Rasterizer) RasterizeOutline(font fontsrc.Provider, g fontsrc.GlyphID, size float64, phase Phase, hinting bool) (*Bitmap, error) {
	return r.rasterize(font, g, size, phase, hinting, false)
}

func (r *Rasterizer) rasterize(font fontsrc.Provider, g fontsrc.GlyphID, size float64, phase Phase, hinting, color bool) (*Bitmap, error) {
	if hinting {
		phase = 0
	}
	kind := fontsrc.KindOutline
	if color {
		kind = font.Kind(g)
	}
	var (
		bm  *Bitmap
		err error
	)
	switch kind {
	case fontsrc.KindLayered:
		bm, err = r.layered(font, g, size, phase)
	case fontsrc.KindBitmap:
		bm, err = r.embedded(font, g, size)
	default:
		bm, err = r.outline(font, g, size, phase)
	}
	if err != nil {
		return nil, &RasterError{Font: font.ID(), Glyph: g, Size: size, Err: err}
	}
	return bm, nil
}

func (r *Rasterizer) outline(font fontsrc.Provider, g fontsrc.GlyphID, size float64, phase Phase) (*Bitmap, error) {
	o, err := font.Outline(g, size)
	if err != nil {
		return nil, err
	}
	if o.Empty() {
		return &Bitmap{Format: FormatAlpha}, nil
	}
	box, err := r.frame(o, phase)
	if err != nil {
		return nil, err
	}
	mask := r.fill(o, box, phase)
	return &Bitmap{
		Width:    box.Dx(),
		Height:   box.Dy(),
		Stride:   mask.Stride,
		Format:   FormatAlpha,
		Pix:      mask.Pix,
		BearingX: box.Min.X,
		BearingY: box.Min.Y,
	}, nil
}

// frame returns the pixel rectangle covering o shifted by phase.
func (r *Rasterizer) frame(o fontsrc.Outline, phase Phase) (image.Rectangle, error) {
	minX, minY, maxX, maxY := o.Bounds()
	dx := phase.Offset()
	box := image.Rect(
		int(math.Floor(float64(minX)+dx)),
		int(math.Floor(float64(minY))),
		int(math.Ceil(float64(maxX)+dx)),
		int(math.Ceil(float64(maxY))),
	)
	if box.Dx() > r.maxDim || box.Dy() > r.maxDim {
		return image.Rectangle{}, fmt.Errorf("%w: %dx%d", ErrGlyphTooLarge, box.Dx(), box.Dy())
	}
	return box, nil
}

// fill rasterizes o into a coverage mask the size of box.
func (r *Rasterizer) fill(o fontsrc.Outline, box image.Rectangle, phase Phase) *image.Alpha {
	w, h := box.Dx(), box.Dy()
	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return mask
	}

	z := r.pool.Get().(*vector.Rasterizer)
	defer r.pool.Put(z)
	z.Reset(w, h)
	z.DrawOp = draw.Src

	ox := float32(phase.Offset()) - float32(box.Min.X)
	oy := -float32(box.Min.Y)
	open := false
	for _, s := range o.Segments {
		a := s.Args
		switch s.Op {
		case fontsrc.SegmentMoveTo:
			if open {
				z.ClosePath()
			}
			z.MoveTo(a[0].X+ox, a[0].Y+oy)
			open = true
		case fontsrc.SegmentLineTo:
			z.LineTo(a[0].X+ox, a[0].Y+oy)
		case fontsrc.SegmentQuadTo:
			z.QuadTo(a[0].X+ox, a[0].Y+oy, a[1].X+ox, a[1].Y+oy)
		case fontsrc.SegmentCubeTo:
			z.CubeTo(a[0].X+ox, a[0].Y+oy, a[1].X+ox, a[1].Y+oy, a[2].X+ox, a[2].Y+oy)
		}
	}
	if open {
		z.ClosePath()
	}
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})
	return mask
}
