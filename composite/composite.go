// Package composite draws shaped glyphs into a canvas through the glyph
// cache.
package composite

import (
	"image"
	"math"
	"slices"

	"github.com/gogpu/rendertext/canvas"
	"github.com/gogpu/rendertext/fontsrc"
	"github.com/gogpu/rendertext/glyphcache"
	"github.com/gogpu/rendertext/internal/logging"
	"github.com/gogpu/rendertext/raster"
	"github.com/gogpu/rendertext/shape"
)

// Fonts looks fonts up by ID. *fontsrc.Lease and *fontsrc.Arena satisfy it.
type Fonts interface {
	Provider(id fontsrc.FontID) (fontsrc.Provider, bool)
}

// Point is a pen position in canvas pixels, y pointing down.
type Point struct {
	X, Y float64
}

// Params controls one Composite call.
type Params struct {
	Color    canvas.Color
	Size     float64
	Hinting  bool
	Subpixel bool
	// ColorGlyphs draws COLR and bitmap glyphs in their own colours. When
	// false they are drawn as plain outlines in Color.
	ColorGlyphs bool
	// Placeholder is drawn for FlagPlaceholder glyphs and for glyphs that
	// fail to rasterize. Nil selects raster.Box at Size.
	Placeholder *raster.Bitmap
}

// Report describes what a Composite call drew.
type Report struct {
	// Drawn counts glyphs that touched the canvas.
	Drawn int
	// Failed lists, in order of first appearance, clusters whose glyphs
	// could not be rasterized and were replaced by the placeholder.
	Failed []int
	// Errors holds the first error of each Failed cluster.
	Errors []error
	// Bounds is the union of canvas pixels written to.
	Bounds image.Rectangle
	// Advance is the total pen advance.
	Advance float64
}

// Compositor blends glyph bitmaps into canvases. It is safe for concurrent
// use when its cache is.
type Compositor struct {
	cache *glyphcache.Cache
	rast  *raster.Rasterizer
}

// New returns a Compositor. Nil arguments select glyphcache.Default and a
// default raster.Rasterizer.
func New(cache *glyphcache.Cache, rast *raster.Rasterizer) *Compositor {
	if cache == nil {
		cache = glyphcache.Default()
	}
	if rast == nil {
		rast = raster.New()
	}
	return &Compositor{cache: cache, rast: rast}
}

// Cache returns the glyph cache in use.
func (c *Compositor) Cache() *glyphcache.Cache { return c.cache }

// Composite draws glyphs, in visual order, with the first pen position at
// origin on the baseline. Glyphs are clipped to dst; glyphs entirely
// outside it are not rasterized.
func (c *Compositor) Composite(glyphs []shape.Glyph, origin Point, fonts Fonts, dst *canvas.Canvas, p Params) Report {
	return c.walk(glyphs, origin, fonts, dst, p)
}

// Measure walks glyphs like Composite without drawing. Bounds is the
// unclipped ink rectangle and Drawn counts glyphs with ink.
func (c *Compositor) Measure(glyphs []shape.Glyph, origin Point, fonts Fonts, p Params) Report {
	return c.walk(glyphs, origin, fonts, nil, p)
}

func (c *Compositor) walk(glyphs []shape.Glyph, origin Point, fonts Fonts, dst *canvas.Canvas, p Params) Report {
	var rep Report
	placeholder := p.Placeholder
	if placeholder == nil {
		placeholder = raster.Box(p.Size, fontsrc.Metrics{})
	}
	subpixel := p.Subpixel && !p.Hinting
	// Ink of a glyph stays within two ems of its pen position.
	reach := 2*p.Size + 2

	pen := origin.X
	for _, g := range glyphs {
		x := pen + g.XOffset
		y := origin.Y - g.YOffset
		pen += g.XAdvance

		if dst != nil && outside(dst, x, y, g.XAdvance+reach, reach) {
			continue
		}
		iy := int(math.Round(y))

		if g.Flags&shape.FlagPlaceholder != 0 {
			ix, _ := raster.Quantize(x, false)
			c.blit(&rep, dst, placeholder, ix, iy, p.Color)
			continue
		}

		bm, h, err := c.lookup(g, x, fonts, p, subpixel)
		if err != nil {
			logging.Component("composite").Warn("glyph rasterization failed",
				"font", g.Font, "glyph", g.ID, "cluster", g.Cluster, "err", err)
			if !slices.Contains(rep.Failed, g.Cluster) {
				rep.Failed = append(rep.Failed, g.Cluster)
				rep.Errors = append(rep.Errors, err)
			}
			ix, _ := raster.Quantize(x, false)
			c.blit(&rep, dst, placeholder, ix, iy, p.Color)
			continue
		}
		c.blit(&rep, dst, bm.bitmap, bm.x, iy, p.Color)
		h.Release()
	}
	rep.Advance = pen - origin.X
	return rep
}

// outside reports whether a glyph at (x, y) whose ink reaches at most
// right pixels to the right and reach in every other direction misses dst.
func outside(dst *canvas.Canvas, x, y, right, reach float64) bool {
	return x+right < 0 || x-reach > float64(dst.Width) || y+reach < 0 || y-reach > float64(dst.Height)
}

type placed struct {
	bitmap *raster.Bitmap
	x      int
}

func (c *Compositor) lookup(g shape.Glyph, x float64, fonts Fonts, p Params, subpixel bool) (placed, *glyphcache.Handle, error) {
	font, ok := fonts.Provider(g.Font)
	if !ok {
		return placed{}, nil, &raster.RasterError{Font: g.Font, Glyph: g.ID, Size: p.Size, Err: fontsrc.ErrUnknownFont}
	}
	kind := font.Kind(g.ID)
	color := p.ColorGlyphs && kind != fontsrc.KindOutline
	if color && kind == fontsrc.KindBitmap {
		subpixel = false
	}
	ix, phase := raster.Quantize(x, subpixel)

	key := glyphcache.MakeKey(font.ID(), g.ID, p.Size, phase, color, p.Hinting)
	h, err := c.cache.GetOrCreate(key, func() (*raster.Bitmap, error) {
		if color {
			return c.rast.Rasterize(font, g.ID, p.Size, phase, p.Hinting)
		}
		return c.rast.RasterizeOutline(font, g.ID, p.Size, phase, p.Hinting)
	})
	if err != nil {
		return placed{}, nil, err
	}
	return placed{bitmap: h.Bitmap(), x: ix}, h, nil
}

// blit blends bm with its pen position at (x, y). A nil dst only records
// the bounds.
func (c *Compositor) blit(rep *Report, dst *canvas.Canvas, bm *raster.Bitmap, x, y int, col canvas.Color) {
	if bm.Empty() {
		return
	}
	x0, y0 := x+bm.BearingX, y+bm.BearingY
	r := image.Rect(x0, y0, x0+bm.Width, y0+bm.Height)
	if dst == nil {
		rep.Drawn++
		rep.Bounds = rep.Bounds.Union(r)
		return
	}
	r = r.Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	for py := r.Min.Y; py < r.Max.Y; py++ {
		row := bm.Pix[(py-y0)*bm.Stride:]
		for px := r.Min.X; px < r.Max.X; px++ {
			if bm.Format == raster.FormatRGBAPremul {
				s := row[(px-x0)*4:]
				dst.BlendPremul(px, py, s[0], s[1], s[2], s[3])
				continue
			}
			dst.BlendCoverage(px, py, col, row[px-x0])
		}
	}
	rep.Drawn++
	rep.Bounds = rep.Bounds.Union(r)
}
