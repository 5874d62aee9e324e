// Package fonttest provides a synthetic font for pipeline tests. Every glyph
// is a filled box, so coverage, advances and colour data are exactly known.
package fonttest

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/gogpu/rendertext/emoji"
	"github.com/gogpu/rendertext/fontsrc"
)

// ErrBroken is returned by Outline for glyphs marked broken.
var ErrBroken = errors.New("fonttest: broken glyph")

// Font is a configurable fontsrc.Provider. Advances, kerning and metrics
// are given in ems and scale linearly with size. Configure it before use;
// afterwards it is read-only and safe for concurrent use.
type Font struct {
	id   fontsrc.FontID
	name string

	cmap      map[rune]fontsrc.GlyphID
	advances  map[fontsrc.GlyphID]float64
	kerning   map[[2]fontsrc.GlyphID]float64
	ligatures map[string]fontsrc.GlyphID
	layers    map[fontsrc.GlyphID][]emoji.Layer
	bitmaps   map[fontsrc.GlyphID]*emoji.BitmapGlyph
	broken    map[fontsrc.GlyphID]bool
	next      fontsrc.GlyphID

	Ascent  float64
	Descent float64

	outlines atomic.Int64
}

var _ fontsrc.Provider = (*Font)(nil)
var _ fontsrc.LigatureProvider = (*Font)(nil)

// New returns an empty font with a fresh ID.
func New(name string) *Font {
	return &Font{
		id:        fontsrc.NewID(),
		name:      name,
		cmap:      make(map[rune]fontsrc.GlyphID),
		advances:  make(map[fontsrc.GlyphID]float64),
		kerning:   make(map[[2]fontsrc.GlyphID]float64),
		ligatures: make(map[string]fontsrc.GlyphID),
		layers:    make(map[fontsrc.GlyphID][]emoji.Layer),
		bitmaps:   make(map[fontsrc.GlyphID]*emoji.BitmapGlyph),
		broken:    make(map[fontsrc.GlyphID]bool),
		next:      1,
		Ascent:    0.8,
		Descent:   0.2,
	}
}

// Latin returns a font covering printable ASCII with 0.5em advances and
// U+0301 COMBINING ACUTE ACCENT with a zero advance.
func Latin(name string) *Font {
	f := New(name)
	for r := rune(0x20); r < 0x7F; r++ {
		f.Map(r, 0.5)
	}
	f.Map('\u0301', 0)
	return f
}

// Map assigns the next glyph ID to r with the given advance in ems.
func (f *Font) Map(r rune, advance float64) fontsrc.GlyphID {
	g := f.next
	f.next++
	f.cmap[r] = g
	f.advances[g] = advance
	return g
}

// MapRange maps every rune in [lo, hi] with the same advance.
func (f *Font) MapRange(lo, hi rune, advance float64) *Font {
	for r := lo; r <= hi; r++ {
		f.Map(r, advance)
	}
	return f
}

// Glyph returns the glyph mapped to r, or 0.
func (f *Font) Glyph(r rune) fontsrc.GlyphID { return f.cmap[r] }

// Kerning sets the pair adjustment between the glyphs of two runes.
func (f *Font) Kerning(a, b rune, em float64) *Font {
	f.kerning[[2]fontsrc.GlyphID{f.cmap[a], f.cmap[b]}] = em
	return f
}

// AddLigature maps a rune sequence to a new glyph with the given advance.
func (f *Font) AddLigature(seq string, advance float64) fontsrc.GlyphID {
	g := f.next
	f.next++
	f.ligatures[seq] = g
	f.advances[g] = advance
	return g
}

// ColorGlyph turns the glyph of r into a COLR glyph with one layer per
// colour. Layer glyphs are fresh box glyphs. Unmapped runes are mapped with
// a 1em advance first.
func (f *Font) ColorGlyph(r rune, colors ...emoji.Color) *Font {
	f.paint(f.ensure(r), colors)
	return f
}

func (f *Font) paint(base fontsrc.GlyphID, colors []emoji.Color) {
	for _, c := range colors {
		lg := f.next
		f.next++
		f.advances[lg] = f.advances[base]
		idx := uint16(len(f.layers[base]))
		f.layers[base] = append(f.layers[base], emoji.Layer{Glyph: uint16(lg), PaletteIndex: idx, Color: c})
	}
}

// ColorLigature maps seq to a new 1em ligature glyph painted with one
// layer per colour, and maps each rune of seq on its own if needed.
func (f *Font) ColorLigature(seq string, colors ...emoji.Color) fontsrc.GlyphID {
	for _, r := range seq {
		f.ensure(r)
	}
	g := f.AddLigature(seq, 1)
	f.paint(g, colors)
	return g
}

// BitmapGlyph gives the glyph of r an embedded bitmap, mapping r with a
// 1em advance if needed.
func (f *Font) BitmapGlyph(r rune, bg *emoji.BitmapGlyph) *Font {
	f.bitmaps[f.ensure(r)] = bg
	return f
}

func (f *Font) ensure(r rune) fontsrc.GlyphID {
	if g, ok := f.cmap[r]; ok {
		return g
	}
	return f.Map(r, 1)
}

// Break makes Outline fail for the glyph of r.
func (f *Font) Break(r rune) *Font {
	f.broken[f.cmap[r]] = true
	return f
}

// OutlineCalls counts Outline invocations.
func (f *Font) OutlineCalls() int64 { return f.outlines.Load() }

func (f *Font) ID() fontsrc.FontID { return f.id }
func (f *Font) Name() string       { return f.name }

func (f *Font) GlyphIndex(r rune) (fontsrc.GlyphID, bool) {
	g, ok := f.cmap[r]
	return g, ok
}

func (f *Font) Metrics(size float64) fontsrc.Metrics {
	return fontsrc.Metrics{Ascent: f.Ascent * size, Descent: f.Descent * size}
}

func (f *Font) Advance(g fontsrc.GlyphID, size float64, hinting bool) float64 {
	adv, ok := f.advances[g]
	if !ok {
		adv = 0.5
	}
	adv *= size
	if hinting {
		adv = float64(int(adv + 0.5))
	}
	return adv
}

func (f *Font) Kern(left, right fontsrc.GlyphID, size float64) float64 {
	return f.kerning[[2]fontsrc.GlyphID{left, right}] * size
}

// Outline returns a box from the baseline to 0.7em above it, inset 0.05em
// from both sides of the advance. Zero-advance glyphs get a 0.2em box at
// accent height over the centre of a preceding 0.5em glyph.
func (f *Font) Outline(g fontsrc.GlyphID, size float64) (fontsrc.Outline, error) {
	f.outlines.Add(1)
	if f.broken[g] {
		return fontsrc.Outline{}, fmt.Errorf("%w: %d", ErrBroken, g)
	}
	adv, ok := f.advances[g]
	if !ok {
		adv = 0.5
	}
	if g == fontsrc.NotDef {
		adv = 0.5
	}
	var x0, x1, y0, y1 float64
	if adv == 0 {
		x0, x1, y0, y1 = -0.35, -0.15, -0.9, -0.75
	} else {
		x0, x1, y0, y1 = 0.05, adv-0.05, -0.7, 0
	}
	return Box(x0*size, y0*size, x1*size, y1*size), nil
}

func (f *Font) Kind(g fontsrc.GlyphID) fontsrc.GlyphKind {
	if _, ok := f.layers[g]; ok {
		return fontsrc.KindLayered
	}
	if _, ok := f.bitmaps[g]; ok {
		return fontsrc.KindBitmap
	}
	return fontsrc.KindOutline
}

func (f *Font) ColorLayers(g fontsrc.GlyphID) ([]emoji.Layer, bool) {
	l, ok := f.layers[g]
	return l, ok
}

func (f *Font) Bitmap(g fontsrc.GlyphID, _ uint16) (*emoji.BitmapGlyph, error) {
	if bg, ok := f.bitmaps[g]; ok {
		return bg, nil
	}
	return nil, emoji.ErrGlyphNotInBitmap
}

func (f *Font) HasColor() bool { return len(f.layers) > 0 || len(f.bitmaps) > 0 }

func (f *Font) Ligature(seq []rune) (fontsrc.GlyphID, int, bool) {
	best, n := fontsrc.GlyphID(0), 0
	for s, g := range f.ligatures {
		rs := []rune(s)
		if len(rs) <= n || len(rs) > len(seq) {
			continue
		}
		if string(seq[:len(rs)]) == s {
			best, n = g, len(rs)
		}
	}
	return best, n, n > 0
}

// Box returns a closed rectangular outline.
func Box(x0, y0, x1, y1 float64) fontsrc.Outline {
	p := func(x, y float64) [3]fontsrc.Point {
		return [3]fontsrc.Point{{X: float32(x), Y: float32(y)}}
	}
	return fontsrc.Outline{Segments: []fontsrc.Segment{
		{Op: fontsrc.SegmentMoveTo, Args: p(x0, y0)},
		{Op: fontsrc.SegmentLineTo, Args: p(x1, y0)},
		{Op: fontsrc.SegmentLineTo, Args: p(x1, y1)},
		{Op: fontsrc.SegmentLineTo, Args: p(x0, y1)},
		{Op: fontsrc.SegmentLineTo, Args: p(x0, y0)},
	}}
}
