package fontsrc

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	gtfont "github.com/go-text/typesetting/font"
	ot "github.com/go-text/typesetting/font/opentype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/rendertext/emoji"
)

// Resource is a parsed OpenType/TrueType font.
//
// go-text/typesetting is the authority for the cmap and for shaping. When
// golang.org/x/image can also parse the file it supplies hinted advances,
// kerning and outlines; otherwise the go-text glyph data is used.
//
// Resource is immutable after Parse and safe for concurrent use.
type Resource struct {
	id   FontID
	name string
	path string
	data []byte

	gt   *gtfont.Font
	sf   *sfnt.Font
	upem float64

	bufs sync.Pool

	colorOnce sync.Once
	colr      *emoji.ColorTable
	bitmaps   *emoji.BitmapTable
}

var _ Provider = (*Resource)(nil)

// Parse parses font data. The slice is retained, not copied.
func Parse(name string, data []byte) (*Resource, error) {
	return parse(NewID(), name, "", data)
}

// Load reads and parses a font file. Failures are returned as *LoadError.
func Load(path string) (*Resource, error) {
	return load(NewID(), path)
}

func load(id FontID, path string) (*Resource, error) {
	data, err := os.ReadFile(path) //nolint:gosec // font paths come from the caller
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	r, err := parse(id, filepath.Base(path), path, data)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return r, nil
}

func parse(id FontID, name, path string, data []byte) (*Resource, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFontData
	}
	face, err := gtfont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("fontsrc: parse %s: %w", name, err)
	}

	r := &Resource{
		id:   id,
		name: name,
		path: path,
		data: data,
		gt:   face.Font,
		upem: float64(face.Upem()),
	}
	r.bufs.New = func() any { return new(sfnt.Buffer) }
	if r.upem == 0 {
		r.upem = 1000
	}

	// Bitmap-only colour fonts have no glyf/CFF table and x/image rejects
	// them; they still work through go-text.
	if sf, err := opentype.Parse(data); err == nil {
		r.sf = sf
		if family, err := sf.Name(nil, sfnt.NameIDFamily); err == nil && family != "" && name == "" {
			r.name = family
		}
	}
	return r, nil
}

// ID implements Provider.
func (r *Resource) ID() FontID { return r.id }

// Name implements Provider.
func (r *Resource) Name() string { return r.name }

// Path is the file the font was loaded from, or "" for in-memory data.
func (r *Resource) Path() string { return r.path }

// TypesettingFont exposes the go-text font for HarfBuzz shaping.
func (r *Resource) TypesettingFont() *gtfont.Font { return r.gt }

// GlyphIndex implements Provider.
func (r *Resource) GlyphIndex(ch rune) (GlyphID, bool) {
	gid, ok := r.gt.NominalGlyph(ch)
	if !ok || gid == 0 || gid > math.MaxUint16 {
		return NotDef, false
	}
	return GlyphID(gid), true
}

func (r *Resource) buffer() *sfnt.Buffer { return r.bufs.Get().(*sfnt.Buffer) }

func (r *Resource) putBuffer(b *sfnt.Buffer) { r.bufs.Put(b) }

// Metrics implements Provider.
func (r *Resource) Metrics(size float64) Metrics {
	if r.sf != nil {
		b := r.buffer()
		defer r.putBuffer(b)
		m, err := r.sf.Metrics(b, toFixed(size), font.HintingNone)
		if err == nil {
			asc, desc := fromFixed(m.Ascent), fromFixed(m.Descent)
			return Metrics{Ascent: asc, Descent: desc, LineGap: max(0, fromFixed(m.Height)-asc-desc)}
		}
	}
	ext, ok := gtfont.NewFace(r.gt).FontHExtents()
	if !ok {
		return Metrics{Ascent: 0.8 * size, Descent: 0.2 * size}
	}
	scale := size / r.upem
	return Metrics{
		Ascent:  float64(ext.Ascender) * scale,
		Descent: -float64(ext.Descender) * scale,
		LineGap: float64(ext.LineGap) * scale,
	}
}

// Advance implements Provider.
func (r *Resource) Advance(g GlyphID, size float64, hinting bool) float64 {
	if r.sf != nil {
		b := r.buffer()
		defer r.putBuffer(b)
		adv, err := r.sf.GlyphAdvance(b, sfnt.GlyphIndex(g), toFixed(size), hintingOf(hinting))
		if err == nil {
			return roundIf(fromFixed(adv), hinting)
		}
	}
	adv := float64(gtfont.NewFace(r.gt).HorizontalAdvance(gtfont.GID(g))) * size / r.upem
	return roundIf(adv, hinting)
}

// Kern implements Provider.
func (r *Resource) Kern(left, right GlyphID, size float64) float64 {
	if r.sf == nil {
		return 0
	}
	b := r.buffer()
	defer r.putBuffer(b)
	k, err := r.sf.Kern(b, sfnt.GlyphIndex(left), sfnt.GlyphIndex(right), toFixed(size), font.HintingNone)
	if err != nil {
		return 0
	}
	return fromFixed(k)
}

// Outline implements Provider.
func (r *Resource) Outline(g GlyphID, size float64) (Outline, error) {
	if r.sf != nil {
		b := r.buffer()
		segs, err := r.sf.LoadGlyph(b, sfnt.GlyphIndex(g), toFixed(size), nil)
		if err == nil {
			out := Outline{Segments: make([]Segment, len(segs))}
			for i, s := range segs {
				out.Segments[i] = Segment{Op: sfntOp(s.Op)}
				for j := range s.Args {
					out.Segments[i].Args[j] = Point{
						X: float32(fromFixed(s.Args[j].X)),
						Y: float32(fromFixed(s.Args[j].Y)),
					}
				}
			}
			r.putBuffer(b)
			return out, nil
		}
		r.putBuffer(b)
	}
	return r.typesettingOutline(g, size)
}

// typesettingOutline reads glyph contours from go-text, which reports them
// in font units with y pointing up.
func (r *Resource) typesettingOutline(g GlyphID, size float64) (Outline, error) {
	data := gtfont.NewFace(r.gt).GlyphData(gtfont.GID(g))
	gl, ok := data.(gtfont.GlyphOutline)
	if !ok {
		return Outline{}, fmt.Errorf("%w: glyph %d of %s", ErrNoOutline, g, r.name)
	}
	scale := float32(size / r.upem)
	out := Outline{Segments: make([]Segment, len(gl.Segments))}
	for i, s := range gl.Segments {
		var op SegmentOp
		switch s.Op {
		case ot.SegmentOpMoveTo:
			op = SegmentMoveTo
		case ot.SegmentOpLineTo:
			op = SegmentLineTo
		case ot.SegmentOpQuadTo:
			op = SegmentQuadTo
		default:
			op = SegmentCubeTo
		}
		out.Segments[i].Op = op
		for j := range s.Args {
			out.Segments[i].Args[j] = Point{X: s.Args[j].X * scale, Y: -s.Args[j].Y * scale}
		}
	}
	return out, nil
}

func (r *Resource) loadColorTables() {
	r.colorOnce.Do(func() {
		ld, err := ot.NewLoader(bytes.NewReader(r.data))
		if err != nil {
			return
		}
		colr, _ := ld.RawTable(ot.MustNewTag("COLR"))
		cpal, _ := ld.RawTable(ot.MustNewTag("CPAL"))
		if len(colr) > 0 {
			if ct, err := emoji.ParseColorTable(colr, cpal); err == nil {
				r.colr = ct
			}
		}
		cbdt, _ := ld.RawTable(ot.MustNewTag("CBDT"))
		cblc, _ := ld.RawTable(ot.MustNewTag("CBLC"))
		if len(cbdt) > 0 {
			if bt, err := emoji.ParseBitmapTable(cbdt, cblc); err == nil {
				r.bitmaps = bt
			}
		}
	})
}

// Kind implements Provider.
func (r *Resource) Kind(g GlyphID) GlyphKind {
	r.loadColorTables()
	switch {
	case r.colr != nil && r.colr.Has(uint16(g)):
		return KindLayered
	case r.bitmaps != nil && r.bitmaps.Has(uint16(g)):
		return KindBitmap
	}
	return KindOutline
}

// ColorLayers implements Provider. Palette 0 is used.
func (r *Resource) ColorLayers(g GlyphID) ([]emoji.Layer, bool) {
	r.loadColorTables()
	if r.colr == nil {
		return nil, false
	}
	return r.colr.Layers(uint16(g), 0)
}

// Bitmap implements Provider.
func (r *Resource) Bitmap(g GlyphID, ppem uint16) (*emoji.BitmapGlyph, error) {
	r.loadColorTables()
	if r.bitmaps == nil {
		return nil, emoji.ErrNoBitmapTable
	}
	return r.bitmaps.Glyph(uint16(g), ppem)
}

// HasColor implements Provider.
func (r *Resource) HasColor() bool {
	r.loadColorTables()
	return r.colr != nil || r.bitmaps != nil
}

func sfntOp(op sfnt.SegmentOp) SegmentOp {
	switch op {
	case sfnt.SegmentOpMoveTo:
		return SegmentMoveTo
	case sfnt.SegmentOpLineTo:
		return SegmentLineTo
	case sfnt.SegmentOpQuadTo:
		return SegmentQuadTo
	}
	return SegmentCubeTo
}

func toFixed(v float64) fixed.Int26_6 { return fixed.Int26_6(math.Round(v * 64)) }

func fromFixed(v fixed.Int26_6) float64 { return float64(v) / 64 }

func hintingOf(on bool) font.Hinting {
	if on {
		return font.HintingFull
	}
	return font.HintingNone
}

func roundIf(v float64, on bool) float64 {
	if on {
		return math.Round(v)
	}
	return v
}
