package raster

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/rendertext/emoji"
	"github.com/gogpu/rendertext/fontsrc"
	"github.com/gogpu/rendertext/fontsrc/fonttest"
)

var (
	red   = emoji.Color{R: 255, A: 255}
	green = emoji.Color{G: 255, A: 255}
	blue  = emoji.Color{B: 255, A: 255}
)

func rgbaAt(bm *Bitmap, x, y int) [4]uint8 {
	i := y*bm.Stride + x*4
	return [4]uint8{bm.Pix[i], bm.Pix[i+1], bm.Pix[i+2], bm.Pix[i+3]}
}

func solidPNG(t *testing.T, w, h int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		pos       float64
		subpixel  bool
		wantWhole int
		wantPhase Phase
	}{
		{10.0, true, 10, 0},
		{10.24, true, 10, 0},
		{10.25, true, 10, 1},
		{10.3, true, 10, 1},
		{10.5, true, 10, 2},
		{10.75, true, 10, 3},
		{10.99, true, 10, 3},
		{-0.25, true, -1, 3},
		{-1.0, true, -1, 0},
		{10.49, false, 10, 0},
		{10.5, false, 11, 0},
		{-0.5, false, -1, 0},
		{-0.4, false, 0, 0},
	}
	for _, tt := range tests {
		whole, phase := Quantize(tt.pos, tt.subpixel)
		assert.Equal(t, tt.wantWhole, whole, "Quantize(%v, %v) whole", tt.pos, tt.subpixel)
		assert.Equal(t, tt.wantPhase, phase, "Quantize(%v, %v) phase", tt.pos, tt.subpixel)
	}
}

func TestPhaseOffset(t *testing.T) {
	for p := Phase(0); p < Divisions; p++ {
		assert.InDelta(t, float64(p)*0.25, p.Offset(), 1e-9)
	}
}

func TestRasterizeOutline(t *testing.T) {
	f := fonttest.Latin("latin")
	bm, err := New().Rasterize(f, f.Glyph('A'), 20, 0, false)
	require.NoError(t, err)
	require.NoError(t, bm.Validate())

	assert.Equal(t, FormatAlpha, bm.Format)
	assert.Equal(t, 8, bm.Width)
	assert.Equal(t, 14, bm.Height)
	assert.Equal(t, 1, bm.BearingX)
	assert.Equal(t, -14, bm.BearingY)
	for _, p := range [][2]int{{0, 0}, {7, 13}, {4, 7}} {
		assert.Equal(t, uint8(255), bm.AlphaAt(p[0], p[1]), "coverage at %v", p)
	}
	assert.Equal(t, uint8(0), bm.AlphaAt(-1, 0))
	assert.Equal(t, uint8(0), bm.AlphaAt(8, 0))
}

func TestRasterizePhaseShiftsCoverage(t *testing.T) {
	f := fonttest.Latin("latin")
	r := New()
	whole, err := r.Rasterize(f, f.Glyph('A'), 20, 0, false)
	require.NoError(t, err)
	half, err := r.Rasterize(f, f.Glyph('A'), 20, 2, false)
	require.NoError(t, err)

	// A half-pixel shift straddles one more column, half covered at both ends.
	assert.Equal(t, whole.Width+1, half.Width)
	assert.Equal(t, whole.BearingX, half.BearingX)
	assert.InDelta(t, 128, int(half.AlphaAt(0, 7)), 2)
	assert.InDelta(t, 128, int(half.AlphaAt(half.Width-1, 7)), 2)
	assert.Equal(t, uint8(255), half.AlphaAt(4, 7))
}

func TestRasterizeHintingIgnoresPhase(t *testing.T) {
	f := fonttest.Latin("latin")
	r := New()
	want, err := r.Rasterize(f, f.Glyph('A'), 20, 0, true)
	require.NoError(t, err)
	for p := Phase(1); p < Divisions; p++ {
		got, err := r.Rasterize(f, f.Glyph('A'), 20, p, true)
		require.NoError(t, err)
		assert.Equal(t, want, got, "phase %d", p)
	}
}

func TestRasterizeGoRegular(t *testing.T) {
	res, err := fontsrc.Parse("Go Regular", goregular.TTF)
	require.NoError(t, err)
	r := New()

	g, ok := res.GlyphIndex('H')
	require.True(t, ok)
	bm, err := r.Rasterize(res, g, 32, 0, false)
	require.NoError(t, err)
	require.NoError(t, bm.Validate())
	assert.False(t, bm.Empty())
	assert.Equal(t, FormatAlpha, bm.Format)
	assert.Less(t, bm.BearingY, 0, "ink sits above the baseline")
	assert.LessOrEqual(t, bm.BearingY+bm.Height, 1)

	var ink int
	for _, c := range bm.Pix {
		if c > 0 {
			ink++
		}
	}
	assert.Greater(t, ink, bm.Width*bm.Height/4)

	space, ok := res.GlyphIndex(' ')
	require.True(t, ok)
	bm, err = r.Rasterize(res, space, 32, 0, false)
	require.NoError(t, err)
	assert.True(t, bm.Empty())
	assert.NoError(t, bm.Validate())
}

func TestRasterizeLayerOrder(t *testing.T) {
	tests := []struct {
		name   string
		layers []emoji.Color
		want   [4]uint8
		delta  float64
	}{
		{"single", []emoji.Color{red}, [4]uint8{255, 0, 0, 255}, 0},
		{"blue over red", []emoji.Color{red, blue}, [4]uint8{0, 0, 255, 255}, 0},
		{"red over blue", []emoji.Color{blue, red}, [4]uint8{255, 0, 0, 255}, 0},
		{"last of three", []emoji.Color{red, blue, green}, [4]uint8{0, 255, 0, 255}, 0},
		{"translucent top", []emoji.Color{red, {B: 255, A: 128}}, [4]uint8{127, 0, 128, 255}, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fonttest.New("colr").ColorGlyph('X', tt.layers...)
			bm, err := New().Rasterize(f, f.Glyph('X'), 20, 0, false)
			require.NoError(t, err)
			require.NoError(t, bm.Validate())

			assert.Equal(t, FormatRGBAPremul, bm.Format)
			assert.True(t, bm.Color())
			assert.Equal(t, 18, bm.Width)
			assert.Equal(t, 14, bm.Height)
			assert.Equal(t, 1, bm.BearingX)
			assert.Equal(t, -14, bm.BearingY)

			got := rgbaAt(bm, 8, 7)
			for i := range got {
				assert.InDelta(t, tt.want[i], got[i], tt.delta, "channel %d of %v", i, got)
			}
		})
	}
}

func TestRasterizeOutlineIgnoresColor(t *testing.T) {
	f := fonttest.New("color").ColorGlyph('X', emoji.Color{R: 255, A: 255})
	bm, err := New().RasterizeOutline(f, f.Glyph('X'), 20, 0, false)
	require.NoError(t, err)
	assert.Equal(t, FormatAlpha, bm.Format)
	assert.Equal(t, uint8(255), bm.AlphaAt(8, 7))
}

func TestRasterizeEmbeddedScales(t *testing.T) {
	strike := &emoji.BitmapGlyph{
		PNG:      solidPNG(t, 10, 10, color.NRGBA{R: 255, A: 255}),
		Width:    10,
		Height:   10,
		BearingX: 1,
		BearingY: 8,
		Advance:  11,
		PPEM:     10,
	}
	tests := []struct {
		size           float64
		wantW, wantH   int
		wantBX, wantBY int
	}{
		{10, 10, 10, 1, -8},
		{20, 20, 20, 2, -16},
		{5, 5, 5, 1, -4},
		{15, 15, 15, 2, -12},
	}
	for _, tt := range tests {
		f := fonttest.New("cbdt").BitmapGlyph('E', strike)
		bm, err := New().Rasterize(f, f.Glyph('E'), tt.size, 0, false)
		require.NoError(t, err, "size %v", tt.size)
		require.NoError(t, bm.Validate())

		assert.Equal(t, FormatRGBAPremul, bm.Format)
		assert.Equal(t, tt.wantW, bm.Width, "width at %v", tt.size)
		assert.Equal(t, tt.wantH, bm.Height, "height at %v", tt.size)
		assert.Equal(t, tt.wantBX, bm.BearingX, "bearing x at %v", tt.size)
		assert.Equal(t, tt.wantBY, bm.BearingY, "bearing y at %v", tt.size)

		px := rgbaAt(bm, bm.Width/2, bm.Height/2)
		assert.InDelta(t, 255, px[0], 1)
		assert.InDelta(t, 255, px[3], 1)
		assert.Zero(t, px[1])
	}
}

func TestRasterizeEmbeddedBadPNG(t *testing.T) {
	f := fonttest.New("cbdt").BitmapGlyph('E', &emoji.BitmapGlyph{PNG: []byte("not a png"), PPEM: 10})
	_, err := New().Rasterize(f, f.Glyph('E'), 10, 0, false)
	var rerr *RasterError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, f.Glyph('E'), rerr.Glyph)
}

func TestGlyphTooLarge(t *testing.T) {
	strike := &emoji.BitmapGlyph{PNG: solidPNG(t, 8, 8, color.NRGBA{G: 255, A: 255}), Width: 8, Height: 8, PPEM: 8}
	tests := []struct {
		name string
		font func() (*fonttest.Font, rune)
	}{
		{"outline", func() (*fonttest.Font, rune) { return fonttest.Latin("latin"), 'A' }},
		{"layered", func() (*fonttest.Font, rune) { return fonttest.New("colr").ColorGlyph('X', red, blue), 'X' }},
		{"embedded", func() (*fonttest.Font, rune) { return fonttest.New("cbdt").BitmapGlyph('E', strike), 'E' }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, ch := tt.font()
			bm, err := New(WithMaxDimension(10)).Rasterize(f, f.Glyph(ch), 20, 0, false)
			assert.Nil(t, bm)
			require.ErrorIs(t, err, ErrGlyphTooLarge)

			var rerr *RasterError
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, f.ID(), rerr.Font)
			assert.Equal(t, f.Glyph(ch), rerr.Glyph)
			assert.InDelta(t, 20, rerr.Size, 0)
			assert.Contains(t, err.Error(), "glyph too large")
		})
	}
}

func TestWithMaxDimensionBounds(t *testing.T) {
	assert.Equal(t, MaxGlyphDimension, New(WithMaxDimension(0)).maxDim)
	assert.Equal(t, MaxGlyphDimension, New(WithMaxDimension(-5)).maxDim)
	assert.Equal(t, MaxGlyphDimension, New(WithMaxDimension(MaxGlyphDimension+1)).maxDim)
	assert.Equal(t, 64, New(WithMaxDimension(64)).maxDim)
}

func TestRasterizeBrokenGlyph(t *testing.T) {
	f := fonttest.Latin("latin").Break('A')
	_, err := New().Rasterize(f, f.Glyph('A'), 20, 0, false)
	require.ErrorIs(t, err, fonttest.ErrBroken)
	var rerr *RasterError
	require.ErrorAs(t, err, &rerr)
	assert.False(t, errors.Is(err, ErrGlyphTooLarge))
}

func TestBox(t *testing.T) {
	tests := []struct {
		name      string
		size      float64
		ascent    float64
		w, h      int
		left      int
		thickness int
	}{
		{"from ascent", 20, 16, 8, 14, 2, 1},
		{"no ascent", 20, 0, 8, 14, 2, 1},
		{"large", 32, 0, 13, 22, 3, 2},
		{"tiny", 2, 0, 3, 3, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bm := Box(tt.size, fontsrc.Metrics{Ascent: tt.ascent})
			require.NoError(t, bm.Validate())
			assert.Equal(t, FormatAlpha, bm.Format)
			assert.Equal(t, tt.w, bm.Width)
			assert.Equal(t, tt.h, bm.Height)
			assert.Equal(t, tt.left, bm.BearingX)
			assert.Equal(t, -tt.h, bm.BearingY, "box stands on the baseline")

			for i := 0; i < tt.thickness; i++ {
				assert.Equal(t, uint8(255), bm.AlphaAt(i, tt.h/2), "left edge column %d", i)
				assert.Equal(t, uint8(255), bm.AlphaAt(tt.w-1-i, tt.h/2), "right edge column %d", i)
				assert.Equal(t, uint8(255), bm.AlphaAt(tt.w/2, i), "top edge row %d", i)
				assert.Equal(t, uint8(255), bm.AlphaAt(tt.w/2, tt.h-1-i), "bottom edge row %d", i)
			}
			if tt.w > 2*tt.thickness && tt.h > 2*tt.thickness {
				assert.Equal(t, uint8(0), bm.AlphaAt(tt.thickness, tt.h/2), "box is hollow")
			}
		})
	}
}

func TestBoxAdvance(t *testing.T) {
	assert.InDelta(t, 12, BoxAdvance(20), 1e-9)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		bm   *Bitmap
		ok   bool
	}{
		{"nil", nil, false},
		{"empty", &Bitmap{}, true},
		{"alpha", &Bitmap{Width: 2, Height: 2, Stride: 2, Pix: make([]uint8, 4)}, true},
		{"padded stride", &Bitmap{Width: 2, Height: 2, Stride: 3, Pix: make([]uint8, 6)}, true},
		{"rgba", &Bitmap{Width: 2, Height: 1, Stride: 8, Format: FormatRGBAPremul, Pix: make([]uint8, 8)}, true},
		{"unknown format", &Bitmap{Width: 1, Height: 1, Stride: 1, Format: 7, Pix: make([]uint8, 1)}, false},
		{"negative", &Bitmap{Width: -1, Height: 1}, false},
		{"too wide", &Bitmap{Width: MaxGlyphDimension + 1, Height: 1, Stride: MaxGlyphDimension + 1}, false},
		{"short stride", &Bitmap{Width: 2, Height: 1, Stride: 4, Format: FormatRGBAPremul, Pix: make([]uint8, 4)}, false},
		{"short pix", &Bitmap{Width: 2, Height: 2, Stride: 2, Pix: make([]uint8, 3)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.bm.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrInvalidBitmap)
			}
		})
	}
}

func TestCloneIsDeep(t *testing.T) {
	bm := Box(20, fontsrc.Metrics{})
	c := bm.Clone()
	c.Pix[0] = 7
	assert.Equal(t, uint8(255), bm.Pix[0])
	assert.Equal(t, bm.Bytes(), c.Bytes())
}
