// Package canvas defines the caller-owned pixel buffer text is drawn into.
//
// A Canvas is never reallocated by the rendering pipeline. Glyphs are blended
// in place, and pixels that no glyph covers keep their original bytes.
package canvas

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/rendertext/internal/blend"
)

// ErrInvalidCanvas is returned for a nil canvas or one whose dimensions,
// stride and pixel slice disagree.
var ErrInvalidCanvas = errors.New("canvas: invalid canvas")

// Format describes how the four bytes of a pixel are interpreted.
type Format int

const (
	// FormatRGBA stores straight (non-premultiplied) alpha, like image.NRGBA.
	FormatRGBA Format = iota

	// FormatRGBAPremul stores premultiplied alpha, like image.RGBA.
	FormatRGBAPremul
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatRGBA:
		return "RGBA"
	case FormatRGBAPremul:
		return "RGBAPremul"
	default:
		return "Unknown"
	}
}

// Canvas is an RGBA pixel buffer with an explicit row stride in bytes.
type Canvas struct {
	Width  int
	Height int
	Stride int
	Format Format
	Pix    []uint8
}

// New allocates a zeroed (fully transparent) canvas.
func New(width, height int, format Format) *Canvas {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Canvas{
		Width:  width,
		Height: height,
		Stride: width * 4,
		Format: format,
		Pix:    make([]uint8, width*height*4),
	}
}

// Wrap adopts an existing pixel slice without copying it.
func Wrap(pix []uint8, width, height, stride int, format Format) (*Canvas, error) {
	c := &Canvas{Width: width, Height: height, Stride: stride, Format: format, Pix: pix}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// FromRGBA shares the pixels of a premultiplied image.RGBA.
func FromRGBA(img *image.RGBA) *Canvas {
	b := img.Bounds()
	off := img.PixOffset(b.Min.X, b.Min.Y)
	return &Canvas{
		Width:  b.Dx(),
		Height: b.Dy(),
		Stride: img.Stride,
		Format: FormatRGBAPremul,
		Pix:    img.Pix[off:],
	}
}

// FromNRGBA shares the pixels of a straight-alpha image.NRGBA.
func FromNRGBA(img *image.NRGBA) *Canvas {
	b := img.Bounds()
	off := img.PixOffset(b.Min.X, b.Min.Y)
	return &Canvas{
		Width:  b.Dx(),
		Height: b.Dy(),
		Stride: img.Stride,
		Format: FormatRGBA,
		Pix:    img.Pix[off:],
	}
}

// Validate reports whether the canvas can be drawn into.
func (c *Canvas) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil", ErrInvalidCanvas)
	}
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("%w: negative size %dx%d", ErrInvalidCanvas, c.Width, c.Height)
	}
	if c.Format != FormatRGBA && c.Format != FormatRGBAPremul {
		return fmt.Errorf("%w: unknown format %d", ErrInvalidCanvas, c.Format)
	}
	if c.Width == 0 || c.Height == 0 {
		return nil
	}
	if c.Stride < c.Width*4 {
		return fmt.Errorf("%w: stride %d shorter than row of %d pixels", ErrInvalidCanvas, c.Stride, c.Width)
	}
	if need := (c.Height-1)*c.Stride + c.Width*4; len(c.Pix) < need {
		return fmt.Errorf("%w: %d bytes, need %d", ErrInvalidCanvas, len(c.Pix), need)
	}
	return nil
}

// Bounds returns the canvas rectangle anchored at the origin.
func (c *Canvas) Bounds() image.Rectangle {
	return image.Rect(0, 0, c.Width, c.Height)
}

// ColorModel implements image.Image.
func (c *Canvas) ColorModel() color.Model {
	if c.Format == FormatRGBAPremul {
		return color.RGBAModel
	}
	return color.NRGBAModel
}

// At implements image.Image.
func (c *Canvas) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return color.Transparent
	}
	i := y*c.Stride + x*4
	p := c.Pix[i : i+4 : i+4]
	if c.Format == FormatRGBAPremul {
		return color.RGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
	}
	return color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]}
}

// Pixel returns the raw bytes stored at (x, y) in the canvas format.
func (c *Canvas) Pixel(x, y int) (r, g, b, a uint8) {
	if x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return 0, 0, 0, 0
	}
	i := y*c.Stride + x*4
	return c.Pix[i], c.Pix[i+1], c.Pix[i+2], c.Pix[i+3]
}

// Fill sets every pixel to col.
func (c *Canvas) Fill(col Color) {
	r, g, b, a := col.R, col.G, col.B, col.A
	if c.Format == FormatRGBAPremul {
		r, g, b, a = col.Premultiplied()
	}
	for y := 0; y < c.Height; y++ {
		row := c.Pix[y*c.Stride : y*c.Stride+c.Width*4]
		for i := 0; i < len(row); i += 4 {
			row[i], row[i+1], row[i+2], row[i+3] = r, g, b, a
		}
	}
}

// BlendPremul composites a premultiplied source pixel over (x, y).
// Out-of-bounds coordinates and fully transparent sources are no-ops.
func (c *Canvas) BlendPremul(x, y int, r, g, b, a uint8) {
	if a == 0 || x < 0 || y < 0 || x >= c.Width || y >= c.Height {
		return
	}
	i := y*c.Stride + x*4
	p := c.Pix[i : i+4 : i+4]
	if c.Format == FormatRGBAPremul {
		p[0], p[1], p[2], p[3] = blend.SourceOver(r, g, b, a, p[0], p[1], p[2], p[3])
		return
	}
	p[0], p[1], p[2], p[3] = blend.SourceOverStraight(r, g, b, a, p[0], p[1], p[2], p[3])
}

// BlendCoverage paints col at (x, y) with the given 8-bit coverage.
func (c *Canvas) BlendCoverage(x, y int, col Color, coverage uint8) {
	if coverage == 0 {
		return
	}
	r, g, b, a := col.Premultiplied()
	r, g, b, a = blend.Coverage(r, g, b, a, coverage)
	c.BlendPremul(x, y, r, g, b, a)
}

// ToNRGBA copies the canvas into a new straight-alpha image.
func (c *Canvas) ToNRGBA() *image.NRGBA {
	img := image.NewNRGBA(c.Bounds())
	for y := 0; y < c.Height; y++ {
		src := c.Pix[y*c.Stride : y*c.Stride+c.Width*4]
		dst := img.Pix[y*img.Stride : y*img.Stride+c.Width*4]
		if c.Format == FormatRGBA {
			copy(dst, src)
			continue
		}
		for i := 0; i < len(src); i += 4 {
			dst[i], dst[i+1], dst[i+2], dst[i+3] = blend.Unpremultiply(src[i], src[i+1], src[i+2], src[i+3])
		}
	}
	return img
}
