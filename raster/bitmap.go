// Package raster turns glyphs into bitmaps: 8-bit coverage for outline
// glyphs and premultiplied RGBA for colour glyphs.
package raster

import (
	"errors"
	"fmt"

	"github.com/gogpu/rendertext/fontsrc"
)

// MaxGlyphDimension bounds the width and height of a glyph bitmap.
const MaxGlyphDimension = 2048

var (
	// ErrGlyphTooLarge is returned when a glyph bitmap would exceed
	// MaxGlyphDimension in either direction.
	ErrGlyphTooLarge = errors.New("raster: glyph too large")

	// ErrInvalidBitmap is returned by Bitmap.Validate.
	ErrInvalidBitmap = errors.New("raster: invalid bitmap")
)

// RasterError reports a glyph that could not be rasterized.
type RasterError struct {
	Font  fontsrc.FontID
	Glyph fontsrc.GlyphID
	Size  float64
	Err   error
}

func (e *RasterError) Error() string {
	return fmt.Sprintf("raster: font %d glyph %d at %gpx: %v", e.Font, e.Glyph, e.Size, e.Err)
}

func (e *RasterError) Unwrap() error { return e.Err }

// Format is the pixel layout of a Bitmap.
type Format uint8

const (
	// FormatAlpha is one coverage byte per pixel.
	FormatAlpha Format = iota
	// FormatRGBAPremul is four premultiplied bytes per pixel.
	FormatRGBAPremul
)

// BytesPerPixel returns the pixel size of f.
func (f Format) BytesPerPixel() int {
	if f == FormatRGBAPremul {
		return 4
	}
	return 1
}

func (f Format) String() string {
	switch f {
	case FormatAlpha:
		return "Alpha"
	case FormatRGBAPremul:
		return "RGBAPremul"
	default:
		return "Unknown"
	}
}

// Bitmap is a rasterized glyph. BearingX and BearingY place its top-left
// pixel relative to the integer pen position on the baseline, with y
// pointing down, so BearingY is negative for ink above the baseline.
type Bitmap struct {
	Width    int
	Height   int
	Stride   int
	Format   Format
	Pix      []uint8
	BearingX int
	BearingY int
}

// Empty reports whether the bitmap has no pixels, as for whitespace.
func (b *Bitmap) Empty() bool {
	return b.Width == 0 || b.Height == 0
}

// Color reports whether the bitmap carries its own colours.
func (b *Bitmap) Color() bool { return b.Format == FormatRGBAPremul }

// Bytes returns the size of the pixel data.
func (b *Bitmap) Bytes() int { return len(b.Pix) }

// Validate checks that dimensions, stride and pixel data agree.
func (b *Bitmap) Validate() error {
	if b == nil {
		return fmt.Errorf("%w: nil", ErrInvalidBitmap)
	}
	if b.Format != FormatAlpha && b.Format != FormatRGBAPremul {
		return fmt.Errorf("%w: format %d", ErrInvalidBitmap, b.Format)
	}
	if b.Width < 0 || b.Height < 0 || b.Width > MaxGlyphDimension || b.Height > MaxGlyphDimension {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidBitmap, b.Width, b.Height)
	}
	if b.Empty() {
		return nil
	}
	if b.Stride < b.Width*b.Format.BytesPerPixel() {
		return fmt.Errorf("%w: stride %d for width %d", ErrInvalidBitmap, b.Stride, b.Width)
	}
	if len(b.Pix) != b.Stride*b.Height {
		return fmt.Errorf("%w: %d bytes for %d rows of %d", ErrInvalidBitmap, len(b.Pix), b.Height, b.Stride)
	}
	return nil
}

// AlphaAt returns the coverage, or alpha for colour bitmaps, at (x, y).
func (b *Bitmap) AlphaAt(x, y int) uint8 {
	if x < 0 || y < 0 || x >= b.Width || y >= b.Height {
		return 0
	}
	if b.Format == FormatRGBAPremul {
		return b.Pix[y*b.Stride+x*4+3]
	}
	return b.Pix[y*b.Stride+x]
}

// Clone returns a deep copy.
func (b *Bitmap) Clone() *Bitmap {
	c := *b
	c.Pix = append([]uint8(nil), b.Pix...)
	return &c
}
