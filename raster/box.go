package raster

import (
	"math"

	"github.com/gogpu/rendertext/fontsrc"
)

// BoxAdvance is the advance of the placeholder box.
func BoxAdvance(size float64) float64 {
	return size * 0.6
}

// Box draws the placeholder for clusters no font can render: a hollow
// rectangle standing on the baseline, as tall as most of the ascent.
func Box(size float64, m fontsrc.Metrics) *Bitmap {
	left := int(math.Round(size * 0.1))
	w := max(3, int(math.Round(BoxAdvance(size)))-2*left)
	height := m.Ascent * 0.85
	if height <= 0 {
		height = size * 0.7
	}
	h := max(3, int(math.Round(height)))
	w, h = min(w, MaxGlyphDimension), min(h, MaxGlyphDimension)

	t := max(1, int(math.Round(size/16)))
	if 2*t >= w || 2*t >= h {
		t = 1
	}
	pix := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if x < t || x >= w-t || y < t || y >= h-t {
				pix[y*w+x] = 255
			}
		}
	}
	return &Bitmap{
		Width:    w,
		Height:   h,
		Stride:   w,
		Format:   FormatAlpha,
		Pix:      pix,
		BearingX: left,
		BearingY: -h,
	}
}
