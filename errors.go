package rendertext

import (
	"errors"

	"github.com/gogpu/rendertext/canvas"
	"github.com/gogpu/rendertext/fallback"
	"github.com/gogpu/rendertext/fontsrc"
	"github.com/gogpu/rendertext/glyphcache"
	"github.com/gogpu/rendertext/raster"
)

var (
	// ErrNoFonts is returned when no font of the chain could be loaded. It
	// is joined with the individual load errors.
	ErrNoFonts = errors.New("rendertext: no usable font")

	// ErrInvalidSize is returned for sizes that are not positive and finite.
	ErrInvalidSize = errors.New("rendertext: invalid size")

	// ErrClosed is returned by a Renderer after Close.
	ErrClosed = errors.New("rendertext: renderer closed")

	// ErrUnrenderable marks degraded clusters no font could render.
	ErrUnrenderable = fallback.ErrUnrenderable

	// ErrInvalidCanvas is returned for a canvas that cannot be drawn into.
	ErrInvalidCanvas = canvas.ErrInvalidCanvas

	// ErrCorruptEntry marks glyph cache entries that failed verification.
	// They are logged and recomputed, never returned.
	ErrCorruptEntry = glyphcache.ErrCorruptEntry
)

// LoadError reports a font of the chain that failed to load.
type LoadError = fontsrc.LoadError

// RasterError reports a glyph that failed to rasterize.
type RasterError = raster.RasterError
