package rendertext

import (
	"github.com/go-text/typesetting/language"

	"github.com/gogpu/rendertext/canvas"
	"github.com/gogpu/rendertext/fontsrc"
	"github.com/gogpu/rendertext/glyphcache"
	"github.com/gogpu/rendertext/segment"
	"github.com/gogpu/rendertext/shape"
)

// DefaultSize is the font size in pixels used when WithSize is not given.
const DefaultSize = 16

// Option configures a Renderer.
//
// Example:
//
//	r, err := rendertext.New(
//		rendertext.WithFontChain("DejaVuSans.ttf", "NotoSansArabic.ttf"),
//		rendertext.WithSize(20),
//		rendertext.WithColor(canvas.Color{R: 0x33, G: 0x33, B: 0x33, A: 0xff}),
//	)
type Option func(*config)

type config struct {
	fontPaths       []string
	fontIDs         []fontsrc.FontID
	size            float64
	color           canvas.Color
	hinting         bool
	subpixel        bool
	colorGlyphs     bool
	placeholderPath string
	placeholderRune rune
	cacheBudget     int64
	shapeCache      int
	cache           *glyphcache.Cache
	arena           *fontsrc.Arena
	base            segment.Direction
	language        language.Language
	engine          shape.Engine
}

func defaultConfig() config {
	return config{
		size:        DefaultSize,
		color:       canvas.Black,
		hinting:     true,
		subpixel:    true,
		colorGlyphs: true,
		base:        segment.DirectionAuto,
	}
}

// WithFontChain appends font files, or font names resolved against the
// system font directories, to the fallback chain. Entries that fail to load
// are skipped and reported by Renderer.LoadErrors.
func WithFontChain(paths ...string) Option {
	return func(c *config) {
		c.fontPaths = append(c.fontPaths, paths...)
	}
}

// WithFonts appends fonts already loaded into the arena to the chain. They
// come after fonts given by WithFontChain.
func WithFonts(ids ...fontsrc.FontID) Option {
	return func(c *config) {
		c.fontIDs = append(c.fontIDs, ids...)
	}
}

// WithSize sets the font size in fractional pixels per em.
func WithSize(px float64) Option {
	return func(c *config) {
		c.size = px
	}
}

// WithColor sets the text colour. Colour glyphs keep their own colours.
func WithColor(col canvas.Color) Option {
	return func(c *config) {
		c.color = col
	}
}

// WithHinting enables grid fitting: whole-pixel advances and glyph
// positions. It is on by default.
func WithHinting(on bool) Option {
	return func(c *config) {
		c.hinting = on
	}
}

// WithSubpixel enables quarter-pixel glyph positioning when hinting is off.
// It is on by default.
func WithSubpixel(on bool) Option {
	return func(c *config) {
		c.subpixel = on
	}
}

// WithColorGlyphs controls whether COLR and bitmap glyphs are drawn in
// colour. When off they are drawn as outlines in the text colour.
func WithColorGlyphs(on bool) Option {
	return func(c *config) {
		c.colorGlyphs = on
	}
}

// WithPlaceholder draws unrenderable clusters with glyph r of the font at
// path instead of the default box.
func WithPlaceholder(path string, r rune) Option {
	return func(c *config) {
		c.placeholderPath = path
		c.placeholderRune = r
	}
}

// WithCacheBudget sets a glyph cache byte budget. Together with WithCache it
// resizes that cache, which affects every user of it. Without WithCache the
// Renderer gets a private cache of that budget instead of the shared
// glyphcache.Default, and closes it in Close.
func WithCacheBudget(bytes int64) Option {
	return func(c *config) {
		c.cacheBudget = bytes
	}
}

// WithShapeCache sets how many shaped runs per shard the Renderer keeps
// for repeated text. Zero selects shape.DefaultRunCapacity and a negative
// value disables the cache.
func WithShapeCache(entries int) Option {
	return func(c *config) {
		c.shapeCache = entries
	}
}

// WithCache uses cache instead of the process-wide glyph cache.
func WithCache(cache *glyphcache.Cache) Option {
	return func(c *config) {
		c.cache = cache
	}
}

// WithArena loads fonts into arena instead of the process-wide arena.
func WithArena(arena *fontsrc.Arena) Option {
	return func(c *config) {
		c.arena = arena
	}
}

// WithBaseDirection sets the paragraph direction. The default detects it
// from the first strong character.
func WithBaseDirection(d segment.Direction) Option {
	return func(c *config) {
		c.base = d
	}
}

// WithLanguage sets the BCP 47 language tag passed to the shaper.
func WithLanguage(tag string) Option {
	return func(c *config) {
		c.language = language.NewLanguage(tag)
	}
}

// WithEngine replaces the shaping engine. The default is shape.HarfBuzz.
func WithEngine(e shape.Engine) Option {
	return func(c *config) {
		c.engine = e
	}
}
