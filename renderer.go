package rendertext

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/gogpu/rendertext/canvas"
	"github.com/gogpu/rendertext/composite"
	"github.com/gogpu/rendertext/fallback"
	"github.com/gogpu/rendertext/fontsrc"
	"github.com/gogpu/rendertext/glyphcache"
	"github.com/gogpu/rendertext/internal/logging"
	"github.com/gogpu/rendertext/raster"
	"github.com/gogpu/rendertext/segment"
	"github.com/gogpu/rendertext/shape"
)

// Renderer renders text with a fixed font chain and style. It holds a
// reference on each of its fonts until Close. It is safe for concurrent use.
type Renderer struct {
	cfg      config
	arena    *fontsrc.Arena
	cache    *glyphcache.Cache
	ownCache bool
	chain    []fontsrc.FontID
	loadErrs []error

	placeholder     fontsrc.FontID
	placeholderRune rune

	seg    *segment.Segmenter
	shaper *shape.Shaper
	comp   *composite.Compositor

	mu     sync.RWMutex
	closed bool
}

// evictHooks wires each arena and cache pair in use once, however many
// renderers share it. The hook is removed when the last of them closes.
var evictHooks = struct {
	sync.Mutex
	pairs map[hookKey]*hookRef
}{pairs: make(map[hookKey]*hookRef)}

type hookKey struct {
	arena *fontsrc.Arena
	cache *glyphcache.Cache
}

type hookRef struct {
	refs       int
	unregister func()
}

func retainEvictHook(k hookKey) {
	evictHooks.Lock()
	defer evictHooks.Unlock()
	ref, ok := evictHooks.pairs[k]
	if !ok {
		ref = &hookRef{unregister: k.arena.OnEvict(k.cache.EvictFont)}
		evictHooks.pairs[k] = ref
	}
	ref.refs++
}

func releaseEvictHook(k hookKey) {
	evictHooks.Lock()
	defer evictHooks.Unlock()
	ref, ok := evictHooks.pairs[k]
	if !ok {
		return
	}
	if ref.refs--; ref.refs == 0 {
		ref.unregister()
		delete(evictHooks.pairs, k)
	}
}

// New loads the font chain and returns a Renderer. It fails with ErrNoFonts
// only when no font of the chain loads; individual failures are available
// from LoadErrors.
func New(opts ...Option) (*Renderer, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.size <= 0 || math.IsNaN(cfg.size) || math.IsInf(cfg.size, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSize, cfg.size)
	}

	arena := cfg.arena
	if arena == nil {
		arena = fontsrc.DefaultArena()
	}
	cache, ownCache := cfg.cache, false
	switch {
	case cache != nil && cfg.cacheBudget > 0:
		cache.SetBudget(cfg.cacheBudget)
	case cache == nil && cfg.cacheBudget > 0:
		// A budget without a cache gets a private cache rather than
		// resizing the shared default under other renderers.
		cache, ownCache = glyphcache.New(glyphcache.WithBudget(cfg.cacheBudget)), true
	case cache == nil:
		cache = glyphcache.Default()
	}

	r := &Renderer{
		cfg:      cfg,
		arena:    arena,
		cache:    cache,
		ownCache: ownCache,
		seg:      segment.New(segment.WithBaseDirection(cfg.base)),
		shaper:   newShaper(cfg),
		comp:     composite.New(cache, raster.New()),
	}

	log := logging.Component("renderer")
	for _, path := range cfg.fontPaths {
		id, err := arena.Open(path)
		if err != nil {
			log.Warn("skipping font", "path", path, "err", err)
			r.loadErrs = append(r.loadErrs, err)
			continue
		}
		r.chain = append(r.chain, id)
	}
	for _, id := range cfg.fontIDs {
		if err := arena.Retain(id); err != nil {
			log.Warn("skipping font", "id", id, "err", err)
			r.loadErrs = append(r.loadErrs, err)
			continue
		}
		r.chain = append(r.chain, id)
	}
	if len(r.chain) == 0 {
		if len(r.loadErrs) == 0 {
			return nil, ErrNoFonts
		}
		return nil, errors.Join(append([]error{ErrNoFonts}, r.loadErrs...)...)
	}

	retainEvictHook(hookKey{arena, cache})
	if cfg.placeholderPath != "" {
		r.openPlaceholder(log)
	}
	return r, nil
}

func (r *Renderer) openPlaceholder(log *slog.Logger) {
	id, err := r.arena.Open(r.cfg.placeholderPath)
	if err != nil {
		log.Warn("placeholder font unavailable, using box", "path", r.cfg.placeholderPath, "err", err)
		return
	}
	p, _ := r.arena.Provider(id)
	if p == nil || !fontsrc.Covers(p, []rune{r.cfg.placeholderRune}) {
		log.Warn("placeholder glyph missing, using box", "font", r.cfg.placeholderPath,
			"rune", fmt.Sprintf("%U", r.cfg.placeholderRune))
		r.arena.Release(id)
		return
	}
	r.placeholder = id
	r.placeholderRune = r.cfg.placeholderRune
}

func newShaper(cfg config) *shape.Shaper {
	if cfg.shapeCache < 0 {
		return shape.New(cfg.engine)
	}
	return shape.New(cfg.engine, shape.WithRunCache(shape.NewRunCache(cfg.shapeCache)))
}

// LoadErrors returns the errors of chain entries that failed to load.
func (r *Renderer) LoadErrors() []error { return slices.Clone(r.loadErrs) }

// Fonts returns the IDs of the loaded chain in order.
func (r *Renderer) Fonts() []fontsrc.FontID { return slices.Clone(r.chain) }

// Render draws text into dst with the first pen position at origin on the
// baseline. Unrenderable clusters are drawn as placeholders and listed in
// Result.Degraded; they are not errors.
func (r *Renderer) Render(text string, dst *canvas.Canvas, origin image.Point) (Result, error) {
	if err := dst.Validate(); err != nil {
		return Result{}, err
	}
	return r.run(func() *segment.Text { return r.seg.SegmentString(text) }, dst, origin)
}

// RenderRunes is Render for UTF-32 input. Surrogates and values above
// U+10FFFF are drawn as replacement characters.
func (r *Renderer) RenderRunes(text []rune, dst *canvas.Canvas, origin image.Point) (Result, error) {
	if err := dst.Validate(); err != nil {
		return Result{}, err
	}
	return r.run(func() *segment.Text { return r.seg.Segment(text) }, dst, origin)
}

// Measure lays text out without drawing. Result.Bounds is the ink
// rectangle with the origin at (0, 0) on the baseline.
func (r *Renderer) Measure(text string) (Result, error) {
	return r.run(func() *segment.Text { return r.seg.SegmentString(text) }, nil, image.Point{})
}

// Close releases the Renderer's fonts. When it is the last open Renderer
// on its arena and cache, the cache stops following the arena's evictions.
// Calling it twice is safe.
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if rc := r.shaper.RunCache(); rc != nil {
		rc.Clear()
	}
	for _, id := range r.chain {
		r.arena.Release(id)
	}
	if r.placeholder != 0 {
		r.arena.Release(r.placeholder)
	}
	// After the releases, so fonts unloaded by them still leave the cache.
	releaseEvictHook(hookKey{r.arena, r.cache})
	if r.ownCache {
		r.cache.Close()
	}
	return nil
}

// call is the state of one render.
type call struct {
	r        *Renderer
	txt      *segment.Text
	lease    *fontsrc.Lease
	resolver *fallback.Resolver
	degraded map[int]error
	log      *slog.Logger
}

func (c *call) enter(s Stage) {
	c.log.Debug("render stage", "stage", s.String())
}

func (r *Renderer) run(segmentText func() *segment.Text, dst *canvas.Canvas, origin image.Point) (Result, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return Result{}, ErrClosed
	}

	c := &call{r: r, degraded: make(map[int]error), log: logging.Component("renderer")}
	c.enter(StageSegmenting)
	c.txt = segmentText()

	c.lease = r.arena.Acquire()
	defer c.lease.Release()
	resolver, err := fallback.New(c.lease, r.chain...)
	if err != nil {
		return Result{}, err
	}
	c.resolver = resolver
	defer resolver.Close()

	var glyphs []shape.Glyph
	for _, ri := range segment.VisualOrder(c.txt.Runs) {
		out, err := c.shapeRun(c.txt.Runs[ri])
		if err != nil {
			return Result{}, err
		}
		glyphs = append(glyphs, out.Glyphs...)
	}

	c.enter(StageCompositing)
	params := composite.Params{
		Color:       r.cfg.color,
		Size:        r.cfg.size,
		Hinting:     r.cfg.hinting,
		Subpixel:    r.cfg.subpixel,
		ColorGlyphs: r.cfg.colorGlyphs,
		Placeholder: raster.Box(r.cfg.size, c.primaryMetrics()),
	}
	pen := composite.Point{X: float64(origin.X), Y: float64(origin.Y)}
	var rep composite.Report
	if dst != nil {
		rep = r.comp.Composite(glyphs, pen, c.lease, dst, params)
	} else {
		rep = r.comp.Measure(glyphs, pen, c.lease, params)
	}
	for i, idx := range rep.Failed {
		c.degrade(idx, rep.Errors[i])
	}

	res := Result{
		Advance:  rep.Advance,
		Bounds:   rep.Bounds,
		Glyphs:   len(glyphs),
		Clusters: len(c.txt.Clusters),
		Degraded: c.ranges(),
	}
	c.enter(StageDone)
	return res, nil
}

// shapeRun shapes run with its primary font and fills missing clusters
// from the rest of the chain.
func (c *call) shapeRun(run segment.Run) (shape.Output, error) {
	c.enter(StageShaping)
	r := c.r
	primary, ok := c.resolver.Primary(run.Emoji)
	if !ok {
		return shape.Output{}, ErrNoFonts
	}
	in := shape.RunInput(c.txt, run, r.cfg.size, r.cfg.hinting)
	in.Language = r.cfg.language
	out, err := r.shaper.Shape(in, primary)
	if err != nil {
		return shape.Output{}, shapeErr(err)
	}
	if out.Complete() {
		return out, nil
	}

	c.enter(StageFallback)
	first := run.Clusters[0].Index
	pieces := []shape.Output{out}
	missing := out.Missing
	for len(missing) > 0 {
		cl := run.Clusters[missing[0]-first]
		res, err := c.resolver.Resolve(c.txt.ClusterRunes(cl), run.Emoji)
		if err != nil {
			c.log.Warn("unrenderable cluster", "cluster", cl.Index,
				"text", fmt.Sprintf("%+q", string(c.txt.ClusterRunes(cl))))
			c.degrade(cl.Index, err)
			pieces = append(pieces, shape.Output{Glyphs: []shape.Glyph{c.placeholderGlyph(cl.Index)}})
			missing = missing[1:]
			continue
		}

		sub := in
		n := 1
		if res.Normalized() {
			sub.Runes = res.Runes
			sub.Clusters = []segment.Cluster{{Index: cl.Index, Start: 0, End: len(res.Runes)}}
		} else {
			// Neighbouring missing clusters the same font covers are shaped
			// together so they keep their joining context.
			for n < len(missing) && missing[n] == missing[n-1]+1 {
				next := run.Clusters[missing[n]-first]
				if !fontsrc.Covers(res.Font, c.txt.ClusterRunes(next)) {
					break
				}
				n++
			}
			sub.Clusters = run.Clusters[missing[0]-first : missing[n-1]-first+1]
		}
		piece, err := r.shaper.Shape(sub, res.Font)
		if err != nil {
			return shape.Output{}, shapeErr(err)
		}
		for _, idx := range piece.Missing {
			c.degrade(idx, fmt.Errorf("%w: %s has no glyph", ErrUnrenderable, res.Font.Name()))
			piece.Glyphs = append(piece.Glyphs, c.placeholderGlyph(idx))
		}
		piece.Missing = nil
		pieces = append(pieces, piece)
		missing = missing[n:]
	}
	return shape.Merge(run.Direction, pieces...), nil
}

func shapeErr(err error) error {
	if errors.Is(err, shape.ErrInvalidSize) {
		return fmt.Errorf("%w: %w", ErrInvalidSize, err)
	}
	return err
}

// placeholderGlyph stands in for an unrenderable cluster: the configured
// placeholder glyph when there is one, otherwise the default box.
func (c *call) placeholderGlyph(cluster int) shape.Glyph {
	size := c.r.cfg.size
	if id := c.r.placeholder; id != 0 {
		if p, ok := c.lease.Provider(id); ok {
			gid, _ := p.GlyphIndex(c.r.placeholderRune)
			return shape.Glyph{
				ID:       gid,
				Cluster:  cluster,
				XAdvance: p.Advance(gid, size, c.r.cfg.hinting),
				Font:     id,
			}
		}
	}
	adv := raster.BoxAdvance(size)
	if c.r.cfg.hinting {
		adv = math.Round(adv)
	}
	return shape.Glyph{Cluster: cluster, XAdvance: adv, Flags: shape.FlagPlaceholder}
}

func (c *call) degrade(cluster int, err error) {
	if _, ok := c.degraded[cluster]; ok {
		return
	}
	c.degraded[cluster] = err
}

func (c *call) ranges() []DegradedRange {
	if len(c.degraded) == 0 {
		return nil
	}
	out := make([]DegradedRange, 0, len(c.degraded))
	for idx, err := range c.degraded {
		cl := c.txt.Clusters[idx]
		out = append(out, DegradedRange{
			Cluster:   idx,
			RuneStart: cl.Start,
			RuneEnd:   cl.End,
			ByteStart: c.txt.ByteOffset(cl.Start),
			ByteEnd:   c.txt.ByteOffset(cl.End),
			Err:       err,
		})
	}
	slices.SortFunc(out, func(a, b DegradedRange) int { return a.Cluster - b.Cluster })
	return out
}

func (c *call) primaryMetrics() fontsrc.Metrics {
	p, ok := c.resolver.Primary(false)
	if !ok {
		return fontsrc.Metrics{}
	}
	return p.Metrics(c.r.cfg.size)
}

// Render is a one-shot render with a temporary Renderer.
func Render(text string, fontChain []string, size float64, col canvas.Color, dst *canvas.Canvas, origin image.Point, opts ...Option) (Result, error) {
	all := append([]Option{WithFontChain(fontChain...), WithSize(size), WithColor(col)}, opts...)
	r, err := New(all...)
	if err != nil {
		return Result{}, err
	}
	defer r.Close()
	return r.Render(text, dst, origin)
}
