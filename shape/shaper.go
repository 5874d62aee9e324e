package shape

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/go-text/typesetting/language"

	"github.com/gogpu/rendertext/fontsrc"
	"github.com/gogpu/rendertext/internal/logging"
	"github.com/gogpu/rendertext/segment"
)

// ErrInvalidSize is returned for sizes that are not positive and finite.
var ErrInvalidSize = errors.New("shape: invalid size")

// Input describes a contiguous sequence of clusters from one run.
type Input struct {
	// Runes is the whole paragraph the clusters index into.
	Runes []rune
	// Clusters to shape, in logical order and contiguous.
	Clusters  []segment.Cluster
	Direction segment.Direction
	Script    language.Script
	Language  language.Language
	Size      float64
	Hinting   bool
}

// RunInput builds the Input for all clusters of run.
func RunInput(txt *segment.Text, run segment.Run, size float64, hinting bool) Input {
	return Input{
		Runes:     txt.Runes,
		Clusters:  run.Clusters,
		Direction: run.Direction,
		Script:    run.Script,
		Size:      size,
		Hinting:   hinting,
	}
}

// Shaper runs an Engine over the covered parts of its input.
type Shaper struct {
	engine Engine
	cache  *RunCache
}

// Option configures a Shaper.
type Option func(*Shaper)

// WithRunCache memoizes engine output in c. A nil cache disables it.
func WithRunCache(c *RunCache) Option {
	return func(s *Shaper) {
		s.cache = c
	}
}

// New returns a Shaper using engine, or HarfBuzz when engine is nil.
// Fonts the engine cannot drive are shaped with Builtin.
func New(engine Engine, opts ...Option) *Shaper {
	if engine == nil {
		engine = NewHarfBuzz()
	}
	s := &Shaper{engine: engine}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunCache returns the run cache, or nil.
func (s *Shaper) RunCache() *RunCache { return s.cache }

// Engine returns the primary engine.
func (s *Shaper) Engine() Engine { return s.engine }

// Shape shapes in with font. Clusters font cannot render are listed in
// Output.Missing and contribute no glyphs. Glyph.Cluster holds cluster
// indices.
func (s *Shaper) Shape(in Input, font fontsrc.Provider) (Output, error) {
	out := Output{Direction: in.Direction}
	if in.Size <= 0 || math.IsNaN(in.Size) || math.IsInf(in.Size, 0) {
		return out, fmt.Errorf("%w: %v", ErrInvalidSize, in.Size)
	}
	if len(in.Clusters) == 0 {
		return out, nil
	}

	cl := in.Clusters
	first := cl[0].Start
	owner := make([]int, cl[len(cl)-1].End-first)
	for _, c := range cl {
		for r := c.Start; r < c.End; r++ {
			owner[r-first] = c.Index
		}
	}

	var glyphs []Glyph
	for i := 0; i < len(cl); {
		if !fontsrc.Covers(font, in.Runes[cl[i].Start:cl[i].End]) {
			out.Missing = append(out.Missing, cl[i].Index)
			i++
			continue
		}
		j := i + 1
		for j < len(cl) && fontsrc.Covers(font, in.Runes[cl[j].Start:cl[j].End]) {
			j++
		}

		req := Request{
			Text:      in.Runes,
			Start:     cl[i].Start,
			End:       cl[j-1].End,
			Direction: in.Direction,
			Script:    in.Script,
			Language:  in.Language,
			Size:      in.Size,
			Hinting:   in.Hinting,
		}
		part, err := s.shapeRange(req, font)
		if err != nil {
			return Output{Direction: in.Direction}, err
		}

		notdef := make(map[int]bool)
		for k := range part {
			part[k].Cluster = owner[part[k].Cluster-first]
			if part[k].ID == fontsrc.NotDef {
				notdef[part[k].Cluster] = true
			}
		}
		for _, g := range part {
			if !notdef[g.Cluster] {
				glyphs = append(glyphs, g)
			}
		}
		for idx := range notdef {
			out.Missing = append(out.Missing, idx)
		}
		i = j
	}

	sort.Ints(out.Missing)
	if in.Direction == segment.DirectionRTL {
		Reverse(glyphs)
	}
	out.Glyphs = glyphs
	if len(out.Missing) > 0 {
		logging.Logger().Debug("shape: clusters missing from font",
			"font", font.Name(), "missing", len(out.Missing))
	}
	return out, nil
}

func (s *Shaper) shapeRange(req Request, font fontsrc.Provider) ([]Glyph, error) {
	if s.cache != nil {
		if glyphs, ok := s.cache.get(req, font); ok {
			return glyphs, nil
		}
	}
	glyphs, err := s.engine.Shape(req, font)
	if errors.Is(err, ErrUnsupportedFont) {
		glyphs, err = Builtin{}.Shape(req, font)
	}
	if err != nil {
		return nil, fmt.Errorf("shape: %s engine: %w", s.engine.Name(), err)
	}
	for _, g := range glyphs {
		if g.Cluster < req.Start || g.Cluster >= req.End {
			return nil, fmt.Errorf("shape: %s engine: cluster %d outside [%d, %d)",
				s.engine.Name(), g.Cluster, req.Start, req.End)
		}
	}
	if s.cache != nil {
		s.cache.put(req, font, glyphs)
	}
	return glyphs, nil
}

// Merge combines outputs shaped from disjoint clusters of one run into a
// single visual-order output. Pieces may interleave, as when a fallback
// font fills the gaps left by the primary font. A cluster missing from one
// piece but shaped in another is not reported missing.
func Merge(dir segment.Direction, pieces ...Output) Output {
	out := Output{Direction: dir}
	shaped := make(map[int]bool)
	for _, p := range pieces {
		for _, g := range p.Glyphs {
			shaped[g.Cluster] = true
		}
		out.Glyphs = append(out.Glyphs, p.Glyphs...)
	}
	seen := make(map[int]bool)
	for _, p := range pieces {
		for _, idx := range p.Missing {
			if !shaped[idx] && !seen[idx] {
				seen[idx] = true
				out.Missing = append(out.Missing, idx)
			}
		}
	}
	sort.SliceStable(out.Glyphs, func(i, j int) bool {
		if dir == segment.DirectionRTL {
			return out.Glyphs[i].Cluster > out.Glyphs[j].Cluster
		}
		return out.Glyphs[i].Cluster < out.Glyphs[j].Cluster
	})
	sort.Ints(out.Missing)
	return out
}
