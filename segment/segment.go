// Package segment splits text into grapheme clusters and into runs of
// uniform script, bidi level and emoji presentation.
//
// Clusters follow UAX #29 extended grapheme rules, bidi levels follow
// UAX #9. Runs never split a cluster. Invalid input (malformed UTF-8,
// surrogates, values beyond U+10FFFF) becomes U+FFFD in its own cluster.
package segment

import (
	"sync"
	"unicode/utf8"

	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/segmenter"

	"github.com/gogpu/rendertext/emoji"
)

// Direction is a horizontal text direction.
type Direction int

const (
	// DirectionAuto picks the paragraph direction from the first strong
	// character. It is only meaningful as a base direction.
	DirectionAuto Direction = iota
	DirectionLTR
	DirectionRTL
)

func (d Direction) String() string {
	switch d {
	case DirectionLTR:
		return "LTR"
	case DirectionRTL:
		return "RTL"
	}
	return "Auto"
}

// Cluster is one user-perceived character: runes [Start, End) of the text.
type Cluster struct {
	Index   int
	Start   int
	End     int
	Invalid bool
}

// Len returns the number of runes in the cluster.
func (c Cluster) Len() int { return c.End - c.Start }

// Run is a maximal sequence of clusters sharing script, direction and
// emoji presentation. Start and End are rune offsets, ByteStart and
// ByteEnd the matching UTF-8 offsets.
type Run struct {
	Start     int
	End       int
	ByteStart int
	ByteEnd   int
	Script    language.Script
	Direction Direction
	Level     int
	Emoji     bool
	Clusters  []Cluster
}

// Text is segmented input.
type Text struct {
	// Runes is the input with invalid units replaced by U+FFFD.
	Runes    []rune
	Clusters []Cluster
	// Runs are in logical order.
	Runs []Run
	// Base is the resolved paragraph direction.
	Base Direction

	offsets []int // UTF-8 byte offset of each rune, plus the total length
}

// ClusterRunes returns the runes of c.
func (t *Text) ClusterRunes(c Cluster) []rune {
	return t.Runes[c.Start:c.End]
}

// ByteOffset maps a rune offset to a byte offset in the source text.
func (t *Text) ByteOffset(runeOffset int) int {
	return t.offsets[runeOffset]
}

// Option configures a Segmenter.
type Option func(*Segmenter)

// WithBaseDirection sets the paragraph direction. The default is
// DirectionAuto.
func WithBaseDirection(d Direction) Option {
	return func(s *Segmenter) { s.base = d }
}

// Segmenter is safe for concurrent use.
type Segmenter struct {
	base Direction
	pool sync.Pool
}

// New returns a Segmenter.
func New(opts ...Option) *Segmenter {
	s := &Segmenter{}
	s.pool.New = func() any { return new(segmenter.Segmenter) }
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SegmentString segments UTF-8 text. Byte offsets refer to s, so a
// malformed byte keeps its width of one.
func (s *Segmenter) SegmentString(text string) *Text {
	runes := make([]rune, 0, len(text))
	offsets := make([]int, 0, len(text)+1)
	var invalid []bool
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		bad := r == utf8.RuneError && size <= 1
		if bad && invalid == nil {
			invalid = make([]bool, len(runes), len(text))
		}
		if invalid != nil {
			invalid = append(invalid, bad)
		}
		runes = append(runes, r)
		offsets = append(offsets, i)
		i += size
	}
	offsets = append(offsets, len(text))
	return s.segment(runes, offsets, invalid)
}

// Segment segments UTF-32 input. The slice is not modified.
func (s *Segmenter) Segment(input []rune) *Text {
	runes := make([]rune, len(input))
	offsets := make([]int, len(input)+1)
	var invalid []bool
	off := 0
	for i, r := range input {
		if !utf8.ValidRune(r) {
			if invalid == nil {
				invalid = make([]bool, len(input))
			}
			invalid[i] = true
			r = utf8.RuneError
		}
		runes[i] = r
		offsets[i] = off
		off += utf8.RuneLen(r)
	}
	offsets[len(input)] = off
	return s.segment(runes, offsets, invalid)
}

func (s *Segmenter) segment(runes []rune, offsets []int, invalid []bool) *Text {
	t := &Text{Runes: runes, offsets: offsets, Base: DirectionLTR}
	if len(runes) == 0 {
		return t
	}

	t.Clusters = s.clusters(runes, invalid)

	base := s.base
	if base == DirectionAuto {
		base = firstStrong(runes)
	}
	t.Base = base
	levels := bidiLevels(runes, base)
	scripts := resolveScripts(runes)
	t.Runs = buildRuns(t, levels, scripts)
	return t
}

// clusters computes grapheme clusters and isolates invalid units.
func (s *Segmenter) clusters(runes []rune, invalid []bool) []Cluster {
	seg := s.pool.Get().(*segmenter.Segmenter)
	defer s.pool.Put(seg)

	seg.Init(runes)
	it := seg.GraphemeIterator()
	out := make([]Cluster, 0, len(runes))
	for it.Next() {
		g := it.Grapheme()
		start, end := g.Offset, g.Offset+len(g.Text)
		if invalid == nil {
			out = append(out, Cluster{Start: start, End: end})
			continue
		}
		// Split around invalid units so each stands alone.
		from := start
		for i := start; i < end; i++ {
			if !invalid[i] {
				continue
			}
			if i > from {
				out = append(out, Cluster{Start: from, End: i})
			}
			out = append(out, Cluster{Start: i, End: i + 1, Invalid: true})
			from = i + 1
		}
		if from < end {
			out = append(out, Cluster{Start: from, End: end})
		}
	}
	for i := range out {
		out[i].Index = i
	}
	return out
}

// Clusters returns the grapheme clusters of s using a default Segmenter.
func Clusters(s string) []Cluster {
	return defaultSegmenter.SegmentString(s).Clusters
}

var defaultSegmenter = New()

func buildRuns(t *Text, levels []int, scripts []language.Script) []Run {
	runs := make([]Run, 0, 4)
	for i, c := range t.Clusters {
		level := levels[c.Start]
		script := scripts[c.Start]
		isEmoji := !c.Invalid && emoji.IsEmojiCluster(t.Runes[c.Start:c.End])
		if n := len(runs); n > 0 {
			last := &runs[n-1]
			if last.Level == level && last.Script == script && last.Emoji == isEmoji {
				last.End = c.End
				last.ByteEnd = t.offsets[c.End]
				last.Clusters = t.Clusters[last.Clusters[0].Index : i+1]
				continue
			}
		}
		dir := DirectionLTR
		if level%2 == 1 {
			dir = DirectionRTL
		}
		runs = append(runs, Run{
			Start:     c.Start,
			End:       c.End,
			ByteStart: t.offsets[c.Start],
			ByteEnd:   t.offsets[c.End],
			Script:    script,
			Direction: dir,
			Level:     level,
			Emoji:     isEmoji,
			Clusters:  t.Clusters[i : i+1],
		})
	}
	return runs
}
