package rendertext

import "image"

// Stage is a step of a render call.
type Stage int

const (
	StageSegmenting Stage = iota
	StageShaping
	StageFallback
	StageCompositing
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageSegmenting:
		return "segmenting"
	case StageShaping:
		return "shaping"
	case StageFallback:
		return "fallback"
	case StageCompositing:
		return "compositing"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// DegradedRange is a cluster drawn as a placeholder.
type DegradedRange struct {
	// Cluster is the cluster index in logical order.
	Cluster int
	// RuneStart and RuneEnd delimit the cluster in the input runes.
	RuneStart, RuneEnd int
	// ByteStart and ByteEnd delimit the cluster in the UTF-8 input.
	ByteStart, ByteEnd int
	// Err is ErrUnrenderable or a *RasterError.
	Err error
}

// Result describes a render or measure call.
type Result struct {
	// Advance is the total horizontal pen advance in pixels.
	Advance float64
	// Bounds is the rectangle of pixels written to. For Measure it is the
	// unclipped ink rectangle relative to the origin.
	Bounds image.Rectangle
	// Glyphs is the number of glyphs laid out, placeholders included.
	Glyphs int
	// Clusters is the number of grapheme clusters in the input.
	Clusters int
	// Degraded lists placeholder clusters in logical order, each once.
	Degraded []DegradedRange
}

// Partial reports whether some clusters were drawn as placeholders.
func (r Result) Partial() bool { return len(r.Degraded) > 0 }
