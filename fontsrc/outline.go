package fontsrc

import "math"

// SegmentOp is the drawing operation of an outline segment.
type SegmentOp uint8

const (
	SegmentMoveTo SegmentOp = iota
	SegmentLineTo
	SegmentQuadTo
	SegmentCubeTo
)

// Point is a position in pixels.
type Point struct {
	X, Y float32
}

// Segment is one path command. MoveTo and LineTo use Args[0], QuadTo uses
// Args[0:2] and CubeTo uses all three.
type Segment struct {
	Op   SegmentOp
	Args [3]Point
}

// Outline is a glyph's contours.
type Outline struct {
	Segments []Segment
}

// Empty reports whether the outline draws nothing, as for a space.
func (o Outline) Empty() bool {
	return len(o.Segments) == 0
}

// Bounds returns the control-point bounding box. Curves never leave the hull
// of their control points, so the box contains all ink.
func (o Outline) Bounds() (minX, minY, maxX, maxY float32) {
	if o.Empty() {
		return 0, 0, 0, 0
	}
	minX, minY = math.MaxFloat32, math.MaxFloat32
	maxX, maxY = -math.MaxFloat32, -math.MaxFloat32
	for _, s := range o.Segments {
		n := s.Op.points()
		for _, p := range s.Args[:n] {
			minX = min(minX, p.X)
			minY = min(minY, p.Y)
			maxX = max(maxX, p.X)
			maxY = max(maxY, p.Y)
		}
	}
	return minX, minY, maxX, maxY
}

func (op SegmentOp) points() int {
	switch op {
	case SegmentQuadTo:
		return 2
	case SegmentCubeTo:
		return 3
	default:
		return 1
	}
}
