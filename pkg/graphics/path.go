package graphics

// PathOp represents a path subcommand.
type PathOp int

const (
	PathOpMoveTo  PathOp = 0
	PathOpLineTo  PathOp = 1
	PathOpCurveTo PathOp = 2 // cubic Bezier
	PathOpQuadTo  PathOp = 3 // quadratic Bezier
	PathOpClose   PathOp = 4
)

// PathSegment represents a single subcommand in a path.
type PathSegment struct {
	Op     PathOp
	Points []Point
}

// Path represents a graphics path under construction: a sequence of
// subpaths made of lines and Bezier curves.
type Path struct {
	Segments []PathSegment
	current  Point
	start    Point // start of current subpath
}

// NewPath creates a new empty path.
func NewPath() *Path {
	return &Path{}
}

// MoveTo starts a new subpath at the given point.
func (p *Path) MoveTo(x, y float64) {
	pt := Point{x, y}
	p.Segments = append(p.Segments, PathSegment{
		Op:     PathOpMoveTo,
		Points: []Point{pt},
	})
	p.current = pt
	p.start = pt
}

// LineTo draws a line from the current point to the given point.
func (p *Path) LineTo(x, y float64) {
	pt := Point{x, y}
	p.Segments = append(p.Segments, PathSegment{
		Op:     PathOpLineTo,
		Points: []Point{pt},
	})
	p.current = pt
}

// CurveTo draws a cubic Bezier curve from the current point.
// cp1 and cp2 are control points, (endX,endY) is the endpoint.
func (p *Path) CurveTo(cp1x, cp1y, cp2x, cp2y, endX, endY float64) {
	p.Segments = append(p.Segments, PathSegment{
		Op: PathOpCurveTo,
		Points: []Point{
			{cp1x, cp1y},
			{cp2x, cp2y},
			{endX, endY},
		},
	})
	p.current = Point{endX, endY}
}

// CurveToV draws a cubic Bezier curve with the first control point at the
// current point (page-description 'v' operator).
func (p *Path) CurveToV(cp2x, cp2y, endX, endY float64) {
	p.CurveTo(p.current.X, p.current.Y, cp2x, cp2y, endX, endY)
}

// CurveToY draws a cubic Bezier curve with the second control point at the
// endpoint (page-description 'y' operator).
func (p *Path) CurveToY(cp1x, cp1y, endX, endY float64) {
	p.CurveTo(cp1x, cp1y, endX, endY, endX, endY)
}

// QuadTo draws a quadratic Bezier curve from the current point.
func (p *Path) QuadTo(cpx, cpy, endX, endY float64) {
	p.Segments = append(p.Segments, PathSegment{
		Op: PathOpQuadTo,
		Points: []Point{
			{cpx, cpy},
			{endX, endY},
		},
	})
	p.current = Point{endX, endY}
}

// Close closes the current subpath with a line back to its start.
func (p *Path) Close() {
	p.Segments = append(p.Segments, PathSegment{
		Op: PathOpClose,
	})
	p.current = p.start
}

// Rect adds a rectangle to the path as a closed subpath.
func (p *Path) Rect(x, y, width, height float64) {
	p.MoveTo(x, y)
	p.LineTo(x+width, y)
	p.LineTo(x+width, y+height)
	p.LineTo(x, y+height)
	p.Close()
}

// Clear removes all segments from the path.
func (p *Path) Clear() {
	p.Segments = p.Segments[:0]
	p.current = Point{}
	p.start = Point{}
}

// IsEmpty returns true if the path has no segments.
func (p *Path) IsEmpty() bool {
	return len(p.Segments) == 0
}

// CurrentPoint returns the current point.
func (p *Path) CurrentPoint() Point {
	return p.current
}

// Clone creates a deep copy of the path.
func (p *Path) Clone() *Path {
	clone := &Path{
		Segments: make([]PathSegment, len(p.Segments)),
		current:  p.current,
		start:    p.start,
	}
	for i, seg := range p.Segments {
		clone.Segments[i] = PathSegment{
			Op:     seg.Op,
			Points: make([]Point, len(seg.Points)),
		}
		copy(clone.Segments[i].Points, seg.Points)
	}
	return clone
}

// Bounds returns the control-point bounding box of the path.
func (p *Path) Bounds() Rect {
	out := EmptyRect()
	for _, seg := range p.Segments {
		for _, pt := range seg.Points {
			out = out.ExpandPoint(pt)
		}
	}
	if out.IsEmpty() {
		return Rect{}
	}
	return out
}

// Transform returns a copy of the path with every point mapped through m.
func (p *Path) Transform(m Matrix) *Path {
	result := NewPath()
	result.Segments = make([]PathSegment, len(p.Segments))
	for i, seg := range p.Segments {
		newSeg := PathSegment{
			Op:     seg.Op,
			Points: make([]Point, len(seg.Points)),
		}
		for j, pt := range seg.Points {
			newSeg.Points[j] = m.TransformPoint(pt)
		}
		result.Segments[i] = newSeg
	}
	result.current = m.TransformPoint(p.current)
	result.start = m.TransformPoint(p.start)
	return result
}

// FillRule selects the winding rule used when a path is filled.
type FillRule int

const (
	FillRuleNonZero FillRule = iota
	FillRuleEvenOdd
)
