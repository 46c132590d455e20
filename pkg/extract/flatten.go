// Package extract turns page-description operator streams into scene
// geometry: it interprets operators against a stacked graphics state,
// flattens curves, merges collinear segments, and culls invisible
// strokes before the scene packer takes over.
package extract

// DefaultFlatness is the maximum perpendicular deviation, in world
// units, between a curve and its polyline approximation.
const DefaultFlatness = 0.35

// DefaultMaxSplitDepth is the recursion bound for curve subdivision.
const DefaultMaxSplitDepth = 9

// Flattener converts Bezier curves to chords with bounded deviation.
// The zero value is unusable; call NewFlattener.
type Flattener struct {
	flatnessSq float64
	maxDepth   int

	// Subdivision worklist, reused across curves. Holds at most
	// maxDepth+1 pending halves.
	stack []cubicFrame
}

type cubicFrame struct {
	p     [8]float64 // x0,y0 cx1,cy1 cx2,cy2 x3,y3
	depth int
}

// NewFlattener creates a flattener with the given flatness (world
// units) and subdivision depth limit. Non-positive arguments fall back
// to the defaults.
func NewFlattener(flatness float64, maxDepth int) *Flattener {
	if flatness <= 0 {
		flatness = DefaultFlatness
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxSplitDepth
	}
	return &Flattener{
		flatnessSq: flatness * flatness,
		maxDepth:   maxDepth,
		stack:      make([]cubicFrame, 0, maxDepth+1),
	}
}

// FlattenCubic emits chords approximating the cubic Bezier
// (x0,y0)-(cx1,cy1)-(cx2,cy2)-(x3,y3) through emit, in curve order.
//
// Subdivision is adaptive de Casteljau: a curve segment is emitted as
// its chord once both control points sit within the flatness band of
// the chord, or once the depth limit is reached. The left half is
// always processed before the right half so output order follows the
// curve.
func (f *Flattener) FlattenCubic(x0, y0, cx1, cy1, cx2, cy2, x3, y3 float64, emit func(x0, y0, x1, y1 float64)) {
	f.stack = f.stack[:0]
	cur := cubicFrame{p: [8]float64{x0, y0, cx1, cy1, cx2, cy2, x3, y3}}

	for {
		if cur.depth >= f.maxDepth || f.flatEnough(&cur.p) {
			emit(cur.p[0], cur.p[1], cur.p[6], cur.p[7])
			n := len(f.stack)
			if n == 0 {
				return
			}
			cur = f.stack[n-1]
			f.stack = f.stack[:n-1]
			continue
		}
		left, right := subdivideCubic(&cur.p)
		f.stack = append(f.stack, cubicFrame{p: right, depth: cur.depth + 1})
		cur = cubicFrame{p: left, depth: cur.depth + 1}
	}
}

// FlattenQuad emits chords for a quadratic Bezier by elevating it to a
// cubic and flattening that.
func (f *Flattener) FlattenQuad(x0, y0, cx, cy, x1, y1 float64, emit func(x0, y0, x1, y1 float64)) {
	// P1' = P0 + 2/3 (P1 - P0), P2' = P3 + 2/3 (P1 - P3)
	c1x := x0 + 2.0/3.0*(cx-x0)
	c1y := y0 + 2.0/3.0*(cy-y0)
	c2x := x1 + 2.0/3.0*(cx-x1)
	c2y := y1 + 2.0/3.0*(cy-y1)
	f.FlattenCubic(x0, y0, c1x, c1y, c2x, c2y, x1, y1, emit)
}

// flatEnough tests the squared perpendicular distance of both control
// points against the chord P0-P3.
func (f *Flattener) flatEnough(p *[8]float64) bool {
	dx := p[6] - p[0]
	dy := p[7] - p[1]
	lenSq := dx*dx + dy*dy
	if lenSq < 1e-18 {
		// Degenerate chord: measure control offsets directly.
		d1 := sq(p[2]-p[0]) + sq(p[3]-p[1])
		d2 := sq(p[4]-p[0]) + sq(p[5]-p[1])
		return d1 <= f.flatnessSq && d2 <= f.flatnessSq
	}
	// Cross products give distance * chordLength.
	c1 := (p[2]-p[0])*dy - (p[3]-p[1])*dx
	c2 := (p[4]-p[0])*dy - (p[5]-p[1])*dx
	d1 := c1 * c1 / lenSq
	d2 := c2 * c2 / lenSq
	return d1 <= f.flatnessSq && d2 <= f.flatnessSq
}

// subdivideCubic splits at t=0.5 via midpoints.
func subdivideCubic(p *[8]float64) (left, right [8]float64) {
	m01x, m01y := mid(p[0], p[2]), mid(p[1], p[3])
	m12x, m12y := mid(p[2], p[4]), mid(p[3], p[5])
	m23x, m23y := mid(p[4], p[6]), mid(p[5], p[7])
	m012x, m012y := mid(m01x, m12x), mid(m01y, m12y)
	m123x, m123y := mid(m12x, m23x), mid(m12y, m23y)
	mx, my := mid(m012x, m123x), mid(m012y, m123y)

	left = [8]float64{p[0], p[1], m01x, m01y, m012x, m012y, mx, my}
	right = [8]float64{mx, my, m123x, m123y, m23x, m23y, p[6], p[7]}
	return left, right
}

func mid(a, b float64) float64 { return (a + b) / 2 }

func sq(v float64) float64 { return v * v }
