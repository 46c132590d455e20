package scene

import (
	"inkgrid/pkg/graphics"
)

// Stroke is one un-packed stroke primitive in page space.
type Stroke struct {
	X0, Y0, X1, Y1 float64
	HalfWidth      float64
	Luma           float64
	Alpha          float64
	Flags          int // style flags, bit 0 = dashed
}

// Bound returns the margin-expanded axis-aligned bound of the stroke.
func (s Stroke) Bound() graphics.Rect {
	r := graphics.NewRect(s.X0, s.Y0, s.X1, s.Y1)
	return r.Expand(s.HalfWidth + StrokeMargin)
}

// Segment is a bare line segment, used for fill and glyph outlines.
type Segment struct {
	X0, Y0, X1, Y1 float64
}

// FillPath is one filled path: a span of outline segments plus style.
type FillPath struct {
	Bounds    graphics.Rect
	R, G, B   float64
	Alpha     float64
	EvenOdd   bool
	SegOffset int
	SegCount  int
}

// TextInstance places a run of glyphs with an affine matrix and colour.
type TextInstance struct {
	Matrix      [6]float64
	GlyphOffset int
	GlyphCount  int
	R, G, B     float64
	Alpha       float64
}

// Glyph is an outline defined by a span of glyph segments, plus the
// horizontal advance the renderer applies after drawing it.
type Glyph struct {
	SegOffset int
	SegCount  int
	Advance   float64
	Bounds    graphics.Rect
}

// PageGeometry accumulates the primitives extracted from one page. It is
// mutable while the extraction pipeline runs and is consumed by Compose.
type PageGeometry struct {
	Strokes       []Stroke
	FillPaths     []FillPath
	FillSegments  []Segment
	TextInstances []TextInstance
	Glyphs        []Glyph
	GlyphSegments []Segment
	Rasters       []RasterLayer

	// View is the page's view rectangle, origin at (0,0).
	View graphics.Rect

	// Provenance counters.
	SourceSegments       int
	MergedSegments       int
	DiscardedTransparent int
	DiscardedDegenerate  int
	DiscardedDuplicate   int
	DiscardedContained   int
	MalformedPaths       int
}

// NewPageGeometry creates an empty page with the given view rectangle.
func NewPageGeometry(view graphics.Rect) *PageGeometry {
	return &PageGeometry{View: view}
}

// AddStroke appends a stroke primitive.
func (g *PageGeometry) AddStroke(s Stroke) {
	g.Strokes = append(g.Strokes, s)
}

// AddFill appends a fill path and its outline segments.
func (g *PageGeometry) AddFill(f FillPath, segs []Segment) {
	f.SegOffset = len(g.FillSegments)
	f.SegCount = len(segs)
	g.FillSegments = append(g.FillSegments, segs...)
	g.FillPaths = append(g.FillPaths, f)
}

// AddGlyph appends a glyph outline and returns its index.
func (g *PageGeometry) AddGlyph(gl Glyph, segs []Segment) int {
	gl.SegOffset = len(g.GlyphSegments)
	gl.SegCount = len(segs)
	g.GlyphSegments = append(g.GlyphSegments, segs...)
	g.Glyphs = append(g.Glyphs, gl)
	return len(g.Glyphs) - 1
}

// translate shifts all page-space geometry by (dx, dy). Glyph segments
// stay put: they live in glyph space and reach the page through each
// instance's placement matrix.
func (g *PageGeometry) translate(dx, dy float64) {
	for i := range g.Strokes {
		g.Strokes[i].X0 += dx
		g.Strokes[i].Y0 += dy
		g.Strokes[i].X1 += dx
		g.Strokes[i].Y1 += dy
	}
	for i := range g.FillSegments {
		g.FillSegments[i].X0 += dx
		g.FillSegments[i].Y0 += dy
		g.FillSegments[i].X1 += dx
		g.FillSegments[i].Y1 += dy
	}
	for i := range g.FillPaths {
		g.FillPaths[i].Bounds = g.FillPaths[i].Bounds.Translate(dx, dy)
	}
	for i := range g.TextInstances {
		g.TextInstances[i].Matrix[4] += dx
		g.TextInstances[i].Matrix[5] += dy
	}
	for i := range g.Rasters {
		g.Rasters[i].Matrix[4] += dx
		g.Rasters[i].Matrix[5] += dy
	}
	g.View = g.View.Translate(dx, dy)
}
