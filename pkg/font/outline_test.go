package font

import (
	"testing"

	"inkgrid/pkg/font/ttf"
	"inkgrid/pkg/graphics"
)

func TestBoxGlyphs(t *testing.T) {
	var b BoxGlyphs

	gid, ok := b.GlyphID('A')
	if !ok || gid != 'A' {
		t.Errorf("GlyphID('A') = (%d, %v)", gid, ok)
	}
	if adv := b.Advance(gid); adv != BoxAdvance {
		t.Errorf("Advance = %v, want %v", adv, BoxAdvance)
	}

	outline, ok := b.Outline('A')
	if !ok || outline.IsEmpty() {
		t.Fatal("letter glyph should have an outline")
	}
	bounds := outline.Bounds()
	if bounds.MaxX > BoxAdvance || bounds.MaxY > 1 {
		t.Errorf("outline bounds %+v exceed the em square", bounds)
	}

	space, ok := b.Outline(' ')
	if !ok || !space.IsEmpty() {
		t.Error("space glyph should be empty")
	}
}

// squareGlyph is a 500x500 square contour with every point on-curve.
func squareGlyph() *ttf.Glyph {
	return &ttf.Glyph{
		Contours: []ttf.Contour{{
			{X: 0, Y: 0, OnCurve: true},
			{X: 500, Y: 0, OnCurve: true},
			{X: 500, Y: 500, OnCurve: true},
			{X: 0, Y: 500, OnCurve: true},
		}},
	}
}

func TestSimplePath_Square(t *testing.T) {
	path := simplePath(squareGlyph())
	if path.IsEmpty() {
		t.Fatal("no outline emitted")
	}

	bounds := path.Bounds()
	want := graphics.Rect{MinX: 0, MinY: 0, MaxX: 500, MaxY: 500}
	if bounds != want {
		t.Errorf("bounds = %+v, want %+v", bounds, want)
	}

	// All-on-curve contour must contain no curve segments.
	for _, seg := range path.Segments {
		if seg.Op == graphics.PathOpQuadTo || seg.Op == graphics.PathOpCurveTo {
			t.Error("square contour produced curve segments")
		}
	}
}

func TestSimplePath_QuadContour(t *testing.T) {
	// On-curve, off-curve, on-curve: a single quadratic arch.
	glyph := &ttf.Glyph{
		Contours: []ttf.Contour{{
			{X: 0, Y: 0, OnCurve: true},
			{X: 250, Y: 500, OnCurve: false},
			{X: 500, Y: 0, OnCurve: true},
		}},
	}
	path := simplePath(glyph)

	quads := 0
	for _, seg := range path.Segments {
		if seg.Op == graphics.PathOpQuadTo {
			quads++
		}
	}
	if quads != 1 {
		t.Errorf("got %d quadratic segments, want 1", quads)
	}
}

func TestSimplePath_ConsecutiveOffCurve(t *testing.T) {
	// Two consecutive off-curve points imply an on-curve midpoint, so
	// the contour splits into two quadratics.
	glyph := &ttf.Glyph{
		Contours: []ttf.Contour{{
			{X: 0, Y: 0, OnCurve: true},
			{X: 100, Y: 500, OnCurve: false},
			{X: 400, Y: 500, OnCurve: false},
			{X: 500, Y: 0, OnCurve: true},
		}},
	}
	path := simplePath(glyph)

	quads := 0
	for _, seg := range path.Segments {
		if seg.Op == graphics.PathOpQuadTo {
			quads++
		}
	}
	if quads != 2 {
		t.Errorf("got %d quadratic segments, want 2", quads)
	}
}
