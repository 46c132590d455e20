package scene

import (
	"testing"

	"inkgrid/pkg/graphics"
)

func pageWithStroke(x0, y0, x1, y1 float64) *PageGeometry {
	g := NewPageGeometry(graphics.Rect{MaxX: 100, MaxY: 50})
	g.AddStroke(Stroke{X0: x0, Y0: y0, X1: x1, Y1: y1, HalfWidth: 1, Alpha: 1})
	g.SourceSegments = 1
	g.MergedSegments = 1
	return g
}

func TestDefaultPagesPerRow(t *testing.T) {
	tests := []struct{ n, want int }{
		{0, 1}, {1, 1}, {2, 2}, {4, 2}, {5, 3}, {9, 3}, {10, 4}, {10001, 100},
	}
	for _, tt := range tests {
		if got := DefaultPagesPerRow(tt.n); got != tt.want {
			t.Errorf("DefaultPagesPerRow(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestCompose_SinglePage(t *testing.T) {
	s, err := Compose([]*PageGeometry{pageWithStroke(0, 0, 10, 0)}, ComposeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if s.PageCount != 1 || s.PagesPerRow != 1 {
		t.Errorf("pages = %d per row %d", s.PageCount, s.PagesPerRow)
	}
	if len(s.PageRects) != 1 {
		t.Fatalf("page rects = %d", len(s.PageRects))
	}
	if s.PageRects[0] != (graphics.Rect{MaxX: 100, MaxY: 50}) {
		t.Errorf("page rect = %+v", s.PageRects[0])
	}
	e := s.StrokeEndpoints.Texel(0)
	if e[0] != 0 || e[2] != 10 {
		t.Errorf("endpoints = %v; single page must not be translated", e)
	}
}

func TestCompose_RowMajorTranslation(t *testing.T) {
	pages := []*PageGeometry{
		pageWithStroke(0, 0, 10, 0),
		pageWithStroke(0, 0, 10, 0),
		pageWithStroke(0, 0, 10, 0),
	}
	s, err := Compose(pages, ComposeOptions{PagesPerRow: 2})
	if err != nil {
		t.Fatal(err)
	}
	if s.PageCount != 3 || s.PagesPerRow != 2 {
		t.Fatalf("pages = %d per row %d", s.PageCount, s.PagesPerRow)
	}

	// Row stride: width 100 + gap; row height: 50 + gap.
	strideX := 100.0 + PageGap
	strideY := 50.0 + PageGap

	wantOrigins := [][2]float64{
		{0, 0},
		{strideX, 0},
		{0, strideY},
	}
	for i, want := range wantOrigins {
		e := s.StrokeEndpoints.Texel(i)
		if float64(e[0]) != want[0] || float64(e[1]) != want[1] {
			t.Errorf("page %d stroke start = (%v, %v), want (%v, %v)",
				i, e[0], e[1], want[0], want[1])
		}
		r := s.PageRects[i]
		if r.MinX != want[0] || r.MinY != want[1] {
			t.Errorf("page %d rect origin = (%v, %v), want (%v, %v)",
				i, r.MinX, r.MinY, want[0], want[1])
		}
	}

	// Page bounds cover all page rects.
	if s.PageBounds.MaxX != strideX+100 || s.PageBounds.MaxY != strideY+50 {
		t.Errorf("page bounds = %+v", s.PageBounds)
	}
}

func TestCompose_IndexRangesShift(t *testing.T) {
	p0 := NewPageGeometry(graphics.Rect{MaxX: 100, MaxY: 50})
	p0.AddFill(FillPath{Bounds: graphics.Rect{MaxX: 10, MaxY: 10}, Alpha: 1},
		[]Segment{{0, 0, 10, 0}, {10, 0, 0, 0}})
	g0 := p0.AddGlyph(Glyph{Advance: 0.5, Bounds: graphics.Rect{MaxX: 1, MaxY: 1}},
		[]Segment{{0, 0, 1, 0}})
	p0.TextInstances = append(p0.TextInstances, TextInstance{
		Matrix: [6]float64{1, 0, 0, 1, 0, 0}, GlyphOffset: g0, GlyphCount: 1, Alpha: 1,
	})

	p1 := NewPageGeometry(graphics.Rect{MaxX: 100, MaxY: 50})
	p1.AddFill(FillPath{Bounds: graphics.Rect{MaxX: 10, MaxY: 10}, Alpha: 1},
		[]Segment{{0, 0, 10, 10}, {10, 10, 0, 0}, {0, 0, 5, 5}})
	g1 := p1.AddGlyph(Glyph{Advance: 0.5, Bounds: graphics.Rect{MaxX: 1, MaxY: 1}},
		[]Segment{{0, 0, 1, 1}, {1, 1, 0, 0}})
	p1.TextInstances = append(p1.TextInstances, TextInstance{
		Matrix: [6]float64{1, 0, 0, 1, 5, 5}, GlyphOffset: g1, GlyphCount: 1, Alpha: 1,
	})

	s, err := Compose([]*PageGeometry{p0, p1}, ComposeOptions{PagesPerRow: 2})
	if err != nil {
		t.Fatal(err)
	}

	if s.FillPathCount != 2 || s.FillSegmentCount != 5 {
		t.Fatalf("fills = %d segments = %d", s.FillPathCount, s.FillSegmentCount)
	}
	// Page 1's fill references segments after page 0's two.
	b := s.FillMetaB.Texel(1)
	if int(b[0]) != 2 || int(b[1]) != 3 {
		t.Errorf("fill 1 range = (%v, %v), want (2, 3)", b[0], b[1])
	}

	if s.GlyphCount != 2 || s.GlyphSegmentCount != 3 {
		t.Fatalf("glyphs = %d segments = %d", s.GlyphCount, s.GlyphSegmentCount)
	}
	gm := s.GlyphMetaA.Texel(1)
	if int(gm[0]) != 1 || int(gm[1]) != 2 {
		t.Errorf("glyph 1 range = (%v, %v), want (1, 2)", gm[0], gm[1])
	}
	ti := s.TextInstanceB.Texel(1)
	if int(ti[2]) != 1 {
		t.Errorf("instance 1 glyph offset = %v, want 1", ti[2])
	}
	// Page 1's instance translation moved by the row stride.
	if float64(ti[0]) != 5+100+PageGap {
		t.Errorf("instance 1 e = %v, want %v", ti[0], 5+100+PageGap)
	}

	// No record references out-of-range segments.
	for i := 0; i < s.FillPathCount; i++ {
		fb := s.FillMetaB.Texel(i)
		if int(fb[0])+int(fb[1]) > s.FillSegmentCount {
			t.Errorf("fill %d out of range", i)
		}
	}
	for i := 0; i < s.GlyphCount; i++ {
		ga := s.GlyphMetaA.Texel(i)
		if int(ga[0])+int(ga[1]) > s.GlyphSegmentCount {
			t.Errorf("glyph %d out of range", i)
		}
	}
}

func TestCompose_CountersSum(t *testing.T) {
	p0 := pageWithStroke(0, 0, 10, 0)
	p0.DiscardedDuplicate = 2
	p0.MergedSegments = 3
	p0.SourceSegments = 5
	p1 := pageWithStroke(0, 0, 10, 0)
	p1.DiscardedTransparent = 1
	p1.MergedSegments = 2
	p1.SourceSegments = 2

	s, err := Compose([]*PageGeometry{p0, p1}, ComposeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if s.SourceSegmentCount != 7 || s.MergedSegmentCount != 5 {
		t.Errorf("source = %d merged = %d", s.SourceSegmentCount, s.MergedSegmentCount)
	}
	if s.DiscardedDuplicate != 2 || s.DiscardedTransparent != 1 {
		t.Errorf("discards = %d dup, %d transparent", s.DiscardedDuplicate, s.DiscardedTransparent)
	}
}

func TestCompose_EmptyPages(t *testing.T) {
	s, err := Compose(nil, ComposeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if s.PageCount != 0 || s.StrokeCount != 0 {
		t.Errorf("pages = %d strokes = %d", s.PageCount, s.StrokeCount)
	}
	if s.PagesPerRow < 1 {
		t.Errorf("pages per row = %d, want >= 1", s.PagesPerRow)
	}
}
