package scene

import (
	"fmt"
	"math"

	"inkgrid/pkg/graphics"
)

// packAlphaFlags packs primitive_meta.w: alpha in [0,1] plus 2 when
// any style flag is set.
func packAlphaFlags(alpha float64, flags int) float32 {
	v := graphics.Clamp(alpha, 0, 1)
	if flags != 0 {
		v += 2
	}
	return float32(v)
}

// UnpackAlphaFlags splits a packed meta.w value back into alpha and the
// style-flag bit.
func UnpackAlphaFlags(w float32) (alpha float64, flags int) {
	v := float64(w)
	if v >= 2 {
		return graphics.Clamp(v-2, 0, 1), 1
	}
	return graphics.Clamp(v, 0, 1), 0
}

// TextureDims returns the square-ish width and height for n records:
// width ceil(√n), height ceil(n/width). Empty families still get one
// zeroed texel so the tile uploads cleanly.
func TextureDims(n int) (w, h int) {
	if n <= 0 {
		return 1, 1
	}
	w = int(math.Ceil(math.Sqrt(float64(n))))
	h = (n + w - 1) / w
	return w, h
}

// newTexture allocates a zero-filled tile for n records.
func newTexture(name string, n, maxSide int) (*Texture, error) {
	w, h := TextureDims(n)
	if maxSide > 0 && (w > maxSide || h > maxSide) {
		return nil, fmt.Errorf("%w: %s needs %dx%d, max side %d",
			ErrTextureTooLarge, name, w, h, maxSide)
	}
	return &Texture{
		Name:             name,
		Width:            w,
		Height:           h,
		LogicalItemCount: n,
		Data:             make([]float32, w*h*4),
	}, nil
}

func (t *Texture) set(i int, a, b, c, d float64) {
	base := i * 4
	t.Data[base+0] = float32(a)
	t.Data[base+1] = float32(b)
	t.Data[base+2] = float32(c)
	t.Data[base+3] = float32(d)
}

// pack lays a composed geometry out into the scene's texture tiles and
// computes the cached per-stroke bounds, the union bounds, and the
// maximum half-width. maxSide bounds each tile's texture side; 0 means
// unbounded.
func pack(g *PageGeometry, maxSide int) (*Scene, error) {
	s := &Scene{
		StrokeCount:       len(g.Strokes),
		FillPathCount:     len(g.FillPaths),
		FillSegmentCount:  len(g.FillSegments),
		TextInstanceCount: len(g.TextInstances),
		GlyphCount:        len(g.Glyphs),
		GlyphSegmentCount: len(g.GlyphSegments),
		RasterLayerCount:  len(g.Rasters),

		SourceSegmentCount:   g.SourceSegments,
		MergedSegmentCount:   g.MergedSegments,
		DiscardedTransparent: g.DiscardedTransparent,
		DiscardedDegenerate:  g.DiscardedDegenerate,
		DiscardedDuplicate:   g.DiscardedDuplicate,
		DiscardedContained:   g.DiscardedContained,
		MalformedPathCount:   g.MalformedPaths,

		Rasters: g.Rasters,
	}

	var err error
	alloc := func(name string, n int) *Texture {
		if err != nil {
			return nil
		}
		var t *Texture
		t, err = newTexture(name, n, maxSide)
		return t
	}

	s.StrokeEndpoints = alloc(TexStrokePrimitivesA, s.StrokeCount)
	s.StrokeEndsB = alloc(TexStrokePrimitivesB, s.StrokeCount)
	s.StrokeMeta = alloc(TexStrokePrimitiveMeta, s.StrokeCount)
	s.StrokeStyles = alloc(TexStrokeStyles, s.StrokeCount)
	s.StrokeBounds = alloc(TexStrokePrimitiveBnds, s.StrokeCount)
	s.FillMetaA = alloc(TexFillPathMetaA, s.FillPathCount)
	s.FillMetaB = alloc(TexFillPathMetaB, s.FillPathCount)
	s.FillMetaC = alloc(TexFillPathMetaC, s.FillPathCount)
	s.FillSegmentsA = alloc(TexFillSegmentsA, s.FillSegmentCount)
	s.FillSegmentsB = alloc(TexFillSegmentsB, s.FillSegmentCount)
	s.TextInstanceA = alloc(TexTextInstancesA, s.TextInstanceCount)
	s.TextInstanceB = alloc(TexTextInstancesB, s.TextInstanceCount)
	s.TextInstanceC = alloc(TexTextInstancesC, s.TextInstanceCount)
	s.GlyphMetaA = alloc(TexGlyphMetaA, s.GlyphCount)
	s.GlyphMetaB = alloc(TexGlyphMetaB, s.GlyphCount)
	s.GlyphSegsA = alloc(TexGlyphSegmentsA, s.GlyphSegmentCount)
	s.GlyphSegsB = alloc(TexGlyphSegmentsB, s.GlyphSegmentCount)
	if err != nil {
		return nil, err
	}

	bounds := graphics.EmptyRect()

	for i, st := range g.Strokes {
		s.StrokeEndpoints.set(i, st.X0, st.Y0, st.X1, st.Y1)
		s.StrokeEndsB.set(i, st.X1, st.Y1, 0, 0)
		s.StrokeMeta.set(i, st.Luma, 0, 0, float64(packAlphaFlags(st.Alpha, st.Flags)))
		s.StrokeStyles.set(i, st.HalfWidth, st.Luma, st.Luma, st.Luma)
		b := st.Bound()
		s.StrokeBounds.set(i, b.MinX, b.MinY, b.MaxX, b.MaxY)
		bounds = bounds.Union(b)
		if st.HalfWidth > s.MaxHalfWidth {
			s.MaxHalfWidth = st.HalfWidth
		}
	}

	for i, f := range g.FillPaths {
		winding := 0.0
		if f.EvenOdd {
			winding = 1.0
		}
		s.FillMetaA.set(i, f.Bounds.MinX, f.Bounds.MinY, f.Bounds.MaxX, f.Bounds.MaxY)
		s.FillMetaB.set(i, float64(f.SegOffset), float64(f.SegCount), winding, 0)
		s.FillMetaC.set(i, f.R, f.G, f.B, f.Alpha)
		bounds = bounds.Union(f.Bounds)
	}
	for i, seg := range g.FillSegments {
		s.FillSegmentsA.set(i, seg.X0, seg.Y0, seg.X1, seg.Y1)
		s.FillSegmentsB.set(i, seg.X1, seg.Y1, 0, 0)
	}

	for i, ti := range g.TextInstances {
		m := ti.Matrix
		s.TextInstanceA.set(i, m[0], m[1], m[2], m[3])
		s.TextInstanceB.set(i, m[4], m[5], float64(ti.GlyphOffset), float64(ti.GlyphCount))
		s.TextInstanceC.set(i, ti.R, ti.G, ti.B, ti.Alpha)
		bounds = bounds.Union(instanceBounds(g, ti))
	}
	for i, gl := range g.Glyphs {
		s.GlyphMetaA.set(i, float64(gl.SegOffset), float64(gl.SegCount), gl.Advance, 0)
		s.GlyphMetaB.set(i, gl.Bounds.MinX, gl.Bounds.MinY, gl.Bounds.MaxX, gl.Bounds.MaxY)
	}
	for i, seg := range g.GlyphSegments {
		s.GlyphSegsA.set(i, seg.X0, seg.Y0, seg.X1, seg.Y1)
		s.GlyphSegsB.set(i, seg.X1, seg.Y1, 0, 0)
	}

	for _, r := range g.Rasters {
		bounds = bounds.Union(rasterBounds(r))
	}

	if bounds.IsEmpty() {
		bounds = graphics.Rect{}
	}
	s.Bounds = bounds
	return s, nil
}

// instanceBounds maps the glyph boxes of an instance's run through its
// placement matrix, advancing the pen between glyphs.
func instanceBounds(g *PageGeometry, ti TextInstance) graphics.Rect {
	m := graphics.Matrix(ti.Matrix)
	out := graphics.EmptyRect()
	pen := 0.0
	for k := 0; k < ti.GlyphCount; k++ {
		idx := ti.GlyphOffset + k
		if idx >= len(g.Glyphs) {
			break
		}
		gl := g.Glyphs[idx]
		if gl.SegCount > 0 {
			out = out.Union(gl.Bounds.Translate(pen, 0).Transform(m))
		}
		pen += gl.Advance
	}
	if out.IsEmpty() {
		x, y := m.Transform(0, 0)
		return graphics.Rect{MinX: x, MinY: y, MaxX: x, MaxY: y}
	}
	return out
}

// rasterBounds maps the unit square through the raster's placement.
func rasterBounds(r RasterLayer) graphics.Rect {
	m := graphics.Matrix(r.Matrix)
	return graphics.Rect{MinX: 0, MinY: 0, MaxX: 1, MaxY: 1}.Transform(m)
}

// ValidateCounters checks the counter identity that must hold for every
// scene built from valid input. Used by tests; the archive loader does
// not call it.
func (s *Scene) ValidateCounters() error {
	sum := s.DiscardedTransparent + s.DiscardedDegenerate +
		s.DiscardedDuplicate + s.DiscardedContained + s.StrokeCount
	if sum != s.MergedSegmentCount {
		return fmt.Errorf("scene: discarded(%d)+kept(%d) != merged(%d)",
			sum-s.StrokeCount, s.StrokeCount, s.MergedSegmentCount)
	}
	if s.MergedSegmentCount > s.SourceSegmentCount {
		return fmt.Errorf("scene: merged(%d) > source(%d)",
			s.MergedSegmentCount, s.SourceSegmentCount)
	}
	return nil
}
