package scene

import (
	"math"

	"inkgrid/pkg/graphics"
)

// PageGap is the world-space gap between composed pages.
const PageGap = 32.0

// ComposeOptions configure multi-page composition and packing.
type ComposeOptions struct {
	// PagesPerRow is the grid width; 0 picks ceil(√pageCount),
	// clamped to 1..100.
	PagesPerRow int

	// MaxTextureSide bounds packed texture sides; 0 means unbounded.
	MaxTextureSide int
}

// DefaultPagesPerRow returns the automatic grid width for n pages.
func DefaultPagesPerRow(n int) int {
	if n <= 1 {
		return 1
	}
	p := int(math.Ceil(math.Sqrt(float64(n))))
	if p < 1 {
		p = 1
	}
	if p > 100 {
		p = 100
	}
	return p
}

// Compose lays the pages out on a row-major grid, translates each
// page's geometry into its cell, concatenates all primitive arrays, and
// packs the result into a Scene. The input pages are consumed.
func Compose(pages []*PageGeometry, opts ComposeOptions) (*Scene, error) {
	perRow := opts.PagesPerRow
	if perRow <= 0 {
		perRow = DefaultPagesPerRow(len(pages))
	}
	if perRow > 100 {
		perRow = 100
	}

	pageRects := make([]graphics.Rect, 0, len(pages))

	// Row strides: horizontal stride is the widest page in the row,
	// vertical stride the tallest, both plus the page gap.
	y := 0.0
	for row := 0; row*perRow < len(pages); row++ {
		start := row * perRow
		end := start + perRow
		if end > len(pages) {
			end = len(pages)
		}
		rowPages := pages[start:end]

		strideX, rowH := 0.0, 0.0
		for _, p := range rowPages {
			if w := p.View.Width(); w > strideX {
				strideX = w
			}
			if h := p.View.Height(); h > rowH {
				rowH = h
			}
		}
		strideX += PageGap

		for col, p := range rowPages {
			p.translate(float64(col)*strideX, y)
			pageRects = append(pageRects, p.View)
		}
		y += rowH + PageGap
	}

	combined := concat(pages)
	s, err := pack(combined, opts.MaxTextureSide)
	if err != nil {
		return nil, err
	}

	s.PageCount = len(pages)
	s.PagesPerRow = perRow
	s.PageRects = pageRects
	pageBounds := graphics.EmptyRect()
	for _, r := range pageRects {
		pageBounds = pageBounds.Union(r)
	}
	if pageBounds.IsEmpty() {
		pageBounds = graphics.Rect{}
	}
	s.PageBounds = pageBounds
	return s, nil
}

// concat merges translated pages into one geometry, shifting the index
// ranges that tie fills, text instances, and glyphs to their segment
// spans.
func concat(pages []*PageGeometry) *PageGeometry {
	out := &PageGeometry{}
	for _, p := range pages {
		fillSegBase := len(out.FillSegments)
		glyphBase := len(out.Glyphs)
		glyphSegBase := len(out.GlyphSegments)

		out.Strokes = append(out.Strokes, p.Strokes...)
		out.FillSegments = append(out.FillSegments, p.FillSegments...)
		for _, f := range p.FillPaths {
			f.SegOffset += fillSegBase
			out.FillPaths = append(out.FillPaths, f)
		}
		out.GlyphSegments = append(out.GlyphSegments, p.GlyphSegments...)
		for _, gl := range p.Glyphs {
			gl.SegOffset += glyphSegBase
			out.Glyphs = append(out.Glyphs, gl)
		}
		for _, ti := range p.TextInstances {
			ti.GlyphOffset += glyphBase
			out.TextInstances = append(out.TextInstances, ti)
		}
		out.Rasters = append(out.Rasters, p.Rasters...)

		out.SourceSegments += p.SourceSegments
		out.MergedSegments += p.MergedSegments
		out.DiscardedTransparent += p.DiscardedTransparent
		out.DiscardedDegenerate += p.DiscardedDegenerate
		out.DiscardedDuplicate += p.DiscardedDuplicate
		out.DiscardedContained += p.DiscardedContained
		out.MalformedPaths += p.MalformedPaths
	}
	return out
}
