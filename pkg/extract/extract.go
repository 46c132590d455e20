package extract

import (
	"context"
	"errors"
	"fmt"

	"inkgrid"
	"inkgrid/pkg/graphics"
	"inkgrid/pkg/scene"
)

// ErrCancelled is returned when a build is cancelled. A cancelled build
// never yields a truncated scene.
var ErrCancelled = errors.New("extract: build cancelled")

// operatorChunk is the number of operators interpreted between
// cancellation checks.
const operatorChunk = 4096

// Source is the operator-stream provider consumed by the extractor.
// Implementations live in pkg/source.
type Source interface {
	// Label identifies the source in diagnostics (usually a file name).
	Label() string

	// PageCount returns the number of pages.
	PageCount() int

	// PageOperators returns the page's drawing operators. This is the
	// pipeline's only suspension point; everything after it is
	// synchronous.
	PageOperators(ctx context.Context, page int) ([]graphics.Operator, error)

	// PageView returns the page's view rectangle in page units.
	PageView(page int) graphics.Rect

	// PageViewTransform returns the matrix mapping page-description
	// space onto the origin-anchored view rectangle for the given
	// rotation (degrees, multiples of 90).
	PageViewTransform(page int, rotation int) graphics.Matrix

	// PageRotation returns the page's intrinsic rotation in degrees.
	PageRotation(page int) int

	// PageResources returns the page's named resources.
	PageResources(page int) (PageResources, error)

	// Close releases the source.
	Close() error
}

// Extract runs the full pipeline over every page of src and composes
// the result into a packed scene. The context is checked between pages
// and between operator chunks; on cancellation the partial result is
// discarded and ErrCancelled returned.
func Extract(ctx context.Context, src Source, opts Options) (*scene.Scene, error) {
	pageCount := src.PageCount()
	if opts.MaxPages > 0 && pageCount > opts.MaxPages {
		pageCount = opts.MaxPages
	}

	pages := make([]*scene.PageGeometry, 0, pageCount)
	for p := 0; p < pageCount; p++ {
		if err := ctx.Err(); err != nil {
			return nil, ErrCancelled
		}
		page, err := extractPage(ctx, src, p, opts)
		if err != nil {
			return nil, err
		}
		pages = append(pages, page)
	}

	s, err := scene.Compose(pages, scene.ComposeOptions{
		PagesPerRow:    opts.PagesPerRow,
		MaxTextureSide: opts.MaxTextureSide,
	})
	if err != nil {
		return nil, fmt.Errorf("source %q: pack: %w", src.Label(), err)
	}

	inkgrid.Logger().Info("scene built",
		"source", src.Label(),
		"pages", s.PageCount,
		"strokes", s.StrokeCount,
		"fills", s.FillPathCount,
		"text", s.TextInstanceCount,
		"rasters", s.RasterLayerCount)
	return s, nil
}

// extractPage interprets one page into a culled PageGeometry.
func extractPage(ctx context.Context, src Source, p int, opts Options) (*scene.PageGeometry, error) {
	ops, err := src.PageOperators(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("source %q: page %d: operators: %w", src.Label(), p, err)
	}
	res, err := src.PageResources(p)
	if err != nil {
		return nil, fmt.Errorf("source %q: page %d: resources: %w", src.Label(), p, err)
	}

	rotation := src.PageRotation(p)
	view := src.PageView(p)
	w, h := view.Width(), view.Height()
	if rotation%180 != 0 {
		w, h = h, w
	}
	page := scene.NewPageGeometry(graphics.Rect{MinX: 0, MinY: 0, MaxX: w, MaxY: h})

	in := NewInterpreter(page, res, src.PageViewTransform(p, rotation), opts)
	for start := 0; start < len(ops); start += operatorChunk {
		if err := ctx.Err(); err != nil {
			return nil, ErrCancelled
		}
		end := start + operatorChunk
		if end > len(ops) {
			end = len(ops)
		}
		in.Execute(ops[start:end])
	}

	if opts.InvisibleCull {
		kept, stats := CullStrokes(page.Strokes)
		page.Strokes = kept
		page.DiscardedTransparent = stats.Transparent
		page.DiscardedDegenerate = stats.Degenerate
		page.DiscardedDuplicate = stats.Duplicate
		page.DiscardedContained = stats.Contained
	}

	inkgrid.Logger().Debug("page extracted",
		"page", p,
		"source_segments", page.SourceSegments,
		"merged_segments", page.MergedSegments,
		"strokes", len(page.Strokes))
	return page, nil
}
