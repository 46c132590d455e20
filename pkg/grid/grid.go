// Package grid provides the uniform spatial index over a packed scene
// and the per-frame visible-set builder the renderer drives. The grid
// is derived deterministically from a scene and is read-only for that
// scene's lifetime.
package grid

import (
	"math"

	"inkgrid"
	"inkgrid/pkg/graphics"
	"inkgrid/pkg/scene"
)

// Cell-count sizing bounds.
const (
	strokesPerCell = 8
	minTargetCells = 30000
	maxTargetCells = 220000
	minGridSide    = 64
	maxGridSide    = 1024
)

// Grid is a uniform-cell broad-phase index over the scene's bounds,
// stored CSR-style: per-cell offsets into a flat membership index
// array.
type Grid struct {
	Scene *scene.Scene

	Bounds graphics.Rect
	Cols   int
	Rows   int
	CellW  float64
	CellH  float64

	// Offsets has Cols*Rows+1 entries; cell c's members are
	// Indices[Offsets[c]:Offsets[c+1]].
	Offsets []int32
	Indices []int32

	// MaxCellPopulation is the largest member count of any cell,
	// exposed for diagnostics and budget alarms.
	MaxCellPopulation int
}

// Build derives the spatial index from a scene. Membership is decided
// by the cached margin-expanded stroke bounds, so a cell contains a
// stroke exactly when their rectangles intersect.
func Build(s *scene.Scene) *Grid {
	g := &Grid{Scene: s, Bounds: s.Bounds}

	n := s.StrokeCount
	if n == 0 || g.Bounds.Width() <= 0 || g.Bounds.Height() <= 0 {
		g.Cols, g.Rows = 1, 1
		g.CellW = math.Max(g.Bounds.Width(), 1)
		g.CellH = math.Max(g.Bounds.Height(), 1)
		g.Offsets = make([]int32, 2)
		if n > 0 {
			// Degenerate bounds: everything lands in the single cell.
			g.Indices = make([]int32, n)
			for i := range g.Indices {
				g.Indices[i] = int32(i)
			}
			g.Offsets[1] = int32(n)
			g.MaxCellPopulation = n
		}
		return g
	}

	target := graphics.Clamp(math.Round(float64(n)/strokesPerCell), minTargetCells, maxTargetCells)
	aspect := g.Bounds.Width() / g.Bounds.Height()
	cols := int(math.Round(math.Sqrt(target * aspect)))
	cols = clampInt(cols, minGridSide, maxGridSide)
	rows := int(math.Round(target / float64(cols)))
	rows = clampInt(rows, minGridSide, maxGridSide)

	g.Cols = cols
	g.Rows = rows
	g.CellW = g.Bounds.Width() / float64(cols)
	g.CellH = g.Bounds.Height() / float64(rows)

	cells := cols * rows
	counts := make([]int32, cells)

	// Pass 1: count memberships per cell.
	for i := 0; i < n; i++ {
		c0, r0, c1, r1 := g.cellRange(s.StrokeBound(i))
		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				counts[r*cols+c]++
			}
		}
	}

	g.Offsets = make([]int32, cells+1)
	var total int32
	for c, cnt := range counts {
		g.Offsets[c] = total
		total += cnt
		if int(cnt) > g.MaxCellPopulation {
			g.MaxCellPopulation = int(cnt)
		}
	}
	g.Offsets[cells] = total
	g.Indices = make([]int32, total)

	// Pass 2: fill, reusing counts as per-cell cursors.
	for i := range counts {
		counts[i] = 0
	}
	for i := 0; i < n; i++ {
		c0, r0, c1, r1 := g.cellRange(s.StrokeBound(i))
		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				cell := r*cols + c
				g.Indices[g.Offsets[cell]+counts[cell]] = int32(i)
				counts[cell]++
			}
		}
	}

	inkgrid.Logger().Debug("grid built",
		"cols", cols, "rows", rows,
		"memberships", total,
		"max_cell_population", g.MaxCellPopulation)
	return g
}

// cellRange returns the inclusive cell span covered by a world rect,
// clamped to the grid.
func (g *Grid) cellRange(r graphics.Rect) (c0, r0, c1, r1 int) {
	c0 = clampInt(int(math.Floor((r.MinX-g.Bounds.MinX)/g.CellW)), 0, g.Cols-1)
	c1 = clampInt(int(math.Floor((r.MaxX-g.Bounds.MinX)/g.CellW)), 0, g.Cols-1)
	r0 = clampInt(int(math.Floor((r.MinY-g.Bounds.MinY)/g.CellH)), 0, g.Rows-1)
	r1 = clampInt(int(math.Floor((r.MaxY-g.Bounds.MinY)/g.CellH)), 0, g.Rows-1)
	return
}

// CellRect returns the world-space rectangle of cell (col, row).
func (g *Grid) CellRect(col, row int) graphics.Rect {
	x := g.Bounds.MinX + float64(col)*g.CellW
	y := g.Bounds.MinY + float64(row)*g.CellH
	return graphics.Rect{MinX: x, MinY: y, MaxX: x + g.CellW, MaxY: y + g.CellH}
}

// Cell returns the member indices of cell (col, row).
func (g *Grid) Cell(col, row int) []int32 {
	c := row*g.Cols + col
	return g.Indices[g.Offsets[c]:g.Offsets[c+1]]
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
