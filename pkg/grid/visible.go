package grid

import (
	"math"

	"inkgrid/pkg/graphics"
)

// wholeSceneCoverage is the fraction of cells above which a frame skips
// per-cell work and returns every stroke, unless an interaction is in
// flight.
const wholeSceneCoverage = 0.92

// View describes one frame's camera.
type View struct {
	// CenterX, CenterY is the camera center in world units.
	CenterX, CenterY float64

	// Zoom is pixels per world unit.
	Zoom float64

	// ViewportW, ViewportH is the viewport size in pixels.
	ViewportW, ViewportH float64

	// Interacting suppresses the whole-scene shortcut while a gesture
	// is active.
	Interacting bool
}

// WorldRect returns the margin-expanded world rectangle the view
// covers. Margin covers stroke extents: max(16/zoom, 2*maxHalfWidth).
func (v View) WorldRect(maxHalfWidth float64) graphics.Rect {
	z := v.Zoom
	if z <= 0 {
		z = 1
	}
	m := math.Max(16/z, maxHalfWidth*2)
	hw := v.ViewportW / (2 * z)
	hh := v.ViewportH / (2 * z)
	return graphics.Rect{
		MinX: v.CenterX - hw - m,
		MinY: v.CenterY - hh - m,
		MaxX: v.CenterX + hw + m,
		MaxY: v.CenterY + hh + m,
	}
}

// VisibleSet is the renderer-owned per-frame scratch state: an epoch
// mark per stroke and a reusable output buffer. It is overwritten
// every frame, never accumulated, and never touches the scene.
type VisibleSet struct {
	marks   []uint32
	epoch   uint32
	indices []int32
}

// NewVisibleSet allocates scratch state for a grid's scene. Maximum
// output size is the stroke count, pre-allocated here.
func NewVisibleSet(g *Grid) *VisibleSet {
	n := g.Scene.StrokeCount
	return &VisibleSet{
		marks:   make([]uint32, n),
		indices: make([]int32, 0, n),
	}
}

// Collect builds the frame's visible stroke list: every stroke whose
// cached bounds intersect the view rectangle, without duplicates, in
// cell-scan order. The returned slice is valid until the next Collect.
func (vs *VisibleSet) Collect(g *Grid, view View) []int32 {
	vs.indices = vs.indices[:0]
	n := g.Scene.StrokeCount
	if n == 0 {
		return vs.indices
	}

	rect := view.WorldRect(g.Scene.MaxHalfWidth)
	c0, r0, c1, r1 := g.cellRange(rect)

	covered := (c1 - c0 + 1) * (r1 - r0 + 1)
	if float64(covered) >= wholeSceneCoverage*float64(g.Cols*g.Rows) && !view.Interacting {
		for i := 0; i < n; i++ {
			vs.indices = append(vs.indices, int32(i))
		}
		return vs.indices
	}

	// Bump the epoch; on wraparound zero the marks and restart at 1.
	vs.epoch++
	if vs.epoch == 0 {
		for i := range vs.marks {
			vs.marks[i] = 0
		}
		vs.epoch = 1
	}
	t := vs.epoch

	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			cell := r*g.Cols + c
			for _, i := range g.Indices[g.Offsets[cell]:g.Offsets[cell+1]] {
				if vs.marks[i] == t {
					continue
				}
				vs.marks[i] = t
				if g.Scene.StrokeBound(int(i)).Intersects(rect) {
					vs.indices = append(vs.indices, i)
				}
			}
		}
	}
	return vs.indices
}
