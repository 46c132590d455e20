package extract

import (
	"math"
	"sort"

	"inkgrid/pkg/graphics"
	"inkgrid/pkg/scene"
)

// Cull thresholds.
const (
	cullMinAlpha    = 1e-3  // at or below this a stroke is invisible
	cullMinLenSq    = 1e-10 // below this a stroke is a point
	cullOpaqueAlpha = 0.999 // at or above this a stroke can cover others
	cullCoverSlack  = 0.05  // interval containment slack, world units
	cullWidthSlack  = 1e-4  // cover half-width tolerance
)

// CullStats tallies the strokes each filter removed.
type CullStats struct {
	Transparent int
	Degenerate  int
	Duplicate   int
	Contained   int
}

// Total returns the number of discarded strokes.
func (c CullStats) Total() int {
	return c.Transparent + c.Degenerate + c.Duplicate + c.Contained
}

// CullStrokes runs the four-stage visibility filter over the merged
// stroke list: transparent, degenerate, exact duplicate, and
// coverage-contained. Survivors keep their input order.
func CullStrokes(strokes []scene.Stroke) ([]scene.Stroke, CullStats) {
	var stats CullStats
	keep := make([]bool, len(strokes))
	for i := range keep {
		keep[i] = true
	}

	// Transparent and degenerate.
	for i, s := range strokes {
		if s.Alpha <= cullMinAlpha {
			keep[i] = false
			stats.Transparent++
			continue
		}
		dx, dy := s.X1-s.X0, s.Y1-s.Y0
		if dx*dx+dy*dy < cullMinLenSq {
			keep[i] = false
			stats.Degenerate++
		}
	}

	// Exact duplicates on quantised (sorted endpoints, style).
	seen := make(map[dupKey]struct{}, len(strokes))
	for i, s := range strokes {
		if !keep[i] {
			continue
		}
		k := makeDupKey(s)
		if _, dup := seen[k]; dup {
			keep[i] = false
			stats.Duplicate++
			continue
		}
		seen[k] = struct{}{}
	}

	cullContained(strokes, keep, &stats)

	out := make([]scene.Stroke, 0, len(strokes))
	for i, s := range strokes {
		if keep[i] {
			out = append(out, s)
		}
	}
	return out, stats
}

// dupKey is the quantised identity of a stroke: positions to 1/1000,
// style fields to 1/10000, endpoints ordered by (x, y) so that (A,B)
// and (B,A) collide.
type dupKey struct {
	x0, y0, x1, y1  int64
	hw, luma, alpha int64
}

func makeDupKey(s scene.Stroke) dupKey {
	x0, y0, x1, y1 := s.X0, s.Y0, s.X1, s.Y1
	if x1 < x0 || (x1 == x0 && y1 < y0) {
		x0, y0, x1, y1 = x1, y1, x0, y0
	}
	return dupKey{
		x0: qi(x0, 1000), y0: qi(y0, 1000),
		x1: qi(x1, 1000), y1: qi(y1, 1000),
		hw:    qi(s.HalfWidth, 10000),
		luma:  qi(s.Luma, 10000),
		alpha: qi(s.Alpha, 10000),
	}
}

func qi(v float64, steps float64) int64 {
	return int64(math.Round(v * steps))
}

// lineKey groups strokes lying on the same infinite line with the same
// luma: sign-normalised direction, perpendicular offset quantised to
// 1/200, luma quantised.
type lineKey struct {
	dx, dy int64
	offset int64
	luma   int64
}

type coverCand struct {
	index      int // original stroke index
	start, end float64
	halfWidth  float64
	opaque     bool
}

// cullContained removes strokes fully shadowed by an opaque collinear
// cover of greater-or-equal half-width.
func cullContained(strokes []scene.Stroke, keep []bool, stats *CullStats) {
	groups := make(map[lineKey][]coverCand)

	for i, s := range strokes {
		if !keep[i] {
			continue
		}
		dx, dy := s.X1-s.X0, s.Y1-s.Y0
		length := math.Hypot(dx, dy)
		if length == 0 {
			continue
		}
		ux, uy := dx/length, dy/length
		// Sign-normalise so opposite directions share a group.
		if ux < 0 || (ux == 0 && uy < 0) {
			ux, uy = -ux, -uy
		}
		// Perpendicular offset of the line from the origin.
		nx, ny := -uy, ux
		offset := s.X0*nx + s.Y0*ny

		k := lineKey{
			dx:     qi(ux, 10000),
			dy:     qi(uy, 10000),
			offset: qi(offset, 200),
			luma:   qi(s.Luma, 10000),
		}
		start := s.X0*ux + s.Y0*uy
		end := s.X1*ux + s.Y1*uy
		if start > end {
			start, end = end, start
		}
		groups[k] = append(groups[k], coverCand{
			index:     i,
			start:     start,
			end:       end,
			halfWidth: s.HalfWidth,
			opaque:    s.Alpha >= cullOpaqueAlpha,
		})
	}

	for _, cands := range groups {
		if len(cands) < 2 {
			continue
		}
		sort.SliceStable(cands, func(a, b int) bool {
			ca, cb := cands[a], cands[b]
			if ca.halfWidth != cb.halfWidth {
				return ca.halfWidth > cb.halfWidth
			}
			la := ca.end - ca.start
			lb := cb.end - cb.start
			if la != lb {
				return la > lb
			}
			return ca.start < cb.start
		})

		// Covers are the opaque winners kept so far in this group.
		var covers []coverCand
		for _, c := range cands {
			covered := false
			for _, cov := range covers {
				if cov.halfWidth >= c.halfWidth-cullWidthSlack &&
					cov.start <= c.start+cullCoverSlack &&
					cov.end >= c.end-cullCoverSlack {
					covered = true
					break
				}
			}
			if covered {
				keep[c.index] = false
				stats.Contained++
				continue
			}
			if c.opaque {
				covers = append(covers, c)
			}
		}
	}
}

// visibleFill reports whether a fill path is worth keeping: it must
// have positive alpha and a non-degenerate bounding box.
func visibleFill(alpha float64, bounds graphics.Rect) bool {
	if alpha <= cullMinAlpha {
		return false
	}
	return bounds.Width() > 0 || bounds.Height() > 0
}
