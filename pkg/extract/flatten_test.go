package extract

import (
	"math"
	"testing"
)

// evalCubic evaluates the Bezier at parameter t.
func evalCubic(p [8]float64, t float64) (x, y float64) {
	mt := 1 - t
	a := mt * mt * mt
	b := 3 * mt * mt * t
	c := 3 * mt * t * t
	d := t * t * t
	x = a*p[0] + b*p[2] + c*p[4] + d*p[6]
	y = a*p[1] + b*p[3] + c*p[5] + d*p[7]
	return
}

// segDistance returns the distance from (px,py) to segment (x0,y0)-(x1,y1).
func segDistance(px, py, x0, y0, x1, y1 float64) float64 {
	dx, dy := x1-x0, y1-y0
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(px-x0, py-y0)
	}
	t := ((px-x0)*dx + (py-y0)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return math.Hypot(px-(x0+t*dx), py-(y0+t*dy))
}

func TestFlattenCubic_DeviationBound(t *testing.T) {
	curve := [8]float64{0, 0, 10, 10, 20, 10, 30, 0}
	f := NewFlattener(DefaultFlatness, DefaultMaxSplitDepth)

	type seg struct{ x0, y0, x1, y1 float64 }
	var segs []seg
	f.FlattenCubic(curve[0], curve[1], curve[2], curve[3], curve[4], curve[5], curve[6], curve[7],
		func(x0, y0, x1, y1 float64) {
			segs = append(segs, seg{x0, y0, x1, y1})
		})

	if len(segs) < 2 {
		t.Fatalf("got %d segments, want >= 2", len(segs))
	}
	if len(segs) > 1<<DefaultMaxSplitDepth {
		t.Fatalf("got %d segments, want <= %d", len(segs), 1<<DefaultMaxSplitDepth)
	}

	// The polyline must be continuous and span the curve's endpoints.
	if segs[0].x0 != 0 || segs[0].y0 != 0 {
		t.Errorf("polyline starts at (%v, %v)", segs[0].x0, segs[0].y0)
	}
	last := segs[len(segs)-1]
	if last.x1 != 30 || last.y1 != 0 {
		t.Errorf("polyline ends at (%v, %v)", last.x1, last.y1)
	}
	for i := 1; i < len(segs); i++ {
		if segs[i].x0 != segs[i-1].x1 || segs[i].y0 != segs[i-1].y1 {
			t.Fatalf("polyline discontinuous at segment %d", i)
		}
	}

	// Sample the true curve densely; every sample must sit within the
	// flatness bound of some chord.
	for i := 0; i <= 1000; i++ {
		tt := float64(i) / 1000
		px, py := evalCubic(curve, tt)
		best := math.Inf(1)
		for _, s := range segs {
			if d := segDistance(px, py, s.x0, s.y0, s.x1, s.y1); d < best {
				best = d
			}
		}
		if best > DefaultFlatness+1e-9 {
			t.Fatalf("curve point at t=%v deviates %v > %v", tt, best, DefaultFlatness)
		}
	}
}

func TestFlattenCubic_StraightLineIsOneChord(t *testing.T) {
	f := NewFlattener(DefaultFlatness, DefaultMaxSplitDepth)
	count := 0
	f.FlattenCubic(0, 0, 10, 0, 20, 0, 30, 0, func(x0, y0, x1, y1 float64) {
		count++
		if y0 != 0 || y1 != 0 {
			t.Errorf("chord left the line: (%v,%v)-(%v,%v)", x0, y0, x1, y1)
		}
	})
	if count != 1 {
		t.Errorf("got %d chords, want 1", count)
	}
}

func TestFlattenCubic_DepthLimit(t *testing.T) {
	// A tight depth limit caps subdivision even for a curvy input.
	f := NewFlattener(0.0001, 3)
	count := 0
	f.FlattenCubic(0, 0, 0, 100, 100, 100, 100, 0, func(x0, y0, x1, y1 float64) {
		count++
	})
	if count > 8 {
		t.Errorf("got %d chords, want <= 2^3", count)
	}
}

func TestFlattenQuad_Endpoints(t *testing.T) {
	f := NewFlattener(DefaultFlatness, DefaultMaxSplitDepth)
	var firstX, firstY, lastX, lastY float64
	first := true
	f.FlattenQuad(0, 0, 5, 10, 10, 0, func(x0, y0, x1, y1 float64) {
		if first {
			firstX, firstY = x0, y0
			first = false
		}
		lastX, lastY = x1, y1
	})
	if first {
		t.Fatal("no segments emitted")
	}
	if firstX != 0 || firstY != 0 || lastX != 10 || lastY != 0 {
		t.Errorf("span (%v,%v)-(%v,%v), want (0,0)-(10,0)", firstX, firstY, lastX, lastY)
	}
}

func TestFlattener_Reuse(t *testing.T) {
	// The internal worklist must reset between curves.
	f := NewFlattener(DefaultFlatness, DefaultMaxSplitDepth)
	for run := 0; run < 3; run++ {
		var lastX float64
		f.FlattenCubic(0, 0, 10, 10, 20, 10, 30, 0, func(x0, y0, x1, y1 float64) {
			lastX = x1
		})
		if lastX != 30 {
			t.Fatalf("run %d ended at x=%v, want 30", run, lastX)
		}
	}
}
