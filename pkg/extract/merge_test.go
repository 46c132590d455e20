package extract

import (
	"testing"
)

type segRec struct{ x0, y0, x1, y1 float64 }

func collect(out *[]segRec) func(x0, y0, x1, y1 float64) {
	return func(x0, y0, x1, y1 float64) {
		*out = append(*out, segRec{x0, y0, x1, y1})
	}
}

func TestMerger_CollinearChain(t *testing.T) {
	var out []segRec
	m := NewMerger(true, collect(&out))

	m.Add(0, 0, 10, 0, true)
	m.Add(10, 0, 20, 0, true)
	m.Add(20, 0, 30, 0, true)
	m.Flush()

	if len(out) != 1 {
		t.Fatalf("got %d segments, want 1", len(out))
	}
	if out[0] != (segRec{0, 0, 30, 0}) {
		t.Errorf("merged = %+v, want (0,0)-(30,0)", out[0])
	}
}

func TestMerger_Disabled(t *testing.T) {
	var out []segRec
	m := NewMerger(false, collect(&out))

	m.Add(0, 0, 10, 0, true)
	m.Add(10, 0, 20, 0, true)
	m.Add(20, 0, 30, 0, true)
	m.Flush()

	if len(out) != 3 {
		t.Fatalf("got %d segments, want 3", len(out))
	}
}

func TestMerger_DirectionChangeFlushes(t *testing.T) {
	var out []segRec
	m := NewMerger(true, collect(&out))

	m.Add(0, 0, 10, 0, true)
	m.Add(10, 0, 10, 10, true)
	m.Flush()

	if len(out) != 2 {
		t.Fatalf("got %d segments, want 2", len(out))
	}
}

func TestMerger_GapFlushes(t *testing.T) {
	var out []segRec
	m := NewMerger(true, collect(&out))

	m.Add(0, 0, 10, 0, true)
	m.Add(10.5, 0, 20, 0, true) // gap 0.5 > sqrt(1e-6)
	m.Flush()

	if len(out) != 2 {
		t.Fatalf("got %d segments, want 2", len(out))
	}
}

func TestMerger_NearCollinearWithinTolerance(t *testing.T) {
	var out []segRec
	m := NewMerger(true, collect(&out))

	// Second segment deviates far less than the angular and chord
	// tolerances permit.
	m.Add(0, 0, 100, 0, true)
	m.Add(100, 0, 200, 0.01, true)
	m.Flush()

	if len(out) != 1 {
		t.Fatalf("got %d segments, want 1", len(out))
	}
	if out[0].x1 != 200 || out[0].y1 != 0.01 {
		t.Errorf("merged end = (%v, %v)", out[0].x1, out[0].y1)
	}
}

func TestMerger_CurveSegmentsNeverMerge(t *testing.T) {
	var out []segRec
	m := NewMerger(true, collect(&out))

	m.Add(0, 0, 10, 0, false)
	m.Add(10, 0, 20, 0, false)
	m.Flush()

	if len(out) != 2 {
		t.Fatalf("curve-derived segments merged: got %d, want 2", len(out))
	}
}

func TestMerger_MixedAllowMerge(t *testing.T) {
	var out []segRec
	m := NewMerger(true, collect(&out))

	// A straight run may not absorb a curve chord, and vice versa.
	m.Add(0, 0, 10, 0, true)
	m.Add(10, 0, 20, 0, false)
	m.Add(20, 0, 30, 0, true)
	m.Flush()

	if len(out) != 3 {
		t.Fatalf("got %d segments, want 3", len(out))
	}
}
