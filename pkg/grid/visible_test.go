package grid

import (
	"math"
	"testing"
)

func TestCollect_SoundAndDeduplicated(t *testing.T) {
	s := buildScene(t, randomStrokes(1000, 7))
	g := Build(s)
	vs := NewVisibleSet(g)

	view := View{
		CenterX: 25, CenterY: 25,
		Zoom:      20,
		ViewportW: 200, ViewportH: 200,
		Interacting: true, // force per-cell collection
	}
	got := vs.Collect(g, view)

	seen := make(map[int32]bool)
	for _, i := range got {
		if seen[i] {
			t.Fatalf("duplicate index %d in visible set", i)
		}
		seen[i] = true
	}

	rect := view.WorldRect(s.MaxHalfWidth)
	for i := 0; i < s.StrokeCount; i++ {
		if s.StrokeBound(i).Intersects(rect) && !seen[int32(i)] {
			t.Fatalf("stroke %d intersects the view but is missing", i)
		}
	}
	for _, i := range got {
		if !s.StrokeBound(int(i)).Intersects(rect) {
			t.Fatalf("stroke %d in visible set does not intersect the view", i)
		}
	}
}

func TestCollect_WholeSceneShortcut(t *testing.T) {
	s := buildScene(t, randomStrokes(500, 8))
	g := Build(s)
	vs := NewVisibleSet(g)

	// A view covering everything returns every stroke.
	wide := View{
		CenterX: 50, CenterY: 50,
		Zoom:      0.1,
		ViewportW: 2000, ViewportH: 2000,
	}
	got := vs.Collect(g, wide)
	if len(got) != s.StrokeCount {
		t.Fatalf("whole-scene view returned %d of %d strokes", len(got), s.StrokeCount)
	}
	for i, idx := range got {
		if int(idx) != i {
			t.Fatal("whole-scene shortcut must return indices in order")
		}
	}
}

func TestCollect_InteractionSuppressesShortcut(t *testing.T) {
	s := buildScene(t, randomStrokes(500, 9))
	g := Build(s)
	vs := NewVisibleSet(g)

	wide := View{
		CenterX: 50, CenterY: 50,
		Zoom:      0.1,
		ViewportW: 2000, ViewportH: 2000,
		Interacting: true,
	}
	got := vs.Collect(g, wide)

	// Per-cell collection still finds everything the view covers; the
	// outcome must stay sound even without the shortcut.
	rect := wide.WorldRect(s.MaxHalfWidth)
	count := 0
	for i := 0; i < s.StrokeCount; i++ {
		if s.StrokeBound(i).Intersects(rect) {
			count++
		}
	}
	if len(got) != count {
		t.Errorf("interactive wide view returned %d, want %d", len(got), count)
	}
}

func TestCollect_RepeatedFramesIndependent(t *testing.T) {
	s := buildScene(t, randomStrokes(300, 10))
	g := Build(s)
	vs := NewVisibleSet(g)

	view := View{
		CenterX: 10, CenterY: 10, Zoom: 10,
		ViewportW: 100, ViewportH: 100,
		Interacting: true,
	}
	first := append([]int32(nil), vs.Collect(g, view)...)
	second := vs.Collect(g, view)

	if len(first) != len(second) {
		t.Fatalf("frame sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatal("identical views must produce identical visible sets")
		}
	}
}

func TestCollect_EpochWraparound(t *testing.T) {
	s := buildScene(t, randomStrokes(100, 11))
	g := Build(s)
	vs := NewVisibleSet(g)

	view := View{
		CenterX: 50, CenterY: 50, Zoom: 5,
		ViewportW: 300, ViewportH: 300,
		Interacting: true,
	}
	baseline := append([]int32(nil), vs.Collect(g, view)...)

	// Force the epoch to the brink and collect across the wrap.
	vs.epoch = math.MaxUint32 - 1
	a := append([]int32(nil), vs.Collect(g, view)...)
	b := vs.Collect(g, view) // this collect wraps to epoch 1

	if vs.epoch != 1 {
		t.Errorf("epoch after wrap = %d, want 1", vs.epoch)
	}
	if len(a) != len(baseline) || len(b) != len(baseline) {
		t.Fatalf("sizes across wrap: %d, %d, want %d", len(a), len(b), len(baseline))
	}
	for i := range baseline {
		if a[i] != baseline[i] || b[i] != baseline[i] {
			t.Fatal("visible set changed across epoch wraparound")
		}
	}
}

func TestCollect_EmptyScene(t *testing.T) {
	s := buildScene(t, nil)
	g := Build(s)
	vs := NewVisibleSet(g)

	got := vs.Collect(g, View{Zoom: 1, ViewportW: 100, ViewportH: 100})
	if len(got) != 0 {
		t.Errorf("empty scene returned %d indices", len(got))
	}
}

func TestWorldRect_Margin(t *testing.T) {
	v := View{CenterX: 0, CenterY: 0, Zoom: 2, ViewportW: 200, ViewportH: 100}

	// maxHalfWidth small: margin = 16/zoom = 8.
	r := v.WorldRect(1)
	if r.MinX != -50-8 || r.MaxX != 50+8 || r.MinY != -25-8 || r.MaxY != 25+8 {
		t.Errorf("rect = %+v", r)
	}

	// Large strokes dominate the margin: 2*maxHalfWidth.
	r = v.WorldRect(10)
	if r.MinX != -50-20 || r.MaxX != 50+20 {
		t.Errorf("rect with wide strokes = %+v", r)
	}
}
