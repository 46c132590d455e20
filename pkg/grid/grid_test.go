package grid

import (
	"math/rand"
	"testing"

	"inkgrid/pkg/graphics"
	"inkgrid/pkg/scene"
)

// buildScene packs strokes into a scene for index tests.
func buildScene(t *testing.T, strokes []scene.Stroke) *scene.Scene {
	t.Helper()
	g := scene.NewPageGeometry(graphics.Rect{MaxX: 100, MaxY: 100})
	for _, s := range strokes {
		g.AddStroke(s)
	}
	g.SourceSegments = len(strokes)
	g.MergedSegments = len(strokes)
	s, err := scene.Compose([]*scene.PageGeometry{g}, scene.ComposeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// randomStrokes scatters n short strokes over a 100x100 area.
func randomStrokes(n int, seed int64) []scene.Stroke {
	rng := rand.New(rand.NewSource(seed))
	out := make([]scene.Stroke, n)
	for i := range out {
		x := rng.Float64() * 100
		y := rng.Float64() * 100
		out[i] = scene.Stroke{
			X0: x, Y0: y,
			X1: x + rng.Float64()*2 - 1, Y1: y + rng.Float64()*2 - 1,
			HalfWidth: 0.2 + rng.Float64()*0.5,
			Alpha:     1,
		}
	}
	return out
}

func TestBuild_Population(t *testing.T) {
	const n = 10000
	s := buildScene(t, randomStrokes(n, 1))
	g := Build(s)

	if g.Cols < 64 || g.Cols > 1024 || g.Rows < 64 || g.Rows > 1024 {
		t.Errorf("grid side %dx%d outside [64, 1024]", g.Cols, g.Rows)
	}
	if len(g.Indices) < n {
		t.Errorf("total memberships %d < stroke count %d", len(g.Indices), n)
	}
	if g.MaxCellPopulation > n {
		t.Errorf("max cell population %d > stroke count", g.MaxCellPopulation)
	}
	if g.MaxCellPopulation < 1 {
		t.Error("max cell population must be at least 1")
	}
}

func TestBuild_CSRInvariants(t *testing.T) {
	s := buildScene(t, randomStrokes(500, 2))
	g := Build(s)

	cells := g.Cols * g.Rows
	if len(g.Offsets) != cells+1 {
		t.Fatalf("offsets length %d, want %d", len(g.Offsets), cells+1)
	}
	if int(g.Offsets[cells]) != len(g.Indices) {
		t.Errorf("offsets[cells] = %d, want %d", g.Offsets[cells], len(g.Indices))
	}
	for c := 0; c < cells; c++ {
		if g.Offsets[c] > g.Offsets[c+1] {
			t.Fatalf("offsets not monotonic at cell %d", c)
		}
	}
	for _, idx := range g.Indices {
		if idx < 0 || int(idx) >= s.StrokeCount {
			t.Fatalf("membership index %d out of [0, %d)", idx, s.StrokeCount)
		}
	}
}

func TestBuild_MembershipMatchesIntersection(t *testing.T) {
	s := buildScene(t, randomStrokes(200, 3))
	g := Build(s)

	// Membership in a cell must be equivalent to the cell's world rect
	// intersecting the stroke's cached bound.
	for row := 0; row < g.Rows; row += g.Rows / 8 {
		for col := 0; col < g.Cols; col += g.Cols / 8 {
			cellRect := g.CellRect(col, row)
			members := make(map[int32]bool)
			for _, idx := range g.Cell(col, row) {
				members[idx] = true
			}
			for i := 0; i < s.StrokeCount; i++ {
				want := s.StrokeBound(i).Intersects(cellRect)
				if got := members[int32(i)]; got != want {
					t.Fatalf("cell (%d,%d) stroke %d: member = %v, intersects = %v",
						col, row, i, got, want)
				}
			}
		}
	}
}

func TestBuild_EmptyScene(t *testing.T) {
	s := buildScene(t, nil)
	g := Build(s)
	if len(g.Indices) != 0 {
		t.Errorf("empty scene has %d memberships", len(g.Indices))
	}
	if g.MaxCellPopulation != 0 {
		t.Errorf("max cell population = %d, want 0", g.MaxCellPopulation)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	s := buildScene(t, randomStrokes(300, 4))
	a := Build(s)
	b := Build(s)

	if a.Cols != b.Cols || a.Rows != b.Rows {
		t.Fatal("grid dimensions differ between builds")
	}
	if len(a.Indices) != len(b.Indices) {
		t.Fatal("membership totals differ between builds")
	}
	for i := range a.Indices {
		if a.Indices[i] != b.Indices[i] {
			t.Fatalf("membership order differs at %d", i)
		}
	}
}
