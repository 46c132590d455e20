package extract

import (
	"reflect"
	"testing"

	"inkgrid/pkg/scene"
)

func stroke(x0, y0, x1, y1, hw, luma, alpha float64) scene.Stroke {
	return scene.Stroke{
		X0: x0, Y0: y0, X1: x1, Y1: y1,
		HalfWidth: hw, Luma: luma, Alpha: alpha,
	}
}

func TestCullStrokes_Transparent(t *testing.T) {
	kept, stats := CullStrokes([]scene.Stroke{
		stroke(0, 0, 10, 0, 1, 0, 0.0005),
	})
	if len(kept) != 0 {
		t.Fatalf("kept %d strokes, want 0", len(kept))
	}
	if stats.Transparent != 1 {
		t.Errorf("transparent = %d, want 1", stats.Transparent)
	}
}

func TestCullStrokes_Degenerate(t *testing.T) {
	kept, stats := CullStrokes([]scene.Stroke{
		stroke(5, 5, 5, 5, 1, 0, 1),
		stroke(0, 0, 10, 0, 1, 0, 1),
	})
	if len(kept) != 1 {
		t.Fatalf("kept %d strokes, want 1", len(kept))
	}
	if stats.Degenerate != 1 {
		t.Errorf("degenerate = %d, want 1", stats.Degenerate)
	}
}

func TestCullStrokes_Duplicate(t *testing.T) {
	kept, stats := CullStrokes([]scene.Stroke{
		stroke(0, 0, 10, 0, 1, 0, 1),
		stroke(0, 0, 10, 0, 1, 0, 1),
	})
	if len(kept) != 1 {
		t.Fatalf("kept %d strokes, want 1", len(kept))
	}
	if stats.Duplicate != 1 {
		t.Errorf("duplicate = %d, want 1", stats.Duplicate)
	}
}

func TestCullStrokes_DuplicateReversedEndpoints(t *testing.T) {
	kept, stats := CullStrokes([]scene.Stroke{
		stroke(0, 0, 10, 0, 1, 0.5, 1),
		stroke(10, 0, 0, 0, 1, 0.5, 1),
	})
	if len(kept) != 1 {
		t.Fatalf("kept %d strokes, want 1", len(kept))
	}
	if stats.Duplicate != 1 {
		t.Errorf("duplicate = %d, want 1", stats.Duplicate)
	}
}

func TestCullStrokes_DifferentStyleNotDuplicate(t *testing.T) {
	kept, stats := CullStrokes([]scene.Stroke{
		stroke(0, 0, 10, 0, 1, 0, 1),
		stroke(0, 0, 10, 0, 2, 0, 1),
	})
	// Not duplicates, but the wider opaque stroke covers the thinner one.
	if len(kept) != 1 || stats.Duplicate != 0 || stats.Contained != 1 {
		t.Errorf("kept %d (dup %d, contained %d), want 1 kept, 0 duplicate, 1 contained",
			len(kept), stats.Duplicate, stats.Contained)
	}
}

func TestCullStrokes_Containment(t *testing.T) {
	// An opaque 10-unit stroke of half-width 2 shadows a collinear
	// 4-unit stroke of half-width 1 with the same luma.
	cover := stroke(0, 0, 10, 0, 2, 0.5, 1)
	inner := stroke(2, 0, 6, 0, 1, 0.5, 1)

	kept, stats := CullStrokes([]scene.Stroke{cover, inner})
	if len(kept) != 1 {
		t.Fatalf("kept %d strokes, want 1", len(kept))
	}
	if kept[0] != cover {
		t.Errorf("survivor = %+v, want the cover", kept[0])
	}
	if stats.Contained != 1 {
		t.Errorf("contained = %d, want 1", stats.Contained)
	}
}

func TestCullStrokes_TranslucentCannotCover(t *testing.T) {
	cover := stroke(0, 0, 10, 0, 2, 0.5, 0.5) // not opaque
	inner := stroke(2, 0, 6, 0, 1, 0.5, 1)

	kept, stats := CullStrokes([]scene.Stroke{cover, inner})
	if len(kept) != 2 {
		t.Fatalf("kept %d strokes, want 2", len(kept))
	}
	if stats.Contained != 0 {
		t.Errorf("contained = %d, want 0", stats.Contained)
	}
}

func TestCullStrokes_DifferentLumaNotContained(t *testing.T) {
	cover := stroke(0, 0, 10, 0, 2, 0.1, 1)
	inner := stroke(2, 0, 6, 0, 1, 0.9, 1)

	kept, _ := CullStrokes([]scene.Stroke{cover, inner})
	if len(kept) != 2 {
		t.Fatalf("kept %d strokes, want 2", len(kept))
	}
}

func TestCullStrokes_ParallelOffsetNotContained(t *testing.T) {
	cover := stroke(0, 0, 10, 0, 2, 0.5, 1)
	inner := stroke(2, 1, 6, 1, 1, 0.5, 1) // one unit off the line

	kept, _ := CullStrokes([]scene.Stroke{cover, inner})
	if len(kept) != 2 {
		t.Fatalf("kept %d strokes, want 2", len(kept))
	}
}

func TestCullStrokes_OppositeDirectionContained(t *testing.T) {
	// Direction is sign-normalised, so a reversed inner stroke still
	// groups with its cover.
	cover := stroke(0, 0, 10, 0, 2, 0.5, 1)
	inner := stroke(6, 0, 2, 0, 1, 0.5, 1)

	kept, stats := CullStrokes([]scene.Stroke{cover, inner})
	if len(kept) != 1 || stats.Contained != 1 {
		t.Fatalf("kept %d (contained %d), want 1 kept, 1 contained", len(kept), stats.Contained)
	}
}

func TestCullStrokes_PreservesInputOrder(t *testing.T) {
	a := stroke(0, 0, 5, 3, 1, 0.1, 1)
	b := stroke(20, 0, 25, 7, 2, 0.2, 1)
	c := stroke(40, 0, 45, 11, 0.5, 0.3, 1)

	kept, _ := CullStrokes([]scene.Stroke{a, b, c})
	if !reflect.DeepEqual(kept, []scene.Stroke{a, b, c}) {
		t.Errorf("order changed: %+v", kept)
	}
}

func TestCullStrokes_Idempotent(t *testing.T) {
	input := []scene.Stroke{
		stroke(0, 0, 10, 0, 2, 0.5, 1),
		stroke(2, 0, 6, 0, 1, 0.5, 1),
		stroke(0, 0, 10, 0, 1, 0, 0.0005),
		stroke(0, 10, 10, 10, 1, 0, 1),
		stroke(0, 10, 10, 10, 1, 0, 1),
	}
	once, _ := CullStrokes(input)
	twice, stats := CullStrokes(once)
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second pass changed output:\n once: %+v\ntwice: %+v", once, twice)
	}
	if stats.Total() != 0 {
		t.Errorf("second pass discarded %d strokes", stats.Total())
	}
}
