package graphics

import (
	"math"
	"testing"
)

const epsilon = 1e-9

func floatsEqual(a, b, eps float64) bool {
	return math.Abs(a-b) < eps
}

func TestMatrix_Transform(t *testing.T) {
	tests := []struct {
		name  string
		m     Matrix
		x, y  float64
		wantX float64
		wantY float64
	}{
		{"identity", Identity(), 3, 4, 3, 4},
		{"translate", Translate(10, -5), 3, 4, 13, -1},
		{"scale", Scaled(2, 3), 3, 4, 6, 12},
		{"flip-y", Matrix{1, 0, 0, -1, 0, 100}, 3, 4, 3, 96},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := tt.m.Transform(tt.x, tt.y)
			if !floatsEqual(x, tt.wantX, epsilon) || !floatsEqual(y, tt.wantY, epsilon) {
				t.Errorf("Transform(%v, %v) = (%v, %v), want (%v, %v)",
					tt.x, tt.y, x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestMatrix_Multiply(t *testing.T) {
	// Applying scale then translate must equal transforming through the
	// product.
	m := Scaled(2, 2).Multiply(Translate(5, 7))
	x, y := m.Transform(1, 1)
	if !floatsEqual(x, 7, epsilon) || !floatsEqual(y, 9, epsilon) {
		t.Errorf("scale-then-translate = (%v, %v), want (7, 9)", x, y)
	}
}

func TestMatrix_Scale(t *testing.T) {
	tests := []struct {
		name string
		m    Matrix
		want float64
	}{
		{"identity", Identity(), 1},
		{"uniform 2x", Scaled(2, 2), 2},
		{"mixed", Scaled(2, 4), 3},
		{"rotation keeps scale", Rotate(math.Pi / 3), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.Scale(); !floatsEqual(got, tt.want, 1e-9) {
				t.Errorf("Scale() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatrix_Inverse(t *testing.T) {
	m := Scaled(2, 3).Multiply(Translate(10, 20)).Multiply(Rotate(0.5))
	inv := m.Inverse()
	x, y := m.Transform(7, -3)
	bx, by := inv.Transform(x, y)
	if !floatsEqual(bx, 7, 1e-9) || !floatsEqual(by, -3, 1e-9) {
		t.Errorf("round trip = (%v, %v), want (7, -3)", bx, by)
	}
}

func TestMatrix_IsFinite(t *testing.T) {
	if !Identity().IsFinite() {
		t.Error("identity should be finite")
	}
	if (Matrix{1, 0, 0, math.NaN(), 0, 0}).IsFinite() {
		t.Error("NaN component should not be finite")
	}
	if (Matrix{1, 0, 0, 1, math.Inf(1), 0}).IsFinite() {
		t.Error("Inf component should not be finite")
	}
}

func TestRect_Basics(t *testing.T) {
	r := NewRect(10, 10, 0, 0)
	if r.MinX != 0 || r.MinY != 0 || r.MaxX != 10 || r.MaxY != 10 {
		t.Errorf("NewRect did not normalise corners: %+v", r)
	}
	if !r.Intersects(Rect{MinX: 5, MinY: 5, MaxX: 15, MaxY: 15}) {
		t.Error("expected overlap")
	}
	if r.Intersects(Rect{MinX: 11, MinY: 0, MaxX: 12, MaxY: 10}) {
		t.Error("expected no overlap")
	}

	u := r.Union(Rect{MinX: -5, MinY: 2, MaxX: 3, MaxY: 20})
	want := Rect{MinX: -5, MinY: 0, MaxX: 10, MaxY: 20}
	if u != want {
		t.Errorf("Union = %+v, want %+v", u, want)
	}

	e := r.Expand(1.35)
	if e.MinX != -1.35 || e.MaxY != 11.35 {
		t.Errorf("Expand = %+v", e)
	}
}

func TestRect_UnionWithEmpty(t *testing.T) {
	r := Rect{MinX: 1, MinY: 2, MaxX: 3, MaxY: 4}
	if got := EmptyRect().Union(r); got != r {
		t.Errorf("empty ∪ r = %+v, want %+v", got, r)
	}
	if got := r.Union(EmptyRect()); got != r {
		t.Errorf("r ∪ empty = %+v, want %+v", got, r)
	}
}

func TestColor_Luma(t *testing.T) {
	tests := []struct {
		name string
		c    Color
		want float64
	}{
		{"black", Black(), 0},
		{"white", White(), 1},
		{"mid gray", NewGray(0.5), 0.5},
		{"pure red", NewRGB(1, 0, 0), 0.2126},
		{"pure green", NewRGB(0, 1, 0), 0.7152},
		{"pure blue", NewRGB(0, 0, 1), 0.0722},
		{"cmyk black", NewCMYK(0, 0, 0, 1), 0},
		{"cmyk white", NewCMYK(0, 0, 0, 0), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Luma(); !floatsEqual(got, tt.want, 1e-6) {
				t.Errorf("Luma() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseHexColor(t *testing.T) {
	c, ok := ParseHexColor("#ff8000")
	if !ok {
		t.Fatal("expected parse success")
	}
	r, g, b := c.RGB()
	if !floatsEqual(r, 1, 1e-2) || !floatsEqual(g, 0.5, 1e-2) || !floatsEqual(b, 0, 1e-2) {
		t.Errorf("RGB = (%v, %v, %v)", r, g, b)
	}

	if _, ok := ParseHexColor("not-a-colour"); ok {
		t.Error("expected parse failure")
	}
	if _, ok := ParseHexColor("#12345"); ok {
		t.Error("expected parse failure on short input")
	}
}
