package ttf

import (
	"fmt"
)

// Point is one outline point in font units.
type Point struct {
	X, Y    int16
	OnCurve bool
}

// Contour is one closed outline loop.
type Contour []Point

// Component places another glyph inside a composite glyph. The
// transform is a 2x3 affine in font units: (x,y) -> (ax+cy+e, bx+dy+f).
type Component struct {
	GlyphID   uint16
	Transform [6]float64
}

// Glyph is a decoded outline: either contours (simple glyph) or
// components (composite glyph). Empty glyphs, such as space, have
// neither.
type Glyph struct {
	Contours   []Contour
	Components []Component
}

// IsComposite reports whether the glyph is assembled from components.
func (g *Glyph) IsComposite() bool {
	return len(g.Components) > 0
}

// Simple-glyph flag bits.
const (
	flagOnCurve     = 0x01
	flagXShort      = 0x02
	flagYShort      = 0x04
	flagRepeat      = 0x08
	flagXSameOrPlus = 0x10
	flagYSameOrPlus = 0x20
)

// Composite flag bits.
const (
	compArgsAreWords   = 0x0001
	compArgsAreXY      = 0x0002
	compHaveScale      = 0x0008
	compMoreComponents = 0x0020
	compHaveXYScale    = 0x0040
	compHaveTwoByTwo   = 0x0080
)

// Glyph decodes the outline for a glyph id.
func (f *Font) Glyph(gid uint16) (*Glyph, error) {
	if int(gid)+1 >= len(f.loca) {
		return nil, fmt.Errorf("ttf: glyph %d out of range", gid)
	}
	start, end := f.loca[gid], f.loca[gid+1]
	if start == end {
		return &Glyph{}, nil
	}
	if int(start) > len(f.glyf) || int(end) > len(f.glyf) || start > end {
		return nil, fmt.Errorf("ttf: glyph %d outline out of bounds", gid)
	}

	r := &reader{data: f.glyf[start:end]}
	numContours := r.s16()
	r.skip(8) // bounding box
	if r.truncated {
		return nil, fmt.Errorf("ttf: glyph %d header truncated", gid)
	}

	if numContours < 0 {
		return decodeComposite(r)
	}
	return decodeSimple(r, int(numContours))
}

// decodeSimple reads a simple glyph: contour end indices, a run-length
// compressed flag array, then delta-compressed x and y coordinates.
// The three streams are fused into per-contour point lists.
func decodeSimple(r *reader, numContours int) (*Glyph, error) {
	ends := make([]int, numContours)
	for i := range ends {
		ends[i] = int(r.u16())
	}
	r.skip(int(r.u16())) // instructions
	if r.truncated || numContours == 0 {
		return &Glyph{}, nil
	}
	numPoints := ends[numContours-1] + 1

	flags := make([]byte, 0, numPoints)
	for len(flags) < numPoints && !r.truncated {
		fl := r.u8()
		flags = append(flags, fl)
		if fl&flagRepeat != 0 {
			repeat := int(r.u8())
			for j := 0; j < repeat && len(flags) < numPoints; j++ {
				flags = append(flags, fl)
			}
		}
	}

	readDeltas := func(shortBit, sameBit byte) []int16 {
		coords := make([]int16, numPoints)
		v := int16(0)
		for i, fl := range flags {
			switch {
			case fl&shortBit != 0:
				d := int16(r.u8())
				if fl&sameBit == 0 {
					d = -d
				}
				v += d
			case fl&sameBit == 0:
				v += r.s16()
			}
			coords[i] = v
		}
		return coords
	}
	xs := readDeltas(flagXShort, flagXSameOrPlus)
	ys := readDeltas(flagYShort, flagYSameOrPlus)
	if r.truncated {
		return nil, fmt.Errorf("ttf: glyph coordinates truncated")
	}

	g := &Glyph{Contours: make([]Contour, 0, numContours)}
	start := 0
	for _, end := range ends {
		if end+1 < start || end >= numPoints {
			break
		}
		contour := make(Contour, 0, end-start+1)
		for i := start; i <= end; i++ {
			contour = append(contour, Point{
				X:       xs[i],
				Y:       ys[i],
				OnCurve: flags[i]&flagOnCurve != 0,
			})
		}
		g.Contours = append(g.Contours, contour)
		start = end + 1
	}
	return g, nil
}

// decodeComposite reads component records. Point-matching placement
// (args as point numbers) is not used by the fonts this pipeline
// consumes and decodes as a zero offset.
func decodeComposite(r *reader) (*Glyph, error) {
	g := &Glyph{}
	for {
		flags := r.u16()
		gid := r.u16()

		var dx, dy float64
		if flags&compArgsAreWords != 0 {
			a1, a2 := r.s16(), r.s16()
			if flags&compArgsAreXY != 0 {
				dx, dy = float64(a1), float64(a2)
			}
		} else {
			a1, a2 := int8(r.u8()), int8(r.u8())
			if flags&compArgsAreXY != 0 {
				dx, dy = float64(a1), float64(a2)
			}
		}

		a, b, c, d := 1.0, 0.0, 0.0, 1.0
		switch {
		case flags&compHaveScale != 0:
			s := f2dot14(r.u16())
			a, d = s, s
		case flags&compHaveXYScale != 0:
			a = f2dot14(r.u16())
			d = f2dot14(r.u16())
		case flags&compHaveTwoByTwo != 0:
			a = f2dot14(r.u16())
			b = f2dot14(r.u16())
			c = f2dot14(r.u16())
			d = f2dot14(r.u16())
		}
		if r.truncated {
			return nil, fmt.Errorf("ttf: composite glyph truncated")
		}

		g.Components = append(g.Components, Component{
			GlyphID:   gid,
			Transform: [6]float64{a, b, c, d, dx, dy},
		})
		if flags&compMoreComponents == 0 {
			return g, nil
		}
	}
}

// f2dot14 converts a 2.14 fixed-point value.
func f2dot14(v uint16) float64 {
	return float64(int16(v)) / 16384
}
