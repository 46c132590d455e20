// Package font turns embedded TrueType fonts into glyph outlines for
// the text extraction pipeline. Outlines are expressed in em units
// (one unit per em square) so instances can place them with a single
// affine matrix.
package font

import (
	"inkgrid/pkg/font/ttf"
	"inkgrid/pkg/graphics"
)

// Outliner resolves glyph ids and outlines from a parsed TrueType font.
type Outliner struct {
	font *ttf.Font
	upm  float64
}

// NewOutliner creates an outline source for a parsed font.
func NewOutliner(f *ttf.Font) *Outliner {
	upm := float64(f.UnitsPerEm)
	if upm == 0 {
		upm = 1000
	}
	return &Outliner{font: f, upm: upm}
}

// GlyphID maps a single text byte to a glyph id through the font's
// character map.
func (o *Outliner) GlyphID(b byte) (uint16, bool) {
	return o.font.GlyphID(b)
}

// Advance returns the glyph's horizontal advance in em units.
func (o *Outliner) Advance(gid uint16) float64 {
	return float64(o.font.Advance(gid)) / o.upm
}

// Outline returns the glyph's outline path in em units. Contours are
// emitted as quadratic Beziers, matching the glyf table's curve model.
func (o *Outliner) Outline(gid uint16) (*graphics.Path, bool) {
	p, ok := o.glyphPath(gid, 0)
	if !ok {
		return nil, false
	}
	s := 1 / o.upm
	return p.Transform(graphics.Scaled(s, s)), true
}

// glyphPath builds the outline in font units, resolving composite
// glyphs recursively.
func (o *Outliner) glyphPath(gid uint16, depth int) (*graphics.Path, bool) {
	if depth > 4 {
		return nil, false
	}
	glyph, err := o.font.Glyph(gid)
	if err != nil {
		return nil, false
	}
	if !glyph.IsComposite() {
		return simplePath(glyph), true
	}

	result := graphics.NewPath()
	for _, comp := range glyph.Components {
		sub, ok := o.glyphPath(comp.GlyphID, depth+1)
		if !ok {
			continue
		}
		appendPath(result, sub.Transform(graphics.Matrix(comp.Transform)))
	}
	return result, true
}

// simplePath walks a glyph's contours. TrueType stores on-curve and
// off-curve points; consecutive off-curve points imply an on-curve
// midpoint between them.
func simplePath(glyph *ttf.Glyph) *graphics.Path {
	path := graphics.NewPath()

	for _, contour := range glyph.Contours {
		n := len(contour)
		if n == 0 {
			continue
		}

		firstOn := -1
		for i, pt := range contour {
			if pt.OnCurve {
				firstOn = i
				break
			}
		}

		var startX, startY float64
		startIdx := 0
		if firstOn >= 0 {
			startIdx = firstOn
			startX = float64(contour[startIdx].X)
			startY = float64(contour[startIdx].Y)
		} else {
			// All points off-curve: the implied midpoint between the
			// first and last starts the contour.
			startX = float64(contour[0].X+contour[n-1].X) / 2
			startY = float64(contour[0].Y+contour[n-1].Y) / 2
		}
		path.MoveTo(startX, startY)

		i := (startIdx + 1) % n
		for count := 0; count < n; count++ {
			pt := contour[i]
			x, y := float64(pt.X), float64(pt.Y)

			if pt.OnCurve {
				path.LineTo(x, y)
			} else {
				next := contour[(i+1)%n]
				nextX, nextY := float64(next.X), float64(next.Y)

				var endX, endY float64
				if next.OnCurve {
					endX, endY = nextX, nextY
					count++
					i = (i + 1) % n
				} else {
					endX = (x + nextX) / 2
					endY = (y + nextY) / 2
				}
				path.QuadTo(x, y, endX, endY)
			}

			i = (i + 1) % n
		}
		path.Close()
	}

	return path
}

// appendPath copies src's segments onto dst.
func appendPath(dst, src *graphics.Path) {
	for _, seg := range src.Segments {
		switch seg.Op {
		case graphics.PathOpMoveTo:
			dst.MoveTo(seg.Points[0].X, seg.Points[0].Y)
		case graphics.PathOpLineTo:
			dst.LineTo(seg.Points[0].X, seg.Points[0].Y)
		case graphics.PathOpQuadTo:
			dst.QuadTo(seg.Points[0].X, seg.Points[0].Y, seg.Points[1].X, seg.Points[1].Y)
		case graphics.PathOpCurveTo:
			dst.CurveTo(
				seg.Points[0].X, seg.Points[0].Y,
				seg.Points[1].X, seg.Points[1].Y,
				seg.Points[2].X, seg.Points[2].Y,
			)
		case graphics.PathOpClose:
			dst.Close()
		}
	}
}

// BoxGlyphs is the fallback glyph source for fonts without embedded
// outlines: each glyph is a thin rectangle spanning a typical advance.
type BoxGlyphs struct{}

// BoxAdvance is the em-unit advance used for fallback glyphs.
const BoxAdvance = 0.5

// GlyphID maps each byte to itself.
func (BoxGlyphs) GlyphID(b byte) (uint16, bool) {
	return uint16(b), true
}

// Advance returns the fixed fallback advance.
func (BoxGlyphs) Advance(uint16) float64 {
	return BoxAdvance
}

// Outline returns a rectangle suggesting the glyph's body; whitespace
// glyphs get no outline.
func (BoxGlyphs) Outline(gid uint16) (*graphics.Path, bool) {
	if gid == ' ' || gid == '\t' || gid == '\r' || gid == '\n' {
		return graphics.NewPath(), true
	}
	p := graphics.NewPath()
	p.Rect(0.08, 0, BoxAdvance-0.16, 0.62)
	return p, true
}
