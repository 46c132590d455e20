// Package raster draws a packed vector scene into an RGBA image on the
// CPU. The interactive viewer uses it as its rendering backend; the
// per-frame stroke list comes from the spatial grid's visible-set
// builder.
package raster

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/vector"

	"inkgrid/pkg/graphics"
	"inkgrid/pkg/grid"
	"inkgrid/pkg/scene"
)

// Renderer rasterises frames of one scene. It owns the output image
// and the per-frame visible-set scratch state.
type Renderer struct {
	img     *image.RGBA
	width   int
	height  int
	visible *grid.VisibleSet

	background color.RGBA
}

// NewRenderer creates a renderer with the given output size.
func NewRenderer(width, height int, g *grid.Grid) *Renderer {
	return &Renderer{
		img:        image.NewRGBA(image.Rect(0, 0, width, height)),
		width:      width,
		height:     height,
		visible:    grid.NewVisibleSet(g),
		background: color.RGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// Resize reallocates the output image.
func (r *Renderer) Resize(width, height int) {
	if width == r.width && height == r.height {
		return
	}
	r.width = width
	r.height = height
	r.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

// Image returns the current output image.
func (r *Renderer) Image() *image.RGBA {
	return r.img
}

// SetBackground sets the clear colour.
func (r *Renderer) SetBackground(c color.RGBA) {
	r.background = c
}

// Render draws one frame: raster layers underneath, then fills, then
// the visible strokes, then text outlines.
func (r *Renderer) Render(g *grid.Grid, view grid.View) *image.RGBA {
	draw.Draw(r.img, r.img.Bounds(), &image.Uniform{r.background}, image.Point{}, draw.Src)

	s := g.Scene
	world := view.WorldRect(s.MaxHalfWidth)
	toScreen := r.worldToScreen(view)

	r.drawRasters(s, toScreen)
	r.drawFills(s, toScreen, world)
	r.drawStrokes(s, g, view, toScreen)
	r.drawText(s, toScreen)
	return r.img
}

// worldToScreen maps world space onto the output image for a view.
func (r *Renderer) worldToScreen(view grid.View) graphics.Matrix {
	z := view.Zoom
	if z <= 0 {
		z = 1
	}
	return graphics.Matrix{
		z, 0,
		0, z,
		float64(r.width)/2 - view.CenterX*z,
		float64(r.height)/2 - view.CenterY*z,
	}
}

func (r *Renderer) drawStrokes(s *scene.Scene, g *grid.Grid, view grid.View, m graphics.Matrix) {
	for _, i := range r.visible.Collect(g, view) {
		e := s.StrokeEndpoints.Texel(int(i))
		st := s.StrokeStyles.Texel(int(i))
		alpha, _ := scene.UnpackAlphaFlags(s.StrokeMeta.Texel(int(i))[3])

		x0, y0 := m.Transform(float64(e[0]), float64(e[1]))
		x1, y1 := m.Transform(float64(e[2]), float64(e[3]))
		hw := float64(st[0]) * view.Zoom
		if hw < 0.5 {
			hw = 0.5
		}
		col := premul(float64(st[1]), float64(st[2]), float64(st[3]), alpha)
		r.fillQuad(x0, y0, x1, y1, hw, col)
	}
}

// fillQuad rasterises a stroke as an oriented rectangle around its
// segment.
func (r *Renderer) fillQuad(x0, y0, x1, y1, hw float64, col color.RGBA) {
	dx := x1 - x0
	dy := y1 - y0
	length := math.Hypot(dx, dy)
	var nx, ny float64
	if length == 0 {
		nx, ny = hw, 0
		dx, dy = 0, hw
	} else {
		nx = -dy / length * hw
		ny = dx / length * hw
		// Extend the ends by the half-width so joints stay covered.
		dx = dx / length * hw
		dy = dy / length * hw
	}

	v := vector.NewRasterizer(r.width, r.height)
	v.DrawOp = draw.Over
	v.MoveTo(float32(x0-dx+nx), float32(y0-dy+ny))
	v.LineTo(float32(x1+dx+nx), float32(y1+dy+ny))
	v.LineTo(float32(x1+dx-nx), float32(y1+dy-ny))
	v.LineTo(float32(x0-dx-nx), float32(y0-dy-ny))
	v.ClosePath()
	v.Draw(r.img, r.img.Bounds(), &image.Uniform{col}, image.Point{})
}

func (r *Renderer) drawFills(s *scene.Scene, m graphics.Matrix, world graphics.Rect) {
	for i := 0; i < s.FillPathCount; i++ {
		meta := s.FillMetaA.Texel(i)
		bounds := graphics.Rect{
			MinX: float64(meta[0]), MinY: float64(meta[1]),
			MaxX: float64(meta[2]), MaxY: float64(meta[3]),
		}
		if !bounds.Intersects(world) {
			continue
		}
		b := s.FillMetaB.Texel(i)
		c := s.FillMetaC.Texel(i)
		segOffset := int(b[0])
		segCount := int(b[1])

		v := vector.NewRasterizer(r.width, r.height)
		v.DrawOp = draw.Over
		for k := 0; k < segCount; k++ {
			seg := s.FillSegmentsA.Texel(segOffset + k)
			x0, y0 := m.Transform(float64(seg[0]), float64(seg[1]))
			x1, y1 := m.Transform(float64(seg[2]), float64(seg[3]))
			if k == 0 {
				v.MoveTo(float32(x0), float32(y0))
			}
			v.LineTo(float32(x1), float32(y1))
		}
		v.ClosePath()

		col := premul(float64(c[0]), float64(c[1]), float64(c[2]), float64(c[3]))
		v.Draw(r.img, r.img.Bounds(), &image.Uniform{col}, image.Point{})
	}
}

func (r *Renderer) drawText(s *scene.Scene, m graphics.Matrix) {
	for i := 0; i < s.TextInstanceCount; i++ {
		a := s.TextInstanceA.Texel(i)
		b := s.TextInstanceB.Texel(i)
		c := s.TextInstanceC.Texel(i)

		place := graphics.Matrix{
			float64(a[0]), float64(a[1]),
			float64(a[2]), float64(a[3]),
			float64(b[0]), float64(b[1]),
		}
		glyphOffset := int(b[2])
		glyphCount := int(b[3])
		col := premul(float64(c[0]), float64(c[1]), float64(c[2]), float64(c[3]))

		pen := 0.0
		for k := 0; k < glyphCount; k++ {
			gm := s.GlyphMetaA.Texel(glyphOffset + k)
			segOffset := int(gm[0])
			segCount := int(gm[1])
			if segCount > 0 {
				glyphToScreen := graphics.Translate(pen, 0).Multiply(place).Multiply(m)
				r.fillGlyph(s, segOffset, segCount, glyphToScreen, col)
			}
			pen += float64(gm[2])
		}
	}
}

// fillGlyph rasterises a glyph's closed outline segments.
func (r *Renderer) fillGlyph(s *scene.Scene, segOffset, segCount int, m graphics.Matrix, col color.RGBA) {
	v := vector.NewRasterizer(r.width, r.height)
	v.DrawOp = draw.Over

	var penDown bool
	var lastX, lastY float32
	for k := 0; k < segCount; k++ {
		seg := s.GlyphSegsA.Texel(segOffset + k)
		x0, y0 := m.Transform(float64(seg[0]), float64(seg[1]))
		x1, y1 := m.Transform(float64(seg[2]), float64(seg[3]))
		fx0, fy0 := float32(x0), float32(y0)
		if !penDown || fx0 != lastX || fy0 != lastY {
			v.MoveTo(fx0, fy0)
			penDown = true
		}
		v.LineTo(float32(x1), float32(y1))
		lastX, lastY = float32(x1), float32(y1)
	}
	v.ClosePath()
	v.Draw(r.img, r.img.Bounds(), &image.Uniform{col}, image.Point{})
}

func (r *Renderer) drawRasters(s *scene.Scene, m graphics.Matrix) {
	for _, layer := range s.Rasters {
		if layer.Width <= 0 || layer.Height <= 0 || len(layer.Pix) < layer.Width*layer.Height*4 {
			continue
		}
		src := &image.RGBA{
			Pix:    layer.Pix,
			Stride: layer.Width * 4,
			Rect:   image.Rect(0, 0, layer.Width, layer.Height),
		}

		// Placement maps the unit square onto the layer; fold in the
		// pixel-to-unit scale and the world-to-screen transform.
		place := graphics.Matrix(layer.Matrix)
		px := graphics.Scaled(1/float64(layer.Width), -1/float64(layer.Height)).
			Multiply(graphics.Translate(0, 1)).
			Multiply(place).
			Multiply(m)

		xdraw.ApproxBiLinear.Transform(r.img, f64.Aff3{
			px[0], px[2], px[4],
			px[1], px[3], px[5],
		}, src, src.Bounds(), xdraw.Over, nil)
	}
}

// premul converts straight colour and alpha to a premultiplied RGBA.
func premul(rr, gg, bb, alpha float64) color.RGBA {
	a := graphics.Clamp(alpha, 0, 1)
	return color.RGBA{
		R: uint8(graphics.Clamp(rr, 0, 1) * a * 255),
		G: uint8(graphics.Clamp(gg, 0, 1) * a * 255),
		B: uint8(graphics.Clamp(bb, 0, 1) * a * 255),
		A: uint8(a * 255),
	}
}
