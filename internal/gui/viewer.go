package gui

import (
	"math"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"inkgrid/pkg/api"
	"inkgrid/pkg/grid"
	"inkgrid/pkg/raster"
)

const (
	minZoom = 0.02
	maxZoom = 64.0
)

// SceneViewer is a custom widget that renders a vector scene with
// pan/zoom. Every frame re-rasterises the visible stroke set, so the
// drawing stays sharp at any zoom.
type SceneViewer struct {
	widget.BaseWidget

	image    *canvas.Image
	doc      *api.Document
	renderer *raster.Renderer
	view     grid.View
}

// NewSceneViewer creates an empty viewer.
func NewSceneViewer() *SceneViewer {
	v := &SceneViewer{}
	v.ExtendBaseWidget(v)

	v.image = canvas.NewImageFromImage(nil)
	v.image.FillMode = canvas.ImageFillOriginal
	v.image.ScaleMode = canvas.ImageScaleFastest

	return v
}

// SetDocument installs a loaded document and fits it to the widget.
func (v *SceneViewer) SetDocument(doc *api.Document) {
	v.doc = doc
	v.renderer = nil
	if doc != nil {
		v.renderer = raster.NewRenderer(1, 1, doc.Grid)
	}
	v.FitPage()
}

// Document returns the currently shown document.
func (v *SceneViewer) Document() *api.Document {
	return v.doc
}

// FitPage centers the whole scene in the widget.
func (v *SceneViewer) FitPage() {
	if v.doc == nil {
		return
	}
	b := v.doc.Scene.Bounds
	size := v.Size()
	w, h := float64(size.Width), float64(size.Height)
	if w < 1 || h < 1 {
		w, h = 800, 600
	}

	v.view.CenterX = (b.MinX + b.MaxX) / 2
	v.view.CenterY = (b.MinY + b.MaxY) / 2
	v.view.Zoom = 1
	if b.Width() > 0 && b.Height() > 0 {
		v.view.Zoom = math.Min(w/b.Width(), h/b.Height()) * 0.95
	}
	v.view.Zoom = clampZoom(v.view.Zoom)
	v.redraw()
}

// ZoomIn increases the zoom level.
func (v *SceneViewer) ZoomIn() {
	v.view.Zoom = clampZoom(v.view.Zoom * 1.25)
	v.redraw()
}

// ZoomOut decreases the zoom level.
func (v *SceneViewer) ZoomOut() {
	v.view.Zoom = clampZoom(v.view.Zoom / 1.25)
	v.redraw()
}

// Dragged pans the camera. Interaction stays flagged until DragEnd so
// the visible-set builder keeps using per-cell collection.
func (v *SceneViewer) Dragged(event *fyne.DragEvent) {
	if v.doc == nil {
		return
	}
	v.view.Interacting = true
	v.view.CenterX -= float64(event.Dragged.DX) / v.view.Zoom
	v.view.CenterY -= float64(event.Dragged.DY) / v.view.Zoom
	v.redraw()
}

// DragEnd finishes a pan gesture.
func (v *SceneViewer) DragEnd() {
	v.view.Interacting = false
	v.redraw()
}

// Scrolled zooms toward the cursor.
func (v *SceneViewer) Scrolled(event *fyne.ScrollEvent) {
	if v.doc == nil {
		return
	}
	factor := math.Pow(1.1, float64(event.Scrolled.DY)/25)
	newZoom := clampZoom(v.view.Zoom * factor)
	if newZoom == v.view.Zoom {
		return
	}

	// Keep the world point under the cursor fixed.
	size := v.Size()
	cx := float64(event.Position.X) - float64(size.Width)/2
	cy := float64(event.Position.Y) - float64(size.Height)/2
	wx := v.view.CenterX + cx/v.view.Zoom
	wy := v.view.CenterY + cy/v.view.Zoom

	v.view.Zoom = newZoom
	v.view.CenterX = wx - cx/newZoom
	v.view.CenterY = wy - cy/newZoom
	v.redraw()
}

// redraw re-rasterises the current view into the widget's image.
func (v *SceneViewer) redraw() {
	if v.doc == nil || v.renderer == nil {
		v.image.Image = nil
		v.image.Refresh()
		return
	}
	size := v.Size()
	w, h := int(size.Width), int(size.Height)
	if w < 1 || h < 1 {
		return
	}
	v.renderer.Resize(w, h)
	v.view.ViewportW = float64(w)
	v.view.ViewportH = float64(h)

	v.image.Image = v.renderer.Render(v.doc.Grid, v.view)
	v.image.Refresh()
}

// CreateRenderer creates the renderer for this widget.
func (v *SceneViewer) CreateRenderer() fyne.WidgetRenderer {
	return &sceneViewerRenderer{viewer: v}
}

type sceneViewerRenderer struct {
	viewer *SceneViewer
	size   fyne.Size
}

func (r *sceneViewerRenderer) Layout(size fyne.Size) {
	r.viewer.image.Move(fyne.NewPos(0, 0))
	r.viewer.image.Resize(size)
	if size != r.size {
		r.size = size
		r.viewer.redraw()
	}
}

func (r *sceneViewerRenderer) MinSize() fyne.Size {
	return fyne.NewSize(200, 200)
}

func (r *sceneViewerRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.viewer.image}
}

func (r *sceneViewerRenderer) Refresh() {
	r.viewer.image.Refresh()
}

func (r *sceneViewerRenderer) Destroy() {}

func clampZoom(z float64) float64 {
	return math.Max(minZoom, math.Min(maxZoom, z))
}
