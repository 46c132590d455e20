package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"inkgrid/pkg/api"
)

// Toolbar provides file and zoom controls plus a scene stats readout.
type Toolbar struct {
	container *fyne.Container

	// Callbacks
	OnOpen    func()
	OnSave    func()
	OnZoomIn  func()
	OnZoomOut func()
	OnFit     func()

	statsLabel *widget.Label
	saveBtn    *widget.Button
}

// NewToolbar creates a new toolbar.
func NewToolbar() *Toolbar {
	t := &Toolbar{}
	t.build()
	return t
}

func (t *Toolbar) build() {
	openBtn := widget.NewButtonWithIcon("Open", theme.FolderOpenIcon(), func() {
		if t.OnOpen != nil {
			t.OnOpen()
		}
	})

	t.saveBtn = widget.NewButtonWithIcon("Save archive", theme.DocumentSaveIcon(), func() {
		if t.OnSave != nil {
			t.OnSave()
		}
	})
	t.saveBtn.Disable()

	zoomInBtn := widget.NewButtonWithIcon("", theme.ZoomInIcon(), func() {
		if t.OnZoomIn != nil {
			t.OnZoomIn()
		}
	})
	zoomOutBtn := widget.NewButtonWithIcon("", theme.ZoomOutIcon(), func() {
		if t.OnZoomOut != nil {
			t.OnZoomOut()
		}
	})
	fitBtn := widget.NewButtonWithIcon("", theme.ZoomFitIcon(), func() {
		if t.OnFit != nil {
			t.OnFit()
		}
	})

	t.statsLabel = widget.NewLabel("No document loaded")

	t.container = container.NewHBox(
		openBtn,
		t.saveBtn,
		widget.NewSeparator(),
		zoomOutBtn,
		fitBtn,
		zoomInBtn,
		widget.NewSeparator(),
		t.statsLabel,
	)
}

// Container returns the toolbar's layout container.
func (t *Toolbar) Container() *fyne.Container {
	return t.container
}

// SetStats updates the readout for a loaded document.
func (t *Toolbar) SetStats(doc *api.Document) {
	if doc == nil {
		t.statsLabel.SetText("No document loaded")
		t.saveBtn.Disable()
		return
	}
	s := doc.Scene
	t.statsLabel.SetText(fmt.Sprintf(
		"%d pages · %d strokes · %d fills · grid %dx%d (max cell %d)",
		s.PageCount, s.StrokeCount, s.FillPathCount,
		doc.Grid.Cols, doc.Grid.Rows, doc.Grid.MaxCellPopulation,
	))
	t.saveBtn.Enable()
}
