// Package gui provides a native desktop viewer for extracted vector
// scenes using Fyne.
package gui

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"

	"inkgrid/pkg/api"
)

// App represents the scene viewer application.
type App struct {
	fyneApp    fyne.App
	mainWindow fyne.Window

	viewer  *SceneViewer
	toolbar *Toolbar
}

// NewApp creates a new viewer application.
func NewApp() *App {
	a := &App{
		fyneApp: app.New(),
	}
	a.mainWindow = a.fyneApp.NewWindow("inkgrid")
	a.mainWindow.Resize(fyne.NewSize(1100, 800))
	return a
}

// Run starts the application.
func (a *App) Run() {
	a.buildUI()
	a.mainWindow.ShowAndRun()
}

// RunWithFile starts the application with a file already loaded.
func (a *App) RunWithFile(path string) {
	a.buildUI()
	go func() {
		if err := a.loadFile(path); err != nil {
			dialog.ShowError(err, a.mainWindow)
		}
	}()
	a.mainWindow.ShowAndRun()
}

// buildUI constructs the user interface.
func (a *App) buildUI() {
	a.viewer = NewSceneViewer()

	a.toolbar = NewToolbar()
	a.toolbar.OnOpen = a.openFile
	a.toolbar.OnSave = a.saveArchive
	a.toolbar.OnZoomIn = a.viewer.ZoomIn
	a.toolbar.OnZoomOut = a.viewer.ZoomOut
	a.toolbar.OnFit = a.viewer.FitPage

	content := container.NewBorder(
		container.NewPadded(a.toolbar.Container()),
		nil, nil, nil,
		a.viewer,
	)
	a.mainWindow.SetContent(content)

	a.mainWindow.Canvas().SetOnTypedKey(a.handleKey)
}

// handleKey handles keyboard shortcuts.
func (a *App) handleKey(key *fyne.KeyEvent) {
	switch key.Name {
	case fyne.KeyPlus, fyne.KeyEqual:
		a.viewer.ZoomIn()
	case fyne.KeyMinus:
		a.viewer.ZoomOut()
	case fyne.KeyHome, fyne.Key0:
		a.viewer.FitPage()
	}
}

// openFile shows a file dialog and loads the selection.
func (a *App) openFile() {
	dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		if reader == nil {
			return
		}
		defer reader.Close()

		if err := a.loadFile(reader.URI().Path()); err != nil {
			dialog.ShowError(err, a.mainWindow)
		}
	}, a.mainWindow)
}

// loadFile extracts a scene from a document or archive and installs it.
func (a *App) loadFile(path string) error {
	doc, err := api.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %q: %w", path, err)
	}

	a.viewer.SetDocument(doc)
	a.mainWindow.SetTitle(fmt.Sprintf("inkgrid - %s", doc.Label()))
	a.toolbar.SetStats(doc)
	return nil
}

// saveArchive writes the current scene as a parsed-scene archive.
func (a *App) saveArchive() {
	doc := a.viewer.Document()
	if doc == nil {
		return
	}
	dialog.ShowFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, a.mainWindow)
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()

		if err := doc.SaveArchive(path); err != nil {
			dialog.ShowError(err, a.mainWindow)
		}
	}, a.mainWindow)
}
