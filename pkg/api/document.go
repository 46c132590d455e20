// Package api is the high-level entry point: it routes an input to the
// right source, runs extraction, installs the spatial index, and hands
// back a ready-to-render document.
package api

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"inkgrid/pkg/archive"
	"inkgrid/pkg/extract"
	"inkgrid/pkg/grid"
	"inkgrid/pkg/scene"
	"inkgrid/pkg/source"
)

// Document is a loaded scene plus its derived spatial index.
type Document struct {
	Scene *scene.Scene
	Grid  *grid.Grid

	label string
}

// Open loads a page-description file or a parsed-scene archive.
func Open(path string, opts ...extract.Option) (*Document, error) {
	return OpenContext(context.Background(), path, opts...)
}

// OpenContext is Open with cancellation.
func OpenContext(ctx context.Context, path string, opts ...extract.Option) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	return OpenBytes(ctx, data, filepath.Base(path), opts...)
}

// OpenBytes loads a document from raw bytes. The label names the input
// in diagnostics.
func OpenBytes(ctx context.Context, data []byte, label string, opts ...extract.Option) (*Document, error) {
	o := extract.NewOptions(opts...)

	kind := source.Detect(data)
	switch o.SourceKind {
	case extract.SourceOperatorStream:
		kind = source.KindOperatorStream
	case extract.SourceParsedArchive:
		kind = source.KindParsedArchive
	}

	var (
		s   *scene.Scene
		err error
	)
	switch kind {
	case source.KindParsedArchive:
		s, err = archive.Read(data)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", label, err)
		}
	case source.KindOperatorStream:
		src, perr := source.NewPDF(data, label)
		if perr != nil {
			return nil, perr
		}
		defer src.Close()
		s, err = extract.Extract(ctx, src, o)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %q", source.ErrInvalidSource, label)
	}

	return &Document{
		Scene: s,
		Grid:  grid.Build(s),
		label: label,
	}, nil
}

// Label returns the document's diagnostic label.
func (d *Document) Label() string {
	return d.label
}

// SaveArchive writes the document's scene as a parsed-scene archive.
func (d *Document) SaveArchive(path string, opts ...archive.WriteOption) error {
	return archive.WriteFile(path, d.Scene, opts...)
}
