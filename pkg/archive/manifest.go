// Package archive reads and writes the parsed-scene archive: a zip
// container holding a manifest.json plus one binary payload per packed
// texture and one image file per raster layer.
package archive

import (
	"errors"

	"inkgrid/pkg/graphics"
	"inkgrid/pkg/scene"
)

// FormatVersion is the current manifest format version.
const FormatVersion = 3

// Errors surfaced by the codec.
var (
	ErrInvalidArchive   = errors.New("archive: invalid archive")
	ErrTruncatedTexture = errors.New("archive: truncated texture")
)

// Manifest is the archive's authoritative description of its payloads.
type Manifest struct {
	FormatVersion int            `json:"formatVersion"`
	Scene         SceneManifest  `json:"scene"`
	Textures      []TextureEntry `json:"textures"`
	SourcePdfFile string         `json:"sourcePdfFile,omitempty"`
}

// SceneManifest carries the scene's counts and geometry.
type SceneManifest struct {
	StrokeCount       int `json:"strokeCount"`
	FillPathCount     int `json:"fillPathCount"`
	FillSegmentCount  int `json:"fillSegmentCount"`
	TextInstanceCount int `json:"textInstanceCount"`
	GlyphCount        int `json:"glyphCount"`
	GlyphSegmentCount int `json:"glyphSegmentCount"`
	RasterLayerCount  int `json:"rasterLayerCount"`

	SourceSegmentCount   int `json:"sourceSegmentCount"`
	MergedSegmentCount   int `json:"mergedSegmentCount"`
	DiscardedTransparent int `json:"discardedTransparent"`
	DiscardedDegenerate  int `json:"discardedDegenerate"`
	DiscardedDuplicate   int `json:"discardedDuplicate"`
	DiscardedContained   int `json:"discardedContained"`
	MalformedPathCount   int `json:"malformedPathCount"`

	Bounds       [4]float64    `json:"bounds"`
	PageBounds   [4]float64    `json:"pageBounds"`
	PageRects    []float64     `json:"pageRects"`
	PageCount    int           `json:"pageCount"`
	PagesPerRow  int           `json:"pagesPerRow"`
	MaxHalfWidth float64       `json:"maxHalfWidth"`
	RasterLayers []RasterEntry `json:"rasterLayers"`
}

// TextureEntry describes one packed texture payload.
type TextureEntry struct {
	Name              string `json:"name"`
	File              string `json:"file"`
	Width             int    `json:"width"`
	Height            int    `json:"height"`
	Channels          int    `json:"channels"`
	ComponentType     string `json:"componentType"`
	Layout            string `json:"layout"`
	LogicalItemCount  int    `json:"logicalItemCount"`
	LogicalFloatCount int    `json:"logicalFloatCount"`
	PaddedFloatCount  int    `json:"paddedFloatCount"`
}

// RasterEntry describes one raster layer payload.
type RasterEntry struct {
	Width    int        `json:"width"`
	Height   int        `json:"height"`
	Matrix   [6]float64 `json:"matrix"`
	File     string     `json:"file"`
	Encoding string     `json:"encoding"`
}

func rectToSlice(r graphics.Rect) [4]float64 {
	return [4]float64{r.MinX, r.MinY, r.MaxX, r.MaxY}
}

func sliceToRect(v [4]float64) graphics.Rect {
	return graphics.Rect{MinX: v[0], MinY: v[1], MaxX: v[2], MaxY: v[3]}
}

// sceneManifest builds the manifest's scene section from a scene.
func sceneManifest(s *scene.Scene) SceneManifest {
	m := SceneManifest{
		StrokeCount:       s.StrokeCount,
		FillPathCount:     s.FillPathCount,
		FillSegmentCount:  s.FillSegmentCount,
		TextInstanceCount: s.TextInstanceCount,
		GlyphCount:        s.GlyphCount,
		GlyphSegmentCount: s.GlyphSegmentCount,
		RasterLayerCount:  s.RasterLayerCount,

		SourceSegmentCount:   s.SourceSegmentCount,
		MergedSegmentCount:   s.MergedSegmentCount,
		DiscardedTransparent: s.DiscardedTransparent,
		DiscardedDegenerate:  s.DiscardedDegenerate,
		DiscardedDuplicate:   s.DiscardedDuplicate,
		DiscardedContained:   s.DiscardedContained,
		MalformedPathCount:   s.MalformedPathCount,

		Bounds:       rectToSlice(s.Bounds),
		PageBounds:   rectToSlice(s.PageBounds),
		PageCount:    s.PageCount,
		PagesPerRow:  s.PagesPerRow,
		MaxHalfWidth: s.MaxHalfWidth,
	}
	m.PageRects = make([]float64, 0, 4*len(s.PageRects))
	for _, r := range s.PageRects {
		m.PageRects = append(m.PageRects, r.MinX, r.MinY, r.MaxX, r.MaxY)
	}
	return m
}
