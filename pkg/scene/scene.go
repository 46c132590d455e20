// Package scene defines the GPU-ready vector scene: flat primitive
// arrays packed into float32 texture tiles, plus page geometry and
// provenance counters. A Scene is built once and read-only afterwards.
package scene

import (
	"errors"

	"inkgrid/pkg/graphics"
)

// StrokeMargin is the world-space margin added around stroke endpoints
// when primitive bounds are computed. The cull and the spatial grid use
// the same margin.
const StrokeMargin = 0.35

// MinHalfWidth is the smallest stroke half-width ever stored.
const MinHalfWidth = 0.2

// ErrTextureTooLarge is returned when a primitive family would not fit
// within the configured maximum texture side.
var ErrTextureTooLarge = errors.New("scene: texture side exceeds maximum")

// TextureLayout describes how a texture's floats are ordered on disk.
type TextureLayout string

const (
	// LayoutInterleaved stores whole RGBA texels consecutively.
	LayoutInterleaved TextureLayout = "interleaved"
	// LayoutChannelMajor stores four consecutive planes, one per channel.
	LayoutChannelMajor TextureLayout = "channel-major"
)

// Texture is one packed primitive array: a square-ish RGBA32F tile with
// one 4-float texel per logical record. The tail beyond the logical
// count is zero-filled and must be ignored by consumers.
type Texture struct {
	Name   string
	Width  int
	Height int

	// LogicalItemCount is the number of meaningful records; the physical
	// float slice is padded to Width*Height*4.
	LogicalItemCount int

	Data []float32
}

// LogicalFloatCount returns the number of meaningful floats.
func (t *Texture) LogicalFloatCount() int {
	return t.LogicalItemCount * 4
}

// PaddedFloatCount returns the number of physically allocated floats.
func (t *Texture) PaddedFloatCount() int {
	return t.Width * t.Height * 4
}

// Logical returns the meaningful prefix of the data.
func (t *Texture) Logical() []float32 {
	return t.Data[:t.LogicalFloatCount()]
}

// Texel returns the 4-float record at index i.
func (t *Texture) Texel(i int) []float32 {
	return t.Data[i*4 : i*4+4]
}

// RasterLayer is a decoded image placed into the scene by an affine
// matrix. Pix holds premultiplied RGBA, row-major.
type RasterLayer struct {
	Width  int
	Height int
	Pix    []byte
	Matrix [6]float64
}

// Scene is the immutable output of the extraction pipeline.
type Scene struct {
	// Primitive counts. Each tile's logical length is count records.
	StrokeCount       int
	FillPathCount     int
	FillSegmentCount  int
	TextInstanceCount int
	GlyphCount        int
	GlyphSegmentCount int
	RasterLayerCount  int

	// Provenance counters.
	SourceSegmentCount   int
	MergedSegmentCount   int
	DiscardedTransparent int
	DiscardedDegenerate  int
	DiscardedDuplicate   int
	DiscardedContained   int
	MalformedPathCount   int

	// Stroke tiles: endpoints {x0,y0,x1,y1}, meta {luma,0,0,alpha+flags*2},
	// styles {halfWidth,r,g,b}, bounds {minX,minY,maxX,maxY}.
	StrokeEndpoints *Texture
	StrokeEndsB     *Texture
	StrokeMeta      *Texture
	StrokeStyles    *Texture
	StrokeBounds    *Texture

	// Fill tiles: meta A {bbox}, B {segOffset,segCount,winding,0},
	// C {r,g,b,alpha}; segments A {x0,y0,x1,y1}, B {x1,y1,0,0}.
	FillMetaA     *Texture
	FillMetaB     *Texture
	FillMetaC     *Texture
	FillSegmentsA *Texture
	FillSegmentsB *Texture

	// Text tiles: instance A {a,b,c,d}, B {e,f,glyphOffset,glyphCount},
	// C {r,g,b,alpha}; glyph meta A {segOffset,segCount,advance,0},
	// B {bbox}; glyph segments A {x0,y0,x1,y1}, B {x1,y1,0,0}.
	TextInstanceA *Texture
	TextInstanceB *Texture
	TextInstanceC *Texture
	GlyphMetaA    *Texture
	GlyphMetaB    *Texture
	GlyphSegsA    *Texture
	GlyphSegsB    *Texture

	Rasters []RasterLayer

	// Geometry.
	Bounds       graphics.Rect
	PageBounds   graphics.Rect
	PageRects    []graphics.Rect
	PageCount    int
	PagesPerRow  int
	MaxHalfWidth float64
}

// Textures returns every non-nil packed tile, in a stable order.
func (s *Scene) Textures() []*Texture {
	all := []*Texture{
		s.StrokeEndpoints, s.StrokeEndsB, s.StrokeMeta, s.StrokeStyles, s.StrokeBounds,
		s.FillMetaA, s.FillMetaB, s.FillMetaC, s.FillSegmentsA, s.FillSegmentsB,
		s.TextInstanceA, s.TextInstanceB, s.TextInstanceC,
		s.GlyphMetaA, s.GlyphMetaB, s.GlyphSegsA, s.GlyphSegsB,
	}
	out := make([]*Texture, 0, len(all))
	for _, t := range all {
		if t != nil {
			out = append(out, t)
		}
	}
	return out
}

// TextureByName returns the tile with the given name, or nil.
func (s *Scene) TextureByName(name string) *Texture {
	for _, t := range s.Textures() {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// IsEmpty reports whether the scene holds no primitives at all.
// An empty scene is a valid, renderable-as-nothing outcome.
func (s *Scene) IsEmpty() bool {
	return s.StrokeCount == 0 && s.FillPathCount == 0 &&
		s.TextInstanceCount == 0 && s.RasterLayerCount == 0
}

// StrokeBound returns the cached margin-expanded bound of stroke i.
func (s *Scene) StrokeBound(i int) graphics.Rect {
	b := s.StrokeBounds.Texel(i)
	return graphics.Rect{
		MinX: float64(b[0]), MinY: float64(b[1]),
		MaxX: float64(b[2]), MaxY: float64(b[3]),
	}
}

// Texture tile names used by the packer and the archive codec.
const (
	TexStrokePrimitivesA   = "stroke-primitives-a"
	TexStrokePrimitivesB   = "stroke-primitives-b"
	TexStrokePrimitiveMeta = "stroke-primitive-meta"
	TexStrokeStyles        = "stroke-styles"
	TexStrokePrimitiveBnds = "stroke-primitive-bounds"
	TexFillPathMetaA       = "fill-path-meta-a"
	TexFillPathMetaB       = "fill-path-meta-b"
	TexFillPathMetaC       = "fill-path-meta-c"
	TexFillSegmentsA       = "fill-segments-a"
	TexFillSegmentsB       = "fill-segments-b"
	TexTextInstancesA      = "text-instances-a"
	TexTextInstancesB      = "text-instances-b"
	TexTextInstancesC      = "text-instances-c"
	TexGlyphMetaA          = "glyph-meta-a"
	TexGlyphMetaB          = "glyph-meta-b"
	TexGlyphSegmentsA      = "glyph-segments-a"
	TexGlyphSegmentsB      = "glyph-segments-b"
)
