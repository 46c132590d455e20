package archive

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"math"
	"os"
	"path"
	"strings"

	"golang.org/x/image/webp"

	"inkgrid/pkg/scene"
)

// ReadFile loads a scene archive from a file.
func ReadFile(p string) (*scene.Scene, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("archive %q: %w", p, err)
	}
	s, err := Read(data)
	if err != nil {
		return nil, fmt.Errorf("archive %q: %w", p, err)
	}
	return s, nil
}

// Read loads a scene archive from bytes. Logical counts in the
// manifest are authoritative: each texture's usable prefix is the
// first logicalFloatCount floats.
func Read(data []byte) (*scene.Scene, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArchive, err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	manFile, ok := files["manifest.json"]
	if !ok {
		return nil, fmt.Errorf("%w: missing manifest.json", ErrInvalidArchive)
	}
	manBytes, err := readAll(manFile)
	if err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrInvalidArchive, err)
	}
	var man Manifest
	if err := json.Unmarshal(manBytes, &man); err != nil {
		return nil, fmt.Errorf("%w: manifest: %v", ErrInvalidArchive, err)
	}
	if man.FormatVersion <= 0 || man.FormatVersion > FormatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrInvalidArchive, man.FormatVersion)
	}

	s := &scene.Scene{
		StrokeCount:       man.Scene.StrokeCount,
		FillPathCount:     man.Scene.FillPathCount,
		FillSegmentCount:  man.Scene.FillSegmentCount,
		TextInstanceCount: man.Scene.TextInstanceCount,
		GlyphCount:        man.Scene.GlyphCount,
		GlyphSegmentCount: man.Scene.GlyphSegmentCount,
		RasterLayerCount:  man.Scene.RasterLayerCount,

		SourceSegmentCount:   man.Scene.SourceSegmentCount,
		MergedSegmentCount:   man.Scene.MergedSegmentCount,
		DiscardedTransparent: man.Scene.DiscardedTransparent,
		DiscardedDegenerate:  man.Scene.DiscardedDegenerate,
		DiscardedDuplicate:   man.Scene.DiscardedDuplicate,
		DiscardedContained:   man.Scene.DiscardedContained,
		MalformedPathCount:   man.Scene.MalformedPathCount,

		Bounds:       sliceToRect(man.Scene.Bounds),
		PageBounds:   sliceToRect(man.Scene.PageBounds),
		PageCount:    man.Scene.PageCount,
		PagesPerRow:  man.Scene.PagesPerRow,
		MaxHalfWidth: man.Scene.MaxHalfWidth,
	}
	if len(man.Scene.PageRects)%4 != 0 {
		return nil, fmt.Errorf("%w: pageRects length %d", ErrInvalidArchive, len(man.Scene.PageRects))
	}
	for i := 0; i+3 < len(man.Scene.PageRects); i += 4 {
		v := man.Scene.PageRects
		s.PageRects = append(s.PageRects, sliceToRect([4]float64{v[i], v[i+1], v[i+2], v[i+3]}))
	}

	textures := make(map[string]*scene.Texture, len(man.Textures))
	for _, entry := range man.Textures {
		t, err := readTexture(files, entry)
		if err != nil {
			return nil, err
		}
		textures[entry.Name] = t
	}

	if err := assignTextures(s, textures); err != nil {
		return nil, err
	}
	migrateLegacyStyles(s)
	if err := deriveMissing(s); err != nil {
		return nil, err
	}

	for _, entry := range man.Scene.RasterLayers {
		layer, err := readRaster(files, entry)
		if err != nil {
			return nil, err
		}
		s.Rasters = append(s.Rasters, layer)
	}
	s.RasterLayerCount = len(s.Rasters)

	return s, nil
}

func readAll(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// readTexture loads one texture payload, honouring its layout and
// validating its length against the manifest.
func readTexture(files map[string]*zip.File, entry TextureEntry) (*scene.Texture, error) {
	f, ok := files[entry.File]
	if !ok {
		return nil, fmt.Errorf("%w: texture %s: missing file %q", ErrInvalidArchive, entry.Name, entry.File)
	}
	raw, err := readAll(f)
	if err != nil {
		return nil, fmt.Errorf("%w: texture %s: %v", ErrInvalidArchive, entry.Name, err)
	}
	if len(raw)/4 < entry.LogicalFloatCount {
		return nil, fmt.Errorf("%w: texture %s: %d floats, need %d",
			ErrTruncatedTexture, entry.Name, len(raw)/4, entry.LogicalFloatCount)
	}
	if entry.LogicalFloatCount > entry.PaddedFloatCount || entry.LogicalItemCount*4 != entry.LogicalFloatCount {
		return nil, fmt.Errorf("%w: texture %s: inconsistent counts", ErrInvalidArchive, entry.Name)
	}

	padded := entry.PaddedFloatCount
	floats := make([]float32, padded)
	n := len(raw) / 4
	if n > padded {
		n = padded
	}
	for i := 0; i < n; i++ {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}

	if scene.TextureLayout(entry.Layout) == scene.LayoutChannelMajor {
		floats = interleave(floats)
	}

	return &scene.Texture{
		Name:             entry.Name,
		Width:            entry.Width,
		Height:           entry.Height,
		LogicalItemCount: entry.LogicalItemCount,
		Data:             floats,
	}, nil
}

// interleave converts four channel planes into interleaved texels.
func interleave(planes []float32) []float32 {
	n := len(planes) / 4
	out := make([]float32, len(planes))
	for i := 0; i < n; i++ {
		out[i*4+0] = planes[i]
		out[i*4+1] = planes[n+i]
		out[i*4+2] = planes[2*n+i]
		out[i*4+3] = planes[3*n+i]
	}
	return out
}

// assignTextures slots named tiles into the scene.
func assignTextures(s *scene.Scene, textures map[string]*scene.Texture) error {
	s.StrokeEndpoints = textures[scene.TexStrokePrimitivesA]
	s.StrokeEndsB = textures[scene.TexStrokePrimitivesB]
	s.StrokeMeta = textures[scene.TexStrokePrimitiveMeta]
	s.StrokeStyles = textures[scene.TexStrokeStyles]
	s.StrokeBounds = textures[scene.TexStrokePrimitiveBnds]
	s.FillMetaA = textures[scene.TexFillPathMetaA]
	s.FillMetaB = textures[scene.TexFillPathMetaB]
	s.FillMetaC = textures[scene.TexFillPathMetaC]
	s.FillSegmentsA = textures[scene.TexFillSegmentsA]
	s.FillSegmentsB = textures[scene.TexFillSegmentsB]
	s.TextInstanceA = textures[scene.TexTextInstancesA]
	s.TextInstanceB = textures[scene.TexTextInstancesB]
	s.TextInstanceC = textures[scene.TexTextInstancesC]
	s.GlyphMetaA = textures[scene.TexGlyphMetaA]
	s.GlyphMetaB = textures[scene.TexGlyphMetaB]
	s.GlyphSegsA = textures[scene.TexGlyphSegmentsA]
	s.GlyphSegsB = textures[scene.TexGlyphSegmentsB]

	if s.StrokeCount > 0 {
		if s.StrokeEndpoints == nil {
			return fmt.Errorf("%w: missing %s", ErrInvalidArchive, scene.TexStrokePrimitivesA)
		}
		if s.StrokeMeta == nil {
			return fmt.Errorf("%w: missing %s", ErrInvalidArchive, scene.TexStrokePrimitiveMeta)
		}
	}
	if s.FillPathCount > 0 && (s.FillMetaA == nil || s.FillMetaB == nil || s.FillSegmentsA == nil) {
		return fmt.Errorf("%w: missing fill tiles", ErrInvalidArchive)
	}
	return nil
}

// migrateLegacyStyles upgrades archives written before the per-channel
// colour tiles existed. Legacy stroke meta is {luma, halfWidth, alpha, 0};
// a zero w across every stroke marks the old layout. The luma is
// broadcast into the styles tile and alpha repacked into meta.w.
// Fill tile C is rebuilt the same way from the legacy luma in meta B.
func migrateLegacyStyles(s *scene.Scene) {
	if s.StrokeCount > 0 && s.StrokeMeta != nil {
		legacy := true
		for i := 0; i < s.StrokeCount; i++ {
			if s.StrokeMeta.Texel(i)[3] != 0 {
				legacy = false
				break
			}
		}
		if legacy {
			if s.StrokeStyles == nil {
				w, h := s.StrokeMeta.Width, s.StrokeMeta.Height
				s.StrokeStyles = &scene.Texture{
					Name:             scene.TexStrokeStyles,
					Width:            w,
					Height:           h,
					LogicalItemCount: s.StrokeCount,
					Data:             make([]float32, w*h*4),
				}
			}
			for i := 0; i < s.StrokeCount; i++ {
				meta := s.StrokeMeta.Texel(i)
				luma, halfWidth, alpha := meta[0], meta[1], meta[2]
				st := s.StrokeStyles.Texel(i)
				st[0] = halfWidth
				st[1] = luma
				st[2] = luma
				st[3] = luma
				meta[3] = float32(alpha)
			}
		}
	}

	if s.FillPathCount > 0 && s.FillMetaC == nil && s.FillMetaB != nil {
		w, h := s.FillMetaB.Width, s.FillMetaB.Height
		s.FillMetaC = &scene.Texture{
			Name:             scene.TexFillPathMetaC,
			Width:            w,
			Height:           h,
			LogicalItemCount: s.FillPathCount,
			Data:             make([]float32, w*h*4),
		}
		for i := 0; i < s.FillPathCount; i++ {
			luma := s.FillMetaB.Texel(i)[3]
			c := s.FillMetaC.Texel(i)
			c[0] = luma
			c[1] = luma
			c[2] = luma
			c[3] = 1
		}
	}
}

// deriveMissing reconstructs optional stroke tiles from the primary
// endpoint tile: B is the second endpoint zero-padded; bounds are the
// endpoint AABB grown by halfWidth plus the stroke margin.
func deriveMissing(s *scene.Scene) error {
	if s.StrokeCount == 0 {
		return ensureEmptyTiles(s)
	}
	a := s.StrokeEndpoints
	if a == nil {
		return fmt.Errorf("%w: cannot derive stroke tiles without %s",
			ErrInvalidArchive, scene.TexStrokePrimitivesA)
	}

	if s.StrokeEndsB == nil {
		t := emptyLike(a, scene.TexStrokePrimitivesB)
		for i := 0; i < s.StrokeCount; i++ {
			e := a.Texel(i)
			b := t.Texel(i)
			b[0] = e[2]
			b[1] = e[3]
		}
		s.StrokeEndsB = t
	}

	if s.StrokeBounds == nil {
		if s.StrokeStyles == nil {
			return fmt.Errorf("%w: cannot derive %s without %s",
				ErrInvalidArchive, scene.TexStrokePrimitiveBnds, scene.TexStrokeStyles)
		}
		t := emptyLike(a, scene.TexStrokePrimitiveBnds)
		for i := 0; i < s.StrokeCount; i++ {
			e := a.Texel(i)
			// Arithmetic happens in float64 so derived bounds match the
			// packer's values bit for bit.
			x0, y0 := float64(e[0]), float64(e[1])
			x1, y1 := float64(e[2]), float64(e[3])
			m := float64(s.StrokeStyles.Texel(i)[0]) + scene.StrokeMargin
			b := t.Texel(i)
			b[0] = float32(math.Min(x0, x1) - m)
			b[1] = float32(math.Min(y0, y1) - m)
			b[2] = float32(math.Max(x0, x1) + m)
			b[3] = float32(math.Max(y0, y1) + m)
		}
		s.StrokeBounds = t
	}
	return nil
}

// ensureEmptyTiles fills nil tiles with one-texel placeholders so a
// loaded empty scene has the same shape as a built one.
func ensureEmptyTiles(s *scene.Scene) error {
	fill := func(t **scene.Texture, name string) {
		if *t == nil {
			*t = &scene.Texture{Name: name, Width: 1, Height: 1, Data: make([]float32, 4)}
		}
	}
	fill(&s.StrokeEndpoints, scene.TexStrokePrimitivesA)
	fill(&s.StrokeEndsB, scene.TexStrokePrimitivesB)
	fill(&s.StrokeMeta, scene.TexStrokePrimitiveMeta)
	fill(&s.StrokeStyles, scene.TexStrokeStyles)
	fill(&s.StrokeBounds, scene.TexStrokePrimitiveBnds)
	fill(&s.FillMetaA, scene.TexFillPathMetaA)
	fill(&s.FillMetaB, scene.TexFillPathMetaB)
	fill(&s.FillMetaC, scene.TexFillPathMetaC)
	fill(&s.FillSegmentsA, scene.TexFillSegmentsA)
	fill(&s.FillSegmentsB, scene.TexFillSegmentsB)
	fill(&s.TextInstanceA, scene.TexTextInstancesA)
	fill(&s.TextInstanceB, scene.TexTextInstancesB)
	fill(&s.TextInstanceC, scene.TexTextInstancesC)
	fill(&s.GlyphMetaA, scene.TexGlyphMetaA)
	fill(&s.GlyphMetaB, scene.TexGlyphMetaB)
	fill(&s.GlyphSegsA, scene.TexGlyphSegmentsA)
	fill(&s.GlyphSegsB, scene.TexGlyphSegmentsB)
	return nil
}

func emptyLike(a *scene.Texture, name string) *scene.Texture {
	return &scene.Texture{
		Name:             name,
		Width:            a.Width,
		Height:           a.Height,
		LogicalItemCount: a.LogicalItemCount,
		Data:             make([]float32, a.Width*a.Height*4),
	}
}

// readRaster decodes one raster payload. The encoding is inferred from
// the file extension: .png and .webp decode as images, anything else
// is raw RGBA of the declared dimensions.
func readRaster(files map[string]*zip.File, entry RasterEntry) (scene.RasterLayer, error) {
	layer := scene.RasterLayer{
		Width:  entry.Width,
		Height: entry.Height,
		Matrix: entry.Matrix,
	}
	f, ok := files[entry.File]
	if !ok {
		return layer, fmt.Errorf("%w: raster: missing file %q", ErrInvalidArchive, entry.File)
	}
	raw, err := readAll(f)
	if err != nil {
		return layer, fmt.Errorf("%w: raster %q: %v", ErrInvalidArchive, entry.File, err)
	}

	switch strings.ToLower(path.Ext(entry.File)) {
	case ".png":
		img, err := png.Decode(bytes.NewReader(raw))
		if err != nil {
			return layer, fmt.Errorf("%w: raster %q: %v", ErrInvalidArchive, entry.File, err)
		}
		layer.Pix = toPremultiplied(img)
	case ".webp":
		img, err := webp.Decode(bytes.NewReader(raw))
		if err != nil {
			return layer, fmt.Errorf("%w: raster %q: %v", ErrInvalidArchive, entry.File, err)
		}
		layer.Pix = toPremultiplied(img)
	default:
		if len(raw) < entry.Width*entry.Height*4 {
			return layer, fmt.Errorf("%w: raster %q: %d bytes, need %d",
				ErrInvalidArchive, entry.File, len(raw), entry.Width*entry.Height*4)
		}
		layer.Pix = raw[:entry.Width*entry.Height*4]
	}

	layer.Width = entry.Width
	layer.Height = entry.Height
	return layer, nil
}

// toPremultiplied converts any decoded image to premultiplied RGBA
// bytes.
func toPremultiplied(img image.Image) []byte {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst.Pix
}
