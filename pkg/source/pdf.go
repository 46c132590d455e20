package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"os"
	"path/filepath"

	"inkgrid"
	"inkgrid/pkg/cos"
	"inkgrid/pkg/extract"
	"inkgrid/pkg/font"
	"inkgrid/pkg/font/ttf"
	"inkgrid/pkg/graphics"
	"inkgrid/pkg/scene"
)

// PDF is the operator-stream provider backed by the COS object layer.
// It implements extract.Source.
type PDF struct {
	label     string
	reader    *cos.Reader
	pageCount int

	resources map[int]*pdfResources
}

// OpenPDFFile opens a page-description file as a provider.
func OpenPDFFile(path string) (*PDF, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("source %q: %w", path, err)
	}
	return NewPDF(data, filepath.Base(path))
}

// NewPDF creates a provider from raw document bytes.
func NewPDF(data []byte, label string) (*PDF, error) {
	if Detect(data) != KindOperatorStream {
		return nil, fmt.Errorf("%w: %q is not a page-description document", ErrInvalidSource, label)
	}
	reader, err := cos.NewReader(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidSource, label, err)
	}
	count, err := reader.PageCount()
	if err != nil {
		return nil, fmt.Errorf("%w: %q: page count: %v", ErrInvalidSource, label, err)
	}
	return &PDF{
		label:     label,
		reader:    reader,
		pageCount: count,
		resources: make(map[int]*pdfResources),
	}, nil
}

// Label identifies the source in diagnostics.
func (p *PDF) Label() string { return p.label }

// PageCount returns the number of pages.
func (p *PDF) PageCount() int { return p.pageCount }

// Reader exposes the underlying object layer for advanced use.
func (p *PDF) Reader() *cos.Reader { return p.reader }

// Close releases the source.
func (p *PDF) Close() error { return nil }

// PageOperators fetches and tokenizes the page's content streams.
// This is the pipeline's suspension point; the context is honoured
// before any decoding starts.
func (p *PDF) PageOperators(ctx context.Context, page int) ([]graphics.Operator, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dict, err := p.reader.GetPage(page)
	if err != nil {
		return nil, err
	}
	contents, err := p.reader.GetPageContents(dict)
	if err != nil {
		return nil, err
	}
	if len(contents) == 0 {
		return nil, nil
	}
	return graphics.ParseContentStream(contents)
}

// PageView returns the page's media box.
func (p *PDF) PageView(page int) graphics.Rect {
	dict, err := p.reader.GetPage(page)
	if err != nil {
		return graphics.Rect{MaxX: 612, MaxY: 792}
	}
	x1, y1, x2, y2 := p.reader.PageMediaBox(dict)
	return graphics.NewRect(x1, y1, x2, y2)
}

// PageRotation returns the page's intrinsic rotation.
func (p *PDF) PageRotation(page int) int {
	dict, err := p.reader.GetPage(page)
	if err != nil {
		return 0
	}
	return p.reader.PageRotation(dict)
}

// PageViewTransform maps page-description space (y-up, media-box
// anchored) onto the origin-anchored, y-down view rectangle, then
// applies the rotation.
func (p *PDF) PageViewTransform(page int, rotation int) graphics.Matrix {
	view := p.PageView(page)
	w, h := view.Width(), view.Height()

	// Flip to y-down and anchor the media box at the origin.
	m := graphics.Matrix{1, 0, 0, -1, -view.MinX, view.MaxY}

	switch ((rotation % 360) + 360) % 360 {
	case 90:
		m = m.Multiply(graphics.Matrix{0, 1, -1, 0, h, 0})
	case 180:
		m = m.Multiply(graphics.Matrix{-1, 0, 0, -1, w, h})
	case 270:
		m = m.Multiply(graphics.Matrix{0, -1, 1, 0, 0, w})
	}
	return m
}

// PageResources builds (and caches) the page's resource resolver.
func (p *PDF) PageResources(page int) (extract.PageResources, error) {
	if res, ok := p.resources[page]; ok {
		return res, nil
	}
	dict, err := p.reader.GetPage(page)
	if err != nil {
		return nil, err
	}
	resDict, err := p.reader.PageResources(dict)
	if err != nil {
		resDict = cos.Dict{}
	}
	res := &pdfResources{
		reader: p.reader,
		dict:   resDict,
		images: make(map[string]*scene.RasterLayer),
		fonts:  make(map[string]extract.GlyphSource),
	}
	p.resources[page] = res
	return res, nil
}

// pdfResources resolves a page's named resources lazily, caching
// decoded images and parsed fonts.
type pdfResources struct {
	reader *cos.Reader
	dict   cos.Dict
	images map[string]*scene.RasterLayer
	fonts  map[string]extract.GlyphSource
}

// ExtGState returns a named graphics-state dictionary as plain
// key/value pairs.
func (r *pdfResources) ExtGState(name string) (map[string]interface{}, bool) {
	states, ok := r.subDict("ExtGState")
	if !ok {
		return nil, false
	}
	gs, err := r.reader.ResolveDict(states.Get(name))
	if err != nil {
		return nil, false
	}
	out := make(map[string]interface{}, len(gs))
	for k, v := range gs {
		resolved, _ := r.reader.Resolve(v)
		switch x := resolved.(type) {
		case cos.Integer:
			out[string(k)] = float64(x)
		case cos.Real:
			out[string(k)] = float64(x)
		case cos.Boolean:
			out[string(k)] = bool(x)
		case cos.Name:
			out[string(k)] = string(x)
		}
	}
	return out, true
}

// Image decodes a named image XObject into a premultiplied raster
// template.
func (r *pdfResources) Image(name string) (*scene.RasterLayer, bool) {
	if layer, ok := r.images[name]; ok {
		return layer, layer != nil
	}
	layer := r.decodeImage(name)
	r.images[name] = layer
	return layer, layer != nil
}

func (r *pdfResources) decodeImage(name string) *scene.RasterLayer {
	xobjects, ok := r.subDict("XObject")
	if !ok {
		return nil
	}
	s, err := r.reader.ResolveStream(xobjects.Get(name))
	if err != nil {
		return nil
	}
	subtype, _ := s.Dict.GetName("Subtype")
	if subtype != "Image" {
		return nil
	}

	width, _ := s.Dict.GetInt("Width")
	height, _ := s.Dict.GetInt("Height")
	if width <= 0 || height <= 0 {
		return nil
	}

	data, err := r.reader.DecodeStream(s)
	if err != nil {
		inkgrid.Logger().Warn("image decode failed", "name", name, "err", err)
		return nil
	}

	pix := r.samplesToRGBA(s, data, int(width), int(height))
	if pix == nil {
		return nil
	}
	return &scene.RasterLayer{Width: int(width), Height: int(height), Pix: pix}
}

// samplesToRGBA converts decoded image samples to premultiplied RGBA.
// DCT payloads pass through the filter chain untouched and decode as
// JPEG here.
func (r *pdfResources) samplesToRGBA(s *cos.Stream, data []byte, w, h int) []byte {
	if hasFilter(s, "DCTDecode") {
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			inkgrid.Logger().Warn("jpeg decode failed", "err", err)
			return nil
		}
		dst := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(dst, dst.Bounds(), img, img.Bounds().Min, draw.Src)
		return dst.Pix
	}

	bpc, _ := s.Dict.GetInt("BitsPerComponent")
	if bpc == 0 {
		bpc = 8
	}
	comps := r.colorComponents(s)

	pix := make([]byte, w*h*4)
	switch {
	case bpc == 8 && comps == 3:
		for i := 0; i < w*h && i*3+2 < len(data); i++ {
			pix[i*4+0] = data[i*3+0]
			pix[i*4+1] = data[i*3+1]
			pix[i*4+2] = data[i*3+2]
			pix[i*4+3] = 255
		}
	case bpc == 8 && comps == 1:
		for i := 0; i < w*h && i < len(data); i++ {
			g := data[i]
			pix[i*4+0] = g
			pix[i*4+1] = g
			pix[i*4+2] = g
			pix[i*4+3] = 255
		}
	case bpc == 8 && comps == 4:
		for i := 0; i < w*h && i*4+3 < len(data); i++ {
			c, m, y, k := data[i*4], data[i*4+1], data[i*4+2], data[i*4+3]
			pix[i*4+0] = byte((255 - int(c)) * (255 - int(k)) / 255)
			pix[i*4+1] = byte((255 - int(m)) * (255 - int(k)) / 255)
			pix[i*4+2] = byte((255 - int(y)) * (255 - int(k)) / 255)
			pix[i*4+3] = 255
		}
	case bpc == 1:
		// Bilevel: rows are padded to byte boundaries.
		stride := (w + 7) / 8
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				idx := y*stride + x/8
				if idx >= len(data) {
					break
				}
				v := byte(255)
				if data[idx]&(0x80>>uint(x%8)) != 0 {
					v = 0
				}
				i := y*w + x
				pix[i*4+0] = v
				pix[i*4+1] = v
				pix[i*4+2] = v
				pix[i*4+3] = 255
			}
		}
	default:
		inkgrid.Logger().Warn("unsupported image format", "bpc", bpc, "components", comps)
		return nil
	}
	return pix
}

func (r *pdfResources) colorComponents(s *cos.Stream) int {
	csObj, _ := r.reader.Resolve(s.Dict.Get("ColorSpace"))
	switch cs := csObj.(type) {
	case cos.Name:
		switch cs {
		case "DeviceRGB", "CalRGB":
			return 3
		case "DeviceCMYK":
			return 4
		}
		return 1
	case cos.Array:
		if len(cs) > 0 {
			if n, ok := cs[0].(cos.Name); ok && n == "ICCBased" && len(cs) > 1 {
				if icc, err := r.reader.ResolveStream(cs[1]); err == nil {
					if n, ok := icc.Dict.GetInt("N"); ok {
						return int(n)
					}
				}
			}
		}
	}
	return 1
}

func hasFilter(s *cos.Stream, name cos.Name) bool {
	switch f := s.Dict.Get("Filter").(type) {
	case cos.Name:
		return f == name
	case cos.Array:
		for _, item := range f {
			if n, ok := item.(cos.Name); ok && n == name {
				return true
			}
		}
	}
	return false
}

// Font returns the glyph source for a named font: the embedded
// TrueType outlines when present, a box fallback otherwise.
func (r *pdfResources) Font(name string) (extract.GlyphSource, bool) {
	if f, ok := r.fonts[name]; ok {
		return f, true
	}
	f := r.loadFont(name)
	r.fonts[name] = f
	return f, true
}

func (r *pdfResources) loadFont(name string) extract.GlyphSource {
	fonts, ok := r.subDict("Font")
	if !ok {
		return font.BoxGlyphs{}
	}
	fontDict, err := r.reader.ResolveDict(fonts.Get(name))
	if err != nil {
		return font.BoxGlyphs{}
	}

	descriptor, err := r.reader.ResolveDict(fontDict.Get("FontDescriptor"))
	if err != nil {
		// Composite fonts keep their descriptor on the descendant.
		if desc, err2 := r.reader.ResolveArray(fontDict.Get("DescendantFonts")); err2 == nil && len(desc) > 0 {
			if dd, err3 := r.reader.ResolveDict(desc[0]); err3 == nil {
				descriptor, err = r.reader.ResolveDict(dd.Get("FontDescriptor"))
			}
		}
		if err != nil {
			return font.BoxGlyphs{}
		}
	}

	fileStream, err := r.reader.ResolveStream(descriptor.Get("FontFile2"))
	if err != nil {
		return font.BoxGlyphs{}
	}
	data, err := r.reader.DecodeStream(fileStream)
	if err != nil {
		inkgrid.Logger().Warn("embedded font decode failed", "font", name, "err", err)
		return font.BoxGlyphs{}
	}
	parsed, err := ttf.Parse(data)
	if err != nil {
		inkgrid.Logger().Warn("embedded font parse failed", "font", name, "err", err)
		return font.BoxGlyphs{}
	}
	return font.NewOutliner(parsed)
}

func (r *pdfResources) subDict(key string) (cos.Dict, bool) {
	d, err := r.reader.ResolveDict(r.dict.Get(key))
	if err != nil {
		return nil, false
	}
	return d, true
}
