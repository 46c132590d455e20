package archive

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"

	"inkgrid/pkg/graphics"
	"inkgrid/pkg/scene"
)

// testScene builds a small scene with every primitive family populated.
func testScene(t *testing.T) *scene.Scene {
	t.Helper()
	g := scene.NewPageGeometry(graphics.Rect{MaxX: 100, MaxY: 50})

	g.AddStroke(scene.Stroke{X0: 0, Y0: 0, X1: 10, Y1: 0, HalfWidth: 1, Luma: 0.25, Alpha: 1})
	g.AddStroke(scene.Stroke{X0: 5, Y0: 5, X1: 20, Y1: 17, HalfWidth: 0.5, Luma: 0, Alpha: 0.5, Flags: 1})
	g.SourceSegments = 3
	g.MergedSegments = 2

	g.AddFill(scene.FillPath{
		Bounds: graphics.Rect{MinX: 0, MinY: 0, MaxX: 10, MaxY: 10},
		R:      1, G: 0.5, Alpha: 0.8,
	}, []scene.Segment{{X0: 0, Y0: 0, X1: 10, Y1: 0}, {X0: 10, Y0: 0, X1: 10, Y1: 10}, {X0: 10, Y0: 10, X1: 0, Y1: 0}})

	gi := g.AddGlyph(scene.Glyph{Advance: 0.6, Bounds: graphics.Rect{MaxX: 0.5, MaxY: 0.7}},
		[]scene.Segment{{X0: 0, Y0: 0, X1: 0.5, Y1: 0}, {X0: 0.5, Y0: 0, X1: 0, Y1: 0.7}})
	g.TextInstances = append(g.TextInstances, scene.TextInstance{
		Matrix:      [6]float64{12, 0, 0, 12, 30, 40},
		GlyphOffset: gi, GlyphCount: 1,
		R: 0, G: 0, B: 1, Alpha: 1,
	})

	pix := make([]byte, 4*4*4)
	for i := range pix {
		pix[i] = byte(i * 3)
	}
	g.Rasters = append(g.Rasters, scene.RasterLayer{
		Width: 4, Height: 4, Pix: pix,
		Matrix: [6]float64{4, 0, 0, 4, 10, 10},
	})

	s, err := scene.Compose([]*scene.PageGeometry{g}, scene.ComposeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func roundTrip(t *testing.T, s *scene.Scene, opts ...WriteOption) *scene.Scene {
	t.Helper()
	var buf bytes.Buffer
	if err := Write(&buf, s, opts...); err != nil {
		t.Fatal(err)
	}
	loaded, err := Read(buf.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	return loaded
}

func TestRoundTrip_CountsAndGeometry(t *testing.T) {
	s := testScene(t)
	loaded := roundTrip(t, s)

	if loaded.StrokeCount != s.StrokeCount ||
		loaded.FillPathCount != s.FillPathCount ||
		loaded.FillSegmentCount != s.FillSegmentCount ||
		loaded.TextInstanceCount != s.TextInstanceCount ||
		loaded.GlyphCount != s.GlyphCount ||
		loaded.GlyphSegmentCount != s.GlyphSegmentCount ||
		loaded.RasterLayerCount != s.RasterLayerCount {
		t.Errorf("counts differ after round trip")
	}
	if loaded.SourceSegmentCount != s.SourceSegmentCount ||
		loaded.MergedSegmentCount != s.MergedSegmentCount {
		t.Errorf("provenance counters differ")
	}
	if loaded.Bounds != s.Bounds || loaded.PageBounds != s.PageBounds {
		t.Errorf("bounds differ: %+v vs %+v", loaded.Bounds, s.Bounds)
	}
	if !reflect.DeepEqual(loaded.PageRects, s.PageRects) {
		t.Errorf("page rects differ")
	}
	if loaded.PagesPerRow != s.PagesPerRow || loaded.PageCount != s.PageCount {
		t.Errorf("page layout differs")
	}
	if loaded.MaxHalfWidth != s.MaxHalfWidth {
		t.Errorf("max half width differs")
	}
}

func TestRoundTrip_FloatsBitIdentical(t *testing.T) {
	s := testScene(t)
	loaded := roundTrip(t, s)

	for _, orig := range s.Textures() {
		got := loaded.TextureByName(orig.Name)
		if got == nil {
			t.Fatalf("texture %s missing after round trip", orig.Name)
		}
		if got.LogicalItemCount != orig.LogicalItemCount {
			t.Errorf("%s logical count %d, want %d", orig.Name, got.LogicalItemCount, orig.LogicalItemCount)
		}
		if !reflect.DeepEqual(got.Logical(), orig.Logical()) {
			t.Errorf("%s logical floats differ", orig.Name)
		}
	}
}

func TestRoundTrip_RasterMatrices(t *testing.T) {
	s := testScene(t)

	for _, name := range []string{"png", "raw"} {
		t.Run(name, func(t *testing.T) {
			var opts []WriteOption
			if name == "raw" {
				opts = append(opts, RawRasters())
			}
			loaded := roundTrip(t, s, opts...)
			if len(loaded.Rasters) != 1 {
				t.Fatalf("raster count = %d", len(loaded.Rasters))
			}
			got := loaded.Rasters[0]
			want := s.Rasters[0]
			if got.Matrix != want.Matrix {
				t.Errorf("matrix = %v, want %v", got.Matrix, want.Matrix)
			}
			if got.Width != want.Width || got.Height != want.Height {
				t.Errorf("dims = %dx%d", got.Width, got.Height)
			}
			if !bytes.Equal(got.Pix, want.Pix) {
				t.Errorf("pixels differ after %s round trip", name)
			}
		})
	}
}

func TestRoundTrip_StoreCompression(t *testing.T) {
	s := testScene(t)
	loaded := roundTrip(t, s, Store())
	if loaded.StrokeCount != s.StrokeCount {
		t.Errorf("store-compressed archive lost strokes")
	}
}

func TestWrite_EmbedSource(t *testing.T) {
	s := testScene(t)
	var buf bytes.Buffer
	payload := []byte("%PDF-1.4 fake")
	if err := Write(&buf, s, EmbedSource("orig.pdf", payload)); err != nil {
		t.Fatal(err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	var man Manifest
	found := false
	for _, f := range zr.File {
		if f.Name == "manifest.json" {
			rc, _ := f.Open()
			if err := json.NewDecoder(rc).Decode(&man); err != nil {
				t.Fatal(err)
			}
			rc.Close()
		}
		if f.Name == "orig.pdf" {
			found = true
		}
	}
	if man.SourcePdfFile != "orig.pdf" {
		t.Errorf("sourcePdfFile = %q", man.SourcePdfFile)
	}
	if !found {
		t.Error("embedded source file missing from archive")
	}
}

func TestRead_Errors(t *testing.T) {
	t.Run("not a zip", func(t *testing.T) {
		if _, err := Read([]byte("junk")); !errors.Is(err, ErrInvalidArchive) {
			t.Errorf("err = %v, want ErrInvalidArchive", err)
		}
	})

	t.Run("missing manifest", func(t *testing.T) {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		fw, _ := zw.Create("readme.txt")
		fw.Write([]byte("hi"))
		zw.Close()
		if _, err := Read(buf.Bytes()); !errors.Is(err, ErrInvalidArchive) {
			t.Errorf("err = %v, want ErrInvalidArchive", err)
		}
	})

	t.Run("truncated texture", func(t *testing.T) {
		s := testScene(t)
		var buf bytes.Buffer
		if err := Write(&buf, s); err != nil {
			t.Fatal(err)
		}
		// Rewrite the archive with a shortened stroke tile.
		zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
		if err != nil {
			t.Fatal(err)
		}
		var out bytes.Buffer
		zw := zip.NewWriter(&out)
		for _, f := range zr.File {
			rc, _ := f.Open()
			data := new(bytes.Buffer)
			data.ReadFrom(rc)
			rc.Close()
			payload := data.Bytes()
			if f.Name == scene.TexStrokePrimitivesA+".f32" {
				payload = payload[:4]
			}
			fw, _ := zw.Create(f.Name)
			fw.Write(payload)
		}
		zw.Close()

		if _, err := Read(out.Bytes()); !errors.Is(err, ErrTruncatedTexture) {
			t.Errorf("err = %v, want ErrTruncatedTexture", err)
		}
	})
}

func TestRead_DerivedTextures(t *testing.T) {
	s := testScene(t)
	var buf bytes.Buffer
	if err := Write(&buf, s); err != nil {
		t.Fatal(err)
	}

	// Drop the optional stroke tiles; the reader must derive them.
	dropped := map[string]bool{
		scene.TexStrokePrimitivesB + ".f32":   true,
		scene.TexStrokePrimitiveBnds + ".f32": true,
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	for _, f := range zr.File {
		if dropped[f.Name] {
			continue
		}
		rc, _ := f.Open()
		data := new(bytes.Buffer)
		data.ReadFrom(rc)
		rc.Close()
		payload := data.Bytes()
		if f.Name == "manifest.json" {
			var man Manifest
			if err := json.Unmarshal(payload, &man); err != nil {
				t.Fatal(err)
			}
			var kept []TextureEntry
			for _, e := range man.Textures {
				if !dropped[e.File] {
					kept = append(kept, e)
				}
			}
			man.Textures = kept
			payload, _ = json.Marshal(&man)
		}
		fw, _ := zw.Create(f.Name)
		fw.Write(payload)
	}
	zw.Close()

	loaded, err := Read(out.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(loaded.StrokeEndsB.Logical(), s.StrokeEndsB.Logical()) {
		t.Error("derived stroke-primitives-b differs from the packed tile")
	}
	if !reflect.DeepEqual(loaded.StrokeBounds.Logical(), s.StrokeBounds.Logical()) {
		t.Error("derived stroke-primitive-bounds differs from the packed tile")
	}
}

func TestRead_LegacyStyleMigration(t *testing.T) {
	// Build a legacy-layout archive by hand: stroke meta carries
	// {luma, halfWidth, alpha, 0} and there is no styles tile.
	s := testScene(t)
	var buf bytes.Buffer
	if err := Write(&buf, s); err != nil {
		t.Fatal(err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	styleFile := scene.TexStrokeStyles + ".f32"
	for _, f := range zr.File {
		if f.Name == styleFile {
			continue
		}
		rc, _ := f.Open()
		data := new(bytes.Buffer)
		data.ReadFrom(rc)
		rc.Close()
		payload := data.Bytes()

		switch f.Name {
		case "manifest.json":
			var man Manifest
			if err := json.Unmarshal(payload, &man); err != nil {
				t.Fatal(err)
			}
			var kept []TextureEntry
			for _, e := range man.Textures {
				if e.File != styleFile {
					kept = append(kept, e)
				}
			}
			man.Textures = kept
			payload, _ = json.Marshal(&man)
		case scene.TexStrokePrimitiveMeta + ".f32":
			// Rewrite each texel to the legacy layout.
			for i := 0; i < s.StrokeCount; i++ {
				meta := s.StrokeMeta.Texel(i)
				styles := s.StrokeStyles.Texel(i)
				alpha, _ := scene.UnpackAlphaFlags(meta[3])
				putF32(payload, i*4+0, meta[0])
				putF32(payload, i*4+1, styles[0])
				putF32(payload, i*4+2, float32(alpha))
				putF32(payload, i*4+3, 0)
			}
		}
		fw, _ := zw.Create(f.Name)
		fw.Write(payload)
	}
	zw.Close()

	loaded, err := Read(out.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	if loaded.StrokeStyles == nil {
		t.Fatal("styles tile not reconstructed")
	}
	for i := 0; i < loaded.StrokeCount; i++ {
		st := loaded.StrokeStyles.Texel(i)
		meta := loaded.StrokeMeta.Texel(i)
		origMeta := s.StrokeMeta.Texel(i)
		origStyles := s.StrokeStyles.Texel(i)

		if st[0] != origStyles[0] {
			t.Errorf("stroke %d: half width = %v, want %v", i, st[0], origStyles[0])
		}
		if st[1] != origMeta[0] || st[2] != origMeta[0] || st[3] != origMeta[0] {
			t.Errorf("stroke %d: rgb = %v, want broadcast luma %v", i, st[1:], origMeta[0])
		}
		alpha, flags := scene.UnpackAlphaFlags(meta[3])
		origAlpha, _ := scene.UnpackAlphaFlags(origMeta[3])
		if alpha != origAlpha || flags != 0 {
			t.Errorf("stroke %d: migrated alpha/flags = (%v, %d)", i, alpha, flags)
		}
	}
}

func TestRead_EmptyScene(t *testing.T) {
	empty, err := scene.Compose(nil, scene.ComposeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	loaded := roundTrip(t, empty)
	if !loaded.IsEmpty() {
		t.Error("empty scene did not survive the round trip")
	}
}

// putF32 writes a little-endian float32 at texel-float index i.
func putF32(buf []byte, i int, v float32) {
	binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
}
