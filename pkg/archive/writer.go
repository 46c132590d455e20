package archive

import (
	"archive/zip"
	"bytes"
	"compress/flate"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"os"

	"inkgrid"
	"inkgrid/pkg/scene"
)

// Compression selects the container compression method.
type Compression int

const (
	CompressionStore Compression = iota
	CompressionDeflate
)

// WriteOptions configure the archive writer.
type WriteOptions struct {
	// EncodeRasterImages encodes raster layers as PNG; when false they
	// are stored as raw .rgba payloads.
	// Default: true
	EncodeRasterImages bool

	// Compression selects store or deflate for the container.
	// Default: CompressionDeflate
	Compression Compression

	// DeflateLevel is the deflate level (0..9).
	// Default: 6
	DeflateLevel int

	// SourcePDF optionally embeds the original operator-stream file.
	SourcePDF []byte

	// SourcePDFName names the embedded file inside the archive.
	// Default: "source.pdf"
	SourcePDFName string
}

// DefaultWriteOptions returns writer options with the standard defaults.
func DefaultWriteOptions() WriteOptions {
	return WriteOptions{
		EncodeRasterImages: true,
		Compression:        CompressionDeflate,
		DeflateLevel:       6,
		SourcePDFName:      "source.pdf",
	}
}

// WriteOption is a functional option for configuring WriteOptions.
type WriteOption func(*WriteOptions)

// RawRasters stores raster layers as raw RGBA payloads.
func RawRasters() WriteOption {
	return func(o *WriteOptions) { o.EncodeRasterImages = false }
}

// Store disables container compression.
func Store() WriteOption {
	return func(o *WriteOptions) { o.Compression = CompressionStore }
}

// DeflateLevel sets the deflate level (0..9).
func DeflateLevel(level int) WriteOption {
	return func(o *WriteOptions) {
		o.Compression = CompressionDeflate
		o.DeflateLevel = level
	}
}

// EmbedSource embeds the original operator-stream file.
func EmbedSource(name string, data []byte) WriteOption {
	return func(o *WriteOptions) {
		o.SourcePDF = data
		if name != "" {
			o.SourcePDFName = name
		}
	}
}

// WriteFile writes the scene archive to a file.
func WriteFile(path string, s *scene.Scene, opts ...WriteOption) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("archive: create %q: %w", path, err)
	}
	if err := Write(f, s, opts...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Write writes the scene archive to w.
func Write(w io.Writer, s *scene.Scene, opts ...WriteOption) error {
	o := DefaultWriteOptions()
	for _, opt := range opts {
		opt(&o)
	}

	zw := zip.NewWriter(w)
	method := zip.Store
	if o.Compression == CompressionDeflate {
		method = zip.Deflate
		level := o.DeflateLevel
		zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
			return flate.NewWriter(out, level)
		})
	}

	man := Manifest{
		FormatVersion: FormatVersion,
		Scene:         sceneManifest(s),
	}

	for _, t := range s.Textures() {
		file := t.Name + ".f32"
		man.Textures = append(man.Textures, TextureEntry{
			Name:              t.Name,
			File:              file,
			Width:             t.Width,
			Height:            t.Height,
			Channels:          4,
			ComponentType:     "float32",
			Layout:            string(scene.LayoutInterleaved),
			LogicalItemCount:  t.LogicalItemCount,
			LogicalFloatCount: t.LogicalFloatCount(),
			PaddedFloatCount:  t.PaddedFloatCount(),
		})
		if err := writeEntry(zw, file, method, encodeFloats(t.Data)); err != nil {
			return err
		}
	}

	for i, r := range s.Rasters {
		entry := RasterEntry{
			Width:  r.Width,
			Height: r.Height,
			Matrix: r.Matrix,
		}
		var payload []byte
		if o.EncodeRasterImages {
			entry.File = fmt.Sprintf("raster-%04d.png", i)
			entry.Encoding = "png"
			var err error
			payload, err = encodePNG(r)
			if err != nil {
				return fmt.Errorf("archive: raster %d: %w", i, err)
			}
		} else {
			entry.File = fmt.Sprintf("raster-%04d.rgba", i)
			entry.Encoding = "rgba"
			payload = r.Pix
		}
		man.Scene.RasterLayers = append(man.Scene.RasterLayers, entry)
		if err := writeEntry(zw, entry.File, method, payload); err != nil {
			return err
		}
	}

	if len(o.SourcePDF) > 0 {
		man.SourcePdfFile = o.SourcePDFName
		if err := writeEntry(zw, o.SourcePDFName, method, o.SourcePDF); err != nil {
			return err
		}
	}

	manifestBytes, err := json.MarshalIndent(&man, "", "  ")
	if err != nil {
		return fmt.Errorf("archive: marshal manifest: %w", err)
	}
	if err := writeEntry(zw, "manifest.json", method, manifestBytes); err != nil {
		return err
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("archive: close: %w", err)
	}
	inkgrid.Logger().Info("archive written",
		"textures", len(man.Textures),
		"rasters", len(man.Scene.RasterLayers))
	return nil
}

func writeEntry(zw *zip.Writer, name string, method uint16, data []byte) error {
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method})
	if err != nil {
		return fmt.Errorf("archive: create entry %q: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("archive: write entry %q: %w", name, err)
	}
	return nil
}

// encodeFloats serialises floats as little-endian float32.
func encodeFloats(data []float32) []byte {
	out := make([]byte, len(data)*4)
	for i, f := range data {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(f))
	}
	return out
}

// encodePNG encodes a premultiplied raster layer as PNG. The pixels are
// widened to 16 bits per channel so that the encoder's conversion to
// straight alpha loses nothing and decoding restores the exact bytes.
func encodePNG(r scene.RasterLayer) ([]byte, error) {
	img := image.NewRGBA64(image.Rect(0, 0, r.Width, r.Height))
	for i, c := range r.Pix[:len(img.Pix)/2] {
		img.Pix[2*i] = c
		img.Pix[2*i+1] = c
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
