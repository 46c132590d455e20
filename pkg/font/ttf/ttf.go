// Package ttf decodes embedded TrueType fonts down to what the glyph
// extraction pipeline needs: an em square, byte-code to glyph-id
// mapping, horizontal advances, and glyph outlines. Everything is
// decoded eagerly at parse time; lookups afterwards never touch the
// raw table bytes again except for outline data.
package ttf

import (
	"encoding/binary"
	"fmt"
)

// Font is a parsed embedded font.
type Font struct {
	// UnitsPerEm is the size of the em square in font units.
	UnitsPerEm uint16

	// NumGlyphs is the number of glyphs in the font.
	NumGlyphs int

	charToGlyph map[byte]uint16
	advances    []uint16
	loca        []uint32
	glyf        []byte
	longLoca    bool
}

// reader is a bounds-checked big-endian cursor over one table. Reads
// past the end return zero and latch the truncated flag, so decoders
// can parse an entire record and check validity once.
type reader struct {
	data      []byte
	pos       int
	truncated bool
}

func (r *reader) u8() byte {
	if r.pos+1 > len(r.data) {
		r.truncated = true
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *reader) u16() uint16 {
	if r.pos+2 > len(r.data) {
		r.truncated = true
		return 0
	}
	v := binary.BigEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func (r *reader) s16() int16 {
	return int16(r.u16())
}

func (r *reader) u32() uint32 {
	if r.pos+4 > len(r.data) {
		r.truncated = true
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) skip(n int) {
	if r.pos+n > len(r.data) {
		r.truncated = true
		r.pos = len(r.data)
		return
	}
	r.pos += n
}

func (r *reader) at(pos int) *reader {
	if pos < 0 || pos > len(r.data) {
		return &reader{truncated: true}
	}
	return &reader{data: r.data, pos: pos}
}

// sfnt scaler types accepted: TrueType outlines under either the
// classic or the OpenType wrapper.
const (
	scalerTrueType = 0x00010000
	scalerOTTO     = 0x4F54544F
	scalerApple    = 0x74727565
)

// Parse decodes a font from raw bytes. Fonts without TrueType outline
// tables (loca/glyf) are rejected; the caller falls back to box glyphs.
func Parse(data []byte) (*Font, error) {
	r := &reader{data: data}
	scaler := r.u32()
	if scaler != scalerTrueType && scaler != scalerOTTO && scaler != scalerApple {
		return nil, fmt.Errorf("ttf: unrecognised scaler type %08x", scaler)
	}
	numTables := int(r.u16())
	r.skip(6) // searchRange, entrySelector, rangeShift

	tables := make(map[string][]byte, numTables)
	for i := 0; i < numTables && !r.truncated; i++ {
		tagPos := r.pos
		r.skip(4)
		if r.truncated {
			break
		}
		tag := string(data[tagPos : tagPos+4])
		r.skip(4) // checksum
		offset := int(r.u32())
		length := int(r.u32())
		if offset < 0 || length < 0 || offset > len(data) {
			continue
		}
		end := offset + length
		if end > len(data) {
			end = len(data)
		}
		tables[tag] = data[offset:end]
	}

	f := &Font{}
	if err := f.decodeHead(tables["head"]); err != nil {
		return nil, err
	}
	if err := f.decodeMaxp(tables["maxp"]); err != nil {
		return nil, err
	}
	if err := f.decodeMetrics(tables["hhea"], tables["hmtx"]); err != nil {
		return nil, err
	}
	if err := f.decodeCharmap(tables["cmap"]); err != nil {
		return nil, err
	}
	if err := f.decodeOutlineIndex(tables["loca"], tables["glyf"]); err != nil {
		return nil, err
	}
	return f, nil
}

// decodeHead pulls the em size and the loca format out of the header.
func (f *Font) decodeHead(table []byte) error {
	if table == nil {
		return fmt.Errorf("ttf: missing head table")
	}
	r := &reader{data: table}
	r.skip(18) // version, revision, checksum adjustment, magic, flags
	f.UnitsPerEm = r.u16()
	r.skip(30) // dates, bbox, style, ppem, direction
	f.longLoca = r.s16() != 0
	if r.truncated {
		return fmt.Errorf("ttf: truncated head table")
	}
	if f.UnitsPerEm == 0 {
		f.UnitsPerEm = 1000
	}
	return nil
}

func (f *Font) decodeMaxp(table []byte) error {
	if table == nil {
		return fmt.Errorf("ttf: missing maxp table")
	}
	r := &reader{data: table}
	r.skip(4)
	f.NumGlyphs = int(r.u16())
	if r.truncated {
		return fmt.Errorf("ttf: truncated maxp table")
	}
	return nil
}

// decodeMetrics materialises one advance per glyph. The hmtx table
// stores explicit metrics for the first numberOfHMetrics glyphs; every
// later glyph repeats the last explicit advance.
func (f *Font) decodeMetrics(hhea, hmtx []byte) error {
	if hhea == nil || hmtx == nil {
		return fmt.Errorf("ttf: missing horizontal metrics")
	}
	hr := &reader{data: hhea}
	hr.skip(34)
	numMetrics := int(hr.u16())
	if hr.truncated || numMetrics == 0 {
		return fmt.Errorf("ttf: bad hhea table")
	}

	f.advances = make([]uint16, f.NumGlyphs)
	mr := &reader{data: hmtx}
	last := uint16(0)
	for i := 0; i < f.NumGlyphs; i++ {
		if i < numMetrics {
			last = mr.u16()
			mr.skip(2) // left side bearing
		}
		f.advances[i] = last
	}
	return nil
}

// Advance returns the glyph's horizontal advance in font units.
func (f *Font) Advance(gid uint16) uint16 {
	if int(gid) >= len(f.advances) {
		return 0
	}
	return f.advances[gid]
}

// GlyphID maps a single text byte to a glyph id. The second return is
// false when the font does not map the byte.
func (f *Font) GlyphID(b byte) (uint16, bool) {
	gid, ok := f.charToGlyph[b]
	return gid, ok
}

// decodeOutlineIndex validates and keeps the loca offsets plus the raw
// glyf data that Glyph slices into on demand.
func (f *Font) decodeOutlineIndex(loca, glyf []byte) error {
	if loca == nil || glyf == nil {
		return fmt.Errorf("ttf: missing outline tables")
	}
	f.glyf = glyf
	f.loca = make([]uint32, f.NumGlyphs+1)
	r := &reader{data: loca}
	for i := range f.loca {
		if f.longLoca {
			f.loca[i] = r.u32()
		} else {
			f.loca[i] = uint32(r.u16()) * 2
		}
	}
	if r.truncated {
		return fmt.Errorf("ttf: truncated loca table")
	}
	return nil
}
