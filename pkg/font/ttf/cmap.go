package ttf

import (
	"fmt"
)

// decodeCharmap builds the byte-code lookup. Simple fonts address
// glyphs with single byte codes, so only code points below 256 are
// materialised; the subtable formats are decoded once into a plain map
// and the table bytes are not consulted again.
func (f *Font) decodeCharmap(table []byte) error {
	if table == nil {
		return fmt.Errorf("ttf: missing cmap table")
	}
	r := &reader{data: table}
	r.skip(2) // version
	numSubtables := int(r.u16())

	// Prefer the Windows BMP subtable, then Macintosh Roman, then
	// anything Unicode-flavoured, then whatever comes first.
	best, bestRank := -1, -1
	for i := 0; i < numSubtables && !r.truncated; i++ {
		platform := r.u16()
		encoding := r.u16()
		offset := int(r.u32())

		rank := 0
		switch {
		case platform == 3 && encoding == 1:
			rank = 3
		case platform == 1 && encoding == 0:
			rank = 2
		case platform == 0:
			rank = 1
		}
		if rank > bestRank {
			best, bestRank = offset, rank
		}
	}
	if r.truncated || best < 0 {
		return fmt.Errorf("ttf: no usable cmap subtable")
	}

	f.charToGlyph = make(map[byte]uint16)
	sub := r.at(best)
	switch format := sub.u16(); format {
	case 0:
		f.charmapFormat0(sub)
	case 4:
		f.charmapFormat4(sub)
	case 6:
		f.charmapFormat6(sub)
	case 12:
		f.charmapFormat12(sub)
	default:
		return fmt.Errorf("ttf: unsupported cmap format %d", format)
	}
	return nil
}

// charmapFormat0 is the byte-indexed table: 256 glyph ids in order.
func (f *Font) charmapFormat0(r *reader) {
	r.skip(4) // length, language
	for c := 0; c < 256; c++ {
		gid := uint16(r.u8())
		if r.truncated {
			return
		}
		if gid != 0 {
			f.charToGlyph[byte(c)] = gid
		}
	}
}

// charmapFormat4 is the segmented BMP mapping. Each segment covers
// [start, end] and resolves either through a delta or through the
// trailing glyph-id array addressed relative to the segment's
// idRangeOffset slot.
func (f *Font) charmapFormat4(r *reader) {
	r.skip(4) // length, language
	segCount := int(r.u16()) / 2
	r.skip(6) // searchRange, entrySelector, rangeShift
	if r.truncated || segCount == 0 {
		return
	}

	ends := make([]uint16, segCount)
	for i := range ends {
		ends[i] = r.u16()
	}
	r.skip(2) // reserved pad
	starts := make([]uint16, segCount)
	for i := range starts {
		starts[i] = r.u16()
	}
	deltas := make([]uint16, segCount)
	for i := range deltas {
		deltas[i] = r.u16()
	}
	rangeOffsetBase := r.pos
	offsets := make([]uint16, segCount)
	for i := range offsets {
		offsets[i] = r.u16()
	}
	if r.truncated {
		return
	}

	for seg := 0; seg < segCount; seg++ {
		start, end := int(starts[seg]), int(ends[seg])
		if start > 255 {
			continue
		}
		if end > 255 {
			end = 255
		}
		for c := start; c <= end; c++ {
			var gid uint16
			if offsets[seg] == 0 {
				gid = uint16(c) + deltas[seg]
			} else {
				slot := rangeOffsetBase + seg*2 + int(offsets[seg]) + 2*(c-start)
				gr := r.at(slot)
				gid = gr.u16()
				if gr.truncated {
					continue
				}
				if gid != 0 {
					gid += deltas[seg]
				}
			}
			if gid != 0 {
				f.charToGlyph[byte(c)] = gid
			}
		}
	}
}

// charmapFormat6 is a dense range starting at firstCode.
func (f *Font) charmapFormat6(r *reader) {
	r.skip(4) // length, language
	first := int(r.u16())
	count := int(r.u16())
	for i := 0; i < count; i++ {
		gid := r.u16()
		if r.truncated {
			return
		}
		c := first + i
		if c > 255 {
			return
		}
		if gid != 0 {
			f.charToGlyph[byte(c)] = gid
		}
	}
}

// charmapFormat12 is the segmented-coverage table of 32-bit groups.
func (f *Font) charmapFormat12(r *reader) {
	r.skip(10) // reserved, length, language
	groups := int(r.u32())
	for i := 0; i < groups; i++ {
		startChar := r.u32()
		endChar := r.u32()
		startGlyph := r.u32()
		if r.truncated {
			return
		}
		if startChar > 255 {
			continue
		}
		if endChar > 255 {
			endChar = 255
		}
		for c := startChar; c <= endChar; c++ {
			gid := uint16(startGlyph + (c - startChar))
			if gid != 0 {
				f.charToGlyph[byte(c)] = gid
			}
		}
	}
}
