package cos

import (
	"bytes"
	"fmt"
	"strconv"

	"inkgrid/pkg/stream"
)

// XrefEntry locates one object: a byte offset for plain entries, or a
// position inside an object stream for compressed ones.
type XrefEntry struct {
	Offset     int64
	Generation int
	InUse      bool

	ObjectStreamNum int
	IndexInStream   int
}

// XrefTable maps object numbers to their locations in the file.
type XrefTable struct {
	Entries map[int]*XrefEntry
	Trailer Dict
}

// NewXrefTable creates an empty xref table.
func NewXrefTable() *XrefTable {
	return &XrefTable{
		Entries: make(map[int]*XrefEntry),
	}
}

// findStartXref locates the startxref offset near the end of the file.
func findStartXref(data []byte) (int64, error) {
	tail := data
	if len(tail) > 1024 {
		tail = tail[len(tail)-1024:]
	}
	idx := bytes.LastIndex(tail, []byte("startxref"))
	if idx == -1 {
		return 0, fmt.Errorf("startxref not found")
	}

	s := newScanner(tail[idx+len("startxref"):])
	s.skipSpace()
	offset, isInt, err := s.scanNumber()
	if err != nil || !isInt || offset < 0 {
		return 0, fmt.Errorf("invalid startxref offset")
	}
	return int64(offset), nil
}

// ParseXref parses the cross-reference data at the given offset,
// accepting either a classic table or an xref stream (PDF 1.5+).
func ParseXref(data []byte, offset int64) (*XrefTable, error) {
	table, err := parseXrefTable(data, offset)
	if err == nil {
		return table, nil
	}
	return parseXrefStream(data, offset)
}

// parseXrefTable parses a classic "xref" section: subsections of
// fixed-width 20-byte entries followed by the trailer dictionary.
func parseXrefTable(data []byte, offset int64) (*XrefTable, error) {
	if offset < 0 || int(offset) >= len(data) {
		return nil, fmt.Errorf("xref offset %d out of range", offset)
	}
	table := NewXrefTable()
	s := newScanner(data[offset:])
	s.skipSpace()
	if !s.hasPrefix("xref") {
		return nil, fmt.Errorf("xref keyword not found at offset %d", offset)
	}
	s.pos += 4

	for {
		s.skipSpace()
		if s.hasPrefix("trailer") {
			s.pos += 7
			break
		}

		startObj, ok1, err1 := s.scanNumber()
		s.skipSpace()
		count, ok2, err2 := s.scanNumber()
		if err1 != nil || err2 != nil || !ok1 || !ok2 {
			break
		}
		s.skipSpace()

		for i := 0; i < int(count); i++ {
			if s.pos+20 > len(s.data) {
				break
			}
			entry := parseXrefRecord(s.data[s.pos : s.pos+20])
			if entry != nil {
				table.Entries[int(startObj)+i] = entry
			}
			s.pos += 20
		}
	}

	trailer, err := s.scanObject()
	if err != nil {
		return nil, fmt.Errorf("xref trailer: %w", err)
	}
	dict, ok := trailer.(Dict)
	if !ok {
		return nil, fmt.Errorf("xref trailer is %T, not a dictionary", trailer)
	}
	table.Trailer = dict
	return table, nil
}

// parseXrefRecord decodes one 20-byte "nnnnnnnnnn ggggg n" entry.
func parseXrefRecord(rec []byte) *XrefEntry {
	fields := bytes.Fields(rec)
	if len(fields) < 3 || len(fields[2]) == 0 {
		return nil
	}
	offset, err1 := strconv.ParseInt(string(fields[0]), 10, 64)
	gen, err2 := strconv.Atoi(string(fields[1]))
	if err1 != nil || err2 != nil {
		return nil
	}
	return &XrefEntry{
		Offset:     offset,
		Generation: gen,
		InUse:      fields[2][0] == 'n',
	}
}

// parseXrefStream parses an xref stream (PDF 1.5+).
func parseXrefStream(data []byte, offset int64) (*XrefTable, error) {
	if offset < 0 || int(offset) >= len(data) {
		return nil, fmt.Errorf("xref offset %d out of range", offset)
	}
	indirect, err := newScanner(data[offset:]).scanIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("failed to parse xref stream object: %w", err)
	}
	s, ok := indirect.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("expected stream at xref stream offset")
	}
	return decodeXrefStream(s)
}

// decodeXrefStream decodes an xref stream into an XrefTable. The
// stream's filter chain is applied first; xref streams are almost
// always flate-compressed with a PNG predictor.
func decodeXrefStream(s *Stream) (*XrefTable, error) {
	table := NewXrefTable()
	table.Trailer = s.Dict

	wArray, ok := s.Dict.GetArray("W")
	if !ok || len(wArray) < 3 {
		return nil, fmt.Errorf("missing or invalid W array in xref stream")
	}
	var w [3]int
	for i := 0; i < 3; i++ {
		if n, ok := wArray[i].(Integer); ok {
			w[i] = int(n)
		}
	}
	entrySize := w[0] + w[1] + w[2]
	if entrySize == 0 {
		return nil, fmt.Errorf("invalid W array: entry size is 0")
	}

	decoded, err := decodeXrefStreamData(s)
	if err != nil {
		return nil, err
	}

	// Index lists (start, count) subsection pairs; the default is one
	// subsection covering every object.
	var indices []int
	if indexArray, ok := s.Dict.GetArray("Index"); ok {
		for _, v := range indexArray {
			if n, ok := v.(Integer); ok {
				indices = append(indices, int(n))
			}
		}
	} else if size, ok := s.Dict.GetInt("Size"); ok {
		indices = []int{0, int(size)}
	}

	pos := 0
	for i := 0; i+1 < len(indices); i += 2 {
		startObj := indices[i]
		count := indices[i+1]

		for j := 0; j < count && pos+entrySize <= len(decoded); j++ {
			var fields [3]int64
			for f := 0; f < 3; f++ {
				for k := 0; k < w[f]; k++ {
					fields[f] = fields[f]<<8 | int64(decoded[pos])
					pos++
				}
			}

			// A zero-width type field defaults to 1 (plain entry).
			entryType := fields[0]
			if w[0] == 0 {
				entryType = 1
			}

			entry := &XrefEntry{}
			switch entryType {
			case 0: // free
				entry.Offset = fields[1]
				entry.Generation = int(fields[2])
			case 1: // plain
				entry.InUse = true
				entry.Offset = fields[1]
				entry.Generation = int(fields[2])
			case 2: // compressed, lives in an object stream
				entry.InUse = true
				entry.ObjectStreamNum = int(fields[1])
				entry.IndexInStream = int(fields[2])
			}
			table.Entries[startObj+j] = entry
		}
	}

	return table, nil
}

// decodeXrefStreamData applies the xref stream's own filter chain.
// Filter and DecodeParms in an xref stream are direct objects, so no
// reference resolution is needed here.
func decodeXrefStreamData(s *Stream) ([]byte, error) {
	filterObj := s.Dict.Get("Filter")
	if filterObj == nil {
		return s.Data, nil
	}

	var filters []Name
	switch f := filterObj.(type) {
	case Name:
		filters = []Name{f}
	case Array:
		for _, item := range f {
			if n, ok := item.(Name); ok {
				filters = append(filters, n)
			}
		}
	}

	params := stream.DefaultDecodeParams()
	if parms, ok := s.Dict.GetDict("DecodeParms"); ok {
		if v, ok := parms.GetInt("Predictor"); ok {
			params.Predictor = int(v)
		}
		if v, ok := parms.GetInt("Colors"); ok {
			params.Colors = int(v)
		}
		if v, ok := parms.GetInt("BitsPerComponent"); ok {
			params.BitsPerComponent = int(v)
		}
		if v, ok := parms.GetInt("Columns"); ok {
			params.Columns = int(v)
		}
	}

	data := s.Data
	for _, f := range filters {
		decoded, err := stream.Decode(data, stream.Filter(f), params)
		if err != nil {
			return nil, fmt.Errorf("xref stream filter %s: %w", f, err)
		}
		data = decoded
	}
	return data, nil
}
