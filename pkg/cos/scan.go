package cos

import (
	"bytes"
	"fmt"
	"strconv"
)

// scanner is a recursive-descent reader over raw object syntax. There
// is no token stream: each scan* method consumes bytes and produces a
// typed Object directly.
type scanner struct {
	data []byte
	pos  int
}

func newScanner(data []byte) *scanner {
	return &scanner{data: data}
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	return b == '(' || b == ')' || b == '<' || b == '>' ||
		b == '[' || b == ']' || b == '{' || b == '}' ||
		b == '/' || b == '%'
}

// skipSpace advances past whitespace and % comments.
func (s *scanner) skipSpace() {
	for s.pos < len(s.data) {
		b := s.data[s.pos]
		if isWhitespace(b) {
			s.pos++
			continue
		}
		if b == '%' {
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
			continue
		}
		return
	}
}

func (s *scanner) peek() (byte, bool) {
	if s.pos >= len(s.data) {
		return 0, false
	}
	return s.data[s.pos], true
}

// hasPrefix reports whether the unconsumed input starts with the word,
// followed by a delimiter or whitespace.
func (s *scanner) hasPrefix(word string) bool {
	end := s.pos + len(word)
	if end > len(s.data) || string(s.data[s.pos:end]) != word {
		return false
	}
	if end == len(s.data) {
		return true
	}
	next := s.data[end]
	return isWhitespace(next) || isDelimiter(next)
}

// scanObject reads one object of any type.
func (s *scanner) scanObject() (Object, error) {
	s.skipSpace()
	b, ok := s.peek()
	if !ok {
		return nil, fmt.Errorf("cos: unexpected end of input")
	}

	switch {
	case b == '/':
		return s.scanName(), nil
	case b == '(':
		return s.scanLiteralString()
	case b == '[':
		return s.scanArray()
	case b == '<':
		if s.pos+1 < len(s.data) && s.data[s.pos+1] == '<' {
			return s.scanDict()
		}
		return s.scanHexString()
	case b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9'):
		return s.scanNumberOrRef()
	case s.hasPrefix("true"):
		s.pos += 4
		return Boolean(true), nil
	case s.hasPrefix("false"):
		s.pos += 5
		return Boolean(false), nil
	case s.hasPrefix("null"):
		s.pos += 4
		return Null{}, nil
	default:
		return nil, fmt.Errorf("cos: unexpected byte %q at offset %d", b, s.pos)
	}
}

// scanName reads /Name; the leading slash is consumed here.
func (s *scanner) scanName() Name {
	s.pos++ // '/'
	start := s.pos
	var decoded []byte
	for s.pos < len(s.data) {
		b := s.data[s.pos]
		if isWhitespace(b) || isDelimiter(b) {
			break
		}
		// #xx escapes inside names.
		if b == '#' && s.pos+2 < len(s.data) {
			if v, err := strconv.ParseUint(string(s.data[s.pos+1:s.pos+3]), 16, 8); err == nil {
				if decoded == nil {
					decoded = append(decoded, s.data[start:s.pos]...)
				}
				decoded = append(decoded, byte(v))
				s.pos += 3
				continue
			}
		}
		if decoded != nil {
			decoded = append(decoded, b)
		}
		s.pos++
	}
	if decoded != nil {
		return Name(decoded)
	}
	return Name(s.data[start:s.pos])
}

// scanLiteralString reads (...) with escapes and nested parentheses.
func (s *scanner) scanLiteralString() (String, error) {
	s.pos++ // '('
	var out []byte
	depth := 1
	for s.pos < len(s.data) {
		b := s.data[s.pos]
		s.pos++
		switch b {
		case '\\':
			if s.pos >= len(s.data) {
				break
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, e)
			case '\r':
				// Line continuation; swallow a following LF too.
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
			case '\n':
				// Line continuation.
			default:
				if e >= '0' && e <= '7' {
					v := uint32(e - '0')
					for n := 0; n < 2 && s.pos < len(s.data); n++ {
						d := s.data[s.pos]
						if d < '0' || d > '7' {
							break
						}
						v = v<<3 | uint32(d-'0')
						s.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		case '(':
			depth++
			out = append(out, b)
		case ')':
			depth--
			if depth == 0 {
				return String(out), nil
			}
			out = append(out, b)
		default:
			out = append(out, b)
		}
	}
	return "", fmt.Errorf("cos: unterminated string")
}

// scanHexString reads <...>.
func (s *scanner) scanHexString() (String, error) {
	s.pos++ // '<'
	var out []byte
	var nibble byte
	haveNibble := false
	for s.pos < len(s.data) {
		b := s.data[s.pos]
		s.pos++
		if b == '>' {
			if haveNibble {
				out = append(out, nibble<<4)
			}
			return String(out), nil
		}
		var v byte
		switch {
		case b >= '0' && b <= '9':
			v = b - '0'
		case b >= 'A' && b <= 'F':
			v = b - 'A' + 10
		case b >= 'a' && b <= 'f':
			v = b - 'a' + 10
		default:
			continue
		}
		if haveNibble {
			out = append(out, nibble<<4|v)
			haveNibble = false
		} else {
			nibble = v
			haveNibble = true
		}
	}
	return "", fmt.Errorf("cos: unterminated hex string")
}

// scanArray reads [...].
func (s *scanner) scanArray() (Array, error) {
	s.pos++ // '['
	var arr Array
	for {
		s.skipSpace()
		b, ok := s.peek()
		if !ok {
			return nil, fmt.Errorf("cos: unterminated array")
		}
		if b == ']' {
			s.pos++
			return arr, nil
		}
		obj, err := s.scanObject()
		if err != nil {
			return nil, err
		}
		arr = append(arr, obj)
	}
}

// scanDict reads <<...>>.
func (s *scanner) scanDict() (Dict, error) {
	s.pos += 2 // '<<'
	dict := make(Dict)
	for {
		s.skipSpace()
		if s.pos+1 < len(s.data) && s.data[s.pos] == '>' && s.data[s.pos+1] == '>' {
			s.pos += 2
			return dict, nil
		}
		b, ok := s.peek()
		if !ok {
			return nil, fmt.Errorf("cos: unterminated dictionary")
		}
		if b != '/' {
			return nil, fmt.Errorf("cos: dictionary key must be a name, got %q", b)
		}
		key := s.scanName()
		value, err := s.scanObject()
		if err != nil {
			return nil, fmt.Errorf("cos: value for key /%s: %w", key, err)
		}
		dict[key] = value
	}
}

// scanNumberOrRef reads a number, upgrading "n g R" to a reference via
// bounded lookahead.
func (s *scanner) scanNumberOrRef() (Object, error) {
	num, isInt, err := s.scanNumber()
	if err != nil {
		return nil, err
	}
	if !isInt {
		return Real(num), nil
	}

	// Lookahead for "gen R".
	save := s.pos
	s.skipSpace()
	if b, ok := s.peek(); ok && b >= '0' && b <= '9' {
		gen, genInt, err := s.scanNumber()
		if err == nil && genInt {
			s.skipSpace()
			if s.hasPrefix("R") {
				s.pos++
				return &Reference{
					ObjectNumber:     int(num),
					GenerationNumber: int(gen),
				}, nil
			}
		}
	}
	s.pos = save
	return Integer(int64(num)), nil
}

// scanNumber reads the numeric literal at the cursor.
func (s *scanner) scanNumber() (float64, bool, error) {
	start := s.pos
	isInt := true
	if b, ok := s.peek(); ok && (b == '+' || b == '-') {
		s.pos++
	}
	for s.pos < len(s.data) {
		b := s.data[s.pos]
		if b == '.' {
			isInt = false
			s.pos++
			continue
		}
		if b < '0' || b > '9' {
			break
		}
		s.pos++
	}
	text := string(s.data[start:s.pos])
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false, fmt.Errorf("cos: bad number %q", text)
	}
	return v, isInt, nil
}

// scanIndirectObject reads "n g obj ... endobj". When the body is a
// dictionary followed by a stream keyword, the stream payload is
// attached: sliced by /Length when it is a direct integer, otherwise
// delimited by scanning for the endstream keyword (covers indirect
// Length values without a second resolution pass).
func (s *scanner) scanIndirectObject() (*IndirectObject, error) {
	s.skipSpace()
	objNum, ok1, err := s.scanNumber()
	if err != nil || !ok1 {
		return nil, fmt.Errorf("cos: expected object number")
	}
	s.skipSpace()
	genNum, ok2, err := s.scanNumber()
	if err != nil || !ok2 {
		return nil, fmt.Errorf("cos: expected generation number")
	}
	s.skipSpace()
	if !s.hasPrefix("obj") {
		return nil, fmt.Errorf("cos: expected obj keyword")
	}
	s.pos += 3

	obj, err := s.scanObject()
	if err != nil {
		return nil, fmt.Errorf("cos: object %d: %w", int(objNum), err)
	}

	if dict, isDict := obj.(Dict); isDict {
		s.skipSpace()
		if s.hasPrefix("stream") {
			payload, err := s.scanStreamData(dict)
			if err != nil {
				return nil, fmt.Errorf("cos: object %d: %w", int(objNum), err)
			}
			obj = &Stream{Dict: dict, Data: payload}
		}
	}

	// endobj may be missing in damaged files; scan past it when found.
	s.skipSpace()
	if s.hasPrefix("endobj") {
		s.pos += 6
	}

	return &IndirectObject{
		ObjectNumber:     int(objNum),
		GenerationNumber: int(genNum),
		Object:           obj,
	}, nil
}

func (s *scanner) scanStreamData(dict Dict) ([]byte, error) {
	s.pos += len("stream")
	// A single EOL follows the keyword.
	if s.pos < len(s.data) && s.data[s.pos] == '\r' {
		s.pos++
	}
	if s.pos < len(s.data) && s.data[s.pos] == '\n' {
		s.pos++
	}
	start := s.pos

	if length, ok := dict.GetInt("Length"); ok && length >= 0 {
		end := start + int(length)
		if end > len(s.data) {
			end = len(s.data)
		}
		s.pos = end
		s.skipSpace()
		if s.hasPrefix("endstream") {
			s.pos += 9
			return s.data[start:end], nil
		}
		// Length lied; fall through to marker scanning.
		s.pos = start
	}

	idx := bytes.Index(s.data[start:], []byte("endstream"))
	if idx < 0 {
		return nil, fmt.Errorf("cos: unterminated stream")
	}
	end := start + idx
	s.pos = end + 9
	// Trim the EOL that precedes the keyword.
	for end > start && (s.data[end-1] == '\n' || s.data[end-1] == '\r') {
		end--
	}
	return s.data[start:end], nil
}

// ParseObjectAt scans the indirect object at the given byte offset.
func ParseObjectAt(data []byte, offset int64) (*IndirectObject, error) {
	if offset < 0 || int(offset) >= len(data) {
		return nil, fmt.Errorf("cos: offset %d out of range", offset)
	}
	return newScanner(data[offset:]).scanIndirectObject()
}

// ParseObjectsFromStream decodes the contents of an object stream: a
// header of (objectNumber, offset) pairs followed by the bare objects.
func ParseObjectsFromStream(streamData []byte, dict Dict) (map[int]Object, error) {
	n, ok := dict.GetInt("N")
	if !ok {
		return nil, fmt.Errorf("cos: object stream missing N")
	}
	first, ok := dict.GetInt("First")
	if !ok || first < 0 || int(first) > len(streamData) {
		return nil, fmt.Errorf("cos: object stream missing First")
	}

	header := newScanner(streamData[:first])
	type entry struct{ objNum, offset int }
	var entries []entry
	for i := int64(0); i < n; i++ {
		header.skipSpace()
		objNum, ok1, err1 := header.scanNumber()
		header.skipSpace()
		offset, ok2, err2 := header.scanNumber()
		if err1 != nil || err2 != nil || !ok1 || !ok2 {
			break
		}
		entries = append(entries, entry{int(objNum), int(offset)})
	}

	objects := make(map[int]Object, len(entries))
	body := streamData[first:]
	for _, e := range entries {
		if e.offset < 0 || e.offset >= len(body) {
			continue
		}
		obj, err := newScanner(body[e.offset:]).scanObject()
		if err == nil {
			objects[e.objNum] = obj
		}
	}
	return objects, nil
}
