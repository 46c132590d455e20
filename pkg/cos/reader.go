package cos

import (
	"fmt"
	"os"

	"inkgrid/pkg/stream"
)

// Reader provides high-level access to a PDF document's object
// structure: the xref table, the page tree, and decoded streams.
type Reader struct {
	data   []byte
	xref   *XrefTable
	cache  map[int]Object
	objStm map[int]map[int]Object // objects parsed out of object streams

	pageList []Dict // flattened page tree, built lazily
}

// Open opens a PDF file and creates a Reader.
func Open(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return NewReader(data)
}

// NewReader creates a Reader from PDF data.
func NewReader(data []byte) (*Reader, error) {
	r := &Reader{
		data:   data,
		cache:  make(map[int]Object),
		objStm: make(map[int]map[int]Object),
	}

	startXref, err := findStartXref(data)
	if err != nil {
		return nil, fmt.Errorf("failed to find startxref: %w", err)
	}

	r.xref, err = ParseXref(data, startXref)
	if err != nil {
		return nil, fmt.Errorf("failed to parse xref: %w", err)
	}

	// Incremental updates chain through Prev.
	if prevOffset, ok := r.xref.Trailer.GetInt("Prev"); ok {
		_ = r.loadPrevXref(prevOffset)
	}

	return r, nil
}

// loadPrevXref merges previous xref tables; current entries win.
func (r *Reader) loadPrevXref(offset int64) error {
	prevXref, err := ParseXref(r.data, offset)
	if err != nil {
		return err
	}
	for objNum, entry := range prevXref.Entries {
		if _, exists := r.xref.Entries[objNum]; !exists {
			r.xref.Entries[objNum] = entry
		}
	}
	if prevPrev, ok := prevXref.Trailer.GetInt("Prev"); ok {
		return r.loadPrevXref(prevPrev)
	}
	return nil
}

// Trailer returns the document trailer dictionary.
func (r *Reader) Trailer() Dict {
	return r.xref.Trailer
}

// GetObject retrieves an object by its number, resolving through
// object streams when needed.
func (r *Reader) GetObject(objNum int) (Object, error) {
	if obj, ok := r.cache[objNum]; ok {
		return obj, nil
	}

	entry, ok := r.xref.Entries[objNum]
	if !ok {
		return nil, fmt.Errorf("object %d not found in xref", objNum)
	}
	if !entry.InUse {
		return Null{}, nil
	}

	var obj Object
	var err error
	if entry.ObjectStreamNum > 0 {
		obj, err = r.getObjectFromStream(entry.ObjectStreamNum, objNum)
	} else {
		obj, err = r.getObjectAtOffset(entry.Offset)
	}
	if err != nil {
		return nil, err
	}

	r.cache[objNum] = obj
	return obj, nil
}

func (r *Reader) getObjectAtOffset(offset int64) (Object, error) {
	// Streams with an indirect Length are delimited by the scanner's
	// endstream search, so no second pass is needed here.
	indirect, err := ParseObjectAt(r.data, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to parse object at offset %d: %w", offset, err)
	}
	return indirect.Object, nil
}

func (r *Reader) getObjectFromStream(streamObjNum, targetObjNum int) (Object, error) {
	if objects, ok := r.objStm[streamObjNum]; ok {
		if obj, ok := objects[targetObjNum]; ok {
			return obj, nil
		}
	}

	streamObj, err := r.GetObject(streamObjNum)
	if err != nil {
		return nil, fmt.Errorf("failed to get object stream %d: %w", streamObjNum, err)
	}
	s, ok := streamObj.(*Stream)
	if !ok {
		return nil, fmt.Errorf("object %d is not a stream", streamObjNum)
	}

	decoded, err := r.DecodeStream(s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode object stream: %w", err)
	}
	objects, err := ParseObjectsFromStream(decoded, s.Dict)
	if err != nil {
		return nil, fmt.Errorf("failed to parse object stream contents: %w", err)
	}
	r.objStm[streamObjNum] = objects

	if obj, ok := objects[targetObjNum]; ok {
		return obj, nil
	}
	return nil, fmt.Errorf("object %d not found in object stream %d", targetObjNum, streamObjNum)
}

// Resolve resolves a reference to its actual object; non-references
// pass through.
func (r *Reader) Resolve(obj Object) (Object, error) {
	ref, ok := obj.(*Reference)
	if !ok {
		return obj, nil
	}
	return r.GetObject(ref.ObjectNumber)
}

// ResolveDict resolves a reference and asserts it's a dictionary.
func (r *Reader) ResolveDict(obj Object) (Dict, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}
	if dict, ok := resolved.(Dict); ok {
		return dict, nil
	}
	return nil, fmt.Errorf("expected Dict, got %T", resolved)
}

// ResolveArray resolves a reference and asserts it's an array.
func (r *Reader) ResolveArray(obj Object) (Array, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}
	if arr, ok := resolved.(Array); ok {
		return arr, nil
	}
	return nil, fmt.Errorf("expected Array, got %T", resolved)
}

// ResolveStream resolves a reference and asserts it's a stream.
func (r *Reader) ResolveStream(obj Object) (*Stream, error) {
	resolved, err := r.Resolve(obj)
	if err != nil {
		return nil, err
	}
	if s, ok := resolved.(*Stream); ok {
		return s, nil
	}
	return nil, fmt.Errorf("expected Stream, got %T", resolved)
}

// DecodeStream decodes a stream's data through its filter chain.
func (r *Reader) DecodeStream(s *Stream) ([]byte, error) {
	data := s.Data

	filter := s.Dict.Get("Filter")
	if filter == nil {
		return data, nil
	}
	filter, _ = r.Resolve(filter)

	var filters []Name
	switch f := filter.(type) {
	case Name:
		filters = []Name{f}
	case Array:
		for _, item := range f {
			resolved, _ := r.Resolve(item)
			if n, ok := resolved.(Name); ok {
				filters = append(filters, n)
			}
		}
	}

	parms := r.decodeParmsList(s.Dict, len(filters))
	for i, f := range filters {
		decoded, err := stream.Decode(data, stream.Filter(f), parms[i])
		if err != nil {
			return nil, fmt.Errorf("filter %s failed: %w", f, err)
		}
		data = decoded
	}
	return data, nil
}

// decodeParmsList resolves per-filter decode parameters. DecodeParms
// may be a single dict or an array parallel to the filter array.
func (r *Reader) decodeParmsList(dict Dict, n int) []stream.DecodeParams {
	out := make([]stream.DecodeParams, n)
	for i := range out {
		out[i] = stream.DefaultDecodeParams()
	}

	raw := dict.Get("DecodeParms")
	if raw == nil {
		raw = dict.Get("DP")
	}
	if raw == nil {
		return out
	}
	raw, _ = r.Resolve(raw)

	fill := func(i int, d Dict) {
		if i >= n {
			return
		}
		p := &out[i]
		if v, ok := d.GetInt("Predictor"); ok {
			p.Predictor = int(v)
		}
		if v, ok := d.GetInt("Colors"); ok {
			p.Colors = int(v)
		}
		if v, ok := d.GetInt("BitsPerComponent"); ok {
			p.BitsPerComponent = int(v)
		}
		if v, ok := d.GetInt("Columns"); ok {
			p.Columns = int(v)
		}
		if v, ok := d.GetInt("EarlyChange"); ok {
			p.EarlyChange = int(v)
		}
	}

	switch v := raw.(type) {
	case Dict:
		fill(0, v)
	case Array:
		for i, item := range v {
			resolved, _ := r.Resolve(item)
			if d, ok := resolved.(Dict); ok {
				fill(i, d)
			}
		}
	}
	return out
}

// Catalog returns the document catalog dictionary.
func (r *Reader) Catalog() (Dict, error) {
	rootRef, ok := r.xref.Trailer.GetRef("Root")
	if !ok {
		return nil, fmt.Errorf("no Root in trailer")
	}
	return r.ResolveDict(rootRef)
}

// Pages returns the root pages dictionary.
func (r *Reader) Pages() (Dict, error) {
	catalog, err := r.Catalog()
	if err != nil {
		return nil, err
	}
	pagesRef := catalog.Get("Pages")
	if pagesRef == nil {
		return nil, fmt.Errorf("no Pages in catalog")
	}
	return r.ResolveDict(pagesRef)
}

// PageCount returns the total number of pages.
func (r *Reader) PageCount() (int, error) {
	if err := r.buildPageList(); err != nil {
		return 0, err
	}
	return len(r.pageList), nil
}

// GetPage returns the dictionary for a specific page (0-indexed).
func (r *Reader) GetPage(pageNum int) (Dict, error) {
	if err := r.buildPageList(); err != nil {
		return nil, err
	}
	if pageNum < 0 || pageNum >= len(r.pageList) {
		return nil, fmt.Errorf("page %d not found", pageNum)
	}
	return r.pageList[pageNum], nil
}

// buildPageList flattens the page tree once, depth-first.
func (r *Reader) buildPageList() error {
	if r.pageList != nil {
		return nil
	}
	root, err := r.Pages()
	if err != nil {
		return err
	}
	var list []Dict
	if err := r.collectPages(root, &list, 0); err != nil {
		return err
	}
	r.pageList = list
	return nil
}

func (r *Reader) collectPages(node Dict, list *[]Dict, depth int) error {
	if depth > 64 {
		return fmt.Errorf("page tree too deep")
	}
	nodeType, _ := node.GetName("Type")
	if nodeType == "Page" {
		*list = append(*list, node)
		return nil
	}
	kids, err := r.ResolveArray(node.Get("Kids"))
	if err != nil {
		return fmt.Errorf("Pages node without Kids: %w", err)
	}
	for _, kid := range kids {
		kidDict, err := r.ResolveDict(kid)
		if err != nil {
			continue
		}
		if err := r.collectPages(kidDict, list, depth+1); err != nil {
			return err
		}
	}
	return nil
}

// InheritedAttr looks up a page attribute, walking Parent links for
// attributes inheritable through the page tree (MediaBox, Resources,
// Rotate).
func (r *Reader) InheritedAttr(page Dict, key string) Object {
	node := page
	for depth := 0; depth < 64; depth++ {
		if v := node.Get(key); v != nil {
			return v
		}
		parent := node.Get("Parent")
		if parent == nil {
			return nil
		}
		next, err := r.ResolveDict(parent)
		if err != nil {
			return nil
		}
		node = next
	}
	return nil
}

// PageMediaBox returns the page's (inherited) MediaBox as
// minX, minY, maxX, maxY. US Letter is the fallback.
func (r *Reader) PageMediaBox(page Dict) (x1, y1, x2, y2 float64) {
	x1, y1, x2, y2 = 0, 0, 612, 792
	raw := r.InheritedAttr(page, "MediaBox")
	if raw == nil {
		return
	}
	arr, err := r.ResolveArray(raw)
	if err != nil || len(arr) < 4 {
		return
	}
	vals := make([]float64, 4)
	for i := 0; i < 4; i++ {
		resolved, _ := r.Resolve(arr[i])
		switch v := resolved.(type) {
		case Integer:
			vals[i] = float64(v)
		case Real:
			vals[i] = float64(v)
		}
	}
	return vals[0], vals[1], vals[2], vals[3]
}

// PageRotation returns the page's (inherited) rotation, normalised to
// {0, 90, 180, 270}.
func (r *Reader) PageRotation(page Dict) int {
	raw := r.InheritedAttr(page, "Rotate")
	if raw == nil {
		return 0
	}
	resolved, _ := r.Resolve(raw)
	n, ok := resolved.(Integer)
	if !ok {
		return 0
	}
	rot := int(n) % 360
	if rot < 0 {
		rot += 360
	}
	return rot - rot%90
}

// PageResources returns the page's (inherited) resource dictionary.
func (r *Reader) PageResources(page Dict) (Dict, error) {
	raw := r.InheritedAttr(page, "Resources")
	if raw == nil {
		return Dict{}, nil
	}
	return r.ResolveDict(raw)
}

// GetPageContents returns the decoded, concatenated content streams of
// a page.
func (r *Reader) GetPageContents(page Dict) ([]byte, error) {
	contents := page.Get("Contents")
	if contents == nil {
		return nil, nil
	}
	resolved, err := r.Resolve(contents)
	if err != nil {
		return nil, err
	}

	switch c := resolved.(type) {
	case *Stream:
		return r.DecodeStream(c)
	case Array:
		var result []byte
		for _, item := range c {
			streamObj, err := r.Resolve(item)
			if err != nil {
				continue
			}
			if s, ok := streamObj.(*Stream); ok {
				decoded, err := r.DecodeStream(s)
				if err != nil {
					continue
				}
				result = append(result, decoded...)
				result = append(result, '\n')
			}
		}
		return result, nil
	default:
		return nil, fmt.Errorf("unexpected Contents type: %T", c)
	}
}

// Info returns the document info dictionary if present.
func (r *Reader) Info() (Dict, error) {
	infoRef := r.xref.Trailer.Get("Info")
	if infoRef == nil {
		return nil, nil
	}
	return r.ResolveDict(infoRef)
}
