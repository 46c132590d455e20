package extract

import (
	"math"

	"inkgrid"
	"inkgrid/pkg/graphics"
	"inkgrid/pkg/scene"
)

// fallbackHalfWidth is stored when the line width is exactly zero.
const fallbackHalfWidth = 0.35

// GlyphSource resolves glyph outlines for one font. Outlines are in em
// units (one unit per em square); advances likewise.
type GlyphSource interface {
	// GlyphID maps a single text byte to a glyph id.
	GlyphID(b byte) (uint16, bool)

	// Outline returns the glyph's outline path in em units.
	Outline(gid uint16) (*graphics.Path, bool)

	// Advance returns the glyph's horizontal advance in em units.
	Advance(gid uint16) float64
}

// PageResources resolves named page resources the interpreter needs.
type PageResources interface {
	// ExtGState returns the entries of a named graphics-state dictionary.
	ExtGState(name string) (map[string]interface{}, bool)

	// Image returns a decoded image XObject as a raster layer template
	// (pixels only; the interpreter fills in the placement matrix).
	Image(name string) (*scene.RasterLayer, bool)

	// Font returns the glyph source for a named font.
	Font(name string) (GlyphSource, bool)
}

// emptyResources backs pages without a resource dictionary.
type emptyResources struct{}

func (emptyResources) ExtGState(string) (map[string]interface{}, bool) { return nil, false }
func (emptyResources) Image(string) (*scene.RasterLayer, bool)         { return nil, false }
func (emptyResources) Font(string) (GlyphSource, bool)                 { return nil, false }

// NoResources is a PageResources that resolves nothing.
var NoResources PageResources = emptyResources{}

// glyphKey identifies a flattened glyph outline within one page.
type glyphKey struct {
	font string
	gid  uint16
}

// glyphSpan caches one flattened outline's segment span so repeated
// glyphs share segments while every instance keeps a contiguous run of
// glyph records.
type glyphSpan struct {
	segOffset int
	segCount  int
	bounds    graphics.Rect
}

// Interpreter executes one page's operators, accumulating primitives
// into a PageGeometry.
type Interpreter struct {
	stack *graphics.StateStack
	path  *graphics.Path
	res   PageResources
	page  *scene.PageGeometry
	flat  *Flattener
	merge bool

	// pathBroken marks the current path as truncated by a malformed
	// record; construction is ignored until the next paint op.
	pathBroken bool

	glyphs map[glyphKey]glyphSpan
}

// NewInterpreter creates an interpreter emitting into page. The base
// CTM (usually the page view transform) seeds the state stack.
func NewInterpreter(page *scene.PageGeometry, res PageResources, base graphics.Matrix, opts Options) *Interpreter {
	if res == nil {
		res = NoResources
	}
	in := &Interpreter{
		stack:  graphics.NewStateStack(),
		path:   graphics.NewPath(),
		res:    res,
		page:   page,
		flat:   NewFlattener(opts.CurveFlatness, opts.MaxCurveSplitDepth),
		merge:  opts.SegmentMerge,
		glyphs: make(map[glyphKey]glyphSpan),
	}
	in.stack.Current().CTM = base
	return in
}

// State returns the current graphics state.
func (in *Interpreter) State() *graphics.State {
	return in.stack.Current()
}

// Execute runs a list of operators. Unknown operators are skipped;
// malformed ones truncate the current path and are tallied.
func (in *Interpreter) Execute(ops []graphics.Operator) {
	for _, op := range ops {
		in.executeOp(op)
	}
}

func (in *Interpreter) executeOp(op graphics.Operator) {
	st := in.stack.Current()

	switch op.Name {
	// Graphics state
	case "q":
		in.stack.Push()
	case "Q":
		in.stack.Pop()
	case "cm":
		m, ok := in.matrixOperand(op)
		if !ok {
			return
		}
		st.CTM = st.CTM.Multiply(m)
	case "w":
		if len(op.Operands) >= 1 {
			st.LineWidth = math.Max(0, graphics.Float(op.Operands[0]))
		}
	case "d":
		if len(op.Operands) >= 2 {
			if arr, ok := op.Operands[0].([]interface{}); ok {
				st.DashPattern = make([]float64, len(arr))
				for j, v := range arr {
					st.DashPattern[j] = graphics.Float(v)
				}
			}
			st.DashPhase = graphics.Float(op.Operands[1])
		}
	case "gs":
		if len(op.Operands) >= 1 {
			in.applyExtGState(graphics.Str(op.Operands[0]))
		}

	// Colour
	case "G", "RG", "K", "SC", "SCN":
		if c, ok := parseColorOperands(op.Operands); ok {
			st.StrokeLuma = c.Luma()
		}
	case "g", "rg", "k", "sc", "scn":
		if c, ok := parseColorOperands(op.Operands); ok {
			st.FillColor = c
		}
	case "CS", "cs":
		// Colour space selection is implied by component count.

	// Path construction
	case "m":
		x, y, ok := in.pointOperands(op)
		if !ok {
			return
		}
		in.path.MoveTo(x, y)
	case "l":
		x, y, ok := in.pointOperands(op)
		if !ok {
			return
		}
		in.path.LineTo(x, y)
	case "c":
		v, ok := in.floatOperands(op, 6)
		if !ok {
			return
		}
		in.path.CurveTo(v[0], v[1], v[2], v[3], v[4], v[5])
	case "v":
		v, ok := in.floatOperands(op, 4)
		if !ok {
			return
		}
		in.path.CurveToV(v[0], v[1], v[2], v[3])
	case "y":
		v, ok := in.floatOperands(op, 4)
		if !ok {
			return
		}
		in.path.CurveToY(v[0], v[1], v[2], v[3])
	case "re":
		v, ok := in.floatOperands(op, 4)
		if !ok {
			return
		}
		in.path.Rect(v[0], v[1], v[2], v[3])
	case "h":
		if !in.pathBroken {
			in.path.Close()
		}

	// Path painting
	case "S":
		in.paint(true, false, graphics.FillRuleNonZero)
	case "s":
		in.closePath()
		in.paint(true, false, graphics.FillRuleNonZero)
	case "f", "F":
		in.paint(false, true, graphics.FillRuleNonZero)
	case "f*":
		in.paint(false, true, graphics.FillRuleEvenOdd)
	case "B":
		in.paint(true, true, graphics.FillRuleNonZero)
	case "B*":
		in.paint(true, true, graphics.FillRuleEvenOdd)
	case "b":
		in.closePath()
		in.paint(true, true, graphics.FillRuleNonZero)
	case "b*":
		in.closePath()
		in.paint(true, true, graphics.FillRuleEvenOdd)
	case "n":
		in.clearPath()
	case "W", "W*":
		// Clip paths are out of scope; the path is consumed by the
		// following paint operator as usual.

	// Text
	case "BT":
		st.Text.TextMatrix = graphics.Identity()
		st.Text.LineMatrix = graphics.Identity()
	case "ET":
	case "Tc":
		if len(op.Operands) >= 1 {
			st.Text.CharSpace = graphics.Float(op.Operands[0])
		}
	case "Tw":
		if len(op.Operands) >= 1 {
			st.Text.WordSpace = graphics.Float(op.Operands[0])
		}
	case "Tz":
		if len(op.Operands) >= 1 {
			st.Text.HScale = graphics.Float(op.Operands[0])
		}
	case "TL":
		if len(op.Operands) >= 1 {
			st.Text.Leading = graphics.Float(op.Operands[0])
		}
	case "Tf":
		if len(op.Operands) >= 2 {
			st.Text.FontName = graphics.Str(op.Operands[0])
			st.Text.FontSize = graphics.Float(op.Operands[1])
		}
	case "Ts":
		if len(op.Operands) >= 1 {
			st.Text.Rise = graphics.Float(op.Operands[0])
		}
	case "Td":
		if len(op.Operands) >= 2 {
			in.textNewline(graphics.Float(op.Operands[0]), graphics.Float(op.Operands[1]))
		}
	case "TD":
		if len(op.Operands) >= 2 {
			st.Text.Leading = -graphics.Float(op.Operands[1])
			in.textNewline(graphics.Float(op.Operands[0]), graphics.Float(op.Operands[1]))
		}
	case "Tm":
		m, ok := in.matrixOperand(op)
		if !ok {
			return
		}
		st.Text.TextMatrix = m
		st.Text.LineMatrix = m
	case "T*":
		in.textNewline(0, -st.Text.Leading)
	case "Tj":
		if len(op.Operands) >= 1 {
			in.showText(graphics.Str(op.Operands[0]))
		}
	case "TJ":
		if len(op.Operands) >= 1 {
			in.showTextArray(op.Operands[0])
		}
	case "'":
		in.textNewline(0, -st.Text.Leading)
		if len(op.Operands) >= 1 {
			in.showText(graphics.Str(op.Operands[0]))
		}
	case "\"":
		if len(op.Operands) >= 3 {
			st.Text.WordSpace = graphics.Float(op.Operands[0])
			st.Text.CharSpace = graphics.Float(op.Operands[1])
			in.textNewline(0, -st.Text.Leading)
			in.showText(graphics.Str(op.Operands[2]))
		}

	// XObjects
	case "Do":
		if len(op.Operands) >= 1 {
			in.drawImage(graphics.Str(op.Operands[0]))
		}
	}
}

// matrixOperand reads six finite floats; a non-finite matrix drops the
// operator.
func (in *Interpreter) matrixOperand(op graphics.Operator) (graphics.Matrix, bool) {
	if len(op.Operands) < 6 {
		return graphics.Matrix{}, false
	}
	var m graphics.Matrix
	for i := 0; i < 6; i++ {
		m[i] = graphics.Float(op.Operands[i])
	}
	if !m.IsFinite() {
		inkgrid.Logger().Warn("dropping operator with non-finite matrix", "op", op.Name)
		return graphics.Matrix{}, false
	}
	return m, true
}

// floatOperands reads n floats, truncating the current path when the
// record is malformed.
func (in *Interpreter) floatOperands(op graphics.Operator, n int) ([]float64, bool) {
	if in.pathBroken {
		return nil, false
	}
	if len(op.Operands) < n {
		in.truncatePath(op.Name)
		return nil, false
	}
	v := make([]float64, n)
	for i := 0; i < n; i++ {
		v[i] = graphics.Float(op.Operands[i])
		if math.IsNaN(v[i]) || math.IsInf(v[i], 0) {
			in.truncatePath(op.Name)
			return nil, false
		}
	}
	return v, true
}

func (in *Interpreter) pointOperands(op graphics.Operator) (x, y float64, ok bool) {
	v, ok := in.floatOperands(op, 2)
	if !ok {
		return 0, 0, false
	}
	return v[0], v[1], true
}

// truncatePath marks the current path as cut at the first invalid
// record. Already-built segments still paint; later construction is
// ignored until the path is consumed.
func (in *Interpreter) truncatePath(opName string) {
	in.pathBroken = true
	in.page.MalformedPaths++
	inkgrid.Logger().Warn("path truncated at malformed record", "op", opName)
}

func (in *Interpreter) closePath() {
	if !in.path.IsEmpty() && !in.pathBroken {
		in.path.Close()
	}
}

func (in *Interpreter) clearPath() {
	in.path.Clear()
	in.pathBroken = false
}

// applyExtGState honours CA (stroke alpha), ca (fill alpha), and LW
// (line width); other entries are ignored.
func (in *Interpreter) applyExtGState(name string) {
	entries, ok := in.res.ExtGState(name)
	if !ok {
		return
	}
	st := in.stack.Current()
	for key, val := range entries {
		switch key {
		case "CA":
			st.StrokeAlpha = graphics.Clamp(graphics.Float(val), 0, 1)
		case "ca":
			st.FillAlpha = graphics.Clamp(graphics.Float(val), 0, 1)
		case "LW":
			st.LineWidth = math.Max(0, graphics.Float(val))
		}
	}
}

// parseColorOperands classifies colour operands by shape: one number is
// gray, three RGB, four CMYK, a hex string parses as RGB. Anything else
// preserves the previous colour.
func parseColorOperands(operands []interface{}) (graphics.Color, bool) {
	var nums []float64
	for _, v := range operands {
		switch x := v.(type) {
		case float64:
			nums = append(nums, x)
		case int:
			nums = append(nums, float64(x))
		case string:
			if c, ok := graphics.ParseHexColor(x); ok {
				return c, true
			}
		}
	}
	switch len(nums) {
	case 1:
		return graphics.NewGray(nums[0]), true
	case 3:
		return graphics.NewRGB(nums[0], nums[1], nums[2]), true
	case 4:
		return graphics.NewCMYK(nums[0], nums[1], nums[2], nums[3]), true
	}
	return graphics.Color{}, false
}

// halfWidth computes the stored stroke half-width for the current state.
func (in *Interpreter) halfWidth(st *graphics.State) float64 {
	if st.LineWidth == 0 {
		return fallbackHalfWidth
	}
	return math.Max(scene.MinHalfWidth, st.LineWidth*st.CTM.Scale()*0.5)
}

func dashFlag(st *graphics.State) int {
	for _, d := range st.DashPattern {
		if d > 0 {
			return 1
		}
	}
	return 0
}

// paint consumes the current path, emitting stroke and/or fill
// primitives in page space.
func (in *Interpreter) paint(stroke, fill bool, rule graphics.FillRule) {
	st := in.stack.Current()
	if !in.path.IsEmpty() {
		if fill {
			in.emitFill(st, rule)
		}
		if stroke {
			in.emitStroke(st)
		}
	}
	in.clearPath()
}

// emitStroke flattens the path and routes segments through the
// collinear merger into stroke primitives.
func (in *Interpreter) emitStroke(st *graphics.State) {
	hw := in.halfWidth(st)
	flags := dashFlag(st)
	merger := NewMerger(in.merge, func(x0, y0, x1, y1 float64) {
		in.page.MergedSegments++
		in.page.AddStroke(scene.Stroke{
			X0: x0, Y0: y0, X1: x1, Y1: y1,
			HalfWidth: hw,
			Luma:      st.StrokeLuma,
			Alpha:     st.StrokeAlpha,
			Flags:     flags,
		})
	})

	add := func(x0, y0, x1, y1 float64, allowMerge bool) {
		in.page.SourceSegments++
		merger.Add(x0, y0, x1, y1, allowMerge)
	}

	in.walkPath(st.CTM, merger.Flush, add)
	merger.Flush()
}

// emitFill flattens the path's subpaths into closed segment loops.
func (in *Interpreter) emitFill(st *graphics.State, rule graphics.FillRule) {
	if st.FillAlpha <= cullMinAlpha {
		return
	}
	var segs []scene.Segment
	bounds := graphics.EmptyRect()

	add := func(x0, y0, x1, y1 float64, _ bool) {
		segs = append(segs, scene.Segment{X0: x0, Y0: y0, X1: x1, Y1: y1})
		bounds = bounds.ExpandPoint(graphics.Point{X: x0, Y: y0})
		bounds = bounds.ExpandPoint(graphics.Point{X: x1, Y: y1})
	}

	var first, cur graphics.Point
	started := false
	closeLoop := func() {
		if started && (cur.X != first.X || cur.Y != first.Y) {
			add(cur.X, cur.Y, first.X, first.Y, false)
		}
	}
	in.walkPathFill(st.CTM, &first, &cur, &started, closeLoop, add)
	closeLoop()

	if len(segs) == 0 || bounds.IsEmpty() {
		return
	}
	r, g, b := st.FillColor.RGB()
	if !visibleFill(st.FillAlpha, bounds) {
		return
	}
	in.page.AddFill(scene.FillPath{
		Bounds:  bounds,
		R:       r,
		G:       g,
		B:       b,
		Alpha:   st.FillAlpha,
		EvenOdd: rule == graphics.FillRuleEvenOdd,
	}, segs)
}

// walkPath flattens the current path into segments in page space for
// stroking. onMove flushes the merger at subpath boundaries.
func (in *Interpreter) walkPath(ctm graphics.Matrix, onMove func(), add func(x0, y0, x1, y1 float64, allowMerge bool)) {
	var cur, start graphics.Point
	started := false

	for _, seg := range in.path.Segments {
		switch seg.Op {
		case graphics.PathOpMoveTo:
			onMove()
			cur = ctm.TransformPoint(seg.Points[0])
			start = cur
			started = true
		case graphics.PathOpLineTo:
			if !started {
				continue
			}
			p := ctm.TransformPoint(seg.Points[0])
			add(cur.X, cur.Y, p.X, p.Y, true)
			cur = p
		case graphics.PathOpQuadTo:
			if !started {
				continue
			}
			c := ctm.TransformPoint(seg.Points[0])
			p := ctm.TransformPoint(seg.Points[1])
			in.flat.FlattenQuad(cur.X, cur.Y, c.X, c.Y, p.X, p.Y, func(x0, y0, x1, y1 float64) {
				add(x0, y0, x1, y1, false)
			})
			cur = p
		case graphics.PathOpCurveTo:
			if !started {
				continue
			}
			c1 := ctm.TransformPoint(seg.Points[0])
			c2 := ctm.TransformPoint(seg.Points[1])
			p := ctm.TransformPoint(seg.Points[2])
			in.flat.FlattenCubic(cur.X, cur.Y, c1.X, c1.Y, c2.X, c2.Y, p.X, p.Y, func(x0, y0, x1, y1 float64) {
				add(x0, y0, x1, y1, false)
			})
			cur = p
		case graphics.PathOpClose:
			if started && (cur.X != start.X || cur.Y != start.Y) {
				add(cur.X, cur.Y, start.X, start.Y, true)
			}
			cur = start
		}
	}
}

// walkPathFill is walkPath for fills: subpaths are closed implicitly
// at each MoveTo via closeLoop.
func (in *Interpreter) walkPathFill(ctm graphics.Matrix, first, cur *graphics.Point, started *bool, closeLoop func(), add func(x0, y0, x1, y1 float64, allowMerge bool)) {
	for _, seg := range in.path.Segments {
		switch seg.Op {
		case graphics.PathOpMoveTo:
			closeLoop()
			*cur = ctm.TransformPoint(seg.Points[0])
			*first = *cur
			*started = true
		case graphics.PathOpLineTo:
			if !*started {
				continue
			}
			p := ctm.TransformPoint(seg.Points[0])
			add(cur.X, cur.Y, p.X, p.Y, false)
			*cur = p
		case graphics.PathOpQuadTo:
			if !*started {
				continue
			}
			c := ctm.TransformPoint(seg.Points[0])
			p := ctm.TransformPoint(seg.Points[1])
			in.flat.FlattenQuad(cur.X, cur.Y, c.X, c.Y, p.X, p.Y, func(x0, y0, x1, y1 float64) {
				add(x0, y0, x1, y1, false)
			})
			*cur = p
		case graphics.PathOpCurveTo:
			if !*started {
				continue
			}
			c1 := ctm.TransformPoint(seg.Points[0])
			c2 := ctm.TransformPoint(seg.Points[1])
			p := ctm.TransformPoint(seg.Points[2])
			in.flat.FlattenCubic(cur.X, cur.Y, c1.X, c1.Y, c2.X, c2.Y, p.X, p.Y, func(x0, y0, x1, y1 float64) {
				add(x0, y0, x1, y1, false)
			})
			*cur = p
		case graphics.PathOpClose:
			closeLoop()
			*cur = *first
		}
	}
}

// textNewline starts a new text line offset (tx, ty) from the current
// line origin.
func (in *Interpreter) textNewline(tx, ty float64) {
	st := in.stack.Current()
	st.Text.LineMatrix = graphics.Translate(tx, ty).Multiply(st.Text.LineMatrix)
	st.Text.TextMatrix = st.Text.LineMatrix
}

// showTextArray handles the TJ operand: strings interleaved with
// kerning adjustments in thousandths of text space.
func (in *Interpreter) showTextArray(operand interface{}) {
	arr, ok := operand.([]interface{})
	if !ok {
		return
	}
	for _, item := range arr {
		switch x := item.(type) {
		case string:
			in.showText(x)
		case float64:
			st := in.stack.Current()
			tx := -x / 1000 * st.Text.FontSize * st.Text.HScale / 100
			st.Text.TextMatrix = graphics.Translate(tx, 0).Multiply(st.Text.TextMatrix)
		}
	}
}

// showText emits one text instance for the string and advances the
// text matrix.
func (in *Interpreter) showText(s string) {
	if s == "" {
		return
	}
	st := in.stack.Current()
	if st.FillAlpha <= cullMinAlpha {
		return
	}
	fnt, ok := in.res.Font(st.Text.FontName)
	if !ok || st.Text.FontSize == 0 {
		return
	}

	fs := st.Text.FontSize
	h := st.Text.HScale / 100

	glyphOffset := len(in.page.Glyphs)
	total := 0.0 // run advance in em units
	count := 0
	for i := 0; i < len(s); i++ {
		b := s[i]
		gid, ok := fnt.GlyphID(b)
		if !ok {
			continue
		}
		adv := fnt.Advance(gid) + (st.Text.CharSpace+wordSpace(st, b))/fs
		span := in.glyphOutline(st.Text.FontName, fnt, gid)
		in.page.Glyphs = append(in.page.Glyphs, scene.Glyph{
			SegOffset: span.segOffset,
			SegCount:  span.segCount,
			Advance:   adv,
			Bounds:    span.bounds,
		})
		total += adv
		count++
	}
	if count == 0 {
		return
	}

	base := graphics.Matrix{fs * h, 0, 0, fs, 0, st.Text.Rise}
	trm := base.Multiply(st.Text.TextMatrix).Multiply(st.CTM)

	r, g, b := st.FillColor.RGB()
	in.page.TextInstances = append(in.page.TextInstances, scene.TextInstance{
		Matrix:      [6]float64(trm),
		GlyphOffset: glyphOffset,
		GlyphCount:  count,
		R:           r,
		G:           g,
		B:           b,
		Alpha:       st.FillAlpha,
	})

	st.Text.TextMatrix = graphics.Translate(total*fs*h, 0).Multiply(st.Text.TextMatrix)
}

func wordSpace(st *graphics.State, b byte) float64 {
	if b == ' ' {
		return st.Text.WordSpace
	}
	return 0
}

// glyphOutline flattens a glyph outline the first time it is shown on
// a page and caches its segment span for reuse.
func (in *Interpreter) glyphOutline(fontName string, fnt GlyphSource, gid uint16) glyphSpan {
	key := glyphKey{font: fontName, gid: gid}
	if span, ok := in.glyphs[key]; ok {
		return span
	}

	var segs []scene.Segment
	bounds := graphics.EmptyRect()
	if outline, ok := fnt.Outline(gid); ok {
		segs, bounds = in.flattenGlyph(outline)
	}
	if bounds.IsEmpty() {
		bounds = graphics.Rect{}
	}
	span := glyphSpan{
		segOffset: len(in.page.GlyphSegments),
		segCount:  len(segs),
		bounds:    bounds,
	}
	in.page.GlyphSegments = append(in.page.GlyphSegments, segs...)
	in.glyphs[key] = span
	return span
}

// glyphFlatness is the flattening tolerance for glyph outlines, in em
// units. Outlines reach page space through each instance's placement
// matrix, so tolerance is fixed in glyph space.
const glyphFlatness = 0.01

func (in *Interpreter) flattenGlyph(outline *graphics.Path) ([]scene.Segment, graphics.Rect) {
	var segs []scene.Segment
	bounds := graphics.EmptyRect()
	flat := NewFlattener(glyphFlatness, DefaultMaxSplitDepth)

	add := func(x0, y0, x1, y1 float64) {
		segs = append(segs, scene.Segment{X0: x0, Y0: y0, X1: x1, Y1: y1})
		bounds = bounds.ExpandPoint(graphics.Point{X: x0, Y: y0})
		bounds = bounds.ExpandPoint(graphics.Point{X: x1, Y: y1})
	}

	var cur, start graphics.Point
	started := false
	for _, seg := range outline.Segments {
		switch seg.Op {
		case graphics.PathOpMoveTo:
			if started && (cur != start) {
				add(cur.X, cur.Y, start.X, start.Y)
			}
			cur = seg.Points[0]
			start = cur
			started = true
		case graphics.PathOpLineTo:
			p := seg.Points[0]
			add(cur.X, cur.Y, p.X, p.Y)
			cur = p
		case graphics.PathOpQuadTo:
			c, p := seg.Points[0], seg.Points[1]
			flat.FlattenQuad(cur.X, cur.Y, c.X, c.Y, p.X, p.Y, add)
			cur = p
		case graphics.PathOpCurveTo:
			c1, c2, p := seg.Points[0], seg.Points[1], seg.Points[2]
			flat.FlattenCubic(cur.X, cur.Y, c1.X, c1.Y, c2.X, c2.Y, p.X, p.Y, add)
			cur = p
		case graphics.PathOpClose:
			if started && cur != start {
				add(cur.X, cur.Y, start.X, start.Y)
			}
			cur = start
		}
	}
	if started && cur != start {
		add(cur.X, cur.Y, start.X, start.Y)
	}
	return segs, bounds
}

// drawImage emits a raster layer for an image XObject placed by the
// current CTM (mapping the unit square onto the image).
func (in *Interpreter) drawImage(name string) {
	tmpl, ok := in.res.Image(name)
	if !ok || tmpl == nil || tmpl.Width <= 0 || tmpl.Height <= 0 {
		return
	}
	st := in.stack.Current()
	layer := scene.RasterLayer{
		Width:  tmpl.Width,
		Height: tmpl.Height,
		Pix:    tmpl.Pix,
		Matrix: [6]float64(st.CTM),
	}
	in.page.Rasters = append(in.page.Rasters, layer)
}
