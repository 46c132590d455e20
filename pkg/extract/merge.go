package extract

import (
	"math"
)

// Merger join thresholds.
const (
	mergeGapSq       = 1e-6     // max squared gap between pending end and new start
	mergeMinCos      = 0.999995 // min cosine between direction vectors
	mergeMaxChordDev = 0.05     // max deviation of the joint from the combined chord
)

// Merger coalesces runs of collinear segments emitted for one path.
// It holds a single pending segment; each incoming segment either
// extends the pending one or flushes it downstream. MoveTo and path end
// must flush.
type Merger struct {
	enabled bool
	pending struct {
		x0, y0, x1, y1 float64
		valid          bool
		allowMerge     bool
	}
	emit func(x0, y0, x1, y1 float64)
}

// NewMerger creates a merger feeding emit. When enabled is false every
// segment passes through unchanged.
func NewMerger(enabled bool, emit func(x0, y0, x1, y1 float64)) *Merger {
	return &Merger{enabled: enabled, emit: emit}
}

// Add offers a new segment. Curve-derived segments pass allowMerge
// false so curve fidelity survives merging.
func (m *Merger) Add(x0, y0, x1, y1 float64, allowMerge bool) {
	if !m.enabled {
		m.emit(x0, y0, x1, y1)
		return
	}

	p := &m.pending
	if p.valid && p.allowMerge && allowMerge && m.canExtend(x0, y0, x1, y1) {
		p.x1 = x1
		p.y1 = y1
		return
	}

	m.Flush()
	p.x0, p.y0, p.x1, p.y1 = x0, y0, x1, y1
	p.valid = true
	p.allowMerge = allowMerge
}

// Flush emits the pending segment, if any.
func (m *Merger) Flush() {
	if m.pending.valid {
		m.emit(m.pending.x0, m.pending.y0, m.pending.x1, m.pending.y1)
		m.pending.valid = false
	}
}

// canExtend reports whether the new segment continues the pending one:
// its start coincides with the pending end, the directions are nearly
// parallel, and the joint stays within the combined chord's deviation
// budget.
func (m *Merger) canExtend(x0, y0, x1, y1 float64) bool {
	p := &m.pending

	gx := x0 - p.x1
	gy := y0 - p.y1
	if gx*gx+gy*gy > mergeGapSq {
		return false
	}

	d1x, d1y := p.x1-p.x0, p.y1-p.y0
	d2x, d2y := x1-x0, y1-y0
	l1 := math.Hypot(d1x, d1y)
	l2 := math.Hypot(d2x, d2y)
	if l1 == 0 || l2 == 0 {
		return false
	}
	cos := (d1x*d2x + d1y*d2y) / (l1 * l2)
	if cos < mergeMinCos {
		return false
	}

	// Deviation of the joint point from the combined chord start->newEnd.
	cx, cy := x1-p.x0, y1-p.y0
	chordLen := math.Hypot(cx, cy)
	if chordLen == 0 {
		return false
	}
	dev := math.Abs((p.x1-p.x0)*cy-(p.y1-p.y0)*cx) / chordLen
	return dev <= mergeMaxChordDev
}
