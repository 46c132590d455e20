// Package inkgrid turns vector page descriptions (PDF content streams)
// into compact, GPU-ready scenes for interactive viewing of very large
// engineering drawings.
//
// The pipeline runs operator interpretation, curve flattening, collinear
// segment merging, visibility culling, and texture packing to produce an
// immutable scene (pkg/scene). A uniform spatial grid (pkg/grid) indexes
// the packed strokes so a renderer can assemble the per-frame visible set
// in well under a frame. Scenes round-trip through a named-file archive
// (pkg/archive).
//
// High-level entry points live in pkg/api; the lower layers are usable on
// their own.
package inkgrid
