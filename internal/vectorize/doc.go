// Package vectorize turns cleaned binary masks into attributed
// geographic polygons.
//
// Extract traces each 4-connected region of a tile's mask along cell
// edges, maps the boundary to WGS84 through the tile's affine
// transform, simplifies it, and derives the lot attributes (projected
// area, spot estimate, size class, confidence, centroid). Merge then
// flattens the per-tile results, deduplicates detections shared by
// overlapping tiles, and assigns final IDs.
//
// Extraction is pure per tile and safe to run concurrently; Merge is
// the single sequential step.
package vectorize
