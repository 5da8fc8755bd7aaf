// Package mask holds the binary raster types produced by the detection
// model and the post-processing that cleans them before vectorization.
//
// A Grid is one tile's binary mask; a ProbMap is the matching per-cell
// confidence raster. Postprocess removes speck noise, fills small
// enclosed holes and applies morphological closing, in that fixed
// order. All operations are pure: they return new grids and never
// mutate their inputs, so tiles can be processed concurrently without
// coordination.
//
// # Connectivity
//
// Component passes use 4-connectivity (orthogonal neighbors only),
// matching the downstream polygon tracer. Closing runs as grayscale
// dilate/erode, which on a strictly binary raster is exactly the set
// morphology.
package mask
