package vectorize

// centroidKey identifies a lot by its exact centroid coordinates.
// Duplicate detections of the same lot across overlapping tiles trace
// the same pixels through the same transform, so their centroids match
// bit for bit; distinct lots practically never do.
type centroidKey struct {
	lon float64
	lat float64
}

// Merge flattens per-tile extraction results into one collection.
// Tile order is preserved, lots whose centroid exactly matches an
// earlier lot are dropped, and the survivors receive sequential IDs
// starting at zero. The result is never nil, even for empty input.
func Merge(perTile [][]Lot) []Lot {
	merged := make([]Lot, 0)
	seen := make(map[centroidKey]bool)

	for _, lots := range perTile {
		for _, lot := range lots {
			key := centroidKey{lon: lot.CenterLon, lat: lot.CenterLat}
			if seen[key] {
				continue
			}
			seen[key] = true
			lot.ID = len(merged)
			merged = append(merged, lot)
		}
	}
	return merged
}
