package vectorize

import (
	"math"

	"github.com/paulmach/orb"
)

// SizeCategory classifies a lot by its estimated spot count.
type SizeCategory string

const (
	SizeSmall  SizeCategory = "small"
	SizeMedium SizeCategory = "medium"
	SizeLarge  SizeCategory = "large"
)

// DefaultConfidence is assigned when no probability map accompanies
// the mask.
const DefaultConfidence = 0.8

// Lot is one detected surface parking lot: a geographic polygon
// (possibly with interior rings) plus derived attributes. Lots are
// immutable after extraction except for the final ID assigned by
// Merge.
type Lot struct {
	// ID is the run-unique identifier assigned after the global
	// merge. It carries no meaning beyond uniqueness within one run.
	ID int `json:"lot_id"`

	// Geometry is the lot boundary in WGS84 longitude/latitude.
	Geometry orb.Polygon `json:"-"`

	// AreaM2 is the polygon area in square meters, measured in a
	// projected coordinate system (never in degrees).
	AreaM2 float64 `json:"area_m2"`

	// NumSpots estimates capacity as floor(AreaM2 / spot area).
	NumSpots int `json:"num_spots"`

	// Confidence is the mean detection probability over the lot's
	// cells, or DefaultConfidence without a probability map.
	Confidence float64 `json:"confidence"`

	// SizeCategory is small, medium or large by spot count.
	SizeCategory SizeCategory `json:"size_category"`

	// CenterLon and CenterLat are the polygon centroid in WGS84.
	CenterLon float64 `json:"center_lon"`
	CenterLat float64 `json:"center_lat"`
}

// EstimateSpots derives a capacity estimate from a lot's area. The
// default spot footprint of 12.5 m2 corresponds to a 2.5 m x 5 m bay.
func EstimateSpots(areaM2, spotAreaM2 float64) int {
	if spotAreaM2 <= 0 || areaM2 <= 0 {
		return 0
	}
	return int(math.Floor(areaM2 / spotAreaM2))
}

// Categorize assigns a size class from a spot count. Thresholds are
// exclusive upper bounds evaluated small first, so exactly one class
// matches for any non-negative count.
func Categorize(numSpots, smallMax, mediumMax int) SizeCategory {
	switch {
	case numSpots < smallMax:
		return SizeSmall
	case numSpots < mediumMax:
		return SizeMedium
	default:
		return SizeLarge
	}
}
