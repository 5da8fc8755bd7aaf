package geo

// CRS identifies a coordinate reference system, e.g. "EPSG:4326".
type CRS string

// WGS84 is the geographic CRS all output collections are expressed in.
const WGS84 CRS = "EPSG:4326"

// metersPerDegree is the approximate ground length of one degree of
// latitude, used to convert metric tolerances into degrees for
// geometry operations performed in geographic coordinates.
const metersPerDegree = 111000.0

// MetersToDegrees converts a distance in meters into the equivalent
// span in degrees of latitude. The conversion is approximate and only
// suitable for small tolerances (boundary simplification, snapping).
func MetersToDegrees(m float64) float64 {
	return m / metersPerDegree
}

// Affine maps raster cell indices to geographic coordinates.
//
// Coefficients follow the GDAL/rasterio convention, where (col, row)
// addresses a cell and (x, y) is typically (longitude, latitude):
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
//
// For north-up imagery B and D are zero, A is the pixel width, E is
// the (negative) pixel height and (C, F) is the top-left corner.
type Affine struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
	D float64 `json:"d"`
	E float64 `json:"e"`
	F float64 `json:"f"`
}

// NorthUp builds the transform for an axis-aligned tile with its
// top-left corner at (originX, originY) and the given pixel size.
// pixelH must be positive; it is applied downward (decreasing y).
func NorthUp(originX, originY, pixelW, pixelH float64) Affine {
	return Affine{A: pixelW, C: originX, E: -pixelH, F: originY}
}

// Apply maps fractional cell coordinates to geographic coordinates.
// Cell (0, 0) maps its top-left corner; pass col+0.5, row+0.5 for the
// cell center.
func (t Affine) Apply(col, row float64) (x, y float64) {
	x = t.A*col + t.B*row + t.C
	y = t.D*col + t.E*row + t.F
	return x, y
}

// IsZero reports whether the transform is entirely unset, which is
// never a valid georeference.
func (t Affine) IsZero() bool {
	return t == Affine{}
}
