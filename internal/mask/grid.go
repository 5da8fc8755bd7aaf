package mask

import (
	"fmt"
	"image"
	"image/color"
)

// Grid is a binary raster mask. A true cell marks detected parking
// surface ("occupied"), false marks background.
//
// Cells are addressed as (row, col) with row 0 at the top, matching
// the image convention. The zero value is not usable; construct grids
// with NewGrid or FromImage.
type Grid struct {
	width  int
	height int
	cells  []bool
}

// NewGrid creates an all-empty grid of the given dimensions.
func NewGrid(width, height int) *Grid {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Grid{
		width:  width,
		height: height,
		cells:  make([]bool, width*height),
	}
}

// Width returns the number of columns.
func (g *Grid) Width() int { return g.width }

// Height returns the number of rows.
func (g *Grid) Height() int { return g.height }

// At reports whether the cell at (row, col) is occupied.
// Out-of-bounds coordinates read as empty, which lets neighborhood
// scans treat everything beyond the tile edge as background.
func (g *Grid) At(row, col int) bool {
	if row < 0 || row >= g.height || col < 0 || col >= g.width {
		return false
	}
	return g.cells[row*g.width+col]
}

// Set assigns the cell at (row, col). Out-of-bounds writes are ignored.
func (g *Grid) Set(row, col int, occupied bool) {
	if row < 0 || row >= g.height || col < 0 || col >= g.width {
		return
	}
	g.cells[row*g.width+col] = occupied
}

// Count returns the number of occupied cells.
func (g *Grid) Count() int {
	n := 0
	for _, c := range g.cells {
		if c {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the grid.
func (g *Grid) Clone() *Grid {
	out := NewGrid(g.width, g.height)
	copy(out.cells, g.cells)
	return out
}

// Equal reports whether two grids have identical shape and cells.
func (g *Grid) Equal(other *Grid) bool {
	if other == nil || g.width != other.width || g.height != other.height {
		return false
	}
	for i := range g.cells {
		if g.cells[i] != other.cells[i] {
			return false
		}
	}
	return true
}

// FromImage converts an image into a binary grid. A pixel is occupied
// when its luminance exceeds the threshold (0-255); detection masks
// are conventionally white-on-black, so 128 is a reasonable choice.
func FromImage(img image.Image, threshold uint8) *Grid {
	bounds := img.Bounds()
	g := NewGrid(bounds.Dx(), bounds.Dy())
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			c := color.GrayModel.Convert(img.At(x+bounds.Min.X, y+bounds.Min.Y)).(color.Gray)
			if c.Y > threshold {
				g.Set(y, x, true)
			}
		}
	}
	return g
}

// Image renders the grid as an 8-bit grayscale image with occupied
// cells white (255) and empty cells black (0).
func (g *Grid) Image() *image.Gray {
	img := image.NewGray(image.Rect(0, 0, g.width, g.height))
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			if g.At(y, x) {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

// ProbMap is a per-cell confidence raster in [0, 1] with the same
// shape as the mask it accompanies.
type ProbMap struct {
	width  int
	height int
	vals   []float64
}

// NewProbMap creates an all-zero probability map.
func NewProbMap(width, height int) *ProbMap {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &ProbMap{
		width:  width,
		height: height,
		vals:   make([]float64, width*height),
	}
}

// Width returns the number of columns.
func (p *ProbMap) Width() int { return p.width }

// Height returns the number of rows.
func (p *ProbMap) Height() int { return p.height }

// At returns the confidence at (row, col); out of bounds reads 0.
func (p *ProbMap) At(row, col int) float64 {
	if row < 0 || row >= p.height || col < 0 || col >= p.width {
		return 0
	}
	return p.vals[row*p.width+col]
}

// Set assigns the confidence at (row, col), clamped to [0, 1].
func (p *ProbMap) Set(row, col int, v float64) {
	if row < 0 || row >= p.height || col < 0 || col >= p.width {
		return
	}
	if v < 0 {
		v = 0
	} else if v > 1 {
		v = 1
	}
	p.vals[row*p.width+col] = v
}

// ProbFromImage converts a grayscale probability raster into a ProbMap
// by scaling luminance into [0, 1].
func ProbFromImage(img image.Image) *ProbMap {
	bounds := img.Bounds()
	p := NewProbMap(bounds.Dx(), bounds.Dy())
	for y := 0; y < p.height; y++ {
		for x := 0; x < p.width; x++ {
			c := color.GrayModel.Convert(img.At(x+bounds.Min.X, y+bounds.Min.Y)).(color.Gray)
			p.Set(y, x, float64(c.Y)/255.0)
		}
	}
	return p
}

// MatchesShape reports whether the probability map has the same
// dimensions as the grid.
func (p *ProbMap) MatchesShape(g *Grid) bool {
	return p.width == g.Width() && p.height == g.Height()
}

func (g *Grid) String() string {
	return fmt.Sprintf("mask.Grid(%dx%d, %d occupied)", g.width, g.height, g.Count())
}
