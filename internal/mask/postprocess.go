package mask

import (
	"github.com/anthonynsimon/bild/effect"
)

// cell is a (row, col) grid coordinate used by the flood-fill passes.
type cell struct {
	row int
	col int
}

// Postprocess cleans a noisy detection mask. Three steps run in a
// fixed order, each skipped when its size parameter is zero:
//
//  1. Remove occupied components smaller than minAreaPx cells (noise).
//  2. Fill empty components smaller than fillHolePx cells that are
//     fully surrounded by occupied cells (shadows, lane markings).
//  3. Morphological closing (dilate then erode) with a square element
//     of side closingKernel, smoothing boundaries and bridging gaps
//     of up to closingKernel/2 cells. The element side must be odd; an
//     even closingKernel behaves as the next odd size up (see closing).
//
// The order matters: closing after hole-filling avoids re-creating the
// filled holes, and removing noise first keeps closing from enlarging
// it. The input grid is never mutated; the result has the same shape.
func Postprocess(g *Grid, minAreaPx, fillHolePx, closingKernel int) *Grid {
	out := g.Clone()
	if minAreaPx > 0 {
		out = removeSmallObjects(out, minAreaPx)
	}
	if fillHolePx > 0 {
		out = fillSmallHoles(out, fillHolePx)
	}
	if closingKernel > 0 {
		out = closing(out, closingKernel)
	}
	return out
}

// removeSmallObjects clears 4-connected occupied components with
// fewer than minArea cells.
func removeSmallObjects(g *Grid, minArea int) *Grid {
	visited := make([]bool, g.Width()*g.Height())
	for row := 0; row < g.Height(); row++ {
		for col := 0; col < g.Width(); col++ {
			if !g.At(row, col) || visited[row*g.Width()+col] {
				continue
			}
			component := collectComponent(g, row, col, visited, true)
			if len(component) < minArea {
				for _, c := range component {
					g.Set(c.row, c.col, false)
				}
			}
		}
	}
	return g
}

// fillSmallHoles sets 4-connected empty components with fewer than
// maxArea cells to occupied, provided they do not touch the tile
// border. Border-touching empty regions are background, not holes.
func fillSmallHoles(g *Grid, maxArea int) *Grid {
	visited := make([]bool, g.Width()*g.Height())
	for row := 0; row < g.Height(); row++ {
		for col := 0; col < g.Width(); col++ {
			if g.At(row, col) || visited[row*g.Width()+col] {
				continue
			}
			component := collectComponent(g, row, col, visited, false)
			if len(component) >= maxArea {
				continue
			}
			if touchesBorder(g, component) {
				continue
			}
			for _, c := range component {
				g.Set(c.row, c.col, true)
			}
		}
	}
	return g
}

// closing applies morphological closing with a square structuring
// element of the given side length. The grid is rendered to a
// grayscale image so the max/min filters can run on it; on a strictly
// binary raster dilate/erode over pixel values are exactly the set
// operations.
//
// The max/min filters take a radius and scan a window of side
// 2*radius+1, so the element side is always odd: an even kernel k is
// rounded up and behaves exactly like k+1. Config validation rejects
// even sizes; this keeps direct callers predictable.
func closing(g *Grid, kernel int) *Grid {
	radius := float64(kernel / 2)
	if radius <= 0 {
		return g
	}
	img := g.Image()
	dilated := effect.Dilate(img, radius)
	eroded := effect.Erode(dilated, radius)
	return FromImage(eroded, 128)
}

// collectComponent flood-fills the 4-connected component containing
// (row, col) whose cells match the wanted occupancy, marking them in
// visited and returning their coordinates. The fill is stack-based so
// large components cannot overflow the call stack.
func collectComponent(g *Grid, row, col int, visited []bool, occupied bool) []cell {
	var component []cell
	stack := []cell{{row: row, col: col}}
	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if c.row < 0 || c.row >= g.Height() || c.col < 0 || c.col >= g.Width() {
			continue
		}
		idx := c.row*g.Width() + c.col
		if visited[idx] || g.At(c.row, c.col) != occupied {
			continue
		}
		visited[idx] = true
		component = append(component, c)

		stack = append(stack,
			cell{row: c.row - 1, col: c.col},
			cell{row: c.row + 1, col: c.col},
			cell{row: c.row, col: c.col - 1},
			cell{row: c.row, col: c.col + 1},
		)
	}
	return component
}

func touchesBorder(g *Grid, component []cell) bool {
	for _, c := range component {
		if c.row == 0 || c.row == g.Height()-1 || c.col == 0 || c.col == g.Width()-1 {
			return true
		}
	}
	return false
}
