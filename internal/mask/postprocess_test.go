package mask

import (
	"testing"
)

// gridFromRows builds a grid from a compact picture, '#' occupied.
func gridFromRows(rows []string) *Grid {
	g := NewGrid(len(rows[0]), len(rows))
	for r, row := range rows {
		for c, ch := range row {
			if ch == '#' {
				g.Set(r, c, true)
			}
		}
	}
	return g
}

func fillRect(g *Grid, r0, c0, r1, c1 int) {
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			g.Set(r, c, true)
		}
	}
}

func TestPostprocessAllZerosIsIdentity(t *testing.T) {
	g := gridFromRows([]string{
		"#..#",
		".##.",
		"#...",
		"...#",
	})
	out := Postprocess(g, 0, 0, 0)
	if !out.Equal(g) {
		t.Errorf("all-zero parameters should return the input unchanged, got %v", out)
	}
	if out == g {
		t.Error("result must be a copy, not the input grid")
	}
}

func TestPostprocessDoesNotMutateInput(t *testing.T) {
	g := NewGrid(10, 10)
	fillRect(g, 2, 2, 7, 7)
	g.Set(0, 9, true) // speck

	before := g.Clone()
	Postprocess(g, 3, 4, 0)
	if !g.Equal(before) {
		t.Error("input grid was mutated")
	}
}

func TestRemoveSmallObjects(t *testing.T) {
	g := NewGrid(10, 10)
	fillRect(g, 2, 2, 6, 6) // 25-cell block
	g.Set(0, 9, true)       // 1-cell speck
	g.Set(9, 0, true)
	g.Set(9, 1, true) // 2-cell speck

	out := Postprocess(g, 3, 0, 0)

	if out.At(0, 9) || out.At(9, 0) || out.At(9, 1) {
		t.Error("components below the area threshold should be removed")
	}
	if out.Count() != 25 {
		t.Errorf("large component should survive intact, count = %d, want 25", out.Count())
	}
}

func TestFillSmallHoleInTenByTen(t *testing.T) {
	// A 10x10 occupied tile with a 2x2 hole in the middle. Filling
	// with a 5-cell threshold closes the hole exactly.
	g := NewGrid(10, 10)
	fillRect(g, 0, 0, 9, 9)
	g.Set(4, 4, false)
	g.Set(4, 5, false)
	g.Set(5, 4, false)
	g.Set(5, 5, false)

	out := Postprocess(g, 0, 5, 0)

	if out.Count() != 100 {
		t.Errorf("hole should be filled, count = %d, want 100", out.Count())
	}
}

func TestFillSingleCellHole(t *testing.T) {
	g := NewGrid(10, 10)
	fillRect(g, 0, 0, 9, 9)
	g.Set(5, 5, false)

	out := Postprocess(g, 0, 2, 0)
	if out.Count() != 100 {
		t.Errorf("1-cell hole below threshold 2 should be filled, count = %d, want 100", out.Count())
	}
}

func TestFillSkipsHoleAtThreshold(t *testing.T) {
	g := NewGrid(10, 10)
	fillRect(g, 0, 0, 9, 9)
	g.Set(4, 4, false)
	g.Set(4, 5, false)
	g.Set(5, 4, false)
	g.Set(5, 5, false)

	// Threshold equal to the hole size: strictly-smaller rule, so the
	// hole stays open.
	out := Postprocess(g, 0, 4, 0)
	if out.Count() != 96 {
		t.Errorf("hole at the threshold should not be filled, count = %d, want 96", out.Count())
	}
}

func TestFillIgnoresBorderTouchingBackground(t *testing.T) {
	// A small occupied patch: all surrounding background touches the
	// border and must never be filled, however small the tile.
	g := NewGrid(5, 5)
	fillRect(g, 1, 1, 3, 3)

	out := Postprocess(g, 0, 100, 0)
	if out.Count() != 9 {
		t.Errorf("open background was filled, count = %d, want 9", out.Count())
	}
}

func TestClosingKeepsInteriorRectangle(t *testing.T) {
	g := NewGrid(12, 12)
	fillRect(g, 3, 3, 8, 8)

	out := Postprocess(g, 0, 0, 3)
	if !out.Equal(g) {
		t.Errorf("closing a solid interior rectangle should be an identity, got %v", out)
	}
}

func TestClosingEvenKernelBehavesAsNextOdd(t *testing.T) {
	// The closing filters scan windows of side 2*radius+1, so an even
	// element side rounds up to the next odd one. Two blocks with a
	// 2-cell gap: a 5x5 element bridges it, and side 4 must act the
	// same way.
	g := NewGrid(14, 10)
	fillRect(g, 3, 2, 5, 4)
	fillRect(g, 3, 7, 5, 9)

	even := Postprocess(g, 0, 0, 4)
	odd := Postprocess(g, 0, 0, 5)
	if !even.Equal(odd) {
		t.Error("even kernel should behave exactly like the next odd size")
	}
	if even.Equal(g) {
		t.Error("closing should have bridged the gap between the blocks")
	}
}

func TestPostprocessIdempotent(t *testing.T) {
	g := NewGrid(14, 14)
	fillRect(g, 3, 3, 10, 10)
	g.Set(6, 6, false)
	g.Set(6, 7, false) // small hole
	g.Set(0, 13, true) // speck

	once := Postprocess(g, 3, 5, 3)
	twice := Postprocess(once, 3, 5, 3)
	if !twice.Equal(once) {
		t.Error("a second pass over cleaned output should change nothing")
	}
}
