package vectorize

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/parksight/parksight/internal/geo"
	"github.com/parksight/parksight/internal/mask"
)

// equatorTransform places tiles near the equator where degree spans
// in both axes are nearly equal, keeping expected areas easy to state.
func equatorTransform() geo.Affine {
	return geo.NorthUp(-84.0, 0.001, 1e-4, 1e-4)
}

func defaultOptions() Options {
	return Options{
		SpotAreaM2: 12.5,
		SmallMax:   50,
		MediumMax:  200,
	}
}

func squareGrid(size, r0, c0, r1, c1 int) *mask.Grid {
	g := mask.NewGrid(size, size)
	for r := r0; r <= r1; r++ {
		for c := c0; c <= c1; c++ {
			g.Set(r, c, true)
		}
	}
	return g
}

func TestExtractEmptyGrid(t *testing.T) {
	lots := Extract(mask.NewGrid(8, 8), equatorTransform(), nil, defaultOptions())
	if len(lots) != 0 {
		t.Errorf("empty mask should yield no lots, got %d", len(lots))
	}
}

func TestExtractSingleSquare(t *testing.T) {
	g := squareGrid(8, 2, 2, 5, 5) // 4x4 cells
	lots := Extract(g, equatorTransform(), nil, defaultOptions())
	if len(lots) != 1 {
		t.Fatalf("got %d lots, want 1", len(lots))
	}
	lot := lots[0]

	// 4 cells of 1e-4 degrees at the equator is about 44.53 m per
	// side, about 1983 m2.
	if lot.AreaM2 < 1900 || lot.AreaM2 > 2070 {
		t.Errorf("area = %v m2, want about 1983", lot.AreaM2)
	}
	if want := EstimateSpots(lot.AreaM2, 12.5); lot.NumSpots != want {
		t.Errorf("spots = %d, want %d for area %v", lot.NumSpots, want, lot.AreaM2)
	}
	if lot.SizeCategory != SizeLarge {
		t.Errorf("category = %q, want %q for %d spots", lot.SizeCategory, SizeLarge, lot.NumSpots)
	}
	if lot.Confidence != DefaultConfidence {
		t.Errorf("confidence = %v, want default %v without probability map", lot.Confidence, DefaultConfidence)
	}

	// Centroid at the square's center: columns 2..6 and rows 2..6 in
	// edge coordinates, so center (4, 4).
	wantLon, wantLat := -84.0+4e-4, 0.001-4e-4
	if math.Abs(lot.CenterLon-wantLon) > 1e-7 || math.Abs(lot.CenterLat-wantLat) > 1e-7 {
		t.Errorf("centroid = (%v, %v), want (%v, %v)", lot.CenterLon, lot.CenterLat, wantLon, wantLat)
	}

	if len(lot.Geometry) != 1 {
		t.Fatalf("square should have one ring, got %d", len(lot.Geometry))
	}
	ring := lot.Geometry[0]
	if ring[0] != ring[len(ring)-1] {
		t.Error("exterior ring is not closed")
	}
	if signedArea(ring) <= 0 {
		t.Error("exterior ring should be counterclockwise")
	}
}

func TestExtractDonutHasInteriorRing(t *testing.T) {
	// 5x5 block with a 3x3 hole leaves a one-cell-wide ring.
	g := squareGrid(7, 1, 1, 5, 5)
	for r := 2; r <= 4; r++ {
		for c := 2; c <= 4; c++ {
			g.Set(r, c, false)
		}
	}

	lots := Extract(g, equatorTransform(), nil, defaultOptions())
	if len(lots) != 1 {
		t.Fatalf("got %d lots, want 1", len(lots))
	}
	poly := lots[0].Geometry
	if len(poly) != 2 {
		t.Fatalf("donut should have exterior plus one hole, got %d rings", len(poly))
	}
	if signedArea(poly[0]) <= 0 {
		t.Error("exterior ring should be counterclockwise")
	}
	if signedArea(poly[1]) >= 0 {
		t.Error("hole ring should be clockwise")
	}

	// The ring covers 16 of 25 block cells.
	outer := math.Abs(signedArea(poly[0]))
	hole := math.Abs(signedArea(poly[1]))
	if ratio := hole / outer; math.Abs(ratio-9.0/25.0) > 1e-6 {
		t.Errorf("hole/outer area ratio = %v, want %v", ratio, 9.0/25.0)
	}
}

func TestExtractHoleTouchingShellAtCorner(t *testing.T) {
	// 3x3 block with the center cell empty and one corner cell empty:
	// the hole touches the exterior boundary at a single lattice point.
	// The hole must still come out as its own interior ring, not get
	// spliced into the shell as a self-touching walk.
	g := mask.NewGrid(3, 3)
	for r := 0; r < 3; r++ {
		for c := 0; c < 3; c++ {
			g.Set(r, c, true)
		}
	}
	g.Set(1, 1, false)
	g.Set(2, 2, false)

	lots := Extract(g, equatorTransform(), nil, defaultOptions())
	if len(lots) != 1 {
		t.Fatalf("got %d lots, want 1", len(lots))
	}
	poly := lots[0].Geometry
	if len(poly) != 2 {
		t.Fatalf("got %d rings, want exterior plus one hole", len(poly))
	}
	if signedArea(poly[0]) <= 0 {
		t.Error("exterior ring should be counterclockwise")
	}
	if signedArea(poly[1]) >= 0 {
		t.Error("hole ring should be clockwise")
	}

	// Rings may share the pinch point between them, but neither ring
	// may visit any of its own vertices twice.
	for i, ring := range poly {
		if ring[0] != ring[len(ring)-1] {
			t.Errorf("ring %d is not closed", i)
		}
		seen := make(map[orb.Point]bool, len(ring))
		for _, p := range ring[:len(ring)-1] {
			if seen[p] {
				t.Errorf("ring %d repeats vertex %v", i, p)
			}
			seen[p] = true
		}
	}

	// 8 cells inside the shell minus the 1-cell hole.
	outer := math.Abs(signedArea(poly[0]))
	hole := math.Abs(signedArea(poly[1]))
	if ratio := hole / outer; math.Abs(ratio-1.0/8.0) > 1e-6 {
		t.Errorf("hole/outer area ratio = %v, want %v", ratio, 1.0/8.0)
	}
}

func TestSimplifyDropsNonSimpleRings(t *testing.T) {
	bowtie := orb.Ring{{0, 0}, {2, 2}, {2, 0}, {0, 2}, {0, 0}}
	pinched := orb.Ring{{0, 0}, {2, 0}, {1, 1}, {2, 2}, {0, 2}, {1, 1}, {0, 0}}
	square := orb.Ring{{-1, -1}, {3, -1}, {3, 3}, {-1, 3}, {-1, -1}}

	tests := []struct {
		name string
		poly orb.Polygon
		want int // rings surviving, -1 for a discarded polygon
	}{
		{"self-crossing exterior", orb.Polygon{bowtie}, -1},
		{"repeated-vertex exterior", orb.Polygon{pinched}, -1},
		{"self-crossing hole dropped", orb.Polygon{square, bowtie}, 1},
		{"simple polygon kept", orb.Polygon{square}, 1},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := simplifyPolygon(tc.poly, 1e-9)
			if tc.want == -1 {
				if got != nil {
					t.Errorf("got %d rings, want discarded polygon", len(got))
				}
				return
			}
			if len(got) != tc.want {
				t.Errorf("got %d rings, want %d", len(got), tc.want)
			}
		})
	}
}

func TestExtractTwoRegions(t *testing.T) {
	g := mask.NewGrid(10, 10)
	for r := 1; r <= 3; r++ {
		for c := 1; c <= 3; c++ {
			g.Set(r, c, true)
		}
	}
	for r := 6; r <= 8; r++ {
		for c := 6; c <= 8; c++ {
			g.Set(r, c, true)
		}
	}

	lots := Extract(g, equatorTransform(), nil, defaultOptions())
	if len(lots) != 2 {
		t.Fatalf("got %d lots, want 2", len(lots))
	}
	if lots[0].CenterLon == lots[1].CenterLon && lots[0].CenterLat == lots[1].CenterLat {
		t.Error("distinct regions should have distinct centroids")
	}
}

func TestExtractUsesProbabilityMap(t *testing.T) {
	g := squareGrid(6, 1, 1, 4, 4)
	prob := mask.NewProbMap(6, 6)
	for r := 1; r <= 4; r++ {
		for c := 1; c <= 4; c++ {
			prob.Set(r, c, 0.6)
		}
	}

	lots := Extract(g, equatorTransform(), prob, defaultOptions())
	if len(lots) != 1 {
		t.Fatalf("got %d lots, want 1", len(lots))
	}
	if math.Abs(lots[0].Confidence-0.6) > 1e-12 {
		t.Errorf("confidence = %v, want mean probability 0.6", lots[0].Confidence)
	}
}

func TestExtractSimplifiesCollinearBoundary(t *testing.T) {
	g := squareGrid(8, 2, 2, 5, 5)
	opts := defaultOptions()
	opts.SimplifyToleranceM = 0.5

	lots := Extract(g, equatorTransform(), nil, opts)
	if len(lots) != 1 {
		t.Fatalf("got %d lots, want 1", len(lots))
	}
	ring := lots[0].Geometry[0]
	// A square reduces to its four corners plus the closing point.
	if len(ring) != 5 {
		t.Errorf("simplified ring has %d points, want 5", len(ring))
	}
}
