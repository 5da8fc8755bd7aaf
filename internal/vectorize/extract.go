package vectorize

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/paulmach/orb/project"
	"github.com/paulmach/orb/simplify"

	"github.com/parksight/parksight/internal/geo"
	"github.com/parksight/parksight/internal/mask"
)

// minAreaDeg is the degenerate-sliver cutoff: polygons whose area in
// squared degrees falls below it after simplification are discarded.
const minAreaDeg = 1e-10

// Options controls polygon extraction and attribute derivation.
type Options struct {
	// SpotAreaM2 is the assumed footprint of one parking space.
	SpotAreaM2 float64

	// SimplifyToleranceM is the boundary simplification tolerance in
	// meters; zero disables simplification.
	SimplifyToleranceM float64

	// SmallMax and MediumMax are the exclusive spot-count upper
	// bounds for the small and medium size classes.
	SmallMax  int
	MediumMax int
}

// Extract traces every 4-connected occupied region of the mask into a
// geographic polygon and derives its attributes.
//
// Region boundaries are followed along cell edges, so holes inside a
// region come out as interior rings. Pixel coordinates are mapped to
// geographic coordinates through the affine transform, boundaries are
// Douglas-Peucker simplified within the tolerance, and degenerate or
// invalid results are silently dropped, which is routine for
// raster-tracing noise. Area is measured after projecting the polygon
// to Web Mercator; measuring in degrees would be meaningless.
//
// When prob is non-nil the confidence of each lot is the mean
// probability over that region's cells, otherwise DefaultConfidence.
// Lots are returned in the order regions were traced; IDs are zero
// until Merge assigns them.
func Extract(g *mask.Grid, transform geo.Affine, prob *mask.ProbMap, opts Options) []Lot {
	regions := labelRegions(g)
	tolDeg := geo.MetersToDegrees(opts.SimplifyToleranceM)

	lots := make([]Lot, 0, len(regions))
	for _, region := range regions {
		poly := traceRegion(g, region, transform)
		if poly == nil {
			continue
		}
		if tolDeg > 0 {
			poly = simplifyPolygon(poly, tolDeg)
			if poly == nil {
				continue
			}
		}
		if planar.Area(poly) < minAreaDeg {
			continue
		}

		mercator := project.Polygon(poly.Clone(), project.WGS84.ToMercator)
		areaM2 := planar.Area(mercator)
		spots := EstimateSpots(areaM2, opts.SpotAreaM2)
		centroid, _ := planar.CentroidArea(poly)

		lots = append(lots, Lot{
			Geometry:     poly,
			AreaM2:       areaM2,
			NumSpots:     spots,
			Confidence:   regionConfidence(region, prob),
			SizeCategory: Categorize(spots, opts.SmallMax, opts.MediumMax),
			CenterLon:    centroid[0],
			CenterLat:    centroid[1],
		})
	}
	return lots
}

// region is the cell set of one connected component, in trace order.
type region []regionCell

type regionCell struct {
	row int
	col int
}

// labelRegions finds all maximal 4-connected occupied components in
// row-major discovery order, using an iterative flood fill.
func labelRegions(g *mask.Grid) []region {
	visited := make([]bool, g.Width()*g.Height())
	var regions []region

	for row := 0; row < g.Height(); row++ {
		for col := 0; col < g.Width(); col++ {
			if !g.At(row, col) || visited[row*g.Width()+col] {
				continue
			}
			var r region
			stack := []regionCell{{row: row, col: col}}
			for len(stack) > 0 {
				c := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				if !g.At(c.row, c.col) {
					continue
				}
				idx := c.row*g.Width() + c.col
				if visited[idx] {
					continue
				}
				visited[idx] = true
				r = append(r, c)
				stack = append(stack,
					regionCell{row: c.row - 1, col: c.col},
					regionCell{row: c.row + 1, col: c.col},
					regionCell{row: c.row, col: c.col - 1},
					regionCell{row: c.row, col: c.col + 1},
				)
			}
			regions = append(regions, r)
		}
	}
	return regions
}

// regionConfidence averages the probability map over a region's cells.
func regionConfidence(r region, prob *mask.ProbMap) float64 {
	if prob == nil || len(r) == 0 {
		return DefaultConfidence
	}
	var sum float64
	for _, c := range r {
		sum += prob.At(c.row, c.col)
	}
	return sum / float64(len(r))
}

// vertex is a lattice point on the pixel grid: x is a column edge,
// y a row edge.
type vertex struct {
	x int
	y int
}

// traceRegion follows the region's cell-edge boundary into closed
// rings and assembles them into a geographic polygon, exterior ring
// first. Returns nil if the boundary degenerates.
//
// Every boundary edge is emitted as a directed unit segment with the
// region interior on a fixed side, so chaining segments end to end
// closes each ring exactly once. Where four boundary edges meet at a
// pinch vertex (a hole touching the shell or another hole at a
// corner) the walk hugs the corner of the cell it is tracing, so each
// empty component closes as its own ring: the shell and a touching
// hole share the pinch vertex but never exchange edges.
func traceRegion(g *mask.Grid, r region, transform geo.Affine) orb.Polygon {
	inRegion := make(map[regionCell]bool, len(r))
	for _, c := range r {
		inRegion[c] = true
	}

	// Directed boundary edges, keyed by their start vertex.
	outgoing := make(map[vertex][]vertex)
	addEdge := func(from, to vertex) {
		outgoing[from] = append(outgoing[from], to)
	}
	for _, c := range r {
		if !inRegion[regionCell{row: c.row - 1, col: c.col}] {
			addEdge(vertex{c.col, c.row}, vertex{c.col + 1, c.row})
		}
		if !inRegion[regionCell{row: c.row, col: c.col + 1}] {
			addEdge(vertex{c.col + 1, c.row}, vertex{c.col + 1, c.row + 1})
		}
		if !inRegion[regionCell{row: c.row + 1, col: c.col}] {
			addEdge(vertex{c.col + 1, c.row + 1}, vertex{c.col, c.row + 1})
		}
		if !inRegion[regionCell{row: c.row, col: c.col - 1}] {
			addEdge(vertex{c.col, c.row + 1}, vertex{c.col, c.row})
		}
	}

	used := make(map[[2]vertex]bool)
	var pixelRings [][]vertex

	// Deterministic starts: walk the region cells in trace order and
	// begin a ring at any unused edge.
	for _, c := range r {
		for _, start := range []vertex{
			{c.col, c.row}, {c.col + 1, c.row},
			{c.col + 1, c.row + 1}, {c.col, c.row + 1},
		} {
			for _, next := range outgoing[start] {
				if used[[2]vertex{start, next}] {
					continue
				}
				ring := walkRing(outgoing, used, start, next)
				if len(ring) >= 4 {
					pixelRings = append(pixelRings, ring)
				}
			}
		}
	}

	if len(pixelRings) == 0 {
		return nil
	}
	return assemblePolygon(pixelRings, transform)
}

// walkRing chains directed edges from start until the ring closes.
func walkRing(outgoing map[vertex][]vertex, used map[[2]vertex]bool, start, next vertex) []vertex {
	ring := []vertex{start}
	cur, prev := next, start
	used[[2]vertex{start, next}] = true

	for cur != start {
		ring = append(ring, cur)
		to, ok := pickNext(outgoing, used, prev, cur)
		if !ok {
			return nil // broken chain, should not happen on a well-formed boundary
		}
		used[[2]vertex{cur, to}] = true
		prev, cur = cur, to
	}
	ring = append(ring, start) // close
	return ring
}

// pickNext selects the outgoing edge at cur. At a pinch vertex two
// continuations exist; the exterior-side turn relative to the incoming
// direction wraps the corner of the cell just traced and stays on the
// current ring, so it is taken first, then straight ahead, then the
// interior turn. The interior turn would splice the touching ring's
// edges into this walk and emit one self-touching ring instead of a
// shell plus a hole.
func pickNext(outgoing map[vertex][]vertex, used map[[2]vertex]bool, prev, cur vertex) (vertex, bool) {
	candidates := outgoing[cur]
	var available []vertex
	for _, to := range candidates {
		if !used[[2]vertex{cur, to}] {
			available = append(available, to)
		}
	}
	switch len(available) {
	case 0:
		return vertex{}, false
	case 1:
		return available[0], true
	}

	dx, dy := cur.x-prev.x, cur.y-prev.y
	// Preference: exterior turn, straight, interior turn.
	prefs := []vertex{
		{cur.x + dy, cur.y - dx},
		{cur.x + dx, cur.y + dy},
		{cur.x - dy, cur.y + dx},
	}
	for _, p := range prefs {
		for _, to := range available {
			if to == p {
				return to, true
			}
		}
	}
	return available[0], true
}

// assemblePolygon transforms pixel rings to geographic coordinates,
// classifies the exterior ring by winding in pixel space (the tracer
// emits the outer boundary with positive signed area, holes negative)
// and normalizes orientations to counterclockwise exterior, clockwise
// holes.
func assemblePolygon(pixelRings [][]vertex, transform geo.Affine) orb.Polygon {
	outerIdx := -1
	for i, ring := range pixelRings {
		if pixelSignedArea(ring) > 0 {
			outerIdx = i
			break
		}
	}
	if outerIdx == -1 {
		return nil
	}

	toGeo := func(ring []vertex) orb.Ring {
		out := make(orb.Ring, len(ring))
		for i, v := range ring {
			x, y := transform.Apply(float64(v.x), float64(v.y))
			out[i] = orb.Point{x, y}
		}
		return out
	}

	poly := make(orb.Polygon, 0, len(pixelRings))
	poly = append(poly, orient(toGeo(pixelRings[outerIdx]), true))
	for i, ring := range pixelRings {
		if i == outerIdx {
			continue
		}
		poly = append(poly, orient(toGeo(ring), false))
	}
	return poly
}

// orient reverses the ring if needed so that ccw selects the winding:
// counterclockwise (positive signed area) or clockwise.
func orient(r orb.Ring, ccw bool) orb.Ring {
	if (signedArea(r) > 0) == ccw {
		return r
	}
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return r
}

func signedArea(r orb.Ring) float64 {
	var sum float64
	for i := 0; i < len(r)-1; i++ {
		sum += r[i][0]*r[i+1][1] - r[i+1][0]*r[i][1]
	}
	return sum / 2
}

func pixelSignedArea(ring []vertex) float64 {
	var sum float64
	for i := 0; i < len(ring)-1; i++ {
		sum += float64(ring[i].x*ring[i+1].y - ring[i+1].x*ring[i].y)
	}
	return sum / 2
}

// simplifyPolygon runs Douglas-Peucker on each ring independently.
// Douglas-Peucker does not preserve topology, so every simplified ring
// is re-checked for simplicity: a hole that degenerates below a closed
// triangle or stops being simple is dropped; a degenerate or
// non-simple exterior invalidates the whole polygon.
func simplifyPolygon(poly orb.Polygon, tolerance float64) orb.Polygon {
	out := make(orb.Polygon, 0, len(poly))
	for i, ring := range poly {
		ls := orb.LineString(ring)
		s := simplify.DouglasPeucker(tolerance).Simplify(ls.Clone())
		result, ok := s.(orb.LineString)
		if !ok || len(result) < 4 || !closed(result) || !ringSimple(orb.Ring(result)) {
			if i == 0 {
				return nil
			}
			continue
		}
		out = append(out, orb.Ring(result))
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func closed(ls orb.LineString) bool {
	return len(ls) >= 2 && ls[0] == ls[len(ls)-1]
}

// ringSimple reports whether a closed ring repeats no vertex and has
// no two non-adjacent edges touching or crossing. Rings here are a
// handful of points, so the quadratic scan is fine.
func ringSimple(r orb.Ring) bool {
	n := len(r) - 1 // distinct vertices, last point closes the ring
	if n < 3 {
		return false
	}
	seen := make(map[orb.Point]struct{}, n)
	for i := 0; i < n; i++ {
		if _, dup := seen[r[i]]; dup {
			return false
		}
		seen[r[i]] = struct{}{}
	}
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue // first and last edges share the closing vertex
			}
			if segmentsIntersect(r[i], r[i+1], r[j], r[j+1]) {
				return false
			}
		}
	}
	return true
}

// segmentsIntersect reports whether segments p1-p2 and q1-q2 share any
// point. Callers only pass non-adjacent edges of a duplicate-free
// ring, so any contact means the ring is not simple.
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := crossProduct(q1, q2, p1)
	d2 := crossProduct(q1, q2, p2)
	d3 := crossProduct(p1, p2, q1)
	d4 := crossProduct(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	return (d1 == 0 && onSegment(q1, q2, p1)) ||
		(d2 == 0 && onSegment(q1, q2, p2)) ||
		(d3 == 0 && onSegment(p1, p2, q1)) ||
		(d4 == 0 && onSegment(p1, p2, q2))
}

// crossProduct is the z component of (b-a) x (p-a).
func crossProduct(a, b, p orb.Point) float64 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}

// onSegment reports whether p, already known collinear with a-b, lies
// within the segment's bounding box.
func onSegment(a, b, p orb.Point) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}
