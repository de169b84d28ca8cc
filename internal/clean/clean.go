// Package clean drops known-bad records and repairs invalid polygon
// geometries before the spatial joins run.
package clean

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urban-eco-lab/holcstat/internal/model"
)

// DropExcluded returns the indicator records whose GEOID is not in the
// exclusion set. The input collection is not mutated. The exclusion set is
// configuration, not a literal: it names offshore and outlier units that
// would otherwise distort the joins.
func DropExcluded(c *model.IndicatorCollection, exclude []string) *model.IndicatorCollection {
	set := make(map[string]struct{}, len(exclude))
	for _, id := range exclude {
		set[id] = struct{}{}
	}
	out := &model.IndicatorCollection{EPSG: c.EPSG, Records: make([]model.IndicatorRecord, 0, len(c.Records))}
	dropped := 0
	for _, r := range c.Records {
		if _, ok := set[r.GEOID]; ok {
			dropped++
			continue
		}
		out.Records = append(out.Records, r)
	}
	if dropped > 0 {
		zap.L().With(zap.String("component", "clean")).Info("excluded units dropped",
			zap.Int("dropped", dropped),
			zap.Int("remaining", len(out.Records)),
		)
	}
	return out
}

// Validate reports whether every ring of the multipolygon is closed, has at
// least four vertices, encloses a nonzero area, and does not self-intersect.
func Validate(mp *geom.MultiPolygon) error {
	if mp == nil {
		return eris.New("clean: nil geometry")
	}
	for pi, poly := range mp.Coords() {
		for ri, ring := range poly {
			if err := validateRing(ring); err != nil {
				return eris.Wrapf(err, "clean: polygon %d ring %d", pi, ri)
			}
		}
	}
	return nil
}

// Repair returns a valid multipolygon. Already-valid input is returned
// unchanged, which makes the operation idempotent. Rings are repaired by
// dropping consecutive duplicate vertices, closing open rings, normalizing
// orientation, and, when a ring still self-intersects, substituting its
// convex hull as the nearest cheap valid equivalent.
func Repair(mp *geom.MultiPolygon) (*geom.MultiPolygon, error) {
	if Validate(mp) == nil {
		return mp, nil
	}
	var polys [][][]geom.Coord
	for _, poly := range mp.Coords() {
		var rings [][]geom.Coord
		for ri, ring := range poly {
			fixed := repairRing(ring, ri == 0)
			if fixed == nil {
				// Degenerate hole: drop. Degenerate exterior: drop polygon.
				if ri == 0 {
					rings = nil
					break
				}
				continue
			}
			rings = append(rings, fixed)
		}
		if len(rings) > 0 {
			polys = append(polys, rings)
		}
	}
	if len(polys) == 0 {
		return nil, eris.New("clean: no repairable polygon remains")
	}
	out := geom.NewMultiPolygon(geom.XY)
	out.SetSRID(mp.SRID())
	if _, err := out.SetCoords(polys); err != nil {
		return nil, eris.Wrap(err, "clean: rebuild repaired multipolygon")
	}
	return out, nil
}

// RepairGrades repairs every grade polygon in place of a fresh collection,
// logging how many geometries needed work.
func RepairGrades(c *model.GradeCollection) (*model.GradeCollection, error) {
	out := &model.GradeCollection{EPSG: c.EPSG, Polygons: make([]model.GradePolygon, len(c.Polygons))}
	repaired := 0
	for i, p := range c.Polygons {
		g, err := Repair(p.Geom)
		if err != nil {
			return nil, eris.Wrapf(err, "clean: grade area %s", p.AreaID)
		}
		if g != p.Geom {
			repaired++
		}
		p.Geom = g
		out.Polygons[i] = p
	}
	if repaired > 0 {
		zap.L().With(zap.String("component", "clean")).Info("grade geometries repaired",
			zap.Int("repaired", repaired),
		)
	}
	return out, nil
}

// RepairIndicators repairs every indicator unit geometry.
func RepairIndicators(c *model.IndicatorCollection) (*model.IndicatorCollection, error) {
	out := &model.IndicatorCollection{EPSG: c.EPSG, Records: make([]model.IndicatorRecord, len(c.Records))}
	repaired := 0
	for i, r := range c.Records {
		g, err := Repair(r.Geom)
		if err != nil {
			return nil, eris.Wrapf(err, "clean: indicator unit %s", r.GEOID)
		}
		if g != r.Geom {
			repaired++
		}
		r.Geom = g
		out.Records[i] = r
	}
	if repaired > 0 {
		zap.L().With(zap.String("component", "clean")).Info("indicator geometries repaired",
			zap.Int("repaired", repaired),
		)
	}
	return out, nil
}

func validateRing(ring []geom.Coord) error {
	if len(ring) < 4 {
		return eris.Errorf("ring has %d vertices, need at least 4", len(ring))
	}
	if !coordEqual(ring[0], ring[len(ring)-1]) {
		return eris.New("ring is not closed")
	}
	if math.Abs(signedArea(ring)) == 0 {
		return eris.New("ring encloses zero area")
	}
	if ringSelfIntersects(ring) {
		return eris.New("ring self-intersects")
	}
	return nil
}

// repairRing returns a valid closed ring oriented CCW for exteriors and CW
// for holes, or nil if the ring is degenerate beyond repair.
func repairRing(ring []geom.Coord, exterior bool) []geom.Coord {
	r := dedupeConsecutive(ring)
	if len(r) >= 2 && !coordEqual(r[0], r[len(r)-1]) {
		r = append(r, geom.Coord{r[0][0], r[0][1]})
	}
	if len(r) < 4 || math.Abs(signedArea(r)) == 0 {
		return nil
	}
	if ringSelfIntersects(r) {
		r = convexHull(r)
		if len(r) < 4 {
			return nil
		}
	}
	ccw := signedArea(r) > 0
	if ccw != exterior {
		reverseRing(r)
	}
	return r
}

func dedupeConsecutive(ring []geom.Coord) []geom.Coord {
	out := make([]geom.Coord, 0, len(ring))
	for _, c := range ring {
		if len(out) > 0 && coordEqual(out[len(out)-1], c) {
			continue
		}
		out = append(out, geom.Coord{c[0], c[1]})
	}
	// A duplicated closing vertex is re-added by the caller.
	if len(out) > 1 && coordEqual(out[0], out[len(out)-1]) {
		out = out[:len(out)-1]
		out = append(out, geom.Coord{out[0][0], out[0][1]})
	}
	return out
}

func coordEqual(a, b geom.Coord) bool {
	return a[0] == b[0] && a[1] == b[1]
}

// signedArea is the shoelace area: positive for counter-clockwise rings.
func signedArea(ring []geom.Coord) float64 {
	var sum float64
	for i := 0; i+1 < len(ring); i++ {
		sum += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	return sum / 2
}

func reverseRing(ring []geom.Coord) {
	for i, j := 0, len(ring)-1; i < j; i, j = i+1, j-1 {
		ring[i], ring[j] = ring[j], ring[i]
	}
}

// ringSelfIntersects scans all non-adjacent segment pairs. O(n^2) is fine at
// neighborhood-polygon sizes.
func ringSelfIntersects(ring []geom.Coord) bool {
	n := len(ring) - 1 // segment count; ring is closed
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if j == i+1 || (i == 0 && j == n-1) {
				continue // adjacent segments share a vertex
			}
			if segmentsIntersect(ring[i], ring[i+1], ring[j], ring[j+1]) {
				return true
			}
		}
	}
	return false
}

// segmentsIntersect is the standard orientation test, counting collinear
// overlap as an intersection.
func segmentsIntersect(p1, p2, q1, q2 geom.Coord) bool {
	d1 := cross(q1, q2, p1)
	d2 := cross(q1, q2, p2)
	d3 := cross(p1, p2, q1)
	d4 := cross(p1, p2, q2)
	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	if d1 == 0 && onSegment(q1, q2, p1) {
		return true
	}
	if d2 == 0 && onSegment(q1, q2, p2) {
		return true
	}
	if d3 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if d4 == 0 && onSegment(p1, p2, q2) {
		return true
	}
	return false
}

func cross(a, b, c geom.Coord) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p geom.Coord) bool {
	return math.Min(a[0], b[0]) <= p[0] && p[0] <= math.Max(a[0], b[0]) &&
		math.Min(a[1], b[1]) <= p[1] && p[1] <= math.Max(a[1], b[1])
}

// convexHull builds the monotone-chain hull of the ring's vertices and
// returns it as a closed CCW ring.
func convexHull(ring []geom.Coord) []geom.Coord {
	pts := make([]geom.Coord, 0, len(ring))
	seen := make(map[[2]float64]struct{}, len(ring))
	for _, c := range ring {
		k := [2]float64{c[0], c[1]}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		pts = append(pts, geom.Coord{c[0], c[1]})
	}
	if len(pts) < 3 {
		return nil
	}
	sort.Slice(pts, func(i, j int) bool {
		if pts[i][0] != pts[j][0] {
			return pts[i][0] < pts[j][0]
		}
		return pts[i][1] < pts[j][1]
	})
	var lower, upper []geom.Coord
	for _, p := range pts {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}
	for i := len(pts) - 1; i >= 0; i-- {
		p := pts[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}
	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) < 3 {
		return nil
	}
	hull = append(hull, geom.Coord{hull[0][0], hull[0][1]})
	return hull
}
