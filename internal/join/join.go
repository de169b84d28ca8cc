// Package join implements in-memory spatial joins between geometry
// collections. Candidate pairs are cut down with a bounding-box quick
// reject, then tested with exact predicates: ray-casting containment for
// points, vertex containment plus edge scanning for polygon pairs.
package join

import (
	"github.com/twpayne/go-geom"
)

// Predicate is the geometric relationship a pair must satisfy to join.
type Predicate int

const (
	// Intersects matches when the geometries share any point.
	Intersects Predicate = iota
	// Contains matches when the left geometry contains the right one.
	Contains
)

// Kind selects the join cardinality on zero matches.
type Kind int

const (
	// Inner drops left records with no match.
	Inner Kind = iota
	// Left emits an unmatched left record once, with a nil right side.
	Left
)

// Pair is one joined output row. Right is nil only for unmatched rows under
// a Left join. A left geometry matching k right geometries produces k rows;
// the caller must treat the resulting count inflation as documented
// behavior, not a bug.
type Pair[L, R any] struct {
	Left  L
	Right *R
}

// Join pairs every left record with every right record whose geometries
// satisfy the predicate. lg and rg project records to their geometries.
func Join[L, R any](
	left []L, right []R,
	lg func(L) geom.T, rg func(R) geom.T,
	pred Predicate, kind Kind,
) []Pair[L, R] {
	boxes := make([]*geom.Bounds, len(right))
	for i, r := range right {
		boxes[i] = rg(r).Bounds()
	}
	var out []Pair[L, R]
	for _, l := range left {
		lgeom := lg(l)
		lbox := lgeom.Bounds()
		matched := false
		for i := range right {
			if !boundsOverlap(lbox, boxes[i]) {
				continue
			}
			if !Matches(pred, lgeom, rg(right[i])) {
				continue
			}
			matched = true
			r := right[i]
			out = append(out, Pair[L, R]{Left: l, Right: &r})
		}
		if !matched && kind == Left {
			out = append(out, Pair[L, R]{Left: l})
		}
	}
	return out
}

// Matches evaluates the predicate for a single geometry pair. Identical
// geometries always match, so a disjoint-covering collection joined to
// itself under Contains reproduces itself exactly.
func Matches(pred Predicate, left, right geom.T) bool {
	if geomEqual(left, right) {
		return true
	}
	switch pred {
	case Contains:
		return contains(left, right)
	case Intersects:
		return intersects(left, right)
	}
	return false
}

func boundsOverlap(a, b *geom.Bounds) bool {
	return a.Min(0) <= b.Max(0) && b.Min(0) <= a.Max(0) &&
		a.Min(1) <= b.Max(1) && b.Min(1) <= a.Max(1)
}

func geomEqual(a, b geom.T) bool {
	af, bf := a.FlatCoords(), b.FlatCoords()
	if len(af) != len(bf) {
		return false
	}
	for i := range af {
		if af[i] != bf[i] {
			return false
		}
	}
	return true
}

func contains(left, right geom.T) bool {
	lmp, ok := left.(*geom.MultiPolygon)
	if !ok {
		return false
	}
	switch r := right.(type) {
	case *geom.Point:
		return multiPolygonContainsPoint(lmp, r.X(), r.Y())
	case *geom.MultiPolygon:
		// Containment of a polygon: every vertex inside, no edge crossing.
		if !allVerticesInside(lmp, r) {
			return false
		}
		return !edgesCross(lmp, r)
	}
	return false
}

func intersects(left, right geom.T) bool {
	lmp, ok := left.(*geom.MultiPolygon)
	if !ok {
		return false
	}
	switch r := right.(type) {
	case *geom.Point:
		return multiPolygonContainsPoint(lmp, r.X(), r.Y())
	case *geom.MultiPolygon:
		if anyVertexInside(lmp, r) || anyVertexInside(r, lmp) {
			return true
		}
		return edgesCross(lmp, r)
	}
	return false
}

// multiPolygonContainsPoint applies the even-odd rule across all rings, so
// holes are excluded naturally.
func multiPolygonContainsPoint(mp *geom.MultiPolygon, x, y float64) bool {
	for _, poly := range mp.Coords() {
		inside := false
		for _, ring := range poly {
			if pointInRing(x, y, ring) {
				inside = !inside
			}
		}
		if inside {
			return true
		}
	}
	return false
}

// pointInRing is the ray-casting test.
func pointInRing(x, y float64, ring []geom.Coord) bool {
	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		xi, yi := ring[i][0], ring[i][1]
		xj, yj := ring[j][0], ring[j][1]
		if (yi > y) != (yj > y) && x < (xj-xi)*(y-yi)/(yj-yi)+xi {
			inside = !inside
		}
		j = i
	}
	return inside
}

func allVerticesInside(container, inner *geom.MultiPolygon) bool {
	flat := inner.FlatCoords()
	for i := 0; i+1 < len(flat); i += 2 {
		if !multiPolygonContainsPoint(container, flat[i], flat[i+1]) {
			return false
		}
	}
	return len(flat) > 0
}

func anyVertexInside(container, other *geom.MultiPolygon) bool {
	flat := other.FlatCoords()
	for i := 0; i+1 < len(flat); i += 2 {
		if multiPolygonContainsPoint(container, flat[i], flat[i+1]) {
			return true
		}
	}
	return false
}

// edgesCross scans ring segments of both multipolygons for a proper
// crossing.
func edgesCross(a, b *geom.MultiPolygon) bool {
	for _, apoly := range a.Coords() {
		for _, aring := range apoly {
			for _, bpoly := range b.Coords() {
				for _, bring := range bpoly {
					if ringsCross(aring, bring) {
						return true
					}
				}
			}
		}
	}
	return false
}

func ringsCross(a, b []geom.Coord) bool {
	for i := 0; i+1 < len(a); i++ {
		for j := 0; j+1 < len(b); j++ {
			if properSegmentCross(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}

func properSegmentCross(p1, p2, q1, q2 geom.Coord) bool {
	d1 := cross2(q1, q2, p1)
	d2 := cross2(q1, q2, p2)
	d3 := cross2(p1, p2, q1)
	d4 := cross2(p1, p2, q2)
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func cross2(a, b, c geom.Coord) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}
