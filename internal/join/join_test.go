package join

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
)

type area struct {
	id   string
	geom *geom.MultiPolygon
}

type pt struct {
	id   string
	geom *geom.Point
}

func square(minX, minY, maxX, maxY float64) *geom.MultiPolygon {
	return geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{{{
		{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY},
	}}})
}

func point(x, y float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{x, y})
}

func joinAreas(left []area, right []pt, pred Predicate, kind Kind) []Pair[area, pt] {
	return Join(left, right,
		func(a area) geom.T { return a.geom },
		func(p pt) geom.T { return p.geom },
		pred, kind,
	)
}

func TestJoinContainsPoint(t *testing.T) {
	left := []area{
		{id: "A", geom: square(0, 0, 1, 1)},
		{id: "B", geom: square(2, 0, 3, 1)},
	}
	right := []pt{
		{id: "inA", geom: point(0.5, 0.5)},
		{id: "inB", geom: point(2.5, 0.5)},
		{id: "nowhere", geom: point(5, 5)},
	}

	pairs := joinAreas(left, right, Contains, Inner)

	require.Len(t, pairs, 2)
	assert.Equal(t, "A", pairs[0].Left.id)
	assert.Equal(t, "inA", pairs[0].Right.id)
	assert.Equal(t, "B", pairs[1].Left.id)
	assert.Equal(t, "inB", pairs[1].Right.id)
}

func TestJoinInnerDropsUnmatchedLeft(t *testing.T) {
	left := []area{
		{id: "empty", geom: square(10, 10, 11, 11)},
	}
	right := []pt{{id: "far", geom: point(0, 0)}}

	pairs := joinAreas(left, right, Contains, Inner)
	assert.Empty(t, pairs)
}

func TestJoinLeftEmitsUnmatchedOnce(t *testing.T) {
	left := []area{
		{id: "empty", geom: square(10, 10, 11, 11)},
		{id: "full", geom: square(0, 0, 1, 1)},
	}
	right := []pt{{id: "p", geom: point(0.5, 0.5)}}

	pairs := joinAreas(left, right, Contains, Left)

	require.Len(t, pairs, 2)
	assert.Equal(t, "empty", pairs[0].Left.id)
	assert.Nil(t, pairs[0].Right)
	assert.Equal(t, "full", pairs[1].Left.id)
	require.NotNil(t, pairs[1].Right)
	assert.Equal(t, "p", pairs[1].Right.id)
}

func TestJoinMultipleMatchesEmitOneRowEach(t *testing.T) {
	// Two overlapping squares both contain the point: the join must emit
	// two rows, and downstream counts inflate accordingly.
	left := []area{
		{id: "one", geom: square(0, 0, 2, 2)},
		{id: "two", geom: square(1, 1, 3, 3)},
	}
	right := []pt{{id: "shared", geom: point(1.5, 1.5)}}

	pairs := joinAreas(left, right, Contains, Inner)

	require.Len(t, pairs, 2)
	assert.Equal(t, "one", pairs[0].Left.id)
	assert.Equal(t, "two", pairs[1].Left.id)
}

func TestJoinSelfIdempotentOnDisjointCover(t *testing.T) {
	// Joining a disjoint-covering collection to itself under Contains
	// reproduces the collection: each polygon matches exactly itself.
	areas := []area{
		{id: "A", geom: square(0, 0, 1, 1)},
		{id: "B", geom: square(1, 0, 2, 1)},
		{id: "C", geom: square(2, 0, 3, 1)},
	}
	pairs := Join(areas, areas,
		func(a area) geom.T { return a.geom },
		func(a area) geom.T { return a.geom },
		Contains, Inner,
	)

	require.Len(t, pairs, len(areas))
	for i, p := range pairs {
		assert.Equal(t, areas[i].id, p.Left.id)
		require.NotNil(t, p.Right)
		assert.Equal(t, areas[i].id, p.Right.id)
	}
}

func TestMatchesPolygonIntersects(t *testing.T) {
	tests := []struct {
		name  string
		left  *geom.MultiPolygon
		right *geom.MultiPolygon
		want  bool
	}{
		{
			name:  "overlapping",
			left:  square(0, 0, 2, 2),
			right: square(1, 1, 3, 3),
			want:  true,
		},
		{
			name:  "disjoint",
			left:  square(0, 0, 1, 1),
			right: square(5, 5, 6, 6),
			want:  false,
		},
		{
			name:  "containment counts as intersection",
			left:  square(0, 0, 4, 4),
			right: square(1, 1, 2, 2),
			want:  true,
		},
		{
			name:  "identical",
			left:  square(0, 0, 1, 1),
			right: square(0, 0, 1, 1),
			want:  true,
		},
		{
			name:  "crossing without contained vertices",
			left:  square(0, 1, 3, 2),
			right: square(1, 0, 2, 3),
			want:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(Intersects, tt.left, tt.right))
		})
	}
}

func TestMatchesPolygonContains(t *testing.T) {
	outer := square(0, 0, 4, 4)
	inner := square(1, 1, 2, 2)
	overlap := square(3, 3, 5, 5)

	assert.True(t, Matches(Contains, outer, inner))
	assert.False(t, Matches(Contains, inner, outer))
	assert.False(t, Matches(Contains, outer, overlap))
}

func TestContainsRespectsHoles(t *testing.T) {
	withHole := geom.NewMultiPolygon(geom.XY).MustSetCoords([][][]geom.Coord{{
		{{0, 0}, {4, 0}, {4, 4}, {0, 4}, {0, 0}},
		{{1, 1}, {1, 3}, {3, 3}, {3, 1}, {1, 1}},
	}})

	assert.False(t, Matches(Contains, withHole, point(2, 2)))
	assert.True(t, Matches(Contains, withHole, point(0.5, 0.5)))
}

func TestMatchesPoint(t *testing.T) {
	sq := square(0, 0, 1, 1)
	assert.True(t, Matches(Intersects, sq, point(0.5, 0.5)))
	assert.False(t, Matches(Intersects, sq, point(2, 2)))
}
