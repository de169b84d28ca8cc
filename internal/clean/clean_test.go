package clean

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/urban-eco-lab/holcstat/internal/model"
)

func mp(polys [][][]geom.Coord) *geom.MultiPolygon {
	return geom.NewMultiPolygon(geom.XY).MustSetCoords(polys)
}

func validSquare() *geom.MultiPolygon {
	return mp([][][]geom.Coord{{{
		{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0},
	}}})
}

func TestDropExcluded(t *testing.T) {
	c := &model.IndicatorCollection{EPSG: 4326, Records: []model.IndicatorRecord{
		{GEOID: "keep-1", Geom: validSquare()},
		{GEOID: "drop-1", Geom: validSquare()},
		{GEOID: "keep-2", Geom: validSquare()},
		{GEOID: "drop-2", Geom: validSquare()},
	}}
	exclude := []string{"drop-1", "drop-2", "not-present"}

	out := DropExcluded(c, exclude)

	require.Len(t, out.Records, 2)
	for _, r := range out.Records {
		assert.NotContains(t, exclude, r.GEOID)
	}
	// Input untouched.
	assert.Len(t, c.Records, 4)
}

func TestDropExcludedEmptySet(t *testing.T) {
	c := &model.IndicatorCollection{EPSG: 4326, Records: []model.IndicatorRecord{
		{GEOID: "a", Geom: validSquare()},
	}}
	out := DropExcluded(c, nil)
	assert.Len(t, out.Records, 1)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		geom    *geom.MultiPolygon
		wantErr string
	}{
		{
			name: "valid square",
			geom: validSquare(),
		},
		{
			name: "open ring",
			geom: mp([][][]geom.Coord{{{
				{0, 0}, {1, 0}, {1, 1}, {0, 1},
			}}}),
			wantErr: "not closed",
		},
		{
			name: "too few vertices",
			geom: mp([][][]geom.Coord{{{
				{0, 0}, {1, 0}, {0, 0},
			}}}),
			wantErr: "vertices",
		},
		{
			name: "zero area spike",
			geom: mp([][][]geom.Coord{{{
				{0, 0}, {1, 0}, {2, 0}, {1, 0}, {0, 0},
			}}}),
			wantErr: "zero area",
		},
		{
			name: "bowtie self-intersection",
			geom: mp([][][]geom.Coord{{{
				{0, 0}, {2, 2}, {2, 0}, {0, 1}, {0, 0},
			}}}),
			wantErr: "self-intersects",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.geom)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRepairIsNoOpOnValidGeometry(t *testing.T) {
	g := validSquare()
	out, err := Repair(g)
	require.NoError(t, err)
	assert.Same(t, g, out)
}

func TestRepairIdempotent(t *testing.T) {
	invalid := mp([][][]geom.Coord{{{
		{0, 0}, {2, 2}, {2, 0}, {0, 1}, {0, 0},
	}}})

	once, err := Repair(invalid)
	require.NoError(t, err)
	require.NoError(t, Validate(once))

	twice, err := Repair(once)
	require.NoError(t, err)
	assert.Same(t, once, twice)
}

func TestRepairClosesOpenRing(t *testing.T) {
	open := mp([][][]geom.Coord{{{
		{0, 0}, {1, 0}, {1, 1}, {0, 1},
	}}})
	out, err := Repair(open)
	require.NoError(t, err)
	require.NoError(t, Validate(out))
	ring := out.Coords()[0][0]
	assert.Equal(t, ring[0], ring[len(ring)-1])
}

func TestRepairDropsDuplicateVertices(t *testing.T) {
	dup := mp([][][]geom.Coord{{{
		{0, 0}, {1, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0},
	}}})
	out, err := Repair(dup)
	require.NoError(t, err)
	require.NoError(t, Validate(out))
	assert.Len(t, out.Coords()[0][0], 5)
}

func TestRepairBowtieUsesConvexHull(t *testing.T) {
	bowtie := mp([][][]geom.Coord{{{
		{0, 0}, {2, 2}, {2, 0}, {0, 1}, {0, 0},
	}}})
	out, err := Repair(bowtie)
	require.NoError(t, err)
	require.NoError(t, Validate(out))
	// The hull of these vertices is a convex quadrilateral of area 3.
	ring := out.Coords()[0][0]
	assert.InDelta(t, 3.0, signedArea(ring), 1e-9)
}

func TestRepairGrades(t *testing.T) {
	c := &model.GradeCollection{EPSG: 4326, Polygons: []model.GradePolygon{
		{AreaID: "A1", Grade: model.GradeA, Geom: validSquare()},
		{AreaID: "B2", Grade: model.GradeB, Geom: mp([][][]geom.Coord{{{
			{2, 0}, {4, 2}, {4, 0}, {2, 1}, {2, 0},
		}}})},
	}}
	out, err := RepairGrades(c)
	require.NoError(t, err)
	require.Len(t, out.Polygons, 2)
	for _, p := range out.Polygons {
		assert.NoError(t, Validate(p.Geom), "area %s", p.AreaID)
	}
	// Valid geometry passes through untouched.
	assert.Same(t, c.Polygons[0].Geom, out.Polygons[0].Geom)
}
