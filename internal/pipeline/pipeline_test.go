package pipeline

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urban-eco-lab/holcstat/internal/join"
	"github.com/urban-eco-lab/holcstat/internal/model"
)

func polygonFeature(props string, minX, minY, maxX, maxY float64) string {
	return fmt.Sprintf(`{
		"type": "Feature",
		"properties": {%s},
		"geometry": {"type": "Polygon", "coordinates": [[[%[2]f,%[3]f],[%[4]f,%[3]f],[%[4]f,%[5]f],[%[2]f,%[5]f],[%[2]f,%[3]f]]]}
	}`, props, minX, minY, maxX, maxY)
}

func featureCollection(features ...string) string {
	return `{"type": "FeatureCollection", "features": [` + strings.Join(features, ",") + `]}`
}

func indicatorProps(geoid, state, county string) string {
	return fmt.Sprintf(`"GEOID": %q, "ST_ABBREV": %q, "CNTY_NAME": %q,
		"LOWINCPCT": 0.4, "P_PM25": 80, "P_LIFEEXPPCT": null`, geoid, state, county)
}

func gradeProps(id, grade string) string {
	return fmt.Sprintf(`"holc_id": %q, "holc_grade": %q`, id, grade)
}

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeStudyArea lays out four unit-square grade areas A through D along the
// x axis inside one enclosing county unit, plus decoys that every filter
// stage must remove, and 25 observation points strictly inside each square.
func writeStudyArea(t *testing.T) Params {
	t.Helper()
	dir := t.TempDir()

	indicators := featureCollection(
		polygonFeature(indicatorProps("37063000100", "NC", "Durham County"), -1, -1, 5, 2),
		polygonFeature(indicatorProps("37063999999", "NC", "Durham County"), -1, -1, 5, 2),
		polygonFeature(indicatorProps("37183000100", "NC", "Wake County"), -1, -1, 5, 2),
		polygonFeature(indicatorProps("51059000100", "VA", "Durham County"), -1, -1, 5, 2),
	)

	grades := featureCollection(
		polygonFeature(gradeProps("A1", "A"), 0, 0, 1, 1),
		polygonFeature(gradeProps("B2", "B"), 1, 0, 2, 1),
		polygonFeature(gradeProps("C3", "C"), 2, 0, 3, 1),
		polygonFeature(gradeProps("D4", "D"), 3, 0, 4, 1),
		polygonFeature(gradeProps("D9", "D"), 10, 10, 11, 11),
	)

	var csv strings.Builder
	csv.WriteString("gbifID,species,decimalLatitude,decimalLongitude,eventDate\n")
	id := 0
	for sq := 0; sq < 4; sq++ {
		for i := 0; i < 25; i++ {
			id++
			lon := float64(sq) + 0.1 + float64(i%5)*0.18
			lat := 0.1 + float64(i/5)*0.18
			fmt.Fprintf(&csv, "%d,Cardinalis cardinalis,%f,%f,2021-04-12\n", id, lat, lon)
		}
	}

	return Params{
		IndicatorsPath:   writeFixture(t, dir, "indicators.geojson", indicators),
		GradesPath:       writeFixture(t, dir, "grades.geojson", grades),
		ObservationsPath: writeFixture(t, dir, "observations.csv", csv.String()),
		StateCode:        "NC",
		CountyName:       "Durham County",
		ExcludeGEOIDs:    []string{"37063999999"},
		TargetEPSG:       4326,
		Indicators:       model.AllIndicators,
		ObservationJoin:  join.Inner,
	}
}

func TestRunEndToEnd(t *testing.T) {
	p := writeStudyArea(t)

	res, err := Run(context.Background(), p)
	require.NoError(t, err)

	// Decoy units for the wrong state, wrong county, and the excluded
	// GEOID are all gone.
	require.Len(t, res.CountySubset.Records, 1)
	assert.Equal(t, "37063000100", res.CountySubset.Records[0].GEOID)

	// The off-county grade polygon drops out of the inner join.
	require.Len(t, res.GradeAreas, 4)
	assert.Len(t, res.Joined, 100)

	require.Len(t, res.Aggregates, 4)
	grades := make([]string, 0, 4)
	for _, row := range res.Aggregates {
		grades = append(grades, row.Grade)
		assert.Equal(t, 25, row.Count, "grade %s", row.Grade)
		assert.InDelta(t, 0.25, row.Percentage, 1e-12, "grade %s", row.Grade)
		assert.InDelta(t, 0.4, row.Means[model.IndicatorLowIncomePct], 1e-12)
		assert.InDelta(t, 80.0, row.Means[model.IndicatorPM25Pctl], 1e-12)
		assert.True(t, math.IsNaN(row.Means[model.IndicatorLifeExpectancyPctl]),
			"all-null indicator must aggregate to NaN")
	}
	assert.Equal(t, []string{"A", "B", "C", "D"}, grades)

	assert.NotEqual(t, "00000000-0000-0000-0000-000000000000", res.RunID.String())
	assert.False(t, res.FinishedAt.Before(res.StartedAt))
}

// writeSparseArea has observations only inside grade A, so grade B's fate
// depends on the join kind.
func writeSparseArea(t *testing.T, kind join.Kind) Params {
	t.Helper()
	dir := t.TempDir()

	indicators := featureCollection(
		polygonFeature(indicatorProps("37063000100", "NC", "Durham County"), -1, -1, 5, 2),
	)
	grades := featureCollection(
		polygonFeature(gradeProps("A1", "A"), 0, 0, 1, 1),
		polygonFeature(gradeProps("B2", "B"), 1, 0, 2, 1),
	)
	csv := "gbifID,species,decimalLatitude,decimalLongitude,eventDate\n" +
		"1,Sciurus carolinensis,0.2,0.2,2021-04-12\n" +
		"2,Sciurus carolinensis,0.5,0.5,2021-04-12\n" +
		"3,Sciurus carolinensis,0.8,0.8,2021-04-12\n"

	return Params{
		IndicatorsPath:   writeFixture(t, dir, "indicators.geojson", indicators),
		GradesPath:       writeFixture(t, dir, "grades.geojson", grades),
		ObservationsPath: writeFixture(t, dir, "observations.csv", csv),
		StateCode:        "NC",
		CountyName:       "Durham County",
		TargetEPSG:       4326,
		Indicators:       []string{model.IndicatorLowIncomePct},
		ObservationJoin:  kind,
	}
}

func TestRunInnerJoinDropsEmptyGrade(t *testing.T) {
	res, err := Run(context.Background(), writeSparseArea(t, join.Inner))
	require.NoError(t, err)

	require.Len(t, res.Aggregates, 1)
	assert.Equal(t, "A", res.Aggregates[0].Grade)
	assert.Equal(t, 3, res.Aggregates[0].Count)
	assert.InDelta(t, 1.0, res.Aggregates[0].Percentage, 1e-12)
}

func TestRunOuterJoinKeepsEmptyGradeAtZero(t *testing.T) {
	res, err := Run(context.Background(), writeSparseArea(t, join.Left))
	require.NoError(t, err)

	require.Len(t, res.Aggregates, 2)
	assert.Equal(t, "A", res.Aggregates[0].Grade)
	assert.Equal(t, 3, res.Aggregates[0].Count)
	assert.InDelta(t, 1.0, res.Aggregates[0].Percentage, 1e-12)

	assert.Equal(t, "B", res.Aggregates[1].Grade)
	assert.Equal(t, 0, res.Aggregates[1].Count)
	assert.InDelta(t, 0.0, res.Aggregates[1].Percentage, 1e-12)
}

func TestRunMissingInputFails(t *testing.T) {
	p := writeStudyArea(t)
	p.GradesPath = filepath.Join(t.TempDir(), "absent.geojson")

	_, err := Run(context.Background(), p)
	require.Error(t, err)
}

func TestRunUndeclaredTargetCRSFails(t *testing.T) {
	p := writeStudyArea(t)
	p.TargetEPSG = 0

	_, err := Run(context.Background(), p)
	require.Error(t, err)
}

func TestRunCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, writeStudyArea(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canceled")
}

func TestRunReprojectedTarget(t *testing.T) {
	// The same study area aggregated in Web Mercator must produce the same
	// counts: harmonization moves every layer together.
	p := writeStudyArea(t)
	p.TargetEPSG = 3857

	res, err := Run(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, res.Aggregates, 4)
	for _, row := range res.Aggregates {
		assert.Equal(t, 25, row.Count, "grade %s", row.Grade)
	}
}
