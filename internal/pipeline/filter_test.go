package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urban-eco-lab/holcstat/internal/model"
)

func indicatorFixture() *model.IndicatorCollection {
	return &model.IndicatorCollection{EPSG: 4326, Records: []model.IndicatorRecord{
		{GEOID: "1", StateCode: "NC", CountyName: "Durham County"},
		{GEOID: "2", StateCode: "NC", CountyName: "Wake County"},
		{GEOID: "3", StateCode: "VA", CountyName: "Durham County"},
		{GEOID: "4", StateCode: "nc", CountyName: "durham county"},
	}}
}

func TestFilterState(t *testing.T) {
	c := indicatorFixture()
	out := FilterState(c, "NC")

	require.Len(t, out.Records, 3)
	for _, r := range out.Records {
		assert.NotEqual(t, "3", r.GEOID)
	}
	assert.Equal(t, c.EPSG, out.EPSG)
	// Input untouched.
	assert.Len(t, c.Records, 4)
}

func TestFilterStateCaseInsensitive(t *testing.T) {
	out := FilterState(indicatorFixture(), "nc")
	assert.Len(t, out.Records, 3)
}

func TestFilterCounty(t *testing.T) {
	out := FilterCounty(indicatorFixture(), "Durham County")
	require.Len(t, out.Records, 3)
	for _, r := range out.Records {
		assert.NotEqual(t, "2", r.GEOID)
	}
}

func TestFilterChainNarrowsToStudyArea(t *testing.T) {
	out := FilterCounty(FilterState(indicatorFixture(), "NC"), "Durham County")
	require.Len(t, out.Records, 2)
	assert.Equal(t, "1", out.Records[0].GEOID)
	assert.Equal(t, "4", out.Records[1].GEOID)
}

func TestFilterNoMatchesIsEmptyNotNil(t *testing.T) {
	out := FilterState(indicatorFixture(), "TX")
	assert.NotNil(t, out)
	assert.Empty(t, out.Records)
}
