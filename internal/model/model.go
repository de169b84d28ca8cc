package model

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Grade is a HOLC neighborhood grade, one of A through D.
type Grade string

// The fixed HOLC grade set, in report order.
const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// GradeOrder is the fixed category order used by tables, charts, and the map.
var GradeOrder = []Grade{GradeA, GradeB, GradeC, GradeD}

// ParseGrade validates a raw grade value against the enumerated set.
func ParseGrade(s string) (Grade, error) {
	g := Grade(strings.ToUpper(strings.TrimSpace(s)))
	switch g {
	case GradeA, GradeB, GradeC, GradeD:
		return g, nil
	}
	return "", eris.Errorf("model: grade %q outside enumerated set A-D", s)
}

// Canonical indicator names. These key the Indicators accessor, the
// aggregate means, and the report column labels.
const (
	IndicatorLowIncomePct       = "low_income_pct"
	IndicatorPM25Pctl           = "pm25_pctl"
	IndicatorLifeExpectancyPctl = "life_expectancy_pctl"
)

// AllIndicators lists every indicator the loader populates.
var AllIndicators = []string{
	IndicatorLowIncomePct,
	IndicatorPM25Pctl,
	IndicatorLifeExpectancyPctl,
}

// Indicators holds the numeric environmental-justice measures attached to a
// geographic unit. NaN means the source value was missing.
type Indicators struct {
	LowIncomePct       float64
	PM25Pctl           float64
	LifeExpectancyPctl float64
}

// Value returns the named indicator. The second return is false for names
// outside the canonical set.
func (in Indicators) Value(name string) (float64, bool) {
	switch name {
	case IndicatorLowIncomePct:
		return in.LowIncomePct, true
	case IndicatorPM25Pctl:
		return in.PM25Pctl, true
	case IndicatorLifeExpectancyPctl:
		return in.LifeExpectancyPctl, true
	}
	return 0, false
}

// IndicatorRecord is one small geographic unit (a census block group) from
// the environmental-justice screening dataset.
type IndicatorRecord struct {
	GEOID      string
	StateCode  string
	CountyName string
	Indicators Indicators
	Geom       *geom.MultiPolygon
}

// IndicatorCollection is the loaded indicator dataset with its declared CRS.
type IndicatorCollection struct {
	EPSG    int
	Records []IndicatorRecord
}

// GradePolygon is one historically graded neighborhood district.
type GradePolygon struct {
	AreaID string
	Name   string
	Grade  Grade
	Geom   *geom.MultiPolygon
}

// GradeCollection is the loaded grading dataset with its declared CRS.
type GradeCollection struct {
	EPSG     int
	Polygons []GradePolygon
}

// ObservationPoint is one biodiversity sighting. Species and ObservedAt are
// carried for provenance but unused by the aggregation.
type ObservationPoint struct {
	ID         string
	Species    string
	ObservedAt time.Time
	Geom       *geom.Point
}

// ObservationCollection is the loaded observation dataset with its declared CRS.
type ObservationCollection struct {
	EPSG   int
	Points []ObservationPoint
}

// GradeAreaRecord is the output of the first spatial join: a grade polygon
// paired with the indicator unit it intersects. AreaID and GEOID record
// which geometries matched.
type GradeAreaRecord struct {
	AreaID     string
	Name       string
	Grade      Grade
	GEOID      string
	Indicators Indicators
	Geom       *geom.MultiPolygon
}

// JoinedRecord is the output of the second spatial join: a grade/indicator
// pair together with one contained observation. Matched is false only under
// outer-join semantics, when the grade area contained no observation at all;
// such rows establish their group in the aggregate with a zero count.
type JoinedRecord struct {
	GradeAreaRecord
	ObservationID string
	Species       string
	Matched       bool
}

// AggregateRow is one group in the final grade-level aggregate. Percentage
// and the entries of Means are NaN when undefined (zero total, or no
// non-missing values in the group).
type AggregateRow struct {
	Grade      string
	Count      int
	Percentage float64
	Means      map[string]float64
}
