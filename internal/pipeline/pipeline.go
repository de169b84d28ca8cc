// Package pipeline wires the analysis stages into one strictly sequential
// batch run: load, filter, CRS harmonization, geometry cleaning, spatial
// joins, aggregation. Each stage consumes the previous stage's output and
// nothing runs concurrently. Load and CRS failures abort the run; empty
// intermediate results propagate with a warning so the report stays
// renderable.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urban-eco-lab/holcstat/internal/clean"
	"github.com/urban-eco-lab/holcstat/internal/crs"
	"github.com/urban-eco-lab/holcstat/internal/join"
	"github.com/urban-eco-lab/holcstat/internal/loader"
	"github.com/urban-eco-lab/holcstat/internal/model"
	"github.com/urban-eco-lab/holcstat/internal/stats"
)

// Params are the named inputs of a pipeline run. Filter values and the
// exclusion list are parameters, not embedded literals, so the pipeline is
// reusable against synthetic data.
type Params struct {
	IndicatorsPath   string
	GradesPath       string
	ObservationsPath string

	StateCode     string
	CountyName    string
	ExcludeGEOIDs []string

	TargetEPSG int
	Indicators []string

	// ObservationJoin selects inner or outer semantics for the
	// observation join. The default, Inner, matches the original
	// analysis toolchain: a grade area with zero observations is absent
	// from the aggregate entirely.
	ObservationJoin join.Kind
}

// Result carries every stage's output for the reporter and for tests.
type Result struct {
	RunID      uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time

	CountySubset *model.IndicatorCollection
	Grades       *model.GradeCollection
	GradeAreas   []model.GradeAreaRecord
	Joined       []model.JoinedRecord
	Aggregates   []model.AggregateRow
	Indicators   []string
}

// Run executes the full pipeline.
func Run(ctx context.Context, p Params) (*Result, error) {
	log := zap.L().With(zap.String("component", "pipeline"))
	res := &Result{
		RunID:      uuid.New(),
		StartedAt:  time.Now().UTC(),
		Indicators: p.Indicators,
	}
	log.Info("pipeline starting", zap.String("run_id", res.RunID.String()))

	// Stage 1: load.
	indicators, err := loader.LoadIndicators(p.IndicatorsPath)
	if err != nil {
		return nil, err
	}
	grades, err := loader.LoadGrades(p.GradesPath)
	if err != nil {
		return nil, err
	}
	observations, err := loader.LoadObservations(p.ObservationsPath)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: canceled after load")
	}

	// Stage 2: subset to the study area.
	subset := FilterCounty(FilterState(indicators, p.StateCode), p.CountyName)

	// Stage 3: CRS harmonization. Every pairwise check emits its
	// diagnostic whether or not the systems match.
	crs.Match("grades vs indicators", grades.EPSG, subset.EPSG)
	crs.Match("observations vs indicators", observations.EPSG, subset.EPSG)
	subset, err = crs.NormalizeIndicators(subset, p.TargetEPSG)
	if err != nil {
		return nil, err
	}
	grades, err = crs.NormalizeGrades(grades, p.TargetEPSG)
	if err != nil {
		return nil, err
	}
	observations, err = crs.NormalizeObservations(observations, p.TargetEPSG)
	if err != nil {
		return nil, err
	}

	// Stage 4: clean.
	subset = clean.DropExcluded(subset, p.ExcludeGEOIDs)
	subset, err = clean.RepairIndicators(subset)
	if err != nil {
		return nil, err
	}
	grades, err = clean.RepairGrades(grades)
	if err != nil {
		return nil, err
	}
	res.CountySubset = subset
	res.Grades = grades
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "pipeline: canceled before joins")
	}

	// Stage 5: spatial joins.
	res.GradeAreas = joinGradesToIndicators(grades, subset)
	if len(res.GradeAreas) == 0 {
		log.Warn("grade-indicator join produced zero rows")
	}
	res.Joined = joinObservations(res.GradeAreas, observations, p.ObservationJoin)
	if len(res.Joined) == 0 {
		log.Warn("observation join produced zero rows")
	}

	// Stage 6: aggregate.
	res.Aggregates = stats.Aggregate(stats.FromJoined(res.Joined, p.Indicators), p.Indicators)

	res.FinishedAt = time.Now().UTC()
	log.Info("pipeline finished",
		zap.String("run_id", res.RunID.String()),
		zap.Int("grade_areas", len(res.GradeAreas)),
		zap.Int("joined_rows", len(res.Joined)),
		zap.Int("aggregate_rows", len(res.Aggregates)),
		zap.Duration("elapsed", res.FinishedAt.Sub(res.StartedAt)),
	)
	return res, nil
}

// joinGradesToIndicators intersects grade polygons with the county subset.
// The join is inner: grade areas outside the county drop out here. A grade
// polygon straddling several indicator units yields one row per unit, which
// inflates downstream denominators; that multiplicity is documented
// behavior inherited from the source analysis.
func joinGradesToIndicators(grades *model.GradeCollection, subset *model.IndicatorCollection) []model.GradeAreaRecord {
	pairs := join.Join(grades.Polygons, subset.Records,
		func(g model.GradePolygon) geom.T { return g.Geom },
		func(r model.IndicatorRecord) geom.T { return r.Geom },
		join.Intersects, join.Inner,
	)
	out := make([]model.GradeAreaRecord, len(pairs))
	for i, p := range pairs {
		out[i] = model.GradeAreaRecord{
			AreaID:     p.Left.AreaID,
			Name:       p.Left.Name,
			Grade:      p.Left.Grade,
			GEOID:      p.Right.GEOID,
			Indicators: p.Right.Indicators,
			Geom:       p.Left.Geom,
		}
	}
	return out
}

// joinObservations pairs each grade area with the observation points it
// contains. Under Left semantics an area with no observations still appears
// once, unmatched, so its grade shows up in the aggregate with count zero.
func joinObservations(areas []model.GradeAreaRecord, observations *model.ObservationCollection, kind join.Kind) []model.JoinedRecord {
	pairs := join.Join(areas, observations.Points,
		func(a model.GradeAreaRecord) geom.T { return a.Geom },
		func(o model.ObservationPoint) geom.T { return o.Geom },
		join.Contains, kind,
	)
	out := make([]model.JoinedRecord, len(pairs))
	for i, p := range pairs {
		rec := model.JoinedRecord{GradeAreaRecord: p.Left}
		if p.Right != nil {
			rec.ObservationID = p.Right.ID
			rec.Species = p.Right.Species
			rec.Matched = true
		}
		out[i] = rec
	}
	return out
}
