package crs

import (
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/urban-eco-lab/holcstat/internal/model"
)

// NormalizeIndicators reprojects an indicator collection into the target
// system. A collection already in the target system is returned as-is after
// validation.
func NormalizeIndicators(c *model.IndicatorCollection, target int) (*model.IndicatorCollection, error) {
	if _, err := Describe(c.EPSG); err != nil {
		return nil, eris.Wrap(err, "crs: indicator collection")
	}
	if c.EPSG == target {
		return c, nil
	}
	out := &model.IndicatorCollection{EPSG: target, Records: make([]model.IndicatorRecord, len(c.Records))}
	for i, r := range c.Records {
		g, err := ReprojectMultiPolygon(r.Geom, c.EPSG, target)
		if err != nil {
			return nil, eris.Wrapf(err, "crs: reproject indicator unit %s", r.GEOID)
		}
		r.Geom = g
		out.Records[i] = r
	}
	logReprojection("indicators", c.EPSG, target, len(out.Records))
	return out, nil
}

// NormalizeGrades reprojects a grade collection into the target system.
func NormalizeGrades(c *model.GradeCollection, target int) (*model.GradeCollection, error) {
	if _, err := Describe(c.EPSG); err != nil {
		return nil, eris.Wrap(err, "crs: grade collection")
	}
	if c.EPSG == target {
		return c, nil
	}
	out := &model.GradeCollection{EPSG: target, Polygons: make([]model.GradePolygon, len(c.Polygons))}
	for i, p := range c.Polygons {
		g, err := ReprojectMultiPolygon(p.Geom, c.EPSG, target)
		if err != nil {
			return nil, eris.Wrapf(err, "crs: reproject grade area %s", p.AreaID)
		}
		p.Geom = g
		out.Polygons[i] = p
	}
	logReprojection("grades", c.EPSG, target, len(out.Polygons))
	return out, nil
}

// NormalizeObservations reprojects an observation collection into the target
// system.
func NormalizeObservations(c *model.ObservationCollection, target int) (*model.ObservationCollection, error) {
	if _, err := Describe(c.EPSG); err != nil {
		return nil, eris.Wrap(err, "crs: observation collection")
	}
	if c.EPSG == target {
		return c, nil
	}
	out := &model.ObservationCollection{EPSG: target, Points: make([]model.ObservationPoint, len(c.Points))}
	for i, p := range c.Points {
		g, err := ReprojectPoint(p.Geom, c.EPSG, target)
		if err != nil {
			return nil, eris.Wrapf(err, "crs: reproject observation %s", p.ID)
		}
		p.Geom = g
		out.Points[i] = p
	}
	logReprojection("observations", c.EPSG, target, len(out.Points))
	return out, nil
}

func logReprojection(dataset string, from, to, n int) {
	zap.L().With(zap.String("component", "crs")).Info("collection reprojected",
		zap.String("dataset", dataset),
		zap.Int("from_epsg", from),
		zap.Int("to_epsg", to),
		zap.Int("records", n),
	)
}
