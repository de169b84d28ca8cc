// Package loader reads the three input datasets from disk into typed
// in-memory collections. Loads are one-shot batch reads: a missing,
// malformed, or empty file is a fatal ErrDataLoad with no retry.
package loader

import (
	"encoding/json"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/urban-eco-lab/holcstat/internal/model"
)

// LoadIndicators reads the environmental-justice indicator polygons from a
// GeoJSON FeatureCollection. String attributes are required; numeric
// indicators may be null (NaN) but must parse when present.
func LoadIndicators(path string) (*model.IndicatorCollection, error) {
	fc, epsg, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}
	out := &model.IndicatorCollection{EPSG: epsg, Records: make([]model.IndicatorRecord, 0, len(fc.Features))}
	for i, f := range fc.Features {
		geoid, err := propString(f.Properties, "GEOID", "ID")
		if err != nil {
			return nil, loadErrf(err, "%s: feature %d", path, i)
		}
		state, err := propString(f.Properties, "ST_ABBREV", "STATE")
		if err != nil {
			return nil, loadErrf(err, "%s: unit %s", path, geoid)
		}
		county, err := propString(f.Properties, "CNTY_NAME", "COUNTY")
		if err != nil {
			return nil, loadErrf(err, "%s: unit %s", path, geoid)
		}
		lowInc, err := propFloat(f.Properties, "LOWINCPCT", "low_income_pct")
		if err != nil {
			return nil, loadErrf(err, "%s: unit %s", path, geoid)
		}
		pm25, err := propFloat(f.Properties, "P_PM25", "pm25_pctl")
		if err != nil {
			return nil, loadErrf(err, "%s: unit %s", path, geoid)
		}
		lifeExp, err := propFloat(f.Properties, "P_LIFEEXPPCT", "life_expectancy_pctl")
		if err != nil {
			return nil, loadErrf(err, "%s: unit %s", path, geoid)
		}
		mp, err := toMultiPolygon(f.Geometry)
		if err != nil {
			return nil, loadErrf(err, "%s: unit %s", path, geoid)
		}
		out.Records = append(out.Records, model.IndicatorRecord{
			GEOID:      geoid,
			StateCode:  state,
			CountyName: county,
			Indicators: model.Indicators{
				LowIncomePct:       lowInc,
				PM25Pctl:           pm25,
				LifeExpectancyPctl: lifeExp,
			},
			Geom: mp,
		})
	}
	if len(out.Records) == 0 {
		return nil, eris.Wrapf(model.ErrDataLoad, "loader: %s contains zero indicator records", path)
	}
	logLoaded("indicators", path, len(out.Records), epsg)
	return out, nil
}

// LoadGrades reads the historical grading polygons from a GeoJSON
// FeatureCollection. A grade outside the enumerated A-D set is a load
// error, not a silently propagated null.
func LoadGrades(path string) (*model.GradeCollection, error) {
	fc, epsg, err := readFeatureCollection(path)
	if err != nil {
		return nil, err
	}
	out := &model.GradeCollection{EPSG: epsg, Polygons: make([]model.GradePolygon, 0, len(fc.Features))}
	for i, f := range fc.Features {
		areaID, err := propString(f.Properties, "holc_id", "id")
		if err != nil {
			return nil, loadErrf(err, "%s: feature %d", path, i)
		}
		rawGrade, err := propString(f.Properties, "holc_grade", "grade")
		if err != nil {
			return nil, loadErrf(err, "%s: area %s", path, areaID)
		}
		grade, err := model.ParseGrade(rawGrade)
		if err != nil {
			return nil, loadErrf(err, "%s: area %s", path, areaID)
		}
		name, _ := propString(f.Properties, "name")
		mp, err := toMultiPolygon(f.Geometry)
		if err != nil {
			return nil, loadErrf(err, "%s: area %s", path, areaID)
		}
		out.Polygons = append(out.Polygons, model.GradePolygon{
			AreaID: areaID,
			Name:   name,
			Grade:  grade,
			Geom:   mp,
		})
	}
	if len(out.Polygons) == 0 {
		return nil, eris.Wrapf(model.ErrDataLoad, "loader: %s contains zero grade polygons", path)
	}
	logLoaded("grades", path, len(out.Polygons), epsg)
	return out, nil
}

// readFeatureCollection loads a GeoJSON file and resolves its declared CRS.
// A missing legacy crs member means the GeoJSON default, WGS 84.
func readFeatureCollection(path string) (*geojson.FeatureCollection, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, eris.Wrapf(model.ErrDataLoad, "loader: read %s: %v", path, err)
	}
	var fc geojson.FeatureCollection
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, 0, eris.Wrapf(model.ErrDataLoad, "loader: parse %s: %v", path, err)
	}
	epsg := 4326
	var crsDoc struct {
		CRS *struct {
			Properties struct {
				Name string `json:"name"`
			} `json:"properties"`
		} `json:"crs"`
	}
	if err := json.Unmarshal(data, &crsDoc); err == nil && crsDoc.CRS != nil {
		if code := parseCRSName(crsDoc.CRS.Properties.Name); code != 0 {
			epsg = code
		}
	}
	return &fc, epsg, nil
}

// parseCRSName resolves legacy GeoJSON crs names like
// "urn:ogc:def:crs:EPSG::4269" or "EPSG:4269". CRS84 is axis-swapped
// WGS 84, which our lon/lat coordinates already satisfy.
func parseCRSName(name string) int {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0
	}
	if strings.Contains(name, "CRS84") {
		return 4326
	}
	idx := strings.LastIndexAny(name, ":")
	if idx < 0 || idx == len(name)-1 {
		return 0
	}
	code, err := strconv.Atoi(name[idx+1:])
	if err != nil {
		return 0
	}
	return code
}

func propString(props map[string]interface{}, keys ...string) (string, error) {
	for _, k := range keys {
		v, ok := props[k]
		if !ok || v == nil {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return "", eris.Errorf("loader: property %q is not a string", k)
		}
		if s = strings.TrimSpace(s); s != "" {
			return s, nil
		}
	}
	return "", eris.Errorf("loader: required property %q missing", keys[0])
}

// propFloat returns NaN for an absent or null value and errors on anything
// that is present but not numeric.
func propFloat(props map[string]interface{}, keys ...string) (float64, error) {
	for _, k := range keys {
		v, ok := props[k]
		if !ok {
			continue
		}
		if v == nil {
			return math.NaN(), nil
		}
		switch n := v.(type) {
		case float64:
			return n, nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
			if err != nil {
				return 0, eris.Errorf("loader: property %q value %q is not numeric", k, n)
			}
			return f, nil
		default:
			return 0, eris.Errorf("loader: property %q has unexpected type %T", k, v)
		}
	}
	return math.NaN(), nil
}

// toMultiPolygon normalizes a decoded geometry to an XY multipolygon,
// wrapping bare polygons and discarding any extra vertex dimensions.
func toMultiPolygon(g geom.T) (*geom.MultiPolygon, error) {
	var polys [][][]geom.Coord
	switch t := g.(type) {
	case *geom.MultiPolygon:
		for _, poly := range t.Coords() {
			polys = append(polys, xyRings(poly))
		}
	case *geom.Polygon:
		polys = append(polys, xyRings(t.Coords()))
	case nil:
		return nil, eris.New("loader: feature has no geometry")
	default:
		return nil, eris.Errorf("loader: unexpected geometry type %T, want polygonal", g)
	}
	mp := geom.NewMultiPolygon(geom.XY)
	if _, err := mp.SetCoords(polys); err != nil {
		return nil, eris.Wrap(err, "loader: build multipolygon")
	}
	return mp, nil
}

func xyRings(poly [][]geom.Coord) [][]geom.Coord {
	out := make([][]geom.Coord, len(poly))
	for i, ring := range poly {
		r := make([]geom.Coord, len(ring))
		for j, c := range ring {
			r[j] = geom.Coord{c[0], c[1]}
		}
		out[i] = r
	}
	return out
}

func logLoaded(dataset, path string, n, epsg int) {
	zap.L().With(zap.String("component", "loader")).Info("dataset loaded",
		zap.String("dataset", dataset),
		zap.String("path", path),
		zap.Int("records", n),
		zap.Int("epsg", epsg),
	)
}

func loadErrf(cause error, format string, args ...interface{}) error {
	return eris.Wrapf(model.ErrDataLoad, "loader: "+format+": %v",
		append(append([]interface{}{}, args...), cause)...)
}
