// Package crs harmonizes coordinate reference systems across the input
// collections before any spatial operation runs.
//
// Only the systems the source datasets actually declare are registered:
// EPSG:4326 (WGS 84), EPSG:4269 (NAD 83), and EPSG:3857 (Web Mercator).
// Transforms are closed-form and deterministic. NAD 83 and WGS 84 differ by
// centimeters, far below the precision of the input geometries, so the
// geographic-to-geographic transform is the identity.
package crs

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urban-eco-lab/holcstat/internal/model"
)

// semiMajorM is the WGS 84 / NAD 83 semi-major axis in meters, also used as
// the sphere radius for the spherical Web Mercator formulas.
const semiMajorM = 6378137.0

// System describes a supported reference system.
type System struct {
	EPSG       int
	Name       string
	Geographic bool
}

var registry = map[int]System{
	4326: {EPSG: 4326, Name: "WGS 84", Geographic: true},
	4269: {EPSG: 4269, Name: "NAD 83", Geographic: true},
	3857: {EPSG: 3857, Name: "WGS 84 / Pseudo-Mercator", Geographic: false},
}

// Describe resolves an EPSG code against the registry. Code 0 means the
// collection declared no reference system; both that and unknown codes are
// CRS errors, which are fatal to the pipeline.
func Describe(epsg int) (System, error) {
	if epsg == 0 {
		return System{}, eris.Wrap(model.ErrCRS, "crs: collection declares no reference system")
	}
	s, ok := registry[epsg]
	if !ok {
		return System{}, eris.Wrapf(model.ErrCRS, "crs: unsupported reference system EPSG:%d", epsg)
	}
	return s, nil
}

// Match reports whether two collections share a reference system and emits
// the diagnostic message required at every check point, matched or not.
func Match(label string, a, b int) bool {
	log := zap.L().With(zap.String("component", "crs"))
	if a == b {
		log.Info("reference systems match",
			zap.String("check", label),
			zap.Int("epsg", a),
		)
		return true
	}
	log.Warn("reference system mismatch, reprojection required",
		zap.String("check", label),
		zap.Int("left_epsg", a),
		zap.Int("right_epsg", b),
	)
	return false
}

// transformFunc maps a coordinate pair between two systems.
type transformFunc func(x, y float64) (float64, float64)

func identity(x, y float64) (float64, float64) { return x, y }

// Spherical Web Mercator, the same closed-form approach used for the
// Lambert state-plane conversion in the Fort Worth parcel tooling.
func lonLatToMercator(lon, lat float64) (float64, float64) {
	x := semiMajorM * lon * math.Pi / 180
	y := semiMajorM * math.Log(math.Tan(math.Pi/4+lat*math.Pi/360))
	return x, y
}

func mercatorToLonLat(x, y float64) (float64, float64) {
	lon := x / semiMajorM * 180 / math.Pi
	lat := (2*math.Atan(math.Exp(y/semiMajorM)) - math.Pi/2) * 180 / math.Pi
	return lon, lat
}

// transformer builds the coordinate mapping between two registered systems.
func transformer(from, to int) (transformFunc, error) {
	fromSys, err := Describe(from)
	if err != nil {
		return nil, err
	}
	toSys, err := Describe(to)
	if err != nil {
		return nil, err
	}
	switch {
	case from == to:
		return identity, nil
	case fromSys.Geographic && toSys.Geographic:
		// NAD 83 <-> WGS 84: identity at dataset tolerance.
		return identity, nil
	case fromSys.Geographic && toSys.EPSG == 3857:
		return lonLatToMercator, nil
	case fromSys.EPSG == 3857 && toSys.Geographic:
		return mercatorToLonLat, nil
	}
	return nil, eris.Wrapf(model.ErrCRS, "crs: no transform from EPSG:%d to EPSG:%d", from, to)
}

// reprojectFlat applies a transform to interleaved XY coordinates.
func reprojectFlat(flat []float64, fn transformFunc) []float64 {
	out := make([]float64, len(flat))
	for i := 0; i+1 < len(flat); i += 2 {
		out[i], out[i+1] = fn(flat[i], flat[i+1])
	}
	return out
}

// ReprojectMultiPolygon returns a new multipolygon expressed in the target
// system. The input is not mutated and ring structure is preserved exactly,
// so valid input stays valid up to floating-point tolerance.
func ReprojectMultiPolygon(mp *geom.MultiPolygon, from, to int) (*geom.MultiPolygon, error) {
	fn, err := transformer(from, to)
	if err != nil {
		return nil, err
	}
	endss := make([][]int, len(mp.Endss()))
	for i, ends := range mp.Endss() {
		endss[i] = append([]int(nil), ends...)
	}
	out := geom.NewMultiPolygonFlat(geom.XY, reprojectFlat(mp.FlatCoords(), fn), endss)
	out.SetSRID(to)
	return out, nil
}

// ReprojectPoint returns a new point expressed in the target system.
func ReprojectPoint(p *geom.Point, from, to int) (*geom.Point, error) {
	fn, err := transformer(from, to)
	if err != nil {
		return nil, err
	}
	x, y := fn(p.X(), p.Y())
	out := geom.NewPointFlat(geom.XY, []float64{x, y})
	out.SetSRID(to)
	return out, nil
}
