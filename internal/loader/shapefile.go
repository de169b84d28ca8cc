package loader

import (
	"os"
	"strings"
	"time"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urban-eco-lab/holcstat/internal/model"
)

// observation date formats seen in the wild: ISO date and full timestamps.
var obsDateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"}

// LoadObservationsSHP reads biodiversity observation points from a
// shapefile. The CRS comes from the sibling .prj file; a shapefile without
// one declares no reference system (EPSG 0), which the CRS normalizer
// rejects downstream.
func LoadObservationsSHP(path string) (*model.ObservationCollection, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(model.ErrDataLoad, "loader: open shapefile %s: %v", path, err)
	}
	defer func() { _ = reader.Close() }()

	idIdx := fieldIndex(reader, "id", "gbifid", "objectid")
	speciesIdx := fieldIndex(reader, "species", "sci_name")
	dateIdx := fieldIndex(reader, "eventdate", "date", "obsdate")

	out := &model.ObservationCollection{EPSG: readPRJ(path)}
	var skipped, row int
	for reader.Next() {
		row++
		_, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok {
			skipped++
			continue
		}
		obs := model.ObservationPoint{
			Geom: geom.NewPointFlat(geom.XY, []float64{pt.X, pt.Y}),
		}
		if idIdx >= 0 {
			obs.ID = attr(reader, idIdx)
		}
		if speciesIdx >= 0 {
			obs.Species = attr(reader, speciesIdx)
		}
		if dateIdx >= 0 {
			obs.ObservedAt = parseObsDate(attr(reader, dateIdx))
		}
		out.Points = append(out.Points, obs)
	}
	if skipped > 0 {
		zap.L().With(zap.String("component", "loader")).Debug("skipped non-point shapes",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	if len(out.Points) == 0 {
		return nil, eris.Wrapf(model.ErrDataLoad, "loader: %s contains zero observation points", path)
	}
	logLoaded("observations", path, len(out.Points), out.EPSG)
	return out, nil
}

// fieldIndex finds the first matching DBF field, case-insensitively and
// ignoring trailing NULs, the way the census shapefile tooling does.
func fieldIndex(reader *shp.Reader, names ...string) int {
	for i, f := range reader.Fields() {
		got := strings.ToLower(strings.TrimRight(f.String(), "\x00"))
		for _, want := range names {
			if got == want {
				return i
			}
		}
	}
	return -1
}

func attr(reader *shp.Reader, idx int) string {
	return strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
}

func parseObsDate(s string) time.Time {
	for _, layout := range obsDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// readPRJ maps the sidecar projection file onto an EPSG code. Only the
// systems the registry supports are recognized; anything else is an
// undeclared CRS.
func readPRJ(shpPath string) int {
	prjPath := strings.TrimSuffix(shpPath, ".shp") + ".prj"
	data, err := os.ReadFile(prjPath)
	if err != nil {
		return 0
	}
	wkt := string(data)
	switch {
	case strings.Contains(wkt, "4269"), strings.Contains(wkt, "North_American_1983"), strings.Contains(wkt, "NAD83"):
		return 4269
	case strings.Contains(wkt, "3857"), strings.Contains(wkt, "Pseudo-Mercator"), strings.Contains(wkt, "Mercator_Auxiliary_Sphere"):
		return 3857
	case strings.Contains(wkt, "4326"), strings.Contains(wkt, "WGS_1984"), strings.Contains(wkt, "WGS 84"):
		return 4326
	}
	return 0
}
