package loader

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/urban-eco-lab/holcstat/internal/model"
)

// obsRow maps a GBIF-style Darwin Core export row. Coordinates are pointers
// because occurrence exports routinely carry rows without them.
type obsRow struct {
	GBIFID    string   `csv:"gbifID"`
	Species   string   `csv:"species"`
	Latitude  *float64 `csv:"decimalLatitude"`
	Longitude *float64 `csv:"decimalLongitude"`
	EventDate string   `csv:"eventDate"`
}

// LoadObservations dispatches on file extension: .csv for Darwin Core
// exports, anything else is treated as a shapefile.
func LoadObservations(path string) (*model.ObservationCollection, error) {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return LoadObservationsCSV(path)
	}
	return LoadObservationsSHP(path)
}

// LoadObservationsCSV reads observation points from a GBIF occurrence CSV.
// Darwin Core coordinates are always WGS 84, so the collection declares
// EPSG:4326. Rows without coordinates are skipped and counted.
func LoadObservationsCSV(path string) (*model.ObservationCollection, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(model.ErrDataLoad, "loader: open %s: %v", path, err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	dec, err := csvutil.NewDecoder(r)
	if err != nil {
		return nil, eris.Wrapf(model.ErrDataLoad, "loader: read %s header: %v", path, err)
	}

	out := &model.ObservationCollection{EPSG: 4326}
	var skipped int
	for {
		var row obsRow
		if err := dec.Decode(&row); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(model.ErrDataLoad, "loader: parse %s: %v", path, err)
		}
		if row.Latitude == nil || row.Longitude == nil {
			skipped++
			continue
		}
		out.Points = append(out.Points, model.ObservationPoint{
			ID:         row.GBIFID,
			Species:    row.Species,
			ObservedAt: parseObsDate(row.EventDate),
			Geom:       geom.NewPointFlat(geom.XY, []float64{*row.Longitude, *row.Latitude}),
		})
	}
	if skipped > 0 {
		zap.L().With(zap.String("component", "loader")).Debug("skipped rows without coordinates",
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
