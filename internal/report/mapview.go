package report

import (
	"encoding/json"
	"html/template"
	"os"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/urban-eco-lab/holcstat/internal/crs"
	"github.com/urban-eco-lab/holcstat/internal/model"
	"github.com/urban-eco-lab/holcstat/internal/pipeline"
)

// gradeColors is the fixed thematic color mapping.
var gradeColors = map[model.Grade]string{
	model.GradeA: "#90ee90", // light green
	model.GradeB: "#add8e6", // light blue
	model.GradeC: "#ffff00", // yellow
	model.GradeD: "#ff0000", // red
}

// mapTemplate is a self-contained Leaflet page: the grade polygons styled by
// the fixed color mapping over the county-subset boundary, pan/zoom only.
var mapTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>HOLC grades and county boundary</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var grades = {{.Grades}};
var county = {{.County}};
var colors = {{.Colors}};

var map = L.map('map');
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
	attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);

var countyLayer = L.geoJSON(county, {
	style: { color: '#444444', weight: 1, fill: false }
}).addTo(map);

var gradeLayer = L.geoJSON(grades, {
	style: function (f) {
		return { color: colors[f.properties.grade], weight: 1, fillOpacity: 0.5 };
	}
}).addTo(map);

map.fitBounds(countyLayer.getBounds().extend(gradeLayer.getBounds()));
</script>
</body>
</html>
`))

// WriteMap renders the thematic map. Geometries are emitted in WGS 84
// regardless of the pipeline's working system, since that is what Leaflet
// expects.
func WriteMap(path string, res *pipeline.Result) error {
	gradesFC := geojson.FeatureCollection{}
	for _, p := range res.Grades.Polygons {
		g, err := crs.ReprojectMultiPolygon(p.Geom, res.Grades.EPSG, 4326)
		if err != nil {
			return eris.Wrapf(err, "report: map grade area %s", p.AreaID)
		}
		gradesFC.Features = append(gradesFC.Features, &geojson.Feature{
			ID:       p.AreaID,
			Geometry: g,
			Properties: map[string]interface{}{
				"grade": string(p.Grade),
				"name":  p.Name,
			},
		})
	}

	countyFC := geojson.FeatureCollection{}
	for _, r := range res.CountySubset.Records {
		g, err := crs.ReprojectMultiPolygon(r.Geom, res.CountySubset.EPSG, 4326)
		if err != nil {
			return eris.Wrapf(err, "report: map indicator unit %s", r.GEOID)
		}
		countyFC.Features = append(countyFC.Features, &geojson.Feature{
			ID:         r.GEOID,
			Geometry:   g,
			Properties: map[string]interface{}{"geoid": r.GEOID},
		})
	}

	gradesJSON, err := json.Marshal(&gradesFC)
	if err != nil {
		return eris.Wrap(err, "report: encode grade geojson")
	}
	countyJSON, err := json.Marshal(&countyFC)
	if err != nil {
		return eris.Wrap(err, "report: encode county geojson")
	}
	colors := make(map[string]string, len(gradeColors))
	for g, c := range gradeColors {
		colors[string(g)] = c
	}
	colorsJSON, err := json.Marshal(colors)
	if err != nil {
		return eris.Wrap(err, "report: encode color map")
	}

	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create map %s", path)
	}
	defer func() { _ = f.Close() }()

	data := struct {
		Grades, County, Colors template.JS
	}{
		Grades: template.JS(gradesJSON),
		County: template.JS(countyJSON),
		Colors: template.JS(colorsJSON),
	}
	if err := mapTemplate.Execute(f, data); err != nil {
		return eris.Wrapf(err, "report: render map %s", path)
	}
	return nil
}
