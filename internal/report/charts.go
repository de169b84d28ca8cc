package report

import (
	"math"
	"os"
	"path/filepath"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/rotisserie/eris"

	"github.com/urban-eco-lab/holcstat/internal/model"
)

// WriteBarCharts renders one bar chart HTML file per requested metric, with
// the grade on the x-axis in the fixed A-D order. NaN values become gaps in
// the series rather than invalid JSON. Returns the written file paths.
func WriteBarCharts(dir string, rows []model.AggregateRow, indicators []string, labels map[string]string) ([]string, error) {
	axis := make([]string, len(rows))
	for i, row := range rows {
		if row.Grade == "" {
			axis[i] = "(ungraded)"
		} else {
			axis[i] = row.Grade
		}
	}

	var written []string
	for _, name := range indicators {
		series := make([]opts.BarData, len(rows))
		for i, row := range rows {
			v := row.Means[name]
			if math.IsNaN(v) {
				series[i] = opts.BarData{Value: nil}
			} else {
				series[i] = opts.BarData{Value: v}
			}
		}

		bar := charts.NewBar()
		bar.SetGlobalOptions(charts.WithTitleOpts(opts.Title{
			Title:    label(labels, name),
			Subtitle: "mean by HOLC grade",
		}))
		bar.SetXAxis(axis).AddSeries(label(labels, name), series)

		path := filepath.Join(dir, "chart_"+name+".html")
		f, err := os.Create(path)
		if err != nil {
			return nil, eris.Wrapf(err, "report: create chart %s", path)
		}
		if err := bar.Render(f); err != nil {
			_ = f.Close()
			return nil, eris.Wrapf(err, "report: render chart %s", path)
		}
		if err := f.Close(); err != nil {
			return nil, eris.Wrapf(err, "report: close chart %s", path)
		}
		written = append(written, path)
	}
	return written, nil
}
