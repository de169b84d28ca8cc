// Package report renders the aggregate results: a markdown table, one bar
// chart per metric, a thematic map, and an XLSX export. Rendering is kept
// out of the pipeline so the transformations stay independently testable.
package report

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/urban-eco-lab/holcstat/internal/model"
	"github.com/urban-eco-lab/holcstat/internal/pipeline"
)

// DefaultLabels maps canonical indicator names to table column headings.
var DefaultLabels = map[string]string{
	model.IndicatorLowIncomePct:       "Low income (%)",
	model.IndicatorPM25Pctl:           "PM2.5 (percentile)",
	model.IndicatorLifeExpectancyPctl: "Life expectancy (percentile)",
}

// naCell is how an undefined value (NaN) renders. A zero-total run still
// produces a complete, inspectable table.
const naCell = "n/a"

// Labels merges profile overrides over the defaults.
func Labels(overrides map[string]string) map[string]string {
	out := make(map[string]string, len(DefaultLabels)+len(overrides))
	for k, v := range DefaultLabels {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

func label(labels map[string]string, name string) string {
	if l, ok := labels[name]; ok {
		return l
	}
	return name
}

// FormatTable renders the aggregate rows as a markdown table in the fixed
// grade order, with locale-aware counts.
func FormatTable(rows []model.AggregateRow, indicators []string, labels map[string]string) string {
	p := message.NewPrinter(language.English)
	var b strings.Builder

	b.WriteString("| Grade | Observations | Share |")
	for _, name := range indicators {
		fmt.Fprintf(&b, " %s |", label(labels, name))
	}
	b.WriteString("\n|---|---|---|")
	for range indicators {
		b.WriteString("---|")
	}
	b.WriteString("\n")

	for _, row := range rows {
		grade := row.Grade
		if grade == "" {
			grade = "(ungraded)"
		}
		fmt.Fprintf(&b, "| %s | %s | %s |", grade, p.Sprintf("%d", row.Count), formatPct(row.Percentage))
		for _, name := range indicators {
			fmt.Fprintf(&b, " %s |", formatMean(row.Means[name]))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatReport generates the human-readable run report.
func FormatReport(res *pipeline.Result, labels map[string]string) string {
	var b strings.Builder

	b.WriteString("# HOLC Grade Analysis Report\n")
	fmt.Fprintf(&b, "Run: %s\n", res.RunID)
	fmt.Fprintf(&b, "Started: %s\n", res.StartedAt.Format("2006-01-02 15:04:05 UTC"))
	fmt.Fprintf(&b, "Finished: %s\n\n", res.FinishedAt.Format("2006-01-02 15:04:05 UTC"))

	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Indicator units in study area: %d\n", len(res.CountySubset.Records))
	fmt.Fprintf(&b, "- Grade polygons: %d\n", len(res.Grades.Polygons))
	fmt.Fprintf(&b, "- Grade-indicator pairs: %d\n", len(res.GradeAreas))
	fmt.Fprintf(&b, "- Joined observation rows: %d\n\n", len(res.Joined))

	b.WriteString("## Aggregates by grade\n")
	if len(res.Aggregates) == 0 {
		b.WriteString("No aggregate rows: the joins produced no data.\n")
	} else {
		b.WriteString(FormatTable(res.Aggregates, res.Indicators, labels))
	}
	return b.String()
}

// Write renders all report artifacts into the output directory.
func Write(dir string, res *pipeline.Result, labels map[string]string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "report: create output dir %s", dir)
	}

	mdPath := filepath.Join(dir, "report.md")
	if err := os.WriteFile(mdPath, []byte(FormatReport(res, labels)), 0o644); err != nil {
		return eris.Wrap(err, "report: write report.md")
	}

	charts, err := WriteBarCharts(dir, res.Aggregates, res.Indicators, labels)
	if err != nil {
		return err
	}

	mapPath := filepath.Join(dir, "map.html")
	if err := WriteMap(mapPath, res); err != nil {
		return err
	}

	xlsxPath := filepath.Join(dir, "aggregates.xlsx")
	if err := WriteXLSX(xlsxPath, res.Aggregates, res.Indicators, labels); err != nil {
		return err
	}

	zap.L().With(zap.String("component", "report")).Info("report written",
		zap.String("dir", dir),
		zap.Int("charts", len(charts)),
	)
	return nil
}

func formatPct(v float64) string {
	if math.IsNaN(v) {
		return naCell
	}
	return fmt.Sprintf("%.1f%%", v*100)
}

func formatMean(v float64) string {
	if math.IsNaN(v) {
		return naCell
	}
	return fmt.Sprintf("%.3f", v)
}
