package report

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/urban-eco-lab/holcstat/internal/model"
)

// WriteXLSX exports the aggregate table as a spreadsheet. NaN values become
// empty cells; Excel has no representation for them.
func WriteXLSX(path string, rows []model.AggregateRow, indicators []string, labels map[string]string) error {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Aggregates")
	if err != nil {
		return eris.Wrap(err, "report: add xlsx sheet")
	}

	header := sheet.AddRow()
	header.AddCell().Value = "Grade"
	header.AddCell().Value = "Observations"
	header.AddCell().Value = "Share"
	for _, name := range indicators {
		header.AddCell().Value = label(labels, name)
	}

	for _, row := range rows {
		r := sheet.AddRow()
		grade := row.Grade
		if grade == "" {
			grade = "(ungraded)"
		}
		r.AddCell().Value = grade
		r.AddCell().SetInt(row.Count)
		addFloatCell(r, row.Percentage)
		for _, name := range indicators {
			addFloatCell(r, row.Means[name])
		}
	}

	if err := file.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func addFloatCell(r *xlsx.Row, v float64) {
	cell := r.AddCell()
	if math.IsNaN(v) {
		return
	}
	cell.SetFloat(v)
}
