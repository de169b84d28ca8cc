// Package stats groups joined records by a categorical key and computes the
// descriptive aggregates the report renders.
package stats

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/urban-eco-lab/holcstat/internal/model"
)

// Item is one record entering the aggregation. Counted is false for rows
// that only establish their group (outer-join placeholders); they are
// excluded from the count, the percentage total, and the means.
type Item struct {
	Key     string
	Counted bool
	// Values holds the requested numeric indicators; NaN means missing and
	// is excluded from both mean numerator and denominator.
	Values map[string]float64
}

// Aggregate produces one row per distinct key, including the empty key as
// its own group. Percentages are computed against the counted total across
// all groups; a zero total yields NaN rather than a panic, so an empty
// input still renders as an inspectable (all-NaN) table.
func Aggregate(items []Item, indicators []string) []model.AggregateRow {
	type acc struct {
		count int
		sums  map[string]float64
		ns    map[string]int
	}
	groups := make(map[string]*acc)
	total := 0
	for _, it := range items {
		a, ok := groups[it.Key]
		if !ok {
			a = &acc{sums: make(map[string]float64), ns: make(map[string]int)}
			groups[it.Key] = a
		}
		if !it.Counted {
			continue
		}
		a.count++
		total++
		for _, name := range indicators {
			v, ok := it.Values[name]
			if !ok || math.IsNaN(v) {
				continue
			}
			a.sums[name] += v
			a.ns[name]++
		}
	}

	if total == 0 && len(items) > 0 {
		zap.L().With(zap.String("component", "stats")).Warn(
			"aggregation total is zero, percentages are NaN",
			zap.Int("groups", len(groups)),
		)
	}

	rows := make([]model.AggregateRow, 0, len(groups))
	for key, a := range groups {
		row := model.AggregateRow{
			Grade: key,
			Count: a.count,
			Means: make(map[string]float64, len(indicators)),
		}
		if total == 0 {
			row.Percentage = math.NaN()
		} else {
			row.Percentage = float64(a.count) / float64(total)
		}
		for _, name := range indicators {
			if n := a.ns[name]; n > 0 {
				row.Means[name] = a.sums[name] / float64(n)
			} else {
				row.Means[name] = math.NaN()
			}
		}
		rows = append(rows, row)
	}
	sortRows(rows)
	return rows
}

// FromJoined adapts second-join output rows to aggregation items: the group
// key is the HOLC grade, the counted unit is a matched observation, and the
// values are the indicator measures of the joined unit.
func FromJoined(records []model.JoinedRecord, indicators []string) []Item {
	items := make([]Item, len(records))
	for i, r := range records {
		values := make(map[string]float64, len(indicators))
		for _, name := range indicators {
			if v, ok := r.Indicators.Value(name); ok {
				values[name] = v
			} else {
				values[name] = math.NaN()
			}
		}
		items[i] = Item{Key: string(r.Grade), Counted: r.Matched, Values: values}
	}
	return items
}

// sortRows orders by the fixed grade order A-D, then any other keys
// alphabetically, with the missing-key group last.
func sortRows(rows []model.AggregateRow) {
	rank := func(key string) int {
		for i, g := range model.GradeOrder {
			if key == string(g) {
				return i
			}
		}
		if key == "" {
			return len(model.GradeOrder) + 1
		}
		return len(model.GradeOrder)
	}
	sort.Slice(rows, func(i, j int) bool {
		ri, rj := rank(rows[i].Grade), rank(rows[j].Grade)
		if ri != rj {
			return ri < rj
		}
		return rows[i].Grade < rows[j].Grade
	})
}
