package pipeline

import (
	"strings"

	"go.uber.org/zap"

	"github.com/urban-eco-lab/holcstat/internal/model"
)

// FilterState returns the indicator records for one state. The input
// collection is never mutated; an empty result is valid and is surfaced as
// a warning, not an error, so downstream stages still run.
func FilterState(c *model.IndicatorCollection, stateCode string) *model.IndicatorCollection {
	out := &model.IndicatorCollection{EPSG: c.EPSG}
	for _, r := range c.Records {
		if strings.EqualFold(r.StateCode, stateCode) {
			out.Records = append(out.Records, r)
		}
	}
	warnIfEmpty("state filter", stateCode, len(out.Records))
	return out
}

// FilterCounty returns the indicator records for one county.
func FilterCounty(c *model.IndicatorCollection, countyName string) *model.IndicatorCollection {
	out := &model.IndicatorCollection{EPSG: c.EPSG}
	for _, r := range c.Records {
		if strings.EqualFold(r.CountyName, countyName) {
			out.Records = append(out.Records, r)
		}
	}
	warnIfEmpty("county filter", countyName, len(out.Records))
	return out
}

func warnIfEmpty(stage, value string, n int) {
	log := zap.L().With(zap.String("component", "pipeline"))
	if n == 0 {
		log.Warn("stage produced zero rows",
			zap.String("stage", stage),
			zap.String("value", value),
		)
		return
	}
	log.Debug("filter applied",
		zap.String("stage", stage),
		zap.String("value", value),
		zap.Int("rows", n),
	)
}
