// Package report contains the builders that compose the analysis summaries
// consumed by the dashboard renderer. Each builder is one independent
// analysis over the snapshot; none of them error on missing or empty data,
// they degrade to nil-filled sections instead so rendering can show "no
// data" rather than failing the pipeline.
package report

import (
	"time"

	"go.uber.org/zap"

	"github.com/korelidw/loop-digest/digest/defs"
	"github.com/korelidw/loop-digest/digest/pkg/series"
)

type Builder struct {
	Logger *zap.Logger
	Cal    *series.Calendar
	Config defs.Config
}

func New(cfg defs.Config, cal *series.Calendar, logger *zap.Logger) *Builder {
	return &Builder{Logger: logger, Cal: cal, Config: cfg}
}

// nearestIOB joins a correction instant to the closest loop cycle carrying an
// IOB estimate, within tolerance. Cycles are assumed sorted.
func nearestIOB(cycles []defs.DeviceCycle, t time.Time, tol time.Duration) *float64 {
	var best *float64
	bestDist := tol + 1
	for i := range cycles {
		if cycles[i].Time.After(t.Add(tol)) {
			break
		}
		if cycles[i].IOB == nil {
			continue
		}
		d := t.Sub(cycles[i].Time)
		if d < 0 {
			d = -d
		}
		if d <= tol && d < bestDist {
			best = cycles[i].IOB
			bestDist = d
		}
	}
	return best
}
