package report

import (
	"time"

	"go.uber.org/zap"

	"github.com/korelidw/loop-digest/digest/defs"
	"github.com/korelidw/loop-digest/digest/pkg/series"
	"github.com/korelidw/loop-digest/digest/pkg/stats"
)

// Last24Stats tallies the trailing 24 hours: low-reading counts and cycle
// gating/reliability percentages.
type Last24Stats struct {
	BelowLow         int     `json:"lt70"`
	BelowVeryLow     int     `json:"lt54"`
	PredLeSuspendPct float64 `json:"predLeSuspendPct"`
	CommErrorPct     float64 `json:"commErrorPct"`
	Cycles           int     `json:"cycles"`
}

// MiniAlertSummary is the compact safety digest: trailing-24h lows and
// gating reliability, plus the current local day's headline TIR.
type MiniAlertSummary struct {
	Last24   Last24Stats     `json:"last24"`
	Headline DailyTIRSummary `json:"headline"`
}

func (b *Builder) MiniAlert(snap *defs.Snapshot, now time.Time) MiniAlertSummary {
	var sum MiniAlertSummary
	for _, r := range series.Window(snap.Readings, now, -24*time.Hour, 0) {
		if r.Mgdl < b.Config.Glucose.Low {
			sum.Last24.BelowLow++
		}
		if r.Mgdl < b.Config.Glucose.VeryLow {
			sum.Last24.BelowVeryLow++
		}
	}

	var suspend *float64
	if snap.Profile != nil {
		suspend = snap.Profile.SuspendThreshold
	}
	predLe, failures := 0, 0
	last24 := series.Window(snap.Cycles, now, -24*time.Hour, 0)
	for i := range last24 {
		c := &last24[i]
		sum.Last24.Cycles++
		if c.Failed() {
			failures++
		}
		if minPred := c.MinPredicted(); suspend != nil && minPred != nil && *minPred <= *suspend {
			predLe++
		}
	}
	sum.Last24.PredLeSuspendPct = stats.Percentage(float64(predLe), float64(sum.Last24.Cycles))
	sum.Last24.CommErrorPct = stats.Percentage(float64(failures), float64(sum.Last24.Cycles))

	sum.Headline = b.DailyTIR(snap, now)

	b.Logger.Info("built mini alert summary",
		zap.Int("cycles", sum.Last24.Cycles),
		zap.Int("lows", sum.Last24.BelowLow),
	)
	return sum
}
