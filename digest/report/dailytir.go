package report

import (
	"time"

	"go.uber.org/zap"

	"github.com/korelidw/loop-digest/digest/defs"
	"github.com/korelidw/loop-digest/digest/pkg/series"
	"github.com/korelidw/loop-digest/digest/pkg/stats"
)

// DailyTIRSummary is the time-in-range breakdown for one local calendar day.
type DailyTIRSummary struct {
	Day    string              `json:"day"`
	Total  int                 `json:"total"`
	Counts stats.RangeCounts   `json:"counts"`
	Pct    stats.RangePercents `json:"pct"`
}

// DailyTIR summarizes the local day containing now. An empty day produces
// zero counts and zero percentages, never an error.
func (b *Builder) DailyTIR(snap *defs.Snapshot, now time.Time) DailyTIRSummary {
	dayKey := b.Cal.DayKey(now)

	var day []defs.Reading
	for _, r := range snap.Readings {
		if b.Cal.DayKey(r.Time) == dayKey {
			day = append(day, r)
		}
	}

	counts := stats.CountRanges(series.Values(day), b.Config.Glucose)
	sum := DailyTIRSummary{
		Day:    dayKey,
		Total:  len(day),
		Counts: counts,
		Pct:    counts.Percents(),
	}

	b.Logger.Info("built daily tir summary", zap.String("day", dayKey), zap.Int("readings", sum.Total))
	return sum
}
