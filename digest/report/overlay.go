package report

import (
	"sort"

	"go.uber.org/zap"

	"github.com/korelidw/loop-digest/digest/defs"
	"github.com/korelidw/loop-digest/digest/pkg/stats"
)

// OverlayDay is one local calendar day of loop-cycle reliability tallies.
type OverlayDay struct {
	Day              string  `json:"day"`
	Cycles           int     `json:"cycles"`
	PctPredLeSuspend float64 `json:"pctPredLeSuspend"`
	PctZeroBasal     float64 `json:"pctZeroBasal"`
	PctABCycles      float64 `json:"pctABcycles"`
	PctFailures      float64 `json:"pctFailures"`
}

// OverlaySummary is the daily reliability overlay across the snapshot.
type OverlaySummary struct {
	TZ               string       `json:"tz"`
	SuspendThreshold *float64     `json:"suspendThreshold"`
	Days             []OverlayDay `json:"days"`
}

func (b *Builder) Overlay(snap *defs.Snapshot) OverlaySummary {
	sum := OverlaySummary{TZ: b.Config.Timezone}
	if snap.Profile != nil {
		sum.SuspendThreshold = snap.Profile.SuspendThreshold
	}

	type tally struct {
		cycles, predLe, zeroBasal, abEnacted, failures int
	}
	byDay := make(map[string]*tally)
	for i := range snap.Cycles {
		c := &snap.Cycles[i]
		key := b.Cal.DayKey(c.Time)
		d, ok := byDay[key]
		if !ok {
			d = &tally{}
			byDay[key] = d
		}
		d.cycles++
		if c.Failed() {
			d.failures++
		}
		if minPred := c.MinPredicted(); sum.SuspendThreshold != nil && minPred != nil && *minPred <= *sum.SuspendThreshold {
			d.predLe++
		}
		if c.EnactedRate != nil && *c.EnactedRate == 0 {
			d.zeroBasal++
		}
		if c.EnactedBolus != nil && *c.EnactedBolus > 0 {
			d.abEnacted++
		}
	}

	days := make([]string, 0, len(byDay))
	for day := range byDay {
		days = append(days, day)
	}
	sort.Strings(days)

	for _, day := range days {
		d := byDay[day]
		n := float64(d.cycles)
		sum.Days = append(sum.Days, OverlayDay{
			Day:              day,
			Cycles:           d.cycles,
			PctPredLeSuspend: stats.Percentage(float64(d.predLe), n),
			PctZeroBasal:     stats.Percentage(float64(d.zeroBasal), n),
			PctABCycles:      stats.Percentage(float64(d.abEnacted), n),
			PctFailures:      stats.Percentage(float64(d.failures), n),
		})
	}

	b.Logger.Info("built overlay summary", zap.Int("days", len(sum.Days)))
	return sum
}
