package report

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/korelidw/loop-digest/digest/defs"
	"github.com/korelidw/loop-digest/digest/pkg/classify"
	"github.com/korelidw/loop-digest/digest/pkg/group"
	"github.com/korelidw/loop-digest/digest/pkg/series"
)

type CorrectionsMeta struct {
	Window     string `json:"window"`
	Considered int    `json:"considered"`
	Excluded   int    `json:"excluded"`
}

// CorrectionsSummary is the dose-normalized correction-effectiveness
// analysis, grouped into time-of-day × IOB-band cells.
type CorrectionsSummary struct {
	Meta   CorrectionsMeta           `json:"meta"`
	Groups []group.CorrectionSummary `json:"groups"`
}

// Corrections analyzes insulin-only doses at or above the configured unit
// minimum. A correction is excluded outright when any meal or exercise event
// sits within the confound window on either side; otherwise it joins its
// cell as long as at least one of the three drop measurements is computable.
func (b *Builder) Corrections(snap *defs.Snapshot) CorrectionsSummary {
	confound := time.Duration(b.Config.Correct.ConfoundWindowMin) * time.Minute
	corrections := classify.Corrections(snap.Treatments, b.Config.Correct.MinUnits)
	mealTimes := classify.EventTimes(classify.Meals(snap.Treatments, 0))
	exerciseTimes := classify.ExerciseTimes(snap.Treatments)

	cells := group.CorrectionGrouping{}
	excluded := 0
	for i := range corrections {
		c := &corrections[i]
		if classify.Confounded(c.Time, mealTimes, exerciseTimes, confound) {
			excluded++
			continue
		}

		metrics := group.CorrectionMetrics{
			Drop2h:     series.DropAfter(snap.Readings, c.Time, 2*time.Hour),
			Drop3h:     series.DropAfter(snap.Readings, c.Time, 3*time.Hour),
			PerUnit120: perUnitDrop120(snap.Readings, c.Time, c.Insulin),
		}
		if !metrics.Computable() {
			continue
		}

		iob := nearestIOB(snap.Cycles, c.Time, defs.IOBJoinTolerance)
		key := group.CellKey(group.TimeOfDay(b.Cal.Hour(c.Time)), group.IOBBand(iob))
		cells.Add(key, metrics, b.Config.Correct.IneffectiveDrop)
	}

	sum := CorrectionsSummary{
		Meta: CorrectionsMeta{
			Window:     fmt.Sprintf("±%dmin meal/exercise exclusion", b.Config.Correct.ConfoundWindowMin),
			Considered: len(corrections),
			Excluded:   excluded,
		},
	}
	for key, cell := range cells {
		sum.Groups = append(sum.Groups, cell.Summary(key))
	}
	sort.Slice(sum.Groups, func(i, j int) bool {
		return sum.Groups[i].Group < sum.Groups[j].Group
	})

	b.Logger.Info("built correction context summary",
		zap.Int("considered", sum.Meta.Considered),
		zap.Int("excluded", excluded),
		zap.Int("cells", len(sum.Groups)),
	)
	return sum
}

// perUnitDrop120 is the glucose drop at exactly 120 minutes post-dose, per
// unit of insulin: pre-dose value minus the nearest reading within tolerance
// of the 120-minute mark, divided by the dose.
func perUnitDrop120(rs []defs.Reading, t time.Time, units float64) *float64 {
	if units <= 0 {
		return nil
	}
	pre := series.PreGlucose(rs, t)
	if pre == nil {
		return nil
	}
	at := series.NearestWithin(rs, t.Add(120*time.Minute), defs.DropMarkTolerance)
	if at == nil {
		return nil
	}
	perUnit := (*pre - *at) / units
	return &perUnit
}
