package report

import (
	"time"

	"go.uber.org/zap"

	"github.com/korelidw/loop-digest/digest/defs"
	"github.com/korelidw/loop-digest/digest/pkg/classify"
	"github.com/korelidw/loop-digest/digest/pkg/group"
	"github.com/korelidw/loop-digest/digest/pkg/series"
	"github.com/korelidw/loop-digest/digest/pkg/stats"
)

type ReviewMeta struct {
	TZ            string            `json:"tz"`
	TotalReadings int               `json:"totalReadings"`
	Coverage      *float64          `json:"coverage"`
	DurationDays  *float64          `json:"durationDays"`
	Ranges        stats.RangeCounts `json:"tir"`
}

// NightsSummary characterizes overnight (00:00-04:00 local) drift: the
// per-night glucose slope in mg/dL per hour, and how many nights dipped low
// or ran high. Nights with five or fewer overnight readings are skipped.
type NightsSummary struct {
	N           int      `json:"n"`
	MedianSlope *float64 `json:"medianSlope"`
	NightsLow   int      `json:"nightsLowCount"`
	NightsHigh  int      `json:"nightsHighCount"`
}

// ReviewCorrections is the aggregate correction-effectiveness digest, using
// the same classification and confound exclusion as the context analysis.
type ReviewCorrections struct {
	N              int      `json:"n"`
	PctIneffective float64  `json:"pctIneffective"`
	PctOvershoot   float64  `json:"pctOvershoot"`
	MedianDrop     *float64 `json:"medianDrop"`
}

// ReviewSummary is the deterministic whole-dataset review backing the
// hypothesis section of the dashboard.
type ReviewSummary struct {
	Meta        ReviewMeta                   `json:"meta"`
	Meals       map[string]group.MealSummary `json:"meals"`
	Corrections ReviewCorrections            `json:"corrections"`
	Nights      NightsSummary                `json:"nights"`
}

func (b *Builder) Review(snap *defs.Snapshot) ReviewSummary {
	values := series.Values(snap.Readings)
	meta := datasetMeta(snap.Readings)

	sum := ReviewSummary{
		Meta: ReviewMeta{
			TZ:            b.Config.Timezone,
			TotalReadings: len(snap.Readings),
			Coverage:      meta.Coverage,
			DurationDays:  meta.DurationDays,
			Ranges:        stats.CountRanges(values, b.Config.Glucose),
		},
		Meals:       b.mealsBySlot(snap),
		Corrections: b.reviewCorrections(snap),
		Nights:      b.nights(snap),
	}

	b.Logger.Info("built review summary", zap.Int("readings", len(snap.Readings)))
	return sum
}

func (b *Builder) mealsBySlot(snap *defs.Snapshot) map[string]group.MealSummary {
	cells := group.MealGrouping{}
	meals := classify.Meals(snap.Treatments, b.Config.Meal.MinCarbs)
	for i := range meals {
		slot := group.Slot(b.Cal.Hour(meals[i].Time))
		cells.Add(slot, b.mealMetrics(snap.Readings, meals[i].Time))
	}
	return cells.Summaries()
}

func (b *Builder) reviewCorrections(snap *defs.Snapshot) ReviewCorrections {
	confound := time.Duration(b.Config.Correct.ConfoundWindowMin) * time.Minute
	corrections := classify.Corrections(snap.Treatments, b.Config.Correct.MinUnits)
	mealTimes := classify.EventTimes(classify.Meals(snap.Treatments, 0))
	exerciseTimes := classify.ExerciseTimes(snap.Treatments)

	var rc ReviewCorrections
	var drops []float64
	ineffective, overshoot := 0, 0
	for i := range corrections {
		c := &corrections[i]
		if classify.Confounded(c.Time, mealTimes, exerciseTimes, confound) {
			continue
		}
		d2 := series.DropAfter(snap.Readings, c.Time, 2*time.Hour)
		if d2 == nil {
			continue
		}
		rc.N++
		drops = append(drops, *d2)
		if *d2 < b.Config.Correct.IneffectiveDrop {
			ineffective++
		}
		for _, r := range series.Window(snap.Readings, c.Time, 0, defs.MealResponseWindow) {
			if r.Mgdl < b.Config.Glucose.Low {
				overshoot++
				break
			}
		}
	}

	rc.PctIneffective = stats.Percentage(float64(ineffective), float64(rc.N))
	rc.PctOvershoot = stats.Percentage(float64(overshoot), float64(rc.N))
	rc.MedianDrop = stats.Median(drops)
	return rc
}

func (b *Builder) nights(snap *defs.Snapshot) NightsSummary {
	overnightByDay := make(map[string][]defs.Reading)
	var dayOrder []string
	for _, r := range snap.Readings {
		if h := b.Cal.Hour(r.Time); h < 0 || h >= 4 {
			continue
		}
		key := b.Cal.DayKey(r.Time)
		if _, ok := overnightByDay[key]; !ok {
			dayOrder = append(dayOrder, key)
		}
		overnightByDay[key] = append(overnightByDay[key], r)
	}

	var sum NightsSummary
	var slopes []float64
	for _, day := range dayOrder {
		night := overnightByDay[day]
		if len(night) <= 5 {
			continue
		}
		first, last := night[0], night[len(night)-1]
		hours := last.Time.Sub(first.Time).Hours()
		if hours == 0 {
			continue
		}
		slopes = append(slopes, (last.Mgdl-first.Mgdl)/hours)

		anyLow, anyHigh := false, false
		for _, r := range night {
			if r.Mgdl < b.Config.Glucose.Low {
				anyLow = true
			}
			if r.Mgdl > b.Config.Glucose.High {
				anyHigh = true
			}
		}
		if anyLow {
			sum.NightsLow++
		}
		if anyHigh {
			sum.NightsHigh++
		}
	}

	sum.N = len(slopes)
	sum.MedianSlope = stats.Median(slopes)
	return sum
}
