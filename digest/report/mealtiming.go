package report

import (
	"time"

	"go.uber.org/zap"

	"github.com/korelidw/loop-digest/digest/defs"
	"github.com/korelidw/loop-digest/digest/pkg/classify"
	"github.com/korelidw/loop-digest/digest/pkg/group"
	"github.com/korelidw/loop-digest/digest/pkg/series"
)

// MealTimingSummary groups meal responses by pre-bolus lead-time bin, once
// over all meals and once per meal slot. School windows are an additional,
// overlapping grouping: a school-window meal is counted in both its generic
// slot and the school group.
type MealTimingSummary struct {
	LeadBins        []string                     `json:"leadBins"`
	Overall         map[string]group.MealSummary `json:"overall"`
	Breakfast       map[string]group.MealSummary `json:"breakfast"`
	Lunch           map[string]group.MealSummary `json:"lunch"`
	Dinner          map[string]group.MealSummary `json:"dinner"`
	SchoolBreakfast map[string]group.MealSummary `json:"schoolBreakfast"`
	SchoolLunch     map[string]group.MealSummary `json:"schoolLunch"`
}

func (b *Builder) MealTiming(snap *defs.Snapshot) MealTimingSummary {
	meals := classify.Meals(snap.Treatments, b.Config.Meal.MinCarbs)
	boluses := classify.Boluses(snap.Treatments)

	groupings := map[string]group.MealGrouping{
		"overall":         {},
		"breakfast":       {},
		"lunch":           {},
		"dinner":          {},
		"schoolBreakfast": {},
		"schoolLunch":     {},
	}

	for i := range meals {
		m := &meals[i]
		lead := series.LeadMinutes(boluses, m.Time, defs.LeadSearchLookback, defs.LeadSearchLookahead)
		bin := group.LeadBin(lead)
		metrics := b.mealMetrics(snap.Readings, m.Time)

		groupings["overall"].Add(bin, metrics)
		if slot := group.Slot(b.Cal.Hour(m.Time)); slot != "other" {
			groupings[slot].Add(bin, metrics)
		}
		weekday := b.Cal.IsWeekday(m.Time)
		mins := b.Cal.MinutesIntoDay(m.Time)
		if group.IsSchoolBreakfast(weekday, mins) {
			groupings["schoolBreakfast"].Add(bin, metrics)
		}
		if group.IsSchoolLunch(weekday, mins) {
			groupings["schoolLunch"].Add(bin, metrics)
		}
	}

	sum := MealTimingSummary{
		LeadBins:        group.LeadBins,
		Overall:         groupings["overall"].Summaries(),
		Breakfast:       groupings["breakfast"].Summaries(),
		Lunch:           groupings["lunch"].Summaries(),
		Dinner:          groupings["dinner"].Summaries(),
		SchoolBreakfast: groupings["schoolBreakfast"].Summaries(),
		SchoolLunch:     groupings["schoolLunch"].Summaries(),
	}

	b.Logger.Info("built meal timing summary", zap.Int("meals", len(meals)))
	return sum
}

// mealMetrics resolves one meal's windowed joins against the reading series.
// The start value prefers the nearest reading within ±5 minutes, falling back
// to ±10; unresolved joins stay nil and the meal still counts toward its
// cell.
func (b *Builder) mealMetrics(rs []defs.Reading, t time.Time) group.MealMetrics {
	start := series.NearestWithin(rs, t, 5*time.Minute)
	if start == nil {
		start = series.NearestWithin(rs, t, 10*time.Minute)
	}

	m := group.MealMetrics{
		Start: start,
		Trend: series.StartTrend(rs, t),
	}

	win := series.Window(rs, t, 0, defs.MealResponseWindow)
	peak := series.Peak(win)
	if peak == nil {
		return m
	}
	m.Peak = peak
	m.HitHigh = *peak > b.Config.Glucose.High
	if start != nil {
		delta := *peak - *start
		m.Delta = &delta
	}
	m.T180Min = timeToReturn(win, t, b.Config.Glucose.High)
	return m
}

// timeToReturn finds the minutes from the event until glucose first returns
// to the high bound after having exceeded it inside the window. Nil when the
// window never exceeds the bound or never comes back.
func timeToReturn(win []defs.Reading, t time.Time, high float64) *float64 {
	exceeded := false
	for i := range win {
		if !exceeded {
			if win[i].Mgdl > high {
				exceeded = true
			}
			continue
		}
		if win[i].Mgdl <= high {
			mins := win[i].Time.Sub(t).Minutes()
			return &mins
		}
	}
	return nil
}
