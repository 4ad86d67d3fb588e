// Package classify derives event labels from treatment records. Labels are
// recomputed per analysis because different analyses use different
// thresholds; nothing here is stored back onto the record.
package classify

import (
	"strings"
	"time"

	"github.com/korelidw/loop-digest/digest/defs"
	"github.com/korelidw/loop-digest/digest/pkg/series"
)

// IsMeal reports carbohydrate intake above the given gram threshold. Pass 0
// for bare carb detection; the meal-response analyses pass the configured
// minimum (10 g historically).
func IsMeal(ev *defs.TreatmentEvent, minCarbs float64) bool {
	if minCarbs <= 0 {
		return ev.Carbs > 0
	}
	return ev.Carbs >= minCarbs
}

// IsCorrectionOnly reports an insulin dose with no concurrent carbohydrate
// entry on the same record. minUnits excludes micro-boluses when positive.
func IsCorrectionOnly(ev *defs.TreatmentEvent, minUnits float64) bool {
	if ev.Insulin <= 0 || ev.Carbs > 0 {
		return false
	}
	return ev.Insulin >= minUnits
}

// IsExercise matches "exercise" or "activity" case-insensitively against the
// event type or free-text note.
func IsExercise(ev *defs.TreatmentEvent) bool {
	for _, s := range []string{ev.EventType, ev.Notes} {
		ls := strings.ToLower(s)
		if strings.Contains(ls, "exercise") || strings.Contains(ls, "activity") {
			return true
		}
	}
	return false
}

// Meals filters and time-sorts treatments above the carb threshold.
func Meals(ts []defs.TreatmentEvent, minCarbs float64) []defs.TreatmentEvent {
	var out []defs.TreatmentEvent
	for i := range ts {
		if IsMeal(&ts[i], minCarbs) {
			out = append(out, ts[i])
		}
	}
	series.SortByTime(out)
	return out
}

// Boluses filters and time-sorts treatments with any insulin.
func Boluses(ts []defs.TreatmentEvent) []defs.TreatmentEvent {
	var out []defs.TreatmentEvent
	for i := range ts {
		if ts[i].Insulin > 0 {
			out = append(out, ts[i])
		}
	}
	series.SortByTime(out)
	return out
}

// Corrections filters and time-sorts insulin-only treatments at or above
// minUnits.
func Corrections(ts []defs.TreatmentEvent, minUnits float64) []defs.TreatmentEvent {
	var out []defs.TreatmentEvent
	for i := range ts {
		if IsCorrectionOnly(&ts[i], minUnits) {
			out = append(out, ts[i])
		}
	}
	series.SortByTime(out)
	return out
}

// Confounded reports whether a correction instant has any meal or exercise
// event within the exclusion window on either side. Corrections flagged here
// are dropped from the context grouping entirely.
func Confounded(corrT time.Time, meals, exercise []time.Time, window time.Duration) bool {
	return series.AnyWithin(meals, corrT, window) || series.AnyWithin(exercise, corrT, window)
}

// EventTimes extracts sorted instants from a treatment slice.
func EventTimes(ts []defs.TreatmentEvent) []time.Time {
	out := make([]time.Time, len(ts))
	for i := range ts {
		out[i] = ts[i].Time
	}
	return out
}

// ExerciseTimes extracts sorted instants of exercise/activity events.
func ExerciseTimes(ts []defs.TreatmentEvent) []time.Time {
	var ex []defs.TreatmentEvent
	for i := range ts {
		if IsExercise(&ts[i]) {
			ex = append(ex, ts[i])
		}
	}
	series.SortByTime(ex)
	return EventTimes(ex)
}
