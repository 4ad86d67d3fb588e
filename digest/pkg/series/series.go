// Package series provides the time-ordered glucose series and the windowed
// join operations between event instants and the reading series. Every
// function here assumes its series input is sorted ascending by time and uses
// that to bound scans; correctness never depends on the early exit.
package series

import (
	"sort"
	"time"

	"github.com/korelidw/loop-digest/digest/defs"
)

// SortByTime orders any timestamped records ascending. Duplicates are
// preserved.
func SortByTime[T defs.TimePoint](pts []T) {
	sort.SliceStable(pts, func(i, j int) bool {
		return pts[i].GetTime().Before(pts[j].GetTime())
	})
}

// Values extracts the glucose values of a series in order.
func Values(rs []defs.Reading) []float64 {
	vals := make([]float64, len(rs))
	for i, r := range rs {
		vals[i] = r.Mgdl
	}
	return vals
}

// NearestWithin returns the reading value whose timestamp is closest to t,
// provided the distance is within tol (inclusive). Nil when no reading
// qualifies.
func NearestWithin(rs []defs.Reading, t time.Time, tol time.Duration) *float64 {
	var best *float64
	bestDist := tol + 1
	for i := range rs {
		d := absDuration(rs[i].Time.Sub(t))
		if d <= tol && d < bestDist {
			best = &rs[i].Mgdl
			bestDist = d
		}
		if rs[i].Time.After(t.Add(tol)) {
			break
		}
	}
	return best
}

// Window returns all records with t+startOff <= time <= t+endOff, bounds
// inclusive. Offsets may be negative.
func Window[T defs.TimePoint](pts []T, t time.Time, startOff, endOff time.Duration) []T {
	start, end := t.Add(startOff), t.Add(endOff)
	var out []T
	for i := range pts {
		if pts[i].GetTime().Before(start) {
			continue
		}
		if pts[i].GetTime().After(end) {
			break
		}
		out = append(out, pts[i])
	}
	return out
}

// AnyWithin reports whether any instant falls within tol of t, inclusive.
func AnyWithin(instants []time.Time, t time.Time, tol time.Duration) bool {
	return AnyBetween(instants, t.Add(-tol), t.Add(tol))
}

// AnyBetween reports whether any instant falls in [start, end]. The list is
// assumed sorted, which bounds the scan and allows short-circuiting on the
// first hit.
func AnyBetween(instants []time.Time, start, end time.Time) bool {
	for _, in := range instants {
		if in.Before(start) {
			continue
		}
		if in.After(end) {
			break
		}
		return true
	}
	return false
}

// LeadMinutes resolves the pre-bolus lead time for a meal: the last bolus
// at-or-before the meal within the lookback window wins; failing that, the
// first bolus after the meal within the lookahead window. Positive minutes
// mean the dose preceded the meal. Nil when no bolus is in either window;
// the caller still counts such meals in an undefined-lead bucket.
func LeadMinutes(boluses []defs.TreatmentEvent, mealT time.Time, lookback, lookahead time.Duration) *float64 {
	winStart, winEnd := mealT.Add(-lookback), mealT.Add(lookahead)
	var before, after *defs.TreatmentEvent
	for i := range boluses {
		b := &boluses[i]
		if b.Time.Before(winStart) {
			continue
		}
		if b.Time.After(winEnd) {
			break
		}
		if !b.Time.After(mealT) {
			before = b
		} else if after == nil {
			after = b
		}
	}
	if before != nil {
		lead := mealT.Sub(before.Time).Minutes()
		return &lead
	}
	if after != nil {
		lead := -after.Time.Sub(mealT).Minutes()
		return &lead
	}
	return nil
}

// PreGlucose finds the glucose at an event instant: the reading nearest by
// absolute distance inside the -10/+5 minute window, tolerant of slight
// clock misalignment between event and CGM. Earlier readings win ties.
func PreGlucose(rs []defs.Reading, t time.Time) *float64 {
	cand := Window(rs, t, -defs.PreMealLookback, defs.PreMealLookahead)
	var best *float64
	var bestDist time.Duration
	for i := range cand {
		d := absDuration(cand[i].Time.Sub(t))
		if best == nil || d < bestDist {
			best = &cand[i].Mgdl
			bestDist = d
		}
	}
	return best
}

// DropAfter computes pre-event glucose minus the last reading within
// (t, t+horizon]. Nil when either side is unresolvable.
func DropAfter(rs []defs.Reading, t time.Time, horizon time.Duration) *float64 {
	pre := PreGlucose(rs, t)
	if pre == nil {
		return nil
	}
	end := t.Add(horizon)
	var last *float64
	for i := range rs {
		if !rs[i].Time.After(t) {
			continue
		}
		if rs[i].Time.After(end) {
			break
		}
		last = &rs[i].Mgdl
	}
	if last == nil {
		return nil
	}
	drop := *pre - *last
	return &drop
}

// Trend labels for StartTrend.
const (
	TrendRising  = "rising"
	TrendFlat    = "flat"
	TrendFalling = "falling"
)

// StartTrend classifies the 15 minutes before an event as rising, flat, or
// falling by net change, requiring at least two readings. Empty string when
// not enough data.
func StartTrend(rs []defs.Reading, t time.Time) string {
	pts := Window(rs, t, -defs.StartTrendLookback, 0)
	if len(pts) < 2 {
		return ""
	}
	delta := pts[len(pts)-1].Mgdl - pts[0].Mgdl
	switch {
	case delta >= 10:
		return TrendRising
	case delta <= -10:
		return TrendFalling
	default:
		return TrendFlat
	}
}

// Peak returns the maximum glucose of a window, nil when empty.
func Peak(rs []defs.Reading) *float64 {
	if len(rs) == 0 {
		return nil
	}
	max := rs[0].Mgdl
	for _, r := range rs[1:] {
		if r.Mgdl > max {
			max = r.Mgdl
		}
	}
	return &max
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
