// Package group buckets classified events into named contextual cells
// (time-of-day windows, insulin-on-board bands, lead-time bins, school
// windows) and accumulates per-cell sample lists for summary statistics.
// Cells are created on first assignment and live for one report build.
package group

import (
	"fmt"
	"math"

	"github.com/korelidw/loop-digest/digest/pkg/stats"
)

// Time-of-day bins are fixed, non-overlapping local-hour windows; all other
// hours collapse into "other".
func TimeOfDay(hour int) string {
	switch {
	case hour >= 0 && hour < 4:
		return "overnight(0-4)"
	case hour >= 6 && hour < 9:
		return "morning(6-9)"
	case hour >= 11 && hour < 13:
		return "midday(11-13)"
	case hour >= 17 && hour < 21:
		return "evening(17-21)"
	default:
		return "other"
	}
}

// IOBBand assigns an insulin-on-board band, with "unknown" when no IOB
// sample resolved within tolerance.
func IOBBand(iob *float64) string {
	switch {
	case iob == nil:
		return "iob:unknown"
	case *iob < 0.5:
		return "iob<0.5"
	case *iob < 1.5:
		return "iob 0.5-1.5"
	default:
		return "iob>1.5"
	}
}

// CellKey composes the time-of-day and IOB dimensions of a correction cell.
func CellKey(todBin, iobBin string) string {
	return fmt.Sprintf("%s | %s", todBin, iobBin)
}

// LeadNone is the bucket for meals with no bolus in the search window; such
// meals are still counted, never discarded.
const LeadNone = "none(-60..+30)"

// LeadBins lists the lead-time bins in display order.
var LeadBins = []string{
	"pre>=20", "pre10-19", "pre5-9", "pre0-4",
	"post0-9", "post10-19", "post>=20", LeadNone,
}

// LeadBin maps a lead time in minutes (positive = bolus before meal) onto
// its bin.
func LeadBin(lead *float64) string {
	if lead == nil {
		return LeadNone
	}
	m := *lead
	switch {
	case m >= 20:
		return "pre>=20"
	case m >= 10:
		return "pre10-19"
	case m >= 5:
		return "pre5-9"
	case m >= 0:
		return "pre0-4"
	case m > -10:
		return "post0-9"
	case m > -20:
		return "post10-19"
	default:
		return "post>=20"
	}
}

// Slot assigns the generic meal slot for a local hour.
func Slot(hour int) string {
	switch {
	case hour >= 5 && hour < 11:
		return "breakfast"
	case hour >= 11 && hour < 15:
		return "lunch"
	case hour >= 17 && hour < 21:
		return "dinner"
	default:
		return "other"
	}
}

// School windows are weekday-only and overlap the generic slots: a school
// meal counts in both groupings.
func IsSchoolBreakfast(weekday bool, minutesIntoDay int) bool {
	return weekday && minutesIntoDay >= 420 && minutesIntoDay < 480
}

func IsSchoolLunch(weekday bool, minutesIntoDay int) bool {
	return weekday && minutesIntoDay >= 680 && minutesIntoDay <= 730
}

// MealMetrics carries one meal's windowed-join results into a cell. Nil
// fields mean the join did not resolve; the meal still counts toward N.
type MealMetrics struct {
	HitHigh bool
	Peak    *float64
	T180Min *float64
	Start   *float64
	Delta   *float64
	Trend   string
}

// MealCell accumulates sample lists for one lead-time bin of one grouping.
type MealCell struct {
	N      int
	Highs  int
	Peaks  []float64
	T180s  []float64
	Starts []float64
	Deltas []float64
	Trends map[string]int
}

func (c *MealCell) Add(m MealMetrics) {
	c.N++
	if m.HitHigh {
		c.Highs++
	}
	if m.Peak != nil {
		c.Peaks = append(c.Peaks, *m.Peak)
	}
	if m.T180Min != nil {
		c.T180s = append(c.T180s, *m.T180Min)
	}
	if m.Start != nil {
		c.Starts = append(c.Starts, *m.Start)
	}
	if m.Delta != nil {
		c.Deltas = append(c.Deltas, *m.Delta)
	}
	if m.Trend != "" {
		if c.Trends == nil {
			c.Trends = make(map[string]int)
		}
		c.Trends[m.Trend]++
	}
}

// MealSummary is the per-cell statistic set for meal analyses.
type MealSummary struct {
	N                  int      `json:"n"`
	PctHigh            float64  `json:"pctHigh"`
	MedianPeak         *float64 `json:"medianPeak"`
	MedianTimeTo180Min *float64 `json:"medianTimeTo180Min"`
	StartBgMedian      *float64 `json:"startBgMed"`
	StartBgIQR         *float64 `json:"startBgIQR"`
	DeltaPeakMedian    *float64 `json:"deltaPeakMed"`
	StartTrend         string   `json:"startTrend,omitempty"`
	StartTrendPct      *float64 `json:"startTrendPct,omitempty"`
}

func (c *MealCell) Summary() MealSummary {
	s := MealSummary{
		N:                  c.N,
		PctHigh:            stats.Percentage(float64(c.Highs), float64(c.N)),
		MedianPeak:         stats.Median(c.Peaks),
		MedianTimeTo180Min: stats.Median(c.T180s),
		StartBgMedian:      stats.Median(c.Starts),
		DeltaPeakMedian:    stats.Median(c.Deltas),
	}
	q25 := stats.Quantile(c.Starts, 0.25)
	q75 := stats.Quantile(c.Starts, 0.75)
	if q25 != nil && q75 != nil {
		iqr := math.Round(*q75 - *q25)
		s.StartBgIQR = &iqr
	}
	if label, share, ok := majorityTrend(c.Trends); ok {
		s.StartTrend = label
		s.StartTrendPct = &share
	}
	return s
}

// majorityTrend picks the winning start-trend label and its rounded share of
// the cell's votes. Rising wins ties over flat, flat over falling, matching
// the historical ordering.
func majorityTrend(votes map[string]int) (string, float64, bool) {
	total := 0
	for _, n := range votes {
		total += n
	}
	if total == 0 {
		return "", 0, false
	}
	bestLabel, bestN := "", -1
	for _, label := range []string{"rising", "flat", "falling"} {
		if votes[label] > bestN {
			bestLabel, bestN = label, votes[label]
		}
	}
	share := math.Round(100 * float64(bestN) / float64(total))
	return bestLabel, share, true
}

// MealGrouping maps lead-time bins (or any cell key) to accumulated cells.
type MealGrouping map[string]*MealCell

func (g MealGrouping) Add(key string, m MealMetrics) {
	cell, ok := g[key]
	if !ok {
		cell = &MealCell{}
		g[key] = cell
	}
	cell.Add(m)
}

func (g MealGrouping) Summaries() map[string]MealSummary {
	out := make(map[string]MealSummary, len(g))
	for key, cell := range g {
		out[key] = cell.Summary()
	}
	return out
}

// CorrectionMetrics carries one correction's drop measurements. A correction
// joins a cell when any field is computable; partial data never drops it.
type CorrectionMetrics struct {
	Drop2h     *float64
	Drop3h     *float64
	PerUnit120 *float64
}

func (m CorrectionMetrics) Computable() bool {
	return m.Drop2h != nil || m.Drop3h != nil || m.PerUnit120 != nil
}

// CorrectionCell accumulates drop samples for one context cell.
type CorrectionCell struct {
	N           int
	Ineffective int
	Drops2      []float64
	Drops3      []float64
	PerUnit120  []float64
}

// Add accumulates metrics; a 2-hour drop below ineffectiveBelow counts the
// correction as ineffective.
func (c *CorrectionCell) Add(m CorrectionMetrics, ineffectiveBelow float64) {
	c.N++
	if m.Drop2h != nil {
		c.Drops2 = append(c.Drops2, *m.Drop2h)
		if *m.Drop2h < ineffectiveBelow {
			c.Ineffective++
		}
	}
	if m.Drop3h != nil {
		c.Drops3 = append(c.Drops3, *m.Drop3h)
	}
	if m.PerUnit120 != nil {
		c.PerUnit120 = append(c.PerUnit120, *m.PerUnit120)
	}
}

// CorrectionSummary is the per-cell statistic set for the dose-normalized
// correction analysis.
type CorrectionSummary struct {
	Group            string   `json:"group"`
	N                int      `json:"n"`
	PctIneffective2h float64  `json:"pctIneffective2h"`
	MedDrop2h        *float64 `json:"medDrop2h"`
	MedDrop3h        *float64 `json:"medDrop3h"`
	MedDropPerU120   *float64 `json:"medDropPerU120"`
}

func (c *CorrectionCell) Summary(key string) CorrectionSummary {
	return CorrectionSummary{
		Group:            key,
		N:                c.N,
		PctIneffective2h: stats.Percentage(float64(c.Ineffective), float64(c.N)),
		MedDrop2h:        stats.Median(c.Drops2),
		MedDrop3h:        stats.Median(c.Drops3),
		MedDropPerU120:   stats.Median(c.PerUnit120),
	}
}

// CorrectionGrouping maps composite cell keys to accumulated cells.
type CorrectionGrouping map[string]*CorrectionCell

func (g CorrectionGrouping) Add(key string, m CorrectionMetrics, ineffectiveBelow float64) {
	cell, ok := g[key]
	if !ok {
		cell = &CorrectionCell{}
		g[key] = cell
	}
	cell.Add(m, ineffectiveBelow)
}
