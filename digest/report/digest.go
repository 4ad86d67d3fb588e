package report

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/korelidw/loop-digest/digest/defs"
	"github.com/korelidw/loop-digest/digest/pkg/classify"
	"github.com/korelidw/loop-digest/digest/pkg/series"
	"github.com/korelidw/loop-digest/digest/pkg/stats"
)

// DatasetMeta describes the shape and density of the reading series.
type DatasetMeta struct {
	Count          int      `json:"count"`
	Earliest       string   `json:"earliest,omitempty"`
	Latest         string   `json:"latest,omitempty"`
	DurationDays   *float64 `json:"durationDays"`
	ExpectedAt5Min *int     `json:"expectedAt5min"`
	Coverage       *float64 `json:"coverage"`
}

type TreatmentCounts struct {
	Total   int `json:"total"`
	Carbs   int `json:"carbs"`
	Insulin int `json:"insulin"`
}

type DataFlags struct {
	PossibleMissedCarbs int `json:"possibleMissedCarbs"`
}

// DigestSummary is the headline TIR/variability/risk digest over the whole
// snapshot.
type DigestSummary struct {
	Files          defs.SnapshotFiles `json:"files"`
	Meta           DatasetMeta        `json:"meta"`
	Ranges         stats.RangeCounts  `json:"tir"`
	CV             *float64           `json:"cv"`
	Risk           stats.RiskIndices  `json:"risk"`
	Treatments     TreatmentCounts    `json:"treatments"`
	Cycles         int                `json:"cycles"`
	ProfilePresent bool               `json:"profilePresent"`
	Flags          DataFlags          `json:"dataFlags"`
}

func (b *Builder) Digest(snap *defs.Snapshot) DigestSummary {
	values := series.Values(snap.Readings)

	sum := DigestSummary{
		Files:          snap.Files,
		Meta:           datasetMeta(snap.Readings),
		Ranges:         stats.CountRanges(values, b.Config.Glucose),
		CV:             stats.CV(values),
		Risk:           stats.Risk(values),
		Cycles:         len(snap.Cycles),
		ProfilePresent: snap.Profile != nil,
	}

	sum.Treatments.Total = len(snap.Treatments)
	for i := range snap.Treatments {
		if classify.IsMeal(&snap.Treatments[i], 0) {
			sum.Treatments.Carbs++
		}
		if snap.Treatments[i].Insulin > 0 {
			sum.Treatments.Insulin++
		}
	}

	carbTimes := classify.EventTimes(classify.Meals(snap.Treatments, 0))
	sum.Flags.PossibleMissedCarbs = possibleMissedCarbs(snap.Readings, carbTimes)

	b.Logger.Info("built digest summary",
		zap.Int("readings", sum.Meta.Count),
		zap.Float64("gri", sum.Risk.GRI),
	)
	return sum
}

func datasetMeta(rs []defs.Reading) DatasetMeta {
	meta := DatasetMeta{Count: len(rs)}
	if len(rs) == 0 {
		return meta
	}

	first, last := rs[0].Time, rs[len(rs)-1].Time
	meta.Earliest = first.UTC().Format(time.RFC3339)
	meta.Latest = last.UTC().Format(time.RFC3339)

	dur := last.Sub(first)
	days := stats.Round2(dur.Hours() / 24)
	meta.DurationDays = &days

	expected := dur.Minutes() / defs.CGMCadence.Minutes()
	if expected > 0 {
		n := int(math.Round(expected))
		meta.ExpectedAt5Min = &n
		cov := math.Min(1, float64(len(rs))/expected)
		cov = math.Round(cov*1000) / 1000
		meta.Coverage = &cov
	}
	return meta
}

// possibleMissedCarbs counts fast rises (>=50 mg/dL within the next hour)
// with no carb entry in the -15/+10 minute window around the rise start.
// After a hit the scan skips half the rise window to avoid double counting
// the same excursion.
func possibleMissedCarbs(rs []defs.Reading, carbTimes []time.Time) int {
	count := 0
	for i := 0; i < len(rs); i++ {
		start := rs[i]
		maxRise := math.Inf(-1)
		n := 0
		for j := i + 1; j < len(rs) && !rs[j].Time.After(start.Time.Add(time.Hour)); j++ {
			if rise := rs[j].Mgdl - start.Mgdl; rise > maxRise {
				maxRise = rise
			}
			n++
		}
		if n == 0 {
			break
		}
		if maxRise >= 50 &&
			!series.AnyBetween(carbTimes, start.Time.Add(-15*time.Minute), start.Time.Add(10*time.Minute)) {
			count++
			i += max(1, n/2)
		}
	}
	return count
}
