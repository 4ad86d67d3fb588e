// Package stats holds the numeric primitives shared by every report builder:
// quantiles, medians, dispersion, and the glycemic risk transform. All
// functions are pure; an empty input yields a nil "no data" result, never a
// fabricated zero (the one exception is Percentage, see below).
package stats

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"github.com/korelidw/loop-digest/digest/defs"
)

// Quantile computes the q-th quantile (0..1) with linear interpolation
// between closest ranks, matching R type 7 semantics. Returns nil for an
// empty sequence.
func Quantile(seq []float64, q float64) *float64 {
	if len(seq) == 0 {
		return nil
	}
	s := make([]float64, len(seq))
	copy(s, seq)
	sort.Float64s(s)

	pos := float64(len(s)-1) * q
	base := int(math.Floor(pos))
	if base+1 >= len(s) {
		return &s[len(s)-1]
	}
	rest := pos - float64(base)
	v := s[base] + (s[base+1]-s[base])*rest
	return &v
}

// Median returns the middle element, or the average of the two middle
// elements for even-length input. Nil for empty input.
func Median(seq []float64) *float64 {
	if len(seq) == 0 {
		return nil
	}
	m, err := stats.Median(seq)
	if err != nil {
		return nil
	}
	return &m
}

func Mean(seq []float64) float64 {
	if len(seq) == 0 {
		return 0
	}
	m, _ := stats.Mean(seq)
	return m
}

// StdDev is the population standard deviation (divide by N).
func StdDev(seq []float64) float64 {
	if len(seq) == 0 {
		return 0
	}
	sd, _ := stats.StandardDeviationPopulation(seq)
	return sd
}

// CV is the coefficient of variation, 100*sd/mean rounded to one decimal.
// Nil when the series is empty or the mean is zero.
func CV(seq []float64) *float64 {
	m := Mean(seq)
	if m == 0 {
		return nil
	}
	cv := Round1(100 * StdDev(seq) / m)
	return &cv
}

// Percentage returns round(100*n/d, 1). A zero denominator yields the
// numeral 0, not nil; callers that need "no data" must check d themselves.
func Percentage(n, d float64) float64 {
	if d == 0 {
		return 0
	}
	return Round1(100 * n / d)
}

func Round1(x float64) float64 {
	return math.Round(x*10) / 10
}

func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// RiskTransform maps a glucose value (mg/dL, must be >0) onto the symmetric
// risk scale used by the LBGI/HBGI indices. The constants are fixed; changing
// them would break comparability with historical outputs.
func RiskTransform(g float64) float64 {
	return 1.509 * (math.Pow(math.Log(g), 1.084) - 5.381)
}

type RiskIndices struct {
	LBGI float64 `json:"LBGI"`
	HBGI float64 `json:"HBGI"`
	GRI  float64 `json:"GRI"`
}

// Risk computes LBGI/HBGI over the series and their sum (GRI). Non-positive
// glucose values are excluded before the log transform. An empty side
// contributes 0.
func Risk(values []float64) RiskIndices {
	var lowSq, highSq []float64
	for _, g := range values {
		if g <= 0 {
			continue
		}
		r := RiskTransform(g)
		switch {
		case r < 0:
			lowSq = append(lowSq, r*r)
		case r > 0:
			highSq = append(highSq, r*r)
		}
	}

	var ri RiskIndices
	if len(lowSq) > 0 {
		ri.LBGI = Round2(10 * Mean(lowSq))
	}
	if len(highSq) > 0 {
		ri.HBGI = Round2(10 * Mean(highSq))
	}
	ri.GRI = Round2(ri.LBGI + ri.HBGI)
	return ri
}

// RangeCounts tallies readings against the configured thresholds. Low counts
// everything below the low bound including the very-low band, and VeryHigh
// overlaps High; InRange is inclusive of both range bounds.
type RangeCounts struct {
	VeryLow  int `json:"veryLow"`
	Low      int `json:"low"`
	InRange  int `json:"inRange"`
	High     int `json:"high"`
	VeryHigh int `json:"veryHigh"`
}

func CountRanges(values []float64, gcfg defs.GlucoseConfig) RangeCounts {
	var rc RangeCounts
	for _, mg := range values {
		if mg < gcfg.VeryLow {
			rc.VeryLow++
		}
		switch {
		case mg < gcfg.Low:
			rc.Low++
		case mg <= gcfg.High:
			rc.InRange++
		default:
			rc.High++
		}
		if mg > gcfg.VeryHigh {
			rc.VeryHigh++
		}
	}
	return rc
}

// RangePercents expresses counts as rounded percentages of the total.
type RangePercents struct {
	TBRBelowLow     float64 `json:"tbrLow"`
	TBRBelowVeryLow float64 `json:"tbrVeryLow"`
	TIR             float64 `json:"tir"`
	TAR             float64 `json:"tar"`
}

func (rc RangeCounts) Percents() RangePercents {
	total := float64(rc.Low + rc.InRange + rc.High)
	return RangePercents{
		TBRBelowLow:     Percentage(float64(rc.Low), total),
		TBRBelowVeryLow: Percentage(float64(rc.VeryLow), total),
		TIR:             Percentage(float64(rc.InRange), total),
		TAR:             Percentage(float64(rc.High), total),
	}
}
