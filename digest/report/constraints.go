package report

import (
	"go.uber.org/zap"

	"github.com/korelidw/loop-digest/digest/defs"
	"github.com/korelidw/loop-digest/digest/pkg/stats"
)

type ConstraintsMeta struct {
	TotalCycles      int      `json:"totalCycles"`
	DosingStrategy   string   `json:"dosingStrategy,omitempty"`
	MaxBasal         *float64 `json:"maxBasal"`
	MaxBolus         *float64 `json:"maxBolus"`
	SuspendThreshold *float64 `json:"suspendThreshold"`
}

type PredictionStats struct {
	WithPrediction      int     `json:"withPred"`
	PredBelowSuspend    int     `json:"predBelowSuspend"`
	PctPredBelowSuspend float64 `json:"pctPredBelowSuspend"`
}

type BasalStats struct {
	ZeroBasal            int     `json:"zeroBasal"`
	ZeroBasalWhenLowPred int     `json:"zeroBasalWhenLowPred"`
	ZeroBasalWhenNotLow  int     `json:"zeroBasalWhenNotLowPred"`
	AtMaxBasal           int     `json:"atMaxBasal"`
	PctAtMaxBasal        float64 `json:"pctAtMaxBasal"`
}

type VolumeStats struct {
	N      int      `json:"n"`
	Median *float64 `json:"median"`
	P10    *float64 `json:"p10,omitempty"`
	P90    *float64 `json:"p90"`
}

type AutoBolusStats struct {
	RecommendedCycles int         `json:"abCycles"`
	EnactedCycles     int         `json:"abEnacted"`
	PctCyclesWithAB   float64     `json:"pctCyclesWithAB"`
	EnactedVol        VolumeStats `json:"enactedVol"`
	AutoRecVol        VolumeStats `json:"autoRecVol"`
	RecBolusVol       VolumeStats `json:"recBolusVol"`
}

type ReliabilityStats struct {
	Failures int `json:"failures"`
}

// ConstraintsSummary reports how often the loop's safety gating engaged:
// predicted-low suspensions, zero-basal cycles, max-basal saturation,
// automatic bolus cadence, and outright cycle failures.
type ConstraintsSummary struct {
	Meta           ConstraintsMeta  `json:"meta"`
	Predictions    PredictionStats  `json:"predictions"`
	Basal          BasalStats       `json:"basal"`
	AutomaticBolus AutoBolusStats   `json:"automaticBolus"`
	Reliability    ReliabilityStats `json:"reliability"`
}

func (b *Builder) Constraints(snap *defs.Snapshot) ConstraintsSummary {
	var sum ConstraintsSummary
	if snap.Profile != nil {
		sum.Meta.DosingStrategy = snap.Profile.DosingStrategy
		sum.Meta.MaxBasal = snap.Profile.MaxBasalRatePerHour
		sum.Meta.MaxBolus = snap.Profile.MaxBolus
		sum.Meta.SuspendThreshold = snap.Profile.SuspendThreshold
	}

	var enactedVols, autoRecVols, recBolusVols []float64
	for i := range snap.Cycles {
		c := &snap.Cycles[i]
		sum.Meta.TotalCycles++
		if c.Failed() {
			sum.Reliability.Failures++
		}

		minPred := c.MinPredicted()
		if len(c.Predicted) > 0 {
			sum.Predictions.WithPrediction++
			if sum.Meta.SuspendThreshold != nil && minPred != nil && *minPred <= *sum.Meta.SuspendThreshold {
				sum.Predictions.PredBelowSuspend++
			}
		}

		if c.EnactedRate != nil {
			if *c.EnactedRate == 0 {
				sum.Basal.ZeroBasal++
				if minPred != nil {
					if sum.Meta.SuspendThreshold != nil && *minPred <= *sum.Meta.SuspendThreshold {
						sum.Basal.ZeroBasalWhenLowPred++
					} else {
						sum.Basal.ZeroBasalWhenNotLow++
					}
				}
			}
			if sum.Meta.MaxBasal != nil && *c.EnactedRate >= *sum.Meta.MaxBasal-1e-6 {
				sum.Basal.AtMaxBasal++
			}
		}

		if c.AutoRecBolus != nil {
			sum.AutomaticBolus.RecommendedCycles++
			autoRecVols = append(autoRecVols, *c.AutoRecBolus)
		}
		if c.EnactedBolus != nil && *c.EnactedBolus > 0 {
			sum.AutomaticBolus.EnactedCycles++
			enactedVols = append(enactedVols, *c.EnactedBolus)
		}
		if c.RecommendedBolus != nil {
			recBolusVols = append(recBolusVols, *c.RecommendedBolus)
		}
	}

	total := float64(sum.Meta.TotalCycles)
	sum.Predictions.PctPredBelowSuspend = stats.Percentage(
		float64(sum.Predictions.PredBelowSuspend), float64(sum.Predictions.WithPrediction))
	sum.Basal.PctAtMaxBasal = stats.Percentage(float64(sum.Basal.AtMaxBasal), total)
	sum.AutomaticBolus.PctCyclesWithAB = stats.Percentage(float64(sum.AutomaticBolus.EnactedCycles), total)

	sum.AutomaticBolus.EnactedVol = VolumeStats{
		N:      len(enactedVols),
		Median: stats.Median(enactedVols),
		P10:    stats.Quantile(enactedVols, 0.1),
		P90:    stats.Quantile(enactedVols, 0.9),
	}
	sum.AutomaticBolus.AutoRecVol = VolumeStats{
		N:      len(autoRecVols),
		Median: stats.Median(autoRecVols),
		P90:    stats.Quantile(autoRecVols, 0.9),
	}
	sum.AutomaticBolus.RecBolusVol = VolumeStats{
		N:      len(recBolusVols),
		Median: stats.Median(recBolusVols),
		P90:    stats.Quantile(recBolusVols, 0.9),
	}

	b.Logger.Info("built constraints summary",
		zap.Int("cycles", sum.Meta.TotalCycles),
		zap.Int("failures", sum.Reliability.Failures),
	)
	return sum
}
