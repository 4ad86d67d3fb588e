package report

import (
	"go.uber.org/zap"

	"github.com/korelidw/loop-digest/digest/defs"
	"github.com/korelidw/loop-digest/digest/pkg/series"
	"github.com/korelidw/loop-digest/digest/pkg/stats"
)

// AGPSummary holds the ambulatory glucose profile quantile bands: one value
// per five-minute minute-of-day bucket, nil where the bucket has no samples.
type AGPSummary struct {
	TZ      string     `json:"tz"`
	StepMin int        `json:"stepMin"`
	P05     []*float64 `json:"p05"`
	P25     []*float64 `json:"p25"`
	P50     []*float64 `json:"p50"`
	P75     []*float64 `json:"p75"`
	P95     []*float64 `json:"p95"`
}

func (b *Builder) AGP(snap *defs.Snapshot) AGPSummary {
	bins := make([][]float64, series.BinsPerDay)
	for _, r := range snap.Readings {
		idx := b.Cal.Bin(r.Time)
		bins[idx] = append(bins[idx], r.Mgdl)
	}

	sum := AGPSummary{
		TZ:      b.Config.Timezone,
		StepMin: int(defs.CGMCadence.Minutes()),
		P05:     make([]*float64, series.BinsPerDay),
		P25:     make([]*float64, series.BinsPerDay),
		P50:     make([]*float64, series.BinsPerDay),
		P75:     make([]*float64, series.BinsPerDay),
		P95:     make([]*float64, series.BinsPerDay),
	}
	for i, bin := range bins {
		sum.P05[i] = stats.Quantile(bin, 0.05)
		sum.P25[i] = stats.Quantile(bin, 0.25)
		sum.P50[i] = stats.Quantile(bin, 0.5)
		sum.P75[i] = stats.Quantile(bin, 0.75)
		sum.P95[i] = stats.Quantile(bin, 0.95)
	}

	b.Logger.Info("built agp summary", zap.Int("readings", len(snap.Readings)))
	return sum
}
