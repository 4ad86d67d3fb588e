package group

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fp(v float64) *float64 { return &v }

func TestTimeOfDay(t *testing.T) {
	cases := map[int]string{
		0:  "overnight(0-4)",
		3:  "overnight(0-4)",
		4:  "other",
		6:  "morning(6-9)",
		8:  "morning(6-9)",
		9:  "other",
		11: "midday(11-13)",
		12: "midday(11-13)",
		13: "other",
		17: "evening(17-21)",
		20: "evening(17-21)",
		21: "other",
	}
	for hour, want := range cases {
		assert.Equal(t, want, TimeOfDay(hour), "hour %d", hour)
	}
}

func TestIOBBand(t *testing.T) {
	assert.Equal(t, "iob:unknown", IOBBand(nil))
	assert.Equal(t, "iob<0.5", IOBBand(fp(0.49)))
	assert.Equal(t, "iob 0.5-1.5", IOBBand(fp(0.5)))
	assert.Equal(t, "iob 0.5-1.5", IOBBand(fp(1.49)))
	assert.Equal(t, "iob>1.5", IOBBand(fp(1.5)))
}

func TestCellKey(t *testing.T) {
	assert.Equal(t, "morning(6-9) | iob<0.5", CellKey("morning(6-9)", "iob<0.5"))
}

func TestLeadBin(t *testing.T) {
	assert.Equal(t, LeadNone, LeadBin(nil))

	cases := map[float64]string{
		25:  "pre>=20",
		20:  "pre>=20",
		15:  "pre10-19",
		7:   "pre5-9",
		0:   "pre0-4",
		-5:  "post0-9",
		-10: "post10-19",
		-19: "post10-19",
		-20: "post>=20",
	}
	for lead, want := range cases {
		assert.Equal(t, want, LeadBin(fp(lead)), "lead %v", lead)
	}
}

func TestSlot(t *testing.T) {
	assert.Equal(t, "breakfast", Slot(5))
	assert.Equal(t, "breakfast", Slot(10))
	assert.Equal(t, "lunch", Slot(11))
	assert.Equal(t, "lunch", Slot(14))
	assert.Equal(t, "other", Slot(15))
	assert.Equal(t, "dinner", Slot(17))
	assert.Equal(t, "dinner", Slot(20))
	assert.Equal(t, "other", Slot(22))
}

func TestSchoolWindows(t *testing.T) {
	assert.True(t, IsSchoolBreakfast(true, 420))
	assert.True(t, IsSchoolBreakfast(true, 479))
	assert.False(t, IsSchoolBreakfast(true, 480), "upper bound exclusive")
	assert.False(t, IsSchoolBreakfast(false, 440), "weekends never count")

	assert.True(t, IsSchoolLunch(true, 680))
	assert.True(t, IsSchoolLunch(true, 730), "lunch upper bound inclusive")
	assert.False(t, IsSchoolLunch(true, 731))
}

func TestMealCellSummary(t *testing.T) {
	cell := &MealCell{}
	cell.Add(MealMetrics{HitHigh: true, Peak: fp(220), T180Min: fp(45), Start: fp(120), Delta: fp(100), Trend: "rising"})
	cell.Add(MealMetrics{Peak: fp(160), Start: fp(100), Delta: fp(60), Trend: "rising"})
	cell.Add(MealMetrics{Peak: fp(180), Start: fp(110), Delta: fp(70), Trend: "flat"})
	cell.Add(MealMetrics{}) // unresolved joins still count toward n

	s := cell.Summary()
	assert.Equal(t, 4, s.N)
	assert.Equal(t, 25.0, s.PctHigh)
	assert.Equal(t, 180.0, *s.MedianPeak)
	assert.Equal(t, 45.0, *s.MedianTimeTo180Min)
	assert.Equal(t, 110.0, *s.StartBgMedian)
	assert.Equal(t, 70.0, *s.DeltaPeakMedian)
	assert.Equal(t, "rising", s.StartTrend)
	assert.Equal(t, 67.0, *s.StartTrendPct)
	// starts {100,110,120}: q25=105, q75=115.
	assert.Equal(t, 10.0, *s.StartBgIQR)
}

func TestMealCellSummaryEmpty(t *testing.T) {
	cell := &MealCell{}
	cell.Add(MealMetrics{})

	s := cell.Summary()
	assert.Equal(t, 1, s.N)
	assert.Equal(t, 0.0, s.PctHigh)
	assert.Nil(t, s.MedianPeak)
	assert.Nil(t, s.StartBgIQR)
	assert.Equal(t, "", s.StartTrend)
	assert.Nil(t, s.StartTrendPct)
}

func TestMajorityTrendTieOrder(t *testing.T) {
	label, share, ok := majorityTrend(map[string]int{"rising": 2, "falling": 2})
	assert.True(t, ok)
	assert.Equal(t, "rising", label, "rising wins ties")
	assert.Equal(t, 50.0, share)
}

func TestCorrectionCell(t *testing.T) {
	cell := &CorrectionCell{}
	cell.Add(CorrectionMetrics{Drop2h: fp(15), Drop3h: fp(40), PerUnit120: fp(30)}, 20)
	cell.Add(CorrectionMetrics{Drop2h: fp(50), PerUnit120: fp(50)}, 20)
	cell.Add(CorrectionMetrics{Drop3h: fp(25)}, 20)

	s := cell.Summary("evening(17-21) | iob<0.5")
	assert.Equal(t, "evening(17-21) | iob<0.5", s.Group)
	assert.Equal(t, 3, s.N)
	assert.Equal(t, 33.3, s.PctIneffective2h)
	assert.Equal(t, 32.5, *s.MedDrop2h)
	assert.Equal(t, 32.5, *s.MedDrop3h)
	assert.Equal(t, 40.0, *s.MedDropPerU120)
}

func TestCorrectionMetricsComputable(t *testing.T) {
	assert.False(t, CorrectionMetrics{}.Computable())
	assert.True(t, CorrectionMetrics{PerUnit120: fp(25)}.Computable())
}

func TestGroupingsCreateCellsOnDemand(t *testing.T) {
	mg := MealGrouping{}
	mg.Add("pre>=20", MealMetrics{HitHigh: true})
	mg.Add("pre>=20", MealMetrics{})
	assert.Equal(t, 2, mg["pre>=20"].N)

	cg := CorrectionGrouping{}
	cg.Add("other | iob:unknown", CorrectionMetrics{Drop2h: fp(10)}, 20)
	assert.Equal(t, 1, cg["other | iob:unknown"].N)
	assert.Equal(t, 1, cg["other | iob:unknown"].Ineffective)
}
