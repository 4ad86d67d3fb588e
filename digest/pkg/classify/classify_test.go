package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/korelidw/loop-digest/digest/defs"
)

func TestIsMeal(t *testing.T) {
	assert.True(t, IsMeal(&defs.TreatmentEvent{Carbs: 30}, 10))
	assert.True(t, IsMeal(&defs.TreatmentEvent{Carbs: 10}, 10), "threshold is inclusive")
	assert.False(t, IsMeal(&defs.TreatmentEvent{Carbs: 5}, 10))

	// Zero threshold means any carb entry counts.
	assert.True(t, IsMeal(&defs.TreatmentEvent{Carbs: 5}, 0))
	assert.False(t, IsMeal(&defs.TreatmentEvent{Carbs: 0}, 0))
}

func TestIsCorrectionOnly(t *testing.T) {
	assert.True(t, IsCorrectionOnly(&defs.TreatmentEvent{Insulin: 1.0}, 0.3))
	assert.True(t, IsCorrectionOnly(&defs.TreatmentEvent{Insulin: 0.3}, 0.3), "threshold is inclusive")

	assert.False(t, IsCorrectionOnly(&defs.TreatmentEvent{Insulin: 0.2}, 0.3), "micro-bolus excluded")
	assert.False(t, IsCorrectionOnly(&defs.TreatmentEvent{Insulin: 1.0, Carbs: 20}, 0.3), "meal bolus excluded")
	assert.False(t, IsCorrectionOnly(&defs.TreatmentEvent{Carbs: 20}, 0.3))
}

func TestIsExercise(t *testing.T) {
	assert.True(t, IsExercise(&defs.TreatmentEvent{EventType: "Exercise"}))
	assert.True(t, IsExercise(&defs.TreatmentEvent{Notes: "soccer ACTIVITY after school"}))
	assert.False(t, IsExercise(&defs.TreatmentEvent{EventType: "Correction Bolus", Notes: "pre-dinner"}))
}

func TestFiltersSortByTime(t *testing.T) {
	base := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	ts := []defs.TreatmentEvent{
		{Time: base.Add(time.Hour), Carbs: 40, Insulin: 3},
		{Time: base, Carbs: 25, Insulin: 2},
		{Time: base.Add(30 * time.Minute), Insulin: 1.5},
	}

	meals := Meals(ts, 10)
	assert.Len(t, meals, 2)
	assert.True(t, meals[0].Time.Before(meals[1].Time))

	boluses := Boluses(ts)
	assert.Len(t, boluses, 3)

	corrs := Corrections(ts, 0.3)
	assert.Len(t, corrs, 1)
	assert.Equal(t, 1.5, corrs[0].Insulin)
}

func TestConfounded(t *testing.T) {
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	window := 240 * time.Minute

	meals := []time.Time{base.Add(-90 * time.Minute)}
	assert.True(t, Confounded(base, meals, nil, window), "carb entry 90 minutes earlier excludes the correction")

	farMeals := []time.Time{base.Add(-5 * time.Hour)}
	exercise := []time.Time{base.Add(3 * time.Hour)}
	assert.True(t, Confounded(base, farMeals, exercise, window), "exercise inside the window also excludes")

	assert.False(t, Confounded(base, farMeals, nil, window))
}

func TestExerciseTimes(t *testing.T) {
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	ts := []defs.TreatmentEvent{
		{Time: base.Add(time.Hour), EventType: "Exercise"},
		{Time: base, Notes: "light activity"},
		{Time: base.Add(30 * time.Minute), EventType: "Meal Bolus"},
	}

	times := ExerciseTimes(ts)
	assert.Equal(t, []time.Time{base, base.Add(time.Hour)}, times)
}
