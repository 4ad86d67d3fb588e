package defs

import (
	"time"

	"go.uber.org/zap"
)

const DefaultTimezone = "America/Chicago"

// Windows shared across report builders.
const (
	MealResponseWindow  = 4 * time.Hour
	PreMealLookback     = 10 * time.Minute
	PreMealLookahead    = 5 * time.Minute
	StartTrendLookback  = 15 * time.Minute
	LeadSearchLookback  = 60 * time.Minute
	LeadSearchLookahead = 30 * time.Minute
	IOBJoinTolerance    = 5 * time.Minute
	DropMarkTolerance   = 10 * time.Minute
	CGMCadence          = 5 * time.Minute
)

type Config struct {
	Timezone string        `yaml:"timezone"`
	DataDir  string        `yaml:"dataDir"`
	OutDir   string        `yaml:"outDir"`
	Glucose  GlucoseConfig `yaml:"glucose"`
	Meal     MealConfig    `yaml:"meal"`
	Correct  CorrectConfig `yaml:"corrections"`
	Logger   *zap.Logger   `yaml:"-"`
}

// GlucoseConfig holds the mg/dL range thresholds.
type GlucoseConfig struct {
	VeryLow  float64 `yaml:"veryLow"`
	Low      float64 `yaml:"low"`
	High     float64 `yaml:"high"`
	VeryHigh float64 `yaml:"veryHigh"`
}

type MealConfig struct {
	// MinCarbs is the gram threshold for the meal-response analyses.
	MinCarbs float64 `yaml:"minCarbs"`
}

type CorrectConfig struct {
	// MinUnits excludes micro-boluses from the correction analyses.
	MinUnits float64 `yaml:"minUnits"`
	// ConfoundWindowMin excludes corrections with a meal or exercise event
	// within this many minutes on either side.
	ConfoundWindowMin int `yaml:"confoundWindowMin"`
	// IneffectiveDrop is the 2-hour drop below which a dose-normalized
	// correction counts as ineffective.
	IneffectiveDrop float64 `yaml:"ineffectiveDrop"`
}

// DefaultConfig returns the thresholds the dashboard has historically used.
func DefaultConfig() Config {
	return Config{
		Timezone: DefaultTimezone,
		Glucose:  GlucoseConfig{VeryLow: 54, Low: 70, High: 180, VeryHigh: 250},
		Meal:     MealConfig{MinCarbs: 10},
		Correct:  CorrectConfig{MinUnits: 0.3, ConfoundWindowMin: 240, IneffectiveDrop: 20},
	}
}

// Merged fills zero-valued fields of c from DefaultConfig.
func (c Config) Merged() Config {
	def := DefaultConfig()
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}
	if c.Glucose == (GlucoseConfig{}) {
		c.Glucose = def.Glucose
	}
	if c.Meal.MinCarbs == 0 {
		c.Meal.MinCarbs = def.Meal.MinCarbs
	}
	if c.Correct.MinUnits == 0 {
		c.Correct.MinUnits = def.Correct.MinUnits
	}
	if c.Correct.ConfoundWindowMin == 0 {
		c.Correct.ConfoundWindowMin = def.Correct.ConfoundWindowMin
	}
	if c.Correct.IneffectiveDrop == 0 {
		c.Correct.IneffectiveDrop = def.Correct.IneffectiveDrop
	}
	return c
}
