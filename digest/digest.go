// Package digest wires the batch pipeline: load the latest snapshot, run
// every report builder, write one JSON summary file per report. A run either
// completes and writes its outputs or fails outright before writing; the
// only fatal condition is the absence of any input snapshot.
package digest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/korelidw/loop-digest/digest/defs"
	"github.com/korelidw/loop-digest/digest/ingest"
	"github.com/korelidw/loop-digest/digest/pkg/series"
	"github.com/korelidw/loop-digest/digest/report"
)

// Output file names, one per report builder.
const (
	DigestFile      = "metrics_digest.json"
	AGPFile         = "agp.json"
	DailyTIRFile    = "daily_tir.json"
	MealTimingFile  = "meal_timing_analysis.json"
	CorrectionsFile = "correction_context.json"
	ConstraintsFile = "constraints_summary.json"
	OverlayFile     = "overlay_daily.json"
	ReviewFile      = "review_summary.json"
	MiniAlertFile   = "mini_alert.json"
)

type App struct {
	Config  defs.Config
	Builder *report.Builder
	Logger  *zap.Logger
}

// LoadConfig reads a YAML config file and fills unset fields with defaults.
func LoadConfig(path string, logger *zap.Logger) (defs.Config, error) {
	cfg := defs.Config{Logger: logger}

	file, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("unable to read config file: %w", err)
	}
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return cfg, fmt.Errorf("unable to parse config file: %w", err)
	}
	cfg.Logger = logger
	return cfg.Merged(), nil
}

func New(cfg defs.Config) (*App, error) {
	cal, err := series.NewCalendar(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unable to load timezone %q: %w", cfg.Timezone, err)
	}
	return &App{
		Config:  cfg,
		Builder: report.New(cfg, cal, cfg.Logger),
		Logger:  cfg.Logger,
	}, nil
}

// Snapshot loads the latest input snapshot from the configured data dir.
func (a *App) Snapshot() (*defs.Snapshot, error) {
	return ingest.LatestSnapshot(a.Config.DataDir, a.Logger)
}

// Run executes every report builder over the latest snapshot and writes the
// summaries into the output dir.
func (a *App) Run(now time.Time) error {
	snap, err := a.Snapshot()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(a.Config.OutDir, 0o755); err != nil {
		return fmt.Errorf("unable to create output dir: %w", err)
	}

	outputs := map[string]any{
		DigestFile:      a.Builder.Digest(snap),
		AGPFile:         a.Builder.AGP(snap),
		DailyTIRFile:    a.Builder.DailyTIR(snap, now),
		MealTimingFile:  a.Builder.MealTiming(snap),
		CorrectionsFile: a.Builder.Corrections(snap),
		ConstraintsFile: a.Builder.Constraints(snap),
		OverlayFile:     a.Builder.Overlay(snap),
		ReviewFile:      a.Builder.Review(snap),
		MiniAlertFile:   a.Builder.MiniAlert(snap, now),
	}

	for name, sum := range outputs {
		if err := a.writeJSON(name, sum); err != nil {
			return err
		}
	}

	a.Logger.Info("run complete",
		zap.String("entries", snap.Files.Entries),
		zap.Int("reports", len(outputs)),
	)
	return nil
}

// writeJSON marshals before opening the file so a failed marshal never
// leaves a truncated output behind.
func (a *App) writeJSON(name string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("unable to marshal %s: %w", name, err)
	}
	path := filepath.Join(a.Config.OutDir, name)
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("unable to write %s: %w", name, err)
	}
	a.Logger.Debug("wrote report", zap.String("path", path))
	return nil
}
