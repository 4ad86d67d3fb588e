// Package ingest materializes a Snapshot from exported flat files. Source
// rows are heterogeneous: values and timestamps appear under several field
// names and encodings, so extraction runs an ordered chain of strategies and
// short-circuits on the first success. A row that yields neither a valid
// value nor a valid timestamp is dropped silently; that is routine data
// noise, not an error.
package ingest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/korelidw/loop-digest/digest/defs"
	"github.com/korelidw/loop-digest/digest/pkg/series"
)

// Snapshot file prefixes, as written by the exporter.
const (
	EntriesPrefix      = "ns_entries_"
	TreatmentsPrefix   = "ns_treatments_"
	DeviceStatusPrefix = "ns_devicestatus_"
	ProfileFile        = "ns_profile_latest.json"
)

type rawRecord map[string]any

// Field alias chains, tried in order.
var (
	glucoseFields    = []string{"sgv", "mgdl", "mgdL"}
	entryEpochFields = []string{"date"}
	entryTimeFields  = []string{"dateString"}
	treatEpochFields = []string{"mills", "date"}
	treatTimeFields  = []string{"created_at", "createdAt", "dateString"}
)

// LatestSnapshot selects the lexicographically newest file per record kind
// under dataDir and assembles the snapshot. Missing treatments, devicestatus,
// or profile files degrade to empty sections; a missing entries file is the
// one fatal condition of a run.
func LatestSnapshot(dataDir string, logger *zap.Logger) (*defs.Snapshot, error) {
	entriesPath, err := latestFile(dataDir, EntriesPrefix)
	if err != nil {
		return nil, fmt.Errorf("no entries snapshot in %s: %w", dataDir, err)
	}

	treatsPath, _ := latestFile(dataDir, TreatmentsPrefix)
	devPath, _ := latestFile(dataDir, DeviceStatusPrefix)
	profilePath := filepath.Join(dataDir, ProfileFile)

	snap := &defs.Snapshot{
		Readings:   Readings(loadArray(entriesPath, logger)),
		Treatments: Treatments(loadArray(treatsPath, logger)),
		Cycles:     Cycles(loadArray(devPath, logger)),
		Profile:    Profile(loadArray(profilePath, logger)),
		Files: defs.SnapshotFiles{
			Entries:      baseName(entriesPath),
			Treatments:   baseName(treatsPath),
			DeviceStatus: baseName(devPath),
			Profile:      ProfileFile,
		},
	}

	logger.Debug("assembled snapshot",
		zap.String("entries", snap.Files.Entries),
		zap.Int("readings", len(snap.Readings)),
		zap.Int("treatments", len(snap.Treatments)),
		zap.Int("cycles", len(snap.Cycles)),
		zap.Bool("profile", snap.Profile != nil),
	)
	return snap, nil
}

func baseName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

func latestFile(dir, prefix string) (string, error) {
	des, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var names []string
	for _, de := range des {
		if !de.IsDir() && strings.HasPrefix(de.Name(), prefix) {
			names = append(names, de.Name())
		}
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no %s* files", prefix)
	}
	sort.Strings(names)
	return filepath.Join(dir, names[len(names)-1]), nil
}

func loadArray(path string, logger *zap.Logger) []rawRecord {
	if path == "" {
		return nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		logger.Debug("skipping unreadable snapshot file", zap.String("path", path), zap.Error(err))
		return nil
	}
	var rows []rawRecord
	if err := json.Unmarshal(b, &rows); err != nil {
		logger.Debug("skipping unparseable snapshot file", zap.String("path", path), zap.Error(err))
		return nil
	}
	return rows
}

// Readings normalizes raw entry rows into a time-sorted glucose series.
// Duplicates are preserved.
func Readings(rows []rawRecord) []defs.Reading {
	var out []defs.Reading
	for _, r := range rows {
		mg, ok := glucoseValue(r)
		if !ok {
			continue
		}
		t, ok := timeField(r, entryEpochFields, entryTimeFields)
		if !ok {
			continue
		}
		out = append(out, defs.Reading{Time: t, Mgdl: mg})
	}
	series.SortByTime(out)
	return out
}

// Treatments normalizes raw treatment rows. Carbs and insulin stay zero when
// absent or non-numeric; a row with no resolvable timestamp is dropped.
func Treatments(rows []rawRecord) []defs.TreatmentEvent {
	var out []defs.TreatmentEvent
	for _, r := range rows {
		t, ok := timeField(r, treatEpochFields, treatTimeFields)
		if !ok {
			continue
		}
		ev := defs.TreatmentEvent{Time: t}
		if v, ok := numberField(r, "carbs"); ok {
			ev.Carbs = v
		}
		if v, ok := numberField(r, "insulin"); ok {
			ev.Insulin = v
		}
		if s, ok := r["eventType"].(string); ok {
			ev.EventType = s
		}
		if s, ok := r["notes"].(string); ok {
			ev.Notes = s
		}
		out = append(out, ev)
	}
	series.SortByTime(out)
	return out
}

// Cycles extracts loop decision cycles from devicestatus rows. A row without
// a loop payload is not a cycle and is skipped.
func Cycles(rows []rawRecord) []defs.DeviceCycle {
	var out []defs.DeviceCycle
	for _, r := range rows {
		loop, ok := r["loop"].(map[string]any)
		if !ok || len(loop) == 0 {
			continue
		}
		t, ok := cycleTime(r, loop)
		if !ok {
			continue
		}

		dc := defs.DeviceCycle{Time: t}
		if s, ok := loop["failureReason"].(string); ok {
			dc.FailureReason = s
		}
		if pred, ok := loop["predicted"].(map[string]any); ok {
			if vals, ok := pred["values"].([]any); ok {
				for _, v := range vals {
					if f, ok := v.(float64); ok {
						dc.Predicted = append(dc.Predicted, f)
					}
				}
			}
		}
		if enacted, ok := loop["enacted"].(map[string]any); ok {
			dc.EnactedRate = numberPtr(enacted, "rate")
			dc.EnactedBolus = numberPtr(enacted, "bolusVolume")
		}
		dc.RecommendedBolus = numberPtr(loop, "recommendedBolus")
		if rec, ok := loop["automaticDoseRecommendation"].(map[string]any); ok {
			dc.AutoRecBolus = numberPtr(rec, "bolusVolume")
		}
		if iob, ok := loop["iob"].(map[string]any); ok {
			dc.IOB = numberPtr(iob, "iob")
		}
		out = append(out, dc)
	}
	series.SortByTime(out)
	return out
}

// Profile extracts the settings snapshot from the most recent profile row.
// Loop uploads attach loopSettings either nested or at the root; both are
// tried, nested first.
func Profile(rows []rawRecord) *defs.ProfileSettings {
	if len(rows) == 0 {
		return nil
	}
	latest := rows[0]

	settings := latest
	if ls, ok := latest["loopSettings"].(map[string]any); ok {
		settings = ls
	}

	ps := &defs.ProfileSettings{
		MaxBasalRatePerHour: numberPtr(settings, "maximumBasalRatePerHour"),
		MaxBolus:            numberPtr(settings, "maximumBolus"),
		SuspendThreshold:    numberPtr(settings, "minimumBGGuard"),
	}
	if s, ok := settings["dosingStrategy"].(string); ok {
		ps.DosingStrategy = s
	}
	ps.Sensitivity = sensSchedule(latest)
	return ps
}

func sensSchedule(latest rawRecord) []defs.SensitivitySlot {
	store, ok := latest["store"].(map[string]any)
	if !ok {
		return nil
	}
	def, ok := store["Default"].(map[string]any)
	if !ok {
		return nil
	}
	sens, ok := def["sens"].([]any)
	if !ok {
		return nil
	}
	var out []defs.SensitivitySlot
	for _, s := range sens {
		row, ok := s.(map[string]any)
		if !ok {
			continue
		}
		val, ok := row["value"].(float64)
		if !ok {
			continue
		}
		secs := 0
		if v, ok := row["timeAsSeconds"].(float64); ok {
			secs = int(v)
		}
		out = append(out, defs.SensitivitySlot{SecondsFromMidnight: secs, Value: val})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SecondsFromMidnight < out[j].SecondsFromMidnight
	})
	return out
}

func cycleTime(r rawRecord, loop map[string]any) (time.Time, bool) {
	if t, ok := timeField(r, nil, []string{"created_at"}); ok {
		return t, true
	}
	return timeField(loop, nil, []string{"timestamp"})
}

// glucoseValue resolves the first positive value in the glucose alias chain.
// Exporters write 0 as a "not populated" sentinel, so a zero alias falls
// through to the next one; a row with no positive value is dropped.
func glucoseValue(r rawRecord) (float64, bool) {
	for _, f := range glucoseFields {
		if v, ok := r[f].(float64); ok && v > 0 {
			return v, true
		}
	}
	return 0, false
}

// numberField returns the first numeric value among the aliases.
func numberField(r map[string]any, fields ...string) (float64, bool) {
	for _, f := range fields {
		if v, ok := r[f].(float64); ok {
			return v, true
		}
	}
	return 0, false
}

func numberPtr(r map[string]any, field string) *float64 {
	if v, ok := r[field].(float64); ok {
		return &v
	}
	return nil
}

// timeField resolves a timestamp from numeric epoch-millisecond fields first,
// then parseable date strings, in alias order.
func timeField(r map[string]any, epochFields, stringFields []string) (time.Time, bool) {
	for _, f := range epochFields {
		if v, ok := r[f].(float64); ok && v > 0 {
			return time.UnixMilli(int64(v)), true
		}
	}
	for _, f := range stringFields {
		s, ok := r[f].(string)
		if !ok || s == "" {
			continue
		}
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
