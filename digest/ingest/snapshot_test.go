package ingest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type IngestTestSuite struct {
	suite.Suite
	logger *zap.Logger
}

func TestIngestTestSuite(t *testing.T) {
	suite.Run(t, new(IngestTestSuite))
}

func (suite *IngestTestSuite) SetupSuite() {
	suite.logger = zap.NewNop()
}

func (suite *IngestTestSuite) TestReadingsAliasChain() {
	rows := []rawRecord{
		{"sgv": 120.0, "date": 1.7e12},
		{"mgdl": 130.0, "dateString": "2026-03-02T12:05:00Z"},
		{"mgdL": 140.0, "dateString": "2026-03-02T12:10:00Z"},
	}
	rs := Readings(rows)
	require.Len(suite.T(), rs, 3)
	assert.Equal(suite.T(), 120.0, rs[0].Mgdl)
	assert.Equal(suite.T(), time.UnixMilli(1.7e12), rs[0].Time)
}

func (suite *IngestTestSuite) TestReadingsDropMalformedRows() {
	rows := []rawRecord{
		{"sgv": 120.0, "dateString": "2026-03-02T12:00:00Z"},
		{"sgv": "not a number", "dateString": "2026-03-02T12:05:00Z"},
		{"sgv": 125.0}, // no timestamp
		{"dateString": "2026-03-02T12:10:00Z"}, // no value
		{"sgv": 130.0, "dateString": "yesterday-ish"},
	}
	rs := Readings(rows)
	assert.Len(suite.T(), rs, 1, "malformed rows drop silently, valid rows survive")
}

func (suite *IngestTestSuite) TestReadingsZeroSentinelFallsThrough() {
	rows := []rawRecord{
		{"sgv": 0.0, "mgdl": 120.0, "dateString": "2026-03-02T12:00:00Z"},
		{"sgv": 0.0, "mgdl": 0.0, "dateString": "2026-03-02T12:05:00Z"},
		{"sgv": -1.0, "dateString": "2026-03-02T12:10:00Z"},
	}
	rs := Readings(rows)
	require.Len(suite.T(), rs, 1, "rows with no positive value carry no measurement")
	assert.Equal(suite.T(), 120.0, rs[0].Mgdl, "a zero sentinel falls through to the next alias")
}

func (suite *IngestTestSuite) TestReadingsSorted() {
	rows := []rawRecord{
		{"sgv": 130.0, "dateString": "2026-03-02T12:10:00Z"},
		{"sgv": 120.0, "dateString": "2026-03-02T12:00:00Z"},
	}
	rs := Readings(rows)
	require.Len(suite.T(), rs, 2)
	assert.True(suite.T(), rs[0].Time.Before(rs[1].Time))
}

func (suite *IngestTestSuite) TestTreatmentsEpochBeforeString() {
	// mills wins over created_at when both are present.
	rows := []rawRecord{
		{"mills": 1.7e12, "created_at": "2026-03-02T12:00:00Z", "carbs": 40.0, "insulin": 3.0, "eventType": "Meal Bolus", "notes": "pasta"},
	}
	ts := Treatments(rows)
	require.Len(suite.T(), ts, 1)
	assert.Equal(suite.T(), time.UnixMilli(1.7e12), ts[0].Time)
	assert.Equal(suite.T(), 40.0, ts[0].Carbs)
	assert.Equal(suite.T(), 3.0, ts[0].Insulin)
	assert.Equal(suite.T(), "Meal Bolus", ts[0].EventType)
	assert.Equal(suite.T(), "pasta", ts[0].Notes)
}

func (suite *IngestTestSuite) TestTreatmentsMissingAmountsAreZero() {
	rows := []rawRecord{{"created_at": "2026-03-02T12:00:00Z"}}
	ts := Treatments(rows)
	require.Len(suite.T(), ts, 1)
	assert.Equal(suite.T(), 0.0, ts[0].Carbs)
	assert.Equal(suite.T(), 0.0, ts[0].Insulin)
}

func (suite *IngestTestSuite) TestCycles() {
	rows := []rawRecord{
		{
			"created_at": "2026-03-02T12:00:00Z",
			"loop": map[string]any{
				"predicted": map[string]any{"values": []any{110.0, 95.0, 88.0}},
				"enacted":   map[string]any{"rate": 0.0, "bolusVolume": 0.15},
				"iob":       map[string]any{"iob": 1.2},
				"automaticDoseRecommendation": map[string]any{"bolusVolume": 0.3},
			},
		},
		{
			// no created_at; falls back to loop.timestamp
			"loop": map[string]any{
				"timestamp":     "2026-03-02T12:05:00Z",
				"failureReason": "sensor gap",
			},
		},
		{"uploader": map[string]any{"battery": 80.0}}, // no loop payload
	}
	cs := Cycles(rows)
	require.Len(suite.T(), cs, 2)

	assert.Equal(suite.T(), []float64{110, 95, 88}, cs[0].Predicted)
	assert.Equal(suite.T(), 88.0, *cs[0].MinPredicted())
	assert.Equal(suite.T(), 0.0, *cs[0].EnactedRate)
	assert.Equal(suite.T(), 0.15, *cs[0].EnactedBolus)
	assert.Equal(suite.T(), 0.3, *cs[0].AutoRecBolus)
	assert.Equal(suite.T(), 1.2, *cs[0].IOB)
	assert.False(suite.T(), cs[0].Failed())

	assert.True(suite.T(), cs[1].Failed())
	assert.Nil(suite.T(), cs[1].MinPredicted())
}

func (suite *IngestTestSuite) TestProfile() {
	rows := []rawRecord{
		{
			"loopSettings": map[string]any{
				"maximumBasalRatePerHour": 2.5,
				"maximumBolus":            6.0,
				"minimumBGGuard":          75.0,
				"dosingStrategy":          "automaticBolus",
			},
			"store": map[string]any{
				"Default": map[string]any{
					"sens": []any{
						map[string]any{"timeAsSeconds": 21600.0, "value": 40.0},
						map[string]any{"timeAsSeconds": 0.0, "value": 50.0},
					},
				},
			},
		},
	}
	ps := Profile(rows)
	require.NotNil(suite.T(), ps)
	assert.Equal(suite.T(), 2.5, *ps.MaxBasalRatePerHour)
	assert.Equal(suite.T(), 6.0, *ps.MaxBolus)
	assert.Equal(suite.T(), 75.0, *ps.SuspendThreshold)
	assert.Equal(suite.T(), "automaticBolus", ps.DosingStrategy)

	require.Len(suite.T(), ps.Sensitivity, 2)
	assert.Equal(suite.T(), 0, ps.Sensitivity[0].SecondsFromMidnight, "schedule sorted by time")
	assert.Equal(suite.T(), 50.0, *ps.ISFAtHour(3))
	assert.Equal(suite.T(), 40.0, *ps.ISFAtHour(12))
}

func (suite *IngestTestSuite) TestProfileEmpty() {
	assert.Nil(suite.T(), Profile(nil))
}

func (suite *IngestTestSuite) TestLatestSnapshotPicksNewestFiles() {
	dir := suite.T().TempDir()
	suite.writeFile(dir, "ns_entries_2026-02-01.json",
		`[{"sgv": 100, "dateString": "2026-02-01T08:00:00Z"}]`)
	suite.writeFile(dir, "ns_entries_2026-03-01.json",
		`[{"sgv": 110, "dateString": "2026-03-01T08:00:00Z"}, {"sgv": 115, "dateString": "2026-03-01T08:05:00Z"}]`)
	suite.writeFile(dir, "ns_treatments_2026-03-01.json",
		`[{"created_at": "2026-03-01T08:00:00Z", "carbs": 30}]`)

	snap, err := LatestSnapshot(dir, suite.logger)
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "ns_entries_2026-03-01.json", snap.Files.Entries)
	assert.Len(suite.T(), snap.Readings, 2, "older entries file is ignored")
	assert.Len(suite.T(), snap.Treatments, 1)
	assert.Empty(suite.T(), snap.Cycles, "missing devicestatus degrades to empty")
	assert.Nil(suite.T(), snap.Profile)
	assert.Equal(suite.T(), "", snap.Files.DeviceStatus)
}

func (suite *IngestTestSuite) TestLatestSnapshotRequiresEntries() {
	dir := suite.T().TempDir()
	suite.writeFile(dir, "ns_treatments_2026-03-01.json", `[]`)

	_, err := LatestSnapshot(dir, suite.logger)
	assert.Error(suite.T(), err)
}

func (suite *IngestTestSuite) writeFile(dir, name, content string) {
	err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644)
	require.NoError(suite.T(), err)
}
