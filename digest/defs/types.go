package defs

import "time"

type TimePoint interface {
	GetTime() time.Time
}

// Reading is a single CGM measurement in mg/dL.
type Reading struct {
	Time time.Time `json:"time"`
	Mgdl float64   `json:"mgdl"`
}

func (r Reading) GetTime() time.Time {
	return r.Time
}

// TreatmentEvent is a dosing or meal record. Carbs and Insulin are zero when
// the source row carried no such field; classification is derived per
// analysis, never stored here.
type TreatmentEvent struct {
	Time      time.Time `json:"time"`
	Carbs     float64   `json:"carbs,omitempty"`
	Insulin   float64   `json:"insulin,omitempty"`
	EventType string    `json:"eventType,omitempty"`
	Notes     string    `json:"notes,omitempty"`
}

func (t TreatmentEvent) GetTime() time.Time {
	return t.Time
}

// DeviceCycle is one automated-dosing-loop decision cycle. A devicestatus row
// with no loop payload at all is not a cycle and is dropped at ingest.
type DeviceCycle struct {
	Time             time.Time `json:"time"`
	Predicted        []float64 `json:"predicted,omitempty"`
	EnactedRate      *float64  `json:"enactedRate,omitempty"`
	EnactedBolus     *float64  `json:"enactedBolus,omitempty"`
	RecommendedBolus *float64  `json:"recommendedBolus,omitempty"`
	AutoRecBolus     *float64  `json:"autoRecBolus,omitempty"`
	IOB              *float64  `json:"iob,omitempty"`
	FailureReason    string    `json:"failureReason,omitempty"`
}

func (dc DeviceCycle) GetTime() time.Time {
	return dc.Time
}

// Failed reports whether the cycle ended in a communication/dosing failure.
func (dc *DeviceCycle) Failed() bool {
	return dc.FailureReason != ""
}

// MinPredicted returns the lowest predicted glucose of the cycle, or nil when
// the cycle carried no prediction.
func (dc *DeviceCycle) MinPredicted() *float64 {
	if len(dc.Predicted) == 0 {
		return nil
	}
	min := dc.Predicted[0]
	for _, v := range dc.Predicted[1:] {
		if v < min {
			min = v
		}
	}
	return &min
}

// SensitivitySlot is one entry of the ISF schedule, effective from
// SecondsFromMidnight until superseded by the next slot.
type SensitivitySlot struct {
	SecondsFromMidnight int     `json:"secondsFromMidnight"`
	Value               float64 `json:"value"`
}

// ProfileSettings is the most recent device configuration snapshot. Limit
// fields are nil when the profile did not carry them.
type ProfileSettings struct {
	MaxBasalRatePerHour *float64          `json:"maxBasalRatePerHour,omitempty"`
	MaxBolus            *float64          `json:"maxBolus,omitempty"`
	SuspendThreshold    *float64          `json:"suspendThreshold,omitempty"`
	DosingStrategy      string            `json:"dosingStrategy,omitempty"`
	Sensitivity         []SensitivitySlot `json:"sensitivity,omitempty"`
}

// ISFAtHour returns the sensitivity factor in effect at the given local hour,
// or nil when the schedule is empty.
func (ps *ProfileSettings) ISFAtHour(hour int) *float64 {
	var val *float64
	best := -1.0
	for i := range ps.Sensitivity {
		th := float64(ps.Sensitivity[i].SecondsFromMidnight) / 3600
		if th <= float64(hour) && th > best {
			best = th
			val = &ps.Sensitivity[i].Value
		}
	}
	return val
}

// SnapshotFiles records which source files a snapshot was assembled from.
type SnapshotFiles struct {
	Entries      string `json:"entries,omitempty"`
	Treatments   string `json:"treatments,omitempty"`
	DeviceStatus string `json:"devicestatus,omitempty"`
	Profile      string `json:"profile,omitempty"`
}

// Snapshot is one closed dataset: everything a batch run computes over.
// Readings are sorted ascending by time; duplicates are preserved.
type Snapshot struct {
	Readings   []Reading
	Treatments []TreatmentEvent
	Cycles     []DeviceCycle
	Profile    *ProfileSettings
	Files      SnapshotFiles
}
