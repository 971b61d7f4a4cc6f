// Package types contains shared type definitions used across the nivel_exporter packages.
package types

import "time"

// Order describes how a sample sequence from the API is arranged in time.
type Order int

const (
	// NewestFirst means index 0 holds the most recent reading.
	NewestFirst Order = iota
	// OldestFirst means the last index holds the most recent reading.
	OldestFirst
)

// String returns the configuration spelling of the order.
func (o Order) String() string {
	switch o {
	case NewestFirst:
		return "newest_first"
	case OldestFirst:
		return "oldest_first"
	default:
		return "unknown"
	}
}

// ===== Raw API shapes =====

// LevelRecord is one element of the GET /api/nivel/ array response.
// Numeric and relay fields decode leniently, so one malformed field
// degrades that field only.
type LevelRecord struct {
	WaterLevel     Number `json:"wlevel"`
	WaterVolume    Number `json:"wvol"`
	Pump1          Flag   `json:"pump1"`
	Pump2          Flag   `json:"pump2"`
	ProtectPump1   Flag   `json:"protect_pump1"`
	ProtectPump2   Flag   `json:"protect_pump2"`
	PumpAux        Flag   `json:"pump_aux"`
	A1ContactPump1 Flag   `json:"a1_contact_pump1"`
	A1ContactPump2 Flag   `json:"a1_contact_pump2"`
	Hour           string `json:"hour"`
	CreatedAt      string `json:"created_at"`
	State          Number `json:"state"`
}

// LegacyLevels is the columnar payload served by the legacy GET /api/nivel/ variant.
// Columns are oldest-first and share indices.
type LegacyLevels struct {
	StateData []Number `json:"state_data"`
	LevelData []Number `json:"pump1_data"`
	TimeData  []string `json:"time_data"`
}

// Bucket is one element of the GET /api/nivel/last4h response.
type Bucket struct {
	Hour       string `json:"hour"`
	WaterLevel Number `json:"wlevel"`
}

// ===== Domain shapes =====

// PumpFlags holds the relay states of one reading. Missing relays are off.
type PumpFlags struct {
	Pump1          bool `json:"pump1"`
	Pump2          bool `json:"pump2"`
	ProtectPump1   bool `json:"protect_pump1"`
	ProtectPump2   bool `json:"protect_pump2"`
	PumpAux        bool `json:"pump_aux"`
	A1ContactPump1 bool `json:"a1_contact_pump1"`
	A1ContactPump2 bool `json:"a1_contact_pump2"`
}

// Sample is one telemetry reading.
type Sample struct {
	Timestamp         time.Time // zero when the API gave no usable time
	WaterLevelPercent *float64
	WaterVolumeLiters *float64
	StatusRegister    *int64
	Pumps             PumpFlags
}

// SampleSet is a sample sequence together with the order it arrived in.
type SampleSet struct {
	Samples []Sample
	Order   Order
}

// Rate is a per-minute change estimate.
type Rate struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Point is one chart sample.
type Point struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// ChartWindow parameterises the time axis of the level history chart.
type ChartWindow struct {
	Start time.Time   `json:"start"`
	End   time.Time   `json:"end"`
	Ticks []time.Time `json:"ticks"`
}

// StatusFlags holds the decoded bits of the legacy status register.
type StatusFlags struct {
	Running bool `json:"running"`
	Loaded  bool `json:"loaded"`
	Alarm   bool `json:"alarm"`
	Warning bool `json:"warning"`
}

// Indicator is one on/off relay lamp of the dashboard.
type Indicator struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	On    bool   `json:"on"`
	State string `json:"state"`
}

// DerivedView is the full set of display values computed for one poll cycle.
type DerivedView struct {
	CycleID           string       `json:"cycle_id"`
	Seq               uint64       `json:"seq"`
	GeneratedAt       time.Time    `json:"generated_at"`
	SampleTime        time.Time    `json:"sample_time"`
	WaterLevelPercent float64      `json:"water_level_percent"`
	WaterVolumeLiters *float64     `json:"water_volume_liters"`
	StatusText        string       `json:"status_text"`
	StatusFlags       *StatusFlags `json:"status_flags,omitempty"`
	ConsumptionRate   *Rate        `json:"consumption_rate_per_minute"`
	Series            []Point      `json:"series"`
	Window            ChartWindow  `json:"window"`
	Pumps             PumpFlags    `json:"pumps"`
	Indicators        []Indicator  `json:"indicators"`
}
