package mapper

import (
	"time"

	"nivel_exporter/internal/types"
)

// SamplesFromRecords converts array-endpoint records to samples, preserving their order.
// The timestamp comes from hour, or from created_at when hour is blank.
func SamplesFromRecords(records []types.LevelRecord) []types.Sample {
	result := make([]types.Sample, 0, len(records))
	for _, r := range records {
		ts := ParseTime(Safe(r.Hour, r.CreatedAt))
		result = append(result, types.Sample{
			Timestamp:         ts,
			WaterLevelPercent: finite(r.WaterLevel),
			WaterVolumeLiters: finite(r.WaterVolume),
			StatusRegister:    register(r.State),
			Pumps: types.PumpFlags{
				Pump1:          bool(r.Pump1),
				Pump2:          bool(r.Pump2),
				ProtectPump1:   bool(r.ProtectPump1),
				ProtectPump2:   bool(r.ProtectPump2),
				PumpAux:        bool(r.PumpAux),
				A1ContactPump1: bool(r.A1ContactPump1),
				A1ContactPump2: bool(r.A1ContactPump2),
			},
		})
	}
	return result
}

// SamplesFromLegacy converts the legacy columnar payload to oldest-first samples.
// Columns of unequal length are cut to the longest of state or level data; missing
// cells become missing fields. Bare clock labels are placed on the calendar day of
// ref, stepping back a day for labels that would otherwise lie after ref.
func SamplesFromLegacy(legacy types.LegacyLevels, ref time.Time) []types.Sample {
	n := len(legacy.StateData)
	if len(legacy.LevelData) > n {
		n = len(legacy.LevelData)
	}

	result := make([]types.Sample, 0, n)
	for i := 0; i < n; i++ {
		var s types.Sample
		if i < len(legacy.StateData) {
			s.StatusRegister = register(legacy.StateData[i])
		}
		if i < len(legacy.LevelData) {
			s.WaterLevelPercent = finite(legacy.LevelData[i])
		}
		if i < len(legacy.TimeData) {
			s.Timestamp = legacyTime(legacy.TimeData[i], ref)
		}
		result = append(result, s)
	}
	return result
}

// Chronological returns the samples of set oldest-first without modifying set.
func Chronological(set types.SampleSet) []types.Sample {
	out := make([]types.Sample, len(set.Samples))
	copy(out, set.Samples)
	if set.Order == types.NewestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// Latest returns the most recent sample of set.
func Latest(set types.SampleSet) (types.Sample, bool) {
	if len(set.Samples) == 0 {
		return types.Sample{}, false
	}
	if set.Order == types.NewestFirst {
		return set.Samples[0], true
	}
	return set.Samples[len(set.Samples)-1], true
}

func legacyTime(label string, ref time.Time) time.Time {
	if t := ParseTimeIn(label, ref.Location()); !t.IsZero() {
		return t
	}
	t := parseClock(label, ref)
	if !t.IsZero() && t.After(ref) {
		t = t.AddDate(0, 0, -1)
	}
	return t
}

// register truncates a JSON number to an integer register value, as a JS bitwise operand would be.
func register(n types.Number) *int64 {
	v, ok := n.Float64()
	if !ok {
		return nil
	}
	r := int64(v)
	return &r
}

func finite(n types.Number) *float64 {
	v, ok := n.Float64()
	if !ok {
		return nil
	}
	return &v
}
