package mapper

import (
	"math"

	"nivel_exporter/internal/types"
)

// ConsumptionRate estimates the per-minute change between the latest sample and a
// reference sample about one hour older.
//
// The reference is the most recent sample taken at or before latest-1h, falling back
// to the oldest sample. Volume is preferred over level percentage when both ends carry
// it. A positive rate means the tank is draining. Returns nil when no pair of readings
// is available.
func ConsumptionRate(set types.SampleSet) *types.Rate {
	ordered := Chronological(set)
	n := len(ordered)
	if n < 2 {
		return nil
	}

	latest := ordered[n-1]
	if latest.Timestamp.IsZero() {
		return nil
	}

	target := latest.Timestamp.Add(-referenceLookback)
	refIdx := 0
	for i := n - 2; i >= 0; i-- {
		ts := ordered[i].Timestamp
		if !ts.IsZero() && !ts.After(target) {
			refIdx = i
			break
		}
	}

	ref := ordered[refIdx]
	if ref.Timestamp.IsZero() {
		return nil
	}

	minutes := math.Max(1, roundHalfUp(latest.Timestamp.Sub(ref.Timestamp).Minutes(), 0))

	if ref.WaterVolumeLiters != nil && latest.WaterVolumeLiters != nil {
		perMin := (*ref.WaterVolumeLiters - *latest.WaterVolumeLiters) / minutes
		return &types.Rate{Value: roundHalfUp(perMin, 1), Unit: UnitLitersPerMinute}
	}

	if ref.WaterLevelPercent != nil && latest.WaterLevelPercent != nil {
		perMin := (*ref.WaterLevelPercent - *latest.WaterLevelPercent) / minutes
		return &types.Rate{Value: roundHalfUp(perMin, 2), Unit: UnitPercentPerMinute}
	}

	return nil
}

// roundHalfUp rounds f to the given number of decimals, with halves going toward +Inf.
func roundHalfUp(f float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Floor(f*scale+0.5) / scale
}
