package mapper

import (
	"sort"
	"time"

	"nivel_exporter/internal/types"
)

// BuildWindow returns the trailing two-hour chart window ending at now, with ticks
// every 30 minutes starting at the half-hour boundary at or before the window start.
// Boundaries are taken on the wall clock of now's location.
func BuildWindow(now time.Time) types.ChartWindow {
	start := now.Add(-WindowSpan)

	y, m, d := start.Date()
	stepMin := int(TickInterval / time.Minute)
	cursor := time.Date(y, m, d, start.Hour(), start.Minute()-start.Minute()%stepMin, 0, 0, start.Location())

	ticks := make([]time.Time, 0, int(WindowSpan/TickInterval)+1)
	for !cursor.After(now) {
		ticks = append(ticks, cursor)
		cursor = cursor.Add(TickInterval)
	}

	return types.ChartWindow{Start: start, End: now, Ticks: ticks}
}

// SeriesFromBuckets converts last4h buckets to chart points sorted by time.
// Buckets without a parseable hour or level are skipped.
func SeriesFromBuckets(buckets []types.Bucket) []types.Point {
	points := make([]types.Point, 0, len(buckets))
	for _, b := range buckets {
		ts := ParseTime(b.Hour)
		level, ok := b.WaterLevel.Float64()
		if ts.IsZero() || !ok {
			continue
		}
		points = append(points, types.Point{Time: ts, Value: level})
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time.Before(points[j].Time)
	})
	return points
}

// SeriesFromSamples returns the level history of set oldest-first.
func SeriesFromSamples(set types.SampleSet) []types.Point {
	ordered := Chronological(set)
	points := make([]types.Point, 0, len(ordered))
	for _, s := range ordered {
		if s.Timestamp.IsZero() || s.WaterLevelPercent == nil {
			continue
		}
		points = append(points, types.Point{Time: s.Timestamp, Value: *s.WaterLevelPercent})
	}
	return points
}
