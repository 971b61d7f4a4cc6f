package mapper

import (
	"errors"
	"time"

	"nivel_exporter/internal/types"
)

// ErrNoSamples is returned when a view is requested from an empty sample set.
var ErrNoSamples = errors.New("no samples")

// DeriveInput carries everything one poll cycle needs to build its view.
type DeriveInput struct {
	Set            types.SampleSet
	Buckets        []types.Bucket // optional last4h history; preferred for the series when non-empty
	Now            time.Time
	PrevStatusText string
	Labels         StatusLabels
}

// Derive computes the display values for one poll cycle.
// The result depends only on in; CycleID, Seq and GeneratedAt are left for the caller.
func Derive(in DeriveInput) (types.DerivedView, error) {
	latest, ok := Latest(in.Set)
	if !ok {
		return types.DerivedView{}, ErrNoSamples
	}

	view := types.DerivedView{
		SampleTime:      latest.Timestamp,
		StatusText:      UpdateStatusText(latest.StatusRegister, in.PrevStatusText, in.Labels),
		ConsumptionRate: ConsumptionRate(in.Set),
		Window:          BuildWindow(in.Now),
		Pumps:           latest.Pumps,
		Indicators:      Indicators(latest.Pumps),
	}

	if latest.WaterLevelPercent != nil {
		view.WaterLevelPercent = *latest.WaterLevelPercent
	}
	if latest.WaterVolumeLiters != nil {
		v := *latest.WaterVolumeLiters
		view.WaterVolumeLiters = &v
	}
	if latest.StatusRegister != nil {
		flags := DecodeStatus(*latest.StatusRegister)
		view.StatusFlags = &flags
	}

	if series := SeriesFromBuckets(in.Buckets); len(series) > 0 {
		view.Series = series
	} else {
		view.Series = SeriesFromSamples(in.Set)
	}

	return view, nil
}
