// Package collector implements the Prometheus collector interface for the derived water-tank view.
package collector

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"nivel_exporter/internal/mapper"
	"nivel_exporter/internal/types"
)

// ViewSource provides the latest derived view and the outcome of the last poll.
type ViewSource interface {
	Latest() (types.DerivedView, bool)
	Status() (ok bool, message string)
}

// NivelCollector implements prometheus.Collector over the poller's latest view.
// It also records poll outcomes, so it can be passed to the poller as its observer.
type NivelCollector struct {
	source  ViewSource
	metrics *MetricSet
}

// NewNivelCollector creates a new collector labelled with tank.
func NewNivelCollector(tank string) *NivelCollector {
	return &NivelCollector{metrics: newMetricSet(tank)}
}

// SetSource attaches the view source. It must be called before registration.
func (c *NivelCollector) SetSource(source ViewSource) {
	c.source = source
}

// ObservePoll records the duration and outcome of one poll cycle.
func (c *NivelCollector) ObservePoll(duration time.Duration, err error) {
	c.metrics.pollDuration.Observe(duration.Seconds())
	if err != nil {
		c.metrics.pollErrors.Inc()
	}
}

// Describe implements prometheus.Collector.
func (c *NivelCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.metrics.waterLevel
	ch <- c.metrics.waterVolume
	ch <- c.metrics.consumptionRate
	ch <- c.metrics.lastSampleUnix
	ch <- c.metrics.relayState
	ch <- c.metrics.statusFlag
	ch <- c.metrics.up

	c.metrics.pollErrors.Describe(ch)
	c.metrics.pollDuration.Describe(ch)
}

// Collect implements prometheus.Collector.
// It reads the cached view; it never triggers a fetch.
func (c *NivelCollector) Collect(ch chan<- prometheus.Metric) {
	c.metrics.pollErrors.Collect(ch)
	c.metrics.pollDuration.Collect(ch)

	if c.source == nil {
		return
	}

	ok, _ := c.source.Status()
	upValue := 0.0
	if ok {
		upValue = 1.0
	}
	ch <- prometheus.MustNewConstMetric(c.metrics.up, prometheus.GaugeValue, upValue)

	view, has := c.source.Latest()
	if !has {
		return
	}

	c.emitLevelMetrics(ch, view)
	c.emitRelayMetrics(ch, view.Pumps)
	c.emitStatusMetrics(ch, view.StatusFlags)
}

// emitLevelMetrics emits level, volume and consumption metrics.
func (c *NivelCollector) emitLevelMetrics(ch chan<- prometheus.Metric, view types.DerivedView) {
	ch <- prometheus.MustNewConstMetric(c.metrics.waterLevel, prometheus.GaugeValue, view.WaterLevelPercent)

	if view.WaterVolumeLiters != nil {
		ch <- prometheus.MustNewConstMetric(c.metrics.waterVolume, prometheus.GaugeValue, *view.WaterVolumeLiters)
	}

	if view.ConsumptionRate != nil {
		ch <- prometheus.MustNewConstMetric(c.metrics.consumptionRate, prometheus.GaugeValue,
			view.ConsumptionRate.Value, view.ConsumptionRate.Unit)
	}

	if !view.SampleTime.IsZero() {
		ch <- prometheus.MustNewConstMetric(c.metrics.lastSampleUnix, prometheus.GaugeValue, float64(view.SampleTime.Unix()))
	}
}

// emitRelayMetrics emits one gauge per relay.
func (c *NivelCollector) emitRelayMetrics(ch chan<- prometheus.Metric, pumps types.PumpFlags) {
	for relay, on := range mapper.RelayStates(pumps) {
		ch <- prometheus.MustNewConstMetric(c.metrics.relayState, prometheus.GaugeValue, boolValue(on), relay)
	}
}

// emitStatusMetrics emits status register flags when the latest sample carried a register.
func (c *NivelCollector) emitStatusMetrics(ch chan<- prometheus.Metric, flags *types.StatusFlags) {
	if flags == nil {
		return
	}
	for name, set := range mapper.StatusFlagMap(*flags) {
		ch <- prometheus.MustNewConstMetric(c.metrics.statusFlag, prometheus.GaugeValue, boolValue(set), name)
	}
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
