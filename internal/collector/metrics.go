package collector

import (
	"github.com/prometheus/client_golang/prometheus"

	"nivel_exporter/internal/mapper"
)

// MetricSet holds all Prometheus metric descriptors for the nivel exporter.
type MetricSet struct {
	// Level metrics
	waterLevel      *prometheus.Desc
	waterVolume     *prometheus.Desc
	consumptionRate *prometheus.Desc
	lastSampleUnix  *prometheus.Desc

	// Relay and status metrics
	relayState *prometheus.Desc
	statusFlag *prometheus.Desc

	// Poll metrics
	up           *prometheus.Desc
	pollErrors   prometheus.Counter
	pollDuration prometheus.Histogram
}

// newMetricSet creates all metric descriptors.
func newMetricSet(tank string) *MetricSet {
	constLabels := prometheus.Labels{mapper.LabelTank: tank}

	return &MetricSet{
		waterLevel: prometheus.NewDesc(
			"nivel_water_level_percent",
			"Water level of the latest sample (%)",
			nil, constLabels,
		),
		waterVolume: prometheus.NewDesc(
			"nivel_water_volume_liters",
			"Water volume of the latest sample (L)",
			nil, constLabels,
		),
		consumptionRate: prometheus.NewDesc(
			"nivel_consumption_rate_per_minute",
			"Estimated consumption per minute over the last hour; positive means draining",
			[]string{mapper.LabelUnit}, constLabels,
		),
		lastSampleUnix: prometheus.NewDesc(
			"nivel_last_sample_unix",
			"Timestamp of the latest sample (unix seconds)",
			nil, constLabels,
		),

		relayState: prometheus.NewDesc(
			"nivel_relay_state",
			"Relay state (1 on, 0 off)",
			[]string{mapper.LabelRelay}, constLabels,
		),
		statusFlag: prometheus.NewDesc(
			"nivel_status_flag",
			"Status register flag (1 set, 0 clear)",
			[]string{mapper.LabelFlag}, constLabels,
		),

		up: prometheus.NewDesc(
			"nivel_up",
			"Whether the last poll cycle succeeded (1) or failed (0)",
			nil, constLabels,
		),
		pollErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "nivel_poll_errors_total",
			Help:        "Total number of failed poll cycles",
			ConstLabels: constLabels,
		}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "nivel_poll_duration_seconds",
			Help:        "Time spent fetching and deriving one poll cycle",
			ConstLabels: constLabels,
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
	}
}
