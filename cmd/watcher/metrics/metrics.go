// Package metrics provides Prometheus metrics instrumentation for the
// watcher.
//
// It exposes operational metrics about the polling loop: request duration,
// poll outcomes, how long confirmation took to detect, the state of the
// learned observation window, and the remaining rate-limit budget. All
// metrics are exposed via the /metrics HTTP endpoint for Prometheus
// scraping.
//
// Metrics exposed:
//   - pricewatch_poll_request_seconds: Histogram of API poll duration
//   - pricewatch_polls_total: Counter of polls by result (estimate, confirmed, rate_limited, error)
//   - pricewatch_detection_delay_seconds: Histogram of elapsed seconds at confirmation
//   - pricewatch_observation_count: Gauge of observations in the rolling window
//   - pricewatch_blend_weight: Gauge of the current schedule blend weight
//   - pricewatch_budget_remaining: Gauge of the remaining rate-limit budget
//   - pricewatch_errors_total: Counter of errors by component and reason
//
// All metrics carry the site label.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the watcher.
type Metrics struct {
	PollRequestSeconds    prometheus.Histogram
	PollsTotal            *prometheus.CounterVec
	DetectionDelaySeconds prometheus.Histogram
	ObservationCount      prometheus.Gauge
	BlendWeight           prometheus.Gauge
	BudgetRemaining       prometheus.Gauge
	ErrorsTotal           *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics.
func New(site string) *Metrics {
	return &Metrics{
		PollRequestSeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "pricewatch_poll_request_seconds",
			Help: "Time spent polling the price API",
			ConstLabels: prometheus.Labels{
				"site": site,
			},
			Buckets: prometheus.DefBuckets,
		}),

		PollsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_polls_total",
			Help: "Total polls by result",
			ConstLabels: prometheus.Labels{
				"site": site,
			},
		}, []string{"result"}),

		DetectionDelaySeconds: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "pricewatch_detection_delay_seconds",
			Help: "Elapsed seconds into the interval when the confirmed price was detected",
			ConstLabels: prometheus.Labels{
				"site": site,
			},
			// Confirmation typically lands well inside the first minute.
			Buckets: []float64{5, 10, 15, 20, 30, 45, 60, 90, 120, 180, 300},
		}),

		ObservationCount: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pricewatch_observation_count",
			Help: "Observations currently in the rolling window",
			ConstLabels: prometheus.Labels{
				"site": site,
			},
		}),

		BlendWeight: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pricewatch_blend_weight",
			Help: "Current blend weight between the learned and uniform schedules",
			ConstLabels: prometheus.Labels{
				"site": site,
			},
		}),

		BudgetRemaining: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "pricewatch_budget_remaining",
			Help: "Remaining rate-limit budget from the last API response",
			ConstLabels: prometheus.Labels{
				"site": site,
			},
		}),

		ErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "pricewatch_errors_total",
			Help: "Total number of errors by component and reason",
			ConstLabels: prometheus.Labels{
				"site": site,
			},
		}, []string{"component", "reason"}),
	}
}

// RecordPoll records a completed poll with its duration and result.
func (m *Metrics) RecordPoll(seconds float64, result string) {
	m.PollRequestSeconds.Observe(seconds)
	m.PollsTotal.WithLabelValues(result).Inc()
}

// RecordDetectionDelay records how far into the interval confirmation was
// detected.
func (m *Metrics) RecordDetectionDelay(seconds float64) {
	m.DetectionDelaySeconds.Observe(seconds)
}

// SetObservationCount sets the current rolling window size.
func (m *Metrics) SetObservationCount(count int) {
	m.ObservationCount.Set(float64(count))
}

// SetBlendWeight sets the current blend weight.
func (m *Metrics) SetBlendWeight(w float64) {
	m.BlendWeight.Set(w)
}

// SetBudgetRemaining sets the remaining rate-limit budget.
func (m *Metrics) SetBudgetRemaining(remaining int) {
	m.BudgetRemaining.Set(float64(remaining))
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}
