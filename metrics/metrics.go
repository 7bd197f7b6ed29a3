// Package metrics provides Prometheus metrics for the explorer and the simulator.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcomes of a simulated run.
const (
	OutcomeDecided   = "decided"
	OutcomeStalled   = "stalled"
	OutcomeTruncated = "truncated"
	OutcomeViolated  = "violated"
	OutcomeError     = "error"
)

// Metrics holds the Prometheus metrics of a checking session.
// All methods are safe to call on a nil *Metrics, in which case nothing is recorded.
type Metrics struct {
	// Exploration metrics
	StatesExplored prometheus.Counter
	StatesSkipped  prometheus.Counter
	FrontierSize   prometheus.Gauge

	// Action metrics. Losses and crashes are counted under the LoseMessage and NodeCrash actions.
	StepsTotal *prometheus.CounterVec

	// Run metrics
	RunsTotal *prometheus.CounterVec
	RunLength prometheus.Histogram

	// Property metrics
	ViolationsTotal *prometheus.CounterVec
	StallsTotal     prometheus.Counter

	// RPC metrics
	RequestsTotal *prometheus.CounterVec
	SessionsOpen  prometheus.Gauge
}

// NewMetrics creates the metrics with the given namespace and registers them with reg.
// If reg is nil the metrics are not registered.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		StatesExplored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "states_explored_total",
			Help:      "Total number of distinct snapshots explored",
		}),
		StatesSkipped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "states_skipped_total",
			Help:      "Total number of snapshots skipped because they had already been explored",
		}),
		FrontierSize: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frontier_size",
			Help:      "Current number of snapshots waiting to be explored",
		}),

		StepsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Total number of applied actions by action",
		}, []string{"action"}),

		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Total number of simulated runs by outcome",
		}, []string{"outcome"}),
		RunLength: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_length",
			Help:      "Number of actions per simulated run",
			Buckets:   []float64{5, 10, 20, 40, 80, 160, 320},
		}),

		ViolationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "violations_total",
			Help:      "Total number of invariant violations by property",
		}, []string{"property"}),
		StallsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stalls_total",
			Help:      "Total number of terminal snapshots where a correct node has not decided",
		}),

		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "Total number of driver requests by method and status code",
		}, []string{"method", "code"}),
		SessionsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rpc_sessions_open",
			Help:      "Current number of open driver sessions",
		}),
	}
}

// RecordState records an explored snapshot. skipped is true if the snapshot had been explored before.
func (m *Metrics) RecordState(skipped bool) {
	if m == nil {
		return
	}
	if skipped {
		m.StatesSkipped.Inc()
		return
	}
	m.StatesExplored.Inc()
}

// UpdateFrontier updates the frontier gauge.
func (m *Metrics) UpdateFrontier(size int) {
	if m == nil {
		return
	}
	m.FrontierSize.Set(float64(size))
}

// RecordStep records an applied action.
func (m *Metrics) RecordStep(action string) {
	if m == nil {
		return
	}
	m.StepsTotal.WithLabelValues(action).Inc()
}

// RecordRun records a completed run.
func (m *Metrics) RecordRun(outcome string, length int) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RunLength.Observe(float64(length))
}

// RecordViolation records a broken safety property.
func (m *Metrics) RecordViolation(property string) {
	if m == nil {
		return
	}
	m.ViolationsTotal.WithLabelValues(property).Inc()
}

// RecordStall records a terminal snapshot where some correct node has not decided.
func (m *Metrics) RecordStall() {
	if m == nil {
		return
	}
	m.StallsTotal.Inc()
}

// RecordRequest records a served driver request.
func (m *Metrics) RecordRequest(method, code string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, code).Inc()
}

// UpdateSessions updates the open sessions gauge.
func (m *Metrics) UpdateSessions(open int) {
	if m == nil {
		return
	}
	m.SessionsOpen.Set(float64(open))
}

// Handler returns an http.Handler exposing the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	return mux
}
