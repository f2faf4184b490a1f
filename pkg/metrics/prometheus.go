package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	solveDuration    *prometheus.HistogramVec
	solveFailures    *prometheus.CounterVec
	infeasiblePoints prometheus.Counter
	cacheLookups     *prometheus.CounterVec
	errorsTotal      *prometheus.CounterVec
	lastSharpe       prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		solveDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "portopt_solve_duration_seconds",
				Help:    "Duration of constrained optimization solves in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		solveFailures: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portopt_solve_failures_total",
				Help: "Total number of non-converged solves",
			},
			[]string{"kind"},
		),
		infeasiblePoints: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "portopt_frontier_infeasible_points_total",
				Help: "Total number of frontier targets with no feasible portfolio",
			},
		),
		cacheLookups: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portopt_statistics_cache_lookups_total",
				Help: "Statistics cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "portopt_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		lastSharpe: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "portopt_last_max_sharpe_ratio",
				Help: "Sharpe ratio of the most recent tangent portfolio",
			},
		),
	}
}

// RecordSolve records one solve's duration and convergence.
func (r *Recorder) RecordSolve(kind string, seconds float64, converged bool) {
	r.solveDuration.WithLabelValues(kind).Observe(seconds)
	if !converged {
		r.solveFailures.WithLabelValues(kind).Inc()
	}
}

// RecordInfeasiblePoint records a frontier target with no feasible portfolio.
func (r *Recorder) RecordInfeasiblePoint() {
	r.infeasiblePoints.Inc()
}

// RecordCacheLookup records a statistics cache hit or miss.
func (r *Recorder) RecordCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.cacheLookups.WithLabelValues(outcome).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordSharpe records the latest tangent portfolio Sharpe ratio.
func (r *Recorder) RecordSharpe(value float64) {
	r.lastSharpe.Set(value)
}
