/*
metrics.go - Prometheus instrumentation

PURPOSE:
  Counters and histograms for the engine's hot paths: request lifecycle
  outcomes, chargeable-day calculations and batch recalculations.
  Exposed at /metrics via promhttp.
*/
package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	leaveRequestOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leave_engine",
		Name:      "request_outcomes_total",
		Help:      "Leave request lifecycle operations by outcome.",
	}, []string{"operation", "outcome"})

	chargeableDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "leave_engine",
		Name:      "chargeable_calc_seconds",
		Help:      "Duration of chargeable-day calculations.",
		Buckets:   prometheus.DefBuckets,
	})

	recalcDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "leave_engine",
		Name:      "recalc_run_seconds",
		Help:      "Duration of batch balance recalculations.",
		Buckets:   []float64{.1, .5, 1, 5, 15, 60, 300},
	})

	recalcFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "leave_engine",
		Name:      "recalc_employee_failures_total",
		Help:      "Employees skipped during batch recalculation.",
	})
)

func observeOutcome(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	leaveRequestOutcomes.WithLabelValues(operation, outcome).Inc()
}
