package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	UpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "stakeplan",
		Name:      "updates_total",
		Help:      "Ledger updates by kind and merge outcome.",
	}, []string{"kind", "outcome"})
	CurrentEra = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "stakeplan",
		Name:      "current_era",
	})
	UnclaimedEras = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "stakeplan",
		Name:      "unclaimed_eras",
	})
	AggregateComplete = promauto.NewGauge(prometheus.GaugeOpts{
		Subsystem: "stakeplan",
		Name:      "aggregate_complete",
	})
	PlansBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "stakeplan",
		Name:      "plans_total",
		Help:      "Claim plans by result.",
	}, []string{"result"})
	SubmissionStatus = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "stakeplan",
		Name:      "submission_status_total",
	}, []string{"status"})
	QueryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "stakeplan",
		Name:      "query_failures_total",
	}, []string{"source"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
