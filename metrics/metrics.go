package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CheckInsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "okr_check_ins_total",
		Help: "Check-ins written to the ledger by entity type and operation",
	}, []string{"entity_type", "operation"})

	RollupRecomputationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "okr_rollup_recomputations_total",
		Help: "Objective progress recomputations by trigger",
	}, []string{"trigger"})

	ConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "okr_write_conflicts_total",
		Help: "Retryable write conflicts surfaced to callers",
	}, []string{"operation"})

	MisconfiguredMetricsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "okr_misconfigured_metric_total",
		Help: "Key result computations that hit the zero-progress policy for malformed metric setups",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "okr_http_request_duration_seconds",
		Help:    "HTTP request latency by route pattern and status code",
		Buckets: prometheus.DefBuckets,
	}, []string{"pattern", "code"})
)

func Handler() http.Handler {
	return promhttp.Handler()
}
