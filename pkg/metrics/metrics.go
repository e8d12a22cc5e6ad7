package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "importflow", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "importflow", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	NocoDBRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "importflow", Name: "nocodb_request_duration_seconds", Help: "Latency of NocoDB API calls by operation and outcome.", Buckets: prometheus.DefBuckets},
		[]string{"operation", "outcome"},
	)
	ExtractionRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "importflow", Name: "extraction_runs_total", Help: "Document extraction pipeline runs by result (cached, completed, failed)."},
		[]string{"result"},
	)
	ExtractionCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "importflow", Name: "extraction_cache_hits_total", Help: "Extraction cache hits by layer (redis, database)."},
		[]string{"layer"},
	)
	UploadsStored = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "importflow", Name: "uploads_total", Help: "Document uploads by outcome (stored, deduplicated)."},
		[]string{"outcome"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(NocoDBRequestDuration)
	reg.MustRegister(ExtractionRuns)
	reg.MustRegister(ExtractionCacheHits)
	reg.MustRegister(UploadsStored)
}
