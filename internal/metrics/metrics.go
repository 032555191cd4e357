// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	HTTPInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_inflight_requests",
			Help: "Number of HTTP requests currently being served",
		},
	)

	AudienceResolveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "audience_resolve_duration_seconds",
			Help:    "Duration of audience resolution in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	AudienceCountCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audience_count_cache_total",
			Help: "Audience count cache lookups by result",
		},
		[]string{"result"},
	)

	SchedulerRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scheduler_runs_total",
			Help: "Total number of scheduled campaign processing runs",
		},
	)

	// outcome is one of handed_off, lost_race, not_due, handoff_failed, error
	SchedulerCampaigns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_campaigns_total",
			Help: "Scheduled campaigns evaluated, partitioned by outcome",
		},
		[]string{"outcome"},
	)
)
