// Package metrics declares the Prometheus collectors exported at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "punch_http_requests_total",
		Help: "HTTP requests by route, method and status.",
	}, []string{"route", "method", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "punch_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"})

	Punches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "punch_events_total",
		Help: "Punches appended to the ledger by direction and method.",
	}, []string{"direction", "method"})

	PunchRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "punch_rejections_total",
		Help: "Punch attempts refused, by method and reason.",
	}, []string{"method", "reason"})

	FaceDistance = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "punch_face_match_distance",
		Help:    "Euclidean distance between live and enrolled descriptors.",
		Buckets: []float64{0.1, 0.2, 0.3, 0.35, 0.4, 0.45, 0.5, 0.6, 0.8, 1.0},
	})

	ReturnForms = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "punch_return_forms_total",
		Help: "Return forms submitted and decided, by resulting status.",
	}, []string{"status"})

	LiveSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "punch_live_subscribers",
		Help: "Open live-feed subscriptions by topic.",
	}, []string{"topic"})

	AnchorFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "punch_anchor_failures_total",
		Help: "Punches that could not be anchored to the ledger network.",
	})
)
