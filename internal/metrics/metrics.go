// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roamstay_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roamstay_http_request_duration_seconds",
			Help:    "Time taken to serve HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roamstay_auth_attempts_total",
			Help: "Total number of login attempts by result",
		},
		[]string{"result"},
	)

	SessionStoreErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roamstay_session_store_errors_total",
			Help: "Total number of session store failures",
		},
	)

	PricePredictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roamstay_price_predictions_total",
			Help: "Total number of price predictions by source",
		},
		[]string{"source"},
	)

	WebsocketClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roamstay_websocket_clients",
			Help: "Number of connected websocket clients",
		},
	)
)
