package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "roomchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	messagesPosted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "roomchat_messages_posted_total",
			Help: "Total messages stored",
		},
		[]string{"room"},
	)

	messagesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roomchat_messages_deleted_total",
			Help: "Total messages deleted by their authors",
		},
	)

	verificationsIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roomchat_verifications_issued_total",
			Help: "Total verification challenges issued",
		},
	)

	verificationsCompleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "roomchat_verifications_completed_total",
			Help: "Total verification links consumed",
		},
	)

	// Presence metrics
	activeClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "roomchat_active_clients",
			Help: "Clients with a recent heartbeat",
		},
	)
)
