package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "endpoint", "status"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "endpoint"})

	AlertsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alerts_ingested_total",
		Help: "Total number of alerts accepted into the store",
	}, []string{"source"})

	AlertsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "alerts_rejected_total",
		Help: "Total number of alert payloads rejected by validation",
	})

	SamplesScored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "samples_scored_total",
		Help: "Total number of raw telemetry samples scored",
	})

	ThreatsDetected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threats_detected_total",
		Help: "Total number of samples classified as threats",
	})

	BroadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ws_broadcasts_total",
		Help: "Total number of broadcast calls per channel",
	}, []string{"channel"})

	ActiveConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "ws_active_connections",
		Help: "Currently active WebSocket connections per channel",
	}, []string{"channel"})
)
