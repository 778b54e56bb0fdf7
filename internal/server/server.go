package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/edgesentinel/edge-sentinel/internal/gateway"
	"github.com/edgesentinel/edge-sentinel/internal/metrics"
	"github.com/edgesentinel/edge-sentinel/internal/scoring"
	"github.com/edgesentinel/edge-sentinel/internal/store"
	"github.com/edgesentinel/edge-sentinel/internal/ws"
)

// Server owns the gin router and holds references to every component
// the handlers need.
type Server struct {
	router    *gin.Engine
	gateway   *gateway.Gateway
	store     *store.AlertStore
	telemetry *store.TelemetryStore
	engine    *scoring.Engine
	alerts    *ws.Manager
	network   *ws.Manager
}

// New builds the router and registers all routes.
func New(gw *gateway.Gateway, alertStore *store.AlertStore, telemetry *store.TelemetryStore,
	engine *scoring.Engine, alerts, network *ws.Manager) *Server {
	router := gin.New()
	router.Use(gin.Recovery(), corsMiddleware(), metricsMiddleware())

	s := &Server{
		router:    router,
		gateway:   gw,
		store:     alertStore,
		telemetry: telemetry,
		engine:    engine,
		alerts:    alerts,
		network:   network,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.root)

	// Agent ingestion
	s.router.POST("/api/alert", s.receiveAlert)
	s.router.POST("/api/network-data", s.receiveNetworkData)

	// Alert queries and updates
	s.router.GET("/alerts", s.getAlerts)
	s.router.GET("/alerts/:id", s.getAlert)
	s.router.PUT("/alerts/:id/status", s.updateAlertStatus)

	// Dashboard stats
	s.router.GET("/dashboard/summary", s.getSummary)
	s.router.GET("/dashboard/threat-distribution", s.getThreatDistribution)

	// Model tuning
	s.router.POST("/api/model/weights", s.updateWeights)
	s.router.POST("/api/model/thresholds", s.updateThresholds)

	// Debug and connectivity checks
	s.router.GET("/debug/alerts", s.debugAlerts)
	s.router.GET("/debug/connections", s.debugConnections)
	s.router.GET("/test-alert", s.testAlert)

	// Prometheus exposition
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// WebSocket channels
	s.router.GET("/ws", s.handleAlertSocket)
	s.router.GET("/ws/network", s.handleNetworkSocket)
}

// Router exposes the handler for the HTTP server in main.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// corsMiddleware handles CORS for the dashboard frontend.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

// metricsMiddleware records request counts and durations.
func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		metrics.RequestDuration.WithLabelValues(c.Request.Method, path).
			Observe(time.Since(start).Seconds())
		metrics.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path,
			strconv.Itoa(c.Writer.Status())).Inc()
	}
}
