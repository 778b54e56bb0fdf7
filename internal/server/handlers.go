package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/edgesentinel/edge-sentinel/internal/models"
	"github.com/edgesentinel/edge-sentinel/internal/store"
)

type statusUpdateRequest struct {
	Status string `json:"status" binding:"required"`
}

func (s *Server) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Real-Time Cybersecurity Monitoring API"})
}

// receiveAlert accepts a pre-scored alert from a monitoring agent.
func (s *Server) receiveAlert(c *gin.Context) {
	var alert models.Alert
	if err := c.ShouldBindJSON(&alert); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid alert format"})
		return
	}

	if err := s.gateway.IngestAlert(&alert, "agent"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// receiveNetworkData accepts a telemetry payload from the agent.
func (s *Server) receiveNetworkData(c *gin.Context) {
	var data models.NetworkData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.gateway.IngestNetworkData(data)
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// getAlerts returns the filtered, paginated live list, newest first.
func (s *Server) getAlerts(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit < 1 {
		limit = 100
	}
	if limit > 1000 {
		limit = 1000
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	alerts := s.store.Query(limit, offset, c.Query("severity"), c.Query("status"))
	c.JSON(http.StatusOK, alerts)
}

func (s *Server) getAlert(c *gin.Context) {
	alert, err := s.store.Get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	}
	c.JSON(http.StatusOK, alert)
}

func (s *Server) updateAlertStatus(c *gin.Context) {
	var req statusUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status value"})
		return
	}

	alert, err := s.gateway.UpdateAlertStatus(c.Param("id"), req.Status)
	switch {
	case errors.Is(err, store.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status value"})
		return
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Alert not found"})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Status updated", "alert": alert})
}

func (s *Server) getSummary(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.Summary(time.Now()))
}

func (s *Server) getThreatDistribution(c *gin.Context) {
	c.JSON(http.StatusOK, s.store.ThreatDistribution())
}

// updateWeights merges weights into the model and renormalizes.
func (s *Server) updateWeights(c *gin.Context) {
	var weights map[string]float64
	if err := c.ShouldBindJSON(&weights); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.engine.UpdateWeights(weights)
	c.JSON(http.StatusOK, gin.H{"weights": s.engine.Weights()})
}

// updateThresholds merges thresholds into the model.
func (s *Server) updateThresholds(c *gin.Context) {
	var thresholds map[string]float64
	if err := c.ShouldBindJSON(&thresholds); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.engine.UpdateThresholds(thresholds)
	c.JSON(http.StatusOK, gin.H{"thresholds": s.engine.Thresholds()})
}

func (s *Server) debugAlerts(c *gin.Context) {
	var mostRecent *models.Alert
	if recent := s.store.Recent(1); len(recent) > 0 {
		mostRecent = &recent[0]
	}

	c.JSON(http.StatusOK, gin.H{
		"active_websocket_connections": s.alerts.ActiveCount(),
		"total_alerts_in_memory":       s.store.Len(),
		"most_recent_alert":            mostRecent,
		"alert_history_size":           s.store.HistoryLen(),
	})
}

func (s *Server) debugConnections(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"alert_websockets":   s.alerts.Snapshot(),
		"network_websockets": s.network.Snapshot(),
	})
}

// testAlert creates a synthetic alert to verify end-to-end delivery.
func (s *Server) testAlert(c *gin.Context) {
	alert := &models.Alert{
		ID:          uuid.New().String(),
		Timestamp:   time.Now(),
		ThreatType:  "Test Alert",
		Severity:    models.SeverityMedium,
		Status:      models.StatusOpen,
		DeviceID:    "test-device",
		Description: "This is a test alert to verify WebSocket connectivity",
		Metrics: map[string]interface{}{
			"confidence": 0.85,
		},
	}

	if err := s.gateway.IngestAlert(alert, "test"); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Test alert created", "alert": alert})
}
