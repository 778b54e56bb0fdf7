package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/edgesentinel/edge-sentinel/internal/metrics"
	"github.com/edgesentinel/edge-sentinel/internal/models"
	"github.com/edgesentinel/edge-sentinel/internal/scoring"
	"github.com/edgesentinel/edge-sentinel/internal/store"
	"github.com/edgesentinel/edge-sentinel/internal/ws"
)

// sampleQueueSize buffers the poller handoff so a burst of samples
// does not block the collector loop.
const sampleQueueSize = 256

// AlertArchiver mirrors stored alerts to an external archive.
// Satisfied by *storage.Archive; nil disables mirroring.
type AlertArchiver interface {
	StoreAlert(*models.Alert) error
	PublishAlert(*models.Alert) error
}

// Gateway is the ingestion boundary. It validates inbound payloads,
// scores raw samples, writes the stores, and triggers broadcasts on the
// alert and network channels. The sample channel is the only path from
// the poller into shared state.
type Gateway struct {
	store     *store.AlertStore
	telemetry *store.TelemetryStore
	engine    *scoring.Engine
	alerts    *ws.Manager
	network   *ws.Manager
	archive   AlertArchiver
	samples   chan models.RawSample
}

// New wires a gateway. archive may be nil.
func New(alertStore *store.AlertStore, telemetry *store.TelemetryStore, engine *scoring.Engine,
	alerts, network *ws.Manager, archive AlertArchiver) *Gateway {
	return &Gateway{
		store:     alertStore,
		telemetry: telemetry,
		engine:    engine,
		alerts:    alerts,
		network:   network,
		archive:   archive,
		samples:   make(chan models.RawSample, sampleQueueSize),
	}
}

// Samples is the handoff channel the collector poller writes into.
func (g *Gateway) Samples() chan<- models.RawSample {
	return g.samples
}

// IngestAlert validates and stores a pre-scored alert, mirrors it to
// the archive, and broadcasts it on the alert channel. Validation
// failures leave all state unchanged.
func (g *Gateway) IngestAlert(alert *models.Alert, source string) error {
	if err := g.store.Ingest(alert); err != nil {
		metrics.AlertsRejected.Inc()
		return err
	}
	metrics.AlertsIngested.WithLabelValues(source).Inc()

	log.Info().Str("threat_type", alert.ThreatType).Str("severity", alert.Severity).
		Str("alert_id", alert.ID).Str("source", source).Msg("alert ingested")

	g.archiveAlert(alert)
	g.broadcastAlert(*alert)
	return nil
}

// UpdateAlertStatus mutates an alert's status and re-broadcasts the
// updated alert to connected clients.
func (g *Gateway) UpdateAlertStatus(id, status string) (models.Alert, error) {
	alert, err := g.store.UpdateStatus(id, status)
	if err != nil {
		return models.Alert{}, err
	}
	g.broadcastAlert(alert)
	return alert, nil
}

// IngestNetworkData stores a telemetry payload and broadcasts it on the
// network channel.
func (g *Gateway) IngestNetworkData(data models.NetworkData) {
	g.telemetry.Append(data)

	update := map[string]interface{}{
		"inbound_traffic":    data.InboundTraffic,
		"outbound_traffic":   data.OutboundTraffic,
		"packet_rate":        data.PacketRate,
		"active_connections": data.ActiveConnections,
	}
	remaining := g.network.Broadcast(models.Envelope{Type: models.MessageTypeUpdate, Data: update})
	log.Debug().Int("clients", remaining).Msg("network data broadcast")
}

// ProcessSample scores one raw collector sample. Threats are
// synthesized into alerts and follow the alert path; every sample is
// also broadcast as an update on the network channel.
func (g *Gateway) ProcessSample(sample models.RawSample) {
	metrics.SamplesScored.Inc()

	features := scoring.ExtractFeatures(sample)
	result := g.engine.Score(features)

	if result.IsThreat() {
		metrics.ThreatsDetected.Inc()
		alert := g.synthesizeAlert(sample, result)
		if err := g.IngestAlert(alert, "engine"); err != nil {
			log.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to store scored alert")
		}
	}

	g.network.Broadcast(models.Envelope{
		Type: models.MessageTypeUpdate,
		Data: map[string]interface{}{
			"metrics":   sample,
			"analysis":  result,
			"timestamp": time.Now(),
		},
	})
}

// Serve consumes the sample handoff channel until the context is
// canceled. Implements suture.Service; a bad sample is logged and the
// loop continues.
func (g *Gateway) Serve(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sample := <-g.samples:
			g.ProcessSample(sample)
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (g *Gateway) String() string {
	return "ingestion-gateway"
}

func (g *Gateway) synthesizeAlert(sample models.RawSample, result models.ScoreResult) *models.Alert {
	deviceID, _ := sample["device_id"].(string)
	return &models.Alert{
		ID:         uuid.New().String(),
		Timestamp:  time.Now(),
		ThreatType: result.ThreatType,
		Severity:   result.Severity,
		Status:     models.StatusOpen,
		DeviceID:   deviceID,
		Description: fmt.Sprintf("%s detected by scoring engine (confidence %.2f)",
			result.ThreatType, result.Confidence),
		Metrics: map[string]interface{}{
			"confidence":            result.Confidence,
			"feature_contributions": result.FeatureContributions,
		},
	}
}

// broadcastAlert pushes an alert envelope to every dashboard client.
// Send failures are handled inside the manager and never surfaced to
// the producer.
func (g *Gateway) broadcastAlert(alert models.Alert) {
	remaining := g.alerts.Broadcast(models.Envelope{
		Type: models.MessageTypeAlert,
		Data: FormatAlert(alert),
	})
	log.Info().Str("alert_id", alert.ID).Int("clients", remaining).Msg("alert broadcast")
}

// archiveAlert mirrors the alert to Redis, best effort.
func (g *Gateway) archiveAlert(alert *models.Alert) {
	if g.archive == nil {
		return
	}
	if err := g.archive.StoreAlert(alert); err != nil {
		log.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to archive alert")
	}
	if err := g.archive.PublishAlert(alert); err != nil {
		log.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to publish alert")
	}
}

// FormatAlert fills client-facing defaults and folds the legacy
// confidence field into metrics.
func FormatAlert(alert models.Alert) map[string]interface{} {
	status := alert.Status
	if status == "" {
		status = models.StatusOpen
	}
	deviceID := alert.DeviceID
	if deviceID == "" {
		deviceID = "unknown"
	}
	description := alert.Description
	if description == "" {
		description = "No description provided"
	}

	formatted := map[string]interface{}{
		"id":          alert.ID,
		"threat_type": alert.ThreatType,
		"severity":    alert.Severity,
		"timestamp":   alert.Timestamp,
		"status":      status,
		"device_id":   deviceID,
		"description": description,
	}
	if alert.Metrics != nil {
		formatted["metrics"] = alert.Metrics
	} else if alert.Confidence != 0 {
		formatted["metrics"] = map[string]interface{}{"confidence": alert.Confidence}
	}
	return formatted
}
