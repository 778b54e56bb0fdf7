package store

import (
	"sync"

	"github.com/edgesentinel/edge-sentinel/internal/models"
)

const (
	// seriesCapacity caps each telemetry time series.
	seriesCapacity = 100
	// warningsCapacity caps the warning event buffer.
	warningsCapacity = 50
)

// TelemetryStore keeps the most recent telemetry points per series,
// oldest dropped first. It backs the initial snapshot sent to network
// dashboard clients.
type TelemetryStore struct {
	mu                sync.RWMutex
	inboundTraffic    []map[string]interface{}
	outboundTraffic   []map[string]interface{}
	packetRate        []map[string]interface{}
	activeConnections []map[string]interface{}
	warnings          []map[string]interface{}
}

// NewTelemetryStore creates an empty telemetry store.
func NewTelemetryStore() *TelemetryStore {
	return &TelemetryStore{
		inboundTraffic:    make([]map[string]interface{}, 0, seriesCapacity),
		outboundTraffic:   make([]map[string]interface{}, 0, seriesCapacity),
		packetRate:        make([]map[string]interface{}, 0, seriesCapacity),
		activeConnections: make([]map[string]interface{}, 0, seriesCapacity),
		warnings:          make([]map[string]interface{}, 0, warningsCapacity),
	}
}

// Append records the series present in a telemetry payload.
func (s *TelemetryStore) Append(data models.NetworkData) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if data.InboundTraffic != nil {
		s.inboundTraffic = push(s.inboundTraffic, data.InboundTraffic, seriesCapacity)
	}
	if data.OutboundTraffic != nil {
		s.outboundTraffic = push(s.outboundTraffic, data.OutboundTraffic, seriesCapacity)
	}
	if data.PacketRate != nil {
		s.packetRate = push(s.packetRate, data.PacketRate, seriesCapacity)
	}
	if data.ActiveConnections != nil {
		s.activeConnections = push(s.activeConnections, data.ActiveConnections, seriesCapacity)
	}
}

// AddWarning records a warning event.
func (s *TelemetryStore) AddWarning(warning map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.warnings = push(s.warnings, warning, warningsCapacity)
}

// Snapshot returns copies of every series for the initial message sent
// to a newly connected network client.
func (s *TelemetryStore) Snapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return map[string]interface{}{
		"inbound_traffic":    copySeries(s.inboundTraffic),
		"outbound_traffic":   copySeries(s.outboundTraffic),
		"packet_rate":        copySeries(s.packetRate),
		"active_connections": copySeries(s.activeConnections),
		"warnings":           copySeries(s.warnings),
	}
}

func push(series []map[string]interface{}, point map[string]interface{}, capacity int) []map[string]interface{} {
	if len(series) >= capacity {
		series = series[1:]
	}
	return append(series, point)
}

func copySeries(series []map[string]interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, len(series))
	copy(out, series)
	return out
}
