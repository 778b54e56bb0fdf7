package models

import "time"

// Severity levels, ordered by weight in the dashboard score.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Alert lifecycle states. Any state may move to any other.
const (
	StatusOpen          = "open"
	StatusInvestigating = "investigating"
	StatusResolved      = "resolved"
)

// Classification labels produced by the scoring engine.
const (
	LabelThreat = "threat"
	LabelNormal = "normal"
)

// Alert represents a security alert from a monitoring agent or the
// scoring engine. Alerts are only mutated via status updates.
type Alert struct {
	ID          string                 `json:"id"`
	Timestamp   time.Time              `json:"timestamp"`
	ThreatType  string                 `json:"threat_type"`
	Severity    string                 `json:"severity"`
	Status      string                 `json:"status,omitempty"`
	DeviceID    string                 `json:"device_id,omitempty"`
	Description string                 `json:"description,omitempty"`
	Metrics     map[string]interface{} `json:"metrics,omitempty"`

	// Confidence is the legacy top-level field some agents still send;
	// it is folded into Metrics when the alert is formatted for clients.
	Confidence float64 `json:"confidence,omitempty"`
}

// NetworkData is a telemetry payload from the monitoring agent.
type NetworkData struct {
	InboundTraffic    map[string]interface{}   `json:"inbound_traffic" binding:"required"`
	OutboundTraffic   map[string]interface{}   `json:"outbound_traffic" binding:"required"`
	PacketRate        map[string]interface{}   `json:"packet_rate,omitempty"`
	ActiveConnections map[string]interface{}   `json:"active_connections,omitempty"`
	CPUUsage          *float64                 `json:"cpu_usage,omitempty"`
	MemoryUsage       *float64                 `json:"memory_usage,omitempty"`
	MemoryUsed        *float64                 `json:"memory_used,omitempty"`
	MemoryTotal       *float64                 `json:"memory_total,omitempty"`
	ProcessCount      *int                     `json:"process_count,omitempty"`
	TopProcesses      []map[string]interface{} `json:"top_processes,omitempty"`
}

// RawSample is a flat name -> value map of raw metrics from a telemetry
// collector, before feature extraction.
type RawSample map[string]interface{}

// ScoreResult is the outcome of scoring one feature vector.
type ScoreResult struct {
	Label                string             `json:"label"`
	Confidence           float64            `json:"confidence"`
	Severity             string             `json:"severity"`
	ThreatType           string             `json:"threat_type,omitempty"`
	FeatureContributions map[string]float64 `json:"feature_contributions"`
}

// IsThreat reports whether the sample crossed the detection boundary.
func (r ScoreResult) IsThreat() bool {
	return r.Label == LabelThreat
}

// WebSocket message types.
const (
	MessageTypeAlert   = "alert"
	MessageTypeUpdate  = "update"
	MessageTypeInitial = "initial"
	MessageTypePing    = "ping"
	MessageTypePong    = "pong"
)

// Envelope is the wire format for every WebSocket push.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// HourBucket is one slot of the trailing 24-hour alert histogram.
type HourBucket struct {
	Hour  int `json:"hour"`
	Count int `json:"count"`
}

// Summary holds the aggregate dashboard statistics.
type Summary struct {
	TotalAlerts    int            `json:"total_alerts"`
	OpenAlerts     int            `json:"open_alerts"`
	CriticalAlerts int            `json:"critical_alerts"`
	SecurityScore  int            `json:"security_score"`
	SeverityCounts map[string]int `json:"severity_counts"`
	AlertsByHour   []HourBucket   `json:"alerts_by_hour"`
}

// ThreatTypeCount is one row of the threat distribution chart.
type ThreatTypeCount struct {
	Type       string `json:"type"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// ValidSeverity reports whether s is one of the enumerated severities.
func ValidSeverity(s string) bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// ValidStatus reports whether s is one of the enumerated statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusOpen, StatusInvestigating, StatusResolved:
		return true
	}
	return false
}
