package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/edgesentinel/edge-sentinel/internal/models"
)

// Simulator stands in for a monitoring agent: it posts pre-scored
// alerts and network telemetry to the backend.
type Simulator struct {
	serverURL string
}

func NewSimulator(serverURL string) *Simulator {
	return &Simulator{serverURL: serverURL}
}

var threatTypes = []struct {
	name     string
	severity string
}{
	{"Port Scanning", models.SeverityMedium},
	{"DDoS Attack", models.SeverityCritical},
	{"Brute Force Attempt", models.SeverityHigh},
	{"Data Exfiltration", models.SeverityCritical},
	{"Man-in-the-Middle", models.SeverityHigh},
	{"Unknown Threat", models.SeverityLow},
}

var devices = []string{"ws-desktop-01", "ws-desktop-02", "srv-db-01", "srv-web-01", "laptop-eng-07"}

// GenerateAlert creates a realistic pre-scored alert.
func (s *Simulator) GenerateAlert() models.Alert {
	threat := threatTypes[rand.Intn(len(threatTypes))]

	return models.Alert{
		ID:          uuid.New().String(),
		Timestamp:   time.Now(),
		ThreatType:  threat.name,
		Severity:    threat.severity,
		Status:      models.StatusOpen,
		DeviceID:    devices[rand.Intn(len(devices))],
		Description: fmt.Sprintf("%s detected by agent detector", threat.name),
		Metrics: map[string]interface{}{
			"confidence":  0.6 + rand.Float64()*0.4,
			"packet_rate": rand.Intn(500) + 50,
		},
	}
}

// GenerateNetworkData creates one telemetry sample.
func (s *Simulator) GenerateNetworkData() models.NetworkData {
	now := time.Now().Format(time.RFC3339)
	point := func(value float64) map[string]interface{} {
		return map[string]interface{}{"timestamp": now, "value": value}
	}

	return models.NetworkData{
		InboundTraffic:    point(rand.Float64() * 1000),
		OutboundTraffic:   point(rand.Float64() * 800),
		PacketRate:        point(rand.Float64() * 200),
		ActiveConnections: point(float64(rand.Intn(150) + 10)),
	}
}

func (s *Simulator) post(path string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	resp, err := http.Post(s.serverURL+path, "application/json", bytes.NewBuffer(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	return nil
}

// Run sends telemetry every second and an alert every few seconds.
func (s *Simulator) Run() {
	fmt.Println("🚀 Starting Agent Simulator...")

	telemetryTicker := time.NewTicker(time.Second)
	defer telemetryTicker.Stop()

	alertTicker := time.NewTicker(5 * time.Second)
	defer alertTicker.Stop()

	for {
		select {
		case <-telemetryTicker.C:
			if err := s.post("/api/network-data", s.GenerateNetworkData()); err != nil {
				fmt.Printf("Error sending network data: %v\n", err)
			}

		case <-alertTicker.C:
			alert := s.GenerateAlert()
			if err := s.post("/api/alert", alert); err != nil {
				fmt.Printf("Error sending alert: %v\n", err)
				continue
			}
			fmt.Printf("⚠️  Sent %s alert (%s)\n", alert.ThreatType, alert.Severity)
		}
	}
}

func main() {
	serverURL := "http://localhost:8000"
	simulator := NewSimulator(serverURL)

	fmt.Println("Edge Sentinel - Agent Simulator")
	fmt.Println("================================")

	simulator.Run()
}
