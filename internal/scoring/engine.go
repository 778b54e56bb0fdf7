package scoring

import (
	"encoding/json"
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/edgesentinel/edge-sentinel/internal/models"
)

// Features is the fixed, ordered set of feature names the engine scores.
var Features = []string{
	"packet_count",
	"connection_duration",
	"bytes_transferred",
	"packet_rate",
	"port_number",
	"protocol_type",
	"flag_count",
}

// threatBoundary is the fixed classification boundary. Not configurable.
const threatBoundary = 0.6

// protocolCodes maps protocol names to their encoded feature value.
// Unknown protocols encode to 0.
var protocolCodes = map[string]float64{
	"TCP":   1,
	"UDP":   2,
	"HTTP":  3,
	"HTTPS": 4,
}

// Engine is a stateless weighted-threshold classifier over the fixed
// feature set. Thresholds and weights are tunable at runtime; scoring
// and updates are safe to call concurrently.
type Engine struct {
	mu         sync.RWMutex
	thresholds map[string]float64
	weights    map[string]float64
}

// NewEngine returns an engine with the default model parameters.
func NewEngine() *Engine {
	return &Engine{
		thresholds: map[string]float64{
			"packet_count":        1000,
			"connection_duration": 300,
			"bytes_transferred":   500000,
			"packet_rate":         100,
			"port_number":         1024,
			"protocol_type":       1,
			"flag_count":          5,
		},
		weights: map[string]float64{
			"packet_count":        0.15,
			"connection_duration": 0.1,
			"bytes_transferred":   0.2,
			"packet_rate":         0.25,
			"port_number":         0.05,
			"protocol_type":       0.1,
			"flag_count":          0.15,
		},
	}
}

// Score classifies a feature vector. Features absent from the input
// normalize to 0. For port_number low values read as more suspicious,
// so its normalization is inverted.
func (e *Engine) Score(features map[string]float64) models.ScoreResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	normalized := make(map[string]float64, len(Features))
	for _, name := range Features {
		value, ok := features[name]
		if !ok {
			normalized[name] = 0
			continue
		}
		if name == "port_number" {
			normalized[name] = 1 - math.Min(1, value/e.thresholds[name])
		} else {
			normalized[name] = math.Min(1, value/e.thresholds[name])
		}
	}

	score := 0.0
	contributions := make(map[string]float64, len(Features))
	for _, name := range Features {
		contribution := normalized[name] * e.weights[name]
		contributions[name] = contribution
		score += contribution
	}

	result := models.ScoreResult{
		Label:                models.LabelNormal,
		Confidence:           score,
		Severity:             severityFor(score),
		FeatureContributions: contributions,
	}
	if score > threatBoundary {
		result.Label = models.LabelThreat
		result.ThreatType = threatTypeFor(normalized)
	}
	return result
}

// UpdateWeights merges the given weights into the table for known
// features, then renormalizes the entire table so all weights sum to 1.
func (e *Engine) UpdateWeights(partial map[string]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for name, value := range partial {
		if _, ok := e.weights[name]; ok {
			e.weights[name] = value
		}
	}

	sum := 0.0
	for _, value := range e.weights {
		sum += value
	}
	if sum == 0 {
		return
	}
	for name := range e.weights {
		e.weights[name] /= sum
	}
	log.Debug().Int("updated", len(partial)).Msg("model weights updated")
}

// UpdateThresholds merges the given thresholds for known features.
// No renormalization.
func (e *Engine) UpdateThresholds(partial map[string]float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for name, value := range partial {
		if _, ok := e.thresholds[name]; ok {
			e.thresholds[name] = value
		}
	}
}

// Weights returns a copy of the current weight table.
func (e *Engine) Weights() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]float64, len(e.weights))
	for name, value := range e.weights {
		out[name] = value
	}
	return out
}

// Thresholds returns a copy of the current threshold table.
func (e *Engine) Thresholds() map[string]float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string]float64, len(e.thresholds))
	for name, value := range e.thresholds {
		out[name] = value
	}
	return out
}

// threatTypeFor picks a threat type from normalized feature patterns.
// Rules are ordered; the first match wins.
func threatTypeFor(f map[string]float64) string {
	switch {
	case f["port_number"] > 0.8 && f["packet_rate"] > 0.7:
		return "Port Scanning"
	case f["packet_rate"] > 0.9 && f["bytes_transferred"] > 0.8:
		return "DDoS Attack"
	case f["connection_duration"] > 0.8 && f["port_number"] < 0.3:
		return "Brute Force Attempt"
	case f["bytes_transferred"] > 0.7 && f["connection_duration"] < 0.3:
		return "Data Exfiltration"
	case f["protocol_type"] > 0.8 && f["flag_count"] > 0.7:
		return "Man-in-the-Middle"
	default:
		return "Unknown Threat"
	}
}

// severityFor maps a score to a severity level.
func severityFor(score float64) string {
	switch {
	case score > 0.9:
		return models.SeverityCritical
	case score > 0.75:
		return models.SeverityHigh
	case score > 0.6:
		return models.SeverityMedium
	default:
		return models.SeverityLow
	}
}

// ExtractFeatures converts a raw collector sample into a feature vector.
// packet_rate is derived from packet_count / connection_duration when
// both are present, protocol names map through protocolCodes, and
// flag_count is the length of an optional flags list.
func ExtractFeatures(sample models.RawSample) map[string]float64 {
	features := make(map[string]float64)

	for _, name := range []string{"packet_count", "connection_duration", "bytes_transferred"} {
		if value, ok := asFloat(sample[name]); ok {
			features[name] = value
		}
	}

	if count, ok := features["packet_count"]; ok {
		if duration, ok := features["connection_duration"]; ok && duration > 0 {
			features["packet_rate"] = count / duration
		}
	}

	if value, ok := asFloat(sample["port"]); ok {
		features["port_number"] = value
	}

	if protocol, ok := sample["protocol"].(string); ok {
		features["protocol_type"] = protocolCodes[protocol]
	}

	if flags, ok := sample["flags"].([]interface{}); ok {
		features["flag_count"] = float64(len(flags))
	} else {
		features["flag_count"] = 0
	}

	return features
}

// asFloat coerces the numeric shapes JSON decoding can produce.
func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
