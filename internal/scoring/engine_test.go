package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgesentinel/edge-sentinel/internal/models"
)

func TestScoreNormalizationEdges(t *testing.T) {
	engine := NewEngine()

	t.Run("zero value contributes nothing", func(t *testing.T) {
		result := engine.Score(map[string]float64{"packet_count": 0})
		assert.InDelta(t, 0, result.Confidence, 1e-9)
		assert.Equal(t, models.LabelNormal, result.Label)
		assert.Equal(t, models.SeverityLow, result.Severity)
	})

	t.Run("port zero is maximally suspicious", func(t *testing.T) {
		result := engine.Score(map[string]float64{"port_number": 0})
		// Inverted normalization: port 0 normalizes to 1, so the full
		// port weight lands in the score.
		assert.InDelta(t, 0.05, result.Confidence, 1e-9)
		assert.InDelta(t, 0.05, result.FeatureContributions["port_number"], 1e-9)
	})

	t.Run("value at threshold saturates", func(t *testing.T) {
		result := engine.Score(map[string]float64{"packet_count": 1000})
		assert.InDelta(t, 0.15, result.FeatureContributions["packet_count"], 1e-9)
	})

	t.Run("port at threshold contributes nothing", func(t *testing.T) {
		result := engine.Score(map[string]float64{"port_number": 1024})
		assert.InDelta(t, 0, result.FeatureContributions["port_number"], 1e-9)
	})

	t.Run("value above threshold is capped", func(t *testing.T) {
		result := engine.Score(map[string]float64{"bytes_transferred": 5e9})
		assert.InDelta(t, 0.2, result.FeatureContributions["bytes_transferred"], 1e-9)
	})

	t.Run("absent features normalize to zero", func(t *testing.T) {
		result := engine.Score(map[string]float64{})
		assert.InDelta(t, 0, result.Confidence, 1e-9)
		assert.Len(t, result.FeatureContributions, len(Features))
	})
}

func TestScorePortScanning(t *testing.T) {
	engine := NewEngine()

	result := engine.Score(map[string]float64{
		"packet_count":      1500,
		"packet_rate":       150,
		"bytes_transferred": 600000,
		"port_number":       20,
		"flag_count":        6,
	})

	require.True(t, result.IsThreat())
	assert.Greater(t, result.Confidence, 0.6)
	assert.Equal(t, "Port Scanning", result.ThreatType)
	assert.Equal(t, models.SeverityHigh, result.Severity)
}

func TestScoreBelowBoundaryIsNormal(t *testing.T) {
	engine := NewEngine()

	// Three saturated features alone cannot cross the 0.6 boundary; the
	// remaining four normalize to 0 and keep the weighted sum at ~0.499.
	result := engine.Score(map[string]float64{
		"packet_rate":       150,
		"bytes_transferred": 600000,
		"port_number":       20,
	})

	assert.InDelta(t, 0.499, result.Confidence, 0.001)
	assert.Equal(t, models.LabelNormal, result.Label)
	assert.False(t, result.IsThreat())
	assert.Empty(t, result.ThreatType)
	assert.Equal(t, models.SeverityLow, result.Severity)
}

func TestScoreSeverityLadder(t *testing.T) {
	engine := NewEngine()

	t.Run("critical above 0.9", func(t *testing.T) {
		result := engine.Score(map[string]float64{
			"packet_count":        1000,
			"connection_duration": 300,
			"bytes_transferred":   500000,
			"packet_rate":         100,
			"port_number":         0,
			"protocol_type":       1,
			"flag_count":          5,
		})
		assert.InDelta(t, 1.0, result.Confidence, 1e-9)
		assert.Equal(t, models.SeverityCritical, result.Severity)
		assert.True(t, result.IsThreat())
	})

	t.Run("medium just above the boundary", func(t *testing.T) {
		result := engine.Score(map[string]float64{
			"packet_count":      1000,
			"packet_rate":       150,
			"bytes_transferred": 600000,
			"port_number":       20,
		})
		assert.InDelta(t, 0.649, result.Confidence, 0.001)
		assert.Equal(t, models.SeverityMedium, result.Severity)
		assert.True(t, result.IsThreat())
	})
}

func TestThreatTypeRules(t *testing.T) {
	engine := NewEngine()

	tests := []struct {
		name     string
		features map[string]float64
		want     string
	}{
		{
			name: "ddos when port is not suspicious",
			features: map[string]float64{
				"packet_count":      1000,
				"packet_rate":       150,
				"bytes_transferred": 600000,
				"flag_count":        6,
			},
			want: "DDoS Attack",
		},
		{
			name: "brute force on long sessions against high ports",
			features: map[string]float64{
				"packet_count":        1000,
				"connection_duration": 280,
				"bytes_transferred":   100000,
				"packet_rate":         150,
				"port_number":         900,
				"flag_count":          6,
			},
			want: "Brute Force Attempt",
		},
		{
			name: "exfiltration on heavy short transfers",
			features: map[string]float64{
				"packet_count":      1000,
				"bytes_transferred": 600000,
				"packet_rate":       80,
				"flag_count":        6,
			},
			want: "Data Exfiltration",
		},
		{
			name: "mitm on flagged tcp",
			features: map[string]float64{
				"packet_count":      1000,
				"bytes_transferred": 300000,
				"packet_rate":       70,
				"protocol_type":     1,
				"flag_count":        4,
			},
			want: "Man-in-the-Middle",
		},
		{
			name: "unknown when no pattern matches",
			features: map[string]float64{
				"packet_count":        1000,
				"connection_duration": 150,
				"bytes_transferred":   350000,
				"packet_rate":         85,
				"flag_count":          4,
			},
			want: "Unknown Threat",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := engine.Score(tt.features)
			require.True(t, result.IsThreat(), "score %.3f should cross the boundary", result.Confidence)
			assert.Equal(t, tt.want, result.ThreatType)
		})
	}
}

func TestThreatTypeRuleOrder(t *testing.T) {
	engine := NewEngine()

	// Matches both the port-scan and ddos patterns; the first rule wins.
	result := engine.Score(map[string]float64{
		"packet_count":      1500,
		"packet_rate":       150,
		"bytes_transferred": 600000,
		"port_number":       20,
		"flag_count":        6,
	})
	require.True(t, result.IsThreat())
	assert.Equal(t, "Port Scanning", result.ThreatType)
}

func TestUpdateWeightsRenormalizes(t *testing.T) {
	engine := NewEngine()

	engine.UpdateWeights(map[string]float64{"bytes_transferred": 2.0})

	weights := engine.Weights()
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	// 2.0 out of a pre-normalization total of 2.8.
	assert.InDelta(t, 2.0/2.8, weights["bytes_transferred"], 1e-9)
}

func TestUpdateWeightsIgnoresUnknownFeatures(t *testing.T) {
	engine := NewEngine()

	engine.UpdateWeights(map[string]float64{"nonsense": 5})

	weights := engine.Weights()
	assert.Len(t, weights, len(Features))
	assert.NotContains(t, weights, "nonsense")

	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestUpdateThresholdsMergesOnly(t *testing.T) {
	engine := NewEngine()

	engine.UpdateThresholds(map[string]float64{"packet_rate": 200, "bogus": 1})

	thresholds := engine.Thresholds()
	assert.InDelta(t, 200, thresholds["packet_rate"], 1e-9)
	assert.InDelta(t, 1000, thresholds["packet_count"], 1e-9)
	assert.NotContains(t, thresholds, "bogus")
}

func TestExtractFeatures(t *testing.T) {
	t.Run("derives packet rate and maps protocol", func(t *testing.T) {
		features := ExtractFeatures(models.RawSample{
			"packet_count":        120.0,
			"connection_duration": 60.0,
			"bytes_transferred":   4096.0,
			"port":                22.0,
			"protocol":            "TCP",
			"flags":               []interface{}{"SYN", "ACK"},
		})

		assert.InDelta(t, 2.0, features["packet_rate"], 1e-9)
		assert.InDelta(t, 22.0, features["port_number"], 1e-9)
		assert.InDelta(t, 1.0, features["protocol_type"], 1e-9)
		assert.InDelta(t, 2.0, features["flag_count"], 1e-9)
	})

	t.Run("no rate on zero duration", func(t *testing.T) {
		features := ExtractFeatures(models.RawSample{
			"packet_count":        10.0,
			"connection_duration": 0.0,
		})
		assert.NotContains(t, features, "packet_rate")
	})

	t.Run("unknown protocol encodes to zero", func(t *testing.T) {
		features := ExtractFeatures(models.RawSample{"protocol": "ICMP"})
		assert.InDelta(t, 0, features["protocol_type"], 1e-9)
	})

	t.Run("missing flags list means zero flags", func(t *testing.T) {
		features := ExtractFeatures(models.RawSample{"packet_count": 10.0})
		assert.InDelta(t, 0, features["flag_count"], 1e-9)
	})

	t.Run("integer values are accepted", func(t *testing.T) {
		features := ExtractFeatures(models.RawSample{"packet_count": 500})
		assert.InDelta(t, 500.0, features["packet_count"], 1e-9)
	})
}
