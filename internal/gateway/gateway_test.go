package gateway

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgesentinel/edge-sentinel/internal/models"
	"github.com/edgesentinel/edge-sentinel/internal/scoring"
	"github.com/edgesentinel/edge-sentinel/internal/store"
	"github.com/edgesentinel/edge-sentinel/internal/ws"
)

type fakeSender struct {
	writes []interface{}
}

func (f *fakeSender) WriteJSON(v interface{}) error {
	f.writes = append(f.writes, v)
	return nil
}

func (f *fakeSender) Close() error { return nil }

type fakeArchive struct {
	stored    []*models.Alert
	published []*models.Alert
}

func (f *fakeArchive) StoreAlert(a *models.Alert) error {
	f.stored = append(f.stored, a)
	return nil
}

func (f *fakeArchive) PublishAlert(a *models.Alert) error {
	f.published = append(f.published, a)
	return nil
}

type testFixture struct {
	gateway      *Gateway
	store        *store.AlertStore
	telemetry    *store.TelemetryStore
	archive      *fakeArchive
	alertsClient *fakeSender
	netClient    *fakeSender
}

func newFixture() *testFixture {
	alertStore := store.NewAlertStore()
	telemetry := store.NewTelemetryStore()
	alerts := ws.NewManager("alerts")
	network := ws.NewManager("network")
	archive := &fakeArchive{}

	alertsClient := &fakeSender{}
	alerts.Connect(alertsClient, "")
	netClient := &fakeSender{}
	network.Connect(netClient, "")

	return &testFixture{
		gateway:      New(alertStore, telemetry, scoring.NewEngine(), alerts, network, archive),
		store:        alertStore,
		telemetry:    telemetry,
		archive:      archive,
		alertsClient: alertsClient,
		netClient:    netClient,
	}
}

func validAlert(id string) *models.Alert {
	return &models.Alert{
		ID:         id,
		Timestamp:  time.Now(),
		ThreatType: "DDoS Attack",
		Severity:   models.SeverityHigh,
	}
}

func TestIngestAlertStoresArchivesAndBroadcasts(t *testing.T) {
	f := newFixture()

	require.NoError(t, f.gateway.IngestAlert(validAlert("a1"), "agent"))

	assert.Equal(t, 1, f.store.Len())
	require.Len(t, f.archive.stored, 1)
	require.Len(t, f.archive.published, 1)

	require.Len(t, f.alertsClient.writes, 1)
	env, ok := f.alertsClient.writes[0].(models.Envelope)
	require.True(t, ok)
	assert.Equal(t, models.MessageTypeAlert, env.Type)

	data, ok := env.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "a1", data["id"])
	assert.Equal(t, models.StatusOpen, data["status"])
}

func TestIngestAlertRejectionIsInvisible(t *testing.T) {
	f := newFixture()

	bad := validAlert("a1")
	bad.Severity = ""
	require.ErrorIs(t, f.gateway.IngestAlert(bad, "agent"), store.ErrMissingField)

	assert.Zero(t, f.store.Len())
	assert.Empty(t, f.alertsClient.writes)
	assert.Empty(t, f.archive.stored)
}

func TestIngestAlertWithoutArchive(t *testing.T) {
	alertStore := store.NewAlertStore()
	gw := New(alertStore, store.NewTelemetryStore(), scoring.NewEngine(),
		ws.NewManager("alerts"), ws.NewManager("network"), nil)

	require.NoError(t, gw.IngestAlert(validAlert("a1"), "agent"))
	assert.Equal(t, 1, alertStore.Len())
}

func TestUpdateAlertStatusRebroadcasts(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.gateway.IngestAlert(validAlert("a1"), "agent"))

	alert, err := f.gateway.UpdateAlertStatus("a1", models.StatusResolved)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, alert.Status)

	require.Len(t, f.alertsClient.writes, 2)
	env := f.alertsClient.writes[1].(models.Envelope)
	data := env.Data.(map[string]interface{})
	assert.Equal(t, models.StatusResolved, data["status"])
}

func TestUpdateAlertStatusInvalidDoesNotBroadcast(t *testing.T) {
	f := newFixture()
	require.NoError(t, f.gateway.IngestAlert(validAlert("a1"), "agent"))

	_, err := f.gateway.UpdateAlertStatus("a1", "archived")
	require.ErrorIs(t, err, store.ErrInvalidStatus)
	assert.Len(t, f.alertsClient.writes, 1)
}

func TestIngestNetworkDataBroadcastsUpdate(t *testing.T) {
	f := newFixture()

	f.gateway.IngestNetworkData(models.NetworkData{
		InboundTraffic:  map[string]interface{}{"value": 12.5},
		OutboundTraffic: map[string]interface{}{"value": 3.5},
	})

	snap := f.telemetry.Snapshot()
	assert.Len(t, snap["inbound_traffic"], 1)

	require.Len(t, f.netClient.writes, 1)
	env := f.netClient.writes[0].(models.Envelope)
	assert.Equal(t, models.MessageTypeUpdate, env.Type)
	data := env.Data.(map[string]interface{})
	assert.Contains(t, data, "inbound_traffic")
	assert.Contains(t, data, "outbound_traffic")

	// Telemetry alone never reaches the alert channel.
	assert.Empty(t, f.alertsClient.writes)
}

func TestProcessSampleSynthesizesAlert(t *testing.T) {
	f := newFixture()

	f.gateway.ProcessSample(models.RawSample{
		"device_id":           "sensor-7",
		"packet_count":        1500.0,
		"connection_duration": 1.0,
		"bytes_transferred":   600000.0,
		"port":                20.0,
		"protocol":            "TCP",
		"flags":               []interface{}{"SYN", "FIN", "RST", "PSH", "ACK", "URG"},
	})

	require.Equal(t, 1, f.store.Len())
	alert := f.store.Recent(1)[0]
	assert.Equal(t, "Port Scanning", alert.ThreatType)
	assert.Equal(t, "sensor-7", alert.DeviceID)
	assert.Equal(t, models.StatusOpen, alert.Status)
	assert.NotEmpty(t, alert.ID)
	assert.Contains(t, alert.Metrics, "confidence")

	require.Len(t, f.alertsClient.writes, 1)
	require.Len(t, f.netClient.writes, 1)
	env := f.netClient.writes[0].(models.Envelope)
	assert.Equal(t, models.MessageTypeUpdate, env.Type)
}

func TestProcessSampleBenignOnlyUpdates(t *testing.T) {
	f := newFixture()

	f.gateway.ProcessSample(models.RawSample{
		"packet_count":        10.0,
		"connection_duration": 60.0,
		"bytes_transferred":   1000.0,
		"port":                443.0,
		"protocol":            "HTTPS",
	})

	assert.Zero(t, f.store.Len())
	assert.Empty(t, f.alertsClient.writes)
	assert.Len(t, f.netClient.writes, 1)
}

func TestServeConsumesSampleQueue(t *testing.T) {
	f := newFixture()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.gateway.Serve(ctx) }()

	f.gateway.Samples() <- models.RawSample{
		"packet_count":        1500.0,
		"connection_duration": 1.0,
		"bytes_transferred":   600000.0,
		"port":                20.0,
	}

	require.Eventually(t, func() bool {
		return f.store.Len() == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.True(t, errors.Is(err, context.Canceled))
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop after cancel")
	}
}

func TestFormatAlertDefaults(t *testing.T) {
	formatted := FormatAlert(models.Alert{
		ID:         "a1",
		Timestamp:  time.Now(),
		ThreatType: "DDoS Attack",
		Severity:   models.SeverityHigh,
		Confidence: 0.92,
	})

	assert.Equal(t, models.StatusOpen, formatted["status"])
	assert.Equal(t, "unknown", formatted["device_id"])
	assert.Equal(t, "No description provided", formatted["description"])

	metrics, ok := formatted["metrics"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 0.92, metrics["confidence"])
}
