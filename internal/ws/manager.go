package ws

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/edgesentinel/edge-sentinel/internal/metrics"
)

// Sender is the transport side of a connection. *websocket.Conn
// satisfies it; tests substitute fakes.
type Sender interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Stats counts connection lifecycle events for a channel.
// MessagesSent counts broadcast calls, not per-recipient sends.
type Stats struct {
	TotalConnections    int `json:"total_connections"`
	TotalDisconnections int `json:"total_disconnections"`
	MessagesSent        int `json:"messages_sent"`
	Errors              int `json:"errors"`
}

// ConnectionInfo describes one active connection in a snapshot.
type ConnectionInfo struct {
	ClientID           string    `json:"client_id"`
	ConnectedAt        time.Time `json:"connected_at"`
	ConnectionDuration string    `json:"connection_duration"`
}

// Snapshot is a point-in-time view of a channel's registry.
type Snapshot struct {
	ActiveConnections int              `json:"active_connections"`
	Connections       []ConnectionInfo `json:"connections"`
	Stats             Stats            `json:"stats"`
}

type connection struct {
	sender      Sender
	connectedAt time.Time
}

// Manager is a per-topic registry of persistent connections with
// best-effort fan-out. A send failure is terminal for that connection;
// there are no retries and no per-connection queues. All writes for a
// topic are serialized through the manager's lock, so a Sender is never
// written concurrently.
type Manager struct {
	topic string

	mu    sync.Mutex
	conns map[string]*connection
	stats Stats
}

// NewManager creates an empty registry for one broadcast topic.
func NewManager(topic string) *Manager {
	return &Manager{
		topic: topic,
		conns: make(map[string]*connection),
	}
}

// Connect registers a connection whose handshake already completed.
// When id is empty, or a client presents an id that is already
// registered, a unique one is generated so an existing connection is
// never displaced. Returns the id actually registered.
func (m *Manager) Connect(sender Sender, id string) string {
	m.mu.Lock()
	if _, taken := m.conns[id]; id == "" || taken {
		id = uuid.New().String()
	}
	m.conns[id] = &connection{sender: sender, connectedAt: time.Now()}
	m.stats.TotalConnections++
	active := len(m.conns)
	m.mu.Unlock()

	metrics.ActiveConnections.WithLabelValues(m.topic).Set(float64(active))
	log.Info().Str("channel", m.topic).Str("client_id", id).Int("active", active).
		Msg("client connected")
	return id
}

// Disconnect removes a connection from the active set. Idempotent; the
// disconnection counter only moves when the id was present. The
// transport is not closed here, the caller owns it.
func (m *Manager) Disconnect(id string) {
	m.mu.Lock()
	_, ok := m.conns[id]
	if ok {
		delete(m.conns, id)
		m.stats.TotalDisconnections++
	}
	active := len(m.conns)
	m.mu.Unlock()

	if ok {
		metrics.ActiveConnections.WithLabelValues(m.topic).Set(float64(active))
		log.Info().Str("channel", m.topic).Str("client_id", id).Int("active", active).
			Msg("client disconnected")
	}
}

// Broadcast sends message to every active connection. A failed send
// marks that connection for removal without aborting the pass; marked
// connections are closed and disconnected after the pass. Returns the
// number of connections still active. The messages_sent counter moves
// exactly once per call regardless of recipient count.
func (m *Manager) Broadcast(message interface{}) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stats.MessagesSent++
	metrics.BroadcastsTotal.WithLabelValues(m.topic).Inc()

	var failed []string
	for id, conn := range m.conns {
		if err := conn.sender.WriteJSON(message); err != nil {
			log.Error().Err(err).Str("channel", m.topic).Str("client_id", id).
				Msg("broadcast send failed")
			m.stats.Errors++
			failed = append(failed, id)
		}
	}

	for _, id := range failed {
		m.evictLocked(id)
	}
	if len(failed) > 0 {
		log.Info().Str("channel", m.topic).Int("removed", len(failed)).
			Msg("removed dead clients during broadcast")
	}

	metrics.ActiveConnections.WithLabelValues(m.topic).Set(float64(len(m.conns)))
	return len(m.conns)
}

// SendTo sends message to a single connection. A failure evicts that
// connection and returns false. Unknown ids return false.
func (m *Manager) SendTo(id string, message interface{}) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	conn, ok := m.conns[id]
	if !ok {
		return false
	}
	if err := conn.sender.WriteJSON(message); err != nil {
		log.Error().Err(err).Str("channel", m.topic).Str("client_id", id).
			Msg("direct send failed")
		m.stats.Errors++
		m.evictLocked(id)
		metrics.ActiveConnections.WithLabelValues(m.topic).Set(float64(len(m.conns)))
		return false
	}
	return true
}

// Snapshot returns the active set with per-connection durations and the
// channel stats.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	connections := make([]ConnectionInfo, 0, len(m.conns))
	now := time.Now()
	for id, conn := range m.conns {
		connections = append(connections, ConnectionInfo{
			ClientID:           id,
			ConnectedAt:        conn.connectedAt,
			ConnectionDuration: now.Sub(conn.connectedAt).Truncate(time.Second).String(),
		})
	}

	return Snapshot{
		ActiveConnections: len(m.conns),
		Connections:       connections,
		Stats:             m.stats,
	}
}

// ActiveCount returns the number of active connections.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}

// Stats returns a copy of the channel counters.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats
}

// evictLocked removes a connection after a failed send and closes its
// transport. Caller holds m.mu.
func (m *Manager) evictLocked(id string) {
	conn, ok := m.conns[id]
	if !ok {
		return
	}
	conn.sender.Close()
	delete(m.conns, id)
	m.stats.TotalDisconnections++
}
