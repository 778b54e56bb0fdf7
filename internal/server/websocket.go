package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/edgesentinel/edge-sentinel/internal/models"
	"github.com/edgesentinel/edge-sentinel/internal/ws"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// initialAlertCount is how many recent alerts a new client receives.
const initialAlertCount = 50

// handleAlertSocket serves the alert channel. On connect the client
// receives the last 50 alerts; afterwards it gets alert pushes and may
// send pings.
func (s *Server) handleAlertSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	id := s.alerts.Connect(conn, c.Query("client_id"))
	defer s.alerts.Disconnect(id)

	if !s.alerts.SendTo(id, gin.H{
		"type":   models.MessageTypeInitial,
		"alerts": s.store.Recent(initialAlertCount),
	}) {
		return
	}

	s.readLoop(s.alerts, id, conn)
}

// handleNetworkSocket serves the telemetry channel with a full series
// snapshot on connect.
func (s *Server) handleNetworkSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("network websocket upgrade failed")
		return
	}
	defer conn.Close()

	id := s.network.Connect(conn, "")
	defer s.network.Disconnect(id)

	initial := s.telemetry.Snapshot()
	initial["type"] = models.MessageTypeInitial
	if !s.network.SendTo(id, initial) {
		return
	}

	s.readLoop(s.network, id, conn)
}

// readLoop consumes client messages until the connection dies. Pings
// are answered with pongs; everything else is ignored. Pings are never
// used to evict a connection, only a failed send is.
func (s *Server) readLoop(manager *ws.Manager, id string, conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("client_id", id).Msg("websocket read error")
			}
			return
		}

		var msg struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		if msg.Type == models.MessageTypePing {
			manager.SendTo(id, gin.H{
				"type":      models.MessageTypePong,
				"timestamp": time.Now(),
			})
		}
	}
}
