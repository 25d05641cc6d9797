package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/benlarsendk/a320-checklist-companion/checklist"
	"github.com/benlarsendk/a320-checklist-companion/flight"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The UI is served to tablets and phones on the local network; the
	// socket accepts any origin the HTTP server accepted.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsEnvelope is the wire frame in both directions: a type tag and a payload.
type wsEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func envelope(msgType string, data any) []byte {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	msg, err := json.Marshal(wsEnvelope{Type: msgType, Data: payload})
	if err != nil {
		return nil
	}
	return msg
}

// handleWS upgrades the connection and runs the client pumps.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("WebSocket upgrade failed", "error", err)
		return
	}

	c := s.hub.register(conn)
	go c.writePump()

	// Every new client gets the full current state immediately.
	s.hub.sendTo(c, envelope("state_update", s.engine.Snapshot()))

	s.readPump(c)
}

func (s *Server) readPump(c *wsClient) {
	defer func() {
		s.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("WebSocket read error", "client", c.id, "error", err)
			}
			return
		}

		var msg wsEnvelope
		if err := json.Unmarshal(raw, &msg); err != nil {
			s.logger.Warn("Malformed WebSocket message", "client", c.id, "error", err)
			continue
		}
		s.handleWSMessage(c, msg)
	}
}

// handleWSMessage dispatches one inbound client message. Malformed payloads
// are logged and skipped, never fatal to the connection.
func (s *Server) handleWSMessage(c *wsClient, msg wsEnvelope) {
	switch msg.Type {
	case "check_item":
		var data struct {
			Phase  string `json:"phase"`
			ItemID string `json:"item_id"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Phase == "" || data.ItemID == "" {
			s.logger.Warn("Invalid check_item message", "client", c.id)
			return
		}
		s.engine.ToggleItem(data.Phase, data.ItemID)

	case "set_phase":
		var data struct {
			Phase string `json:"phase"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			s.logger.Warn("Invalid set_phase message", "client", c.id)
			return
		}
		phase, err := flight.ParsePhase(data.Phase)
		if err != nil {
			s.logger.Warn("Unknown phase in set_phase", "client", c.id, "phase", data.Phase)
			return
		}
		s.engine.SetPhase(phase)

	case "next_phase":
		s.engine.NextPhase()

	case "prev_phase":
		s.engine.PrevPhase()

	case "reset":
		s.engine.Reset()

	case "set_mode":
		var data struct {
			Mode string `json:"mode"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			s.logger.Warn("Invalid set_mode message", "client", c.id)
			return
		}
		switch checklist.PhaseMode(data.Mode) {
		case checklist.PhaseModeAuto, checklist.PhaseModeManual:
			s.engine.SetMode(checklist.PhaseMode(data.Mode))
		default:
			s.logger.Warn("Unknown phase mode", "client", c.id, "mode", data.Mode)
		}

	case "voice_start":
		if s.voice == nil {
			return
		}
		s.hub.sendTo(c, envelope("voice_listening", s.voice.StartListening()))

	case "voice_stop":
		if s.voice == nil {
			return
		}
		s.hub.sendTo(c, envelope("voice_listening", s.voice.StopListening()))

	case "voice_transcript":
		if s.voice == nil {
			return
		}
		var data struct {
			Transcript string `json:"transcript"`
		}
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			s.logger.Warn("Invalid voice_transcript message", "client", c.id)
			return
		}
		result := s.voice.ProcessTranscript(data.Transcript)
		s.hub.sendTo(c, envelope("voice_result", result))
		if result.Action == "response_accepted" && result.AutoAdvance {
			snap := s.engine.Snapshot()
			s.engine.CheckItem(string(snap.ChecklistState.Phase), result.ItemID)
		}

	default:
		s.logger.Warn("Unknown WebSocket message type", "client", c.id, "type", msg.Type)
	}
}
