package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Read-only event feed, same trust model as the CORS policy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeTimeout = 10 * time.Second

// initialMessage is the snapshot pushed to every client on connect.
type initialMessage struct {
	Type      string `json:"type"`
	Statuses  any    `json:"statuses"`
	Health    any    `json:"health"`
	Sequencer any    `json:"sequencer"`
}

// handleStream upgrades to WebSocket, pushes the full snapshot, then
// forwards every broadcast event. The subscription is taken before the
// snapshot is read so no event falls between them.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	sub := s.broadcaster.Subscribe()
	defer sub.Unsubscribe()

	s.log.Info("New WebSocket client connected", "remote", conn.RemoteAddr())

	initial := initialMessage{
		Type:      "initial",
		Statuses:  s.store.GetAllStatuses(),
		Health:    s.health.EvaluateAll(),
		Sequencer: s.store.GetAllSequencerStatuses(),
	}
	if err := s.writeMessage(conn, initial); err != nil {
		s.log.Warn("Failed to send initial snapshot", "err", err)
		return
	}

	// Reader goroutine: the client never sends data we care about, but
	// reading is what surfaces close frames and dead peers.
	clientGone := make(chan struct{})
	go func() {
		defer close(clientGone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-sub.Events():
			if err := s.writeMessage(conn, ev); err != nil {
				s.log.Info("WebSocket client disconnected", "remote", conn.RemoteAddr())
				return
			}
		case <-clientGone:
			s.log.Info("WebSocket client disconnected", "remote", conn.RemoteAddr())
			return
		case <-s.closed:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeTimeout))
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) writeMessage(conn *websocket.Conn, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, payload)
}
