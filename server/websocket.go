package server

import (
	"context"
	"net/http"
	"sync"

	"chatline/domain/event"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// connSink pushes collection events to one websocket connection.
// Writes are serialized because the fanout and the close path may race.
type connSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *connSink) Consume(_ context.Context, evt event.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(evt)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", "error", err)
		return
	}

	subscriberID := uuid.NewString()
	sink := &connSink{conn: conn}
	s.registry.Subscribe(subscriberID, []event.Collection{event.Users, event.Messages}, sink)
	s.log.Info("Websocket subscriber connected", "subscriber", subscriberID)

	defer func() {
		s.registry.Unsubscribe(subscriberID)
		_ = conn.Close()
		s.log.Info("Websocket subscriber disconnected", "subscriber", subscriberID)
	}()

	// The stream is push-only. Draining reads is still required to
	// process control frames and to detect the peer going away.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
