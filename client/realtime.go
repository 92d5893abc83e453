package client

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"chatline/domain/event"
	"chatline/errors"

	"github.com/gorilla/websocket"
)

// wireEvent mirrors the frame the server pushes for collection changes.
type wireEvent struct {
	Collection event.Collection `json:"collection"`
	Type       event.Type       `json:"event"`
	Record     json.RawMessage  `json:"record"`
}

type realtime struct {
	conn *websocket.Conn
	done chan struct{}
}

// Connect opens the push stream. Requires a session; reconnection is
// the caller's concern, a dropped stream stays dropped.
func (c *Client) Connect(ctx context.Context) error {
	token := c.token()
	if token == "" {
		return errors.ErrNotAuthenticated
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.rt != nil {
		return nil
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL(c.baseURL)+"/api/ws?token="+token, nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			return statusError(resp)
		}
		return fmt.Errorf("%w: %v", errors.ErrTransport, err)
	}

	rt := &realtime{conn: conn, done: make(chan struct{})}
	c.rt = rt
	go c.readLoop(rt)
	return nil
}

// Done is closed once the push stream terminates, for whatever reason.
func (c *Client) Done() <-chan struct{} {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.rt == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return c.rt.done
}

// readLoop is the single reader. Events are dispatched inline so every
// handler sees them in arrival order.
func (c *Client) readLoop(rt *realtime) {
	defer close(rt.done)
	for {
		var evt wireEvent
		if err := rt.conn.ReadJSON(&evt); err != nil {
			c.log.Debug("Push stream closed", "error", err)
			return
		}
		if collection := c.collection(evt.Collection); collection != nil {
			collection.dispatch(evt.Type, evt.Record)
		}
	}
}

func (c *Client) disconnect() {
	c.mu.Lock()
	rt := c.rt
	c.rt = nil
	c.mu.Unlock()

	if rt == nil {
		return
	}
	_ = rt.conn.Close()
	<-rt.done
}

func wsURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https"):
		return "wss" + strings.TrimPrefix(baseURL, "https")
	case strings.HasPrefix(baseURL, "http"):
		return "ws" + strings.TrimPrefix(baseURL, "http")
	default:
		return baseURL
	}
}
