package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/avelarsoto/communa-backend/pkg/config"
	"github.com/avelarsoto/communa-backend/pkg/logger"
)

// Client is one live websocket connection owned by one user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uuid.UUID
	connID uuid.UUID
	cfg    config.RealtimeConfig
	logg   *logger.Logger
}

type ackPayload struct {
	NotificationID string `json:"notificationId"`
}

type ackReply struct {
	Acknowledged   bool   `json:"acknowledged"`
	NotificationID string `json:"notificationId"`
}

// readPump consumes frames from the peer until the connection drops. The
// pong handler extends the read deadline; a silent peer times out.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.detach(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				c.logg.Warn(ctx, "websocket read failed")
			}
			return
		}

		switch frame.Event {
		case EventAcknowledge:
			c.handleAcknowledge(ctx, frame.Data)
		default:
			c.logg.Debug(c.logg.WithField(ctx, "event", frame.Event), "ignoring unknown frame")
		}
	}
}

// handleAcknowledge echoes receipt back to the client. The acknowledgement is
// advisory and does not change stored read state.
func (c *Client) handleAcknowledge(ctx context.Context, data json.RawMessage) {
	var payload ackPayload
	if len(data) > 0 {
		if err := json.Unmarshal(data, &payload); err != nil {
			c.logg.Debug(ctx, "malformed acknowledge payload")
			return
		}
	}

	frame, err := NewFrame(EventAcknowledge, ackReply{
		Acknowledged:   true,
		NotificationID: payload.NotificationID,
	})
	if err != nil {
		c.logg.Error(ctx, "encoding acknowledge reply", err)
		return
	}
	raw, err := json.Marshal(frame)
	if err != nil {
		c.logg.Error(ctx, "encoding acknowledge frame", err)
		return
	}

	if !c.hub.trySend(c, raw) {
		c.logg.Warn(ctx, "dropping acknowledge reply")
	}
}

// writePump serializes all writes to the connection and keeps it alive with
// periodic pings. Only this goroutine may write to the socket.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod())
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
