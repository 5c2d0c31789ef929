package notifications

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"vibeu/internal/models"
	"vibeu/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096
)

type resyncPayload struct {
	Dropped uint64 `json:"dropped"`
}

// Client bridges one websocket connection to one hub subscription.
type Client struct {
	Conn   *websocket.Conn
	UserID string

	hub *Hub
	sub *Subscription
}

// NewClient creates a Client for an open subscription.
func NewClient(hub *Hub, conn *websocket.Conn, sub *Subscription) *Client {
	return &Client{
		Conn:   conn,
		UserID: sub.RecipientID,
		hub:    hub,
		sub:    sub,
	}
}

// Run pumps events until either side closes and returns after both pumps
// exit. The connection is invalid once the websocket handler returns.
func (c *Client) Run() {
	done := make(chan struct{})
	go func() {
		defer close(done)
		c.WritePump()
	}()
	c.ReadPump()
	<-done
}

// ReadPump drains inbound frames so control frames are processed. Any inbound
// frame counts as activity for presence.
func (c *Client) ReadPump() {
	defer c.sub.Close()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.hub.Touch(context.Background(), c.UserID)
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				observability.GlobalLogger.Warn("websocket read failed",
					slog.String("user_id", c.UserID),
					slog.String("error", err.Error()),
				)
			}
			return
		}
		c.hub.Touch(context.Background(), c.UserID)
	}
}

// WritePump writes queued events to the connection. When the subscription
// dropped events it follows up with a resync_required frame.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.sub.C():
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the subscription.
				_ = c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscription closed"))
				return
			}
			if err := c.write(ev); err != nil {
				return
			}
			if n := c.sub.TakeDropped(); n > 0 {
				resync, err := NewEvent(models.EventResyncRequired, resyncPayload{Dropped: n})
				if err == nil {
					if err := c.write(resync); err != nil {
						return
					}
				}
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.Conn.WriteMessage(websocket.TextMessage, data)
}
