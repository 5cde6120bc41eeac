package admin

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Client is one websocket subscriber. With no subscription it receives every sensor.
type Client struct {
	conn   *websocket.Conn
	send   chan []byte
	hub    *Hub
	remote string

	mu      sync.RWMutex
	sensors map[string]bool
}

// SubscribeMessage narrows the feed to a set of sensors. An empty list
// restores the full feed.
type SubscribeMessage struct {
	Action    string   `json:"action"`
	SensorIDs []string `json:"sensor_ids"`
}

func newClient(conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		conn:   conn,
		send:   make(chan []byte, 256),
		hub:    hub,
		remote: conn.RemoteAddr().String(),
	}
}

func (c *Client) wants(sensorID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sensors) == 0 || c.sensors[sensorID]
}

func (c *Client) subscribe(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sensors = make(map[string]bool, len(ids))
	for _, id := range ids {
		c.sensors[id] = true
	}
}

// readPump handles subscription requests until the connection closes.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read failed", "remote", c.remote, "err", err)
			}
			return
		}
		var req SubscribeMessage
		if err := json.Unmarshal(msg, &req); err != nil {
			c.hub.logger.Warn("invalid websocket message", "remote", c.remote, "err", err)
			continue
		}
		switch req.Action {
		case "subscribe":
			c.subscribe(req.SensorIDs)
			c.hub.logger.Debug("websocket subscription", "remote", c.remote, "sensors", req.SensorIDs)
		default:
			c.hub.logger.Warn("unknown websocket action", "remote", c.remote, "action", req.Action)
		}
	}
}

// writePump forwards hub messages and keeps the connection alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
