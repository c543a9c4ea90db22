package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// ListOwnership answers whether a user owns a list.
type ListOwnership interface {
	OwnsList(ctx context.Context, userID, listID int64) (bool, error)
}

// ClientConfig holds the websocket timing limits.
type ClientConfig struct {
	SendBuffer     int
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	MaxMessageSize int64
}

// inbound is a client-to-server message.
type inbound struct {
	Type   string `json:"type"`
	ListID int64  `json:"list_id"`
}

// Client is one websocket connection of an authenticated user.
type Client struct {
	id     string
	userID int64
	conn   *websocket.Conn
	hub    *Hub
	lists  ListOwnership
	cfg    ClientConfig

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func newClient(conn *websocket.Conn, userID int64, hub *Hub, lists ListOwnership, cfg ClientConfig) *Client {
	return &Client{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		hub:    hub,
		lists:  lists,
		cfg:    cfg,
		send:   make(chan []byte, cfg.SendBuffer),
	}
}

func (c *Client) ID() string { return c.id }

func (c *Client) Send(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close stops the write pump, which then closes the connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Client) reply(event string, data any) {
	b, _ := json.Marshal(data)
	c.Send(encodeFrame(event, b))
}

// readPump handles join/leave messages until the connection fails, then
// leaves every topic.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		c.Close()
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket read", "client", c.id, "err", err)
			}
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.reply("error", map[string]string{"error": "malformed message"})
			continue
		}
		c.handle(ctx, msg)
	}
}

func (c *Client) handle(ctx context.Context, msg inbound) {
	switch msg.Type {
	case "join", "join_list":
		c.join(ctx, msg.ListID)
	case "leave", "leave_list":
		if msg.ListID <= 0 {
			c.reply("error", map[string]string{"error": "list_id is required"})
			return
		}
		c.hub.Leave(c, ListTopic(msg.ListID))
		c.reply("left", map[string]int64{"list_id": msg.ListID})
	default:
		c.reply("error", map[string]string{"error": "unknown message type"})
	}
}

func (c *Client) join(ctx context.Context, listID int64) {
	if listID <= 0 {
		c.reply("error", map[string]string{"error": "list_id is required"})
		return
	}
	owns, err := c.lists.OwnsList(ctx, c.userID, listID)
	if err != nil {
		slog.Error("websocket join", "client", c.id, "list_id", listID, "err", err)
		c.reply("error", map[string]string{"error": "join failed"})
		return
	}
	if !owns {
		c.reply("error", map[string]string{"error": "not found"})
		return
	}
	if !c.hub.Join(c, ListTopic(listID)) {
		return
	}
	c.reply("joined", map[string]int64{"list_id": listID})
}

// writePump forwards queued frames and keeps the connection alive with
// pings. It owns all writes to conn.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
