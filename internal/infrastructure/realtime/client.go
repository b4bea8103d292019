package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = (PongWait * 9) / 10
	sendBuf    = 128

	// PongWait bounds how long a connection may stay silent. The read loop
	// extends the deadline on every pong.
	PongWait = 60 * time.Second
)

// Client is one live websocket connection bound to an authenticated
// principal. Tenant identity is resolved once at handshake and fixed for the
// connection's lifetime.
type Client struct {
	ID       string
	UserID   string
	TenantID string
	UserName string

	hub  *Hub
	conn *websocket.Conn
	send chan Event

	once   sync.Once
	closed chan struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID, tenantID, userName string) *Client {
	return &Client{
		ID:       uuid.NewString(),
		UserID:   userID,
		TenantID: tenantID,
		UserName: userName,
		hub:      hub,
		conn:     conn,
		send:     make(chan Event, sendBuf),
		closed:   make(chan struct{}),
	}
}

// Send enqueues an event for delivery. A slow client with a full buffer is
// disconnected rather than allowed to stall the broadcaster.
func (c *Client) Send(ev Event) bool {
	select {
	case <-c.closed:
		return false
	case c.send <- ev:
		return true
	default:
		c.Close()
		return false
	}
}

// Close terminates the connection and releases the write loop. Safe to call
// multiple times.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.closed)
		if c.conn != nil {
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			_ = c.conn.Close()
		}
	})
}

// Start launches the write loop. The socket handler calls it exactly once
// after attaching the client to the hub.
func (c *Client) Start() {
	go c.writeLoop()
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.closed:
			return
		case ev := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteJSON(ev); err != nil {
				c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
