package websocket

import (
	"context"
	"time"

	ws "github.com/coder/websocket"
)

// outboxSize bounds queued updates per connection. Day updates supersede one
// another, so a small buffer with drop-on-full is fine.
const outboxSize = 8

const keepaliveInterval = 45 * time.Second

// Client is one connected browser session.
type Client struct {
	hub    *Hub
	conn   *ws.Conn
	outbox chan []byte
}

// NewClient creates a Client tied to the given hub and connection.
func NewClient(hub *Hub, conn *ws.Conn) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		outbox: make(chan []byte, outboxSize),
	}
}

// Run services the connection until it drops: incoming frames are drained
// (clients never send application data), queued updates and keepalive pings
// go out. Blocks, then unregisters from the hub.
func (c *Client) Run(ctx context.Context) {
	c.hub.Register(c)
	defer c.hub.Unregister(c)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer cancel()
		for {
			if _, _, err := c.conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.outbox:
			if !ok {
				return
			}
			if err := c.conn.Write(ctx, ws.MessageText, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.conn.Ping(ctx); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
