package ws

import (
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// connRole is the explicit per-connection role. A connection holds exactly one
// role for exactly one lobby; the gateway rejects transitions that would
// create ambiguity.
type connRole int

const (
	roleUnbound connRole = iota
	roleHost
	roleController
	roleTarget
)

func (r connRole) String() string {
	switch r {
	case roleHost:
		return "host"
	case roleController:
		return "controller"
	case roleTarget:
		return "target"
	default:
		return "unbound"
	}
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once

	// relayReady flips on after the target-ready handshake; relay frames are
	// only delivered to ready subscribers. Read by the hub's broadcast path.
	relayReady atomic.Bool

	// role and code are owned by the connection's read loop; nothing else
	// reads or writes them.
	role connRole
	code string
}

func newClient(id string, conn *websocket.Conn, sendBuffer int) *client {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	c := &client{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
	if conn != nil {
		go c.writePump()
	}
	return c
}

func (c *client) writePump() {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

// close shuts the send channel, which ends the writePump and closes the
// underlying connection. Safe to call more than once.
func (c *client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// trySend queues a frame without blocking; it reports false when the client's
// buffer is full (the client is too slow to keep).
func (c *client) trySend(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}
