package ws

import (
	"encoding/json"
	"log"
	"sync"
)

// Hub fans frames out to the connections subscribed to each lobby. The send
// itself never blocks lobby processing: every subscriber owns a buffered
// channel drained by its writePump, and a subscriber whose buffer is full is
// dropped instead of back-pressuring the room.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*client]struct{}),
	}
}

func (h *Hub) Subscribe(code string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[code]; !ok {
		h.rooms[code] = make(map[*client]struct{})
	}
	h.rooms[code][c] = struct{}{}
}

// Unsubscribe detaches the client from the room without closing it; the
// gateway owns connection teardown.
func (h *Hub) Unsubscribe(code string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(code, c)
}

// DropRoom removes the whole room. Remaining members stay connected but no
// longer receive frames for the code.
func (h *Hub) DropRoom(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, code)
}

// Broadcast pushes the envelope to every subscriber of the room. Subscribers
// that cannot keep up are disconnected.
func (h *Hub) Broadcast(code string, msg Envelope) {
	h.deliver(code, msg, false)
}

// Relay pushes the envelope only to subscribers that have completed the
// target-ready handshake. Frames sent before readiness are dropped, not
// queued.
func (h *Hub) Relay(code string, msg Envelope) {
	h.deliver(code, msg, true)
}

func (h *Hub) deliver(code string, msg Envelope, readyOnly bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("hub marshal error: %v", err)
		return
	}

	h.mu.RLock()
	members := make([]*client, 0, len(h.rooms[code]))
	for c := range h.rooms[code] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		if readyOnly && !c.relayReady.Load() {
			continue
		}
		if !c.trySend(data) {
			log.Printf("ws client %s too slow, disconnecting", c.id)
			h.Unsubscribe(code, c)
			c.close()
		}
	}
}

// RoomSize returns the number of subscribers attached to the code.
func (h *Hub) RoomSize(code string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[code])
}

// ClientCount returns the number of subscribed connections across all rooms.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, members := range h.rooms {
		total += len(members)
	}
	return total
}

func (h *Hub) removeLocked(code string, c *client) {
	members, ok := h.rooms[code]
	if !ok {
		return
	}
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, code)
	}
}
