package hub

import (
	"log/slog"
	"sync"
)

const (
	EventTaskUpdate   = "task-update"
	EventChatMessage  = "chat-message"
	EventTaskReminder = "task-reminder"
)

// Event is the wire envelope shared by every realtime message.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// Metrics receives hub counters. Satisfied by observability.Prom.
type Metrics interface {
	HubConnected()
	HubDisconnected()
	HubPublished(event string)
	HubDropped(event string)
}

// sendBuffer bounds how far a slow client may fall behind before events are
// dropped for it. Delivery is best-effort, at-most-once.
const sendBuffer = 32

// Conn is one live client connection. The transport drains Receive and
// writes each event to the socket.
type Conn struct {
	send chan Event
}

func (c *Conn) Receive() <-chan Event {
	return c.send
}

// Hub maps recipient ids ("rooms") to the connections currently joined to
// them. It knows nothing about storage or transports.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Conn]struct{}
	joined  map[*Conn]map[string]struct{}
	log     *slog.Logger
	metrics Metrics
}

func New(log *slog.Logger, metrics Metrics) *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Conn]struct{}),
		joined:  make(map[*Conn]map[string]struct{}),
		log:     log,
		metrics: metrics,
	}
}

// Register adds a new live connection with no room memberships yet.
func (h *Hub) Register() *Conn {
	c := &Conn{send: make(chan Event, sendBuffer)}

	h.mu.Lock()
	h.joined[c] = make(map[string]struct{})
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.HubConnected()
	}

	return c
}

// Join adds the connection to the recipient's room. Idempotent.
func (h *Hub) Join(c *Conn, recipientID string) {
	if recipientID == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	memberships, ok := h.joined[c]

	if !ok {
		// already disconnected
		return
	}

	if _, ok := memberships[recipientID]; ok {
		return
	}

	memberships[recipientID] = struct{}{}

	room, ok := h.rooms[recipientID]

	if !ok {
		room = make(map[*Conn]struct{})
		h.rooms[recipientID] = room
	}

	room[c] = struct{}{}
}

// Disconnect removes the connection from every joined room and closes its
// send channel. Safe to call for an already-removed connection.
func (h *Hub) Disconnect(c *Conn) {
	h.mu.Lock()

	memberships, ok := h.joined[c]

	if !ok {
		h.mu.Unlock()
		return
	}

	for recipientID := range memberships {
		room := h.rooms[recipientID]
		delete(room, c)

		if len(room) == 0 {
			delete(h.rooms, recipientID)
		}
	}

	delete(h.joined, c)

	// closed under the write lock so Publish can never send on a closed
	// channel: sends happen under the read lock
	close(c.send)
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.HubDisconnected()
	}
}

// Publish delivers the event to every connection currently joined to
// recipientID and reports how many received it. No connections joined is a
// normal outcome, not an error; a full send buffer drops the event for that
// connection rather than blocking the publisher.
func (h *Hub) Publish(recipientID, eventType string, payload any) int {
	ev := Event{Event: eventType, Data: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0

	for c := range h.rooms[recipientID] {
		select {
		case c.send <- ev:
			delivered++
			if h.metrics != nil {
				h.metrics.HubPublished(eventType)
			}
		default:
			if h.metrics != nil {
				h.metrics.HubDropped(eventType)
			}
			h.log.Warn("hub send buffer full, dropping event",
				"event", eventType, "recipient", recipientID)
		}
	}

	return delivered
}

// PublishAll fans one event out to a set of recipients, deduplicated by the
// caller.
func (h *Hub) PublishAll(recipientIDs []string, eventType string, payload any) {
	for _, id := range recipientIDs {
		h.Publish(id, eventType, payload)
	}
}
