package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// Message is a notification pushed to the clients following one account.
// Type is "<entity>_<action>", e.g. "honor_granted".
type Message struct {
	Type   string         `json:"type"`
	Entity string         `json:"entity"`
	Action string         `json:"action"`
	ID     int64          `json:"id,omitempty"`
	Extra  map[string]any `json:"extra,omitempty"`
}

// NewMessage creates a new Message.
func NewMessage(entity, action string, id int64, extra map[string]any) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
		Extra:  extra,
	}
}

// Hub tracks connected clients grouped by the account whose honors they
// follow. Honors are recorded on the effective account, so a household's
// parent and sub-accounts share one audience.
type Hub struct {
	mu        sync.RWMutex
	audiences map[int64]map[*Client]struct{}
	logger    *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		audiences: make(map[int64]map[*Client]struct{}),
		logger:    logger,
	}
}

// Register adds c to the audience of the account it follows.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	audience, ok := h.audiences[c.userID]
	if !ok {
		audience = make(map[*Client]struct{})
		h.audiences[c.userID] = audience
	}
	audience[c] = struct{}{}
	n := len(audience)
	h.mu.Unlock()
	h.logger.Debug("client connected", "user_id", c.userID, "clients", n)
}

// Unregister removes c and closes its send channel. Calling it twice is safe.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	audience := h.audiences[c.userID]
	if _, ok := audience[c]; ok {
		delete(audience, c)
		close(c.send)
	}
	if len(audience) == 0 {
		delete(h.audiences, c.userID)
	}
	n := len(audience)
	h.mu.Unlock()
	h.logger.Debug("client disconnected", "user_id", c.userID, "clients", n)
}

// Send queues msg for every client following userID. Clients whose buffer
// is full miss the message.
func (h *Hub) Send(userID int64, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal message", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	dropped := 0
	for c := range h.audiences[userID] {
		select {
		case c.send <- data:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		h.logger.Warn("dropped message", "type", msg.Type, "user_id", userID, "clients", dropped)
	}
}

// ClientCount returns the number of connected clients across all accounts.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, audience := range h.audiences {
		n += len(audience)
	}
	return n
}

// Listeners returns the number of clients following userID.
func (h *Hub) Listeners(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.audiences[userID])
}
