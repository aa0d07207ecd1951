package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/lifecycle"
	"github.com/Mauricio-Bulhoes/gestaoEventosFrontend/internal/model"
)

const (
	TypeState    = "state"
	TypeNavigate = "navigate"
	TypeError    = "error"
)

// Message is anything pushed to a browser: a browse state, a navigation
// instruction, a command error, or a record change notification.
type Message struct {
	Type     string                 `json:"type"`
	Entity   string                 `json:"entity,omitempty"`
	Action   string                 `json:"action,omitempty"`
	ID       int64                  `json:"id,omitempty"`
	State    *lifecycle.BrowseState `json:"state,omitempty"`
	Location string                 `json:"location,omitempty"`
	Error    string                 `json:"error,omitempty"`
}

// NewMessage creates a change notification with the Type derived from entity
// and action, e.g. "event_deleted".
func NewMessage(entity, action string, id int64) Message {
	return Message{
		Type:   fmt.Sprintf("%s_%s", entity, action),
		Entity: entity,
		Action: action,
		ID:     id,
	}
}

// Hub tracks open browse sessions and fans out record changes to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
}

// Unregister removes a client and marks it done. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.done)
	}
	h.mu.Unlock()
}

// Broadcast sends msg to every session and asks each to reload its page.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal broadcast", "error", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients {
		c.push(data)
		c.requestReload()
	}
	h.logger.Debug("broadcast", "type", msg.Type, "id", msg.ID, "clients", len(h.clients))
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Notifying wraps gw so that every successful create, update or delete is
// broadcast to the open sessions.
func (h *Hub) Notifying(gw lifecycle.Gateway) lifecycle.Gateway {
	return &notifyingGateway{Gateway: gw, hub: h}
}

type notifyingGateway struct {
	lifecycle.Gateway
	hub *Hub
}

func (g *notifyingGateway) Create(ctx context.Context, in model.EventInput) (model.Event, error) {
	e, err := g.Gateway.Create(ctx, in)
	if err == nil {
		g.hub.Broadcast(NewMessage("event", "created", e.ID))
	}
	return e, err
}

func (g *notifyingGateway) Update(ctx context.Context, id int64, in model.EventInput) (model.Event, error) {
	e, err := g.Gateway.Update(ctx, id, in)
	if err == nil {
		g.hub.Broadcast(NewMessage("event", "updated", id))
	}
	return e, err
}

func (g *notifyingGateway) SoftDelete(ctx context.Context, id int64) error {
	err := g.Gateway.SoftDelete(ctx, id)
	if err == nil {
		g.hub.Broadcast(NewMessage("event", "deleted", id))
	}
	return err
}
