package realtime

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/eventflow/eventflow/internal/models"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// Publisher fans a change out to every connected client.
type Publisher interface {
	Publish(ctx context.Context, change models.Change) error
}

// Broker carries changes between server instances.
type Broker interface {
	PublishChange(ctx context.Context, payload []byte) error
	SubscribeChanges(ctx context.Context, handler func(payload []byte)) (cancel func(), err error)
}

// Hub keeps the set of live feed connections and broadcasts changes to them.
// With a broker, Publish goes through the broker only and the subscription does the
// local broadcast, so every instance (this one included) delivers each change once.
type Hub struct {
	clients map[string]*Client
	mu      sync.RWMutex
	logger  *zap.Logger
	broker  Broker
	cancel  func()
}

// NewHub creates a hub. broker may be nil for single-instance deployments.
func NewHub(logger *zap.Logger, broker Broker) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		clients: make(map[string]*Client),
		logger:  logger,
		broker:  broker,
	}
}

// Start subscribes to the broker. It is a no-op without one.
func (h *Hub) Start(ctx context.Context) error {
	if h.broker == nil {
		return nil
	}
	cancel, err := h.broker.SubscribeChanges(ctx, func(payload []byte) {
		h.broadcast(payload)
	})
	if err != nil {
		return err
	}
	h.mu.Lock()
	h.cancel = cancel
	h.mu.Unlock()
	return nil
}

// Stop ends the broker subscription.
func (h *Hub) Stop() {
	h.mu.Lock()
	cancel := h.cancel
	h.cancel = nil
	h.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Register adds a client to the feed.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("feed client joined", zap.String("client_id", c.ID), zap.String("user_id", c.UserID.String()))
}

// Unregister removes a client from the feed.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; ok {
		delete(h.clients, c.ID)
		close(c.send)
	}
	h.mu.Unlock()
	h.logger.Debug("feed client left", zap.String("client_id", c.ID))
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish implements Publisher.
func (h *Hub) Publish(ctx context.Context, change models.Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return err
	}
	if h.broker != nil {
		return h.broker.PublishChange(ctx, data)
	}
	h.broadcast(data)
	return nil
}

func (h *Hub) broadcast(data []byte) {
	msg := WSMessage{Event: "change", Data: data}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}
