package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"cordpulse/internal/infrastructure"
)

// Hub maintains the set of active sessions. Sessions never talk to each
// other; the hub only counts them and closes them on shutdown.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	drained chan struct{}
	closed  bool

	totalConnections int64
	logger           *slog.Logger
}

// HubStats is a snapshot of the hub counters.
type HubStats struct {
	ActiveConnections int   `json:"active_connections"`
	TotalConnections  int64 `json:"total_connections"`
}

// NewHub creates a new Hub instance
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		logger:  infrastructure.WithComponent(logger, "websocket.hub"),
	}
}

// Register adds a client. It reports false once the hub is stopped.
func (h *Hub) Register(client *Client) bool {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return false
	}
	h.clients[client.id] = client
	h.totalConnections++
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.InfoContext(client.context(), "Client registered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.String("remote_addr", client.remoteAddr))
	return true
}

// Unregister removes a client.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.id)
	count := len(h.clients)
	if count == 0 && h.drained != nil {
		close(h.drained)
		h.drained = nil
	}
	h.mu.Unlock()

	h.logger.InfoContext(client.context(), "Client unregistered",
		slog.Int("total_clients", count),
		slog.String("client_id", client.id),
		slog.Duration("connection_duration", time.Since(client.connectedAt)))
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ActiveConnections is ClientCount for health reporting.
func (h *Hub) ActiveConnections() int {
	return h.ClientCount()
}

// Stats returns the hub counters.
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return HubStats{ActiveConnections: len(h.clients), TotalConnections: h.totalConnections}
}

// Stop refuses new clients, closes every connection and waits until the
// sessions have unregistered or ctx is done.
func (h *Hub) Stop(ctx context.Context) error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	var drained chan struct{}
	if len(clients) > 0 {
		if h.drained == nil {
			h.drained = make(chan struct{})
		}
		drained = h.drained
	}
	h.mu.Unlock()

	if len(clients) == 0 {
		return nil
	}
	h.logger.InfoContext(ctx, "Closing WebSocket clients", slog.Int("clients", len(clients)))
	for _, c := range clients {
		c.conn.Close()
	}

	select {
	case <-drained:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
