package websocket

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/telfield/fieldcollect/internal/metrics"
	"github.com/telfield/fieldcollect/internal/types"
)

// RefreshNotice tells connected dashboards that server-side data changed
// and a refetch is due. Reason is "upload" or "contact".
type RefreshNotice struct {
	Type          string       `json:"type"`
	Reason        string       `json:"reason"`
	Source        types.Source `json:"source"`
	SupervisorKey string       `json:"supervisorKey,omitempty"`
	Timestamp     time.Time    `json:"timestamp"`
}

// NewRefreshNotice builds a refresh notice for the given change
func NewRefreshNotice(reason string, source types.Source, supervisorKey string) RefreshNotice {
	return RefreshNotice{
		Type:          "refresh",
		Reason:        reason,
		Source:        source,
		SupervisorKey: supervisorKey,
		Timestamp:     time.Now(),
	}
}

// Hub maintains the set of active clients and broadcasts refresh notices
type Hub struct {
	// Registered clients
	clients map[*Client]bool

	// Outbound refresh notices
	broadcast chan RefreshNotice

	// Register requests from the clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Mutex to protect clients map
	mu sync.RWMutex

	// Logger
	logger zerolog.Logger
}

// NewHub creates a new Hub
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		broadcast:  make(chan RefreshNotice, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
		logger:     logger,
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			h.logger.Info().
				Str("client_id", client.id).
				Int("total_clients", h.ClientCount()).
				Msg("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info().
					Str("client_id", client.id).
					Int("total_clients", len(h.clients)).
					Msg("client disconnected")
			}
			h.mu.Unlock()

		case notice := <-h.broadcast:
			h.deliver(notice)
			metrics.Get().RecordRefreshBroadcast()
		}
	}
}

// NotifyRefresh queues a refresh notice for all interested clients
func (h *Hub) NotifyRefresh(notice RefreshNotice) {
	h.broadcast <- notice
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// deliver sends a notice to each client that its scope admits
func (h *Hub) deliver(notice RefreshNotice) {
	data, err := json.Marshal(notice)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to marshal refresh notice")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if !client.wantsNotice(notice) {
			continue
		}

		select {
		case client.send <- data:
		default:
			// Client's send buffer is full, close and remove it
			close(client.send)
			delete(h.clients, client)
			h.logger.Warn().
				Str("client_id", client.id).
				Msg("client send buffer full, closing connection")
		}
	}
}
