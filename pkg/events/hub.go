// Package events streams per-export outcome events to websocket
// subscribers. Each completed or failed export is pushed as one JSON
// event; slow or absent subscribers never block the export pipeline.
package events

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/apozlevich/vmexporter/pkg/config"
	"github.com/apozlevich/vmexporter/pkg/export"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// No Origin header = direct connection (curl, monitoring tools).
		return origin == "" || origin == "http://"+r.Host || origin == "https://"+r.Host
	},
	ReadBufferSize:  config.WSReadBufferSize,
	WriteBufferSize: config.WSWriteBufferSize,
}

// Event is one export outcome as delivered to subscribers.
type Event struct {
	Target          string    `json:"target"`
	DurationSeconds float64   `json:"duration_seconds"`
	Success         bool      `json:"success"`
	Records         int64     `json:"records"`
	Timestamp       time.Time `json:"timestamp"`
}

// Hub manages websocket connections and fans export events out to them.
type Hub struct {
	clients    map[*websocket.Conn]bool
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	broadcast  chan []byte

	logger *zap.Logger
	mu     sync.RWMutex
}

// NewHub creates an event hub. Run must be started for it to deliver
// anything.
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]bool),
		register:   make(chan *websocket.Conn, config.WSChannelBuffer),
		unregister: make(chan *websocket.Conn, config.WSChannelBuffer),
		broadcast:  make(chan []byte, config.WSBroadcastBuffer),
		logger:     logger,
	}
}

// Run drives the hub's main loop until ctx is cancelled, at which point
// all client connections are closed.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for conn := range h.clients {
				conn.Close()
			}
			h.mu.Unlock()
			return

		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("event subscriber connected", zap.Int("total", count))

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Info("event subscriber disconnected", zap.Int("total", count))

		case message := <-h.broadcast:
			h.mu.RLock()
			var failed []*websocket.Conn
			for conn := range h.clients {
				conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
				if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
					h.logger.Warn("event write failed", zap.Error(err))
					failed = append(failed, conn)
				}
			}
			h.mu.RUnlock()

			// Unregister failed connections without holding the lock.
			for _, conn := range failed {
				h.unregister <- conn
			}
		}
	}
}

// Notify queues one export outcome for broadcast. When the channel is
// full the event is dropped rather than blocking the export pipeline.
func (h *Hub) Notify(o export.Outcome) {
	message, err := json.Marshal(Event{
		Target:          o.Target,
		DurationSeconds: o.Duration.Seconds(),
		Success:         o.Success,
		Records:         o.Records,
		Timestamp:       time.Now(),
	})
	if err != nil {
		h.logger.Warn("event marshal failed", zap.Error(err))
		return
	}

	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("event channel full, dropping event")
	}
}

// HasClients reports whether any subscriber is connected.
func (h *Hub) HasClients() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients) > 0
}

// HandleWebSocket upgrades the request and keeps the connection alive
// until the subscriber goes away.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.register <- conn

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Ping sender keeps the connection alive.
	go func() {
		ticker := time.NewTicker(config.WSPingInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(config.WSWriteDeadline))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	defer func() {
		cancel()
		h.unregister <- conn
	}()

	conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(config.WSReadDeadline))
		return nil
	})

	// Read loop only services control frames and detects close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("websocket read error", zap.Error(err))
			}
			break
		}
	}
}
