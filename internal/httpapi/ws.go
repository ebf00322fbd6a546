package httpapi

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/quantfolio/quantfolio/internal/pipeline"
)

// latestReport guards the most recent evaluation for concurrent readers.
type latestReport struct {
	mu     sync.RWMutex
	report *pipeline.Report
}

func (l *latestReport) set(report *pipeline.Report) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.report = report
}

func (l *latestReport) get() *pipeline.Report {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.report
}

// Hub fans refreshed reports out to websocket subscribers. Dead connections
// are dropped on write failure; subscribers re-connect and receive the next
// broadcast.
type Hub struct {
	mu       sync.Mutex
	clients  map[*websocket.Conn]bool
	upgrader websocket.Upgrader
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Hub) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	log.Debug().Str("remote", conn.RemoteAddr().String()).Msg("dashboard subscriber connected")

	// Reader loop exists only to detect close; subscribers are push-only.
	go func() {
		defer h.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Broadcast sends the report to every connected subscriber.
func (h *Hub) Broadcast(report *pipeline.Report) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.clients {
		if err := conn.WriteJSON(report); err != nil {
			log.Debug().Err(err).Msg("dropping dead subscriber")
			conn.Close()
			delete(h.clients, conn)
		}
	}
}

// Subscribers reports the connected client count.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) drop(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[conn] {
		conn.Close()
		delete(h.clients, conn)
	}
}
