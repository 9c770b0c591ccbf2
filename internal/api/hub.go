package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"creator-market-sim/internal/events"
	"creator-market-sim/internal/metrics"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

// Hub fans bus events out to websocket clients. Bus handlers only enqueue; a single
// Run goroutine writes to the connections. When the queue is full the event is dropped.
type Hub struct {
	logger   *zap.Logger
	metrics  *metrics.Recorder
	upgrader websocket.Upgrader
	queue    chan []byte

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
}

// NewHub creates a hub with a broadcast queue of queueSize messages.
func NewHub(logger *zap.Logger, rec *metrics.Recorder, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &Hub{
		logger:  logger.Named("hub"),
		metrics: rec,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		queue:   make(chan []byte, queueSize),
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Attach subscribes the hub to every event type.
func (h *Hub) Attach(bus *events.Bus) []events.Subscription {
	subs := make([]events.Subscription, 0, len(events.AllTypes))
	for _, t := range events.AllTypes {
		subs = append(subs, bus.On(t, func(ev events.Event) { h.Publish(ev) }))
	}
	return subs
}

// Publish enqueues ev for broadcast without blocking. It reports whether the event was queued.
func (h *Hub) Publish(ev events.Event) bool {
	msg, err := json.Marshal(ev)
	if err != nil {
		h.logger.Error("Failed to encode event", zap.String("event", string(ev.Type)), zap.Error(err))
		return false
	}
	select {
	case h.queue <- msg:
		return true
	default:
		h.metrics.RecordDropped()
		h.logger.Warn("Broadcast queue full, dropping event", zap.String("event", string(ev.Type)))
		return false
	}
}

// Run writes queued messages to every client until ctx is done, then closes all clients.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case msg := <-h.queue:
			h.broadcast(msg)
		}
	}
}

func (h *Hub) broadcast(msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		_ = client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.logger.Debug("Dropping websocket client", zap.Error(err))
			client.Close()
			delete(h.clients, client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		client.Close()
		delete(h.clients, client)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request and registers the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	h.mu.Lock()
	h.clients[conn] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("Websocket client connected", zap.String("remote_addr", r.RemoteAddr))

	go h.readPump(conn)
}

// readPump discards inbound messages and unregisters the client once the connection closes.
func (h *Hub) readPump(conn *websocket.Conn) {
	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
		conn.Close()
	}()
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
