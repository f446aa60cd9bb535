// Package eventhub broadcasts motion start/stop notifications to
// WebSocket subscribers, one registry per camera, adapted from the
// teacher's DetectionHub (internal/ws/detection_hub.go).
package eventhub

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Message is the JSON payload pushed to subscribers.
type Message struct {
	CameraID  string    `json:"camera_id"`
	Event     string    `json:"event"` // "start" or "stop"
	Timestamp time.Time `json:"timestamp"`
}

// Hub manages WebSocket connections grouped by camera ID.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*websocket.Conn]bool
	log     *log.Logger

	upgrader websocket.Upgrader
}

// New builds an empty Hub.
func New(logger *log.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*websocket.Conn]bool),
		log:     logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the connection and registers it for the camera ID
// given in the "camera" query parameter.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	cameraID := r.URL.Query().Get("camera")
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Printf("eventhub: upgrade failed: %v", err)
		return
	}
	h.register(cameraID, conn)
	defer h.unregister(cameraID, conn)

	// Drain and discard anything the client sends; this feed is
	// read-only (spec.md Non-goals: no auth, no playback UI — this is
	// a notification feed, not a control channel).
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) register(cameraID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[cameraID] == nil {
		h.clients[cameraID] = make(map[*websocket.Conn]bool)
	}
	h.clients[cameraID][conn] = true
}

func (h *Hub) unregister(cameraID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[cameraID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.clients, cameraID)
		}
	}
	conn.Close()
}

// HasClients reports whether any client is subscribed to cameraID.
func (h *Hub) HasClients(cameraID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns, ok := h.clients[cameraID]
	return ok && len(conns) > 0
}

func (h *Hub) broadcast(cameraID string, msg Message) {
	if !h.HasClients(cameraID) {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.Printf("eventhub: marshal failed: %v", err)
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients[cameraID]))
	for c := range h.clients[cameraID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			h.log.Printf("eventhub: write failed: %v", err)
			h.unregister(cameraID, conn)
		}
	}
}

// NotifyStart implements motion.Notifier.
func (h *Hub) NotifyStart(cameraID string, t time.Time) {
	h.broadcast(cameraID, Message{CameraID: cameraID, Event: "start", Timestamp: t})
}

// NotifyStop implements motion.Notifier.
func (h *Hub) NotifyStop(cameraID string, t time.Time) {
	h.broadcast(cameraID, Message{CameraID: cameraID, Event: "stop", Timestamp: t})
}
