// Package streamhub implements the latest-frame slot and MJPEG HTTP
// handler of spec.md §4.3.
package streamhub

import (
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"sentrycam/internal/frame"
)

// Hub holds a single "latest encoded frame" slot and serves it to any
// number of HTTP clients as a multipart/x-mixed-replace MJPEG stream.
// A slow client never backpressures the pipeline: Write always succeeds
// immediately, and each client loop paces itself independently off the
// shared slot (spec.md §4.3 property).
type Hub struct {
	mu        sync.Mutex
	latest    []byte
	targetFPS int
	port      int
	log       *log.Logger

	server *http.Server
}

// New builds a Hub that will listen on port once Start is called.
func New(port, targetFPS int, logger *log.Logger) *Hub {
	return &Hub{port: port, targetFPS: targetFPS, log: logger}
}

// Write replaces the latest-frame slot unconditionally.
func (h *Hub) Write(f frame.Encoded) {
	h.mu.Lock()
	h.latest = f.Data
	h.mu.Unlock()
}

func (h *Hub) read() []byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.latest
}

// ServeHTTP implements the per-client multipart loop.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.WriteHeader(http.StatusOK)

	flusher, ok := w.(http.Flusher)
	if !ok {
		return
	}

	interval := time.Second / time.Duration(max(h.targetFPS, 1))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			data := h.read()
			if data == nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\n\r\n"); err != nil {
				return
			}
			if _, err := w.Write(data); err != nil {
				return
			}
			if _, err := w.Write([]byte("\r\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// Start binds 0.0.0.0:port and begins serving. Matches
// original_source/stream.py's Flask app.run(threaded=True,
// use_reloader=False): concurrent requests, no hot reload.
func (h *Hub) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", h.ServeHTTP)
	h.server = &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", h.port),
		Handler: mux,
	}

	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("streamhub: listen: %w", err)
	}

	h.log.Printf("stream server starting on http://%s:%d/", localIP(), h.port)

	go func() {
		if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.log.Printf("stream server error: %v", err)
		}
	}()
	return nil
}

// Stop closes the HTTP server immediately, dropping connected clients.
func (h *Hub) Stop() {
	if h.server != nil {
		h.server.Close()
	}
}

// localIP discovers the machine's outbound IP for a clickable-looking
// log line, matching original_source/stream.py's _get_local_ip
// (UDP-connect-to-8.8.8.8 trick, never actually sends a packet).
func localIP() string {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "localhost"
	}
	return addr.IP.String()
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
