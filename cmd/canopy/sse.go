package main

import (
	"log/slog"
	"net/http"
	"sync"
	"time"
)

const sseHeartbeatInterval = 30 * time.Second

// heartbeatWriter wraps an http.ResponseWriter to emit periodic SSE
// comment lines (": ping\n\n") so idle MCP connections are not silently
// dropped by the OS TCP stack or an intermediate proxy.
//
// Writes are serialized through a mutex so a heartbeat never lands in
// the middle of a real SSE event.
type heartbeatWriter struct {
	http.ResponseWriter
	mu   sync.Mutex
	quit chan struct{}
}

func (w *heartbeatWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ResponseWriter.Write(p)
}

// Flush implements http.Flusher.
func (w *heartbeatWriter) Flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// beat writes comment lines every interval until the connection breaks
// or quit is closed.
func (w *heartbeatWriter) beat(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.quit:
			return
		case <-ticker.C:
			w.mu.Lock()
			_, err := w.ResponseWriter.Write([]byte(": ping\n\n"))
			if err == nil {
				if f, ok := w.ResponseWriter.(http.Flusher); ok {
					f.Flush()
				}
			}
			w.mu.Unlock()
			if err != nil {
				slog.Debug("sse heartbeat write failed", "error", err)
				return
			}
		}
	}
}

// sseHeartbeat wraps an SSE handler so GET requests (new SSE streams)
// get heartbeat comments. POSTs (MCP messages) pass through untouched.
func sseHeartbeat(handler http.Handler, interval time.Duration) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			handler.ServeHTTP(w, r)
			return
		}

		hw := &heartbeatWriter{ResponseWriter: w, quit: make(chan struct{})}
		go hw.beat(interval)
		defer close(hw.quit)

		handler.ServeHTTP(hw, r)
	})
}
