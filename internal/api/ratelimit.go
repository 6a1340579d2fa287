package api

import (
	"encoding/json"
	"net"
	"net/http"
	"sync"
	"time"
)

// requestsPerMinute is the per-client request budget. Two players polling
// and acting stay far below it; scripted abuse does not.
const requestsPerMinute = 120

// rateLimiter tracks per-client request counts in minute windows.
type rateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientWindow
}

type clientWindow struct {
	count       int
	windowStart time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{clients: make(map[string]*clientWindow)}
}

// allow records one request and reports whether the client is within its
// budget for the current window.
func (rl *rateLimiter) allow(client string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()

	window, exists := rl.clients[client]
	if !exists || now.Sub(window.windowStart) >= time.Minute {
		rl.clients[client] = &clientWindow{count: 1, windowStart: now}
		return true
	}

	if window.count >= requestsPerMinute {
		return false
	}
	window.count++
	return true
}

// cleanup drops clients idle for several windows so the map cannot grow
// without bound.
func (rl *rateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	for client, window := range rl.clients {
		if now.Sub(window.windowStart) > 5*time.Minute {
			delete(rl.clients, client)
		}
	}
}

func (rl *rateLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for range ticker.C {
		rl.cleanup()
	}
}

// middleware rejects clients over budget with 429. Clients are keyed by
// remote address; the gateway in front of this service preserves it.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			client = r.RemoteAddr
		}

		if !rl.allow(client) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(Envelope{Success: false, Error: "too many requests"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
