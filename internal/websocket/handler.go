package websocket

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Emixee/intimacy-play-sub001/internal/hub"
	"github.com/Emixee/intimacy-play-sub001/pkg/interfaces"
	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

// Handler upgrades HTTP requests to session watch streams. Each client
// receives the current session snapshot on connect and every subsequent
// snapshot the store publishes for that code.
type Handler struct {
	store    interfaces.SessionStore
	watchHub *hub.Hub
	upgrader websocket.Upgrader
}

// NewHandler creates a websocket handler.
func NewHandler(store interfaces.SessionStore, watchHub *hub.Hub) *Handler {
	return &Handler{
		store:    store,
		watchHub: watchHub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// The UI is a mobile webview; origin checking happens at the
			// gateway in front of this service.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP handles GET /ws?code=XXXXXX&user=<id>.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	code := types.NormalizeCode(r.URL.Query().Get("code"))
	userID := r.URL.Query().Get("user")
	if !types.IsValidCode(code) || !types.IsValidUserID(userID) {
		http.Error(w, ErrInvalidParameters.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	session, err := h.store.Get(ctx, code)
	cancel()
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}
	if !session.IsMember(userID) {
		http.Error(w, "not a member of this session", http.StatusForbidden)
		return
	}

	sub, err := h.watchHub.Subscribe(code)
	if err != nil {
		http.Error(w, "subscription unavailable", http.StatusServiceUnavailable)
		return
	}

	wsConn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.watchHub.Unsubscribe(sub)
		log.Printf("WebSocket upgrade failed for session %s: %v", code, err)
		return
	}

	conn := NewConnection(wsConn)
	log.Printf("Watch stream opened: session=%s user=%s", code, userID)

	// Initial snapshot so the client renders without waiting for a write.
	if err := conn.WriteJSON(session); err != nil {
		h.watchHub.Unsubscribe(sub)
		conn.Close()
		return
	}

	go h.readLoop(conn)
	h.streamUpdates(conn, sub, code, userID)
}

// readLoop drains client frames. Clients never send game actions over the
// socket (those go through the HTTP API); reading is only needed to
// notice disconnects.
func (h *Handler) readLoop(conn *Connection) {
	for {
		if _, _, err := conn.conn.ReadMessage(); err != nil {
			conn.Close()
			return
		}
	}
}

func (h *Handler) streamUpdates(conn *Connection, sub *hub.Subscription, code, userID string) {
	defer func() {
		h.watchHub.Unsubscribe(sub)
		conn.Close()
		log.Printf("Watch stream closed: session=%s user=%s", code, userID)
	}()

	for {
		select {
		case session, ok := <-sub.Updates:
			if !ok {
				return
			}
			if err := conn.WriteJSON(session); err != nil {
				return
			}
		case <-conn.Done():
			return
		}
	}
}
