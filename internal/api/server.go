package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Emixee/intimacy-play-sub001/internal/game"
	"github.com/Emixee/intimacy-play-sub001/internal/lifecycle"
	"github.com/Emixee/intimacy-play-sub001/pkg/interfaces"
	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

// Server is the HTTP surface of the game core. Pure transport: request
// decoding, identity extraction and JSON envelopes — all rules live in the
// lifecycle and game services.
type Server struct {
	lifecycle *lifecycle.Service
	game      *game.Service
	store     interfaces.SessionStore
	router    *mux.Router
	limiter   *rateLimiter
}

// NewServer wires the routes.
func NewServer(lifecycleService *lifecycle.Service, gameService *game.Service, store interfaces.SessionStore) *Server {
	s := &Server{
		lifecycle: lifecycleService,
		game:      gameService,
		store:     store,
		router:    mux.NewRouter(),
		limiter:   newRateLimiter(),
	}
	s.setupRoutes()
	go s.limiter.cleanupLoop(time.Minute)
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.Use(jsonMiddleware, s.limiter.middleware)

	api.HandleFunc("/sessions", s.createSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{code}", s.getSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{code}", s.deleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{code}/join", s.joinSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{code}/abandon", s.abandonSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{code}/end", s.endSession).Methods(http.MethodPost)

	api.HandleFunc("/sessions/{code}/complete", s.completeChallenge).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{code}/swap", s.swapChallenge).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{code}/alternatives", s.alternatives).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{code}/bonus", s.addBonus).Methods(http.MethodPost)

	api.HandleFunc("/sessions/{code}/partner-challenge", s.requestPartnerChallenge).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{code}/partner-challenge", s.submitPartnerChallenge).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{code}/partner-challenge", s.cancelPartnerChallenge).Methods(http.MethodDelete)

	api.HandleFunc("/users/{id}/sessions", s.userSessions).Methods(http.MethodGet)

	s.router.HandleFunc("/health", s.healthCheck).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Envelope is the uniform response shape: success with data, or a
// rejection carrying the taxonomy code and a short human message.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Code    string      `json:"code,omitempty"`
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{Success: true, Data: data})
}

// respondError maps the error taxonomy onto HTTP statuses so clients can
// distinguish "show a message" rejections from "offer retry" failures.
func respondError(w http.ResponseWriter, err error) {
	var ge *types.GameError
	code := types.CodeOf(err)
	message := "internal error"
	if geErr, ok := err.(*types.GameError); ok {
		ge = geErr
		message = ge.Message
	}

	var status int
	switch code.Class() {
	case types.ClassNotFound:
		status = http.StatusNotFound
	case types.ClassAuthorization:
		status = http.StatusForbidden
	case types.ClassValidation:
		status = http.StatusBadRequest
	case types.ClassTransient:
		status = http.StatusServiceUnavailable
	default:
		status = http.StatusConflict
	}

	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Envelope{
		Success: false,
		Error:   message,
		Code:    string(code),
	})
}

func decodeBody(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return types.NewError(types.CodeInvalidConfig, "invalid JSON body")
	}
	return nil
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// healthCheck reports store reachability.
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")
	if err := s.store.HealthCheck(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "unhealthy",
			"timestamp": time.Now(),
			"store":     err.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now(),
		"store":     "healthy",
	})
}
