package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

// Request payloads. The caller identity block comes from the external
// Auth/Billing collaborators on every call; the core never looks it up.

type CreateSessionRequest struct {
	Creator types.UserContext     `json:"creator"`
	Config  types.SelectionConfig `json:"config"`
}

type JoinSessionRequest struct {
	Partner types.UserContext `json:"partner"`
}

type ActionRequest struct {
	UserID string `json:"user_id"`
}

type SwapRequest struct {
	Caller    types.UserContext      `json:"caller"`
	Challenge types.SessionChallenge `json:"challenge"`
}

type AlternativesRequest struct {
	UserID string                `json:"user_id"`
	Config types.SelectionConfig `json:"config"`
}

type PartnerChallengeRequest struct {
	Requester      types.UserContext `json:"requester"`
	PartnerPremium bool              `json:"partner_premium"`
}

type SubmitChallengeRequest struct {
	UserID string          `json:"user_id"`
	Prompt string          `json:"prompt"`
	Level  int             `json:"level"`
	Media  types.MediaType `json:"media"`
}

// SessionView decorates the aggregate with the display form of the code.
type SessionView struct {
	*types.Session
	DisplayCode string `json:"display_code"`
}

func viewOf(session *types.Session) SessionView {
	return SessionView{Session: session, DisplayCode: types.FormatCode(session.Code)}
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := s.lifecycle.CreateSession(r.Context(), req.Creator, req.Config)
	if err != nil {
		respondError(w, err)
		return
	}

	respond(w, http.StatusCreated, map[string]interface{}{
		"session":      viewOf(result.Session),
		"display_code": types.FormatCode(result.Session.Code),
		"stats":        result.Stats,
		"warnings":     result.Warnings,
	})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	userID := r.URL.Query().Get("user")

	session, err := s.lifecycle.GetSession(r.Context(), code, userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, viewOf(session))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	userID := r.URL.Query().Get("user")

	if err := s.lifecycle.DeleteSession(r.Context(), code, userID); err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"message": "session deleted"})
}

func (s *Server) joinSession(w http.ResponseWriter, r *http.Request) {
	var req JoinSessionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	session, err := s.lifecycle.JoinSession(r.Context(), mux.Vars(r)["code"], req.Partner)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, viewOf(session))
}

func (s *Server) abandonSession(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	session, err := s.game.AbandonSession(r.Context(), mux.Vars(r)["code"], req.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, viewOf(session))
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	session, err := s.game.EndSession(r.Context(), mux.Vars(r)["code"], req.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, viewOf(session))
}

func (s *Server) completeChallenge(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	result, err := s.game.CompleteChallenge(r.Context(), mux.Vars(r)["code"], req.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, result)
}

func (s *Server) swapChallenge(w http.ResponseWriter, r *http.Request) {
	var req SwapRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	session, err := s.game.SwapChallenge(r.Context(), mux.Vars(r)["code"], req.Caller, req.Challenge)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, viewOf(session))
}

func (s *Server) alternatives(w http.ResponseWriter, r *http.Request) {
	var req AlternativesRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	alternatives, err := s.game.Alternatives(r.Context(), mux.Vars(r)["code"], req.UserID, req.Config)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, map[string]interface{}{"alternatives": alternatives})
}

func (s *Server) addBonus(w http.ResponseWriter, r *http.Request) {
	var req ActionRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	session, err := s.game.AddBonusChanges(r.Context(), mux.Vars(r)["code"], req.UserID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, viewOf(session))
}

func (s *Server) requestPartnerChallenge(w http.ResponseWriter, r *http.Request) {
	var req PartnerChallengeRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	session, err := s.game.RequestPartnerChallenge(r.Context(), mux.Vars(r)["code"], req.Requester, req.PartnerPremium)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, viewOf(session))
}

func (s *Server) submitPartnerChallenge(w http.ResponseWriter, r *http.Request) {
	var req SubmitChallengeRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, err)
		return
	}

	session, err := s.game.SubmitPartnerChallenge(r.Context(), mux.Vars(r)["code"], req.UserID, req.Prompt, req.Level, req.Media)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, viewOf(session))
}

func (s *Server) cancelPartnerChallenge(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user")

	session, err := s.game.CancelPartnerChallengeRequest(r.Context(), mux.Vars(r)["code"], userID)
	if err != nil {
		respondError(w, err)
		return
	}
	respond(w, http.StatusOK, viewOf(session))
}

func (s *Server) userSessions(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	scope := r.URL.Query().Get("scope")

	var sessions []*types.Session
	var err error
	switch scope {
	case "history":
		sessions, err = s.lifecycle.SessionHistory(r.Context(), userID)
	default:
		sessions, err = s.lifecycle.ActiveSessions(r.Context(), userID)
	}
	if err != nil {
		respondError(w, err)
		return
	}

	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, viewOf(session))
	}
	respond(w, http.StatusOK, map[string]interface{}{"sessions": views})
}
