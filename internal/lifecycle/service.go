package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/Emixee/intimacy-play-sub001/internal/selection"
	"github.com/Emixee/intimacy-play-sub001/internal/store"
	"github.com/Emixee/intimacy-play-sub001/pkg/interfaces"
	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

// Service orchestrates session creation, joining, expiration and deletion.
// It is stateless: the store and the caller identity arrive as explicit
// parameters on every call.
type Service struct {
	store  interfaces.SessionStore
	engine *selection.Engine
	now    func() time.Time
}

// NewService creates a lifecycle service.
func NewService(sessionStore interfaces.SessionStore, engine *selection.Engine) *Service {
	return &Service{
		store:  sessionStore,
		engine: engine,
		now:    time.Now,
	}
}

// CreateResult carries the new session plus selection diagnostics. Fewer
// challenges than requested is reported through Warnings, not an error.
type CreateResult struct {
	Session  *types.Session  `json:"session"`
	Stats    selection.Stats `json:"stats"`
	Warnings []string        `json:"warnings,omitempty"`
}

// CreateSession validates premium restrictions, builds the challenge
// sequence and persists a new waiting session under a fresh code.
func (s *Service) CreateSession(ctx context.Context, creator types.UserContext, cfg types.SelectionConfig) (*CreateResult, error) {
	if !types.IsValidUserID(creator.ID) {
		return nil, types.NewError(types.CodeInvalidConfig, "invalid creator ID")
	}
	if err := types.ValidateSelectionConfig(cfg); err != nil {
		return nil, err
	}

	// Billing is re-checked upstream per call; the creator's flag is
	// authoritative over whatever the client put in the config.
	cfg.Premium = creator.Premium
	cfg.CreatorGender = creator.Gender

	if err := checkPremiumRestrictions(cfg, creator.Premium); err != nil {
		return nil, err
	}

	result, err := s.engine.SelectChallenges(cfg)
	if err != nil {
		return nil, err
	}
	if len(result.Challenges) == 0 {
		return nil, types.NewError(types.CodeNoChallengesAvailable,
			"no challenges match the selected preferences")
	}

	session := &types.Session{
		CreatorID:      creator.ID,
		CreatorGender:  creator.Gender,
		Status:         types.StatusWaiting,
		ChallengeCount: len(result.Challenges),
		StartIntensity: cfg.StartIntensity,
		CurrentIndex:   0,
		CurrentPlayer:  result.Challenges[0].ForPlayer,
		Challenges:     result.Challenges,
		ChangesUsed:    map[types.Role]int{types.RoleCreator: 0, types.RolePartner: 0},
		BonusChanges:   map[types.Role]int{types.RoleCreator: 0, types.RolePartner: 0},
		CreatedAt:      s.now(),
	}

	if err := s.persistWithFreshCode(ctx, session); err != nil {
		return nil, err
	}

	log.Printf("Created session: code=%s creator=%s challenges=%d start_intensity=%d",
		session.Code, creator.ID, session.ChallengeCount, cfg.StartIntensity)

	return &CreateResult{
		Session:  session,
		Stats:    result.Stats,
		Warnings: result.Warnings,
	}, nil
}

// checkPremiumRestrictions enforces the free-tier gates before any
// selection work happens. The per-player cutoff is strictly greater than
// 15: fifteen per player is still free.
func checkPremiumRestrictions(cfg types.SelectionConfig, premium bool) error {
	if premium {
		return nil
	}
	if types.PerPlayerCount(cfg.Count) > types.FreePerPlayerLimit {
		return types.NewError(types.CodePremiumRequired,
			fmt.Sprintf("more than %d challenges per player requires premium", types.FreePerPlayerLimit))
	}
	if cfg.StartIntensity > types.MaxFreeIntensity {
		return types.NewError(types.CodePremiumRequired,
			fmt.Sprintf("start intensity above %d requires premium", types.MaxFreeIntensity))
	}
	if cfg.Creator.IncludeToys || cfg.Partner.IncludeToys {
		return types.NewError(types.CodePremiumRequired, "toy challenges require premium")
	}
	return nil
}

// persistWithFreshCode generates codes until one is free, bounded by
// maxCodeAttempts.
func (s *Service) persistWithFreshCode(ctx context.Context, session *types.Session) error {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return types.WrapError(types.CodeGenerationFailed, "failed to generate session code", err)
		}
		session.Code = code

		err = s.store.Create(ctx, session)
		if err == nil {
			return nil
		}
		if errors.Is(err, interfaces.ErrCodeTaken) {
			continue
		}
		return types.WrapError(types.CodeStoreUnavailable, "failed to persist session", err)
	}
	return types.NewError(types.CodeGenerationFailed, "could not find a free session code")
}

// JoinSession attaches the partner to a waiting session. Sessions older
// than the join window are marked abandoned as a side effect and the join
// fails with SESSION_EXPIRED.
func (s *Service) JoinSession(ctx context.Context, code string, partner types.UserContext) (*types.Session, error) {
	code = types.NormalizeCode(code)
	if !types.IsValidUserID(partner.ID) {
		return nil, types.NewError(types.CodeInvalidConfig, "invalid partner ID")
	}
	if !types.IsValidGender(partner.Gender) {
		return nil, types.NewError(types.CodeInvalidConfig, "partner gender must be male or female")
	}

	current, err := s.store.Get(ctx, code)
	if err != nil {
		if errors.Is(err, interfaces.ErrSessionNotFound) {
			return nil, types.NewError(types.CodeSessionNotFound, "session not found")
		}
		return nil, types.WrapError(types.CodeStoreUnavailable, "failed to read session", err)
	}

	if current.Status == types.StatusWaiting && s.now().Sub(current.CreatedAt) > types.JoinWindow {
		// Expired: flip to abandoned before rejecting so the creator's
		// history reflects it.
		_, err := store.Mutate(ctx, s.store, code, func(session *types.Session) error {
			if session.Status == types.StatusWaiting {
				session.Status = types.StatusAbandoned
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		log.Printf("Session expired at join: code=%s", code)
		return nil, types.NewError(types.CodeSessionExpired, "session code has expired")
	}

	joined, err := store.Mutate(ctx, s.store, code, func(session *types.Session) error {
		if session.CreatorID == partner.ID {
			return types.NewError(types.CodeCannotJoinOwn, "cannot join your own session")
		}
		if session.Status != types.StatusWaiting {
			return types.NewError(types.CodeSessionNotJoinable, "session is not accepting a partner")
		}
		if session.PartnerID != "" {
			return types.NewError(types.CodeSessionNotJoinable, "session already has a partner")
		}

		now := s.now()
		session.PartnerID = partner.ID
		session.PartnerGender = partner.Gender
		session.Status = types.StatusActive
		session.StartedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Partner joined session: code=%s partner=%s", code, partner.ID)
	return joined, nil
}

// GetSession returns a session, membership-gated.
func (s *Service) GetSession(ctx context.Context, code, userID string) (*types.Session, error) {
	code = types.NormalizeCode(code)
	session, err := s.store.Get(ctx, code)
	if err != nil {
		if errors.Is(err, interfaces.ErrSessionNotFound) {
			return nil, types.NewError(types.CodeSessionNotFound, "session not found")
		}
		return nil, types.WrapError(types.CodeStoreUnavailable, "failed to read session", err)
	}
	if !session.IsMember(userID) {
		return nil, types.NewError(types.CodeNotAMember, "you are not a member of this session")
	}
	return session, nil
}

// AbandonSession force-transitions a session to abandoned.
func (s *Service) AbandonSession(ctx context.Context, code, userID string) (*types.Session, error) {
	code = types.NormalizeCode(code)
	session, err := store.Mutate(ctx, s.store, code, func(session *types.Session) error {
		if !session.IsMember(userID) {
			return types.NewError(types.CodeNotAMember, "you are not a member of this session")
		}
		if session.Status == types.StatusCompleted || session.Status == types.StatusAbandoned {
			return types.NewError(types.CodeSessionNotActive, "session has already ended")
		}
		session.Status = types.StatusAbandoned
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Session abandoned: code=%s by=%s", code, userID)
	return session, nil
}

// DeleteSession removes a session document. Creator only, and never while
// the game is running.
func (s *Service) DeleteSession(ctx context.Context, code, userID string) error {
	code = types.NormalizeCode(code)
	session, err := s.store.Get(ctx, code)
	if err != nil {
		if errors.Is(err, interfaces.ErrSessionNotFound) {
			return types.NewError(types.CodeSessionNotFound, "session not found")
		}
		return types.WrapError(types.CodeStoreUnavailable, "failed to read session", err)
	}

	if session.CreatorID != userID {
		return types.NewError(types.CodeCreatorOnly, "only the creator can delete a session")
	}
	if session.Status == types.StatusActive {
		return types.NewError(types.CodeSessionActive, "an active session cannot be deleted")
	}

	if err := s.store.Delete(ctx, code); err != nil {
		if errors.Is(err, interfaces.ErrSessionNotFound) {
			return types.NewError(types.CodeSessionNotFound, "session not found")
		}
		return types.WrapError(types.CodeStoreUnavailable, "failed to delete session", err)
	}

	log.Printf("Session deleted: code=%s by=%s", code, userID)
	return nil
}

// ActiveSessions returns the user's waiting and running sessions.
func (s *Service) ActiveSessions(ctx context.Context, userID string) ([]*types.Session, error) {
	return s.sessionsByStatus(ctx, userID, types.StatusWaiting, types.StatusActive)
}

// SessionHistory returns the user's finished sessions.
func (s *Service) SessionHistory(ctx context.Context, userID string) ([]*types.Session, error) {
	return s.sessionsByStatus(ctx, userID, types.StatusCompleted, types.StatusAbandoned)
}

func (s *Service) sessionsByStatus(ctx context.Context, userID string, statuses ...types.SessionStatus) ([]*types.Session, error) {
	sessions, err := s.store.SessionsByUser(ctx, userID)
	if err != nil {
		return nil, types.WrapError(types.CodeStoreUnavailable, "failed to list sessions", err)
	}

	wanted := make(map[types.SessionStatus]bool, len(statuses))
	for _, status := range statuses {
		wanted[status] = true
	}

	out := make([]*types.Session, 0, len(sessions))
	for _, session := range sessions {
		if wanted[session.Status] {
			out = append(out, session)
		}
	}
	return out, nil
}
