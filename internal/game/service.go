package game

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/Emixee/intimacy-play-sub001/internal/selection"
	"github.com/Emixee/intimacy-play-sub001/internal/store"
	"github.com/Emixee/intimacy-play-sub001/pkg/interfaces"
	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

// Service owns all in-session turn actions: completing and swapping
// challenges, bonus-change grants and the partner-authored-challenge
// handshake. Stateless; store and caller identity are explicit parameters.
type Service struct {
	store   interfaces.SessionStore
	engine  *selection.Engine
	cleaner interfaces.MediaCleaner
	now     func() time.Time
}

// NewService creates a turn service. cleaner may be nil when no media
// cleanup collaborator is wired.
func NewService(sessionStore interfaces.SessionStore, engine *selection.Engine, cleaner interfaces.MediaCleaner) *Service {
	return &Service{
		store:   sessionStore,
		engine:  engine,
		cleaner: cleaner,
		now:     time.Now,
	}
}

// CompleteResult is returned by CompleteChallenge. Next is nil when the
// session just finished.
type CompleteResult struct {
	Session  *types.Session          `json:"session"`
	Next     *types.SessionChallenge `json:"next,omitempty"`
	Progress float64                 `json:"progress"`
	Finished bool                    `json:"finished"`
}

// CompleteChallenge marks the current challenge complete. Only the
// validator — the role opposite the performer — may call it; a second call
// on the same position fails with CHALLENGE_ALREADY_COMPLETED.
func (s *Service) CompleteChallenge(ctx context.Context, code, userID string) (*CompleteResult, error) {
	code = types.NormalizeCode(code)

	session, err := store.Mutate(ctx, s.store, code, func(session *types.Session) error {
		if session.Status != types.StatusActive {
			return types.NewError(types.CodeSessionNotActive, "session is not active")
		}
		role, ok := session.RoleOf(userID)
		if !ok {
			return types.NewError(types.CodeNotAMember, "you are not a member of this session")
		}

		challenge := session.CurrentChallenge()
		if challenge == nil {
			return types.NewError(types.CodeChallengeNotFound, "no challenge at the current position")
		}
		if challenge.Completed {
			return types.NewError(types.CodeChallengeAlreadyCompleted, "challenge is already completed")
		}
		if role != challenge.Validator() {
			return types.NewError(types.CodeNotYourTurn, "it is not your turn to validate")
		}

		now := s.now()
		challenge.Completed = true
		challenge.CompletedBy = userID
		challenge.CompletedAt = &now

		session.CurrentIndex++
		if session.CurrentIndex >= session.ChallengeCount {
			session.Status = types.StatusCompleted
			session.CompletedAt = &now
		} else {
			session.CurrentPlayer = session.Challenges[session.CurrentIndex].ForPlayer
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &CompleteResult{
		Session:  session,
		Progress: session.Progress(),
		Finished: session.Status == types.StatusCompleted,
	}
	if next := session.CurrentChallenge(); next != nil {
		result.Next = next
	}
	if result.Finished {
		log.Printf("Session finished: code=%s", code)
		s.cleanupLater(code)
	}
	return result, nil
}

// SwapChallenge replaces the challenge at the current index, consuming one
// unit of the caller's change quota. Premium callers are never blocked.
func (s *Service) SwapChallenge(ctx context.Context, code string, caller types.UserContext, replacement types.SessionChallenge) (*types.Session, error) {
	code = types.NormalizeCode(code)

	if strings.TrimSpace(replacement.Prompt) == "" {
		return nil, types.NewError(types.CodeInvalidChallenge, "replacement challenge needs a prompt")
	}

	return store.Mutate(ctx, s.store, code, func(session *types.Session) error {
		if session.Status != types.StatusActive {
			return types.NewError(types.CodeSessionNotActive, "session is not active")
		}
		role, ok := session.RoleOf(caller.ID)
		if !ok {
			return types.NewError(types.CodeNotAMember, "you are not a member of this session")
		}

		if remaining, limited := session.RemainingChanges(role, caller.Premium); limited && remaining <= 0 {
			return types.NewError(types.CodeNoChangesLeft, "no challenge changes left")
		}

		current := session.CurrentChallenge()
		if current == nil {
			return types.NewError(types.CodeChallengeNotFound, "no challenge at the current position")
		}
		if current.Completed {
			return types.NewError(types.CodeChallengeAlreadyCompleted, "completed challenges cannot be swapped")
		}

		// The performer never changes on a swap: the parity contract the
		// turn order depends on must survive any replacement.
		replacement.ForPlayer = current.ForPlayer
		replacement.ForGender = current.ForGender
		replacement.Completed = false
		replacement.CompletedBy = ""
		replacement.CompletedAt = nil
		if !types.IsValidIntensity(replacement.Level) {
			replacement.Level = current.Level
		}
		if !types.IsValidMedia(replacement.Media) {
			replacement.Media = types.MediaText
		}

		session.Challenges[session.CurrentIndex] = replacement
		session.ChangesUsed[role]++
		return nil
	})
}

// Alternatives proposes up to two replacements for the current challenge.
// The selection config is transient and supplied by the caller; it is
// never persisted with the session.
func (s *Service) Alternatives(ctx context.Context, code, userID string, cfg types.SelectionConfig) ([]types.SessionChallenge, error) {
	code = types.NormalizeCode(code)

	session, err := s.store.Get(ctx, code)
	if err != nil {
		return nil, storeReadError(err)
	}
	if !session.IsMember(userID) {
		return nil, types.NewError(types.CodeNotAMember, "you are not a member of this session")
	}
	if session.Status != types.StatusActive {
		return nil, types.NewError(types.CodeSessionNotActive, "session is not active")
	}

	return s.engine.Alternatives(session.Challenges, session.CurrentIndex, cfg), nil
}

// AddBonusChanges grants one extra swap to the caller's quota. The
// external Ads collaborator is the only legitimate source of this call;
// the cap of three bonus changes always holds.
func (s *Service) AddBonusChanges(ctx context.Context, code, userID string) (*types.Session, error) {
	code = types.NormalizeCode(code)

	return store.Mutate(ctx, s.store, code, func(session *types.Session) error {
		if session.Status != types.StatusActive {
			return types.NewError(types.CodeSessionNotActive, "session is not active")
		}
		role, ok := session.RoleOf(userID)
		if !ok {
			return types.NewError(types.CodeNotAMember, "you are not a member of this session")
		}
		if session.BonusChanges[role] >= types.MaxBonusChanges {
			return types.NewError(types.CodeBonusLimitReached, "bonus change limit reached")
		}
		session.BonusChanges[role]++
		return nil
	})
}

// EndSession force-completes a session regardless of remaining challenges.
func (s *Service) EndSession(ctx context.Context, code, userID string) (*types.Session, error) {
	return s.terminate(ctx, code, userID, types.StatusCompleted)
}

// AbandonSession force-abandons a session.
func (s *Service) AbandonSession(ctx context.Context, code, userID string) (*types.Session, error) {
	return s.terminate(ctx, code, userID, types.StatusAbandoned)
}

func (s *Service) terminate(ctx context.Context, code, userID string, status types.SessionStatus) (*types.Session, error) {
	code = types.NormalizeCode(code)

	session, err := store.Mutate(ctx, s.store, code, func(session *types.Session) error {
		if !session.IsMember(userID) {
			return types.NewError(types.CodeNotAMember, "you are not a member of this session")
		}
		if session.Status == types.StatusCompleted || session.Status == types.StatusAbandoned {
			return types.NewError(types.CodeSessionNotActive, "session has already ended")
		}
		now := s.now()
		session.Status = status
		session.CompletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Session terminated: code=%s status=%s by=%s", code, status, userID)
	s.cleanupLater(code)
	return session, nil
}

// cleanupLater hands terminated sessions to the media cleanup
// collaborator. Failures are logged, never surfaced: cleanup is outside
// the core's correctness envelope.
func (s *Service) cleanupLater(code string) {
	if s.cleaner == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.cleaner.CleanupSession(ctx, code); err != nil {
			log.Printf("Media cleanup failed for session %s: %v", code, err)
		}
	}()
}

func storeReadError(err error) error {
	if errors.Is(err, interfaces.ErrSessionNotFound) {
		return types.NewError(types.CodeSessionNotFound, "session not found")
	}
	return types.WrapError(types.CodeStoreUnavailable, "failed to read session", err)
}
