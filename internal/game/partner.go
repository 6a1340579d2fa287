package game

import (
	"context"
	"log"
	"strings"

	"github.com/Emixee/intimacy-play-sub001/internal/store"
	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

// Partner-authored challenges are a premium feature for both sides: one
// player requests a custom prompt, the other authors it, and the submitted
// text replaces the challenge at the current position.

// RequestPartnerChallenge opens the handshake. Both parties must be
// premium and no other request may be pending.
func (s *Service) RequestPartnerChallenge(ctx context.Context, code string, requester types.UserContext, partnerPremium bool) (*types.Session, error) {
	code = types.NormalizeCode(code)

	session, err := store.Mutate(ctx, s.store, code, func(session *types.Session) error {
		if session.Status != types.StatusActive {
			return types.NewError(types.CodeSessionNotActive, "session is not active")
		}
		role, ok := session.RoleOf(requester.ID)
		if !ok {
			return types.NewError(types.CodeNotAMember, "you are not a member of this session")
		}
		if !requester.Premium || !partnerPremium {
			return types.NewError(types.CodeBothPremiumRequired, "both players need premium for custom challenges")
		}
		if session.Pending != nil {
			return types.NewError(types.CodeRequestAlreadyPending, "a custom challenge request is already pending")
		}

		session.Pending = &types.PartnerChallengeRequest{
			CreatedBy: requester.ID,
			ForPlayer: role.Opposite(),
			CreatedAt: s.now(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Partner challenge requested: code=%s by=%s", code, requester.ID)
	return session, nil
}

// SubmitPartnerChallenge fulfills a pending request. The original
// requester cannot submit to themselves, and the prompt must carry at
// least ten characters of actual text.
func (s *Service) SubmitPartnerChallenge(ctx context.Context, code, submitterID, prompt string, level int, media types.MediaType) (*types.Session, error) {
	code = types.NormalizeCode(code)

	session, err := store.Mutate(ctx, s.store, code, func(session *types.Session) error {
		if session.Status != types.StatusActive {
			return types.NewError(types.CodeSessionNotActive, "session is not active")
		}
		if !session.IsMember(submitterID) {
			return types.NewError(types.CodeNotAMember, "you are not a member of this session")
		}
		if session.Pending == nil {
			return types.NewError(types.CodeNoPendingRequest, "no custom challenge request is pending")
		}
		if session.Pending.CreatedBy == submitterID {
			return types.NewError(types.CodeSelfSubmission, "you cannot author your own requested challenge")
		}
		if len(strings.TrimSpace(prompt)) < types.MinCustomPromptLen {
			return types.NewError(types.CodePromptTooShort, "custom challenge text is too short")
		}

		current := session.CurrentChallenge()
		if current == nil {
			return types.NewError(types.CodeChallengeNotFound, "no challenge at the current position")
		}

		if !types.IsValidIntensity(level) {
			level = types.DefaultCustomLevel
		}
		if !types.IsValidMedia(media) {
			media = types.MediaText
		}

		session.Challenges[session.CurrentIndex] = types.SessionChallenge{
			Prompt:    strings.TrimSpace(prompt),
			Level:     level,
			Media:     media,
			ForGender: current.ForGender,
			ForPlayer: session.Pending.ForPlayer,
		}
		session.CurrentPlayer = session.Pending.ForPlayer
		session.Pending = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Partner challenge submitted: code=%s by=%s", code, submitterID)
	return session, nil
}

// CancelPartnerChallengeRequest withdraws a pending request. Only the
// original requester may cancel.
func (s *Service) CancelPartnerChallengeRequest(ctx context.Context, code, userID string) (*types.Session, error) {
	code = types.NormalizeCode(code)

	session, err := store.Mutate(ctx, s.store, code, func(session *types.Session) error {
		if !session.IsMember(userID) {
			return types.NewError(types.CodeNotAMember, "you are not a member of this session")
		}
		if session.Pending == nil {
			return types.NewError(types.CodeNoPendingRequest, "no custom challenge request is pending")
		}
		if session.Pending.CreatedBy != userID {
			return types.NewError(types.CodeRequesterOnly, "only the requester can cancel")
		}
		session.Pending = nil
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Partner challenge request cancelled: code=%s by=%s", code, userID)
	return session, nil
}
