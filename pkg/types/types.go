package types

import (
	"time"
)

// Role identifies one of the two sides of a session. Every challenge is
// assigned to exactly one role (the performer); the other role validates it.
type Role string

const (
	RoleCreator Role = "creator"
	RolePartner Role = "partner"
)

// Opposite returns the other role.
func (r Role) Opposite() Role {
	if r == RoleCreator {
		return RolePartner
	}
	return RoleCreator
}

// Gender of a player or the audience of a challenge template.
// GenderAny templates match players of any gender.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderAny    Gender = "any"
)

// Matches reports whether a template audience covers a player gender.
func (g Gender) Matches(player Gender) bool {
	return g == GenderAny || g == player
}

// MediaType of a challenge prompt. Text is always playable; the other
// types can be switched off per player in PlayerPreferences.
type MediaType string

const (
	MediaText  MediaType = "text"
	MediaPhoto MediaType = "photo"
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
)

// SessionStatus is the lifecycle state of a session.
type SessionStatus string

const (
	StatusWaiting   SessionStatus = "waiting"
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusAbandoned SessionStatus = "abandoned"
)

// Game rule constants. Level 4 content and more than 15 challenges per
// player require premium; the 15 itself is still free.
const (
	MinIntensity       = 1
	MaxIntensity       = 4
	MaxFreeIntensity   = 3
	ThemeClassic       = "classic"
	FreePerPlayerLimit = 15
	BaseChangeQuota    = 3
	MaxBonusChanges    = 3
	MinCustomPromptLen = 10
	DefaultCustomLevel = 2
	JoinWindow         = 24 * time.Hour
)

// ChallengeTemplate is one entry of the static content pool. Immutable.
type ChallengeTemplate struct {
	ID     string    `json:"id"`
	Gender Gender    `json:"gender"`
	Level  int       `json:"level"`
	Theme  string    `json:"theme"`
	Media  MediaType `json:"media"`
	HasToy bool      `json:"has_toy"`
	Toy    string    `json:"toy,omitempty"`
	Prompt string    `json:"prompt"`
}

// PlayerPreferences carries one player's content filtering choices,
// supplied per session by the caller.
type PlayerPreferences struct {
	Themes      []string `json:"themes"`
	IncludeToys bool     `json:"include_toys"`
	Toys        []string `json:"toys,omitempty"`
	AllowPhoto  bool     `json:"allow_photo"`
	AllowAudio  bool     `json:"allow_audio"`
	AllowVideo  bool     `json:"allow_video"`
}

// EffectiveThemes returns the selected themes, defaulting to classic when
// none were picked.
func (p PlayerPreferences) EffectiveThemes() []string {
	if len(p.Themes) == 0 {
		return []string{ThemeClassic}
	}
	return p.Themes
}

// AllowsMedia reports whether the player accepts a media type.
// Text prompts are always accepted.
func (p PlayerPreferences) AllowsMedia(m MediaType) bool {
	switch m {
	case MediaText:
		return true
	case MediaPhoto:
		return p.AllowPhoto
	case MediaAudio:
		return p.AllowAudio
	case MediaVideo:
		return p.AllowVideo
	default:
		return false
	}
}

// SelectionConfig is the transient input to the selection engine.
// It is constructed per call and never persisted.
type SelectionConfig struct {
	CreatorGender  Gender            `json:"creator_gender"`
	PartnerGender  Gender            `json:"partner_gender"`
	Count          int               `json:"count"`
	StartIntensity int               `json:"start_intensity"`
	Premium        bool              `json:"premium"`
	Creator        PlayerPreferences `json:"creator"`
	Partner        PlayerPreferences `json:"partner"`
}

// PreferencesFor returns the preferences belonging to a role.
func (c SelectionConfig) PreferencesFor(role Role) PlayerPreferences {
	if role == RoleCreator {
		return c.Creator
	}
	return c.Partner
}

// GenderFor returns the gender belonging to a role.
func (c SelectionConfig) GenderFor(role Role) Gender {
	if role == RoleCreator {
		return c.CreatorGender
	}
	return c.PartnerGender
}

// SessionChallenge is one position of a session's ordered challenge list.
// ForPlayer is the performer; the opposite role is the only one allowed to
// mark the challenge complete. ForGender is display-only derived data —
// game logic never branches on it.
type SessionChallenge struct {
	Prompt      string     `json:"prompt"`
	Level       int        `json:"level"`
	Media       MediaType  `json:"media"`
	ForGender   Gender     `json:"for_gender"`
	ForPlayer   Role       `json:"for_player"`
	Completed   bool       `json:"completed"`
	CompletedBy string     `json:"completed_by,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Validator returns the role required to confirm this challenge.
func (c SessionChallenge) Validator() Role {
	return c.ForPlayer.Opposite()
}

// PartnerChallengeRequest is the pending half of the partner-authored
// challenge handshake. At most one may be outstanding per session.
type PartnerChallengeRequest struct {
	CreatedBy string    `json:"created_by"`
	ForPlayer Role      `json:"for_player"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is the aggregate root, keyed by a 6-character code and stored as
// a single document. Version supports optimistic concurrency: it is bumped
// on every successful write and writers retry from a fresh read on mismatch.
type Session struct {
	Code           string                   `json:"code"`
	CreatorID      string                   `json:"creator_id"`
	CreatorGender  Gender                   `json:"creator_gender"`
	PartnerID      string                   `json:"partner_id,omitempty"`
	PartnerGender  Gender                   `json:"partner_gender,omitempty"`
	Status         SessionStatus            `json:"status"`
	ChallengeCount int                      `json:"challenge_count"`
	StartIntensity int                      `json:"start_intensity"`
	CurrentIndex   int                      `json:"current_index"`
	CurrentPlayer  Role                     `json:"current_player"`
	Challenges     []SessionChallenge       `json:"challenges"`
	ChangesUsed    map[Role]int             `json:"changes_used"`
	BonusChanges   map[Role]int             `json:"bonus_changes"`
	Pending        *PartnerChallengeRequest `json:"pending_partner_challenge,omitempty"`
	CreatedAt      time.Time                `json:"created_at"`
	StartedAt      *time.Time               `json:"started_at,omitempty"`
	CompletedAt    *time.Time               `json:"completed_at,omitempty"`
	Version        int64                    `json:"version"`
}

// RoleOf resolves a user ID to its role in the session.
func (s *Session) RoleOf(userID string) (Role, bool) {
	switch userID {
	case "":
		return "", false
	case s.CreatorID:
		return RoleCreator, true
	case s.PartnerID:
		return RolePartner, true
	default:
		return "", false
	}
}

// IsMember reports whether the user belongs to the session.
func (s *Session) IsMember(userID string) bool {
	_, ok := s.RoleOf(userID)
	return ok
}

// CurrentChallenge returns the challenge at the current index, or nil once
// the session has run past its last position.
func (s *Session) CurrentChallenge() *SessionChallenge {
	if s.CurrentIndex < 0 || s.CurrentIndex >= len(s.Challenges) {
		return nil
	}
	return &s.Challenges[s.CurrentIndex]
}

// Progress returns the completed percentage, 0-100.
func (s *Session) Progress() float64 {
	if s.ChallengeCount == 0 {
		return 0
	}
	done := 0
	for _, c := range s.Challenges {
		if c.Completed {
			done++
		}
	}
	return float64(done) / float64(s.ChallengeCount) * 100
}

// RemainingChanges returns the swap quota left for a role. Premium callers
// are never limited; the second return value is false for them.
func (s *Session) RemainingChanges(role Role, premium bool) (int, bool) {
	if premium {
		return 0, false
	}
	return BaseChangeQuota + s.BonusChanges[role] - s.ChangesUsed[role], true
}

// Clone returns a deep copy. Mutating services operate on clones so a
// failed write never leaves a half-modified session visible to readers.
func (s *Session) Clone() *Session {
	out := *s
	out.Challenges = make([]SessionChallenge, len(s.Challenges))
	copy(out.Challenges, s.Challenges)
	out.ChangesUsed = make(map[Role]int, len(s.ChangesUsed))
	for k, v := range s.ChangesUsed {
		out.ChangesUsed[k] = v
	}
	out.BonusChanges = make(map[Role]int, len(s.BonusChanges))
	for k, v := range s.BonusChanges {
		out.BonusChanges[k] = v
	}
	if s.Pending != nil {
		p := *s.Pending
		out.Pending = &p
	}
	if s.StartedAt != nil {
		t := *s.StartedAt
		out.StartedAt = &t
	}
	if s.CompletedAt != nil {
		t := *s.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}

// UserContext is the caller identity supplied by the external Auth and
// Billing collaborators on every request. Premium is re-checked upstream
// per call; the core treats it as an opaque boolean and never caches it.
type UserContext struct {
	ID      string `json:"user_id"`
	Gender  Gender `json:"gender,omitempty"`
	Premium bool   `json:"premium"`
}

// PerPlayerCount converts a total challenge count into the per-player
// count, rounding up for odd totals.
func PerPlayerCount(total int) int {
	return (total + 1) / 2
}
