package types

import (
	"regexp"
	"strings"
)

// codePattern matches a normalized session code: six symbols from the
// fixed alphabet (uppercase letters and digits minus 0, O, 1 and I).
var codePattern = regexp.MustCompile(`^[ABCDEFGHJKLMNPQRSTUVWXYZ23456789]{6}$`)

var userIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// NormalizeCode strips the display space and upcases user-entered codes.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(code), " ", ""))
}

// IsValidCode reports whether a normalized code is well-formed.
func IsValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// FormatCode renders a code for display with a space after the third
// symbol, e.g. "ABC DEF".
func FormatCode(code string) string {
	if len(code) != 6 {
		return code
	}
	return code[:3] + " " + code[3:]
}

// IsValidUserID reports whether a user ID is acceptable. IDs come from the
// external Auth collaborator; this only guards against junk input.
func IsValidUserID(id string) bool {
	return userIDPattern.MatchString(id)
}

// IsValidGender accepts the two player genders. GenderAny marks template
// audiences only, never players.
func IsValidGender(g Gender) bool {
	return g == GenderMale || g == GenderFemale
}

// IsValidIntensity reports whether a level is within 1-4.
func IsValidIntensity(level int) bool {
	return level >= MinIntensity && level <= MaxIntensity
}

// IsValidMedia reports whether m is a known media type.
func IsValidMedia(m MediaType) bool {
	switch m {
	case MediaText, MediaPhoto, MediaAudio, MediaVideo:
		return true
	}
	return false
}

// ValidateSelectionConfig checks structural validity of a selection
// request. Premium gating is a separate concern handled by the lifecycle
// service; this only rejects nonsense values.
func ValidateSelectionConfig(cfg SelectionConfig) error {
	if !IsValidGender(cfg.CreatorGender) {
		return NewError(CodeInvalidConfig, "creator gender must be male or female")
	}
	if !IsValidGender(cfg.PartnerGender) {
		return NewError(CodeInvalidConfig, "partner gender must be male or female")
	}
	if cfg.Count < 2 {
		return NewError(CodeInvalidConfig, "challenge count must be at least 2")
	}
	if !IsValidIntensity(cfg.StartIntensity) {
		return NewError(CodeInvalidConfig, "start intensity must be between 1 and 4")
	}
	return nil
}
