package selection

import (
	"sort"

	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

// MaxAlternatives is the number of replacement candidates offered for a
// single position.
const MaxAlternatives = 2

// Alternatives proposes up to two replacements for the challenge at the
// given index. Candidates share the current entry's level, are filtered
// with the performer's preferences (not the requester's), and exclude any
// prompt already used anywhere in the session. Candidates with a different
// media type rank first to encourage variety. An empty result is a valid
// "no alternatives" outcome, not an error.
func (e *Engine) Alternatives(challenges []types.SessionChallenge, index int, cfg types.SelectionConfig) []types.SessionChallenge {
	if index < 0 || index >= len(challenges) {
		return nil
	}
	current := challenges[index]
	role := current.ForPlayer
	prefs := cfg.PreferencesFor(role)
	gender := cfg.GenderFor(role)
	maxLevel := MaxAccessibleLevel(cfg.Premium)

	usedPrompts := make(map[string]bool, len(challenges))
	for _, c := range challenges {
		usedPrompts[c.Prompt] = true
	}

	pool := e.buildRolePool(gender, prefs, maxLevel)
	var candidates []types.ChallengeTemplate
	for _, tpl := range pool[current.Level] {
		if !usedPrompts[tpl.Prompt] {
			candidates = append(candidates, tpl)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	e.mu.Lock()
	e.rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	e.mu.Unlock()

	// Different media types sort ahead of the current entry's media.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Media != current.Media && candidates[j].Media == current.Media
	})

	n := len(candidates)
	if n > MaxAlternatives {
		n = MaxAlternatives
	}

	alternatives := make([]types.SessionChallenge, 0, n)
	for _, tpl := range candidates[:n] {
		alternatives = append(alternatives, types.SessionChallenge{
			Prompt:    tpl.Prompt,
			Level:     tpl.Level,
			Media:     tpl.Media,
			ForGender: cfg.GenderFor(role),
			ForPlayer: role,
		})
	}
	return alternatives
}
