package selection

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

// Engine builds ordered challenge sequences from the static content pool.
// It performs no I/O; callers own persistence. The embedded rand source is
// guarded so the engine can be shared across request handlers.
type Engine struct {
	pool []types.ChallengeTemplate
	mu   sync.Mutex
	rng  *rand.Rand
}

// New creates an engine over a template pool.
func New(pool []types.ChallengeTemplate) *Engine {
	return NewWithRand(pool, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewWithRand creates an engine with an explicit random source, used by
// tests that need deterministic draws.
func NewWithRand(pool []types.ChallengeTemplate, rng *rand.Rand) *Engine {
	return &Engine{pool: pool, rng: rng}
}

// Result is the output of SelectChallenges. Fewer challenges than
// requested is a soft failure: the missing positions are reported in
// Warnings and callers must treat the shorter sequence as playable.
type Result struct {
	Challenges []types.SessionChallenge
	Stats      Stats
	Warnings   []string
}

// Stats counts the produced sequence by level, media type and role.
type Stats struct {
	ByLevel map[int]int             `json:"by_level"`
	ByMedia map[types.MediaType]int `json:"by_media"`
	ByRole  map[types.Role]int      `json:"by_role"`
}

// MaxAccessibleLevel returns the highest intensity the caller may draw
// from: level 4 content is premium-gated.
func MaxAccessibleLevel(premium bool) int {
	if premium {
		return types.MaxIntensity
	}
	return types.MaxFreeIntensity
}

// targetLevel computes the progression distribution for one position.
// Intensity ramps by session progress: the first 40% stays at the start
// level, then one step per band, with the final 10% at the ceiling.
func targetLevel(position, count, startIntensity, maxLevel int) int {
	progress := float64(position) / float64(count)

	var level int
	switch {
	case progress < 0.4:
		level = startIntensity
	case progress < 0.7:
		level = startIntensity + 1
	case progress < 0.9:
		level = startIntensity + 2
	default:
		level = maxLevel
	}

	if level > maxLevel {
		level = maxLevel
	}
	if level < types.MinIntensity {
		level = types.MinIntensity
	}
	return level
}

// roleForPosition alternates strictly by parity: even positions belong to
// the creator. The turn services rely on this contract.
func roleForPosition(position int) types.Role {
	if position%2 == 0 {
		return types.RoleCreator
	}
	return types.RolePartner
}

// SelectChallenges produces the ordered challenge sequence for a session.
func (e *Engine) SelectChallenges(cfg types.SelectionConfig) (*Result, error) {
	if err := types.ValidateSelectionConfig(cfg); err != nil {
		return nil, err
	}

	maxLevel := MaxAccessibleLevel(cfg.Premium)
	pools := map[types.Role]map[int][]types.ChallengeTemplate{
		types.RoleCreator: e.buildRolePool(cfg.CreatorGender, cfg.Creator, maxLevel),
		types.RolePartner: e.buildRolePool(cfg.PartnerGender, cfg.Partner, maxLevel),
	}

	result := &Result{
		Stats: Stats{
			ByLevel: make(map[int]int),
			ByMedia: make(map[types.MediaType]int),
			ByRole:  make(map[types.Role]int),
		},
	}
	used := make(map[string]bool)

	for i := 0; i < cfg.Count; i++ {
		role := roleForPosition(i)
		level := targetLevel(i, cfg.Count, cfg.StartIntensity, maxLevel)

		tpl, ok := e.draw(pools[role], level, maxLevel, used)
		if !ok {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("no challenge available for position %d (level %d, %s)", i, level, role))
			continue
		}

		used[tpl.ID] = true
		challenge := types.SessionChallenge{
			Prompt:    tpl.Prompt,
			Level:     tpl.Level,
			Media:     tpl.Media,
			ForGender: cfg.GenderFor(role),
			ForPlayer: role,
		}
		result.Challenges = append(result.Challenges, challenge)
		result.Stats.ByLevel[tpl.Level]++
		result.Stats.ByMedia[tpl.Media]++
		result.Stats.ByRole[role]++
	}

	return result, nil
}

// draw picks a random unused template at the target level, falling back to
// the nearest lower level and then the nearest higher level up to the
// accessible ceiling before giving up.
func (e *Engine) draw(pool map[int][]types.ChallengeTemplate, level, maxLevel int, used map[string]bool) (*types.ChallengeTemplate, bool) {
	if tpl, ok := e.drawAt(pool, level, used); ok {
		return tpl, true
	}
	for l := level - 1; l >= types.MinIntensity; l-- {
		if tpl, ok := e.drawAt(pool, l, used); ok {
			return tpl, true
		}
	}
	for l := level + 1; l <= maxLevel; l++ {
		if tpl, ok := e.drawAt(pool, l, used); ok {
			return tpl, true
		}
	}
	return nil, false
}

func (e *Engine) drawAt(pool map[int][]types.ChallengeTemplate, level int, used map[string]bool) (*types.ChallengeTemplate, bool) {
	var candidates []types.ChallengeTemplate
	for _, tpl := range pool[level] {
		if !used[tpl.ID] {
			candidates = append(candidates, tpl)
		}
	}
	if len(candidates) == 0 {
		return nil, false
	}

	e.mu.Lock()
	pick := candidates[e.rng.Intn(len(candidates))]
	e.mu.Unlock()
	return &pick, true
}

// buildRolePool filters the catalog for one role and groups the survivors
// by level. The four stages run in order: theme membership with per-level
// classic backfill, toy inclusion, allowed media types, accessible level.
func (e *Engine) buildRolePool(gender types.Gender, prefs types.PlayerPreferences, maxLevel int) map[int][]types.ChallengeTemplate {
	var byGender []types.ChallengeTemplate
	for _, tpl := range e.pool {
		if tpl.Gender.Matches(gender) {
			byGender = append(byGender, tpl)
		}
	}

	themes := make(map[string]bool)
	for _, theme := range prefs.EffectiveThemes() {
		themes[strings.ToLower(theme)] = true
	}
	classicSelected := themes[types.ThemeClassic]

	byLevel := make(map[int][]types.ChallengeTemplate)
	for _, tpl := range byGender {
		if tpl.Level > maxLevel {
			continue
		}
		if themes[strings.ToLower(tpl.Theme)] {
			byLevel[tpl.Level] = append(byLevel[tpl.Level], tpl)
		}
	}

	// Classic backfill: a level left empty by the theme filter falls back
	// to classic content so the progression never hits a hole. Pointless
	// when classic was already among the selected themes.
	if !classicSelected {
		for level := types.MinIntensity; level <= maxLevel; level++ {
			if len(byLevel[level]) > 0 {
				continue
			}
			for _, tpl := range byGender {
				if tpl.Level == level && strings.EqualFold(tpl.Theme, types.ThemeClassic) {
					byLevel[level] = append(byLevel[level], tpl)
				}
			}
		}
	}

	availableToys := make(map[string]bool)
	for _, toy := range prefs.Toys {
		availableToys[strings.ToLower(toy)] = true
	}

	for level, templates := range byLevel {
		var kept []types.ChallengeTemplate
		for _, tpl := range templates {
			if tpl.HasToy {
				if !prefs.IncludeToys || !availableToys[strings.ToLower(tpl.Toy)] {
					continue
				}
			}
			if !prefs.AllowsMedia(tpl.Media) {
				continue
			}
			kept = append(kept, tpl)
		}
		byLevel[level] = kept
	}

	return byLevel
}
