package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/Emixee/intimacy-play-sub001/pkg/types"
)

// Pool is the static, read-only catalog of challenge templates the
// selection engine draws from. It is loaded once at startup and never
// mutated afterwards.
type Pool struct {
	templates []types.ChallengeTemplate
}

// NewPool wraps a template slice. Templates without an ID get one assigned.
func NewPool(templates []types.ChallengeTemplate) *Pool {
	out := make([]types.ChallengeTemplate, len(templates))
	copy(out, templates)
	for i := range out {
		if out[i].ID == "" {
			out[i].ID = uuid.NewString()
		}
	}
	return &Pool{templates: out}
}

// Default returns the built-in content pool.
func Default() *Pool {
	return NewPool(defaultTemplates())
}

// LoadFile reads a JSON array of templates, replacing the built-in pool.
// Entries missing an ID get one assigned; structurally invalid entries are
// rejected so a bad content drop fails loudly at startup instead of
// surfacing as empty selections later.
func LoadFile(path string) (*Pool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}

	var templates []types.ChallengeTemplate
	if err := json.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file %s: %w", path, err)
	}

	for i, tpl := range templates {
		if tpl.Prompt == "" {
			return nil, fmt.Errorf("catalog entry %d has an empty prompt", i)
		}
		if !types.IsValidIntensity(tpl.Level) {
			return nil, fmt.Errorf("catalog entry %d has invalid level %d", i, tpl.Level)
		}
		if !types.IsValidMedia(tpl.Media) {
			return nil, fmt.Errorf("catalog entry %d has invalid media type %q", i, tpl.Media)
		}
		if tpl.Theme == "" {
			return nil, fmt.Errorf("catalog entry %d has an empty theme", i)
		}
	}

	return NewPool(templates), nil
}

// Templates returns the full template list. Callers must not modify it.
func (p *Pool) Templates() []types.ChallengeTemplate {
	return p.templates
}

// Len returns the number of templates in the pool.
func (p *Pool) Len() int {
	return len(p.templates)
}

// Themes returns the distinct theme tags present in the pool.
func (p *Pool) Themes() []string {
	seen := make(map[string]bool)
	var themes []string
	for _, tpl := range p.templates {
		if !seen[tpl.Theme] {
			seen[tpl.Theme] = true
			themes = append(themes, tpl.Theme)
		}
	}
	return themes
}
