package policy

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// Registry holds the action policies by mode.
type Registry struct {
	policies map[domain.ActionMode]ActionPolicy
}

// NewRegistry creates a registry with the close and log policies.
func NewRegistry(panels domain.PanelManager, viewType string, logger *zap.Logger) *Registry {
	r := &Registry{
		policies: make(map[domain.ActionMode]ActionPolicy),
	}

	r.Register(NewClosePolicy(panels, viewType, logger))
	r.Register(NewLogPolicy(logger))

	return r
}

// NewRegistryWithPolicies creates a registry with custom policies (for testing).
func NewRegistryWithPolicies(policies ...ActionPolicy) *Registry {
	r := &Registry{
		policies: make(map[domain.ActionMode]ActionPolicy),
	}
	for _, p := range policies {
		r.Register(p)
	}
	return r
}

// Register adds a policy to the registry.
func (r *Registry) Register(p ActionPolicy) {
	r.policies[p.ID()] = p
}

// Get returns the policy for a mode.
func (r *Registry) Get(mode domain.ActionMode) (ActionPolicy, error) {
	p, ok := r.policies[mode]
	if !ok {
		return nil, fmt.Errorf("unknown action mode: %q", mode)
	}
	return p, nil
}

// List returns the registered modes, sorted.
func (r *Registry) List() []domain.ActionMode {
	modes := make([]domain.ActionMode, 0, len(r.policies))
	for m := range r.policies {
		modes = append(modes, m)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}

// ParseMode validates an action mode string.
func ParseMode(s string) (domain.ActionMode, error) {
	switch m := domain.ActionMode(s); m {
	case domain.ActionClose, domain.ActionLog:
		return m, nil
	default:
		return "", fmt.Errorf("unknown action mode: %q (want close or log)", s)
	}
}
