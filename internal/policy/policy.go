// Package policy implements the Strategy pattern for what happens on a keyword match.
// Each action mode (close, log) has its own policy.
package policy

import (
	"context"
	"time"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

const (
	// DefaultScanInterval is how often address fields are polled.
	DefaultScanInterval = 500 * time.Millisecond

	// DefaultNuclearInterval is how often the Nuclear Mode window is re-evaluated.
	// Schedule boundaries only matter at minute granularity.
	DefaultNuclearInterval = 60 * time.Second

	// DefaultViewType is the host view type of Web Viewer panels.
	DefaultViewType = "webviewer"
)

// ActionPolicy defines the strategy interface for acting on matches.
type ActionPolicy interface {
	// ID returns the action mode this policy implements.
	ID() domain.ActionMode

	// Name returns human-readable name for display.
	Name() string

	// ReportAll is true when every match should be collected before acting.
	// When false the first match is enough and scanning stops there.
	ReportAll() bool

	// Apply performs the action for a result that has at least one match.
	Apply(ctx context.Context, result *domain.EnforcementResult) error
}
