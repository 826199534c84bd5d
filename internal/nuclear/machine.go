package nuclear

import (
	"time"

	"github.com/eliteGoblin/focusd/web_mon/internal/keyword"
)

// Transition is the edge produced by an evaluation.
type Transition int

const (
	NoChange Transition = iota
	Activated
	Deactivated
)

func (t Transition) String() string {
	switch t {
	case Activated:
		return "activated"
	case Deactivated:
		return "deactivated"
	default:
		return "no_change"
	}
}

// Machine tracks whether Nuclear Mode is active and holds the baseline
// snapshot that blocklist edits may not shrink below.
// It is not safe for concurrent use; the daemon drives it from one goroutine.
type Machine struct {
	enabled  bool
	schedule Schedule
	active   bool
	baseline keyword.Set
}

// NewMachine creates an inactive, unconfigured machine.
func NewMachine() *Machine {
	return &Machine{baseline: keyword.Set{}}
}

// Configure sets the schedule. The schedule must already be validated.
// Takes effect on the next Evaluate.
func (m *Machine) Configure(enabled bool, schedule Schedule) {
	m.enabled = enabled
	m.schedule = schedule
}

// Enabled reports whether Nuclear Mode is switched on.
func (m *Machine) Enabled() bool {
	return m.enabled
}

// Schedule returns the configured window.
func (m *Machine) Schedule() Schedule {
	return m.schedule
}

// Active reports whether the window is currently enforced.
func (m *Machine) Active() bool {
	return m.active
}

// Baseline returns a copy of the activation snapshot.
func (m *Machine) Baseline() keyword.Set {
	return keyword.Union(m.baseline, nil)
}

// ShouldBeActive is the pure containment check for now.
func (m *Machine) ShouldBeActive(now time.Time) bool {
	return m.enabled && m.schedule.Contains(now)
}

// Evaluate recomputes the flag for now and returns the edge, if any.
// On activation the current keyword set becomes the baseline.
func (m *Machine) Evaluate(now time.Time, current keyword.Set) Transition {
	want := m.ShouldBeActive(now)
	if want == m.active {
		return NoChange
	}
	m.active = want
	if want {
		m.baseline = keyword.Union(current, nil)
		return Activated
	}
	return Deactivated
}

// Resume marks the machine active with a previously persisted baseline.
// Used when the process starts inside the window.
func (m *Machine) Resume(baseline keyword.Set) {
	m.active = true
	m.baseline = keyword.Union(baseline, nil)
}

// GuardReplace applies the append-only policy to a proposed keyword set.
// While active, baseline entries missing from proposed are re-inserted and
// returned as removed. Otherwise proposed is returned unchanged.
func (m *Machine) GuardReplace(proposed keyword.Set) (keyword.Set, []string) {
	if !m.active {
		return proposed, nil
	}
	missing := m.baseline.Missing(proposed)
	if len(missing) == 0 {
		return proposed, nil
	}
	return keyword.Union(m.baseline, proposed), missing
}

// AllowDisable reports whether blocking may be turned off.
func (m *Machine) AllowDisable() bool {
	return !m.active
}
