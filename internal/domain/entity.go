// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import "time"

// ActionMode selects what happens when an address matches a blocked keyword.
type ActionMode string

const (
	ActionClose ActionMode = "close"
	ActionLog   ActionMode = "log"
)

// Settings is the persisted settings record.
type Settings struct {
	IsEnabled          bool       `json:"is_enabled"`
	BlocklistContent   string     `json:"blocklist_content"`
	NuclearModeEnabled bool       `json:"nuclear_mode_enabled"`
	NuclearStartTime   string     `json:"nuclear_start_time"`
	NuclearEndTime     string     `json:"nuclear_end_time"`
	NuclearActive      bool       `json:"nuclear_active"`
	Action             ActionMode `json:"action,omitempty"`
	NuclearBaseline    string     `json:"nuclear_baseline,omitempty"` // Keyword snapshot taken at activation
}

// DefaultSettings returns the record used when nothing has been persisted yet.
func DefaultSettings(blocklist string) Settings {
	return Settings{
		IsEnabled:        true,
		BlocklistContent: blocklist,
		NuclearStartTime: "22:00",
		NuclearEndTime:   "05:00",
		Action:           ActionClose,
	}
}

// SettingsView is a read-only projection for presentation layers.
type SettingsView struct {
	IsEnabled      bool
	IsToggleLocked bool // Blocking cannot be turned off right now
	NuclearEnabled bool
	NuclearActive  bool
	NuclearStart   string
	NuclearEnd     string
	Action         ActionMode
	KeywordCount   int
}

// PathSegment is one step of a field's structural position in the host document.
type PathSegment struct {
	Tag   string
	Index int // Position among the parent's element children
}

// Panel identifies a host panel (a workspace leaf).
type Panel struct {
	ID       string
	ViewType string
	Title    string
}

// Notice is a transient user-visible message.
type Notice struct {
	Message string
	Timeout time.Duration // Zero means the host default
}

// LocationKind tells where in the address a keyword matched.
type LocationKind string

const (
	LocationRawURL     LocationKind = "raw_url"
	LocationQueryParam LocationKind = "query_param"
)

// Location is the place a keyword was found.
type Location struct {
	Kind  LocationKind
	Param string // Query parameter name, only for LocationQueryParam
}

// MatchEvent reports one keyword hit.
type MatchEvent struct {
	Keyword  string
	Location Location
	Snippet  string
}

// EnforcementResult captures what happened for a single changed address.
type EnforcementResult struct {
	FieldID      string
	Address      string
	Action       ActionMode
	Matches      []MatchEvent
	ClosedPanels []string
	Errors       []error
	ExecutedAt   time.Time
}
