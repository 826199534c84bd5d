package domain

import (
	"context"
	"time"
)

// FieldHandle is a host-owned address field of one Web Viewer panel.
type FieldHandle interface {
	// Path returns the root-to-node structural position of the field.
	Path() []PathSegment

	// ReadCurrentText returns the text currently shown in the field.
	ReadCurrentText(ctx context.Context) (string, error)
}

// ObservableSource enumerates the address fields currently present in the host.
// Implementation: CDP (go-rod) in production, in-memory fakes in tests.
type ObservableSource interface {
	// FindAllObservedFields returns the fields visible right now. Zero is valid.
	FindAllObservedFields(ctx context.Context) ([]FieldHandle, error)
}

// PanelManager closes host panels.
type PanelManager interface {
	// MostRecentPanel returns the most recently focused panel, or nil when none.
	MostRecentPanel(ctx context.Context) (*Panel, error)

	// ClosePanel detaches a single panel.
	ClosePanel(ctx context.Context, panel Panel) error

	// ClosePanelsOfType detaches every panel of the given view type.
	ClosePanelsOfType(ctx context.Context, viewType string) error
}

// Notifier shows transient messages to the user.
type Notifier interface {
	Notify(ctx context.Context, notice Notice) error
}

// SettingsStore persists the settings record.
// Implementation: SQLCipher encrypted database.
type SettingsStore interface {
	// Load returns the stored record, or nil when nothing was saved yet.
	Load() (*Settings, error)

	// Save replaces the stored record.
	Save(settings Settings) error

	// Close releases resources (e.g., database connection).
	Close() error
}

// BlocklistFile is the plain-text blocklist kept in the data directory.
type BlocklistFile interface {
	// Path returns the file location.
	Path() string

	// Load reads the raw blocklist text.
	Load() (string, error)

	// Save replaces the file content atomically.
	Save(text string) error

	// EnsureExists creates the file with the given content if absent.
	// Returns true if the file was created.
	EnsureExists(defaultText string) (bool, error)
}

// KeyProvider abstracts the source of encryption keys.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// Clock returns the current wall-clock time.
type Clock interface {
	Now() time.Time
}

// SystemClock is the real clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }

// Enforcer tests changed addresses against the blocklist and acts on matches.
type Enforcer interface {
	// HandleAddress runs matching for a changed address of the given field.
	HandleAddress(ctx context.Context, fieldID, address string) (*EnforcementResult, error)
}
