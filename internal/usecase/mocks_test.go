package usecase

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// mockSettingsStore implements domain.SettingsStore for testing
type mockSettingsStore struct {
	record  *domain.Settings
	loadErr error
	saveErr error
	saves   int
}

func (m *mockSettingsStore) Load() (*domain.Settings, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if m.record == nil {
		return nil, nil
	}
	rec := *m.record
	return &rec, nil
}

func (m *mockSettingsStore) Save(s domain.Settings) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.record = &s
	m.saves++
	return nil
}

func (m *mockSettingsStore) Close() error {
	return nil
}

// mockBlocklistFile implements domain.BlocklistFile for testing
type mockBlocklistFile struct {
	text    string
	exists  bool
	loadErr error
	saveErr error
	writes  int
}

func (m *mockBlocklistFile) Path() string {
	return "/tmp/mock/blocklist.txt"
}

func (m *mockBlocklistFile) Load() (string, error) {
	if m.loadErr != nil {
		return "", m.loadErr
	}
	if !m.exists {
		return "", os.ErrNotExist
	}
	return m.text, nil
}

func (m *mockBlocklistFile) Save(text string) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.text = text
	m.exists = true
	m.writes++
	return nil
}

func (m *mockBlocklistFile) EnsureExists(defaultText string) (bool, error) {
	if m.exists {
		return false, nil
	}
	if m.saveErr != nil {
		return false, m.saveErr
	}
	m.text = defaultText
	m.exists = true
	return true, nil
}

// recordingNotifier implements domain.Notifier for testing
type recordingNotifier struct {
	notices []domain.Notice
}

func (r *recordingNotifier) Notify(ctx context.Context, n domain.Notice) error {
	r.notices = append(r.notices, n)
	return nil
}

func (r *recordingNotifier) messages() []string {
	out := make([]string, len(r.notices))
	for i, n := range r.notices {
		out[i] = n.Message
	}
	return out
}

// fakeClock implements domain.Clock for testing
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) set(hhmm string) {
	t, err := time.ParseInLocation("2006-01-02 15:04", "2026-10-17 "+hhmm, time.Local)
	if err != nil {
		panic(err)
	}
	c.now = t
}

func newFakeClock(hhmm string) *fakeClock {
	c := &fakeClock{}
	c.set(hhmm)
	return c
}

// mockPanelManager implements domain.PanelManager for testing
type mockPanelManager struct {
	recent   *domain.Panel
	closeErr error
	closed   []string
}

func (m *mockPanelManager) MostRecentPanel(ctx context.Context) (*domain.Panel, error) {
	return m.recent, nil
}

func (m *mockPanelManager) ClosePanel(ctx context.Context, panel domain.Panel) error {
	if m.closeErr != nil {
		return m.closeErr
	}
	m.closed = append(m.closed, panel.ID)
	return nil
}

func (m *mockPanelManager) ClosePanelsOfType(ctx context.Context, viewType string) error {
	if m.closeErr != nil {
		return m.closeErr
	}
	m.closed = append(m.closed, "type:"+viewType)
	return nil
}

var errDisk = errors.New("disk full")
