package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
	"github.com/eliteGoblin/focusd/web_mon/internal/keyword"
	"github.com/eliteGoblin/focusd/web_mon/internal/nuclear"
)

var (
	// ErrBlockingLocked is returned when disabling blocking during Nuclear Mode.
	ErrBlockingLocked = errors.New("blocking cannot be disabled while nuclear mode is active")

	// ErrNuclearLocked is returned when changing Nuclear Mode settings during the window.
	ErrNuclearLocked = errors.New("nuclear mode settings are locked while it is active")
)

const (
	noticeTimeout        = 5 * time.Second
	nuclearNoticeTimeout = 10 * time.Second
)

// Deps are the collaborators a State works with.
type Deps struct {
	Store     domain.SettingsStore
	Blocklist domain.BlocklistFile
	Notifier  domain.Notifier
	Clock     domain.Clock
	Logger    *zap.Logger
}

// BlocklistUpdate describes the outcome of a blocklist replacement.
type BlocklistUpdate struct {
	Text     string      // Text that was stored
	Keywords keyword.Set // Keywords now in effect
	Rejected []string    // Baseline keywords re-inserted by Nuclear Mode
	Changed  bool
}

// State is the running add-on state: settings, keyword set and Nuclear Mode.
// It is not safe for concurrent use; the daemon drives it from one goroutine.
type State struct {
	deps     Deps
	settings domain.Settings
	keywords keyword.Set
	nuclear  *nuclear.Machine
}

// Init loads persisted settings and the blocklist file and computes the
// Nuclear Mode state for the current time.
func Init(ctx context.Context, deps Deps) (*State, error) {
	if deps.Store == nil || deps.Blocklist == nil {
		return nil, errors.New("settings store and blocklist file are required")
	}
	if deps.Clock == nil {
		deps.Clock = domain.SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Notifier == nil {
		deps.Notifier = NopNotifier{}
	}

	s := &State{deps: deps, nuclear: nuclear.NewMachine()}

	rec, err := deps.Store.Load()
	if err != nil {
		deps.Logger.Warn("failed to load settings, using defaults", zap.Error(err))
	}
	if rec == nil {
		defaults := domain.DefaultSettings(keyword.DefaultText())
		rec = &defaults
	}
	if rec.Action == "" {
		rec.Action = domain.ActionClose
	}
	s.settings = *rec

	s.settings.BlocklistContent = s.loadBlocklist(rec.BlocklistContent)
	s.keywords = keyword.Parse(s.settings.BlocklistContent)

	if rec.NuclearModeEnabled {
		sched, err := nuclear.ParseSchedule(rec.NuclearStartTime, rec.NuclearEndTime)
		if err != nil {
			deps.Logger.Warn("stored nuclear schedule is invalid, not activating", zap.Error(err))
			s.notify(ctx, "Nuclear Mode schedule is invalid: "+err.Error(), noticeTimeout)
		} else {
			s.nuclear.Configure(true, sched)
		}
	}

	now := deps.Clock.Now()
	if s.nuclear.ShouldBeActive(now) && rec.NuclearActive && rec.NuclearBaseline != "" {
		// Restarted inside the window: keep the floor captured at activation.
		s.nuclear.Resume(keyword.Parse(rec.NuclearBaseline))
		s.settings.IsEnabled = true
		deps.Logger.Info("nuclear mode resumed",
			zap.String("schedule", s.nuclear.Schedule().String()),
			zap.Int("baseline", s.nuclear.Baseline().Len()))
		if _, err := s.applyBlocklist(ctx, s.settings.BlocklistContent, false); err != nil {
			deps.Logger.Warn("failed to restore nuclear baseline", zap.Error(err))
		}
	} else {
		s.settings.NuclearActive = false
		s.EvaluateNuclear(ctx)
	}

	err = s.persist(func(r *domain.Settings) {
		r.BlocklistContent = s.settings.BlocklistContent
		r.NuclearActive = s.settings.NuclearActive
		if r.Action == "" {
			r.Action = s.settings.Action
		}
	})
	if err != nil {
		deps.Logger.Warn("failed to save settings", zap.Error(err))
	}
	return s, nil
}

// loadBlocklist reads the blocklist file, creating it from seed when absent.
// Read failures fall back to the default text.
func (s *State) loadBlocklist(seed string) string {
	if strings.TrimSpace(seed) == "" {
		seed = keyword.DefaultText()
	}
	created, err := s.deps.Blocklist.EnsureExists(seed)
	if err != nil {
		s.deps.Logger.Warn("failed to create blocklist file",
			zap.String("path", s.deps.Blocklist.Path()),
			zap.Error(err))
	} else if created {
		s.deps.Logger.Info("created blocklist file", zap.String("path", s.deps.Blocklist.Path()))
	}

	text, err := s.deps.Blocklist.Load()
	if err != nil {
		s.deps.Logger.Warn("failed to read blocklist file, using defaults",
			zap.String("path", s.deps.Blocklist.Path()),
			zap.Error(err))
		return keyword.DefaultText()
	}
	return text
}

// Teardown persists the Nuclear Mode runtime state. Fields owned by other
// writers are left as stored.
func (s *State) Teardown(ctx context.Context) error {
	if err := s.persist(s.nuclearRuntime); err != nil {
		return err
	}
	s.deps.Logger.Debug("state torn down")
	return nil
}

// Keywords returns the keyword set in effect.
func (s *State) Keywords() keyword.Set {
	return s.keywords
}

// Action returns the configured action mode.
func (s *State) Action() domain.ActionMode {
	return s.settings.Action
}

// Enabled reports whether blocking is on.
func (s *State) Enabled() bool {
	return s.settings.IsEnabled
}

// NuclearActive reports whether the Nuclear Mode window is enforced.
func (s *State) NuclearActive() bool {
	return s.nuclear.Active()
}

// Settings returns a copy of the current settings record.
func (s *State) Settings() domain.Settings {
	return s.settings
}

// View returns the read-only projection presentation layers render.
func (s *State) View() domain.SettingsView {
	return domain.SettingsView{
		IsEnabled:      s.settings.IsEnabled,
		IsToggleLocked: s.nuclear.Active(),
		NuclearEnabled: s.settings.NuclearModeEnabled,
		NuclearActive:  s.nuclear.Active(),
		NuclearStart:   s.settings.NuclearStartTime,
		NuclearEnd:     s.settings.NuclearEndTime,
		Action:         s.settings.Action,
		KeywordCount:   s.keywords.Len(),
	}
}

// EvaluateNuclear recomputes the Nuclear Mode flag for the current time and
// runs the entry or exit side effects on an edge.
func (s *State) EvaluateNuclear(ctx context.Context) nuclear.Transition {
	tr := s.nuclear.Evaluate(s.deps.Clock.Now(), s.keywords)

	switch tr {
	case nuclear.Activated:
		s.settings.NuclearActive = true
		s.settings.NuclearBaseline = s.keywords.Serialize()
		if !s.settings.IsEnabled {
			s.settings.IsEnabled = true
			s.deps.Logger.Info("blocking force-enabled by nuclear mode")
		}
		s.deps.Logger.Info("nuclear mode activated",
			zap.String("schedule", s.nuclear.Schedule().String()),
			zap.Int("baseline", s.keywords.Len()))
		s.notify(ctx, fmt.Sprintf("Nuclear Mode is active until %s. Blocking is locked on and keywords can only be added.",
			s.nuclear.Schedule().End), nuclearNoticeTimeout)

	case nuclear.Deactivated:
		s.settings.NuclearActive = false
		s.deps.Logger.Info("nuclear mode deactivated")
		s.notify(ctx, "Nuclear Mode has ended. Blocking settings are unlocked.", nuclearNoticeTimeout)

	default:
		return tr
	}

	err := s.persist(func(r *domain.Settings) {
		s.nuclearRuntime(r)
		r.IsEnabled = s.settings.IsEnabled
	})
	if err != nil {
		s.deps.Logger.Warn("failed to save settings", zap.Error(err))
	}
	return tr
}

// SetEnabled turns blocking on or off. Turning it off during Nuclear Mode is
// refused and the setting stays on.
func (s *State) SetEnabled(ctx context.Context, enabled bool) error {
	if !enabled && !s.nuclear.AllowDisable() {
		s.notify(ctx, fmt.Sprintf("Blocking cannot be disabled during Nuclear Mode (until %s).",
			s.nuclear.Schedule().End), noticeTimeout)
		return ErrBlockingLocked
	}
	if s.settings.IsEnabled == enabled {
		return nil
	}
	s.settings.IsEnabled = enabled
	s.deps.Logger.Info("blocking toggled", zap.Bool("enabled", enabled))
	return s.persist(s.enabledField)
}

// SetAction changes what happens on a match.
func (s *State) SetAction(ctx context.Context, mode domain.ActionMode) error {
	if s.settings.Action == mode {
		return nil
	}
	s.settings.Action = mode
	return s.persist(func(r *domain.Settings) { r.Action = mode })
}

// ConfigureNuclear changes the Nuclear Mode switch and window. Times must be
// strict HH:MM when enabling. Nothing changes while the window is active.
func (s *State) ConfigureNuclear(ctx context.Context, enabled bool, start, end string) error {
	if s.nuclear.Active() {
		s.notify(ctx, fmt.Sprintf("Nuclear Mode settings are locked until %s.", s.nuclear.Schedule().End), noticeTimeout)
		return ErrNuclearLocked
	}

	sched, err := nuclear.ParseSchedule(start, end)
	if err != nil {
		if enabled {
			s.notify(ctx, "Invalid Nuclear Mode time: "+err.Error(), noticeTimeout)
			return err
		}
		// Turning off with bad times: keep the previous times.
		start, end = s.settings.NuclearStartTime, s.settings.NuclearEndTime
		sched = s.nuclear.Schedule()
	}

	s.settings.NuclearModeEnabled = enabled
	s.settings.NuclearStartTime = start
	s.settings.NuclearEndTime = end
	s.nuclear.Configure(enabled, sched)
	s.deps.Logger.Info("nuclear mode configured",
		zap.Bool("enabled", enabled),
		zap.String("schedule", sched.String()))

	if err := s.persist(s.nuclearSchedule); err != nil {
		return err
	}
	s.EvaluateNuclear(ctx)
	return nil
}

// ReplaceBlocklist swaps the blocklist text and writes it to the blocklist file.
func (s *State) ReplaceBlocklist(ctx context.Context, text string) (*BlocklistUpdate, error) {
	return s.applyBlocklist(ctx, text, true)
}

// AddKeywords appends keywords to the blocklist.
func (s *State) AddKeywords(ctx context.Context, words ...string) (*BlocklistUpdate, error) {
	text := strings.TrimRight(s.settings.BlocklistContent, "\n")
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			text += "\n" + w
		}
	}
	return s.ReplaceBlocklist(ctx, strings.TrimLeft(text, "\n"))
}

// RemoveKeywords drops keywords from the blocklist. During Nuclear Mode
// baseline keywords are put back.
func (s *State) RemoveKeywords(ctx context.Context, words ...string) (*BlocklistUpdate, error) {
	drop := keyword.FromSlice(words)
	remaining := make(keyword.Set, s.keywords.Len())
	for k := range s.keywords {
		if !drop.Contains(k) {
			remaining[k] = struct{}{}
		}
	}
	return s.ReplaceBlocklist(ctx, remaining.Serialize())
}

// ApplyBlocklistFile re-reads the blocklist file after an edit and applies it
// through the Nuclear Mode guard. Unchanged content is a no-op.
func (s *State) ApplyBlocklistFile(ctx context.Context) (*BlocklistUpdate, error) {
	text, err := s.deps.Blocklist.Load()
	if errors.Is(err, os.ErrNotExist) {
		// A deleted file is recreated from the current list.
		if err := s.deps.Blocklist.Save(s.settings.BlocklistContent); err != nil {
			return nil, fmt.Errorf("failed to restore blocklist file: %w", err)
		}
		return &BlocklistUpdate{Text: s.settings.BlocklistContent, Keywords: s.keywords}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read blocklist file: %w", err)
	}
	if text == s.settings.BlocklistContent {
		return &BlocklistUpdate{Text: text, Keywords: s.keywords}, nil
	}
	return s.applyBlocklist(ctx, text, false)
}

// Reload re-reads persisted settings (changed by another process) and applies
// them through the same guards as direct calls. The returned update describes
// the blocklist file as applied; it is nil when the file could not be read.
func (s *State) Reload(ctx context.Context) (*BlocklistUpdate, error) {
	rec, err := s.deps.Store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if rec == nil {
		return nil, nil
	}

	if rec.Action != "" && rec.Action != s.settings.Action {
		if err := s.SetAction(ctx, rec.Action); err != nil {
			return nil, err
		}
	}

	if rec.NuclearModeEnabled != s.settings.NuclearModeEnabled ||
		rec.NuclearStartTime != s.settings.NuclearStartTime ||
		rec.NuclearEndTime != s.settings.NuclearEndTime {
		if err := s.ConfigureNuclear(ctx, rec.NuclearModeEnabled, rec.NuclearStartTime, rec.NuclearEndTime); err != nil {
			s.deps.Logger.Info("ignored stored nuclear change", zap.Error(err))
			if saveErr := s.persist(s.nuclearSchedule); saveErr != nil {
				return nil, saveErr
			}
		}
	}

	if rec.IsEnabled != s.settings.IsEnabled {
		if err := s.SetEnabled(ctx, rec.IsEnabled); err != nil {
			s.deps.Logger.Info("reverted stored blocking toggle", zap.Error(err))
			if saveErr := s.persist(s.enabledField); saveErr != nil {
				return nil, saveErr
			}
		}
	}

	update, err := s.ApplyBlocklistFile(ctx)
	if err != nil {
		s.deps.Logger.Warn("failed to apply blocklist file", zap.Error(err))
		return nil, nil
	}
	return update, nil
}

// applyBlocklist guards, stores and optionally writes the blocklist text.
// A rejected removal always rewrites the file with the merged text.
func (s *State) applyBlocklist(ctx context.Context, text string, writeFile bool) (*BlocklistUpdate, error) {
	proposed := keyword.Parse(text)
	merged, rejected := s.nuclear.GuardReplace(proposed)

	final := text
	if len(rejected) > 0 {
		final = strings.TrimRight(text, "\n")
		if strings.TrimSpace(final) != "" {
			final += "\n"
		}
		final += strings.Join(rejected, "\n")
		writeFile = true

		s.deps.Logger.Info("nuclear mode rejected keyword removal",
			zap.Strings("rejected", rejected))
		s.notify(ctx, fmt.Sprintf("Nuclear Mode: removing keywords is not allowed (%s). Additions were kept.",
			strings.Join(rejected, ", ")), noticeTimeout)
	}

	update := &BlocklistUpdate{
		Text:     final,
		Keywords: merged,
		Rejected: rejected,
		Changed:  !merged.Equal(s.keywords),
	}

	if writeFile {
		if err := s.deps.Blocklist.Save(final); err != nil {
			s.notify(ctx, "Failed to save blocklist: "+err.Error(), noticeTimeout)
			return update, fmt.Errorf("failed to write blocklist file: %w", err)
		}
	}

	s.settings.BlocklistContent = final
	s.keywords = merged
	if update.Changed {
		s.deps.Logger.Info("blocklist updated", zap.Int("keywords", merged.Len()))
	}

	if err := s.persist(func(r *domain.Settings) { r.BlocklistContent = final }); err != nil {
		s.notify(ctx, "Failed to save settings: "+err.Error(), noticeTimeout)
		return update, err
	}
	return update, nil
}

// persist writes only the fields set by apply on top of the latest stored
// record, so a CLI process and the daemon sharing the store do not undo each
// other's changes. With nothing readable stored, the whole record is written.
func (s *State) persist(apply func(*domain.Settings)) error {
	rec, err := s.deps.Store.Load()
	if err != nil {
		s.deps.Logger.Warn("failed to load settings before save, writing full record", zap.Error(err))
	}
	if err != nil || rec == nil {
		full := s.settings
		rec = &full
	}
	apply(rec)

	if err := s.deps.Store.Save(*rec); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (s *State) enabledField(r *domain.Settings) {
	r.IsEnabled = s.settings.IsEnabled
}

func (s *State) nuclearSchedule(r *domain.Settings) {
	r.NuclearModeEnabled = s.settings.NuclearModeEnabled
	r.NuclearStartTime = s.settings.NuclearStartTime
	r.NuclearEndTime = s.settings.NuclearEndTime
}

func (s *State) nuclearRuntime(r *domain.Settings) {
	r.NuclearActive = s.settings.NuclearActive
	r.NuclearBaseline = s.settings.NuclearBaseline
}

func (s *State) notify(ctx context.Context, msg string, timeout time.Duration) {
	if err := s.deps.Notifier.Notify(ctx, domain.Notice{Message: msg, Timeout: timeout}); err != nil {
		s.deps.Logger.Debug("notice not delivered", zap.String("message", msg), zap.Error(err))
	}
}

// NopNotifier drops notices.
type NopNotifier struct{}

// Notify does nothing.
func (NopNotifier) Notify(context.Context, domain.Notice) error { return nil }
