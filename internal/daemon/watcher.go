// Package daemon implements the webmon watcher loop.
package daemon

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/nuclear"
	"github.com/eliteGoblin/focusd/web_mon/internal/policy"
	"github.com/eliteGoblin/focusd/web_mon/internal/usecase"
)

// Controller is the part of usecase.State the watcher drives.
type Controller interface {
	Enabled() bool
	EvaluateNuclear(ctx context.Context) nuclear.Transition
	Reload(ctx context.Context) (*usecase.BlocklistUpdate, error)
	ApplyBlocklistFile(ctx context.Context) (*usecase.BlocklistUpdate, error)
}

// WatcherConfig holds watcher configuration.
type WatcherConfig struct {
	ScanInterval    time.Duration // How often address fields are polled
	NuclearInterval time.Duration // How often the Nuclear Mode window is re-evaluated
}

// DefaultWatcherConfig returns default watcher configuration.
func DefaultWatcherConfig() WatcherConfig {
	return WatcherConfig{
		ScanInterval:    policy.DefaultScanInterval,    // 500ms
		NuclearInterval: policy.DefaultNuclearInterval, // 1 minute
	}
}

// Watcher runs the address scan and the Nuclear Mode evaluation on a single
// goroutine. Each tick runs to completion before the next one is picked, so
// neither task observes the other half-done.
type Watcher struct {
	config     WatcherConfig
	controller Controller
	observer   *Observer
	blocklist  <-chan struct{}
	logger     *zap.Logger

	scanTicker *time.Ticker
}

// NewWatcher creates a new watcher. blocklistChanges may be nil when the
// blocklist file is not watched.
func NewWatcher(
	config WatcherConfig,
	controller Controller,
	observer *Observer,
	blocklistChanges <-chan struct{},
	logger *zap.Logger,
) *Watcher {
	return &Watcher{
		config:     config,
		controller: controller,
		observer:   observer,
		blocklist:  blocklistChanges,
		logger:     logger,
	}
}

// Run starts the watcher loop.
// This blocks until context is canceled; both tickers are stopped on return.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watcher started",
		zap.Duration("scan_interval", w.config.ScanInterval),
		zap.Duration("nuclear_interval", w.config.NuclearInterval))

	nuclearTicker := time.NewTicker(w.config.NuclearInterval)
	defer func() {
		nuclearTicker.Stop()
		w.stopScanning()
	}()

	w.syncScanning(ctx)

	blocklist := w.blocklist
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopping")
			return ctx.Err()

		case <-w.scanC():
			w.runScan(ctx)

		case <-nuclearTicker.C:
			w.runNuclear(ctx)
			w.syncScanning(ctx)

		case _, ok := <-blocklist:
			if !ok {
				blocklist = nil
				continue
			}
			w.applyBlocklist(ctx)
		}
	}
}

func (w *Watcher) runScan(ctx context.Context) {
	stats := w.observer.Tick(ctx)
	if stats.Matched > 0 || stats.Errors > 0 {
		w.logger.Debug("scan completed",
			zap.Int("fields", stats.Fields),
			zap.Int("changed", stats.Changed),
			zap.Int("matched", stats.Matched),
			zap.Int("errors", stats.Errors))
	}
}

func (w *Watcher) runNuclear(ctx context.Context) {
	update, err := w.controller.Reload(ctx)
	if err != nil {
		w.logger.Warn("failed to reload settings", zap.Error(err))
	}
	w.resetOnChange(update)
	if tr := w.controller.EvaluateNuclear(ctx); tr != nuclear.NoChange {
		w.logger.Info("nuclear mode transition", zap.Stringer("transition", tr))
	}
}

func (w *Watcher) applyBlocklist(ctx context.Context) {
	update, err := w.controller.ApplyBlocklistFile(ctx)
	if err != nil {
		w.logger.Warn("failed to apply blocklist edit", zap.Error(err))
		return
	}
	w.resetOnChange(update)
}

// resetOnChange clears the observer registry after the keyword set changed,
// so new keywords apply to pages already open.
func (w *Watcher) resetOnChange(update *usecase.BlocklistUpdate) {
	if update != nil && (update.Changed || len(update.Rejected) > 0) {
		w.observer.Reset()
	}
}

// syncScanning starts the address ticker when blocking is enabled and stops
// it when disabled.
func (w *Watcher) syncScanning(ctx context.Context) {
	enabled := w.controller.Enabled()
	switch {
	case enabled && w.scanTicker == nil:
		w.observer.Reset()
		w.scanTicker = time.NewTicker(w.config.ScanInterval)
		w.logger.Info("address scanning started")
		w.runScan(ctx)
	case !enabled && w.scanTicker != nil:
		w.stopScanning()
		w.logger.Info("address scanning stopped")
	}
}

func (w *Watcher) stopScanning() {
	if w.scanTicker != nil {
		w.scanTicker.Stop()
		w.scanTicker = nil
	}
}

// scanC returns the scan tick channel, or nil (blocks forever) when stopped.
func (w *Watcher) scanC() <-chan time.Time {
	if w.scanTicker == nil {
		return nil
	}
	return w.scanTicker.C
}

// Scanning reports whether the address ticker is running.
func (w *Watcher) Scanning() bool {
	return w.scanTicker != nil
}
