package infra

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 200 * time.Millisecond

// BlocklistWatcher signals when the blocklist file changes on disk.
// It watches the parent directory so atomic renames and editor
// save-by-replace are seen. Bursts of events collapse into one signal.
type BlocklistWatcher struct {
	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	path     string
	dir      string
	debounce time.Duration
	changes  chan struct{}
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	logger   *zap.Logger
}

// NewBlocklistWatcher creates a watcher for the file at path.
func NewBlocklistWatcher(path string, logger *zap.Logger) (*BlocklistWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	path = filepath.Clean(path)
	return &BlocklistWatcher{
		watcher:  w,
		path:     path,
		dir:      filepath.Dir(path),
		debounce: defaultDebounce,
		changes:  make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		logger:   logger,
	}, nil
}

// SetDebounce changes the quiet period before a change is signalled.
// Must be called before Start.
func (bw *BlocklistWatcher) SetDebounce(d time.Duration) {
	bw.debounce = d
}

// Changes returns the signal channel. It is closed when the watcher stops.
func (bw *BlocklistWatcher) Changes() <-chan struct{} {
	return bw.changes
}

// Start begins watching. It is non-blocking.
func (bw *BlocklistWatcher) Start(ctx context.Context) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.running {
		return nil
	}

	if err := os.MkdirAll(bw.dir, 0700); err != nil {
		return fmt.Errorf("failed to create blocklist directory: %w", err)
	}
	if err := bw.watcher.Add(bw.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", bw.dir, err)
	}
	bw.running = true

	bw.logger.Info("watching blocklist file", zap.String("path", bw.path))
	go bw.run(ctx)
	return nil
}

// Stop stops the watcher and waits for its goroutine to exit.
func (bw *BlocklistWatcher) Stop() {
	bw.mu.Lock()
	if !bw.running {
		bw.mu.Unlock()
		_ = bw.watcher.Close()
		return
	}
	bw.running = false
	bw.mu.Unlock()

	close(bw.stopCh)
	<-bw.doneCh

	if err := bw.watcher.Close(); err != nil {
		bw.logger.Warn("error closing blocklist watcher", zap.Error(err))
	}
}

// Run starts the watcher and blocks until ctx is done, then stops it.
// Suitable for an errgroup.
func (bw *BlocklistWatcher) Run(ctx context.Context) error {
	if err := bw.Start(ctx); err != nil {
		if closeErr := bw.watcher.Close(); closeErr != nil {
			bw.logger.Warn("error closing blocklist watcher", zap.Error(closeErr))
		}
		return err
	}
	<-ctx.Done()
	bw.Stop()
	return nil
}

func (bw *BlocklistWatcher) run(ctx context.Context) {
	defer close(bw.doneCh)
	defer close(bw.changes)

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-bw.stopCh:
			return

		case event, ok := <-bw.watcher.Events:
			if !ok {
				return
			}
			if !bw.relevant(event) {
				continue
			}
			bw.logger.Debug("blocklist event", zap.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(bw.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(bw.debounce)
			}
			pending = timer.C

		case err, ok := <-bw.watcher.Errors:
			if !ok {
				return
			}
			bw.logger.Warn("blocklist watcher error", zap.Error(err))

		case <-pending:
			pending = nil
			select {
			case bw.changes <- struct{}{}:
			default: // a signal is already queued
			}
		}
	}
}

func (bw *BlocklistWatcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != bw.path {
		return false
	}
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0
}
