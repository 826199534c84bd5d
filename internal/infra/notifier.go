package infra

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// LogNotifier writes notices to the log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a notifier that logs every notice at info level.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the notice.
func (n *LogNotifier) Notify(ctx context.Context, notice domain.Notice) error {
	n.logger.Info("notice",
		zap.String("message", notice.Message),
		zap.Duration("timeout", notice.Timeout))
	return nil
}

// MultiNotifier fans a notice out to several notifiers. Every notifier is
// tried; failures are joined.
type MultiNotifier []domain.Notifier

// Notify delivers the notice to all notifiers.
func (m MultiNotifier) Notify(ctx context.Context, notice domain.Notice) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, notice); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var (
	_ domain.Notifier = (*LogNotifier)(nil)
	_ domain.Notifier = MultiNotifier(nil)
)
