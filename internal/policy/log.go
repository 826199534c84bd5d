package policy

import (
	"context"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// LogPolicy only records matches. Nothing is closed.
type LogPolicy struct {
	logger *zap.Logger
}

// NewLogPolicy creates a log-only policy.
func NewLogPolicy(logger *zap.Logger) *LogPolicy {
	return &LogPolicy{logger: logger}
}

func (p *LogPolicy) ID() domain.ActionMode {
	return domain.ActionLog
}

func (p *LogPolicy) Name() string {
	return "Log only"
}

func (p *LogPolicy) ReportAll() bool {
	return true
}

func (p *LogPolicy) Apply(ctx context.Context, result *domain.EnforcementResult) error {
	for _, m := range result.Matches {
		p.logger.Info("blocked keyword seen",
			zap.String("keyword", m.Keyword),
			zap.String("location", string(m.Location.Kind)),
			zap.String("param", m.Location.Param),
			zap.String("snippet", m.Snippet),
			zap.String("field", result.FieldID))
	}
	return nil
}

// Ensure LogPolicy implements ActionPolicy.
var _ ActionPolicy = (*LogPolicy)(nil)
