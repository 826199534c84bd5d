// Package usecase contains application business logic.
package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
	"github.com/eliteGoblin/focusd/web_mon/internal/keyword"
	"github.com/eliteGoblin/focusd/web_mon/internal/match"
	"github.com/eliteGoblin/focusd/web_mon/internal/policy"
)

// KeywordSource supplies the keyword set and action mode in effect.
// Implemented by State.
type KeywordSource interface {
	Keywords() keyword.Set
	Action() domain.ActionMode
}

// EnforcerImpl implements domain.Enforcer.
type EnforcerImpl struct {
	source   KeywordSource
	policies *policy.Registry
	clock    domain.Clock
	logger   *zap.Logger
}

// NewEnforcer creates a new match enforcer. A nil clock means the system clock.
func NewEnforcer(source KeywordSource, policies *policy.Registry, clock domain.Clock, logger *zap.Logger) domain.Enforcer {
	if clock == nil {
		clock = domain.SystemClock{}
	}
	return &EnforcerImpl{
		source:   source,
		policies: policies,
		clock:    clock,
		logger:   logger,
	}
}

// HandleAddress matches a changed address and applies the action policy.
// Policy failures are recorded on the result and logged, not returned.
func (e *EnforcerImpl) HandleAddress(ctx context.Context, fieldID, address string) (*domain.EnforcementResult, error) {
	mode := e.source.Action()
	pol, err := e.policies.Get(mode)
	if err != nil {
		return nil, err
	}

	result := &domain.EnforcementResult{
		FieldID:      fieldID,
		Address:      address,
		Action:       mode,
		Matches:      make([]domain.MatchEvent, 0),
		ClosedPanels: make([]string, 0),
		Errors:       make([]error, 0),
		ExecutedAt:   e.clock.Now(),
	}

	keywords := e.source.Keywords()
	if pol.ReportAll() {
		result.Matches = append(result.Matches, match.FindMatches(address, keywords)...)
	} else if ev, ok := match.FirstMatch(address, keywords); ok {
		result.Matches = append(result.Matches, ev)
	}

	if len(result.Matches) == 0 {
		return result, nil
	}

	e.logger.Info("blocked address detected",
		zap.String("field", fieldID),
		zap.String("keyword", result.Matches[0].Keyword),
		zap.String("location", string(result.Matches[0].Location.Kind)),
		zap.Int("matches", len(result.Matches)),
		zap.String("action", string(mode)))

	if err := pol.Apply(ctx, result); err != nil {
		e.logger.Warn("action failed",
			zap.String("action", string(mode)),
			zap.String("field", fieldID),
			zap.Error(err))
		result.Errors = append(result.Errors, err)
	}

	return result, nil
}

// Ensure EnforcerImpl implements domain.Enforcer.
var _ domain.Enforcer = (*EnforcerImpl)(nil)
