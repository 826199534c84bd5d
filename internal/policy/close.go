package policy

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// ClosePolicy closes the most recently focused panel on a match.
//
// The closed panel is whichever one the host reports as most recent, which
// is not necessarily the panel whose address matched.
type ClosePolicy struct {
	panels   domain.PanelManager
	viewType string
	logger   *zap.Logger
}

// NewClosePolicy creates a close policy. viewType is used as a fallback when
// the host reports no recent panel: every panel of that type is closed.
func NewClosePolicy(panels domain.PanelManager, viewType string, logger *zap.Logger) *ClosePolicy {
	if viewType == "" {
		viewType = DefaultViewType
	}
	return &ClosePolicy{panels: panels, viewType: viewType, logger: logger}
}

func (p *ClosePolicy) ID() domain.ActionMode {
	return domain.ActionClose
}

func (p *ClosePolicy) Name() string {
	return "Close tab"
}

func (p *ClosePolicy) ReportAll() bool {
	return false
}

// Apply closes the most recent panel, or every Web Viewer panel when the host
// has no recent one.
func (p *ClosePolicy) Apply(ctx context.Context, result *domain.EnforcementResult) error {
	panel, err := p.panels.MostRecentPanel(ctx)
	if err != nil {
		return fmt.Errorf("failed to resolve most recent panel: %w", err)
	}

	if panel == nil {
		if err := p.panels.ClosePanelsOfType(ctx, p.viewType); err != nil {
			return fmt.Errorf("failed to close %s panels: %w", p.viewType, err)
		}
		p.logger.Info("closed all panels of type",
			zap.String("view_type", p.viewType),
			zap.String("field", result.FieldID))
		result.ClosedPanels = append(result.ClosedPanels, "type:"+p.viewType)
		return nil
	}

	if err := p.panels.ClosePanel(ctx, *panel); err != nil {
		return fmt.Errorf("failed to close panel %s: %w", panel.ID, err)
	}
	p.logger.Info("closed panel",
		zap.String("panel", panel.ID),
		zap.String("title", panel.Title),
		zap.String("field", result.FieldID))
	result.ClosedPanels = append(result.ClosedPanels, panel.ID)
	return nil
}

// Ensure ClosePolicy implements ActionPolicy.
var _ ActionPolicy = (*ClosePolicy)(nil)
