package daemon

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// Identity derives a stable key for a field from its structural position:
// tag name and sibling index for each node, root to field.
// Re-ordering host panels changes the key, which resets tracking for the
// affected fields.
func Identity(h domain.FieldHandle) string {
	path := h.Path()
	parts := make([]string, len(path))
	for i, seg := range path {
		parts[i] = strings.ToLower(seg.Tag) + "[" + strconv.Itoa(seg.Index) + "]"
	}
	return strings.Join(parts, "/")
}

// TickStats summarizes one observation tick.
type TickStats struct {
	Fields  int
	Changed int
	Matched int
	Errors  int
}

// Observer polls the address fields of every Web Viewer and forwards changed
// values to the enforcer. It remembers the last value per field identity.
type Observer struct {
	source   domain.ObservableSource
	enforcer domain.Enforcer
	logger   *zap.Logger
	lastSeen map[string]string
}

// NewObserver creates an observer with an empty registry.
func NewObserver(source domain.ObservableSource, enforcer domain.Enforcer, logger *zap.Logger) *Observer {
	return &Observer{
		source:   source,
		enforcer: enforcer,
		logger:   logger,
		lastSeen: make(map[string]string),
	}
}

// Tick scans all present fields once. Identities not seen in this tick are
// purged after the full scan. A failure on one field does not stop the rest.
func (o *Observer) Tick(ctx context.Context) TickStats {
	var stats TickStats

	fields, err := o.source.FindAllObservedFields(ctx)
	if err != nil {
		o.logger.Warn("failed to enumerate address fields", zap.Error(err))
		stats.Errors++
		return stats
	}
	stats.Fields = len(fields)

	present := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		id := Identity(field)
		present[id] = struct{}{}

		text, err := field.ReadCurrentText(ctx)
		if err != nil {
			o.logger.Warn("failed to read address field",
				zap.String("field", id),
				zap.Error(err))
			stats.Errors++
			continue
		}

		if text == "" || text == o.lastSeen[id] {
			continue
		}
		o.lastSeen[id] = text
		stats.Changed++

		o.logger.Debug("address changed",
			zap.String("field", id),
			zap.String("address", text))

		result, err := o.enforcer.HandleAddress(ctx, id, text)
		if err != nil {
			o.logger.Warn("enforcement failed",
				zap.String("field", id),
				zap.Error(err))
			stats.Errors++
			continue
		}
		if len(result.Matches) > 0 {
			stats.Matched++
		}
	}

	for id := range o.lastSeen {
		if _, ok := present[id]; !ok {
			delete(o.lastSeen, id)
		}
	}

	return stats
}

// LastSeen returns the last recorded address for a field identity.
func (o *Observer) LastSeen(id string) (string, bool) {
	v, ok := o.lastSeen[id]
	return v, ok
}

// Tracked returns the identities currently in the registry, sorted.
func (o *Observer) Tracked() []string {
	ids := make([]string, 0, len(o.lastSeen))
	for id := range o.lastSeen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Reset forgets every recorded value so the next tick re-checks all fields.
func (o *Observer) Reset() {
	o.lastSeen = make(map[string]string)
}
