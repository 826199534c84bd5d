package infra

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/ysmood/gson"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// DefaultFieldSelector matches the address input of the host's Web Viewer header.
const DefaultFieldSelector = ".webviewer-address input"

// pathScript returns the element's position as [{tag, index}] from the
// document root down. index counts element siblings before the node.
const pathScript = `() => {
	const parts = [];
	let node = this;
	while (node && node.nodeType === 1) {
		let idx = 0;
		let sib = node.previousElementSibling;
		while (sib) { idx++; sib = sib.previousElementSibling; }
		parts.unshift({tag: node.nodeName.toLowerCase(), index: idx});
		node = node.parentElement;
	}
	return parts;
}`

const recentPanelScript = `() => {
	const ws = window.app && window.app.workspace;
	if (!ws) return null;
	const leaf = ws.getMostRecentLeaf ? ws.getMostRecentLeaf() : ws.activeLeaf;
	if (!leaf) return null;
	return {
		id: String(leaf.id || ""),
		viewType: leaf.view && leaf.view.getViewType ? leaf.view.getViewType() : "",
		title: leaf.getDisplayText ? leaf.getDisplayText() : "",
	};
}`

const closePanelScript = `(id) => {
	const ws = window.app && window.app.workspace;
	if (!ws) return false;
	let found = null;
	ws.iterateAllLeaves((leaf) => { if (String(leaf.id) === id) found = leaf; });
	if (!found) return false;
	found.detach();
	return true;
}`

const closeTypeScript = `(viewType) => {
	const ws = window.app && window.app.workspace;
	if (!ws) return false;
	ws.detachLeavesOfType(viewType);
	return true;
}`

const noticeScript = `(message, timeout) => {
	if (typeof window.Notice !== "function") return false;
	new window.Notice(message, timeout > 0 ? timeout : undefined);
	return true;
}`

// ErrHostUnavailable is returned when no host page exposes the workspace API.
var ErrHostUnavailable = errors.New("host workspace not reachable")

// CDPHostConfig configures the connection to the host application.
type CDPHostConfig struct {
	// Resolve returns the DevTools websocket URL. Called on every (re)connect.
	Resolve       func(ctx context.Context) (string, error)
	FieldSelector string
}

// CDPHost talks to the host application over the Chrome DevTools Protocol.
// It implements domain.ObservableSource, domain.PanelManager and
// domain.Notifier. The connection is opened lazily and dropped on error so
// the next call reconnects.
type CDPHost struct {
	mu      sync.Mutex
	config  CDPHostConfig
	browser *rod.Browser
	logger  *zap.Logger
}

// NewCDPHost creates a host adapter. No connection is made until first use.
func NewCDPHost(config CDPHostConfig, logger *zap.Logger) *CDPHost {
	if config.FieldSelector == "" {
		config.FieldSelector = DefaultFieldSelector
	}
	return &CDPHost{config: config, logger: logger}
}

func (h *CDPHost) connect(ctx context.Context) (*rod.Browser, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.browser != nil {
		return h.browser, nil
	}

	wsURL, err := h.config.Resolve(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve host debug URL: %w", err)
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to host: %w", err)
	}
	// Detach the long-lived browser from the caller's context.
	h.browser = b.Context(context.Background())
	h.logger.Info("connected to host", zap.String("url", wsURL))
	return h.browser, nil
}

// drop closes the connection so the next call reconnects.
func (h *CDPHost) drop(reason error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.browser == nil {
		return
	}
	h.logger.Warn("dropping host connection", zap.Error(reason))
	_ = h.browser.Close()
	h.browser = nil
}

// Close disconnects from the host. The host itself keeps running.
func (h *CDPHost) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.browser == nil {
		return nil
	}
	err := h.browser.Close()
	h.browser = nil
	return err
}

func (h *CDPHost) pages(ctx context.Context) (rod.Pages, error) {
	b, err := h.connect(ctx)
	if err != nil {
		return nil, err
	}
	pages, err := b.Context(ctx).Pages()
	if err != nil {
		h.drop(err)
		return nil, fmt.Errorf("failed to list host pages: %w", err)
	}
	return pages, nil
}

// FindAllObservedFields returns every address field in every host page.
// The page index is the first path segment.
func (h *CDPHost) FindAllObservedFields(ctx context.Context) ([]domain.FieldHandle, error) {
	pages, err := h.pages(ctx)
	if err != nil {
		return nil, err
	}

	var fields []domain.FieldHandle
	for i, page := range pages {
		elements, err := page.Context(ctx).Elements(h.config.FieldSelector)
		if err != nil {
			h.logger.Warn("failed to query host page", zap.Int("page", i), zap.Error(err))
			continue
		}
		for _, el := range elements {
			res, err := el.Context(ctx).Eval(pathScript)
			if err != nil {
				h.logger.Warn("failed to locate address field", zap.Int("page", i), zap.Error(err))
				continue
			}
			path, err := decodePath(res.Value)
			if err != nil {
				h.logger.Warn("unexpected field path", zap.Int("page", i), zap.Error(err))
				continue
			}
			path = append([]domain.PathSegment{{Tag: "page", Index: i}}, path...)
			fields = append(fields, &cdpField{el: el, path: path})
		}
	}
	return fields, nil
}

// MostRecentPanel asks each page for the workspace's most recent leaf.
func (h *CDPHost) MostRecentPanel(ctx context.Context) (*domain.Panel, error) {
	var panel *domain.Panel
	err := h.eachWorkspacePage(ctx, func(page *rod.Page) (bool, error) {
		res, err := page.Context(ctx).Eval(recentPanelScript)
		if err != nil {
			return false, err
		}
		if res.Value.Nil() {
			return false, nil
		}
		m := res.Value.Map()
		panel = &domain.Panel{
			ID:       m["id"].Str(),
			ViewType: m["viewType"].Str(),
			Title:    m["title"].Str(),
		}
		return true, nil
	})
	if errors.Is(err, ErrHostUnavailable) {
		return nil, nil
	}
	return panel, err
}

// ClosePanel detaches the leaf with the panel's ID.
func (h *CDPHost) ClosePanel(ctx context.Context, panel domain.Panel) error {
	err := h.eachWorkspacePage(ctx, func(page *rod.Page) (bool, error) {
		res, err := page.Context(ctx).Eval(closePanelScript, panel.ID)
		if err != nil {
			return false, err
		}
		return res.Value.Bool(), nil
	})
	if err != nil {
		return fmt.Errorf("failed to close panel %s: %w", panel.ID, err)
	}
	return nil
}

// ClosePanelsOfType detaches every leaf showing viewType.
func (h *CDPHost) ClosePanelsOfType(ctx context.Context, viewType string) error {
	err := h.eachWorkspacePage(ctx, func(page *rod.Page) (bool, error) {
		res, err := page.Context(ctx).Eval(closeTypeScript, viewType)
		if err != nil {
			return false, err
		}
		return res.Value.Bool(), nil
	})
	if err != nil {
		return fmt.Errorf("failed to close %s panels: %w", viewType, err)
	}
	return nil
}

// Notify shows a transient notice in the host.
func (h *CDPHost) Notify(ctx context.Context, n domain.Notice) error {
	timeout := int(n.Timeout / time.Millisecond)
	err := h.eachWorkspacePage(ctx, func(page *rod.Page) (bool, error) {
		res, err := page.Context(ctx).Eval(noticeScript, n.Message, timeout)
		if err != nil {
			return false, err
		}
		return res.Value.Bool(), nil
	})
	if err != nil {
		return fmt.Errorf("failed to show notice: %w", err)
	}
	return nil
}

// eachWorkspacePage runs fn on pages until it reports done. Returns
// ErrHostUnavailable if no page handled the call.
func (h *CDPHost) eachWorkspacePage(ctx context.Context, fn func(*rod.Page) (bool, error)) error {
	pages, err := h.pages(ctx)
	if err != nil {
		return err
	}
	var lastErr error
	for _, page := range pages {
		done, err := fn(page)
		if err != nil {
			lastErr = err
			continue
		}
		if done {
			return nil
		}
	}
	if lastErr != nil {
		return lastErr
	}
	return ErrHostUnavailable
}

type cdpField struct {
	el   *rod.Element
	path []domain.PathSegment
}

func (f *cdpField) Path() []domain.PathSegment {
	return f.path
}

func (f *cdpField) ReadCurrentText(ctx context.Context) (string, error) {
	v, err := f.el.Context(ctx).Property("value")
	if err != nil {
		return "", fmt.Errorf("failed to read field value: %w", err)
	}
	if v.Nil() {
		return "", nil
	}
	return v.Str(), nil
}

// decodePath converts the pathScript result into path segments.
func decodePath(v gson.JSON) ([]domain.PathSegment, error) {
	items := v.Arr()
	if len(items) == 0 {
		return nil, errors.New("empty path")
	}
	path := make([]domain.PathSegment, 0, len(items))
	for _, item := range items {
		m := item.Map()
		tag, ok := m["tag"]
		if !ok || tag.Str() == "" {
			return nil, fmt.Errorf("segment without tag: %s", item.JSON("", ""))
		}
		path = append(path, domain.PathSegment{Tag: tag.Str(), Index: m["index"].Int()})
	}
	return path, nil
}

var (
	_ domain.ObservableSource = (*CDPHost)(nil)
	_ domain.PanelManager     = (*CDPHost)(nil)
	_ domain.Notifier         = (*CDPHost)(nil)
)
