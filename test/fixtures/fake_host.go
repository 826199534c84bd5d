// Package fixtures provides test helpers for integration tests.
package fixtures

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
)

// FakeHost simulates a host application with Web Viewer panels.
// It implements domain.ObservableSource, domain.PanelManager and domain.Notifier.
type FakeHost struct {
	mu           sync.Mutex
	fields       map[string]*fakeField
	readErrs     map[string]error
	enumerateErr error
	recent       *domain.Panel
	closeErr     error
	closed       []string
	notices      []domain.Notice
}

var (
	_ domain.ObservableSource = (*FakeHost)(nil)
	_ domain.PanelManager     = (*FakeHost)(nil)
	_ domain.Notifier         = (*FakeHost)(nil)
)

// NewFakeHost creates an empty fake host.
func NewFakeHost() *FakeHost {
	return &FakeHost{
		fields:   make(map[string]*fakeField),
		readErrs: make(map[string]error),
	}
}

// AddField adds an address field at path, written as "div[0]/input[1]".
func (h *FakeHost) AddField(path, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fields[path] = &fakeField{host: h, key: path, path: ParsePath(path), text: text}
}

// SetText changes the value of an existing field.
func (h *FakeHost) SetText(path, text string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if f, ok := h.fields[path]; ok {
		f.text = text
	}
}

// RemoveField removes a field, as if its panel was closed.
func (h *FakeHost) RemoveField(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.fields, path)
}

// FailRead makes reads of one field return err. nil clears it.
func (h *FakeHost) FailRead(path string, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err == nil {
		delete(h.readErrs, path)
		return
	}
	h.readErrs[path] = err
}

// FailEnumerate makes FindAllObservedFields return err. nil clears it.
func (h *FakeHost) FailEnumerate(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.enumerateErr = err
}

// FailClose makes every close operation return err. nil clears it.
func (h *FakeHost) FailClose(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closeErr = err
}

// SetRecentPanel sets the panel returned by MostRecentPanel.
func (h *FakeHost) SetRecentPanel(p *domain.Panel) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recent = p
}

// Closed returns the IDs of closed panels in order. Bulk closes are
// recorded as "type:<viewType>".
func (h *FakeHost) Closed() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.closed...)
}

// Notices returns every notice shown so far.
func (h *FakeHost) Notices() []domain.Notice {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Notice(nil), h.notices...)
}

// FindAllObservedFields returns the fields sorted by path.
func (h *FakeHost) FindAllObservedFields(ctx context.Context) ([]domain.FieldHandle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.enumerateErr != nil {
		return nil, h.enumerateErr
	}
	keys := make([]string, 0, len(h.fields))
	for k := range h.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]domain.FieldHandle, 0, len(keys))
	for _, k := range keys {
		out = append(out, h.fields[k])
	}
	return out, nil
}

// MostRecentPanel returns the configured recent panel, which may be nil.
func (h *FakeHost) MostRecentPanel(ctx context.Context) (*domain.Panel, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.recent == nil {
		return nil, nil
	}
	p := *h.recent
	return &p, nil
}

// ClosePanel records the close.
func (h *FakeHost) ClosePanel(ctx context.Context, panel domain.Panel) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closeErr != nil {
		return h.closeErr
	}
	h.closed = append(h.closed, panel.ID)
	if h.recent != nil && h.recent.ID == panel.ID {
		h.recent = nil
	}
	return nil
}

// ClosePanelsOfType records a bulk close.
func (h *FakeHost) ClosePanelsOfType(ctx context.Context, viewType string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closeErr != nil {
		return h.closeErr
	}
	h.closed = append(h.closed, "type:"+viewType)
	return nil
}

// Notify records the notice.
func (h *FakeHost) Notify(ctx context.Context, n domain.Notice) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notices = append(h.notices, n)
	return nil
}

type fakeField struct {
	host *FakeHost
	key  string
	path []domain.PathSegment
	text string
}

func (f *fakeField) Path() []domain.PathSegment {
	return f.path
}

func (f *fakeField) ReadCurrentText(ctx context.Context) (string, error) {
	f.host.mu.Lock()
	defer f.host.mu.Unlock()
	if err := f.host.readErrs[f.key]; err != nil {
		return "", err
	}
	return f.text, nil
}

// ParsePath converts "div[0]/input[1]" into path segments.
// It panics on malformed input; fixtures are static.
func ParsePath(s string) []domain.PathSegment {
	var out []domain.PathSegment
	for _, part := range strings.Split(s, "/") {
		open := strings.IndexByte(part, '[')
		if open <= 0 || !strings.HasSuffix(part, "]") {
			panic(fmt.Sprintf("fixtures: malformed path segment %q", part))
		}
		idx, err := strconv.Atoi(part[open+1 : len(part)-1])
		if err != nil {
			panic(fmt.Sprintf("fixtures: malformed index in %q", part))
		}
		out = append(out, domain.PathSegment{Tag: part[:open], Index: idx})
	}
	return out
}
