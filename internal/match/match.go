// Package match decides whether an address-bar string hits a blocked keyword.
//
// Matching is case-insensitive containment: "cat" matches "concatenate".
// The whole address is checked first, then every query parameter of the
// address when it parses as an absolute URL.
package match

import (
	"net/url"
	"strings"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
	"github.com/eliteGoblin/focusd/web_mon/internal/keyword"
)

// SearchParams are the well-known query parameter names search engines use.
var SearchParams = []string{"q", "query", "search", "text", "term", "p", "keyword"}

// snippetRadius is how much context is kept on each side of a raw match.
const snippetRadius = 24

type param struct {
	name  string
	value string
}

// FindMatches reports every keyword hit in the address.
// A keyword is reported at most once per location.
func FindMatches(address string, set keyword.Set) []domain.MatchEvent {
	var events []domain.MatchEvent
	scan(address, set, func(ev domain.MatchEvent) bool {
		events = append(events, ev)
		return true
	})
	return events
}

// FirstMatch returns the first keyword hit and stops scanning there.
func FirstMatch(address string, set keyword.Set) (domain.MatchEvent, bool) {
	var (
		first domain.MatchEvent
		found bool
	)
	scan(address, set, func(ev domain.MatchEvent) bool {
		first, found = ev, true
		return false
	})
	return first, found
}

// scan walks the match stages in order, handing each hit to emit.
// emit returns false to stop.
func scan(address string, set keyword.Set, emit func(domain.MatchEvent) bool) {
	if set.Len() == 0 || strings.TrimSpace(address) == "" {
		return
	}
	keywords := set.Sorted()

	lowered := strings.ToLower(address)
	for _, kw := range keywords {
		idx := strings.Index(lowered, kw)
		if idx < 0 {
			continue
		}
		ev := domain.MatchEvent{
			Keyword:  kw,
			Location: domain.Location{Kind: domain.LocationRawURL},
			Snippet:  snippet(lowered, idx, len(kw)),
		}
		if !emit(ev) {
			return
		}
	}

	params, ok := queryParams(address)
	if !ok {
		return
	}

	for _, p := range orderParams(params) {
		value := strings.ToLower(p.value)
		for _, kw := range keywords {
			if !strings.Contains(value, kw) {
				continue
			}
			ev := domain.MatchEvent{
				Keyword:  kw,
				Location: domain.Location{Kind: domain.LocationQueryParam, Param: p.name},
				Snippet:  p.value,
			}
			if !emit(ev) {
				return
			}
		}
	}
}

// queryParams parses the address as an absolute URL and returns its decoded
// query parameters in order. ok is false for text that is not a URL.
func queryParams(address string) ([]param, bool) {
	u, err := url.Parse(strings.TrimSpace(address))
	if err != nil || u.Scheme == "" {
		return nil, false
	}
	if u.RawQuery == "" {
		return nil, true
	}

	var params []param
	for _, pair := range strings.Split(u.RawQuery, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		params = append(params, param{name: Decode(name), value: Decode(value)})
	}
	return params, true
}

// orderParams puts well-known search parameters first, in SearchParams order,
// followed by every other parameter in address order.
func orderParams(params []param) []param {
	ordered := make([]param, 0, len(params))
	for _, name := range SearchParams {
		for _, p := range params {
			if p.name == name {
				ordered = append(ordered, p)
			}
		}
	}
	for _, p := range params {
		if !isSearchParam(p.name) {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

func isSearchParam(name string) bool {
	for _, n := range SearchParams {
		if n == name {
			return true
		}
	}
	return false
}

// Decode resolves percent escapes, then turns every '+' into a space,
// including one that was escaped as %2B. Text with a malformed escape keeps
// its escapes and only has '+' replaced.
func Decode(s string) string {
	if decoded, err := url.PathUnescape(s); err == nil {
		s = decoded
	}
	return strings.ReplaceAll(s, "+", " ")
}

func snippet(s string, idx, n int) string {
	start := idx - snippetRadius
	if start < 0 {
		start = 0
	}
	end := idx + n + snippetRadius
	if end > len(s) {
		end = len(s)
	}
	out := s[start:end]
	if !utf8Boundary(s, start) || !utf8Boundary(s, end) {
		out = strings.ToValidUTF8(out, "")
	}
	return out
}

func utf8Boundary(s string, i int) bool {
	if i <= 0 || i >= len(s) {
		return true
	}
	// Continuation bytes are 10xxxxxx.
	return s[i]&0xC0 != 0x80
}
