package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eliteGoblin/focusd/web_mon/internal/domain"
	"github.com/eliteGoblin/focusd/web_mon/internal/keyword"
)

func TestFindMatches_QueryParamDecoding(t *testing.T) {
	set := keyword.FromSlice([]string{"videos"})

	events := FindMatches("https://example.com/search?q=cat+videos", set)

	var paramHit *domain.MatchEvent
	for i := range events {
		if events[i].Location.Kind == domain.LocationQueryParam {
			paramHit = &events[i]
		}
	}
	require.NotNil(t, paramHit, "expected a query parameter match")
	assert.Equal(t, "q", paramHit.Location.Param)
	assert.Equal(t, "cat videos", paramHit.Snippet)
	assert.Equal(t, "videos", paramHit.Keyword)
}

func TestFindMatches(t *testing.T) {
	tests := []struct {
		name     string
		address  string
		keywords []string
		want     []domain.MatchEvent
	}{
		{
			name:     "raw url match",
			address:  "https://www.YouTube.com/watch?v=abc",
			keywords: []string{"youtube"},
			want: []domain.MatchEvent{
				{Keyword: "youtube", Location: domain.Location{Kind: domain.LocationRawURL}},
			},
		},
		{
			name:     "percent encoded query only matches after decoding",
			address:  "https://duckduckgo.com/?q=funny%20cats",
			keywords: []string{"funny cats"},
			want: []domain.MatchEvent{
				{Keyword: "funny cats", Location: domain.Location{Kind: domain.LocationQueryParam, Param: "q"}, Snippet: "funny cats"},
			},
		},
		{
			name:     "non search parameter is scanned too",
			address:  "https://example.com/page?ref=Reddit%2Ecom",
			keywords: []string{"reddit.com"},
			want: []domain.MatchEvent{
				{Keyword: "reddit.com", Location: domain.Location{Kind: domain.LocationQueryParam, Param: "ref"}, Snippet: "Reddit.com"},
			},
		},
		{
			name:     "substring not whole word",
			address:  "concatenate",
			keywords: []string{"cat"},
			want: []domain.MatchEvent{
				{Keyword: "cat", Location: domain.Location{Kind: domain.LocationRawURL}},
			},
		},
		{
			name:     "plain search text skips structured matching",
			address:  "cat videos",
			keywords: []string{"videos"},
			want: []domain.MatchEvent{
				{Keyword: "videos", Location: domain.Location{Kind: domain.LocationRawURL}},
			},
		},
		{
			name:     "malformed escape falls back to raw value",
			address:  "https://example.com/?q=100%+games",
			keywords: []string{"100% games"},
			want: []domain.MatchEvent{
				{Keyword: "100% games", Location: domain.Location{Kind: domain.LocationQueryParam, Param: "q"}, Snippet: "100% games"},
			},
		},
		{
			name:     "no match",
			address:  "https://golang.org/doc",
			keywords: []string{"youtube", "reddit"},
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindMatches(tt.address, keyword.FromSlice(tt.keywords))

			// Raw snippets are context windows; compare them separately.
			for i := range got {
				if got[i].Location.Kind == domain.LocationRawURL {
					assert.Contains(t, got[i].Snippet, got[i].Keyword)
					got[i].Snippet = ""
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFindMatches_ReportsAllKeywords(t *testing.T) {
	set := keyword.FromSlice([]string{"reddit", "cats", "golang"})

	events := FindMatches("https://www.reddit.com/search?q=cats", set)

	var raw, params []string
	for _, ev := range events {
		switch ev.Location.Kind {
		case domain.LocationRawURL:
			raw = append(raw, ev.Keyword)
		case domain.LocationQueryParam:
			params = append(params, ev.Keyword)
		}
	}
	assert.ElementsMatch(t, []string{"reddit", "cats"}, raw)
	assert.ElementsMatch(t, []string{"cats"}, params)
}

func TestFindMatches_SearchParamsComeFirst(t *testing.T) {
	set := keyword.FromSlice([]string{"zzz"})

	events := FindMatches("https://example.com/?a=zzz&query=zzz&q=zzz", set)

	var names []string
	for _, ev := range events {
		if ev.Location.Kind == domain.LocationQueryParam {
			names = append(names, ev.Location.Param)
		}
	}
	assert.Equal(t, []string{"q", "query", "a"}, names)
}

func TestFindMatches_NoKeywordNoMatch(t *testing.T) {
	addresses := []string{
		"",
		"   ",
		"https://example.com/search?q=hello+world&lang=en",
		"not a url at all",
		"https://example.com/%zz?bad=%zz",
		"mailto:someone@example.com",
	}
	set := keyword.FromSlice([]string{"youtube", "instagram"})

	for _, addr := range addresses {
		assert.Empty(t, FindMatches(addr, set), "address %q", addr)
	}
	assert.Empty(t, FindMatches("https://youtube.com", keyword.Set{}))
}

func TestFirstMatch(t *testing.T) {
	set := keyword.FromSlice([]string{"cats", "dogs"})

	ev, ok := FirstMatch("https://example.com/?q=dogs+and+cats", set)
	require.True(t, ok)
	assert.Equal(t, domain.LocationRawURL, ev.Location.Kind)
	assert.Equal(t, "cats", ev.Keyword) // keywords are checked in sorted order

	_, ok = FirstMatch("https://example.com/", set)
	assert.False(t, ok)
}

func TestFindMatches_EscapedPlusIsDecodedToSpace(t *testing.T) {
	events := FindMatches("https://example.com/search?q=c%2B%2B", keyword.Parse("c++"))
	assert.Empty(t, events)

	events = FindMatches("https://example.com/search?q=cat%2Bvideos", keyword.Parse("cat videos"))
	require.Len(t, events, 1)
	assert.Equal(t, domain.Location{Kind: domain.LocationQueryParam, Param: "q"}, events[0].Location)
	assert.Equal(t, "cat videos", events[0].Snippet)
}

func TestDecode(t *testing.T) {
	tests := map[string]string{
		"cat+videos":      "cat videos",
		"caf%C3%A9":       "café",
		"a%2Bb":           "a b",
		"c%2B%2B":         "c  ",
		"1+1%zz":          "1 1%zz",
		"100%":            "100%",
		"plain":           "plain",
		"mixed+%20spaces": "mixed  spaces",
	}
	for in, want := range tests {
		assert.Equal(t, want, Decode(in), "Decode(%q)", in)
	}
}
