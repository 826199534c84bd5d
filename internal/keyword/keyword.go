// Package keyword parses the raw blocklist text into a keyword set.
package keyword

import (
	"regexp"
	"sort"
	"strings"
)

// separators splits a single line holding several keywords.
var separators = regexp.MustCompile(`[,\t;]+`)

const defaultText = `youtube
twitter
instagram
facebook
reddit
tiktok
netflix
twitch`

// DefaultText returns the seed blocklist used when nothing has been persisted.
func DefaultText() string {
	return defaultText
}

// Set is a deduplicated set of lowercase keywords.
type Set map[string]struct{}

// Parse builds a keyword set from raw blocklist text.
// Lines are split on newlines; a line containing a comma, tab or semicolon is
// split further on runs of those characters. Never fails.
func Parse(raw string) Set {
	set := make(Set)
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !strings.ContainsAny(line, ",\t;") {
			set.add(line)
			continue
		}
		for _, part := range separators.Split(line, -1) {
			set.add(part)
		}
	}
	return set
}

// FromSlice builds a set from individual keywords, normalizing each one.
func FromSlice(words []string) Set {
	set := make(Set, len(words))
	for _, w := range words {
		set.add(w)
	}
	return set
}

func (s Set) add(word string) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word != "" {
		s[word] = struct{}{}
	}
}

// Contains reports whether the keyword is in the set (case-insensitive).
func (s Set) Contains(word string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(word))]
	return ok
}

// Len returns the number of keywords.
func (s Set) Len() int {
	return len(s)
}

// Sorted returns the keywords in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Serialize renders the set as blocklist text, one keyword per line.
func (s Set) Serialize() string {
	return strings.Join(s.Sorted(), "\n")
}

// Equal reports whether both sets hold the same keywords.
func (s Set) Equal(other Set) bool {
	if len(s) != len(other) {
		return false
	}
	for k := range s {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}

// Missing returns the keywords of s absent from proposed, sorted.
func (s Set) Missing(proposed Set) []string {
	var missing []string
	for k := range s {
		if _, ok := proposed[k]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Strings(missing)
	return missing
}

// Union returns a new set holding every keyword of a and b.
func Union(a, b Set) Set {
	out := make(Set, len(a)+len(b))
	for k := range a {
		out[k] = struct{}{}
	}
	for k := range b {
		out[k] = struct{}{}
	}
	return out
}
