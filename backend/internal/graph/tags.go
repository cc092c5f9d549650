package graph

import (
	"sort"
	"strings"
)

// TagSet is a set of normalized (lower-cased) tag names
type TagSet map[string]struct{}

// ParseTags turns the external whitespace-separated tag format into a TagSet.
// "Art Music art" yields {art, music}.
func ParseTags(text string) TagSet {
	set := TagSet{}
	for _, tok := range strings.Fields(text) {
		set.Add(tok)
	}
	return set
}

// NewTagSet builds a TagSet from already split names
func NewTagSet(names ...string) TagSet {
	set := TagSet{}
	for _, n := range names {
		set.Add(n)
	}
	return set
}

// Add normalizes and inserts name; blank names are ignored
func (s TagSet) Add(name string) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return
	}
	s[name] = struct{}{}
}

// Has reports whether name, normalized like Add, is in the set
func (s TagSet) Has(name string) bool {
	_, ok := s[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// Len returns the number of distinct names
func (s TagSet) Len() int { return len(s) }

// Sorted returns the names in ascending order
func (s TagSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for name := range s {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Intersect returns the names present in both sets
func (s TagSet) Intersect(other TagSet) TagSet {
	out := TagSet{}
	for name := range s {
		if other.Has(name) {
			out[name] = struct{}{}
		}
	}
	return out
}

// String renders the external format: sorted names joined by spaces
func (s TagSet) String() string {
	return strings.Join(s.Sorted(), " ")
}
