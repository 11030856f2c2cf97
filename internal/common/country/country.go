// Package country matches country preferences against catalog country names.
//
// Matching is case-insensitive and understands a fixed table of codes and alternative
// names, so "US", "usa" and "United States" are interchangeable. Names of four or more
// characters also match by substring ("Korea" matches "Republic of Korea").
package country

import "strings"

// minSubstringLen keeps short codes like "us" or "in" from matching inside unrelated names.
const minSubstringLen = 4

// DefaultAliases maps a canonical code to every name it is known by.
func DefaultAliases() map[string][]string {
	return map[string][]string{
		"us": {"usa", "united states", "united states of america", "america"},
		"uk": {"united kingdom", "britain", "great britain", "england"},
		"ca": {"canada"},
		"au": {"australia"},
		"de": {"germany", "deutschland"},
		"fr": {"france"},
		"in": {"india"},
		"cn": {"china"},
		"jp": {"japan"},
		"sg": {"singapore"},
		"nz": {"new zealand"},
		"nl": {"netherlands", "holland"},
		"se": {"sweden"},
		"ch": {"switzerland"},
		"it": {"italy"},
		"es": {"spain"},
		"kr": {"south korea", "korea"},
	}
}

// Matcher is immutable once built and safe for concurrent use.
type Matcher struct {
	group map[string]string   // any known name -> canonical code
	names map[string][]string // canonical code -> names usable for substring matching
}

func NewMatcher(aliases map[string][]string) *Matcher {
	m := &Matcher{
		group: make(map[string]string),
		names: make(map[string][]string),
	}
	for code, list := range aliases {
		code = normalize(code)
		m.group[code] = code
		for _, name := range list {
			name = normalize(name)
			m.group[name] = code
			if len(name) >= minSubstringLen {
				m.names[code] = append(m.names[code], name)
			}
		}
	}
	return m
}

var defaultMatcher = NewMatcher(DefaultAliases())

// Default returns the matcher built from DefaultAliases.
func Default() *Matcher {
	return defaultMatcher
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Canonical returns the canonical code for a known name, or "" when the name is not in the table.
func (m *Matcher) Canonical(name string) string {
	return m.group[normalize(name)]
}

// Same reports whether two names denote the same country without substring tolerance.
func (m *Matcher) Same(a, b string) bool {
	a, b = normalize(a), normalize(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	ga, gb := m.group[a], m.group[b]
	return ga != "" && ga == gb
}

// Match reports whether a preference and a country name refer to the same country.
// The relation is symmetric.
func (m *Matcher) Match(a, b string) bool {
	a, b = normalize(a), normalize(b)
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}

	ga, gb := m.group[a], m.group[b]
	if ga != "" && gb != "" {
		return ga == gb
	}

	for _, x := range m.substringForms(a, ga) {
		for _, y := range m.substringForms(b, gb) {
			if strings.Contains(x, y) || strings.Contains(y, x) {
				return true
			}
		}
	}
	return false
}

// MatchAny reports whether country matches at least one of prefs.
func (m *Matcher) MatchAny(prefs []string, country string) bool {
	for _, p := range prefs {
		if m.Match(p, country) {
			return true
		}
	}
	return false
}

func (m *Matcher) substringForms(name, group string) []string {
	if group != "" {
		return m.names[group]
	}
	if len(name) >= minSubstringLen {
		return []string{name}
	}
	return nil
}
