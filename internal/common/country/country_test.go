package country

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcher_Match(t *testing.T) {
	m := Default()

	tests := []struct {
		name     string
		pref     string
		country  string
		expected bool
	}{
		{"exact", "Canada", "Canada", true},
		{"case insensitive", "canada", "CANADA", true},
		{"code to name", "US", "United States", true},
		{"code to code", "us", "USA", true},
		{"name to code", "United Kingdom", "UK", true},
		{"alternative name", "Britain", "United Kingdom", true},
		{"substring", "Korea", "Republic of Korea", true},
		{"known group substring", "US", "United States of America", true},
		{"different countries", "Canada", "USA", false},
		{"short code does not leak", "US", "Australia", false},
		{"india code does not match kingdom", "IN", "United Kingdom", false},
		{"empty preference", "", "USA", false},
		{"unknown short names", "xy", "xyz", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, m.Match(tt.pref, tt.country))
			assert.Equal(t, tt.expected, m.Match(tt.country, tt.pref), "match must be symmetric")
		})
	}
}

func TestMatcher_CodeAndNameSelectSameCountries(t *testing.T) {
	m := Default()
	countries := []string{"USA", "United States", "Australia", "Canada", "United Kingdom", "Germany"}

	var byCode, byName []string
	for _, c := range countries {
		if m.Match("US", c) {
			byCode = append(byCode, c)
		}
		if m.Match("United States", c) {
			byName = append(byName, c)
		}
	}

	assert.Equal(t, []string{"USA", "United States"}, byCode)
	assert.Equal(t, byCode, byName)
}

func TestMatcher_Same(t *testing.T) {
	m := Default()

	assert.True(t, m.Same("USA", "united states"))
	assert.True(t, m.Same("India", "india"))
	assert.False(t, m.Same("India", "Indiana"))
	assert.False(t, m.Same("", ""))
}

func TestMatcher_MatchAny(t *testing.T) {
	m := NewMatcher(map[string][]string{"nl": {"netherlands", "holland"}})

	assert.True(t, m.MatchAny([]string{"France", "Holland"}, "Netherlands"))
	assert.False(t, m.MatchAny(nil, "Netherlands"))
	assert.Equal(t, "nl", m.Canonical(" NL "))
	assert.Empty(t, m.Canonical("atlantis"))
}
