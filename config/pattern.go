package config

import (
	"strings"
)

// PatternSet matches file paths against a set of case-insensitive filename
// suffixes, parsed from semicolon-separated glob fragments ("*.xls;*.xlsx").
type PatternSet struct {
	suffixes []string
}

// ParsePatterns builds a PatternSet from one or more semicolon-separated
// pattern strings. Fragments are trimmed of surrounding whitespace and the
// leading "*"; empty fragments are dropped.
func ParsePatterns(patterns ...string) PatternSet {
	var suffixes []string
	for _, pattern := range patterns {
		for _, fragment := range strings.Split(pattern, ";") {
			fragment = strings.TrimSpace(fragment)
			fragment = strings.TrimPrefix(fragment, "*")
			if fragment == "" {
				continue
			}
			suffixes = append(suffixes, strings.ToLower(fragment))
		}
	}
	return PatternSet{suffixes: suffixes}
}

// Matches reports whether the path ends with any configured suffix,
// compared case-insensitively against the full path.
func (p PatternSet) Matches(path string) bool {
	lower := strings.ToLower(path)
	for _, suffix := range p.suffixes {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// Suffixes returns the parsed suffix set, lowercased
func (p PatternSet) Suffixes() []string {
	return p.suffixes
}

// Empty reports whether no suffixes were parsed
func (p PatternSet) Empty() bool {
	return len(p.suffixes) == 0
}

// TrackedPatterns returns the pattern set covering every file kind the
// scheduler cares about: spreadsheets and marking artifacts.
func (c *Config) TrackedPatterns() PatternSet {
	return ParsePatterns(c.Settings.SpreadsheetPattern, c.Settings.ArtifactPattern)
}
