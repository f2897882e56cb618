package scan

import (
	"regexp"
	"strings"
)

// Pattern is a compiled injection detector. Literal is what gets reported.
type Pattern struct {
	Literal string
	re      *regexp.Regexp
}

// Match reports whether text contains the pattern (case-insensitive).
func (p Pattern) Match(text string) bool {
	return p.re.MatchString(text)
}

// InjectionPatterns returns the built-in prompt-injection detectors in
// detection order.
func InjectionPatterns() []Pattern {
	return injectionPatterns
}

var injectionPatterns = compilePatterns([]string{
	`ignore (all )?previous instructions`,
	`system override`,
	`new mandate:`,
	`instead of .*, do .*`,
	`disregard.*safety`,
})

func compilePatterns(literals []string) []Pattern {
	out := make([]Pattern, len(literals))
	for i, lit := range literals {
		out[i] = Pattern{Literal: lit, re: regexp.MustCompile(`(?i)` + lit)}
	}
	return out
}

// scriptMarkers flag inline scripts commonly used to obfuscate or exfiltrate.
var scriptMarkers = []string{"eval(", "atob(", "document.cookie", "fromcharcode", "new function("}

func suspiciousScript(src string) bool {
	lower := strings.ToLower(src)
	for _, m := range scriptMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	for _, p := range injectionPatterns {
		if p.Match(src) {
			return true
		}
	}
	return false
}
