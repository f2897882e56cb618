package policy

import "strings"

// RejectionExplanation is attached to every record blocked by the allowlist.
const RejectionExplanation = "action kind not permitted by allowlist policy"

// RejectionRuleID identifies allowlist rejections in records and logs.
const RejectionRuleID = "policy.allowlist"

// Gatekeeper validates action kinds against a fixed allowlist.
// A rejected kind is permanent; callers never resubmit it.
type Gatekeeper struct {
	allowed map[string]struct{}
}

// NewGatekeeper builds a gatekeeper from the configured kinds.
func NewGatekeeper(kinds []string) *Gatekeeper {
	g := &Gatekeeper{allowed: make(map[string]struct{}, len(kinds))}
	for _, k := range kinds {
		g.allowed[k] = struct{}{}
	}
	return g
}

// Check reports whether kind is allowlisted. Comparison is case-sensitive.
func (g *Gatekeeper) Check(kind string) bool {
	_, ok := g.allowed[kind]
	return ok
}

// Keywords matches sensitive keywords as case-insensitive substrings.
type Keywords []string

// NewKeywords lowercases the configured keywords once.
func NewKeywords(words []string) Keywords {
	out := make(Keywords, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Matches returns the keywords found in target, in configuration order.
func (k Keywords) Matches(target string) []string {
	lower := strings.ToLower(target)
	var found []string
	for _, w := range k {
		if strings.Contains(lower, w) {
			found = append(found, w)
		}
	}
	return found
}

// Sensitive reports whether target contains any keyword.
func (k Keywords) Sensitive(target string) bool {
	lower := strings.ToLower(target)
	for _, w := range k {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}
