// Package scorer turns a proposed action and the current page's threat
// signal into an explainable risk score.
package scorer

import (
	"strings"

	"github.com/ppiankov/pagegate/internal/model"
	"github.com/ppiankov/pagegate/internal/policy"
)

// Assessment is a scorer's verdict on one action.
type Assessment struct {
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
	RuleID      string  `json:"rule_id"`
}

// Scorer is the narrow interface the mediator scores through.
// Implementations must be pure: equal inputs give equal assessments.
type Scorer interface {
	Score(action model.ProposedAction, signal model.ThreatSignal) Assessment
}

// Facts are the derived inputs every rule predicate sees.
type Facts struct {
	Action model.ProposedAction
	Signal model.ThreatSignal

	// Keywords holds the sensitive keywords found in the target.
	Keywords []string
	// Threat is the signal's risk flag under the configured script threshold.
	Threat bool
}

// Sensitive reports whether any sensitive keyword matched the target.
func (f Facts) Sensitive() bool { return len(f.Keywords) > 0 }

// TargetContains is a case-insensitive substring test on the target.
func (f Facts) TargetContains(s string) bool {
	return strings.Contains(strings.ToLower(f.Action.Target), s)
}

// Rule is one branch of the cascade.
type Rule struct {
	ID          string
	Score       float64
	Explanation string
	Match       func(Facts) bool
}

// Rule IDs, in evaluation order.
const (
	RuleThreatSensitive  = "threat_sensitive"
	RuleSensitiveDelete  = "sensitive_delete"
	RuleSensitivePayment = "sensitive_payment"
	RuleSensitiveKeyword = "sensitive_keyword"
	RuleThreatOnly       = "threat_only"
	RuleDefault          = "default"
)

// Rules returns the cascade in evaluation order. First match wins, so the
// order is part of the contract: "admin-delete-panel" must hit the delete
// rule before the generic keyword rule.
func Rules() []Rule {
	return []Rule{
		{
			ID:          RuleThreatSensitive,
			Score:       9.5,
			Explanation: "page threats present during sensitive action.",
			Match:       func(f Facts) bool { return f.Threat && f.Sensitive() },
		},
		{
			ID:          RuleSensitiveDelete,
			Score:       8.0,
			Explanation: "delete-class action deviates from goal.",
			Match:       func(f Facts) bool { return f.Sensitive() && f.TargetContains("delete") },
		},
		{
			ID:          RuleSensitivePayment,
			Score:       7.5,
			Explanation: "payment action requires elevated verification.",
			Match:       func(f Facts) bool { return f.Sensitive() && f.TargetContains("payment") },
		},
		{
			ID:          RuleSensitiveKeyword,
			Score:       6.0,
			Explanation: "sensitive keyword present.",
			Match:       Facts.Sensitive,
		},
		{
			ID:          RuleThreatOnly,
			Score:       4.5,
			Explanation: "page has threats but action is not sensitive.",
			Match:       func(f Facts) bool { return f.Threat },
		},
		{
			ID:          RuleDefault,
			Score:       2.0,
			Explanation: "action aligns with goal, no major threats.",
			Match:       func(Facts) bool { return true },
		},
	}
}

// Cascade is the deterministic rule-list scorer.
type Cascade struct {
	keywords        policy.Keywords
	scriptThreshold int
	rules           []Rule
}

// NewCascade builds a cascade from policy configuration.
func NewCascade(cfg *policy.Config) *Cascade {
	if cfg == nil {
		cfg = policy.DefaultConfig()
	}
	return &Cascade{
		keywords:        policy.NewKeywords(cfg.SensitiveKeywords),
		scriptThreshold: cfg.SuspiciousScriptThreshold,
		rules:           Rules(),
	}
}

// Facts derives rule inputs for an action.
func (c *Cascade) Facts(action model.ProposedAction, signal model.ThreatSignal) Facts {
	return Facts{
		Action:   action,
		Signal:   signal,
		Keywords: c.keywords.Matches(action.Target),
		Threat:   signal.RiskDetected(c.scriptThreshold),
	}
}

// Score implements Scorer.
func (c *Cascade) Score(action model.ProposedAction, signal model.ThreatSignal) Assessment {
	return c.assess(c.Facts(action, signal))
}

func (c *Cascade) assess(f Facts) Assessment {
	for _, r := range c.rules {
		if r.Match(f) {
			return Assessment{Score: r.Score, Explanation: r.Explanation, RuleID: r.ID}
		}
	}
	// Unreachable while the default rule is last.
	return Assessment{Score: model.MaxRiskScore, Explanation: "no rule matched", RuleID: "none"}
}
