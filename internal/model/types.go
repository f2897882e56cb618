package model

import (
	"strings"
	"time"
)

// MaxRiskScore is the sentinel score assigned to gatekeeper rejections.
const MaxRiskScore = 10.0

// Status is the lifecycle state of an ActionRecord.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusBlocked Status = "BLOCKED"
	StatusPending Status = "PENDING"
	StatusFailed  Status = "FAILED"
)

// Final reports whether the status can no longer change.
func (s Status) Final() bool {
	return s == StatusSuccess || s == StatusBlocked || s == StatusFailed
}

// Verdict is a human reviewer's answer to a pending decision.
type Verdict string

const (
	Approve Verdict = "APPROVE"
	Deny    Verdict = "DENY"
)

// ParseVerdict maps reviewer input to a Verdict. Matching is case-insensitive.
func ParseVerdict(s string) (Verdict, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "approved", "a", "yes", "y":
		return Approve, true
	case "deny", "denied", "d", "no", "n", "block":
		return Deny, true
	default:
		return "", false
	}
}

// ThreatSignal summarizes the suspicious characteristics of one page.
// It is produced by a scanner and never mutated afterwards.
type ThreatSignal struct {
	PageContext           string    `json:"page_context,omitempty"`
	HiddenElementCount    int       `json:"hidden_element_count"`
	InjectionPatterns     []string  `json:"injection_patterns"`
	SuspiciousScriptCount int       `json:"suspicious_script_count"`
	DeceptiveUIDetected   bool      `json:"deceptive_ui_detected"`
	ScannedAt             time.Time `json:"scanned_at"`
}

// NeutralSignal is the "unknown" signal substituted when a scan fails.
func NeutralSignal(pageContext string) ThreatSignal {
	return ThreatSignal{
		PageContext:       pageContext,
		InjectionPatterns: []string{},
		ScannedAt:         time.Now().UTC(),
	}
}

// RiskDetected reports whether the page carries any threat indicator.
// Scripts count only when they exceed scriptThreshold.
func (ts ThreatSignal) RiskDetected(scriptThreshold int) bool {
	return ts.HiddenElementCount > 0 ||
		len(ts.InjectionPatterns) > 0 ||
		ts.SuspiciousScriptCount > scriptThreshold ||
		ts.DeceptiveUIDetected
}

// ProposedAction is one action attempt submitted by the agent.
type ProposedAction struct {
	Kind   string `json:"kind"`
	Target string `json:"target"`
	Goal   string `json:"goal"`
}

// ActionRecord is the outcome of mediating a ProposedAction.
type ActionRecord struct {
	ID                string     `json:"id"`
	Timestamp         time.Time  `json:"timestamp"`
	Session           string     `json:"session,omitempty"`
	Kind              string     `json:"kind"`
	Target            string     `json:"target"`
	Goal              string     `json:"goal,omitempty"`
	RiskScore         float64    `json:"risk_score"`
	Status            Status     `json:"status"`
	Explanation       string     `json:"explanation"`
	RuleID            string     `json:"rule_id,omitempty"`
	SensitiveDetected bool       `json:"sensitive_detected"`
	ThreatContext     bool       `json:"threat_context"`
	Handle            string     `json:"handle,omitempty"`
	ResolvedAt        *time.Time `json:"resolved_at,omitempty"`
}

// Level returns the dashboard risk band for the record's score.
func (r ActionRecord) Level() RiskLevel {
	return LevelFor(r.RiskScore * 10)
}
