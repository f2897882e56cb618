package scorer

import (
	"testing"

	"github.com/ppiankov/pagegate/internal/model"
	"github.com/ppiankov/pagegate/internal/policy"
)

var threat = model.ThreatSignal{HiddenElementCount: 4, InjectionPatterns: []string{"system override"}}

func TestCascadeScenarios(t *testing.T) {
	c := NewCascade(policy.DefaultConfig())

	tests := []struct {
		name   string
		target string
		signal model.ThreatSignal
		score  float64
		rule   string
	}{
		{"payment under threat", "#payment-submit", threat, 9.5, RuleThreatSensitive},
		{"delete wins over keyword", "admin-delete-panel", model.ThreatSignal{}, 8.0, RuleSensitiveDelete},
		{"delete account", "#btn-delete-account", model.ThreatSignal{}, 8.0, RuleSensitiveDelete},
		{"payment", "#payment-submit", model.ThreatSignal{}, 7.5, RuleSensitivePayment},
		{"other keyword", "https://malicious.com/admin", model.ThreatSignal{}, 6.0, RuleSensitiveKeyword},
		{"threat only", "#search-btn", threat, 4.5, RuleThreatOnly},
		{"benign", "#search-btn", model.ThreatSignal{}, 2.0, RuleDefault},
		{"uppercase keyword", "#LOGIN", model.ThreatSignal{}, 6.0, RuleSensitiveKeyword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := c.Score(model.ProposedAction{Kind: "click", Target: tt.target}, tt.signal)
			if a.Score != tt.score || a.RuleID != tt.rule {
				t.Errorf("Score(%q) = %v/%s, want %v/%s", tt.target, a.Score, a.RuleID, tt.score, tt.rule)
			}
			if a.Explanation == "" {
				t.Error("expected explanation")
			}
		})
	}
}

func TestCascadeIgnoresGoal(t *testing.T) {
	c := NewCascade(nil)
	action := model.ProposedAction{Kind: "click", Target: "#btn-delete-account"}

	a := c.Score(action, model.ThreatSignal{})
	action.Goal = "Search for flight tickets"
	b := c.Score(action, model.ThreatSignal{})
	if a != b {
		t.Errorf("goal changed assessment: %+v vs %+v", a, b)
	}
}

func TestCascadeIdempotent(t *testing.T) {
	c := NewCascade(nil)
	action := model.ProposedAction{Kind: "type", Target: "#destination-input", Goal: "book"}
	first := c.Score(action, threat)
	for i := 0; i < 10; i++ {
		if got := c.Score(action, threat); got != first {
			t.Fatalf("run %d: %+v != %+v", i, got, first)
		}
	}
}

func TestCascadeScriptThreshold(t *testing.T) {
	cfg := policy.DefaultConfig()
	cfg.SuspiciousScriptThreshold = 3
	c := NewCascade(cfg)

	sig := model.ThreatSignal{SuspiciousScriptCount: 3}
	if a := c.Score(model.ProposedAction{Target: "#search"}, sig); a.RuleID != RuleDefault {
		t.Errorf("expected scripts at threshold to be ignored, got %s", a.RuleID)
	}
	sig.SuspiciousScriptCount = 4
	if a := c.Score(model.ProposedAction{Target: "#search"}, sig); a.RuleID != RuleThreatOnly {
		t.Errorf("expected scripts above threshold to count, got %s", a.RuleID)
	}
}

func TestRulesIndividually(t *testing.T) {
	c := NewCascade(nil)
	sensitive := c.Facts(model.ProposedAction{Target: "#bank-transfer"}, model.ThreatSignal{})
	deleteFacts := c.Facts(model.ProposedAction{Target: "#delete"}, model.ThreatSignal{})
	threatened := c.Facts(model.ProposedAction{Target: "#next"}, threat)
	plain := c.Facts(model.ProposedAction{Target: "#next"}, model.ThreatSignal{})

	want := map[string]map[string]bool{
		RuleThreatSensitive:  {"sensitive": false, "delete": false, "threat": false, "plain": false},
		RuleSensitiveDelete:  {"sensitive": false, "delete": true, "threat": false, "plain": false},
		RuleSensitivePayment: {"sensitive": false, "delete": false, "threat": false, "plain": false},
		RuleSensitiveKeyword: {"sensitive": true, "delete": true, "threat": false, "plain": false},
		RuleThreatOnly:       {"sensitive": false, "delete": false, "threat": true, "plain": false},
		RuleDefault:          {"sensitive": true, "delete": true, "threat": true, "plain": true},
	}
	facts := map[string]Facts{"sensitive": sensitive, "delete": deleteFacts, "threat": threatened, "plain": plain}

	rules := Rules()
	if len(rules) != len(want) {
		t.Fatalf("expected %d rules, got %d", len(want), len(rules))
	}
	for _, r := range rules {
		for name, f := range facts {
			if got := r.Match(f); got != want[r.ID][name] {
				t.Errorf("rule %s on %s facts = %v, want %v", r.ID, name, got, want[r.ID][name])
			}
		}
	}
}

func TestRulesOrderAndScores(t *testing.T) {
	want := []struct {
		id    string
		score float64
	}{
		{RuleThreatSensitive, 9.5},
		{RuleSensitiveDelete, 8.0},
		{RuleSensitivePayment, 7.5},
		{RuleSensitiveKeyword, 6.0},
		{RuleThreatOnly, 4.5},
		{RuleDefault, 2.0},
	}
	for i, r := range Rules() {
		if r.ID != want[i].id || r.Score != want[i].score {
			t.Errorf("rule %d = %s/%v, want %s/%v", i, r.ID, r.Score, want[i].id, want[i].score)
		}
	}
}
