package scorer

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/pagegate/internal/model"
	"github.com/ppiankov/pagegate/internal/policy"
)

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

const goalScript = `
def score(action, signal):
    if "delete" in action["target"] and "search" in action["goal"].lower():
        return (9.0, "delete does not serve a search goal")
    if action["target"] == "#overflow":
        return (42, "too high")
    if action["target"] == "#broken":
        return "not a tuple"
    if action["target"] == "#crash":
        return 1 // 0
    if signal["risk_detected"] and len(signal["injection_patterns"]) > 0:
        return (signal["hidden_element_count"], "scaled by hidden content")
    return None
`

func newGoalScript(t *testing.T) *ScriptScorer {
	t.Helper()
	s, err := NewScript("goal.star", []byte(goalScript), NewCascade(nil), quietLogger())
	if err != nil {
		t.Fatalf("NewScript: %v", err)
	}
	return s
}

func TestScriptOverridesCascade(t *testing.T) {
	s := newGoalScript(t)
	a := s.Score(model.ProposedAction{Kind: "click", Target: "#btn-delete-account", Goal: "Search for flight tickets"}, model.ThreatSignal{})
	if a.Score != 9.0 || a.RuleID != RuleScript {
		t.Errorf("expected script override 9.0, got %+v", a)
	}
	if a.Explanation != "delete does not serve a search goal" {
		t.Errorf("unexpected explanation %q", a.Explanation)
	}
}

func TestScriptNoneDefersToCascade(t *testing.T) {
	s := newGoalScript(t)
	a := s.Score(model.ProposedAction{Kind: "click", Target: "#search-btn", Goal: "search"}, model.ThreatSignal{})
	if a.Score != 2.0 || a.RuleID != RuleDefault {
		t.Errorf("expected cascade default, got %+v", a)
	}
}

func TestScriptClampsScore(t *testing.T) {
	s := newGoalScript(t)
	a := s.Score(model.ProposedAction{Target: "#overflow"}, model.ThreatSignal{})
	if a.Score != model.MaxRiskScore {
		t.Errorf("expected clamp to 10, got %v", a.Score)
	}
}

func TestScriptReadsSignal(t *testing.T) {
	s := newGoalScript(t)
	sig := model.ThreatSignal{HiddenElementCount: 3, InjectionPatterns: []string{"system override"}}
	a := s.Score(model.ProposedAction{Target: "#next"}, sig)
	if a.Score != 3 || a.RuleID != RuleScript {
		t.Errorf("expected score from hidden count, got %+v", a)
	}
}

func TestScriptFailuresFallBack(t *testing.T) {
	s := newGoalScript(t)
	for _, target := range []string{"#broken", "#crash"} {
		a := s.Score(model.ProposedAction{Target: target}, model.ThreatSignal{})
		if a.RuleID != RuleDefault {
			t.Errorf("%s: expected cascade fallback, got %+v", target, a)
		}
	}
}

func TestNewScriptRejectsMissingFunction(t *testing.T) {
	_, err := NewScript("x.star", []byte("threshold = 3\n"), NewCascade(nil), quietLogger())
	if err == nil || !strings.Contains(err.Error(), "score()") {
		t.Fatalf("expected missing score() error, got %v", err)
	}

	_, err = NewScript("y.star", []byte("def score(:\n"), NewCascade(nil), quietLogger())
	if err == nil {
		t.Fatal("expected syntax error")
	}
}

func TestNewFromConfig(t *testing.T) {
	s, err := New(policy.DefaultConfig(), quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*Cascade); !ok {
		t.Errorf("expected plain cascade without script, got %T", s)
	}

	path := filepath.Join(t.TempDir(), "score.star")
	if err := os.WriteFile(path, []byte(goalScript), 0644); err != nil {
		t.Fatal(err)
	}
	cfg := policy.DefaultConfig()
	cfg.ScorerScript = path
	s, err = New(cfg, quietLogger())
	if err != nil {
		t.Fatalf("New with script: %v", err)
	}
	if _, ok := s.(*ScriptScorer); !ok {
		t.Errorf("expected script scorer, got %T", s)
	}

	cfg.ScorerScript = filepath.Join(t.TempDir(), "missing.star")
	if _, err := New(cfg, quietLogger()); err == nil {
		t.Error("expected error for missing script")
	}
}
