package scorer

import (
	"fmt"
	"math"
	"os"

	"github.com/sirupsen/logrus"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/ppiankov/pagegate/internal/model"
	"github.com/ppiankov/pagegate/internal/policy"
)

// RuleScript is the rule id recorded when a script overrides the cascade.
const RuleScript = "script"

// maxScriptSteps bounds a single score() call.
const maxScriptSteps = 1_000_000

// ScriptScorer lets deployments add goal-alignment logic without a rebuild.
// The script must define:
//
//	def score(action, signal):
//	    # action: {"kind", "target", "goal", "keywords"}
//	    # signal: {"page", "hidden_element_count", "injection_patterns",
//	    #          "suspicious_script_count", "deceptive_ui_detected", "risk_detected"}
//	    return None                     # defer to the cascade
//	    return (8.0, "off-goal action") # override
//
// Any script failure falls back to the cascade.
type ScriptScorer struct {
	name   string
	fn     starlark.Callable
	base   *Cascade
	logger logrus.FieldLogger
}

// LoadScript reads and compiles a scorer script from path.
func LoadScript(path string, base *Cascade, logger logrus.FieldLogger) (*ScriptScorer, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scorer script: %w", err)
	}
	return NewScript(path, src, base, logger)
}

// NewScript compiles src and looks up its score function.
func NewScript(name string, src []byte, base *Cascade, logger logrus.FieldLogger) (*ScriptScorer, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	thread := &starlark.Thread{Name: "load " + name}
	globals, err := starlark.ExecFileOptions(&syntax.FileOptions{}, thread, name, src, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load scorer script: %w", err)
	}
	globals.Freeze()

	v, ok := globals["score"]
	if !ok {
		return nil, fmt.Errorf("scorer script %s does not define score()", name)
	}
	fn, ok := v.(starlark.Callable)
	if !ok {
		return nil, fmt.Errorf("scorer script %s: score is %s, not a function", name, v.Type())
	}

	return &ScriptScorer{name: name, fn: fn, base: base, logger: logger}, nil
}

// Score implements Scorer.
func (s *ScriptScorer) Score(action model.ProposedAction, signal model.ThreatSignal) Assessment {
	facts := s.base.Facts(action, signal)
	fallback := s.base.assess(facts)

	thread := &starlark.Thread{Name: "score"}
	thread.SetMaxExecutionSteps(maxScriptSteps)

	args := starlark.Tuple{actionValue(facts), signalValue(facts)}
	out, err := starlark.Call(thread, s.fn, args, nil)
	if err != nil {
		s.logger.WithField("script", s.name).WithError(err).Warn("scorer script failed, using cascade")
		return fallback
	}

	a, ok, err := parseResult(out)
	if err != nil {
		s.logger.WithField("script", s.name).WithError(err).Warn("scorer script returned bad value, using cascade")
		return fallback
	}
	if !ok {
		return fallback
	}
	return a
}

func parseResult(v starlark.Value) (Assessment, bool, error) {
	if v == starlark.None {
		return Assessment{}, false, nil
	}
	t, ok := v.(starlark.Tuple)
	if !ok || t.Len() != 2 {
		return Assessment{}, false, fmt.Errorf("want None or (score, explanation), got %s", v.Type())
	}
	score, ok := starlark.AsFloat(t[0])
	if !ok || math.IsNaN(score) {
		return Assessment{}, false, fmt.Errorf("score must be a number, got %s", t[0].Type())
	}
	explanation, ok := starlark.AsString(t[1])
	if !ok {
		return Assessment{}, false, fmt.Errorf("explanation must be a string, got %s", t[1].Type())
	}
	return Assessment{
		Score:       math.Max(0, math.Min(model.MaxRiskScore, score)),
		Explanation: explanation,
		RuleID:      RuleScript,
	}, true, nil
}

func stringList(ss []string) *starlark.List {
	elems := make([]starlark.Value, len(ss))
	for i, s := range ss {
		elems[i] = starlark.String(s)
	}
	return starlark.NewList(elems)
}

func actionValue(f Facts) *starlark.Dict {
	d := starlark.NewDict(4)
	_ = d.SetKey(starlark.String("kind"), starlark.String(f.Action.Kind))
	_ = d.SetKey(starlark.String("target"), starlark.String(f.Action.Target))
	_ = d.SetKey(starlark.String("goal"), starlark.String(f.Action.Goal))
	_ = d.SetKey(starlark.String("keywords"), stringList(f.Keywords))
	d.Freeze()
	return d
}

func signalValue(f Facts) *starlark.Dict {
	d := starlark.NewDict(6)
	_ = d.SetKey(starlark.String("page"), starlark.String(f.Signal.PageContext))
	_ = d.SetKey(starlark.String("hidden_element_count"), starlark.MakeInt(f.Signal.HiddenElementCount))
	_ = d.SetKey(starlark.String("injection_patterns"), stringList(f.Signal.InjectionPatterns))
	_ = d.SetKey(starlark.String("suspicious_script_count"), starlark.MakeInt(f.Signal.SuspiciousScriptCount))
	_ = d.SetKey(starlark.String("deceptive_ui_detected"), starlark.Bool(f.Signal.DeceptiveUIDetected))
	_ = d.SetKey(starlark.String("risk_detected"), starlark.Bool(f.Threat))
	d.Freeze()
	return d
}

// New returns the scorer configured by cfg: the cascade, optionally wrapped
// by the scorer script.
func New(cfg *policy.Config, logger logrus.FieldLogger) (Scorer, error) {
	base := NewCascade(cfg)
	if cfg == nil || cfg.ScorerScript == "" {
		return base, nil
	}
	return LoadScript(cfg.ScorerScript, base, logger)
}
