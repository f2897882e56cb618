package scenario

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/ppiankov/pagegate/internal/mediator"
	"github.com/ppiankov/pagegate/internal/model"
	"github.com/ppiankov/pagegate/internal/policy"
	"github.com/ppiankov/pagegate/internal/scan"
)

// Run evaluates all cases in a scenario against the given policy and scanner.
// Each case gets a fresh mediator (cases are independent), so a PENDING
// case never makes the next one busy. Pending cases are auto-denied after
// their outcome is recorded so the overall risk reflects every case.
func Run(ctx context.Context, s *Scenario, cfg *policy.Config, scanner scan.Scanner) (*RunResult, error) {
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	result := &RunResult{
		Name:  s.Name,
		Total: len(s.Cases),
	}

	var logged []model.ActionRecord
	for i, c := range s.Cases {
		med, err := mediator.New(cfg, "", scanner, mediator.WithLogger(quiet))
		if err != nil {
			return nil, err
		}

		goal := c.Goal
		if goal == "" {
			goal = s.Goal
		}

		var rec model.ActionRecord
		if c.Action.Kind == mediator.KindNavigate {
			rec, err = med.Navigate(ctx, "", c.Action.Target, goal)
		} else {
			rec, err = med.EvaluateAction(ctx, "", c.Action.Kind, c.Action.Target, goal, c.Page)
		}
		if err != nil {
			return nil, fmt.Errorf("case %d: %w", i+1, err)
		}

		expected := strings.ToUpper(c.Expect)
		cr := CaseResult{
			Index:       i + 1,
			Kind:        c.Action.Kind,
			Target:      c.Action.Target,
			Expected:    expected,
			Actual:      string(rec.Status),
			Score:       rec.RiskScore,
			Explanation: rec.Explanation,
		}
		if c.Score != nil {
			cr.Expected = fmt.Sprintf("%s/%.1f", expected, *c.Score)
			cr.Actual = fmt.Sprintf("%s/%.1f", rec.Status, rec.RiskScore)
		}

		if cr.Expected == cr.Actual {
			cr.Passed = true
			result.Passed++
		} else {
			result.Failed++
		}
		result.Cases = append(result.Cases, cr)

		if rec.Status == model.StatusPending {
			if _, err := med.ResolvePending("", rec.Handle, model.Deny); err != nil {
				return nil, fmt.Errorf("case %d: %w", i+1, err)
			}
		}
		logged = append(logged, med.Records("")...)
	}

	var sum float64
	for _, r := range logged {
		sum += r.RiskScore * 10
	}
	if len(logged) > 0 {
		result.OverallRisk = min(100, int(sum/float64(len(logged))+0.5))
	}

	return result, nil
}

// Load reads a scenario YAML file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario %s: %w", path, err)
	}

	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if s.Name == "" {
		s.Name = path
	}
	return &s, nil
}

// LoadAndRun loads a scenario YAML file and runs it.
func LoadAndRun(ctx context.Context, path string, cfg *policy.Config, scanner scan.Scanner) (*RunResult, error) {
	s, err := Load(path)
	if err != nil {
		return nil, err
	}

	result, err := Run(ctx, s, cfg, scanner)
	if err != nil {
		return nil, err
	}
	result.File = path
	return result, nil
}
