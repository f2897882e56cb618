package scenario

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ppiankov/pagegate/internal/model"
)

// FormatText renders a list of run results as human-readable text.
func FormatText(results []*RunResult) string {
	var b strings.Builder

	totalCases := 0
	totalPassed := 0
	failedScenarios := 0

	for _, r := range results {
		totalCases += r.Total
		totalPassed += r.Passed

		verdict := "PASS"
		if r.Failed > 0 {
			verdict = "FAIL"
			failedScenarios++
		}
		fmt.Fprintf(&b, "%s  %s (%d/%d)\n", verdict, r.Name, r.Passed, r.Total)

		for _, c := range r.Cases {
			mark := "ok  "
			if !c.Passed {
				mark = "FAIL"
			}
			target := c.Target
			if len(target) > 40 {
				target = target[:37] + "..."
			}
			fmt.Fprintf(&b, "  %s %-9s %-40s %-12s %4.1f  %s\n",
				mark, c.Kind, target, c.Actual, c.Score, c.Explanation)
			if !c.Passed {
				fmt.Fprintf(&b, "       expected %s\n", c.Expected)
			}
		}
		fmt.Fprintf(&b, "  overall risk: %d (%s)\n\n", r.OverallRisk, model.LevelFor(float64(r.OverallRisk)))
	}

	fmt.Fprintf(&b, "%d of %d cases passed.", totalPassed, totalCases)
	if failedScenarios > 0 {
		fmt.Fprintf(&b, " %d of %d scenarios failed.", failedScenarios, len(results))
	}
	b.WriteString("\n")

	return b.String()
}

// FormatJSON renders run results as JSON.
func FormatJSON(results []*RunResult) (string, error) {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	return string(data), nil
}
