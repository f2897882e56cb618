package scenario

// ScenarioAction defines the action under test.
type ScenarioAction struct {
	Kind   string `yaml:"kind"   json:"kind"`
	Target string `yaml:"target" json:"target"`
}

// Case is one test case within a scenario.
type Case struct {
	Action ScenarioAction `yaml:"action"`
	// Page is the page the action happens on. Empty means no page context.
	Page   string   `yaml:"page,omitempty"`
	Goal   string   `yaml:"goal,omitempty"`
	Expect string   `yaml:"expect"`
	Score  *float64 `yaml:"score,omitempty"`
}

// Scenario is a named collection of mediation test cases.
type Scenario struct {
	Name  string `yaml:"name"`
	Goal  string `yaml:"goal,omitempty"`
	Cases []Case `yaml:"cases"`
}

// CaseResult is the outcome of evaluating one test case.
type CaseResult struct {
	Index       int     `json:"index"`
	Passed      bool    `json:"passed"`
	Kind        string  `json:"kind"`
	Target      string  `json:"target"`
	Expected    string  `json:"expected"`
	Actual      string  `json:"actual"`
	Score       float64 `json:"score"`
	Explanation string  `json:"explanation"`
}

// RunResult is the outcome of running all cases in one scenario.
type RunResult struct {
	File        string       `json:"file,omitempty"`
	Name        string       `json:"name"`
	Total       int          `json:"total"`
	Passed      int          `json:"passed"`
	Failed      int          `json:"failed"`
	OverallRisk int          `json:"overall_risk"`
	Cases       []CaseResult `json:"cases"`
}
