package pagegate

import (
	"fmt"

	"github.com/ppiankov/pagegate/internal/model"
)

// Status is the mediation outcome.
type Status string

const (
	Success Status = Status(model.StatusSuccess)
	Blocked Status = Status(model.StatusBlocked)
	Pending Status = Status(model.StatusPending)
	Failed  Status = Status(model.StatusFailed)
)

// Action describes what the agent intends to do in the browser.
type Action struct {
	Kind   string // click, type, navigate, scroll, extract
	Target string // selector or URL
	Goal   string // the user's task; falls back to WithGoal
	Page   string // URL of the page the action happens on; empty reuses the last scan
}

// Result is a mediation outcome.
type Result struct {
	ID          string
	Status      Status
	RiskScore   float64
	RiskLevel   string
	Explanation string
	RuleID      string
	// Handle identifies a PENDING decision for Resolve.
	Handle string
}

// Allowed returns true if the action may be performed.
func (r Result) Allowed() bool {
	return r.Status == Success
}

// BlockedError is returned when an action is blocked or awaits review.
type BlockedError struct {
	Action    Action
	Status    Status
	Reason    string
	RuleID    string
	RiskScore float64
	Handle    string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("pagegate blocked (%s): %s", e.Status, e.Reason)
}

func toResult(rec model.ActionRecord) Result {
	return Result{
		ID:          rec.ID,
		Status:      Status(rec.Status),
		RiskScore:   rec.RiskScore,
		RiskLevel:   string(rec.Level()),
		Explanation: rec.Explanation,
		RuleID:      rec.RuleID,
		Handle:      rec.Handle,
	}
}

func blocked(a Action, r Result) *BlockedError {
	return &BlockedError{
		Action:    a,
		Status:    r.Status,
		Reason:    r.Explanation,
		RuleID:    r.RuleID,
		RiskScore: r.RiskScore,
		Handle:    r.Handle,
	}
}
