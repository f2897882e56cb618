package mediator

import (
	"math"
	"sync"

	"github.com/ppiankov/pagegate/internal/model"
)

// Log is the append-only record of finalized actions. Readers never block
// each other and always receive copies.
type Log struct {
	mu      sync.RWMutex
	records []model.ActionRecord
}

// Append adds a finalized record. Pending records are rejected.
func (l *Log) Append(rec model.ActionRecord) bool {
	if !rec.Status.Final() {
		return false
	}
	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()
	return true
}

// Records returns the log in append order. An empty session returns every
// session's records.
func (l *Log) Records(session string) []model.ActionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]model.ActionRecord, 0, len(l.records))
	for _, r := range l.records {
		if session == "" || r.Session == session {
			out = append(out, r)
		}
	}
	return out
}

// Len returns the number of logged records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// OverallRisk is the mean logged score on a 0..100 scale, rounded and
// capped at 100. An empty log is 0.
func (l *Log) OverallRisk() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return overallRisk(l.records)
}

func overallRisk(records []model.ActionRecord) int {
	if len(records) == 0 {
		return 0
	}
	var sum float64
	for _, r := range records {
		sum += r.RiskScore * 10
	}
	risk := int(math.Round(sum / float64(len(records))))
	if risk > 100 {
		return 100
	}
	return risk
}

// Summary is a dashboard view of mediation so far.
type Summary struct {
	Total       int             `json:"total"`
	Success     int             `json:"success"`
	Blocked     int             `json:"blocked"`
	Failed      int             `json:"failed"`
	Pending     int             `json:"pending"`
	OverallRisk int             `json:"overall_risk"`
	Level       model.RiskLevel `json:"level"`
}

func summarize(records []model.ActionRecord, pending int) Summary {
	s := Summary{Total: len(records), Pending: pending}
	for _, r := range records {
		switch r.Status {
		case model.StatusSuccess:
			s.Success++
		case model.StatusBlocked:
			s.Blocked++
		case model.StatusFailed:
			s.Failed++
		}
	}
	s.OverallRisk = overallRisk(records)
	s.Level = model.LevelFor(float64(s.OverallRisk))
	return s
}
