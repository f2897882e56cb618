// Package notify fans mediation decisions out to reviewer webhooks.
package notify

// Webhook defines a notification destination.
type Webhook struct {
	URL     string            `yaml:"url"     json:"url"`
	Format  string            `yaml:"format"  json:"format"` // "generic", "slack"
	Events  []string          `yaml:"events"  json:"events"` // ["PENDING", "BLOCKED", "SUCCESS", "RESOLVED"]
	Headers map[string]string `yaml:"headers" json:"headers"`
}

// EventResolved is the Type of events emitted when a pending decision is finalized.
const EventResolved = "RESOLVED"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Timestamp   string  `json:"timestamp"`
	Session     string  `json:"session"`
	RecordID    string  `json:"record_id"`
	Kind        string  `json:"kind"`
	Target      string  `json:"target"`
	Status      string  `json:"status"`
	RiskScore   float64 `json:"risk_score"`
	Explanation string  `json:"explanation"`
	Handle      string  `json:"handle,omitempty"`
	PolicyHash  string  `json:"policy_hash,omitempty"`
	Type        string  `json:"type,omitempty"`
}
