package policy

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/pagegate/internal/notify"
)

// Config holds all deployment-tunable mediation parameters.
type Config struct {
	AllowedKinds              []string         `yaml:"allowed_kinds"`
	SensitiveKeywords         []string         `yaml:"sensitive_keywords"`
	RiskThreshold             float64          `yaml:"risk_threshold"`
	SuspiciousScriptThreshold int              `yaml:"suspicious_script_threshold"`
	ScanTimeout               time.Duration    `yaml:"scan_timeout"`
	ApprovalTimeout           time.Duration    `yaml:"approval_timeout"`
	ScorerScript              string           `yaml:"scorer_script"`
	Alerts                    []notify.Webhook `yaml:"alerts"`
}

// DefaultConfig returns the built-in policy.
func DefaultConfig() *Config {
	return &Config{
		AllowedKinds:      []string{"click", "type", "navigate", "scroll", "extract"},
		SensitiveKeywords: []string{"payment", "password", "delete", "transfer", "admin", "auth", "login", "bank"},
		RiskThreshold:     6.5,
		ScanTimeout:       5 * time.Second,
	}
}

// DefaultPath returns ~/.pagegate/policy.yaml, or "" if the home directory is unknown.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".pagegate", "policy.yaml")
}

// LoadConfig loads policy configuration from a YAML file.
// Empty path falls back to ~/.pagegate/policy.yaml.
// Missing file returns defaults. Invalid YAML returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg, _, err := LoadConfigWithHash(path)
	return cfg, err
}

// LoadConfigWithHash loads policy configuration and returns its SHA-256 hash.
// The hash is computed over the raw YAML bytes on disk.
// When no file exists (defaults used), the hash is the SHA-256 of empty input.
func LoadConfigWithHash(path string) (*Config, string, error) {
	if path == "" {
		path = DefaultPath()
	}

	var data []byte
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, "", fmt.Errorf("failed to read policy config: %w", err)
		}
		data = raw
	}

	h := sha256.Sum256(data)
	hash := "sha256:" + hex.EncodeToString(h[:])

	// Start with defaults, YAML overwrites only specified fields
	cfg := DefaultConfig()
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, "", fmt.Errorf("failed to parse policy config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("invalid policy config: %w", err)
	}

	return cfg, hash, nil
}

// Validate rejects configurations the mediator cannot enforce.
func (c *Config) Validate() error {
	if len(c.AllowedKinds) == 0 {
		return fmt.Errorf("allowed_kinds must not be empty")
	}
	if c.RiskThreshold < 0 || c.RiskThreshold > 10 {
		return fmt.Errorf("risk_threshold %.2f outside [0, 10]", c.RiskThreshold)
	}
	if c.SuspiciousScriptThreshold < 0 {
		return fmt.Errorf("suspicious_script_threshold must not be negative")
	}
	if c.ScanTimeout < 0 {
		return fmt.Errorf("scan_timeout must not be negative")
	}
	if c.ApprovalTimeout < 0 {
		return fmt.Errorf("approval_timeout must not be negative")
	}
	for i, a := range c.Alerts {
		if a.URL == "" {
			return fmt.Errorf("alerts[%d]: url is required", i)
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate it without racing readers.
func (c *Config) Clone() *Config {
	out := *c
	out.AllowedKinds = append([]string(nil), c.AllowedKinds...)
	out.SensitiveKeywords = append([]string(nil), c.SensitiveKeywords...)
	out.Alerts = append([]notify.Webhook(nil), c.Alerts...)
	return &out
}

// DefaultConfigYAML returns a commented YAML string for init-policy.
func DefaultConfigYAML() string {
	return `# pagegate policy configuration
# Generated by: pagegate init-policy
#
# Evaluation order (cannot be changed):
#   1. Allowlist gatekeeper -> BLOCKED (risk 10) when the kind is not listed
#   2. Page scan (or cached signal for the current page)
#   3. Rule cascade -> risk score 0..10 and explanation
#   4. score <= risk_threshold -> SUCCESS, otherwise PENDING human review

# Action kinds the agent may perform. Compared case-sensitively.
allowed_kinds: [click, type, navigate, scroll, extract]

# Case-insensitive substrings of the action target that mark it sensitive.
sensitive_keywords: [payment, password, delete, transfer, admin, auth, login, bank]

# Scores strictly above this value require human approval.
risk_threshold: 6.5

# Suspicious scripts only count as a page threat above this number.
suspicious_script_threshold: 0

# Page scans slower than this are treated as "no threat context".
scan_timeout: 5s

# Pending decisions are auto-denied after this long. 0 disables expiry.
approval_timeout: 0s

# Optional Starlark file defining score(action, signal). Return None to
# defer to the built-in cascade, or (score, explanation) to override it.
scorer_script: ""

# Webhook destinations notified about decisions.
# Fields:
#   url: endpoint receiving a POST
#   format: generic | slack
#   events: any of PENDING, BLOCKED, SUCCESS, RESOLVED
#   headers: extra request headers
alerts: []
`
}
