package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/pagegate/internal/model"
)

// ErrPageNotFound is returned by a SnapshotSource with no content for a page.
var ErrPageNotFound = errors.New("page not found")

// Snapshot is page content already extracted by an external collaborator.
type Snapshot struct {
	URL         string   `yaml:"url"`
	VisibleText string   `yaml:"visible_text"`
	HiddenTexts []string `yaml:"hidden_texts"`
	Scripts     []string `yaml:"scripts"`
	DeceptiveUI bool     `yaml:"deceptive_ui"`
}

// SnapshotSource supplies extracted content for a page context.
type SnapshotSource interface {
	Snapshot(ctx context.Context, pageContext string) (Snapshot, error)
}

// PatternScanner summarizes snapshots into threat signals.
type PatternScanner struct {
	source SnapshotSource
}

// NewPatternScanner creates a scanner over source.
func NewPatternScanner(source SnapshotSource) *PatternScanner {
	return &PatternScanner{source: source}
}

// Scan fetches the snapshot for pageContext and summarizes it.
func (s *PatternScanner) Scan(ctx context.Context, pageContext string) (model.ThreatSignal, error) {
	snap, err := s.source.Snapshot(ctx, pageContext)
	if err != nil {
		return model.ThreatSignal{}, err
	}
	sig := Summarize(snap)
	sig.PageContext = pageContext
	return sig, nil
}

// Summarize converts a snapshot into a ThreatSignal. Injection patterns are
// reported once each, in the order they were first detected: hidden text
// first, then visible text.
func Summarize(snap Snapshot) model.ThreatSignal {
	sig := model.ThreatSignal{
		PageContext:         snap.URL,
		HiddenElementCount:  len(snap.HiddenTexts),
		InjectionPatterns:   []string{},
		DeceptiveUIDetected: snap.DeceptiveUI,
		ScannedAt:           time.Now().UTC(),
	}

	seen := make(map[string]bool)
	texts := append(append([]string(nil), snap.HiddenTexts...), snap.VisibleText)
	for _, text := range texts {
		for _, p := range injectionPatterns {
			if !seen[p.Literal] && p.Match(text) {
				seen[p.Literal] = true
				sig.InjectionPatterns = append(sig.InjectionPatterns, p.Literal)
			}
		}
	}

	for _, src := range snap.Scripts {
		if suspiciousScript(src) {
			sig.SuspiciousScriptCount++
		}
	}

	return sig
}

// FixtureSource serves snapshots loaded from a YAML file.
type FixtureSource struct {
	pages map[string]Snapshot
}

type fixtureFile struct {
	Pages []Snapshot `yaml:"pages"`
}

// LoadFixtures reads a fixture file of the form:
//
//	pages:
//	  - url: https://example.com
//	    visible_text: "..."
//	    hidden_texts: ["..."]
//	    scripts: ["..."]
//	    deceptive_ui: false
func LoadFixtures(path string) (*FixtureSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixtures: %w", err)
	}

	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixtures: %w", err)
	}

	return NewFixtureSource(f.Pages...), nil
}

// NewFixtureSource indexes snapshots by URL.
func NewFixtureSource(pages ...Snapshot) *FixtureSource {
	fs := &FixtureSource{pages: make(map[string]Snapshot, len(pages))}
	for _, p := range pages {
		fs.pages[p.URL] = p
	}
	return fs
}

// Snapshot returns the fixture for pageContext.
func (f *FixtureSource) Snapshot(ctx context.Context, pageContext string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	snap, ok := f.pages[pageContext]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrPageNotFound, pageContext)
	}
	return snap, nil
}

// Len returns the number of fixture pages.
func (f *FixtureSource) Len() int { return len(f.pages) }
