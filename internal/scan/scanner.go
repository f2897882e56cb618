// Package scan defines the page-threat scanning contract and the scanners
// shipped with pagegate. Scanners receive already-extracted page content;
// nothing here fetches or renders pages.
package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/pagegate/internal/model"
)

// Scanner produces a ThreatSignal for a page context (usually its URL).
type Scanner interface {
	Scan(ctx context.Context, pageContext string) (model.ThreatSignal, error)
}

// ScannerFunc adapts a function to the Scanner interface.
type ScannerFunc func(ctx context.Context, pageContext string) (model.ThreatSignal, error)

func (f ScannerFunc) Scan(ctx context.Context, pageContext string) (model.ThreatSignal, error) {
	return f(ctx, pageContext)
}

// Guard bounds a Scanner with a timeout and recovers every failure into a
// neutral signal. Scan failure never blocks an action.
type Guard struct {
	scanner Scanner
	timeout time.Duration
	logger  logrus.FieldLogger
}

// NewGuard wraps s. A zero timeout leaves the scan bounded only by ctx.
func NewGuard(s Scanner, timeout time.Duration, logger logrus.FieldLogger) *Guard {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Guard{scanner: s, timeout: timeout, logger: logger}
}

type scanResult struct {
	signal model.ThreatSignal
	err    error
}

// Scan runs the wrapped scanner. It always returns a usable signal.
func (g *Guard) Scan(ctx context.Context, pageContext string) model.ThreatSignal {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	// Buffered so a scanner that ignores ctx can still finish and exit.
	done := make(chan scanResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- scanResult{err: fmt.Errorf("scanner panic: %v", r)}
			}
		}()
		sig, err := g.scanner.Scan(ctx, pageContext)
		done <- scanResult{signal: sig, err: err}
	}()

	var res scanResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res = scanResult{err: ctx.Err()}
	}

	if res.err != nil {
		err := &model.ScanError{PageContext: pageContext, Err: res.err}
		g.logger.WithField("page", pageContext).WithError(err).Warn("scan unavailable, using neutral signal")
		return model.NeutralSignal(pageContext)
	}

	return normalize(res.signal, pageContext)
}

func normalize(sig model.ThreatSignal, pageContext string) model.ThreatSignal {
	if sig.PageContext == "" {
		sig.PageContext = pageContext
	}
	if sig.ScannedAt.IsZero() {
		sig.ScannedAt = time.Now().UTC()
	}
	if sig.InjectionPatterns == nil {
		sig.InjectionPatterns = []string{}
	} else {
		sig.InjectionPatterns = append([]string(nil), sig.InjectionPatterns...)
	}
	if sig.HiddenElementCount < 0 {
		sig.HiddenElementCount = 0
	}
	if sig.SuspiciousScriptCount < 0 {
		sig.SuspiciousScriptCount = 0
	}
	return sig
}
