// Package mediator sits between an autonomous browsing agent and the
// browser. Every proposed action passes the allowlist gatekeeper, is scored
// against the current page's threat signal, and is either executed, blocked,
// or parked for human review.
package mediator

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/pagegate/internal/model"
	"github.com/ppiankov/pagegate/internal/notify"
	"github.com/ppiankov/pagegate/internal/policy"
	"github.com/ppiankov/pagegate/internal/scan"
	"github.com/ppiankov/pagegate/internal/scorer"
)

// KindNavigate is the action kind Navigate mediates.
const KindNavigate = "navigate"

// state is everything derived from one policy configuration. It is
// replaced wholesale on reload and never mutated.
type state struct {
	cfg      *policy.Config
	hash     string
	gate     *policy.Gatekeeper
	keywords policy.Keywords
	scorer   scorer.Scorer
	guard    *scan.Guard
	notifier *notify.Dispatcher
}

// Mediator is safe for concurrent use by many sessions.
type Mediator struct {
	scanner scan.Scanner
	logger  logrus.FieldLogger
	custom  scorer.Scorer

	mu    sync.RWMutex
	state *state

	sessMu   sync.Mutex
	sessions map[string]*session

	log Log

	// deliveries spans every dispatcher built across policy reloads.
	deliveries sync.WaitGroup
}

// Option configures a Mediator.
type Option func(*Mediator)

// WithLogger sets the structured logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(m *Mediator) { m.logger = l }
}

// WithScorer replaces the configured scorer. Policy reloads keep it.
func WithScorer(s scorer.Scorer) Option {
	return func(m *Mediator) { m.custom = s }
}

// New creates a mediator. A nil scanner falls back to the URL heuristic.
func New(cfg *policy.Config, hash string, scanner scan.Scanner, opts ...Option) (*Mediator, error) {
	if scanner == nil {
		scanner = scan.Heuristic{}
	}
	m := &Mediator{
		scanner:  scanner,
		logger:   logrus.StandardLogger(),
		sessions: make(map[string]*session),
	}
	for _, o := range opts {
		o(m)
	}

	st, err := m.build(cfg, hash)
	if err != nil {
		return nil, err
	}
	m.state = st
	return m, nil
}

func (m *Mediator) build(cfg *policy.Config, hash string) (*state, error) {
	if cfg == nil {
		cfg = policy.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy config: %w", err)
	}
	cfg = cfg.Clone()

	sc := m.custom
	if sc == nil {
		var err error
		if sc, err = scorer.New(cfg, m.logger); err != nil {
			return nil, err
		}
	}

	return &state{
		cfg:      cfg,
		hash:     hash,
		gate:     policy.NewGatekeeper(cfg.AllowedKinds),
		keywords: policy.NewKeywords(cfg.SensitiveKeywords),
		scorer:   sc,
		guard:    scan.NewGuard(m.scanner, cfg.ScanTimeout, m.logger),
		notifier: notify.NewDispatcher(cfg.Alerts, m.logger, notify.WithWaitGroup(&m.deliveries)),
	}, nil
}

func (m *Mediator) current() *state {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// SetPolicy swaps in a new configuration. In-flight evaluations finish
// under the policy they started with.
func (m *Mediator) SetPolicy(cfg *policy.Config, hash string) error {
	st, err := m.build(cfg, hash)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.state = st
	m.mu.Unlock()

	for _, s := range m.allSessions() {
		s.workflow.SetTimeout(st.cfg.ApprovalTimeout)
	}

	m.logger.WithField("policy_hash", hash).Info("policy updated")
	return nil
}

// Policy returns a copy of the active configuration and its hash.
func (m *Mediator) Policy() (*policy.Config, string) {
	st := m.current()
	return st.cfg.Clone(), st.hash
}

// EvaluateAction mediates one proposed action. Policy rejections and
// threshold breaches are returned as records, not errors. Errors are
// *model.BusyError when the session already awaits a decision, or the
// context error when the caller gave up before the scan finished.
func (m *Mediator) EvaluateAction(ctx context.Context, sessionID, kind, target, goal, pageContext string) (model.ActionRecord, error) {
	sess := m.session(sessionID)
	return m.evaluate(ctx, sess, model.ProposedAction{Kind: kind, Target: target, Goal: goal}, pageContext, false)
}

// Navigate mediates a navigation to rawURL. The destination is always
// rescanned and becomes the session's current page.
func (m *Mediator) Navigate(ctx context.Context, sessionID, rawURL, goal string) (model.ActionRecord, error) {
	u := NormalizeURL(rawURL)
	sess := m.session(sessionID)
	return m.evaluate(ctx, sess, model.ProposedAction{Kind: KindNavigate, Target: u, Goal: goal}, u, true)
}

// NormalizeURL prefixes https:// when rawURL carries no scheme.
func NormalizeURL(rawURL string) string {
	u := strings.TrimSpace(rawURL)
	if u == "" || strings.Contains(u, "://") {
		return u
	}
	return "https://" + u
}

func (m *Mediator) evaluate(ctx context.Context, sess *session, action model.ProposedAction, page string, fresh bool) (model.ActionRecord, error) {
	if err := sess.acquire(ctx); err != nil {
		return model.ActionRecord{}, err
	}
	defer sess.release()

	if p, ok := sess.workflow.Pending(); ok {
		return model.ActionRecord{}, &model.BusyError{Session: sess.id, PendingHandle: p.Handle}
	}

	st := m.current()
	rec := model.ActionRecord{
		ID:        newRecordID(),
		Timestamp: time.Now().UTC(),
		Session:   sess.id,
		Kind:      action.Kind,
		Target:    action.Target,
		Goal:      action.Goal,
	}

	if !st.gate.Check(action.Kind) {
		rec.RiskScore = model.MaxRiskScore
		rec.Status = model.StatusBlocked
		rec.Explanation = policy.RejectionExplanation
		rec.RuleID = policy.RejectionRuleID
		m.record(st, rec)
		return rec, nil
	}

	signal, err := m.signal(ctx, st, sess, page, fresh)
	if err != nil {
		m.logger.WithFields(logrus.Fields{
			"session": sess.id,
			"kind":    action.Kind,
			"target":  action.Target,
		}).Debug("proposal abandoned during scan")
		return model.ActionRecord{}, err
	}

	a := st.scorer.Score(action, signal)
	rec.RiskScore = a.Score
	rec.Explanation = a.Explanation
	rec.RuleID = a.RuleID
	rec.SensitiveDetected = st.keywords.Sensitive(action.Target)
	rec.ThreatContext = signal.RiskDetected(st.cfg.SuspiciousScriptThreshold)

	if a.Score <= st.cfg.RiskThreshold {
		rec.Status = model.StatusSuccess
		m.record(st, rec)
		return rec, nil
	}

	handle, err := sess.workflow.Submit(rec)
	if err != nil {
		return model.ActionRecord{}, err
	}
	rec.Handle = handle
	rec.Status = model.StatusPending
	m.entry(rec).Warn("action awaiting review")
	m.dispatch(st, rec, "")
	return rec, nil
}

// signal returns the threat signal for page, scanning when the session has
// no cached signal for it. A scan outlives an abandoned caller but its
// result is dropped.
func (m *Mediator) signal(ctx context.Context, st *state, sess *session, page string, fresh bool) (model.ThreatSignal, error) {
	if !fresh {
		if sig, ok := sess.cached(page); ok {
			return sig, nil
		}
		if page == "" {
			return model.NeutralSignal(""), nil
		}
	}

	done := make(chan model.ThreatSignal, 1)
	go func() {
		// Detached so the scan is not cut short by the caller; the guard
		// still enforces scan_timeout.
		done <- st.guard.Scan(context.WithoutCancel(ctx), page)
	}()

	select {
	case sig := <-done:
		sess.remember(page, sig)
		return sig, nil
	case <-ctx.Done():
		return model.ThreatSignal{}, ctx.Err()
	}
}

// ResolvePending applies a reviewer verdict to the session's pending
// decision and logs the finalized record.
func (m *Mediator) ResolvePending(sessionID, handle string, verdict model.Verdict) (model.ActionRecord, error) {
	sess, ok := m.lookup(sessionID)
	if !ok {
		return model.ActionRecord{}, &model.InvalidStateError{Handle: handle, Reason: "unknown session"}
	}
	return sess.workflow.Resolve(handle, verdict)
}

// ResolveHandle resolves handle in whichever session holds it.
func (m *Mediator) ResolveHandle(handle string, verdict model.Verdict) (model.ActionRecord, error) {
	for _, s := range m.allSessions() {
		if p, ok := s.workflow.Pending(); ok && p.Handle == handle {
			return s.workflow.Resolve(handle, verdict)
		}
	}
	return model.ActionRecord{}, &model.InvalidStateError{Handle: handle, Reason: "no such pending decision"}
}

// Await blocks until handle is resolved or ctx is done.
func (m *Mediator) Await(ctx context.Context, sessionID, handle string) (model.ActionRecord, error) {
	sess, ok := m.lookup(sessionID)
	if !ok {
		return model.ActionRecord{}, &model.InvalidStateError{Handle: handle, Reason: "unknown session"}
	}
	ch, err := sess.workflow.Done(handle)
	if err != nil {
		return model.ActionRecord{}, err
	}
	select {
	case rec := <-ch:
		return rec, nil
	case <-ctx.Done():
		return model.ActionRecord{}, ctx.Err()
	}
}

// Pending lists records awaiting review, ordered by session. An empty
// sessionID lists every session.
func (m *Mediator) Pending(sessionID string) []model.ActionRecord {
	var out []model.ActionRecord
	for _, s := range m.allSessions() {
		if sessionID != "" && s.id != sessionID {
			continue
		}
		if p, ok := s.workflow.Pending(); ok {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Session < out[j].Session })
	return out
}

// CurrentPage returns the last page scanned for the session.
func (m *Mediator) CurrentPage(sessionID string) string {
	sess, ok := m.lookup(sessionID)
	if !ok {
		return ""
	}
	return sess.currentPage()
}

// Records returns logged (finalized) records in append order.
func (m *Mediator) Records(sessionID string) []model.ActionRecord {
	return m.log.Records(sessionID)
}

// OverallRisk is the mean logged risk on a 0..100 scale.
func (m *Mediator) OverallRisk() int {
	return m.log.OverallRisk()
}

// Summary counts logged outcomes and outstanding reviews.
func (m *Mediator) Summary() Summary {
	return summarize(m.log.Records(""), len(m.Pending("")))
}

// Wait blocks until in-flight webhook deliveries finish, including those
// started under a policy that has since been replaced.
func (m *Mediator) Wait() {
	m.deliveries.Wait()
}

// finalize receives every resolved pending record exactly once.
func (m *Mediator) finalize(rec model.ActionRecord) {
	st := m.current()
	m.record(st, rec)
	m.dispatch(st, rec, notify.EventResolved)
}

func (m *Mediator) record(st *state, rec model.ActionRecord) {
	m.log.Append(rec)

	e := m.entry(rec)
	switch rec.Status {
	case model.StatusBlocked:
		e.Warn("action blocked")
	default:
		e.Info("action finalized")
	}
	if rec.ResolvedAt == nil {
		m.dispatch(st, rec, "")
	}
}

func (m *Mediator) entry(rec model.ActionRecord) *logrus.Entry {
	return m.logger.WithFields(logrus.Fields{
		"session": rec.Session,
		"kind":    rec.Kind,
		"target":  rec.Target,
		"score":   rec.RiskScore,
		"status":  rec.Status,
		"rule":    rec.RuleID,
	})
}

func (m *Mediator) dispatch(st *state, rec model.ActionRecord, eventType string) {
	if st.notifier == nil {
		return
	}
	st.notifier.Dispatch(notify.Event{
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Session:     rec.Session,
		RecordID:    rec.ID,
		Kind:        rec.Kind,
		Target:      rec.Target,
		Status:      string(rec.Status),
		RiskScore:   rec.RiskScore,
		Explanation: rec.Explanation,
		Handle:      rec.Handle,
		PolicyHash:  st.hash,
		Type:        eventType,
	})
}

// newRecordID returns a time-ordered record ID.
func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
