package mediator

import (
	"context"
	"sync"

	"github.com/ppiankov/pagegate/internal/approval"
	"github.com/ppiankov/pagegate/internal/model"
)

// DefaultSession is used when a caller passes an empty session ID.
const DefaultSession = "default"

// session is the per-agent mediation state. sem admits one proposal at a
// time; concurrent callers queue on it.
type session struct {
	id       string
	sem      chan struct{}
	workflow *approval.Workflow

	mu     sync.Mutex
	page   string
	signal *model.ThreatSignal
}

func (s *session) acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *session) release() { <-s.sem }

// cached returns the signal for page when it was the last page scanned.
// An empty page means the session's current page.
func (s *session) cached(page string) (model.ThreatSignal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.signal == nil {
		return model.ThreatSignal{}, false
	}
	if page != "" && page != s.page {
		return model.ThreatSignal{}, false
	}
	return *s.signal, true
}

func (s *session) remember(page string, sig model.ThreatSignal) {
	s.mu.Lock()
	s.page = page
	s.signal = &sig
	s.mu.Unlock()
}

// currentPage returns the last scanned page.
func (s *session) currentPage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page
}

func (m *Mediator) session(id string) *session {
	if id == "" {
		id = DefaultSession
	}

	m.sessMu.Lock()
	defer m.sessMu.Unlock()

	if s, ok := m.sessions[id]; ok {
		return s
	}
	s := &session{
		id:  id,
		sem: make(chan struct{}, 1),
	}
	s.workflow = approval.NewWorkflow(id,
		approval.WithTimeout(m.current().cfg.ApprovalTimeout),
		approval.WithOnResolve(m.finalize),
	)
	m.sessions[id] = s
	return s
}

func (m *Mediator) lookup(id string) (*session, bool) {
	if id == "" {
		id = DefaultSession
	}
	m.sessMu.Lock()
	defer m.sessMu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *Mediator) allSessions() []*session {
	m.sessMu.Lock()
	defer m.sessMu.Unlock()
	out := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}
