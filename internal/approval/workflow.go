// Package approval holds the single pending-decision slot of a session.
package approval

import (
	"sync"
	"time"

	"github.com/ppiankov/pagegate/internal/model"
)

// TimeoutSuffix is appended to the explanation of auto-denied decisions.
const TimeoutSuffix = "; approval timed out"

// resolvedMemory bounds how many resolved handles are remembered for
// "already resolved" diagnostics.
const resolvedMemory = 256

// Workflow holds at most one pending decision. Submitting a second one while
// the slot is occupied fails with *model.BusyError; resolving an unknown or
// already-resolved handle fails with *model.InvalidStateError.
type Workflow struct {
	session   string
	timeout   time.Duration
	onResolve func(model.ActionRecord)

	mu       sync.Mutex
	pending  *decision
	resolved map[string]bool
	order    []string
}

type decision struct {
	record model.ActionRecord
	done   chan model.ActionRecord
	timer  *time.Timer
	// claimed is set once a verdict has been accepted; the slot stays
	// occupied until onResolve has seen the final record.
	claimed bool
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithTimeout auto-denies pending decisions after d. Zero disables expiry.
func WithTimeout(d time.Duration) Option {
	return func(w *Workflow) { w.timeout = d }
}

// WithOnResolve registers fn to receive every finalized record exactly once.
// It runs while the slot is still occupied, before Resolve returns.
func WithOnResolve(fn func(model.ActionRecord)) Option {
	return func(w *Workflow) { w.onResolve = fn }
}

// NewWorkflow creates an empty workflow for session.
func NewWorkflow(session string, opts ...Option) *Workflow {
	w := &Workflow{
		session:  session,
		resolved: make(map[string]bool),
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// SetTimeout changes the expiry applied to future submissions.
func (w *Workflow) SetTimeout(d time.Duration) {
	w.mu.Lock()
	w.timeout = d
	w.mu.Unlock()
}

// Submit places rec in the pending slot and returns its handle.
func (w *Workflow) Submit(rec model.ActionRecord) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.pending != nil {
		return "", &model.BusyError{Session: w.session, PendingHandle: w.pending.record.Handle}
	}

	handle := NewHandle()
	rec.Handle = handle
	rec.Status = model.StatusPending
	rec.ResolvedAt = nil

	d := &decision{record: rec, done: make(chan model.ActionRecord, 1)}
	if w.timeout > 0 {
		d.timer = time.AfterFunc(w.timeout, func() { w.expire(handle) })
	}
	w.pending = d
	return handle, nil
}

// Resolve finalizes the pending decision: APPROVE yields SUCCESS, DENY yields
// BLOCKED. The slot is free again when Resolve returns.
func (w *Workflow) Resolve(handle string, v model.Verdict) (model.ActionRecord, error) {
	return w.resolve(handle, v, "")
}

func (w *Workflow) expire(handle string) {
	_, _ = w.resolve(handle, model.Deny, TimeoutSuffix)
}

func (w *Workflow) resolve(handle string, v model.Verdict, suffix string) (model.ActionRecord, error) {
	if v != model.Approve && v != model.Deny {
		return model.ActionRecord{}, &model.InvalidStateError{Handle: handle, Reason: "unknown verdict " + string(v)}
	}

	w.mu.Lock()
	d := w.pending
	if d == nil || d.record.Handle != handle || d.claimed {
		reason := "no such pending decision"
		if w.resolved[handle] {
			reason = "already resolved"
		}
		w.mu.Unlock()
		return model.ActionRecord{}, &model.InvalidStateError{Handle: handle, Reason: reason}
	}
	d.claimed = true
	w.remember(handle)
	w.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}

	rec := d.record
	now := time.Now().UTC()
	rec.ResolvedAt = &now
	rec.Explanation += suffix
	if v == model.Approve {
		rec.Status = model.StatusSuccess
	} else {
		rec.Status = model.StatusBlocked
	}

	if w.onResolve != nil {
		w.onResolve(rec)
	}

	w.mu.Lock()
	w.pending = nil
	w.mu.Unlock()

	d.done <- rec
	close(d.done)
	return rec, nil
}

// remember must be called with mu held.
func (w *Workflow) remember(handle string) {
	w.resolved[handle] = true
	w.order = append(w.order, handle)
	if len(w.order) > resolvedMemory {
		delete(w.resolved, w.order[0])
		w.order = w.order[1:]
	}
}

// Pending returns the record awaiting a decision, if any.
func (w *Workflow) Pending() (model.ActionRecord, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return model.ActionRecord{}, false
	}
	return w.pending.record, true
}

// Done returns a channel that delivers the finalized record for handle once
// it is resolved, then closes.
func (w *Workflow) Done(handle string) (<-chan model.ActionRecord, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil || w.pending.record.Handle != handle {
		return nil, &model.InvalidStateError{Handle: handle, Reason: "no such pending decision"}
	}
	return w.pending.done, nil
}
