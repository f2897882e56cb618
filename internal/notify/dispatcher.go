package notify

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Dispatcher fans out events to matching webhooks.
type Dispatcher struct {
	hooks  []Webhook
	logger logrus.FieldLogger
	wg     *sync.WaitGroup
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithWaitGroup tracks deliveries on wg, so several dispatchers can be
// drained together.
func WithWaitGroup(wg *sync.WaitGroup) DispatcherOption {
	return func(d *Dispatcher) { d.wg = wg }
}

// NewDispatcher creates a Dispatcher from webhook configurations.
// Returns nil if hooks is empty (callers should nil-check).
func NewDispatcher(hooks []Webhook, logger logrus.FieldLogger, opts ...DispatcherOption) *Dispatcher {
	if len(hooks) == 0 {
		return nil
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	d := &Dispatcher{hooks: hooks, logger: logger, wg: &sync.WaitGroup{}}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Dispatch sends the event to every webhook whose Events list matches
// event.Status or event.Type. It does not block the caller.
func (d *Dispatcher) Dispatch(event Event) {
	for _, h := range d.hooks {
		if !matches(h.Events, event) {
			continue
		}
		d.wg.Add(1)
		go func(h Webhook) {
			defer d.wg.Done()
			if err := Send(h, event); err != nil {
				d.logger.WithFields(logrus.Fields{
					"url":    h.URL,
					"record": event.RecordID,
				}).WithError(err).Warn("webhook delivery failed")
			}
		}(h)
	}
}

// Wait blocks until every in-flight delivery has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func matches(events []string, event Event) bool {
	for _, e := range events {
		if e == event.Status {
			return true
		}
		if event.Type != "" && e == event.Type {
			return true
		}
	}
	return false
}
