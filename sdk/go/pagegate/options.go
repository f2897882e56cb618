package pagegate

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	policyPath   string
	fixturesPath string
	session      string
	goal         string
	remoteAddr   string
	timeout      time.Duration
	logger       logrus.FieldLogger
}

// WithPolicy sets the path to a policy YAML file.
func WithPolicy(path string) Option {
	return func(c *clientConfig) { c.policyPath = path }
}

// WithFixtures sets the path to a page snapshot fixtures file.
func WithFixtures(path string) Option {
	return func(c *clientConfig) { c.fixturesPath = path }
}

// WithSession names the agent session decisions belong to.
func WithSession(id string) Option {
	return func(c *clientConfig) { c.session = id }
}

// WithGoal sets the default goal attached to actions that carry none.
func WithGoal(goal string) Option {
	return func(c *clientConfig) { c.goal = goal }
}

// WithRemote evaluates on the pagegate server at addr instead of in-process.
func WithRemote(addr string) Option {
	return func(c *clientConfig) { c.remoteAddr = addr }
}

// WithTimeout bounds each remote call.
func WithTimeout(d time.Duration) Option {
	return func(c *clientConfig) { c.timeout = d }
}

// WithLogger sets the logger for the in-process mediator.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *clientConfig) { c.logger = l }
}

// WrapOption configures a single Wrap call.
type WrapOption func(*wrapConfig)

type wrapConfig struct {
	waitForApproval bool
}

// WaitForApproval makes the wrapped function block on a PENDING decision
// until a reviewer resolves it, instead of returning a BlockedError.
// Remote clients poll the server's action log; bound the wait with ctx.
func WaitForApproval() WrapOption {
	return func(w *wrapConfig) { w.waitForApproval = true }
}
