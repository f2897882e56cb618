// Package client connects agents to a remote pagegate policy server.
package client

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	pb "github.com/ppiankov/pagegate/api/proto/pagegate/v1"
	"github.com/ppiankov/pagegate/internal/model"
)

// FailClosedRuleID marks records synthesized because the server could not answer.
const FailClosedRuleID = "failclosed.unreachable"

// DefaultTimeout bounds each RPC.
const DefaultTimeout = 5 * time.Second

// Client connects to a pagegate gRPC policy server.
type Client struct {
	conn    *grpc.ClientConn
	client  *pb.MediatorClient
	session string
	timeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithSession sets the agent session every proposal belongs to.
func WithSession(id string) Option {
	return func(c *Client) { c.session = id }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a gRPC client for addr. The connection is lazy, so an
// unreachable server surfaces on the first call, not here.
func New(addr string, opts ...Option) (*Client, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to policy server: %w", err)
	}
	c := &Client{
		conn:    conn,
		client:  pb.NewMediatorClient(conn),
		timeout: DefaultTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Session returns the session ID proposals are sent under.
func (c *Client) Session() string { return c.session }

// Evaluate proposes an action to the remote mediator.
// Fail-closed: a transport or server failure yields a BLOCKED record.
// Busy sessions, bad handles, and cancelled or timed-out calls come back
// as errors.
func (c *Client) Evaluate(ctx context.Context, kind, target, goal, pageContext string) (model.ActionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Evaluate(ctx, &pb.EvaluateRequest{
		Session:     c.session,
		Kind:        kind,
		Target:      target,
		Goal:        goal,
		PageContext: pageContext,
	})
	if err != nil {
		return c.failClosed(ctx, kind, target, goal, err)
	}
	return resp.Record, nil
}

// Navigate proposes a navigation. Fail-closed like Evaluate.
func (c *Client) Navigate(ctx context.Context, url, goal string) (model.ActionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Navigate(ctx, &pb.NavigateRequest{Session: c.session, URL: url, Goal: goal})
	if err != nil {
		return c.failClosed(ctx, "navigate", url, goal, err)
	}
	return resp.Record, nil
}

// Resolve applies a verdict to a pending handle. The session is optional;
// without one the server finds the session holding the handle.
func (c *Client) Resolve(ctx context.Context, handle string, verdict model.Verdict) (model.ActionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Resolve(ctx, &pb.ResolveRequest{Session: c.session, Handle: handle, Verdict: string(verdict)})
	if err != nil {
		return model.ActionRecord{}, fromStatus(c.session, handle, err)
	}
	return resp.Record, nil
}

// Pending lists records awaiting review. An empty session lists all.
func (c *Client) Pending(ctx context.Context) ([]model.ActionRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.ListPending(ctx, &pb.ListRequest{Session: c.session})
	if err != nil {
		return nil, err
	}
	return resp.Records, nil
}

// Log returns finalized records and the overall risk on a 0..100 scale.
func (c *Client) Log(ctx context.Context) ([]model.ActionRecord, int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Log(ctx, &pb.ListRequest{Session: c.session})
	if err != nil {
		return nil, 0, err
	}
	return resp.Records, resp.OverallRisk, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// failClosed turns a transport failure into a BLOCKED record. A call that
// was cancelled or ran out of time is abandoned instead: the server may
// still hold a decision for it, so no record is made up here.
func (c *Client) failClosed(ctx context.Context, kind, target, goal string, err error) (model.ActionRecord, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return model.ActionRecord{}, fmt.Errorf("proposal abandoned: %w", ctxErr)
	}
	switch status.Code(err) {
	case codes.Aborted, codes.FailedPrecondition:
		return model.ActionRecord{}, fromStatus(c.session, "", err)
	case codes.Canceled:
		return model.ActionRecord{}, fmt.Errorf("proposal abandoned: %w", context.Canceled)
	case codes.DeadlineExceeded:
		return model.ActionRecord{}, fmt.Errorf("proposal abandoned: %w", context.DeadlineExceeded)
	}
	return model.ActionRecord{
		Timestamp:   time.Now().UTC(),
		Session:     c.session,
		Kind:        kind,
		Target:      target,
		Goal:        goal,
		RiskScore:   model.MaxRiskScore,
		Status:      model.StatusBlocked,
		Explanation: fmt.Sprintf("policy server unreachable: %s", status.Convert(err).Message()),
		RuleID:      FailClosedRuleID,
	}, nil
}

// fromStatus restores the mediator's typed errors from gRPC codes.
func fromStatus(session, handle string, err error) error {
	st := status.Convert(err)
	switch st.Code() {
	case codes.Aborted:
		return &model.BusyError{Session: session}
	case codes.FailedPrecondition:
		return &model.InvalidStateError{Handle: handle, Reason: st.Message()}
	default:
		return err
	}
}
