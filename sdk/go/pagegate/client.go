package pagegate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ppiankov/pagegate/internal/client"
	"github.com/ppiankov/pagegate/internal/mediator"
	"github.com/ppiankov/pagegate/internal/model"
	"github.com/ppiankov/pagegate/internal/policy"
	"github.com/ppiankov/pagegate/internal/server"
)

// Client mediates actions either in-process or through a remote server.
// Safe for concurrent use; proposals within one session are serialized.
type Client struct {
	cfg    clientConfig
	med    *mediator.Mediator
	remote *client.Client
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	cfg := clientConfig{session: mediator.DefaultSession}
	for _, o := range opts {
		o(&cfg)
	}

	if cfg.remoteAddr != "" {
		var copts []client.Option
		copts = append(copts, client.WithSession(cfg.session))
		if cfg.timeout > 0 {
			copts = append(copts, client.WithTimeout(cfg.timeout))
		}
		rc, err := client.New(cfg.remoteAddr, copts...)
		if err != nil {
			return nil, fmt.Errorf("pagegate: failed to connect: %w", err)
		}
		return &Client{cfg: cfg, remote: rc}, nil
	}

	policyCfg, hash, err := policy.LoadConfigWithHash(cfg.policyPath)
	if err != nil {
		return nil, fmt.Errorf("pagegate: failed to load policy config: %w", err)
	}
	scanner, err := server.NewScanner(cfg.fixturesPath)
	if err != nil {
		return nil, fmt.Errorf("pagegate: %w", err)
	}
	var mopts []mediator.Option
	if cfg.logger != nil {
		mopts = append(mopts, mediator.WithLogger(cfg.logger))
	}
	med, err := mediator.New(policyCfg, hash, scanner, mopts...)
	if err != nil {
		return nil, fmt.Errorf("pagegate: %w", err)
	}
	return &Client{cfg: cfg, med: med}, nil
}

// Evaluate mediates one action. A session with a decision awaiting review
// returns an error matching model.ErrBusy.
func (c *Client) Evaluate(ctx context.Context, a Action) (Result, error) {
	if a.Goal == "" {
		a.Goal = c.cfg.goal
	}

	var (
		rec model.ActionRecord
		err error
	)
	switch {
	case c.remote != nil && a.Kind == mediator.KindNavigate:
		rec, err = c.remote.Navigate(ctx, a.Target, a.Goal)
	case c.remote != nil:
		rec, err = c.remote.Evaluate(ctx, a.Kind, a.Target, a.Goal, a.Page)
	case a.Kind == mediator.KindNavigate:
		rec, err = c.med.Navigate(ctx, c.cfg.session, a.Target, a.Goal)
	default:
		rec, err = c.med.EvaluateAction(ctx, c.cfg.session, a.Kind, a.Target, a.Goal, a.Page)
	}
	if err != nil {
		return Result{}, err
	}
	return toResult(rec), nil
}

// Resolve applies a reviewer verdict to a pending decision.
func (c *Client) Resolve(ctx context.Context, handle string, approve bool) (Result, error) {
	verdict := model.Deny
	if approve {
		verdict = model.Approve
	}

	var (
		rec model.ActionRecord
		err error
	)
	if c.remote != nil {
		rec, err = c.remote.Resolve(ctx, handle, verdict)
	} else {
		rec, err = c.med.ResolvePending(c.cfg.session, handle, verdict)
	}
	if err != nil {
		return Result{}, err
	}
	return toResult(rec), nil
}

// OverallRisk returns the mean logged risk on the 0..100 scale.
func (c *Client) OverallRisk(ctx context.Context) (int, error) {
	if c.remote != nil {
		_, risk, err := c.remote.Log(ctx)
		return risk, err
	}
	return c.med.OverallRisk(), nil
}

// Close releases the remote connection and flushes pending notifications.
func (c *Client) Close() error {
	if c.remote != nil {
		return c.remote.Close()
	}
	c.med.Wait()
	return nil
}

// pollInterval is how often a remote client checks for a verdict.
var pollInterval = 250 * time.Millisecond

// await blocks on a pending handle. A handle resolved before the wait began
// is looked up in the action log.
func (c *Client) await(ctx context.Context, handle string) (Result, error) {
	if c.remote != nil {
		return c.awaitRemote(ctx, handle)
	}
	rec, err := c.med.Await(ctx, c.cfg.session, handle)
	if errors.Is(err, model.ErrInvalidPendingHandle) {
		records := c.med.Records(c.cfg.session)
		for i := len(records) - 1; i >= 0; i-- {
			if records[i].Handle == handle {
				return toResult(records[i]), nil
			}
		}
	}
	if err != nil {
		return Result{}, err
	}
	return toResult(rec), nil
}

// awaitRemote polls the server's action log until handle is finalized.
func (c *Client) awaitRemote(ctx context.Context, handle string) (Result, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		records, _, err := c.remote.Log(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("pagegate: waiting for %s: %w", handle, err)
		}
		for i := len(records) - 1; i >= 0; i-- {
			if records[i].Handle == handle && records[i].Status.Final() {
				return toResult(records[i]), nil
			}
		}
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-ticker.C:
		}
	}
}
