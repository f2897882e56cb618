package pagegate

import (
	"context"
	"errors"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ppiankov/pagegate/internal/client"
	"github.com/ppiankov/pagegate/internal/model"
	"github.com/ppiankov/pagegate/internal/server"
)

func newTestClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	base := []Option{
		WithPolicy(filepath.Join(t.TempDir(), "policy.yaml")),
		WithLogger(l),
		WithSession("test"),
	}
	c, err := New(append(base, opts...)...)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func requireBlocked(t *testing.T, err error) *BlockedError {
	t.Helper()
	if err == nil {
		t.Fatal("expected blocked error, got nil")
	}
	var be *BlockedError
	if !errors.As(err, &be) {
		t.Fatalf("expected *BlockedError, got %T: %v", err, err)
	}
	return be
}

func TestWrapAllowsBenignClick(t *testing.T) {
	c := newTestClient(t)
	inner := func(ctx context.Context, a Action) (any, error) {
		return "clicked", nil
	}
	wrapped := c.Wrap(inner)

	result, err := wrapped(context.Background(), Action{Kind: "click", Target: "#search-flights-btn"})
	if err != nil {
		t.Fatalf("expected allow, got error: %v", err)
	}
	if result != "clicked" {
		t.Errorf("expected result \"clicked\", got %v", result)
	}
}

func TestWrapBlocksUnlistedKind(t *testing.T) {
	c := newTestClient(t)
	called := false
	wrapped := c.Wrap(func(ctx context.Context, a Action) (any, error) {
		called = true
		return nil, nil
	})

	_, err := wrapped(context.Background(), Action{Kind: "execute_shell", Target: "rm -rf /"})
	be := requireBlocked(t, err)
	if be.Status != Blocked || be.RiskScore != 10 {
		t.Errorf("expected BLOCKED at 10, got %s at %.1f", be.Status, be.RiskScore)
	}
	if called {
		t.Error("inner function should not be called when blocked")
	}
}

func TestWrapPendingThenResolve(t *testing.T) {
	c := newTestClient(t)
	wrapped := c.Wrap(func(ctx context.Context, a Action) (any, error) {
		t.Fatal("inner should not be called while pending")
		return nil, nil
	})

	_, err := wrapped(context.Background(), Action{Kind: "navigate", Target: "malicious.com/admin"})
	be := requireBlocked(t, err)
	if be.Status != Pending || be.Handle == "" {
		t.Fatalf("expected PENDING with handle, got %s %q", be.Status, be.Handle)
	}
	if be.RuleID != "threat_sensitive" {
		t.Errorf("expected threat_sensitive rule, got %s", be.RuleID)
	}

	// Session is busy until the reviewer answers.
	if _, err := c.Evaluate(context.Background(), Action{Kind: "scroll", Target: "down"}); !errors.Is(err, model.ErrBusy) {
		t.Errorf("expected busy error, got %v", err)
	}

	res, err := c.Resolve(context.Background(), be.Handle, false)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Status != Blocked {
		t.Errorf("expected denial to block, got %s", res.Status)
	}

	if _, err := c.Resolve(context.Background(), be.Handle, true); !errors.Is(err, model.ErrInvalidPendingHandle) {
		t.Errorf("expected invalid handle on second resolve, got %v", err)
	}
}

func TestWrapWaitForApproval(t *testing.T) {
	c := newTestClient(t)
	wrapped := c.Wrap(func(ctx context.Context, a Action) (any, error) {
		return "paid", nil
	}, WaitForApproval())

	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if p := c.med.Pending("test"); len(p) == 1 {
				c.Resolve(context.Background(), p[0].Handle, true)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	result, err := wrapped(ctx, Action{Kind: "navigate", Target: "malicious.com/admin"})
	if err != nil {
		t.Fatalf("expected approval to let the action run, got %v", err)
	}
	if result != "paid" {
		t.Errorf("expected inner result, got %v", result)
	}
}

func TestDefaultGoalApplied(t *testing.T) {
	c := newTestClient(t, WithGoal("book a flight"))
	if _, err := c.Evaluate(context.Background(), Action{Kind: "click", Target: "#search"}); err != nil {
		t.Fatal(err)
	}
	recs := c.med.Records("test")
	if len(recs) != 1 || recs[0].Goal != "book a flight" {
		t.Errorf("expected default goal on record, got %+v", recs)
	}
}

func TestOverallRisk(t *testing.T) {
	c := newTestClient(t)
	c.Evaluate(context.Background(), Action{Kind: "click", Target: "#search"})
	c.Evaluate(context.Background(), Action{Kind: "execute_shell", Target: "ls"})

	risk, err := c.OverallRisk(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	// (2 + 10) / 2 * 10
	if risk != 60 {
		t.Errorf("expected overall risk 60, got %d", risk)
	}
}

func TestRemoteFailsClosed(t *testing.T) {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := lis.Addr().String()
	lis.Close()

	c := newTestClient(t, WithRemote(addr), WithTimeout(300*time.Millisecond))
	wrapped := c.Wrap(func(ctx context.Context, a Action) (any, error) {
		t.Fatal("inner should not be called when the server is unreachable")
		return nil, nil
	})

	_, err = wrapped(context.Background(), Action{Kind: "click", Target: "#search"})
	be := requireBlocked(t, err)
	if be.RuleID != client.FailClosedRuleID {
		t.Errorf("expected fail-closed rule, got %s", be.RuleID)
	}
}

func startServer(t *testing.T) string {
	t.Helper()
	l := logrus.New()
	l.SetOutput(io.Discard)
	srv, err := server.New(server.Config{PolicyPath: filepath.Join(t.TempDir(), "policy.yaml")}, l)
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go srv.ServeOn(lis)
	t.Cleanup(srv.GracefulStop)
	return lis.Addr().String()
}

func TestRemoteWaitForApproval(t *testing.T) {
	old := pollInterval
	pollInterval = 10 * time.Millisecond
	defer func() { pollInterval = old }()

	c := newTestClient(t, WithRemote(startServer(t)))
	wrapped := c.Wrap(func(ctx context.Context, a Action) (any, error) {
		return "navigated", nil
	}, WaitForApproval())

	go func() {
		deadline := time.Now().Add(2 * time.Second)
		for time.Now().Before(deadline) {
			if p, err := c.remote.Pending(context.Background()); err == nil && len(p) == 1 {
				c.Resolve(context.Background(), p[0].Handle, true)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	result, err := wrapped(ctx, Action{Kind: "navigate", Target: "malicious.com/admin"})
	if err != nil {
		t.Fatalf("expected remote approval to let the action run, got %v", err)
	}
	if result != "navigated" {
		t.Errorf("expected inner result, got %v", result)
	}
}
