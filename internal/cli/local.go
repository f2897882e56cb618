package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ppiankov/pagegate/internal/client"
	"github.com/ppiankov/pagegate/internal/mediator"
	"github.com/ppiankov/pagegate/internal/model"
	"github.com/ppiankov/pagegate/internal/policy"
	"github.com/ppiankov/pagegate/internal/server"
)

// Exit codes for evaluate and navigate.
const (
	exitBlocked = 77 // EX_NOPERM
	exitPending = 75 // EX_TEMPFAIL
)

// newLocalMediator builds an in-process mediator from the global flags.
func newLocalMediator() (*mediator.Mediator, error) {
	cfg, hash, err := policy.LoadConfigWithHash(rootPolicy)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy config: %w", err)
	}
	scanner, err := server.NewScanner(rootFixtures)
	if err != nil {
		return nil, err
	}
	return mediator.New(cfg, hash, scanner, mediator.WithLogger(logger))
}

func newRemoteClient(session string) (*client.Client, error) {
	return client.New(rootAddr, client.WithSession(session))
}

func exitCode(rec model.ActionRecord) int {
	switch rec.Status {
	case model.StatusSuccess:
		return 0
	case model.StatusPending:
		return exitPending
	default:
		return exitBlocked
	}
}

func printRecord(w io.Writer, rec model.ActionRecord, format string) error {
	if format == "json" {
		out, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(out))
		return nil
	}

	fmt.Fprintf(w, "%-8s %s %s\n", rec.Status, rec.Kind, rec.Target)
	fmt.Fprintf(w, "  risk:   %.1f/10 (%s)\n", rec.RiskScore, rec.Level())
	fmt.Fprintf(w, "  reason: %s\n", rec.Explanation)
	if rec.RuleID != "" {
		fmt.Fprintf(w, "  rule:   %s\n", rec.RuleID)
	}
	if rec.Handle != "" {
		fmt.Fprintf(w, "  handle: %s\n", rec.Handle)
	}
	return nil
}

func printTable(w io.Writer, records []model.ActionRecord) {
	fmt.Fprintf(w, "%-16s %-12s %-9s %-9s %-36s %5s  %s\n", "HANDLE", "SESSION", "STATUS", "KIND", "TARGET", "RISK", "TIME")
	for _, r := range records {
		handle := r.Handle
		if handle == "" {
			handle = "-"
		}
		fmt.Fprintf(w, "%-16s %-12s %-9s %-9s %-36s %5.1f  %s\n",
			handle,
			truncate(r.Session, 12),
			r.Status,
			r.Kind,
			truncate(r.Target, 36),
			r.RiskScore,
			r.Timestamp.Local().Format("15:04:05"),
		)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
