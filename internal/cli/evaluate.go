package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pagegate/internal/mediator"
	"github.com/ppiankov/pagegate/internal/model"
	"github.com/ppiankov/pagegate/internal/review"
)

var (
	evalGoal    string
	evalPage    string
	evalSession string
	evalRemote  bool
	evalFormat  string
)

func init() {
	rootCmd.AddCommand(evaluateCmd)
	evaluateCmd.Flags().StringVar(&evalGoal, "goal", "", "The user's task the action serves")
	evaluateCmd.Flags().StringVar(&evalPage, "page", "", "URL of the page the action happens on")
	evaluateCmd.Flags().StringVar(&evalSession, "session", "", "Agent session")
	evaluateCmd.Flags().BoolVar(&evalRemote, "remote", false, "Evaluate on the policy server at --addr")
	evaluateCmd.Flags().StringVarP(&evalFormat, "format", "f", "text", "Output format (text|json)")
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <kind> <target>",
	Short: "Mediate a single proposed action",
	Long: "Runs one action through the gatekeeper, page scan, and risk scorer.\n" +
		"Locally, a PENDING action is put to the reviewer at the terminal\n" +
		"(denied when stdin is not a terminal). With --remote, a PENDING action\n" +
		"stays queued on the server for 'pagegate approve'.\n\n" +
		"Exit code 0 on SUCCESS, 77 on BLOCKED, 75 when still PENDING.",
	Args: cobra.ExactArgs(2),
	RunE: runEvaluate,
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	kind, target := args[0], args[1]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		rec model.ActionRecord
		err error
	)
	if evalRemote {
		rec, err = evaluateRemote(evalSession, func(c remoteEvaluator) (model.ActionRecord, error) {
			return c.Evaluate(ctx, kind, target, evalGoal, evalPage)
		})
	} else {
		rec, err = evaluateLocal(evalSession, review.NewTerminal(), func(m *mediator.Mediator) (model.ActionRecord, error) {
			return m.EvaluateAction(ctx, evalSession, kind, target, evalGoal, evalPage)
		})
	}
	if err != nil {
		return err
	}

	if err := printRecord(os.Stdout, rec, evalFormat); err != nil {
		return err
	}
	if code := exitCode(rec); code != 0 {
		if rec.Status == model.StatusPending {
			fmt.Fprintf(os.Stderr, "awaiting review: pagegate approve %s\n", rec.Handle)
		}
		os.Exit(code)
	}
	return nil
}

type remoteEvaluator interface {
	Evaluate(ctx context.Context, kind, target, goal, pageContext string) (model.ActionRecord, error)
	Navigate(ctx context.Context, url, goal string) (model.ActionRecord, error)
}

func evaluateRemote(session string, call func(remoteEvaluator) (model.ActionRecord, error)) (model.ActionRecord, error) {
	c, err := newRemoteClient(session)
	if err != nil {
		return model.ActionRecord{}, err
	}
	defer c.Close()
	return call(c)
}

// evaluateLocal mediates with an in-process mediator and settles a PENDING
// outcome with the reviewer before returning.
func evaluateLocal(session string, reviewer *review.Prompter, call func(*mediator.Mediator) (model.ActionRecord, error)) (model.ActionRecord, error) {
	m, err := newLocalMediator()
	if err != nil {
		return model.ActionRecord{}, err
	}
	defer m.Wait()

	rec, err := call(m)
	if err != nil {
		return model.ActionRecord{}, err
	}
	return settle(m, session, rec, reviewer)
}

func settle(m *mediator.Mediator, session string, rec model.ActionRecord, reviewer *review.Prompter) (model.ActionRecord, error) {
	if rec.Status != model.StatusPending {
		return rec, nil
	}
	return m.ResolvePending(session, rec.Handle, reviewer.Ask(rec))
}
