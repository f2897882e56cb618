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
	navGoal    string
	navSession string
	navRemote  bool
	navFormat  string
)

func init() {
	rootCmd.AddCommand(navigateCmd)
	navigateCmd.Flags().StringVar(&navGoal, "goal", "", "The user's task the navigation serves")
	navigateCmd.Flags().StringVar(&navSession, "session", "", "Agent session")
	navigateCmd.Flags().BoolVar(&navRemote, "remote", false, "Evaluate on the policy server at --addr")
	navigateCmd.Flags().StringVarP(&navFormat, "format", "f", "text", "Output format (text|json)")
}

var navigateCmd = &cobra.Command{
	Use:   "navigate <url>",
	Short: "Mediate a navigation after scanning the destination",
	Long: "Scans the destination page and mediates a navigate action to it.\n" +
		"https:// is assumed when the URL has no scheme.\n\n" +
		"Exit code 0 on SUCCESS, 77 on BLOCKED, 75 when still PENDING.",
	Args: cobra.ExactArgs(1),
	RunE: runNavigate,
}

func runNavigate(cmd *cobra.Command, args []string) error {
	url := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		rec model.ActionRecord
		err error
	)
	if navRemote {
		rec, err = evaluateRemote(navSession, func(c remoteEvaluator) (model.ActionRecord, error) {
			return c.Navigate(ctx, url, navGoal)
		})
	} else {
		rec, err = evaluateLocal(navSession, review.NewTerminal(), func(m *mediator.Mediator) (model.ActionRecord, error) {
			return m.Navigate(ctx, navSession, url, navGoal)
		})
	}
	if err != nil {
		return err
	}

	if err := printRecord(os.Stdout, rec, navFormat); err != nil {
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
