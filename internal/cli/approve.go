package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pagegate/internal/model"
)

var resolveSession string

func init() {
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(denyCmd)
	approveCmd.Flags().StringVar(&resolveSession, "session", "", "Session owning the decision (default: search all)")
	denyCmd.Flags().StringVar(&resolveSession, "session", "", "Session owning the decision (default: search all)")
}

var approveCmd = &cobra.Command{
	Use:   "approve <handle>",
	Short: "Approve a pending decision",
	Long:  "Approves the pending action with this handle. The action becomes SUCCESS.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolve(args[0], model.Approve)
	},
}

var denyCmd = &cobra.Command{
	Use:   "deny <handle>",
	Short: "Deny a pending decision",
	Long:  "Denies the pending action with this handle. The action becomes BLOCKED.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return resolve(args[0], model.Deny)
	},
}

func resolve(handle string, verdict model.Verdict) error {
	c, err := newRemoteClient(resolveSession)
	if err != nil {
		return err
	}
	defer c.Close()

	rec, err := c.Resolve(context.Background(), handle, verdict)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", handle, err)
	}
	fmt.Fprintf(os.Stderr, "%s: %s %s\n", rec.Status, rec.Kind, rec.Target)
	return nil
}
