package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var pendingSession string

func init() {
	rootCmd.AddCommand(pendingCmd)
	pendingCmd.Flags().StringVar(&pendingSession, "session", "", "Only list this session (default all)")
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List decisions awaiting review on the server",
	RunE:  runPending,
}

func runPending(cmd *cobra.Command, args []string) error {
	c, err := newRemoteClient(pendingSession)
	if err != nil {
		return err
	}
	defer c.Close()

	records, err := c.Pending(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list pending decisions: %w", err)
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stderr, "No pending decisions.")
		return nil
	}
	printTable(os.Stdout, records)
	return nil
}
