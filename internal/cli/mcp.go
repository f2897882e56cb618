package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	pgmcp "github.com/ppiankov/pagegate/internal/mcp"
)

var mcpSession string

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().StringVar(&mcpSession, "session", "", "Session used when a tool call names none")
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP tool server for agent integration",
	Long: "Runs pagegate as an MCP (Model Context Protocol) server over stdio.\n" +
		"Exposes mediation tools: evaluate, navigate, resolve, pending, log.",
	RunE: runMCP,
}

func runMCP(cmd *cobra.Command, args []string) error {
	srv, err := pgmcp.New(pgmcp.Config{
		PolicyPath:   rootPolicy,
		FixturesPath: rootFixtures,
		Session:      mcpSession,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down MCP server...")
		cancel()
	}()

	fmt.Fprintln(os.Stderr, "pagegate MCP server running on stdio")
	fmt.Fprintln(os.Stderr)

	err = srv.Run(ctx)
	srv.Mediator().Wait()

	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "Mediation summary:")
	out, _ := json.MarshalIndent(srv.Mediator().Summary(), "", "  ")
	fmt.Fprintln(os.Stderr, string(out))

	return err
}
