package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pagegate/internal/policy"
	"github.com/ppiankov/pagegate/internal/server"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start gRPC mediation server",
	Long: "Runs pagegate as a central mediation server over gRPC.\n" +
		"Agents connect as clients and fail closed when the server is unreachable.\n" +
		"Supports hot-reload of the policy file.",
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	srv, err := server.New(server.Config{
		Addr:         rootAddr,
		PolicyPath:   rootPolicy,
		FixturesPath: rootFixtures,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	policyPath := rootPolicy
	if policyPath == "" {
		policyPath = policy.DefaultPath()
	}
	reloader, err := server.NewReloader(srv, []string{policyPath})
	if err != nil {
		logger.WithError(err).Warn("hot-reload disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if reloader != nil {
		go reloader.Run(ctx)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\nShutting down mediation server...")
		cancel()
		srv.GracefulStop()
	}()

	fmt.Fprintf(os.Stderr, "pagegate mediation server listening on %s\n", rootAddr)
	if reloader != nil && len(reloader.Paths()) > 0 {
		fmt.Fprintf(os.Stderr, "Policy: %s (hot-reload enabled)\n", reloader.Paths()[0])
	}
	fmt.Fprintln(os.Stderr)

	return srv.Serve()
}
