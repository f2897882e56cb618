// Package mcp exposes the mediator as Model Context Protocol tools so an
// agent host can route every browser action through pagegate.
package mcp

import (
	"context"
	"fmt"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sirupsen/logrus"

	"github.com/ppiankov/pagegate/internal/mediator"
	"github.com/ppiankov/pagegate/internal/policy"
	"github.com/ppiankov/pagegate/internal/server"
)

// Version is reported in the MCP implementation info.
const Version = "0.1.0"

// Config holds MCP server configuration.
type Config struct {
	PolicyPath   string
	FixturesPath string
	// Session is used when a tool call names none.
	Session string
}

// Server wraps the MCP SDK server with an in-process mediator.
type Server struct {
	mcpServer *mcpsdk.Server
	med       *mediator.Mediator
	session   string
	logger    logrus.FieldLogger
}

// New creates an MCP server with loaded policy and tools.
func New(cfg Config, logger logrus.FieldLogger) (*Server, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	policyCfg, policyHash, err := policy.LoadConfigWithHash(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy config: %w", err)
	}

	scanner, err := server.NewScanner(cfg.FixturesPath)
	if err != nil {
		return nil, err
	}

	med, err := mediator.New(policyCfg, policyHash, scanner, mediator.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create mediator: %w", err)
	}

	session := cfg.Session
	if session == "" {
		session = mediator.DefaultSession
	}

	s := &Server{
		med:     med,
		session: session,
		logger:  logger,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    "pagegate",
			Version: Version,
		},
		nil,
	)

	s.registerTools()
	return s, nil
}

// Run starts the MCP server on stdio transport. Blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	defer s.med.Wait()
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

// Mediator returns the mediator behind the tools.
func (s *Server) Mediator() *mediator.Mediator { return s.med }

// registerTools adds all pagegate tools to the MCP server.
func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "pagegate_evaluate",
		Description: "Propose a browser action (click, type, navigate, scroll, extract). Returns SUCCESS when it may run, BLOCKED when it must not, or PENDING with a handle when a human must decide.",
	}, s.handleEvaluate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "pagegate_navigate",
		Description: "Propose navigating to a URL. The destination page is scanned for prompt injection before the decision.",
	}, s.handleNavigate)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "pagegate_resolve",
		Description: "Approve or deny a PENDING action by handle. Only call this with a human reviewer's verdict.",
	}, s.handleResolve)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "pagegate_pending",
		Description: "List actions awaiting human review.",
	}, s.handlePending)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "pagegate_log",
		Description: "Show finalized actions and the session's overall risk.",
	}, s.handleLog)
}
