// Package server exposes a Mediator over gRPC so several agents can share
// one policy and one review queue.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pb "github.com/ppiankov/pagegate/api/proto/pagegate/v1"
	"github.com/ppiankov/pagegate/internal/mediator"
	"github.com/ppiankov/pagegate/internal/model"
	"github.com/ppiankov/pagegate/internal/policy"
	"github.com/ppiankov/pagegate/internal/scan"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = "127.0.0.1:50051"

// Config holds gRPC server configuration.
type Config struct {
	Addr         string
	PolicyPath   string
	FixturesPath string
}

// Server implements the pagegate.v1.Mediator gRPC service.
type Server struct {
	med    *mediator.Mediator
	cfg    Config
	logger logrus.FieldLogger

	grpcServer *grpc.Server
}

// New loads policy and page fixtures and creates the server.
func New(cfg Config, logger logrus.FieldLogger) (*Server, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}

	policyCfg, policyHash, err := policy.LoadConfigWithHash(cfg.PolicyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load policy config: %w", err)
	}

	scanner, err := NewScanner(cfg.FixturesPath)
	if err != nil {
		return nil, err
	}

	med, err := mediator.New(policyCfg, policyHash, scanner, mediator.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create mediator: %w", err)
	}

	s := &Server{
		med:        med,
		cfg:        cfg,
		logger:     logger,
		grpcServer: grpc.NewServer(grpc.UnaryInterceptor(logInterceptor(logger))),
	}
	pb.RegisterMediatorServer(s.grpcServer, s)
	return s, nil
}

// NewScanner builds the page scanner: fixture snapshots when a fixture file
// is given, falling back to the URL heuristic.
func NewScanner(fixturesPath string) (scan.Scanner, error) {
	if fixturesPath == "" {
		return scan.Heuristic{}, nil
	}
	src, err := scan.LoadFixtures(fixturesPath)
	if err != nil {
		return nil, err
	}
	return scan.Chain{scan.NewPatternScanner(src), scan.Heuristic{}}, nil
}

// Mediator returns the mediator behind the server.
func (s *Server) Mediator() *mediator.Mediator { return s.med }

// Serve listens on the configured address. Blocks until stopped.
func (s *Server) Serve() error {
	lis, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr, err)
	}
	return s.grpcServer.Serve(lis)
}

// ServeOn starts the gRPC server on the given listener. For testing.
func (s *Server) ServeOn(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// GracefulStop gracefully shuts down the gRPC server and flushes webhooks.
func (s *Server) GracefulStop() {
	s.grpcServer.GracefulStop()
	s.med.Wait()
}

// Evaluate implements the Evaluate RPC.
func (s *Server) Evaluate(ctx context.Context, req *pb.EvaluateRequest) (*pb.RecordResponse, error) {
	if req.Kind == "" {
		return nil, status.Error(codes.InvalidArgument, "kind is required")
	}
	rec, err := s.med.EvaluateAction(ctx, req.Session, req.Kind, req.Target, req.Goal, req.PageContext)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.recordResponse(rec), nil
}

// Navigate implements the Navigate RPC.
func (s *Server) Navigate(ctx context.Context, req *pb.NavigateRequest) (*pb.RecordResponse, error) {
	if req.URL == "" {
		return nil, status.Error(codes.InvalidArgument, "url is required")
	}
	rec, err := s.med.Navigate(ctx, req.Session, req.URL, req.Goal)
	if err != nil {
		return nil, toStatus(err)
	}
	return s.recordResponse(rec), nil
}

// Resolve implements the Resolve RPC.
func (s *Server) Resolve(ctx context.Context, req *pb.ResolveRequest) (*pb.RecordResponse, error) {
	verdict, ok := model.ParseVerdict(req.Verdict)
	if !ok {
		return nil, status.Errorf(codes.InvalidArgument, "unknown verdict %q", req.Verdict)
	}

	var (
		rec model.ActionRecord
		err error
	)
	if req.Session == "" {
		rec, err = s.med.ResolveHandle(req.Handle, verdict)
	} else {
		rec, err = s.med.ResolvePending(req.Session, req.Handle, verdict)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return s.recordResponse(rec), nil
}

// ListPending implements the ListPending RPC.
func (s *Server) ListPending(ctx context.Context, req *pb.ListRequest) (*pb.ListResponse, error) {
	return &pb.ListResponse{
		Records:     s.med.Pending(req.Session),
		OverallRisk: s.med.OverallRisk(),
	}, nil
}

// Log implements the Log RPC.
func (s *Server) Log(ctx context.Context, req *pb.ListRequest) (*pb.ListResponse, error) {
	return &pb.ListResponse{
		Records:     s.med.Records(req.Session),
		OverallRisk: s.med.OverallRisk(),
	}, nil
}

// ReloadPolicy reloads the policy file and swaps it into the mediator.
// Called by the hot-reloader on file change.
func (s *Server) ReloadPolicy() error {
	policyCfg, policyHash, err := policy.LoadConfigWithHash(s.cfg.PolicyPath)
	if err != nil {
		return fmt.Errorf("failed to reload policy config: %w", err)
	}
	return s.med.SetPolicy(policyCfg, policyHash)
}

func (s *Server) recordResponse(rec model.ActionRecord) *pb.RecordResponse {
	_, hash := s.med.Policy()
	return &pb.RecordResponse{Record: rec, PolicyHash: hash}
}

// toStatus maps mediator errors onto gRPC codes clients can branch on.
func toStatus(err error) error {
	switch {
	case errors.Is(err, model.ErrBusy):
		return status.Error(codes.Aborted, err.Error())
	case errors.Is(err, model.ErrInvalidPendingHandle):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}

func logInterceptor(logger logrus.FieldLogger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		entry := logger.WithFields(logrus.Fields{
			"method":   info.FullMethod,
			"duration": time.Since(start).String(),
			"code":     status.Code(err).String(),
		})
		if err != nil {
			entry.WithError(err).Debug("rpc failed")
		} else {
			entry.Debug("rpc")
		}
		return resp, err
	}
}
