// Package grpcserver runs the gRPC listener of the scheduling service. It
// serves grpc.health.v1 driven by the same dependency checks as /readyz.
package grpcserver

import (
	"context"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/md-rashed-zaman/clinicsched/libs/grpcx"
	"github.com/md-rashed-zaman/clinicsched/libs/runtime"
)

// ServiceName is the health entry reported alongside the server-wide "" entry.
const ServiceName = "clinicsched.scheduling"

type Server struct {
	srv          *grpc.Server
	health       *health.Server
	logger       *slog.Logger
	checks       []runtime.ReadyCheck
	checkEvery   time.Duration
	checkTimeout time.Duration
}

func New(logger *slog.Logger, checkEvery time.Duration, checks ...runtime.ReadyCheck) *Server {
	if checkEvery <= 0 {
		checkEvery = 10 * time.Second
	}
	srv := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcx.UnaryServerRequestIDInterceptor(),
			grpcx.UnaryServerLogInterceptor(logger),
		),
	)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &Server{
		srv:          srv,
		health:       hs,
		logger:       logger,
		checks:       checks,
		checkEvery:   checkEvery,
		checkTimeout: 2 * time.Second,
	}
}

// Refresh runs every check and publishes the aggregate health status.
func (s *Server) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	results, ok := runtime.RunChecks(ctx, s.checkTimeout, s.checks...)
	for _, r := range results {
		if !r.OK {
			s.logger.Warn("dependency check failed", "check", r.Name, "err", r.Err)
		}
	}
	status := healthpb.HealthCheckResponse_SERVING
	if !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
	return status
}

// Serve accepts on lis until ctx is done, then reports NOT_SERVING and drains.
func (s *Server) Serve(ctx context.Context, lis net.Listener) {
	s.Refresh(ctx)

	go func() {
		ticker := time.NewTicker(s.checkEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Refresh(ctx)
			}
		}
	}()

	go func() {
		<-ctx.Done()
		s.health.Shutdown()
		s.srv.GracefulStop()
	}()

	s.logger.Info("grpc server starting", "addr", lis.Addr().String())
	if err := s.srv.Serve(lis); err != nil {
		s.logger.Error("grpc server error", "err", err)
	}
}

// Start listens on addr and serves in the background.
func (s *Server) Start(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	go s.Serve(ctx, lis)
	return nil
}

// Stop ends serving immediately.
func (s *Server) Stop() {
	s.health.Shutdown()
	s.srv.Stop()
}
