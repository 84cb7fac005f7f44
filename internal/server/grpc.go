// Package server builds the gRPC server: the standard health service and the
// token-protected session service, behind otelgrpc instrumentation plus logging
// and bearer-token interceptors.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"auth-service/internal/logging"
	"auth-service/internal/server/interceptors"
)

// PublicMethods are callable without a Bearer token.
var PublicMethods = map[string]bool{
	grpc_health_v1.Health_Check_FullMethodName: true,
}

// Deps holds the collaborators the gRPC server needs.
type Deps struct {
	// Verifier checks Bearer tokens on protected RPCs, usually *service.AuthService.
	Verifier interceptors.TokenVerifier
	// Health is the health server registered on the gRPC server. If nil, one is created.
	Health *grpchealth.Server
	Logger logging.Logger
}

// GRPCServer wraps a grpc.Server with its health server.
type GRPCServer struct {
	grpc   *grpc.Server
	health *grpchealth.Server
	logger logging.Logger
}

// NewGRPCServer creates the server and registers its services.
func NewGRPCServer(deps Deps) *GRPCServer {
	hs := deps.Health
	if hs == nil {
		hs = grpchealth.NewServer()
	}
	s := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			interceptors.TelemetryUnary(deps.Logger, PublicMethods),
			interceptors.AuthUnary(deps.Verifier, PublicMethods),
		),
	)
	RegisterServices(s, hs)
	return &GRPCServer{grpc: s, health: hs, logger: deps.Logger}
}

// RegisterServices registers the gRPC services with s.
func RegisterServices(s grpc.ServiceRegistrar, hs *grpchealth.Server) {
	grpc_health_v1.RegisterHealthServer(s, hs)
	RegisterSessionServiceServer(s, NewSessionServer())
}

// Serve accepts connections on lis until ctx is cancelled, then drains gracefully.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	s.logger.Info(ctx, "gRPC server listening", "addr", lis.Addr().String())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpc.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpc.GracefulStop()
		return serveResult(<-serveErr)
	case err := <-serveErr:
		return serveResult(err)
	}
}

func serveResult(err error) error {
	if err == nil || errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return fmt.Errorf("serve gRPC: %w", err)
}
