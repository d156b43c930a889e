// Package healthsvc implements the engine's optional gRPC health endpoint
// (Component P): a minimal server exposing the standard health-checking protocol plus
// reflection, so operators and load balancers can probe "mpcore serve" the same way
// they would any other gRPC service, without the engine needing its own ad-hoc
// health-check wire format.
package healthsvc

import (
	"fmt"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/mpengine/mpcore/internal/obslog"
	"github.com/mpengine/mpcore/internal/term"
)

// serviceName is the name under which the engine reports its own health, distinct
// from the empty "" overall-server entry grpc_health_v1 also supports.
const serviceName = "mpcore.Engine"

// Server wraps a gRPC server exposing only health and reflection. It starts in the
// NOT_SERVING state; Start flips it to SERVING once the listener is up, and it flips
// back to NOT_SERVING as the first step of graceful shutdown.
type Server struct {
	addr   string
	logger obslog.Logger

	grpcServer *grpc.Server
	health     *health.Server

	termID int
}

// NewServer builds a health server listening on addr (host:port). A nil logger falls
// back to the process-wide default.
func NewServer(addr string, logger obslog.Logger) *Server {
	if logger == nil {
		logger = obslog.Global()
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthServer.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	s := &Server{
		addr:       addr,
		logger:     logger,
		grpcServer: grpcServer,
		health:     healthServer,
	}
	s.termID = term.Global().RegisterCallback(func(recovered any) {
		s.shutdown(recovered != nil)
	})
	return s
}

// Start opens addr and blocks serving gRPC until the listener fails or Shutdown stops
// it. Callers that want the health endpoint running alongside other work should call
// this in its own goroutine.
func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	s.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_SERVING)
	s.logger.Info("health service listening on %s", s.addr)

	if err := s.grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("serve health service: %w", err)
	}
	return nil
}

// Shutdown flips the reported status to NOT_SERVING and gracefully stops the gRPC
// server, waiting for in-flight health checks to finish.
func (s *Server) Shutdown() {
	term.Global().RemoveCallback(s.termID)
	s.shutdown(false)
}

func (s *Server) shutdown(fromPanic bool) {
	s.health.SetServingStatus(serviceName, healthpb.HealthCheckResponse_NOT_SERVING)
	if fromPanic {
		s.logger.Warn("health service shutting down after unrecovered panic")
		s.grpcServer.Stop()
		return
	}
	s.logger.Info("health service shutting down")
	s.grpcServer.GracefulStop()
}
