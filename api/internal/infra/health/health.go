package health

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const SERVICE_NAME = "mashub.webhooks"

// Probe reports whether a dependency is usable.
type Probe func(ctx context.Context) error

// Server is a grpc health server whose status follows Probe.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	probe  Probe
}

func New(probe Probe) *Server {
	s := &Server{
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
		probe:  probe,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	reflection.Register(s.grpc)
	s.health.SetServingStatus(SERVICE_NAME, healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Check runs the probe once and publishes the result for both the empty
// service name and SERVICE_NAME.
func (s *Server) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.probe(ctx); err != nil {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(SERVICE_NAME, status)
	return status
}

// Watch rechecks every interval until ctx is done.
func (s *Server) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		checkCtx, cancel := context.WithTimeout(ctx, interval)
		s.Check(checkCtx)
		cancel()

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) Serve(lis net.Listener) error {
	return s.grpc.Serve(lis)
}

func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpc.GracefulStop()
}
