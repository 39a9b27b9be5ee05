package grpc

import (
	"context"
	"fmt"
	"net"
	"sort"
	"sync"
	"time"

	"github.com/example/foodshop/pkg/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const checkTimeout = 2 * time.Second

// Checker reports whether one dependency is reachable.
type Checker interface {
	Ping(ctx context.Context) error
}

type CheckerFunc func(ctx context.Context) error

func (f CheckerFunc) Ping(ctx context.Context) error { return f(ctx) }

// ServiceName is the health service name a dependency is reported under.
func ServiceName(dependency string) string {
	return "foodshop." + dependency
}

// HealthServer serves grpc.health.v1 for the API. The overall status ("") is SERVING only
// while every dependency answers.
type HealthServer struct {
	cfg    *config.GRPCConfig
	srv    *grpc.Server
	health *health.Server
	checks map[string]Checker
	logger *zap.Logger

	mu       sync.Mutex
	done     chan struct{}
	stopOnce sync.Once
}

func NewHealthServer(cfg *config.GRPCConfig, checks map[string]Checker, logger *zap.Logger) *HealthServer {
	srv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	for name := range checks {
		hs.SetServingStatus(ServiceName(name), healthpb.HealthCheckResponse_NOT_SERVING)
	}
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	return &HealthServer{
		cfg:    cfg,
		srv:    srv,
		health: hs,
		checks: checks,
		logger: logger.Named("grpc-health"),
		done:   make(chan struct{}),
	}
}

// Check pings every dependency once and publishes the result. It returns the names of
// the failing dependencies.
func (s *HealthServer) Check(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	var failing []string
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := s.checks[name].Ping(cctx)
		cancel()

		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			failing = append(failing, name)
			s.logger.Warn("Dependency unhealthy", zap.String("dependency", name), zap.Error(err))
		}
		s.health.SetServingStatus(ServiceName(name), status)
	}

	overall := healthpb.HealthCheckResponse_SERVING
	if len(failing) > 0 {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", overall)
	return failing
}

// Watch re-checks the dependencies every interval until ctx is done or the server stops.
func (s *HealthServer) Watch(ctx context.Context, interval time.Duration) {
	s.Check(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.done:
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}

func (s *HealthServer) Serve(lis net.Listener) error {
	s.logger.Info("gRPC health server started", zap.String("address", lis.Addr().String()))
	return s.srv.Serve(lis)
}

func (s *HealthServer) Start() error {
	lis, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(lis)
}

func (s *HealthServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.health.Shutdown()
		s.srv.GracefulStop()
		s.logger.Info("gRPC health server stopped")
	})
}
