package grpc

import (
	"context"
	"fmt"
	"time"

	"github.com/example/foodshop/pkg/discovery"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const DefaultTarget = "localhost:9090"

// Resolver finds registered instances of a service.
type Resolver interface {
	Discover(ctx context.Context, serviceName string) ([]*discovery.ServiceInstance, error)
}

// HealthClient queries the health service of a running API instance.
type HealthClient struct {
	conn   *grpc.ClientConn
	client healthpb.HealthClient
	logger *zap.Logger
}

// ResolveTarget asks the resolver for the service's gRPC instance and falls back to
// fallback when discovery is unavailable or empty.
func ResolveTarget(ctx context.Context, resolver Resolver, service, fallback string, logger *zap.Logger) string {
	if resolver == nil {
		return fallback
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	instances, err := resolver.Discover(ctx, service)
	if err != nil || len(instances) == 0 {
		logger.Info("Using default address", zap.String("service", service), zap.String("address", fallback))
		return fallback
	}
	target := instances[0].Addr()
	logger.Info("Discovered service", zap.String("service", service), zap.String("address", target))
	return target
}

func NewHealthClient(target string, logger *zap.Logger, opts ...grpc.DialOption) (*HealthClient, error) {
	opts = append([]grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}, opts...)
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", target, err)
	}
	return &HealthClient{conn: conn, client: healthpb.NewHealthClient(conn), logger: logger}, nil
}

// Status returns the serving status of service; "" is the whole API.
func (c *HealthClient) Status(ctx context.Context, service string) (healthpb.HealthCheckResponse_ServingStatus, error) {
	resp, err := c.client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return healthpb.HealthCheckResponse_UNKNOWN, fmt.Errorf("health check %q failed: %w", service, err)
	}
	return resp.GetStatus(), nil
}

func (c *HealthClient) Close() error {
	return c.conn.Close()
}
