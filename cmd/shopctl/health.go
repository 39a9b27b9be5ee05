package main

import (
	"context"
	"time"

	"github.com/example/foodshop/pkg/config"
	"github.com/example/foodshop/pkg/discovery"
	shopgrpc "github.com/example/foodshop/pkg/grpc"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var healthDependencies = []string{"database", "redis", "mongodb"}

func (c *cli) healthCmd() *cobra.Command {
	var (
		target    string
		service   string
		endpoints []string
	)
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Query the API's gRPC health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			if target == "" {
				target = c.resolveHealthTarget(ctx, endpoints, service)
			}

			hc, err := shopgrpc.NewHealthClient(target, c.logger)
			if err != nil {
				return err
			}
			defer hc.Close()

			overall, err := hc.Status(ctx, "")
			if err != nil {
				return err
			}

			rows := [][]string{{"api", overall.String()}}
			for _, dep := range healthDependencies {
				status, err := hc.Status(ctx, shopgrpc.ServiceName(dep))
				if err != nil {
					c.logger.Debug("Dependency not reported", zap.String("dependency", dep), zap.Error(err))
					continue
				}
				rows = append(rows, []string{dep, status.String()})
			}
			out := cmd.OutOrStdout()
			title(out, "%s", target)
			renderTable(out, []string{"Check", "Status"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "gRPC address; discovered through etcd when empty")
	cmd.Flags().StringVar(&service, "service", "foodshop-api-grpc", "service name registered in etcd")
	cmd.Flags().StringSliceVar(&endpoints, "etcd", nil, "etcd endpoints used for discovery")
	return cmd
}

func (c *cli) resolveHealthTarget(ctx context.Context, endpoints []string, service string) string {
	if len(endpoints) == 0 {
		return shopgrpc.DefaultTarget
	}
	sd, err := discovery.NewServiceDiscovery(&config.EtcdConfig{
		Endpoints:   endpoints,
		DialTimeout: 5 * time.Second,
		Prefix:      "/services/",
	}, c.logger)
	if err != nil {
		c.logger.Warn("Failed to connect to etcd", zap.Error(err))
		return shopgrpc.DefaultTarget
	}
	defer sd.Close()
	return shopgrpc.ResolveTarget(ctx, sd, service, shopgrpc.DefaultTarget, c.logger)
}
