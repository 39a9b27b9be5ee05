package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/foodshop/pkg/discovery"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const healthInterval = 15 * time.Second

func newServeCmd(load loader) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and the gRPC health endpoint when enabled)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, logger)
			if err != nil {
				logger.Error("Failed to start", zap.Error(err))
				return err
			}
			defer a.close(context.Background())

			if migrate {
				if err := a.store.Migrate(ctx); err != nil {
					return fmt.Errorf("failed to migrate: %w", err)
				}
			}
			return a.run(ctx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply schema migrations before serving")
	return cmd
}

// run serves until ctx is cancelled or a listener fails, then shuts down gracefully.
func (a *app) run(ctx context.Context) error {
	cfg := a.cfg
	srv := a.gateway.Server()

	errCh := make(chan error, 2)
	go func() {
		a.logger.Info("Starting API", zap.String("address", srv.Addr), zap.String("mode", cfg.Server.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	if a.health != nil {
		go func() {
			if err := a.health.Start(); err != nil {
				errCh <- fmt.Errorf("grpc health server: %w", err)
			}
		}()
		go a.health.Watch(ctx, healthInterval)
	}

	instances := a.register(ctx)

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("Received shutdown signal")
	case runErr = <-errCh:
		a.logger.Error("Listener failed", zap.Error(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	for _, inst := range instances {
		if err := a.discovery.Deregister(shutdownCtx, inst); err != nil {
			a.logger.Warn("Failed to deregister service", zap.String("name", inst.Name), zap.Error(err))
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	if a.health != nil {
		a.health.Stop()
	}

	a.logger.Info("API stopped")
	return runErr
}

// register announces the HTTP API and the gRPC endpoint in etcd.
func (a *app) register(ctx context.Context) []*discovery.ServiceInstance {
	if a.discovery == nil {
		return nil
	}

	instances := []*discovery.ServiceInstance{
		{Name: a.cfg.Server.Name, Host: a.cfg.Server.Host, Port: a.cfg.Server.Port},
	}
	if a.health != nil {
		instances = append(instances, &discovery.ServiceInstance{
			Name: grpcServiceName(a.cfg.Server.Name),
			Host: a.cfg.GRPC.Host,
			Port: a.cfg.GRPC.Port,
		})
	}

	var registered []*discovery.ServiceInstance
	for _, inst := range instances {
		if err := a.discovery.Register(ctx, inst); err != nil {
			a.logger.Warn("Failed to register service", zap.String("name", inst.Name), zap.Error(err))
			continue
		}
		a.logger.Info("Service registered in etcd", zap.String("name", inst.Name), zap.String("address", inst.Addr()))
		registered = append(registered, inst)
	}
	return registered
}

func grpcServiceName(server string) string {
	return server + "-grpc"
}
