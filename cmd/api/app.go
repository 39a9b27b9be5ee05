package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/foodshop/gateway"
	"github.com/example/foodshop/pkg/config"
	"github.com/example/foodshop/pkg/discovery"
	"github.com/example/foodshop/pkg/events"
	shopgrpc "github.com/example/foodshop/pkg/grpc"
	"github.com/example/foodshop/pkg/identity"
	"github.com/example/foodshop/pkg/metrics"
	"github.com/example/foodshop/pkg/repository"
	"github.com/example/foodshop/pkg/shop"
	"github.com/example/foodshop/pkg/upload"
	"go.uber.org/zap"
)

// app is every long-lived dependency of the API process.
type app struct {
	cfg    *config.Config
	logger *zap.Logger

	store      *repository.Store
	redis      *repository.RedisRepository
	mongo      *repository.MongoRepository
	dispatcher *events.Dispatcher
	metrics    *metrics.Metrics
	gateway    *gateway.Gateway
	health     *shopgrpc.HealthServer
	discovery  *discovery.ServiceDiscovery
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close(context.Background())
		}
	}()

	a.store, err = repository.NewStore(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a.redis = repository.NewRedisRepository(&cfg.Redis, &cfg.Cache)
	if err := a.redis.Ping(ctx); err != nil {
		logger.Warn("Redis connection failed, caching degrades to database reads", zap.Error(err))
	} else {
		logger.Info("Redis connected successfully", zap.String("addr", cfg.Redis.Addr))
	}

	var auditWriter events.AuditWriter
	if cfg.MongoDB.Enabled {
		a.mongo, err = repository.NewMongoRepository(&cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
		}
		auditWriter = a.mongo
		logger.Info("MongoDB connected", zap.String("database", cfg.MongoDB.Database))
	}

	a.dispatcher, err = events.Start(cfg.Server.Name, auditWriter, logger)
	if err != nil {
		return nil, err
	}
	a.metrics = metrics.New()

	storage, images, uploadDir, err := a.imageStorage()
	if err != nil {
		return nil, err
	}
	uploader := upload.NewUploader(&cfg.Upload, storage, logger)

	verifier, err := identity.NewVerifier(ctx, &cfg.Identity)
	if err != nil {
		return nil, err
	}
	sessions := identity.NewSessionManager(&cfg.Auth)

	dashQueries, err := repository.NewDashboardRepository(a.store)
	if err != nil {
		return nil, err
	}

	opts := []shop.Option{
		shop.WithPageCache(a.redis),
		shop.WithUserCache(a.redis),
		shop.WithIdempotency(a.redis),
		shop.WithImageDeleter(uploader),
		shop.WithAuditor(shop.Auditors{a.dispatcher, a.metrics}),
		shop.WithNotifier(shop.Notifiers{a.dispatcher, a.metrics}),
	}

	deps := gateway.Deps{
		Catalog:   shop.NewCatalog(a.store, logger, opts...),
		Accounts:  shop.NewAccounts(a.store, verifier, sessions, logger, opts...),
		Orders:    shop.NewOrders(a.store, logger, opts...),
		Dashboard: shop.NewDashboard(dashQueries, logger, opts...),
		Sessions:  sessions,
		Uploader:  uploader,
		UploadDir: uploadDir,
		Images:    images,
		Metrics:   a.metrics,
		Health:    a.ready,
	}
	if a.mongo != nil {
		deps.Audit = a.mongo
	}
	a.gateway = gateway.NewGateway(cfg, logger, deps)

	if cfg.GRPC.Enabled {
		a.health = shopgrpc.NewHealthServer(&cfg.GRPC, a.checks(), logger)
	}

	if len(cfg.Etcd.Endpoints) > 0 {
		sd, sdErr := discovery.NewServiceDiscovery(&cfg.Etcd, logger)
		if sdErr != nil {
			logger.Warn("Failed to connect to etcd, continuing without service discovery", zap.Error(sdErr))
		} else {
			a.discovery = sd
		}
	}

	return a, nil
}

func (a *app) imageStorage() (upload.Storage, gateway.ImageOpener, string, error) {
	if a.cfg.Upload.Backend == "gridfs" {
		bucket, err := a.mongo.Bucket()
		if err != nil {
			return nil, nil, "", fmt.Errorf("failed to open GridFS bucket: %w", err)
		}
		gfs := upload.NewGridFSStorage(bucket, a.cfg.Upload.PublicBaseURL)
		return gfs, gfs, "", nil
	}

	local, err := upload.NewLocalStorage(a.cfg.Upload.Dir, a.cfg.Upload.PublicBaseURL)
	if err != nil {
		return nil, nil, "", err
	}
	return local, nil, local.Dir(), nil
}

func (a *app) checks() map[string]shopgrpc.Checker {
	checks := map[string]shopgrpc.Checker{
		"database": shopgrpc.CheckerFunc(a.store.Ping),
		"redis":    shopgrpc.CheckerFunc(a.redis.Ping),
	}
	if a.mongo != nil {
		checks["mongodb"] = shopgrpc.CheckerFunc(a.mongo.Ping)
	}
	return checks
}

// ready backs /health. Only the database is required; Redis outages are tolerated.
func (a *app) ready(ctx context.Context) error {
	return a.store.Ping(ctx)
}

// close releases everything newApp acquired. It tolerates a partially built app.
func (a *app) close(ctx context.Context) {
	var errs []error
	if a.health != nil {
		a.health.Stop()
	}
	if a.dispatcher != nil {
		a.dispatcher.Close()
	}
	if a.discovery != nil {
		errs = append(errs, a.discovery.Close())
	}
	if a.mongo != nil {
		errs = append(errs, a.mongo.Close(ctx))
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Warn("Shutdown finished with errors", zap.Error(err))
	}
}
