package gateway

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/example/foodshop/pkg/config"
	"github.com/example/foodshop/pkg/identity"
	"github.com/example/foodshop/pkg/metrics"
	"github.com/example/foodshop/pkg/repository"
	"github.com/example/foodshop/pkg/shop"
	"github.com/example/foodshop/pkg/upload"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/handlers"
	"go.uber.org/zap"
)

// SessionParser turns a bearer token into session claims.
type SessionParser interface {
	Parse(token string) (*identity.Claims, error)
}

// ImageOpener streams stored images. *upload.GridFSStorage implements it.
type ImageOpener interface {
	Open(ctx context.Context, id string) (io.ReadCloser, string, error)
}

// AuditReader reads the audit trail. *repository.MongoRepository implements it.
type AuditReader interface {
	GetAuditLogs(ctx context.Context, entityID string, limit int64) ([]*repository.AuditLog, error)
}

// HealthFunc reports readiness for /health; nil means always ready.
type HealthFunc func(ctx context.Context) error

type Deps struct {
	Catalog   *shop.Catalog
	Accounts  *shop.Accounts
	Orders    *shop.Orders
	Dashboard *shop.Dashboard
	Sessions  SessionParser
	Uploader  *upload.Uploader

	// Optional.
	UploadDir string
	Images    ImageOpener
	Metrics   *metrics.Metrics
	Health    HealthFunc
	Audit     AuditReader
}

type Gateway struct {
	config *config.Config
	deps   Deps
	logger *zap.Logger
	router *gin.Engine
}

func NewGateway(cfg *config.Config, logger *zap.Logger, deps Deps) *Gateway {
	gin.SetMode(ginMode(cfg.Server.Mode))
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggerMiddleware(logger))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", headerAPIKey, headerIdempotencyKey},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: !allowsAll(cfg.CORS.AllowedOrigins),
		MaxAge:           12 * time.Hour,
	}))
	router.MaxMultipartMemory = cfg.Upload.MaxSize + 1<<20

	g := &Gateway{
		config: cfg,
		deps:   deps,
		logger: logger,
		router: router,
	}
	g.SetupRoutes()
	return g
}

func ginMode(mode string) string {
	switch mode {
	case gin.DebugMode, gin.TestMode:
		return mode
	}
	return gin.ReleaseMode
}

func allowsAll(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return len(origins) == 0
}

func (g *Gateway) SetupRoutes() {
	g.router.GET("/health", g.health)
	if g.deps.Metrics != nil {
		g.router.GET("/metrics", gin.WrapH(g.deps.Metrics.Handler()))
	}
	if g.deps.UploadDir != "" {
		g.router.Static("/uploads", g.deps.UploadDir)
	}

	v1 := g.router.Group("/api/v1")
	{
		v1.GET("/categories", g.listCategories)
		v1.GET("/categories/:id", g.getCategory)
		v1.GET("/products", g.listProducts)
		v1.GET("/products/:id", g.getProduct)
		if g.deps.Images != nil {
			v1.GET("/images/:id", g.getImage)
		}

		auth := v1.Group("/auth")
		{
			auth.POST("/register", g.register)
			auth.POST("/login", g.login)
		}

		session := v1.Group("", g.requireSession())
		{
			session.GET("/users/lookup", g.lookupUser)
			session.POST("/orders", g.placeOrder)
			session.GET("/orders", g.listMyOrders)
			session.GET("/orders/:id", g.getMyOrder)
		}

		admin := v1.Group("/admin", g.requireAdmin())
		{
			admin.POST("/upload", g.uploadImage)

			admin.POST("/categories", g.createCategory)
			admin.PUT("/categories/:id", g.updateCategory)
			admin.DELETE("/categories/:id", g.deleteCategory)

			admin.POST("/products", g.createProduct)
			admin.GET("/products/export", g.exportProducts)
			admin.PUT("/products/:id", g.updateProduct)
			admin.DELETE("/products/:id", g.deleteProduct)

			admin.GET("/orders", g.listAllOrders)
			admin.PUT("/orders/:id/status", g.updateOrderStatus)

			admin.GET("/dashboard", g.dashboard)
			if g.deps.Audit != nil {
				admin.GET("/audit/:entity_id", g.auditTrail)
			}
		}
	}
}

// Handler is the router with response compression.
func (g *Gateway) Handler() http.Handler {
	return handlers.CompressHandler(g.router)
}

func (g *Gateway) Server() *http.Server {
	return &http.Server{
		Addr:              g.config.Server.Addr(),
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func (g *Gateway) health(c *gin.Context) {
	if g.deps.Health != nil {
		if err := g.deps.Health(c.Request.Context()); err != nil {
			g.logger.Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func loggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}
		logger.Info("HTTP request", fields...)
	}
}
