package shop

import (
	"context"

	"github.com/example/foodshop/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	recentOrdersLimit = 5
	topProductsLimit  = 5
)

type DashboardQueries interface {
	Counts(ctx context.Context) (*repository.Counts, error)
	Revenue(ctx context.Context) (decimal.Decimal, error)
	RecentOrders(ctx context.Context, limit uint64) ([]repository.RecentOrder, error)
	TopProducts(ctx context.Context, limit int) ([]repository.TopProduct, error)
}

type Summary struct {
	Counts       repository.Counts        `json:"counts"`
	Revenue      decimal.Decimal          `json:"revenue"`
	RecentOrders []repository.RecentOrder `json:"recent_orders"`
	TopProducts  []repository.TopProduct  `json:"top_products"`
}

type Dashboard struct {
	queries DashboardQueries
	cache   PageCache
	logger  *zap.Logger
}

func NewDashboard(queries DashboardQueries, logger *zap.Logger, opts ...Option) *Dashboard {
	o := buildOptions(opts)
	return &Dashboard{queries: queries, cache: o.cache, logger: logger.Named("dashboard")}
}

func (d *Dashboard) Summary(ctx context.Context) (*Summary, error) {
	var cached Summary
	if ok, err := d.cache.GetPage(ctx, PathDashboard, "summary", &cached); err != nil {
		d.logger.Warn("Page cache read failed", zap.Error(err))
	} else if ok {
		return &cached, nil
	}

	counts, err := d.queries.Counts(ctx)
	if err != nil {
		return nil, fail("load dashboard", err)
	}
	revenue, err := d.queries.Revenue(ctx)
	if err != nil {
		return nil, fail("load dashboard", err)
	}
	recent, err := d.queries.RecentOrders(ctx, recentOrdersLimit)
	if err != nil {
		return nil, fail("load dashboard", err)
	}
	top, err := d.queries.TopProducts(ctx, topProductsLimit)
	if err != nil {
		return nil, fail("load dashboard", err)
	}

	summary := &Summary{
		Counts:       *counts,
		Revenue:      revenue,
		RecentOrders: recent,
		TopProducts:  top,
	}
	if err := d.cache.SetPage(ctx, PathDashboard, "summary", summary); err != nil {
		d.logger.Warn("Page cache write failed", zap.Error(err))
	}
	return summary, nil
}
