package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/foodshop/pkg/models"
	"github.com/example/foodshop/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type OrderStore interface {
	FindUser(ctx context.Context, id string) (*models.User, error)
	ProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, userID string, offset, limit int) ([]models.Order, int64, error)
	UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error)
}

type OrderLine struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

type PlaceOrderRequest struct {
	UserID         string          `json:"user_id" validate:"required,uuid"`
	Items          []OrderLine     `json:"items" validate:"required,min=1,dive"`
	Total          decimal.Decimal `json:"total" validate:"-"`
	IdempotencyKey string          `json:"-" validate:"max=128"`
}

type statusInput struct {
	Status string `json:"status" validate:"required,oneof=PENDING PROCESSING COMPLETED CANCELLED"`
}

// Orders places orders from submitted carts and serves order history.
type Orders struct {
	store    OrderStore
	cache    PageCache
	idem     IdempotencyStore
	audit    Auditor
	notifier Notifier
	logger   *zap.Logger
}

func NewOrders(store OrderStore, logger *zap.Logger, opts ...Option) *Orders {
	o := buildOptions(opts)
	return &Orders{
		store:    store,
		cache:    o.cache,
		idem:     o.idem,
		audit:    o.audit,
		notifier: o.notifier,
		logger:   logger.Named("orders"),
	}
}

// PlaceOrder creates a PENDING order. A user id without a user row yields
// ErrUserNotRegistered. Unit prices come from the catalog, and a submitted
// total that disagrees with them is rejected. With an idempotency key a repeated request
// returns the order created the first time.
func (o *Orders) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	req.UserID = strings.TrimSpace(req.UserID)
	if err := check(&req, nil); err != nil {
		return nil, err
	}

	if existing, ok := o.replay(ctx, req); ok {
		return existing, nil
	}

	user, err := o.store.FindUser(ctx, req.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotRegistered
	}
	if err != nil {
		return nil, fail("create order", err)
	}

	order, err := o.build(ctx, req)
	if err != nil {
		return nil, err
	}

	if o.idem != nil && req.IdempotencyKey != "" {
		owner, err := o.idem.RememberOrderKey(ctx, req.UserID, req.IdempotencyKey, order.ID)
		if err != nil {
			o.logger.Warn("Idempotency store unavailable", zap.Error(err))
		} else if owner != order.ID {
			if existing, err := o.store.GetOrder(ctx, owner); err == nil {
				return existing, nil
			}
			return nil, ErrConflict
		}
	}

	if err := o.store.CreateOrder(ctx, order); err != nil {
		o.forget(ctx, req)
		return nil, fail("create order", err)
	}
	order.User = user

	if err := o.cache.InvalidatePaths(ctx, PathDashboard); err != nil {
		o.logger.Warn("Failed to invalidate pages", zap.Error(err))
	}
	o.audit.Record("place", "order", order.ID, map[string]interface{}{
		"user_id": order.UserID,
		"total":   order.Total.String(),
		"items":   len(order.Items),
	})
	o.notifier.OrderPlaced(order, user.Mobile)
	o.logger.Info("Order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.String("total", order.Total.String()),
	)
	return order, nil
}

// build prices the submitted lines from the catalog. Repeated product lines are merged.
func (o *Orders) build(ctx context.Context, req PlaceOrderRequest) (*models.Order, error) {
	quantities := make(map[string]int, len(req.Items))
	ids := make([]string, 0, len(req.Items))
	for _, line := range req.Items {
		if _, ok := quantities[line.ProductID]; !ok {
			ids = append(ids, line.ProductID)
		}
		quantities[line.ProductID] += line.Quantity
	}

	products, err := o.store.ProductsByIDs(ctx, ids)
	if err != nil {
		return nil, fail("create order", err)
	}
	byID := make(map[string]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	order := &models.Order{
		ID:     models.NewID(),
		UserID: req.UserID,
		Status: models.OrderStatusPending,
		Total:  decimal.Zero,
	}
	for _, id := range ids {
		p, ok := byID[id]
		if !ok {
			return nil, fieldError("items", fmt.Sprintf("product %s is no longer available", id))
		}
		item := models.OrderItem{
			ID:          models.NewID(),
			OrderID:     order.ID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    quantities[id],
			Price:       p.Price,
		}
		order.Items = append(order.Items, item)
		order.Total = order.Total.Add(item.LineTotal())
	}

	if !req.Total.Equal(order.Total) {
		return nil, fieldError("total", fmt.Sprintf("does not match current prices (expected %s)", order.Total.StringFixed(2)))
	}
	return order, nil
}

func (o *Orders) replay(ctx context.Context, req PlaceOrderRequest) (*models.Order, bool) {
	if o.idem == nil || req.IdempotencyKey == "" {
		return nil, false
	}
	orderID, ok, err := o.idem.LookupOrderKey(ctx, req.UserID, req.IdempotencyKey)
	if err != nil {
		o.logger.Warn("Idempotency lookup failed", zap.Error(err))
		return nil, false
	}
	if !ok {
		return nil, false
	}
	order, err := o.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, false
	}
	o.logger.Info("Replayed order", zap.String("order_id", order.ID))
	return order, true
}

func (o *Orders) forget(ctx context.Context, req PlaceOrderRequest) {
	if o.idem == nil || req.IdempotencyKey == "" {
		return
	}
	if err := o.idem.ForgetOrderKey(ctx, req.UserID, req.IdempotencyKey); err != nil {
		o.logger.Warn("Failed to release idempotency key", zap.Error(err))
	}
}

func (o *Orders) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	order, err := o.store.GetOrder(ctx, id)
	if err != nil {
		return nil, fail("fetch order", err)
	}
	return order, nil
}

// ListOrders pages through orders, newest first. An empty userID lists every order.
func (o *Orders) ListOrders(ctx context.Context, userID string, page Page) (*Paged[models.Order], error) {
	page = page.Normalize()
	orders, total, err := o.store.ListOrders(ctx, userID, page.Offset(), page.Limit)
	if err != nil {
		return nil, fail("fetch orders", err)
	}
	return newPaged(orders, total, page), nil
}

func (o *Orders) UpdateOrderStatus(ctx context.Context, id, status string) (*models.Order, error) {
	in := statusInput{Status: strings.ToUpper(strings.TrimSpace(status))}
	if err := check(&in, nil); err != nil {
		return nil, err
	}

	order, err := o.store.UpdateOrderStatus(ctx, id, models.OrderStatus(in.Status))
	if err != nil {
		return nil, fail("update order", err)
	}

	if err := o.cache.InvalidatePaths(ctx, PathDashboard); err != nil {
		o.logger.Warn("Failed to invalidate pages", zap.Error(err))
	}
	o.audit.Record("status", "order", order.ID, map[string]interface{}{"status": in.Status})
	return order, nil
}
