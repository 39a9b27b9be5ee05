package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/foodshop/pkg/cart"
	"github.com/example/foodshop/pkg/identity"
	"github.com/example/foodshop/pkg/models"
	"github.com/example/foodshop/pkg/shop"
	"go.uber.org/zap"
)

var (
	ErrLoginRequired   = errors.New("login required")
	ErrEmptyCart       = errors.New("cart is empty")
	ErrReloginRequired = errors.New("user record not found")
)

// Message is the shopper-facing text for a checkout error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrLoginRequired):
		return "Please sign in to place your order."
	case errors.Is(err, ErrEmptyCart):
		return "Your cart is empty."
	case errors.Is(err, ErrReloginRequired):
		return "User record not found. Please re-login."
	}
	return "Failed to place order. Please try again."
}

type UserResolver interface {
	CheckUserExists(ctx context.Context, mobile string) (*models.User, bool, error)
}

type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req shop.PlaceOrderRequest) (*models.Order, error)
}

// Flow turns the shopper's cart into an order.
type Flow struct {
	users  UserResolver
	orders OrderPlacer
	logger *zap.Logger
}

func New(users UserResolver, orders OrderPlacer, logger *zap.Logger) *Flow {
	return &Flow{users: users, orders: orders, logger: logger.Named("checkout")}
}

// Checkout places an order for the cart contents. The cart is cleared only after the order
// is stored; on any failure it is left as it was.
func (f *Flow) Checkout(ctx context.Context, id *identity.Identity, c *cart.Cart) (*models.Order, error) {
	if id == nil {
		return nil, ErrLoginRequired
	}
	items := c.Items()
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}

	user, ok, err := f.users.CheckUserExists(ctx, id.Phone)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrReloginRequired
	}

	key, err := c.CheckoutKey()
	if err != nil {
		return nil, fmt.Errorf("failed to prepare checkout: %w", err)
	}

	lines := make([]shop.OrderLine, len(items))
	for i, item := range items {
		lines[i] = shop.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity}
	}

	order, err := f.orders.PlaceOrder(ctx, shop.PlaceOrderRequest{
		UserID:         user.ID,
		Items:          lines,
		Total:          c.Total(),
		IdempotencyKey: key,
	})
	if errors.Is(err, shop.ErrUserNotRegistered) {
		f.logger.Warn("User record vanished before the order was placed", zap.String("user_id", user.ID))
		return nil, ErrReloginRequired
	}
	if err != nil {
		f.logger.Warn("Checkout failed", zap.String("user_id", user.ID), zap.Error(err))
		return nil, err
	}

	if err := c.Clear(); err != nil {
		f.logger.Error("Failed to clear cart after checkout", zap.String("order_id", order.ID), zap.Error(err))
	}
	f.logger.Info("Checkout complete",
		zap.String("order_id", order.ID),
		zap.Int("items", len(items)),
		zap.String("total", order.Total.String()),
	)
	return order, nil
}
