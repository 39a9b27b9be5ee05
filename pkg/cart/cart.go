// Package cart holds a shopper's in-progress selection before checkout.
//
// A Cart is owned by a single caller and is not safe for concurrent use. Every mutation is
// written to Storage before it is applied, so a failed write leaves the cart as it was.
package cart

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	// StorageKey is the entry the cart lines are persisted under.
	StorageKey = "shopping-cart"
	// CheckoutStorageKey holds the idempotency key of the checkout in progress.
	CheckoutStorageKey = "shopping-cart-checkout"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidProduct  = errors.New("product id is required")
)

// Product is the part of a catalog product the cart snapshots.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Image string
}

type Item struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
}

// LineTotal is price × quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Cart struct {
	storage Storage
	items   []Item
	logger  *zap.Logger
}

// New loads the persisted cart from storage. A missing entry is an empty cart.
func New(storage Storage, logger *zap.Logger) (*Cart, error) {
	c := &Cart{storage: storage, logger: logger.Named("cart")}

	var items []Item
	err := storage.Load(StorageKey, &items)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, fmt.Errorf("failed to load cart: %w", err)
	default:
		c.items = items
	}
	return c, nil
}

// AddItem adds quantity units of p. An existing line for the same product grows instead of
// a second line being added.
func (c *Cart) AddItem(p Product, quantity int) error {
	if p.ID == "" {
		return ErrInvalidProduct
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	next := c.Items()
	for i := range next {
		if next[i].ProductID == p.ID {
			next[i].Quantity += quantity
			return c.commit(next)
		}
	}

	next = append(next, Item{
		ID:        uuid.NewString(),
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Image:     p.Image,
		Quantity:  quantity,
	})
	return c.commit(next)
}

func (c *Cart) RemoveItem(productID string) error {
	next := make([]Item, 0, len(c.items))
	for _, it := range c.items {
		if it.ProductID != productID {
			next = append(next, it)
		}
	}
	if len(next) == len(c.items) {
		return nil
	}
	return c.commit(next)
}

// UpdateQuantity sets the quantity of productID. Below 1 the line is removed; an unknown
// product is ignored.
func (c *Cart) UpdateQuantity(productID string, quantity int) error {
	if quantity < 1 {
		return c.RemoveItem(productID)
	}

	next := c.Items()
	for i := range next {
		if next[i].ProductID == productID {
			next[i].Quantity = quantity
			return c.commit(next)
		}
	}
	return nil
}

// Clear empties the cart and ends the checkout in progress, if any.
func (c *Cart) Clear() error {
	if err := c.commit([]Item{}); err != nil {
		return err
	}
	if err := c.storage.Save(CheckoutStorageKey, pendingCheckout{}); err != nil {
		c.logger.Warn("Failed to reset checkout key", zap.Error(err))
	}
	return nil
}

type pendingCheckout struct {
	Key   string   `json:"key"`
	Lines []string `json:"lines"`
}

// CheckoutKey returns the idempotency key for ordering the current contents. Retrying a
// checkout of an unchanged cart gets the same key; any edit, or clearing the cart and
// filling it again, starts a new one.
func (c *Cart) CheckoutKey() (string, error) {
	lines := c.lineState()

	var pending pendingCheckout
	err := c.storage.Load(CheckoutStorageKey, &pending)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return "", fmt.Errorf("failed to load checkout key: %w", err)
	case pending.Key != "" && slices.Equal(pending.Lines, lines):
		return pending.Key, nil
	}

	pending = pendingCheckout{Key: uuid.NewString(), Lines: lines}
	if err := c.storage.Save(CheckoutStorageKey, pending); err != nil {
		return "", fmt.Errorf("failed to persist checkout key: %w", err)
	}
	return pending.Key, nil
}

// lineState identifies the cart contents by line id and quantity. Line ids are fresh for
// every added product, so a refilled cart never matches an earlier one.
func (c *Cart) lineState() []string {
	lines := make([]string, len(c.items))
	for i, it := range c.items {
		lines[i] = it.ID + ":" + strconv.Itoa(it.Quantity)
	}
	return lines
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.LineTotal())
	}
	return total
}

// Items returns a copy of the cart lines in insertion order.
func (c *Cart) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

func (c *Cart) Len() int {
	return len(c.items)
}

func (c *Cart) commit(next []Item) error {
	if err := c.storage.Save(StorageKey, next); err != nil {
		c.logger.Warn("Failed to persist cart", zap.Error(err))
		return fmt.Errorf("failed to persist cart: %w", err)
	}
	c.items = next
	return nil
}
