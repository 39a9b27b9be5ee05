package cart

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	burger = Product{ID: "p-burger", Name: "Classic Burger", Price: decimal.RequireFromString("8.5")}
	fries  = Product{ID: "p-fries", Name: "Fries", Price: decimal.RequireFromString("3.25")}
	cola   = Product{ID: "p-cola", Name: "Cola", Price: decimal.RequireFromString("1.99")}
)

func newTestCart(t *testing.T) (*Cart, *MemoryStorage) {
	t.Helper()
	storage := NewMemoryStorage()
	c, err := New(storage, zap.NewNop())
	require.NoError(t, err)
	return c, storage
}

func expectedTotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

func TestCart_AddSameProductMerges(t *testing.T) {
	c, _ := newTestCart(t)

	require.NoError(t, c.AddItem(burger, 1))
	require.NoError(t, c.AddItem(burger, 3))

	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 4, items[0].Quantity)
	assert.Equal(t, "Classic Burger", items[0].Name)
	assert.NotEmpty(t, items[0].ID)
}

func TestCart_AddNewProductGetsFreshID(t *testing.T) {
	c, _ := newTestCart(t)

	require.NoError(t, c.AddItem(burger, 1))
	require.NoError(t, c.AddItem(fries, 1))

	items := c.Items()
	require.Len(t, items, 2)
	assert.NotEqual(t, items[0].ID, items[1].ID)
	assert.Equal(t, burger.ID, items[0].ProductID)
	assert.Equal(t, fries.ID, items[1].ProductID)
}

func TestCart_AddRejectsBadInput(t *testing.T) {
	c, _ := newTestCart(t)

	assert.ErrorIs(t, c.AddItem(burger, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, c.AddItem(burger, -2), ErrInvalidQuantity)
	assert.ErrorIs(t, c.AddItem(Product{Name: "nameless"}, 1), ErrInvalidProduct)
	assert.Zero(t, c.Len())
}

func TestCart_UpdateQuantity(t *testing.T) {
	c, _ := newTestCart(t)
	require.NoError(t, c.AddItem(burger, 2))
	require.NoError(t, c.AddItem(fries, 1))

	require.NoError(t, c.UpdateQuantity(fries.ID, 5))
	assert.Equal(t, 5, c.Items()[1].Quantity)

	require.NoError(t, c.UpdateQuantity(burger.ID, 0))
	items := c.Items()
	require.Len(t, items, 1)
	assert.Equal(t, fries.ID, items[0].ProductID)

	before := c.Items()
	require.NoError(t, c.UpdateQuantity("missing", 7))
	assert.Equal(t, before, c.Items())
}

func TestCart_RemoveItem(t *testing.T) {
	c, _ := newTestCart(t)
	require.NoError(t, c.AddItem(burger, 1))

	require.NoError(t, c.RemoveItem("missing"))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.RemoveItem(burger.ID))
	assert.Zero(t, c.Len())
}

func TestCart_Clear(t *testing.T) {
	c, _ := newTestCart(t)
	require.NoError(t, c.AddItem(burger, 2))
	require.NoError(t, c.AddItem(cola, 1))

	require.NoError(t, c.Clear())
	assert.True(t, c.Total().IsZero())
	assert.Empty(t, c.Items())
}

func TestCart_TwoBurgersCostSeventeen(t *testing.T) {
	c, _ := newTestCart(t)
	require.NoError(t, c.AddItem(burger, 2))
	assert.True(t, c.Total().Equal(decimal.RequireFromString("17")), c.Total().String())
}

func TestCart_TotalMatchesItemsForRandomSequences(t *testing.T) {
	products := []Product{burger, fries, cola}
	rng := rand.New(rand.NewSource(42))

	for run := 0; run < 50; run++ {
		c, _ := newTestCart(t)
		for step := 0; step < 40; step++ {
			p := products[rng.Intn(len(products))]
			switch rng.Intn(3) {
			case 0:
				require.NoError(t, c.AddItem(p, 1+rng.Intn(5)))
			case 1:
				require.NoError(t, c.RemoveItem(p.ID))
			case 2:
				require.NoError(t, c.UpdateQuantity(p.ID, rng.Intn(6)-1))
			}

			items := c.Items()
			assert.True(t, c.Total().Equal(expectedTotal(items)))

			seen := map[string]bool{}
			for _, it := range items {
				assert.False(t, seen[it.ProductID], "product %s appears twice", it.ProductID)
				seen[it.ProductID] = true
				assert.GreaterOrEqual(t, it.Quantity, 1)
			}
		}
	}
}

func TestCart_ItemsIsACopy(t *testing.T) {
	c, _ := newTestCart(t)
	require.NoError(t, c.AddItem(burger, 1))

	items := c.Items()
	items[0].Quantity = 99
	assert.Equal(t, 1, c.Items()[0].Quantity)
}

func TestCart_PersistsAcrossInstances(t *testing.T) {
	storage := NewMemoryStorage()
	first, err := New(storage, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, first.AddItem(burger, 2))
	require.NoError(t, first.AddItem(cola, 1))

	second, err := New(storage, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, first.Items(), second.Items())
	assert.True(t, second.Total().Equal(first.Total()))
}

type failingStorage struct {
	Storage
	err error
}

func (f *failingStorage) Save(string, interface{}) error {
	return f.err
}

func TestCart_FailedPersistLeavesCartUnchanged(t *testing.T) {
	mem := NewMemoryStorage()
	c, err := New(mem, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, c.AddItem(burger, 1))

	boom := errors.New("disk full")
	c.storage = &failingStorage{Storage: mem, err: boom}

	before := c.Items()
	assert.ErrorIs(t, c.AddItem(fries, 1), boom)
	assert.ErrorIs(t, c.UpdateQuantity(burger.ID, 3), boom)
	assert.ErrorIs(t, c.RemoveItem(burger.ID), boom)
	assert.ErrorIs(t, c.Clear(), boom)
	assert.Equal(t, before, c.Items())
}

type brokenStorage struct{}

func (brokenStorage) Load(string, interface{}) error { return errors.New("corrupt") }
func (brokenStorage) Save(string, interface{}) error { return nil }

func TestNew_LoadError(t *testing.T) {
	_, err := New(brokenStorage{}, zap.NewNop())
	assert.Error(t, err)
}

func TestCart_CheckoutKey(t *testing.T) {
	c, storage := newTestCart(t)
	require.NoError(t, c.AddItem(burger, 2))

	first, err := c.CheckoutKey()
	require.NoError(t, err)
	require.NotEmpty(t, first)

	again, err := c.CheckoutKey()
	require.NoError(t, err)
	assert.Equal(t, first, again)

	reloaded, err := New(storage, zap.NewNop())
	require.NoError(t, err)
	key, err := reloaded.CheckoutKey()
	require.NoError(t, err)
	assert.Equal(t, first, key, "the key survives a restart")

	require.NoError(t, c.UpdateQuantity(burger.ID, 3))
	edited, err := c.CheckoutKey()
	require.NoError(t, err)
	assert.NotEqual(t, first, edited)

	require.NoError(t, c.Clear())
	require.NoError(t, c.AddItem(burger, 3))
	refilled, err := c.CheckoutKey()
	require.NoError(t, err)
	assert.NotEqual(t, edited, refilled, "identical contents after a clear are a new checkout")
}
