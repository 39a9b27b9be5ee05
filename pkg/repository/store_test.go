package repository

import (
	"context"
	"testing"
	"time"

	"github.com/example/foodshop/pkg/config"
	"github.com/example/foodshop/pkg/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	store, err := NewStore(&config.DatabaseConfig{
		Driver:       "sqlite",
		RawDSN:       "file:" + uuid.NewString() + "?mode=memory&cache=shared",
		LogLevel:     "silent",
		MaxOpenConns: 1,
	}, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func seedCategory(t *testing.T, s *Store, name, image string) *models.Category {
	t.Helper()
	c := &models.Category{ID: models.NewID(), Name: name, Image: image}
	require.NoError(t, s.CreateCategory(context.Background(), c))
	return c
}

func seedProduct(t *testing.T, s *Store, categoryID, name, price, image string) *models.Product {
	t.Helper()
	p := &models.Product{
		ID:         models.NewID(),
		Name:       name,
		Price:      decimal.RequireFromString(price),
		Image:      image,
		CategoryID: categoryID,
	}
	require.NoError(t, s.CreateProduct(context.Background(), p))
	return p
}

func TestStore_CategoryProductCount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	burgers := seedCategory(t, s, "Burgers", "https://img.example.com/burgers.png")

	got, err := s.GetCategory(ctx, burgers.ID)
	require.NoError(t, err)
	assert.Equal(t, "Burgers", got.Name)
	assert.Equal(t, int64(0), got.ProductCount)

	seedProduct(t, s, burgers.ID, "Classic Burger", "8.5", "")

	list, total, err := s.ListCategories(ctx, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, list, 1)
	assert.Equal(t, int64(1), list[0].ProductCount)
}

func TestStore_UpdateCategory(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := seedCategory(t, s, "Drinks", "https://img.example.com/a.png")

	c.Name = "Cold Drinks"
	c.Image = ""
	require.NoError(t, s.UpdateCategory(ctx, c))

	got, err := s.GetCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Cold Drinks", got.Name)
	assert.Empty(t, got.Image)

	missing := &models.Category{ID: models.NewID(), Name: "Nope"}
	assert.ErrorIs(t, s.UpdateCategory(ctx, missing), ErrNotFound)
}

func TestStore_DeleteCategoryCascades(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := seedCategory(t, s, "Pizza", "https://img.example.com/pizza.png")
	seedProduct(t, s, c.ID, "Margherita", "9", "https://img.example.com/m.png")
	seedProduct(t, s, c.ID, "Marinara", "7.5", "")
	other := seedCategory(t, s, "Salads", "")
	kept := seedProduct(t, s, other.ID, "Greek", "6", "")

	images, err := s.DeleteCategory(ctx, c.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"https://img.example.com/pizza.png", "https://img.example.com/m.png"}, images)

	_, err = s.GetCategory(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	products, total, err := s.ListProducts(ctx, ProductQuery{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, products, 1)
	assert.Equal(t, kept.ID, products[0].ID)

	_, err = s.DeleteCategory(ctx, c.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ListProductsFilters(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	burgers := seedCategory(t, s, "Burgers", "")
	drinks := seedCategory(t, s, "Drinks", "")
	seedProduct(t, s, burgers.ID, "Classic Burger", "8.5", "")
	seedProduct(t, s, burgers.ID, "Cheese Burger", "9.5", "")
	seedProduct(t, s, drinks.ID, "Cola", "2", "")

	tests := []struct {
		name  string
		query ProductQuery
		want  []string
	}{
		{
			name:  "by category sorted by name",
			query: ProductQuery{CategoryID: burgers.ID, Sort: SortName},
			want:  []string{"Cheese Burger", "Classic Burger"},
		},
		{
			name:  "search is case insensitive",
			query: ProductQuery{Search: "BURGER", Sort: SortPriceAsc},
			want:  []string{"Classic Burger", "Cheese Burger"},
		},
		{
			name: "price range",
			query: ProductQuery{
				MinPrice: decimalPtr("2"),
				MaxPrice: decimalPtr("9"),
				Sort:     SortPriceDesc,
			},
			want: []string{"Classic Burger", "Cola"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.query.Limit = 10
			products, total, err := s.ListProducts(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.want)), total)

			names := make([]string, len(products))
			for i, p := range products {
				names[i] = p.Name
				require.NotNil(t, p.Category)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestStore_ListProductsPaging(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := seedCategory(t, s, "Sides", "")
	for _, n := range []string{"Fries", "Onion Rings", "Coleslaw"} {
		seedProduct(t, s, c.ID, n, "3", "")
	}

	page, total, err := s.ListProducts(ctx, ProductQuery{Sort: SortName, Offset: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 1)
	assert.Equal(t, "Onion Rings", page[0].Name)
}

func TestStore_DeleteProduct(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := seedCategory(t, s, "Sides", "")
	p := seedProduct(t, s, c.ID, "Fries", "3", "https://img.example.com/f.png")

	image, err := s.DeleteProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/f.png", image)

	_, err = s.GetProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.DeleteProduct(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_UpsertUserByMobile(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.UpsertUserByMobile(ctx, "+15550001234", "Ada")
	require.NoError(t, err)

	second, err := s.UpsertUserByMobile(ctx, "+15550001234", "Ada Lovelace")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ada Lovelace", second.FullName)

	_, err = s.FindUserByMobile(ctx, "+15550009999")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Orders(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	user, err := s.UpsertUserByMobile(ctx, "+15550001234", "Ada")
	require.NoError(t, err)

	order := &models.Order{
		ID:     models.NewID(),
		UserID: user.ID,
		Total:  decimal.RequireFromString("17"),
		Status: models.OrderStatusPending,
		Items: []models.OrderItem{{
			ID:          models.NewID(),
			ProductID:   models.NewID(),
			ProductName: "Classic Burger",
			Quantity:    2,
			Price:       decimal.RequireFromString("8.5"),
		}},
	}
	require.NoError(t, s.CreateOrder(ctx, order))

	got, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.Total.Equal(decimal.NewFromInt(17)))
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)
	require.NotNil(t, got.User)
	assert.Equal(t, "Ada", got.User.FullName)

	orders, total, err := s.ListOrders(ctx, user.ID, 0, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, orders, 1)

	_, total, err = s.ListOrders(ctx, models.NewID(), 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)

	updated, err := s.UpdateOrderStatus(ctx, order.ID, models.OrderStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusCompleted, updated.Status)

	_, err = s.UpdateOrderStatus(ctx, models.NewID(), models.OrderStatusCompleted)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_Truncate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := seedCategory(t, s, "Burgers", "")
	seedProduct(t, s, c.ID, "Classic Burger", "8.5", "")

	require.NoError(t, s.Truncate(ctx))

	_, total, err := s.ListCategories(ctx, 0, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestStore_ListCategoriesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	older := &models.Category{ID: models.NewID(), Name: "Older", CreatedAt: time.Now().Add(-time.Hour)}
	require.NoError(t, s.CreateCategory(ctx, older))
	seedCategory(t, s, "Newer", "")

	list, _, err := s.ListCategories(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Newer", list[0].Name)
}

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
