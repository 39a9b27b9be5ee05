package repository

import (
	"context"
	"testing"
	"time"

	"github.com/example/foodshop/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func placeTestOrder(t *testing.T, s *Store, userID string, status models.OrderStatus, at time.Time, items ...models.OrderItem) {
	t.Helper()
	total := decimal.Zero
	for i := range items {
		items[i].ID = models.NewID()
		total = total.Add(items[i].LineTotal())
	}
	require.NoError(t, s.CreateOrder(context.Background(), &models.Order{
		ID:        models.NewID(),
		UserID:    userID,
		Total:     total,
		Status:    status,
		Items:     items,
		CreatedAt: at,
	}))
}

func item(productID, name string, qty int, price string) models.OrderItem {
	return models.OrderItem{ProductID: productID, ProductName: name, Quantity: qty, Price: decimal.RequireFromString(price)}
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	dash, err := NewDashboardRepository(s)
	require.NoError(t, err)

	counts, err := dash.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{}, *counts)

	revenue, err := dash.Revenue(ctx)
	require.NoError(t, err)
	assert.True(t, revenue.IsZero())

	c := seedCategory(t, s, "Burgers", "")
	burger := seedProduct(t, s, c.ID, "Classic Burger", "8.5", "")
	fries := seedProduct(t, s, c.ID, "Fries", "3", "")
	user, err := s.UpsertUserByMobile(ctx, "+15550001234", "Ada")
	require.NoError(t, err)

	now := time.Now()
	placeTestOrder(t, s, user.ID, models.OrderStatusCompleted, now.Add(-2*time.Hour),
		item(burger.ID, burger.Name, 2, "8.5"), item(fries.ID, fries.Name, 1, "3"))
	placeTestOrder(t, s, user.ID, models.OrderStatusPending, now.Add(-time.Hour),
		item(fries.ID, fries.Name, 4, "3"))
	placeTestOrder(t, s, user.ID, models.OrderStatusCancelled, now,
		item(burger.ID, burger.Name, 10, "8.5"))

	counts, err = dash.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, Counts{Categories: 1, Products: 2, Orders: 3, Users: 1}, *counts)

	revenue, err = dash.Revenue(ctx)
	require.NoError(t, err)
	assert.True(t, revenue.Equal(decimal.RequireFromString("32")), revenue.String())

	recent, err := dash.RecentOrders(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, string(models.OrderStatusCancelled), recent[0].Status)
	assert.Equal(t, "Ada", recent[0].CustomerName)

	top, err := dash.TopProducts(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "Fries", top[0].Name)
	assert.Equal(t, int64(5), top[0].Quantity)
	assert.True(t, top[0].Revenue.Equal(decimal.NewFromInt(15)))
	assert.Equal(t, "Classic Burger", top[1].Name)
	assert.Equal(t, int64(2), top[1].Quantity)
}

func TestRankProducts(t *testing.T) {
	items := []soldItem{
		{ProductID: "a", ProductName: "A", Quantity: 1, Price: decimal.NewFromInt(1)},
		{ProductID: "b", ProductName: "B", Quantity: 3, Price: decimal.NewFromInt(1)},
		{ProductID: "a", ProductName: "A", Quantity: 2, Price: decimal.NewFromInt(1)},
		{ProductID: "c", ProductName: "C", Quantity: 1, Price: decimal.NewFromInt(1)},
	}

	ranked := rankProducts(items, 2)
	require.Len(t, ranked, 2)
	assert.Equal(t, "A", ranked[0].Name)
	assert.Equal(t, "B", ranked[1].Name)
	assert.Equal(t, int64(3), ranked[0].Quantity)
}
