package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/foodshop/pkg/cart"
	"github.com/example/foodshop/pkg/checkout"
	"github.com/example/foodshop/pkg/identity"
	"github.com/example/foodshop/pkg/models"
	"github.com/example/foodshop/pkg/shop"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	userID    = "7d5c7a0e-1111-4c3e-9a55-000000000001"
	burgerID  = "7d5c7a0e-2222-4c3e-9a55-000000000002"
	sessionOK = "session-token"
)

type fakeAPI struct {
	placed     []shop.PlaceOrderRequest
	idemKeys   []string
	lookupMiss bool
	userGone   bool
}

func ok(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"success": true, "data": data})
}

func (f *fakeAPI) server(t *testing.T) *httptest.Server {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.GET("/api/v1/products", func(c *gin.Context) {
		assert.Equal(t, "burger", c.Query("search"))
		assert.Equal(t, "5", c.Query("min_price"))
		assert.Equal(t, "2", c.Query("page"))
		ok(c, http.StatusOK, shop.Paged[models.Product]{
			Items: []models.Product{{ID: burgerID, Name: "Burger", Price: decimal.RequireFromString("8.5")}},
			Total: 13, Page: 2, Limit: 12, TotalPages: 2,
		})
	})
	r.GET("/api/v1/products/:id", func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Product not found"})
	})
	r.POST("/api/v1/admin/categories", func(c *gin.Context) {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid data", "fields": gin.H{"name": "is required"}})
	})
	r.GET("/api/v1/users/lookup", func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer "+sessionOK {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Please sign in", "redirect": "/login"})
			return
		}
		if f.lookupMiss {
			ok(c, http.StatusOK, gin.H{"exists": false, "user": nil})
			return
		}
		ok(c, http.StatusOK, gin.H{"exists": true, "user": models.User{ID: userID, Mobile: c.Query("mobile")}})
	})
	r.POST("/api/v1/orders", func(c *gin.Context) {
		var req shop.PlaceOrderRequest
		require.NoError(t, c.ShouldBindJSON(&req))
		if f.userGone {
			c.JSON(http.StatusConflict, gin.H{"success": false, "error": "User record not found. Please re-login.", "redirect": "/login"})
			return
		}
		f.placed = append(f.placed, req)
		f.idemKeys = append(f.idemKeys, c.GetHeader("Idempotency-Key"))
		ok(c, http.StatusCreated, models.Order{ID: "order-1", UserID: req.UserID, Total: req.Total, Status: models.OrderStatusPending})
	})
	r.GET("/api/v1/admin/dashboard", func(c *gin.Context) {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to load dashboard"})
	})
	r.GET("/api/v1/admin/products/export", func(c *gin.Context) {
		if c.GetHeader("X-API-Key") != "let-me-in" {
			c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Forbidden"})
			return
		}
		c.Data(http.StatusOK, "application/octet-stream", []byte("PK-workbook"))
	})
	r.POST("/api/v1/auth/login", func(c *gin.Context) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(c.Request.Body).Decode(&body))
		if body["id_token"] != "otp-ana" {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid token", "redirect": "/login"})
			return
		}
		ok(c, http.StatusOK, identity.Session{Token: sessionOK, User: &models.User{ID: userID}})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_ListProducts(t *testing.T) {
	srv := (&fakeAPI{}).server(t)
	c := New(srv.URL + "/")

	minPrice := decimal.NewFromInt(5)
	page, err := c.ListProducts(context.Background(), shop.ProductFilter{
		Page:     shop.Page{Page: 2},
		Search:   "burger",
		MinPrice: &minPrice,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 13, page.Total)
	require.Len(t, page.Items, 1)
	assert.True(t, page.Items[0].Price.Equal(decimal.RequireFromString("8.5")))
}

func TestClient_ErrorsUnwrap(t *testing.T) {
	srv := (&fakeAPI{}).server(t)
	ctx := context.Background()

	_, err := New(srv.URL).GetProduct(ctx, burgerID)
	assert.ErrorIs(t, err, shop.ErrNotFound)

	err = New(srv.URL).do(ctx, http.MethodPost, "/api/v1/admin/categories", nil, map[string]string{}, nil, nil)
	var verr *shop.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "is required", verr.Fields["name"])

	_, err = New(srv.URL).Dashboard(ctx)
	assert.ErrorIs(t, err, shop.ErrOperationFailed)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Failed to load dashboard", apiErr.Message)

	_, err = New(srv.URL).Login(ctx, "wrong")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "/login", apiErr.Redirect)
	assert.ErrorIs(t, err, identity.ErrInvalidSession)
}

func TestClient_CheckoutFlow(t *testing.T) {
	api := &fakeAPI{}
	srv := api.server(t)
	ctx := context.Background()

	session, err := New(srv.URL).Login(ctx, "otp-ana")
	require.NoError(t, err)
	c := New(srv.URL, WithToken(session.Token))

	basket, err := cart.New(cart.NewMemoryStorage(), zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, basket.AddItem(cart.Product{ID: burgerID, Name: "Burger", Price: decimal.RequireFromString("8.5")}, 2))

	flow := checkout.New(c, c, zap.NewNop())
	order, err := flow.Checkout(ctx, &identity.Identity{Phone: "+15550001111"}, basket)
	require.NoError(t, err)
	assert.Equal(t, "order-1", order.ID)
	assert.Zero(t, basket.Len())

	require.Len(t, api.placed, 1)
	assert.Equal(t, userID, api.placed[0].UserID)
	assert.True(t, api.placed[0].Total.Equal(decimal.NewFromInt(17)))
	assert.NotEmpty(t, api.idemKeys[0])

	api.lookupMiss = true
	require.NoError(t, basket.AddItem(cart.Product{ID: burgerID, Name: "Burger", Price: decimal.RequireFromString("8.5")}, 1))
	_, err = flow.Checkout(ctx, &identity.Identity{Phone: "+15550001111"}, basket)
	assert.ErrorIs(t, err, checkout.ErrReloginRequired)
	assert.Equal(t, 1, basket.Len())

	api.lookupMiss, api.userGone = false, true
	_, err = flow.Checkout(ctx, &identity.Identity{Phone: "+15550001111"}, basket)
	assert.ErrorIs(t, err, checkout.ErrReloginRequired)
	assert.Equal(t, 1, basket.Len())
	assert.Len(t, api.placed, 1)
}

func TestClient_ExportProducts(t *testing.T) {
	srv := (&fakeAPI{}).server(t)
	ctx := context.Background()

	var buf bytes.Buffer
	n, err := New(srv.URL, WithAPIKey("let-me-in")).ExportProducts(ctx, &buf)
	require.NoError(t, err)
	assert.EqualValues(t, len("PK-workbook"), n)
	assert.Equal(t, "PK-workbook", buf.String())

	_, err = New(srv.URL).ExportProducts(ctx, &buf)
	assert.ErrorIs(t, err, shop.ErrForbidden)
}
