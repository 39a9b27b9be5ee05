package gateway

import (
	"errors"
	"net/http"
	"strings"

	"github.com/example/foodshop/pkg/checkout"
	"github.com/example/foodshop/pkg/shop"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type placeOrderBody struct {
	UserID string           `json:"user_id"`
	Items  []shop.OrderLine `json:"items"`
	Total  decimal.Decimal  `json:"total"`
}

type statusBody struct {
	Status string `json:"status"`
}

func (g *Gateway) placeOrder(c *gin.Context) {
	claims := sessionClaims(c)

	var body placeOrderBody
	if !g.bindJSON(c, &body) {
		return
	}
	if body.UserID != "" && body.UserID != claims.Subject {
		g.fail(c, shop.ErrForbidden)
		return
	}

	order, err := g.deps.Orders.PlaceOrder(c.Request.Context(), shop.PlaceOrderRequest{
		UserID:         claims.Subject,
		Items:          body.Items,
		Total:          body.Total,
		IdempotencyKey: strings.TrimSpace(c.GetHeader(headerIdempotencyKey)),
	})
	if errors.Is(err, shop.ErrUserNotRegistered) {
		// The session outlived its user row.
		g.fail(c, checkout.ErrReloginRequired)
		return
	}
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, order)
}

func (g *Gateway) listMyOrders(c *gin.Context) {
	page, ok := g.bindPage(c)
	if !ok {
		return
	}
	result, err := g.deps.Orders.ListOrders(c.Request.Context(), sessionClaims(c).Subject, page)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

// getMyOrder answers 404 for orders of other users so ids cannot be probed.
func (g *Gateway) getMyOrder(c *gin.Context) {
	order, err := g.deps.Orders.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.fail(c, err)
		return
	}
	if order.UserID != sessionClaims(c).Subject {
		g.fail(c, shop.ErrNotFound)
		return
	}
	respond(c, http.StatusOK, order)
}

func (g *Gateway) listAllOrders(c *gin.Context) {
	page, ok := g.bindPage(c)
	if !ok {
		return
	}
	result, err := g.deps.Orders.ListOrders(c.Request.Context(), c.Query("user_id"), page)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (g *Gateway) updateOrderStatus(c *gin.Context) {
	var body statusBody
	if !g.bindJSON(c, &body) {
		return
	}
	order, err := g.deps.Orders.UpdateOrderStatus(c.Request.Context(), c.Param("id"), body.Status)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, order)
}

func (g *Gateway) dashboard(c *gin.Context) {
	summary, err := g.deps.Dashboard.Summary(c.Request.Context())
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, summary)
}
