package gateway

import (
	"errors"
	"net/http"

	"github.com/example/foodshop/pkg/checkout"
	"github.com/example/foodshop/pkg/identity"
	"github.com/example/foodshop/pkg/shop"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const loginPath = "/login"

type envelope struct {
	Success  bool              `json:"success"`
	Data     interface{}       `json:"data,omitempty"`
	Error    string            `json:"error,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
}

func respond(c *gin.Context, status int, data interface{}) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func reject(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, envelope{Error: msg})
}

func rejectLogin(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{Error: msg, Redirect: loginPath})
}

// fail maps a service error onto the envelope. Unknown errors are logged and hidden.
func (g *Gateway) fail(c *gin.Context, err error) {
	_ = c.Error(err)

	var verr *shop.ValidationError
	var opErr *shop.OpError
	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, envelope{Error: "Invalid data", Fields: verr.Fields})
	case errors.Is(err, checkout.ErrLoginRequired):
		rejectLogin(c, checkout.Message(err))
	case errors.Is(err, shop.ErrUserNotRegistered):
		reject(c, http.StatusNotFound, "User not found. Please register first.")
	case isIdentityError(err):
		rejectLogin(c, identity.UserMessage(err))
	case errors.Is(err, shop.ErrForbidden):
		reject(c, http.StatusForbidden, "Forbidden")
	case errors.Is(err, shop.ErrNotFound):
		reject(c, http.StatusNotFound, "Not found")
	case errors.Is(err, checkout.ErrReloginRequired):
		c.AbortWithStatusJSON(http.StatusConflict, envelope{Error: checkout.Message(err), Redirect: loginPath})
	case errors.Is(err, shop.ErrConflict):
		reject(c, http.StatusConflict, "The request conflicts with an earlier one")
	case errors.As(err, &opErr):
		g.logger.Error("Operation failed", zap.String("op", opErr.Op), zap.Error(opErr.Err))
		reject(c, http.StatusInternalServerError, opErr.Message())
	default:
		g.logger.Error("Unhandled error", zap.String("path", c.FullPath()), zap.Error(err))
		reject(c, http.StatusInternalServerError, "Internal server error")
	}
}

func isIdentityError(err error) bool {
	for _, target := range []error{
		identity.ErrInvalidToken,
		identity.ErrTokenExpired,
		identity.ErrTokenRevoked,
		identity.ErrNoPhone,
		identity.ErrInvalidSession,
		identity.ErrSessionExpired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
