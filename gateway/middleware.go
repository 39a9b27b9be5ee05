package gateway

import (
	"net/http"
	"strings"

	"github.com/example/foodshop/pkg/identity"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	headerAPIKey         = "X-API-Key"
	headerIdempotencyKey = "Idempotency-Key"

	ctxClaims = "claims"
)

// requireAdmin checks X-API-Key against the configured bcrypt hash.
func (g *Gateway) requireAdmin() gin.HandlerFunc {
	hash := []byte(g.config.Admin.APIKeyHash)
	return func(c *gin.Context) {
		key := c.GetHeader(headerAPIKey)
		if key == "" || len(hash) == 0 {
			reject(c, http.StatusUnauthorized, "Invalid or missing API key")
			return
		}
		if err := bcrypt.CompareHashAndPassword(hash, []byte(key)); err != nil {
			g.logger.Warn("Rejected admin key", zap.String("path", c.Request.URL.Path))
			reject(c, http.StatusUnauthorized, "Invalid or missing API key")
			return
		}
		c.Next()
	}
}

// requireSession parses the bearer session token and stores its claims on the context.
func (g *Gateway) requireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			rejectLogin(c, "Please sign in to continue.")
			return
		}

		claims, err := g.deps.Sessions.Parse(strings.TrimSpace(token))
		if err != nil {
			rejectLogin(c, identity.UserMessage(err))
			return
		}
		c.Set(ctxClaims, claims)
		c.Next()
	}
}

func sessionClaims(c *gin.Context) *identity.Claims {
	v, ok := c.Get(ctxClaims)
	if !ok {
		return nil
	}
	claims, _ := v.(*identity.Claims)
	return claims
}
