package gateway

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/example/foodshop/pkg/repository"
	"github.com/example/foodshop/pkg/shop"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 200
)

func (g *Gateway) auditTrail(c *gin.Context) {
	limit := int64(defaultAuditLimit)
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 || n > maxAuditLimit {
			g.fail(c, &shop.ValidationError{Fields: map[string]string{
				"limit": fmt.Sprintf("must be between 1 and %d", maxAuditLimit),
			}})
			return
		}
		limit = n
	}

	entityID := c.Param("entity_id")
	logs, err := g.deps.Audit.GetAuditLogs(c.Request.Context(), entityID, limit)
	if err != nil {
		g.logger.Error("Failed to read audit trail", zap.String("entity_id", entityID), zap.Error(err))
		reject(c, http.StatusInternalServerError, "Failed to load audit trail")
		return
	}
	if logs == nil {
		logs = []*repository.AuditLog{}
	}
	respond(c, http.StatusOK, logs)
}
