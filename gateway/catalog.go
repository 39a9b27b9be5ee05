package gateway

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/example/foodshop/pkg/shop"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

func (g *Gateway) bindPage(c *gin.Context) (shop.Page, bool) {
	var page shop.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		g.fail(c, &shop.ValidationError{Fields: map[string]string{"page": "page and limit must be numbers"}})
		return page, false
	}
	return page, true
}

func (g *Gateway) listCategories(c *gin.Context) {
	page, ok := g.bindPage(c)
	if !ok {
		return
	}
	result, err := g.deps.Catalog.ListCategories(c.Request.Context(), page)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (g *Gateway) getCategory(c *gin.Context) {
	category, err := g.deps.Catalog.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, category)
}

func (g *Gateway) createCategory(c *gin.Context) {
	var in shop.CategoryInput
	if !g.bindJSON(c, &in) {
		return
	}
	category, err := g.deps.Catalog.CreateCategory(c.Request.Context(), in)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, category)
}

func (g *Gateway) updateCategory(c *gin.Context) {
	var in shop.CategoryInput
	if !g.bindJSON(c, &in) {
		return
	}
	category, err := g.deps.Catalog.UpdateCategory(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, category)
}

func (g *Gateway) deleteCategory(c *gin.Context) {
	if err := g.deps.Catalog.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": c.Param("id")})
}

func (g *Gateway) listProducts(c *gin.Context) {
	page, ok := g.bindPage(c)
	if !ok {
		return
	}
	filter := shop.ProductFilter{
		Page:       page,
		CategoryID: c.Query("category_id"),
		Search:     c.Query("search"),
		Sort:       c.Query("sort"),
	}

	fields := map[string]string{}
	for name, dst := range map[string]**decimal.Decimal{"min_price": &filter.MinPrice, "max_price": &filter.MaxPrice} {
		raw := strings.TrimSpace(c.Query(name))
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			fields[name] = "must be a number"
			continue
		}
		*dst = &d
	}
	if len(fields) > 0 {
		g.fail(c, &shop.ValidationError{Fields: fields})
		return
	}

	result, err := g.deps.Catalog.ListProducts(c.Request.Context(), filter)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, result)
}

func (g *Gateway) getProduct(c *gin.Context) {
	product, err := g.deps.Catalog.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, product)
}

func (g *Gateway) createProduct(c *gin.Context) {
	var in shop.ProductInput
	if !g.bindJSON(c, &in) {
		return
	}
	product, err := g.deps.Catalog.CreateProduct(c.Request.Context(), in)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusCreated, product)
}

func (g *Gateway) updateProduct(c *gin.Context) {
	var in shop.ProductInput
	if !g.bindJSON(c, &in) {
		return
	}
	product, err := g.deps.Catalog.UpdateProduct(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, product)
}

func (g *Gateway) deleteProduct(c *gin.Context) {
	if err := g.deps.Catalog.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		g.fail(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"id": c.Param("id")})
}

func (g *Gateway) exportProducts(c *gin.Context) {
	filename := fmt.Sprintf("products-%s.xlsx", time.Now().UTC().Format("20060102-150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if err := g.deps.Catalog.ExportProducts(c.Request.Context(), c.Writer); err != nil {
		if c.Writer.Written() {
			g.logger.Error("Product export interrupted")
			_ = c.Error(err)
			return
		}
		c.Header("Content-Disposition", "")
		g.fail(c, err)
	}
}

// bindJSON decodes the body; malformed JSON is reported as a validation error.
func (g *Gateway) bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		g.fail(c, &shop.ValidationError{Fields: map[string]string{"body": "must be valid JSON: " + err.Error()}})
		return false
	}
	return true
}
