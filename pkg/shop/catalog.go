package shop

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/foodshop/pkg/models"
	"github.com/example/foodshop/pkg/repository"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CatalogStore interface {
	ListCategories(ctx context.Context, offset, limit int) ([]models.Category, int64, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	CategoryExists(ctx context.Context, id string) (bool, error)
	CreateCategory(ctx context.Context, category *models.Category) error
	UpdateCategory(ctx context.Context, category *models.Category) error
	DeleteCategory(ctx context.Context, id string) ([]string, error)

	ListProducts(ctx context.Context, q repository.ProductQuery) ([]models.Product, int64, error)
	AllProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	CreateProduct(ctx context.Context, product *models.Product) error
	UpdateProduct(ctx context.Context, product *models.Product) error
	DeleteProduct(ctx context.Context, id string) (string, error)
}

type CategoryInput struct {
	Name  string `json:"name" validate:"required,min=3,max=100"`
	Image string `json:"image" validate:"omitempty,url"`
}

func (in *CategoryInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Image = strings.TrimSpace(in.Image)
}

type ProductInput struct {
	Name        string          `json:"name" validate:"required,min=3,max=100"`
	Description string          `json:"description" validate:"max=2000"`
	Price       decimal.Decimal `json:"price" validate:"-"`
	Image       string          `json:"image" validate:"omitempty,url"`
	CategoryID  string          `json:"category_id" validate:"required,uuid"`
}

func (in *ProductInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Image = strings.TrimSpace(in.Image)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
}

func (in *ProductInput) validate() error {
	extra := map[string]string{}
	switch {
	case in.Price.LessThan(minPrice):
		extra["price"] = "must be at least " + minPrice.String()
	case in.Price.GreaterThan(maxPrice):
		extra["price"] = "must be at most " + maxPrice.String()
	case !in.Price.Equal(in.Price.Round(2)):
		extra["price"] = "must have at most 2 decimal places"
	}
	return check(in, extra)
}

type ProductFilter struct {
	Page
	CategoryID string           `json:"category_id" validate:"omitempty,uuid"`
	Search     string           `json:"search" validate:"max=100"`
	MinPrice   *decimal.Decimal `json:"min_price" validate:"-"`
	MaxPrice   *decimal.Decimal `json:"max_price" validate:"-"`
	Sort       string           `json:"sort" validate:"omitempty,oneof=newest price_asc price_desc name"`
}

func (f *ProductFilter) key() string {
	dec := func(d *decimal.Decimal) string {
		if d == nil {
			return ""
		}
		return d.String()
	}
	return fmt.Sprintf("category=%s&search=%s&min=%s&max=%s&sort=%s&%s",
		f.CategoryID, strings.ToLower(f.Search), dec(f.MinPrice), dec(f.MaxPrice), f.Sort, f.Page.key())
}

// Catalog runs the category and product actions: validate, persist, drop cached pages,
// clean up replaced images and record an audit entry.
type Catalog struct {
	store  CatalogStore
	cache  PageCache
	images ImageDeleter
	audit  Auditor
	logger *zap.Logger
}

func NewCatalog(store CatalogStore, logger *zap.Logger, opts ...Option) *Catalog {
	o := buildOptions(opts)
	return &Catalog{
		store:  store,
		cache:  o.cache,
		images: o.images,
		audit:  o.audit,
		logger: logger.Named("catalog"),
	}
}

// --- categories ---

func (c *Catalog) ListCategories(ctx context.Context, page Page) (*Paged[models.Category], error) {
	page = page.Normalize()

	var cached Paged[models.Category]
	if c.cached(ctx, PathCategories, page.key(), &cached) {
		return &cached, nil
	}

	categories, total, err := c.store.ListCategories(ctx, page.Offset(), page.Limit)
	if err != nil {
		return nil, fail("fetch categories", err)
	}

	result := newPaged(categories, total, page)
	c.remember(ctx, PathCategories, page.key(), result)
	return result, nil
}

func (c *Catalog) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	category, err := c.store.GetCategory(ctx, id)
	if err != nil {
		return nil, fail("fetch category", err)
	}
	return category, nil
}

func (c *Catalog) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	in.normalize()
	if err := check(&in, nil); err != nil {
		return nil, err
	}

	category := &models.Category{ID: models.NewID(), Name: in.Name, Image: in.Image}
	if err := c.store.CreateCategory(ctx, category); err != nil {
		return nil, fail("create category", err)
	}

	c.changed(ctx, "create", "category", category.ID, map[string]interface{}{"name": category.Name, "image": category.Image})
	return category, nil
}

func (c *Catalog) UpdateCategory(ctx context.Context, id string, in CategoryInput) (*models.Category, error) {
	in.normalize()
	if err := check(&in, nil); err != nil {
		return nil, err
	}

	category, err := c.store.GetCategory(ctx, id)
	if err != nil {
		return nil, fail("update category", err)
	}
	oldImage := category.Image

	category.Name = in.Name
	category.Image = in.Image
	if err := c.store.UpdateCategory(ctx, category); err != nil {
		return nil, fail("update category", err)
	}

	if oldImage != "" && oldImage != category.Image {
		c.deleteImages(ctx, oldImage)
	}
	c.changed(ctx, "update", "category", category.ID, map[string]interface{}{"name": category.Name, "image": category.Image})
	return category, nil
}

// DeleteCategory removes the category and its products, then their images.
func (c *Catalog) DeleteCategory(ctx context.Context, id string) error {
	images, err := c.store.DeleteCategory(ctx, id)
	if err != nil {
		return fail("delete category", err)
	}

	c.deleteImages(ctx, images...)
	c.changed(ctx, "delete", "category", id, map[string]interface{}{"images": len(images)})
	return nil
}

// --- products ---

func (c *Catalog) ListProducts(ctx context.Context, f ProductFilter) (*Paged[models.Product], error) {
	f.Page = f.Page.Normalize()
	f.Search = strings.TrimSpace(f.Search)

	extra := map[string]string{}
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		extra["min_price"] = "must not exceed max_price"
	}
	if err := check(&f, extra); err != nil {
		return nil, err
	}

	var cached Paged[models.Product]
	if c.cached(ctx, PathProducts, f.key(), &cached) {
		return &cached, nil
	}

	products, total, err := c.store.ListProducts(ctx, repository.ProductQuery{
		CategoryID: f.CategoryID,
		Search:     f.Search,
		MinPrice:   f.MinPrice,
		MaxPrice:   f.MaxPrice,
		Sort:       repository.ProductSort(f.Sort),
		Offset:     f.Offset(),
		Limit:      f.Limit,
	})
	if err != nil {
		return nil, fail("fetch products", err)
	}

	result := newPaged(products, total, f.Page)
	c.remember(ctx, PathProducts, f.key(), result)
	return result, nil
}

func (c *Catalog) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	product, err := c.store.GetProduct(ctx, id)
	if err != nil {
		return nil, fail("fetch product", err)
	}
	return product, nil
}

func (c *Catalog) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	if err := c.requireCategory(ctx, in.CategoryID, "create product"); err != nil {
		return nil, err
	}

	product := &models.Product{
		ID:          models.NewID(),
		Name:        in.Name,
		Description: in.Description,
		Price:       in.Price,
		Image:       in.Image,
		CategoryID:  in.CategoryID,
	}
	if err := c.store.CreateProduct(ctx, product); err != nil {
		return nil, fail("create product", err)
	}

	c.changed(ctx, "create", "product", product.ID, productData(product))
	return product, nil
}

func (c *Catalog) UpdateProduct(ctx context.Context, id string, in ProductInput) (*models.Product, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	product, err := c.store.GetProduct(ctx, id)
	if err != nil {
		return nil, fail("update product", err)
	}
	if in.CategoryID != product.CategoryID {
		if err := c.requireCategory(ctx, in.CategoryID, "update product"); err != nil {
			return nil, err
		}
	}
	oldImage := product.Image

	product.Name = in.Name
	product.Description = in.Description
	product.Price = in.Price
	product.Image = in.Image
	product.CategoryID = in.CategoryID
	product.Category = nil
	if err := c.store.UpdateProduct(ctx, product); err != nil {
		return nil, fail("update product", err)
	}

	if oldImage != "" && oldImage != product.Image {
		c.deleteImages(ctx, oldImage)
	}
	c.changed(ctx, "update", "product", product.ID, productData(product))
	return product, nil
}

func (c *Catalog) DeleteProduct(ctx context.Context, id string) error {
	image, err := c.store.DeleteProduct(ctx, id)
	if err != nil {
		return fail("delete product", err)
	}

	if image != "" {
		c.deleteImages(ctx, image)
	}
	c.changed(ctx, "delete", "product", id, nil)
	return nil
}

func (c *Catalog) requireCategory(ctx context.Context, id, op string) error {
	ok, err := c.store.CategoryExists(ctx, id)
	if err != nil {
		return fail(op, err)
	}
	if !ok {
		return fieldError("category_id", "category does not exist")
	}
	return nil
}

func productData(p *models.Product) map[string]interface{} {
	return map[string]interface{}{
		"name":        p.Name,
		"price":       p.Price.String(),
		"category_id": p.CategoryID,
		"image":       p.Image,
	}
}

// --- helpers ---

func (c *Catalog) cached(ctx context.Context, path, variant string, dest interface{}) bool {
	ok, err := c.cache.GetPage(ctx, path, variant, dest)
	if err != nil {
		c.logger.Warn("Page cache read failed", zap.String("path", path), zap.Error(err))
		return false
	}
	return ok
}

func (c *Catalog) remember(ctx context.Context, path, variant string, value interface{}) {
	if err := c.cache.SetPage(ctx, path, variant, value); err != nil {
		c.logger.Warn("Page cache write failed", zap.String("path", path), zap.Error(err))
	}
}

// changed runs after every successful mutation.
func (c *Catalog) changed(ctx context.Context, action, entity, id string, data map[string]interface{}) {
	if err := c.cache.InvalidatePaths(ctx, catalogPaths...); err != nil {
		c.logger.Warn("Failed to invalidate pages", zap.Strings("paths", catalogPaths), zap.Error(err))
	}
	c.audit.Record(action, entity, id, data)
	c.logger.Info("Catalog changed",
		zap.String("action", action),
		zap.String("entity", entity),
		zap.String("id", id),
	)
}

// deleteImages never fails the caller; a leftover image is only worth a warning.
func (c *Catalog) deleteImages(ctx context.Context, urls ...string) {
	for _, url := range urls {
		if err := c.images.Delete(ctx, url); err != nil {
			c.logger.Warn("Failed to delete image", zap.String("url", url), zap.Error(err))
		}
	}
}
