package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/example/foodshop/pkg/config"
	"github.com/example/foodshop/pkg/models"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the gorm-backed persistence layer for users, catalog and orders.
type Store struct {
	db     *gorm.DB
	driver string
	logger *zap.Logger
}

func dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "mysql":
		return mysql.Open(cfg.DSN()), nil
	case "postgres":
		return postgres.Open(cfg.DSN()), nil
	case "sqlite":
		return sqlite.Open(cfg.DSN()), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info":
		return gormlogger.Info
	}
	return gormlogger.Warn
}

func NewStore(cfg *config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	dial, err := dialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dial, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection pool: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	return NewStoreFromDB(db, cfg.Driver, logger), nil
}

// NewStoreFromDB wraps an already opened gorm handle.
func NewStoreFromDB(db *gorm.DB, driver string, logger *zap.Logger) *Store {
	return &Store{db: db, driver: driver, logger: logger}
}

func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) Driver() string {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Truncate removes every row, dependents first.
func (s *Store) Truncate(ctx context.Context) error {
	all := models.All()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := len(all) - 1; i >= 0; i-- {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(all[i]).Error; err != nil {
				return fmt.Errorf("failed to truncate %T: %w", all[i], err)
			}
			s.logger.Info("Truncated table", zap.String("model", fmt.Sprintf("%T", all[i])))
		}
		return nil
	})
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// --- users ---

// UpsertUserByMobile creates the user or renames the existing one with the same mobile.
func (s *Store) UpsertUserByMobile(ctx context.Context, mobile, fullName string) (*models.User, error) {
	now := time.Now()
	user := &models.User{
		ID:        models.NewID(),
		Mobile:    mobile,
		FullName:  fullName,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mobile"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "updated_at"}),
	}).Create(user).Error
	if err != nil {
		return nil, err
	}

	return s.FindUserByMobile(ctx, mobile)
}

func (s *Store) FindUserByMobile(ctx context.Context, mobile string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("mobile = ?", mobile).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *Store) FindUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

// --- categories ---

const productCountColumn = "(SELECT COUNT(*) FROM products WHERE products.category_id = categories.id) AS product_count"

func (s *Store) ListCategories(ctx context.Context, offset, limit int) ([]models.Category, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var categories []models.Category
	err := s.db.WithContext(ctx).
		Select("categories.*, " + productCountColumn).
		Order("categories.created_at DESC").
		Order("categories.id").
		Offset(offset).
		Limit(limit).
		Find(&categories).Error
	if err != nil {
		return nil, 0, err
	}
	return categories, total, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	var category models.Category
	err := s.db.WithContext(ctx).
		Select("categories.*, "+productCountColumn).
		Where("categories.id = ?", id).
		First(&category).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &category, nil
}

func (s *Store) CategoryExists(ctx context.Context, id string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) CreateCategory(ctx context.Context, category *models.Category) error {
	return s.db.WithContext(ctx).Omit("Products").Create(category).Error
}

func (s *Store) UpdateCategory(ctx context.Context, category *models.Category) error {
	res := s.db.WithContext(ctx).
		Model(category).
		Select("name", "image", "updated_at").
		Updates(category)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteCategory removes the category together with its products and returns the image
// URLs that belonged to them.
func (s *Store) DeleteCategory(ctx context.Context, id string) ([]string, error) {
	var images []string

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.Where("id = ?", id).First(&category).Error; err != nil {
			return notFound(err)
		}

		var productImages []string
		if err := tx.Model(&models.Product{}).
			Where("category_id = ? AND image <> ''", id).
			Pluck("image", &productImages).Error; err != nil {
			return err
		}

		if err := tx.Where("category_id = ?", id).Delete(&models.Product{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&category).Error; err != nil {
			return err
		}

		if category.Image != "" {
			images = append(images, category.Image)
		}
		images = append(images, productImages...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}

// --- products ---

type ProductSort string

const (
	SortNewest    ProductSort = "newest"
	SortPriceAsc  ProductSort = "price_asc"
	SortPriceDesc ProductSort = "price_desc"
	SortName      ProductSort = "name"
)

type ProductQuery struct {
	CategoryID string
	Search     string
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       ProductSort
	Offset     int
	Limit      int
}

func (q ProductQuery) scope(db *gorm.DB) *gorm.DB {
	if q.CategoryID != "" {
		db = db.Where("products.category_id = ?", q.CategoryID)
	}
	if q.Search != "" {
		db = db.Where("LOWER(products.name) LIKE ?", "%"+strings.ToLower(q.Search)+"%")
	}
	if q.MinPrice != nil {
		db = db.Where("products.price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		db = db.Where("products.price <= ?", *q.MaxPrice)
	}
	return db
}

func (q ProductQuery) order() string {
	switch q.Sort {
	case SortPriceAsc:
		return "products.price ASC"
	case SortPriceDesc:
		return "products.price DESC"
	case SortName:
		return "products.name ASC"
	}
	return "products.created_at DESC"
}

func (s *Store) ListProducts(ctx context.Context, q ProductQuery) ([]models.Product, int64, error) {
	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).Scopes(q.scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var products []models.Product
	err := s.db.WithContext(ctx).
		Scopes(q.scope).
		Preload("Category").
		Order(q.order()).
		Order("products.id").
		Offset(q.Offset).
		Limit(q.Limit).
		Find(&products).Error
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// AllProducts returns every product with its category, newest first.
func (s *Store) AllProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.WithContext(ctx).Preload("Category").Order("products.created_at DESC").Find(&products).Error
	return products, err
}

func (s *Store) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Preload("Category").Where("products.id = ?", id).First(&product).Error; err != nil {
		return nil, notFound(err)
	}
	return &product, nil
}

func (s *Store) ProductsByIDs(ctx context.Context, ids []string) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&products).Error
	return products, err
}

func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	return s.db.WithContext(ctx).Omit("Category").Create(product).Error
}

func (s *Store) UpdateProduct(ctx context.Context, product *models.Product) error {
	res := s.db.WithContext(ctx).
		Model(product).
		Select("name", "description", "price", "image", "category_id", "updated_at").
		Updates(product)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteProduct removes the product and returns its image URL, if any.
func (s *Store) DeleteProduct(ctx context.Context, id string) (string, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return "", notFound(err)
	}
	if err := s.db.WithContext(ctx).Delete(&product).Error; err != nil {
		return "", err
	}
	return product.Image, nil
}

// --- orders ---

// CreateOrder inserts the order and its items in one transaction.
func (s *Store) CreateOrder(ctx context.Context, order *models.Order) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit("User").Create(order).Error
	})
}

func (s *Store) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("User").
		Where("orders.id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &order, nil
}

// ListOrders pages through orders, newest first. An empty userID lists every order.
func (s *Store) ListOrders(ctx context.Context, userID string, offset, limit int) ([]models.Order, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		if userID != "" {
			return db.Where("orders.user_id = ?", userID)
		}
		return db
	}

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Order{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := s.db.WithContext(ctx).
		Scopes(scope).
		Preload("Items").
		Preload("User").
		Order("orders.created_at DESC").
		Order("orders.id").
		Offset(offset).
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

func (s *Store) UpdateOrderStatus(ctx context.Context, id string, status models.OrderStatus) (*models.Order, error) {
	res := s.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetOrder(ctx, id)
}
