package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/example/foodshop/pkg/models"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// TopProductWindow is how many of the latest order items are grouped to rank products.
const TopProductWindow = 500

type Counts struct {
	Categories int64 `json:"categories"`
	Products   int64 `json:"products"`
	Orders     int64 `json:"orders"`
	Users      int64 `json:"users"`
}

type RecentOrder struct {
	ID           string          `db:"id" json:"id"`
	Total        decimal.Decimal `db:"total" json:"total"`
	Status       string          `db:"status" json:"status"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	CustomerName string          `db:"customer_name" json:"customer_name"`
	Mobile       string          `db:"mobile" json:"mobile"`
}

type TopProduct struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int64           `json:"quantity"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type soldItem struct {
	ProductID   string          `db:"product_id"`
	ProductName string          `db:"product_name"`
	Quantity    int64           `db:"quantity"`
	Price       decimal.Decimal `db:"price"`
}

// DashboardRepository runs the read-only aggregation queries behind the admin dashboard.
// It shares the gorm connection pool.
type DashboardRepository struct {
	db *sqlx.DB
	qb sq.StatementBuilderType
}

func NewDashboardRepository(store *Store) (*DashboardRepository, error) {
	sqlDB, err := store.DB().DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get connection pool: %w", err)
	}

	driverName := store.Driver()
	qb := sq.StatementBuilder.PlaceholderFormat(sq.Question)
	switch driverName {
	case "postgres":
		driverName = "pgx"
		qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
	case "sqlite":
		driverName = "sqlite3"
	}

	return &DashboardRepository{
		db: sqlx.NewDb(sqlDB, driverName),
		qb: qb,
	}, nil
}

func (r *DashboardRepository) count(ctx context.Context, table string) (int64, error) {
	query, args, err := r.qb.Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, err
	}

	var n int64
	if err := r.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

func (r *DashboardRepository) Counts(ctx context.Context) (*Counts, error) {
	var (
		c   Counts
		err error
	)
	if c.Categories, err = r.count(ctx, "categories"); err != nil {
		return nil, err
	}
	if c.Products, err = r.count(ctx, "products"); err != nil {
		return nil, err
	}
	if c.Orders, err = r.count(ctx, "orders"); err != nil {
		return nil, err
	}
	if c.Users, err = r.count(ctx, "users"); err != nil {
		return nil, err
	}
	return &c, nil
}

// Revenue sums the totals of all orders that were not cancelled.
func (r *DashboardRepository) Revenue(ctx context.Context) (decimal.Decimal, error) {
	query, args, err := r.qb.
		Select("COALESCE(SUM(total), 0)").
		From("orders").
		Where(sq.NotEq{"status": string(models.OrderStatusCancelled)}).
		ToSql()
	if err != nil {
		return decimal.Zero, err
	}

	var revenue decimal.Decimal
	if err := r.db.GetContext(ctx, &revenue, query, args...); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum revenue: %w", err)
	}
	return revenue, nil
}

func (r *DashboardRepository) RecentOrders(ctx context.Context, limit uint64) ([]RecentOrder, error) {
	query, args, err := r.qb.
		Select(
			"orders.id", "orders.total", "orders.status", "orders.created_at",
			"COALESCE(users.full_name, '') AS customer_name",
			"COALESCE(users.mobile, '') AS mobile",
		).
		From("orders").
		LeftJoin("users ON users.id = orders.user_id").
		OrderBy("orders.created_at DESC").
		Limit(limit).
		ToSql()
	if err != nil {
		return nil, err
	}

	orders := []RecentOrder{}
	if err := r.db.SelectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load recent orders: %w", err)
	}
	return orders, nil
}

// TopProducts ranks products by quantity sold over the latest TopProductWindow order items
// of orders that were not cancelled.
func (r *DashboardRepository) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	query, args, err := r.qb.
		Select("order_items.product_id", "order_items.product_name", "order_items.quantity", "order_items.price").
		From("order_items").
		Join("orders ON orders.id = order_items.order_id").
		Where(sq.NotEq{"orders.status": string(models.OrderStatusCancelled)}).
		OrderBy("orders.created_at DESC").
		Limit(TopProductWindow).
		ToSql()
	if err != nil {
		return nil, err
	}

	var items []soldItem
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	return rankProducts(items, limit), nil
}

func rankProducts(items []soldItem, limit int) []TopProduct {
	byID := make(map[string]*TopProduct)
	for _, it := range items {
		tp, ok := byID[it.ProductID]
		if !ok {
			tp = &TopProduct{ProductID: it.ProductID, Name: it.ProductName, Revenue: decimal.Zero}
			byID[it.ProductID] = tp
		}
		tp.Quantity += it.Quantity
		tp.Revenue = tp.Revenue.Add(it.Price.Mul(decimal.NewFromInt(it.Quantity)))
	}

	ranked := make([]TopProduct, 0, len(byID))
	for _, tp := range byID {
		ranked = append(ranked, *tp)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Quantity != ranked[j].Quantity {
			return ranked[i].Quantity > ranked[j].Quantity
		}
		return ranked[i].Name < ranked[j].Name
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
