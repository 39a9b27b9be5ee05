package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusCompleted  OrderStatus = "COMPLETED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

type Order struct {
	ID        string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string          `gorm:"type:varchar(36);not null;index" json:"user_id"`
	User      *User           `json:"user,omitempty"`
	Total     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total"`
	Status    OrderStatus     `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	Items     []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Order) TableName() string {
	return "orders"
}

// OrderItem is a snapshot of a product at order time. ProductID carries no foreign key:
// order history outlives deleted products.
type OrderItem struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OrderID     string          `gorm:"type:varchar(36);not null;index" json:"order_id"`
	ProductID   string          `gorm:"type:varchar(36);not null;index" json:"product_id"`
	ProductName string          `gorm:"type:varchar(100)" json:"product_name"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

// LineTotal is price × quantity.
func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
