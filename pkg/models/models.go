package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	// Prices travel as JSON numbers, the way shop clients send and expect them.
	decimal.MarshalJSONWithoutQuotes = true
}

// NewID returns a fresh record identifier.
func NewID() string {
	return uuid.NewString()
}

// All lists every model in dependency order, for migrations and truncation.
func All() []interface{} {
	return []interface{}{&User{}, &Category{}, &Product{}, &Order{}, &OrderItem{}}
}
