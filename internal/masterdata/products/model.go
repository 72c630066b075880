package products

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a stocked product
type Product struct {
	ID         int64           `json:"id"`
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	Barcode    string          `json:"barcode,omitempty"`
	CategoryID int64           `json:"category_id"`
	UnitID     int64           `json:"unit_id"`
	Price      decimal.Decimal `json:"price"`
	Cost       decimal.Decimal `json:"cost"`
	MinStock   decimal.Decimal `json:"min_stock"`
	ReorderQty decimal.Decimal `json:"reorder_qty"`
	Active     bool            `json:"active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
