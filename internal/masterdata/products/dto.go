package products

import "github.com/shopspring/decimal"

// ProductForm carries create and update payloads.
type ProductForm struct {
	SKU        string          `json:"sku"`
	Name       string          `json:"name"`
	Barcode    string          `json:"barcode"`
	CategoryID int64           `json:"category_id"`
	UnitID     int64           `json:"unit_id"`
	Price      decimal.Decimal `json:"price"`
	Cost       decimal.Decimal `json:"cost"`
	MinStock   decimal.Decimal `json:"min_stock"`
	ReorderQty decimal.Decimal `json:"reorder_qty"`
	Active     bool            `json:"active"`
}

func (f ProductForm) model() Product {
	return Product{
		SKU:        f.SKU,
		Name:       f.Name,
		Barcode:    f.Barcode,
		CategoryID: f.CategoryID,
		UnitID:     f.UnitID,
		Price:      f.Price,
		Cost:       f.Cost,
		MinStock:   f.MinStock,
		ReorderQty: f.ReorderQty,
		Active:     f.Active,
	}
}
