package products

import (
	"fmt"
	"strings"

	"github.com/stocklane/stocklane/internal/masterdata/shared"
)

func (s *Service) validate(p Product) error {
	if strings.TrimSpace(p.SKU) == "" {
		return fmt.Errorf("%w: product sku is required", shared.ErrValidation)
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: product name is required", shared.ErrValidation)
	}
	if p.CategoryID <= 0 {
		return fmt.Errorf("%w: product category is required", shared.ErrValidation)
	}
	if p.UnitID <= 0 {
		return fmt.Errorf("%w: product unit is required", shared.ErrValidation)
	}
	if p.Price.IsNegative() || p.Cost.IsNegative() {
		return fmt.Errorf("%w: price and cost must not be negative", shared.ErrValidation)
	}
	if p.MinStock.IsNegative() {
		return fmt.Errorf("%w: minimum stock must not be negative", shared.ErrValidation)
	}
	if p.ReorderQty.IsNegative() {
		return fmt.Errorf("%w: reorder quantity must not be negative", shared.ErrValidation)
	}
	return nil
}
