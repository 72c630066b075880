package categories

import (
	"fmt"
	"strings"

	"github.com/stocklane/stocklane/internal/masterdata/shared"
)

func (s *Service) validate(c Category) error {
	if strings.TrimSpace(c.Code) == "" {
		return fmt.Errorf("%w: category code is required", shared.ErrValidation)
	}
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: category name is required", shared.ErrValidation)
	}
	if c.ParentID != nil && *c.ParentID <= 0 {
		return fmt.Errorf("%w: parent category id must be positive", shared.ErrValidation)
	}
	return nil
}
