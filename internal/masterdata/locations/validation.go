package locations

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/stocklane/stocklane/internal/masterdata/shared"
)

var codePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9._-]{0,19}$`)

func (s *Service) validate(loc Location) error {
	if loc.WarehouseID <= 0 {
		return fmt.Errorf("%w: warehouse is required", shared.ErrValidation)
	}
	if strings.TrimSpace(loc.Code) == "" {
		return fmt.Errorf("%w: location code is required", shared.ErrValidation)
	}
	if !codePattern.MatchString(loc.Code) {
		return fmt.Errorf("%w: location code must be uppercase letters, digits, '.', '-' or '_' (max 20)", shared.ErrValidation)
	}
	if strings.TrimSpace(loc.Name) == "" {
		return fmt.Errorf("%w: location name is required", shared.ErrValidation)
	}
	if !loc.Kind.IsValid() {
		return fmt.Errorf("%w: location kind must be zone, rack or bin", shared.ErrValidation)
	}
	if loc.ParentID != nil && *loc.ParentID <= 0 {
		return fmt.Errorf("%w: parent location id must be positive", shared.ErrValidation)
	}
	return nil
}
