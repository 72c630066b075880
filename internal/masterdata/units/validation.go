package units

import (
	"fmt"
	"strings"

	"github.com/stocklane/stocklane/internal/masterdata/shared"
)

func (s *Service) validate(u Unit) error {
	if strings.TrimSpace(u.Code) == "" {
		return fmt.Errorf("%w: unit code is required", shared.ErrValidation)
	}
	if strings.TrimSpace(u.Name) == "" {
		return fmt.Errorf("%w: unit name is required", shared.ErrValidation)
	}
	if u.Precision < 0 || u.Precision > 3 {
		return fmt.Errorf("%w: unit precision must be between 0 and 3", shared.ErrValidation)
	}
	return nil
}
