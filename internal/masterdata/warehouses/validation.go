package warehouses

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/stocklane/stocklane/internal/masterdata/shared"
)

// Codes are embedded in document references ("WH/OUT/007"), so they must stay
// short and slash-free.
var codePattern = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_-]{0,9}$`)

func (s *Service) validate(w Warehouse) error {
	if strings.TrimSpace(w.Code) == "" {
		return fmt.Errorf("%w: warehouse code is required", shared.ErrValidation)
	}
	if !codePattern.MatchString(w.Code) {
		return fmt.Errorf("%w: warehouse code must be uppercase letters, digits, '-' or '_' (max 10)", shared.ErrValidation)
	}
	if strings.TrimSpace(w.Name) == "" {
		return fmt.Errorf("%w: warehouse name is required", shared.ErrValidation)
	}
	return nil
}
