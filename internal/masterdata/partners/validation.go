package partners

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/stocklane/stocklane/internal/masterdata/shared"
)

func (s *Service) validate(p Partner) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: partner name is required", shared.ErrValidation)
	}
	if !p.Kind.IsValid() {
		return fmt.Errorf("%w: partner kind must be customer, vendor or both", shared.ErrValidation)
	}
	if p.Email != "" {
		if _, err := mail.ParseAddress(p.Email); err != nil {
			return fmt.Errorf("%w: invalid email address", shared.ErrValidation)
		}
	}
	return nil
}
