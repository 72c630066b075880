package locations

import (
	"context"
	"fmt"

	"github.com/stocklane/stocklane/internal/masterdata/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Location, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, id int64) (Location, error) {
	if id <= 0 {
		return Location{}, shared.ErrInvalidID
	}
	return s.repo.Get(ctx, id)
}

// Path returns the ancestry of a location from its root down to the location
// itself, for display as "A / A-01 / A-01-BIN3".
func (s *Service) Path(ctx context.Context, id int64) ([]PathEntry, error) {
	if id <= 0 {
		return nil, shared.ErrInvalidID
	}
	return s.repo.Path(ctx, id)
}

func (s *Service) Create(ctx context.Context, loc Location) (Location, error) {
	if err := s.validate(loc); err != nil {
		return Location{}, err
	}
	if err := s.checkParent(ctx, loc, 0); err != nil {
		return Location{}, err
	}
	return s.repo.Create(ctx, loc)
}

func (s *Service) Update(ctx context.Context, id int64, loc Location) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	if err := s.validate(loc); err != nil {
		return err
	}
	if loc.ParentID != nil && *loc.ParentID == id {
		return fmt.Errorf("%w: location cannot be its own parent", shared.ErrValidation)
	}
	if err := s.checkParent(ctx, loc, id); err != nil {
		return err
	}
	return s.repo.Update(ctx, id, loc)
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.SetActive(ctx, id, false)
}

func (s *Service) Activate(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.ErrInvalidID
	}
	return s.repo.SetActive(ctx, id, true)
}

// checkParent ensures the parent exists, lives in the same warehouse, and does
// not create a cycle through the location being updated.
func (s *Service) checkParent(ctx context.Context, loc Location, selfID int64) error {
	if loc.ParentID == nil {
		return nil
	}
	parent, err := s.repo.Get(ctx, *loc.ParentID)
	if err != nil {
		if err == shared.ErrNotFound {
			return fmt.Errorf("%w: parent location %d does not exist", shared.ErrValidation, *loc.ParentID)
		}
		return err
	}
	if parent.WarehouseID != loc.WarehouseID {
		return fmt.Errorf("%w: parent location belongs to a different warehouse", shared.ErrValidation)
	}
	if selfID > 0 {
		path, err := s.repo.Path(ctx, parent.ID)
		if err != nil {
			return err
		}
		for _, entry := range path {
			if entry.ID == selfID {
				return fmt.Errorf("%w: parent chain would form a cycle", shared.ErrValidation)
			}
		}
	}
	return nil
}
