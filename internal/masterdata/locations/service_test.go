package locations

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stocklane/stocklane/internal/masterdata/shared"
)

type stubRepo struct {
	locations map[int64]Location
	nextID    int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{locations: map[int64]Location{}, nextID: 1}
}

func (r *stubRepo) List(_ context.Context, _ shared.ListFilters) ([]Location, int, error) {
	out := make([]Location, 0, len(r.locations))
	for _, loc := range r.locations {
		out = append(out, loc)
	}
	return out, len(out), nil
}

func (r *stubRepo) Get(_ context.Context, id int64) (Location, error) {
	loc, ok := r.locations[id]
	if !ok {
		return Location{}, shared.ErrNotFound
	}
	return loc, nil
}

func (r *stubRepo) Path(_ context.Context, id int64) ([]PathEntry, error) {
	var path []PathEntry
	for {
		loc, ok := r.locations[id]
		if !ok {
			return nil, shared.ErrNotFound
		}
		path = append([]PathEntry{{ID: loc.ID, Code: loc.Code}}, path...)
		if loc.ParentID == nil {
			return path, nil
		}
		id = *loc.ParentID
	}
}

func (r *stubRepo) Create(_ context.Context, loc Location) (Location, error) {
	for _, existing := range r.locations {
		if existing.WarehouseID == loc.WarehouseID && existing.Code == loc.Code {
			return Location{}, shared.ErrDuplicate
		}
	}
	loc.ID = r.nextID
	r.nextID++
	r.locations[loc.ID] = loc
	return loc, nil
}

func (r *stubRepo) Update(_ context.Context, id int64, loc Location) error {
	if _, ok := r.locations[id]; !ok {
		return shared.ErrNotFound
	}
	loc.ID = id
	r.locations[id] = loc
	return nil
}

func (r *stubRepo) SetActive(_ context.Context, id int64, active bool) error {
	loc, ok := r.locations[id]
	if !ok {
		return shared.ErrNotFound
	}
	loc.Active = active
	r.locations[id] = loc
	return nil
}

func ptr(v int64) *int64 { return &v }

func TestCreateLocationHierarchy(t *testing.T) {
	svc := NewService(newStubRepo())

	zone, err := svc.Create(context.Background(), Location{WarehouseID: 1, Code: "A", Name: "Zone A", Kind: KindZone, Active: true})
	require.NoError(t, err)

	rack, err := svc.Create(context.Background(), Location{WarehouseID: 1, ParentID: ptr(zone.ID), Code: "A-01", Name: "Rack A-01", Kind: KindRack, Active: true})
	require.NoError(t, err)

	path, err := svc.Path(context.Background(), rack.ID)
	require.NoError(t, err)
	require.Len(t, path, 2)
	require.Equal(t, "A", path[0].Code)
	require.Equal(t, "A-01", path[1].Code)
}

func TestCreateLocationParentChecks(t *testing.T) {
	svc := NewService(newStubRepo())

	zone, err := svc.Create(context.Background(), Location{WarehouseID: 1, Code: "A", Name: "Zone A", Kind: KindZone, Active: true})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), Location{WarehouseID: 1, ParentID: ptr(int64(99)), Code: "B", Name: "Zone B", Kind: KindZone})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), Location{WarehouseID: 2, ParentID: ptr(zone.ID), Code: "B", Name: "Zone B", Kind: KindZone})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestUpdateLocationRejectsCycles(t *testing.T) {
	svc := NewService(newStubRepo())

	zone, err := svc.Create(context.Background(), Location{WarehouseID: 1, Code: "A", Name: "Zone A", Kind: KindZone, Active: true})
	require.NoError(t, err)
	rack, err := svc.Create(context.Background(), Location{WarehouseID: 1, ParentID: ptr(zone.ID), Code: "A-01", Name: "Rack", Kind: KindRack, Active: true})
	require.NoError(t, err)

	err = svc.Update(context.Background(), zone.ID, Location{WarehouseID: 1, ParentID: ptr(zone.ID), Code: "A", Name: "Zone A", Kind: KindZone})
	require.ErrorIs(t, err, shared.ErrValidation)

	err = svc.Update(context.Background(), zone.ID, Location{WarehouseID: 1, ParentID: ptr(rack.ID), Code: "A", Name: "Zone A", Kind: KindZone})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestLocationKindValidation(t *testing.T) {
	svc := NewService(newStubRepo())

	_, err := svc.Create(context.Background(), Location{WarehouseID: 1, Code: "A", Name: "Zone A", Kind: "shelf"})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestLocationCodeValidation(t *testing.T) {
	svc := NewService(newStubRepo())

	_, err := svc.Create(context.Background(), Location{WarehouseID: 1, Code: "a/b", Name: "Bad", Kind: KindBin})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.Create(context.Background(), Location{WarehouseID: 1, Code: "", Name: "Bad", Kind: KindBin})
	require.ErrorIs(t, err, shared.ErrValidation)
}
