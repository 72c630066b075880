package stock

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

type memoryRepo struct {
	quants    map[QuantKey]Quant
	movements []Movement
	nextID    int64
}

type memoryTx struct {
	repo *memoryRepo
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{quants: make(map[QuantKey]Quant)}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryTx{repo: r})
}

func (r *memoryRepo) GetQuant(ctx context.Context, productID, locationID int64) (Quant, error) {
	if quant, ok := r.quants[QuantKey{ProductID: productID, LocationID: locationID}]; ok {
		return quant, nil
	}
	return Quant{}, ErrQuantNotFound
}

func (r *memoryRepo) ListQuants(ctx context.Context, filter QuantFilter) ([]Quant, error) {
	quants := []Quant{}
	for _, quant := range r.quants {
		if filter.ProductID != 0 && quant.ProductID != filter.ProductID {
			continue
		}
		if filter.LocationID != 0 && quant.LocationID != filter.LocationID {
			continue
		}
		quants = append(quants, quant)
	}
	sort.Slice(quants, func(i, j int) bool {
		if quants[i].ProductID != quants[j].ProductID {
			return quants[i].ProductID < quants[j].ProductID
		}
		return quants[i].LocationID < quants[j].LocationID
	})
	if filter.Limit > 0 && len(quants) > filter.Limit {
		quants = quants[:filter.Limit]
	}
	return quants, nil
}

func (r *memoryRepo) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	movements := []Movement{}
	for i := len(r.movements) - 1; i >= 0; i-- {
		m := r.movements[i]
		if filter.ProductID != 0 && m.ProductID != filter.ProductID {
			continue
		}
		if filter.LocationID != 0 && !touchesLocation(m, filter.LocationID) {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		if !filter.From.IsZero() && m.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && m.CreatedAt.After(filter.To) {
			continue
		}
		movements = append(movements, m)
		if filter.Limit > 0 && len(movements) == filter.Limit {
			break
		}
	}
	return movements, nil
}

func (r *memoryRepo) SumMovementDeltas(ctx context.Context) (map[QuantKey]decimal.Decimal, error) {
	sums := map[QuantKey]decimal.Decimal{}
	for _, m := range r.movements {
		if m.DestinationLocationID != nil {
			key := QuantKey{ProductID: m.ProductID, LocationID: *m.DestinationLocationID}
			sums[key] = sums[key].Add(m.Quantity)
		}
		if m.SourceLocationID != nil {
			key := QuantKey{ProductID: m.ProductID, LocationID: *m.SourceLocationID}
			sums[key] = sums[key].Sub(m.Quantity)
		}
	}
	return sums, nil
}

func touchesLocation(m Movement, locationID int64) bool {
	if m.SourceLocationID != nil && *m.SourceLocationID == locationID {
		return true
	}
	return m.DestinationLocationID != nil && *m.DestinationLocationID == locationID
}

func (tx *memoryTx) GetQuantForUpdate(ctx context.Context, productID, locationID int64) (Quant, error) {
	if quant, ok := tx.repo.quants[QuantKey{ProductID: productID, LocationID: locationID}]; ok {
		return quant, nil
	}
	return Quant{ProductID: productID, LocationID: locationID}, ErrQuantNotFound
}

func (tx *memoryTx) UpsertQuant(ctx context.Context, quant Quant) error {
	tx.repo.quants[QuantKey{ProductID: quant.ProductID, LocationID: quant.LocationID}] = quant
	return nil
}

func (tx *memoryTx) InsertMovement(ctx context.Context, movement Movement) (int64, error) {
	tx.repo.nextID++
	movement.ID = tx.repo.nextID
	tx.repo.movements = append(tx.repo.movements, movement)
	return movement.ID, nil
}
