package stock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stocklane/stocklane/internal/shared"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetQuant(ctx context.Context, productID, locationID int64) (Quant, error)
	ListQuants(ctx context.Context, filter QuantFilter) ([]Quant, error)
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)
	SumMovementDeltas(ctx context.Context) (map[QuantKey]decimal.Decimal, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// QuantKey identifies one (product, location) balance.
type QuantKey struct {
	ProductID  int64
	LocationID int64
}

// OpeningInput loads an initial balance at a location.
type OpeningInput struct {
	ProductID  int64
	LocationID int64
	Quantity   decimal.Decimal
	Note       string
	ActorID    int64
}

// ReservationInput earmarks or frees on-hand stock.
type ReservationInput struct {
	ProductID  int64
	LocationID int64
	Quantity   decimal.Decimal
	ActorID    int64
}

const defaultListLimit = 100

// Service coordinates quant reads, opening balances and reservations.
type Service struct {
	repo   RepositoryPort
	ledger *Ledger
	audit  AuditPort
}

// NewService builds Service.
func NewService(repo RepositoryPort, ledger *Ledger, audit AuditPort) *Service {
	return &Service{repo: repo, ledger: ledger, audit: audit}
}

// GetQuantity returns the balance for one (product, location) pair. A pair
// with no ledger history reads as zero rather than an error.
func (s *Service) GetQuantity(ctx context.Context, productID, locationID int64) (QuantView, error) {
	if productID == 0 || locationID == 0 {
		return QuantView{}, errors.New("stock: product and location required")
	}
	quant, err := s.repo.GetQuant(ctx, productID, locationID)
	if errors.Is(err, ErrQuantNotFound) {
		quant = Quant{ProductID: productID, LocationID: locationID}
	} else if err != nil {
		return QuantView{}, err
	}
	return toView(quant), nil
}

// ListQuants lists balances matching the filter.
func (s *Service) ListQuants(ctx context.Context, filter QuantFilter) ([]QuantView, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	quants, err := s.repo.ListQuants(ctx, filter)
	if err != nil {
		return nil, err
	}
	views := make([]QuantView, 0, len(quants))
	for _, q := range quants {
		views = append(views, toView(q))
	}
	return views, nil
}

// ListMovements lists ledger entries matching the filter, newest first.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Type != "" && !filter.Type.IsValid() {
		return nil, fmt.Errorf("stock: unknown movement type %q", filter.Type)
	}
	return s.repo.ListMovements(ctx, filter)
}

// PostOpening appends an opening balance entry for a location with no prior
// history of the product. It is the only way opening entries enter the ledger.
func (s *Service) PostOpening(ctx context.Context, input OpeningInput) (Movement, error) {
	if input.ProductID == 0 || input.LocationID == 0 {
		return Movement{}, errors.New("stock: product and location required")
	}
	if !input.Quantity.IsPositive() {
		return Movement{}, ErrInvalidQuantity
	}
	var stored Movement
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		movement := Movement{
			Type:                  MovementTypeOpening,
			ProductID:             input.ProductID,
			DestinationLocationID: &input.LocationID,
			Quantity:              input.Quantity,
			Note:                  input.Note,
			CreatedBy:             input.ActorID,
		}
		entries, err := s.ledger.Append(ctx, tx, movement)
		if err != nil {
			return err
		}
		stored = entries[0]
		return nil
	})
	if err != nil {
		return Movement{}, err
	}
	s.recordAudit(ctx, input.ActorID, "stock.opening", "stock_movement", fmt.Sprintf("%d", stored.ID))
	return stored, nil
}

// Reserve earmarks on-hand stock at a location. The reservation never exceeds
// the on-hand quantity.
func (s *Service) Reserve(ctx context.Context, input ReservationInput) (QuantView, error) {
	return s.adjustReservation(ctx, input, false)
}

// Release frees previously reserved stock. Releasing more than is reserved
// clamps at zero.
func (s *Service) Release(ctx context.Context, input ReservationInput) (QuantView, error) {
	return s.adjustReservation(ctx, input, true)
}

func (s *Service) adjustReservation(ctx context.Context, input ReservationInput, release bool) (QuantView, error) {
	if input.ProductID == 0 || input.LocationID == 0 {
		return QuantView{}, errors.New("stock: product and location required")
	}
	if !input.Quantity.IsPositive() {
		return QuantView{}, ErrInvalidQuantity
	}
	qty := input.Quantity.Round(QuantityScale)
	var updated Quant
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		quant, err := tx.GetQuantForUpdate(ctx, input.ProductID, input.LocationID)
		if err != nil {
			if !errors.Is(err, ErrQuantNotFound) {
				return err
			}
			// A pair with no quant row holds nothing.
			if !release {
				return ErrReservationExceedsStock
			}
			updated = Quant{ProductID: input.ProductID, LocationID: input.LocationID}
			return nil
		}
		if release {
			quant.Reserved = quant.Reserved.Sub(qty)
			if quant.Reserved.IsNegative() {
				quant.Reserved = decimal.Zero
			}
		} else {
			reserved := quant.Reserved.Add(qty)
			if reserved.GreaterThan(quant.Quantity) {
				return ErrReservationExceedsStock
			}
			quant.Reserved = reserved
		}
		if err := tx.UpsertQuant(ctx, quant); err != nil {
			return err
		}
		updated = quant
		return nil
	})
	if err != nil {
		return QuantView{}, err
	}
	action := "stock.reserve"
	if release {
		action = "stock.release"
	}
	s.recordAudit(ctx, input.ActorID, action, "stock_quant", fmt.Sprintf("%d:%d", input.ProductID, input.LocationID))
	return toView(updated), nil
}

// VerifyConsistency recomputes every balance from the ledger and reports
// quant rows that disagree with it.
func (s *Service) VerifyConsistency(ctx context.Context) ([]Drift, error) {
	ledgerSums, err := s.repo.SumMovementDeltas(ctx)
	if err != nil {
		return nil, err
	}
	quants, err := s.repo.ListQuants(ctx, QuantFilter{})
	if err != nil {
		return nil, err
	}
	var drifts []Drift
	seen := make(map[QuantKey]bool, len(quants))
	for _, q := range quants {
		key := QuantKey{ProductID: q.ProductID, LocationID: q.LocationID}
		seen[key] = true
		ledgerQty := ledgerSums[key]
		if !q.Quantity.Equal(ledgerQty) {
			drifts = append(drifts, Drift{
				ProductID:  q.ProductID,
				LocationID: q.LocationID,
				QuantQty:   q.Quantity,
				LedgerQty:  ledgerQty,
			})
		}
	}
	for key, ledgerQty := range ledgerSums {
		if seen[key] || ledgerQty.IsZero() {
			continue
		}
		drifts = append(drifts, Drift{
			ProductID:  key.ProductID,
			LocationID: key.LocationID,
			QuantQty:   decimal.Zero,
			LedgerQty:  ledgerQty,
		})
	}
	return drifts, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entity, entityID string) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		At:       time.Now().UTC(),
	})
}

func toView(q Quant) QuantView {
	return QuantView{
		ProductID:  q.ProductID,
		LocationID: q.LocationID,
		Quantity:   q.Quantity,
		Reserved:   q.Reserved,
		Available:  q.Available(),
	}
}
