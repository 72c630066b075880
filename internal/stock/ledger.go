package stock

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TxRepository exposes the transactional surface the ledger writes through.
// Implementations must run inside an enclosing database transaction so the
// availability check, the movement insert and the quant delta commit together.
type TxRepository interface {
	GetQuantForUpdate(ctx context.Context, productID, locationID int64) (Quant, error)
	UpsertQuant(ctx context.Context, quant Quant) error
	InsertMovement(ctx context.Context, movement Movement) (int64, error)
}

// LedgerConfig groups optional ledger settings.
type LedgerConfig struct {
	AllowNegativeStock bool
}

// Ledger validates movements, appends them to the append-only log and keeps
// the quant table in sync. It is the single mutation path for quants.
type Ledger struct {
	allowNeg bool
	now      func() time.Time
}

// NewLedger builds a Ledger.
func NewLedger(cfg LedgerConfig) *Ledger {
	return &Ledger{allowNeg: cfg.AllowNegativeStock, now: time.Now}
}

// WithNow overrides the ledger clock for testing.
func (l *Ledger) WithNow(fn func() time.Time) {
	if fn != nil {
		l.now = fn
	}
}

// Append validates the conceptual movement and writes it to the ledger.
// A transfer carries both locations on input and is stored as two linked
// entries sharing the document number, so one stored entry always causes
// exactly one quant delta. The returned slice holds the stored entries.
func (l *Ledger) Append(ctx context.Context, tx TxRepository, m Movement) ([]Movement, error) {
	if !m.Type.IsValid() {
		return nil, fmt.Errorf("stock: unknown movement type %q", m.Type)
	}
	if !m.Quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	m.Quantity = m.Quantity.Round(QuantityScale)
	if !m.Quantity.IsPositive() {
		return nil, ErrInvalidQuantity
	}
	if err := checkLocations(m); err != nil {
		return nil, err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = l.now().UTC()
	}

	entries := splitTransfer(m)
	stored := make([]Movement, 0, len(entries))
	for _, entry := range entries {
		if entry.SourceLocationID != nil {
			if err := l.debit(ctx, tx, entry); err != nil {
				return nil, err
			}
		}
		if entry.DestinationLocationID != nil {
			if err := credit(ctx, tx, entry); err != nil {
				return nil, err
			}
		}
		id, err := tx.InsertMovement(ctx, entry)
		if err != nil {
			return nil, fmt.Errorf("stock: insert movement: %w", err)
		}
		entry.ID = id
		stored = append(stored, entry)
	}
	return stored, nil
}

func checkLocations(m Movement) error {
	src, dst := m.SourceLocationID != nil, m.DestinationLocationID != nil
	switch m.Type {
	case MovementTypeReceipt, MovementTypeOpening:
		if !dst || src {
			return fmt.Errorf("%w: %s requires a destination location only", ErrLocationRequired, m.Type)
		}
	case MovementTypeDelivery:
		if !src || dst {
			return fmt.Errorf("%w: delivery requires a source location only", ErrLocationRequired)
		}
	case MovementTypeTransfer:
		if !src || !dst {
			return fmt.Errorf("%w: transfer requires both source and destination", ErrLocationRequired)
		}
		if *m.SourceLocationID == *m.DestinationLocationID {
			return fmt.Errorf("%w: transfer source and destination must differ", ErrLocationRequired)
		}
	case MovementTypeAdjustment:
		if src == dst {
			return fmt.Errorf("%w: adjustment requires exactly one location", ErrLocationRequired)
		}
	}
	return nil
}

// splitTransfer turns a transfer into an outbound and an inbound entry; all
// other movements pass through unchanged.
func splitTransfer(m Movement) []Movement {
	if m.Type != MovementTypeTransfer {
		return []Movement{m}
	}
	out := m
	out.DestinationLocationID = nil
	in := m
	in.SourceLocationID = nil
	return []Movement{out, in}
}

// debit subtracts the entry quantity at its source location, failing before
// any write when available stock does not cover the requirement.
func (l *Ledger) debit(ctx context.Context, tx TxRepository, m Movement) error {
	locationID := *m.SourceLocationID
	quant, err := tx.GetQuantForUpdate(ctx, m.ProductID, locationID)
	if err != nil && !errors.Is(err, ErrQuantNotFound) {
		return fmt.Errorf("stock: lock quant: %w", err)
	}
	if errors.Is(err, ErrQuantNotFound) {
		quant = Quant{ProductID: m.ProductID, LocationID: locationID}
	}
	if !l.allowNeg && quant.Available().LessThan(m.Quantity) {
		return &InsufficientStockError{
			ProductID:  m.ProductID,
			LocationID: locationID,
			Available:  quant.Available(),
			Required:   m.Quantity,
		}
	}
	quant.Quantity = quant.Quantity.Sub(m.Quantity)
	if err := tx.UpsertQuant(ctx, quant); err != nil {
		return fmt.Errorf("stock: apply debit: %w", err)
	}
	return nil
}

// credit adds the entry quantity at its destination location, creating the
// quant row with a zero balance when absent.
func credit(ctx context.Context, tx TxRepository, m Movement) error {
	locationID := *m.DestinationLocationID
	quant, err := tx.GetQuantForUpdate(ctx, m.ProductID, locationID)
	if err != nil && !errors.Is(err, ErrQuantNotFound) {
		return fmt.Errorf("stock: lock quant: %w", err)
	}
	if errors.Is(err, ErrQuantNotFound) {
		quant = Quant{ProductID: m.ProductID, LocationID: locationID}
	}
	quant.Quantity = quant.Quantity.Add(m.Quantity)
	if err := tx.UpsertQuant(ctx, quant); err != nil {
		return fmt.Errorf("stock: apply credit: %w", err)
	}
	return nil
}
