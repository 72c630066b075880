package documents

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/stocklane/stocklane/internal/stock"
)

// validateStructure checks that a document is well-formed for its type before
// it is created or posted. Adjustments name the counted location in the
// destination field; each line's sign picks the movement direction.
func validateStructure(doc Document) error {
	if !doc.Type.IsValid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidDocument, doc.Type)
	}
	if doc.WarehouseID == 0 {
		return fmt.Errorf("%w: warehouse required", ErrInvalidDocument)
	}
	if len(doc.Lines) == 0 {
		return fmt.Errorf("%w: at least one line required", ErrInvalidDocument)
	}
	src, dst := doc.SourceLocationID != nil, doc.DestinationLocationID != nil
	switch doc.Type {
	case TypeReceipt:
		if !dst || src {
			return fmt.Errorf("%w: receipt requires a destination location only", ErrInvalidDocument)
		}
	case TypeDelivery:
		if !src || dst {
			return fmt.Errorf("%w: delivery requires a source location only", ErrInvalidDocument)
		}
	case TypeTransfer:
		if !src || !dst {
			return fmt.Errorf("%w: transfer requires both source and destination", ErrInvalidDocument)
		}
		if *doc.SourceLocationID == *doc.DestinationLocationID {
			return fmt.Errorf("%w: transfer source and destination must differ", ErrInvalidDocument)
		}
	case TypeAdjustment:
		if !dst || src {
			return fmt.Errorf("%w: adjustment requires exactly one location", ErrInvalidDocument)
		}
	}
	for i, line := range doc.Lines {
		if line.ProductID == 0 {
			return fmt.Errorf("%w: line %d missing product", ErrInvalidDocument, i+1)
		}
		if line.Quantity.Round(stock.QuantityScale).IsZero() {
			return fmt.Errorf("%w: line %d quantity must be non-zero at %d decimal places", ErrInvalidDocument, i+1, stock.QuantityScale)
		}
		if doc.Type != TypeAdjustment && !line.Quantity.IsPositive() {
			return fmt.Errorf("%w: line %d quantity must be positive", ErrInvalidDocument, i+1)
		}
	}
	return nil
}

// buildMovements maps a validated document onto the conceptual ledger
// movements it posts, one per line.
func buildMovements(doc Document, actorID int64) ([]stock.Movement, error) {
	if err := validateStructure(doc); err != nil {
		return nil, err
	}
	// Entries posted together share a correlation id so a multi-line posting
	// can be traced back as one batch.
	refID := uuid.NewString()
	movements := make([]stock.Movement, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		movement := stock.Movement{
			Type:           doc.Type.MovementType(),
			ProductID:      line.ProductID,
			Quantity:       line.Quantity,
			DocumentType:   string(doc.Type),
			DocumentNumber: doc.Reference,
			RefID:          refID,
			Note:           doc.Note,
			CreatedBy:      actorID,
		}
		switch doc.Type {
		case TypeReceipt:
			movement.DestinationLocationID = copyID(doc.DestinationLocationID)
		case TypeDelivery:
			movement.SourceLocationID = copyID(doc.SourceLocationID)
		case TypeTransfer:
			movement.SourceLocationID = copyID(doc.SourceLocationID)
			movement.DestinationLocationID = copyID(doc.DestinationLocationID)
		case TypeAdjustment:
			if line.Quantity.IsPositive() {
				movement.DestinationLocationID = copyID(doc.DestinationLocationID)
			} else {
				movement.Quantity = line.Quantity.Neg()
				movement.SourceLocationID = copyID(doc.DestinationLocationID)
			}
		}
		movements = append(movements, movement)
	}
	return movements, nil
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
