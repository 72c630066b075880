package stock

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MovementType enumerates supported stock movements.
type MovementType string

const (
	// MovementTypeReceipt represents goods coming in from a supplier.
	MovementTypeReceipt MovementType = "RECEIPT"
	// MovementTypeDelivery represents goods going out to a customer.
	MovementTypeDelivery MovementType = "DELIVERY"
	// MovementTypeTransfer moves goods between internal locations.
	MovementTypeTransfer MovementType = "TRANSFER"
	// MovementTypeAdjustment corrects stock after a count or incident.
	MovementTypeAdjustment MovementType = "ADJUSTMENT"
	// MovementTypeOpening loads an initial balance.
	MovementTypeOpening MovementType = "OPENING"
)

// IsValid checks if the movement type is known.
func (t MovementType) IsValid() bool {
	switch t {
	case MovementTypeReceipt, MovementTypeDelivery, MovementTypeTransfer, MovementTypeAdjustment, MovementTypeOpening:
		return true
	default:
		return false
	}
}

// QuantityScale is the number of decimal places stored for quantities.
const QuantityScale = 3

// Movement is one immutable ledger entry. Quantity is always positive; the
// direction is implied by which location references are set, never by sign.
type Movement struct {
	ID                    int64           `json:"id"`
	Type                  MovementType    `json:"movement_type"`
	ProductID             int64           `json:"product_id"`
	SourceLocationID      *int64          `json:"source_location_id,omitempty"`
	DestinationLocationID *int64          `json:"destination_location_id,omitempty"`
	Quantity              decimal.Decimal `json:"quantity"`
	DocumentType          string          `json:"document_type,omitempty"`
	DocumentNumber        string          `json:"document_number,omitempty"`
	RefID                 string          `json:"ref_id,omitempty"`
	Note                  string          `json:"note,omitempty"`
	CreatedBy             int64           `json:"created_by"`
	CreatedAt             time.Time       `json:"created_at"`
}

// Quant is the real-time balance for one (product, location) pair. It is
// derived state: quantity always equals the signed sum of ledger entries
// touching the pair.
type Quant struct {
	ProductID  int64           `json:"product_id"`
	LocationID int64           `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reserved   decimal.Decimal `json:"reserved_quantity"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// Available returns on-hand quantity minus reservations.
func (q Quant) Available() decimal.Decimal {
	return q.Quantity.Sub(q.Reserved)
}

// QuantView is the read model returned to API consumers.
type QuantView struct {
	ProductID  int64           `json:"product_id"`
	LocationID int64           `json:"location_id"`
	Quantity   decimal.Decimal `json:"quantity"`
	Reserved   decimal.Decimal `json:"reserved_quantity"`
	Available  decimal.Decimal `json:"available"`
}

// MovementFilter narrows ledger listings. Zero values mean "any".
type MovementFilter struct {
	ProductID  int64
	LocationID int64
	Type       MovementType
	From       time.Time
	To         time.Time
	Limit      int
}

// QuantFilter narrows quant listings. Zero values mean "any".
type QuantFilter struct {
	ProductID  int64
	LocationID int64
	Limit      int
}

// Drift reports a quant row that disagrees with the ledger.
type Drift struct {
	ProductID  int64           `json:"product_id"`
	LocationID int64           `json:"location_id"`
	QuantQty   decimal.Decimal `json:"quant_quantity"`
	LedgerQty  decimal.Decimal `json:"ledger_quantity"`
}

// ErrInvalidQuantity indicates a non-positive movement quantity.
var ErrInvalidQuantity = errors.New("stock: quantity must be positive")

// ErrLocationRequired indicates a movement missing the location its type demands.
var ErrLocationRequired = errors.New("stock: movement is missing a required location")

// ErrQuantNotFound indicates a missing quant row.
var ErrQuantNotFound = errors.New("stock: quant not found")

// ErrInsufficientStock is the match target for InsufficientStockError.
var ErrInsufficientStock = errors.New("stock: insufficient stock")

// ErrReservationExceedsStock indicates a reservation beyond on-hand quantity.
var ErrReservationExceedsStock = errors.New("stock: reservation exceeds on-hand quantity")

// InsufficientStockError reports an outbound leg that would drive available
// quantity negative, naming the offending product and location.
type InsufficientStockError struct {
	ProductID  int64
	LocationID int64
	Available  decimal.Decimal
	Required   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock: insufficient stock for product %d at location %d: available %s, required %s",
		e.ProductID, e.LocationID, e.Available.String(), e.Required.String())
}

// Is matches the ErrInsufficientStock sentinel.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
