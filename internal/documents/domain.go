package documents

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/stocklane/stocklane/internal/stock"
)

// Type enumerates stock document types.
type Type string

const (
	// TypeReceipt brings goods in from a supplier.
	TypeReceipt Type = "RECEIPT"
	// TypeDelivery ships goods out to a customer.
	TypeDelivery Type = "DELIVERY"
	// TypeTransfer moves goods between internal locations.
	TypeTransfer Type = "TRANSFER"
	// TypeAdjustment corrects stock after a count or incident.
	TypeAdjustment Type = "ADJUSTMENT"
)

// IsValid checks if the document type is known.
func (t Type) IsValid() bool {
	switch t {
	case TypeReceipt, TypeDelivery, TypeTransfer, TypeAdjustment:
		return true
	default:
		return false
	}
}

// OperationCode is the short code embedded in document references.
func (t Type) OperationCode() string {
	switch t {
	case TypeReceipt:
		return "IN"
	case TypeDelivery:
		return "OUT"
	case TypeTransfer:
		return "INT"
	case TypeAdjustment:
		return "ADJ"
	default:
		return ""
	}
}

// MovementType maps the document type onto its ledger movement type.
func (t Type) MovementType() stock.MovementType {
	switch t {
	case TypeReceipt:
		return stock.MovementTypeReceipt
	case TypeDelivery:
		return stock.MovementTypeDelivery
	case TypeTransfer:
		return stock.MovementTypeTransfer
	case TypeAdjustment:
		return stock.MovementTypeAdjustment
	default:
		return stock.MovementType("")
	}
}

// Status enumerates the document lifecycle.
type Status string

const (
	// StatusDraft is the initial editable state.
	StatusDraft Status = "DRAFT"
	// StatusWaiting marks a document waiting on upstream availability.
	StatusWaiting Status = "WAITING"
	// StatusReady marks a document cleared for processing.
	StatusReady Status = "READY"
	// StatusDone marks a posted document. Terminal.
	StatusDone Status = "DONE"
	// StatusCancelled marks an abandoned document. Terminal.
	StatusCancelled Status = "CANCELLED"
)

// IsValid checks if the status is known.
func (s Status) IsValid() bool {
	switch s {
	case StatusDraft, StatusWaiting, StatusReady, StatusDone, StatusCancelled:
		return true
	default:
		return false
	}
}

// CanValidate reports whether posting is legal from this status.
func (s Status) CanValidate() bool {
	switch s {
	case StatusDraft, StatusWaiting, StatusReady:
		return true
	default:
		return false
	}
}

// CanCancel reports whether the document may still be cancelled.
func (s Status) CanCancel() bool {
	return s.CanValidate()
}

// CanEdit reports whether header and lines may still change.
func (s Status) CanEdit() bool {
	return s == StatusDraft
}

// next returns the following intermediate status, or false when the document
// can only be validated or cancelled from here.
func (s Status) next() (Status, bool) {
	switch s {
	case StatusDraft:
		return StatusWaiting, true
	case StatusWaiting:
		return StatusReady, true
	default:
		return s, false
	}
}

// Document is a stock document header with its lines.
type Document struct {
	ID                    int64      `json:"id"`
	Type                  Type       `json:"document_type"`
	Reference             string     `json:"reference"`
	Status                Status     `json:"status"`
	WarehouseID           int64      `json:"warehouse_id"`
	SourceLocationID      *int64     `json:"source_location_id,omitempty"`
	DestinationLocationID *int64     `json:"destination_location_id,omitempty"`
	PartnerName           string     `json:"partner_name,omitempty"`
	Note                  string     `json:"note,omitempty"`
	ScheduledAt           *time.Time `json:"scheduled_at,omitempty"`
	PostedAt              *time.Time `json:"posted_at,omitempty"`
	ValidatedBy           *int64     `json:"validated_by,omitempty"`
	CreatedBy             int64      `json:"created_by"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	Lines                 []Line     `json:"lines"`
}

// Line is one product row on a document. Quantity is strictly positive for
// receipts, deliveries and transfers; adjustments carry a signed counted
// delta whose sign decides the movement direction at posting time.
type Line struct {
	ID         int64           `json:"id"`
	DocumentID int64           `json:"document_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   decimal.Decimal `json:"quantity"`
}

// Filter narrows document listings. Zero values mean "any".
type Filter struct {
	Type        Type
	Status      Status
	WarehouseID int64
	Limit       int
}

// ErrNotFound indicates a missing document.
var ErrNotFound = errors.New("documents: document not found")

// ErrInvalidDocument indicates a structurally broken document.
var ErrInvalidDocument = errors.New("documents: invalid document")

// ErrNotPostable indicates a validate call on a cancelled document.
var ErrNotPostable = errors.New("documents: document cannot be validated from its current status")

// ErrNotCancellable indicates a cancel call on a posted document.
var ErrNotCancellable = errors.New("documents: document cannot be cancelled from its current status")

// ErrNotProgressable indicates a status progression request on a document
// that can only be validated or cancelled.
var ErrNotProgressable = errors.New("documents: document has no further status before validation")

// ErrConcurrencyConflict indicates posting lost the serialization race after
// all retries.
var ErrConcurrencyConflict = errors.New("documents: concurrent posting conflict, retry the request")
