package locations

import "time"

// Kind classifies a location within the warehouse hierarchy.
type Kind string

const (
	KindZone Kind = "zone"
	KindRack Kind = "rack"
	KindBin  Kind = "bin"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindZone, KindRack, KindBin:
		return true
	}
	return false
}

// Location is a storage spot inside a warehouse. Locations may nest (zone,
// rack, bin) via ParentID; a quant always references a leaf location.
type Location struct {
	ID          int64     `json:"id"`
	WarehouseID int64     `json:"warehouse_id"`
	ParentID    *int64    `json:"parent_id,omitempty"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Kind        Kind      `json:"kind"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PathEntry is one step in a location's ancestry, root first.
type PathEntry struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
}
