package partners

import "time"

// Kind classifies a partner by the direction of goods flow.
type Kind string

const (
	KindCustomer Kind = "customer"
	KindVendor   Kind = "vendor"
	KindBoth     Kind = "both"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindCustomer, KindVendor, KindBoth:
		return true
	}
	return false
}

// Partner is a counterparty on receipts and deliveries.
type Partner struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Kind      Kind      `json:"kind"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
