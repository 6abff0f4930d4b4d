package domain

import "time"

// Merchant is a registered seller. ID is assigned once and never changes.
type Merchant struct {
	ID        uint64    `json:"id"`
	Address   Principal `json:"address"`
	Manager   Principal `json:"manager"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOwner reports whether p is the merchant's own address.
func (m *Merchant) IsOwner(p Principal) bool {
	return m.Address == p
}

// IsManager reports whether p is the merchant's designated manager.
func (m *Merchant) IsManager(p Principal) bool {
	return m.Manager == p
}
