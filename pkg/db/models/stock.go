package models

import (
	"time"

	"github.com/google/uuid"
)

// Stock is the single source of truth for inventory. Every order-affecting
// mutation must hold a row lock on it for the duration of the transaction.
// The check constraint is the storage-layer backstop for the ledger invariant.
type Stock struct {
	VariantID        uuid.UUID `gorm:"column:variant_id;type:uuid;primaryKey"`
	QuantityOnHand   int       `gorm:"column:quantity_on_hand;not null;default:0"`
	QuantityReserved int       `gorm:"column:quantity_reserved;not null;default:0;check:quantity_reserved >= 0 AND quantity_reserved <= quantity_on_hand"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// QuantityAvailable is the sellable quantity: on hand minus reserved.
func (s Stock) QuantityAvailable() int {
	return s.QuantityOnHand - s.QuantityReserved
}
