package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/iamteki/kl-mobile-backend/pkg/enums"
)

// InventoryTransaction is the append-only audit record of a single ledger
// mutation. BalanceBefore/BalanceAfter refer to the available quantity.
// Rows are never updated or deleted; replaying them from a zero state must
// reproduce the current counters exactly.
type InventoryTransaction struct {
	ID            uuid.UUID                      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	InventoryID   uuid.UUID                      `gorm:"column:inventory_id;type:uuid;not null;index"`
	Type          enums.InventoryTransactionType `gorm:"column:type;type:inventory_transaction_type;not null"`
	Qty           int                            `gorm:"column:qty;not null"`
	BalanceBefore int                            `gorm:"column:balance_before;not null"`
	BalanceAfter  int                            `gorm:"column:balance_after;not null"`
	BookingID     *uuid.UUID                     `gorm:"column:booking_id;type:uuid;index"`
	Reason        *string                        `gorm:"column:reason"`
	PerformedBy   uuid.UUID                      `gorm:"column:performed_by;type:uuid;not null"`
	CreatedAt     time.Time                      `gorm:"column:created_at;autoCreateTime"`
}
