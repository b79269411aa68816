package models

import (
	"time"

	"github.com/google/uuid"
)

// InventoryRecord tracks stock buckets for one (item, variant-or-none) pair.
// The counters always partition TotalQty:
//
//	total = available + reserved + maintenance + delivered + damaged
//
// Damaged units stay inside total until written off. The record is mutated
// only through the inventory ledger, never directly.
type InventoryRecord struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID         uuid.UUID  `gorm:"column:item_id;type:uuid;not null;uniqueIndex:ux_inventory_item_variant"`
	VariantID      *uuid.UUID `gorm:"column:variant_id;type:uuid;uniqueIndex:ux_inventory_item_variant"`
	TotalQty       int        `gorm:"column:total_qty;not null;default:0"`
	AvailableQty   int        `gorm:"column:available_qty;not null;default:0"`
	ReservedQty    int        `gorm:"column:reserved_qty;not null;default:0"`
	MaintenanceQty int        `gorm:"column:maintenance_qty;not null;default:0"`
	DeliveredQty   int        `gorm:"column:delivered_qty;not null;default:0"`
	DamagedQty     int        `gorm:"column:damaged_qty;not null;default:0"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// Balanced reports whether the bucket partition equals total and every
// counter is non-negative.
func (r InventoryRecord) Balanced() bool {
	if r.TotalQty < 0 || r.AvailableQty < 0 || r.ReservedQty < 0 ||
		r.MaintenanceQty < 0 || r.DeliveredQty < 0 || r.DamagedQty < 0 {
		return false
	}
	return r.AvailableQty+r.ReservedQty+r.MaintenanceQty+r.DeliveredQty+r.DamagedQty == r.TotalQty
}
