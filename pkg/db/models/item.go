package models

import (
	"time"

	"github.com/google/uuid"
)

// Item is a rentable equipment type in the catalog.
type Item struct {
	ID          uuid.UUID     `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SKU         string        `gorm:"column:sku;not null;uniqueIndex"`
	Name        string        `gorm:"column:name;not null"`
	Description *string       `gorm:"column:description"`
	Active      bool          `gorm:"column:active;not null;default:true"`
	Variants    []ItemVariant `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time     `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time     `gorm:"column:updated_at;autoUpdateTime"`
}

// ItemVariant specializes an item by size, color or similar variation.
type ItemVariant struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ItemID    uuid.UUID `gorm:"column:item_id;type:uuid;not null;index"`
	Label     string    `gorm:"column:label;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
