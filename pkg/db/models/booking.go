package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamteki/kl-mobile-backend/pkg/enums"
)

// Booking is one rental request with its line items. Stock is reserved only
// at confirmation time, never while the booking is pending.
type Booking struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingNumber string              `gorm:"column:booking_number;not null;uniqueIndex"`
	CustomerID    uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	EventDate     time.Time           `gorm:"column:event_date;type:date;not null"`
	Status        enums.BookingStatus `gorm:"column:status;type:booking_status;not null;default:'pending'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	TotalAmount   decimal.Decimal     `gorm:"column:total_amount;type:decimal(12,2);not null"`
	CancelReason  *string             `gorm:"column:cancel_reason"`
	ConfirmedAt   *time.Time          `gorm:"column:confirmed_at"`
	DeliveredAt   *time.Time          `gorm:"column:delivered_at"`
	CompletedAt   *time.Time          `gorm:"column:completed_at"`
	CancelledAt   *time.Time          `gorm:"column:cancelled_at"`
	Items         []BookingItem       `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// BookingItem snapshots one rented item line with its own rental window.
type BookingItem struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BookingID uuid.UUID       `gorm:"column:booking_id;type:uuid;not null;index"`
	ItemID    uuid.UUID       `gorm:"column:item_id;type:uuid;not null;index"`
	VariantID *uuid.UUID      `gorm:"column:variant_id;type:uuid"`
	Qty       int             `gorm:"column:qty;not null"`
	StartDate time.Time       `gorm:"column:start_date;type:date;not null"`
	EndDate   time.Time       `gorm:"column:end_date;type:date;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:decimal(12,2);not null"`
	LineTotal decimal.Decimal `gorm:"column:line_total;type:decimal(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
