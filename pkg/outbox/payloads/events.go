package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamteki/kl-mobile-backend/pkg/enums"
)

// BookingConfirmedEvent signals a booking that passed atomic stock reservation.
type BookingConfirmedEvent struct {
	BookingID     uuid.UUID           `json:"booking_id"`
	BookingNumber string              `json:"booking_number"`
	CustomerID    uuid.UUID           `json:"customer_id"`
	EventDate     time.Time           `json:"event_date"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	ItemCount     int                 `json:"item_count"`
}

// BookingCancelledEvent is emitted when a booking is cancelled and any held
// stock has been returned to the available pool.
type BookingCancelledEvent struct {
	BookingID      uuid.UUID           `json:"booking_id"`
	BookingNumber  string              `json:"booking_number"`
	CustomerID     uuid.UUID           `json:"customer_id"`
	PreviousStatus enums.BookingStatus `json:"previous_status"`
	StockReleased  bool                `json:"stock_released"`
	CancelledAt    time.Time           `json:"cancelled_at"`
	Reason         string              `json:"reason,omitempty"`
}

// BookingDeliveredEvent reports that reserved units moved out with the customer.
type BookingDeliveredEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	CustomerID    uuid.UUID `json:"customer_id"`
	DeliveredAt   time.Time `json:"delivered_at"`
}

// BookingCompletedEvent carries the return outcome, including damage counts.
type BookingCompletedEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	CustomerID    uuid.UUID `json:"customer_id"`
	ReturnedQty   int       `json:"returned_qty"`
	DamagedQty    int       `json:"damaged_qty"`
	CompletedAt   time.Time `json:"completed_at"`
}

// BookingExpiredEvent describes the payload when stale pending bookings expire.
type BookingExpiredEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	BookingNumber string    `json:"booking_number"`
	CustomerID    uuid.UUID `json:"customer_id"`
	ExpiredAt     time.Time `json:"expired_at"`
	TTLHours      int       `json:"ttl_hours"`
}

// InventoryAdjustedEvent mirrors a manual total-quantity correction.
type InventoryAdjustedEvent struct {
	InventoryID   uuid.UUID  `json:"inventory_id"`
	ItemID        uuid.UUID  `json:"item_id"`
	VariantID     *uuid.UUID `json:"variant_id,omitempty"`
	PreviousTotal int        `json:"previous_total"`
	NewTotal      int        `json:"new_total"`
	Reason        string     `json:"reason,omitempty"`
}
