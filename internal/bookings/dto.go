package bookings

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamteki/kl-mobile-backend/pkg/enums"
)

// DraftItemInput is one requested line of a new booking.
type DraftItemInput struct {
	ItemID    uuid.UUID
	VariantID *uuid.UUID
	Qty       int
	StartDate time.Time
	EndDate   time.Time
	// UnitPrice is used as-is when no Pricer is wired.
	UnitPrice decimal.Decimal
}

// DraftInput creates a pending booking. No stock moves until Confirm.
type DraftInput struct {
	CustomerID uuid.UUID
	EventDate  time.Time
	Items      []DraftItemInput
	ActorID    uuid.UUID
}

// CompleteItemInput splits one line's returned units between good and damaged.
type CompleteItemInput struct {
	BookingItemID uuid.UUID
	DamagedQty    int
}

// CompleteInput finalizes a delivered booking.
type CompleteInput struct {
	BookingID uuid.UUID
	Items     []CompleteItemInput
	ActorID   uuid.UUID
}

// Pricer resolves the unit price for a rental window. Pricing itself lives
// outside this service; bookings only snapshot what the pricer reports.
type Pricer interface {
	UnitPrice(ctx context.Context, itemID uuid.UUID, variantID *uuid.UUID, start, end time.Time) (decimal.Decimal, error)
}

// PaymentOracle reports the authoritative payment status for a booking.
// When none is wired the stored payment_status column is used instead.
type PaymentOracle interface {
	Status(ctx context.Context, bookingID uuid.UUID) (enums.PaymentStatus, error)
}

// CustomerStats receives post-commit lifecycle signals. Failures are the
// hook's problem; the booking flow never blocks on it.
type CustomerStats interface {
	BookingConfirmed(ctx context.Context, customerID uuid.UUID)
	BookingCompleted(ctx context.Context, customerID uuid.UUID)
}
