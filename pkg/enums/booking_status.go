package enums

import "fmt"

// BookingStatus maps to the booking_status enum in Postgres.
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "pending"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusProcessing BookingStatus = "processing"
	BookingStatusDelivered  BookingStatus = "delivered"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusRefunded   BookingStatus = "refunded"
)

var validBookingStatuses = []BookingStatus{
	BookingStatusPending,
	BookingStatusConfirmed,
	BookingStatusProcessing,
	BookingStatusDelivered,
	BookingStatusCompleted,
	BookingStatusCancelled,
	BookingStatusRefunded,
}

// StockHoldingBookingStatuses are the statuses whose bookings count against
// availability. Pending bookings hold no stock until confirmation.
var StockHoldingBookingStatuses = []BookingStatus{
	BookingStatusConfirmed,
	BookingStatusProcessing,
	BookingStatusDelivered,
}

// IsValid reports whether the value matches the canonical booking_status enum.
func (s BookingStatus) IsValid() bool {
	for _, candidate := range validBookingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave this status.
func (s BookingStatus) IsTerminal() bool {
	switch s {
	case BookingStatusCompleted, BookingStatusCancelled, BookingStatusRefunded:
		return true
	default:
		return false
	}
}

// HoldsStock reports whether a booking in this status has reserved or
// delivered inventory attached to it.
func (s BookingStatus) HoldsStock() bool {
	for _, candidate := range StockHoldingBookingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseBookingStatus converts raw input into BookingStatus.
func ParseBookingStatus(value string) (BookingStatus, error) {
	for _, candidate := range validBookingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid booking status %q", value)
}
