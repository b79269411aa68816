package availability

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iamteki/kl-mobile-backend/pkg/db/models"
	"github.com/iamteki/kl-mobile-backend/pkg/enums"
)

// Repository loads the booking rows that count against availability.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	OverlappingBookingItems(ctx context.Context, itemID uuid.UUID, variantID *uuid.UUID, start, end time.Time) ([]models.BookingItem, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an availability repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// OverlappingBookingItems returns booking items for the item whose rental
// window touches [start, end] and whose booking currently holds stock.
// Both interval ends are inclusive.
func (r *repository) OverlappingBookingItems(ctx context.Context, itemID uuid.UUID, variantID *uuid.UUID, start, end time.Time) ([]models.BookingItem, error) {
	query := r.db.WithContext(ctx).
		Model(&models.BookingItem{}).
		Joins("JOIN bookings ON bookings.id = booking_items.booking_id").
		Where("booking_items.item_id = ?", itemID).
		Where("bookings.status IN ?", enums.StockHoldingBookingStatuses).
		Where("booking_items.start_date <= ? AND booking_items.end_date >= ?", end, start)
	if variantID == nil {
		query = query.Where("booking_items.variant_id IS NULL")
	} else {
		query = query.Where("booking_items.variant_id = ?", *variantID)
	}

	var rows []models.BookingItem
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
