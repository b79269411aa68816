package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/iamteki/kl-mobile-backend/internal/inventory"
	"github.com/iamteki/kl-mobile-backend/pkg/db/models"
	apperrors "github.com/iamteki/kl-mobile-backend/pkg/errors"
)

const day = 24 * time.Hour

// CheckRequest asks whether qty units of an item can be rented across the
// inclusive [StartDate, EndDate] window.
type CheckRequest struct {
	ItemID    uuid.UUID
	VariantID *uuid.UUID
	Qty       int
	StartDate time.Time
	EndDate   time.Time
}

// CheckResult reports the availability decision and the numbers behind it.
// AvailableQty is the worst-case free quantity across the window: total stock
// minus the peak daily booked quantity, maintenance and damaged units.
type CheckResult struct {
	Available    bool `json:"available"`
	AvailableQty int  `json:"availableQty"`
	TotalQty     int  `json:"totalQty"`
	MaxBookedQty int  `json:"maxBookedQty"`
	RequestedQty int  `json:"requestedQty"`
}

// DayAvailability is one calendar-day slice of the same computation.
type DayAvailability struct {
	Date         time.Time `json:"date"`
	BookedQty    int       `json:"bookedQty"`
	AvailableQty int       `json:"availableQty"`
}

// Engine answers date-range availability questions. It reads current booking
// rows instead of the reservation counters, so pending bookings never block a
// date and confirmed bookings block only their own rental window.
type Engine interface {
	Check(ctx context.Context, req CheckRequest) (*CheckResult, error)
	CheckTx(ctx context.Context, tx *gorm.DB, req CheckRequest) (*CheckResult, error)
	Calendar(ctx context.Context, itemID uuid.UUID, variantID *uuid.UUID, start, end time.Time) ([]DayAvailability, error)
}

type engine struct {
	repo      Repository
	inventory inventory.Repository
}

// NewEngine wires the availability engine.
func NewEngine(repo Repository, invRepo inventory.Repository) (Engine, error) {
	if repo == nil {
		return nil, fmt.Errorf("availability repository required")
	}
	if invRepo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &engine{repo: repo, inventory: invRepo}, nil
}

func (e *engine) Check(ctx context.Context, req CheckRequest) (*CheckResult, error) {
	return e.check(ctx, e.repo, e.inventory, req)
}

// CheckTx runs the availability check against a caller-owned transaction so
// booking confirmation sees a consistent snapshot.
func (e *engine) CheckTx(ctx context.Context, tx *gorm.DB, req CheckRequest) (*CheckResult, error) {
	return e.check(ctx, e.repo.WithTx(tx), e.inventory.WithTx(tx), req)
}

func (e *engine) check(ctx context.Context, repo Repository, invRepo inventory.Repository, req CheckRequest) (*CheckResult, error) {
	if err := validateWindow(req.StartDate, req.EndDate); err != nil {
		return nil, err
	}
	if req.ItemID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "item id is required")
	}
	if req.Qty <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "qty must be positive")
	}

	record, err := invRepo.FindByItem(ctx, req.ItemID, req.VariantID)
	if err != nil {
		return nil, err
	}

	start, end := truncateDay(req.StartDate), truncateDay(req.EndDate)
	rows, err := repo.OverlappingBookingItems(ctx, req.ItemID, req.VariantID, start, end)
	if err != nil {
		return nil, err
	}

	maxBooked := peakDailyBooked(rows, start, end)
	capacity := record.TotalQty - record.MaintenanceQty - record.DamagedQty
	availableQty := capacity - maxBooked
	if availableQty < 0 {
		availableQty = 0
	}

	return &CheckResult{
		Available:    availableQty >= req.Qty,
		AvailableQty: availableQty,
		TotalQty:     record.TotalQty,
		MaxBookedQty: maxBooked,
		RequestedQty: req.Qty,
	}, nil
}

// Calendar returns the per-day booked and free quantities across the window.
func (e *engine) Calendar(ctx context.Context, itemID uuid.UUID, variantID *uuid.UUID, start, end time.Time) ([]DayAvailability, error) {
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}
	if itemID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "item id is required")
	}

	record, err := e.inventory.FindByItem(ctx, itemID, variantID)
	if err != nil {
		return nil, err
	}

	start, end = truncateDay(start), truncateDay(end)
	rows, err := e.repo.OverlappingBookingItems(ctx, itemID, variantID, start, end)
	if err != nil {
		return nil, err
	}

	capacity := record.TotalQty - record.MaintenanceQty - record.DamagedQty
	var days []DayAvailability
	for d := start; !d.After(end); d = d.Add(day) {
		booked := bookedOn(rows, d)
		free := capacity - booked
		if free < 0 {
			free = 0
		}
		days = append(days, DayAvailability{Date: d, BookedQty: booked, AvailableQty: free})
	}
	return days, nil
}

// peakDailyBooked walks each day of the window and returns the highest
// simultaneous booked quantity. Two bookings that touch different days of
// the window never stack.
func peakDailyBooked(rows []models.BookingItem, start, end time.Time) int {
	peak := 0
	for d := start; !d.After(end); d = d.Add(day) {
		if booked := bookedOn(rows, d); booked > peak {
			peak = booked
		}
	}
	return peak
}

func bookedOn(rows []models.BookingItem, date time.Time) int {
	total := 0
	for _, row := range rows {
		rowStart, rowEnd := truncateDay(row.StartDate), truncateDay(row.EndDate)
		if !rowStart.After(date) && !rowEnd.Before(date) {
			total += row.Qty
		}
	}
	return total
}

func validateWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return apperrors.New(apperrors.CodeValidation, "start and end dates are required")
	}
	if truncateDay(end).Before(truncateDay(start)) {
		return apperrors.New(apperrors.CodeValidation, "end date before start date")
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
