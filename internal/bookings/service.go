package bookings

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/iamteki/kl-mobile-backend/internal/inventory"
	"github.com/iamteki/kl-mobile-backend/pkg/db"
	"github.com/iamteki/kl-mobile-backend/pkg/db/models"
	"github.com/iamteki/kl-mobile-backend/pkg/enums"
	apperrors "github.com/iamteki/kl-mobile-backend/pkg/errors"
	"github.com/iamteki/kl-mobile-backend/pkg/logger"
	"github.com/iamteki/kl-mobile-backend/pkg/outbox"
	"github.com/iamteki/kl-mobile-backend/pkg/outbox/payloads"
	"github.com/iamteki/kl-mobile-backend/pkg/pagination"
)

// number collisions are vanishingly rare; one retry covers them
const maxNumberAttempts = 3

// Service drives the booking state machine:
//
//	pending → confirmed → processing → delivered → completed
//
// with cancellations allowed until delivery and refunded as a terminal
// bookkeeping state. Stock is reserved atomically at Confirm and released
// or moved by the later transitions, always through the inventory ledger
// inside the same transaction as the status flip.
type Service interface {
	CreateDraft(ctx context.Context, in DraftInput) (*models.Booking, error)
	Confirm(ctx context.Context, bookingID, actorID uuid.UUID) (*models.Booking, error)
	StartProcessing(ctx context.Context, bookingID, actorID uuid.UUID) (*models.Booking, error)
	Deliver(ctx context.Context, bookingID, actorID uuid.UUID) (*models.Booking, error)
	Complete(ctx context.Context, in CompleteInput) (*models.Booking, error)
	Cancel(ctx context.Context, bookingID uuid.UUID, reason string, actorID uuid.UUID) (*models.Booking, error)
	Refund(ctx context.Context, bookingID, actorID uuid.UUID) (*models.Booking, error)
	RecordPayment(ctx context.Context, bookingID uuid.UUID, status enums.PaymentStatus) error

	Get(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error)
	GetByNumber(ctx context.Context, number string) (*models.Booking, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Booking, string, error)

	ExpireStalePending(ctx context.Context, ttl time.Duration, limit int, actorID uuid.UUID) (int, error)
}

type service struct {
	client   *db.Client
	repo     Repository
	ledger   inventory.Service
	events   *outbox.Service
	logg     *logger.Logger
	pricer   Pricer
	payments PaymentOracle
	stats    CustomerStats
}

// Options carries the optional collaborators.
type Options struct {
	Pricer   Pricer
	Payments PaymentOracle
	Stats    CustomerStats
}

// NewService wires the booking state machine.
func NewService(client *db.Client, repo Repository, ledger inventory.Service, events *outbox.Service, logg *logger.Logger, opts Options) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("booking repository required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("inventory ledger required")
	}
	return &service{
		client:   client,
		repo:     repo,
		ledger:   ledger,
		events:   events,
		logg:     logg,
		pricer:   opts.Pricer,
		payments: opts.Payments,
		stats:    opts.Stats,
	}, nil
}

func (s *service) CreateDraft(ctx context.Context, in DraftInput) (*models.Booking, error) {
	if in.CustomerID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "customer id is required")
	}
	if in.EventDate.IsZero() {
		return nil, apperrors.New(apperrors.CodeValidation, "event date is required")
	}
	if len(in.Items) == 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "booking requires at least one item")
	}

	total := decimal.Zero
	items := make([]models.BookingItem, 0, len(in.Items))
	for _, item := range in.Items {
		if item.ItemID == uuid.Nil {
			return nil, apperrors.New(apperrors.CodeValidation, "item id is required")
		}
		if item.Qty <= 0 {
			return nil, apperrors.New(apperrors.CodeValidation, "item qty must be positive")
		}
		if item.EndDate.Before(item.StartDate) {
			return nil, apperrors.New(apperrors.CodeValidation, "item end date before start date")
		}

		unitPrice := item.UnitPrice
		if s.pricer != nil {
			price, err := s.pricer.UnitPrice(ctx, item.ItemID, item.VariantID, item.StartDate, item.EndDate)
			if err != nil {
				return nil, apperrors.Wrap(apperrors.CodeDependency, err, "pricing unavailable")
			}
			unitPrice = price
		}
		lineTotal := unitPrice.Mul(decimal.NewFromInt(int64(item.Qty)))
		total = total.Add(lineTotal)
		items = append(items, models.BookingItem{
			ItemID:    item.ItemID,
			VariantID: item.VariantID,
			Qty:       item.Qty,
			StartDate: item.StartDate,
			EndDate:   item.EndDate,
			UnitPrice: unitPrice,
			LineTotal: lineTotal,
		})
	}

	var booking *models.Booking
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		number, err := NewBookingNumber(time.Now())
		if err != nil {
			return nil, err
		}
		candidate := &models.Booking{
			BookingNumber: number,
			CustomerID:    in.CustomerID,
			EventDate:     in.EventDate,
			Status:        enums.BookingStatusPending,
			PaymentStatus: enums.PaymentStatusPending,
			TotalAmount:   total,
			Items:         items,
		}
		err = s.repo.Create(ctx, candidate)
		if err == nil {
			booking = candidate
			break
		}
		if !db.IsUniqueViolation(err, "booking_number") {
			return nil, err
		}
	}
	if booking == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "could not allocate booking number")
	}

	if s.logg != nil {
		logCtx := s.logg.WithBookingID(ctx, booking.ID.String())
		s.logg.Info(logCtx, "booking draft created")
	}
	return booking, nil
}

// Confirm reserves every line item and flips the booking to confirmed in one
// transaction. Any item failure rolls the whole thing back; the booking stays
// pending and no counters move.
func (s *service) Confirm(ctx context.Context, bookingID, actorID uuid.UUID) (*models.Booking, error) {
	if bookingID == uuid.Nil || actorID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "booking id and actor id are required")
	}

	var booking *models.Booking
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if found.Status != enums.BookingStatusPending {
			return apperrors.New(apperrors.CodeStateConflict, "only pending bookings can be confirmed").
				WithDetails(map[string]any{"status": found.Status})
		}

		var reserveErr error
		for _, item := range found.Items {
			_, err := s.ledger.ReserveTx(ctx, tx, inventory.MovementInput{
				ItemID:    item.ItemID,
				VariantID: item.VariantID,
				Qty:       item.Qty,
				BookingID: &found.ID,
				ActorID:   actorID,
			})
			if err != nil {
				reserveErr = multierr.Append(reserveErr, fmt.Errorf("item %s: %w", item.ItemID, err))
			}
		}
		if reserveErr != nil {
			return apperrors.Wrap(apperrors.CodeInsufficientStock, reserveErr, "items unavailable")
		}

		now := time.Now().UTC()
		if err := repo.TransitionStatus(ctx, found.ID, enums.BookingStatusPending, enums.BookingStatusConfirmed, map[string]any{
			"confirmed_at": now,
		}); err != nil {
			return err
		}
		found.Status = enums.BookingStatusConfirmed
		found.ConfirmedAt = &now

		if err := s.emit(ctx, tx, enums.EventBookingConfirmed, found, actorID, payloads.BookingConfirmedEvent{
			BookingID:     found.ID,
			BookingNumber: found.BookingNumber,
			CustomerID:    found.CustomerID,
			EventDate:     found.EventDate,
			TotalAmount:   found.TotalAmount,
			PaymentStatus: found.PaymentStatus,
			ItemCount:     len(found.Items),
		}); err != nil {
			return err
		}
		booking = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.stats != nil {
		s.stats.BookingConfirmed(ctx, booking.CustomerID)
	}
	if s.logg != nil {
		logCtx := s.logg.WithBookingID(ctx, booking.ID.String())
		s.logg.Info(logCtx, "booking confirmed")
	}
	return booking, nil
}

// StartProcessing is a status-only transition; stock stays reserved.
func (s *service) StartProcessing(ctx context.Context, bookingID, actorID uuid.UUID) (*models.Booking, error) {
	if bookingID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "booking id is required")
	}

	var booking *models.Booking
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if found.Status != enums.BookingStatusConfirmed {
			return apperrors.New(apperrors.CodeStateConflict, "only confirmed bookings can start processing").
				WithDetails(map[string]any{"status": found.Status})
		}
		if err := repo.TransitionStatus(ctx, found.ID, enums.BookingStatusConfirmed, enums.BookingStatusProcessing, nil); err != nil {
			return err
		}
		found.Status = enums.BookingStatusProcessing
		booking = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// Deliver moves every reserved line to the delivered bucket. The booking must
// be processing and paid for.
func (s *service) Deliver(ctx context.Context, bookingID, actorID uuid.UUID) (*models.Booking, error) {
	if bookingID == uuid.Nil || actorID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "booking id and actor id are required")
	}

	var booking *models.Booking
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if found.Status != enums.BookingStatusProcessing {
			return apperrors.New(apperrors.CodeStateConflict, "only processing bookings can be delivered").
				WithDetails(map[string]any{"status": found.Status})
		}

		paymentStatus := found.PaymentStatus
		if s.payments != nil {
			reported, err := s.payments.Status(ctx, found.ID)
			if err != nil {
				return apperrors.Wrap(apperrors.CodeDependency, err, "payment status unavailable")
			}
			paymentStatus = reported
		}
		if paymentStatus != enums.PaymentStatusPaid {
			return apperrors.New(apperrors.CodeStateConflict, "booking must be paid before delivery").
				WithDetails(map[string]any{"payment_status": paymentStatus})
		}

		for _, item := range found.Items {
			if _, err := s.ledger.MarkDeliveredTx(ctx, tx, inventory.MovementInput{
				ItemID:    item.ItemID,
				VariantID: item.VariantID,
				Qty:       item.Qty,
				BookingID: &found.ID,
				ActorID:   actorID,
			}); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		if err := repo.TransitionStatus(ctx, found.ID, enums.BookingStatusProcessing, enums.BookingStatusDelivered, map[string]any{
			"delivered_at": now,
		}); err != nil {
			return err
		}
		found.Status = enums.BookingStatusDelivered
		found.DeliveredAt = &now

		if err := s.emit(ctx, tx, enums.EventBookingDelivered, found, actorID, payloads.BookingDeliveredEvent{
			BookingID:     found.ID,
			BookingNumber: found.BookingNumber,
			CustomerID:    found.CustomerID,
			DeliveredAt:   now,
		}); err != nil {
			return err
		}
		booking = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// Complete returns every delivered line, splitting units between the
// available pool and the damaged bucket per item.
func (s *service) Complete(ctx context.Context, in CompleteInput) (*models.Booking, error) {
	if in.BookingID == uuid.Nil || in.ActorID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "booking id and actor id are required")
	}

	damagedByItem := make(map[uuid.UUID]int, len(in.Items))
	for _, item := range in.Items {
		if item.DamagedQty < 0 {
			return nil, apperrors.New(apperrors.CodeValidation, "damaged qty must be non-negative")
		}
		damagedByItem[item.BookingItemID] = item.DamagedQty
	}

	var booking *models.Booking
	totalReturned, totalDamaged := 0, 0
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByIDForUpdate(ctx, in.BookingID)
		if err != nil {
			return err
		}
		if found.Status != enums.BookingStatusDelivered {
			return apperrors.New(apperrors.CodeStateConflict, "only delivered bookings can be completed").
				WithDetails(map[string]any{"status": found.Status})
		}

		for _, item := range found.Items {
			damaged := damagedByItem[item.ID]
			if damaged > item.Qty {
				return apperrors.New(apperrors.CodeValidation, "damaged qty exceeds line qty").
					WithDetails(map[string]any{"booking_item_id": item.ID.String()})
			}
			returned := item.Qty - damaged
			if _, err := s.ledger.MarkReturnedTx(ctx, tx, inventory.ReturnInput{
				ItemID:      item.ItemID,
				VariantID:   item.VariantID,
				ReturnedQty: returned,
				DamagedQty:  damaged,
				BookingID:   &found.ID,
				ActorID:     in.ActorID,
			}); err != nil {
				return err
			}
			totalReturned += returned
			totalDamaged += damaged
		}

		now := time.Now().UTC()
		if err := repo.TransitionStatus(ctx, found.ID, enums.BookingStatusDelivered, enums.BookingStatusCompleted, map[string]any{
			"completed_at": now,
		}); err != nil {
			return err
		}
		found.Status = enums.BookingStatusCompleted
		found.CompletedAt = &now

		if err := s.emit(ctx, tx, enums.EventBookingCompleted, found, in.ActorID, payloads.BookingCompletedEvent{
			BookingID:     found.ID,
			BookingNumber: found.BookingNumber,
			CustomerID:    found.CustomerID,
			ReturnedQty:   totalReturned,
			DamagedQty:    totalDamaged,
			CompletedAt:   now,
		}); err != nil {
			return err
		}
		booking = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.stats != nil {
		s.stats.BookingCompleted(ctx, booking.CustomerID)
	}
	return booking, nil
}

// Cancel aborts a booking before delivery. Stock is released only when the
// prior status actually held any.
func (s *service) Cancel(ctx context.Context, bookingID uuid.UUID, reason string, actorID uuid.UUID) (*models.Booking, error) {
	if bookingID == uuid.Nil || actorID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "booking id and actor id are required")
	}

	var booking *models.Booking
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		switch found.Status {
		case enums.BookingStatusPending, enums.BookingStatusConfirmed, enums.BookingStatusProcessing:
		default:
			return apperrors.New(apperrors.CodeStateConflict, "booking can no longer be cancelled").
				WithDetails(map[string]any{"status": found.Status})
		}
		if dayOf(found.EventDate).Before(dayOf(time.Now())) {
			return apperrors.New(apperrors.CodeStateConflict, "event date already passed")
		}

		previous := found.Status
		if previous.HoldsStock() {
			for _, item := range found.Items {
				if _, err := s.ledger.ReleaseTx(ctx, tx, inventory.MovementInput{
					ItemID:    item.ItemID,
					VariantID: item.VariantID,
					Qty:       item.Qty,
					BookingID: &found.ID,
					ActorID:   actorID,
				}); err != nil {
					return err
				}
			}
		}

		now := time.Now().UTC()
		if err := repo.TransitionStatus(ctx, found.ID, previous, enums.BookingStatusCancelled, map[string]any{
			"cancelled_at":  now,
			"cancel_reason": reason,
		}); err != nil {
			return err
		}
		found.Status = enums.BookingStatusCancelled
		found.CancelledAt = &now
		found.CancelReason = &reason

		if err := s.emit(ctx, tx, enums.EventBookingCancelled, found, actorID, payloads.BookingCancelledEvent{
			BookingID:      found.ID,
			BookingNumber:  found.BookingNumber,
			CustomerID:     found.CustomerID,
			PreviousStatus: previous,
			StockReleased:  previous.HoldsStock(),
			CancelledAt:    now,
			Reason:         reason,
		}); err != nil {
			return err
		}
		booking = found
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithBookingID(ctx, booking.ID.String())
		s.logg.Info(logCtx, "booking cancelled")
	}
	return booking, nil
}

// Refund marks a cancelled booking refunded once the processor reports the
// money went back.
func (s *service) Refund(ctx context.Context, bookingID, actorID uuid.UUID) (*models.Booking, error) {
	if bookingID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "booking id is required")
	}

	var booking *models.Booking
	err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindByIDForUpdate(ctx, bookingID)
		if err != nil {
			return err
		}
		if found.Status != enums.BookingStatusCancelled {
			return apperrors.New(apperrors.CodeStateConflict, "only cancelled bookings can be refunded").
				WithDetails(map[string]any{"status": found.Status})
		}
		if err := repo.TransitionStatus(ctx, found.ID, enums.BookingStatusCancelled, enums.BookingStatusRefunded, map[string]any{
			"payment_status": enums.PaymentStatusRefunded,
		}); err != nil {
			return err
		}
		found.Status = enums.BookingStatusRefunded
		found.PaymentStatus = enums.PaymentStatusRefunded
		booking = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *service) RecordPayment(ctx context.Context, bookingID uuid.UUID, status enums.PaymentStatus) error {
	if bookingID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "booking id is required")
	}
	if !status.IsValid() {
		return apperrors.New(apperrors.CodeValidation, "invalid payment status")
	}
	return s.repo.UpdatePaymentStatus(ctx, bookingID, status)
}

func (s *service) Get(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	if bookingID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "booking id is required")
	}
	return s.repo.FindByID(ctx, bookingID)
}

func (s *service) GetByNumber(ctx context.Context, number string) (*models.Booking, error) {
	if number == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "booking number is required")
	}
	return s.repo.FindByNumber(ctx, number)
}

func (s *service) ListByCustomer(ctx context.Context, customerID uuid.UUID, params pagination.Params) ([]models.Booking, string, error) {
	if customerID == uuid.Nil {
		return nil, "", apperrors.New(apperrors.CodeValidation, "customer id is required")
	}
	return s.repo.ListByCustomer(ctx, customerID, params)
}

// ExpireStalePending cancels pending bookings that sat unconfirmed past the
// TTL or whose event date already passed. Pending holds no stock, so this is
// a pure status sweep.
func (s *service) ExpireStalePending(ctx context.Context, ttl time.Duration, limit int, actorID uuid.UUID) (int, error) {
	cutoff := time.Now().UTC().Add(-ttl)
	today := dayOf(time.Now())
	ids, err := s.repo.StalePendingIDs(ctx, cutoff, today, limit)
	if err != nil {
		return 0, err
	}

	expired := 0
	var sweepErr error
	for _, id := range ids {
		err := s.client.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			found, err := repo.FindByIDForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if found.Status != enums.BookingStatusPending {
				return nil
			}
			now := time.Now().UTC()
			if err := repo.TransitionStatus(ctx, found.ID, enums.BookingStatusPending, enums.BookingStatusCancelled, map[string]any{
				"cancelled_at":  now,
				"cancel_reason": "expired",
			}); err != nil {
				return err
			}
			return s.emit(ctx, tx, enums.EventBookingExpired, found, actorID, payloads.BookingExpiredEvent{
				BookingID:     found.ID,
				BookingNumber: found.BookingNumber,
				CustomerID:    found.CustomerID,
				ExpiredAt:     now,
				TTLHours:      int(ttl.Hours()),
			})
		})
		if err != nil {
			sweepErr = multierr.Append(sweepErr, fmt.Errorf("booking %s: %w", id, err))
			continue
		}
		expired++
	}

	if s.logg != nil && expired > 0 {
		logCtx := s.logg.WithField(ctx, "expired", expired)
		s.logg.Info(logCtx, "stale pending bookings expired")
	}
	return expired, sweepErr
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, booking *models.Booking, actorID uuid.UUID, data any) error {
	if s.events == nil {
		return nil
	}
	return s.events.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateBooking,
		AggregateID:   booking.ID,
		Actor:         &outbox.ActorRef{ActorID: actorID},
		Data:          data,
	})
}

func dayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
