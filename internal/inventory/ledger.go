package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"gorm.io/gorm"

	"github.com/iamteki/kl-mobile-backend/pkg/db"
	"github.com/iamteki/kl-mobile-backend/pkg/db/models"
	"github.com/iamteki/kl-mobile-backend/pkg/enums"
	apperrors "github.com/iamteki/kl-mobile-backend/pkg/errors"
	"github.com/iamteki/kl-mobile-backend/pkg/logger"
	"github.com/iamteki/kl-mobile-backend/pkg/metrics"
	"github.com/iamteki/kl-mobile-backend/pkg/outbox"
	"github.com/iamteki/kl-mobile-backend/pkg/outbox/payloads"
	"github.com/iamteki/kl-mobile-backend/pkg/pagination"
)

const (
	maxLockRetries = 3
	lockRetryBase  = 25 * time.Millisecond
)

// MovementInput describes a single-bucket ledger movement.
type MovementInput struct {
	ItemID    uuid.UUID
	VariantID *uuid.UUID
	Qty       int
	BookingID *uuid.UUID
	Reason    *string
	ActorID   uuid.UUID
}

func (in MovementInput) validate() error {
	if in.ItemID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "item id is required")
	}
	if in.Qty <= 0 {
		return apperrors.New(apperrors.CodeValidation, "qty must be positive")
	}
	if in.ActorID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "actor id is required")
	}
	return nil
}

// ReturnInput splits delivered units between the available pool and the
// damaged bucket when a booking comes back.
type ReturnInput struct {
	ItemID      uuid.UUID
	VariantID   *uuid.UUID
	ReturnedQty int
	DamagedQty  int
	BookingID   *uuid.UUID
	Reason      *string
	ActorID     uuid.UUID
}

func (in ReturnInput) validate() error {
	if in.ItemID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "item id is required")
	}
	if in.ReturnedQty < 0 || in.DamagedQty < 0 {
		return apperrors.New(apperrors.CodeValidation, "quantities must be non-negative")
	}
	if in.ReturnedQty+in.DamagedQty <= 0 {
		return apperrors.New(apperrors.CodeValidation, "return requires at least one unit")
	}
	if in.ActorID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "actor id is required")
	}
	return nil
}

// AdjustInput sets a new total quantity for a record.
type AdjustInput struct {
	ItemID    uuid.UUID
	VariantID *uuid.UUID
	NewTotal  int
	Reason    *string
	ActorID   uuid.UUID
}

func (in AdjustInput) validate() error {
	if in.ItemID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "item id is required")
	}
	if in.NewTotal < 0 {
		return apperrors.New(apperrors.CodeValidation, "new total must be non-negative")
	}
	if in.ActorID == uuid.Nil {
		return apperrors.New(apperrors.CodeValidation, "actor id is required")
	}
	return nil
}

// AuditResult reports a replay of the transaction log against the stored
// counters.
type AuditResult struct {
	Record   models.InventoryRecord
	Replayed models.InventoryRecord
	Balanced bool
	Matches  bool
}

// Service is the inventory ledger. Every stock mutation flows through it so
// that counters and the transaction log always change together. The Tx
// variants run inside a caller-owned transaction; the plain variants own
// their transaction and retry on concurrent-write conflicts.
type Service interface {
	EnsureRecord(ctx context.Context, itemID uuid.UUID, variantID *uuid.UUID) (*models.InventoryRecord, error)
	Record(ctx context.Context, itemID uuid.UUID, variantID *uuid.UUID) (*models.InventoryRecord, error)

	Reserve(ctx context.Context, in MovementInput) (*models.InventoryRecord, error)
	ReserveTx(ctx context.Context, tx *gorm.DB, in MovementInput) (*models.InventoryRecord, error)
	Release(ctx context.Context, in MovementInput) (*models.InventoryRecord, error)
	ReleaseTx(ctx context.Context, tx *gorm.DB, in MovementInput) (*models.InventoryRecord, error)
	MarkDelivered(ctx context.Context, in MovementInput) (*models.InventoryRecord, error)
	MarkDeliveredTx(ctx context.Context, tx *gorm.DB, in MovementInput) (*models.InventoryRecord, error)
	MarkReturned(ctx context.Context, in ReturnInput) (*models.InventoryRecord, error)
	MarkReturnedTx(ctx context.Context, tx *gorm.DB, in ReturnInput) (*models.InventoryRecord, error)

	Adjust(ctx context.Context, in AdjustInput) (*models.InventoryRecord, error)
	MoveToMaintenance(ctx context.Context, in MovementInput) (*models.InventoryRecord, error)
	ReturnFromMaintenance(ctx context.Context, in MovementInput) (*models.InventoryRecord, error)
	WriteOffDamaged(ctx context.Context, in MovementInput) (*models.InventoryRecord, error)

	ListTransactions(ctx context.Context, inventoryID uuid.UUID, params pagination.Params) ([]models.InventoryTransaction, string, error)
	Audit(ctx context.Context, inventoryID uuid.UUID, actorID uuid.UUID) (*AuditResult, error)
}

type service struct {
	client  *db.Client
	repo    Repository
	events  *outbox.Service
	logg    *logger.Logger
	metrics *metrics.InventoryMetrics
}

// NewService wires the inventory ledger. The outbox service may be nil when
// no downstream consumers care about adjustment events.
func NewService(client *db.Client, repo Repository, events *outbox.Service, logg *logger.Logger, m *metrics.InventoryMetrics) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	return &service{client: client, repo: repo, events: events, logg: logg, metrics: m}, nil
}

func (s *service) EnsureRecord(ctx context.Context, itemID uuid.UUID, variantID *uuid.UUID) (*models.InventoryRecord, error) {
	if itemID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "item id is required")
	}
	return s.repo.Ensure(ctx, itemID, variantID)
}

func (s *service) Record(ctx context.Context, itemID uuid.UUID, variantID *uuid.UUID) (*models.InventoryRecord, error) {
	if itemID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "item id is required")
	}
	return s.repo.FindByItem(ctx, itemID, variantID)
}

func (s *service) Reserve(ctx context.Context, in MovementInput) (*models.InventoryRecord, error) {
	return s.run(ctx, "reserve", func(tx *gorm.DB) (*models.InventoryRecord, error) {
		return s.reserve(ctx, tx, in)
	})
}

func (s *service) ReserveTx(ctx context.Context, tx *gorm.DB, in MovementInput) (*models.InventoryRecord, error) {
	return s.reserve(ctx, tx, in)
}

func (s *service) Release(ctx context.Context, in MovementInput) (*models.InventoryRecord, error) {
	return s.run(ctx, "release", func(tx *gorm.DB) (*models.InventoryRecord, error) {
		return s.release(ctx, tx, in)
	})
}

func (s *service) ReleaseTx(ctx context.Context, tx *gorm.DB, in MovementInput) (*models.InventoryRecord, error) {
	return s.release(ctx, tx, in)
}

func (s *service) MarkDelivered(ctx context.Context, in MovementInput) (*models.InventoryRecord, error) {
	return s.run(ctx, "mark_delivered", func(tx *gorm.DB) (*models.InventoryRecord, error) {
		return s.markDelivered(ctx, tx, in)
	})
}

func (s *service) MarkDeliveredTx(ctx context.Context, tx *gorm.DB, in MovementInput) (*models.InventoryRecord, error) {
	return s.markDelivered(ctx, tx, in)
}

func (s *service) MarkReturned(ctx context.Context, in ReturnInput) (*models.InventoryRecord, error) {
	return s.run(ctx, "mark_returned", func(tx *gorm.DB) (*models.InventoryRecord, error) {
		return s.markReturned(ctx, tx, in)
	})
}

func (s *service) MarkReturnedTx(ctx context.Context, tx *gorm.DB, in ReturnInput) (*models.InventoryRecord, error) {
	return s.markReturned(ctx, tx, in)
}

func (s *service) Adjust(ctx context.Context, in AdjustInput) (*models.InventoryRecord, error) {
	return s.run(ctx, "adjust", func(tx *gorm.DB) (*models.InventoryRecord, error) {
		return s.adjust(ctx, tx, in)
	})
}

func (s *service) MoveToMaintenance(ctx context.Context, in MovementInput) (*models.InventoryRecord, error) {
	return s.run(ctx, "move_to_maintenance", func(tx *gorm.DB) (*models.InventoryRecord, error) {
		return s.moveToMaintenance(ctx, tx, in)
	})
}

func (s *service) ReturnFromMaintenance(ctx context.Context, in MovementInput) (*models.InventoryRecord, error) {
	return s.run(ctx, "return_from_maintenance", func(tx *gorm.DB) (*models.InventoryRecord, error) {
		return s.returnFromMaintenance(ctx, tx, in)
	})
}

func (s *service) WriteOffDamaged(ctx context.Context, in MovementInput) (*models.InventoryRecord, error) {
	return s.run(ctx, "write_off_damaged", func(tx *gorm.DB) (*models.InventoryRecord, error) {
		return s.writeOffDamaged(ctx, tx, in)
	})
}

func (s *service) ListTransactions(ctx context.Context, inventoryID uuid.UUID, params pagination.Params) ([]models.InventoryTransaction, string, error) {
	if inventoryID == uuid.Nil {
		return nil, "", apperrors.New(apperrors.CodeValidation, "inventory id is required")
	}
	return s.repo.ListTransactions(ctx, inventoryID, params)
}

// Audit replays the full transaction log from a zero state and compares the
// result against the stored counters.
func (s *service) Audit(ctx context.Context, inventoryID uuid.UUID, actorID uuid.UUID) (*AuditResult, error) {
	if inventoryID == uuid.Nil {
		return nil, apperrors.New(apperrors.CodeValidation, "inventory id is required")
	}

	record, err := s.repo.FindByID(ctx, inventoryID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.AllTransactions(ctx, inventoryID)
	if err != nil {
		return nil, err
	}

	replayed := Replay(rows)
	result := &AuditResult{
		Record:   *record,
		Replayed: replayed,
		Balanced: record.Balanced(),
		Matches:  countersEqual(*record, replayed),
	}

	auditRow := &models.InventoryTransaction{
		InventoryID:   inventoryID,
		Type:          enums.TransactionAudit,
		Qty:           0,
		BalanceBefore: record.AvailableQty,
		BalanceAfter:  record.AvailableQty,
		PerformedBy:   actorID,
	}
	if err := s.repo.AppendTransaction(ctx, auditRow); err != nil {
		return nil, err
	}

	if s.logg != nil && (!result.Balanced || !result.Matches) {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"inventory_id": inventoryID.String(),
			"balanced":     result.Balanced,
			"matches":      result.Matches,
		})
		s.logg.Warn(logCtx, "inventory audit mismatch")
	}
	return result, nil
}

// Replay applies the transaction log to a zero-valued record. Audit rows are
// snapshots and do not move stock.
func Replay(rows []models.InventoryTransaction) models.InventoryRecord {
	var rec models.InventoryRecord
	for _, row := range rows {
		switch row.Type {
		case enums.TransactionReservation:
			rec.AvailableQty -= row.Qty
			rec.ReservedQty += row.Qty
		case enums.TransactionRelease:
			rec.ReservedQty -= row.Qty
			rec.AvailableQty += row.Qty
		case enums.TransactionDelivery:
			rec.ReservedQty -= row.Qty
			rec.DeliveredQty += row.Qty
		case enums.TransactionReturn:
			rec.DeliveredQty -= row.Qty
			rec.AvailableQty += row.Qty
		case enums.TransactionDamage:
			rec.DeliveredQty -= row.Qty
			rec.DamagedQty += row.Qty
		case enums.TransactionAdjustment:
			// Qty is the signed total delta for adjustments.
			rec.TotalQty += row.Qty
			rec.AvailableQty += row.Qty
		case enums.TransactionMaintenance:
			rec.AvailableQty -= row.Qty
			rec.MaintenanceQty += row.Qty
		case enums.TransactionMaintenanceReturn:
			rec.MaintenanceQty -= row.Qty
			rec.AvailableQty += row.Qty
		case enums.TransactionWriteOff:
			rec.DamagedQty -= row.Qty
			rec.TotalQty -= row.Qty
		case enums.TransactionAudit:
		}
	}
	return rec
}

func countersEqual(a, b models.InventoryRecord) bool {
	return a.TotalQty == b.TotalQty &&
		a.AvailableQty == b.AvailableQty &&
		a.ReservedQty == b.ReservedQty &&
		a.MaintenanceQty == b.MaintenanceQty &&
		a.DeliveredQty == b.DeliveredQty &&
		a.DamagedQty == b.DamagedQty
}

// run owns the transaction for standalone ledger calls, retrying when the
// guarded counter update loses a concurrent-write race.
func (s *service) run(ctx context.Context, op string, fn func(tx *gorm.DB) (*models.InventoryRecord, error)) (*models.InventoryRecord, error) {
	start := time.Now()
	var record *models.InventoryRecord

	backoff := retry.WithMaxRetries(maxLockRetries, retry.NewFibonacci(lockRetryBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		txErr := s.client.WithTx(ctx, func(tx *gorm.DB) error {
			var innerErr error
			record, innerErr = fn(tx)
			return innerErr
		})
		if apperrors.HasCode(txErr, apperrors.CodeLockTimeout) {
			s.metrics.IncConflict()
			return retry.RetryableError(txErr)
		}
		return txErr
	})

	s.metrics.ObserveDuration(op, time.Since(start))
	if err != nil {
		code := string(apperrors.CodeInternal)
		if typed := apperrors.As(err); typed != nil {
			code = string(typed.Code())
		}
		s.metrics.IncFailure(op, code)
		return nil, err
	}
	return record, nil
}

func (s *service) reserve(ctx context.Context, tx *gorm.DB, in MovementInput) (*models.InventoryRecord, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)
	record, err := repo.FindForUpdate(ctx, in.ItemID, in.VariantID)
	if err != nil {
		return nil, err
	}
	if record.AvailableQty < in.Qty {
		return nil, apperrors.New(apperrors.CodeInsufficientStock, "not enough available stock").
			WithDetails(map[string]any{
				"item_id":   in.ItemID.String(),
				"requested": in.Qty,
				"available": record.AvailableQty,
			})
	}

	prev := *record
	record.AvailableQty -= in.Qty
	record.ReservedQty += in.Qty
	return s.commitMovement(ctx, repo, prev, record, movement{
		txType: enums.TransactionReservation,
		qty:    in.Qty,
		before: prev.AvailableQty,
		after:  record.AvailableQty,
		in:     in,
	})
}

func (s *service) release(ctx context.Context, tx *gorm.DB, in MovementInput) (*models.InventoryRecord, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)
	record, err := repo.FindForUpdate(ctx, in.ItemID, in.VariantID)
	if err != nil {
		return nil, err
	}
	// releasing more than is reserved means a double release or a ledger
	// bug upstream; surface it instead of clamping
	if record.ReservedQty < in.Qty {
		return nil, apperrors.New(apperrors.CodeBucketConflict, "release exceeds reserved stock").
			WithDetails(map[string]any{
				"item_id":   in.ItemID.String(),
				"requested": in.Qty,
				"reserved":  record.ReservedQty,
			})
	}

	prev := *record
	record.ReservedQty -= in.Qty
	record.AvailableQty += in.Qty
	return s.commitMovement(ctx, repo, prev, record, movement{
		txType: enums.TransactionRelease,
		qty:    in.Qty,
		before: prev.AvailableQty,
		after:  record.AvailableQty,
		in:     in,
	})
}

func (s *service) markDelivered(ctx context.Context, tx *gorm.DB, in MovementInput) (*models.InventoryRecord, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)
	record, err := repo.FindForUpdate(ctx, in.ItemID, in.VariantID)
	if err != nil {
		return nil, err
	}
	if record.ReservedQty < in.Qty {
		return nil, apperrors.New(apperrors.CodeBucketConflict, "delivery exceeds reserved stock").
			WithDetails(map[string]any{
				"item_id":   in.ItemID.String(),
				"requested": in.Qty,
				"reserved":  record.ReservedQty,
			})
	}

	prev := *record
	record.ReservedQty -= in.Qty
	record.DeliveredQty += in.Qty
	return s.commitMovement(ctx, repo, prev, record, movement{
		txType: enums.TransactionDelivery,
		qty:    in.Qty,
		before: prev.AvailableQty,
		after:  record.AvailableQty,
		in:     in,
	})
}

func (s *service) markReturned(ctx context.Context, tx *gorm.DB, in ReturnInput) (*models.InventoryRecord, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)
	record, err := repo.FindForUpdate(ctx, in.ItemID, in.VariantID)
	if err != nil {
		return nil, err
	}
	total := in.ReturnedQty + in.DamagedQty
	if record.DeliveredQty < total {
		return nil, apperrors.New(apperrors.CodeBucketConflict, "return exceeds delivered stock").
			WithDetails(map[string]any{
				"item_id":   in.ItemID.String(),
				"requested": total,
				"delivered": record.DeliveredQty,
			})
	}

	prev := *record
	record.DeliveredQty -= total
	record.AvailableQty += in.ReturnedQty
	record.DamagedQty += in.DamagedQty
	if err := repo.UpdateCounters(ctx, prev, *record); err != nil {
		return nil, err
	}

	before := prev.AvailableQty
	if in.ReturnedQty > 0 {
		row := &models.InventoryTransaction{
			InventoryID:   record.ID,
			Type:          enums.TransactionReturn,
			Qty:           in.ReturnedQty,
			BalanceBefore: before,
			BalanceAfter:  before + in.ReturnedQty,
			BookingID:     in.BookingID,
			Reason:        in.Reason,
			PerformedBy:   in.ActorID,
		}
		if err := repo.AppendTransaction(ctx, row); err != nil {
			return nil, err
		}
		before += in.ReturnedQty
	}
	if in.DamagedQty > 0 {
		row := &models.InventoryTransaction{
			InventoryID:   record.ID,
			Type:          enums.TransactionDamage,
			Qty:           in.DamagedQty,
			BalanceBefore: before,
			BalanceAfter:  before,
			BookingID:     in.BookingID,
			Reason:        in.Reason,
			PerformedBy:   in.ActorID,
		}
		if err := repo.AppendTransaction(ctx, row); err != nil {
			return nil, err
		}
	}
	return record, nil
}

func (s *service) adjust(ctx context.Context, tx *gorm.DB, in AdjustInput) (*models.InventoryRecord, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)
	record, err := repo.Ensure(ctx, in.ItemID, in.VariantID)
	if err != nil {
		return nil, err
	}
	record, err = repo.FindForUpdate(ctx, in.ItemID, in.VariantID)
	if err != nil {
		return nil, err
	}

	committed := record.ReservedQty + record.MaintenanceQty + record.DeliveredQty + record.DamagedQty
	if in.NewTotal < committed {
		return nil, apperrors.New(apperrors.CodeStateConflict, "new total below committed stock").
			WithDetails(map[string]any{
				"item_id":   in.ItemID.String(),
				"new_total": in.NewTotal,
				"committed": committed,
			})
	}

	prev := *record
	delta := in.NewTotal - record.TotalQty
	record.TotalQty = in.NewTotal
	record.AvailableQty = in.NewTotal - committed
	if err := repo.UpdateCounters(ctx, prev, *record); err != nil {
		return nil, err
	}

	row := &models.InventoryTransaction{
		InventoryID:   record.ID,
		Type:          enums.TransactionAdjustment,
		Qty:           delta,
		BalanceBefore: prev.AvailableQty,
		BalanceAfter:  record.AvailableQty,
		Reason:        in.Reason,
		PerformedBy:   in.ActorID,
	}
	if err := repo.AppendTransaction(ctx, row); err != nil {
		return nil, err
	}

	if s.events != nil {
		reason := ""
		if in.Reason != nil {
			reason = *in.Reason
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventInventoryAdjusted,
			AggregateType: enums.AggregateInventoryRecord,
			AggregateID:   record.ID,
			Actor:         &outbox.ActorRef{ActorID: in.ActorID},
			Data: payloads.InventoryAdjustedEvent{
				InventoryID:   record.ID,
				ItemID:        record.ItemID,
				VariantID:     record.VariantID,
				PreviousTotal: prev.TotalQty,
				NewTotal:      record.TotalQty,
				Reason:        reason,
			},
		}
		if err := s.events.Emit(ctx, tx, event); err != nil {
			return nil, err
		}
	}
	return record, nil
}

func (s *service) moveToMaintenance(ctx context.Context, tx *gorm.DB, in MovementInput) (*models.InventoryRecord, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)
	record, err := repo.FindForUpdate(ctx, in.ItemID, in.VariantID)
	if err != nil {
		return nil, err
	}
	if record.AvailableQty < in.Qty {
		return nil, apperrors.New(apperrors.CodeInsufficientStock, "not enough available stock for maintenance").
			WithDetails(map[string]any{
				"item_id":   in.ItemID.String(),
				"requested": in.Qty,
				"available": record.AvailableQty,
			})
	}

	prev := *record
	record.AvailableQty -= in.Qty
	record.MaintenanceQty += in.Qty
	return s.commitMovement(ctx, repo, prev, record, movement{
		txType: enums.TransactionMaintenance,
		qty:    in.Qty,
		before: prev.AvailableQty,
		after:  record.AvailableQty,
		in:     in,
	})
}

func (s *service) returnFromMaintenance(ctx context.Context, tx *gorm.DB, in MovementInput) (*models.InventoryRecord, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)
	record, err := repo.FindForUpdate(ctx, in.ItemID, in.VariantID)
	if err != nil {
		return nil, err
	}
	if record.MaintenanceQty < in.Qty {
		return nil, apperrors.New(apperrors.CodeBucketConflict, "return exceeds maintenance stock").
			WithDetails(map[string]any{
				"item_id":     in.ItemID.String(),
				"requested":   in.Qty,
				"maintenance": record.MaintenanceQty,
			})
	}

	prev := *record
	record.MaintenanceQty -= in.Qty
	record.AvailableQty += in.Qty
	return s.commitMovement(ctx, repo, prev, record, movement{
		txType: enums.TransactionMaintenanceReturn,
		qty:    in.Qty,
		before: prev.AvailableQty,
		after:  record.AvailableQty,
		in:     in,
	})
}

func (s *service) writeOffDamaged(ctx context.Context, tx *gorm.DB, in MovementInput) (*models.InventoryRecord, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	repo := s.repo.WithTx(tx)
	record, err := repo.FindForUpdate(ctx, in.ItemID, in.VariantID)
	if err != nil {
		return nil, err
	}
	if record.DamagedQty < in.Qty {
		return nil, apperrors.New(apperrors.CodeBucketConflict, "write-off exceeds damaged stock").
			WithDetails(map[string]any{
				"item_id":   in.ItemID.String(),
				"requested": in.Qty,
				"damaged":   record.DamagedQty,
			})
	}

	prev := *record
	record.DamagedQty -= in.Qty
	record.TotalQty -= in.Qty
	return s.commitMovement(ctx, repo, prev, record, movement{
		txType: enums.TransactionWriteOff,
		qty:    in.Qty,
		before: prev.AvailableQty,
		after:  record.AvailableQty,
		in:     in,
	})
}

type movement struct {
	txType enums.InventoryTransactionType
	qty    int
	before int
	after  int
	in     MovementInput
}

func (s *service) commitMovement(ctx context.Context, repo Repository, prev models.InventoryRecord, next *models.InventoryRecord, m movement) (*models.InventoryRecord, error) {
	if err := repo.UpdateCounters(ctx, prev, *next); err != nil {
		return nil, err
	}
	row := &models.InventoryTransaction{
		InventoryID:   next.ID,
		Type:          m.txType,
		Qty:           m.qty,
		BalanceBefore: m.before,
		BalanceAfter:  m.after,
		BookingID:     m.in.BookingID,
		Reason:        m.in.Reason,
		PerformedBy:   m.in.ActorID,
	}
	if err := repo.AppendTransaction(ctx, row); err != nil {
		return nil, err
	}
	return next, nil
}
