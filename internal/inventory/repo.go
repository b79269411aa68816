package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/iamteki/kl-mobile-backend/pkg/db/models"
	apperrors "github.com/iamteki/kl-mobile-backend/pkg/errors"
	"github.com/iamteki/kl-mobile-backend/pkg/pagination"
)

// Repository manages persistence for inventory records and their
// append-only transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Ensure(ctx context.Context, itemID uuid.UUID, variantID *uuid.UUID) (*models.InventoryRecord, error)
	FindForUpdate(ctx context.Context, itemID uuid.UUID, variantID *uuid.UUID) (*models.InventoryRecord, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error)
	FindByItem(ctx context.Context, itemID uuid.UUID, variantID *uuid.UUID) (*models.InventoryRecord, error)
	UpdateCounters(ctx context.Context, prev, next models.InventoryRecord) error
	AppendTransaction(ctx context.Context, row *models.InventoryTransaction) error
	ListTransactions(ctx context.Context, inventoryID uuid.UUID, params pagination.Params) ([]models.InventoryTransaction, string, error)
	AllTransactions(ctx context.Context, inventoryID uuid.UUID) ([]models.InventoryTransaction, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Ensure(ctx context.Context, itemID uuid.UUID, variantID *uuid.UUID) (*models.InventoryRecord, error) {
	record, err := r.FindByItem(ctx, itemID, variantID)
	if err == nil {
		return record, nil
	}
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		return nil, err
	}

	fresh := &models.InventoryRecord{ID: uuid.New(), ItemID: itemID, VariantID: variantID}
	if createErr := r.db.WithContext(ctx).Create(fresh).Error; createErr != nil {
		// a concurrent Ensure may have won the unique index race
		if existing, findErr := r.FindByItem(ctx, itemID, variantID); findErr == nil {
			return existing, nil
		}
		return nil, createErr
	}
	return fresh, nil
}

func (r *repository) FindForUpdate(ctx context.Context, itemID uuid.UUID, variantID *uuid.UUID) (*models.InventoryRecord, error) {
	query := r.db.WithContext(ctx)
	// sqlite (tests) has no row locks; the guarded counter update still
	// protects against lost writes there.
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.findByItem(ctx, query, itemID, variantID)
}

func (r *repository) FindByItem(ctx context.Context, itemID uuid.UUID, variantID *uuid.UUID) (*models.InventoryRecord, error) {
	return r.findByItem(ctx, r.db.WithContext(ctx), itemID, variantID)
}

func (r *repository) findByItem(ctx context.Context, query *gorm.DB, itemID uuid.UUID, variantID *uuid.UUID) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	query = query.Where("item_id = ?", itemID)
	if variantID == nil {
		query = query.Where("variant_id IS NULL")
	} else {
		query = query.Where("variant_id = ?", *variantID)
	}
	if err := query.First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "inventory record not found")
		}
		return nil, err
	}
	return &record, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.InventoryRecord, error) {
	var record models.InventoryRecord
	if err := r.db.WithContext(ctx).First(&record, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.CodeNotFound, "inventory record not found")
		}
		return nil, err
	}
	return &record, nil
}

// UpdateCounters writes next's buckets guarded by prev's values. A zero
// RowsAffected means another writer got there first; callers treat that as a
// retryable lock conflict.
func (r *repository) UpdateCounters(ctx context.Context, prev, next models.InventoryRecord) error {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryRecord{}).
		Where(
			"id = ? AND total_qty = ? AND available_qty = ? AND reserved_qty = ? AND maintenance_qty = ? AND delivered_qty = ? AND damaged_qty = ?",
			prev.ID, prev.TotalQty, prev.AvailableQty, prev.ReservedQty,
			prev.MaintenanceQty, prev.DeliveredQty, prev.DamagedQty,
		).
		Updates(map[string]any{
			"total_qty":       next.TotalQty,
			"available_qty":   next.AvailableQty,
			"reserved_qty":    next.ReservedQty,
			"maintenance_qty": next.MaintenanceQty,
			"delivered_qty":   next.DeliveredQty,
			"damaged_qty":     next.DamagedQty,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.New(apperrors.CodeLockTimeout, "inventory record modified concurrently")
	}
	return nil
}

func (r *repository) AppendTransaction(ctx context.Context, row *models.InventoryTransaction) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) ListTransactions(ctx context.Context, inventoryID uuid.UUID, params pagination.Params) ([]models.InventoryTransaction, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.CodeValidation, err, "invalid cursor")
	}

	query := r.db.WithContext(ctx).
		Where("inventory_id = ?", inventoryID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.InventoryTransaction
	if err := query.Find(&rows).Error; err != nil {
		return nil, "", err
	}

	limit := pagination.NormalizeLimit(params.Limit)
	nextCursor := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return rows, nextCursor, nil
}

// AllTransactions returns the full log oldest-first, for replay checks.
func (r *repository) AllTransactions(ctx context.Context, inventoryID uuid.UUID) ([]models.InventoryTransaction, error) {
	var rows []models.InventoryTransaction
	if err := r.db.WithContext(ctx).
		Where("inventory_id = ?", inventoryID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
