package bookings

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/iamteki/kl-mobile-backend/internal/inventory"
	"github.com/iamteki/kl-mobile-backend/pkg/db"
	"github.com/iamteki/kl-mobile-backend/pkg/db/models"
	"github.com/iamteki/kl-mobile-backend/pkg/enums"
	apperrors "github.com/iamteki/kl-mobile-backend/pkg/errors"
	"github.com/iamteki/kl-mobile-backend/pkg/outbox"
)

var testSchema = []string{`
CREATE TABLE IF NOT EXISTS inventory_records (
  id TEXT PRIMARY KEY,
  item_id TEXT NOT NULL,
  variant_id TEXT,
  total_qty INTEGER NOT NULL DEFAULT 0,
  available_qty INTEGER NOT NULL DEFAULT 0,
  reserved_qty INTEGER NOT NULL DEFAULT 0,
  maintenance_qty INTEGER NOT NULL DEFAULT 0,
  delivered_qty INTEGER NOT NULL DEFAULT 0,
  damaged_qty INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS inventory_transactions (
  id TEXT PRIMARY KEY,
  inventory_id TEXT NOT NULL,
  type TEXT NOT NULL,
  qty INTEGER NOT NULL,
  balance_before INTEGER NOT NULL,
  balance_after INTEGER NOT NULL,
  booking_id TEXT,
  reason TEXT,
  performed_by TEXT NOT NULL,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS bookings (
  id TEXT PRIMARY KEY,
  booking_number TEXT NOT NULL UNIQUE,
  customer_id TEXT NOT NULL,
  event_date DATE NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  total_amount NUMERIC NOT NULL DEFAULT 0,
  cancel_reason TEXT,
  confirmed_at DATETIME,
  delivered_at DATETIME,
  completed_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS booking_items (
  id TEXT PRIMARY KEY,
  booking_id TEXT NOT NULL,
  item_id TEXT NOT NULL,
  variant_id TEXT,
  qty INTEGER NOT NULL,
  start_date DATE NOT NULL,
  end_date DATE NOT NULL,
  unit_price NUMERIC NOT NULL DEFAULT 0,
  line_total NUMERIC NOT NULL DEFAULT 0,
  created_at DATETIME
);`, `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`}

type testEnv struct {
	conn    *gorm.DB
	svc     Service
	ledger  inventory.Service
	actorID uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := "file:bookings_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	for _, ddl := range testSchema {
		if err := conn.Exec(ddl).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	client := db.NewFromGorm(conn)
	ledger, err := inventory.NewService(client, inventory.NewRepository(conn), nil, nil, nil)
	if err != nil {
		t.Fatalf("ledger: %v", err)
	}
	events := outbox.NewService(outbox.NewRepository(conn), nil)
	svc, err := NewService(client, NewRepository(conn), ledger, events, nil, Options{})
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	return &testEnv{conn: conn, svc: svc, ledger: ledger, actorID: uuid.New()}
}

func (e *testEnv) seedInventory(t *testing.T, itemID uuid.UUID, total int) {
	t.Helper()
	record := models.InventoryRecord{
		ID:           uuid.New(),
		ItemID:       itemID,
		TotalQty:     total,
		AvailableQty: total,
	}
	if err := e.conn.Create(&record).Error; err != nil {
		t.Fatalf("seed inventory: %v", err)
	}
}

func (e *testEnv) inventoryFor(t *testing.T, itemID uuid.UUID) models.InventoryRecord {
	t.Helper()
	var record models.InventoryRecord
	if err := e.conn.First(&record, "item_id = ?", itemID).Error; err != nil {
		t.Fatalf("load inventory: %v", err)
	}
	return record
}

func (e *testEnv) outboxCount(t *testing.T, eventType enums.OutboxEventType) int64 {
	t.Helper()
	var count int64
	if err := e.conn.Model(&models.OutboxEvent{}).Where("event_type = ?", eventType).Count(&count).Error; err != nil {
		t.Fatalf("count outbox: %v", err)
	}
	return count
}

func futureDate() time.Time {
	return time.Now().UTC().AddDate(0, 0, 7)
}

func draftInput(customerID, itemID uuid.UUID, qty int) DraftInput {
	start := futureDate()
	return DraftInput{
		CustomerID: customerID,
		EventDate:  start,
		ActorID:    uuid.New(),
		Items: []DraftItemInput{{
			ItemID:    itemID,
			Qty:       qty,
			StartDate: start,
			EndDate:   start.AddDate(0, 0, 2),
			UnitPrice: decimal.RequireFromString("150.00"),
		}},
	}
}

func TestCreateDraft(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := uuid.New()
	env.seedInventory(t, itemID, 10)

	booking, err := env.svc.CreateDraft(ctx, draftInput(uuid.New(), itemID, 3))
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if booking.Status != enums.BookingStatusPending {
		t.Fatalf("expected pending, got %s", booking.Status)
	}
	if !strings.HasPrefix(booking.BookingNumber, "BK-") {
		t.Fatalf("unexpected booking number %q", booking.BookingNumber)
	}
	if want := decimal.RequireFromString("450.00"); !booking.TotalAmount.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, booking.TotalAmount)
	}

	// a draft must not touch stock
	record := env.inventoryFor(t, itemID)
	if record.AvailableQty != 10 || record.ReservedQty != 0 {
		t.Fatalf("draft must not move stock: %+v", record)
	}
}

func TestConfirmReservesAndEmits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := uuid.New()
	env.seedInventory(t, itemID, 10)

	booking, err := env.svc.CreateDraft(ctx, draftInput(uuid.New(), itemID, 4))
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}

	confirmed, err := env.svc.Confirm(ctx, booking.ID, env.actorID)
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if confirmed.Status != enums.BookingStatusConfirmed || confirmed.ConfirmedAt == nil {
		t.Fatalf("unexpected booking state: %+v", confirmed)
	}

	record := env.inventoryFor(t, itemID)
	if record.AvailableQty != 6 || record.ReservedQty != 4 {
		t.Fatalf("unexpected buckets: %+v", record)
	}
	if got := env.outboxCount(t, enums.EventBookingConfirmed); got != 1 {
		t.Fatalf("expected 1 confirmed event, got %d", got)
	}

	// second confirm must fail without touching stock again
	_, err = env.svc.Confirm(ctx, booking.ID, env.actorID)
	if !apperrors.HasCode(err, apperrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
	record = env.inventoryFor(t, itemID)
	if record.ReservedQty != 4 {
		t.Fatalf("double confirm moved stock: %+v", record)
	}
}

func TestConfirmRollsBackAllItemsOnFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemA, itemB := uuid.New(), uuid.New()
	env.seedInventory(t, itemA, 10)
	env.seedInventory(t, itemB, 2)

	start := futureDate()
	in := DraftInput{
		CustomerID: uuid.New(),
		EventDate:  start,
		ActorID:    uuid.New(),
		Items: []DraftItemInput{
			{ItemID: itemA, Qty: 5, StartDate: start, EndDate: start, UnitPrice: decimal.New(100, 0)},
			{ItemID: itemB, Qty: 5, StartDate: start, EndDate: start, UnitPrice: decimal.New(100, 0)},
		},
	}
	booking, err := env.svc.CreateDraft(ctx, in)
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}

	_, err = env.svc.Confirm(ctx, booking.ID, env.actorID)
	if !apperrors.HasCode(err, apperrors.CodeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	// whole transaction rolled back: item A untouched, booking still pending
	recordA := env.inventoryFor(t, itemA)
	if recordA.AvailableQty != 10 || recordA.ReservedQty != 0 {
		t.Fatalf("partial reserve leaked: %+v", recordA)
	}
	reloaded, err := env.svc.Get(ctx, booking.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.Status != enums.BookingStatusPending {
		t.Fatalf("booking must stay pending, got %s", reloaded.Status)
	}
	var txCount int64
	if err := env.conn.Model(&models.InventoryTransaction{}).Count(&txCount).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if txCount != 0 {
		t.Fatalf("rolled-back confirm left %d transactions", txCount)
	}
	if got := env.outboxCount(t, enums.EventBookingConfirmed); got != 0 {
		t.Fatalf("rolled-back confirm emitted %d events", got)
	}
}

func TestCancelReleasesOnlyHeldStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := uuid.New()
	env.seedInventory(t, itemID, 10)

	// cancel from pending: no ledger movement
	pending, err := env.svc.CreateDraft(ctx, draftInput(uuid.New(), itemID, 3))
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	cancelled, err := env.svc.Cancel(ctx, pending.ID, "changed plans", env.actorID)
	if err != nil {
		t.Fatalf("cancel pending: %v", err)
	}
	if cancelled.Status != enums.BookingStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	var txCount int64
	if err := env.conn.Model(&models.InventoryTransaction{}).Count(&txCount).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if txCount != 0 {
		t.Fatalf("pending cancel must not touch the ledger, got %d rows", txCount)
	}

	// cancel from confirmed: stock comes back
	confirmedDraft, err := env.svc.CreateDraft(ctx, draftInput(uuid.New(), itemID, 4))
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if _, err := env.svc.Confirm(ctx, confirmedDraft.ID, env.actorID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := env.svc.Cancel(ctx, confirmedDraft.ID, "rain", env.actorID); err != nil {
		t.Fatalf("cancel confirmed: %v", err)
	}
	record := env.inventoryFor(t, itemID)
	if record.AvailableQty != 10 || record.ReservedQty != 0 {
		t.Fatalf("cancel must release reserved stock: %+v", record)
	}
	if got := env.outboxCount(t, enums.EventBookingCancelled); got != 2 {
		t.Fatalf("expected 2 cancelled events, got %d", got)
	}
}

func TestDeliverRequiresProcessingAndPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := uuid.New()
	env.seedInventory(t, itemID, 10)

	booking, err := env.svc.CreateDraft(ctx, draftInput(uuid.New(), itemID, 4))
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if _, err := env.svc.Confirm(ctx, booking.ID, env.actorID); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// confirmed but not processing
	_, err = env.svc.Deliver(ctx, booking.ID, env.actorID)
	if !apperrors.HasCode(err, apperrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}

	if _, err := env.svc.StartProcessing(ctx, booking.ID, env.actorID); err != nil {
		t.Fatalf("start processing: %v", err)
	}

	// processing but unpaid
	_, err = env.svc.Deliver(ctx, booking.ID, env.actorID)
	if !apperrors.HasCode(err, apperrors.CodeStateConflict) {
		t.Fatalf("expected payment guard, got %v", err)
	}

	if err := env.svc.RecordPayment(ctx, booking.ID, enums.PaymentStatusPaid); err != nil {
		t.Fatalf("record payment: %v", err)
	}
	delivered, err := env.svc.Deliver(ctx, booking.ID, env.actorID)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if delivered.Status != enums.BookingStatusDelivered || delivered.DeliveredAt == nil {
		t.Fatalf("unexpected booking state: %+v", delivered)
	}

	record := env.inventoryFor(t, itemID)
	if record.ReservedQty != 0 || record.DeliveredQty != 4 {
		t.Fatalf("unexpected buckets after delivery: %+v", record)
	}
	if got := env.outboxCount(t, enums.EventBookingDelivered); got != 1 {
		t.Fatalf("expected 1 delivered event, got %d", got)
	}
}

func TestCompleteSplitsDamagedUnits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := uuid.New()
	env.seedInventory(t, itemID, 10)

	booking, err := env.svc.CreateDraft(ctx, draftInput(uuid.New(), itemID, 5))
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	if _, err := env.svc.Confirm(ctx, booking.ID, env.actorID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := env.svc.StartProcessing(ctx, booking.ID, env.actorID); err != nil {
		t.Fatalf("start processing: %v", err)
	}
	if err := env.svc.RecordPayment(ctx, booking.ID, enums.PaymentStatusPaid); err != nil {
		t.Fatalf("record payment: %v", err)
	}
	if _, err := env.svc.Deliver(ctx, booking.ID, env.actorID); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	reloaded, err := env.svc.Get(ctx, booking.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	completed, err := env.svc.Complete(ctx, CompleteInput{
		BookingID: booking.ID,
		ActorID:   env.actorID,
		Items:     []CompleteItemInput{{BookingItemID: reloaded.Items[0].ID, DamagedQty: 2}},
	})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != enums.BookingStatusCompleted || completed.CompletedAt == nil {
		t.Fatalf("unexpected booking state: %+v", completed)
	}

	record := env.inventoryFor(t, itemID)
	if record.AvailableQty != 8 || record.DeliveredQty != 0 || record.DamagedQty != 2 {
		t.Fatalf("unexpected buckets after completion: %+v", record)
	}
	if record.TotalQty != 10 {
		t.Fatalf("damaged units must stay in total: %+v", record)
	}
	if !record.Balanced() {
		t.Fatalf("record out of balance: %+v", record)
	}
}

func TestRefundOnlyFromCancelled(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := uuid.New()
	env.seedInventory(t, itemID, 5)

	booking, err := env.svc.CreateDraft(ctx, draftInput(uuid.New(), itemID, 2))
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}

	_, err = env.svc.Refund(ctx, booking.ID, env.actorID)
	if !apperrors.HasCode(err, apperrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}

	if _, err := env.svc.Cancel(ctx, booking.ID, "no longer needed", env.actorID); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	refunded, err := env.svc.Refund(ctx, booking.ID, env.actorID)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refunded.Status != enums.BookingStatusRefunded || refunded.PaymentStatus != enums.PaymentStatusRefunded {
		t.Fatalf("unexpected booking state: %+v", refunded)
	}
}

func TestExpireStalePending(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	itemID := uuid.New()
	env.seedInventory(t, itemID, 10)

	stale, err := env.svc.CreateDraft(ctx, draftInput(uuid.New(), itemID, 1))
	if err != nil {
		t.Fatalf("create stale draft: %v", err)
	}
	// age the stale booking past the TTL
	old := time.Now().UTC().Add(-100 * time.Hour)
	if err := env.conn.Model(&models.Booking{}).Where("id = ?", stale.ID).Update("created_at", old).Error; err != nil {
		t.Fatalf("age booking: %v", err)
	}

	fresh, err := env.svc.CreateDraft(ctx, draftInput(uuid.New(), itemID, 1))
	if err != nil {
		t.Fatalf("create fresh draft: %v", err)
	}

	expired, err := env.svc.ExpireStalePending(ctx, 72*time.Hour, 100, env.actorID)
	if err != nil {
		t.Fatalf("expire: %v", err)
	}
	if expired != 1 {
		t.Fatalf("expected 1 expired booking, got %d", expired)
	}

	staleReloaded, err := env.svc.Get(ctx, stale.ID)
	if err != nil {
		t.Fatalf("get stale: %v", err)
	}
	if staleReloaded.Status != enums.BookingStatusCancelled {
		t.Fatalf("stale booking must be cancelled, got %s", staleReloaded.Status)
	}
	freshReloaded, err := env.svc.Get(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("get fresh: %v", err)
	}
	if freshReloaded.Status != enums.BookingStatusPending {
		t.Fatalf("fresh booking must stay pending, got %s", freshReloaded.Status)
	}
	if got := env.outboxCount(t, enums.EventBookingExpired); got != 1 {
		t.Fatalf("expected 1 expired event, got %d", got)
	}
}
