package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/iamteki/kl-mobile-backend/pkg/db/models"
	"github.com/iamteki/kl-mobile-backend/pkg/enums"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:notifications_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	ddl := `
CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  customer_id TEXT NOT NULL,
  event_id TEXT,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  read_at DATETIME,
  created_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS ux_notifications_event_id ON notifications (event_id);`
	require.NoError(t, conn.Exec(ddl).Error)

	return conn
}

func seedNotification(t *testing.T, repo Repository, customerID uuid.UUID, createdAt time.Time) *models.Notification {
	t.Helper()
	n := &models.Notification{
		CustomerID: customerID,
		Type:       enums.NotificationTypeBookingUpdate,
		Title:      "Booking confirmed",
		Message:    "Your booking is confirmed",
		CreatedAt:  createdAt,
	}
	require.NoError(t, repo.Create(context.Background(), n))
	return n
}

func TestRepositoryListPagesNewestFirst(t *testing.T) {
	repo := NewRepository(setupNotificationsTestDB(t))
	customerID := uuid.New()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		seedNotification(t, repo, customerID, base.Add(time.Duration(i)*time.Minute))
	}
	seedNotification(t, repo, uuid.New(), base) // another customer

	first, cursor, err := repo.List(context.Background(), listNotificationsParams{
		CustomerID: customerID,
		Limit:      3,
	})
	require.NoError(t, err)
	require.Len(t, first, 3)
	require.NotNil(t, cursor)
	assert.True(t, first[0].CreatedAt.After(first[2].CreatedAt))

	rest, next, err := repo.List(context.Background(), listNotificationsParams{
		CustomerID: customerID,
		Limit:      3,
		Cursor:     cursor,
	})
	require.NoError(t, err)
	assert.Len(t, rest, 2)
	assert.Nil(t, next)
}

func TestRepositoryListUnreadOnly(t *testing.T) {
	repo := NewRepository(setupNotificationsTestDB(t))
	customerID := uuid.New()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	read := seedNotification(t, repo, customerID, base)
	seedNotification(t, repo, customerID, base.Add(time.Minute))

	mark, err := repo.MarkRead(context.Background(), customerID, read.ID, base.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, mark.Updated)

	unread, _, err := repo.List(context.Background(), listNotificationsParams{
		CustomerID: customerID,
		UnreadOnly: true,
	})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Nil(t, unread[0].ReadAt)
}

func TestRepositoryMarkReadDistinguishesMissing(t *testing.T) {
	repo := NewRepository(setupNotificationsTestDB(t))
	customerID := uuid.New()
	now := time.Now().UTC()

	n := seedNotification(t, repo, customerID, now)

	mark, err := repo.MarkRead(context.Background(), customerID, n.ID, now)
	require.NoError(t, err)
	assert.True(t, mark.Updated)
	assert.True(t, mark.Found)

	// second mark is a no-op but the row still exists
	mark, err = repo.MarkRead(context.Background(), customerID, n.ID, now)
	require.NoError(t, err)
	assert.False(t, mark.Updated)
	assert.True(t, mark.Found)

	mark, err = repo.MarkRead(context.Background(), customerID, uuid.New(), now)
	require.NoError(t, err)
	assert.False(t, mark.Updated)
	assert.False(t, mark.Found)
}

func TestRepositoryMarkAllReadCountsRows(t *testing.T) {
	repo := NewRepository(setupNotificationsTestDB(t))
	customerID := uuid.New()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	seedNotification(t, repo, customerID, base)
	seedNotification(t, repo, customerID, base.Add(time.Minute))
	seedNotification(t, repo, uuid.New(), base)

	updated, err := repo.MarkAllRead(context.Background(), customerID, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	updated, err = repo.MarkAllRead(context.Background(), customerID, base.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, updated)
}

func TestRepositoryDeleteReadBeforeKeepsUnread(t *testing.T) {
	repo := NewRepository(setupNotificationsTestDB(t))
	customerID := uuid.New()
	base := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)

	old := seedNotification(t, repo, customerID, base)
	seedNotification(t, repo, customerID, base.Add(time.Minute))

	_, err := repo.MarkRead(context.Background(), customerID, old.ID, base.Add(time.Hour))
	require.NoError(t, err)

	deleted, err := repo.DeleteReadBefore(context.Background(), base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, _, err := repo.List(context.Background(), listNotificationsParams{CustomerID: customerID})
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
