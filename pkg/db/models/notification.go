package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/iamteki/kl-mobile-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to customers.
// EventID makes the consumer idempotent: re-delivered pubsub messages hit
// the unique index and are dropped.
type Notification struct {
	ID         uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CustomerID uuid.UUID              `gorm:"column:customer_id;type:uuid;not null;index"`
	EventID    *uuid.UUID             `gorm:"column:event_id;type:uuid;uniqueIndex:ux_notifications_event_id"`
	Type       enums.NotificationType `gorm:"column:type;type:notification_type;not null"`
	Title      string                 `gorm:"column:title;not null"`
	Message    string                 `gorm:"column:message;not null"`
	ReadAt     *time.Time             `gorm:"column:read_at"`
	CreatedAt  time.Time              `gorm:"column:created_at;autoCreateTime"`
}
