package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/iamteki/kl-mobile-backend/pkg/db"
	"github.com/iamteki/kl-mobile-backend/pkg/db/models"
	"github.com/iamteki/kl-mobile-backend/pkg/enums"
	"github.com/iamteki/kl-mobile-backend/pkg/logger"
	"github.com/iamteki/kl-mobile-backend/pkg/outbox"
	"github.com/iamteki/kl-mobile-backend/pkg/outbox/payloads"
)

const eventIDConstraint = "ux_notifications_event_id"

type repository interface {
	Create(ctx context.Context, notification *models.Notification) error
}

// Consumer watches booking domain events and turns them into in-app
// notifications for the customer who owns the booking.
type Consumer struct {
	repo         repository
	subscription *pubsub.Subscriber
	logg         *logger.Logger
}

// NewConsumer builds a booking notification consumer.
func NewConsumer(repo repository, subscription *pubsub.Subscriber, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	rawType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": rawType,
	})

	eventType := enums.OutboxEventType(rawType)
	if !eventType.IsValid() {
		c.logg.Info(logCtx, "skipping unknown event type")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	notification, err := c.build(eventType, envelope.Data)
	if err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		return processResult{ack: true}
	}
	if notification == nil {
		return processResult{ack: true}
	}
	notification.EventID = &eventID

	if err := c.repo.Create(ctx, notification); err != nil {
		if db.IsUniqueViolation(err, eventIDConstraint) {
			c.logg.Info(logCtx, "event already processed")
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "failed to store notification", err)
		return processResult{nack: true}
	}

	c.logg.Info(logCtx, "notification created")
	return processResult{ack: true}
}

// build maps a domain event onto a notification row. A nil notification with
// a nil error means the event type carries nothing customer-facing.
func (c *Consumer) build(eventType enums.OutboxEventType, data json.RawMessage) (*models.Notification, error) {
	switch eventType {
	case enums.EventBookingConfirmed:
		var payload payloads.BookingConfirmedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return &models.Notification{
			CustomerID: payload.CustomerID,
			Type:       enums.NotificationTypeBookingUpdate,
			Title:      "Booking confirmed",
			Message: fmt.Sprintf("Booking %s is confirmed for %s.",
				payload.BookingNumber, payload.EventDate.Format("2 Jan 2006")),
		}, nil
	case enums.EventBookingCancelled:
		var payload payloads.BookingCancelledEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		message := fmt.Sprintf("Booking %s has been cancelled.", payload.BookingNumber)
		if payload.Reason != "" {
			message = fmt.Sprintf("Booking %s has been cancelled. Reason: %s", payload.BookingNumber, payload.Reason)
		}
		return &models.Notification{
			CustomerID: payload.CustomerID,
			Type:       enums.NotificationTypeBookingUpdate,
			Title:      "Booking cancelled",
			Message:    message,
		}, nil
	case enums.EventBookingDelivered:
		var payload payloads.BookingDeliveredEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return &models.Notification{
			CustomerID: payload.CustomerID,
			Type:       enums.NotificationTypeBookingUpdate,
			Title:      "Equipment delivered",
			Message:    fmt.Sprintf("Equipment for booking %s has been delivered.", payload.BookingNumber),
		}, nil
	case enums.EventBookingCompleted:
		var payload payloads.BookingCompletedEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		message := fmt.Sprintf("Booking %s is complete. Thanks for returning the equipment.", payload.BookingNumber)
		if payload.DamagedQty > 0 {
			message = fmt.Sprintf("Booking %s is complete. %d unit(s) were reported damaged and may incur charges.",
				payload.BookingNumber, payload.DamagedQty)
		}
		return &models.Notification{
			CustomerID: payload.CustomerID,
			Type:       enums.NotificationTypeBookingUpdate,
			Title:      "Booking completed",
			Message:    message,
		}, nil
	case enums.EventBookingExpired:
		var payload payloads.BookingExpiredEvent
		if err := json.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return &models.Notification{
			CustomerID: payload.CustomerID,
			Type:       enums.NotificationTypeBookingUpdate,
			Title:      "Booking expired",
			Message: fmt.Sprintf("Booking %s expired after %d hours without confirmation.",
				payload.BookingNumber, payload.TTLHours),
		}, nil
	default:
		// inventory events have no customer audience
		return nil, nil
	}
}
