package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/iamteki/kl-mobile-backend/pkg/enums"
	"github.com/iamteki/kl-mobile-backend/pkg/logger"
	"github.com/iamteki/kl-mobile-backend/pkg/outbox"
	"github.com/iamteki/kl-mobile-backend/pkg/outbox/payloads"
)

func testConsumer(repo repository) *Consumer {
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	return &Consumer{repo: repo, logg: logg}
}

func buildMessage(t *testing.T, eventType enums.OutboxEventType, eventID uuid.UUID, data any) *pubsub.Message {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID.String(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}
	body, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       body,
		Attributes: map[string]string{"event_type": string(eventType)},
	}
}

func TestConsumerCreatesConfirmationNotification(t *testing.T) {
	repo := &fakeRepository{}
	consumer := testConsumer(repo)
	customerID := uuid.New()
	eventID := uuid.New()

	msg := buildMessage(t, enums.EventBookingConfirmed, eventID, payloads.BookingConfirmedEvent{
		BookingID:     uuid.New(),
		BookingNumber: "BK-202608-7XK2MQ",
		CustomerID:    customerID,
		EventDate:     time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
	})

	result := consumer.process(context.Background(), msg)
	if !result.ack || result.nack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(repo.created))
	}
	created := repo.created[0]
	if created.CustomerID != customerID {
		t.Fatalf("wrong customer: %s", created.CustomerID)
	}
	if created.Type != enums.NotificationTypeBookingUpdate {
		t.Fatalf("wrong type: %s", created.Type)
	}
	if created.EventID == nil || *created.EventID != eventID {
		t.Fatalf("event id must be carried for idempotency")
	}
	if !strings.Contains(created.Message, "BK-202608-7XK2MQ") {
		t.Fatalf("message must name the booking: %q", created.Message)
	}
}

func TestConsumerAcksDuplicateEvents(t *testing.T) {
	repo := &fakeRepository{createErr: errors.New(`duplicate key value violates unique constraint "ux_notifications_event_id"`)}
	consumer := testConsumer(repo)

	msg := buildMessage(t, enums.EventBookingCancelled, uuid.New(), payloads.BookingCancelledEvent{
		BookingID:     uuid.New(),
		BookingNumber: "BK-202608-AAAAAA",
		CustomerID:    uuid.New(),
	})

	result := consumer.process(context.Background(), msg)
	if !result.ack || result.nack {
		t.Fatalf("duplicate must be acked, got %+v", result)
	}
}

func TestConsumerNacksOnStorageFailure(t *testing.T) {
	repo := &fakeRepository{createErr: errors.New("connection refused")}
	consumer := testConsumer(repo)

	msg := buildMessage(t, enums.EventBookingDelivered, uuid.New(), payloads.BookingDeliveredEvent{
		BookingID:     uuid.New(),
		BookingNumber: "BK-202608-BBBBBB",
		CustomerID:    uuid.New(),
	})

	result := consumer.process(context.Background(), msg)
	if !result.nack {
		t.Fatalf("storage failure must nack, got %+v", result)
	}
}

func TestConsumerSkipsUnknownAndInventoryEvents(t *testing.T) {
	repo := &fakeRepository{}
	consumer := testConsumer(repo)

	unknown := &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       []byte(`{}`),
		Attributes: map[string]string{"event_type": "something_else"},
	}
	if result := consumer.process(context.Background(), unknown); !result.ack {
		t.Fatalf("unknown event must be acked, got %+v", result)
	}

	inventory := buildMessage(t, enums.EventInventoryAdjusted, uuid.New(), payloads.InventoryAdjustedEvent{
		InventoryID: uuid.New(),
		ItemID:      uuid.New(),
	})
	if result := consumer.process(context.Background(), inventory); !result.ack {
		t.Fatalf("inventory event must be acked, got %+v", result)
	}
	if len(repo.created) != 0 {
		t.Fatalf("no notifications expected, got %d", len(repo.created))
	}
}

func TestConsumerAcksMalformedEnvelope(t *testing.T) {
	repo := &fakeRepository{}
	consumer := testConsumer(repo)

	msg := &pubsub.Message{
		ID:         uuid.NewString(),
		Data:       []byte(`{not json`),
		Attributes: map[string]string{"event_type": string(enums.EventBookingConfirmed)},
	}
	result := consumer.process(context.Background(), msg)
	if !result.ack || result.nack {
		t.Fatalf("malformed envelope must be acked, got %+v", result)
	}
	if len(repo.created) != 0 {
		t.Fatalf("no notifications expected, got %d", len(repo.created))
	}
}

func TestCompletedNotificationMentionsDamage(t *testing.T) {
	repo := &fakeRepository{}
	consumer := testConsumer(repo)

	msg := buildMessage(t, enums.EventBookingCompleted, uuid.New(), payloads.BookingCompletedEvent{
		BookingID:     uuid.New(),
		BookingNumber: "BK-202608-CCCCCC",
		CustomerID:    uuid.New(),
		ReturnedQty:   3,
		DamagedQty:    2,
	})
	if result := consumer.process(context.Background(), msg); !result.ack {
		t.Fatalf("expected ack, got %+v", result)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(repo.created))
	}
	if !strings.Contains(repo.created[0].Message, "damaged") {
		t.Fatalf("completed-with-damage message must mention damage: %q", repo.created[0].Message)
	}
}
