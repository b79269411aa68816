package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iamteki/kl-mobile-backend/pkg/logger"
)

const (
	defaultPendingTTLHours = 72
	expireBatchSize        = 200
)

type bookingExpirer interface {
	ExpireStalePending(ctx context.Context, ttl time.Duration, limit int, actorID uuid.UUID) (int, error)
}

// BookingTTLJobParams configure the pending booking sweep.
type BookingTTLJobParams struct {
	Logger   *logger.Logger
	Bookings bookingExpirer
	TTLHours int
	Batch    int
}

// NewBookingTTLJob cancels pending bookings that were never confirmed.
func NewBookingTTLJob(params BookingTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Bookings == nil {
		return nil, fmt.Errorf("booking service required")
	}
	ttlHours := params.TTLHours
	if ttlHours <= 0 {
		ttlHours = defaultPendingTTLHours
	}
	batch := params.Batch
	if batch <= 0 {
		batch = expireBatchSize
	}
	return &bookingTTLJob{
		logg:     params.Logger,
		bookings: params.Bookings,
		ttl:      time.Duration(ttlHours) * time.Hour,
		batch:    batch,
		actorID:  uuid.New(),
	}, nil
}

type bookingTTLJob struct {
	logg     *logger.Logger
	bookings bookingExpirer
	ttl      time.Duration
	batch    int
	actorID  uuid.UUID
}

func (j *bookingTTLJob) Name() string { return "booking-ttl" }

func (j *bookingTTLJob) Run(ctx context.Context) error {
	expired, err := j.bookings.ExpireStalePending(ctx, j.ttl, j.batch, j.actorID)
	if err != nil {
		return fmt.Errorf("booking ttl sweep: %w", err)
	}
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"ttl_hours": int(j.ttl.Hours()),
		"expired":   expired,
	})
	j.logg.Info(logCtx, "pending booking sweep complete")
	return nil
}
