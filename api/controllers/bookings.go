package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/iamteki/kl-mobile-backend/api/middleware"
	"github.com/iamteki/kl-mobile-backend/api/responses"
	"github.com/iamteki/kl-mobile-backend/api/validators"
	"github.com/iamteki/kl-mobile-backend/internal/bookings"
	"github.com/iamteki/kl-mobile-backend/pkg/enums"
	apperrors "github.com/iamteki/kl-mobile-backend/pkg/errors"
	"github.com/iamteki/kl-mobile-backend/pkg/logger"
	"github.com/iamteki/kl-mobile-backend/pkg/pagination"
)

type createBookingItemRequest struct {
	ItemID    uuid.UUID  `json:"itemId" validate:"required"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
	Qty       int        `json:"qty" validate:"required,gt=0"`
	StartDate time.Time  `json:"startDate" validate:"required"`
	EndDate   time.Time  `json:"endDate" validate:"required"`
	UnitPrice string     `json:"unitPrice,omitempty"`
}

type createBookingRequest struct {
	CustomerID uuid.UUID                  `json:"customerId" validate:"required"`
	EventDate  time.Time                  `json:"eventDate" validate:"required"`
	Items      []createBookingItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CreateBooking makes a pending draft: POST /bookings.
func CreateBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createBookingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		in := bookings.DraftInput{
			CustomerID: req.CustomerID,
			EventDate:  req.EventDate,
			ActorID:    middleware.ActorIDFromContext(r.Context()),
		}
		for _, item := range req.Items {
			price := decimal.Zero
			if raw := strings.TrimSpace(item.UnitPrice); raw != "" {
				parsed, err := decimal.NewFromString(raw)
				if err != nil {
					responses.WriteError(r.Context(), logg, w,
						apperrors.New(apperrors.CodeValidation, "unitPrice must be a decimal string"))
					return
				}
				price = parsed
			}
			in.Items = append(in.Items, bookings.DraftItemInput{
				ItemID:    item.ItemID,
				VariantID: item.VariantID,
				Qty:       item.Qty,
				StartDate: item.StartDate,
				EndDate:   item.EndDate,
				UnitPrice: price,
			})
		}

		booking, err := svc.CreateDraft(r.Context(), in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, booking)
	}
}

// GetBooking fetches one booking by id: GET /bookings/{bookingId}.
func GetBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := validators.ParsePathUUID(chi.URLParam(r, "bookingId"), "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		booking, err := svc.Get(r.Context(), bookingID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

// GetBookingByNumber fetches one booking by its human-readable number.
func GetBookingByNumber(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		number := strings.TrimSpace(chi.URLParam(r, "bookingNumber"))
		if number == "" {
			responses.WriteError(r.Context(), logg, w,
				apperrors.New(apperrors.CodeValidation, "booking number is required"))
			return
		}
		booking, err := svc.GetByNumber(r.Context(), number)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

// ListCustomerBookings pages through a customer's bookings.
func ListCustomerBookings(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := validators.ParseQueryUUID(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if customerID == uuid.Nil {
			customerID = middleware.ActorIDFromContext(r.Context())
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		rows, cursor, err := svc.ListByCustomer(r.Context(), customerID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": rows, "cursor": cursor})
	}
}

// transition wraps the id-plus-actor lifecycle calls that share a shape.
func transition(logg *logger.Logger, fn func(r *http.Request, bookingID, actorID uuid.UUID) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := validators.ParsePathUUID(chi.URLParam(r, "bookingId"), "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := fn(r, bookingID, middleware.ActorIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ConfirmBooking reserves stock for every line: POST /bookings/{bookingId}/confirm.
func ConfirmBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(logg, func(r *http.Request, bookingID, actorID uuid.UUID) (any, error) {
		return svc.Confirm(r.Context(), bookingID, actorID)
	})
}

// StartProcessingBooking moves a confirmed booking into preparation.
func StartProcessingBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(logg, func(r *http.Request, bookingID, actorID uuid.UUID) (any, error) {
		return svc.StartProcessing(r.Context(), bookingID, actorID)
	})
}

// DeliverBooking hands reserved stock to the customer.
func DeliverBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(logg, func(r *http.Request, bookingID, actorID uuid.UUID) (any, error) {
		return svc.Deliver(r.Context(), bookingID, actorID)
	})
}

// RefundBooking marks a cancelled booking refunded.
func RefundBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return transition(logg, func(r *http.Request, bookingID, actorID uuid.UUID) (any, error) {
		return svc.Refund(r.Context(), bookingID, actorID)
	})
}

type cancelBookingRequest struct {
	Reason string `json:"reason" validate:"required,min=2,max=500"`
}

// CancelBooking releases held stock and records the reason.
func CancelBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := validators.ParsePathUUID(chi.URLParam(r, "bookingId"), "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req cancelBookingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		booking, err := svc.Cancel(r.Context(), bookingID, req.Reason, middleware.ActorIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

type completeBookingItemRequest struct {
	BookingItemID uuid.UUID `json:"bookingItemId" validate:"required"`
	DamagedQty    int       `json:"damagedQty" validate:"min=0"`
}

type completeBookingRequest struct {
	Items []completeBookingItemRequest `json:"items,omitempty" validate:"dive"`
}

// CompleteBooking returns delivered stock, splitting out damaged units.
func CompleteBooking(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := validators.ParsePathUUID(chi.URLParam(r, "bookingId"), "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req completeBookingRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		in := bookings.CompleteInput{
			BookingID: bookingID,
			ActorID:   middleware.ActorIDFromContext(r.Context()),
		}
		for _, item := range req.Items {
			in.Items = append(in.Items, bookings.CompleteItemInput{
				BookingItemID: item.BookingItemID,
				DamagedQty:    item.DamagedQty,
			})
		}
		booking, err := svc.Complete(r.Context(), in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

type recordPaymentRequest struct {
	Status string `json:"status" validate:"required"`
}

// RecordBookingPayment updates the stored payment status.
func RecordBookingPayment(svc bookings.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bookingID, err := validators.ParsePathUUID(chi.URLParam(r, "bookingId"), "bookingId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req recordPaymentRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParsePaymentStatus(req.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				apperrors.Wrap(apperrors.CodeValidation, err, "invalid payment status"))
			return
		}
		if err := svc.RecordPayment(r.Context(), bookingID, status); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": string(status)})
	}
}
