package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/iamteki/kl-mobile-backend/api/middleware"
	"github.com/iamteki/kl-mobile-backend/api/responses"
	"github.com/iamteki/kl-mobile-backend/api/validators"
	"github.com/iamteki/kl-mobile-backend/internal/inventory"
	"github.com/iamteki/kl-mobile-backend/pkg/logger"
	"github.com/iamteki/kl-mobile-backend/pkg/pagination"
)

// GetInventoryRecord reads the stock buckets for one item (+variant).
func GetInventoryRecord(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := validators.ParsePathUUID(chi.URLParam(r, "itemId"), "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := validators.ParseQueryUUID(r, "variantId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Record(r.Context(), itemID, optionalUUID(variantID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

type adjustInventoryRequest struct {
	ItemID    uuid.UUID  `json:"itemId" validate:"required"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
	NewTotal  int        `json:"newTotal" validate:"min=0"`
	Reason    string     `json:"reason" validate:"required,min=2,max=500"`
}

// AdjustInventory corrects an item's total stock: POST /inventory/adjust.
func AdjustInventory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req adjustInventoryRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		record, err := svc.Adjust(r.Context(), inventory.AdjustInput{
			ItemID:    req.ItemID,
			VariantID: req.VariantID,
			NewTotal:  req.NewTotal,
			Reason:    &req.Reason,
			ActorID:   middleware.ActorIDFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, record)
	}
}

type bucketMovementRequest struct {
	ItemID    uuid.UUID  `json:"itemId" validate:"required"`
	VariantID *uuid.UUID `json:"variantId,omitempty"`
	Qty       int        `json:"qty" validate:"required,gt=0"`
	Reason    string     `json:"reason,omitempty" validate:"max=500"`
}

func (req bucketMovementRequest) movement(actorID uuid.UUID) inventory.MovementInput {
	in := inventory.MovementInput{
		ItemID:    req.ItemID,
		VariantID: req.VariantID,
		Qty:       req.Qty,
		ActorID:   actorID,
	}
	if reason := strings.TrimSpace(req.Reason); reason != "" {
		in.Reason = &reason
	}
	return in
}

func bucketMovement(logg *logger.Logger, fn func(r *http.Request, in inventory.MovementInput) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req bucketMovementRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := fn(r, req.movement(middleware.ActorIDFromContext(r.Context())))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// MoveToMaintenance pulls available units out of circulation.
func MoveToMaintenance(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return bucketMovement(logg, func(r *http.Request, in inventory.MovementInput) (any, error) {
		return svc.MoveToMaintenance(r.Context(), in)
	})
}

// ReturnFromMaintenance puts repaired units back into the available pool.
func ReturnFromMaintenance(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return bucketMovement(logg, func(r *http.Request, in inventory.MovementInput) (any, error) {
		return svc.ReturnFromMaintenance(r.Context(), in)
	})
}

// WriteOffDamaged removes damaged units from total stock permanently.
func WriteOffDamaged(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return bucketMovement(logg, func(r *http.Request, in inventory.MovementInput) (any, error) {
		return svc.WriteOffDamaged(r.Context(), in)
	})
}

// ListInventoryTransactions pages through an inventory record's audit trail.
func ListInventoryTransactions(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inventoryID, err := validators.ParsePathUUID(chi.URLParam(r, "inventoryId"), "inventoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 0, 1, 100)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rows, cursor, err := svc.ListTransactions(r.Context(), inventoryID, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": rows, "cursor": cursor})
	}
}

// AuditInventory replays the transaction log against the live counters.
func AuditInventory(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		inventoryID, err := validators.ParsePathUUID(chi.URLParam(r, "inventoryId"), "inventoryId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Audit(r.Context(), inventoryID, middleware.ActorIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
