package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iamteki/kl-mobile-backend/api/controllers"
	"github.com/iamteki/kl-mobile-backend/api/middleware"
	"github.com/iamteki/kl-mobile-backend/internal/availability"
	"github.com/iamteki/kl-mobile-backend/internal/bookings"
	"github.com/iamteki/kl-mobile-backend/internal/inventory"
	"github.com/iamteki/kl-mobile-backend/internal/notifications"
	"github.com/iamteki/kl-mobile-backend/pkg/config"
	"github.com/iamteki/kl-mobile-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	readiness map[string]controllers.Pinger,
	availabilityEngine availability.Engine,
	inventoryService inventory.Service,
	bookingsService bookings.Service,
	notificationsService notifications.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readiness))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/public/v1", func(r chi.Router) {
		r.Get("/items/{itemId}/availability", controllers.CheckAvailability(availabilityEngine, logg))
		r.Get("/items/{itemId}/availability/calendar", controllers.AvailabilityCalendar(availabilityEngine, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", controllers.CreateBooking(bookingsService, logg))
			r.Get("/", controllers.ListCustomerBookings(bookingsService, logg))
			r.Get("/number/{bookingNumber}", controllers.GetBookingByNumber(bookingsService, logg))
			r.Get("/{bookingId}", controllers.GetBooking(bookingsService, logg))
			r.Post("/{bookingId}/confirm", controllers.ConfirmBooking(bookingsService, logg))
			r.Post("/{bookingId}/cancel", controllers.CancelBooking(bookingsService, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationsService, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(notificationsService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationsService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Route("/bookings", func(r chi.Router) {
			r.Post("/{bookingId}/process", controllers.StartProcessingBooking(bookingsService, logg))
			r.Post("/{bookingId}/deliver", controllers.DeliverBooking(bookingsService, logg))
			r.Post("/{bookingId}/complete", controllers.CompleteBooking(bookingsService, logg))
			r.Post("/{bookingId}/refund", controllers.RefundBooking(bookingsService, logg))
			r.Post("/{bookingId}/payment", controllers.RecordBookingPayment(bookingsService, logg))
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/items/{itemId}", controllers.GetInventoryRecord(inventoryService, logg))
			r.Post("/adjust", controllers.AdjustInventory(inventoryService, logg))
			r.Post("/maintenance", controllers.MoveToMaintenance(inventoryService, logg))
			r.Post("/maintenance/return", controllers.ReturnFromMaintenance(inventoryService, logg))
			r.Post("/write-off", controllers.WriteOffDamaged(inventoryService, logg))
			r.Get("/{inventoryId}/transactions", controllers.ListInventoryTransactions(inventoryService, logg))
			r.Post("/{inventoryId}/audit", controllers.AuditInventory(inventoryService, logg))
		})
	})

	return r
}
