package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/glowclinic/scheduling/internal/booking"
	"github.com/glowclinic/scheduling/internal/notify"
	"github.com/glowclinic/scheduling/internal/reminders"
)

type RouterConfig struct {
	Booking       *booking.Service
	Notifications *notify.PgStore
	Reminders     *reminders.Service
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	Logger        *slog.Logger
	Env           string
	Version       string
	CronToken     string
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Cron trigger (token-guarded, no proxy identity required)
	r.Post("/cron/reminders", cronRemindersHandler(cfg.Reminders, cfg.CronToken))

	r.Route("/appointments", func(r chi.Router) {
		r.Use(IdentityMiddleware)

		// Booking
		r.Post("/book/service/{id}", bookServiceHandler(cfg.Booking))
		r.Post("/book/product/{id}", bookProductHandler(cfg.Booking))
		r.Post("/book/package/{id}", bookPackageHandler(cfg.Booking))

		// Availability
		r.Get("/availability/attendants", listAttendantsHandler(cfg.Booking))
		r.Get("/availability/rooms", listRoomsHandler(cfg.Booking))
		r.Get("/availability/time-slots", listTimeSlotsHandler(cfg.Booking))
		r.Get("/availability/closed-days", listClosedDaysHandler(cfg.Booking))

		// Patient change requests and unavailability responses
		r.Post("/request-cancellation/{id}", requestCancellationHandler(cfg.Booking))
		r.Post("/request-reschedule/{id}", requestRescheduleHandler(cfg.Booking))
		r.Post("/unavailable/{requestID}/respond", respondUnavailableHandler(cfg.Booking))

		// Reads
		r.Get("/my", myAppointmentsHandler(cfg.Booking))
		r.Get("/{id}", getAppointmentHandler(cfg.Booking))

		// Staff lifecycle and reviews
		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireRole(booking.RoleStaff, booking.RoleOwner, booking.RoleAttendant))

			r.Post("/confirm/{id}", confirmHandler(cfg.Booking))
			r.Post("/complete/{id}", completeHandler(cfg.Booking))
			r.Post("/cancel/{id}", cancelHandler(cfg.Booking))
			r.Post("/mark-no-show/{id}", markNoShowHandler(cfg.Booking))
			r.Post("/reassign/{id}", reassignHandler(cfg.Booking))
			r.Delete("/{id}", deleteAppointmentHandler(cfg.Booking))

			r.Post("/approve-cancellation/{id}", reviewCancellationHandler(cfg.Booking, true))
			r.Post("/reject-cancellation/{id}", reviewCancellationHandler(cfg.Booking, false))
			r.Post("/approve-reschedule/{id}", reviewRescheduleHandler(cfg.Booking, true))
			r.Post("/reject-reschedule/{id}", reviewRescheduleHandler(cfg.Booking, false))

			r.Post("/appointment/{id}/mark-unavailable", markUnavailableHandler(cfg.Booking))
		})
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Use(IdentityMiddleware)
		r.Get("/", listNotificationsHandler(cfg.Notifications))
		r.Post("/read", markNotificationsReadHandler(cfg.Notifications))
	})

	return r
}
