package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinicore/clinic-scheduling/internal/scheduling"
)

type RouterConfig struct {
	Service *scheduling.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Logger  zerolog.Logger
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints (skipped when the backing connections are absent,
	// e.g. under the in-memory stack in tests)
	if cfg.PgPool != nil && cfg.Redis != nil {
		health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
		r.Get("/health/live", health.Liveness)
		r.Get("/health/ready", health.Readiness)
	}

	// Doctor directory and availability
	r.Get("/doctors/search", searchDoctorsHandler(cfg.Service))
	r.Get("/doctors/{doctorID}/availability", resolveAvailabilityHandler(cfg.Service))
	r.Get("/doctors/{doctorID}/availability/range", availabilityRangeHandler(cfg.Service))
	r.Get("/doctors/{doctorID}/schedule", getScheduleHandler(cfg.Service))
	r.Put("/doctors/{doctorID}/schedule/recurring", setRecurringScheduleHandler(cfg.Service))
	r.Put("/doctors/{doctorID}/schedule/dates", setSingleDateScheduleHandler(cfg.Service))

	// Appointments
	r.Post("/appointments", createAppointmentHandler(cfg.Service))
	r.Get("/appointments", listAppointmentsHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/no-show", markNoShowHandler(cfg.Service))
	r.Patch("/appointments/{id}/status", updateStatusHandler(cfg.Service))

	return r
}
