package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/thezulux24/dentar-server/internal/appointment"
)

type RouterConfig struct {
	Service  *appointment.Service
	Timeline *appointment.Timeline
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Env      string
	Version  string
	Logger   zerolog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Staff surface
	r.Post("/appointments", createAppointmentHandler(cfg.Service))
	r.Get("/appointments", listAppointmentsHandler(cfg.Service, cfg.Timeline))
	r.Patch("/appointments/{id}", updateAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))

	// Patient self-service surface
	r.Get("/patients/{patientID}/appointments", listPatientAppointmentsHandler(cfg.Service))
	r.Patch("/patients/{patientID}/appointments/{id}", patientUpdateAppointmentHandler(cfg.Service))
	r.Post("/patients/{patientID}/appointments/{id}/cancel", patientCancelAppointmentHandler(cfg.Service))

	return r
}
