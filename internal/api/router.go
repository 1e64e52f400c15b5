package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

type RouterConfig struct {
	Service  SchedulingService
	Hours    HoursProvider
	Location *time.Location
	PgPool   *pgxpool.Pool
	Redis    *redis.Client
	Env      string
	Version  string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	r.Post("/appointments", createAppointmentHandler(cfg.Service, cfg.Location))
	r.Get("/appointments/pet/{petID}", listByPetHandler(cfg.Service))
	r.Get("/appointments/user/{userID}", listByUserHandler(cfg.Service))
	r.Get("/appointments/provider/{providerID}", providerAgendaHandler(cfg.Service, cfg.Location))

	r.Get("/business-hours", businessHoursHandler(cfg.Hours))

	return r
}
