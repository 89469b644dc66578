package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RouterConfig struct {
	Service      ClinicService
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Logger       *zap.Logger
	AdminToken   string
	RateLimitRPS int
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Admin-Token", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if cfg.RateLimitRPS > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimitRPS, time.Second))
	}
	r.Use(RequestIDMiddleware)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(MetricsMiddleware)

	// Health and metrics endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Patient-facing endpoints
	r.Get("/doctors", listDoctorsHandler(cfg.Service))
	r.Get("/doctors/{id}/availability", getAvailabilityHandler(cfg.Service))
	r.Get("/testimonials", listTestimonialsHandler(cfg.Service))
	r.Post("/appointments", createAppointmentHandler(cfg.Service))
	r.Post("/appointments/book", bookAppointmentHandler(cfg.Service))

	// Admin endpoints behind the shared-token gate
	r.Group(func(admin chi.Router) {
		admin.Use(AdminOnly(cfg.AdminToken))
		admin.Put("/doctors/{id}/availability", setAvailabilityHandler(cfg.Service))
		admin.Get("/appointments", listAppointmentsHandler(cfg.Service))
		admin.Patch("/appointments/{id}", updateAppointmentHandler(cfg.Service))
		admin.Delete("/appointments/{id}", deleteAppointmentHandler(cfg.Service))
		admin.Get("/admin/stats/appointments-per-doctor", doctorStatsHandler(cfg.Service))
	})

	return r
}
