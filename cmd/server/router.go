package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/habitguard/study-server/internal/config"
	"github.com/habitguard/study-server/internal/handler"
	"github.com/habitguard/study-server/internal/middleware"
	"github.com/habitguard/study-server/internal/redis"
)

type routes struct {
	sessions *handler.StudySessionHandler
	stats    *handler.StatisticsHandler
	plans    *handler.StudyPlanHandler
	subjects *handler.SubjectHandler
	events   *handler.EventsHandler
	health   *handler.HealthHandler
}

func newRouter(cfg *config.Config, h routes, rdb *redis.Client) http.Handler {
	limiter := middleware.NewRedisRateLimiter(rdb.Client)
	auth := middleware.NewAuthMiddleware(cfg.JWTSecret)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	r.Use(middleware.BodyLimit(middleware.DefaultMaxBodySize))

	r.Method(http.MethodGet, "/health", h.health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(limiter, cfg.IPRateLimitPerMin, middleware.ByIP("api")))
		r.Use(auth.Handler)
		r.Use(middleware.RateLimit(limiter, cfg.RateLimitPerMin, middleware.ByUser))

		// streams outlive the request timeout
		r.Method(http.MethodGet, "/events", h.events)

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Timeout(config.RequestTimeout))
			r.Mount("/study-sessions", h.sessions.Routes())
			r.Mount("/study-statistics", h.stats.Routes())
			r.Mount("/study-plans", h.plans.Routes())
			r.Mount("/subjects", h.subjects.Routes())
		})
	})

	return r
}
