package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/npspulse/backend/internal/api/handlers"
	"github.com/npspulse/backend/internal/api/middleware"
	"github.com/npspulse/backend/internal/auth"
	"github.com/npspulse/backend/internal/cache"
	"github.com/npspulse/backend/internal/config"
	"github.com/npspulse/backend/internal/dispatch"
	"github.com/npspulse/backend/internal/models"
	"github.com/npspulse/backend/internal/queue"
	"github.com/npspulse/backend/internal/response"
	"github.com/npspulse/backend/internal/store"
	"github.com/npspulse/backend/internal/survey"
	"github.com/npspulse/backend/internal/tenant"
	"github.com/npspulse/backend/internal/webhook"
)

type Router struct {
	mux   *chi.Mux
	db    *pgxpool.Pool
	redis *redis.Client
	cfg   *config.Config
}

func NewRouter(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *Router {
	return &Router{
		mux:   chi.NewRouter(),
		db:    db,
		redis: rdb,
		cfg:   cfg,
	}
}

func (rt *Router) Setup() http.Handler {
	r := rt.mux

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS([]string{"*"}))
	r.Use(middleware.Metrics)

	rl := middleware.NewRateLimiter(100, 200)
	r.Use(rl.Limit)

	// Health + metrics endpoints (no auth)
	health := handlers.NewHealthHandler(rt.db, rt.redis)
	r.Get("/health", health.Health)
	r.Get("/health/ready", health.Ready)
	r.Get("/health/live", health.Live)
	r.Handle("/metrics", promhttp.Handler())

	// Initialize services
	entities := store.NewPostgres(rt.db)
	redisCache := cache.NewCache(rt.redis)
	tenantSvc := tenant.NewService(entities)
	authSvc := auth.NewService(tenantSvc, redisCache, rt.cfg.Auth)
	surveySvc := survey.NewService(entities)
	queueClient := queue.NewClient(rt.cfg.Redis.Addr, rt.cfg.Redis.Password, rt.cfg.Redis.DB)
	dispatchSvc := dispatch.NewService(entities, surveySvc, queueClient)
	responseSvc := response.NewService(entities, surveySvc)
	webhookSvc := webhook.NewService(entities)

	// Public webhooks (signature-verified, no JWT)
	webhookH := handlers.NewWebhookHandler(webhookSvc, responseSvc, rt.cfg.Webhooks)
	r.Route("/webhooks", func(r chi.Router) {
		r.Post("/zendesk", webhookH.Zendesk)
		r.Post("/sunco", webhookH.Sunco)
		r.Post("/survey-response", webhookH.SurveyResponse)
	})

	// API v1
	authH := handlers.NewAuthHandler(authSvc)
	surveyH := handlers.NewSurveyHandler(surveySvc, dispatchSvc, responseSvc)
	tenantH := handlers.NewTenantHandler(tenantSvc)
	canEdit := auth.RequireRole(models.RoleAdmin, models.RoleUser)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/auth/signup", authH.Signup)
		r.Post("/auth/login", authH.Login)
		r.Post("/auth/refresh", authH.Refresh)
		r.Post("/auth/logout", authH.Logout)

		// Everything below requires a valid access token
		r.Group(func(r chi.Router) {
			r.Use(authSvc.Middleware)

			r.Get("/auth/me", authH.Me)

			r.Route("/surveys", func(r chi.Router) {
				r.Get("/", surveyH.List)
				r.With(canEdit).Post("/", surveyH.Create)
				r.Get("/{id}", surveyH.Get)
				r.With(canEdit).Put("/{id}", surveyH.Update)
				r.With(canEdit).Delete("/{id}", surveyH.Delete)
				r.With(canEdit).Post("/{id}/send", surveyH.Send)
				r.Get("/{id}/responses", surveyH.Responses)
				r.Get("/{id}/summary", surveyH.Summary)
			})

			r.Route("/tenant", func(r chi.Router) {
				r.Get("/settings", tenantH.GetSettings)
				r.With(auth.RequireRole(models.RoleAdmin)).Put("/settings", tenantH.UpdateSettings)
			})
		})
	})

	return r
}
