package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/vinq/vinq-crm/internal/api/dto"
	"github.com/vinq/vinq-crm/internal/api/handlers"
	"github.com/vinq/vinq-crm/internal/api/middleware"
	"github.com/vinq/vinq-crm/internal/auth"
	"github.com/vinq/vinq-crm/internal/cache"
	"github.com/vinq/vinq-crm/internal/crm"
	"github.com/vinq/vinq-crm/internal/storage"
	"gorm.io/gorm"
)

type Router struct {
	chi.Router
}

type RouterConfig struct {
	DB          *gorm.DB
	Redis       *redis.Client
	Logger      *slog.Logger
	JWTService  auth.TokenValidator
	AuthService *auth.Service
	CRM         *crm.Service

	// Cache backs the dashboard; nil disables caching.
	Cache    cache.Store
	CacheTTL time.Duration
	// Store receives property uploads; nil makes the upload routes answer 501.
	Store storage.ObjectStore

	AllowedOrigins []string
	// RateLimiter is shared so the caller can stop its sweeper; nil disables limiting.
	RateLimiter *middleware.RateLimiter
	Verbose     bool
}

func NewRouter(cfg RouterConfig) *Router {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.CRM == nil {
		cfg.CRM = crm.NewService(cfg.DB, cfg.Logger)
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	if cfg.RateLimiter != nil {
		r.Use(middleware.RateLimit(cfg.RateLimiter))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{Success: false, Message: "Route not found: " + r.URL.Path})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, dto.ErrorResponse{Success: false, Message: "Method not allowed: " + r.Method})
	})

	deps := handlers.Deps{DB: cfg.DB, CRM: cfg.CRM, Logger: cfg.Logger, Verbose: cfg.Verbose}

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(cfg.DB, cfg.Redis)
	authHandler := handlers.NewAuthHandler(deps, cfg.AuthService)
	leadHandler := handlers.NewLeadHandler(deps)
	contactHandler := handlers.NewContactHandler(deps)
	accountHandler := handlers.NewAccountHandler(deps)
	opportunityHandler := handlers.NewOpportunityHandler(deps)
	propertyHandler := handlers.NewPropertyHandler(deps, cfg.Store)
	activityHandler := handlers.NewActivityHandler(deps)
	userHandler := handlers.NewUserHandler(deps)
	dashboardHandler := handlers.NewDashboardHandler(deps, cfg.Cache, cfg.CacheTTL)

	requireAuth := middleware.Auth(cfg.JWTService, cfg.AuthService)
	can := middleware.RequirePermission

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Live)
	r.Get("/api/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", healthHandler.Welcome)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh-token", authHandler.RefreshToken)
			r.Post("/forgot-password", authHandler.ForgotPassword)
			r.Post("/reset-password", authHandler.ResetPassword)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", authHandler.Me)
				r.Post("/logout", authHandler.Logout)
				r.Put("/change-password", authHandler.ChangePassword)
			})
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/leads", func(r chi.Router) {
				r.Use(dashboardHandler.InvalidateOnWrite)
				r.Get("/stats", leadHandler.Stats)
				r.With(can(auth.PermLeadsBulkDelete)).Delete("/bulk", leadHandler.BulkDelete)
				r.Get("/", leadHandler.List)
				r.Post("/", leadHandler.Create)
				r.Get("/{id}", leadHandler.Get)
				r.Put("/{id}", leadHandler.Update)
				r.Patch("/{id}", leadHandler.Update)
				r.Delete("/{id}", leadHandler.Delete)
				r.With(can(auth.PermLeadsAssign)).Patch("/{id}/assign", leadHandler.Assign)
				r.Post("/{id}/convert", leadHandler.Convert)
			})

			r.Route("/contacts", func(r chi.Router) {
				r.Get("/stats", contactHandler.Stats)
				r.With(can(auth.PermContactsMerge)).Post("/merge", contactHandler.Merge)
				r.With(can(auth.PermContactsBulkDelete)).Delete("/bulk", contactHandler.BulkDelete)
				r.Get("/", contactHandler.List)
				r.Post("/", contactHandler.Create)
				r.Get("/{id}", contactHandler.Get)
				r.Put("/{id}", contactHandler.Update)
				r.Patch("/{id}", contactHandler.Update)
				r.With(can(auth.PermContactsDelete)).Delete("/{id}", contactHandler.Delete)
				r.With(can(auth.PermContactsAssign)).Patch("/{id}/assign", contactHandler.Assign)
				r.Patch("/{id}/link-account", contactHandler.LinkAccount)
			})

			r.Route("/accounts", func(r chi.Router) {
				r.Get("/stats", accountHandler.Stats)
				r.With(can(auth.PermAccountsBulkDelete)).Delete("/bulk", accountHandler.BulkDelete)
				r.Get("/", accountHandler.List)
				r.Post("/", accountHandler.Create)
				r.Get("/{id}", accountHandler.Get)
				r.Put("/{id}", accountHandler.Update)
				r.Patch("/{id}", accountHandler.Update)
				r.With(can(auth.PermAccountsDelete)).Delete("/{id}", accountHandler.Delete)
				r.With(can(auth.PermAccountsAssign)).Patch("/{id}/assign", accountHandler.Assign)
				r.Patch("/{id}/set-parent", accountHandler.SetParent)
			})

			r.Route("/opportunities", func(r chi.Router) {
				r.Use(dashboardHandler.InvalidateOnWrite)
				write := can(auth.PermOpportunitiesWrite)
				r.Get("/", opportunityHandler.List)
				r.With(write).Post("/", opportunityHandler.Create)
				r.Get("/{id}", opportunityHandler.Get)
				r.With(write).Put("/{id}", opportunityHandler.Update)
				r.With(write).Patch("/{id}", opportunityHandler.Update)
				r.With(can(auth.PermOpportunitiesDelete)).Delete("/{id}", opportunityHandler.Delete)
				r.With(write).Patch("/{id}/stage", opportunityHandler.UpdateStage)
				r.Post("/{id}/activities", opportunityHandler.AddActivity)
			})

			r.Route("/properties", func(r chi.Router) {
				write := can(auth.PermPropertiesWrite)
				r.Get("/", propertyHandler.List)
				r.With(write).Post("/", propertyHandler.Create)
				r.Get("/{id}", propertyHandler.Get)
				r.With(write).Put("/{id}", propertyHandler.Update)
				r.With(write).Patch("/{id}", propertyHandler.Update)
				r.With(can(auth.PermPropertiesDelete)).Delete("/{id}", propertyHandler.Delete)
				r.With(write).Post("/{id}/images", propertyHandler.UploadImage)
				r.With(write).Post("/{id}/documents", propertyHandler.UploadDocument)
			})

			r.Route("/activities", func(r chi.Router) {
				r.Use(dashboardHandler.InvalidateOnWrite)
				r.Get("/today", activityHandler.Today)
				r.Get("/pending", activityHandler.Pending)
				r.Get("/", activityHandler.List)
				r.Post("/", activityHandler.Create)
				r.Get("/{id}", activityHandler.Get)
				r.Put("/{id}", activityHandler.Update)
				r.Patch("/{id}", activityHandler.Update)
				r.Patch("/{id}/complete", activityHandler.Complete)
				r.Delete("/{id}", activityHandler.Delete)
			})

			r.Route("/users", func(r chi.Router) {
				r.Use(dashboardHandler.InvalidateOnWrite)
				r.With(can(auth.PermUsersList)).Get("/", userHandler.List)
				r.With(middleware.RequireSelfOr("id", auth.PermUsersView)).Get("/{id}", userHandler.Get)
				editable := middleware.RequireSelfOr("id", auth.PermUsersManage)
				r.With(editable).Put("/{id}", userHandler.Update)
				r.With(editable).Patch("/{id}", userHandler.Update)
				r.With(can(auth.PermUsersDelete)).Delete("/{id}", userHandler.Delete)
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Get("/stats", dashboardHandler.Stats)
				r.Get("/kpis", dashboardHandler.KPIs)
				r.Get("/recent-activity", dashboardHandler.RecentActivity)
				r.Get("/charts", dashboardHandler.Charts)
				r.Get("/upcoming", dashboardHandler.Upcoming)
			})
		})
	})

	return &Router{r}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
