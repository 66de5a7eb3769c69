package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	_ "github.com/victorytouchdown/vtshop-api/docs" // swagger docs
	"github.com/victorytouchdown/vtshop-api/internal/auth"
	"github.com/victorytouchdown/vtshop-api/internal/config"
	"github.com/victorytouchdown/vtshop-api/internal/database"
	"github.com/victorytouchdown/vtshop-api/internal/domain"
	"github.com/victorytouchdown/vtshop-api/internal/http/handler"
	"github.com/victorytouchdown/vtshop-api/internal/http/middleware"
)

// Handlers groups the HTTP handlers served by the router
type Handlers struct {
	Auth         *handler.AuthHandler
	Account      *handler.AccountHandler
	Catalog      *handler.CatalogHandler
	Cart         *handler.CartHandler
	Order        *handler.OrderHandler
	Conversation *handler.ConversationHandler
	Audit        *handler.AuditHandler
}

type Router struct {
	cfg             *config.Config
	logger          *zap.Logger
	db              *gorm.DB
	redis           *redis.Client
	authMiddleware  *auth.Middleware
	rateLimiter     *middleware.RateLimiter
	auditMiddleware *middleware.AuditMiddleware
	handlers        Handlers
}

// NewRouter creates the API router. redisClient may be nil when Redis is disabled.
func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	db *gorm.DB,
	redisClient *redis.Client,
	authMiddleware *auth.Middleware,
	rateLimiter *middleware.RateLimiter,
	auditMiddleware *middleware.AuditMiddleware,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:             cfg,
		logger:          logger,
		db:              db,
		redis:           redisClient,
		authMiddleware:  authMiddleware,
		rateLimiter:     rateLimiter,
		auditMiddleware: auditMiddleware,
		handlers:        handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Get("/health/db", rt.databaseHealth)
	r.Get("/health/ready", rt.readiness)

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	h := rt.handlers
	can := rt.authMiddleware.RequireAction

	r.Route("/api/v1", func(r chi.Router) {
		// Catalog reads are public, a token only adds the caller to the context
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.OptionalAuthenticate)
			r.Use(rt.rateLimiter.Limit)

			r.Get("/categories", h.Catalog.ListCategories)
			r.Get("/categories/{slug}", h.Catalog.GetCategory)
			r.Get("/products", h.Catalog.ListProducts)
			r.Get("/products/{slug}", h.Catalog.GetProduct)
			r.Get("/products/{slug}/image", h.Catalog.GetProductImage)
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.rateLimiter.LimitCredentials)

			r.Post("/auth/register", h.Auth.Register)
			r.Post("/auth/login", h.Auth.Login)
			r.Post("/auth/password-reset", h.Auth.RequestPasswordReset)
			r.Post("/auth/password-reset/confirm", h.Auth.ConfirmPasswordReset)
		})

		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.rateLimiter.Limit)
			r.Use(rt.auditMiddleware.Audit)

			r.Get("/auth/me", h.Auth.Me)
			r.Post("/auth/logout", h.Auth.Logout)

			r.With(can(auth.ActionViewMySpace)).Get("/me/space", h.Account.MySpace)

			r.Route("/cart", func(r chi.Router) {
				r.With(can(auth.ActionManageCart)).Group(func(r chi.Router) {
					r.Get("/", h.Cart.Get)
					r.Post("/items", h.Cart.AddLineItem)
					r.Put("/items", h.Cart.UpdateLineItem)
					r.Delete("/items", h.Cart.Empty)
					r.Delete("/items/{id}", h.Cart.RemoveLineItem)
				})
				r.With(can(auth.ActionPlaceOrder)).Post("/order", h.Cart.MakeOrder)
			})

			r.Route("/orders", func(r chi.Router) {
				r.With(can(auth.ActionListOrders)).Group(func(r chi.Router) {
					r.Get("/", h.Order.List)
					r.Get("/{slug}", h.Order.Get)
					r.Get("/{slug}/comments", h.Order.ListComments)
				})
				r.With(can(auth.ActionUpdateOrderStatus)).Put("/{slug}/status", h.Order.UpdateStatus)
				r.With(can(auth.ActionCommentOrder)).Post("/{slug}/comments", h.Order.AddComment)
			})

			r.Route("/conversations", func(r chi.Router) {
				r.Use(can(auth.ActionUseConversations))
				r.Get("/", h.Conversation.List)
				r.Get("/{id}", h.Conversation.Get)
				r.Get("/{id}/messages", h.Conversation.ListMessages)
				r.Post("/{id}/messages", h.Conversation.PostMessage)
				r.Post("/{id}/read", h.Conversation.MarkRead)
			})

			r.With(can(auth.ActionManageCatalog)).Group(func(r chi.Router) {
				r.Post("/categories", h.Catalog.CreateCategory)
				r.Put("/categories/{id}", h.Catalog.UpdateCategory)
				r.Post("/products", h.Catalog.CreateProduct)
				r.Patch("/products/{slug}", h.Catalog.UpdateProduct)
				r.Put("/products/{slug}/image", h.Catalog.UploadProductImage)
			})

			r.With(rt.authMiddleware.RequireRole(domain.RoleEmployee)).Get("/customers", h.Account.ListMyCustomers)
			r.With(can(auth.ActionViewCustomerAccounts)).Get("/customers/{id}", h.Account.GetCustomerAccount)

			r.Route("/admin", func(r chi.Router) {
				r.With(can(auth.ActionListUsers)).Get("/users", h.Account.ListUsers)
				r.With(can(auth.ActionViewAuditLog)).Get("/audit", h.Audit.List)
				r.With(can(auth.ActionManageEmployees)).Group(func(r chi.Router) {
					r.Get("/employees", h.Account.ListEmployees)
					r.Post("/employees", h.Account.CreateEmployee)
					r.Put("/employees/{id}/password", h.Account.SetEmployeePassword)
				})
			})
		})
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// databaseHealth reports database connectivity with pool statistics
func (rt *Router) databaseHealth(w http.ResponseWriter, _ *http.Request) {
	stats, err := database.HealthCheckWithStats(rt.db)
	if err != nil {
		rt.logger.Error("Database health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats":   stats,
	})
}

// readiness checks every backing service the API depends on
func (rt *Router) readiness(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]interface{})
	allHealthy := true

	record := func(name string, err error) {
		if err != nil {
			rt.logger.Error("Readiness check failed", zap.String("service", name), zap.Error(err))
			checks[name] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
			allHealthy = false
			return
		}
		checks[name] = map[string]interface{}{"status": "healthy"}
	}

	record("database", database.HealthCheck(rt.db))

	if rt.redis != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		record("redis", rt.redis.Ping(ctx).Err())
	}

	status, code := "healthy", http.StatusOK
	if !allHealthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]interface{}{
		"status": status,
		"checks": checks,
	})
}
