package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/victorytouchdown/vtshop-api/docs"
	"github.com/victorytouchdown/vtshop-api/internal/auth"
	"github.com/victorytouchdown/vtshop-api/internal/cache"
	"github.com/victorytouchdown/vtshop-api/internal/config"
	"github.com/victorytouchdown/vtshop-api/internal/database"
	"github.com/victorytouchdown/vtshop-api/internal/http/handler"
	"github.com/victorytouchdown/vtshop-api/internal/http/middleware"
	"github.com/victorytouchdown/vtshop-api/internal/http/router"
	"github.com/victorytouchdown/vtshop-api/internal/jobs"
	"github.com/victorytouchdown/vtshop-api/internal/logger"
	"github.com/victorytouchdown/vtshop-api/internal/repository"
	"github.com/victorytouchdown/vtshop-api/internal/service"
	"github.com/victorytouchdown/vtshop-api/internal/storage"
)

// @title VTShop API
// @version 1.0
// @description Wholesale shop API for catalog, carts, orders and customer advisor conversations

// @contact.name API Support
// @contact.email support@victorytouchdown.com

// @host localhost:8080
// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Bearer token

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key
// @description API Key for system operations

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Basic configuration first, for logging setup
	basicCfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.NewLogger(&basicCfg.Logging, &basicCfg.App)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	log.Info("Starting application",
		zap.String("app", basicCfg.App.Name),
		zap.String("env", basicCfg.App.Environment),
		zap.Int("port", basicCfg.App.Port),
	)

	if host := os.Getenv("SWAGGER_HOST"); host != "" {
		docs.SwaggerInfo.Host = host
	} else {
		docs.SwaggerInfo.Host = fmt.Sprintf("localhost:%d", basicCfg.App.Port)
	}

	// Development reads secrets from the environment, staging and production
	// may resolve them from Azure Key Vault
	cfg, err := config.LoadWithSecrets(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to load secrets: %w", err)
	}

	db, err := database.NewDatabase(&cfg.Database, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := database.AutoMigrate(db); err != nil {
			return fmt.Errorf("failed to auto-migrate database: %w", err)
		}
		log.Warn("Database schema auto-migrated, use goose migrations outside development")
	}

	fileStorage, err := storage.NewStorage(&cfg.Storage, log)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	log.Info("Storage initialized", zap.String("mode", cfg.Storage.Mode))

	var (
		redisClient  *redis.Client
		revoker      auth.TokenRevoker = cache.NewMemoryTokenRevoker()
		catalogCache service.CatalogCache
	)
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, &cfg.Redis, log)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer func() { _ = redisClient.Close() }()
		revoker = cache.NewRedisTokenRevoker(redisClient)
		catalogCache = cache.NewCatalogCache(redisClient, cfg.Redis.CatalogTTLDuration(), log)
	} else {
		log.Info("Redis disabled, using in-memory token revocation and no catalog cache")
	}

	// Repositories
	userRepo := repository.NewUserRepository(db)
	accountRepo := repository.NewCustomerAccountRepository(db)
	cartRepo := repository.NewCartRepository(db)
	lineItemRepo := repository.NewLineItemRepository(db)
	productRepo := repository.NewProductRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	auditLogRepo := repository.NewAuditLogRepository(db)

	// Services
	tokens := auth.NewTokenManager(&cfg.Auth)
	maxUploadSize := cfg.Storage.MaxUploadSizeMB * 1024 * 1024

	assignmentService := service.NewAssignmentService(userRepo, accountRepo, log)
	accountService := service.NewAccountService(db, userRepo, accountRepo, cartRepo, conversationRepo, orderRepo, assignmentService, cfg.Auth.BcryptCost, log)
	cartService := service.NewCartService(db, accountRepo, cartRepo, lineItemRepo, productRepo, orderRepo, log)
	orderService := service.NewOrderService(db, orderRepo, lineItemRepo, accountRepo, userRepo, log)
	conversationService := service.NewConversationService(db, conversationRepo, log)
	catalogService := service.NewCatalogService(categoryRepo, productRepo, fileStorage, catalogCache, maxUploadSize, log)
	authService := service.NewAuthService(userRepo, tokens, revoker, service.NewLogNotifier(log), cfg.Auth.BcryptCost, log)
	auditLogService := service.NewAuditLogService(auditLogRepo, log)

	if err := bootstrapAdministrator(ctx, cfg, accountService, log); err != nil {
		return err
	}

	// HTTP
	authMiddleware := auth.NewMiddleware(tokens, revoker, cfg.ApiKey.Value, log)
	rateLimiter := middleware.NewRateLimiter(&cfg.RateLimit, log)
	auditMiddleware := middleware.NewAuditMiddleware(auditLogService, nil, log)

	rt := router.NewRouter(cfg, log, db, redisClient, authMiddleware, rateLimiter, auditMiddleware, router.Handlers{
		Auth:         handler.NewAuthHandler(authService, accountService, auditLogService, log),
		Account:      handler.NewAccountHandler(accountService, log),
		Catalog:      handler.NewCatalogHandler(catalogService, maxUploadSize, log),
		Cart:         handler.NewCartHandler(cartService, log),
		Order:        handler.NewOrderHandler(orderService, log),
		Conversation: handler.NewConversationHandler(conversationService, log),
		Audit:        handler.NewAuditHandler(auditLogService, log),
	})

	scheduler, err := startScheduler(cfg, accountService, cartService, auditLogService, log)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      http.TimeoutHandler(rt.Setup(), cfg.Server.RequestTimeoutDuration(), `{"type":"service_unavailable","title":"Service Unavailable","status":503,"detail":"Request timed out"}`),
		ReadTimeout:  cfg.Server.ReadTimeoutDuration(),
		WriteTimeout: cfg.Server.WriteTimeoutDuration(),
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))

		if scheduler != nil {
			<-scheduler.Stop().Done()
			log.Info("Scheduler stopped")
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Failed to shutdown gracefully", zap.Error(err))
			return err
		}

		auditMiddleware.Wait()
		closeDatabase(db, log)
		log.Info("Server stopped gracefully")
	}

	return nil
}

// bootstrapAdministrator creates the configured administrator on first start
func bootstrapAdministrator(ctx context.Context, cfg *config.Config, accounts *service.AccountService, log *zap.Logger) error {
	if cfg.Bootstrap.AdminEmail == "" || cfg.Bootstrap.AdminPassword == "" {
		return nil
	}
	created, err := accounts.EnsureAdministrator(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to bootstrap administrator: %w", err)
	}
	if created {
		log.Info("Bootstrap administrator created", zap.String("email", cfg.Bootstrap.AdminEmail))
	}
	return nil
}

func startScheduler(
	cfg *config.Config,
	accounts *service.AccountService,
	carts *service.CartService,
	audit *service.AuditLogService,
	log *zap.Logger,
) (*jobs.Scheduler, error) {
	if !cfg.Jobs.Enabled {
		log.Info("Background jobs disabled")
		return nil, nil
	}

	scheduler := jobs.NewScheduler(log)
	assignment, err := jobs.RegisterMaintenanceJobs(scheduler,
		jobs.Services{Assigner: accounts, Reconciler: carts, Cleaner: audit},
		jobs.Schedule{
			AssignmentCron:     cfg.Jobs.AssignmentCron,
			CartReconcileCron:  cfg.Jobs.CartReconcileCron,
			AuditRetentionCron: cfg.Jobs.AuditRetentionCron,
			AuditRetentionDays: cfg.Jobs.AuditRetentionDays,
			Timeout:            cfg.Jobs.TimeoutDuration(),
		}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	scheduler.Start()
	if cfg.Jobs.RunOnStartup {
		go assignment.Run()
	}
	return scheduler, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Warn("Error closing database connection", zap.Error(err))
	}
}
