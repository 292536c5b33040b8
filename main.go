// Package main provides the main entry point for the Elby AI backend
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/elby-ai/elby-backend/app/handlers"
	"github.com/elby-ai/elby-backend/app/middleware"
	"github.com/elby-ai/elby-backend/app/router"
	"github.com/elby-ai/elby-backend/app/services"
	businessflow "github.com/elby-ai/elby-backend/business_flow"
	"github.com/elby-ai/elby-backend/config"
	"github.com/elby-ai/elby-backend/repository"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

func main() {
	log.Println("Starting Elby AI backend...")

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg.Logging)

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	app.router.SetupRoutes()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-sigChan
	log.Println("Shutting down gracefully...")

	for _, fn := range app.stopFuncs {
		fn()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// setupLogging routes the standard logger through lumberjack when file output
// is configured.
func setupLogging(cfg config.LoggingConfig) {
	if cfg.Output == "stdout" {
		return
	}

	rotator := &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}

	if cfg.Output == "both" {
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
		return
	}
	log.SetOutput(rotator)
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Redis client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

func initializeEmailProvider(cfg config.EmailConfig) services.EmailProvider {
	switch cfg.Provider {
	case "sendgrid":
		return services.NewSendGridEmailProvider(cfg.APIKey, cfg.FromName, cfg.FromEmail)
	default:
		log.Println("Using mock email provider; verification emails will not be delivered")
		return services.NewMockEmailProvider()
	}
}

func initializeTwoFactorService(cfg config.TwoFactorConfig) services.TwoFactorService {
	switch cfg.Provider {
	case "privacyidea":
		return services.NewPrivacyIDEAService(cfg.BaseURL, cfg.ServiceToken, cfg.Realm, cfg.Timeout)
	default:
		log.Println("Using mock two-factor provider")
		return services.NewMockTwoFactorService()
	}
}

func initializeAttestationService(cfg config.AttestationConfig) services.AttestationService {
	switch cfg.Provider {
	case "recaptcha":
		return services.NewRecaptchaService(cfg.Secret, cfg.MinScore, cfg.Timeout)
	default:
		log.Println("Using mock attestation provider")
		return services.NewMockAttestationService()
	}
}

func initializeAIService(cfg config.AIConfig) services.AIService {
	switch cfg.Provider {
	case "gemini":
		return services.NewGeminiService(cfg.APIKey, cfg.Model, cfg.Timeout, cfg.MaxRetries)
	default:
		log.Println("Using mock AI provider")
		return services.NewMockAIService("This is a placeholder response.")
	}
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	if err := repository.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	if cfg.App.SeedDemo {
		if err := repository.EnsureSeedData(db, cfg.App.SeedPassword); err != nil {
			return nil, fmt.Errorf("failed to seed fixture data: %w", err)
		}
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}
	if rc != nil {
		stopFuncs = append(stopFuncs, func() { _ = rc.Close() })
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewUserSessionRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)
	contentRepo := repository.NewSiteContentRepository(db)

	// Initialize services
	tokenService, err := services.NewTokenService(
		cfg.JWT.AccessTokenTTL,
		cfg.JWT.RefreshTokenTTL,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.JWT.UseRSAKeys,
		cfg.JWT.PrivateKey,
		cfg.JWT.PublicKey,
		cfg.JWT.SecretKey,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	log.Printf("Token service initialized with issuer: %s, audience: %s", cfg.JWT.Issuer, cfg.JWT.Audience)

	emailProvider := initializeEmailProvider(cfg.Email)
	notificationService := services.NewNotificationService(emailProvider, cfg.App.AppURL)
	twoFactorService := initializeTwoFactorService(cfg.TwoFactor)
	attestationService := initializeAttestationService(cfg.Attestation)
	aiService := initializeAIService(cfg.AI)

	var challengeStore services.ChallengeStore
	if rc != nil {
		challengeStore = services.NewRedisChallengeStore(rc, cfg.TwoFactor.ChallengeTTL)
	} else {
		challengeStore = services.NewMemoryChallengeStore(cfg.TwoFactor.ChallengeTTL)
	}

	// Health checkers probed by the admin console
	checkers := map[string]businessflow.HealthChecker{
		"database": func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if rc != nil {
		checkers["cache"] = func(ctx context.Context) error {
			return rc.Ping(ctx).Err()
		}
	}
	checkers["ai"] = func(ctx context.Context) error {
		if cfg.AI.Provider == "gemini" && cfg.AI.APIKey == "" {
			return fmt.Errorf("gemini api key not configured")
		}
		return nil
	}

	// Initialize flows
	usageFlow := businessflow.NewUsageFlow(userRepo, auditRepo, db)
	signupFlow := businessflow.NewSignupFlow(userRepo, sessionRepo, auditRepo, tokenService, notificationService, attestationService, db)
	loginFlow := businessflow.NewLoginFlow(userRepo, sessionRepo, auditRepo, tokenService, twoFactorService, challengeStore, db)
	chatFlow := businessflow.NewChatFlow(usageFlow, aiService)
	adminFlow := businessflow.NewAdminFlow(userRepo, sessionRepo, auditRepo, checkers, db)
	contentFlow := businessflow.NewContentFlow(contentRepo, auditRepo, db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(signupFlow, loginFlow)
	chatHandler := handlers.NewChatHandler(chatFlow, usageFlow)
	adminHandler := handlers.NewAdminHandler(adminFlow)
	contentHandler := handlers.NewContentHandler(contentFlow)

	authMiddleware := middleware.NewAuthMiddleware(tokenService, sessionRepo, userRepo)

	appRouter := router.NewFiberRouter(
		cfg.Security.AllowedOrigins,
		authHandler,
		chatHandler,
		adminHandler,
		contentHandler,
		authMiddleware,
	)

	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
