package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/caremesh/credentialing-api/internal/config"
	"github.com/caremesh/credentialing-api/internal/handler"
	analyticsHandler "github.com/caremesh/credentialing-api/internal/handler/analytics"
	auditHandler "github.com/caremesh/credentialing-api/internal/handler/audit"
	authHandler "github.com/caremesh/credentialing-api/internal/handler/auth"
	credentialHandler "github.com/caremesh/credentialing-api/internal/handler/credential"
	documentHandler "github.com/caremesh/credentialing-api/internal/handler/document"
	notificationHandler "github.com/caremesh/credentialing-api/internal/handler/notification"
	physicianHandler "github.com/caremesh/credentialing-api/internal/handler/physician"
	workflowHandler "github.com/caremesh/credentialing-api/internal/handler/workflow"
	"github.com/caremesh/credentialing-api/internal/middleware"
	"github.com/caremesh/credentialing-api/internal/repository/postgres"
	"github.com/caremesh/credentialing-api/internal/router"
	analyticsService "github.com/caremesh/credentialing-api/internal/service/analytics"
	auditService "github.com/caremesh/credentialing-api/internal/service/audit"
	authService "github.com/caremesh/credentialing-api/internal/service/auth"
	credentialService "github.com/caremesh/credentialing-api/internal/service/credential"
	documentService "github.com/caremesh/credentialing-api/internal/service/document"
	educationService "github.com/caremesh/credentialing-api/internal/service/education"
	notificationService "github.com/caremesh/credentialing-api/internal/service/notification"
	physicianService "github.com/caremesh/credentialing-api/internal/service/physician"
	workflowService "github.com/caremesh/credentialing-api/internal/service/workflow"
	"github.com/caremesh/credentialing-api/internal/storage"
	"github.com/caremesh/credentialing-api/pkg/auth"
	"github.com/caremesh/credentialing-api/pkg/security"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()
	store, err := storage.NewS3Store(ctx, cfg.Storage.ToObjectStoreConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object storage")
	}

	// Repositories
	physicianRepo := postgres.NewPhysicianRepository(db)
	credentialRepo := postgres.NewCredentialRepository(db)
	workflowRepo := postgres.NewWorkflowRepository(db)
	documentRepo := postgres.NewDocumentRepository(db)
	educationRepo := postgres.NewEducationRepository(db)
	notificationReadRepo := postgres.NewNotificationReadRepository(db)
	analyticsRepo := postgres.NewAnalyticsRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	userRepo := postgres.NewUserRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	// Services
	auditor := auditService.NewService(auditRepo)
	jwtSvc := auth.NewJWTService(auth.Config{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Expiry:        time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
		RefreshExpiry: time.Duration(cfg.JWT.RefreshExpiryHours) * time.Hour,
	})
	authSvc := authService.NewService(userRepo, jwtSvc, security.NewBcryptHasher(cfg.JWT.BcryptCost),
		time.Duration(cfg.JWT.ExpiryHours)*time.Hour, auditor)
	physicianSvc := physicianService.NewService(physicianRepo, auditor)
	credentialSvc := credentialService.NewService(credentialRepo, physicianRepo, auditor)
	workflowSvc := workflowService.NewService(workflowRepo, credentialRepo, auditor)
	documentSvc := documentService.NewService(documentRepo, physicianRepo, store, auditor)
	educationSvc := educationService.NewService(educationRepo, physicianRepo)
	notificationSvc := notificationService.NewService(credentialRepo, notificationReadRepo)
	analyticsSvc := analyticsService.NewService(analyticsRepo)

	// Handlers
	h := handler.NewHandler(db)
	authH := authHandler.NewHandler(authSvc)
	physicianH := physicianHandler.NewHandler(physicianSvc, educationSvc, outboxRepo)
	credentialH := credentialHandler.NewHandler(credentialSvc, outboxRepo)
	workflowH := workflowHandler.NewHandler(workflowSvc, outboxRepo)
	documentH := documentHandler.NewHandler(documentSvc, outboxRepo)
	notificationH := notificationHandler.NewHandler(notificationSvc)
	analyticsH := analyticsHandler.NewHandler(analyticsSvc)
	auditH := auditHandler.NewHandler(auditor)

	authMiddleware := middleware.NewAuthMiddleware(jwtSvc)

	r := router.NewRouter(
		authMiddleware,
		authH,
		physicianH,
		credentialH,
		workflowH,
		documentH,
		notificationH,
		analyticsH,
		auditH,
		h,
		router.Config{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimitRPS:     cfg.RateLimit.RequestsPerSecond,
			RateLimitBurst:   cfg.RateLimit.Burst,
			CORS: middleware.CORSConfig{
				AllowOrigins: cfg.Security.AllowedOrigins,
				AllowMethods: cfg.Security.AllowedMethods,
				AllowHeaders: cfg.Security.AllowedHeaders,
			},
			Timeout: middleware.TimeoutConfig{Duration: cfg.Server.RequestTimeout},
		},
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
