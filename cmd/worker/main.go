package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/caremesh/credentialing-api/internal/config"
	"github.com/caremesh/credentialing-api/internal/email"
	"github.com/caremesh/credentialing-api/internal/repository/postgres"
	auditService "github.com/caremesh/credentialing-api/internal/service/audit"
	workflowService "github.com/caremesh/credentialing-api/internal/service/workflow"
	internalworker "github.com/caremesh/credentialing-api/internal/worker"
	"github.com/caremesh/credentialing-api/pkg/logger"
	"github.com/caremesh/credentialing-api/pkg/messaging/redis"
	"github.com/caremesh/credentialing-api/pkg/metrics"
	"github.com/caremesh/credentialing-api/pkg/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	lg := logger.NewLogger(nil)
	m := metrics.NewMetrics("credentialing", "worker")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	zl := log.Logger
	broker, err := redis.NewRedisBroker(cfg.Redis.ToBrokerConfig(), &zl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	credentialRepo := postgres.NewCredentialRepository(db)
	workflowRepo := postgres.NewWorkflowRepository(db)
	auditRepo := postgres.NewAuditRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	auditor := auditService.NewService(auditRepo)
	workflowSvc := workflowService.NewService(workflowRepo, credentialRepo, auditor)
	emailSvc := email.NewSMTPService(cfg.SMTP)

	outboxProcessor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
	}, lg, m)

	scanner := internalworker.NewRenewalScanner(
		credentialRepo,
		workflowRepo,
		workflowSvc,
		emailSvc,
		internalworker.RenewalScannerConfig{
			ScanInterval:    cfg.Renewal.ScanInterval,
			LookAheadDays:   cfg.Renewal.LookAheadDays,
			ReminderDays:    cfg.Renewal.ReminderDays,
			DigestRecipient: cfg.Renewal.DigestRecipient,
		},
		lg,
		m,
	)

	cleanup := internalworker.NewCleanupWorker(auditRepo, outboxRepo, cfg.Renewal.AuditRetentionDays, 24*time.Hour, lg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go outboxProcessor.Start(ctx)
	go scanner.Start(ctx)
	go cleanup.Start(ctx)

	lg.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	lg.Info("shutting down worker...")
	cancel()

	// Give in-flight passes a moment to finish.
	time.Sleep(time.Second)
	lg.Info("worker exited")
}
