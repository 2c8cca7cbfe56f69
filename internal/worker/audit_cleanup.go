package worker

import (
	"context"
	"time"

	"github.com/caremesh/credentialing-api/internal/repository"
	"github.com/caremesh/credentialing-api/pkg/logger"
)

// outboxRetention is how long processed outbox rows are kept for inspection
// before the sweep removes them.
const outboxRetention = 7 * 24 * time.Hour

// CleanupWorker trims audit rows past the retention window and purges
// processed outbox events.
type CleanupWorker struct {
	auditRepo     repository.AuditRepository
	outboxRepo    repository.OutboxRepository
	retentionDays int
	interval      time.Duration
	logger        *logger.Logger
}

func NewCleanupWorker(auditRepo repository.AuditRepository, outboxRepo repository.OutboxRepository, retentionDays int, interval time.Duration, logger *logger.Logger) *CleanupWorker {
	if retentionDays <= 0 {
		retentionDays = 365
	}
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &CleanupWorker{
		auditRepo:     auditRepo,
		outboxRepo:    outboxRepo,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        logger,
	}
}

func (w *CleanupWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *CleanupWorker) sweep(ctx context.Context) {
	now := time.Now()

	auditCutoff := now.AddDate(0, 0, -w.retentionDays)
	rows, err := w.auditRepo.DeleteBefore(ctx, auditCutoff)
	if err != nil {
		w.logger.Error(err, "failed to clean up audit logs")
	} else if rows > 0 {
		w.logger.Info("cleaned up audit logs", "rows", rows)
	}

	rows, err = w.outboxRepo.DeleteProcessedBefore(ctx, now.Add(-outboxRetention))
	if err != nil {
		w.logger.Error(err, "failed to clean up outbox events")
	} else if rows > 0 {
		w.logger.Info("cleaned up processed outbox events", "rows", rows)
	}
}
