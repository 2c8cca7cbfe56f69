package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/caremesh/credentialing-api/internal/email"
	"github.com/caremesh/credentialing-api/internal/expiry"
	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/repository"
	"github.com/caremesh/credentialing-api/internal/service/workflow"
	"github.com/caremesh/credentialing-api/pkg/logger"
	"github.com/caremesh/credentialing-api/pkg/metrics"
)

type RenewalScannerConfig struct {
	ScanInterval  time.Duration
	LookAheadDays int
	ReminderDays  int
	// DigestRecipient receives the expiration reminder email each pass.
	// Empty disables reminders.
	DigestRecipient string
}

// RenewalScanner periodically walks upcoming credential expirations. Each
// pass opens workflows for credentials entering the look-ahead window, marks
// passed credentials (and their open workflows) expired, and mails a
// reminder digest.
type RenewalScanner struct {
	credentialRepo repository.CredentialRepository
	workflowRepo   repository.WorkflowRepository
	workflowSvc    *workflow.Service
	emailSvc       email.Service
	config         RenewalScannerConfig
	logger         *logger.Logger
	metrics        *metrics.Metrics
}

func NewRenewalScanner(
	credentialRepo repository.CredentialRepository,
	workflowRepo repository.WorkflowRepository,
	workflowSvc *workflow.Service,
	emailSvc email.Service,
	config RenewalScannerConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *RenewalScanner {
	if config.ScanInterval <= 0 {
		config.ScanInterval = time.Hour
	}
	if config.LookAheadDays <= 0 {
		config.LookAheadDays = expiry.RenewalRequiredDays
	}
	if config.ReminderDays <= 0 {
		config.ReminderDays = expiry.ExpiringSoonDays
	}

	return &RenewalScanner{
		credentialRepo: credentialRepo,
		workflowRepo:   workflowRepo,
		workflowSvc:    workflowSvc,
		emailSvc:       emailSvc,
		config:         config,
		logger:         logger,
		metrics:        metrics,
	}
}

func (s *RenewalScanner) Start(ctx context.Context) {
	ticker := time.NewTicker(s.config.ScanInterval)
	defer ticker.Stop()

	s.logger.Info("starting renewal scanner", "interval", s.config.ScanInterval.String())

	// One pass immediately so a restart doesn't wait a full interval.
	if err := s.Scan(ctx); err != nil {
		s.logger.Error(err, "renewal scan failed")
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down renewal scanner")
			return
		case <-ticker.C:
			if err := s.Scan(ctx); err != nil {
				s.logger.Error(err, "renewal scan failed")
			}
		}
	}
}

// Scan runs one pass: expire, open workflows, remind.
func (s *RenewalScanner) Scan(ctx context.Context) error {
	timer := prometheus.NewTimer(s.metrics.ScanDuration)
	defer timer.ObserveDuration()

	now := time.Now()

	if err := s.expirePassed(ctx, now); err != nil {
		return err
	}
	if err := s.openWorkflows(ctx, now); err != nil {
		return err
	}
	return s.sendReminders(ctx, now)
}

func (s *RenewalScanner) expirePassed(ctx context.Context, now time.Time) error {
	expired, err := s.credentialRepo.MarkExpired(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to mark expired credentials: %w", err)
	}

	for _, cred := range expired {
		s.metrics.CredentialsExpired.Inc()
		if err := s.expireOpenWorkflow(ctx, cred, now); err != nil {
			s.logger.Error(err, "failed to expire open workflow",
				"entity_type", string(cred.EntityType),
				"entity_id", cred.EntityID.String())
		}
	}

	if len(expired) > 0 {
		s.logger.Info("marked credentials expired", "count", len(expired))
	}
	return nil
}

// expireOpenWorkflow terminally expires the open renewal workflow for a
// passed credential, recording the transition on the timeline like every
// service-driven status change. ActorID stays uuid.Nil for the scanner.
func (s *RenewalScanner) expireOpenWorkflow(ctx context.Context, cred *model.ExpiringCredential, now time.Time) error {
	wf, err := s.workflowRepo.GetOpenByEntity(ctx, cred.EntityType, cred.EntityID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to look up open workflow: %w", err)
	}

	from := wf.Status
	wf.Status = model.WorkflowStatusExpired
	if err := s.workflowRepo.Update(ctx, wf); err != nil {
		return fmt.Errorf("failed to expire workflow: %w", err)
	}

	entry := &model.TimelineEntry{
		ID:         uuid.New(),
		WorkflowID: wf.ID,
		FromStatus: from,
		ToStatus:   model.WorkflowStatusExpired,
		Note:       "credential expired",
		CreatedAt:  now,
	}
	if err := s.workflowRepo.AppendTimeline(ctx, entry); err != nil {
		return fmt.Errorf("failed to append timeline: %w", err)
	}
	return nil
}

func (s *RenewalScanner) openWorkflows(ctx context.Context, now time.Time) error {
	cutoff := now.AddDate(0, 0, s.config.LookAheadDays)
	upcoming, err := s.credentialRepo.ListExpiring(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list expiring credentials: %w", err)
	}

	opened := 0
	for _, cred := range upcoming {
		if expiry.DaysUntil(cred.ExpirationDate, now) < 0 {
			continue
		}
		if _, err := s.workflowRepo.GetOpenByEntity(ctx, cred.EntityType, cred.EntityID); err == nil {
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Error(err, "failed to check open workflow",
				"entity_id", cred.EntityID.String())
			continue
		}

		if _, err := s.workflowSvc.Create(ctx, &model.CreateWorkflowRequest{
			PhysicianID: cred.PhysicianID,
			EntityType:  string(cred.EntityType),
			EntityID:    cred.EntityID,
		}); err != nil {
			s.logger.Error(err, "failed to open renewal workflow",
				"entity_type", string(cred.EntityType),
				"entity_id", cred.EntityID.String())
			continue
		}
		s.metrics.WorkflowsOpened.Inc()
		opened++
	}

	if opened > 0 {
		s.logger.Info("opened renewal workflows", "count", opened)
	}
	return nil
}

func (s *RenewalScanner) sendReminders(ctx context.Context, now time.Time) error {
	if s.config.DigestRecipient == "" {
		return nil
	}

	cutoff := now.AddDate(0, 0, s.config.ReminderDays)
	expiring, err := s.credentialRepo.ListExpiring(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to list credentials for reminders: %w", err)
	}
	if len(expiring) == 0 {
		return nil
	}

	if err := s.emailSvc.SendExpirationDigest(ctx, s.config.DigestRecipient, expiring); err != nil {
		s.metrics.RemindersSent.WithLabelValues("failed").Inc()
		return fmt.Errorf("failed to send reminder digest: %w", err)
	}
	s.metrics.RemindersSent.WithLabelValues("sent").Inc()
	return nil
}
