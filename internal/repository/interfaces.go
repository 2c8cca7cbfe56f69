package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/caremesh/credentialing-api/internal/model"
)

// All repository interfaces in one file
type (
	PhysicianRepository interface {
		Create(ctx context.Context, physician *model.Physician) error
		Get(ctx context.Context, id uuid.UUID) (*model.Physician, error)
		GetByNPI(ctx context.Context, npi string) (*model.Physician, error)
		Update(ctx context.Context, physician *model.Physician) error
		// Delete soft-deletes by stamping deleted_at.
		Delete(ctx context.Context, id uuid.UUID) error
		List(ctx context.Context, filters *model.PhysicianFilters) ([]*model.Physician, error)
	}

	// CredentialRepository covers the four credential kinds plus the merged
	// expiring view. Credentials are never hard-deleted; renewal updates the
	// dates in place.
	CredentialRepository interface {
		CreateLicense(ctx context.Context, l *model.License) error
		GetLicense(ctx context.Context, id uuid.UUID) (*model.License, error)
		ListLicenses(ctx context.Context, physicianID uuid.UUID) ([]*model.License, error)
		UpdateLicense(ctx context.Context, l *model.License) error

		CreateDEA(ctx context.Context, d *model.DEARegistration) error
		GetDEA(ctx context.Context, id uuid.UUID) (*model.DEARegistration, error)
		ListDEAs(ctx context.Context, physicianID uuid.UUID) ([]*model.DEARegistration, error)
		UpdateDEA(ctx context.Context, d *model.DEARegistration) error

		CreateCSR(ctx context.Context, c *model.CSRLicense) error
		GetCSR(ctx context.Context, id uuid.UUID) (*model.CSRLicense, error)
		ListCSRs(ctx context.Context, physicianID uuid.UUID) ([]*model.CSRLicense, error)
		UpdateCSR(ctx context.Context, c *model.CSRLicense) error

		CreateCertification(ctx context.Context, c *model.Certification) error
		GetCertification(ctx context.Context, id uuid.UUID) (*model.Certification, error)
		ListCertifications(ctx context.Context, physicianID uuid.UUID) ([]*model.Certification, error)
		UpdateCertification(ctx context.Context, c *model.Certification) error

		// ListExpiring returns credentials of every kind expiring on or
		// before the cutoff, including already-expired ones.
		ListExpiring(ctx context.Context, cutoff time.Time) ([]*model.ExpiringCredential, error)
		// MarkExpired flips status to expired for credentials whose
		// expiration day has fully passed, returning the affected rows.
		// Day granularity: a credential expiring on now's calendar day is
		// not yet expired.
		MarkExpired(ctx context.Context, now time.Time) ([]*model.ExpiringCredential, error)
	}

	EducationRepository interface {
		CreateEducation(ctx context.Context, e *model.Education) error
		ListEducation(ctx context.Context, physicianID uuid.UUID) ([]*model.Education, error)
		UpdateEducation(ctx context.Context, e *model.Education) error
		CreateWorkHistory(ctx context.Context, w *model.WorkHistory) error
		ListWorkHistory(ctx context.Context, physicianID uuid.UUID) ([]*model.WorkHistory, error)
		UpdateWorkHistory(ctx context.Context, w *model.WorkHistory) error
	}

	WorkflowRepository interface {
		Create(ctx context.Context, w *model.RenewalWorkflow) error
		Get(ctx context.Context, id uuid.UUID) (*model.RenewalWorkflow, error)
		// GetOpenByEntity returns the non-terminal workflow for a credential
		// instance, or sql.ErrNoRows.
		GetOpenByEntity(ctx context.Context, entityType model.EntityType, entityID uuid.UUID) (*model.RenewalWorkflow, error)
		Update(ctx context.Context, w *model.RenewalWorkflow) error
		List(ctx context.Context, filters *model.WorkflowFilters) ([]*model.RenewalWorkflow, error)
		CreateChecklistItem(ctx context.Context, item *model.ChecklistItem) error
		GetChecklistItem(ctx context.Context, id uuid.UUID) (*model.ChecklistItem, error)
		ListChecklist(ctx context.Context, workflowID uuid.UUID) ([]*model.ChecklistItem, error)
		UpdateChecklistItem(ctx context.Context, item *model.ChecklistItem) error
		// CountIncompleteRequired counts required checklist items not yet
		// completed; gates the in_progress -> filed transition.
		CountIncompleteRequired(ctx context.Context, workflowID uuid.UUID) (int, error)

		AppendTimeline(ctx context.Context, entry *model.TimelineEntry) error
		ListTimeline(ctx context.Context, workflowID uuid.UUID) ([]*model.TimelineEntry, error)
	}

	DocumentRepository interface {
		Get(ctx context.Context, id uuid.UUID) (*model.Document, error)
		List(ctx context.Context, physicianID uuid.UUID, filters *model.DocumentFilters) ([]*model.Document, error)
		// RegisterVersion inserts the new document row as current and
		// archives the previous current version of the same type in a single
		// transaction. Returns the assigned version number.
		RegisterVersion(ctx context.Context, doc *model.Document) error
	}

	NotificationReadRepository interface {
		// MarkRead is idempotent: marking an already-read notification is a
		// no-op.
		MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
		MarkAllRead(ctx context.Context, userID uuid.UUID, notificationIDs []uuid.UUID) error
		ListRead(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error)
	}

	UserRepository interface {
		Create(ctx context.Context, user *model.User) error
		Get(ctx context.Context, id uuid.UUID) (*model.User, error)
		GetByEmail(ctx context.Context, email string) (*model.User, error)
		Update(ctx context.Context, user *model.User) error
	}

	AuditRepository interface {
		Create(ctx context.Context, log *model.AuditLog) error
		List(ctx context.Context, entityType string, entityID uuid.UUID) ([]*model.AuditLog, error)
		DeleteBefore(ctx context.Context, before time.Time) (int64, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// GetPendingEvents returns unprocessed events in creation order:
		// pending ones plus failed ones whose retry backoff has elapsed.
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}

	AnalyticsRepository interface {
		ComplianceSummary(ctx context.Context, now time.Time) (*model.ComplianceSummary, error)
		RenewalTrends(ctx context.Context, months int) ([]*model.RenewalTrend, error)
		ExpirationForecast(ctx context.Context, from time.Time, months int) ([]*model.ExpirationForecastBucket, error)
		ProviderMetrics(ctx context.Context, now time.Time) ([]*model.ProviderMetrics, error)
		CredentialDistribution(ctx context.Context) (*model.CredentialDistribution, error)
		ExportRows(ctx context.Context) ([]*model.AnalyticsExportRow, error)
	}
)
