package worker

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremesh/credentialing-api/internal/email"
	"github.com/caremesh/credentialing-api/internal/expiry"
	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/service/audit"
	"github.com/caremesh/credentialing-api/internal/service/workflow"
	"github.com/caremesh/credentialing-api/pkg/logger"
	"github.com/caremesh/credentialing-api/pkg/metrics"
)

type scannerCredentialRepo struct {
	licenses map[uuid.UUID]*model.License
}

func (f *scannerCredentialRepo) expiringView() []*model.ExpiringCredential {
	var out []*model.ExpiringCredential
	for _, l := range f.licenses {
		out = append(out, &model.ExpiringCredential{
			EntityType:     model.EntityTypeLicense,
			EntityID:       l.ID,
			PhysicianID:    l.PhysicianID,
			PhysicianName:  "Dr. Test",
			Identifier:     l.LicenseNumber,
			State:          l.State,
			ExpirationDate: l.ExpirationDate,
			Status:         l.Status,
		})
	}
	return out
}

func (f *scannerCredentialRepo) ListExpiring(_ context.Context, cutoff time.Time) ([]*model.ExpiringCredential, error) {
	var out []*model.ExpiringCredential
	for _, c := range f.expiringView() {
		if !c.ExpirationDate.After(cutoff) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *scannerCredentialRepo) MarkExpired(_ context.Context, now time.Time) ([]*model.ExpiringCredential, error) {
	var out []*model.ExpiringCredential
	for _, l := range f.licenses {
		if expiry.DaysUntil(l.ExpirationDate, now) < 0 && l.Status != string(model.CredentialStatusExpired) {
			l.Status = string(model.CredentialStatusExpired)
			out = append(out, &model.ExpiringCredential{
				EntityType:     model.EntityTypeLicense,
				EntityID:       l.ID,
				PhysicianID:    l.PhysicianID,
				ExpirationDate: l.ExpirationDate,
				Status:         l.Status,
			})
		}
	}
	return out, nil
}

func (f *scannerCredentialRepo) CreateLicense(_ context.Context, l *model.License) error {
	f.licenses[l.ID] = l
	return nil
}

func (f *scannerCredentialRepo) GetLicense(_ context.Context, id uuid.UUID) (*model.License, error) {
	l, ok := f.licenses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return l, nil
}

func (f *scannerCredentialRepo) ListLicenses(_ context.Context, _ uuid.UUID) ([]*model.License, error) {
	return nil, nil
}
func (f *scannerCredentialRepo) UpdateLicense(_ context.Context, _ *model.License) error { return nil }
func (f *scannerCredentialRepo) CreateDEA(_ context.Context, _ *model.DEARegistration) error {
	return nil
}
func (f *scannerCredentialRepo) GetDEA(_ context.Context, _ uuid.UUID) (*model.DEARegistration, error) {
	return nil, sql.ErrNoRows
}
func (f *scannerCredentialRepo) ListDEAs(_ context.Context, _ uuid.UUID) ([]*model.DEARegistration, error) {
	return nil, nil
}
func (f *scannerCredentialRepo) UpdateDEA(_ context.Context, _ *model.DEARegistration) error {
	return nil
}
func (f *scannerCredentialRepo) CreateCSR(_ context.Context, _ *model.CSRLicense) error { return nil }
func (f *scannerCredentialRepo) GetCSR(_ context.Context, _ uuid.UUID) (*model.CSRLicense, error) {
	return nil, sql.ErrNoRows
}
func (f *scannerCredentialRepo) ListCSRs(_ context.Context, _ uuid.UUID) ([]*model.CSRLicense, error) {
	return nil, nil
}
func (f *scannerCredentialRepo) UpdateCSR(_ context.Context, _ *model.CSRLicense) error { return nil }
func (f *scannerCredentialRepo) CreateCertification(_ context.Context, _ *model.Certification) error {
	return nil
}
func (f *scannerCredentialRepo) GetCertification(_ context.Context, _ uuid.UUID) (*model.Certification, error) {
	return nil, sql.ErrNoRows
}
func (f *scannerCredentialRepo) ListCertifications(_ context.Context, _ uuid.UUID) ([]*model.Certification, error) {
	return nil, nil
}
func (f *scannerCredentialRepo) UpdateCertification(_ context.Context, _ *model.Certification) error {
	return nil
}

type scannerWorkflowRepo struct {
	workflows map[uuid.UUID]*model.RenewalWorkflow
	checklist map[uuid.UUID]*model.ChecklistItem
	timeline  []*model.TimelineEntry
}

func newScannerWorkflowRepo() *scannerWorkflowRepo {
	return &scannerWorkflowRepo{
		workflows: make(map[uuid.UUID]*model.RenewalWorkflow),
		checklist: make(map[uuid.UUID]*model.ChecklistItem),
	}
}

func (f *scannerWorkflowRepo) Create(_ context.Context, w *model.RenewalWorkflow) error {
	f.workflows[w.ID] = w
	return nil
}

func (f *scannerWorkflowRepo) Get(_ context.Context, id uuid.UUID) (*model.RenewalWorkflow, error) {
	w, ok := f.workflows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return w, nil
}

func (f *scannerWorkflowRepo) GetOpenByEntity(_ context.Context, entityType model.EntityType, entityID uuid.UUID) (*model.RenewalWorkflow, error) {
	for _, w := range f.workflows {
		if w.EntityType == entityType && w.EntityID == entityID && !w.Status.IsTerminal() {
			return w, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *scannerWorkflowRepo) Update(_ context.Context, w *model.RenewalWorkflow) error {
	f.workflows[w.ID] = w
	return nil
}

func (f *scannerWorkflowRepo) List(_ context.Context, _ *model.WorkflowFilters) ([]*model.RenewalWorkflow, error) {
	return nil, nil
}

func (f *scannerWorkflowRepo) CreateChecklistItem(_ context.Context, item *model.ChecklistItem) error {
	f.checklist[item.ID] = item
	return nil
}

func (f *scannerWorkflowRepo) GetChecklistItem(_ context.Context, id uuid.UUID) (*model.ChecklistItem, error) {
	item, ok := f.checklist[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return item, nil
}

func (f *scannerWorkflowRepo) ListChecklist(_ context.Context, workflowID uuid.UUID) ([]*model.ChecklistItem, error) {
	var out []*model.ChecklistItem
	for _, item := range f.checklist {
		if item.WorkflowID == workflowID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *scannerWorkflowRepo) UpdateChecklistItem(_ context.Context, _ *model.ChecklistItem) error {
	return nil
}

func (f *scannerWorkflowRepo) CountIncompleteRequired(_ context.Context, _ uuid.UUID) (int, error) {
	return 0, nil
}

func (f *scannerWorkflowRepo) AppendTimeline(_ context.Context, entry *model.TimelineEntry) error {
	f.timeline = append(f.timeline, entry)
	return nil
}

func (f *scannerWorkflowRepo) ListTimeline(_ context.Context, _ uuid.UUID) ([]*model.TimelineEntry, error) {
	return nil, nil
}

type scannerAuditRepo struct{}

func (f *scannerAuditRepo) Create(_ context.Context, _ *model.AuditLog) error { return nil }
func (f *scannerAuditRepo) List(_ context.Context, _ string, _ uuid.UUID) ([]*model.AuditLog, error) {
	return nil, nil
}
func (f *scannerAuditRepo) DeleteBefore(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

type recordingEmail struct {
	digests [][]*model.ExpiringCredential
}

var _ email.Service = (*recordingEmail)(nil)

func (f *recordingEmail) SendExpirationDigest(_ context.Context, _ string, creds []*model.ExpiringCredential) error {
	f.digests = append(f.digests, creds)
	return nil
}

func (f *recordingEmail) SendCustom(_ context.Context, _, _, _ string) error { return nil }

var testMetrics = metrics.NewMetrics("credentialing_test", "scanner")

func newScanner(creds *scannerCredentialRepo, workflows *scannerWorkflowRepo, mail *recordingEmail) *RenewalScanner {
	auditor := audit.NewService(&scannerAuditRepo{})
	wfSvc := workflow.NewService(workflows, creds, auditor)
	return NewRenewalScanner(creds, workflows, wfSvc, mail, RenewalScannerConfig{
		ScanInterval:    time.Hour,
		LookAheadDays:   90,
		ReminderDays:    30,
		DigestRecipient: "credentialing@caremesh.example",
	}, logger.NewLogger(nil), testMetrics)
}

func license(days int) *model.License {
	return &model.License{
		Base:           model.Base{ID: uuid.New()},
		PhysicianID:    uuid.New(),
		LicenseNumber:  "MD-1",
		State:          "MA",
		ExpirationDate: time.Now().AddDate(0, 0, days),
		Status:         string(model.CredentialStatusActive),
	}
}

func TestScanOpensWorkflowsWithinWindow(t *testing.T) {
	near := license(45)
	far := license(200)
	creds := &scannerCredentialRepo{licenses: map[uuid.UUID]*model.License{
		near.ID: near,
		far.ID:  far,
	}}
	workflows := newScannerWorkflowRepo()

	scanner := newScanner(creds, workflows, &recordingEmail{})
	require.NoError(t, scanner.Scan(context.Background()))

	require.Len(t, workflows.workflows, 1)
	for _, w := range workflows.workflows {
		assert.Equal(t, near.ID, w.EntityID)
		assert.Equal(t, model.WorkflowStatusNotStarted, w.Status)
	}
	// Default checklist seeded through the workflow service.
	assert.NotEmpty(t, workflows.checklist)
}

func TestScanIsIdempotentAcrossPasses(t *testing.T) {
	near := license(45)
	creds := &scannerCredentialRepo{licenses: map[uuid.UUID]*model.License{near.ID: near}}
	workflows := newScannerWorkflowRepo()

	scanner := newScanner(creds, workflows, &recordingEmail{})
	require.NoError(t, scanner.Scan(context.Background()))
	require.NoError(t, scanner.Scan(context.Background()))

	assert.Len(t, workflows.workflows, 1, "second pass must not open a duplicate workflow")
}

func TestScanExpiresPassedCredentialsAndWorkflows(t *testing.T) {
	passed := license(-2)
	creds := &scannerCredentialRepo{licenses: map[uuid.UUID]*model.License{passed.ID: passed}}
	workflows := newScannerWorkflowRepo()

	open := &model.RenewalWorkflow{
		Base:        model.Base{ID: uuid.New()},
		PhysicianID: passed.PhysicianID,
		EntityType:  model.EntityTypeLicense,
		EntityID:    passed.ID,
		Status:      model.WorkflowStatusInProgress,
	}
	workflows.workflows[open.ID] = open

	scanner := newScanner(creds, workflows, &recordingEmail{})
	require.NoError(t, scanner.Scan(context.Background()))

	assert.Equal(t, string(model.CredentialStatusExpired), passed.Status)
	assert.Equal(t, model.WorkflowStatusExpired, open.Status)

	// Expired credentials do not get fresh workflows.
	assert.Len(t, workflows.workflows, 1)
}

func TestScanKeepsCredentialOnExpirationDay(t *testing.T) {
	// Expiration day is day 0: still valid, still renewable.
	today := license(0)
	creds := &scannerCredentialRepo{licenses: map[uuid.UUID]*model.License{today.ID: today}}
	workflows := newScannerWorkflowRepo()

	open := &model.RenewalWorkflow{
		Base:        model.Base{ID: uuid.New()},
		PhysicianID: today.PhysicianID,
		EntityType:  model.EntityTypeLicense,
		EntityID:    today.ID,
		Status:      model.WorkflowStatusInProgress,
	}
	workflows.workflows[open.ID] = open

	scanner := newScanner(creds, workflows, &recordingEmail{})
	require.NoError(t, scanner.Scan(context.Background()))

	assert.Equal(t, string(model.CredentialStatusActive), today.Status,
		"credential must survive its last valid day")
	assert.Equal(t, model.WorkflowStatusInProgress, open.Status,
		"open workflow must not be force-expired on day 0")
}

func TestScanExpiryRecordsTimeline(t *testing.T) {
	passed := license(-5)
	creds := &scannerCredentialRepo{licenses: map[uuid.UUID]*model.License{passed.ID: passed}}
	workflows := newScannerWorkflowRepo()

	open := &model.RenewalWorkflow{
		Base:        model.Base{ID: uuid.New()},
		PhysicianID: passed.PhysicianID,
		EntityType:  model.EntityTypeLicense,
		EntityID:    passed.ID,
		Status:      model.WorkflowStatusFiled,
	}
	workflows.workflows[open.ID] = open

	scanner := newScanner(creds, workflows, &recordingEmail{})
	require.NoError(t, scanner.Scan(context.Background()))

	require.Len(t, workflows.timeline, 1)
	entry := workflows.timeline[0]
	assert.Equal(t, open.ID, entry.WorkflowID)
	assert.Equal(t, model.WorkflowStatusFiled, entry.FromStatus)
	assert.Equal(t, model.WorkflowStatusExpired, entry.ToStatus)
	assert.Equal(t, uuid.Nil, entry.ActorID)
}

func TestScanSendsReminderDigest(t *testing.T) {
	soon := license(10)
	later := license(60)
	creds := &scannerCredentialRepo{licenses: map[uuid.UUID]*model.License{
		soon.ID:  soon,
		later.ID: later,
	}}
	mail := &recordingEmail{}

	scanner := newScanner(creds, newScannerWorkflowRepo(), mail)
	require.NoError(t, scanner.Scan(context.Background()))

	require.Len(t, mail.digests, 1)
	require.Len(t, mail.digests[0], 1, "only credentials within the reminder window")
	assert.Equal(t, soon.ID, mail.digests[0][0].EntityID)
}
