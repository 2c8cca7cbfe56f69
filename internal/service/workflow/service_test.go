package workflow

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/caremesh/credentialing-api/pkg/errors"

	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/service/audit"
)

type fakeWorkflowRepo struct {
	workflows map[uuid.UUID]*model.RenewalWorkflow
	checklist map[uuid.UUID]*model.ChecklistItem
	timeline  []*model.TimelineEntry
}

func newFakeWorkflowRepo() *fakeWorkflowRepo {
	return &fakeWorkflowRepo{
		workflows: make(map[uuid.UUID]*model.RenewalWorkflow),
		checklist: make(map[uuid.UUID]*model.ChecklistItem),
	}
}

func (f *fakeWorkflowRepo) Create(_ context.Context, w *model.RenewalWorkflow) error {
	cp := *w
	f.workflows[w.ID] = &cp
	return nil
}

func (f *fakeWorkflowRepo) Get(_ context.Context, id uuid.UUID) (*model.RenewalWorkflow, error) {
	w, ok := f.workflows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *w
	return &cp, nil
}

func (f *fakeWorkflowRepo) GetOpenByEntity(_ context.Context, entityType model.EntityType, entityID uuid.UUID) (*model.RenewalWorkflow, error) {
	for _, w := range f.workflows {
		if w.EntityType == entityType && w.EntityID == entityID && !w.Status.IsTerminal() {
			cp := *w
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeWorkflowRepo) Update(_ context.Context, w *model.RenewalWorkflow) error {
	if _, ok := f.workflows[w.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *w
	f.workflows[w.ID] = &cp
	return nil
}

func (f *fakeWorkflowRepo) List(_ context.Context, _ *model.WorkflowFilters) ([]*model.RenewalWorkflow, error) {
	out := make([]*model.RenewalWorkflow, 0, len(f.workflows))
	for _, w := range f.workflows {
		cp := *w
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeWorkflowRepo) CreateChecklistItem(_ context.Context, item *model.ChecklistItem) error {
	cp := *item
	f.checklist[item.ID] = &cp
	return nil
}

func (f *fakeWorkflowRepo) GetChecklistItem(_ context.Context, id uuid.UUID) (*model.ChecklistItem, error) {
	item, ok := f.checklist[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	cp := *item
	return &cp, nil
}

func (f *fakeWorkflowRepo) ListChecklist(_ context.Context, workflowID uuid.UUID) ([]*model.ChecklistItem, error) {
	var out []*model.ChecklistItem
	for _, item := range f.checklist {
		if item.WorkflowID == workflowID {
			cp := *item
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeWorkflowRepo) UpdateChecklistItem(_ context.Context, item *model.ChecklistItem) error {
	if _, ok := f.checklist[item.ID]; !ok {
		return sql.ErrNoRows
	}
	cp := *item
	f.checklist[item.ID] = &cp
	return nil
}

func (f *fakeWorkflowRepo) CountIncompleteRequired(_ context.Context, workflowID uuid.UUID) (int, error) {
	count := 0
	for _, item := range f.checklist {
		if item.WorkflowID == workflowID && item.Required && !item.Completed {
			count++
		}
	}
	return count, nil
}

func (f *fakeWorkflowRepo) AppendTimeline(_ context.Context, entry *model.TimelineEntry) error {
	cp := *entry
	f.timeline = append(f.timeline, &cp)
	return nil
}

func (f *fakeWorkflowRepo) ListTimeline(_ context.Context, workflowID uuid.UUID) ([]*model.TimelineEntry, error) {
	var out []*model.TimelineEntry
	for _, e := range f.timeline {
		if e.WorkflowID == workflowID {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeCredentialRepo struct {
	licenses map[uuid.UUID]*model.License
}

func (f *fakeCredentialRepo) CreateLicense(_ context.Context, l *model.License) error {
	f.licenses[l.ID] = l
	return nil
}

func (f *fakeCredentialRepo) GetLicense(_ context.Context, id uuid.UUID) (*model.License, error) {
	l, ok := f.licenses[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return l, nil
}

func (f *fakeCredentialRepo) ListLicenses(_ context.Context, _ uuid.UUID) ([]*model.License, error) {
	return nil, nil
}
func (f *fakeCredentialRepo) UpdateLicense(_ context.Context, _ *model.License) error { return nil }
func (f *fakeCredentialRepo) CreateDEA(_ context.Context, _ *model.DEARegistration) error {
	return nil
}
func (f *fakeCredentialRepo) GetDEA(_ context.Context, _ uuid.UUID) (*model.DEARegistration, error) {
	return nil, sql.ErrNoRows
}
func (f *fakeCredentialRepo) ListDEAs(_ context.Context, _ uuid.UUID) ([]*model.DEARegistration, error) {
	return nil, nil
}
func (f *fakeCredentialRepo) UpdateDEA(_ context.Context, _ *model.DEARegistration) error {
	return nil
}
func (f *fakeCredentialRepo) CreateCSR(_ context.Context, _ *model.CSRLicense) error { return nil }
func (f *fakeCredentialRepo) GetCSR(_ context.Context, _ uuid.UUID) (*model.CSRLicense, error) {
	return nil, sql.ErrNoRows
}
func (f *fakeCredentialRepo) ListCSRs(_ context.Context, _ uuid.UUID) ([]*model.CSRLicense, error) {
	return nil, nil
}
func (f *fakeCredentialRepo) UpdateCSR(_ context.Context, _ *model.CSRLicense) error { return nil }
func (f *fakeCredentialRepo) CreateCertification(_ context.Context, _ *model.Certification) error {
	return nil
}
func (f *fakeCredentialRepo) GetCertification(_ context.Context, _ uuid.UUID) (*model.Certification, error) {
	return nil, sql.ErrNoRows
}
func (f *fakeCredentialRepo) ListCertifications(_ context.Context, _ uuid.UUID) ([]*model.Certification, error) {
	return nil, nil
}
func (f *fakeCredentialRepo) UpdateCertification(_ context.Context, _ *model.Certification) error {
	return nil
}
func (f *fakeCredentialRepo) ListExpiring(_ context.Context, _ time.Time) ([]*model.ExpiringCredential, error) {
	return nil, nil
}
func (f *fakeCredentialRepo) MarkExpired(_ context.Context, _ time.Time) ([]*model.ExpiringCredential, error) {
	return nil, nil
}

type fakeAuditRepo struct{}

func (f *fakeAuditRepo) Create(_ context.Context, _ *model.AuditLog) error { return nil }
func (f *fakeAuditRepo) List(_ context.Context, _ string, _ uuid.UUID) ([]*model.AuditLog, error) {
	return nil, nil
}
func (f *fakeAuditRepo) DeleteBefore(_ context.Context, _ time.Time) (int64, error) { return 0, nil }

func newTestService(t *testing.T) (*Service, *fakeWorkflowRepo, uuid.UUID, uuid.UUID) {
	t.Helper()
	repo := newFakeWorkflowRepo()
	creds := &fakeCredentialRepo{licenses: make(map[uuid.UUID]*model.License)}

	physicianID := uuid.New()
	license := &model.License{
		Base:           model.Base{ID: uuid.New()},
		PhysicianID:    physicianID,
		LicenseNumber:  "MD-12345",
		State:          "MA",
		ExpirationDate: time.Now().AddDate(0, 2, 0),
		Status:         string(model.CredentialStatusExpiringSoon),
	}
	creds.licenses[license.ID] = license

	svc := NewService(repo, creds, audit.NewService(&fakeAuditRepo{}))
	return svc, repo, physicianID, license.ID
}

func createTestWorkflow(t *testing.T, svc *Service, physicianID, licenseID uuid.UUID) *model.RenewalWorkflow {
	t.Helper()
	wf, err := svc.Create(context.Background(), &model.CreateWorkflowRequest{
		PhysicianID: physicianID,
		EntityType:  string(model.EntityTypeLicense),
		EntityID:    licenseID,
	})
	require.NoError(t, err)
	return wf
}

func completeRequiredItems(t *testing.T, svc *Service, repo *fakeWorkflowRepo, workflowID uuid.UUID) {
	t.Helper()
	items, err := repo.ListChecklist(context.Background(), workflowID)
	require.NoError(t, err)
	for _, item := range items {
		if item.Required {
			_, err := svc.ToggleChecklistItem(context.Background(), workflowID, item.ID, true)
			require.NoError(t, err)
		}
	}
}

func TestCreateSeedsDefaultChecklist(t *testing.T) {
	svc, repo, physicianID, licenseID := newTestService(t)

	wf := createTestWorkflow(t, svc, physicianID, licenseID)
	assert.Equal(t, model.WorkflowStatusNotStarted, wf.Status)

	items, err := repo.ListChecklist(context.Background(), wf.ID)
	require.NoError(t, err)
	assert.Len(t, items, len(defaultChecklists[model.EntityTypeLicense]))
}

func TestCreateRejectsSecondOpenWorkflow(t *testing.T) {
	svc, _, physicianID, licenseID := newTestService(t)
	createTestWorkflow(t, svc, physicianID, licenseID)

	_, err := svc.Create(context.Background(), &model.CreateWorkflowRequest{
		PhysicianID: physicianID,
		EntityType:  string(model.EntityTypeLicense),
		EntityID:    licenseID,
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrConflict, appErr.Code)
}

func TestCreateUnknownCredential(t *testing.T) {
	svc, _, physicianID, _ := newTestService(t)

	_, err := svc.Create(context.Background(), &model.CreateWorkflowRequest{
		PhysicianID: physicianID,
		EntityType:  string(model.EntityTypeLicense),
		EntityID:    uuid.New(),
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrNotFound, appErr.Code)
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		from    model.WorkflowStatus
		to      model.WorkflowStatus
		allowed bool
	}{
		{model.WorkflowStatusNotStarted, model.WorkflowStatusInProgress, true},
		{model.WorkflowStatusNotStarted, model.WorkflowStatusFiled, false},
		{model.WorkflowStatusNotStarted, model.WorkflowStatusApproved, false},
		{model.WorkflowStatusInProgress, model.WorkflowStatusFiled, true},
		{model.WorkflowStatusInProgress, model.WorkflowStatusUnderReview, false},
		{model.WorkflowStatusFiled, model.WorkflowStatusUnderReview, true},
		{model.WorkflowStatusFiled, model.WorkflowStatusApproved, false},
		{model.WorkflowStatusUnderReview, model.WorkflowStatusApproved, true},
		{model.WorkflowStatusUnderReview, model.WorkflowStatusRejected, true},
		{model.WorkflowStatusRejected, model.WorkflowStatusInProgress, true},
		{model.WorkflowStatusRejected, model.WorkflowStatusApproved, false},
		{model.WorkflowStatusApproved, model.WorkflowStatusInProgress, false},
		{model.WorkflowStatusApproved, model.WorkflowStatusExpired, false},
		{model.WorkflowStatusExpired, model.WorkflowStatusInProgress, false},
		{model.WorkflowStatusNotStarted, model.WorkflowStatusExpired, true},
		{model.WorkflowStatusInProgress, model.WorkflowStatusExpired, true},
		{model.WorkflowStatusFiled, model.WorkflowStatusExpired, true},
		{model.WorkflowStatusUnderReview, model.WorkflowStatusExpired, true},
		{model.WorkflowStatusRejected, model.WorkflowStatusExpired, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, model.CanTransition(tt.from, tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestTransitionInvalidEdgeRejected(t *testing.T) {
	svc, _, physicianID, licenseID := newTestService(t)
	wf := createTestWorkflow(t, svc, physicianID, licenseID)

	_, err := svc.Transition(context.Background(), wf.ID, &model.UpdateWorkflowStatusRequest{
		Status: string(model.WorkflowStatusApproved),
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrInvalidTransition, appErr.Code)
}

func TestTransitionStampsApplicationDate(t *testing.T) {
	svc, _, physicianID, licenseID := newTestService(t)
	wf := createTestWorkflow(t, svc, physicianID, licenseID)

	updated, err := svc.Transition(context.Background(), wf.ID, &model.UpdateWorkflowStatusRequest{
		Status: string(model.WorkflowStatusInProgress),
	})
	require.NoError(t, err)
	assert.Equal(t, model.WorkflowStatusInProgress, updated.Status)
	require.NotNil(t, updated.ApplicationDate)
	assert.WithinDuration(t, time.Now(), *updated.ApplicationDate, time.Minute)
}

func TestFilingGatedOnRequiredChecklist(t *testing.T) {
	svc, repo, physicianID, licenseID := newTestService(t)
	wf := createTestWorkflow(t, svc, physicianID, licenseID)

	_, err := svc.Transition(context.Background(), wf.ID, &model.UpdateWorkflowStatusRequest{
		Status: string(model.WorkflowStatusInProgress),
	})
	require.NoError(t, err)

	// Required default items are incomplete: filing must be refused.
	_, err = svc.Transition(context.Background(), wf.ID, &model.UpdateWorkflowStatusRequest{
		Status: string(model.WorkflowStatusFiled),
	})
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, apperrors.ErrBadRequest, appErr.Code)

	completeRequiredItems(t, svc, repo, wf.ID)

	filed, err := svc.Transition(context.Background(), wf.ID, &model.UpdateWorkflowStatusRequest{
		Status: string(model.WorkflowStatusFiled),
	})
	require.NoError(t, err)
	require.NotNil(t, filed.FiledDate)
}

func TestRejectionRequiresReason(t *testing.T) {
	svc, repo, physicianID, licenseID := newTestService(t)
	wf := createTestWorkflow(t, svc, physicianID, licenseID)

	advance := func(status model.WorkflowStatus, reason string) (*model.RenewalWorkflow, error) {
		return svc.Transition(context.Background(), wf.ID, &model.UpdateWorkflowStatusRequest{
			Status:          string(status),
			RejectionReason: reason,
		})
	}

	_, err := advance(model.WorkflowStatusInProgress, "")
	require.NoError(t, err)
	completeRequiredItems(t, svc, repo, wf.ID)
	_, err = advance(model.WorkflowStatusFiled, "")
	require.NoError(t, err)
	_, err = advance(model.WorkflowStatusUnderReview, "")
	require.NoError(t, err)

	_, err = advance(model.WorkflowStatusRejected, "")
	require.Error(t, err)

	rejected, err := advance(model.WorkflowStatusRejected, "incomplete CME documentation")
	require.NoError(t, err)
	assert.Equal(t, "incomplete CME documentation", rejected.RejectionReason)
	require.NotNil(t, rejected.RejectionDate)

	// Re-entry clears the rejection state.
	reopened, err := advance(model.WorkflowStatusInProgress, "")
	require.NoError(t, err)
	assert.Empty(t, reopened.RejectionReason)
	assert.Nil(t, reopened.RejectionDate)
}

func TestApprovalStampsDateAndProgress(t *testing.T) {
	svc, repo, physicianID, licenseID := newTestService(t)
	wf := createTestWorkflow(t, svc, physicianID, licenseID)

	for _, status := range []model.WorkflowStatus{
		model.WorkflowStatusInProgress,
	} {
		_, err := svc.Transition(context.Background(), wf.ID, &model.UpdateWorkflowStatusRequest{Status: string(status)})
		require.NoError(t, err)
	}
	completeRequiredItems(t, svc, repo, wf.ID)
	for _, status := range []model.WorkflowStatus{
		model.WorkflowStatusFiled,
		model.WorkflowStatusUnderReview,
		model.WorkflowStatusApproved,
	} {
		_, err := svc.Transition(context.Background(), wf.ID, &model.UpdateWorkflowStatusRequest{Status: string(status)})
		require.NoError(t, err)
	}

	detail, err := svc.Get(context.Background(), wf.ID)
	require.NoError(t, err)
	assert.Equal(t, model.WorkflowStatusApproved, detail.Status)
	require.NotNil(t, detail.ApprovalDate)
	assert.Equal(t, 100, detail.ProgressPercentage)
	assert.Len(t, detail.Timeline, 4)
}

func TestUpdateProgress(t *testing.T) {
	svc, _, physicianID, licenseID := newTestService(t)
	wf := createTestWorkflow(t, svc, physicianID, licenseID)

	pct := 40
	action := "awaiting CME transcript"
	updated, err := svc.UpdateProgress(context.Background(), wf.ID, &model.UpdateWorkflowProgressRequest{
		ProgressPercentage: &pct,
		NextActionRequired: &action,
	})
	require.NoError(t, err)
	assert.Equal(t, 40, updated.ProgressPercentage)
	assert.Equal(t, action, updated.NextActionRequired)
}

func TestToggleChecklistItemIdempotent(t *testing.T) {
	svc, repo, physicianID, licenseID := newTestService(t)
	wf := createTestWorkflow(t, svc, physicianID, licenseID)

	items, err := repo.ListChecklist(context.Background(), wf.ID)
	require.NoError(t, err)
	require.NotEmpty(t, items)

	first, err := svc.ToggleChecklistItem(context.Background(), wf.ID, items[0].ID, true)
	require.NoError(t, err)
	require.NotNil(t, first.CompletedAt)

	again, err := svc.ToggleChecklistItem(context.Background(), wf.ID, items[0].ID, true)
	require.NoError(t, err)
	assert.Equal(t, first.CompletedAt, again.CompletedAt)

	cleared, err := svc.ToggleChecklistItem(context.Background(), wf.ID, items[0].ID, false)
	require.NoError(t, err)
	assert.False(t, cleared.Completed)
	assert.Nil(t, cleared.CompletedAt)
}

func TestAddChecklistItemAppendsPosition(t *testing.T) {
	svc, repo, physicianID, licenseID := newTestService(t)
	wf := createTestWorkflow(t, svc, physicianID, licenseID)

	item, err := svc.AddChecklistItem(context.Background(), wf.ID, &model.CreateChecklistItemRequest{
		Task:     "Notify hospital credentialing office",
		Required: false,
	})
	require.NoError(t, err)

	items, err := repo.ListChecklist(context.Background(), wf.ID)
	require.NoError(t, err)
	assert.Equal(t, len(items), item.Position)
}
