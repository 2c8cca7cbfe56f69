package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/caremesh/credentialing-api/pkg/errors"

	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/repository"
	"github.com/caremesh/credentialing-api/internal/service/audit"
)

// Service owns the renewal workflow state machine. Transitions go through
// Transition, which enforces the edge table, stamps milestone dates, appends
// a timeline entry, and resets rejection state on re-entry.
type Service struct {
	repo           repository.WorkflowRepository
	credentialRepo repository.CredentialRepository
	auditor        *audit.Service
}

func NewService(repo repository.WorkflowRepository, credentialRepo repository.CredentialRepository, auditor *audit.Service) *Service {
	return &Service{repo: repo, credentialRepo: credentialRepo, auditor: auditor}
}

// defaultChecklists seeds a new workflow per credential kind. Required items
// gate filing.
var defaultChecklists = map[model.EntityType][]struct {
	Task     string
	Required bool
}{
	model.EntityTypeLicense: {
		{"Complete state renewal application", true},
		{"Verify CME credits meet state requirement", true},
		{"Pay renewal fee", true},
		{"Upload renewed license copy", false},
	},
	model.EntityTypeDEA: {
		{"Complete DEA Form 224a renewal", true},
		{"Confirm MATE training attestation", true},
		{"Pay DEA renewal fee", true},
		{"Upload renewed registration certificate", false},
	},
	model.EntityTypeCSR: {
		{"Complete state controlled substance renewal", true},
		{"Pay CSR renewal fee", true},
		{"Upload renewed CSR certificate", false},
	},
	model.EntityTypeCertification: {
		{"Verify MOC requirements met", true},
		{"Submit recertification application", true},
		{"Schedule recertification exam if required", false},
		{"Upload renewed board certificate", false},
	},
}

func (s *Service) credentialExists(ctx context.Context, entityType model.EntityType, entityID uuid.UUID) error {
	var err error
	switch entityType {
	case model.EntityTypeLicense:
		_, err = s.credentialRepo.GetLicense(ctx, entityID)
	case model.EntityTypeDEA:
		_, err = s.credentialRepo.GetDEA(ctx, entityID)
	case model.EntityTypeCSR:
		_, err = s.credentialRepo.GetCSR(ctx, entityID)
	case model.EntityTypeCertification:
		_, err = s.credentialRepo.GetCertification(ctx, entityID)
	default:
		return apperrors.BadRequest(fmt.Sprintf("unknown entity type: %s", entityType), nil)
	}
	if err != nil {
		return apperrors.NotFound("credential", err)
	}
	return nil
}

// Create opens a workflow for a credential instance. At most one open
// workflow may exist per credential.
func (s *Service) Create(ctx context.Context, req *model.CreateWorkflowRequest) (*model.RenewalWorkflow, error) {
	entityType := model.EntityType(req.EntityType)
	if err := s.credentialExists(ctx, entityType, req.EntityID); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetOpenByEntity(ctx, entityType, req.EntityID); err == nil {
		return nil, apperrors.NewConflict("an open renewal workflow already exists for this credential", nil)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check open workflows: %w", err)
	}

	wf := &model.RenewalWorkflow{
		Base:        model.Base{ID: uuid.New()},
		PhysicianID: req.PhysicianID,
		EntityType:  entityType,
		EntityID:    req.EntityID,
		Status:      model.WorkflowStatusNotStarted,
	}
	if err := s.repo.Create(ctx, wf); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	for i, item := range defaultChecklists[entityType] {
		checklist := &model.ChecklistItem{
			Base:       model.Base{ID: uuid.New()},
			WorkflowID: wf.ID,
			Position:   i + 1,
			Task:       item.Task,
			Required:   item.Required,
		}
		if err := s.repo.CreateChecklistItem(ctx, checklist); err != nil {
			return nil, fmt.Errorf("failed to seed checklist: %w", err)
		}
	}

	s.auditor.Log(ctx, audit.UserIDFromContext(ctx), model.AuditActionCreate, model.AuditEntityWorkflow, wf.ID, &audit.LogOptions{Changes: wf})
	return wf, nil
}

// Get returns the workflow with checklist and timeline attached.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.WorkflowDetail, error) {
	wf, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NotFound("workflow", err)
	}
	checklist, err := s.repo.ListChecklist(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list checklist: %w", err)
	}
	timeline, err := s.repo.ListTimeline(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list timeline: %w", err)
	}
	return &model.WorkflowDetail{RenewalWorkflow: *wf, Checklist: checklist, Timeline: timeline}, nil
}

func (s *Service) List(ctx context.Context, filters *model.WorkflowFilters) ([]*model.RenewalWorkflow, error) {
	workflows, err := s.repo.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	return workflows, nil
}

// Transition moves the workflow to a new status. Disallowed edges are
// rejected, rejected requires a reason, filing is gated on required checklist
// items, and milestone dates are stamped on entry.
func (s *Service) Transition(ctx context.Context, id uuid.UUID, req *model.UpdateWorkflowStatusRequest) (*model.RenewalWorkflow, error) {
	target := model.WorkflowStatus(req.Status)
	wf, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NotFound("workflow", err)
	}

	if !model.CanTransition(wf.Status, target) {
		return nil, apperrors.NewInvalidTransition(string(wf.Status), string(target))
	}

	if target == model.WorkflowStatusRejected && req.RejectionReason == "" {
		return nil, apperrors.BadRequest("rejection_reason is required when rejecting a workflow", nil)
	}

	if wf.Status == model.WorkflowStatusInProgress && target == model.WorkflowStatusFiled {
		incomplete, err := s.repo.CountIncompleteRequired(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to count checklist items: %w", err)
		}
		if incomplete > 0 {
			return nil, apperrors.BadRequest(fmt.Sprintf("cannot file: %d required checklist items incomplete", incomplete), nil)
		}
	}

	from := wf.Status
	now := time.Now()
	wf.Status = target

	switch target {
	case model.WorkflowStatusInProgress:
		if from == model.WorkflowStatusNotStarted {
			wf.ApplicationDate = &now
		}
		// Re-entry after rejection clears the rejection state.
		wf.RejectionDate = nil
		wf.RejectionReason = ""
	case model.WorkflowStatusFiled:
		wf.FiledDate = &now
	case model.WorkflowStatusApproved:
		wf.ApprovalDate = &now
		wf.ProgressPercentage = 100
	case model.WorkflowStatusRejected:
		wf.RejectionDate = &now
		wf.RejectionReason = req.RejectionReason
	}

	if err := s.repo.Update(ctx, wf); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	entry := &model.TimelineEntry{
		ID:         uuid.New(),
		WorkflowID: id,
		FromStatus: from,
		ToStatus:   target,
		Note:       req.RejectionReason,
		ActorID:    audit.UserIDFromContext(ctx),
		CreatedAt:  now,
	}
	if err := s.repo.AppendTimeline(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to append timeline: %w", err)
	}

	s.auditor.Log(ctx, audit.UserIDFromContext(ctx), model.AuditActionUpdate, model.AuditEntityWorkflow, id, &audit.LogOptions{
		Changes: map[string]interface{}{"from": from, "to": target},
	})
	return wf, nil
}

// UpdateProgress sets the independently-tracked progress fields without
// touching the status machine.
func (s *Service) UpdateProgress(ctx context.Context, id uuid.UUID, req *model.UpdateWorkflowProgressRequest) (*model.RenewalWorkflow, error) {
	wf, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, apperrors.NotFound("workflow", err)
	}
	if wf.Status.IsTerminal() {
		return nil, apperrors.BadRequest(fmt.Sprintf("cannot update progress of a %s workflow", wf.Status), nil)
	}

	if req.ProgressPercentage != nil {
		wf.ProgressPercentage = *req.ProgressPercentage
	}
	if req.NextActionRequired != nil {
		wf.NextActionRequired = *req.NextActionRequired
	}

	if err := s.repo.Update(ctx, wf); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}
	return wf, nil
}

// AddChecklistItem appends a task after the existing items.
func (s *Service) AddChecklistItem(ctx context.Context, workflowID uuid.UUID, req *model.CreateChecklistItemRequest) (*model.ChecklistItem, error) {
	wf, err := s.repo.Get(ctx, workflowID)
	if err != nil {
		return nil, apperrors.NotFound("workflow", err)
	}
	if wf.Status.IsTerminal() {
		return nil, apperrors.BadRequest(fmt.Sprintf("cannot modify checklist of a %s workflow", wf.Status), nil)
	}

	existing, err := s.repo.ListChecklist(ctx, workflowID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checklist: %w", err)
	}

	item := &model.ChecklistItem{
		Base:       model.Base{ID: uuid.New()},
		WorkflowID: workflowID,
		Position:   len(existing) + 1,
		Task:       req.Task,
		Required:   req.Required,
		DueDate:    req.DueDate,
	}
	if err := s.repo.CreateChecklistItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create checklist item: %w", err)
	}
	return item, nil
}

// ToggleChecklistItem flips completion. Toggling is idempotent in the sense
// that completing a completed item keeps it completed with its original
// timestamp.
func (s *Service) ToggleChecklistItem(ctx context.Context, workflowID, itemID uuid.UUID, completed bool) (*model.ChecklistItem, error) {
	item, err := s.repo.GetChecklistItem(ctx, itemID)
	if err != nil {
		return nil, apperrors.NotFound("checklist item", err)
	}
	if item.WorkflowID != workflowID {
		return nil, apperrors.NotFound("checklist item", nil)
	}

	if item.Completed == completed {
		return item, nil
	}

	item.Completed = completed
	if completed {
		now := time.Now()
		item.CompletedAt = &now
	} else {
		item.CompletedAt = nil
	}

	if err := s.repo.UpdateChecklistItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to update checklist item: %w", err)
	}
	return item, nil
}
