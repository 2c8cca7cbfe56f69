package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/repository"
)

type workflowRepository struct {
	db *sqlx.DB
}

func NewWorkflowRepository(db *sqlx.DB) repository.WorkflowRepository {
	return &workflowRepository{db: db}
}

func (r *workflowRepository) Create(ctx context.Context, w *model.RenewalWorkflow) error {
	query := `
		INSERT INTO renewal_workflows (
			id, physician_id, entity_type, entity_id, status, application_date,
			filed_date, approval_date, rejection_date, rejection_reason,
			next_action_required, next_action_due_date, progress_percentage,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	w.CreatedAt = time.Now()
	w.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		w.ID, w.PhysicianID, w.EntityType, w.EntityID, w.Status, w.ApplicationDate,
		w.FiledDate, w.ApprovalDate, w.RejectionDate, w.RejectionReason,
		w.NextActionRequired, w.NextActionDueDate, w.ProgressPercentage,
		w.CreatedAt, w.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create renewal workflow: %w", err)
	}
	return nil
}

func (r *workflowRepository) Get(ctx context.Context, id uuid.UUID) (*model.RenewalWorkflow, error) {
	var w model.RenewalWorkflow
	err := r.db.GetContext(ctx, &w, `SELECT * FROM renewal_workflows WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get renewal workflow: %w", err)
	}
	return &w, nil
}

func (r *workflowRepository) GetOpenByEntity(ctx context.Context, entityType model.EntityType, entityID uuid.UUID) (*model.RenewalWorkflow, error) {
	query := `
		SELECT * FROM renewal_workflows
		WHERE entity_type = $1 AND entity_id = $2 AND status NOT IN ('approved', 'expired')
		ORDER BY created_at DESC
		LIMIT 1
	`
	var w model.RenewalWorkflow
	err := r.db.GetContext(ctx, &w, query, entityType, entityID)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *workflowRepository) Update(ctx context.Context, w *model.RenewalWorkflow) error {
	query := `
		UPDATE renewal_workflows SET
			status = $1, application_date = $2, filed_date = $3, approval_date = $4,
			rejection_date = $5, rejection_reason = $6, next_action_required = $7,
			next_action_due_date = $8, progress_percentage = $9, updated_at = $10
		WHERE id = $11
	`
	w.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		w.Status, w.ApplicationDate, w.FiledDate, w.ApprovalDate,
		w.RejectionDate, w.RejectionReason, w.NextActionRequired,
		w.NextActionDueDate, w.ProgressPercentage, w.UpdatedAt, w.ID)
	if err != nil {
		return fmt.Errorf("failed to update renewal workflow: %w", err)
	}
	return nil
}

func (r *workflowRepository) List(ctx context.Context, filters *model.WorkflowFilters) ([]*model.RenewalWorkflow, error) {
	query := `SELECT * FROM renewal_workflows WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if filters.PhysicianID != uuid.Nil {
		query += fmt.Sprintf(" AND physician_id = $%d", idx)
		args = append(args, filters.PhysicianID)
		idx++
	}
	if filters.EntityType != "" {
		query += fmt.Sprintf(" AND entity_type = $%d", idx)
		args = append(args, filters.EntityType)
		idx++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, filters.Status)
		idx++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, filters.Limit(), filters.Offset())

	var workflows []*model.RenewalWorkflow
	err := r.db.SelectContext(ctx, &workflows, query, args...)
	return workflows, err
}

func (r *workflowRepository) CreateChecklistItem(ctx context.Context, item *model.ChecklistItem) error {
	query := `
		INSERT INTO checklist_items (id, workflow_id, position, task, required, completed, completed_at, due_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	item.CreatedAt = time.Now()
	item.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		item.ID, item.WorkflowID, item.Position, item.Task, item.Required,
		item.Completed, item.CompletedAt, item.DueDate, item.CreatedAt, item.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create checklist item: %w", err)
	}
	return nil
}

func (r *workflowRepository) GetChecklistItem(ctx context.Context, id uuid.UUID) (*model.ChecklistItem, error) {
	var item model.ChecklistItem
	err := r.db.GetContext(ctx, &item, `SELECT * FROM checklist_items WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get checklist item: %w", err)
	}
	return &item, nil
}

func (r *workflowRepository) ListChecklist(ctx context.Context, workflowID uuid.UUID) ([]*model.ChecklistItem, error) {
	var items []*model.ChecklistItem
	err := r.db.SelectContext(ctx, &items,
		`SELECT * FROM checklist_items WHERE workflow_id = $1 ORDER BY position`, workflowID)
	return items, err
}

func (r *workflowRepository) UpdateChecklistItem(ctx context.Context, item *model.ChecklistItem) error {
	query := `
		UPDATE checklist_items SET task = $1, required = $2, completed = $3, completed_at = $4, due_date = $5, updated_at = $6
		WHERE id = $7
	`
	item.UpdatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		item.Task, item.Required, item.Completed, item.CompletedAt, item.DueDate, item.UpdatedAt, item.ID)
	return err
}

func (r *workflowRepository) CountIncompleteRequired(ctx context.Context, workflowID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM checklist_items WHERE workflow_id = $1 AND required AND NOT completed`, workflowID)
	return count, err
}

func (r *workflowRepository) AppendTimeline(ctx context.Context, entry *model.TimelineEntry) error {
	query := `
		INSERT INTO workflow_timeline (id, workflow_id, from_status, to_status, note, actor_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	entry.CreatedAt = time.Now()
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.WorkflowID, entry.FromStatus, entry.ToStatus, entry.Note, entry.ActorID, entry.CreatedAt)
	return err
}

func (r *workflowRepository) ListTimeline(ctx context.Context, workflowID uuid.UUID) ([]*model.TimelineEntry, error) {
	var entries []*model.TimelineEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT * FROM workflow_timeline WHERE workflow_id = $1 ORDER BY created_at`, workflowID)
	return entries, err
}
