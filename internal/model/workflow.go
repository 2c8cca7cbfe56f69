package model

import (
	"time"

	"github.com/google/uuid"
)

type WorkflowStatus string

const (
	WorkflowStatusNotStarted  WorkflowStatus = "not_started"
	WorkflowStatusInProgress  WorkflowStatus = "in_progress"
	WorkflowStatusFiled       WorkflowStatus = "filed"
	WorkflowStatusUnderReview WorkflowStatus = "under_review"
	WorkflowStatusApproved    WorkflowStatus = "approved"
	WorkflowStatusRejected    WorkflowStatus = "rejected"
	WorkflowStatusExpired     WorkflowStatus = "expired"
)

var WorkflowStatuses = []string{
	string(WorkflowStatusNotStarted),
	string(WorkflowStatusInProgress),
	string(WorkflowStatusFiled),
	string(WorkflowStatusUnderReview),
	string(WorkflowStatusApproved),
	string(WorkflowStatusRejected),
	string(WorkflowStatusExpired),
}

// workflowTransitions is the allowed edge set. Approved and expired are
// terminal; rejected re-enters in_progress; expired is reachable from any
// non-terminal, non-approved state.
var workflowTransitions = map[WorkflowStatus][]WorkflowStatus{
	WorkflowStatusNotStarted:  {WorkflowStatusInProgress, WorkflowStatusExpired},
	WorkflowStatusInProgress:  {WorkflowStatusFiled, WorkflowStatusExpired},
	WorkflowStatusFiled:       {WorkflowStatusUnderReview, WorkflowStatusExpired},
	WorkflowStatusUnderReview: {WorkflowStatusApproved, WorkflowStatusRejected, WorkflowStatusExpired},
	WorkflowStatusRejected:    {WorkflowStatusInProgress, WorkflowStatusExpired},
}

// CanTransition reports whether moving from one workflow status to another
// is allowed.
func CanTransition(from, to WorkflowStatus) bool {
	for _, allowed := range workflowTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a workflow status admits no further transitions.
func (s WorkflowStatus) IsTerminal() bool {
	return s == WorkflowStatusApproved || s == WorkflowStatusExpired
}

// RenewalWorkflow tracks the renewal of one credential instance.
type RenewalWorkflow struct {
	Base
	PhysicianID        uuid.UUID      `db:"physician_id" json:"physician_id"`
	EntityType         EntityType     `db:"entity_type" json:"entity_type"`
	EntityID           uuid.UUID      `db:"entity_id" json:"entity_id"`
	Status             WorkflowStatus `db:"status" json:"status"`
	ApplicationDate    *time.Time     `db:"application_date" json:"application_date,omitempty"`
	FiledDate          *time.Time     `db:"filed_date" json:"filed_date,omitempty"`
	ApprovalDate       *time.Time     `db:"approval_date" json:"approval_date,omitempty"`
	RejectionDate      *time.Time     `db:"rejection_date" json:"rejection_date,omitempty"`
	RejectionReason    string         `db:"rejection_reason" json:"rejection_reason,omitempty"`
	NextActionRequired string         `db:"next_action_required" json:"next_action_required,omitempty"`
	NextActionDueDate  *time.Time     `db:"next_action_due_date" json:"next_action_due_date,omitempty"`
	ProgressPercentage int            `db:"progress_percentage" json:"progress_percentage"`
}

// ChecklistItem belongs to a renewal workflow. Required items gate the
// in_progress -> filed transition.
type ChecklistItem struct {
	Base
	WorkflowID  uuid.UUID  `db:"workflow_id" json:"workflow_id"`
	Position    int        `db:"position" json:"position"`
	Task        string     `db:"task" json:"task"`
	Required    bool       `db:"required" json:"required"`
	Completed   bool       `db:"completed" json:"completed"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	DueDate     *time.Time `db:"due_date" json:"due_date,omitempty"`
}

// TimelineEntry records one status change for the workflow detail view.
type TimelineEntry struct {
	ID         uuid.UUID      `db:"id" json:"id"`
	WorkflowID uuid.UUID      `db:"workflow_id" json:"workflow_id"`
	FromStatus WorkflowStatus `db:"from_status" json:"from_status"`
	ToStatus   WorkflowStatus `db:"to_status" json:"to_status"`
	Note       string         `db:"note" json:"note,omitempty"`
	ActorID    uuid.UUID      `db:"actor_id" json:"actor_id"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
}

// WorkflowDetail is the workflow with its checklist and timeline attached.
type WorkflowDetail struct {
	RenewalWorkflow
	Checklist []*ChecklistItem `json:"checklist"`
	Timeline  []*TimelineEntry `json:"timeline"`
}

type CreateWorkflowRequest struct {
	PhysicianID uuid.UUID `json:"physician_id" binding:"required"`
	EntityType  string    `json:"entity_type" binding:"required"`
	EntityID    uuid.UUID `json:"entity_id" binding:"required"`
}

// UpdateWorkflowStatusRequest carries a target status. RejectionReason is
// required when the target is rejected and ignored otherwise.
type UpdateWorkflowStatusRequest struct {
	Status          string `json:"status" binding:"required"`
	RejectionReason string `json:"rejection_reason"`
}

type UpdateWorkflowProgressRequest struct {
	ProgressPercentage *int    `json:"progress_percentage" binding:"required,min=0,max=100"`
	NextActionRequired *string `json:"next_action_required"`
}

type CreateChecklistItemRequest struct {
	Task     string     `json:"task" binding:"required"`
	Required bool       `json:"required"`
	DueDate  *time.Time `json:"due_date"`
}

type WorkflowFilters struct {
	// PhysicianID is parsed from the query by the handler; gin's form
	// binding cannot populate a UUID.
	PhysicianID uuid.UUID `form:"-"`
	EntityType  string    `form:"entity_type"`
	Status      string    `form:"status"`
	Pagination
}
