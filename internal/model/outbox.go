package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// Event types written by the handlers and published by the outbox processor.
const (
	EventPhysicianCreate      = "PHYSICIAN_CREATE"
	EventPhysicianUpdate      = "PHYSICIAN_UPDATE"
	EventPhysicianDelete      = "PHYSICIAN_DELETE"
	EventCredentialCreate     = "CREDENTIAL_CREATE"
	EventCredentialRenew      = "CREDENTIAL_RENEW"
	EventWorkflowStatusChange = "WORKFLOW_STATUS_CHANGE"
	EventDocumentUpload       = "DOCUMENT_UPLOAD"
)

type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       string          `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	RetryAt      *time.Time      `db:"retry_at" json:"retry_at,omitempty"`
}
