package model

import (
	"time"

	"github.com/google/uuid"
)

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

type SentStatus string

const (
	SentStatusPending SentStatus = "pending"
	SentStatusSent    SentStatus = "sent"
	SentStatusFailed  SentStatus = "failed"
	SentStatusRead    SentStatus = "read"
)

// Notification is derived from upcoming credential expirations; it is not
// persisted as a row of its own. The ID is a UUIDv5 of the underlying entity
// and expiration date, so the same expiration always yields the same
// notification and read markers survive re-generation.
type Notification struct {
	ID             uuid.UUID  `json:"id"`
	PhysicianID    uuid.UUID  `json:"physician_id"`
	PhysicianName  string     `json:"physician_name"`
	EntityType     EntityType `json:"entity_type"`
	EntityID       uuid.UUID  `json:"entity_id"`
	Message        string     `json:"message"`
	ExpirationDate time.Time  `json:"expiration_date"`
	DaysUntil      int        `json:"days_until_expiration"`
	Severity       Severity   `json:"severity"`
	Read           bool       `json:"read"`
	SentStatus     SentStatus `json:"sent_status"`
}

// notificationNamespace scopes the deterministic notification IDs to this
// application, keeping them disjoint from the RFC 4122 well-known
// namespaces.
var notificationNamespace = uuid.MustParse("e4b1c6d2-7a93-4f58-9db0-31c52f8a6e47")

// NotificationID derives a stable ID for the expiration of one credential
// instance. Renewing the credential changes the expiration date and hence
// produces a fresh, unread notification.
func NotificationID(entityType EntityType, entityID uuid.UUID, expiration time.Time) uuid.UUID {
	name := string(entityType) + ":" + entityID.String() + ":" + expiration.Format("2006-01-02")
	return uuid.NewSHA1(notificationNamespace, []byte(name))
}

type NotificationFilters struct {
	// WindowDays is the lookahead window; defaults to 90, capped at 365.
	WindowDays int  `form:"window"`
	UnreadOnly bool `form:"unread_only"`
}
