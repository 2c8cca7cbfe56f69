package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/caremesh/credentialing-api/internal/repository"
)

// Notifications themselves are derived from expiring credentials; only the
// per-user read markers persist.
type notificationReadRepository struct {
	db *sqlx.DB
}

func NewNotificationReadRepository(db *sqlx.DB) repository.NotificationReadRepository {
	return &notificationReadRepository{db: db}
}

func (r *notificationReadRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	query := `
		INSERT INTO notification_reads (user_id, notification_id, read_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, notification_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, userID, notificationID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

func (r *notificationReadRepository) MarkAllRead(ctx context.Context, userID uuid.UUID, notificationIDs []uuid.UUID) error {
	if len(notificationIDs) == 0 {
		return nil
	}
	ids := make([]string, len(notificationIDs))
	for i, id := range notificationIDs {
		ids[i] = id.String()
	}
	query := `
		INSERT INTO notification_reads (user_id, notification_id, read_at)
		SELECT $1, unnest($2::uuid[]), $3
		ON CONFLICT (user_id, notification_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query, userID, pq.Array(ids), time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}

func (r *notificationReadRepository) ListRead(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]bool, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids,
		`SELECT notification_id FROM notification_reads WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list read notifications: %w", err)
	}
	read := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		read[id] = true
	}
	return read, nil
}
