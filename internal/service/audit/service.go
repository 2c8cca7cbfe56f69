package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/repository"
)

// Service records who changed what. Audit failures are logged, never
// propagated: losing an audit row must not fail the request that caused it.
type Service struct {
	repo repository.AuditRepository
}

func NewService(repo repository.AuditRepository) *Service {
	return &Service{repo: repo}
}

type LogOptions struct {
	Changes  interface{}
	Metadata map[string]interface{}
}

func (s *Service) Log(ctx context.Context, userID uuid.UUID, action, entityType string, entityID uuid.UUID, opts *LogOptions) {
	entry := &model.AuditLog{
		ID:         uuid.New(),
		UserID:     userID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
	}

	if opts != nil {
		if opts.Changes != nil {
			if data, err := json.Marshal(opts.Changes); err == nil {
				entry.Changes = data
			}
		}
		if opts.Metadata != nil {
			if data, err := json.Marshal(opts.Metadata); err == nil {
				entry.Metadata = data
			}
		}
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		log.Error().Err(err).
			Str("action", action).
			Str("entity_type", entityType).
			Str("entity_id", entityID.String()).
			Msg("failed to write audit log")
	}
}

func (s *Service) History(ctx context.Context, entityType string, entityID uuid.UUID) ([]*model.AuditLog, error) {
	return s.repo.List(ctx, entityType, entityID)
}

// UserIDFromContext extracts the authenticated user set by the auth
// middleware, or uuid.Nil for unauthenticated paths.
func UserIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if userID, ok := ctx.Value(ContextUserID).(uuid.UUID); ok {
		return userID
	}
	return uuid.Nil
}

type contextKey string

// ContextUserID keys the authenticated user ID in request contexts.
const ContextUserID contextKey = "user_id"
