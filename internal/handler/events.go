package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/internal/repository"
)

// EmitEvent writes a domain event to the outbox for the processor to
// publish. The request has already succeeded at this point, so a failed
// write is logged rather than surfaced to the client.
func EmitEvent(ctx context.Context, repo repository.OutboxRepository, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to marshal outbox payload")
		return
	}

	event := &model.OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   data,
		Status:    string(model.OutboxStatusPending),
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := repo.Create(ctx, event); err != nil {
		log.Error().Err(err).Str("event_type", eventType).Msg("failed to write outbox event")
	}
}
