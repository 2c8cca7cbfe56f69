package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caremesh/credentialing-api/internal/model"
	"github.com/caremesh/credentialing-api/pkg/logger"
	"github.com/caremesh/credentialing-api/pkg/messaging"
	"github.com/caremesh/credentialing-api/pkg/metrics"
)

type fakeOutboxRepo struct {
	events map[uuid.UUID]*model.OutboxEvent
}

func newFakeOutboxRepo() *fakeOutboxRepo {
	return &fakeOutboxRepo{events: make(map[uuid.UUID]*model.OutboxEvent)}
}

func (f *fakeOutboxRepo) Create(_ context.Context, event *model.OutboxEvent) error {
	event.ID = uuid.New()
	event.Status = string(model.OutboxStatusPending)
	event.CreatedAt = time.Now()
	f.events[event.ID] = event
	return nil
}

func (f *fakeOutboxRepo) GetPendingEvents(_ context.Context, limit int) ([]*model.OutboxEvent, error) {
	var out []*model.OutboxEvent
	now := time.Now()
	for _, e := range f.events {
		if len(out) >= limit {
			break
		}
		switch e.Status {
		case string(model.OutboxStatusPending):
			out = append(out, e)
		case string(model.OutboxStatusFailed):
			if e.RetryAt != nil && !e.RetryAt.After(now) {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func (f *fakeOutboxRepo) UpdateStatus(_ context.Context, id uuid.UUID, status model.OutboxStatus, errMsg *string, retryAt *time.Time) error {
	e, ok := f.events[id]
	if !ok {
		return errors.New("event not found")
	}
	e.Status = string(status)
	e.ErrorMessage = errMsg
	e.RetryAt = retryAt
	if retryAt != nil {
		e.RetryCount++
	}
	if status == model.OutboxStatusProcessed {
		now := time.Now()
		e.ProcessedAt = &now
	}
	return nil
}

func (f *fakeOutboxRepo) DeleteProcessedBefore(_ context.Context, before time.Time) (int64, error) {
	var n int64
	for id, e := range f.events {
		if e.Status == string(model.OutboxStatusProcessed) && e.ProcessedAt != nil && e.ProcessedAt.Before(before) {
			delete(f.events, id)
			n++
		}
	}
	return n, nil
}

type published struct {
	channel string
	body    []byte
}

// recordingBroker marshals like RedisBroker so tests see the exact bytes
// that would hit the wire.
type recordingBroker struct {
	messages []published
	failures int
}

func (b *recordingBroker) Publish(_ context.Context, channel string, message interface{}) error {
	if b.failures > 0 {
		b.failures--
		return errors.New("broker unavailable")
	}
	body, err := json.Marshal(message)
	if err != nil {
		return err
	}
	b.messages = append(b.messages, published{channel: channel, body: body})
	return nil
}

func (b *recordingBroker) Subscribe(_ context.Context, _ string) (<-chan []byte, error) {
	return nil, errors.New("not implemented")
}

func (b *recordingBroker) Close() error { return nil }

var _ messaging.Broker = (*recordingBroker)(nil)

var processorMetrics = metrics.NewMetrics("credentialing_test", "outbox")

func newProcessor(repo *fakeOutboxRepo, broker messaging.Broker) *OutboxProcessor {
	return NewOutboxProcessor(repo, broker, OutboxProcessorConfig{
		BatchSize:     10,
		PollInterval:  time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, logger.NewLogger(nil), processorMetrics)
}

func pendingEvent(repo *fakeOutboxRepo, eventType, payload string) *model.OutboxEvent {
	event := &model.OutboxEvent{
		EventType: eventType,
		Payload:   json.RawMessage(payload),
	}
	repo.Create(context.Background(), event)
	return event
}

func TestProcessEventsPublishesRawPayload(t *testing.T) {
	repo := newFakeOutboxRepo()
	broker := &recordingBroker{}
	payload := `{"id":"42","npi":"1234567890"}`
	event := pendingEvent(repo, model.EventPhysicianCreate, payload)

	processor := newProcessor(repo, broker)
	require.NoError(t, processor.processEvents(context.Background()))

	require.Len(t, broker.messages, 1)
	assert.JSONEq(t, payload, string(broker.messages[0].body),
		"payload must reach the wire as the original JSON document")
	assert.Equal(t, string(model.OutboxStatusProcessed), event.Status)
	assert.NotNil(t, event.ProcessedAt)
}

func TestProcessEventsRoutesByEventType(t *testing.T) {
	repo := newFakeOutboxRepo()
	broker := &recordingBroker{}
	pendingEvent(repo, model.EventWorkflowStatusChange, `{"status":"filed"}`)

	processor := newProcessor(repo, broker)
	require.NoError(t, processor.processEvents(context.Background()))

	require.Len(t, broker.messages, 1)
	assert.Equal(t, messaging.ChannelWorkflowEvents, broker.messages[0].channel)
}

func TestFailedEventRetriedAfterBackoff(t *testing.T) {
	repo := newFakeOutboxRepo()
	// Exhaust both in-process attempts of the first pass.
	broker := &recordingBroker{failures: 2}
	event := pendingEvent(repo, model.EventCredentialCreate, `{"kind":"license"}`)

	processor := newProcessor(repo, broker)
	require.NoError(t, processor.processEvents(context.Background()))

	assert.Equal(t, string(model.OutboxStatusFailed), event.Status)
	require.NotNil(t, event.RetryAt)
	assert.Equal(t, 1, event.RetryCount)

	// Next pass after the backoff picks the failed event back up.
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, processor.processEvents(context.Background()))

	assert.Equal(t, string(model.OutboxStatusProcessed), event.Status)
	require.Len(t, broker.messages, 1)
}
