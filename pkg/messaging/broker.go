package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Event channels published by the outbox processor.
const (
	ChannelPhysicianEvents  = "credentialing.physicians"
	ChannelCredentialEvents = "credentialing.credentials"
	ChannelWorkflowEvents   = "credentialing.renewals"
	ChannelDocumentEvents   = "credentialing.documents"
)
