package service

import (
	"context"
	"mashub/api/internal/domain"
)

// Notifier announces processed webhooks. Publishing is best effort.
type Notifier interface {
	Notify(ctx context.Context, ev domain.ProcessedEvent) error
}

type processedPublisher interface {
	PublishProcessed(ctx context.Context, ev domain.ProcessedEvent) error
}

type NatsNotifier struct {
	publisher processedPublisher
}

// NewNatsNotifier takes *nats.NatsInfra.
func NewNatsNotifier(publisher processedPublisher) *NatsNotifier {
	return &NatsNotifier{publisher: publisher}
}

func (n *NatsNotifier) Notify(ctx context.Context, ev domain.ProcessedEvent) error {
	return n.publisher.PublishProcessed(ctx, ev)
}

type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, domain.ProcessedEvent) error { return nil }
